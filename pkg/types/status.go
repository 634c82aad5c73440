package types

// CheckpointSource records what produced a checkpoint
type CheckpointSource string

const (
	SourceInput  CheckpointSource = "input"  // Written from the run's input
	SourceLoop   CheckpointSource = "loop"   // Written at the end of a step
	SourceUpdate CheckpointSource = "update" // Written by a manual state update
)
