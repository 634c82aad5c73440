package types

import "github.com/google/uuid"

// Config represents runtime configuration for a run. Channels receive it on
// restore but never inspect it.
type Config struct {
	GraphID      string         // Unique identifier for the graph
	ThreadID     string         // Unique identifier for this execution thread
	CheckpointID string         // Checkpoint to resume from, empty for the latest
	Configurable map[string]any // Additional configuration parameters
	Debug        bool           // Enable execution tracing
}

func (c *Config) Clone() Config {
	configurable := make(map[string]any, len(c.Configurable))
	for k, v := range c.Configurable {
		configurable[k] = v
	}
	return Config{
		GraphID:      c.GraphID,
		ThreadID:     c.ThreadID,
		CheckpointID: c.CheckpointID,
		Configurable: configurable,
		Debug:        c.Debug,
	}
}

// Key returns the checkpoint key addressed by this config.
func (c *Config) Key() CheckpointKey {
	return CheckpointKey{GraphID: c.GraphID, ThreadID: c.ThreadID}
}

type Option func(*Config)

func NewConfig(graphID string, opt ...Option) Config {
	cfg := Config{
		GraphID:  graphID,
		ThreadID: uuid.New().String(), // generate default thread ID
	}
	for _, o := range opt {
		o(&cfg)
	}
	return cfg
}

// WithThreadID sets the unique thread identifier
func WithThreadID(id string) Option {
	return func(c *Config) {
		c.ThreadID = id
	}
}

// WithCheckpointID pins the checkpoint to resume from
func WithCheckpointID(id string) Option {
	return func(c *Config) {
		c.CheckpointID = id
	}
}

// WithConfigurable sets additional configuration parameters
func WithConfigurable(config map[string]any) Option {
	return func(c *Config) {
		c.Configurable = config
	}
}

// WithDebug enables execution tracing
func WithDebug() Option {
	return func(c *Config) {
		c.Debug = true
	}
}
