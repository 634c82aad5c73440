package main

import (
	"context"
	"fmt"
	"log"

	"github.com/avi3tal/pregel/pkg/channels"
	"github.com/avi3tal/pregel/pkg/types"
)

// Drives a non-accumulating topic through three steps and resumes it from
// a checkpoint.
func main() {
	ctx := context.Background()
	topic := channels.NewTopic[string](false)

	steps := [][]channels.Update[string]{
		{channels.Value("draft"), channels.Values("review", "edit")},
		{channels.Value("publish")},
		nil, // no writers this step
	}

	for i, batch := range steps {
		changed := topic.Update(batch)
		values, err := topic.Get()
		if channels.IsEmpty(err) {
			fmt.Printf("step %d: changed=%v, no value\n", i+1, changed)
			continue
		}
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("step %d: changed=%v, values=%v\n", i+1, changed, values)
	}

	topic.Update([]channels.Update[string]{channels.Value("archive")})
	checkpoint := topic.Checkpoint()

	config := types.NewConfig("topic-example")
	err := channels.Restore[[]string, channels.Update[string], []string](ctx, topic, checkpoint, config,
		func(restored channels.Channel[[]string, channels.Update[string], []string]) error {
			values, err := restored.Get()
			if err != nil {
				return err
			}
			fmt.Printf("restored on thread %s: %v\n", config.ThreadID, values)
			return nil
		})
	if err != nil {
		log.Fatal(err)
	}
}
