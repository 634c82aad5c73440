package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avi3tal/pregel/internal/script"
	"github.com/avi3tal/pregel/pkg/checkpoints"
	"github.com/avi3tal/pregel/pkg/pregel"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the channel values stored for a thread",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("script")
		thread, _ := cmd.Flags().GetString("thread")
		if thread == "" {
			return fmt.Errorf("--thread is required")
		}

		s, err := script.Load(path)
		if err != nil {
			return err
		}
		slots, err := s.Slots()
		if err != nil {
			return err
		}
		set, err := pregel.New(slots, pregel.WithLogger(newLogger(cmd)))
		if err != nil {
			return err
		}

		store, closeStore, err := newStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		ctx := cmd.Context()
		config := newConfig(cmd, s.Graph)
		checkpointer := checkpoints.NewStateCheckpointer(store)
		cp, err := checkpointer.Load(ctx, config)
		if err != nil {
			return err
		}

		return set.Restore(ctx, cp, config, func(restored *pregel.Channels) error {
			values, err := restored.ReadAll()
			if err != nil {
				return err
			}
			out := map[string]any{
				"checkpoint": cp.ID,
				"step":       restored.Step(),
				"versions":   restored.Versions(),
				"values":     values,
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		})
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
