package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/avi3tal/pregel/internal/script"
	"github.com/avi3tal/pregel/pkg/checkpoints"
	"github.com/avi3tal/pregel/pkg/pregel"
	"github.com/avi3tal/pregel/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay a step script, checkpointing after every step",
	Long: `Replays every step of the script on top of the thread's latest checkpoint
and prints the visible channel values after each step.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("script")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		s, err := script.Load(path)
		if err != nil {
			return err
		}
		slots, err := s.Slots()
		if err != nil {
			return err
		}

		logger := newLogger(cmd)
		reg := prometheus.NewRegistry()
		if metricsAddr != "" {
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
				logger.Info("starting metrics server", "addr", metricsAddr)
				if err := http.ListenAndServe(metricsAddr, mux); err != nil {
					logger.Error("metrics server stopped", "error", err)
				}
			}()
		}

		set, err := pregel.New(slots, pregel.WithLogger(logger), pregel.WithMetrics(reg))
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
		logger.Info("running script", "graph", config.GraphID, "thread_id", config.ThreadID, "steps", len(s.Steps))

		return checkpointer.Resume(ctx, config, set, func(live *pregel.Channels) error {
			for i := range s.Steps {
				updated, err := live.ApplyWrites(ctx, s.Writes(i))
				if err != nil {
					return fmt.Errorf("step %d: %w", live.Step()+1, err)
				}
				cp, err := checkpointer.Save(ctx, config, live, types.SourceLoop)
				if err != nil {
					return err
				}
				if err := printStep(cmd.OutOrStdout(), live, updated, cp.ID); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

func printStep(w io.Writer, set *pregel.Channels, updated []string, checkpointID string) error {
	values, err := set.ReadAll()
	if err != nil {
		return err
	}
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "step=%d updated=%v checkpoint=%s values=%s\n", set.Step(), updated, checkpointID, data)
	return err
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("metrics-addr", "", "Serve prometheus metrics on this address while running")
}
