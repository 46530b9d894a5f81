package main

import (
	"fmt"
	"time"

	"github.com/NicValentine/LoFi-Cafe/core"
	"github.com/NicValentine/LoFi-Cafe/crew"
	"github.com/NicValentine/LoFi-Cafe/sio"
	"github.com/NicValentine/LoFi-Cafe/storage"

	"github.com/spf13/cobra"
)

func newCrewCmd(opts *options) *cobra.Command {
	var (
		agents      []string
		limit       int
		concurrency int
		store       string
		metricsFile string
		quiet       bool
	)

	cmd := &cobra.Command{
		Use:   "crew MODEL",
		Short: "Run several independent agents of one model",
		Long: "Each --agent is ID or ID:NAME=VALUE,NAME=VALUE.  Agents share the\n" +
			"compiled model and nothing else.  Output is printed per agent after\n" +
			"every agent has stopped.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if len(agents) == 0 {
				return fmt.Errorf("need at least one --agent")
			}

			m, err := opts.loadModel(ctx, args[0])
			if err != nil {
				return err
			}

			c, err := crew.NewCrew(m.Name, m)
			if err != nil {
				return err
			}
			c.Concurrency = concurrency

			collectors := make(map[string]*sio.Collector)
			c.Sinks = func(id string) core.Sink {
				col := &sio.Collector{}
				collectors[id] = col
				return col
			}

			for _, spec := range agents {
				id, params, err := crew.ParseAgent(spec)
				if err != nil {
					return err
				}
				if _, err := c.Add(id, params); err != nil {
					return err
				}
			}

			st, err := openStorage(ctx, store)
			if err != nil {
				return err
			}
			defer st.Close()

			started := time.Now().UTC()
			if err := c.Run(ctx, &core.Control{Limit: limit}); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			walks := make([]*core.Walked, 0, len(c.Agents))
			for _, id := range c.Ids() {
				a := c.Agents[id]
				if !quiet {
					stdio := &sio.Stdio{
						Out:   out,
						Agent: id,
					}
					for _, l := range collectors[id].Lines() {
						if err := stdio.Emit(ctx, l); err != nil {
							return err
						}
					}
				}
				walks = append(walks, a.Walked)
				r := storage.NewRecord(a.Scheduler, a.Params, started, a.Walked)
				r.Agent = id
				if err := st.WriteRun(ctx, r); err != nil {
					return err
				}
			}

			if err := writeMetrics(metricsFile, m.Name, walks...); err != nil {
				return err
			}

			fmt.Fprint(out, crew.Summary(c))
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&agents, "agent", "a", nil, "Agent ID[:NAME=VALUE,...] (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", core.DefaultControl.Limit, "Maximum number of ticks per agent")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Maximum agents walking at once (0 for no limit)")
	cmd.Flags().StringVar(&store, "store", "", "Record each agent's run: bolt:PATH or sqlite:PATH")
	cmd.Flags().StringVar(&metricsFile, "metrics", "", "Write Prometheus metrics for all agents to this file")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print the summary")

	return cmd
}
