package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	var (
		store string
		model string
		id    string
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs (or show one)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if store == "" {
				return fmt.Errorf("need --store")
			}
			st, err := openStorage(ctx, store)
			if err != nil {
				return err
			}
			defer st.Close()

			out := cmd.OutOrStdout()

			if id != "" {
				r, err := st.GetRun(ctx, model, id)
				if err != nil {
					return fmt.Errorf("%s: %w", id, err)
				}
				js, err := json.MarshalIndent(r, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\n", js)
				return nil
			}

			rs, err := st.ListRuns(ctx, model)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tMODEL\tAGENT\tSTARTED\tTICKS\tSTOPPED\tFIRED")
			for _, r := range rs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%d\n",
					r.Id, r.Model, r.Agent, r.Started.Format(time.RFC3339),
					r.Ticks, r.StoppedBecause, len(r.Fired))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&store, "store", "", "bolt:PATH or sqlite:PATH")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Only runs of this model")
	cmd.Flags().StringVar(&id, "id", "", "Show this run in full (needs --model)")

	return cmd
}

