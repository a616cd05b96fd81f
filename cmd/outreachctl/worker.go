package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) workerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Drive the queue worker by hand",
	}

	var drain bool
	tick := &cobra.Command{
		Use:   "tick",
		Short: "Claim and deliver one batch of due items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := c.app.NewWorker()
			total := 0
			for {
				n, err := w.Tick(cmd.Context())
				total += n
				if err != nil {
					return err
				}
				if !drain || n == 0 {
					break
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "processed %d items\n", total)
			return nil
		},
	}
	tick.Flags().BoolVar(&drain, "drain", false, "keep ticking until nothing is due")

	cmd.AddCommand(tick)
	return cmd
}
