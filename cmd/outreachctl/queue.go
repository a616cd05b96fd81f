package main

import (
	"github.com/spf13/cobra"

	"github.com/unclebandit/outreach/internal/model"
	"github.com/unclebandit/outreach/internal/repository"
)

func (c *cli) queueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect queue items",
	}

	var (
		runID  string
		status string
		limit  int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List queue items, oldest due first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := c.app.Runs.ListQueue(cmd.Context(), repository.QueueFilter{
				RunID:  runID,
				Status: model.QueueItemStatus(status),
				Limit:  limit,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, items)
		},
	}
	list.Flags().StringVar(&runID, "run", "", "only items of this run")
	list.Flags().StringVar(&status, "status", "", "only items in this status (queued, leased, done, failed)")
	list.Flags().IntVar(&limit, "limit", 0, "maximum items to list")

	get := &cobra.Command{
		Use:   "get <item-id>",
		Short: "Show one queue item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := c.app.Runs.GetQueueItem(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, item)
		},
	}

	cmd.AddCommand(list, get)
	return cmd
}
