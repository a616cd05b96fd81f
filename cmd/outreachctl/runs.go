package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/unclebandit/outreach/internal/model"
	"github.com/unclebandit/outreach/internal/service"
)

func (c *cli) runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Create, drive and inspect runs",
	}

	var in service.CreateRunInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a run for a campaign",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := c.app.Runs.CreateRun(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printJSON(cmd, run)
		},
	}
	create.Flags().StringVar(&in.CampaignID, "campaign", "", "campaign id (required)")
	create.Flags().StringVar(&in.SenderID, "sender", "", "sender id (default \"default\")")
	create.Flags().StringVar(&in.Mode, "mode", "cold", "run mode: cold or warm")

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List runs, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := c.app.Runs.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printJSON(cmd, runs)
		},
	}
	list.Flags().IntVar(&limit, "limit", 0, "maximum runs to list")

	var eventLimit int
	events := &cobra.Command{
		Use:   "events <run-id>",
		Short: "Show a run's events, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			evs, err := c.app.Runs.ListEvents(cmd.Context(), args[0], eventLimit)
			if err != nil {
				return err
			}
			return printJSON(cmd, evs)
		},
	}
	events.Flags().IntVar(&eventLimit, "limit", 0, "maximum events to show")

	plan := &cobra.Command{
		Use:   "plan <run-id>",
		Short: "Plan a run's queue again without changing its status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.app.Runs.PlanRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}

	complete := &cobra.Command{
		Use:   "complete <run-id>",
		Short: "Finish a running run whose queue has drained",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.app.Runs.CompleteIfDrained(cmd.Context(), args[0]); err != nil {
				return err
			}
			run, err := c.app.Runs.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, run)
		},
	}

	cmd.AddCommand(
		create,
		list,
		events,
		plan,
		complete,
		c.runOpCmd("get <run-id>", "Show one run with its totals", (*service.RunService).GetRun),
		c.runOpCmd("start <run-id>", "Start a created or paused run", (*service.RunService).StartRun),
		c.runOpCmd("resume <run-id>", "Resume a paused run", (*service.RunService).ResumeRun),
		c.reasonCmd("pause <run-id>", "Pause a running run", (*service.RunService).PauseRun),
		c.reasonCmd("stop <run-id>", "Stop a run for good", (*service.RunService).StopRun),
	)
	return cmd
}

// The app is built in PersistentPreRunE, after the command tree exists,
// so operations are taken as method expressions and bound at run time.
type runOp func(s *service.RunService, ctx context.Context, id string) (*model.Run, error)
type reasonOp func(s *service.RunService, ctx context.Context, id, reason string) (*model.Run, error)

func (c *cli) runOpCmd(use, short string, op runOp) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := op(c.app.Runs, cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, run)
		},
	}
}

func (c *cli) reasonCmd(use, short string, op reasonOp) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := op(c.app.Runs, cmd.Context(), args[0], reason)
			if err != nil {
				return err
			}
			return printJSON(cmd, run)
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "reason recorded on the run (default \"manual\")")
	return cmd
}
