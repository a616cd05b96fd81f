package main

import (
	"github.com/spf13/cobra"

	"github.com/unclebandit/outreach/internal/model"
)

func (c *cli) sendersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "senders",
		Short: "Manage sender accounts",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List sender accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			senders, err := c.app.Senders.List(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, senders)
		},
	}

	var (
		name    string
		channel string
		state   string
	)
	create := &cobra.Command{
		Use:   "create <sender-id>",
		Short: "Register a sender account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := &model.SenderAccount{
				ID:      args[0],
				Name:    name,
				Channel: channel,
				State:   model.SenderState(state),
			}
			if err := c.app.Senders.Create(cmd.Context(), s); err != nil {
				return err
			}
			return printJSON(cmd, s)
		},
	}
	create.Flags().StringVar(&name, "name", "", "display name (required)")
	create.Flags().StringVar(&channel, "channel", "", "delivery channel")
	create.Flags().StringVar(&state, "state", "", "initial state (defaults to needs_login)")

	var (
		code    string
		message string
	)
	setState := &cobra.Command{
		Use:   "state <sender-id> <state>",
		Short: "Record a sender session state (needs_login, connected, disconnected, blocked)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.app.Senders.UpdateState(cmd.Context(), args[0], model.SenderState(args[1]), code, message)
			if err != nil {
				return err
			}
			return printJSON(cmd, s)
		},
	}
	setState.Flags().StringVar(&code, "error-code", "", "last error code reported by the channel")
	setState.Flags().StringVar(&message, "error-message", "", "last error message reported by the channel")

	cmd.AddCommand(list, create, setState)
	return cmd
}
