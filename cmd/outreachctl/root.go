package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unclebandit/outreach/internal/app"
	"github.com/unclebandit/outreach/internal/config"
	"github.com/unclebandit/outreach/internal/logging"
)

// cli carries state shared by every subcommand of one invocation.
type cli struct {
	envFile string
	verbose bool

	logger *zap.Logger
	app    *app.App
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "outreachctl",
		Short:         "Administer outreach runs and the delivery queue",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.envFile)
			if err != nil {
				return err
			}
			level := cfg.LogLevel
			if c.verbose {
				level = "debug"
			} else if level == "info" {
				// Keep stdout clean for JSON output.
				level = "warn"
			}
			c.logger, err = logging.New(level, cfg.LogDev)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			c.app, err = app.New(cmd.Context(), cfg, c.logger)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
			if c.app != nil {
				return c.app.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before the environment")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(c.runsCmd(), c.queueCmd(), c.sendersCmd(), c.workerCmd())
	return root
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
