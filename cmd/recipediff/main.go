// Command recipediff compares recipe versions from the command line and
// runs maintenance tasks against the revision store
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alchemorsel/recipediff/internal/infrastructure/config"
	"github.com/alchemorsel/recipediff/pkg/logger"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	configPath string
	noColor    bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "recipediff",
		Short: "Compare recipe versions and manage stored revisions",
		Long: `recipediff highlights what an update added to a recipe and runs
maintenance tasks against the revision store used by the API server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("RECIPEDIFF_CONFIG"), "Config file (defaults to RECIPEDIFF_CONFIG or ./config.yaml)")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log at debug level")

	cmd.AddCommand(
		newDiffCmd(),
		newPruneCmd(opts),
		newMigrateCmd(opts),
		newPingCmd(),
	)
	return cmd
}

// load reads the configuration and builds a console logger for commands
// that talk to the database
func (o *rootOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}

	level := "warn"
	if o.verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Config{Level: level, Format: "console"})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log.Logger, nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
		cancel()
		os.Exit(1)
	}
}
