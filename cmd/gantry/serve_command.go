package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"gantry/internal/daemon"
	"gantry/internal/jobs"
	"gantry/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var foregroundLogs bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the supervisor and job bridge in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			outputs := []string{filepath.Join(cfg.Paths.LogDir, "gantry.log")}
			if foregroundLogs {
				outputs = append(outputs, "stdout")
			}
			logger, err := logging.New(logging.Options{
				Level:       cfg.Logging.Level,
				Format:      cfg.Logging.Format,
				OutputPaths: outputs,
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			store, err := jobs.Open(cfg)
			if err != nil {
				return fmt.Errorf("open job store: %w", err)
			}

			d, err := daemon.New(cfg, store, logger)
			if err != nil {
				_ = store.Close()
				return fmt.Errorf("create daemon: %w", err)
			}
			defer d.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := d.Start(runCtx); err != nil {
				return err
			}

			<-runCtx.Done()
			logger.Info("gantry shutting down")
			return nil
		},
	}

	cmd.Flags().BoolVar(&foregroundLogs, "stdout", true, "Mirror logs to stdout in addition to the log file")
	return cmd
}
