package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soaringjerry/VisitPulse/internal/config"
	"github.com/soaringjerry/VisitPulse/internal/logger"
)

// cli holds what the persistent pre-run resolves for every subcommand.
type cli struct {
	envFile string
	cfg     *config.Config
	log     *logger.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "visitpulse",
		Short:         "VisitPulse museum check-in/check-out survey server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var files []string
			if c.envFile != "" {
				files = append(files, c.envFile)
			}
			cfg, err := config.Load(files...)
			if err != nil {
				return err
			}
			log, err := logger.New(logger.Config{
				Mode:       cfg.LogMode,
				File:       cfg.LogFile,
				MaxSizeMB:  cfg.LogMaxSizeMB,
				MaxBackups: cfg.LogMaxBackups,
				MaxAgeDays: cfg.LogMaxAgeDays,
				HashSalt:   cfg.LogHashSalt,
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			c.cfg, c.log = cfg, log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.log != nil {
				c.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&c.envFile, "env-file", "", "dotenv file to load (default .env when present)")

	serve := newServeCmd(c)
	root.RunE = serve.RunE
	root.AddCommand(serve, newMigrateCmd(c), newExportCmd(c), newResetCmd(c))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "visitpulse:", err)
		os.Exit(1)
	}
}
