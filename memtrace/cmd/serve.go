package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve [trace...]",
	Short: "Analyze traces and keep the monitor running.",
	Long: "Analyze the traces like analyze does with the monitor enabled, " +
		"then keep serving the reports until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}

		cfg.Monitor.Enabled = true

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := runAnalysis(ctx, cfg, consoleFor(cfg, cmd))
		if a.monitor == nil {
			return err
		}

		defer shutdownMonitor(a.monitor)

		if err != nil {
			return err
		}

		log.Info().
			Str("run", a.runID).
			Int("reports", len(a.reports)).
			Msg("serving reports, press Ctrl+C to stop")

		<-ctx.Done()

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addAnalysisFlags(serveCmd.Flags())
}
