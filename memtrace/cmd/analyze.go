package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
	"github.com/sarchlab/memtrace/analysis"
	"github.com/sarchlab/memtrace/config"
	"github.com/sarchlab/memtrace/datarecording"
	"github.com/sarchlab/memtrace/monitoring"
	"github.com/sarchlab/memtrace/report"
	"github.com/sarchlab/memtrace/runner"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [trace...]",
	Short: "Analyze traces and write their reports.",
	Long: "Analyze the given traces, or the configured ones when none is " +
		"given, one after another and write one report per trace.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}

		a, err := runAnalysis(cmd.Context(), cfg, consoleFor(cfg, cmd))
		if a.monitor != nil {
			shutdownMonitor(a.monitor)
		}

		return err
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	addAnalysisFlags(analyzeCmd.Flags())
}

// consoleFor picks where the progress messages go. They move to stderr when
// the reports themselves go to stdout.
func consoleFor(cfg config.Config, cmd *cobra.Command) io.Writer {
	if cfg.Output == runner.StdoutPath {
		return cmd.ErrOrStderr()
	}

	return cmd.OutOrStdout()
}

type analysisResult struct {
	runID   string
	reports []analysis.Report
	monitor *monitoring.Monitor
}

// runAnalysis analyzes the configured traces and releases every backend
// before returning. A started monitor is returned running.
func runAnalysis(
	ctx context.Context,
	cfg config.Config,
	console io.Writer,
) (result analysisResult, err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return result, err
	}

	result.runID = xid.New().String()

	builder := runner.MakeBuilder().
		WithInputs(cfg.Inputs...).
		WithOutput(cfg.Output).
		WithFormat(format)

	var closers []func() error

	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if closeErr := closers[i](); closeErr != nil {
				err = multierror.Append(err, closeErr)
			}
		}
	}()

	if cfg.CSV != "" {
		csvBackend, csvErr := analysis.NewCSVBackend(cfg.CSV)
		if csvErr != nil {
			return result, csvErr
		}

		closers = append(closers, csvBackend.Close)
		builder = builder.WithBackend(csvBackend)
	}

	recorder, err := openRecorder(cfg.Recording)
	if err != nil {
		return result, err
	}

	if recorder != nil {
		closers = append(closers, recorder.Close)

		backend, endRun, recErr := prepareRecording(recorder, result.runID)
		if endRun != nil {
			closers = append(closers, endRun)
		}

		if recErr != nil {
			return result, recErr
		}

		builder = builder.WithBackend(backend)
	}

	if cfg.Monitor.Enabled || cfg.Monitor.OpenBrowser {
		result.monitor, err = startMonitor(cfg.Monitor)
		if err != nil {
			return result, err
		}

		builder = builder.WithMonitor(result.monitor)
	}

	fmt.Fprintln(console, "program starts, waiting ...")

	result.reports, err = builder.Build().Run(ctx)
	if err != nil {
		return result, err
	}

	fmt.Fprintf(console, "program finishes, please see output in %s\n",
		cfg.Output)

	return result, nil
}

func openRecorder(cfg config.RecordingConfig) (datarecording.DataRecorder, error) {
	switch cfg.Backend {
	case config.RecorderSQLite:
		return datarecording.New(cfg.Path)
	case config.RecorderClickHouse:
		return datarecording.NewClickHouse(datarecording.ClickHouseOptions{
			Addr:     cfg.ClickHouse.Addr,
			Database: cfg.ClickHouse.Database,
			Username: cfg.ClickHouse.Username,
			Password: cfg.ClickHouse.Password,
		})
	case config.RecorderNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown recording backend %q", cfg.Backend)
	}
}

// prepareRecording starts the exec_info record of the run. The returned end
// function is set as soon as the run is started, even when an error follows.
func prepareRecording(
	recorder datarecording.DataRecorder,
	runID string,
) (backend *analysis.RecorderBackend, end func() error, err error) {
	execRecorder, err := datarecording.NewExecRecorder(recorder)
	if err != nil {
		return nil, nil, err
	}

	execRecorder.Start(runID)

	backend, err = analysis.NewRecorderBackend(recorder, runID)
	if err != nil {
		return nil, execRecorder.End, err
	}

	return backend, execRecorder.End, nil
}

func startMonitor(cfg config.MonitorConfig) (*monitoring.Monitor, error) {
	m := monitoring.NewMonitor().WithPortNumber(cfg.Port)

	url, err := m.StartServer()
	if err != nil {
		return nil, fmt.Errorf("start monitor: %w", err)
	}

	if cfg.OpenBrowser {
		if err := m.OpenBrowser(url); err != nil {
			log.Warn().Err(err).Msg("cannot open browser")
		}
	}

	return m, nil
}

func shutdownMonitor(m *monitoring.Monitor) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "monitor shutdown: %v\n", err)
	}
}
