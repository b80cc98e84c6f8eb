// Package cmd provides the command-line interface for memtrace.
package cmd

import (
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sarchlab/memtrace/config"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var (
	configFile string
	envFile    string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "memtrace",
	Short: "memtrace counts the accesses and the hot pages of memory traces.",
	Long: `memtrace reads memory traces made of lines such as "L 04222cac,4" ` +
		`and reports how often each access type occurs and which ` +
		`instruction and data pages are accessed most.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		setupLogging(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"TOML file with the settings")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file",
		config.DefaultEnvFile, "dotenv file with MEMTRACE_* variables")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"print debug logs")
}

func setupLogging(debug bool) {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.TimeOnly,
	})

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
