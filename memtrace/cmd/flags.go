package cmd

import (
	"github.com/sarchlab/memtrace/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func addAnalysisFlags(flags *pflag.FlagSet) {
	flags.StringP("output", "o", config.DefaultOutput,
		`file that receives the reports, "-" for stdout`)
	flags.String("format", "text", "report format: text, json or msgpack")
	flags.String("csv", "", "also write the ranked pages to this CSV file")
	flags.String("db", "", "record the results into this SQLite file "+
		"(the .sqlite3 suffix is added)")
	flags.String("recorder", "", "recording backend: sqlite or clickhouse")
	flags.String("clickhouse-addr", "", "address of the ClickHouse server")
	flags.Bool("monitor", false, "serve progress and reports over HTTP")
	flags.Int("port", 0, "port of the monitor, 0 picks a free one")
	flags.Bool("open", false, "open the monitor in a web browser")
}

// loadConfig layers the changed flags and the positional traces over the
// file and environment settings.
func loadConfig(cmd *cobra.Command, args []string) (config.Config, error) {
	cfg, err := config.Load(configFile, envFile)
	if err != nil {
		return config.Config{}, err
	}

	if err := applyFlags(&cfg, cmd.Flags()); err != nil {
		return config.Config{}, err
	}

	if len(args) > 0 {
		cfg.Inputs = args
	}

	if verbose {
		cfg.Verbose = true
	}

	setupLogging(cfg.Verbose)

	return cfg, cfg.Validate()
}

func applyFlags(cfg *config.Config, flags *pflag.FlagSet) error {
	var err error

	str := func(name string, dst *string) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetString(name)
		}
	}

	boolean := func(name string, dst *bool) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetBool(name)
		}
	}

	str("output", &cfg.Output)
	str("format", &cfg.Format)
	str("csv", &cfg.CSV)
	str("recorder", &cfg.Recording.Backend)
	str("clickhouse-addr", &cfg.Recording.ClickHouse.Addr)
	boolean("monitor", &cfg.Monitor.Enabled)
	boolean("open", &cfg.Monitor.OpenBrowser)

	if err == nil && flags.Changed("db") {
		cfg.Recording.Path, err = flags.GetString("db")
		if cfg.Recording.Backend == config.RecorderNone {
			cfg.Recording.Backend = config.RecorderSQLite
		}
	}

	if err == nil && flags.Changed("port") {
		cfg.Monitor.Port, err = flags.GetInt("port")
	}

	return err
}
