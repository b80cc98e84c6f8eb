// Package config holds the settings of a memtrace run.
//
// Settings are layered: built-in defaults, then an optional TOML file, then
// MEMTRACE_* variables from the environment or a .env file. Command-line
// flags are applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/sarchlab/memtrace/report"
)

// DefaultInputs are the traces analyzed when none are given.
var DefaultInputs = []string{
	"/u/csc369h/summer/pub/a3/traces/addr-blocked.ref",
	"/u/csc369h/summer/pub/a3/traces/addr-matmul.ref",
	"/u/csc369h/summer/pub/a3/traces/addr-repeatloop.ref",
	"/u/csc369h/summer/pub/a3/traces/addr-simpleloop.ref",
}

// DefaultOutput is the report file written when none is given.
const DefaultOutput = "./analysis.txt"

// DefaultEnvFile is the dotenv file read by Load.
const DefaultEnvFile = ".env"

// Recording backends.
const (
	RecorderNone       = ""
	RecorderSQLite     = "sqlite"
	RecorderClickHouse = "clickhouse"
)

// Config is the full set of settings.
type Config struct {
	Inputs  []string `toml:"inputs"`
	Output  string   `toml:"output"`
	Format  string   `toml:"format"`
	CSV     string   `toml:"csv"`
	Verbose bool     `toml:"verbose"`

	Recording RecordingConfig `toml:"recording"`
	Monitor   MonitorConfig   `toml:"monitor"`
}

// RecordingConfig selects where reports are recorded.
type RecordingConfig struct {
	Backend    string           `toml:"backend"`
	Path       string           `toml:"path"`
	ClickHouse ClickHouseConfig `toml:"clickhouse"`
}

// ClickHouseConfig locates a ClickHouse server.
type ClickHouseConfig struct {
	Addr     string `toml:"addr"`
	Database string `toml:"database"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// MonitorConfig controls the HTTP monitor.
type MonitorConfig struct {
	Enabled     bool `toml:"enabled"`
	Port        int  `toml:"port"`
	OpenBrowser bool `toml:"open_browser"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Inputs: append([]string(nil), DefaultInputs...),
		Output: DefaultOutput,
		Format: string(report.FormatText),
		Recording: RecordingConfig{
			ClickHouse: ClickHouseConfig{
				Addr:     "localhost:9000",
				Database: "default",
				Username: "default",
			},
		},
	}
}

// Load builds a Config from the defaults, the TOML file at path (skipped when
// path is empty) and the environment. Variables already set in the process
// environment win over the ones in envFile. A missing envFile is ignored.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
		}
	}

	dotenv, err := readEnvFile(envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}

		v, ok := dotenv[key]

		return v, ok
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func readEnvFile(envFile string) (map[string]string, error) {
	if envFile == "" {
		return nil, nil
	}

	env, err := godotenv.Read(envFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", envFile, err)
	}

	return env, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("MEMTRACE_INPUTS"); ok && v != "" {
		c.Inputs = filepath.SplitList(v)
	}

	if v, ok := lookup("MEMTRACE_OUTPUT"); ok && v != "" {
		c.Output = v
	}

	if v, ok := lookup("MEMTRACE_FORMAT"); ok && v != "" {
		c.Format = v
	}

	if v, ok := lookup("MEMTRACE_CSV"); ok {
		c.CSV = v
	}

	if v, ok := lookup("MEMTRACE_RECORDER"); ok {
		c.Recording.Backend = v
	}

	if v, ok := lookup("MEMTRACE_DB"); ok {
		c.Recording.Path = v
	}

	if v, ok := lookup("MEMTRACE_CLICKHOUSE_ADDR"); ok && v != "" {
		c.Recording.ClickHouse.Addr = v
	}

	if v, ok := lookup("MEMTRACE_CLICKHOUSE_PASSWORD"); ok {
		c.Recording.ClickHouse.Password = v
	}

	if v, ok := lookup("MEMTRACE_MONITOR_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MEMTRACE_MONITOR_PORT: %w", err)
		}

		c.Monitor.Port = port
	}

	if v, ok := lookup("MEMTRACE_VERBOSE"); ok && v != "" {
		verbose, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MEMTRACE_VERBOSE: %w", err)
		}

		c.Verbose = verbose
	}

	return nil
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	if len(c.Inputs) == 0 {
		return errors.New("no trace files given")
	}

	for _, in := range c.Inputs {
		if strings.TrimSpace(in) == "" {
			return errors.New("empty trace path")
		}
	}

	if c.Output == "" {
		return errors.New("no output path given")
	}

	if _, err := report.ParseFormat(c.Format); err != nil {
		return err
	}

	switch c.Recording.Backend {
	case RecorderNone, RecorderSQLite, RecorderClickHouse:
	default:
		return fmt.Errorf("unknown recording backend %q", c.Recording.Backend)
	}

	if c.Monitor.Port < 0 || c.Monitor.Port > 65535 {
		return fmt.Errorf("invalid monitor port %d", c.Monitor.Port)
	}

	return nil
}
