package platform

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/simobern/base/pkg/idgen"
)

// Config is the file and environment configuration of the CLI.
type Config struct {
	Adapter   string `yaml:"adapter"`
	URL       string `yaml:"url"`
	Format    string `yaml:"format"`
	ReadOnly  bool   `yaml:"read_only"`
	IDs       string `yaml:"ids"`
	LogLevel  string `yaml:"log_level"`
	LogFile   string `yaml:"log_file"`
	Functions string `yaml:"functions"` // directory holding map/reduce .js files
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	var c Config
	data, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return c, nil
}

// ApplyEnv overlays environment variables. MONGOHQ_URL is honoured for
// compatibility; BASE_DB_URL takes precedence over it.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("MONGOHQ_URL"); v != "" {
		c.URL = v
	}
	if v := getenv("BASE_DB_URL"); v != "" {
		c.URL = v
	}
	if v := getenv("BASE_ADAPTER"); v != "" {
		c.Adapter = v
	}
	if v := getenv("BASE_FORMAT"); v != "" {
		c.Format = v
	}
	if v := getenv("BASE_READ_ONLY"); v != "" {
		c.ReadOnly, _ = strconv.ParseBool(v)
	}
	if v := getenv("BASE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("BASE_LOG_FILE"); v != "" {
		c.LogFile = v
	}
}

// ParseLevel maps a level name to a slog level. Unknown names select Info.
func ParseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(name))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewLogger builds a text logger at level writing to file, or to fallback
// when file is empty. The returned closer releases the file.
func NewLogger(file string, level slog.Level, fallback io.Writer) (*slog.Logger, io.Closer, error) {
	var w io.Writer = fallback
	var closer io.Closer = io.NopCloser(nil)
	if file != "" {
		f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w, closer = f, f
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closer, nil
}

// Options converts the configuration into session options.
func (c Config) Options() ([]Option, error) {
	ids, ok := idgen.ByName(c.IDs)
	if !ok {
		return nil, fmt.Errorf("unknown id generator %q", c.IDs)
	}
	opts := []Option{WithReadOnly(c.ReadOnly), WithIDGenerator(ids)}
	if c.Adapter != "" {
		opts = append(opts, WithAdapter(c.Adapter))
	}
	if c.Format != "" {
		opts = append(opts, WithFormat(c.Format))
	}
	return opts, nil
}
