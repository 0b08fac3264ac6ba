package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimeout       = 30 * time.Second
	defaultOutputDir     = "~/raemis_reports"
	defaultRenderWorkers = 4
	defaultTopicPrefix   = "raemis"
	dateLayout           = "2006-01-02"

	// PasswordEnv overrides the configured password when set
	PasswordEnv = "RAEMIS_PASSWORD"
)

// Config holds the application configuration
type Config struct {
	Endpoint           string         `yaml:"endpoint"`
	Username           string         `yaml:"username"`
	Password           string         `yaml:"password,omitempty"`
	InsecureSkipVerify bool           `yaml:"insecure_skip_verify,omitempty"` // skips TLS certificate validation
	Timeout            time.Duration  `yaml:"timeout,omitempty"`
	OutputDir          string         `yaml:"output_dir,omitempty"`
	Timezone           string         `yaml:"timezone,omitempty"` // IANA name, "Local" or "UTC"
	SchoolYearRanges   []DateRange    `yaml:"school_year_ranges"`
	RenderWorkers      int            `yaml:"render_workers,omitempty"`
	Database           DatabaseConfig `yaml:"database,omitempty"`
	MQTT               MQTTConfig     `yaml:"mqtt,omitempty"`
	Log                LogConfig      `yaml:"log,omitempty"`
}

// DateRange is a half-open [Start, End) range of calendar days.
// An empty End leaves the range open.
type DateRange struct {
	Start string `yaml:"start"`
	End   string `yaml:"end,omitempty"`
}

// TimeRange is a DateRange resolved in a location. A zero End is open.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls in [Start, End)
func (r TimeRange) Contains(t time.Time) bool {
	if t.Before(r.Start) {
		return false
	}
	return r.End.IsZero() || t.Before(r.End)
}

// DatabaseConfig controls the run ledger
type DatabaseConfig struct {
	Path string `yaml:"path,omitempty"` // "-" disables the ledger
}

// MQTTConfig holds MQTT broker configuration for run summaries
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"` // host:port
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level string `yaml:"level,omitempty"`
	File  string `yaml:"file,omitempty"` // rotated with lumberjack when set
}

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		Timeout:   defaultTimeout,
		OutputDir: defaultOutputDir,
		Timezone:  "Local",
		SchoolYearRanges: []DateRange{
			{Start: "2024-09-03", End: "2025-06-18"},
			{Start: "2025-09-03"},
		},
		RenderWorkers: defaultRenderWorkers,
		MQTT:          MQTTConfig{TopicPrefix: defaultTopicPrefix},
		Log:           LogConfig{Level: "info"},
	}
}

// Load reads the config file, filling unset fields from Default
func Load(configPath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	// 0600: the file may hold credentials
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// Validate checks the fields a run cannot do without
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	loc, err := c.GetLocation()
	if err != nil {
		return err
	}
	if _, err := c.GetSchoolYearRanges(loc); err != nil {
		return err
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("MQTT broker address is required when enabled")
	}
	return nil
}

// GetTimeout returns the request timeout with a default of 30s
func (c *Config) GetTimeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeout
	}
	return c.Timeout
}

// GetPassword returns the password, preferring the RAEMIS_PASSWORD env var
func (c *Config) GetPassword() string {
	if p := os.Getenv(PasswordEnv); p != "" {
		return p
	}
	return c.Password
}

// GetOutputDir returns the output directory with ~ expanded
func (c *Config) GetOutputDir() (string, error) {
	dir := c.OutputDir
	if dir == "" {
		dir = defaultOutputDir
	}
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return "", fmt.Errorf("expanding output dir %q: %w", dir, err)
	}
	return expanded, nil
}

// GetLocation returns the time zone used for calendar and hour-of-day logic
func (c *Config) GetLocation() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// GetSchoolYearRanges resolves the configured school year ranges in loc
func (c *Config) GetSchoolYearRanges(loc *time.Location) ([]TimeRange, error) {
	ranges := make([]TimeRange, 0, len(c.SchoolYearRanges))
	for i, r := range c.SchoolYearRanges {
		start, err := time.ParseInLocation(dateLayout, r.Start, loc)
		if err != nil {
			return nil, fmt.Errorf("school_year_ranges[%d].start: %w", i, err)
		}
		var end time.Time
		if r.End != "" {
			end, err = time.ParseInLocation(dateLayout, r.End, loc)
			if err != nil {
				return nil, fmt.Errorf("school_year_ranges[%d].end: %w", i, err)
			}
			if !end.After(start) {
				return nil, fmt.Errorf("school_year_ranges[%d]: end %s is not after start %s", i, r.End, r.Start)
			}
		}
		ranges = append(ranges, TimeRange{Start: start, End: end})
	}
	return ranges, nil
}

// GetRenderWorkers returns the chart render concurrency with a default of 4
func (c *Config) GetRenderWorkers() int {
	if c.RenderWorkers <= 0 {
		return defaultRenderWorkers
	}
	return c.RenderWorkers
}

// GetDatabasePath returns the ledger path, "" when disabled.
// Defaults to runs.db in the output directory.
func (c *Config) GetDatabasePath() (string, error) {
	switch c.Database.Path {
	case "-":
		return "", nil
	case "":
		dir, err := c.GetOutputDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "runs.db"), nil
	default:
		return homedir.Expand(c.Database.Path)
	}
}

// GetTopicPrefix returns the MQTT topic prefix with a default of "raemis"
func (c *Config) GetTopicPrefix() string {
	if c.MQTT.TopicPrefix == "" {
		return defaultTopicPrefix
	}
	return c.MQTT.TopicPrefix
}
