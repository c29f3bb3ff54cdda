package config

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/iainlane/prometheus-launchpad-exporter/pkg/launchpad"
)

const (
	DefaultConfigPath = "/etc/launchpad-exporter"
	ConfigFileName    = "config.yml"

	envPrefix = "LAUNCHPAD_EXPORTER_"
)

// Attribute sources, from lowest to highest precedence.
const (
	SourceDefault     = "default"
	SourceFile        = "file"
	SourceEnvironment = "environment"
	SourceFlag        = "flag"
)

// ExporterConfig holds all exporter settings
type ExporterConfig struct {
	// Series to report on; empty means every current series
	Series []string `yaml:"series" json:"series"`

	// Packagesets to report on; empty means all of them
	Packagesets []string `yaml:"packagesets" json:"packagesets"`

	Distribution string `yaml:"distribution" json:"distribution"`

	// LaunchpadURL is the root of the Launchpad web service
	LaunchpadURL string `yaml:"launchpad_url" json:"launchpad_url"`
	APIVersion   string `yaml:"api_version" json:"api_version"`

	// RequestsPerSecond limits Launchpad traffic; 0 disables the limit
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`

	BindAddress string `yaml:"bind_address" json:"bind_address"`
	Port        int    `yaml:"port" json:"port"`

	// RefreshInterval is the period of the packageset and queue refresh
	RefreshInterval time.Duration `yaml:"refresh_interval" json:"refresh_interval"`

	// BuildStatusInterval is the period of the failed build refresh
	BuildStatusInterval time.Duration `yaml:"build_status_interval" json:"build_status_interval"`

	Pockets       []launchpad.Pocket      `yaml:"pockets" json:"pockets"`
	QueueStatuses []launchpad.QueueStatus `yaml:"queue_statuses" json:"queue_statuses"`

	// LogDirectory receives a rotated log file when set
	LogDirectory string `yaml:"log_directory" json:"log_directory"`
	Debug        bool   `yaml:"debug" json:"debug"`

	// sources tracks where each value came from
	sources map[string]string

	// configFilePath is the path to the config file
	configFilePath string
}

// fileConfig is the on-disk form. Pointers tell unset values from zero ones.
type fileConfig struct {
	Series              []string                `yaml:"series"`
	Packagesets         []string                `yaml:"packagesets"`
	Distribution        string                  `yaml:"distribution"`
	LaunchpadURL        string                  `yaml:"launchpad_url"`
	APIVersion          string                  `yaml:"api_version"`
	RequestsPerSecond   *float64                `yaml:"requests_per_second"`
	BindAddress         string                  `yaml:"bind_address"`
	Port                int                     `yaml:"port"`
	RefreshInterval     time.Duration           `yaml:"refresh_interval"`
	BuildStatusInterval time.Duration           `yaml:"build_status_interval"`
	Pockets             []launchpad.Pocket      `yaml:"pockets"`
	QueueStatuses       []launchpad.QueueStatus `yaml:"queue_statuses"`
	LogDirectory        string                  `yaml:"log_directory"`
	Debug               *bool                   `yaml:"debug"`
}

// Flags carries values given on the command line. Nil and empty fields were
// not given.
type Flags struct {
	// ConfigFile replaces the config file path
	ConfigFile string

	Series       []string
	Packagesets  []string
	Distribution *string
	LaunchpadURL *string
	BindAddress  *string
	Port         *int
	LogDirectory *string
	Debug        *bool
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// Command line values applied by Reload
var (
	globalFlags *Flags
	configMu    sync.RWMutex
)

// SetFlags records the command line values applied by Reload.
func SetFlags(flags *Flags) {
	configMu.Lock()
	defer configMu.Unlock()
	globalFlags = flags
}

// Reload loads and validates the configuration from file, environment and
// the flags given to SetFlags.
func Reload() (*ExporterConfig, error) {
	configMu.RLock()
	flags := globalFlags
	configMu.RUnlock()

	cfg, err := LoadWithFlags(flags)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newDefault returns a config with default values
func newDefault() *ExporterConfig {
	return &ExporterConfig{
		Series:              []string{},
		Packagesets:         []string{},
		Distribution:        "ubuntu",
		LaunchpadURL:        launchpad.DefaultBaseURL,
		APIVersion:          launchpad.DefaultAPIVersion,
		RequestsPerSecond:   launchpad.DefaultRequestsPerSecond,
		BindAddress:         "0.0.0.0",
		Port:                8000,
		RefreshInterval:     60 * time.Second,
		BuildStatusInterval: 5 * time.Minute,
		Pockets:             launchpad.PocketValues(),
		QueueStatuses:       []launchpad.QueueStatus{launchpad.QueueStatusNew, launchpad.QueueStatusUnapproved},
		sources:             make(map[string]string),
	}
}

// Load loads configuration from file and environment variables
func Load() (*ExporterConfig, error) {
	return LoadWithFlags(nil)
}

// LoadWithFlags loads configuration from file, environment variables and
// flags, each taking precedence over the one before.
func LoadWithFlags(flags *Flags) (*ExporterConfig, error) {
	config := newDefault()

	for _, name := range attributeNames() {
		config.sources[name] = SourceDefault
	}

	config.configFilePath = FilePath(flags)

	data, err := os.ReadFile(config.configFilePath)
	switch {
	case err == nil:
		var file fileConfig
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, errors.Wrapf(err, "failed to parse config file %s", config.configFilePath)
		}
		config.applyFileConfig(&file)
	case !os.IsNotExist(err) || (flags != nil && flags.ConfigFile != ""):
		return nil, errors.Wrap(err, "failed to read config file")
	}

	if err := config.applyEnvConfig(); err != nil {
		return nil, err
	}
	config.applyFlags(flags)

	return config, nil
}

// FilePath returns the config file used for the given flags.
func FilePath(flags *Flags) string {
	if flags != nil && flags.ConfigFile != "" {
		return flags.ConfigFile
	}
	configPath := os.Getenv(envPrefix + "CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	return filepath.Join(configPath, ConfigFileName)
}

func attributeNames() []string {
	return []string{
		"series", "packagesets", "distribution", "launchpad_url",
		"api_version", "requests_per_second", "bind_address", "port",
		"refresh_interval", "build_status_interval", "pockets",
		"queue_statuses", "log_directory", "debug",
	}
}

func (c *ExporterConfig) applyFileConfig(file *fileConfig) {
	if len(file.Series) > 0 {
		c.Series = file.Series
		c.sources["series"] = SourceFile
	}
	if len(file.Packagesets) > 0 {
		c.Packagesets = file.Packagesets
		c.sources["packagesets"] = SourceFile
	}
	if file.Distribution != "" {
		c.Distribution = file.Distribution
		c.sources["distribution"] = SourceFile
	}
	if file.LaunchpadURL != "" {
		c.LaunchpadURL = file.LaunchpadURL
		c.sources["launchpad_url"] = SourceFile
	}
	if file.APIVersion != "" {
		c.APIVersion = file.APIVersion
		c.sources["api_version"] = SourceFile
	}
	if file.RequestsPerSecond != nil {
		c.RequestsPerSecond = *file.RequestsPerSecond
		c.sources["requests_per_second"] = SourceFile
	}
	if file.BindAddress != "" {
		c.BindAddress = file.BindAddress
		c.sources["bind_address"] = SourceFile
	}
	if file.Port != 0 {
		c.Port = file.Port
		c.sources["port"] = SourceFile
	}
	if file.RefreshInterval != 0 {
		c.RefreshInterval = file.RefreshInterval
		c.sources["refresh_interval"] = SourceFile
	}
	if file.BuildStatusInterval != 0 {
		c.BuildStatusInterval = file.BuildStatusInterval
		c.sources["build_status_interval"] = SourceFile
	}
	if len(file.Pockets) > 0 {
		c.Pockets = file.Pockets
		c.sources["pockets"] = SourceFile
	}
	if len(file.QueueStatuses) > 0 {
		c.QueueStatuses = file.QueueStatuses
		c.sources["queue_statuses"] = SourceFile
	}
	if file.LogDirectory != "" {
		c.LogDirectory = file.LogDirectory
		c.sources["log_directory"] = SourceFile
	}
	if file.Debug != nil {
		c.Debug = *file.Debug
		c.sources["debug"] = SourceFile
	}
}

func (c *ExporterConfig) applyEnvConfig() error {
	if val := os.Getenv(envPrefix + "SERIES"); val != "" {
		c.Series = splitAndTrim(val)
		c.sources["series"] = SourceEnvironment
	}
	if val := os.Getenv(envPrefix + "PACKAGESETS"); val != "" {
		c.Packagesets = splitAndTrim(val)
		c.sources["packagesets"] = SourceEnvironment
	}
	if val := os.Getenv(envPrefix + "DISTRIBUTION"); val != "" {
		c.Distribution = val
		c.sources["distribution"] = SourceEnvironment
	}
	if val := os.Getenv(envPrefix + "LAUNCHPAD_URL"); val != "" {
		c.LaunchpadURL = val
		c.sources["launchpad_url"] = SourceEnvironment
	}
	if val := os.Getenv(envPrefix + "API_VERSION"); val != "" {
		c.APIVersion = val
		c.sources["api_version"] = SourceEnvironment
	}
	if val := os.Getenv(envPrefix + "REQUESTS_PER_SECOND"); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid %sREQUESTS_PER_SECOND", envPrefix)
		}
		c.RequestsPerSecond = f
		c.sources["requests_per_second"] = SourceEnvironment
	}
	if val := os.Getenv("BIND_ADDRESS"); val != "" {
		c.BindAddress = val
		c.sources["bind_address"] = SourceEnvironment
	}
	if val := os.Getenv("PORT"); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return errors.Wrap(err, "invalid PORT")
		}
		c.Port = i
		c.sources["port"] = SourceEnvironment
	}
	if val := os.Getenv(envPrefix + "REFRESH_INTERVAL"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return errors.Wrapf(err, "invalid %sREFRESH_INTERVAL", envPrefix)
		}
		c.RefreshInterval = d
		c.sources["refresh_interval"] = SourceEnvironment
	}
	if val := os.Getenv(envPrefix + "BUILD_STATUS_INTERVAL"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return errors.Wrapf(err, "invalid %sBUILD_STATUS_INTERVAL", envPrefix)
		}
		c.BuildStatusInterval = d
		c.sources["build_status_interval"] = SourceEnvironment
	}
	if val := os.Getenv(envPrefix + "POCKETS"); val != "" {
		pockets, err := launchpad.ParsePockets(splitAndTrim(val))
		if err != nil {
			return errors.Wrapf(err, "invalid %sPOCKETS", envPrefix)
		}
		c.Pockets = pockets
		c.sources["pockets"] = SourceEnvironment
	}
	if val := os.Getenv(envPrefix + "QUEUE_STATUSES"); val != "" {
		statuses, err := launchpad.ParseQueueStatuses(splitAndTrim(val))
		if err != nil {
			return errors.Wrapf(err, "invalid %sQUEUE_STATUSES", envPrefix)
		}
		c.QueueStatuses = statuses
		c.sources["queue_statuses"] = SourceEnvironment
	}
	if val := os.Getenv(envPrefix + "LOG_DIRECTORY"); val != "" {
		c.LogDirectory = val
		c.sources["log_directory"] = SourceEnvironment
	}
	if val := os.Getenv(envPrefix + "DEBUG"); val != "" {
		c.Debug = val == "true" || val == "1"
		c.sources["debug"] = SourceEnvironment
	}
	return nil
}

func (c *ExporterConfig) applyFlags(flags *Flags) {
	if flags == nil {
		return
	}
	if len(flags.Series) > 0 {
		c.Series = flags.Series
		c.sources["series"] = SourceFlag
	}
	if len(flags.Packagesets) > 0 {
		c.Packagesets = flags.Packagesets
		c.sources["packagesets"] = SourceFlag
	}
	if flags.Distribution != nil {
		c.Distribution = *flags.Distribution
		c.sources["distribution"] = SourceFlag
	}
	if flags.LaunchpadURL != nil {
		c.LaunchpadURL = *flags.LaunchpadURL
		c.sources["launchpad_url"] = SourceFlag
	}
	if flags.BindAddress != nil {
		c.BindAddress = *flags.BindAddress
		c.sources["bind_address"] = SourceFlag
	}
	if flags.Port != nil {
		c.Port = *flags.Port
		c.sources["port"] = SourceFlag
	}
	if flags.LogDirectory != nil {
		c.LogDirectory = *flags.LogDirectory
		c.sources["log_directory"] = SourceFlag
	}
	if flags.Debug != nil {
		c.Debug = *flags.Debug
		c.sources["debug"] = SourceFlag
	}
}

// ConfigFilePath returns the path to the config file
func (c *ExporterConfig) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute
func (c *ExporterConfig) Source(name string) string {
	if c.sources == nil {
		return SourceDefault
	}
	if s, ok := c.sources[name]; ok {
		return s
	}
	return SourceDefault
}

// Address returns the host:port the HTTP server listens on
func (c *ExporterConfig) Address() string {
	return net.JoinHostPort(c.BindAddress, strconv.Itoa(c.Port))
}

// Validate validates the configuration
func (c *ExporterConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.BindAddress == "" {
		return fmt.Errorf("bind_address must not be empty")
	}
	if c.Distribution == "" {
		return fmt.Errorf("distribution must not be empty")
	}

	u, err := url.Parse(c.LaunchpadURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid launchpad_url: %q", c.LaunchpadURL)
	}
	if c.APIVersion == "" {
		return fmt.Errorf("api_version must not be empty")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("invalid requests_per_second: %v", c.RequestsPerSecond)
	}

	if c.RefreshInterval < time.Second {
		return fmt.Errorf("refresh_interval must be at least 1s, got %s", c.RefreshInterval)
	}
	if c.BuildStatusInterval < time.Second {
		return fmt.Errorf("build_status_interval must be at least 1s, got %s", c.BuildStatusInterval)
	}

	if len(c.Pockets) == 0 {
		return fmt.Errorf("at least one pocket is required")
	}
	for _, p := range c.Pockets {
		if !p.IsAPocket() {
			return fmt.Errorf("invalid pocket: %d", p)
		}
	}
	if len(c.QueueStatuses) == 0 {
		return fmt.Errorf("at least one queue status is required")
	}
	for _, s := range c.QueueStatuses {
		if !s.IsAQueueStatus() {
			return fmt.Errorf("invalid queue status: %d", s)
		}
	}

	for _, name := range c.Series {
		if name == "" {
			return fmt.Errorf("series names must not be empty")
		}
	}

	return nil
}

// Attributes returns all configuration attributes with their values and sources
func (c *ExporterConfig) Attributes() []Attribute {
	pockets := make([]string, 0, len(c.Pockets))
	for _, p := range c.Pockets {
		pockets = append(pockets, p.String())
	}
	statuses := make([]string, 0, len(c.QueueStatuses))
	for _, s := range c.QueueStatuses {
		statuses = append(statuses, s.String())
	}

	return []Attribute{
		{Name: "series", Value: strings.Join(c.Series, ","), Source: c.Source("series")},
		{Name: "packagesets", Value: strings.Join(c.Packagesets, ","), Source: c.Source("packagesets")},
		{Name: "distribution", Value: c.Distribution, Source: c.Source("distribution")},
		{Name: "launchpad_url", Value: c.LaunchpadURL, Source: c.Source("launchpad_url")},
		{Name: "api_version", Value: c.APIVersion, Source: c.Source("api_version")},
		{Name: "requests_per_second", Value: strconv.FormatFloat(c.RequestsPerSecond, 'g', -1, 64), Source: c.Source("requests_per_second")},
		{Name: "bind_address", Value: c.BindAddress, Source: c.Source("bind_address")},
		{Name: "port", Value: strconv.Itoa(c.Port), Source: c.Source("port")},
		{Name: "refresh_interval", Value: c.RefreshInterval.String(), Source: c.Source("refresh_interval")},
		{Name: "build_status_interval", Value: c.BuildStatusInterval.String(), Source: c.Source("build_status_interval")},
		{Name: "pockets", Value: strings.Join(pockets, ","), Source: c.Source("pockets")},
		{Name: "queue_statuses", Value: strings.Join(statuses, ","), Source: c.Source("queue_statuses")},
		{Name: "log_directory", Value: c.LogDirectory, Source: c.Source("log_directory")},
		{Name: "debug", Value: strconv.FormatBool(c.Debug), Source: c.Source("debug")},
	}
}

// FormatText returns a text representation of the configuration
func (c *ExporterConfig) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-24s %-40s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-24s %-40s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-24s %-40s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *ExporterConfig) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
