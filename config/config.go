// Package config resolves Skiff's runtime configuration from defaults, an optional
// YAML file, .env files, the process environment and command line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/oar-cd/skiff/logging"
)

const (
	ConfigFileName   = "config.yaml"
	DotEnvFileName   = ".env"
	DatabaseFileName = "skiff.db"
	WorkspaceDirName = "workspace"
	LocksDirName     = "locks"

	// PortModeEngine lets the container engine pick the host port
	PortModeEngine = "engine"
	// PortModeAllocate tries a local port range before launching the container
	PortModeAllocate = "allocate"
)

// DefaultForwardEnv is the allow-list of host variables passed into deployed containers
var DefaultForwardEnv = []string{
	"TAVILY_API_KEY",
	"OPENAI_API_KEY",
	"AZURE_API_KEY",
	"AZURE_ENDPOINT",
	"AZURE_OPENAI_API_VERSION",
	"AZURE_DEPLOYMENT",
}

// DefaultScanSkipDirs are directory names the context scanner never descends into
var DefaultScanSkipDirs = []string{".git", "node_modules", "__pycache__", ".venv", "venv"}

// EnvProvider abstracts environment variable access for testing
type EnvProvider interface {
	Getenv(key string) string
	UserHomeDir() (string, error)
	Getwd() (string, error)
}

// DefaultEnvProvider implements EnvProvider using real OS functions
type DefaultEnvProvider struct{}

func (p *DefaultEnvProvider) Getenv(key string) string {
	return os.Getenv(key)
}

func (p *DefaultEnvProvider) UserHomeDir() (string, error) {
	return os.UserHomeDir()
}

func (p *DefaultEnvProvider) Getwd() (string, error) {
	return os.Getwd()
}

// LookupEnv tells a variable set to the empty string apart from an unset one
func (p *DefaultEnvProvider) LookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

// dotEnvProvider consults .env values only for keys the wrapped provider leaves empty
type dotEnvProvider struct {
	EnvProvider
	values map[string]string
}

func (p *dotEnvProvider) Getenv(key string) string {
	if v := p.EnvProvider.Getenv(key); v != "" {
		return v
	}
	return p.values[key]
}

func (p *dotEnvProvider) LookupEnv(key string) (string, bool) {
	v, ok := lookupEnv(p.EnvProvider, key)
	if v != "" {
		return v, true
	}
	if dv, found := p.values[key]; found {
		return dv, true
	}
	return v, ok
}

// lookupEnv falls back to Getenv for providers that cannot report unset keys
func lookupEnv(env EnvProvider, key string) (string, bool) {
	if l, ok := env.(interface {
		LookupEnv(key string) (string, bool)
	}); ok {
		return l.LookupEnv(key)
	}
	v := env.Getenv(key)
	return v, v != ""
}

// LLMConfig configures the generation service
type LLMConfig struct {
	Endpoint    string
	APIKey      string
	Model       string
	APIVersion  string
	Temperature float64
	Timeout     time.Duration
}

// AzureMode reports whether requests go to an Azure OpenAI deployment
func (l LLMConfig) AzureMode() bool {
	return l.APIVersion != ""
}

// Config holds configuration for all services
type Config struct {
	// Core paths
	DataDir      string
	DatabasePath string
	WorkspaceDir string
	LocksDir     string
	ConfigPath   string

	// Logging
	LogLevel     string
	ColorEnabled bool

	// Docker
	DockerHost     string
	PortMode       string
	PortRangeStart int
	PortRangeSize  int
	AdvertiseHost  string

	// Timeouts
	BuildTimeout time.Duration
	LockTimeout  time.Duration
	GitTimeout   time.Duration

	// Poll period for redeploying Git projects on new commits; 0 disables it
	WatchInterval time.Duration

	// Token for cloning private repositories over HTTPS
	GitToken string

	// HTTP server
	HTTPHost string
	HTTPPort int

	// Names of host variables forwarded into containers
	ForwardEnv []string

	// Directory names skipped while scanning project context; empty visits all
	ScanSkipDirs []string

	LLM LLMConfig

	env EnvProvider
}

// Overrides carries values given on the command line. Zero values mean "not set".
type Overrides struct {
	DataDir    string
	ConfigPath string
	LogLevel   string
	NoColor    bool
}

// fileConfig mirrors the YAML config file. Pointers distinguish absent keys from zero values.
type fileConfig struct {
	DatabasePath *string `yaml:"database_path"`
	LogLevel     *string `yaml:"log_level"`
	ColorEnabled *bool   `yaml:"color_enabled"`
	Docker       struct {
		Host           *string `yaml:"host"`
		PortMode       *string `yaml:"port_mode"`
		PortRangeStart *int    `yaml:"port_range_start"`
		PortRangeSize  *int    `yaml:"port_range_size"`
		AdvertiseHost  *string `yaml:"advertise_host"`
		BuildTimeout   *string `yaml:"build_timeout"`
	} `yaml:"docker"`
	LockTimeout *string `yaml:"lock_timeout"`
	Git         struct {
		Timeout *string `yaml:"timeout"`
		Token   *string `yaml:"token"`
	} `yaml:"git"`
	Watch struct {
		Interval *string `yaml:"interval"`
	} `yaml:"watch"`
	HTTP struct {
		Host *string `yaml:"host"`
		Port *int    `yaml:"port"`
	} `yaml:"http"`
	ForwardEnv   []string `yaml:"forward_env"`
	ScanSkipDirs []string `yaml:"scan_skip_dirs"`
	LLM          struct {
		Endpoint    *string  `yaml:"endpoint"`
		APIKey      *string  `yaml:"api_key"`
		Model       *string  `yaml:"model"`
		APIVersion  *string  `yaml:"api_version"`
		Temperature *float64 `yaml:"temperature"`
		Timeout     *string  `yaml:"timeout"`
	} `yaml:"llm"`
}

// GetDefaultDataDir returns the default Skiff data directory following the XDG Base Directory specification
func GetDefaultDataDir() string {
	return getDefaultDataDirWithEnv(&DefaultEnvProvider{})
}

func getDefaultDataDirWithEnv(env EnvProvider) string {
	if xdgDataHome := env.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
		return filepath.Join(xdgDataHome, "skiff")
	}

	homeDir, _ := env.UserHomeDir()
	return filepath.Join(homeDir, ".local", "share", "skiff")
}

// NewConfig resolves the configuration against the real process environment
// LookupEnv reads a host variable from the environment, then from the .env files
func (c *Config) LookupEnv(key string) (string, bool) {
	return lookupEnv(c.env, key)
}

func NewConfig(overrides Overrides) (*Config, error) {
	return NewConfigWithEnv(&DefaultEnvProvider{}, overrides)
}

// NewConfigWithEnv resolves the configuration with a custom environment provider (for testing)
func NewConfigWithEnv(env EnvProvider, overrides Overrides) (*Config, error) {
	// .env in the working directory may itself point at the data directory
	if wd, err := env.Getwd(); err == nil {
		values, err := readDotEnv(filepath.Join(wd, DotEnvFileName))
		if err != nil {
			return nil, err
		}
		env = &dotEnvProvider{EnvProvider: env, values: values}
	}

	c := &Config{env: env}
	c.setDefaults()

	if v := env.Getenv("SKIFF_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if overrides.DataDir != "" {
		c.DataDir = overrides.DataDir
	}

	values, err := readDotEnv(filepath.Join(c.DataDir, DotEnvFileName))
	if err != nil {
		return nil, err
	}
	if len(values) > 0 {
		c.env = &dotEnvProvider{EnvProvider: c.env, values: values}
	}

	if err := c.loadFromFile(overrides.ConfigPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := c.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	c.applyOverrides(overrides)
	c.derivePaths()

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return c, nil
}

// setDefaults sets sensible default values
func (c *Config) setDefaults() {
	c.DataDir = getDefaultDataDirWithEnv(c.env)
	c.LogLevel = "info"
	c.ColorEnabled = true
	c.PortMode = PortModeEngine
	c.PortRangeStart = 8000
	c.PortRangeSize = 100
	c.AdvertiseHost = "localhost"
	c.BuildTimeout = 30 * time.Minute
	c.LockTimeout = 10 * time.Second
	c.GitTimeout = 5 * time.Minute
	c.HTTPHost = "127.0.0.1"
	c.HTTPPort = 8080
	c.ForwardEnv = append([]string(nil), DefaultForwardEnv...)
	c.ScanSkipDirs = append([]string(nil), DefaultScanSkipDirs...)
	c.LLM = LLMConfig{
		Temperature: 0.2,
		Timeout:     2 * time.Minute,
	}
}

// loadFromFile applies the YAML config file. An explicit path must exist;
// the implicit <DataDir>/config.yaml is optional.
func (c *Config) loadFromFile(explicitPath string) error {
	path := explicitPath
	if path == "" {
		path = filepath.Join(c.DataDir, ConfigFileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if explicitPath == "" && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.ConfigPath = path

	setString(&c.DatabasePath, fc.DatabasePath)
	setString(&c.LogLevel, fc.LogLevel)
	if fc.ColorEnabled != nil {
		c.ColorEnabled = *fc.ColorEnabled
	}
	setString(&c.DockerHost, fc.Docker.Host)
	setString(&c.PortMode, fc.Docker.PortMode)
	setInt(&c.PortRangeStart, fc.Docker.PortRangeStart)
	setInt(&c.PortRangeSize, fc.Docker.PortRangeSize)
	setString(&c.AdvertiseHost, fc.Docker.AdvertiseHost)
	setString(&c.GitToken, fc.Git.Token)
	setString(&c.HTTPHost, fc.HTTP.Host)
	setInt(&c.HTTPPort, fc.HTTP.Port)
	if len(fc.ForwardEnv) > 0 {
		c.ForwardEnv = fc.ForwardEnv
	}
	// An explicit empty list turns skipping off
	if fc.ScanSkipDirs != nil {
		c.ScanSkipDirs = fc.ScanSkipDirs
	}
	setString(&c.LLM.Endpoint, fc.LLM.Endpoint)
	setString(&c.LLM.APIKey, fc.LLM.APIKey)
	setString(&c.LLM.Model, fc.LLM.Model)
	setString(&c.LLM.APIVersion, fc.LLM.APIVersion)
	if fc.LLM.Temperature != nil {
		c.LLM.Temperature = *fc.LLM.Temperature
	}

	durations := []struct {
		key    string
		raw    *string
		target *time.Duration
	}{
		{"docker.build_timeout", fc.Docker.BuildTimeout, &c.BuildTimeout},
		{"lock_timeout", fc.LockTimeout, &c.LockTimeout},
		{"git.timeout", fc.Git.Timeout, &c.GitTimeout},
		{"watch.interval", fc.Watch.Interval, &c.WatchInterval},
		{"llm.timeout", fc.LLM.Timeout, &c.LLM.Timeout},
	}
	for _, d := range durations {
		if d.raw == nil {
			continue
		}
		parsed, err := time.ParseDuration(*d.raw)
		if err != nil {
			return fmt.Errorf("invalid duration for %s in %s: %w", d.key, path, err)
		}
		*d.target = parsed
	}

	return nil
}

// loadFromEnv loads configuration from environment variables.
// AZURE_* names are accepted as fallbacks for the generation service settings.
func (c *Config) loadFromEnv() error {
	if v := c.env.Getenv("SKIFF_DATABASE_PATH"); v != "" {
		c.DatabasePath = v
	}
	if v := c.env.Getenv("SKIFF_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := c.env.Getenv("SKIFF_COLOR_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SKIFF_COLOR_ENABLED: %w", err)
		}
		c.ColorEnabled = enabled
	}
	if v := c.env.Getenv("SKIFF_DOCKER_HOST"); v != "" {
		c.DockerHost = v
	}
	if v := c.env.Getenv("SKIFF_PORT_MODE"); v != "" {
		c.PortMode = v
	}
	if v := c.env.Getenv("SKIFF_ADVERTISE_HOST"); v != "" {
		c.AdvertiseHost = v
	}
	if v := c.env.Getenv("SKIFF_GIT_TOKEN"); v != "" {
		c.GitToken = v
	}
	if v := c.env.Getenv("SKIFF_HTTP_HOST"); v != "" {
		c.HTTPHost = v
	}
	if v := c.env.Getenv("SKIFF_FORWARD_ENV"); v != "" {
		c.ForwardEnv = splitList(v)
	}
	if v := c.env.Getenv("SKIFF_SCAN_SKIP_DIRS"); v != "" {
		c.ScanSkipDirs = splitList(v)
	}

	ints := []struct {
		key    string
		target *int
	}{
		{"SKIFF_PORT_RANGE_START", &c.PortRangeStart},
		{"SKIFF_PORT_RANGE_SIZE", &c.PortRangeSize},
		{"SKIFF_HTTP_PORT", &c.HTTPPort},
	}
	for _, i := range ints {
		v := c.env.Getenv(i.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", i.key, err)
		}
		*i.target = n
	}

	durations := []struct {
		key    string
		target *time.Duration
	}{
		{"SKIFF_BUILD_TIMEOUT", &c.BuildTimeout},
		{"SKIFF_LOCK_TIMEOUT", &c.LockTimeout},
		{"SKIFF_GIT_TIMEOUT", &c.GitTimeout},
		{"SKIFF_WATCH_INTERVAL", &c.WatchInterval},
		{"SKIFF_LLM_TIMEOUT", &c.LLM.Timeout},
	}
	for _, d := range durations {
		v := c.env.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.target = parsed
	}

	if v := c.firstEnv("SKIFF_LLM_ENDPOINT", "AZURE_END_POINT", "AZURE_ENDPOINT"); v != "" {
		c.LLM.Endpoint = v
	}
	if v := c.firstEnv("SKIFF_LLM_API_KEY", "AZURE_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := c.firstEnv("SKIFF_LLM_MODEL", "AZURE_DEPLOYMENT"); v != "" {
		c.LLM.Model = v
	}
	if v := c.firstEnv("SKIFF_LLM_API_VERSION", "AZURE_VERSION", "AZURE_OPENAI_API_VERSION"); v != "" {
		c.LLM.APIVersion = v
	}
	if v := c.env.Getenv("SKIFF_LLM_TEMPERATURE"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("SKIFF_LLM_TEMPERATURE: %w", err)
		}
		c.LLM.Temperature = t
	}

	return nil
}

func (c *Config) applyOverrides(o Overrides) {
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.NoColor {
		c.ColorEnabled = false
	}
}

// derivePaths calculates dependent paths from the base DataDir
func (c *Config) derivePaths() {
	c.WorkspaceDir = filepath.Join(c.DataDir, WorkspaceDirName)
	c.LocksDir = filepath.Join(c.DataDir, LocksDirName)

	if c.DatabasePath == "" {
		c.DatabasePath = filepath.Join(c.DataDir, DatabaseFileName)
	}
}

// validate ensures configuration values are valid
func (c *Config) validate() error {
	if !logging.IsValidLogLevel(c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of %s)",
			c.LogLevel, strings.Join(logging.ValidLogLevels(), ", "))
	}

	if c.PortMode != PortModeEngine && c.PortMode != PortModeAllocate {
		return fmt.Errorf("invalid port mode: %s (must be %s or %s)", c.PortMode, PortModeEngine, PortModeAllocate)
	}

	if c.PortRangeStart < 1 || c.PortRangeStart > 65535 {
		return fmt.Errorf("invalid port range start: %d (must be 1-65535)", c.PortRangeStart)
	}
	if c.PortRangeSize < 1 || c.PortRangeStart+c.PortRangeSize-1 > 65535 {
		return fmt.Errorf("invalid port range size: %d", c.PortRangeSize)
	}

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d (must be 1-65535)", c.HTTPPort)
	}

	if c.AdvertiseHost == "" {
		return fmt.Errorf("advertise host cannot be empty")
	}

	timeouts := map[string]time.Duration{
		"build timeout": c.BuildTimeout,
		"lock timeout":  c.LockTimeout,
		"git timeout":   c.GitTimeout,
		"llm timeout":   c.LLM.Timeout,
	}
	for name, d := range timeouts {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got: %v", name, d)
		}
	}

	if c.WatchInterval < 0 {
		return fmt.Errorf("watch interval cannot be negative, got: %v", c.WatchInterval)
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("invalid llm temperature: %v (must be 0-2)", c.LLM.Temperature)
	}

	return nil
}

// ValidateLLM checks the settings the generation service needs. It is separate from
// validate so commands that never call the service work without credentials.
func (c *Config) ValidateLLM() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("generation service API key is required (set SKIFF_LLM_API_KEY or AZURE_API_KEY)")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("generation service model is required (set SKIFF_LLM_MODEL or AZURE_DEPLOYMENT)")
	}
	if c.LLM.AzureMode() && c.LLM.Endpoint == "" {
		return fmt.Errorf("generation service endpoint is required in Azure mode (set SKIFF_LLM_ENDPOINT or AZURE_END_POINT)")
	}
	return nil
}

// GetLogLevel returns the configured log level
func (c *Config) GetLogLevel() string {
	return c.LogLevel
}

func (c *Config) firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := c.env.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func readDotEnv(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return values, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}
