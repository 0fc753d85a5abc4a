package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/rohmanhakim/opendata-harvester/internal/build"
	"github.com/titanous/json5"
)

type Config struct {
	//===============
	// Cache
	//===============
	// Directory holding one file per cached URL
	cacheDir string
	// Entries younger than this are served without network access. Zero forces live fetches.
	cacheMaxAge time.Duration

	//===============
	// Fetch
	//===============
	// Pause after every live fetch
	politenessDelay time.Duration
	// Maximum time of a single fetch request
	timeout time.Duration
	// User agent that will be used in the request header
	userAgent string

	//===============
	// Files
	//===============
	// Root directory for produced artifacts
	outputDir string
	// Directory holding local input datafiles
	inputDir string
	// Whether the program simulates what it would do without writing artifacts
	dryRun  bool
	verbose bool

	//===============
	// Recipes
	//===============
	// API tokens and similar secrets, usually from the .local overlay
	credentials map[string]string
	// Per-recipe source URL or filename overrides, keyed "<recipe>.<source>"
	sources map[string]string
	// Year selected by date-scoped recipes. Zero means the current year.
	year int
}

type configDTO struct {
	CacheDir        string            `json:"cacheDir,omitempty"`
	CacheMaxAge     string            `json:"cacheMaxAge,omitempty"`
	PolitenessDelay string            `json:"politenessDelay,omitempty"`
	Timeout         string            `json:"timeout,omitempty"`
	UserAgent       string            `json:"userAgent,omitempty"`
	OutputDir       string            `json:"outputDir,omitempty"`
	InputDir        string            `json:"inputDir,omitempty"`
	DryRun          bool              `json:"dryRun,omitempty"`
	Verbose         bool              `json:"verbose,omitempty"`
	Credentials     map[string]string `json:"credentials,omitempty"`
	Sources         map[string]string `json:"sources,omitempty"`
	Year            int               `json:"year,omitempty"`
}

func parseDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %s", ErrConfigParsingFail, field, err.Error())
	}
	return d, nil
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	builder := WithDefault()

	// Only override if a value is provided
	if dto.CacheDir != "" {
		builder.WithCacheDir(dto.CacheDir)
	}
	if dto.CacheMaxAge != "" {
		d, err := parseDuration("cacheMaxAge", dto.CacheMaxAge)
		if err != nil {
			return Config{}, err
		}
		builder.WithCacheMaxAge(d)
	}
	if dto.PolitenessDelay != "" {
		d, err := parseDuration("politenessDelay", dto.PolitenessDelay)
		if err != nil {
			return Config{}, err
		}
		builder.WithPolitenessDelay(d)
	}
	if dto.Timeout != "" {
		d, err := parseDuration("timeout", dto.Timeout)
		if err != nil {
			return Config{}, err
		}
		builder.WithTimeout(d)
	}
	if dto.UserAgent != "" {
		builder.WithUserAgent(dto.UserAgent)
	}
	if dto.OutputDir != "" {
		builder.WithOutputDir(dto.OutputDir)
	}
	if dto.InputDir != "" {
		builder.WithInputDir(dto.InputDir)
	}
	if dto.Year != 0 {
		builder.WithYear(dto.Year)
	}
	builder.WithDryRun(dto.DryRun)
	builder.WithVerbose(dto.Verbose)
	builder.WithCredentials(dto.Credentials)
	builder.WithSources(dto.Sources)

	return builder.Build()
}

func splitExt(name string) (string, string) {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext), strings.TrimPrefix(ext, ".")
}

// LocalOverlayPath returns the credentials overlay merged over path:
// config.json5 pairs with config.local.json5.
func LocalOverlayPath(path string) string {
	prefix, ext := splitExt(path)
	if ext == "" {
		return prefix + ".local"
	}
	return fmt.Sprintf("%s.local.%s", prefix, ext)
}

func readDTO(path string) (configDTO, error) {
	dto := configDTO{}
	content, err := os.ReadFile(path)
	if err != nil {
		return dto, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		return dto, nil
	}
	if err := json5.Unmarshal(content, &dto); err != nil {
		return dto, fmt.Errorf("%w: %s: %s", ErrConfigParsingFail, path, err.Error())
	}
	return dto, nil
}

// WithConfigFile loads a JSON5 config file and, when present, merges the
// sibling .local file over it.
func WithConfigFile(path string) (Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	cfgDTO, err := readDTO(path)
	if err != nil {
		return Config{}, err
	}

	localPath := LocalOverlayPath(path)
	if _, statErr := os.Stat(localPath); statErr == nil {
		override, err := readDTO(localPath)
		if err != nil {
			return Config{}, err
		}
		if err := mergo.Merge(&cfgDTO, override, mergo.WithOverride); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %s", ErrConfigParsingFail, localPath, err.Error())
		}
	}

	return newConfigFromDTO(cfgDTO)
}

// WithDefault creates a new Config with default values for all fields.
func WithDefault() *Config {
	defaultConfig := Config{
		cacheDir:        "cache",
		cacheMaxAge:     30 * 24 * time.Hour,
		politenessDelay: time.Second,
		timeout:         30 * time.Second,
		userAgent:       build.UserAgent(),
		outputDir:       "output",
		inputDir:        "data",
		dryRun:          false,
		verbose:         false,
		credentials:     map[string]string{},
		sources:         map[string]string{},
	}
	return &defaultConfig
}

func (c *Config) WithCacheDir(dir string) *Config {
	c.cacheDir = dir
	return c
}

func (c *Config) WithCacheMaxAge(maxAge time.Duration) *Config {
	c.cacheMaxAge = maxAge
	return c
}

func (c *Config) WithPolitenessDelay(delay time.Duration) *Config {
	c.politenessDelay = delay
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithOutputDir(outputDir string) *Config {
	c.outputDir = outputDir
	return c
}

func (c *Config) WithInputDir(inputDir string) *Config {
	c.inputDir = inputDir
	return c
}

func (c *Config) WithDryRun(dryRun bool) *Config {
	c.dryRun = dryRun
	return c
}

func (c *Config) WithVerbose(verbose bool) *Config {
	c.verbose = verbose
	return c
}

func (c *Config) WithCredentials(credentials map[string]string) *Config {
	c.credentials = copyMap(credentials)
	return c
}

func (c *Config) WithSources(sources map[string]string) *Config {
	c.sources = copyMap(sources)
	return c
}

func (c *Config) WithYear(year int) *Config {
	c.year = year
	return c
}

func (c *Config) Build() (Config, error) {
	if c.cacheDir == "" {
		return Config{}, fmt.Errorf("%w: cacheDir cannot be empty", ErrInvalidConfig)
	}
	if c.outputDir == "" {
		return Config{}, fmt.Errorf("%w: outputDir cannot be empty", ErrInvalidConfig)
	}
	if c.cacheMaxAge < 0 {
		return Config{}, fmt.Errorf("%w: cacheMaxAge cannot be negative", ErrInvalidConfig)
	}
	if c.politenessDelay < 0 {
		return Config{}, fmt.Errorf("%w: politenessDelay cannot be negative", ErrInvalidConfig)
	}
	if c.timeout <= 0 {
		return Config{}, fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if c.year < 0 {
		return Config{}, fmt.Errorf("%w: year cannot be negative", ErrInvalidConfig)
	}
	if c.userAgent == "" {
		c.userAgent = build.UserAgent()
	}
	return *c, nil
}

func copyMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (c Config) CacheDir() string {
	return c.cacheDir
}

func (c Config) CacheMaxAge() time.Duration {
	return c.cacheMaxAge
}

func (c Config) PolitenessDelay() time.Duration {
	return c.politenessDelay
}

func (c Config) Timeout() time.Duration {
	return c.timeout
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) OutputDir() string {
	return c.outputDir
}

func (c Config) InputDir() string {
	return c.inputDir
}

func (c Config) DryRun() bool {
	return c.dryRun
}

func (c Config) Verbose() bool {
	return c.verbose
}

func (c Config) Year() int {
	return c.year
}

func (c Config) Credentials() map[string]string {
	return copyMap(c.credentials)
}

func (c Config) Credential(name string) (string, bool) {
	v, ok := c.credentials[name]
	return v, ok
}

func (c Config) Sources() map[string]string {
	return copyMap(c.sources)
}

// Source returns the override stored under key, or fallback.
func (c Config) Source(key, fallback string) string {
	if v, ok := c.sources[key]; ok && v != "" {
		return v
	}
	return fallback
}
