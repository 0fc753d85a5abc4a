package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rohmanhakim/opendata-harvester/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile         string
	cacheDir        string
	outputDir       string
	inputDir        string
	dryRun          bool
	verbose         bool
	timeout         time.Duration
	politenessDelay time.Duration
	cacheMaxAge     time.Duration
	userAgent       string
	year            int
	sources         []string
)

// parseSources converts repeated "recipe.key=value" flags to a map
func parseSources(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: --source %q is not recipe.key=value", config.ErrInvalidConfig, pair)
		}
		out[key] = value
	}
	return out, nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "harvester",
	Short: "Fetches municipal open data sources and republishes them as clean datasets.",
	Long: `harvester runs small, independent recipes that fetch a public data source
(CSV exports, JSON APIs, HTML pages), reshape it and write the result as
CSV, JSON, GeoJSON or iCalendar files.

Downloads are cached on disk, so repeated runs are fast and polite. Every
recipe renders its complete output before writing, so a failed run never
leaves half-written datasets behind.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path (e.g., /home/myuser/harvester.json5)")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "directory for cached downloads")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output-dir", "", "root output directory for datasets")
	rootCmd.PersistentFlags().StringVar(&inputDir, "input-dir", "", "directory with locally provided input files")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "run recipes without writing output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "log debug events")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "timeout for HTTP requests")
	rootCmd.PersistentFlags().DurationVar(&politenessDelay, "politeness-delay", 0, "pause after every live HTTP request")
	rootCmd.PersistentFlags().DurationVar(&cacheMaxAge, "cache-max-age", 0, "maximum age of a cached download before it is fetched again")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "user agent string for HTTP requests")
	rootCmd.PersistentFlags().IntVar(&year, "year", 0, "year for calendar recipes (0 for the current year)")
	rootCmd.PersistentFlags().StringArrayVar(&sources, "source", []string{}, "override a recipe source as recipe.key=value (can be repeated)")

	rootCmd.AddCommand(listCmd, runCmd, versionCmd)
}

// InitConfigWithError reads the config file when one is given, otherwise
// builds the config from defaults and flag values, returning any errors.
func InitConfigWithError() (config.Config, error) {
	if cfgFile != "" {
		cfg, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return cfg, fmt.Errorf("error initializing config from file: %w", err)
		}
		return cfg, nil
	}

	configBuilder := config.WithDefault()

	// Override with CLI flag values where provided
	if cacheDir != "" {
		configBuilder = configBuilder.WithCacheDir(cacheDir)
	}

	if outputDir != "" {
		configBuilder = configBuilder.WithOutputDir(outputDir)
	}

	if inputDir != "" {
		configBuilder = configBuilder.WithInputDir(inputDir)
	}

	if dryRun {
		configBuilder = configBuilder.WithDryRun(dryRun)
	}

	if verbose {
		configBuilder = configBuilder.WithVerbose(verbose)
	}

	if timeout > 0 {
		configBuilder = configBuilder.WithTimeout(timeout)
	}

	if politenessDelay > 0 {
		configBuilder = configBuilder.WithPolitenessDelay(politenessDelay)
	}

	// 0 is meaningful here: every fetch goes live.
	if rootCmd.PersistentFlags().Changed("cache-max-age") {
		configBuilder = configBuilder.WithCacheMaxAge(cacheMaxAge)
	}

	if userAgent != "" {
		configBuilder = configBuilder.WithUserAgent(userAgent)
	}

	if year != 0 {
		configBuilder = configBuilder.WithYear(year)
	}

	if len(sources) > 0 {
		parsed, err := parseSources(sources)
		if err != nil {
			return config.Config{}, err
		}
		configBuilder = configBuilder.WithSources(parsed)
	}

	cfg, err := configBuilder.Build()
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func ResetFlags() {
	cfgFile = ""
	cacheDir = ""
	outputDir = ""
	inputDir = ""
	dryRun = false
	verbose = false
	timeout = 0
	politenessDelay = 0
	cacheMaxAge = 0
	rootCmd.PersistentFlags().Lookup("cache-max-age").Changed = false
	userAgent = ""
	year = 0
	sources = []string{}
}

// Test helper functions to set flag values from tests
func SetConfigFileForTest(path string) {
	cfgFile = path
}

func SetCacheDirForTest(dir string) {
	cacheDir = dir
}

func SetOutputDirForTest(dir string) {
	outputDir = dir
}

func SetInputDirForTest(dir string) {
	inputDir = dir
}

func SetDryRunForTest(dry bool) {
	dryRun = dry
}

func SetVerboseForTest(v bool) {
	verbose = v
}

func SetTimeoutForTest(t time.Duration) {
	timeout = t
}

func SetPolitenessDelayForTest(delay time.Duration) {
	politenessDelay = delay
}

func SetCacheMaxAgeForTest(maxAge time.Duration) {
	cacheMaxAge = maxAge
	rootCmd.PersistentFlags().Lookup("cache-max-age").Changed = true
}

func SetUserAgentForTest(agent string) {
	userAgent = agent
}

func SetYearForTest(y int) {
	year = y
}

func SetSourcesForTest(pairs []string) {
	sources = pairs
}
