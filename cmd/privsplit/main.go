// Command privsplit rewrites privilege-marked declarations into their
// split form: a forwarding stub that keeps the public surface and a
// mangled companion that holds the body.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/privsplit/privsplit"
)

var (
	flagConfig  string
	flagTag     string
	flagSuffix  string
	flagWorkers int
	flagCache   bool
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:           "privsplit",
	Short:         "Split privilege-marked declarations into stub and body",
	Long:          "Rewrites every marked declaration in the tagged source files into a forwarding stub that keeps the original name and a mangled, unmarked companion that holds the body.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Path to a privsplit.yaml config file")
	rootCmd.PersistentFlags().StringVar(&flagTag, "tag", "", "Build tag of the source files (default "+privsplit.DefaultBuildTag+")")
	rootCmd.PersistentFlags().StringVar(&flagSuffix, "suffix", "", "Output file suffix (default "+privsplit.DefaultSuffix+")")
	rootCmd.PersistentFlags().IntVar(&flagWorkers, "workers", 0, "Parallel workers (default GOMAXPROCS)")
	rootCmd.PersistentFlags().BoolVar(&flagCache, "cache", false, "Cache parsed descriptors between runs")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "privsplit: %v\n", err)
		os.Exit(1)
	}
}

// resolveConfig merges the config file, defaults and flag overrides.
func resolveConfig(args []string) (*privsplit.Config, error) {
	cfg := privsplit.DefaultConfig()
	if flagConfig != "" {
		loaded, err := privsplit.LoadConfig(flagConfig)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if len(args) > 0 {
		cfg.Patterns = args
	}
	if flagTag != "" {
		cfg.BuildTag = flagTag
	}
	if flagSuffix != "" {
		cfg.Suffix = flagSuffix
	}
	if flagWorkers > 0 {
		cfg.Workers = flagWorkers
	}
	if flagCache {
		cfg.Cache = true
	}
	return cfg, cfg.Validate()
}

func newLogger() (*zap.Logger, error) {
	if flagVerbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	return cfg.Build()
}
