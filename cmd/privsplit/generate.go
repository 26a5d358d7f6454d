package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/privsplit/privsplit/compiler/gen"
	"github.com/privsplit/privsplit/compiler/load"
)

func init() {
	rootCmd.AddCommand(generateCmd)
}

var generateCmd = &cobra.Command{
	Use:   "generate [patterns]",
	Short: "Rewrite the marked declarations under the given package patterns",
	Long: `Loads every package matching the patterns (default ./...), parses the
build-tagged files and writes a rewritten counterpart next to each of them.
Patterns follow the usual go tool syntax.`,
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(args)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	pkgs, err := load.Load(cfg)
	if err != nil {
		return err
	}
	if len(pkgs) == 0 {
		logger.Info("no marked files found", zap.Strings("patterns", cfg.Patterns))
		return nil
	}

	g := gen.NewGenerator(cfg, pkgs).
		WithWorkers(cfg.Workers).
		WithLogger(logger)
	if err := g.Generate(cmd.Context()); err != nil {
		return err
	}
	m := g.Metrics()
	logger.Info("generate done",
		zap.Int("files", m.FilesWritten),
		zap.Int("items", m.ItemsRewritten),
		zap.Int("traits", m.TraitsRewritten),
		zap.Int64("bytes", m.TotalBytes))
	return nil
}
