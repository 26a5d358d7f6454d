package main

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/privsplit/privsplit"
	"github.com/privsplit/privsplit/compiler/gen"
	"github.com/privsplit/privsplit/compiler/load"
)

// debounce batches bursts of editor events into one regeneration.
const debounce = 300 * time.Millisecond

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch [patterns]",
	Short: "Regenerate whenever a tagged source file changes",
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(args)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	run := func(ctx context.Context) {
		pkgs, err := load.Load(cfg)
		if err != nil {
			logger.Error("load failed", zap.Error(err))
			return
		}
		if len(pkgs) == 0 {
			return
		}
		g := gen.NewGenerator(cfg, pkgs).
			WithWorkers(cfg.Workers).
			WithLogger(logger)
		if err := g.Generate(ctx); err != nil {
			logger.Error("generate failed", zap.Error(err))
			return
		}
		m := g.Metrics()
		logger.Info("regenerated",
			zap.Int("files", m.FilesWritten),
			zap.Int("items", m.ItemsRewritten))
	}

	ctx := cmd.Context()
	run(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()
	dirs, err := watchDirs(cfg)
	if err != nil {
		return err
	}
	for _, d := range dirs {
		if err := watcher.Add(d); err != nil {
			return err
		}
		logger.Debug("watching", zap.String("dir", d))
	}

	// A single timer resets on each event; when it fires, one regeneration
	// covers everything that changed during the window.
	var mu sync.Mutex
	var timer *time.Timer
	kick := make(chan struct{}, 1)
	arm := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer == nil {
			timer = time.AfterFunc(debounce, func() {
				select {
				case kick <- struct{}{}:
				default:
				}
			})
			return
		}
		timer.Reset(debounce)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-kick:
			run(ctx)
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if relevant(ev, cfg) {
				arm()
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(werr))
		}
	}
}

// relevant filters out non-Go files and our own outputs, which would
// otherwise retrigger the watcher forever.
func relevant(ev fsnotify.Event, cfg *privsplit.Config) bool {
	if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
		return false
	}
	name := ev.Name
	if !strings.HasSuffix(name, ".go") {
		return false
	}
	if strings.HasSuffix(name, cfg.Suffix+".go") || strings.Contains(name, cfg.Suffix+"_contracts") {
		return false
	}
	return true
}

// watchDirs resolves the configured patterns to the package directories the
// watcher should cover.
func watchDirs(cfg *privsplit.Config) ([]string, error) {
	pkgs, err := load.Dirs(cfg)
	if err != nil {
		return nil, err
	}
	return pkgs, nil
}
