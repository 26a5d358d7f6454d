package gen

import (
	"context"
	"runtime"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/privsplit/privsplit"
	"github.com/privsplit/privsplit/compiler/load"
)

// Generator drives the rewrite over a set of loaded packages: trait
// contracts first, then every marked declaration, file by file in parallel.
// A rejected item suppresses output for its file only; all diagnostics are
// collected and reported together.
type Generator struct {
	cfg     *privsplit.Config
	pkgs    []*load.Package
	workers int
	logger  *zap.Logger
	writer  *FileWriter
}

// NewGenerator creates a generator for the loaded packages.
func NewGenerator(cfg *privsplit.Config, pkgs []*load.Package) *Generator {
	return &Generator{
		cfg:     cfg,
		pkgs:    pkgs,
		workers: runtime.GOMAXPROCS(0),
		logger:  zap.NewNop(),
		writer:  NewFileWriter(cfg.Suffix, cfg.BuildTag),
	}
}

// WithWorkers sets the number of parallel workers.
func (g *Generator) WithWorkers(n int) *Generator {
	if n > 0 {
		g.workers = n
	}
	return g
}

// WithLogger sets the logger.
func (g *Generator) WithLogger(l *zap.Logger) *Generator {
	if l != nil {
		g.logger = l
	}
	return g
}

// Metrics returns the writer's emission metrics.
func (g *Generator) Metrics() *WriterMetrics {
	return g.writer.Metrics()
}

// Generate rewrites every loaded package. The returned error aggregates
// every per-item diagnostic; a nil return means every marked item was
// rewritten and written out.
func (g *Generator) Generate(ctx context.Context) error {
	var (
		mu   sync.Mutex
		errs error
	)
	collect := func(err error) {
		mu.Lock()
		errs = multierr.Append(errs, err)
		mu.Unlock()
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for _, p := range g.pkgs {
		p := p
		contracts, cerr := g.contracts(p)
		if cerr != nil {
			collect(cerr)
		}
		for _, f := range p.Files {
			f := f
			eg.Go(func() error {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				if err := g.rewriteFile(f, contracts); err != nil {
					collect(err)
				}
				return nil
			})
		}
		eg.Go(func() error {
			guards := ContractGuards(p, contracts)
			path, err := g.writer.WriteContracts(p.Dir, p.Name, guards)
			if err != nil {
				collect(err)
			} else if path != "" {
				g.logger.Debug("wrote contract guards",
					zap.String("package", p.PkgPath),
					zap.String("file", path),
					zap.Int("guards", len(guards)))
			}
			return nil
		})
	}
	if werr := eg.Wait(); werr != nil {
		collect(werr)
	}
	return errs
}

// contracts derives the contract of every trait the package knows about,
// shadow interfaces included. A trait whose markers fail validation yields
// no contract, so its implementations fail with the contract diagnostic.
func (g *Generator) contracts(p *load.Package) (map[string]*TraitContract, error) {
	var errs error
	out := make(map[string]*TraitContract, len(p.Traits))
	for name, t := range p.Traits {
		c, err := ContractFor(t)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		out[name] = c
	}
	return out, errs
}

// rewriteFile processes every marked item of one file and writes the
// counterpart. A single rejected item drops the whole file's output; its
// untouched source stays the only definition, which keeps the failure
// visible in the host build.
func (g *Generator) rewriteFile(f *load.File, contracts map[string]*TraitContract) error {
	var (
		errs   error
		repls  []Replacement
		items  int
		traits int
		failed bool
	)
	for _, t := range f.Traits {
		c, ok := contracts[t.Name]
		if !ok {
			// Contract derivation already diagnosed this trait; suppress
			// the file's output without repeating the error.
			failed = true
			continue
		}
		text, err := RewriteTrait(t, c)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		repls = append(repls, Replacement{Span: t.Span, Text: text})
		traits++
	}
	for _, d := range f.Decls {
		it := NewItem(d)
		if err := it.Run(contracts[d.Trait]); err != nil {
			g.logger.Debug("rejected item",
				zap.String("decl", d.Name),
				zap.String("pos", d.Pos),
				zap.Error(err))
			errs = multierr.Append(errs, err)
			continue
		}
		repls = append(repls, Replacement{Span: d.Span, Text: RenderPair(it.Pair())})
		items++
	}
	if errs != nil || failed {
		return errs
	}
	path, err := g.writer.WriteRewritten(f, repls, items, traits)
	if err != nil {
		return err
	}
	g.logger.Debug("rewrote file",
		zap.String("source", f.Name),
		zap.String("output", path),
		zap.Int("items", items),
		zap.Int("traits", traits))
	return nil
}
