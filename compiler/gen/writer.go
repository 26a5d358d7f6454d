package gen

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/tools/imports"

	"github.com/privsplit/privsplit/compiler/load"
)

const generatedHeader = "// Code generated by privsplit. DO NOT EDIT."

// Replacement substitutes one byte range of the source file with rewritten
// text. Ranges must not overlap.
type Replacement struct {
	Span load.Span
	Text string
}

// FileWriter emits rewritten counterparts next to their sources. Each output
// is the original file with every marked declaration replaced by its split
// form and the build constraint negated, so exactly one of the two files is
// ever in the host build.
type FileWriter struct {
	suffix string
	tag    string

	mu      sync.Mutex
	metrics *WriterMetrics
}

// WriterMetrics tracks emission performance and volume.
type WriterMetrics struct {
	FilesWritten    int
	ItemsRewritten  int
	TraitsRewritten int
	TotalBytes      int64
	FormatTime      int64 // nanoseconds
	WriteTime       int64 // nanoseconds
}

// NewFileWriter creates a writer for the given output suffix and build tag.
func NewFileWriter(suffix, tag string) *FileWriter {
	return &FileWriter{suffix: suffix, tag: tag, metrics: &WriterMetrics{}}
}

// Metrics returns the emission metrics.
func (w *FileWriter) Metrics() *WriterMetrics {
	return w.metrics
}

// WriteRewritten splices the replacements into f's source, negates the build
// constraint, formats and writes the counterpart file. It returns the path
// written.
func (w *FileWriter) WriteRewritten(f *load.File, repls []Replacement, items, traits int) (string, error) {
	all := make([]Replacement, 0, len(repls)+1)
	all = append(all, repls...)
	if f.TagSpan.End > f.TagSpan.Start {
		all = append(all, Replacement{Span: f.TagSpan, Text: "//go:build !" + w.tag})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Span.Start < all[j].Span.Start })

	var buf bytes.Buffer
	buf.WriteString(generatedHeader)
	buf.WriteString("\n\n")
	off := 0
	for _, r := range all {
		if r.Span.Start < off {
			return "", fmt.Errorf("gen: overlapping replacements in %s", f.Name)
		}
		buf.Write(f.Src[off:r.Span.Start])
		buf.WriteString(r.Text)
		off = r.Span.End
	}
	buf.Write(f.Src[off:])

	path := OutputFileName(f.Name, w.suffix)
	out, err := w.format(path, buf.Bytes())
	if err != nil {
		return "", err
	}
	if err := w.write(path, out); err != nil {
		return "", err
	}
	w.mu.Lock()
	w.metrics.FilesWritten++
	w.metrics.ItemsRewritten += items
	w.metrics.TraitsRewritten += traits
	w.metrics.TotalBytes += int64(len(out))
	w.mu.Unlock()
	return path, nil
}

// WriteContracts renders and writes the per-package guard file into dir.
// Nothing is written when there are no guards.
func (w *FileWriter) WriteContracts(dir, pkg string, guards []ContractGuard) (string, error) {
	if len(guards) == 0 {
		return "", nil
	}
	f := ContractsFile(pkg, w.tag, guards)
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return "", fmt.Errorf("gen: render contracts for %s: %w", pkg, err)
	}
	path := filepath.Join(dir, ContractsFileName(pkg, w.suffix))
	if err := w.write(path, buf.Bytes()); err != nil {
		return "", err
	}
	w.mu.Lock()
	w.metrics.FilesWritten++
	w.metrics.TotalBytes += int64(buf.Len())
	w.mu.Unlock()
	return path, nil
}

func (w *FileWriter) format(path string, src []byte) ([]byte, error) {
	start := time.Now()
	out, err := imports.Process(path, src, nil)
	if err != nil {
		// Keep the unformatted output around; a formatting failure here
		// means the splice produced invalid Go and the raw text is the
		// only way to see why.
		debug := path + ".error"
		_ = os.WriteFile(debug, src, 0o644)
		return nil, fmt.Errorf("gen: format %s: %w (unformatted written to %s)", path, err, debug)
	}
	w.mu.Lock()
	w.metrics.FormatTime += int64(time.Since(start))
	w.mu.Unlock()
	return out, nil
}

func (w *FileWriter) write(path string, data []byte) error {
	start := time.Now()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("gen: create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("gen: write %s: %w", path, err)
	}
	w.mu.Lock()
	w.metrics.WriteTime += int64(time.Since(start))
	w.mu.Unlock()
	return nil
}
