package load_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privsplit/privsplit/compiler/load"
)

const vaultSrc = `//go:build privsplit

package vault

import "fmt"

// Unlock opens the vault.
//privsplit:callable
func Unlock(code string) error {
	if code == "" {
		return fmt.Errorf("empty code")
	}
	return nil
}

// helper is not marked and must be ignored.
func helper() {}

//privsplit:callable
func (v *Vault) rotate(keys ...[]byte) (n int, err error) {
	return len(keys), nil
}

//privsplit:callable
func (s Stack[T]) Pop() (T, bool) {
	var zero T
	return zero, false
}
`

func parseVault(t *testing.T) *load.File {
	t.Helper()
	f, err := load.ParseFile("vault.go", []byte(vaultSrc), "privsplit")
	require.NoError(t, err)
	return f
}

func TestParseFileFreeFunction(t *testing.T) {
	f := parseVault(t)
	require.Len(t, f.Decls, 3)

	d := f.Decls[0]
	assert.Equal(t, "Unlock", d.Name)
	assert.Equal(t, load.FreeFunction, d.Context)
	assert.True(t, d.Exported)
	assert.Equal(t, load.NoReceiver, d.Receiver)
	require.NotNil(t, d.Marker)
	assert.Equal(t, 1, d.Marker.Count)
	assert.Empty(t, d.Marker.Args)
	assert.Equal(t, []string{"// Unlock opens the vault."}, d.Attrs)
	require.Len(t, d.Params, 1)
	assert.Equal(t, "code", d.Params[0].Name)
	assert.Equal(t, "string", d.Params[0].Type)
	assert.Equal(t, "error", d.Return)

	// The body is verbatim source, braces included.
	assert.Contains(t, d.Body, `return fmt.Errorf("empty code")`)
	assert.Equal(t, byte('{'), d.Body[0])
	assert.Equal(t, byte('}'), d.Body[len(d.Body)-1])

	// The span starts at the doc comment so the rewrite replaces the
	// marker together with the function.
	snippet := vaultSrc[d.Span.Start:d.Span.End]
	assert.Contains(t, snippet, "// Unlock opens the vault.")
	assert.Contains(t, snippet, "func Unlock")
}

func TestParseFileMethods(t *testing.T) {
	f := parseVault(t)

	rotate := f.Decls[1]
	assert.Equal(t, "rotate", rotate.Name)
	assert.Equal(t, load.InherentImplMethod, rotate.Context)
	assert.False(t, rotate.Exported)
	assert.Equal(t, load.RefReceiver, rotate.Receiver)
	assert.Equal(t, "v", rotate.ReceiverName)
	assert.Equal(t, "Vault", rotate.SelfType)
	require.Len(t, rotate.Params, 1)
	assert.True(t, rotate.Params[0].Variadic)
	assert.Equal(t, "[][]byte", rotate.Params[0].Type)

	pop := f.Decls[2]
	assert.Equal(t, "Pop", pop.Name)
	assert.Equal(t, load.ValueReceiver, pop.Receiver)
	assert.Equal(t, "Stack[T]", pop.SelfType)
	require.Len(t, pop.EnclosingGenerics, 1)
	assert.Equal(t, "T", pop.EnclosingGenerics[0].Name)
}

func TestParseFileBuildTagSpan(t *testing.T) {
	f := parseVault(t)
	assert.Equal(t, "//go:build privsplit", vaultSrc[f.TagSpan.Start:f.TagSpan.End])
}

func TestParseFileMarkerArgsAndRepeats(t *testing.T) {
	src := []byte(`//go:build privsplit

package vault

//privsplit:callable level=3
func a() {}

//privsplit:callable
//privsplit:callable
func b() {}
`)
	f, err := load.ParseFile("vault.go", src, "privsplit")
	require.NoError(t, err)
	require.Len(t, f.Decls, 2)

	require.NotNil(t, f.Decls[0].Marker)
	assert.Equal(t, []string{"level=3"}, f.Decls[0].Marker.Args)

	require.NotNil(t, f.Decls[1].Marker)
	assert.Equal(t, 2, f.Decls[1].Marker.Count)
}

func TestParseFileMarkerOnUnsupportedShapes(t *testing.T) {
	src := []byte(`//go:build privsplit

package vault

//privsplit:callable
const timeout = 30

//privsplit:callable
type Pair struct{ a, b int }

//privsplit:callable
var counter int
`)
	f, err := load.ParseFile("vault.go", src, "privsplit")
	require.NoError(t, err)
	require.Len(t, f.Decls, 3)
	assert.Equal(t, "const declaration", f.Decls[0].Shape)
	assert.Equal(t, "type declaration", f.Decls[1].Shape)
	assert.Equal(t, "Pair", f.Decls[1].Name)
	assert.Equal(t, "var declaration", f.Decls[2].Shape)
	require.NotNil(t, f.Decls[2].Marker)
}

func TestParseFileGroupedTypeBlock(t *testing.T) {
	src := `//go:build privsplit

package vault

type (
	//privsplit:callable
	Rotator interface {
		//privsplit:callable
		Rotate(n int) error
	}

	Keeper struct{ N int }
)
`
	f, err := load.ParseFile("vault.go", []byte(src), "privsplit")
	require.NoError(t, err)
	require.Len(t, f.Traits, 1)

	// The span covers the one spec, never the siblings or the group
	// syntax, so the rest of the block is carried verbatim.
	tr := f.Traits[0]
	assert.True(t, tr.Grouped)
	snippet := src[tr.Span.Start:tr.Span.End]
	assert.Contains(t, snippet, "Rotator interface")
	assert.NotContains(t, snippet, "Keeper")
	assert.NotContains(t, snippet, "type (")
}

func TestParseFileGroupedUnsupportedTypeSpan(t *testing.T) {
	src := `//go:build privsplit

package vault

type (
	//privsplit:callable
	Pair struct{ a, b int }

	Other struct{}
)
`
	f, err := load.ParseFile("vault.go", []byte(src), "privsplit")
	require.NoError(t, err)
	require.Len(t, f.Decls, 1)
	assert.Equal(t, "type declaration", f.Decls[0].Shape)

	snippet := src[f.Decls[0].Span.Start:f.Decls[0].Span.End]
	assert.Contains(t, snippet, "Pair struct")
	assert.NotContains(t, snippet, "Other")
}

func TestParseFileTrait(t *testing.T) {
	src := []byte(`//go:build privsplit

package vault

import "io"

// Store persists blobs.
//privsplit:callable
type Store interface {
	io.Closer
	// Get fetches a blob.
	Get(key string) ([]byte, error)
	//privsplit:callable
	Put(key string, val []byte) error
}
`)
	f, err := load.ParseFile("vault.go", src, "privsplit")
	require.NoError(t, err)
	require.Len(t, f.Traits, 1)

	tr := f.Traits[0]
	assert.Equal(t, "Store", tr.Name)
	assert.True(t, tr.Marked())
	assert.Equal(t, []string{"// Store persists blobs."}, tr.Attrs)
	assert.Equal(t, []string{"io.Closer"}, tr.Embeds)
	require.Len(t, tr.Methods, 2)

	get := tr.Methods[0]
	assert.Equal(t, "Get", get.Name)
	assert.False(t, get.Marked())
	assert.Contains(t, get.Raw, "// Get fetches a blob.")
	assert.Contains(t, get.Raw, "Get(key string) ([]byte, error)")

	put := tr.Methods[1]
	assert.True(t, put.Marked())
	assert.Equal(t, load.TraitDefinitionMethod, put.Decl.Context)
	assert.Equal(t, "Store", put.Decl.Trait)
	assert.Equal(t, "error", put.Decl.Return)

	marked := tr.MarkedMethods()
	require.Len(t, marked, 1)
	assert.Equal(t, "Put", marked[0].Name)
}

func TestParseFileGuardsAndResolve(t *testing.T) {
	src := []byte(`//go:build privsplit

package vault

//privsplit:callable
type Rotator interface {
	//privsplit:callable
	Rotate(n int) error
}

type disk struct{}

var _ Rotator = (*disk)(nil)

//privsplit:callable
func (d *disk) Rotate(n int) error { return nil }

//privsplit:callable
func (d *disk) Compact() error { return nil }
`)
	f, err := load.ParseFile("vault.go", src, "privsplit")
	require.NoError(t, err)
	assert.Equal(t, []string{"Rotator"}, f.Implements["disk"])

	p := &load.Package{
		Name:       "vault",
		Files:      []*load.File{f},
		Traits:     map[string]*load.Trait{f.Traits[0].Name: f.Traits[0]},
		Implements: f.Implements,
	}
	p.Resolve()

	require.Len(t, f.Decls, 2)
	rotate := f.Decls[0]
	assert.Equal(t, load.TraitImplMethod, rotate.Context)
	assert.Equal(t, "Rotator", rotate.Trait)

	// Compact is not declared by the trait; it stays inherent.
	compact := f.Decls[1]
	assert.Equal(t, load.InherentImplMethod, compact.Context)
	assert.Empty(t, compact.Trait)
}

func TestGuardForms(t *testing.T) {
	src := []byte(`//go:build privsplit

package vault

//privsplit:callable
func marker() {}

var _ Rotator = disk{}
var _ Closer = &file{}
var _ Rotator = (*cached[int])(nil)
var x Rotator = disk{}
`)
	f, err := load.ParseFile("vault.go", src, "privsplit")
	require.NoError(t, err)
	assert.Equal(t, []string{"Rotator"}, f.Implements["disk"])
	assert.Equal(t, []string{"Closer"}, f.Implements["file"])
	assert.Equal(t, []string{"Rotator"}, f.Implements["cached"])
	// Named variables are ordinary declarations, not guards.
	assert.NotContains(t, f.Implements, "x")
}
