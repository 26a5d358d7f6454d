package gen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privsplit/privsplit/compiler/gen"
	"github.com/privsplit/privsplit/compiler/load"
)

func runItem(t *testing.T, src, name string) *gen.Item {
	t.Helper()
	f, err := load.ParseFile("vault.go", []byte(src), "privsplit")
	require.NoError(t, err)
	for _, d := range f.Decls {
		if d.Name == name {
			it := gen.NewItem(d)
			require.NoError(t, it.Run(nil))
			require.Equal(t, gen.Emitted, it.State())
			return it
		}
	}
	t.Fatalf("declaration %s not found", name)
	return nil
}

const freeSrc = `//go:build privsplit

package vault

// Unlock opens the vault.
//privsplit:callable
func Unlock(code string) error {
	return check(code)
}
`

func TestEmitFreeFunction(t *testing.T) {
	it := runItem(t, freeSrc, "Unlock")
	pair := it.Pair()
	require.NotNil(t, pair)

	outer, inner := pair.Outer, pair.Inner

	// The outer half keeps the public surface untouched: name, export,
	// signature, marker and doc comment.
	assert.Equal(t, "Unlock", outer.Name)
	assert.True(t, outer.Exported)
	assert.NotNil(t, outer.Marker)
	assert.Equal(t, []string{"// Unlock opens the vault."}, outer.Attrs)
	assert.Equal(t, "(string) error", outer.Signature())
	assert.Equal(t, "{\n\treturn __priv_Unlock(code)\n}", outer.Body)

	// The inner half holds the body verbatim under the mangled name with
	// no marking and no export.
	assert.Equal(t, "__priv_Unlock", inner.Name)
	assert.False(t, inner.Exported)
	assert.Nil(t, inner.Marker)
	assert.Contains(t, inner.Body, "return check(code)")
	assert.Equal(t, outer.Signature(), inner.Signature())
}

func TestEmitMethodForwardsThroughReceiver(t *testing.T) {
	src := `//go:build privsplit

package vault

//privsplit:callable
func (v *Vault) rotate(keys ...[]byte) (int, error) {
	return len(keys), nil
}
`
	pair := runItem(t, src, "rotate").Pair()
	assert.Equal(t, "{\n\treturn v.__priv_rotate(keys...)\n}", pair.Outer.Body)
	assert.Equal(t, load.RefReceiver, pair.Inner.Receiver)
	assert.Equal(t, "Vault", pair.Inner.SelfType)
}

func TestEmitUnnamedReceiverAndParams(t *testing.T) {
	src := `//go:build privsplit

package vault

//privsplit:callable
func (*Vault) purge(_ int, _ string) {
	return
}
`
	pair := runItem(t, src, "purge").Pair()

	// The outer half needs names to forward; it synthesizes them. The
	// inner half keeps the original parameter list, since the body never
	// referenced those names.
	assert.Equal(t, "__priv_self", pair.Outer.ReceiverName)
	assert.Equal(t, "__priv_arg0", pair.Outer.Params[0].Name)
	assert.Equal(t, "__priv_arg1", pair.Outer.Params[1].Name)
	assert.Equal(t, "{\n\t__priv_self.__priv_purge(__priv_arg0, __priv_arg1)\n}", pair.Outer.Body)
	assert.Equal(t, "_", pair.Inner.Params[0].Name)
	assert.Equal(t, "", pair.Inner.ReceiverName)
}

func TestEmitGenericFunctionInstantiatesExplicitly(t *testing.T) {
	src := `//go:build privsplit

package vault

//privsplit:callable
func Map[T any, U comparable](xs []T, f func(T) U) []U {
	out := make([]U, 0, len(xs))
	for _, x := range xs {
		out = append(out, f(x))
	}
	return out
}
`
	pair := runItem(t, src, "Map").Pair()
	assert.Equal(t, "{\n\treturn __priv_Map[T, U](xs, f)\n}", pair.Outer.Body)
	assert.Equal(t, pair.Outer.Generics, pair.Inner.Generics)
}

func TestEmitMethodOnGenericType(t *testing.T) {
	src := `//go:build privsplit

package vault

//privsplit:callable
func (s *Stack[T]) Push(v T) {
	s.items = append(s.items, v)
}
`
	pair := runItem(t, src, "Push").Pair()

	// The receiver already carries T; the inner half gains no generics of
	// its own and the call needs no explicit instantiation.
	assert.Empty(t, pair.Inner.Generics)
	assert.Equal(t, "{\n\ts.__priv_Push(v)\n}", pair.Outer.Body)
	assert.Equal(t, "Stack[T]", pair.Inner.SelfType)
}

func TestEmitRejectionIsAtomic(t *testing.T) {
	d := &load.Declaration{
		Name:              "drain",
		Context:           load.InherentImplMethod,
		SelfType:          "Stack[T]",
		EnclosingGenerics: []load.GenericParam{{Name: "T"}},
		Params:            []load.Param{{Name: "into", Type: "chan T"}},
		Body:              "{}",
		Marker:            &load.Marker{Count: 1},
	}
	it := gen.NewItem(d)
	err := it.Run(nil)
	require.Error(t, err)
	assert.Equal(t, gen.Rejected, it.State())
	assert.Nil(t, it.Pair())
	assert.Equal(t, err, it.Err())
}

func TestRenderPair(t *testing.T) {
	pair := runItem(t, freeSrc, "Unlock").Pair()
	out := gen.RenderPair(pair)

	assert.Contains(t, out, "// Unlock opens the vault.\n//privsplit:callable\nfunc Unlock(code string) error {\n\treturn __priv_Unlock(code)\n}")
	assert.Contains(t, out, "// __priv_Unlock holds the unprivileged body of Unlock.\nfunc __priv_Unlock(code string) error {\n\treturn check(code)\n}")
}

func TestItemStateMachineGuards(t *testing.T) {
	it := runItem(t, freeSrc, "Unlock")
	// A terminal item refuses to run again.
	assert.Error(t, it.Run(nil))
}
