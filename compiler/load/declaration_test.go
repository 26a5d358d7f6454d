package load_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privsplit/privsplit/compiler/load"
)

func TestDeclarationValidate(t *testing.T) {
	valid := func() *load.Declaration {
		return &load.Declaration{
			Name:    "Unlock",
			Context: load.FreeFunction,
			Params:  []load.Param{{Name: "code", Type: "string"}},
			Return:  "error",
			Body:    "{ return nil }",
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*load.Declaration)
	}{
		{"no name", func(d *load.Declaration) { d.Name = "" }},
		{"unknown context", func(d *load.Declaration) { d.Context = load.ContextKind(42) }},
		{"unknown receiver", func(d *load.Declaration) { d.Receiver = load.ReceiverKind(42) }},
		{"free function with receiver", func(d *load.Declaration) { d.Receiver = load.ValueReceiver }},
		{"free function with enclosing generics", func(d *load.Declaration) {
			d.EnclosingGenerics = []load.GenericParam{{Name: "T"}}
		}},
		{"method without self type", func(d *load.Declaration) {
			d.Context = load.InherentImplMethod
			d.Receiver = load.RefReceiver
		}},
		{"trait impl method without trait", func(d *load.Declaration) {
			d.Context = load.TraitImplMethod
			d.Receiver = load.RefReceiver
			d.SelfType = "Vault"
		}},
		{"unnamed generic", func(d *load.Declaration) { d.Generics = []load.GenericParam{{}} }},
		{"untyped parameter", func(d *load.Declaration) { d.Params = []load.Param{{Name: "x"}} }},
		{"variadic not last", func(d *load.Declaration) {
			d.Params = []load.Param{{Name: "xs", Type: "int", Variadic: true}, {Name: "y", Type: "int"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid()
			tt.mutate(d)
			assert.Error(t, d.Validate())
		})
	}
}

func TestDeclarationSignature(t *testing.T) {
	d := &load.Declaration{
		Name:    "Put",
		Context: load.TraitDefinitionMethod,
		Params: []load.Param{
			{Name: "key", Type: "string"},
			{Name: "vals", Type: "map[string]  []byte"},
		},
		Return: "error",
	}
	assert.Equal(t, "(string, map[string] []byte) error", d.Signature())

	// Parameter names never participate; both contract sides must agree
	// regardless of what each file called its arguments.
	d2 := *d
	d2.Params = []load.Param{
		{Name: "k", Type: "string"},
		{Type: "map[string] []byte"},
	}
	assert.Equal(t, d.Signature(), d2.Signature())
}

func TestDeclarationSignatureVariadic(t *testing.T) {
	d := &load.Declaration{
		Name:    "Log",
		Context: load.TraitDefinitionMethod,
		Params:  []load.Param{{Name: "args", Type: "any", Variadic: true}},
	}
	assert.Equal(t, "(...any)", d.Signature())
}

func TestDeclarationJSONRoundTrip(t *testing.T) {
	d := &load.Declaration{
		Name:              "rotate",
		Context:           load.TraitImplMethod,
		Receiver:          load.RefReceiver,
		ReceiverName:      "v",
		SelfType:          "Vault[T]",
		Trait:             "Rotator",
		EnclosingGenerics: []load.GenericParam{{Name: "T"}},
		Params:            []load.Param{{Name: "keys", Type: "[][]byte", Variadic: true}},
		Return:            "(int, error)",
		Body:              "{\n\treturn len(keys), nil\n}",
		Attrs:             []string{"// rotate re-keys the vault."},
		Marker:            &load.Marker{Count: 1},
	}
	buf, err := load.MarshalDeclaration(d)
	require.NoError(t, err)

	got, err := load.UnmarshalDeclaration(buf)
	require.NoError(t, err)
	assert.Equal(t, d.Name, got.Name)
	assert.Equal(t, d.Context, got.Context)
	assert.Equal(t, d.Receiver, got.Receiver)
	assert.Equal(t, d.SelfType, got.SelfType)
	assert.Equal(t, d.Trait, got.Trait)
	assert.Equal(t, d.Body, got.Body)
	assert.Equal(t, d.Attrs, got.Attrs)
	require.NotNil(t, got.Marker)
	assert.Equal(t, 1, got.Marker.Count)
}

func TestMarshalDeclarationRejectsInvalid(t *testing.T) {
	_, err := load.MarshalDeclaration(&load.Declaration{})
	assert.Error(t, err)

	_, err = load.UnmarshalDeclaration([]byte(`{"name":""}`))
	assert.Error(t, err)
}

func TestKindStrings(t *testing.T) {
	assert.Equal(t, "free_function", load.FreeFunction.String())
	assert.Equal(t, "trait_impl_method", load.TraitImplMethod.String())
	assert.Equal(t, "mut_ref", load.MutRefReceiver.String())
	assert.Equal(t, "lifetime", load.LifetimeParam.String())

	var c load.ContextKind
	require.NoError(t, c.UnmarshalText([]byte("trait_definition")))
	assert.Equal(t, load.TraitDefinition, c)
	assert.Error(t, c.UnmarshalText([]byte("banana")))
}
