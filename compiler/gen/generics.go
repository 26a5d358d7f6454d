package gen

import (
	"strings"

	"github.com/privsplit/privsplit"
	"github.com/privsplit/privsplit/compiler/load"
)

// ReachableGenerics computes the generic parameters the inner declaration
// may carry. The inner half is always granted the generics declared on the
// declaration itself, never the generics of the enclosing scope: when the
// declaration has a receiver, or the signature references the implementing
// type by name, the enclosing generics stay reachable through that type
// reference and need no propagation. A declaration with neither channel
// whose signature still uses an enclosing generic is rejected, naming the
// parameter.
//
// The check is syntactic. An enclosing generic used only inside the body is
// invisible here and surfaces later as the host compiler's own
// generic-resolution diagnostic; that deferral is deliberate.
func ReachableGenerics(d *load.Declaration) ([]load.GenericParam, error) {
	own := d.Generics
	if len(d.EnclosingGenerics) == 0 {
		return own, nil
	}
	if d.Receiver != load.NoReceiver {
		return own, nil
	}
	if signatureMentions(d, baseName(d.SelfType)) {
		return own, nil
	}
	for _, g := range d.EnclosingGenerics {
		if signatureMentions(d, g.Name) {
			return nil, privsplit.NewGenericError(d.Name, g.Name, d.Pos)
		}
	}
	return own, nil
}

// signatureMentions reports whether the identifier occurs as a standalone
// token anywhere in the parameter or return types.
func signatureMentions(d *load.Declaration, ident string) bool {
	if ident == "" {
		return false
	}
	for _, p := range d.Params {
		if mentions(p.Type, ident) {
			return true
		}
	}
	return mentions(d.Return, ident)
}

// mentions scans a type expression for an identifier at token granularity,
// so "T" does not match inside "Tree" or "fmt.T".
func mentions(typ, ident string) bool {
	for i := 0; i < len(typ); {
		if !isIdentByte(typ[i]) {
			i++
			continue
		}
		j := i
		for j < len(typ) && isIdentByte(typ[j]) {
			j++
		}
		// A qualified selector (pkg.Name) never resolves to a local generic.
		qualified := j < len(typ) && typ[j] == '.' || i > 0 && typ[i-1] == '.'
		if !qualified && typ[i:j] == ident {
			return true
		}
		i = j
	}
	return false
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// baseName strips type arguments from a type reference: "Stack[T]" -> "Stack".
func baseName(s string) string {
	if i := strings.IndexByte(s, '['); i >= 0 {
		return s[:i]
	}
	return s
}
