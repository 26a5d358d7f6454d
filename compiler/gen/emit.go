package gen

import (
	"fmt"
	"strings"

	"github.com/privsplit/privsplit/compiler/load"
)

// RewritePair is the sole output per marked declaration: the outer half
// keeps the original name, signature and marker and forwards; the inner
// half holds the body under the mangled name without any marking. Both are
// emitted into the scope the original occupied.
type RewritePair struct {
	Outer *load.Declaration
	Inner *load.Declaration
}

// emitPair builds the forwarding pair. The declaration must already be
// classified and generics the resolved set for the inner half.
func emitPair(d *load.Declaration, generics []load.GenericParam) (*RewritePair, error) {
	inner := cloneDecl(d)
	inner.Name = MangledName(d.Name)
	inner.Exported = false
	inner.Marker = nil
	inner.Generics = generics
	if d.Context == load.TraitDefinitionMethod {
		inner.Attrs = nil
	} else {
		inner.Attrs = []string{fmt.Sprintf("// %s holds the unprivileged body of %s.", inner.Name, d.Name)}
	}

	outer := cloneDecl(d)
	outer.Params = namedParams(d.Params)
	if outer.Receiver != load.NoReceiver && outer.ReceiverName == "" {
		outer.ReceiverName = SelfName()
	}
	if d.Context != load.TraitDefinitionMethod {
		outer.Body = forwardingBody(outer, inner.Name)
	}
	return &RewritePair{Outer: outer, Inner: inner}, nil
}

// forwardingBody is the outer half's entire body: one call, arguments
// forwarded positionally and exactly once, receiver included. The call
// itself needs no extra privilege grant beyond what the outer marking
// already provides at the call site, which is the point of the split.
func forwardingBody(outer *load.Declaration, innerName string) string {
	var call strings.Builder
	if outer.Receiver != load.NoReceiver {
		call.WriteString(outer.ReceiverName)
		call.WriteByte('.')
	}
	call.WriteString(innerName)
	// Explicit instantiation keeps the outer call unambiguous when the
	// declaration has its own generics and no receiver to infer them from.
	if outer.Receiver == load.NoReceiver && len(outer.Generics) > 0 {
		call.WriteByte('[')
		for i, g := range outer.Generics {
			if i > 0 {
				call.WriteString(", ")
			}
			call.WriteString(g.Name)
		}
		call.WriteByte(']')
	}
	call.WriteByte('(')
	for i, p := range outer.Params {
		if i > 0 {
			call.WriteString(", ")
		}
		call.WriteString(p.Name)
		if p.Variadic {
			call.WriteString("...")
		}
	}
	call.WriteByte(')')

	stmt := call.String()
	if outer.Return != "" {
		stmt = "return " + stmt
	}
	return "{\n\t" + stmt + "\n}"
}

// namedParams gives every unnamed or blank parameter a deterministic name.
// Parameters the author named are kept verbatim.
func namedParams(params []load.Param) []load.Param {
	out := make([]load.Param, len(params))
	for i, p := range params {
		out[i] = p
		if p.Name == "" || p.Name == "_" {
			out[i].Name = ArgName(i)
		}
	}
	return out
}

func cloneDecl(d *load.Declaration) *load.Declaration {
	c := *d
	c.Generics = append([]load.GenericParam(nil), d.Generics...)
	c.EnclosingGenerics = append([]load.GenericParam(nil), d.EnclosingGenerics...)
	c.Params = append([]load.Param(nil), d.Params...)
	c.Attrs = append([]string(nil), d.Attrs...)
	if d.Marker != nil {
		m := *d.Marker
		c.Marker = &m
	}
	return &c
}
