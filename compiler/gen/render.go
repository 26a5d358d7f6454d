package gen

import (
	"strings"

	"github.com/privsplit/privsplit"
	"github.com/privsplit/privsplit/compiler/load"
)

// RenderDecl prints a declaration descriptor back as Go source. The body is
// spliced verbatim; only the signature is reconstructed.
func RenderDecl(d *load.Declaration) string {
	var b strings.Builder
	for _, a := range d.Attrs {
		b.WriteString(a)
		b.WriteByte('\n')
	}
	if d.Marker != nil {
		b.WriteString("//")
		b.WriteString(privsplit.Directive)
		b.WriteByte('\n')
	}
	b.WriteString("func ")
	if d.Receiver != load.NoReceiver {
		b.WriteByte('(')
		if d.ReceiverName != "" {
			b.WriteString(d.ReceiverName)
			b.WriteByte(' ')
		}
		if d.Receiver != load.ValueReceiver {
			b.WriteByte('*')
		}
		b.WriteString(d.SelfType)
		b.WriteString(") ")
	}
	b.WriteString(d.Name)
	writeSignature(&b, d)
	if d.Body != "" {
		b.WriteByte(' ')
		b.WriteString(d.Body)
	}
	return b.String()
}

// RenderPair prints the two halves of a rewrite, outer first.
func RenderPair(p *RewritePair) string {
	return RenderDecl(p.Outer) + "\n\n" + RenderDecl(p.Inner)
}

// renderMethodLine prints a trait-method signature for an interface body.
func renderMethodLine(d *load.Declaration) string {
	var b strings.Builder
	b.WriteString(d.Name)
	writeSignature(&b, d)
	return b.String()
}

// writeSignature prints generics, parameters and return type.
func writeSignature(b *strings.Builder, d *load.Declaration) {
	if len(d.Generics) > 0 && d.Receiver == load.NoReceiver && d.Context != load.TraitDefinitionMethod {
		b.WriteByte('[')
		for i, g := range d.Generics {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(g.Name)
			b.WriteByte(' ')
			if len(g.Bounds) > 0 {
				b.WriteString(strings.Join(g.Bounds, ", "))
			} else {
				b.WriteString("any")
			}
		}
		b.WriteByte(']')
	}
	b.WriteByte('(')
	for i, p := range d.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		if p.Name != "" {
			b.WriteString(p.Name)
			b.WriteByte(' ')
		}
		if p.Variadic {
			b.WriteString("...")
		}
		b.WriteString(p.Type)
	}
	b.WriteByte(')')
	if d.Return != "" {
		b.WriteByte(' ')
		b.WriteString(d.Return)
	}
}
