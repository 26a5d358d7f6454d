package gen

import (
	"fmt"
	"strings"

	"github.com/privsplit/privsplit"
	"github.com/privsplit/privsplit/compiler/load"
)

// ContractMethod is one trait-side obligation: a marked trait method and
// the mangled inner name every implementation must provide alongside it.
type ContractMethod struct {
	Name      string
	Inner     string
	Signature string
}

// TraitContract is the agreement between a rewritten trait and its
// implementations. It is derived from the trait declaration alone, so both
// sides compute the same mangled names independently.
type TraitContract struct {
	Trait   *load.Trait
	Methods map[string]*ContractMethod
}

// Method returns the contract entry for name, or nil when the trait never
// marked that method.
func (c *TraitContract) Method(name string) *ContractMethod {
	if c == nil {
		return nil
	}
	return c.Methods[name]
}

// ContractFor derives the contract from a trait declaration, validating the
// markers on the trait and its methods on the way.
func ContractFor(t *load.Trait) (*TraitContract, error) {
	if t.Marker != nil {
		if len(t.Marker.Args) > 0 {
			return nil, privsplit.NewMarkerError(t.Name, t.Marker.Args, t.Pos)
		}
		if t.Marker.Count > 1 {
			return nil, privsplit.NewConflictError(t.Name, "the marker appears more than once", t.Pos)
		}
	}
	c := &TraitContract{Trait: t, Methods: make(map[string]*ContractMethod)}
	for _, d := range t.MarkedMethods() {
		if err := Classify(d); err != nil {
			return nil, err
		}
		c.Methods[d.Name] = &ContractMethod{
			Name:      d.Name,
			Inner:     MangledName(d.Name),
			Signature: d.Signature(),
		}
	}
	return c, nil
}

// RewriteTrait renders the split form of a trait declaration against its
// own contract, as derived by ContractFor. Each marked method keeps its
// original signature and gains a mangled companion; unmarked methods and
// embeds pass through verbatim. A trait declared inside a type group is
// rendered as a bare spec so the sibling specs keep their place.
func RewriteTrait(t *load.Trait, contract *TraitContract) (string, error) {
	var b strings.Builder
	for _, a := range t.Attrs {
		b.WriteString(a)
		b.WriteByte('\n')
	}
	if t.Marker != nil {
		b.WriteString("//")
		b.WriteString(privsplit.Directive)
		b.WriteByte('\n')
	}
	if !t.Grouped {
		b.WriteString("type ")
	}
	b.WriteString(t.Name)
	if len(t.Generics) > 0 {
		b.WriteByte('[')
		for i, g := range t.Generics {
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
	b.WriteString(" interface {\n")
	for _, e := range t.Embeds {
		b.WriteByte('\t')
		b.WriteString(e)
		b.WriteByte('\n')
	}
	for _, m := range t.Methods {
		if m.Decl == nil {
			writeIndented(&b, m.Raw)
			continue
		}
		if contract.Method(m.Decl.Name) == nil {
			return "", fmt.Errorf("privsplit: trait %s has no contract entry for %s", t.Name, m.Decl.Name)
		}
		pair, err := emitPair(m.Decl, m.Decl.Generics)
		if err != nil {
			return "", err
		}
		for _, a := range pair.Outer.Attrs {
			b.WriteByte('\t')
			b.WriteString(a)
			b.WriteByte('\n')
		}
		b.WriteByte('\t')
		b.WriteString("//")
		b.WriteString(privsplit.Directive)
		b.WriteByte('\n')
		b.WriteByte('\t')
		b.WriteString(renderMethodLine(pair.Outer))
		b.WriteByte('\n')
		b.WriteByte('\t')
		b.WriteString(renderMethodLine(pair.Inner))
		b.WriteByte('\n')
	}
	b.WriteString("}")
	return b.String(), nil
}

// RewriteImplMethod splits a marked method of a trait implementation. The
// split is only legal when the trait side marked the method first, so that
// the interface declares the mangled companion the implementation emits.
func RewriteImplMethod(d *load.Declaration, generics []load.GenericParam, contract *TraitContract) (*RewritePair, error) {
	cm := contract.Method(d.Name)
	if cm == nil {
		return nil, privsplit.NewContractError(d.Trait, d.Name, baseName(d.SelfType), d.Pos)
	}
	pair, err := emitPair(d, generics)
	if err != nil {
		return nil, err
	}
	if pair.Inner.Name != cm.Inner {
		return nil, fmt.Errorf("privsplit: implementation of %s.%s mangles to %s, contract requires %s", d.Trait, d.Name, pair.Inner.Name, cm.Inner)
	}
	return pair, nil
}

// writeIndented writes a verbatim interface entry one tab deep.
func writeIndented(b *strings.Builder, raw string) {
	for _, line := range strings.Split(raw, "\n") {
		b.WriteByte('\t')
		b.WriteString(strings.TrimSpace(line))
		b.WriteByte('\n')
	}
}
