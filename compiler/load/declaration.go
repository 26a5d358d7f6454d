package load

import (
	"encoding/json"
	"fmt"
	"strings"
)

//go:generate go run ./internal/kindgen

// ContextKind is the closed set of item shapes the rewriter accepts. The
// engine matches it exhaustively; anything outside the set is rejected at
// classification.
type ContextKind uint8

// Context kinds.
const (
	// FreeFunction is a function declared at package scope with no receiver.
	FreeFunction ContextKind = iota
	// InherentImplMethod is an associated function of a concrete type that
	// is not governed by a trait.
	InherentImplMethod
	// TraitImplMethod is an associated function of a concrete type that
	// implements a trait-declared method.
	TraitImplMethod
	// TraitDefinitionMethod is a method signature declared inside a trait.
	TraitDefinitionMethod
	// TraitDefinition is the trait itself.
	TraitDefinition

	endContexts
)

// ReceiverKind describes the receiver of an associated function.
type ReceiverKind uint8

// Receiver kinds. MutRefReceiver has no Go surface form and exists for
// descriptors produced by hosts that distinguish mutable borrows.
const (
	NoReceiver ReceiverKind = iota
	ValueReceiver
	RefReceiver
	MutRefReceiver

	endReceivers
)

// GenericKind describes a generic parameter. Go descriptors only produce
// TypeParam; ConstParam and LifetimeParam round-trip through descriptors
// from hosts that have them.
type GenericKind uint8

// Generic parameter kinds.
const (
	TypeParam GenericKind = iota
	ConstParam
	LifetimeParam

	endGenericKinds
)

// GenericParam is one generic parameter with its bounds.
type GenericParam struct {
	Name   string      `json:"name"`
	Kind   GenericKind `json:"kind,omitempty"`
	Bounds []string    `json:"bounds,omitempty"`
}

// Param is one value parameter. Name may be empty or "_" for parameters the
// author never bound; the emitter assigns them deterministic names on the
// outer half so they can be forwarded.
type Param struct {
	Name     string `json:"name,omitempty"`
	Type     string `json:"type"`
	Variadic bool   `json:"variadic,omitempty"`
}

// Marker is the privilege annotation. Presence is the whole configuration:
// Args records trailing tokens only so the emitter can reject them, and
// Count records repeated markers on one item for conflict detection.
type Marker struct {
	Args  []string `json:"args,omitempty"`
	Count int      `json:"count,omitempty"`
	Pos   string   `json:"-"`
}

// Flags are the modifier flags forwarded verbatim to both halves of the
// rewrite. Go declarations carry neither; descriptors from other hosts may.
type Flags struct {
	Async bool `json:"async,omitempty"`
	Const bool `json:"const,omitempty"`
}

// Span is a byte range into the source file the declaration came from.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Declaration is a function-like declaration as the rewriter sees it: a
// structured signature plus an opaque body. The body is verbatim source
// text, braces included, and is never inspected, only relocated.
type Declaration struct {
	Name              string         `json:"name"`
	Context           ContextKind    `json:"context"`
	Exported          bool           `json:"exported,omitempty"`
	Receiver          ReceiverKind   `json:"receiver,omitempty"`
	ReceiverName      string         `json:"receiver_name,omitempty"`
	SelfType          string         `json:"self_type,omitempty"`
	Trait             string         `json:"trait,omitempty"`
	Generics          []GenericParam `json:"generics,omitempty"`
	EnclosingGenerics []GenericParam `json:"enclosing_generics,omitempty"`
	Params            []Param        `json:"params,omitempty"`
	Return            string         `json:"return,omitempty"`
	Body              string         `json:"body,omitempty"`
	Attrs             []string       `json:"attrs,omitempty"`
	Flags             Flags          `json:"flags,omitempty"`
	Marker            *Marker        `json:"marker,omitempty"`

	// Shape is the loader's description of an item it could extract no
	// function-like declaration from ("const declaration", "type
	// declaration", ...). The classifier turns it into the rejection
	// diagnostic. Empty for supported shapes.
	Shape string `json:"shape,omitempty"`

	Pos  string `json:"-"`
	Span Span   `json:"-"`
}

// TraitMethod is one entry in a trait definition body. Unmarked methods keep
// their verbatim text; marked methods carry a full Declaration so the
// rewriter can split them at the signature level.
type TraitMethod struct {
	Name string       `json:"name"`
	Decl *Declaration `json:"decl,omitempty"`
	Raw  string       `json:"raw,omitempty"`
}

// Marked reports whether the method carries the privilege marker.
func (m *TraitMethod) Marked() bool {
	return m.Decl != nil && m.Decl.Marker != nil
}

// Trait is a loaded trait definition.
type Trait struct {
	Name     string         `json:"name"`
	Exported bool           `json:"exported,omitempty"`
	// Grouped marks a trait declared inside a type ( ... ) block: its span
	// covers that one spec and the rewritten form omits the type keyword.
	Grouped  bool           `json:"grouped,omitempty"`
	Generics []GenericParam `json:"generics,omitempty"`
	Attrs    []string       `json:"attrs,omitempty"`
	Embeds   []string       `json:"embeds,omitempty"`
	Methods  []*TraitMethod `json:"methods,omitempty"`
	Marker   *Marker        `json:"marker,omitempty"`
	Pos      string         `json:"-"`
	Span     Span           `json:"-"`
}

// Marked reports whether the trait itself carries the privilege marker,
// making it privileged-to-implement.
func (t *Trait) Marked() bool {
	return t.Marker != nil
}

// MarkedMethods returns the methods that individually carry the marker, in
// declaration order.
func (t *Trait) MarkedMethods() []*Declaration {
	var out []*Declaration
	for _, m := range t.Methods {
		if m.Marked() {
			out = append(out, m.Decl)
		}
	}
	return out
}

// Validate reports the first structural problem with the declaration. It
// checks shape consistency only; privilege-specific rejection is the
// classifier's job.
func (d *Declaration) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("declaration has no name")
	}
	if d.Context >= endContexts {
		return fmt.Errorf("declaration %q: unknown context kind %d", d.Name, d.Context)
	}
	if d.Receiver >= endReceivers {
		return fmt.Errorf("declaration %q: unknown receiver kind %d", d.Name, d.Receiver)
	}
	if d.Context == FreeFunction && d.Receiver != NoReceiver {
		return fmt.Errorf("declaration %q: free function cannot have a receiver", d.Name)
	}
	if d.Context == FreeFunction && len(d.EnclosingGenerics) > 0 {
		return fmt.Errorf("declaration %q: free function has no enclosing generic scope", d.Name)
	}
	if (d.Context == InherentImplMethod || d.Context == TraitImplMethod) && d.SelfType == "" {
		return fmt.Errorf("declaration %q: associated function without an implementing type", d.Name)
	}
	if d.Context == TraitImplMethod && d.Trait == "" {
		return fmt.Errorf("declaration %q: trait implementation method without a trait", d.Name)
	}
	for i, g := range d.Generics {
		if g.Name == "" {
			return fmt.Errorf("declaration %q: generic parameter %d has no name", d.Name, i)
		}
		if g.Kind >= endGenericKinds {
			return fmt.Errorf("declaration %q: generic parameter %q has unknown kind %d", d.Name, g.Name, g.Kind)
		}
	}
	for i, p := range d.Params {
		if p.Type == "" {
			return fmt.Errorf("declaration %q: parameter %d has no type", d.Name, i)
		}
		if p.Variadic && i != len(d.Params)-1 {
			return fmt.Errorf("declaration %q: variadic parameter %d is not last", d.Name, i)
		}
	}
	return nil
}

// Signature returns the canonical signature text used for cross-checking a
// trait method against its implementation: parameter types and return type
// with whitespace normalized, names excluded. Both sides of the contract
// compute it independently and must agree.
func (d *Declaration) Signature() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range d.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		if p.Variadic {
			b.WriteString("...")
		}
		b.WriteString(normalizeType(p.Type))
	}
	b.WriteByte(')')
	if d.Return != "" {
		b.WriteByte(' ')
		b.WriteString(normalizeType(d.Return))
	}
	return b.String()
}

// normalizeType collapses whitespace runs so that formatting differences
// between a trait file and an implementation file do not break matching.
func normalizeType(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// MarshalDeclaration encodes a declaration descriptor to JSON.
func MarshalDeclaration(d *Declaration) ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("marshal declaration: %w", err)
	}
	return json.Marshal(d)
}

// UnmarshalDeclaration decodes a declaration descriptor and validates it.
func UnmarshalDeclaration(buf []byte) (*Declaration, error) {
	d := &Declaration{}
	if err := json.Unmarshal(buf, d); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("unmarshal declaration: %w", err)
	}
	return d, nil
}
