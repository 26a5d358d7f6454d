package gen

import (
	"strings"

	"github.com/privsplit/privsplit"
	"github.com/privsplit/privsplit/compiler/load"
)

// Classify validates that the marker sits on an item shape the rewriter
// supports and that the marking itself is well-formed. It is pure: the
// declaration is never modified.
func Classify(d *load.Declaration) error {
	if d.Shape != "" {
		return privsplit.NewItemKindError(d.Name, d.Shape, d.Pos)
	}
	if err := d.Validate(); err != nil {
		return privsplit.NewItemKindError(d.Name, err.Error(), d.Pos)
	}
	if d.Marker == nil {
		return privsplit.NewItemKindError(d.Name, "unmarked declaration", d.Pos)
	}
	if len(d.Marker.Args) > 0 {
		return privsplit.NewMarkerError(d.Name, d.Marker.Args, d.Marker.Pos)
	}
	if d.Marker.Count > 1 {
		return privsplit.NewConflictError(d.Name, "marker appears more than once", d.Pos)
	}
	if strings.HasPrefix(d.Name, privsplit.InnerPrefix) {
		return privsplit.NewConflictError(d.Name, "identifier already carries the mangled prefix", d.Pos)
	}
	switch d.Context {
	case load.FreeFunction, load.InherentImplMethod, load.TraitImplMethod:
		if d.Body == "" {
			return privsplit.NewItemKindError(d.Name, "function declaration without a body", d.Pos)
		}
	case load.TraitDefinitionMethod:
		// Signature-level split; no body to relocate.
	case load.TraitDefinition:
		// Handled by the trait rewriter; reaching the item pipeline with a
		// whole trait means the loader misrouted it.
		return privsplit.NewItemKindError(d.Name, "trait definition routed as a function item", d.Pos)
	default:
		return privsplit.NewItemKindError(d.Name, "unknown item shape", d.Pos)
	}
	return nil
}
