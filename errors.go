package privsplit

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the rewrite failure cases. Every failure is diagnosed
// at classification or emission time for a single item and blocks that item
// only; independent items keep processing.
var (
	// ErrUnsupportedItemKind is returned when the marker is applied to
	// anything other than a function-like declaration or a trait definition.
	ErrUnsupportedItemKind = errors.New("privsplit: unsupported item kind")

	// ErrUnreachableGeneric is returned when the rewritten inner declaration
	// has no channel through which to recover an enclosing-scope generic
	// parameter that its signature requires.
	ErrUnreachableGeneric = errors.New("privsplit: unreachable generic parameter")

	// ErrMarkerArguments is returned when the marker carries configuration.
	// The marker is presence-only and accepts no arguments.
	ErrMarkerArguments = errors.New("privsplit: marker does not accept arguments")

	// ErrTraitMethodNotMarked is returned when an implementation splits a
	// method whose trait-side declaration was never marked. The contract
	// must originate at the trait declaration.
	ErrTraitMethodNotMarked = errors.New("privsplit: trait method not marked")

	// ErrConflictingMarker is returned when the marker is combined with a
	// conflicting privilege marking on the same item, for example a
	// duplicated directive or an identifier already carrying the mangled
	// prefix.
	ErrConflictingMarker = errors.New("privsplit: conflicting privilege marking")

	// ErrInvalidConfig indicates a tool configuration error.
	ErrInvalidConfig = errors.New("privsplit: invalid configuration")
)

// ItemKindError reports a marker applied to an unsupported item shape.
type ItemKindError struct {
	Name string // Item name, if one exists.
	Kind string // The offending shape, e.g. "const declaration".
	Pos  string // Source position of the item.
}

// Error implements the error interface.
func (e *ItemKindError) Error() string {
	var b strings.Builder
	b.WriteString("privsplit: marker on unsupported ")
	if e.Kind != "" {
		b.WriteString(e.Kind)
	} else {
		b.WriteString("item")
	}
	if e.Name != "" {
		fmt.Fprintf(&b, " %q", e.Name)
	}
	if e.Pos != "" {
		b.WriteString(" at ")
		b.WriteString(e.Pos)
	}
	return b.String()
}

// Is reports whether the target matches the sentinel error for ItemKindError.
func (e *ItemKindError) Is(target error) bool {
	return target == ErrUnsupportedItemKind
}

// NewItemKindError creates a new ItemKindError.
func NewItemKindError(name, kind, pos string) *ItemKindError {
	return &ItemKindError{Name: name, Kind: kind, Pos: pos}
}

// GenericError reports an enclosing generic parameter that the inner
// declaration cannot recover.
type GenericError struct {
	Decl  string // Declaration name.
	Param string // The unreachable generic parameter.
	Pos   string // Source position of the declaration.
}

// Error implements the error interface.
func (e *GenericError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "privsplit: generic parameter %q is unreachable", e.Param)
	if e.Decl != "" {
		fmt.Fprintf(&b, " from the rewritten body of %q", e.Decl)
	}
	b.WriteString(": it is declared on the enclosing scope and the declaration has no receiver or type reference to carry it")
	if e.Pos != "" {
		b.WriteString(" (at ")
		b.WriteString(e.Pos)
		b.WriteString(")")
	}
	return b.String()
}

// Is reports whether the target matches the sentinel error for GenericError.
func (e *GenericError) Is(target error) bool {
	return target == ErrUnreachableGeneric
}

// NewGenericError creates a new GenericError.
func NewGenericError(decl, param, pos string) *GenericError {
	return &GenericError{Decl: decl, Param: param, Pos: pos}
}

// MarkerError reports a marker that carries arguments it does not accept.
type MarkerError struct {
	Decl string   // Declaration name.
	Args []string // The unexpected argument tokens.
	Pos  string   // Source position of the marker.
}

// Error implements the error interface.
func (e *MarkerError) Error() string {
	var b strings.Builder
	b.WriteString("privsplit: marker accepts no arguments")
	if len(e.Args) > 0 {
		fmt.Fprintf(&b, ", got %q", strings.Join(e.Args, " "))
	}
	if e.Decl != "" {
		fmt.Fprintf(&b, " on %q", e.Decl)
	}
	if e.Pos != "" {
		b.WriteString(" at ")
		b.WriteString(e.Pos)
	}
	return b.String()
}

// Is reports whether the target matches the sentinel error for MarkerError.
func (e *MarkerError) Is(target error) bool {
	return target == ErrMarkerArguments
}

// NewMarkerError creates a new MarkerError.
func NewMarkerError(decl string, args []string, pos string) *MarkerError {
	return &MarkerError{Decl: decl, Args: args, Pos: pos}
}

// ConflictError reports a marker combined with a conflicting privilege
// marking on the same item.
type ConflictError struct {
	Decl   string // Declaration name.
	Reason string // What the marker conflicts with.
	Pos    string // Source position of the declaration.
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	var b strings.Builder
	b.WriteString("privsplit: conflicting privilege marking")
	if e.Decl != "" {
		fmt.Fprintf(&b, " on %q", e.Decl)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Pos != "" {
		b.WriteString(" (at ")
		b.WriteString(e.Pos)
		b.WriteString(")")
	}
	return b.String()
}

// Is reports whether the target matches the sentinel error for ConflictError.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflictingMarker
}

// NewConflictError creates a new ConflictError.
func NewConflictError(decl, reason, pos string) *ConflictError {
	return &ConflictError{Decl: decl, Reason: reason, Pos: pos}
}

// ContractError reports an implementation-side split with no corresponding
// trait-side contract. This is fatal for the item and never recovered.
type ContractError struct {
	Trait  string // The trait the implementation targets.
	Method string // The method the implementation tried to split.
	Impl   string // The implementing type.
	Pos    string // Source position of the implementation method.
}

// Error implements the error interface.
func (e *ContractError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "privsplit: method %q", e.Method)
	if e.Impl != "" {
		fmt.Fprintf(&b, " of %s", e.Impl)
	}
	b.WriteString(" is split by the implementation, but ")
	if e.Trait != "" {
		fmt.Fprintf(&b, "trait %s", e.Trait)
	} else {
		b.WriteString("its trait")
	}
	b.WriteString(" never marked it; the split must originate at the trait declaration")
	if e.Pos != "" {
		b.WriteString(" (at ")
		b.WriteString(e.Pos)
		b.WriteString(")")
	}
	return b.String()
}

// Is reports whether the target matches the sentinel error for ContractError.
func (e *ContractError) Is(target error) bool {
	return target == ErrTraitMethodNotMarked
}

// NewContractError creates a new ContractError.
func NewContractError(trait, method, impl, pos string) *ContractError {
	return &ContractError{Trait: trait, Method: method, Impl: impl, Pos: pos}
}

// ConfigError represents a tool configuration error.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("privsplit: config error for %q (value: %v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("privsplit: config error for %q: %s", e.Option, e.Message)
}

// Is reports whether the target matches the sentinel error for ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// NewConfigError creates a new ConfigError.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{Option: option, Value: value, Message: message}
}

// IsUnsupportedItemKind reports whether the error is an ItemKindError.
func IsUnsupportedItemKind(err error) bool {
	var e *ItemKindError
	return errors.As(err, &e) || errors.Is(err, ErrUnsupportedItemKind)
}

// IsUnreachableGeneric reports whether the error is a GenericError.
func IsUnreachableGeneric(err error) bool {
	var e *GenericError
	return errors.As(err, &e) || errors.Is(err, ErrUnreachableGeneric)
}

// IsMarkerArguments reports whether the error is a MarkerError.
func IsMarkerArguments(err error) bool {
	var e *MarkerError
	return errors.As(err, &e) || errors.Is(err, ErrMarkerArguments)
}

// IsConflictingMarker reports whether the error is a ConflictError.
func IsConflictingMarker(err error) bool {
	var e *ConflictError
	return errors.As(err, &e) || errors.Is(err, ErrConflictingMarker)
}

// IsTraitMethodNotMarked reports whether the error is a ContractError.
func IsTraitMethodNotMarked(err error) bool {
	var e *ContractError
	return errors.As(err, &e) || errors.Is(err, ErrTraitMethodNotMarked)
}

// IsConfigError reports whether the error is a ConfigError.
func IsConfigError(err error) bool {
	var e *ConfigError
	return errors.As(err, &e) || errors.Is(err, ErrInvalidConfig)
}
