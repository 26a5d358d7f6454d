// Package privsplit rewrites privileged-callable declarations into a
// forwarding pair: an outer declaration that keeps the caller-side gating,
// and an inner declaration that holds the original body without ambient
// privilege. Only regions the author explicitly marked inside the body keep
// elevated capability, so sensitive operations stay auditable even inside a
// gated function.
//
// The engine is a pure, single-pass structural transform. It never inspects
// body semantics, never changes calling convention or runtime behavior, and
// never introduces privilege syntax of its own: the outer half carries the
// pre-existing marker, the inner half carries the body verbatim.
//
// The Go frontend reads build-constraint-tagged source files and looks for
// the Directive comment on functions, methods, and interfaces:
//
//	//go:build privsplit
//
//	//privsplit:callable
//	func AddToPtr(p *int32, b int32) int32 {
//		a := deref(p) // author-marked privileged region, carried verbatim
//		return a + b
//	}
//
// which is replaced in the generated counterpart file by
//
//	//privsplit:callable
//	func AddToPtr(p *int32, b int32) int32 {
//		return __priv_AddToPtr(p, b)
//	}
//
//	func __priv_AddToPtr(p *int32, b int32) int32 { ... original body ... }
//
// See the compiler/load and compiler/gen packages for the declaration model
// and the rewriting pipeline.
package privsplit

const (
	// Directive is the marker comment that triggers the rewrite. It accepts
	// no arguments; any trailing tokens are rejected.
	Directive = "privsplit:callable"

	// InnerPrefix is the fixed prefix the name mangler prepends to derive
	// the inner identifier. The scheme is a public, stable contract: trait
	// declarations and their implementations compute the mangled name
	// independently and must agree, so the prefix may never change between
	// releases. The leading underscore keeps every mangled identifier
	// unexported, which is the visibility downgrade the inner half requires.
	InnerPrefix = "__priv_"

	// DefaultBuildTag is the build constraint expected on source files that
	// carry the Directive. Generated counterparts are emitted under the
	// negated constraint so exactly one of the two compiles.
	DefaultBuildTag = "privsplit"

	// DefaultSuffix is appended to the base name of every generated file.
	DefaultSuffix = "_privsplit"
)
