package gen

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/privsplit/privsplit"
)

// MangledName derives the inner identifier from the original one. The
// scheme is a fixed-prefix concatenation: deterministic, stable across
// runs, and injective for distinct originals within one scope, which is all
// the enclosing scope needs to disambiguate. Trait definitions and their
// implementations both call this and must agree, so the scheme is part of
// the public contract. No attempt is made to detect a user-authored
// identifier that already looks mangled; such a collision surfaces as an
// ordinary duplicate-definition error in the host scope.
func MangledName(name string) string {
	return privsplit.InnerPrefix + name
}

// ArgName is the deterministic name given to parameter i on the outer half
// when the author left the parameter unnamed or blank, so it can still be
// forwarded positionally.
func ArgName(i int) string {
	return fmt.Sprintf("%sarg%d", privsplit.InnerPrefix, i)
}

// SelfName is the receiver name synthesized on the outer half when the
// original receiver is unnamed, so the forwarding call has something to
// dispatch on.
func SelfName() string {
	return privsplit.InnerPrefix + "self"
}

// OutputFileName derives the generated counterpart name for a source file:
// the suffix goes before the extension.
func OutputFileName(src, suffix string) string {
	dir, base := filepath.Split(src)
	ext := filepath.Ext(base)
	return dir + strings.TrimSuffix(base, ext) + suffix + ext
}

// ContractsFileName derives the per-package contract guard file name.
func ContractsFileName(pkg, suffix string) string {
	return inflect.Underscore(pkg) + suffix + "_contracts.go"
}
