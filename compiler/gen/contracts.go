package gen

import (
	"sort"

	"github.com/dave/jennifer/jen"

	"github.com/privsplit/privsplit/compiler/load"
)

// ContractGuard pins one implementing type to one rewritten trait: a
// compile-time assertion that the type provides the mangled companions the
// contract requires, so a stale implementation fails the host build instead
// of failing at use sites.
type ContractGuard struct {
	Trait   string
	Impl    string
	Methods []*ContractMethod
}

// ContractGuards collects the guards for a loaded package by joining its
// satisfaction assertions against the rewritten trait contracts.
func ContractGuards(p *load.Package, contracts map[string]*TraitContract) []ContractGuard {
	var out []ContractGuard
	impls := make([]string, 0, len(p.Implements))
	for impl := range p.Implements {
		impls = append(impls, impl)
	}
	sort.Strings(impls)
	for _, impl := range impls {
		for _, trait := range p.Implements[impl] {
			c, ok := contracts[trait]
			if !ok || len(c.Methods) == 0 {
				continue
			}
			names := make([]string, 0, len(c.Methods))
			for name := range c.Methods {
				names = append(names, name)
			}
			sort.Strings(names)
			g := ContractGuard{Trait: trait, Impl: impl}
			for _, name := range names {
				g.Methods = append(g.Methods, c.Methods[name])
			}
			out = append(out, g)
		}
	}
	return out
}

// ContractsFile renders the per-package guard file. Each guard is an
// anonymous-interface assertion naming only the mangled companions; the
// public half is already checked by whatever assertion the author wrote.
func ContractsFile(pkg, tag string, guards []ContractGuard) *jen.File {
	f := jen.NewFile(pkg)
	f.HeaderComment("Code generated by privsplit. DO NOT EDIT.")
	// The mangled companions exist only in the rewritten build.
	f.HeaderComment("//go:build !" + tag)
	for _, g := range guards {
		f.Commentf("%s must carry the split halves of %s.", g.Impl, g.Trait)
		f.Var().Id("_").InterfaceFunc(func(grp *jen.Group) {
			for _, m := range g.Methods {
				grp.Id(m.Inner + m.Signature)
			}
		}).Op("=").Parens(jen.Op("*").Id(g.Impl)).Call(jen.Nil())
	}
	return f
}
