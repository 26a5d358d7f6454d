package load

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/privsplit/privsplit"
)

// Package is one loaded Go package: the marker files to rewrite plus the
// package-wide facts the rewriter needs (trait definitions and which
// concrete types declare they implement them).
type Package struct {
	Name    string  `json:"name"`
	PkgPath string  `json:"pkg_path,omitempty"`
	Dir     string  `json:"dir,omitempty"`
	Files   []*File `json:"files,omitempty"`

	// Traits maps trait name to definition. It includes shadow entries for
	// interfaces found in untagged files: those carry no span and are never
	// rewritten, but they let the rewriter attach contract diagnostics to
	// implementations.
	Traits map[string]*Trait `json:"traits,omitempty"`

	// Implements maps a concrete type name to the traits it declares it
	// implements via interface-satisfaction guards (var _ T = (*X)(nil)).
	Implements map[string][]string `json:"implements,omitempty"`
}

// File is one build-tagged source file carrying markers.
type File struct {
	Name   string         `json:"name"`
	Pkg    string         `json:"pkg"`
	Src    []byte         `json:"-"`
	Hash   string         `json:"hash,omitempty"`
	Decls  []*Declaration `json:"decls,omitempty"`
	Traits []*Trait       `json:"traits,omitempty"`

	// TagSpan is the byte range of the //go:build line, so the writer can
	// negate the constraint in the generated counterpart.
	TagSpan Span `json:"tag_span"`

	// Implements and Shadows are file-local guard and plain-interface
	// records, folded into the package view by merge.
	Implements map[string][]string `json:"-"`
	Shadows    []*Trait            `json:"-"`
}

// Load resolves the configured patterns and parses every file that carries
// the build tag and at least one marker. Untagged files in the same packages
// are scanned for interface definitions and satisfaction guards only.
func Load(cfg *privsplit.Config) ([]*Package, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pcfg := &packages.Config{
		Mode:       packages.NeedName | packages.NeedFiles | packages.NeedSyntax,
		BuildFlags: []string{"-tags", cfg.BuildTag},
	}
	pkgs, err := packages.Load(pcfg, cfg.Patterns...)
	if err != nil {
		return nil, fmt.Errorf("load: resolve patterns: %w", err)
	}
	var cache Cache
	var out []*Package
	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			return nil, fmt.Errorf("load: package %s: %v", pkg.PkgPath, pkg.Errors[0])
		}
		p := &Package{
			Name:       pkg.Name,
			PkgPath:    pkg.PkgPath,
			Traits:     make(map[string]*Trait),
			Implements: make(map[string][]string),
		}
		for _, sf := range pkg.Syntax {
			name := pkg.Fset.File(sf.Pos()).Name()
			src, rerr := os.ReadFile(name)
			if rerr != nil {
				return nil, fmt.Errorf("load: %w", rerr)
			}
			if p.Dir == "" {
				p.Dir = filepath.Dir(name)
			}
			if cfg.Cache && cache == nil {
				dir := cfg.CacheDir
				if dir == "" {
					dir = filepath.Join(p.Dir, ".privsplit")
				}
				if cache, err = NewDirCache(dir); err != nil {
					return nil, err
				}
			}
			if hasBuildTag(src, cfg.BuildTag) && bytes.Contains(src, []byte(privsplit.Directive)) {
				key := fmt.Sprintf("%x", sha256.Sum256(src))
				if cache != nil {
					if cf, _ := cache.Get(key); cf != nil {
						cf.Name = name
						p.merge(cf)
						if len(cf.Decls) > 0 || len(cf.Traits) > 0 {
							p.Files = append(p.Files, cf)
						}
						continue
					}
				}
				f, perr := ParseFile(name, src, cfg.BuildTag)
				if perr != nil {
					return nil, perr
				}
				if cache != nil {
					_ = cache.Set(key, f)
				}
				p.merge(f)
				if len(f.Decls) > 0 || len(f.Traits) > 0 {
					p.Files = append(p.Files, f)
				}
				continue
			}
			// Untagged file: guards and interfaces only. The parsed syntax
			// is already available from the package loader.
			p.scanPlain(pkg.Fset, sf, src)
		}
		if len(p.Files) == 0 {
			continue
		}
		p.Resolve()
		out = append(out, p)
	}
	return out, nil
}

// Dirs resolves the configured patterns to the directories of the matched
// packages, deduplicated, in load order.
func Dirs(cfg *privsplit.Config) ([]string, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pkgs, err := packages.Load(&packages.Config{Mode: packages.NeedName | packages.NeedFiles}, cfg.Patterns...)
	if err != nil {
		return nil, fmt.Errorf("load: resolve patterns: %w", err)
	}
	seen := make(map[string]bool)
	var out []string
	for _, pkg := range pkgs {
		for _, f := range pkg.GoFiles {
			dir := filepath.Dir(f)
			if !seen[dir] {
				seen[dir] = true
				out = append(out, dir)
			}
		}
	}
	return out, nil
}

// ParseFile parses a single build-tagged source file and extracts every
// marked declaration and trait definition, bodies captured verbatim.
func ParseFile(name string, src []byte, tag string) (*File, error) {
	fset := token.NewFileSet()
	af, err := parser.ParseFile(fset, name, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("load: parse %s: %w", name, err)
	}
	f := &File{
		Name:       name,
		Pkg:        af.Name.Name,
		Src:        src,
		Hash:       fmt.Sprintf("%x", sha256.Sum256(src)),
		Implements: make(map[string][]string),
	}
	f.TagSpan = buildTagSpan(src, tag)
	sc := &scanner{fset: fset, src: src, file: f}
	for _, decl := range af.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			sc.funcDecl(d)
		case *ast.GenDecl:
			sc.genDecl(d)
		}
	}
	return f, nil
}

// scanner walks the top-level declarations of one file.
type scanner struct {
	fset *token.FileSet
	src  []byte
	file *File
}

func (s *scanner) funcDecl(d *ast.FuncDecl) {
	marker, attrs := parseMarker(s.fset, d.Doc)
	if marker == nil {
		return
	}
	decl := &Declaration{
		Name:     d.Name.Name,
		Context:  FreeFunction,
		Exported: d.Name.IsExported(),
		Attrs:    attrs,
		Marker:   marker,
		Pos:      s.fset.Position(d.Name.Pos()).String(),
		Span:     s.declSpan(d, d.Doc),
	}
	if d.Recv != nil && len(d.Recv.List) > 0 {
		decl.Context = InherentImplMethod
		s.receiver(decl, d.Recv.List[0])
	}
	if tp := d.Type.TypeParams; tp != nil {
		decl.Generics = s.genericParams(tp)
	}
	decl.Params = s.params(d.Type.Params)
	if d.Type.Results != nil {
		decl.Return = s.text(d.Type.Results)
	}
	if d.Body != nil {
		decl.Body = s.text(d.Body)
	}
	s.file.Decls = append(s.file.Decls, decl)
}

func (s *scanner) genDecl(d *ast.GenDecl) {
	switch d.Tok {
	case token.TYPE:
		for _, spec := range d.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			it, ok := ts.Type.(*ast.InterfaceType)
			if !ok {
				// Marker on a non-interface type declaration: record it so
				// classification can reject it with its position instead of
				// dropping it silently.
				if marker, _ := parseMarker(s.fset, doc(d, ts)); marker != nil {
					s.file.Decls = append(s.file.Decls, &Declaration{
						Name:   ts.Name.Name,
						Shape:  "type declaration",
						Marker: marker,
						Pos:    s.fset.Position(ts.Name.Pos()).String(),
						Span:   s.specSpan(d, ts),
					})
				}
				continue
			}
			s.interfaceDecl(d, ts, it)
		}
	case token.VAR:
		// The marker is meaningless on a var declaration; reject it loudly
		// when present rather than dropping it.
		if marker, _ := parseMarker(s.fset, d.Doc); marker != nil {
			s.file.Decls = append(s.file.Decls, &Declaration{
				Shape:  "var declaration",
				Marker: marker,
				Pos:    s.fset.Position(d.Pos()).String(),
				Span:   s.declSpan(d, d.Doc),
			})
		}
		for _, spec := range d.Specs {
			vs, ok := spec.(*ast.ValueSpec)
			if ok {
				s.guard(vs)
			}
		}
	case token.CONST, token.IMPORT:
		// The marker is meaningless on these; reject it loudly when present.
		if marker, _ := parseMarker(s.fset, d.Doc); marker != nil {
			kind := "const declaration"
			if d.Tok == token.IMPORT {
				kind = "import declaration"
			}
			s.file.Decls = append(s.file.Decls, &Declaration{
				Shape:  kind,
				Marker: marker,
				Pos:    s.fset.Position(d.Pos()).String(),
				Span:   s.declSpan(d, d.Doc),
			})
		}
	}
}

func (s *scanner) interfaceDecl(d *ast.GenDecl, ts *ast.TypeSpec, it *ast.InterfaceType) {
	marker, attrs := parseMarker(s.fset, doc(d, ts))
	t := &Trait{
		Name:     ts.Name.Name,
		Exported: ts.Name.IsExported(),
		Grouped:  d.Lparen.IsValid(),
		Attrs:    attrs,
		Marker:   marker,
		Pos:      s.fset.Position(ts.Name.Pos()).String(),
		Span:     s.specSpan(d, ts),
	}
	if ts.TypeParams != nil {
		t.Generics = s.genericParams(ts.TypeParams)
	}
	anyMarked := false
	for _, m := range it.Methods.List {
		ft, ok := m.Type.(*ast.FuncType)
		if !ok {
			t.Embeds = append(t.Embeds, s.text(m.Type))
			continue
		}
		if len(m.Names) == 0 {
			continue
		}
		name := m.Names[0].Name
		mm, attrs := parseMarker(s.fset, m.Doc)
		tm := &TraitMethod{Name: name}
		if mm != nil {
			anyMarked = true
			md := &Declaration{
				Name:              name,
				Context:           TraitDefinitionMethod,
				Exported:          m.Names[0].IsExported(),
				Trait:             t.Name,
				EnclosingGenerics: t.Generics,
				Attrs:             attrs,
				Marker:            mm,
				Pos:               s.fset.Position(m.Names[0].Pos()).String(),
			}
			md.Params = s.params(ft.Params)
			if ft.Results != nil {
				md.Return = s.text(ft.Results)
			}
			tm.Decl = md
		} else {
			tm.Raw = s.methodText(m)
		}
		t.Methods = append(t.Methods, tm)
	}
	if marker != nil || anyMarked {
		s.file.Traits = append(s.file.Traits, t)
		return
	}
	// Plain interface: kept as a shadow for trait-impl association and
	// contract diagnostics, never rewritten.
	t.Span = Span{}
	s.file.Shadows = append(s.file.Shadows, t)
}

// guard records an interface-satisfaction assertion: var _ T = (*X)(nil),
// var _ T = X{} or var _ T = &X{}.
func (s *scanner) guard(vs *ast.ValueSpec) {
	if len(vs.Names) != 1 || vs.Names[0].Name != "_" || vs.Type == nil || len(vs.Values) != 1 {
		return
	}
	trait, ok := vs.Type.(*ast.Ident)
	if !ok {
		return
	}
	impl := concreteType(vs.Values[0])
	if impl == "" {
		return
	}
	s.file.Implements[impl] = append(s.file.Implements[impl], trait.Name)
}

func (s *scanner) receiver(decl *Declaration, recv *ast.Field) {
	if len(recv.Names) > 0 {
		decl.ReceiverName = recv.Names[0].Name
	}
	typ := recv.Type
	decl.Receiver = ValueReceiver
	if st, ok := typ.(*ast.StarExpr); ok {
		decl.Receiver = RefReceiver
		typ = st.X
	}
	decl.SelfType = s.text(typ)
	switch t := typ.(type) {
	case *ast.IndexExpr:
		decl.EnclosingGenerics = append(decl.EnclosingGenerics, typeParamNames(t.Index)...)
	case *ast.IndexListExpr:
		for _, idx := range t.Indices {
			decl.EnclosingGenerics = append(decl.EnclosingGenerics, typeParamNames(idx)...)
		}
	}
}

func (s *scanner) genericParams(fl *ast.FieldList) []GenericParam {
	var out []GenericParam
	for _, f := range fl.List {
		bound := s.text(f.Type)
		for _, n := range f.Names {
			out = append(out, GenericParam{Name: n.Name, Kind: TypeParam, Bounds: []string{bound}})
		}
	}
	return out
}

func (s *scanner) params(fl *ast.FieldList) []Param {
	if fl == nil {
		return nil
	}
	var out []Param
	for _, f := range fl.List {
		typ := f.Type
		variadic := false
		if el, ok := typ.(*ast.Ellipsis); ok {
			variadic = true
			typ = el.Elt
		}
		text := s.text(typ)
		if len(f.Names) == 0 {
			out = append(out, Param{Type: text, Variadic: variadic})
			continue
		}
		for _, n := range f.Names {
			out = append(out, Param{Name: n.Name, Type: text, Variadic: variadic})
		}
	}
	return out
}

// text returns the verbatim source text of a node.
func (s *scanner) text(n ast.Node) string {
	start := s.fset.Position(n.Pos()).Offset
	end := s.fset.Position(n.End()).Offset
	return string(s.src[start:end])
}

// methodText returns an interface method entry verbatim, doc included.
func (s *scanner) methodText(m *ast.Field) string {
	start := m.Pos()
	if m.Doc != nil {
		start = m.Doc.Pos()
	}
	so := s.fset.Position(start).Offset
	eo := s.fset.Position(m.End()).Offset
	return string(s.src[so:eo])
}

// declSpan covers the whole declaration including its doc comment, so the
// rewrite replaces the marker along with the item it annotates.
func (s *scanner) declSpan(n ast.Node, docGroup *ast.CommentGroup) Span {
	start := n.Pos()
	if docGroup != nil {
		start = docGroup.Pos()
	}
	return Span{
		Start: s.fset.Position(start).Offset,
		End:   s.fset.Position(n.End()).Offset,
	}
}

// specSpan is the rewrite span for one type spec. For a standalone
// declaration it covers the whole statement with its doc comment; inside a
// grouped type block it covers the single spec only, so the sibling specs
// of the group stay untouched.
func (s *scanner) specSpan(d *ast.GenDecl, ts *ast.TypeSpec) Span {
	if d.Lparen.IsValid() {
		return s.declSpan(ts, ts.Doc)
	}
	return s.declSpan(d, d.Doc)
}

// scanPlain records guards and shadow interfaces from an untagged file.
func (p *Package) scanPlain(fset *token.FileSet, af *ast.File, src []byte) {
	f := &File{Name: "", Pkg: af.Name.Name, Src: src, Implements: make(map[string][]string)}
	sc := &scanner{fset: fset, src: src, file: f}
	for _, decl := range af.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok {
			continue
		}
		switch gd.Tok {
		case token.VAR:
			for _, spec := range gd.Specs {
				if vs, ok := spec.(*ast.ValueSpec); ok {
					sc.guard(vs)
				}
			}
		case token.TYPE:
			for _, spec := range gd.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				it, ok := ts.Type.(*ast.InterfaceType)
				if !ok {
					continue
				}
				t := &Trait{Name: ts.Name.Name, Exported: ts.Name.IsExported()}
				for _, m := range it.Methods.List {
					if _, ok := m.Type.(*ast.FuncType); ok && len(m.Names) > 0 {
						t.Methods = append(t.Methods, &TraitMethod{Name: m.Names[0].Name, Raw: sc.methodText(m)})
					}
				}
				f.Shadows = append(f.Shadows, t)
			}
		}
	}
	p.merge(f)
}

// merge folds a file's traits, shadows and guards into the package view.
func (p *Package) merge(f *File) {
	for _, t := range f.Traits {
		p.Traits[t.Name] = t
	}
	for _, t := range f.Shadows {
		if _, ok := p.Traits[t.Name]; !ok {
			p.Traits[t.Name] = t
		}
	}
	for impl, traits := range f.Implements {
		p.Implements[impl] = append(p.Implements[impl], traits...)
	}
}

// Resolve upgrades methods to TraitImplMethod where a satisfaction guard
// binds their receiver type to a known trait declaring the method name.
// It must run after every file of the package was merged.
func (p *Package) Resolve() {
	for _, f := range p.Files {
		for _, d := range f.Decls {
			if d.Context != InherentImplMethod {
				continue
			}
			base := baseTypeName(d.SelfType)
			for _, tn := range p.Implements[base] {
				t := p.Traits[tn]
				if t == nil || t.Method(d.Name) == nil {
					continue
				}
				d.Context = TraitImplMethod
				d.Trait = tn
				break
			}
		}
	}
}

// Method returns the trait's method entry with the given name, or nil.
func (t *Trait) Method(name string) *TraitMethod {
	for _, m := range t.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// parseMarker extracts the privilege marker from a doc comment. The
// remaining doc lines are returned verbatim as pass-through attributes.
func parseMarker(fset *token.FileSet, docGroup *ast.CommentGroup) (*Marker, []string) {
	if docGroup == nil {
		return nil, nil
	}
	var marker *Marker
	var attrs []string
	for _, c := range docGroup.List {
		text := strings.TrimPrefix(c.Text, "//")
		trimmed := strings.TrimSpace(text)
		if trimmed == privsplit.Directive || strings.HasPrefix(trimmed, privsplit.Directive+" ") {
			rest := strings.TrimSpace(strings.TrimPrefix(trimmed, privsplit.Directive))
			if marker == nil {
				marker = &Marker{Pos: fset.Position(c.Pos()).String()}
			}
			marker.Count++
			if rest != "" {
				marker.Args = append(marker.Args, strings.Fields(rest)...)
			}
			continue
		}
		attrs = append(attrs, c.Text)
	}
	return marker, attrs
}

// concreteType extracts the implementing type name from a guard value.
func concreteType(e ast.Expr) string {
	switch v := e.(type) {
	case *ast.CallExpr:
		// (*X)(nil)
		if pe, ok := v.Fun.(*ast.ParenExpr); ok {
			if se, ok := pe.X.(*ast.StarExpr); ok {
				return identName(se.X)
			}
		}
	case *ast.CompositeLit:
		// X{}
		return identName(v.Type)
	case *ast.UnaryExpr:
		// &X{}
		if v.Op == token.AND {
			if cl, ok := v.X.(*ast.CompositeLit); ok {
				return identName(cl.Type)
			}
		}
	}
	return ""
}

func identName(e ast.Expr) string {
	switch v := e.(type) {
	case *ast.Ident:
		return v.Name
	case *ast.IndexExpr:
		return identName(v.X)
	case *ast.IndexListExpr:
		return identName(v.X)
	}
	return ""
}

func typeParamNames(e ast.Expr) []GenericParam {
	if id, ok := e.(*ast.Ident); ok {
		return []GenericParam{{Name: id.Name, Kind: TypeParam}}
	}
	return nil
}

// baseTypeName strips type arguments: "Stack[T]" -> "Stack".
func baseTypeName(s string) string {
	if i := strings.IndexByte(s, '['); i >= 0 {
		return s[:i]
	}
	return s
}

// doc returns the doc comment of a type spec, falling back to the group's.
func doc(d *ast.GenDecl, ts *ast.TypeSpec) *ast.CommentGroup {
	if ts.Doc != nil {
		return ts.Doc
	}
	return d.Doc
}

// hasBuildTag reports whether src carries the //go:build constraint with the
// tag as one of its terms.
func hasBuildTag(src []byte, tag string) bool {
	sp := buildTagSpan(src, tag)
	return sp.End > sp.Start
}

// buildTagSpan locates the //go:build line that mentions the tag.
func buildTagSpan(src []byte, tag string) Span {
	offset := 0
	for _, line := range bytes.SplitAfter(src, []byte("\n")) {
		trimmed := bytes.TrimSpace(line)
		if bytes.HasPrefix(trimmed, []byte("package ")) {
			break
		}
		if bytes.HasPrefix(trimmed, []byte("//go:build")) && containsTag(string(trimmed), tag) {
			start := offset + bytes.Index(line, trimmed)
			return Span{Start: start, End: start + len(trimmed)}
		}
		offset += len(line)
	}
	return Span{}
}

// containsTag reports whether the constraint expression mentions tag as a
// standalone term.
func containsTag(line, tag string) bool {
	expr := strings.TrimPrefix(line, "//go:build")
	for _, tok := range strings.FieldsFunc(expr, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '(' || r == ')' || r == '!' || r == '&' || r == '|'
	}) {
		if tok == tag {
			return true
		}
	}
	return false
}
