// kindgen is a codegen cmd for generating the kind enum text forms from
// template. Run via go generate in the load package.
package main

import (
	"bytes"
	"go/format"
	"log"
	"os"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type value struct {
	Const string // Go constant name; derived from Str when empty.
	Str   string // descriptor form
}

type enum struct {
	Type   string // Go type name
	Guard  string // out-of-range guard constant
	Doc    string // subject of the String doc comment
	Values []value
}

var enums = []enum{
	{
		Type:  "ContextKind",
		Guard: "endContexts",
		Doc:   "context kind",
		Values: []value{
			{Str: "free_function"},
			{Str: "inherent_impl_method"},
			{Str: "trait_impl_method"},
			{Str: "trait_definition_method"},
			{Str: "trait_definition"},
		},
	},
	{
		Type:  "ReceiverKind",
		Guard: "endReceivers",
		Doc:   "receiver kind",
		Values: []value{
			{Const: "NoReceiver", Str: "none"},
			{Const: "ValueReceiver", Str: "value"},
			{Const: "RefReceiver", Str: "ref"},
			{Const: "MutRefReceiver", Str: "mut_ref"},
		},
	},
	{
		Type:  "GenericKind",
		Guard: "endGenericKinds",
		Doc:   "generic parameter kind",
		Values: []value{
			{Const: "TypeParam", Str: "type"},
			{Const: "ConstParam", Str: "const"},
			{Const: "LifetimeParam", Str: "lifetime"},
		},
	},
}

func main() {
	buf, err := os.ReadFile("internal/kindgen/kinds.tmpl")
	if err != nil {
		log.Fatal("reading template file:", err)
	}
	titleCaser := cases.Title(language.English)
	goName := func(s string) string {
		parts := strings.Split(s, "_")
		for i, p := range parts {
			parts[i] = titleCaser.String(p)
		}
		return strings.Join(parts, "")
	}
	tmpl := template.Must(template.New("kinds").
		Funcs(template.FuncMap{"goName": goName}).
		Parse(string(buf)))
	for i := range enums {
		for j := range enums[i].Values {
			if enums[i].Values[j].Const == "" {
				enums[i].Values[j].Const = goName(enums[i].Values[j].Str)
			}
		}
	}
	b := &bytes.Buffer{}
	if err = tmpl.Execute(b, enums); err != nil {
		log.Fatal("executing template:", err)
	}
	if buf, err = format.Source(b.Bytes()); err != nil {
		log.Fatal("formatting output:", err)
	}
	if err = os.WriteFile("kinds.go", buf, 0o644); err != nil {
		log.Fatal("writing go file:", err)
	}
}
