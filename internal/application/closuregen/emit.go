package closuregen

import (
	"bytes"
	"fmt"
	"go/format"
	"strings"
	"text/template"

	"github.com/reglet-dev/glimpse/aot"
)

const fileTemplate = `// Code generated by glimpse closuregen {{.Version}}. DO NOT EDIT.

package {{.Package}}
{{if .Families}}
import (
	"github.com/reglet-dev/glimpse/aot"
{{- range .Imports}}
	{{.Alias}} "{{.Path}}"
{{- end}}
)

func init() {
{{- range .Families}}
	keep{{.Name}}()
{{- end}}
}
{{end}}{{range .Families}}
// keep{{.Name}} instantiates the {{.Name}} closures.
//
//go:noinline
func keep{{.Name}}() {
{{- range .Closures}}
	// {{join .Members ", "}}
	aot.Keep(aot.{{.Key}}())
{{- end}}
}
{{end}}`

var fileTmpl = template.Must(template.New("closures").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(fileTemplate))

type closureView struct {
	Key     string
	Members []string
}

type familyView struct {
	Name     aot.Family
	Closures []closureView
}

// emit renders and formats the file. Families appear in aot.Families
// order; closures within a family in key order.
func (g *Generator) emit(imports []importSpec, keys []string, entries map[string]*entry) ([]byte, error) {
	byFamily := make(map[aot.Family][]closureView)
	for _, k := range keys {
		e := entries[k]
		byFamily[e.family] = append(byFamily[e.family], closureView{Key: k, Members: e.members})
	}

	var families []familyView
	for _, f := range aot.Families {
		if cs := byFamily[f]; len(cs) > 0 {
			families = append(families, familyView{Name: f, Closures: cs})
		}
	}

	data := struct {
		Version  string
		Package  string
		Imports  []importSpec
		Families []familyView
	}{
		Version:  "v" + g.version.String(),
		Package:  g.cfg.Package,
		Imports:  imports,
		Families: families,
	}

	var buf bytes.Buffer
	if err := fileTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format source: %w", err)
	}
	return src, nil
}
