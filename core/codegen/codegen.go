// Package codegen emits Go source holding one typed struct per
// concrete class of a resolved schema. Attribute fields carry the
// declared primitive type, pointer-typed when optional; relation
// fields are target id slices. The output is rendered through
// text/template and gofmt'd, so it drops into a consuming package
// as-is.
package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/cesdm/modelkit/core/schema"
)

// Options configure the generated file.
type Options struct {
	// Package is the package clause of the generated file, "bindings"
	// when empty.
	Package string
}

type fileData struct {
	Package string
	Structs []structData
}

type structData struct {
	TypeName string
	Class    string
	Doc      string
	Fields   []fieldData
}

type fieldData struct {
	Name    string
	GoType  string
	Tag     string
	Comment string
}

// Generate renders typed structs for every concrete class, in sorted
// class order. Abstract classes contribute their attributes through
// resolution but get no struct of their own.
func Generate(rs *schema.Resolved, opts Options) ([]byte, error) {
	pkg := opts.Package
	if pkg == "" {
		pkg = "bindings"
	}

	data := fileData{Package: pkg}
	usedTypes := map[string]bool{}
	for _, cname := range rs.Names() {
		ec, ok := rs.Class(cname)
		if !ok || ec.Abstract {
			continue
		}
		data.Structs = append(data.Structs, buildStruct(ec, usedTypes))
	}

	tmpl, err := template.New("bindings").Parse(bindingsTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format generated code: %w", err)
	}
	return formatted, nil
}

// Write renders the bindings and writes them to path, creating parent
// directories as needed.
func Write(rs *schema.Resolved, path string, opts Options) error {
	code, err := Generate(rs, opts)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, code, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// buildStruct flattens one resolved class into struct fields. The
// resolved attribute set already contains everything inherited, so the
// structs need no embedding; multi-parent merges would make embedded
// fields ambiguous anyway.
func buildStruct(ec *schema.EntityClass, usedTypes map[string]bool) structData {
	sd := structData{
		TypeName: uniqueName(goName(ec.Name), usedTypes),
		Class:    ec.Name,
		Doc:      oneLine(ec.Description),
	}

	used := map[string]bool{}
	sd.Fields = append(sd.Fields, fieldData{
		Name:    uniqueName("ID", used),
		GoType:  "string",
		Tag:     fieldTag("id", false),
		Comment: "entity id, unique across classes",
	})

	for _, an := range ec.AttributeNames() {
		ad := ec.Attributes[an]
		sd.Fields = append(sd.Fields, fieldData{
			Name:    uniqueName(goName(an), used),
			GoType:  goType(ad),
			Tag:     fieldTag(an, !ad.Required),
			Comment: attrComment(ad),
		})
	}

	for _, rn := range ec.RelationNames() {
		rd := ec.Relations[rn]
		sd.Fields = append(sd.Fields, fieldData{
			Name:    uniqueName(goName(rn), used),
			GoType:  "[]string",
			Tag:     fieldTag(rn, true),
			Comment: relComment(rd),
		})
	}
	return sd
}

func goType(ad schema.AttributeDef) string {
	var base string
	switch ad.Type {
	case schema.AttrFloat:
		base = "float64"
	case schema.AttrInteger:
		base = "int64"
	case schema.AttrBoolean:
		base = "bool"
	case schema.AttrString:
		base = "string"
	default:
		// declared types outside the primitive set stay dynamic
		return "any"
	}
	if !ad.Required {
		return "*" + base
	}
	return base
}

func fieldTag(name string, omitempty bool) string {
	v := name
	if omitempty {
		v += ",omitempty"
	}
	return fmt.Sprintf("`json:%q yaml:%q`", v, v)
}

func attrComment(ad schema.AttributeDef) string {
	if s := oneLine(ad.Description); s != "" {
		return s
	}
	if ref := ad.Constraints.Ref; ref != "" {
		return "id of a " + ref + " entity"
	}
	if len(ad.Constraints.Enum) > 0 {
		parts := make([]string, 0, len(ad.Constraints.Enum))
		for _, v := range ad.Constraints.Enum {
			parts = append(parts, fmt.Sprintf("%v", v))
		}
		return "one of: " + strings.Join(parts, ", ")
	}
	if u := ad.Unit.DefaultUnit(); u != "" {
		return "in " + u
	}
	return ""
}

func relComment(rd schema.RelationDef) string {
	if s := oneLine(rd.Description); s != "" {
		return s
	}
	if len(rd.Targets) > 0 {
		return "target ids of class " + strings.Join(rd.Targets, " or ")
	}
	return "target entity ids"
}

// goName converts a schema name to an exported Go identifier:
// non-alphanumeric runs separate words, each word is capitalized.
func goName(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	name := b.String()
	if name == "" {
		return "X"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "N" + name
	}
	return name
}

func uniqueName(name string, used map[string]bool) string {
	out := name
	for i := 2; used[out]; i++ {
		out = fmt.Sprintf("%s%d", name, i)
	}
	used[out] = true
	return out
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

const bindingsTemplate = `// Code generated by modelkit gen. DO NOT EDIT.

package {{.Package}}

{{range .Structs}}// {{.TypeName}} is the typed view of the {{.Class}} class.
{{- if .Doc}}
// {{.Doc}}
{{- end}}
type {{.TypeName}} struct {
{{- range .Fields}}
	{{.Name}} {{.GoType}} {{.Tag}}{{if .Comment}} // {{.Comment}}{{end}}
{{- end}}
}

{{end}}`
