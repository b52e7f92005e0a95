// Copyright 2025 the varlink authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"unicode"

	"code.hybscloud.com/varlink/idl"
)

// pascalCase converts a lower_snake, lowerCamel, or already-Pascal IDL
// identifier into a Go exported identifier.
func pascalCase(name string) string {
	var b strings.Builder
	upperNext := true
	for _, r := range name {
		if r == '_' || r == '-' {
			upperNext = true
			continue
		}
		if upperNext {
			b.WriteRune(unicode.ToUpper(r))
			upperNext = false
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// goType renders the Go type that represents an idl.Type, and — for
// Custom/InlineObject/InlineEnum shapes the generator can't express
// inline — the list of auxiliary named types that must also be emitted.
func goType(t idl.Type, hint string) (string, []namedType) {
	switch t.Kind {
	case idl.Bool:
		return "bool", nil
	case idl.Int:
		return "int64", nil
	case idl.Float:
		return "float64", nil
	case idl.String:
		return "string", nil
	case idl.Object:
		return "any", nil
	case idl.Optional:
		inner, aux := goType(*t.Elem, hint)
		return "*" + inner, aux
	case idl.Array:
		inner, aux := goType(*t.Elem, hint)
		return "[]" + inner, aux
	case idl.Map:
		inner, aux := goType(*t.Elem, hint)
		return "map[string]" + inner, aux
	case idl.Custom:
		return pascalCase(t.Name), nil
	case idl.InlineEnum:
		name := hint + "Enum"
		return name, []namedType{{Name: name, Enum: enumConsts(name, t.Variants)}}
	case idl.InlineObject:
		if len(t.Fields) == 0 {
			return "varlink.Unit", nil
		}
		name := hint
		fields, aux := goFields(t.Fields, hint)
		return name, append(aux, namedType{Name: name, Fields: fields})
	default:
		return "any", nil
	}
}

// goField is one emitted Go struct field. Exported so the generator's
// text/template can reach it by name.
type goField struct {
	GoName  string
	GoType  string
	JSONTag string
	Doc     string
}

// namedType is an auxiliary type (inline struct, inline enum, or
// declared-error payload) hoisted out to its own top-level declaration
// because Go cannot express any of those as an unnamed type the way
// IDL's inline syntax does. Fields are exported so the generator's
// text/template (which works by reflection) can reach them.
type namedType struct {
	Name     string
	Fields   []goField
	Enum     []enumConst
	IsCustom bool
	Kind     idl.CustomTypeKind
	// ErrorName is the declared error's wire name ("iface.ErrorName")
	// when this namedType is a per-declared-error payload type; empty
	// otherwise. Non-empty triggers Error()/ErrorName() method emission.
	ErrorName string
}

// enumConst is one Go const declaration for an inline or named enum
// variant: GoName is the exported identifier, Value its wire string.
type enumConst struct {
	GoName string
	Value  string
}

func enumConsts(typeName string, variants []string) []enumConst {
	out := make([]enumConst, len(variants))
	for i, v := range variants {
		out[i] = enumConst{GoName: typeName + pascalCase(v), Value: v}
	}
	return out
}

func goFields(fields []idl.Field, hintPrefix string) ([]goField, []namedType) {
	var out []goField
	var aux []namedType
	for _, f := range fields {
		goName := pascalCase(f.Name)
		typ, a := goType(f.Type, hintPrefix+goName)
		aux = append(aux, a...)
		doc := ""
		if len(f.Comments) > 0 {
			doc = strings.Join(f.Comments, " ")
		}
		out = append(out, goField{GoName: goName, GoType: typ, JSONTag: f.Name, Doc: doc})
	}
	return out, aux
}

// methodData is the template view of one interface method.
type methodData struct {
	WireName   string // "iface.MethodName"
	GoName     string
	ParamsType string
	ReplyType  string
	ErrorType  string
}

// fileData is the complete template view of one generated file.
type fileData struct {
	Package       string
	InterfaceName string
	CustomTypes   []namedType
	ParamTypes    []namedType
	Methods       []methodData
	// ErrorType is the name of the combined error-payload type threaded
	// through every method's generated E type parameter, or "" when the
	// interface declares no errors (methods then use varlink.Unit).
	ErrorType string
}

// Generate renders the complete Go source for iface into package pkg.
func Generate(iface idl.Interface, pkg string) ([]byte, error) {
	fd := fileData{Package: pkg, InterfaceName: iface.Name}

	seen := map[string]bool{}
	addNamed := func(nt namedType) {
		if seen[nt.Name] {
			return
		}
		seen[nt.Name] = true
		fd.ParamTypes = append(fd.ParamTypes, nt)
	}

	for _, ct := range iface.CustomTypes() {
		if ct.Kind == idl.CustomEnum {
			goName := pascalCase(ct.Name)
			fd.CustomTypes = append(fd.CustomTypes, namedType{Name: goName, Enum: enumConsts(goName, ct.Variants), IsCustom: true, Kind: ct.Kind})
			continue
		}
		fields, aux := goFields(ct.Fields, pascalCase(ct.Name))
		for _, a := range aux {
			addNamed(a)
		}
		fd.CustomTypes = append(fd.CustomTypes, namedType{Name: pascalCase(ct.Name), Fields: fields, IsCustom: true, Kind: ct.Kind})
	}

	for _, m := range iface.Methods() {
		goName := pascalCase(m.Name)
		md := methodData{WireName: iface.Name + "." + m.Name, GoName: goName}

		if len(m.Inputs) > 0 {
			paramsName := goName + "Params"
			fields, aux := goFields(m.Inputs, paramsName)
			for _, a := range aux {
				addNamed(a)
			}
			addNamed(namedType{Name: paramsName, Fields: fields})
			md.ParamsType = paramsName
		} else {
			md.ParamsType = "varlink.Unit"
		}

		if len(m.Outputs) > 0 {
			replyName := goName + "Reply"
			fields, aux := goFields(m.Outputs, replyName)
			for _, a := range aux {
				addNamed(a)
			}
			addNamed(namedType{Name: replyName, Fields: fields})
			md.ReplyType = replyName
		} else {
			md.ReplyType = "varlink.Unit"
		}

		fd.Methods = append(fd.Methods, md)
	}

	// Varlink error declarations are interface-scoped, not per-method:
	// any method may return any of the interface's declared errors. A
	// single combined payload type (the union of every declared error's
	// fields, deduplicated by wire name) is threaded through every
	// method's E type parameter, alongside a dedicated named type per
	// declared error that a Backend can return directly to pick an
	// exact wire name.
	declaredErrors := iface.Errors()
	sort.Slice(declaredErrors, func(i, j int) bool { return declaredErrors[i].Name < declaredErrors[j].Name })

	if len(declaredErrors) > 0 {
		unionName := pascalCase(lastSegment(iface.Name)) + "Error"
		seenField := map[string]bool{}
		var unionFields []goField
		for _, e := range declaredErrors {
			errGoName := pascalCase(e.Name) + "Error"
			fields, aux := goFields(e.Fields, pascalCase(e.Name))
			for _, a := range aux {
				addNamed(a)
			}
			addNamed(namedType{Name: errGoName, Fields: fields, ErrorName: iface.Name + "." + e.Name})
			for _, f := range fields {
				if seenField[f.JSONTag] {
					continue
				}
				seenField[f.JSONTag] = true
				unionFields = append(unionFields, f)
			}
		}
		addNamed(namedType{Name: unionName, Fields: unionFields})
		fd.ErrorType = unionName
	}

	for i := range fd.Methods {
		if fd.ErrorType != "" {
			fd.Methods[i].ErrorType = fd.ErrorType
		} else {
			fd.Methods[i].ErrorType = "varlink.Unit"
		}
	}

	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, fd); err != nil {
		return nil, fmt.Errorf("varlink-gen: executing template: %w", err)
	}
	return buf.Bytes(), nil
}

var fileTemplate = template.Must(template.New("file").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`// Code generated by varlink-gen from {{.InterfaceName}}. DO NOT EDIT.

package {{.Package}}

import (
	"context"

	"code.hybscloud.com/varlink"
	"code.hybscloud.com/varlink/proxy"
)

const interfaceName = "{{.InterfaceName}}"
{{range .CustomTypes}}{{$tname := .Name}}
{{if .Enum}}// {{.Name}} is the {{$.InterfaceName}} enum custom type.
type {{.Name}} string

const (
{{range .Enum}}	{{.GoName}} {{$tname}} = "{{.Value}}"
{{end}})
{{else}}// {{.Name}} is a custom type declared by {{$.InterfaceName}}.
type {{.Name}} struct {
{{range .Fields}}	{{.GoName}} {{.GoType}} ` + "`json:\"{{.JSONTag}}\"`" + `{{if .Doc}} // {{.Doc}}{{end}}
{{end}}}
{{end}}{{end}}
{{range .ParamTypes}}{{if .ErrorName}}// {{.Name}} is the payload of the {{.ErrorName}} error.
type {{.Name}} struct {
{{range .Fields}}	{{.GoName}} {{.GoType}} ` + "`json:\"{{.JSONTag}}\"`" + `{{if .Doc}} // {{.Doc}}{{end}}
{{end}}}

func (e *{{.Name}}) Error() string     { return "{{.ErrorName}}" }
func (e *{{.Name}}) ErrorName() string { return "{{.ErrorName}}" }
{{else}}// {{.Name}} is a generated parameter/reply type.
type {{.Name}} struct {
{{range .Fields}}	{{.GoName}} {{.GoType}} ` + "`json:\"{{.JSONTag}}\"`" + `{{if .Doc}} // {{.Doc}}{{end}}
{{end}}}
{{end}}{{end}}
// Service dispatches {{.InterfaceName}} method calls to a Backend.
type Service struct {
	Backend Backend
}

// Backend implements the methods {{.InterfaceName}} declares. A Backend
// method may return a *varlink.ServiceError, one of this interface's
// generated per-error types (e.g. by its ErrorName() method), or any
// other error (reported as org.varlink.service.InvalidParameter).
type Backend interface {
{{range .Methods}}	{{.GoName}}(ctx context.Context, params {{.ParamsType}}) ({{.ReplyType}}, error)
{{end}}}

func (s *Service) Handle(ctx context.Context, call varlink.RawCall) varlink.Outcome {
	switch call.Method {
{{range .Methods}}	case interfaceName + ".{{.GoName}}":
		params, err := varlink.DecodeParameters[{{.ParamsType}}](call)
		if err != nil {
			return varlink.ErrorOutcome(varlink.InvalidParameter.String(), nil)
		}
		reply, err := s.Backend.{{.GoName}}(ctx, params)
		if err != nil {
			if se, ok := err.(*varlink.ServiceError); ok {
				return varlink.ErrorOutcome(se.Kind.String(), nil)
			}
			if named, ok := err.(interface{ ErrorName() string }); ok {
				return varlink.ErrorOutcome(named.ErrorName(), err)
			}
			return varlink.ErrorOutcome(varlink.InvalidParameter.String(), nil)
		}
		return varlink.ReplyOutcome(reply)
{{end}}	default:
		return varlink.ErrorOutcome(varlink.MethodNotFound.String(), map[string]string{"method": call.Method})
	}
}

// Client is the generated client proxy for {{.InterfaceName}}.
type Client struct {
	Conn *varlink.Connection
}

// NewClient wraps conn for calls against {{.InterfaceName}}.
func NewClient(conn *varlink.Connection) *Client {
	return &Client{Conn: conn}
}
{{range .Methods}}
// {{.GoName}} calls {{.WireName}}.{{if $.ErrorType}} A declared-error reply
// decodes as *proxy.MethodError[{{.ErrorType}}].{{end}}
func (c *Client) {{.GoName}}(ctx context.Context, params {{.ParamsType}}) ({{.ReplyType}}, error) {
	return proxy.Call[{{.ParamsType}}, {{.ReplyType}}, {{.ErrorType}}](ctx, c.Conn, interfaceName+".{{.GoName}}", params)
}
{{end}}
`))
