// Copyright 2025 the varlink authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idl

import "strings"

// CustomTypeKind distinguishes struct-like from enum-like custom type
// declarations (spec §4.G: "type Name (...) may be either struct-like or
// enum-like; mixed forms are an error").
type CustomTypeKind uint8

const (
	CustomObject CustomTypeKind = iota
	CustomEnum
)

// CustomTypeDecl is a top-level `type Name (...)` declaration.
type CustomTypeDecl struct {
	Name     string
	Kind     CustomTypeKind
	Fields   []Field  // set when Kind == CustomObject
	Variants []string // set when Kind == CustomEnum
	Comments []string
}

func (c CustomTypeDecl) String() string {
	switch c.Kind {
	case CustomEnum:
		return "type " + c.Name + " (" + strings.Join(c.Variants, ", ") + ")"
	default:
		parts := make([]string, len(c.Fields))
		for i, f := range c.Fields {
			parts[i] = f.Name + ": " + f.Type.String()
		}
		return "type " + c.Name + " (" + strings.Join(parts, ", ") + ")"
	}
}

// Method is a top-level `method Name(...) -> (...)` declaration.
type Method struct {
	Name     string
	Inputs   []Field
	Outputs  []Field
	Comments []string
}

func (m Method) String() string {
	in := make([]string, len(m.Inputs))
	for i, f := range m.Inputs {
		in[i] = f.Name + ": " + f.Type.String()
	}
	out := make([]string, len(m.Outputs))
	for i, f := range m.Outputs {
		out[i] = f.Name + ": " + f.Type.String()
	}
	return "method " + m.Name + "(" + strings.Join(in, ", ") + ") -> (" + strings.Join(out, ", ") + ")"
}

// Error is a top-level `error Name (...)` declaration.
type Error struct {
	Name     string
	Fields   []Field
	Comments []string
}

func (e Error) String() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Name + ": " + f.Type.String()
	}
	return "error " + e.Name + " (" + strings.Join(parts, ", ") + ")"
}

// MemberKind discriminates the three kinds of top-level interface
// member.
type MemberKind uint8

const (
	MemberCustomType MemberKind = iota
	MemberMethod
	MemberError
)

// Member is one top-level declaration inside an Interface, in source
// order.
type Member struct {
	Kind       MemberKind
	CustomType CustomTypeDecl
	Method     Method
	Error      Error
}

// Name returns the declared name of whichever variant m holds.
func (m Member) Name() string {
	switch m.Kind {
	case MemberCustomType:
		return m.CustomType.Name
	case MemberMethod:
		return m.Method.Name
	case MemberError:
		return m.Error.Name
	}
	return ""
}

func (m Member) String() string {
	switch m.Kind {
	case MemberCustomType:
		return m.CustomType.String()
	case MemberMethod:
		return m.Method.String()
	case MemberError:
		return m.Error.String()
	}
	return ""
}

// Comments returns whichever variant's attached comment lines.
func (m Member) Comments() []string {
	switch m.Kind {
	case MemberCustomType:
		return m.CustomType.Comments
	case MemberMethod:
		return m.Method.Comments
	case MemberError:
		return m.Error.Comments
	}
	return nil
}

// Interface is a fully parsed Varlink interface description: its
// reverse-domain name and members in declaration order.
type Interface struct {
	Name     string
	Members  []Member
	Comments []string
}

// Methods returns the interface's method members, in declaration order.
func (iface Interface) Methods() []Method {
	var out []Method
	for _, m := range iface.Members {
		if m.Kind == MemberMethod {
			out = append(out, m.Method)
		}
	}
	return out
}

// CustomTypes returns the interface's custom-type members, in
// declaration order.
func (iface Interface) CustomTypes() []CustomTypeDecl {
	var out []CustomTypeDecl
	for _, m := range iface.Members {
		if m.Kind == MemberCustomType {
			out = append(out, m.CustomType)
		}
	}
	return out
}

// Errors returns the interface's error members, in declaration order.
func (iface Interface) Errors() []Error {
	var out []Error
	for _, m := range iface.Members {
		if m.Kind == MemberError {
			out = append(out, m.Error)
		}
	}
	return out
}

// Render serializes the interface back to canonical IDL text, including
// attached comments. The round-trip through Parse is semantically, not
// byte, exact: whitespace is normalized and blank lines between members
// are always a single line (spec §4.G).
func (iface Interface) Render() string {
	var b strings.Builder
	for _, c := range iface.Comments {
		b.WriteString("# ")
		b.WriteString(c)
		b.WriteString("\n")
	}
	b.WriteString("interface ")
	b.WriteString(iface.Name)
	b.WriteString("\n")
	for _, m := range iface.Members {
		b.WriteString("\n")
		for _, c := range m.Comments() {
			b.WriteString("# ")
			b.WriteString(c)
			b.WriteString("\n")
		}
		b.WriteString(m.String())
		b.WriteString("\n")
	}
	return b.String()
}
