// Copyright 2025 the varlink authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package idl models the Varlink interface description language: the
// type system, interface members (custom types, methods, errors), and a
// parser/renderer between the model and canonical IDL text (spec §4.G).
package idl

import "strings"

// Kind discriminates the closed set of IDL type shapes (spec §3/§4.G).
// Go has no tagged-enum derive, so Type carries a Kind plus only the
// fields that shape actually uses.
type Kind uint8

const (
	Bool Kind = iota
	Int
	Float
	String
	Object
	Optional
	Array
	Map
	Custom
	InlineEnum
	InlineObject
)

// Type is one IDL type: a primitive, a named custom-type reference, a
// container (Optional/Array/Map) wrapping an inner Type, or an inline
// enum/object.
type Type struct {
	Kind Kind

	// Elem is the wrapped type for Optional, Array, and Map.
	Elem *Type

	// Name is the referenced custom type's name, set only for Custom.
	Name string

	// Variants holds the bare variant names of an InlineEnum.
	Variants []string

	// Fields holds the named, typed members of an InlineObject.
	Fields []Field
}

// Field is one named, typed member of a struct-like custom type, a
// method's input/output parameter list, or an inline object type.
type Field struct {
	Name     string
	Type     Type
	Comments []string
}

// String renders t as canonical IDL type syntax.
func (t Type) String() string {
	switch t.Kind {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Object:
		return "object"
	case Optional:
		return "?" + t.Elem.String()
	case Array:
		return "[]" + t.Elem.String()
	case Map:
		return "[string]" + t.Elem.String()
	case Custom:
		return t.Name
	case InlineEnum:
		return "(" + strings.Join(t.Variants, ", ") + ")"
	case InlineObject:
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = f.Name + ": " + f.Type.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	return "?unknown?"
}

// BoolType, IntType, FloatType, StringType, and ObjectType are the five
// primitive types as ready-made values, since they carry no payload.
var (
	BoolType   = Type{Kind: Bool}
	IntType    = Type{Kind: Int}
	FloatType  = Type{Kind: Float}
	StringType = Type{Kind: String}
	ObjectType = Type{Kind: Object}
)

// OptionalOf, ArrayOf, and MapOf construct container types.
func OptionalOf(elem Type) Type { return Type{Kind: Optional, Elem: &elem} }
func ArrayOf(elem Type) Type    { return Type{Kind: Array, Elem: &elem} }
func MapOf(elem Type) Type      { return Type{Kind: Map, Elem: &elem} }

// CustomRef constructs a reference to a custom type by name.
func CustomRef(name string) Type { return Type{Kind: Custom, Name: name} }

// InlineEnumOf constructs an inline enum type from bare variant names.
func InlineEnumOf(variants ...string) Type {
	return Type{Kind: InlineEnum, Variants: variants}
}

// InlineObjectOf constructs an inline object type from fields.
func InlineObjectOf(fields ...Field) Type {
	return Type{Kind: InlineObject, Fields: fields}
}
