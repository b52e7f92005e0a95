// Copyright 2025 the varlink authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package introspect

import (
	"reflect"

	"code.hybscloud.com/varlink/idl"
)

// CustomTypeOf derives a named idl.CustomTypeDecl for a Go struct type,
// for use in a GetInterfaceDescription response or a generated
// interface's custom-type list (spec §4.H "custom types additionally
// carry their declared name").
//
// Go enums have no reflectable variant set — unlike the source's derive
// macro, which sees every unit variant of a Rust enum at compile time,
// a `type Status string` with package-level const values is
// indistinguishable by reflection from any other string. Enum-shaped
// custom types are therefore built by hand with EnumCustomType rather
// than derived here; see varlinkservice for the pattern generated code
// follows.
func CustomTypeOf(t reflect.Type) idl.CustomTypeDecl {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	ty := TypeOf(t)
	return idl.CustomTypeDecl{
		Name:   t.Name(),
		Kind:   idl.CustomObject,
		Fields: ty.Fields,
	}
}

// EnumCustomType builds a named enum-like custom type declaration from
// an explicit variant list, the manual counterpart to CustomTypeOf for
// the enum case reflection cannot derive.
func EnumCustomType(name string, variants ...string) idl.CustomTypeDecl {
	return idl.CustomTypeDecl{Name: name, Kind: idl.CustomEnum, Variants: variants}
}
