// Copyright 2025 the varlink authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package introspect derives idl.Type fragments from Go types by
// reflection (spec §4.H). The source this was distilled from derives
// the equivalent mapping at compile time via a trait implemented per
// type; Go has no const-eval or trait impls to hang that on, so this
// package walks reflect.Type at first use and memoizes the result.
package introspect

import (
	"encoding/json"
	"net"
	"net/url"
	"reflect"
	"sync"
	"time"

	"code.hybscloud.com/varlink/idl"
)

var cache sync.Map // reflect.Type -> idl.Type

// byteSliceTyp, durationType, timeType, and the rest are the well-known
// types that map to something other than their reflect.Kind's default
// (spec §4.H: "Duration values map to float seconds. Paths, OS strings,
// network addresses, and external value types ... map to string").
var (
	durationType   = reflect.TypeOf(time.Duration(0))
	timeType       = reflect.TypeOf(time.Time{})
	urlType        = reflect.TypeOf(url.URL{})
	byteSliceTyp   = reflect.TypeOf([]byte(nil))
	rawMessageType = reflect.TypeOf(json.RawMessage(nil))
)

// netAddrType matches types with no better structural representation
// than their String() form: net.Addr is an interface, so compute checks
// it with Implements rather than by type equality.
var netAddrType = reflect.TypeOf((*net.Addr)(nil)).Elem()

// TypeOf derives the idl.Type fragment for t, memoizing the result. Call
// it with reflect.TypeOf(v) for some representative value v, or
// reflect.TypeFor[T]() for a Go 1.22+ compile-time type handle.
func TypeOf(t reflect.Type) idl.Type {
	if t == nil {
		return idl.InlineObjectOf()
	}
	if cached, ok := cache.Load(t); ok {
		return cached.(idl.Type)
	}
	computed := compute(t)
	cache.Store(t, computed)
	return computed
}

func compute(t reflect.Type) idl.Type {
	switch t {
	case durationType:
		return idl.FloatType
	case timeType, urlType:
		return idl.StringType
	case byteSliceTyp:
		return idl.StringType
	case rawMessageType:
		return idl.ObjectType
	}
	if t.Implements(netAddrType) {
		return idl.StringType
	}
	if t.Kind() == reflect.Array {
		if u, ok := underlyingUUID(t); ok {
			return u
		}
	}

	switch t.Kind() {
	case reflect.Bool:
		return idl.BoolType
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return idl.IntType
	case reflect.Float32, reflect.Float64:
		return idl.FloatType
	case reflect.String:
		return idl.StringType
	case reflect.Interface:
		// "any" / json.RawMessage-shaped escape hatches map to the
		// foreign untyped object.
		return idl.ObjectType
	case reflect.Pointer:
		return idl.OptionalOf(TypeOf(t.Elem()))
	case reflect.Slice, reflect.Array:
		return idl.ArrayOf(TypeOf(t.Elem()))
	case reflect.Map:
		if e := t.Elem(); e.Kind() == reflect.Struct && e.NumField() == 0 {
			// map[T]struct{} is Go's set idiom: a set of T.
			return idl.ArrayOf(TypeOf(t.Key()))
		}
		if t.Key().Kind() == reflect.String {
			return idl.MapOf(TypeOf(t.Elem()))
		}
		// A non-string-keyed map has no direct Varlink representation;
		// fall back to the foreign object escape hatch rather than
		// producing an invalid map type.
		return idl.ObjectType
	case reflect.Struct:
		return structType(t)
	default:
		return idl.ObjectType
	}
}

// structType derives an InlineObject (or the empty object for a
// zero-field struct, spec §4.H "the unit value") from a struct's
// exported fields, honoring a `varlink:"name,doc=..."` tag for renaming
// and documentation — reflection cannot see source comments, so the tag
// is this package's stand-in for the source's doc-comment-derived
// macro output.
func structType(t reflect.Type) idl.Type {
	var fields []idl.Field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, doc, skip := parseTag(sf)
		if skip {
			continue
		}
		if name == "" {
			name = lowerFirst(sf.Name)
		}
		field := idl.Field{Name: name, Type: TypeOf(sf.Type)}
		if doc != "" {
			field.Comments = []string{doc}
		}
		fields = append(fields, field)
	}
	return idl.InlineObjectOf(fields...)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}

// underlyingUUID recognizes the common named [16]byte UUID array shape
// (google/uuid and similar) and maps it to string, per spec §4.H.
func underlyingUUID(t reflect.Type) (idl.Type, bool) {
	if t.Name() != "UUID" {
		return idl.Type{}, false
	}
	if t.Kind() == reflect.Array && t.Elem().Kind() == reflect.Uint8 && t.Len() == 16 {
		return idl.StringType, true
	}
	return idl.Type{}, false
}
