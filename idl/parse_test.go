// Copyright 2025 the varlink authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idl

import (
	"strings"
	"testing"
)

func TestParseTypePrimitives(t *testing.T) {
	cases := map[string]Kind{
		"bool":   Bool,
		"int":    Int,
		"float":  Float,
		"string": String,
		"object": Object,
	}
	for src, want := range cases {
		ty, err := ParseType(src)
		if err != nil {
			t.Fatalf("ParseType(%q): %v", src, err)
		}
		if ty.Kind != want {
			t.Errorf("ParseType(%q).Kind = %v, want %v", src, ty.Kind, want)
		}
	}
}

func TestParseTypeCustom(t *testing.T) {
	ty, err := ParseType("Person")
	if err != nil {
		t.Fatal(err)
	}
	if ty.Kind != Custom || ty.Name != "Person" {
		t.Fatalf("got %#v", ty)
	}
}

func TestParseTypeComposite(t *testing.T) {
	ty, err := ParseType("?int")
	if err != nil {
		t.Fatal(err)
	}
	if ty.Kind != Optional || ty.Elem.Kind != Int {
		t.Fatalf("got %#v", ty)
	}

	ty, err = ParseType("[]string")
	if err != nil {
		t.Fatal(err)
	}
	if ty.Kind != Array || ty.Elem.Kind != String {
		t.Fatalf("got %#v", ty)
	}

	ty, err = ParseType("[string]bool")
	if err != nil {
		t.Fatal(err)
	}
	if ty.Kind != Map || ty.Elem.Kind != Bool {
		t.Fatalf("got %#v", ty)
	}
}

func TestParseTypeNestedOptionalArray(t *testing.T) {
	ty, err := ParseType("?[]string")
	if err != nil {
		t.Fatal(err)
	}
	if ty.Kind != Optional || ty.Elem.Kind != Array || ty.Elem.Elem.Kind != String {
		t.Fatalf("got %#v", ty)
	}
}

func TestParseTypeInlineEnum(t *testing.T) {
	ty, err := ParseType("(one, two, three)")
	if err != nil {
		t.Fatal(err)
	}
	if ty.Kind != InlineEnum {
		t.Fatalf("got %#v", ty)
	}
	if got := strings.Join(ty.Variants, ","); got != "one,two,three" {
		t.Fatalf("variants = %v", ty.Variants)
	}
}

func TestParseTypeInlineStruct(t *testing.T) {
	ty, err := ParseType("(first: int, second: string)")
	if err != nil {
		t.Fatal(err)
	}
	if ty.Kind != InlineObject || len(ty.Fields) != 2 {
		t.Fatalf("got %#v", ty)
	}
	if ty.Fields[0].Name != "first" || ty.Fields[0].Type.Kind != Int {
		t.Fatalf("field0 = %#v", ty.Fields[0])
	}
	if ty.Fields[1].Name != "second" || ty.Fields[1].Type.Kind != String {
		t.Fatalf("field1 = %#v", ty.Fields[1])
	}
}

func TestParseTypeEmptyInlineIsObject(t *testing.T) {
	ty, err := ParseType("()")
	if err != nil {
		t.Fatal(err)
	}
	if ty.Kind != InlineObject || len(ty.Fields) != 0 {
		t.Fatalf("got %#v", ty)
	}
}

func TestParseMemberCustomType(t *testing.T) {
	m, err := ParseMember("type ServiceInfo (vendor: string, product: string, version: string)")
	if err != nil {
		t.Fatal(err)
	}
	if m.Name() != "ServiceInfo" {
		t.Fatalf("name = %q", m.Name())
	}
	if got, want := m.String(), "type ServiceInfo (vendor: string, product: string, version: string)"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestParseMemberEnumCustomType(t *testing.T) {
	m, err := ParseMember("type Color (red, green, blue)")
	if err != nil {
		t.Fatal(err)
	}
	if m.CustomType.Kind != CustomEnum {
		t.Fatalf("expected enum custom type, got %#v", m.CustomType)
	}
}

func TestParseMemberMethod(t *testing.T) {
	m, err := ParseMember("method GetInfo() -> (vendor: string, product: string)")
	if err != nil {
		t.Fatal(err)
	}
	if m.Name() != "GetInfo" || len(m.Method.Outputs) != 2 {
		t.Fatalf("got %#v", m)
	}
}

func TestParseMemberError(t *testing.T) {
	m, err := ParseMember("error InterfaceNotFound (interface: string)")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := m.String(), "error InterfaceNotFound (interface: string)"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestParseInterfaceRoundTrip(t *testing.T) {
	src := `interface org.example.test

# Returns service information.
method GetInfo() -> (vendor: string, product: string)

type State (idle, running, stopped)

error NotFound (id: string)
`
	iface, err := ParseInterface(src)
	if err != nil {
		t.Fatalf("ParseInterface: %v", err)
	}
	if iface.Name != "org.example.test" {
		t.Fatalf("name = %q", iface.Name)
	}
	if len(iface.Members) != 3 {
		t.Fatalf("members = %d, want 3", len(iface.Members))
	}
	if len(iface.Methods()) != 1 || iface.Methods()[0].Name != "GetInfo" {
		t.Fatalf("methods = %#v", iface.Methods())
	}
	if len(iface.Methods()[0].Comments) != 1 {
		t.Fatalf("expected the doc comment to attach to GetInfo, got %#v", iface.Methods()[0].Comments)
	}
	if len(iface.CustomTypes()) != 1 || iface.CustomTypes()[0].Kind != CustomEnum {
		t.Fatalf("custom types = %#v", iface.CustomTypes())
	}
	if len(iface.Errors()) != 1 || iface.Errors()[0].Name != "NotFound" {
		t.Fatalf("errors = %#v", iface.Errors())
	}

	rendered := iface.Render()
	reparsed, err := ParseInterface(rendered)
	if err != nil {
		t.Fatalf("re-parsing rendered output: %v\n%s", err, rendered)
	}
	if reparsed.Name != iface.Name || len(reparsed.Members) != len(iface.Members) {
		t.Fatalf("round trip mismatch: %#v vs %#v", reparsed, iface)
	}
}

func TestParseInterfaceRejectsMixedTypeDecl(t *testing.T) {
	_, err := ParseInterface("interface org.example.bad\n\ntype Bad (a: int, b)\n")
	if err == nil {
		t.Fatal("expected an error for a mixed struct/enum type declaration")
	}
}

func TestParseTypeRejectsTrailingInput(t *testing.T) {
	if _, err := ParseType("int garbage"); err == nil {
		t.Fatal("expected trailing input to be rejected")
	}
}
