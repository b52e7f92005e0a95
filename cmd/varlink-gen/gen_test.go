// Copyright 2025 the varlink authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"strings"
	"testing"

	"code.hybscloud.com/varlink/idl"
)

// TestGenerateWidgets is the golden-fixture test for the generator: it
// parses testdata/widgets.varlink and checks the emitted Go source
// against testdata/widgets.golden, the snippets cmd/varlink-gen commits
// to guarantee it always produces for that interface.
func TestGenerateWidgets(t *testing.T) {
	src, err := os.ReadFile("testdata/widgets.varlink")
	if err != nil {
		t.Fatal(err)
	}
	iface, err := idl.ParseInterface(string(src))
	if err != nil {
		t.Fatalf("ParseInterface: %v", err)
	}
	if iface.Name != "com.example.widgets" {
		t.Fatalf("iface.Name = %q", iface.Name)
	}

	code, err := Generate(iface, "widgets")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	got := string(code)

	golden, err := os.ReadFile("testdata/widgets.golden")
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range strings.Split(strings.TrimSpace(string(golden)), "\n---\n") {
		if !strings.Contains(got, strings.TrimRight(want, "\n")) {
			t.Errorf("generated output missing expected fragment:\n%s\n\n--- full output ---\n%s", want, got)
		}
	}
}

func TestGenerateEmptyMethodIsUnit(t *testing.T) {
	iface, err := idl.ParseInterface("interface com.example.ping\n\nmethod Ping() -> ()\n")
	if err != nil {
		t.Fatal(err)
	}
	code, err := Generate(iface, "ping")
	if err != nil {
		t.Fatal(err)
	}
	got := string(code)
	if !strings.Contains(got, "Ping(ctx context.Context, params varlink.Unit) (varlink.Unit, error)") {
		t.Fatalf("expected a Unit-typed Ping method, got:\n%s", got)
	}
}
