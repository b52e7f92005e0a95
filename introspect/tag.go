// Copyright 2025 the varlink authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package introspect

import (
	"reflect"
	"strings"
)

// parseTag reads a field's `varlink:"name,doc=..."` tag, falling back to
// its `json:"name"` tag for the wire field name when no varlink tag is
// present — call parameter structs are already tagged for jsoniter, and
// introspection should describe the same name a Call actually sends.
// `varlink:"-"` (matching the stdlib json convention) excludes the field
// entirely.
func parseTag(sf reflect.StructField) (name, doc string, skip bool) {
	if tag, ok := sf.Tag.Lookup("varlink"); ok {
		if tag == "-" {
			return "", "", true
		}
		parts := strings.Split(tag, ",")
		name = parts[0]
		for _, p := range parts[1:] {
			if rest, ok := strings.CutPrefix(p, "doc="); ok {
				doc = rest
			}
		}
	}
	if name == "" {
		if jtag, ok := sf.Tag.Lookup("json"); ok {
			jname, _, _ := strings.Cut(jtag, ",")
			if jname != "" && jname != "-" {
				name = jname
			}
		}
	}
	return name, doc, false
}
