// Command varlink-gen reads a Varlink interface description and emits a
// Go client/service package for it (spec §4.F).
package main

import (
	"flag"
	"fmt"
	"os"

	"code.hybscloud.com/varlink/idl"
)

func main() {
	pkg := flag.String("pkg", "", "generated package name (default: derived from the interface's last reverse-domain segment)")
	out := flag.String("out", "", "output file path (default: stdout)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: varlink-gen [-pkg name] [-out file.go] <interface.varlink>")
		os.Exit(2)
	}

	src, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "varlink-gen: %v\n", err)
		os.Exit(1)
	}

	iface, err := idl.ParseInterface(string(src))
	if err != nil {
		fmt.Fprintf(os.Stderr, "varlink-gen: %v\n", err)
		os.Exit(1)
	}

	pkgName := *pkg
	if pkgName == "" {
		pkgName = lastSegment(iface.Name)
	}

	code, err := Generate(iface, pkgName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "varlink-gen: %v\n", err)
		os.Exit(1)
	}

	if *out == "" {
		os.Stdout.Write(code)
		return
	}
	if err := os.WriteFile(*out, code, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "varlink-gen: %v\n", err)
		os.Exit(1)
	}
}

// lastSegment returns the final dot-separated component of a Varlink
// interface name, e.g. "org.example.widgets" -> "widgets".
func lastSegment(name string) string {
	last := name
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			last = name[i+1:]
			break
		}
	}
	return last
}
