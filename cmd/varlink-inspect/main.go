// Package main implements varlink-inspect, a CLI that connects to a
// Varlink service's org.varlink.service interface and prints what
// GetInfo (and, if asked, GetInterfaceDescription) report.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"code.hybscloud.com/varlink"
	"code.hybscloud.com/varlink/idl"
	"code.hybscloud.com/varlink/varlinkservice"
)

func main() {
	app := &cli.App{
		Name:  "varlink-inspect",
		Usage: "inspect a running Varlink service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "socket",
				Usage:    "address to connect to, \"unix:<path>\" or \"tcp:<host:port>\"",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "interface",
				Usage: "if set, also print the parsed description of this interface",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "overall RPC timeout",
				Value: 5 * time.Second,
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	network, address, ok := strings.Cut(c.String("socket"), ":")
	if !ok {
		return fmt.Errorf("invalid -socket %q: want \"unix:<path>\" or \"tcp:<host:port>\"", c.String("socket"))
	}

	raw, err := net.Dial(network, address)
	if err != nil {
		return fmt.Errorf("dial %s %s: %w", network, address, err)
	}
	defer raw.Close()

	conn := varlink.NewConnection(varlink.NewNetSocket(raw))
	client := varlinkservice.NewClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
	defer cancel()

	info, err := client.GetInfo(ctx)
	if err != nil {
		return fmt.Errorf("GetInfo: %w", err)
	}
	fmt.Printf("vendor:     %s\n", info.Vendor)
	fmt.Printf("product:    %s\n", info.Product)
	fmt.Printf("version:    %s\n", info.Version)
	fmt.Printf("url:        %s\n", info.URL)
	fmt.Printf("interfaces: %s\n", strings.Join(info.Interfaces, ", "))

	name := c.String("interface")
	if name == "" {
		return nil
	}

	desc, err := client.GetInterfaceDescription(ctx, name)
	if err != nil {
		return fmt.Errorf("GetInterfaceDescription(%q): %w", name, err)
	}
	fmt.Printf("\n%s\n", desc.Description)

	iface, err := idl.ParseInterface(desc.Description)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: server's own description did not parse: %v\n", err)
		return nil
	}
	fmt.Printf("\nparsed: %d method(s), %d error(s), %d custom type(s)\n",
		len(iface.Methods()), len(iface.Errors()), len(iface.CustomTypes()))
	return nil
}
