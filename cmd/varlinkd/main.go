// Package main is the entry point for varlinkd, an example host process
// that serves org.varlink.service (and nothing else) over the socket
// named in its config file.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"os/signal"
	"strings"
	"syscall"

	"code.hybscloud.com/varlink"
	"code.hybscloud.com/varlink/internal/config"
	"code.hybscloud.com/varlink/internal/wire"
	"code.hybscloud.com/varlink/varlinkservice"
)

var errInvalidSocket = errors.New(`listen.socket must be "unix:<path>" or "tcp:<host:port>"`)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the varlinkd config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	network, address, err := splitSocket(cfg.Listen.Socket)
	if err != nil {
		log.Fatalf("invalid listen.socket %q: %v", cfg.Listen.Socket, err)
	}

	ln, err := net.Listen(network, address)
	if err != nil {
		log.Fatalf("listen on %s %s: %v", network, address, err)
	}

	svc := varlinkservice.New(varlinkservice.Info{
		Vendor:     cfg.Service.Vendor,
		Product:    cfg.Service.Product,
		Version:    cfg.Service.Version,
		URL:        cfg.Service.URL,
		Interfaces: []string{"org.varlink.service"},
	}, map[string]string{
		"org.varlink.service": varlinkservice.Description(),
	})

	srv := varlink.NewServer(ln, svc,
		varlink.WithCapacity(cfg.Server.Capacity),
		varlink.WithWireOptions(wireOptionsFor(cfg)...),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Printf("varlinkd listening on %s %s", network, address)
	if err := srv.Serve(ctx); err != nil && err != context.Canceled {
		log.Fatalf("server error: %v", err)
	}
}

// wireOptionsFor translates the config file's buffer tier into the
// wire.Option values NewServer forwards to every accepted connection.
// IdleTimeout is not a wire.Option and is not applied here; Server has
// no idle-timeout setting, so the value is parsed but has no effect.
func wireOptionsFor(cfg *config.ListenConfig) []wire.Option {
	var opts []wire.Option
	switch cfg.Buffer.Tier {
	case config.TierEmbedded:
		opts = append(opts, wire.WithEmbeddedTier())
	default:
		opts = append(opts, wire.WithHostedTier(wire.SizeHosted))
	}
	if cfg.Buffer.ReadLimit > 0 {
		opts = append(opts, wire.WithReadLimit(int64(cfg.Buffer.ReadLimit)))
	}
	return opts
}

// splitSocket parses a "unix:/path/to.sock" or "tcp:host:port" address
// into the (network, address) pair net.Listen expects.
func splitSocket(s string) (network, address string, err error) {
	network, address, ok := strings.Cut(s, ":")
	if !ok {
		return "", "", errInvalidSocket
	}
	return network, address, nil
}
