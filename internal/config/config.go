// Copyright 2025 the varlink authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads the configuration for the varlink example host
// binaries (cmd/varlinkd). The core varlink package itself never reads
// environment variables or config files; it takes functional Options.
// This layering — file first, then environment overrides — exists only
// for the standalone example servers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// BufferTier selects how a connection's read/write buffers grow, the
// config-file-shaped mirror of wire.WithEmbeddedTier/wire.WithHostedTier.
type BufferTier string

const (
	TierEmbedded BufferTier = "embedded"
	TierHosted   BufferTier = "hosted"
)

// ListenConfig is the top-level configuration for cmd/varlinkd.
type ListenConfig struct {
	Listen struct {
		// Socket is a "unix:/path/to.sock" or "tcp:host:port" address.
		Socket string `koanf:"socket"`
	} `koanf:"listen"`

	Buffer struct {
		Tier      BufferTier `koanf:"tier"`
		ReadLimit int        `koanf:"read_limit"`
		// IdleTimeout is accepted for forward compatibility with a
		// future per-connection idle-disconnect policy; Server has no
		// such policy today; cmd/varlinkd does not apply it.
		IdleTimeout time.Duration `koanf:"idle_timeout"`
	} `koanf:"buffer"`

	Server struct {
		Capacity int `koanf:"capacity"`
	} `koanf:"server"`

	Service struct {
		Vendor  string `koanf:"vendor"`
		Product string `koanf:"product"`
		Version string `koanf:"version"`
		URL     string `koanf:"url"`
	} `koanf:"service"`
}

// Load reads configuration from a YAML file at path, layers VARLINKD_-
// prefixed environment variable overrides on top, and returns a fully
// populated ListenConfig.
func Load(path string) (*ListenConfig, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}

	if err := k.Load(env.Provider("VARLINKD_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "VARLINKD_")),
			"_", ".",
		)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg ListenConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if cfg.Server.Capacity == 0 {
		cfg.Server.Capacity = 16
	}
	if cfg.Buffer.Tier == "" {
		cfg.Buffer.Tier = TierHosted
	}
	return &cfg, nil
}
