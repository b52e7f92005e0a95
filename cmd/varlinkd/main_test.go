// Copyright 2025 the varlink authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"testing"

	"code.hybscloud.com/varlink/internal/config"
)

func TestWireOptionsForEmbeddedTier(t *testing.T) {
	cfg := &config.ListenConfig{}
	cfg.Buffer.Tier = config.TierEmbedded

	opts := wireOptionsFor(cfg)
	if len(opts) != 1 {
		t.Fatalf("expected exactly one option for embedded tier with no read limit, got %d", len(opts))
	}
}

func TestWireOptionsForHostedTierIsDefault(t *testing.T) {
	cfg := &config.ListenConfig{}
	cfg.Buffer.Tier = config.TierHosted

	opts := wireOptionsFor(cfg)
	if len(opts) != 1 {
		t.Fatalf("expected exactly one option for hosted tier with no read limit, got %d", len(opts))
	}
}

func TestWireOptionsForUnsetTierDefaultsToHosted(t *testing.T) {
	cfg := &config.ListenConfig{}

	opts := wireOptionsFor(cfg)
	if len(opts) != 1 {
		t.Fatalf("expected the zero-value tier to fall through to hosted, got %d options", len(opts))
	}
}

func TestWireOptionsForReadLimitAppendsAnOption(t *testing.T) {
	cfg := &config.ListenConfig{}
	cfg.Buffer.Tier = config.TierHosted
	cfg.Buffer.ReadLimit = 4096

	opts := wireOptionsFor(cfg)
	if len(opts) != 2 {
		t.Fatalf("expected a read-limit option to be appended, got %d options", len(opts))
	}
}

func TestSplitSocket(t *testing.T) {
	network, address, err := splitSocket("unix:/run/varlinkd.sock")
	if err != nil {
		t.Fatalf("splitSocket: %v", err)
	}
	if network != "unix" || address != "/run/varlinkd.sock" {
		t.Fatalf("splitSocket = %q, %q", network, address)
	}

	if _, _, err := splitSocket("no-colon-here"); err != errInvalidSocket {
		t.Fatalf("expected errInvalidSocket, got %v", err)
	}
}
