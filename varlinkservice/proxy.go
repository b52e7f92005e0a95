// Copyright 2025 the varlink authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package varlinkservice

import (
	"context"

	"code.hybscloud.com/varlink"
	"code.hybscloud.com/varlink/proxy"
)

// Client is the generated-shape client proxy for org.varlink.service,
// wrapping a *varlink.Connection the way cmd/varlink-gen emits one
// Client struct per interface (spec §4.F).
type Client struct {
	Conn *varlink.Connection
}

// NewClient wraps conn for calls against org.varlink.service.
func NewClient(conn *varlink.Connection) *Client {
	return &Client{Conn: conn}
}

// GetInfo calls org.varlink.service.GetInfo.
func (c *Client) GetInfo(ctx context.Context) (Info, error) {
	return proxy.Call[varlink.Unit, Info, varlink.Unit](ctx, c.Conn, interfaceName+".GetInfo", varlink.Unit{})
}

// GetInterfaceDescription calls org.varlink.service.GetInterfaceDescription.
func (c *Client) GetInterfaceDescription(ctx context.Context, name string) (InterfaceDescription, error) {
	return proxy.Call[getInterfaceDescriptionParams, InterfaceDescription, varlink.Unit](
		ctx, c.Conn, interfaceName+".GetInterfaceDescription",
		getInterfaceDescriptionParams{Interface: name},
	)
}
