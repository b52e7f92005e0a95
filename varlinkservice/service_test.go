// Copyright 2025 the varlink authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package varlinkservice

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"code.hybscloud.com/varlink"
	"code.hybscloud.com/varlink/idl"
)

func pipeConnections() (*varlink.Connection, *varlink.Connection) {
	a, b := net.Pipe()
	return varlink.NewConnection(varlink.NewNetSocket(a)), varlink.NewConnection(varlink.NewNetSocket(b))
}

func TestServiceGetInfo(t *testing.T) {
	client, server := pipeConnections()
	svc := New(Info{
		Vendor:     "Example Corp",
		Product:    "exampled",
		Version:    "1.0",
		URL:        "https://example.com",
		Interfaces: []string{"org.varlink.service", "com.example.widgets"},
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		call, err := server.Reader.ReceiveCall(ctx)
		require.NoError(t, err)
		outcome := svc.Handle(ctx, call)
		require.Equal(t, varlink.OutcomeReply, outcome.Kind)
		require.NoError(t, varlink.SendReply(ctx, server.Writer, varlink.Reply[Info]{Parameters: outcome.ReplyParams.(Info)}))
	}()

	c := NewClient(client)
	info, err := c.GetInfo(ctx)
	require.NoError(t, err)
	require.Equal(t, "Example Corp", info.Vendor)
	require.Equal(t, []string{"org.varlink.service", "com.example.widgets"}, info.Interfaces)
}

func TestServiceGetInterfaceDescriptionNotFound(t *testing.T) {
	client, server := pipeConnections()
	svc := New(Info{}, map[string]string{"com.example.widgets": "interface com.example.widgets\n"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		call, err := server.Reader.ReceiveCall(ctx)
		require.NoError(t, err)
		outcome := svc.Handle(ctx, call)
		require.Equal(t, varlink.OutcomeError, outcome.Kind)
		require.NoError(t, varlink.SendError(ctx, server.Writer, varlink.ReplyError[any]{
			Name:       outcome.ErrorName,
			Parameters: outcome.ErrorParams,
		}))
	}()

	c := NewClient(client)
	_, err := c.GetInterfaceDescription(ctx, "com.example.missing")
	require.Error(t, err)

	var svcErr *varlink.ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, varlink.InterfaceNotFound, svcErr.Kind)
	require.Equal(t, "com.example.missing", svcErr.Interface)
}

func TestServiceGetInterfaceDescriptionFound(t *testing.T) {
	client, server := pipeConnections()
	svc := New(Info{}, map[string]string{"com.example.widgets": "interface com.example.widgets\n"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		call, err := server.Reader.ReceiveCall(ctx)
		require.NoError(t, err)
		outcome := svc.Handle(ctx, call)
		require.Equal(t, varlink.OutcomeReply, outcome.Kind)
		require.NoError(t, varlink.SendReply(ctx, server.Writer, varlink.Reply[InterfaceDescription]{
			Parameters: outcome.ReplyParams.(InterfaceDescription),
		}))
	}()

	c := NewClient(client)
	desc, err := c.GetInterfaceDescription(ctx, "com.example.widgets")
	require.NoError(t, err)
	require.Equal(t, "interface com.example.widgets\n", desc.Description)
}

func TestServiceUnknownMethod(t *testing.T) {
	svc := New(Info{}, nil)
	outcome := svc.Handle(context.Background(), varlink.RawCall{Method: "com.example.widgets.Spin"})
	require.Equal(t, varlink.OutcomeError, outcome.Kind)
	require.Equal(t, varlink.MethodNotFound.String(), outcome.ErrorName)
}

func TestDescriptionRendersSelf(t *testing.T) {
	text := Description()
	require.Contains(t, text, "interface org.varlink.service")
	require.Contains(t, text, "method GetInfo")
	require.Contains(t, text, "method GetInterfaceDescription")
	require.Contains(t, text, "error InterfaceNotFound")

	iface, err := idl.ParseInterface(text)
	require.NoError(t, err)
	require.Equal(t, interfaceName, iface.Name)
	require.Len(t, iface.Methods(), 2)
	require.Len(t, iface.Errors(), 6)
}
