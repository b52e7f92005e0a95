// Copyright 2025 the varlink authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package proxy

import (
	"context"
	"net"
	"testing"
	"time"

	"code.hybscloud.com/varlink"
)

func pipeConnections() (*varlink.Connection, *varlink.Connection) {
	a, b := net.Pipe()
	return varlink.NewConnection(varlink.NewNetSocket(a)), varlink.NewConnection(varlink.NewNetSocket(b))
}

type pingParams struct {
	Text string `json:"text"`
}

type pongReply struct {
	Text string `json:"text"`
}

func TestCallRoundTrip(t *testing.T) {
	client, server := pipeConnections()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		call, err := server.Reader.ReceiveCall(ctx)
		if err != nil {
			t.Error(err)
			return
		}
		params, err := varlink.DecodeParameters[pingParams](call)
		if err != nil {
			t.Error(err)
			return
		}
		if err := varlink.SendReply(ctx, server.Writer, varlink.Reply[pongReply]{
			Parameters: pongReply{Text: "echo:" + params.Text},
		}); err != nil {
			t.Error(err)
		}
	}()

	got, err := Call[pingParams, pongReply, varlink.Unit](ctx, client, "com.example.Ping", pingParams{Text: "hi"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got.Text != "echo:hi" {
		t.Fatalf("got %+v", got)
	}
}

type exampleError struct {
	Reason string `json:"reason"`
}

func TestCallMethodError(t *testing.T) {
	client, server := pipeConnections()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		if _, err := server.Reader.ReceiveCall(ctx); err != nil {
			t.Error(err)
			return
		}
		if err := varlink.SendError(ctx, server.Writer, varlink.ReplyError[exampleError]{
			Name:       "com.example.NotReady",
			Parameters: exampleError{Reason: "warming up"},
		}); err != nil {
			t.Error(err)
		}
	}()

	_, err := Call[pingParams, pongReply, exampleError](ctx, client, "com.example.Ping", pingParams{Text: "hi"})
	if err == nil {
		t.Fatal("expected an error")
	}
	methodErr, ok := err.(*MethodError[exampleError])
	if !ok {
		t.Fatalf("err = %#v, want *MethodError[exampleError]", err)
	}
	if methodErr.Name != "com.example.NotReady" || methodErr.Parameters.Reason != "warming up" {
		t.Fatalf("methodErr = %+v", methodErr)
	}
}

func TestCallOneway(t *testing.T) {
	client, server := pipeConnections()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	received := make(chan pingParams, 1)
	go func() {
		call, err := server.Reader.ReceiveCall(ctx)
		if err != nil {
			t.Error(err)
			return
		}
		params, err := varlink.DecodeParameters[pingParams](call)
		if err != nil {
			t.Error(err)
			return
		}
		received <- params
	}()

	if err := CallOneway(ctx, client, "com.example.Notify", pingParams{Text: "fire"}); err != nil {
		t.Fatalf("CallOneway: %v", err)
	}

	select {
	case got := <-received:
		if got.Text != "fire" {
			t.Fatalf("got %+v", got)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for oneway call")
	}
}

func TestCallStreaming(t *testing.T) {
	client, server := pipeConnections()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		if _, err := server.Reader.ReceiveCall(ctx); err != nil {
			t.Error(err)
			return
		}
		for i, text := range []string{"one", "two", "three"} {
			if err := varlink.SendReply(ctx, server.Writer, varlink.Reply[pongReply]{
				Parameters: pongReply{Text: text},
				Continues:  i < 2,
			}); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	items, err := CallStreaming[pingParams, pongReply, varlink.Unit](ctx, client, "com.example.Countdown", pingParams{})
	if err != nil {
		t.Fatalf("CallStreaming: %v", err)
	}

	var got []string
	for item := range items {
		if item.Err != nil {
			t.Fatalf("item.Err = %v", item.Err)
		}
		got = append(got, item.Reply.Text)
	}
	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
