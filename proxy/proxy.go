// Copyright 2025 the varlink authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package proxy holds the hand-written generic runtime helpers that
// cmd/varlink-gen's generated client code calls into (spec §4.F). Go has
// no macro system to inline the call/decode boilerplate at the call
// site the way the source's proc-macro-generated proxy trait does, so
// that boilerplate lives here once, shared by every generated method.
//
// Each generated client method is a thin wrapper that hands its method
// name and parameters to Call — mirroring the teacher's own
// NewReader/NewWriter constructors being thin wrappers over newFramer.
// The generator emits only single-reply methods; CallStreaming,
// CallOneway, and StartChain are for hand-written callers.
package proxy

import (
	"context"
	"fmt"

	"code.hybscloud.com/varlink"
)

// MethodError wraps a declared interface error reply (spec §4.C
// "ReplyError"), giving it an error-interface presence so callers can
// treat it uniformly with any other Go error via errors.As.
type MethodError[E any] struct {
	Name       string
	Parameters E
}

func (e *MethodError[E]) Error() string {
	return fmt.Sprintf("varlink: %s: %+v", e.Name, e.Parameters)
}

// Call performs a single non-streaming method call and returns its
// decoded reply parameters. The source's "two-layer result" (outer for
// connection/protocol failure, inner for a declared method error)
// collapses to a single Go error return: a *MethodError[E] for a
// declared error, a *varlink.ServiceError for one of the six canonical
// framework errors, or any other error for a connection/protocol
// failure — exactly what errors.As is for.
func Call[P any, RP any, E any](ctx context.Context, conn *varlink.Connection, method string, params P) (RP, error) {
	var zero RP
	call := varlink.Call[P]{Method: method, Parameters: params}
	reply, replyErr, svcErr, err := varlink.CallMethod[P, RP, E](ctx, conn, call)
	if err != nil {
		return zero, err
	}
	if svcErr != nil {
		return zero, svcErr
	}
	if replyErr != nil {
		return zero, &MethodError[E]{Name: replyErr.Name, Parameters: replyErr.Parameters}
	}
	return reply.Parameters, nil
}

// CallOneway sends a fire-and-forget call: no reply is expected or read
// back (spec §4.C "oneway").
func CallOneway[P any](ctx context.Context, conn *varlink.Connection, method string, params P) error {
	call := varlink.Call[P]{Method: method, Parameters: params, Oneway: true}
	return varlink.SendCall(ctx, conn.Writer, call)
}

// Item is one element of a streaming method's reply sequence: either a
// decoded intermediate/terminal reply, or a terminal error that ends the
// stream — the client-side counterpart of varlink.StreamItem.
type Item[RP any, E any] struct {
	Reply     RP
	Continues bool
	Err       error // non-nil exactly for the terminal element of an errored stream
}

// CallStreaming sends a "more"-flagged call and returns a channel of
// decoded replies, closed once a terminal (Continues==false) reply or an
// error has been delivered (spec §4.C "more").
func CallStreaming[P any, RP any, E any](ctx context.Context, conn *varlink.Connection, method string, params P) (<-chan Item[RP, E], error) {
	call := varlink.Call[P]{Method: method, Parameters: params, More: true}
	if err := varlink.SendCall(ctx, conn.Writer, call); err != nil {
		return nil, err
	}
	out := make(chan Item[RP, E])
	go func() {
		defer close(out)
		for {
			reply, replyErr, svcErr, err := varlink.ReceiveReply[RP, E](ctx, conn.Reader)
			if err != nil {
				out <- Item[RP, E]{Err: err}
				return
			}
			if svcErr != nil {
				out <- Item[RP, E]{Err: svcErr}
				return
			}
			if replyErr != nil {
				out <- Item[RP, E]{Err: &MethodError[E]{Name: replyErr.Name, Parameters: replyErr.Parameters}}
				return
			}
			out <- Item[RP, E]{Reply: reply.Parameters, Continues: reply.Continues}
			if !reply.Continues {
				return
			}
		}
	}()
	return out, nil
}

// StartChain returns a new Chain exclusively bound to conn, the entry
// point for a pipelined "chain_<method>" sequence (spec §4.E). A chain
// is extended with ch.Append(varlink.Call[P]{...}), so only the
// constructor lives here; cmd/varlink-gen emits no chain builders.
func StartChain[P any, E any](conn *varlink.Connection) *varlink.Chain[P, E] {
	return varlink.NewChain[P, E](conn)
}
