// Copyright 2025 the varlink authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package varlink

import (
	"context"

	jsoniter "github.com/json-iterator/go"
)

// Chain queues calls against a Connection, flushes them in one batched
// write, then reads back replies as an ordered sequence (spec §4.E). A
// Chain exclusively borrows the Connection for its lifetime: callers
// must not use the Connection directly (or a second Chain over it) until
// the ReplyStream returned by Send is fully drained.
//
// Chain is generic over a single reply-parameter type P and error type
// E, matching the source's "homogeneous" chain variant. For the
// heterogeneous variant — calls with differing reply shapes in one
// chain — instantiate Chain[jsoniter.RawMessage, jsoniter.RawMessage]
// (aliased as UntypedChain) and decode each reply's parameters
// yourself; both variants are kept per the spec's open question (§9).
type Chain[P any, E any] struct {
	conn *Connection

	callCount  int
	replyCount int

	// moreFlags[i] records whether the i-th non-oneway call in the
	// chain was sent with More==true, so the ReplyStream knows whether
	// to expect a run of Continues==true replies before the one that
	// closes out that call's slot in replyCount.
	moreFlags []bool
}

// UntypedChain is the heterogeneous chain variant: parameters and error
// payloads are left as raw JSON for the caller to decode per-call.
type UntypedChain = Chain[jsoniter.RawMessage, jsoniter.RawMessage]

// NewChain binds conn exclusively to a new, empty Chain.
func NewChain[P any, E any](conn *Connection) *Chain[P, E] {
	return &Chain[P, E]{conn: conn}
}

// NewUntypedChain binds conn exclusively to a new, empty UntypedChain.
func NewUntypedChain(conn *Connection) *UntypedChain {
	return NewChain[jsoniter.RawMessage, jsoniter.RawMessage](conn)
}

// Append enqueues c without flushing, incrementing replyCount unless c is
// oneway (spec §8 property 4: "reply_count for a chain containing only
// oneway calls is zero").
func (ch *Chain[P, E]) Append(c Call[P]) error {
	if err := EnqueueCall(ch.conn.Writer, c); err != nil {
		return err
	}
	ch.callCount++
	if !c.Oneway {
		ch.replyCount++
		ch.moreFlags = append(ch.moreFlags, c.More)
	}
	return nil
}

// CallCount returns the number of calls appended so far.
func (ch *Chain[P, E]) CallCount() int { return ch.callCount }

// ReplyCount returns the number of reply slots expected (excludes oneway
// calls).
func (ch *Chain[P, E]) ReplyCount() int { return ch.replyCount }

// Send flushes the batch and returns a ReplyStream over the connection's
// read half, sized to ReplyCount reply slots.
func (ch *Chain[P, E]) Send(ctx context.Context) (*ReplyStream[P, E], error) {
	if err := ch.conn.Writer.Flush(ctx); err != nil {
		return nil, err
	}
	return &ReplyStream[P, E]{
		rc:        ch.conn.Reader,
		remaining: ch.replyCount,
		moreFlags: ch.moreFlags,
	}, nil
}

// ReplyStream is a lazy, ordered sequence of a Chain's replies. Each call
// contributes exactly one entry; a streaming (more) call contributes a
// run of intermediate replies (Continues==true) followed by the one that
// closes out its entry. Errors close out a call's entry immediately,
// even mid-stream (spec §4.E).
type ReplyStream[P any, E any] struct {
	rc        *ReadConnection
	remaining int
	moreFlags []bool
	idx       int
	done      bool
}

// Next reads the next reply. ok is false once the stream is exhausted
// (either ReplyCount replies have been delivered, or a framing/IO error
// occurred — per spec §4.E "Exhaustion" — in which case err is non-nil
// and the stream must not be read further).
func (rs *ReplyStream[P, E]) Next(ctx context.Context) (reply *Reply[P], replyErr *ReplyError[E], svcErr *ServiceError, ok bool, err error) {
	if rs.done || rs.remaining <= 0 {
		return nil, nil, nil, false, nil
	}
	r, re, se, err := ReceiveReply[P, E](ctx, rs.rc)
	if err != nil {
		rs.done = true
		return nil, nil, nil, false, err
	}
	more := rs.idx < len(rs.moreFlags) && rs.moreFlags[rs.idx]
	if re != nil || se != nil {
		rs.remaining--
		rs.idx++
		return nil, re, se, true, nil
	}
	if more && r.Continues {
		// Intermediate reply of a streaming call: this call's slot in
		// replyCount is not yet consumed.
		return r, nil, nil, true, nil
	}
	rs.remaining--
	rs.idx++
	return r, nil, nil, true, nil
}

// Remaining reports how many reply-stream entries (not individual
// intermediate replies) are still outstanding.
func (rs *ReplyStream[P, E]) Remaining() int { return rs.remaining }
