// Copyright 2025 the varlink authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package varlink

import (
	"context"
	"sync/atomic"

	"code.hybscloud.com/varlink/internal/wire"
)

var nextConnID atomic.Uint64

// ctxReader adapts a ReadHalf to io.Reader by threading a context that
// the caller updates before each high-level operation. wire.Reader only
// needs the stdlib io.Reader shape; this is the seam where context
// cancellation enters the otherwise-synchronous framing layer.
type ctxReader struct {
	ctx context.Context
	rh  ReadHalf
}

func (r *ctxReader) Read(p []byte) (int, error) { return r.rh.Read(r.ctx, p) }

type ctxWriter struct {
	ctx context.Context
	wh  WriteHalf
	err error
}

func (w *ctxWriter) Write(p []byte) (int, error) {
	if err := w.wh.Write(w.ctx, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// ReadConnection is the read half of a Connection: a wire.Reader bound to
// a ReadHalf, plus the connection's shared ID for logging/correlation.
type ReadConnection struct {
	id  uint64
	src *ctxReader
	fr  *wire.Reader
}

// NewReadConnection wraps rh for framed message reads.
func NewReadConnection(rh ReadHalf, opts ...wire.Option) *ReadConnection {
	src := &ctxReader{ctx: context.Background(), rh: rh}
	return &ReadConnection{
		id:  nextConnID.Add(1),
		src: src,
		fr:  wire.NewReader(src, opts...),
	}
}

// ID returns the connection's process-unique, monotonically increasing
// identifier, useful for log correlation between the read and write
// halves of a split connection.
func (rc *ReadConnection) ID() uint64 { return rc.id }

// ReceiveCall reads and decodes the next call, without yet decoding its
// parameters into a concrete type (see RawCall).
func (rc *ReadConnection) ReceiveCall(ctx context.Context) (RawCall, error) {
	rc.src.ctx = ctx
	msg, err := rc.fr.ReadMessage()
	if err != nil {
		return RawCall{}, err
	}
	return DecodeRawCall(msg)
}

// ReceiveReply reads and decodes the next reply as a success Reply[P], a
// typed ReplyError[E], or a ServiceError (spec §4.C, §4.D).
func ReceiveReply[P any, E any](ctx context.Context, rc *ReadConnection) (*Reply[P], *ReplyError[E], *ServiceError, error) {
	rc.src.ctx = ctx
	msg, err := rc.fr.ReadMessage()
	if err != nil {
		return nil, nil, nil, err
	}
	return DecodeReply[P, E](msg)
}

// WriteConnection is the write half of a Connection: a wire.Writer bound
// to a WriteHalf.
type WriteConnection struct {
	id       uint64
	dst      *ctxWriter
	fw       *wire.Writer
	poisoned bool
}

// NewWriteConnection wraps wh for framed, batchable message writes.
func NewWriteConnection(wh WriteHalf, opts ...wire.Option) *WriteConnection {
	dst := &ctxWriter{ctx: context.Background(), wh: wh}
	return &WriteConnection{
		id:  nextConnID.Add(1),
		dst: dst,
		fw:  wire.NewWriter(dst, opts...),
	}
}

// ID returns the write half's process-unique identifier.
func (wc *WriteConnection) ID() uint64 { return wc.id }

// Poisoned reports whether a previous Flush (or SendCall/SendReply/
// SendError, which flush internally) failed; any Flush error poisons the
// write half, since part of the batch may already be on the wire. Per the spec's cancellation note, the write buffer is not
// reset on failure, so a retried Flush would re-send from byte 0; the
// only safe action is to drop the connection. Callers should check this
// before reusing a WriteConnection after any send error.
func (wc *WriteConnection) Poisoned() bool { return wc.poisoned }

func (wc *WriteConnection) enqueue(raw []byte) error {
	if wc.poisoned {
		return ErrConnectionPoisoned
	}
	return wc.fw.Enqueue(raw)
}

// Flush writes the accumulated batch in one call.
func (wc *WriteConnection) Flush(ctx context.Context) error {
	if wc.poisoned {
		return ErrConnectionPoisoned
	}
	wc.dst.ctx = ctx
	if err := wc.fw.Flush(); err != nil {
		wc.poisoned = true
		return err
	}
	return nil
}

// EnqueueCall appends c to the write buffer without flushing, for
// pipelined batches (see Chain).
func EnqueueCall[P any](wc *WriteConnection, c Call[P]) error {
	raw, err := EncodeCall(c)
	if err != nil {
		return err
	}
	return wc.enqueue(raw)
}

// SendCall enqueues and immediately flushes c.
func SendCall[P any](ctx context.Context, wc *WriteConnection, c Call[P]) error {
	if err := EnqueueCall(wc, c); err != nil {
		return err
	}
	return wc.Flush(ctx)
}

// SendReply enqueues and flushes a success reply.
func SendReply[P any](ctx context.Context, wc *WriteConnection, r Reply[P]) error {
	raw, err := EncodeReply(r)
	if err != nil {
		return err
	}
	if err := wc.enqueue(raw); err != nil {
		return err
	}
	return wc.Flush(ctx)
}

// SendError enqueues and flushes an error reply.
func SendError[E any](ctx context.Context, wc *WriteConnection, e ReplyError[E]) error {
	raw, err := EncodeReplyError(e)
	if err != nil {
		return err
	}
	if err := wc.enqueue(raw); err != nil {
		return err
	}
	return wc.Flush(ctx)
}

// Connection pairs a ReadConnection and a WriteConnection that share the
// same underlying Socket and ID (spec §4.D).
type Connection struct {
	id     uint64
	sock   Socket
	Reader *ReadConnection
	Writer *WriteConnection
}

// NewConnection splits sock and wraps both halves.
func NewConnection(sock Socket, opts ...wire.Option) *Connection {
	rh, wh := sock.Split()
	rc := NewReadConnection(rh, opts...)
	wc := NewWriteConnection(wh, opts...)
	wc.id = rc.id
	return &Connection{id: rc.id, sock: sock, Reader: rc, Writer: wc}
}

// ID returns the connection's process-unique identifier.
func (c *Connection) ID() uint64 { return c.id }

// Split moves the read and write halves out of c independently. c itself
// must not be used afterward.
func (c *Connection) Split() (*ReadConnection, *WriteConnection) {
	return c.Reader, c.Writer
}

// Join reconstructs a Connection from previously split halves. The
// halves must have originated from the same Socket; Join does not
// verify this.
func Join(rc *ReadConnection, wc *WriteConnection) *Connection {
	return &Connection{id: rc.id, Reader: rc, Writer: wc}
}

// SendCall enqueues and flushes a parameterless call to method on the
// connection's write half.
func (conn *Connection) SendCall(ctx context.Context, method string) error {
	return SendCall(ctx, conn.Writer, Call[Unit]{Method: method})
}

// CallMethod sends a non-streaming call with typed parameters P and
// awaits one reply of type RP or typed error E (spec §4.D convenience
// helper "call_method").
func CallMethod[P any, RP any, E any](ctx context.Context, conn *Connection, c Call[P]) (*Reply[RP], *ReplyError[E], *ServiceError, error) {
	if err := SendCall(ctx, conn.Writer, c); err != nil {
		return nil, nil, nil, err
	}
	if c.Oneway {
		return nil, nil, nil, nil
	}
	return ReceiveReply[RP, E](ctx, conn.Reader)
}
