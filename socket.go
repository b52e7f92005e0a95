// Copyright 2025 the varlink authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package varlink

import (
	"context"
	"io"
	"net"
	"time"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock and ErrMore are re-exported from iox so that non-blocking
// Socket implementations can be written against this package alone,
// mirroring the teacher's own package-level aliasing of the same two
// control-flow signals. The default NetSocket never produces them.
var (
	ErrWouldBlock = iox.ErrWouldBlock
	ErrMore       = iox.ErrMore
)

// Socket is a reliable ordered byte stream that can be split into
// independent read and write halves, per spec §4.A.
type Socket interface {
	Split() (ReadHalf, WriteHalf)
}

// ReadHalf is the read side of a split Socket.
type ReadHalf interface {
	// Read follows io.Reader conventions: the end of the stream is
	// reported as io.EOF, and 0, nil is not a valid EOF signal.
	Read(ctx context.Context, p []byte) (n int, err error)
}

// WriteHalf is the write side of a split Socket.
type WriteHalf interface {
	// Write writes all of p or fails; callers never need to retry a
	// partial write themselves.
	Write(ctx context.Context, p []byte) error
}

// NetSocket adapts any net.Conn (TCP, Unix stream, Unix seqpacket, or an
// in-memory net.Pipe) to Socket. It is the default, always-blocking
// transport: read and write calls block the calling goroutine rather
// than returning ErrWouldBlock, which is the idiomatic Go substitute for
// the source's single-task cooperative-yield model (§4.A, §5) — a
// blocking call on its own goroutine is itself a suspension point.
type NetSocket struct {
	conn net.Conn
}

// NewNetSocket wraps conn.
func NewNetSocket(conn net.Conn) *NetSocket { return &NetSocket{conn: conn} }

// Split returns read and write halves sharing the same net.Conn. Both
// halves honor ctx deadlines by calling SetReadDeadline/SetWriteDeadline
// before each operation.
func (s *NetSocket) Split() (ReadHalf, WriteHalf) {
	return &netReadHalf{conn: s.conn}, &netWriteHalf{conn: s.conn}
}

// Close closes the underlying net.Conn.
func (s *NetSocket) Close() error { return s.conn.Close() }

type netReadHalf struct{ conn net.Conn }

func (r *netReadHalf) Read(ctx context.Context, p []byte) (int, error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = r.conn.SetReadDeadline(dl)
	} else {
		_ = r.conn.SetReadDeadline(time.Time{})
	}
	n, err := r.conn.Read(p)
	if err == io.EOF {
		return n, io.EOF
	}
	return n, err
}

type netWriteHalf struct{ conn net.Conn }

func (w *netWriteHalf) Write(ctx context.Context, p []byte) error {
	if dl, ok := ctx.Deadline(); ok {
		_ = w.conn.SetWriteDeadline(dl)
	} else {
		_ = w.conn.SetWriteDeadline(time.Time{})
	}
	n, err := w.conn.Write(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return io.ErrShortWrite
	}
	return nil
}
