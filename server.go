// Copyright 2025 the varlink authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package varlink

import (
	"context"
	"log"
	"net"
	"reflect"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"code.hybscloud.com/varlink/internal/wire"
)

// defaultCapacity is the fixed cap on concurrent connections (spec §4.I:
// "up to a fixed cap (16 connections)").
const defaultCapacity = 16

// ServerOption configures a Server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	capacity int
	wireOpts []wire.Option
}

// WithCapacity overrides the default 16-connection cap.
func WithCapacity(n int) ServerOption {
	return func(o *serverOptions) { o.capacity = n }
}

// WithWireOptions forwards buffer-tier/read-limit options to every
// connection the Server accepts.
func WithWireOptions(opts ...wire.Option) ServerOption {
	return func(o *serverOptions) { o.wireOpts = append(o.wireOpts, opts...) }
}

type connState uint8

const (
	stateReading connState = iota
	stateStreaming
)

// connSlot is one entry of the server's stable-index connection table.
// Index stability (rather than the teacher's own unsafe raw-pointer
// reborrow, §9) is how this implementation sidesteps holding borrows of
// readers/reply_streams while also mutating the table on the Accept
// branch: the table is only ever touched by the single dispatch
// goroutine, so there is nothing to borrow-check in the first place.
type connSlot struct {
	id    uint64
	conn  *Connection
	state connState

	callCh chan RawCall
	errCh  chan error

	streamCh <-chan StreamItem
}

// Server owns a listener and a user-supplied Service, fair-multiplexing
// many concurrent connections and reply streams on one dispatch goroutine
// (spec §4.I, §5).
type Server struct {
	listener net.Listener
	service  Service
	opts     serverOptions
}

// NewServer constructs a Server. Connections are accepted from listener
// (any net.Listener: Unix, TCP, ...) and dispatched to service.
func NewServer(listener net.Listener, service Service, opts ...ServerOption) *Server {
	o := serverOptions{capacity: defaultCapacity}
	for _, fn := range opts {
		fn(&o)
	}
	return &Server{listener: listener, service: service, opts: o}
}

// Serve runs the dispatch loop until ctx is cancelled, the listener
// fails unrecoverably, or a connection arrives while the capacity is
// exhausted (ErrServerCapacityExceeded). Per-connection errors are logged and drop only
// that connection; Serve itself keeps running.
func (s *Server) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(s.opts.capacity))

	acceptCh := make(chan net.Conn)
	acceptErrCh := make(chan error, 1)
	fatalErrCh := make(chan error, 1)

	g.Go(func() error {
		for {
			c, err := s.listener.Accept()
			if err != nil {
				select {
				case acceptErrCh <- err:
				case <-gctx.Done():
				}
				return nil
			}
			select {
			case acceptCh <- c:
			case <-gctx.Done():
				_ = c.Close()
				return nil
			}
		}
	})

	var slots []*connSlot
	var lastReader, lastStream int

	releaseSlot := func(idx int) {
		sem.Release(1)
		slots[idx] = nil
	}

	doAccept := func(raw net.Conn) {
		if !sem.TryAcquire(1) {
			log.Printf("varlink: capacity exceeded, rejecting connection from %s", raw.RemoteAddr())
			_ = raw.Close()
			select {
			case fatalErrCh <- ErrServerCapacityExceeded:
			default:
			}
			return
		}
		sock := NewNetSocket(raw)
		conn := NewConnection(sock, s.opts.wireOpts...)
		slot := &connSlot{
			id:     conn.ID(),
			conn:   conn,
			state:  stateReading,
			callCh: make(chan RawCall, 64),
			errCh:  make(chan error, 1),
		}
		if idx := firstFreeIndex(slots); idx >= 0 {
			slots[idx] = slot
		} else {
			slots = append(slots, slot)
		}
		go readLoop(gctx, slot)
	}

	handleCall := func(idx int, call RawCall) {
		slot := slots[idx]
		outcome := s.service.Handle(ctx, call)
		switch outcome.Kind {
		case OutcomeReply:
			if !call.Oneway {
				if err := SendReply[any](ctx, slot.conn.Writer, Reply[any]{Parameters: outcome.ReplyParams}); err != nil {
					log.Printf("varlink: conn %d: write reply: %v", slot.id, err)
					releaseSlot(idx)
				}
			}
		case OutcomeError:
			if !call.Oneway {
				if err := SendError[any](ctx, slot.conn.Writer, ReplyError[any]{Name: outcome.ErrorName, Parameters: outcome.ErrorParams}); err != nil {
					log.Printf("varlink: conn %d: write error reply: %v", slot.id, err)
					releaseSlot(idx)
				}
			}
		case OutcomeStream:
			slot.state = stateStreaming
			slot.streamCh = outcome.Stream
		}
	}

	handleStreamItem := func(idx int, item StreamItem, ok bool) {
		slot := slots[idx]
		if !ok {
			// Producer closed without a terminal item; treat as end of
			// stream so the connection doesn't wedge.
			slot.state = stateReading
			slot.streamCh = nil
			return
		}
		var err error
		if item.IsError {
			err = SendError[any](ctx, slot.conn.Writer, ReplyError[any]{Name: item.ErrorName, Parameters: item.ErrorParams})
		} else {
			err = SendReply[any](ctx, slot.conn.Writer, Reply[any]{Parameters: item.Params, Continues: item.Continues})
		}
		if err != nil {
			log.Printf("varlink: conn %d: write stream reply: %v", slot.id, err)
			releaseSlot(idx)
			return
		}
		if item.IsError || !item.Continues {
			slot.state = stateReading
			slot.streamCh = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			_ = s.listener.Close()
			_ = g.Wait()
			return ctx.Err()
		case err := <-acceptErrCh:
			_ = g.Wait()
			return err
		case err := <-fatalErrCh:
			_ = s.listener.Close()
			_ = g.Wait()
			return err
		case raw := <-acceptCh:
			doAccept(raw)
			continue
		default:
		}

		if idx, call, ok := pollReaders(slots, lastReader); ok {
			lastReader = idx
			handleCall(idx, call)
			continue
		}
		if idx, errc, ok := pollReaderErrors(slots); ok {
			log.Printf("varlink: conn %d: %v", slots[idx].id, errc)
			_ = slots[idx].conn.Writer.Flush(ctx)
			releaseSlot(idx)
			continue
		}
		if idx, item, ok, present := pollStreams(slots, lastStream); present {
			lastStream = idx
			handleStreamItem(idx, item, ok)
			continue
		}

		if ok, err := blockUntilReady(gctx, slots, acceptCh, acceptErrCh, fatalErrCh, doAccept, handleCall, handleStreamItem); !ok {
			_ = s.listener.Close()
			_ = g.Wait()
			if err != nil {
				return err
			}
			return gctx.Err()
		}
	}
}

func firstFreeIndex(slots []*connSlot) int {
	for i, s := range slots {
		if s == nil {
			return i
		}
	}
	return -1
}

func readLoop(ctx context.Context, slot *connSlot) {
	for {
		call, err := slot.conn.Reader.ReceiveCall(ctx)
		if err != nil {
			slot.errCh <- err
			close(slot.errCh)
			return
		}
		select {
		case slot.callCh <- call:
		case <-ctx.Done():
			return
		}
	}
}

// pollReaders scans active (stateReading) slots starting one past last,
// round-robin, for a buffered decoded call, without blocking.
func pollReaders(slots []*connSlot, last int) (idx int, call RawCall, ok bool) {
	n := len(slots)
	for i := 1; i <= n; i++ {
		j := (last + i) % n
		slot := slots[j]
		if slot == nil || slot.state != stateReading {
			continue
		}
		select {
		case c := <-slot.callCh:
			return j, c, true
		default:
		}
	}
	return 0, RawCall{}, false
}

func pollReaderErrors(slots []*connSlot) (idx int, err error, ok bool) {
	for j, slot := range slots {
		if slot == nil {
			continue
		}
		select {
		case e := <-slot.errCh:
			return j, e, true
		default:
		}
	}
	return 0, nil, false
}

// pollStreams scans active (stateStreaming) slots starting one past
// last, round-robin, for a produced StreamItem, without blocking.
// present reports whether any streaming slot exists at all (needed to
// distinguish "nothing ready" from "nothing to poll").
func pollStreams(slots []*connSlot, last int) (idx int, item StreamItem, ok bool, present bool) {
	n := len(slots)
	for i := 1; i <= n; i++ {
		j := (last + i) % n
		slot := slots[j]
		if slot == nil || slot.state != stateStreaming {
			continue
		}
		select {
		case it, chOk := <-slot.streamCh:
			return j, it, chOk, true
		default:
		}
	}
	return 0, StreamItem{}, false, false
}

// blockUntilReady waits for the first of: ctx cancellation, a new
// accepted connection, an accept-loop error, a fatal server error
// (capacity exhaustion), a reader's next call, a reader's terminal
// error, or a stream's next item — then handles that one event directly
// (the value is already consumed by reflect.Select, so it cannot be
// re-polled). Returns ok=false when the loop must stop; err is the
// unrecoverable error that stopped it, or nil for plain ctx cancellation.
//
// This is the Go-idiomatic answer to "select! over a dynamic set of
// futures" (spec §9): Go's native select requires a statically known
// case list, so a dynamically sized connection table must go through
// reflect.Select instead — the same reason the standard library itself
// documents reflect.Select for exactly this situation.
func blockUntilReady(
	ctx context.Context,
	slots []*connSlot,
	acceptCh <-chan net.Conn,
	acceptErrCh <-chan error,
	fatalErrCh <-chan error,
	doAccept func(net.Conn),
	handleCall func(int, RawCall),
	handleStreamItem func(int, StreamItem, bool),
) (ok bool, err error) {
	type caseKind uint8
	const (
		kindDone caseKind = iota
		kindAccept
		kindAcceptErr
		kindFatalErr
		kindCall
		kindStream
	)

	cases := []reflect.SelectCase{
		{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())},
		{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(acceptCh)},
		{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(acceptErrCh)},
		{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(fatalErrCh)},
	}
	kinds := []caseKind{kindDone, kindAccept, kindAcceptErr, kindFatalErr}
	idxs := []int{-1, -1, -1, -1}

	for j, slot := range slots {
		if slot == nil {
			continue
		}
		if slot.state == stateReading {
			cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(slot.callCh)})
			kinds = append(kinds, kindCall)
			idxs = append(idxs, j)
		} else {
			cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(slot.streamCh)})
			kinds = append(kinds, kindStream)
			idxs = append(idxs, j)
		}
	}

	chosen, value, recvOK := reflect.Select(cases)
	switch kinds[chosen] {
	case kindDone:
		return false, nil
	case kindAccept:
		if recvOK {
			doAccept(value.Interface().(net.Conn))
		}
	case kindAcceptErr:
		if recvOK {
			return false, value.Interface().(error)
		}
		return false, nil
	case kindFatalErr:
		if recvOK {
			return false, value.Interface().(error)
		}
		return false, nil
	case kindCall:
		if recvOK {
			handleCall(idxs[chosen], value.Interface().(RawCall))
		} else {
			// errCh will also fire; nothing to do here.
		}
	case kindStream:
		if !recvOK {
			handleStreamItem(idxs[chosen], StreamItem{}, false)
		} else {
			handleStreamItem(idxs[chosen], value.Interface().(StreamItem), true)
		}
	}
	return true, nil
}
