// Copyright 2025 the varlink authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package varlink

import "context"

// OutcomeKind distinguishes the three shapes a Service.Handle call can
// resolve to, mirroring the teacher's small-closed-enum style (Protocol
// uint8 + a method in options.go).
type OutcomeKind uint8

const (
	// OutcomeReply is a single terminal reply (written with
	// continues:false).
	OutcomeReply OutcomeKind = iota
	// OutcomeError is a single terminal error reply.
	OutcomeError
	// OutcomeStream hands the connection's reply-writing duties to a
	// StreamItem channel until it closes.
	OutcomeStream
)

// StreamItem is one element of an OutcomeStream's reply channel: either
// a success reply (with Continues indicating whether more will follow)
// or a terminal error that ends the stream.
type StreamItem struct {
	Params      any
	Continues   bool
	IsError     bool
	ErrorName   string
	ErrorParams any
}

// Outcome is the closed sum a Service.Handle call returns: a single
// reply, a single error, or a reply stream (spec §4.J "MethodReply").
type Outcome struct {
	Kind OutcomeKind

	ReplyParams any

	ErrorName   string
	ErrorParams any

	Stream <-chan StreamItem
}

// ReplyOutcome constructs a single terminal-reply Outcome.
func ReplyOutcome(params any) Outcome {
	return Outcome{Kind: OutcomeReply, ReplyParams: params}
}

// ErrorOutcome constructs a single terminal-error Outcome.
func ErrorOutcome(name string, params any) Outcome {
	return Outcome{Kind: OutcomeError, ErrorName: name, ErrorParams: params}
}

// StreamOutcome constructs a streaming Outcome from an already-running
// producer channel.
func StreamOutcome(items <-chan StreamItem) Outcome {
	return Outcome{Kind: OutcomeStream, Stream: items}
}

// Service is the pluggable server-side request handler (spec §4.J). The
// server never calls Handle again for a given connection until the
// previous call's reply (or reply stream) has fully completed, so an
// implementation may freely hold a mutable receiver across a response —
// the dispatcher gives it exclusive access to the connection for the
// call's whole lifetime.
//
// Handle receives a RawCall rather than a generic closed sum type: Go
// has no tagged-enum macros to derive a sealed "all methods this service
// accepts" type, so generated per-interface services (see package
// varlinkservice for the org.varlink.service example) type-switch on
// RawCall.Method themselves and decode RawCall.Parameters into the
// concrete per-method type before doing real work.
type Service interface {
	Handle(ctx context.Context, call RawCall) Outcome
}

// ServiceFunc adapts a plain function to Service.
type ServiceFunc func(ctx context.Context, call RawCall) Outcome

func (f ServiceFunc) Handle(ctx context.Context, call RawCall) Outcome { return f(ctx, call) }

// StateStream publishes values to its consumer one item per Push, in
// order — the "subscribe to changes" helper described in spec §4.J. It
// holds no current value to replay: the consumer (Chan or AsOutcome)
// observes only values pushed after it starts reading, plus whatever is
// still buffered.
type StateStream[T any] struct {
	ch chan T
}

// NewStateStream constructs an empty StateStream. Because Go channels
// support only a single consumer group fairly, StateStream here models
// the single-subscriber "one reply stream per call" use case the server
// dispatcher actually drives — each call to a streaming method owns its
// own StateStream instance.
func NewStateStream[T any]() *StateStream[T] {
	return &StateStream[T]{ch: make(chan T, 16)}
}

// Push publishes a new value without blocking the producer: if the
// subscriber's buffer is full, the oldest unread value is discarded to
// make room — state notifications are inherently last-value-wins for a
// slow consumer.
func (s *StateStream[T]) Push(v T) {
	for {
		select {
		case s.ch <- v:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// Close signals no further transitions will be published.
func (s *StateStream[T]) Close() { close(s.ch) }

// Chan exposes the underlying channel for iteration.
func (s *StateStream[T]) Chan() <-chan T { return s.ch }

// AsOutcome adapts the stream into an Outcome via toItem, which maps each
// published T to a StreamItem (Continues should be true for every
// element except possibly the last).
func (s *StateStream[T]) AsOutcome(toItem func(T) StreamItem) Outcome {
	out := make(chan StreamItem)
	go func() {
		defer close(out)
		for v := range s.ch {
			out <- toItem(v)
		}
	}()
	return StreamOutcome(out)
}

// OnceReply delivers exactly one deferred reply — the async-completed-
// work helper described in spec §4.J (the "jump" example).
type OnceReply[T any] struct {
	ch chan T
}

// NewOnceReply constructs an empty OnceReply.
func NewOnceReply[T any]() *OnceReply[T] {
	return &OnceReply[T]{ch: make(chan T, 1)}
}

// Complete delivers v. Calling Complete more than once panics, matching
// the "exactly one" contract.
func (o *OnceReply[T]) Complete(v T) {
	o.ch <- v
	close(o.ch)
}

// AsOutcome adapts the eventual value into a single-item terminal
// OutcomeStream.
func (o *OnceReply[T]) AsOutcome(toItem func(T) StreamItem) Outcome {
	out := make(chan StreamItem, 1)
	go func() {
		defer close(out)
		v, ok := <-o.ch
		if !ok {
			return
		}
		item := toItem(v)
		item.Continues = false
		out <- item
	}()
	return StreamOutcome(out)
}
