// Copyright 2025 the varlink authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package varlink

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// startServer listens on an ephemeral TCP port, starts a Server over svc,
// and returns a dialer plus a cleanup func. Using a real net.Listener
// (rather than net.Pipe, which has no Listener) exercises Server.Serve's
// accept path the way a real deployment does.
func startServer(t *testing.T, svc Service) (dial func() *Connection, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer(ln, svc)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	dial = func() *Connection {
		conn, err := net.Dial("tcp", ln.Addr().String())
		require.NoError(t, err)
		return NewConnection(NewNetSocket(conn))
	}
	stop = func() {
		cancel()
		<-done
	}
	return dial, stop
}

type addParams struct {
	A int `json:"a"`
	B int `json:"b"`
}

type sumReply struct {
	Result int `json:"result"`
}

// TestServerSimpleCallReply is scenario 1 from spec §8.
func TestServerSimpleCallReply(t *testing.T) {
	svc := ServiceFunc(func(ctx context.Context, call RawCall) Outcome {
		require.Equal(t, "org.example.test.Add", call.Method)
		p, err := DecodeParameters[addParams](call)
		require.NoError(t, err)
		return ReplyOutcome(sumReply{Result: p.A + p.B})
	})
	dial, stop := startServer(t, svc)
	defer stop()

	conn := dial()
	defer conn.Writer.Flush(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reply, replyErr, svcErr, err := CallMethod[addParams, sumReply, Unit](ctx, conn, Call[addParams]{
		Method:     "org.example.test.Add",
		Parameters: addParams{A: 10, B: 5},
	})
	require.NoError(t, err)
	require.Nil(t, replyErr)
	require.Nil(t, svcErr)
	require.Equal(t, 15, reply.Parameters.Result)
}

// TestServerOnewayNoReply is scenario 2 from spec §8: no bytes come back
// for a oneway call, and the service still observes it.
func TestServerOnewayNoReply(t *testing.T) {
	observed := make(chan bool, 1)
	svc := ServiceFunc(func(ctx context.Context, call RawCall) Outcome {
		observed <- call.Oneway
		return ReplyOutcome(Unit{})
	})
	dial, stop := startServer(t, svc)
	defer stop()

	conn := dial()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := SendCall(ctx, conn.Writer, Call[Unit]{Method: "org.example.X", Oneway: true})
	require.NoError(t, err)

	select {
	case oneway := <-observed:
		require.True(t, oneway)
	case <-ctx.Done():
		t.Fatal("server never observed the oneway call")
	}

	// No reply should ever arrive: a subsequent read must time out
	// rather than return bytes.
	readCtx, readCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer readCancel()
	_, err = conn.Reader.ReceiveCall(readCtx)
	require.Error(t, err)
}

type subID struct {
	ID int `json:"id"`
}

// TestServerStreamingReplies is scenario 3 from spec §8.
func TestServerStreamingReplies(t *testing.T) {
	svc := ServiceFunc(func(ctx context.Context, call RawCall) Outcome {
		require.True(t, call.More)
		out := make(chan StreamItem, 3)
		out <- StreamItem{Params: subID{ID: 1}, Continues: true}
		out <- StreamItem{Params: subID{ID: 2}, Continues: true}
		out <- StreamItem{Params: subID{ID: 3}, Continues: false}
		close(out)
		return StreamOutcome(out)
	})
	dial, stop := startServer(t, svc)
	defer stop()

	conn := dial()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, SendCall(ctx, conn.Writer, Call[Unit]{Method: "org.example.Sub", More: true}))

	var ids []int
	for i := 0; i < 3; i++ {
		reply, replyErr, svcErr, err := ReceiveReply[subID, Unit](ctx, conn.Reader)
		require.NoError(t, err)
		require.Nil(t, replyErr)
		require.Nil(t, svcErr)
		ids = append(ids, reply.Parameters.ID)
		if i < 2 {
			require.True(t, reply.Continues)
		} else {
			require.False(t, reply.Continues)
		}
	}
	require.Equal(t, []int{1, 2, 3}, ids)
}

type idParams struct {
	ID int `json:"id"`
}

// TestServerPipelinedHeterogeneousChain is scenario 4 from spec §8.
func TestServerPipelinedHeterogeneousChain(t *testing.T) {
	svc := ServiceFunc(func(ctx context.Context, call RawCall) Outcome {
		p, err := DecodeParameters[idParams](call)
		require.NoError(t, err)
		return ReplyOutcome(idParams{ID: p.ID})
	})
	dial, stop := startServer(t, svc)
	defer stop()

	conn := dial()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ch := NewChain[idParams, Unit](conn)
	require.NoError(t, ch.Append(Call[idParams]{Method: "org.example.GetUser", Parameters: idParams{ID: 1}}))
	require.NoError(t, ch.Append(Call[idParams]{Method: "org.example.GetProject", Parameters: idParams{ID: 2}}))

	stream, err := ch.Send(ctx)
	require.NoError(t, err)

	var got []int
	for {
		r, re, se, ok, err := stream.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		require.Nil(t, re)
		require.Nil(t, se)
		got = append(got, r.Parameters.ID)
	}
	require.Equal(t, []int{1, 2}, got)
}

type notFoundError struct {
	Message string `json:"message"`
}

// TestServerDeclaredErrorReply is scenario 5 from spec §8.
func TestServerDeclaredErrorReply(t *testing.T) {
	svc := ServiceFunc(func(ctx context.Context, call RawCall) Outcome {
		return ErrorOutcome("test.Example.NotFound", notFoundError{Message: "x"})
	})
	dial, stop := startServer(t, svc)
	defer stop()

	conn := dial()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reply, replyErr, svcErr, err := CallMethod[Unit, Unit, notFoundError](ctx, conn, Call[Unit]{Method: "test.Example.Find"})
	require.NoError(t, err)
	require.Nil(t, reply)
	require.Nil(t, svcErr)
	require.Equal(t, "test.Example.NotFound", replyErr.Name)
	require.Equal(t, "x", replyErr.Parameters.Message)
}

// TestServerFrameworkErrorSurfacesRegardlessOfCallerType is scenario 6
// from spec §8: an org.varlink.service.* error always decodes as a
// ServiceError, even when the caller declared an unrelated E.
func TestServerFrameworkErrorSurfacesRegardlessOfCallerType(t *testing.T) {
	svc := ServiceFunc(func(ctx context.Context, call RawCall) Outcome {
		return ErrorOutcome(MethodNotFound.String(), map[string]string{"method": "Foo"})
	})
	dial, stop := startServer(t, svc)
	defer stop()

	conn := dial()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reply, replyErr, svcErr, err := CallMethod[Unit, Unit, notFoundError](ctx, conn, Call[Unit]{Method: "org.example.Whatever"})
	require.NoError(t, err)
	require.Nil(t, reply)
	require.Nil(t, replyErr)
	require.Equal(t, MethodNotFound, svcErr.Kind)
	require.Equal(t, "Foo", svcErr.Method)
}

// TestServerCapacityExceededTerminatesServe exercises spec §7: the
// server loop terminates on capacity exhaustion rather than merely
// dropping the offending connection and carrying on.
func TestServerCapacityExceededTerminatesServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	svc := ServiceFunc(func(ctx context.Context, call RawCall) Outcome {
		return ReplyOutcome(Unit{})
	})
	srv := NewServer(ln, svc, WithCapacity(1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	// Both connections are kept open (never closed) so the first
	// permanently holds the single capacity slot.
	conn1, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn1.Close()

	conn2, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn2.Close()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrServerCapacityExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not terminate after capacity was exceeded")
	}
}
