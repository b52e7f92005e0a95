// Copyright 2025 the varlink authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package varlink implements the Varlink IPC protocol: NUL-delimited
// JSON messages exchanged over a reliable, ordered byte stream (a Unix
// domain socket, a TCP connection, or any other Socket implementation).
//
// A Connection pairs a ReadConnection and a WriteConnection over a split
// Socket. CallMethod sends a typed Call and awaits its Reply, ReplyError,
// or one of the six canonical org.varlink.service errors (ServiceError).
// Chain batches several calls into one flushed write and reads their
// replies back as an ordered ReplyStream, for pipelining across a
// round-trip-latency-bound link.
//
// Server accepts connections up to a fixed capacity and dispatches each
// decoded RawCall to a user-supplied Service, which answers with a
// single reply, a single error, or a reply stream (Outcome).
//
// Subpackages: idl models and parses the Varlink interface description
// language; introspect derives idl.Type fragments from Go types by
// reflection; proxy holds the generic runtime helpers generated client
// code calls into; cmd/varlink-gen generates that client code from IDL
// text; varlinkservice implements the built-in org.varlink.service
// interface every service exposes for introspection.
package varlink
