// Copyright 2025 the varlink authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package varlink

import (
	"errors"
	"fmt"
	"io"

	"code.hybscloud.com/varlink/idl"
	"code.hybscloud.com/varlink/internal/wire"
)

// Error taxonomy. Framing and buffer errors are reused from io and
// internal/wire rather than reinvented, matching the teacher's own
// preference for io.ErrUnexpectedEOF/io.ErrShortBuffer/io.ErrShortWrite
// over bespoke sentinels.
var (
	// ErrUnexpectedEOF is returned when the underlying stream ends in
	// the middle of a message.
	ErrUnexpectedEOF = io.ErrUnexpectedEOF

	// ErrBufferOverflow is returned when a message exceeds the
	// configured buffer ceiling, or an embedded-tier buffer cannot grow
	// to fit the current message, or the server's connection cap is
	// exceeded (ErrServerCapacityExceeded wraps it).
	ErrBufferOverflow = wire.ErrBufferOverflow

	// ErrMissingParameters is returned when a reply declares a non-unit
	// expected parameter type but the wire message carried neither
	// "parameters" nor "error".
	ErrMissingParameters = errors.New("varlink: reply is missing parameters")

	// ErrInvalidArgument reports a nil or otherwise unusable Socket,
	// Connection, or option value.
	ErrInvalidArgument = errors.New("varlink: invalid argument")

	// ErrConnectionPoisoned is returned by every write operation (enqueue,
	// Flush, and the Send helpers) on a WriteConnection left in an
	// indeterminate state by a failed send (see WriteConnection.Poisoned).
	ErrConnectionPoisoned = errors.New("varlink: connection poisoned by a cancelled send, drop it")

	// ErrServerCapacityExceeded is returned by Server.Serve when the
	// concurrent connection count would exceed the configured cap.
	ErrServerCapacityExceeded = fmt.Errorf("varlink: server capacity exceeded: %w", wire.ErrBufferOverflow)
)

// IDLParseError reports a syntax error in Varlink interface description
// text, carrying the byte offset and a human-readable message. It is an
// alias of idl.ParseError so callers parsing IDL text through either
// package see the same concrete type.
type IDLParseError = idl.ParseError

// JSONError wraps a JSON encode or decode failure with the operation that
// triggered it ("marshal call", "unmarshal reply", ...).
type JSONError struct {
	Op  string
	Err error
}

func (e *JSONError) Error() string { return fmt.Sprintf("varlink: %s: %v", e.Op, e.Err) }
func (e *JSONError) Unwrap() error { return e.Err }

// ServiceErrorKind enumerates the six canonical org.varlink.service
// errors every Varlink service must be able to produce, regardless of
// what method-level errors its own interfaces declare.
type ServiceErrorKind int

const (
	InterfaceNotFound ServiceErrorKind = iota
	MethodNotFound
	MethodNotImplemented
	InvalidParameter
	PermissionDenied
	ExpectedMore
)

func (k ServiceErrorKind) String() string {
	switch k {
	case InterfaceNotFound:
		return "org.varlink.service.InterfaceNotFound"
	case MethodNotFound:
		return "org.varlink.service.MethodNotFound"
	case MethodNotImplemented:
		return "org.varlink.service.MethodNotImplemented"
	case InvalidParameter:
		return "org.varlink.service.InvalidParameter"
	case PermissionDenied:
		return "org.varlink.service.PermissionDenied"
	case ExpectedMore:
		return "org.varlink.service.ExpectedMore"
	default:
		return "org.varlink.service.Unknown"
	}
}

// ServiceError is the top-level error variant for the six canonical
// org.varlink.service errors. Clients surface these here rather than
// through their own declared method-error type, so that a caller whose
// error type does not enumerate the framework errors can still observe
// them (spec §4.C).
type ServiceError struct {
	Kind ServiceErrorKind

	// Interface/Method/Parameter carry the one parameter field the
	// matching error declares, when present. At most one is set.
	Interface string
	Method    string
	Parameter string
}

func (e *ServiceError) Error() string {
	switch e.Kind {
	case InterfaceNotFound:
		return fmt.Sprintf("%s: interface=%q", e.Kind, e.Interface)
	case MethodNotFound:
		return fmt.Sprintf("%s: method=%q", e.Kind, e.Method)
	case MethodNotImplemented:
		return fmt.Sprintf("%s: method=%q", e.Kind, e.Method)
	case InvalidParameter:
		return fmt.Sprintf("%s: parameter=%q", e.Kind, e.Parameter)
	default:
		return e.Kind.String()
	}
}

// serviceErrorPrefix is the name prefix used to recognize a framework error on the wire.
const serviceErrorPrefix = "org.varlink.service."

func isServiceErrorName(name string) bool {
	return len(name) > len(serviceErrorPrefix) && name[:len(serviceErrorPrefix)] == serviceErrorPrefix
}
