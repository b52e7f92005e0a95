// Copyright 2025 the varlink authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package varlink

import (
	"reflect"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Unit is the "no parameters" / "no reply value" type. A Call[Unit] or
// Reply[Unit] omits its "parameters" key entirely on the wire rather than
// encoding {}; a Reply[Unit] also never fails with ErrMissingParameters
// regardless of what the server actually sent, per spec §4.F rule 1.
type Unit struct{}

var unitType = reflect.TypeOf(Unit{})

func isUnit(v any) bool {
	if v == nil {
		return true
	}
	if t := reflect.TypeOf(v); t == unitType {
		return true
	}
	if rm, ok := v.(jsoniter.RawMessage); ok {
		return len(rm) == 0
	}
	return false
}

// RawCall is the wire-level shape of a Call before its parameters are
// decoded into a concrete type. The server dispatcher always decodes to
// RawCall first (peeking "method" to pick which concrete parameter type
// to decode "parameters" into next) — this is the Go-idiomatic stand-in
// for the source's closed generic sum type M, realized as a generated
// switch over Method rather than a tagged enum.
type RawCall struct {
	Method     string              `json:"method"`
	Parameters jsoniter.RawMessage `json:"parameters,omitempty"`
	Oneway     bool                `json:"oneway,omitempty"`
	More       bool                `json:"more,omitempty"`
	Upgrade    bool                `json:"upgrade,omitempty"`
}

// DecodeRawCall parses one message as a RawCall.
func DecodeRawCall(msg []byte) (RawCall, error) {
	var rc RawCall
	if err := json.Unmarshal(msg, &rc); err != nil {
		return RawCall{}, &JSONError{Op: "unmarshal call", Err: err}
	}
	return rc, nil
}

// DecodeParameters unmarshals rc.Parameters into a value of type P. If no
// parameters were sent and P is not Unit, out is the type's zero value
// (callers that need MissingParameters semantics on the call side check
// for a nil/empty RawCall.Parameters themselves; servers are expected to
// validate against their own method signature, matching spec §4.C
// "tolerate fields in any order ... reconstruct M from the same map").
func DecodeParameters[P any](rc RawCall) (P, error) {
	var p P
	if len(rc.Parameters) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(rc.Parameters, &p); err != nil {
		return p, &JSONError{Op: "unmarshal call parameters", Err: err}
	}
	return p, nil
}

// Call is one client-to-server message: a method name, optional typed
// parameters, and the three wire flags. EncodeCall flattens it to
// {"method", "parameters"?, "oneway"?, "more"?, "upgrade"?} — all four
// non-method keys omit themselves when false/absent/Unit, matching the
// canonical encoding rule in spec §6.
type Call[P any] struct {
	Method     string
	Parameters P
	Oneway     bool
	More       bool
	Upgrade    bool
}

// EncodeCall renders c to its canonical wire JSON.
func EncodeCall[P any](c Call[P]) ([]byte, error) {
	m := make(map[string]any, 5)
	m["method"] = c.Method
	if !isUnit(c.Parameters) {
		m["parameters"] = c.Parameters
	}
	if c.Oneway {
		m["oneway"] = true
	}
	if c.More {
		m["more"] = true
	}
	if c.Upgrade {
		m["upgrade"] = true
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, &JSONError{Op: "marshal call", Err: err}
	}
	return b, nil
}

// Reply is one server-to-client message carrying typed parameters and a
// continuation flag. A Reply with Continues==false is terminal for its
// call; Continues==true marks an intermediate reply in a more-initiated
// stream.
type Reply[P any] struct {
	Parameters P
	Continues  bool
}

// EncodeReply renders r to its canonical wire JSON. Parameters are
// omitted when P is Unit; Continues is omitted when false.
func EncodeReply[P any](r Reply[P]) ([]byte, error) {
	m := make(map[string]any, 2)
	if !isUnit(r.Parameters) {
		m["parameters"] = r.Parameters
	}
	if r.Continues {
		m["continues"] = true
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, &JSONError{Op: "marshal reply", Err: err}
	}
	return b, nil
}

// ReplyError is a terminal reply whose top-level "error" key names a
// declared interface error.
type ReplyError[E any] struct {
	Name       string
	Parameters E
}

// EncodeReplyError renders e to its canonical wire JSON.
func EncodeReplyError[E any](e ReplyError[E]) ([]byte, error) {
	m := make(map[string]any, 2)
	m["error"] = e.Name
	if !isUnit(e.Parameters) {
		m["parameters"] = e.Parameters
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, &JSONError{Op: "marshal reply error", Err: err}
	}
	return b, nil
}

// replyDiscriminator is the minimal shape used to decide, without a full
// decode, whether an inbound message is a success reply or an error
// reply: the presence of "error" at the top level is the only signal
// (spec §4.C). This mirrors the source's own "parse a minimal {error:
// &str} shape and fall back" strategy (§9).
type replyDiscriminator struct {
	Error *string `json:"error"`
}

// DecodeReply reads one message as either a typed success Reply[P], a
// typed ReplyError[E], or — when the error name is prefixed
// "org.varlink.service." — a ServiceError, regardless of what E is.
// Exactly one of the three non-error return values is non-nil.
func DecodeReply[P any, E any](msg []byte) (*Reply[P], *ReplyError[E], *ServiceError, error) {
	var disc replyDiscriminator
	if err := json.Unmarshal(msg, &disc); err != nil {
		return nil, nil, nil, &JSONError{Op: "unmarshal reply", Err: err}
	}
	if disc.Error == nil {
		var raw struct {
			Parameters jsoniter.RawMessage `json:"parameters"`
			Continues  bool                `json:"continues"`
		}
		if err := json.Unmarshal(msg, &raw); err != nil {
			return nil, nil, nil, &JSONError{Op: "unmarshal reply", Err: err}
		}
		var p P
		if len(raw.Parameters) > 0 && string(raw.Parameters) != "null" {
			if err := json.Unmarshal(raw.Parameters, &p); err != nil {
				return nil, nil, nil, &JSONError{Op: "unmarshal reply parameters", Err: err}
			}
		} else if !isUnit(p) {
			return nil, nil, nil, ErrMissingParameters
		}
		return &Reply[P]{Parameters: p, Continues: raw.Continues}, nil, nil, nil
	}

	name := *disc.Error
	if isServiceErrorName(name) {
		se, err := decodeServiceError(name, msg)
		if err != nil {
			return nil, nil, nil, err
		}
		return nil, nil, se, nil
	}

	var raw struct {
		Parameters jsoniter.RawMessage `json:"parameters"`
	}
	if err := json.Unmarshal(msg, &raw); err != nil {
		return nil, nil, nil, &JSONError{Op: "unmarshal reply error", Err: err}
	}
	var e E
	if len(raw.Parameters) > 0 && string(raw.Parameters) != "null" {
		if err := json.Unmarshal(raw.Parameters, &e); err != nil {
			return nil, nil, nil, &JSONError{Op: "unmarshal reply error parameters", Err: err}
		}
	}
	return nil, &ReplyError[E]{Name: name, Parameters: e}, nil, nil
}

func decodeServiceError(name string, msg []byte) (*ServiceError, error) {
	var raw struct {
		Parameters struct {
			Interface string `json:"interface"`
			Method    string `json:"method"`
			Parameter string `json:"parameter"`
		} `json:"parameters"`
	}
	if err := json.Unmarshal(msg, &raw); err != nil {
		return nil, &JSONError{Op: "unmarshal service error", Err: err}
	}
	se := &ServiceError{
		Interface: raw.Parameters.Interface,
		Method:    raw.Parameters.Method,
		Parameter: raw.Parameters.Parameter,
	}
	switch name {
	case InterfaceNotFound.String():
		se.Kind = InterfaceNotFound
	case MethodNotFound.String():
		se.Kind = MethodNotFound
	case MethodNotImplemented.String():
		se.Kind = MethodNotImplemented
	case InvalidParameter.String():
		se.Kind = InvalidParameter
	case PermissionDenied.String():
		se.Kind = PermissionDenied
	case ExpectedMore.String():
		se.Kind = ExpectedMore
	default:
		se.Kind = MethodNotImplemented
	}
	return se, nil
}
