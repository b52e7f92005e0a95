// Copyright 2025 the varlink authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package varlinkservice implements the built-in org.varlink.service
// interface that every Varlink service exposes for introspection
// (spec §4.K). It is written by hand in the shape cmd/varlink-gen
// produces for an arbitrary interface; the generator's golden test
// checks against its own testdata, not against this package.
package varlinkservice

import (
	"context"

	"code.hybscloud.com/varlink"
	"code.hybscloud.com/varlink/idl"
)

const interfaceName = "org.varlink.service"

// Info is the reply payload for GetInfo.
type Info struct {
	Vendor     string   `json:"vendor"`
	Product    string   `json:"product"`
	Version    string   `json:"version"`
	URL        string   `json:"url"`
	Interfaces []string `json:"interfaces"`
}

// getInterfaceDescriptionParams is the parameter type for
// GetInterfaceDescription.
type getInterfaceDescriptionParams struct {
	Interface string `json:"interface"`
}

// InterfaceDescription is the reply payload for GetInterfaceDescription.
type InterfaceDescription struct {
	Description string `json:"description"`
}

// Backend is implemented by the hosting server to answer the two
// org.varlink.service methods. A real deployment usually backs this with
// a static Info plus a registry of the interfaces it actually serves.
type Backend interface {
	GetInfo(ctx context.Context) (Info, error)
	GetInterfaceDescription(ctx context.Context, name string) (string, error)
}

// StaticBackend is the common case: a fixed Info and a fixed map of
// interface name to its rendered IDL text.
type StaticBackend struct {
	Info         Info
	Descriptions map[string]string
}

func (b *StaticBackend) GetInfo(ctx context.Context) (Info, error) {
	return b.Info, nil
}

func (b *StaticBackend) GetInterfaceDescription(ctx context.Context, name string) (string, error) {
	desc, ok := b.Descriptions[name]
	if !ok {
		return "", &varlink.ServiceError{Kind: varlink.InterfaceNotFound, Interface: name}
	}
	return desc, nil
}

// Service adapts a Backend to varlink.Service, dispatching the two
// org.varlink.service methods and reporting the six canonical framework
// errors for anything it doesn't recognize — exactly the switch-on-
// RawCall.Method shape a generated per-interface service follows (see
// varlink.Service's doc comment).
type Service struct {
	Backend Backend
}

// New builds a Service over a fixed Info and interface-description map,
// the common case for a host process whose own interfaces are known
// ahead of time.
func New(info Info, descriptions map[string]string) *Service {
	return &Service{Backend: &StaticBackend{Info: info, Descriptions: descriptions}}
}

func (s *Service) Handle(ctx context.Context, call varlink.RawCall) varlink.Outcome {
	switch call.Method {
	case interfaceName + ".GetInfo":
		return s.handleGetInfo(ctx, call)
	case interfaceName + ".GetInterfaceDescription":
		return s.handleGetInterfaceDescription(ctx, call)
	default:
		return varlink.ErrorOutcome(varlink.MethodNotFound.String(), methodNotFoundParams(call.Method))
	}
}

func (s *Service) handleGetInfo(ctx context.Context, call varlink.RawCall) varlink.Outcome {
	info, err := s.Backend.GetInfo(ctx)
	if err != nil {
		return outcomeFromError(err)
	}
	return varlink.ReplyOutcome(info)
}

func (s *Service) handleGetInterfaceDescription(ctx context.Context, call varlink.RawCall) varlink.Outcome {
	params, err := varlink.DecodeParameters[getInterfaceDescriptionParams](call)
	if err != nil {
		return varlink.ErrorOutcome(varlink.InvalidParameter.String(), invalidParameterParams("interface"))
	}
	description, err := s.Backend.GetInterfaceDescription(ctx, params.Interface)
	if err != nil {
		return outcomeFromError(err)
	}
	return varlink.ReplyOutcome(InterfaceDescription{Description: description})
}

// outcomeFromError converts a *varlink.ServiceError (or any other error,
// treated as an opaque InvalidParameter) into an error Outcome carrying
// the correct org.varlink.service.* error name and parameter payload.
func outcomeFromError(err error) varlink.Outcome {
	se, ok := err.(*varlink.ServiceError)
	if !ok {
		return varlink.ErrorOutcome(varlink.InvalidParameter.String(), nil)
	}
	switch se.Kind {
	case varlink.InterfaceNotFound:
		return varlink.ErrorOutcome(se.Kind.String(), interfaceNotFoundParams(se.Interface))
	case varlink.MethodNotFound:
		return varlink.ErrorOutcome(se.Kind.String(), methodNotFoundParams(se.Method))
	case varlink.MethodNotImplemented:
		return varlink.ErrorOutcome(se.Kind.String(), methodNotImplementedParams(se.Method))
	case varlink.InvalidParameter:
		return varlink.ErrorOutcome(se.Kind.String(), invalidParameterParams(se.Parameter))
	default:
		return varlink.ErrorOutcome(se.Kind.String(), nil)
	}
}

func interfaceNotFoundParams(name string) any { return map[string]string{"interface": name} }
func methodNotFoundParams(name string) any     { return map[string]string{"method": name} }
func methodNotImplementedParams(name string) any {
	return map[string]string{"method": name}
}
func invalidParameterParams(name string) any { return map[string]string{"parameter": name} }

// Description renders the org.varlink.service interface's own IDL text,
// for a server that wants to list itself in GetInterfaceDescription.
// cmd/varlink-gen emits no interface description text, so a host puts
// this string (and those of its other interfaces) into the Descriptions
// map itself.
func Description() string {
	iface := idl.Interface{
		Name: interfaceName,
		Members: []idl.Member{
			{
				Kind: idl.MemberMethod,
				Method: idl.Method{
					Name:    "GetInfo",
					Outputs: []idl.Field{
						{Name: "vendor", Type: idl.StringType},
						{Name: "product", Type: idl.StringType},
						{Name: "version", Type: idl.StringType},
						{Name: "url", Type: idl.StringType},
						{Name: "interfaces", Type: idl.ArrayOf(idl.StringType)},
					},
				},
			},
			{
				Kind: idl.MemberMethod,
				Method: idl.Method{
					Name:   "GetInterfaceDescription",
					Inputs: []idl.Field{{Name: "interface", Type: idl.StringType}},
					Outputs: []idl.Field{
						{Name: "description", Type: idl.StringType},
					},
				},
			},
			{
				Kind: idl.MemberError,
				Error: idl.Error{
					Name:   "InterfaceNotFound",
					Fields: []idl.Field{{Name: "interface", Type: idl.StringType}},
				},
			},
			{
				Kind: idl.MemberError,
				Error: idl.Error{
					Name:   "MethodNotFound",
					Fields: []idl.Field{{Name: "method", Type: idl.StringType}},
				},
			},
			{
				Kind: idl.MemberError,
				Error: idl.Error{
					Name:   "MethodNotImplemented",
					Fields: []idl.Field{{Name: "method", Type: idl.StringType}},
				},
			},
			{
				Kind: idl.MemberError,
				Error: idl.Error{
					Name:   "InvalidParameter",
					Fields: []idl.Field{{Name: "parameter", Type: idl.StringType}},
				},
			},
			{Kind: idl.MemberError, Error: idl.Error{Name: "PermissionDenied"}},
			{Kind: idl.MemberError, Error: idl.Error{Name: "ExpectedMore"}},
		},
	}
	return iface.Render()
}
