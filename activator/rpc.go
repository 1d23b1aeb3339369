// SPDX-License-Identifier: BSD-3-Clause

package activator

import (
	"errors"
	"net"
	"time"

	"github.com/cherry-pick/resolver/wire"
)

// controlConnTimeout bounds how long a single administrative RPC may take to
// read and reply, keeping the synchronous handler "not blocking" per §4.7
// even against a slow or hung peer.
const controlConnTimeout = 5 * time.Second

// ResolveParams is the decoded Params of a Resolve call.
type ResolveParams struct {
	Interface string `json:"interface"`
}

// ResolveResult is the Result of a successful Resolve call.
type ResolveResult struct {
	Address string `json:"address"`
}

// GetInfoResult is the Result of GetInfo.
type GetInfoResult struct {
	Vendor     string   `json:"vendor,omitempty"`
	Product    string   `json:"product,omitempty"`
	Version    string   `json:"version,omitempty"`
	URL        string   `json:"url,omitempty"`
	Interfaces []string `json:"interfaces"`
}

// GetConfigResult is the Result of GetConfig.
type GetConfigResult struct {
	Vendor   string        `json:"vendor,omitempty"`
	Product  string        `json:"product,omitempty"`
	Version  string        `json:"version,omitempty"`
	URL      string        `json:"url,omitempty"`
	Services []ServiceSpec `json:"services"`
}

// AddServicesParams is the decoded Params of an AddServices call.
type AddServicesParams struct {
	Services []ServiceSpec `json:"services"`
}

// serveControlConn handles exactly one request/response exchange on an
// accepted control connection, per the synchronous, non-suspending handler
// model of §4.7/§5.
func (m *Manager) serveControlConn(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(controlConnTimeout))

	payload, err := wire.ReadFrame(conn)
	if err != nil {
		m.logger.Debug("control connection read failed", "error", err)
		return
	}

	var req wire.Request
	if err := wire.Decode(payload, &req); err != nil {
		m.replyError(conn, wire.ErrorInvalidParameter, "malformed request")
		return
	}

	resp := m.dispatch(req)
	out, err := wire.Encode(resp)
	if err != nil {
		m.logger.Error("failed to encode response", "error", err)
		return
	}
	if err := wire.WriteFrame(conn, out); err != nil {
		m.logger.Debug("control connection write failed", "error", err)
	}
}

func (m *Manager) replyError(conn net.Conn, code wire.ErrorCode, msg string) {
	out, err := wire.Encode(wire.Response{Error: &wire.ErrorObject{Code: code, Message: msg}})
	if err != nil {
		return
	}
	_ = wire.WriteFrame(conn, out)
}

func (m *Manager) dispatch(req wire.Request) wire.Response {
	switch req.Method {
	case wire.MethodResolve:
		return m.rpcResolve(req.Params)
	case wire.MethodGetInfo:
		return m.rpcGetInfo()
	case wire.MethodGetConfig:
		return m.rpcGetConfig()
	case wire.MethodAddServices:
		return m.rpcAddServices(req.Params)
	default:
		return errorResponse(wire.ErrorInvalidParameter, "unknown method: "+string(req.Method))
	}
}

func (m *Manager) rpcResolve(raw []byte) wire.Response {
	var params ResolveParams
	if err := wire.Decode(raw, &params); err != nil || params.Interface == "" {
		return errorResponse(wire.ErrorInvalidParameter, "interface")
	}
	address, err := m.Resolve(params.Interface)
	if err != nil {
		if errors.Is(err, ErrInterfaceNotFound) {
			return errorResponse(wire.ErrorInterfaceNotFound, params.Interface)
		}
		return errorResponse(wire.ErrorInternal, err.Error())
	}
	return resultResponse(ResolveResult{Address: address})
}

func (m *Manager) rpcGetInfo() wire.Response {
	return resultResponse(m.GetInfo())
}

func (m *Manager) rpcGetConfig() wire.Response {
	return resultResponse(m.GetConfig())
}

func (m *Manager) rpcAddServices(raw []byte) wire.Response {
	var params AddServicesParams
	if err := wire.Decode(raw, &params); err != nil {
		return errorResponse(wire.ErrorInvalidParameter, "services")
	}
	if err := m.AddServices(params.Services); err != nil {
		switch {
		case errors.Is(err, ErrInvalidParameter):
			return errorResponse(wire.ErrorInvalidParameter, err.Error())
		case errors.Is(err, ErrNotUnique):
			return errorResponse(wire.ErrorNotUnique, err.Error())
		case errors.Is(err, ErrListenerFailed):
			return errorResponse(wire.ErrorListenerFailed, err.Error())
		default:
			return errorResponse(wire.ErrorInternal, err.Error())
		}
	}
	return wire.Response{}
}

func resultResponse(v any) wire.Response {
	out, err := wire.Encode(v)
	if err != nil {
		return errorResponse(wire.ErrorInternal, err.Error())
	}
	return wire.Response{Result: out}
}

func errorResponse(code wire.ErrorCode, msg string) wire.Response {
	return wire.Response{Error: &wire.ErrorObject{Code: code, Message: msg}}
}
