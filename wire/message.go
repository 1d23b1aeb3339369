// SPDX-License-Identifier: BSD-3-Clause

package wire

import (
	json "github.com/goccy/go-json"
)

// Method names the four admin RPCs bound to the control socket (spec.md §4.7).
type Method string

const (
	MethodResolve     Method = "Resolve"
	MethodGetInfo     Method = "GetInfo"
	MethodGetConfig   Method = "GetConfig"
	MethodAddServices Method = "AddServices"
)

// ErrorCode names the typed error taxonomy from spec.md §7, surfaced to
// callers instead of a bare error string wherever the taxonomy defines one.
type ErrorCode string

const (
	ErrorInvalidParameter  ErrorCode = "InvalidParameter"
	ErrorInterfaceNotFound ErrorCode = "InterfaceNotFound"
	ErrorNotUnique         ErrorCode = "NotUnique"
	ErrorListenerFailed    ErrorCode = "ListenerFailed"
	ErrorInternal          ErrorCode = "InternalError"
)

// Request is the envelope read off the control socket for every call.
type Request struct {
	Method Method          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is the envelope written back for every call. At most one of
// Result or Error is set; a successful call with no result (AddServices)
// sets neither.
type Response struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ErrorObject    `json:"error,omitempty"`
}

// ErrorObject is a typed IPC error reply (§7's "typed IPC error replies").
type ErrorObject struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Encode marshals v with the package's JSON codec.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode unmarshals data into v with the package's JSON codec.
func Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
