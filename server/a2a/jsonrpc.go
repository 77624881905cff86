// Package a2a implements the agent-to-agent protocol: a JSON-RPC 2.0
// surface over HTTP through which one agent delegates sub-queries to
// another agent instance.
package a2a

import (
	"encoding/json"
	"fmt"

	"github.com/strandlabs/strand/server/llm"
)

// jsonrpcVersion is the protocol version tag on every message.
const jsonrpcVersion = "2.0"

// Supported methods.
const (
	MethodInvoke = "invoke"
	MethodStream = "stream"
)

// Params carries the chat payload of an invoke/stream request.
type Params struct {
	Messages []llm.Message  `json:"messages"`
	ThreadID string         `json:"thread_id"`
	UserID   string         `json:"user_id"`
	Config   map[string]any `json:"config"`
}

// Request is a JSON-RPC 2.0 request message.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	ID      string `json:"id"`
	Params  Params `json:"params"`
}

// NewRequest creates an invoke/stream request.
func NewRequest(id, method string, params Params) *Request {
	return &Request{
		JSONRPC: jsonrpcVersion,
		Method:  method,
		ID:      id,
		Params:  params,
	}
}

// Result is the success payload of a response. StopReason is set on the
// final result of a turn; intermediate stream results leave it empty.
type Result struct {
	Messages   []llm.Message `json:"messages"`
	StopReason string        `json:"stop_reason,omitempty"`
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return fmt.Sprintf("a2a error %d: %s", e.Code, e.Message)
}

// Response is a JSON-RPC 2.0 response message. Exactly one of Result or
// Error is populated in a well-formed response.
type Response struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      string    `json:"id"`
	Result  *Result   `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(id string, result *Result) *Response {
	return &Response{JSONRPC: jsonrpcVersion, ID: id, Result: result}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(id string, code int, message string) *Response {
	return &Response{
		JSONRPC: jsonrpcVersion,
		ID:      id,
		Error:   &RPCError{Code: code, Message: message},
	}
}

// Decode parses a raw request body.
func Decode(raw []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	if req.JSONRPC != jsonrpcVersion {
		return nil, fmt.Errorf("unsupported jsonrpc version %q", req.JSONRPC)
	}
	return &req, nil
}
