// Copyright 2026 The Guidrive Authors

// Package transport carries MCP traffic as JSON-RPC 2.0 messages over stdio
// or HTTP/SSE. It knows nothing about tools or the GUI; it frames, routes
// and observes messages.
package transport

import "encoding/json"

// JSON-RPC 2.0 standard error codes.
// See: https://www.jsonrpc.org/specification#error_object
const (
	// ErrCodeParseError indicates invalid JSON was received.
	ErrCodeParseError = -32700

	// ErrCodeInvalidRequest indicates the payload is not a valid Request.
	ErrCodeInvalidRequest = -32600

	// ErrCodeMethodNotFound indicates the method does not exist.
	ErrCodeMethodNotFound = -32601

	// ErrCodeInvalidParams indicates invalid method parameters.
	ErrCodeInvalidParams = -32602

	// ErrCodeInternalError indicates an internal JSON-RPC error.
	ErrCodeInternalError = -32603
)

// Message is a JSON-RPC 2.0 message, usable as either a request or a
// response. For requests, Method is set and ID is present unless the message
// is a notification. For responses, exactly one of Result or Error is set
// and ID echoes the request.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObj       `json:"error,omitempty"`
}

// ErrorObj is a JSON-RPC 2.0 error object.
type ErrorObj struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// NewError builds an error response echoing the given request ID.
func NewError(id json.RawMessage, code int, message string) *Message {
	return &Message{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &ErrorObj{Code: code, Message: message},
	}
}

// NewResult builds a success response echoing the given request ID. The
// result must already be marshalled JSON.
func NewResult(id json.RawMessage, result json.RawMessage) *Message {
	return &Message{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
}

// Handler processes one request message and returns the response, or nil
// for notifications. A returned error becomes an internal-error response.
type Handler func(*Message) (*Message, error)

// Transport is the common surface of the stdio and HTTP transports.
//
// Implementations are safe for concurrent use. ReadMessage blocks until a
// message arrives; the HTTP transport does not support it and uses the
// callback pattern via its Serve method instead.
type Transport interface {
	ReadMessage() (*Message, error)
	WriteMessage(msg *Message) error
	Close() error
	IsClosed() bool
}
