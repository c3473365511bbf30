// Package mcp implements the HTTP/SSE transport and request router for an
// MCP (Model Context Protocol) tool server.
//
// The transport follows the 2024-11-05 MCP HTTP+SSE specification:
//
//   - GET /health: liveness probe, no authentication required.
//   - GET /sse: establishes a Server-Sent Events connection. The server
//     sends a "session" event with the session ID, an "endpoint" event with
//     the message URL, then "message" events carrying JSON-RPC responses,
//     with periodic keepalive comments.
//   - POST /message: JSON-RPC 2.0 requests (initialize, ping, tools/list,
//     tools/call). When the client presents a known sessionId query
//     parameter the response is queued for SSE delivery and the POST
//     returns 202 Accepted; otherwise the response is returned directly.
//
// Tool logic is injected through the [Registry]; the server only lists and
// dispatches. Authentication is applied by wrapping the handler in the auth
// package's middleware; the router acts only on the middleware's
// admit-or-deny outcome and never inspects credentials itself.
package mcp

import "encoding/json"

// protocolVersion is the MCP protocol revision this server implements.
const protocolVersion = "2024-11-05"

// JSON-RPC 2.0 protocol error codes (-32700..-32600 reserved by the protocol)
// plus the server-defined tool execution failure code the original wire
// format uses.
const (
	// CodeParseError indicates the request body was not valid JSON.
	CodeParseError = -32700

	// CodeInvalidRequest indicates the request was not a valid JSON-RPC
	// request object.
	CodeInvalidRequest = -32600

	// CodeMethodNotFound indicates the requested method is not supported.
	CodeMethodNotFound = -32601

	// CodeInvalidParams indicates the method parameters were invalid.
	CodeInvalidParams = -32602

	// CodeInternalError indicates an internal JSON-RPC error.
	CodeInternalError = -32603

	// CodeToolExecution indicates a tool handler returned an error.
	CodeToolExecution = -32000
)

// Request is an incoming JSON-RPC 2.0 request or notification. A request
// with a null ID is a notification and receives no response.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request expects no response.
func (r *Request) IsNotification() bool {
	return r.ID == nil
}

// Response is an outgoing JSON-RPC 2.0 response. Exactly one of Result and
// Error is set.
type Response struct {
	JSONRPC string       `json:"jsonrpc"`
	ID      any          `json:"id"`
	Result  any          `json:"result,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail is the error member of a JSON-RPC response.
type ErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewResult builds a success response for the given request ID.
func NewResult(id, result any) Response {
	return Response{JSONRPC: "2.0", ID: id, Result: result}
}

// NewError builds an error response for the given request ID.
func NewError(id any, code int, message string) Response {
	return Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &ErrorDetail{Code: code, Message: message},
	}
}

// ContentItem is one element of a tools/call result. Only the "text" type
// is produced by this server.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// TextContent wraps a string as a single-item text content list.
func TextContent(text string) []ContentItem {
	return []ContentItem{{Type: "text", Text: text}}
}

// initializeResult is the result payload for the initialize method.
type initializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      serverInfo     `json:"serverInfo"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// toolsListResult is the result payload for the tools/list method.
type toolsListResult struct {
	Tools []Tool `json:"tools"`
}

// toolsCallResult is the result payload for the tools/call method.
type toolsCallResult struct {
	Content []ContentItem `json:"content"`
}

// toolsCallParams is the params shape for the tools/call method.
type toolsCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}
