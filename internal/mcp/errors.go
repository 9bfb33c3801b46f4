// Package mcp exposes the translation engine as a Model Context Protocol
// server.
package mcp

import (
	"fmt"

	hverrors "github.com/hanviet/hvsearch/internal/errors"
)

// Error codes returned to MCP clients.
const (
	// ErrCodeNotReady means the engine could not answer: the index is
	// missing or invalid, or the models could not be loaded in time.
	ErrCodeNotReady = -32001

	// Standard JSON-RPC error codes.
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts an engine error to the message a client sees. Only
// blank queries are reported as such; every other failure reads as
// "system not ready" and the detail stays in the server log.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}
	if me, ok := err.(*MCPError); ok {
		return me
	}
	switch outcome := hverrors.Classify(err); outcome {
	case hverrors.OutcomeInvalidInput:
		return &MCPError{Code: ErrCodeInvalidParams, Message: hverrors.UserMessage(outcome)}
	default:
		return &MCPError{Code: ErrCodeNotReady, Message: hverrors.UserMessage(hverrors.OutcomeNotReady)}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("Tool '%s' not found.", name)}
}
