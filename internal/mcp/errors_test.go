package mcp

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	hverrors "github.com/hanviet/hvsearch/internal/errors"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"invalid input", hverrors.InvalidInputError("blank"), ErrCodeInvalidParams, "invalid input: query must not be blank"},
		{"wrapped invalid input", fmt.Errorf("search: %w", hverrors.InvalidInputError("blank")), ErrCodeInvalidParams, "invalid input: query must not be blank"},
		{"invalid index", hverrors.NotReadyError(hverrors.InvalidIndexError("bad blob", nil)), ErrCodeNotReady, "system not ready"},
		{"remote fetch", hverrors.RemoteFetchError("https://x/y", "html", nil), ErrCodeNotReady, "system not ready"},
		{"unknown", errors.New("boom"), ErrCodeNotReady, "system not ready"},
		{"already mapped", NewMethodNotFoundError("x"), ErrCodeMethodNotFound, "Tool 'x' not found."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: an internal error
			// When: mapping it
			got := MapError(tt.err)

			// Then: only the outcome reaches the client
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantMsg, got.Message)
		})
	}
}

func TestMapError_Nil(t *testing.T) {
	assert.Nil(t, MapError(nil))
}

func TestMCPError_Error(t *testing.T) {
	err := NewInvalidParamsError("top_k must not be negative")
	assert.Equal(t, "MCP error -32602: top_k must not be negative", err.Error())
}
