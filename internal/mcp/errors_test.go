package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

func TestMapError_NilError(t *testing.T) {
	// Given: nil error
	var err error = nil

	// When: mapping the error
	result := MapError(err)

	// Then: returns nil
	assert.Nil(t, result)
}

func TestMapError_Codes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{
			name:     "deadline exceeded",
			err:      context.DeadlineExceeded,
			wantCode: ErrCodeTimeout,
			wantMsg:  "timed out",
		},
		{
			name:     "canceled",
			err:      fmt.Errorf("embedding: %w", context.Canceled),
			wantCode: ErrCodeTimeout,
			wantMsg:  "canceled",
		},
		{
			name:     "cancellation inside a coded error",
			err:      amerrors.New(amerrors.ErrCodeEmbeddingFailed, "failed", context.Canceled),
			wantCode: ErrCodeTimeout,
			wantMsg:  "canceled",
		},
		{
			name:     "document not found",
			err:      amerrors.NotFoundError("no document at \"x.md\""),
			wantCode: ErrCodeDocumentNotFound,
			wantMsg:  "no document",
		},
		{
			name:     "ambiguous match",
			err:      amerrors.AmbiguousMatchError("2 documents share path"),
			wantCode: ErrCodeAmbiguousMatch,
			wantMsg:  "2 documents",
		},
		{
			name:     "embedding failed",
			err:      amerrors.New(amerrors.ErrCodeEmbeddingFailed, "failed to embed query", errors.New("connection refused")),
			wantCode: ErrCodeEmbeddingFailed,
			wantMsg:  "embed",
		},
		{
			name:     "index failed",
			err:      amerrors.New(amerrors.ErrCodeIndexFailed, "no documents found", nil),
			wantCode: ErrCodeIndexUnavailable,
			wantMsg:  "no documents",
		},
		{
			name:     "backup failed",
			err:      amerrors.New(amerrors.ErrCodeBackupFailed, "restore failed", nil),
			wantCode: ErrCodeIndexUnavailable,
			wantMsg:  "restore",
		},
		{
			name:     "invalid content mode",
			err:      amerrors.New(amerrors.ErrCodeInvalidContentMode, "unknown content mode \"everything\"", nil),
			wantCode: ErrCodeInvalidParams,
			wantMsg:  "everything",
		},
		{
			name:     "empty query",
			err:      amerrors.New(amerrors.ErrCodeQueryEmpty, "search query is empty", nil),
			wantCode: ErrCodeInvalidParams,
			wantMsg:  "empty",
		},
		{
			name:     "clone failed is a network error",
			err:      amerrors.New(amerrors.ErrCodeCloneFailed, "git clone failed", nil),
			wantCode: ErrCodeTimeout,
			wantMsg:  "clone",
		},
		{
			name:     "internal",
			err:      amerrors.InternalError("boom", nil),
			wantCode: ErrCodeInternalError,
			wantMsg:  "boom",
		},
		{
			name:     "tool not found",
			err:      ErrToolNotFound,
			wantCode: ErrCodeMethodNotFound,
			wantMsg:  "Tool not found",
		},
		{
			name:     "invalid params",
			err:      fmt.Errorf("decode: %w", ErrInvalidParams),
			wantCode: ErrCodeInvalidParams,
			wantMsg:  "Invalid parameters",
		},
		{
			name:     "resource not found",
			err:      ErrResourceNotFound,
			wantCode: ErrCodeMethodNotFound,
			wantMsg:  "Resource not found",
		},
		{
			name:     "unknown error",
			err:      errors.New("something odd"),
			wantCode: ErrCodeInternalError,
			wantMsg:  "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MapError(tt.err)

			require.NotNil(t, result)
			assert.Equal(t, tt.wantCode, result.Code)
			assert.Contains(t, result.Message, tt.wantMsg)
		})
	}
}

func TestMapError_AmanError_CarriesCodeAndDetails(t *testing.T) {
	// Given: an ambiguous match with details and a suggestion
	err := amerrors.AmbiguousMatchError("2 documents share path \"doc/index.md\"").
		WithDetail("parent_ids", "a, b").
		WithSuggestion("Pass a more specific project")

	// When: mapping the error
	result := MapError(fmt.Errorf("get_document: %w", err))

	// Then: message includes the suggestion, data carries code and details
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeAmbiguousMatch, result.Code)
	assert.Contains(t, result.Message, "Pass a more specific project")
	assert.Equal(t, amerrors.ErrCodeAmbiguousMatch, result.Data["error_code"])
	assert.Equal(t, "a, b", result.Data["parent_ids"])
}

func TestMapError_DuplicateIDError(t *testing.T) {
	// Given: a duplicate id failure from ingestion
	err := &amerrors.DuplicateIDError{Collisions: []amerrors.Collision{{ID: "panel___doc/a.md"}}}

	// When: mapping the error
	result := MapError(err)

	// Then: reported as an index problem
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeIndexUnavailable, result.Code)
	assert.Equal(t, amerrors.ErrCodeDuplicateID, result.Data["error_code"])
}

func TestMapError_PassesMCPErrorThrough(t *testing.T) {
	original := NewInvalidParamsError("query parameter is required")

	result := MapError(fmt.Errorf("wrapped: %w", original))

	assert.Same(t, original, result)
}

func TestMCPError_Error(t *testing.T) {
	err := &MCPError{Code: -32001, Message: "index store is not open"}

	assert.Equal(t, "MCP error -32001: index store is not open", err.Error())
}

func TestNewMethodNotFoundError(t *testing.T) {
	err := NewMethodNotFoundError("hello_world")

	assert.Equal(t, ErrCodeMethodNotFound, err.Code)
	assert.Equal(t, "Tool 'hello_world' not found.", err.Message)
}
