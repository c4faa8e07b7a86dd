// Package mcp implements the Model Context Protocol (MCP) server for
// amandocs. It exposes the index and search entry points and the
// best-practice guides as tools, and documents and guides as resources; it
// never touches the store or chunker directly.
package mcp

import (
	"context"
	"errors"
	"fmt"

	amerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

// Custom MCP error codes for amandocs.
const (
	// ErrCodeIndexUnavailable indicates the index could not be built or opened.
	ErrCodeIndexUnavailable = -32001

	// ErrCodeEmbeddingFailed indicates embedding generation failed.
	ErrCodeEmbeddingFailed = -32002

	// ErrCodeTimeout indicates the request timed out or was canceled.
	ErrCodeTimeout = -32003

	// ErrCodeDocumentNotFound indicates no document matched a lookup.
	ErrCodeDocumentNotFound = -32004

	// ErrCodeAmbiguousMatch indicates a lookup matched several documents.
	ErrCodeAmbiguousMatch = -32005

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Sentinel errors for internal use.
var (
	// ErrToolNotFound indicates the requested tool does not exist.
	ErrToolNotFound = errors.New("tool not found")

	// ErrInvalidParams indicates invalid parameters were provided.
	ErrInvalidParams = errors.New("invalid parameters")

	// ErrResourceNotFound indicates the requested resource does not exist.
	ErrResourceNotFound = errors.New("resource not found")
)

// MCPError represents an MCP protocol error with code and message.
// Data carries the internal error code and details when there are any.
type MCPError struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    map[string]string `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	// Cancellation first: a coded error may wrap it.
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request timed out.",
		}
	case errors.Is(err, context.Canceled):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request was canceled.",
		}
	}

	var amanErr *amerrors.AmanError
	if errors.As(err, &amanErr) {
		return mapAmanError(amanErr)
	}

	switch {
	case errors.Is(err, ErrToolNotFound):
		return &MCPError{
			Code:    ErrCodeMethodNotFound,
			Message: "Tool not found.",
		}
	case errors.Is(err, ErrInvalidParams):
		return &MCPError{
			Code:    ErrCodeInvalidParams,
			Message: "Invalid parameters.",
		}
	case errors.Is(err, ErrResourceNotFound):
		return &MCPError{
			Code:    ErrCodeMethodNotFound,
			Message: "Resource not found.",
		}
	default:
		return &MCPError{
			Code:    ErrCodeInternalError,
			Message: "Internal server error.",
		}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{
		Code:    ErrCodeInvalidParams,
		Message: msg,
	}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

// mapAmanError converts an AmanError to an MCPError. Domain codes pick the
// MCP code; anything else falls back on the category.
func mapAmanError(ae *amerrors.AmanError) *MCPError {
	message := ae.Message
	if ae.Suggestion != "" {
		message = fmt.Sprintf("%s. %s", ae.Message, ae.Suggestion)
	}

	data := map[string]string{"error_code": ae.Code}
	for k, v := range ae.Details {
		data[k] = v
	}

	return &MCPError{
		Code:    mcpCodeFor(ae),
		Message: message,
		Data:    data,
	}
}

func mcpCodeFor(ae *amerrors.AmanError) int {
	switch ae.Code {
	case amerrors.ErrCodeNotFound:
		return ErrCodeDocumentNotFound
	case amerrors.ErrCodeAmbiguousMatch:
		return ErrCodeAmbiguousMatch
	case amerrors.ErrCodeEmbeddingFailed:
		return ErrCodeEmbeddingFailed
	case amerrors.ErrCodeIndexFailed, amerrors.ErrCodeStoreCorrupt, amerrors.ErrCodeBackupFailed,
		amerrors.ErrCodeDuplicateID:
		return ErrCodeIndexUnavailable
	}

	switch ae.Category {
	case amerrors.CategoryValidation:
		return ErrCodeInvalidParams
	case amerrors.CategoryNetwork:
		return ErrCodeTimeout
	default:
		return ErrCodeInternalError
	}
}
