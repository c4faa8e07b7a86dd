package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmanError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("disk read failed")

	// When: wrapping with AmanError
	amanErr := New(ErrCodeStoreCorrupt, "store unreadable", originalErr)

	// Then: unwrapping returns original error
	require.NotNil(t, amanErr)
	assert.Equal(t, originalErr, errors.Unwrap(amanErr))
	assert.True(t, errors.Is(amanErr, originalErr))
}

func TestAmanError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		code     string
		message  string
		expected string
	}{
		{ErrCodeConfigNotFound, "config file not found", "[ERR_101_CONFIG_NOT_FOUND] config file not found"},
		{ErrCodeNotFound, "doc/index.md not in panel", "[ERR_407_NOT_FOUND] doc/index.md not in panel"},
		{ErrCodeCloneFailed, "git clone failed", "[ERR_304_CLONE_FAILED] git clone failed"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, New(tt.code, tt.message, nil).Error())
		})
	}
}

func TestAmanError_Is_MatchesByCode(t *testing.T) {
	err1 := New(ErrCodeNotFound, "a.md not found", nil)
	err2 := New(ErrCodeNotFound, "b.md not found", nil)
	other := New(ErrCodeAmbiguousMatch, "two parents", nil)

	assert.True(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, other))
	assert.True(t, errors.Is(fmt.Errorf("get document: %w", err1), err2))
}

func TestAmanError_WithDetailAndSuggestion(t *testing.T) {
	err := New(ErrCodeBackupFailed, "copy failed", nil).
		WithDetail("store_dir", "/data/chroma").
		WithSuggestion("Check free disk space")

	assert.Equal(t, "/data/chroma", err.Details["store_dir"])
	assert.Equal(t, "Check free disk space", err.Suggestion)
}

func TestAmanError_DerivedFromCode(t *testing.T) {
	tests := []struct {
		code          string
		wantCategory  Category
		wantSeverity  Severity
		wantRetryable bool
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityError, false},
		{ErrCodeStoreCorrupt, CategoryIO, SeverityFatal, false},
		{ErrCodeBackupFailed, CategoryIO, SeverityError, false},
		{ErrCodeCloneFailed, CategoryNetwork, SeverityWarning, true},
		{ErrCodeNetworkTimeout, CategoryNetwork, SeverityWarning, true},
		{ErrCodeNotFound, CategoryValidation, SeverityError, false},
		{ErrCodeAmbiguousMatch, CategoryValidation, SeverityError, false},
		{ErrCodeDuplicateID, CategoryValidation, SeverityFatal, false},
		{ErrCodeInvalidContentMode, CategoryValidation, SeverityError, false},
		{ErrCodeConversion, CategoryInternal, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
			assert.Equal(t, tt.wantSeverity, err.Severity)
			assert.Equal(t, tt.wantRetryable, err.Retryable)
		})
	}
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))

	cause := errors.New("something went wrong")
	ae := Wrap(ErrCodeIndexFailed, cause)
	require.NotNil(t, ae)
	assert.Equal(t, ErrCodeIndexFailed, ae.Code)
	assert.Equal(t, "something went wrong", ae.Message)
	assert.Equal(t, cause, ae.Cause)
}

func TestHelpers_SeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("rebuild: %w", New(ErrCodeStoreCorrupt, "bad header", nil))

	assert.Equal(t, ErrCodeStoreCorrupt, GetCode(wrapped))
	assert.Equal(t, CategoryIO, GetCategory(wrapped))
	assert.Equal(t, SeverityFatal, asAman(wrapped).Severity)
	assert.False(t, IsRetryable(wrapped))
	assert.True(t, IsRetryable(fmt.Errorf("clone: %w", New(ErrCodeCloneFailed, "x", nil))))

	assert.Empty(t, GetCode(errors.New("plain")))
	assert.False(t, IsRetryable(nil))
}

func TestConstructors(t *testing.T) {
	assert.Equal(t, ErrCodeNotFound, NotFoundError("missing").Code)
	assert.Equal(t, ErrCodeAmbiguousMatch, AmbiguousMatchError("two").Code)
	assert.Equal(t, ErrCodeStoreCorrupt, StoreCorruptError("bad", nil).Code)
	assert.Equal(t, CategoryConfig, ConfigError("bad yaml", nil).Category)
	assert.Equal(t, CategoryValidation, ValidationError("empty query", nil).Category)
	assert.True(t, NetworkError("refused", nil).Retryable)
}

func TestIsCancellation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"canceled", context.Canceled, true},
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped canceled", fmt.Errorf("open store: %w", context.Canceled), true},
		{"inside AmanError", New(ErrCodeStoreCorrupt, "x", context.Canceled), true},
		{"plain", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCancellation(tt.err))
		})
	}
}

func TestDuplicateIDError_ListsEveryCollision(t *testing.T) {
	// Given: two collisions in one batch
	err := &DuplicateIDError{Collisions: []Collision{
		{ID: "panel___doc___a_md", FirstProject: "panel", FirstPath: "doc/a.md", DuplicateProject: "panel", DuplicatePath: "doc/a.md"},
		{ID: "hvplot___doc___b_md", FirstProject: "hvplot", FirstPath: "doc/b.md", DuplicateProject: "hvplot", DuplicatePath: "doc/b.md"},
	}}

	// Then: the message names both sides of both collisions
	msg := err.Error()
	assert.Contains(t, msg, "2 duplicate document id(s)")
	assert.Contains(t, msg, "panel/doc/a.md <-> panel/doc/a.md")
	assert.Contains(t, msg, "hvplot/doc/b.md <-> hvplot/doc/b.md")

	// And: it matches the coded error and is fatal
	assert.True(t, errors.Is(err, New(ErrCodeDuplicateID, "", nil)))
	assert.Equal(t, SeverityFatal, asAman(err).Severity)
	assert.Equal(t, ErrCodeDuplicateID, GetCode(fmt.Errorf("index: %w", err)))

	var dup *DuplicateIDError
	require.True(t, errors.As(fmt.Errorf("index: %w", err), &dup))
	assert.Len(t, dup.Collisions, 2)
}
