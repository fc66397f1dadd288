package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "sitebuild.yaml").
			Build()

		assert.Equal(t, CategoryConfig, err.Category())
		assert.Equal(t, SeverityFatal, err.Severity())
		assert.Equal(t, "invalid configuration", err.Message())

		file, ok := err.Context().GetString("file")
		require.True(t, ok)
		assert.Equal(t, "sitebuild.yaml", file)
	})

	t.Run("Detection through wrapping", func(t *testing.T) {
		inner := IncludeError("cyclic inclusion").WithContext("chain", "a.html => a.html").Build()
		wrapped := fmt.Errorf("render index.html: %w", inner)

		assert.True(t, IsClassified(wrapped))
		assert.True(t, HasCategory(wrapped, CategoryInclude))
		assert.True(t, HasSeverity(wrapped, SeverityFatal))
		assert.Equal(t, CategoryInclude, GetCategory(wrapped))
		assert.Equal(t, CategoryInternal, GetCategory(errors.New("plain")))
	})

	t.Run("Warning severity with context map", func(t *testing.T) {
		err := ValidationError("broken internal references").
			Warning().
			WithContextMap(ErrorContext{"count": 3, "targets": 2}).
			Build()

		assert.True(t, err.IsSeverity(SeverityWarning))
		assert.False(t, err.IsFatal())
		assert.True(t, HasSeverity(fmt.Errorf("verify: %w", err), SeverityWarning))
		count, ok := err.Context().Get("count")
		require.True(t, ok)
		assert.Equal(t, 3, count)
	})

	t.Run("Wrap keeps cause", func(t *testing.T) {
		cause := errors.New("codec failure")
		err := WrapError(cause, CategoryImage, "encode derivative").
			WithContext("width", 480).
			Build()

		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "[image:error] encode derivative: codec failure")
	})
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name     string
		builder  *ErrorBuilder
		category ErrorCategory
	}{
		{"ConfigError", ConfigError("x"), CategoryConfig},
		{"ValidationError", ValidationError("x"), CategoryValidation},
		{"IncludeError", IncludeError("x"), CategoryInclude},
		{"RenderError", RenderError("x"), CategoryRender},
		{"ImageError", ImageError("x"), CategoryImage},
		{"ToolchainError", ToolchainError("x"), CategoryToolchain},
		{"FileSystemError", FileSystemError("x"), CategoryFileSystem},
		{"RuntimeError", RuntimeError("x"), CategoryRuntime},
		{"InternalError", InternalError("x"), CategoryInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.builder.Build()
			assert.Equal(t, tt.category, err.Category())
			assert.True(t, err.IsFatal())
		})
	}
}

func TestErrorContextMerge(t *testing.T) {
	ctx1 := ErrorContext{}.Set("key1", "value1").Set("shared", "original")
	ctx2 := ErrorContext{}.Set("key2", "value2").Set("shared", "overridden")

	merged := ctx1.Merge(ctx2)

	v, _ := merged.GetString("key1")
	assert.Equal(t, "value1", v)
	v, _ = merged.GetString("key2")
	assert.Equal(t, "value2", v)
	v, _ = merged.GetString("shared")
	assert.Equal(t, "overridden", v)

	_, ok := merged.Get("missing")
	assert.False(t, ok)
}
