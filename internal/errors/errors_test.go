package errors

import (
	stderrors "errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without cause",
			err:      NewEmptyDatasetError("no records loaded"),
			expected: "[EMPTY_DATASET] no records loaded",
		},
		{
			name:     "with cause",
			err:      NewStorageError("failed to read", fmt.Errorf("disk gone")),
			expected: "[STORAGE] failed to read: disk gone",
		},
		{
			name:     "missing file",
			err:      NewMissingFileError("Output/a.txt", nil),
			expected: "[MISSING_FILE] input file Output/a.txt does not exist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := NewMissingFileError("x.txt", os.ErrNotExist)
	assert.True(t, stderrors.Is(err, os.ErrNotExist))
	assert.Equal(t, "x.txt", err.Context["path"])
}

func TestIsType(t *testing.T) {
	base := NewValidationError("bad angle")
	wrapped := fmt.Errorf("compute table: %w", base)
	nested := NewConfigError("load failed", wrapped)

	assert.True(t, IsType(base, ErrTypeValidation))
	assert.True(t, IsType(wrapped, ErrTypeValidation))
	assert.True(t, IsType(nested, ErrTypeConfig))
	assert.True(t, IsType(nested, ErrTypeValidation))
	assert.False(t, IsType(nested, ErrTypeStorage))
	assert.False(t, IsType(fmt.Errorf("plain"), ErrTypeValidation))
	assert.False(t, IsType(nil, ErrTypeValidation))
}

func TestWithContextInitialisesMap(t *testing.T) {
	err := &AppError{Type: ErrTypeParsing, Message: "m"}
	err.WithContext("line", 3)
	require.NotNil(t, err.Context)
	assert.Equal(t, 3, err.Context["line"])
}
