package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without cause",
			err:  NewParsingError("bad timestamp", nil),
			want: "[PARSING] bad timestamp",
		},
		{
			name: "with cause",
			err:  NewNetworkError("fetch failed", stderrors.New("connection refused")),
			want: "[NETWORK] fetch failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := stderrors.New("root cause")
	err := NewStorageError("write failed", cause)

	assert.True(t, stderrors.Is(err, cause))

	var appErr *AppError
	assert.True(t, stderrors.As(err, &appErr))
	assert.Equal(t, ErrTypeStorage, appErr.Type)
}

func TestAppError_WithContext(t *testing.T) {
	err := NewDegenerateColumnError("zero variance", nil).
		WithContext("column", "value_Solar").
		WithContext("samples", 1)

	assert.Equal(t, "value_Solar", err.Context["column"])
	assert.Equal(t, 1, err.Context["samples"])
}

func TestIsType(t *testing.T) {
	err := NewCorrelationError("no overlap", nil)

	assert.True(t, IsType(err, ErrTypeCorrelation))
	assert.False(t, IsType(err, ErrTypeParsing))
	assert.False(t, IsType(stderrors.New("plain"), ErrTypeParsing))
}
