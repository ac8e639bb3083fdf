package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "plain error", err: errors.New("boom"), want: KindInternal},
		{name: "direct", err: NewUnauthorized("bad key"), want: KindUnauthorized},
		{name: "wrapped", err: fmt.Errorf("apply: %w", NewStoreUnavailable("db down")), want: KindStoreUnavailable},
		{name: "nil", err: nil, want: KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewStoreUnavailable("failed to begin transaction", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to begin transaction: connection refused", err.Error())
	assert.Equal(t, "failed to begin transaction", MessageOf(err))
}

func TestErrorWithoutCause(t *testing.T) {
	err := NewInvalidDateFormat("Invalid date. Use YYYY-MM-DD")

	assert.Nil(t, err.Unwrap())
	assert.Equal(t, "Invalid date. Use YYYY-MM-DD", err.Error())
	assert.Equal(t, "internal error", MessageOf(errors.New("x")))
}
