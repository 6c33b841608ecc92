package apperr

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
		{"nil", nil, ""},
		{"plain", errors.New("boom"), KindInternal},
		{"not found", NotFound("order %s not found", "x"), KindNotFound},
		{"wrapped conflict", fmt.Errorf("create booking: %w", Conflict("overlap")), KindConflict},
		{"internal", Internal(errors.New("db down")), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestMessage_HidesInternalCause(t *testing.T) {
	err := Internal(errors.New("password authentication failed for user cafe"))
	assert.Equal(t, "internal server error", Message(err))
	assert.Equal(t, "internal server error", Message(errors.New("raw")))
	assert.Contains(t, err.Error(), "password authentication failed")
	assert.Equal(t, "exceeds remaining due", Message(InvalidInput("exceeds remaining due")))
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("wrap: %w", InvalidState("order is COMPLETED"))
	assert.True(t, Is(err, KindInvalidState))
	assert.False(t, Is(err, KindConflict))
	assert.False(t, Is(nil, KindInternal))
}

func TestWrap(t *testing.T) {
	conflict := Conflict("invoice already exists")
	assert.Same(t, conflict, Wrap(conflict))
	assert.Equal(t, KindInternal, KindOf(Wrap(errors.New("connection reset"))))
	assert.Equal(t, KindNotFound, KindOf(Wrap(fmt.Errorf("tx: %w", NotFound("order not found")))))
	assert.NoError(t, Wrap(nil))
}
