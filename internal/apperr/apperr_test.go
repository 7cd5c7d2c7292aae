package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errWidgetMissing = New(NotFound, "widget not found")

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil error", nil, Internal},
		{"plain error", errors.New("boom"), Internal},
		{"classified", errWidgetMissing, NotFound},
		{"wrapped", fmt.Errorf("load widget w-1: %w", errWidgetMissing), NotFound},
		{"double wrapped", fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", New(Conflict, "taken"))), Conflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIs(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", errWidgetMissing)

	assert.True(t, Is(wrapped, NotFound))
	assert.False(t, Is(wrapped, Conflict))
	assert.False(t, Is(nil, Internal))
	assert.ErrorIs(t, wrapped, errWidgetMissing)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "insufficient_stock", InsufficientStock.String())
	assert.Equal(t, "internal", Kind(99).String())
}
