package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Is(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		want     bool
	}{
		{"same kind", New(Capacity, "normalize", "too many"), ErrCapacity, true},
		{"other kind", New(Capacity, "normalize", "too many"), ErrValidation, false},
		{"wrapped by fmt", fmt.Errorf("ctx: %w", New(Lookup, "roofline", "x")), ErrLookup, true},
		{"plain error", errors.New("boom"), ErrEngine, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.sentinel))
		})
	}
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("iname not found")
	err := Wrap(Engine, "split_iname", cause)

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrEngine)
	assert.Equal(t, "engine error in split_iname: iname not found", err.Error())
	assert.Equal(t, Engine, KindOf(err))
}

func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, Wrap(Engine, "split_iname", nil))
	assert.Equal(t, Kind(0), KindOf(errors.New("x")))
}
