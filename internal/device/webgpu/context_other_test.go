//go:build !windows

package webgpu

import (
	"testing"

	"github.com/born-ml/feinsum/internal/errs"
	"github.com/stretchr/testify/assert"
)

func TestOpen_Unsupported(t *testing.T) {
	_, err := Open(nil)
	assert.ErrorIs(t, err, errs.ErrUnsupported)
}
