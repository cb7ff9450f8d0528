// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package einsum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_Matmul(t *testing.T) {
	e, err := Parse("ik,kj->ij", []Operand{
		{Shape: Ints(4, 8), DType: Float32},
		{Shape: Ints(8, 2), DType: Float32},
	}, []string{"A", "B"})
	require.NoError(t, err)

	n, err := Normalize(e)
	require.NoError(t, err)
	assert.Equal(t, "ac,cb->ab", n.Subscripts())
	assert.Equal(t, 2, n.NDim())
	assert.Equal(t, Lit(8), n.IndexToDimLength()[SummationAxis(0)])
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(Spec{})
	assert.ErrorIs(t, err, ErrValidation)
}
