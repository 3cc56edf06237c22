package ik

import (
	"github.com/pkg/errors"
)

var errFactorization = errors.New("failed to factorize jacobian")

// NewConvergenceError returns an error indicating the iteration budget ran out
// before the residual dropped below tolerance.
func NewConvergenceError(iterations int) error {
	return errors.Errorf("no solution found after %d iterations", iterations)
}
