// Package ik solves inverse kinematics over a multibody tree with a
// damped-least-squares Newton iteration on the log-map pose error.
package ik

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/mechframe/kinetree/multibody"
	"github.com/mechframe/kinetree/spatialmath"
)

// Solver iteratively drives one joint frame of a tree toward a goal pose. It
// owns its working state, so a Solver must not be shared across goroutines.
type Solver struct {
	tree    *multibody.Tree
	state   *multibody.State
	jointID int
	logger  golog.Logger

	// MaxIterations bounds the Newton iteration count per Solve call.
	MaxIterations int
	// Epsilon is the convergence tolerance on the log-map error twist norm.
	Epsilon float64
	// Damping is the squared singular-value floor of the damped least squares
	// step; larger values trade convergence speed for stability near
	// singular configurations.
	Damping float64
}

// NewSolver returns a solver for the given joint frame of the tree.
func NewSolver(tree *multibody.Tree, jointID int, logger golog.Logger) (*Solver, error) {
	if jointID < 0 || jointID >= tree.NumJoints() {
		return nil, multibody.NewJointOutOfRangeError(jointID, tree.NumJoints())
	}
	return &Solver{
		tree:          tree,
		state:         multibody.NewState(tree),
		jointID:       jointID,
		logger:        logger,
		MaxIterations: 300,
		Epsilon:       1e-10,
		Damping:       1e-10,
	}, nil
}

// Solve runs the iteration from the seed configuration until the pose error
// twist drops below Epsilon, the iteration budget runs out, or the context is
// cancelled. The goal rotation is validated up front; a non-rotation is a
// precondition violation surfaced as an error.
func (s *Solver) Solve(ctx context.Context, goal spatialmath.Pose, seed []float64) ([]float64, error) {
	if err := spatialmath.CheckRotation(goal.Rotation, 1e-8); err != nil {
		return nil, err
	}
	if len(seed) != s.tree.ConfigurationSize() {
		return nil, multibody.NewDimensionMismatchError("seed", s.tree.ConfigurationSize(), len(seed))
	}

	nv := s.tree.DoF()
	q := append([]float64(nil), seed...)
	jac := mat.NewDense(6, nv, nil)
	transported := mat.NewDense(6, nv, nil)
	for iter := 0; iter < s.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		jac.Zero()
		if err := multibody.ComputeJointJacobian(s.tree, s.state, q, s.jointID, jac); err != nil {
			return nil, err
		}
		errPose := spatialmath.Compose(s.state.Placements[s.jointID].Invert(), goal)
		residual := spatialmath.Log6(errPose)
		if residual.Norm() < s.Epsilon {
			s.logger.Debugf("converged after %d iterations", iter)
			return q, nil
		}

		// The local Jacobian lives in the tangent space at the current pose;
		// carry it over to the error transform's tangent space and push it
		// through the log-map Jacobian to linearize the residual.
		for c := 0; c < nv; c++ {
			setColumn(transported, c, errPose.ActInv(getColumn(jac, c)))
		}
		var linearized mat.Dense
		linearized.Mul(spatialmath.Jlog6(errPose), transported)

		dq, err := dampedLeastSquares(&linearized, residual, s.Damping)
		if err != nil {
			return nil, err
		}
		if q, err = s.tree.Integrate(q, dq, 1); err != nil {
			return nil, err
		}
		if iter%25 == 0 {
			s.logger.Debugf("iteration %d residual %.3e", iter, residual.Norm())
		}
	}
	return nil, NewConvergenceError(s.MaxIterations)
}

// dampedLeastSquares solves for dq minimizing ‖j·dq − r‖² + damping·‖dq‖²
// through the SVD of j.
func dampedLeastSquares(j *mat.Dense, r spatialmath.Motion, damping float64) ([]float64, error) {
	var svd mat.SVD
	if !svd.Factorize(j, mat.SVDThin) {
		return nil, errFactorization
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	sigma := svd.Values(nil)

	rv := mat.NewVecDense(6, []float64{
		r.Linear.X, r.Linear.Y, r.Linear.Z,
		r.Angular.X, r.Angular.Y, r.Angular.Z,
	})
	tmp := mat.NewVecDense(len(sigma), nil)
	tmp.MulVec(u.T(), rv)
	for i, s := range sigma {
		tmp.SetVec(i, tmp.AtVec(i)*s/(s*s+damping))
	}
	_, cols := j.Dims()
	out := mat.NewVecDense(cols, nil)
	out.MulVec(&v, tmp)
	return out.RawVector().Data, nil
}

func getColumn(m *mat.Dense, col int) spatialmath.Motion {
	return spatialmath.Motion{
		Linear:  r3.Vector{X: m.At(0, col), Y: m.At(1, col), Z: m.At(2, col)},
		Angular: r3.Vector{X: m.At(3, col), Y: m.At(4, col), Z: m.At(5, col)},
	}
}

func setColumn(m *mat.Dense, col int, v spatialmath.Motion) {
	m.Set(0, col, v.Linear.X)
	m.Set(1, col, v.Linear.Y)
	m.Set(2, col, v.Linear.Z)
	m.Set(3, col, v.Angular.X)
	m.Set(4, col, v.Angular.Y)
	m.Set(5, col, v.Angular.Z)
}
