package multibody

import (
	"gonum.org/v1/gonum/mat"

	"github.com/mechframe/kinetree/spatialmath"
)

// State holds the mutable working buffers for one tree: per-joint world
// placements, per-joint world spatial velocities, the full Jacobian and its
// time derivative. It is owned by the caller, reused across calls, and
// overwritten by each compute pass. It is not safe for concurrent mutation;
// concurrent reads of an unmutated State are fine. Callers needing results to
// survive the next pass must copy them out.
type State struct {
	// Placements is the world placement of every joint frame, filled parent
	// before child by the forward passes.
	Placements []spatialmath.Pose

	// Velocities is the world spatial velocity of every joint frame, filled by
	// ComputeJointJacobiansTimeVariation.
	Velocities []spatialmath.Motion

	// J is the full 6×nv Jacobian, world frame, linear rows first.
	J *mat.Dense

	// DJ is the time derivative of J, with the same sparsity.
	DJ *mat.Dense
}

// NewState allocates working buffers sized for the given tree.
func NewState(t *Tree) *State {
	return &State{
		Placements: make([]spatialmath.Pose, t.NumJoints()),
		Velocities: make([]spatialmath.Motion, t.NumJoints()),
		J:          mat.NewDense(6, jacobianCols(t), nil),
		DJ:         mat.NewDense(6, jacobianCols(t), nil),
	}
}
