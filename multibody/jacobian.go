package multibody

import (
	"github.com/golang/geo/r3"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"

	"github.com/mechframe/kinetree/spatialmath"
)

// Frame selects the basis in which a joint's Jacobian columns are expressed:
// the joint's own axes, the world axes at the world origin, or world-aligned
// axes at the joint origin.
type Frame int

// The supported reference frames. Any other value is a contract violation and
// is rejected with an error.
const (
	Local Frame = iota
	World
	LocalWorldAligned
)

// String implements fmt.Stringer.
func (f Frame) String() string {
	switch f {
	case Local:
		return "local"
	case World:
		return "world"
	case LocalWorldAligned:
		return "local_world_aligned"
	default:
		return "unknown"
	}
}

// ProjectMotion re-expresses a world-frame spatial vector of a joint placed at
// pose into the requested reference frame.
func ProjectMotion(pose spatialmath.Pose, frame Frame, m spatialmath.Motion) (spatialmath.Motion, error) {
	switch frame {
	case World:
		return m, nil
	case Local:
		return pose.ActInv(m), nil
	case LocalWorldAligned:
		// Same origin as the joint, axes aligned with the world: shift the
		// linear part to the joint origin, leave the basis alone.
		return spatialmath.Motion{
			Linear:  m.Linear.Add(m.Angular.Cross(pose.Translation)),
			Angular: m.Angular,
		}, nil
	default:
		return spatialmath.Motion{}, NewInvalidFrameError(frame)
	}
}

// ComputeJointJacobians runs the forward pass over the whole tree for
// configuration q: it fills state.Placements with every joint's world placement
// and state.J with each joint's motion subspace transported to the world frame.
// J is zeroed at the start of the call; afterwards the column block of joint i
// spans [VelocityIndex(i), VelocityIndex(i)+DoF(i)) and every other column of
// that block's rows belongs to some other joint's block. The filled J is
// returned for convenience and aliases state.J.
func ComputeJointJacobians(t *Tree, s *State, q []float64) (*mat.Dense, error) {
	if len(q) != t.ConfigurationSize() {
		return nil, NewDimensionMismatchError("configuration", t.ConfigurationSize(), len(q))
	}
	s.J.Zero()
	for i := 0; i < t.NumJoints(); i++ {
		joint := t.joints[i]
		jq := q[t.idxQ[i] : t.idxQ[i]+joint.ConfigurationSize()]
		if err := forwardPlacement(t, s, i, jq); err != nil {
			return nil, err
		}
		sub, err := joint.MotionSubspace(jq)
		if err != nil {
			return nil, err
		}
		for k, col := range sub {
			setColumn(s.J, t.idxV[i]+k, s.Placements[i].Act(col))
		}
	}
	return s.J, nil
}

// FillJointJacobian extracts the 6×nv Jacobian of one joint frame from a state
// previously filled by ComputeJointJacobians, converting each column to the
// requested reference frame. Only the columns of the joint's ancestor chain are
// written; the caller must pre-zero out, which must be 6×nv.
func FillJointJacobian(t *Tree, s *State, jointID int, frame Frame, out *mat.Dense) error {
	return fillFromWorldColumns(t, s.J, s, jointID, frame, out)
}

// JointJacobian is the allocating convenience around FillJointJacobian: it
// returns a fresh zeroed 6×nv matrix with the ancestor-chain columns filled.
func JointJacobian(t *Tree, s *State, jointID int, frame Frame) (*mat.Dense, error) {
	out := mat.NewDense(6, jacobianCols(t), nil)
	if err := FillJointJacobian(t, s, jointID, frame, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ComputeJointJacobian computes the Jacobian of a single joint frame in the
// Local frame directly from configuration q, running the forward pass only over
// the joint's ancestor chain rather than the whole tree. The caller must
// pre-zero out (6×nv); only ancestor-chain columns are written. Placements of
// joints off the chain are left stale in the state. Cheaper than a full pass
// for one Jacobian; for several, run ComputeJointJacobians once and extract.
func ComputeJointJacobian(t *Tree, s *State, q []float64, jointID int, out *mat.Dense) error {
	if len(q) != t.ConfigurationSize() {
		return NewDimensionMismatchError("configuration", t.ConfigurationSize(), len(q))
	}
	if jointID < 0 || jointID >= t.NumJoints() {
		return NewJointOutOfRangeError(jointID, t.NumJoints())
	}
	if err := checkOutputSize(t, out); err != nil {
		return err
	}

	chain := t.Support(jointID)
	subs := make([][]spatialmath.Motion, len(chain))
	for n, i := range chain {
		joint := t.joints[i]
		jq := q[t.idxQ[i] : t.idxQ[i]+joint.ConfigurationSize()]
		if err := forwardPlacement(t, s, i, jq); err != nil {
			return err
		}
		sub, err := joint.MotionSubspace(jq)
		if err != nil {
			return err
		}
		subs[n] = sub
	}

	target := s.Placements[jointID]
	for n, i := range chain {
		for k, col := range subs[n] {
			world := s.Placements[i].Act(col)
			setColumn(out, t.idxV[i]+k, target.ActInv(world))
		}
	}
	return nil
}

// ComputeJointJacobiansTimeVariation runs the velocity-aware forward pass for
// configuration q and velocity v: it fills state.Placements, state.Velocities,
// state.J exactly as ComputeJointJacobians does, and state.DJ with the time
// derivative of each world-frame column. A column's derivative is the spatial
// cross product of the joint's accumulated world velocity with the column,
// plus the transported derivative of the joint's own subspace when that is
// configuration-dependent. DJ shares J's sparsity. The filled DJ is returned
// and aliases state.DJ.
func ComputeJointJacobiansTimeVariation(t *Tree, s *State, q, v []float64) (*mat.Dense, error) {
	var errAll error
	if len(q) != t.ConfigurationSize() {
		multierr.AppendInto(&errAll, NewDimensionMismatchError("configuration", t.ConfigurationSize(), len(q)))
	}
	if len(v) != t.DoF() {
		multierr.AppendInto(&errAll, NewDimensionMismatchError("velocity", t.DoF(), len(v)))
	}
	if errAll != nil {
		return nil, errAll
	}
	s.J.Zero()
	s.DJ.Zero()
	for i := 0; i < t.NumJoints(); i++ {
		joint := t.joints[i]
		jq := q[t.idxQ[i] : t.idxQ[i]+joint.ConfigurationSize()]
		jv := v[t.idxV[i] : t.idxV[i]+joint.DoF()]
		if err := forwardPlacement(t, s, i, jq); err != nil {
			return nil, err
		}
		sub, err := joint.MotionSubspace(jq)
		if err != nil {
			return nil, err
		}

		// joint velocity in the joint frame, then accumulate in world
		var vJ spatialmath.Motion
		for k, col := range sub {
			vJ = vJ.Add(col.Mul(jv[k]))
		}
		vel := s.Placements[i].Act(vJ)
		if parent := t.parents[i]; parent != RootParent {
			vel = s.Velocities[parent].Add(vel)
		}
		s.Velocities[i] = vel

		for k, col := range sub {
			world := s.Placements[i].Act(col)
			setColumn(s.J, t.idxV[i]+k, world)
			setColumn(s.DJ, t.idxV[i]+k, vel.Cross(world))
		}
		if varier, ok := joint.(subspaceVarier); ok {
			dsub, err := varier.MotionSubspaceVariation(jq, jv)
			if err != nil {
				return nil, err
			}
			for k, dcol := range dsub {
				addColumn(s.DJ, t.idxV[i]+k, s.Placements[i].Act(dcol))
			}
		}
	}
	return s.DJ, nil
}

// FillJointJacobianTimeVariation extracts one joint's Jacobian time derivative
// from a state previously filled by ComputeJointJacobiansTimeVariation, with
// the same frame conversion and pre-zeroed-output contract as
// FillJointJacobian.
func FillJointJacobianTimeVariation(t *Tree, s *State, jointID int, frame Frame, out *mat.Dense) error {
	return fillFromWorldColumns(t, s.DJ, s, jointID, frame, out)
}

// JointJacobianTimeVariation is the allocating convenience around
// FillJointJacobianTimeVariation.
func JointJacobianTimeVariation(t *Tree, s *State, jointID int, frame Frame) (*mat.Dense, error) {
	out := mat.NewDense(6, jacobianCols(t), nil)
	if err := FillJointJacobianTimeVariation(t, s, jointID, frame, out); err != nil {
		return nil, err
	}
	return out, nil
}

// forwardPlacement computes the world placement of joint i from its parent's,
// its fixed placement and its joint transform at configuration segment jq.
func forwardPlacement(t *Tree, s *State, i int, jq []float64) error {
	jp, err := t.joints[i].Transform(jq)
	if err != nil {
		return err
	}
	local := spatialmath.Compose(t.placements[i], jp)
	if parent := t.parents[i]; parent != RootParent {
		local = spatialmath.Compose(s.Placements[parent], local)
	}
	s.Placements[i] = local
	return nil
}

func fillFromWorldColumns(t *Tree, src *mat.Dense, s *State, jointID int, frame Frame, out *mat.Dense) error {
	if jointID < 0 || jointID >= t.NumJoints() {
		return NewJointOutOfRangeError(jointID, t.NumJoints())
	}
	if frame != Local && frame != World && frame != LocalWorldAligned {
		return NewInvalidFrameError(frame)
	}
	if err := checkOutputSize(t, out); err != nil {
		return err
	}
	pose := s.Placements[jointID]
	for _, i := range t.Support(jointID) {
		for c := t.idxV[i]; c < t.idxV[i]+t.joints[i].DoF(); c++ {
			col := getColumn(src, c)
			// frame already validated above
			proj, _ := ProjectMotion(pose, frame, col)
			setColumn(out, c, proj)
		}
	}
	return nil
}

func checkOutputSize(t *Tree, out *mat.Dense) error {
	r, c := out.Dims()
	if r != 6 || c != jacobianCols(t) {
		return NewDimensionMismatchError("output matrix columns", jacobianCols(t), c)
	}
	return nil
}

// jacobianCols is the column count of every Jacobian buffer for the tree. gonum
// refuses zero-sized matrices, so a tree of only fixed joints still gets one
// (never written) column.
func jacobianCols(t *Tree) int {
	if t.DoF() == 0 {
		return 1
	}
	return t.DoF()
}

func getColumn(m *mat.Dense, col int) spatialmath.Motion {
	return spatialmath.Motion{
		Linear:  r3VectorAt(m, 0, col),
		Angular: r3VectorAt(m, 3, col),
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

func addColumn(m *mat.Dense, col int, v spatialmath.Motion) {
	cur := getColumn(m, col)
	setColumn(m, col, cur.Add(v))
}

func r3VectorAt(m *mat.Dense, row, col int) r3.Vector {
	return r3.Vector{X: m.At(row, col), Y: m.At(row+1, col), Z: m.At(row+2, col)}
}
