package multibody

import (
	"math/rand"

	"go.uber.org/multierr"

	"github.com/mechframe/kinetree/spatialmath"
)

// RootParent is the parent index of a joint attached directly to the world frame.
const RootParent = -1

// Tree is an immutable, topologically ordered kinematic tree. Joints are
// indexed in insertion order and every joint's parent index is strictly
// smaller than its own, so a single forward sweep visits parents before
// children. Build it once with AddJoint calls; it is read-only afterwards and
// safe for concurrent use.
type Tree struct {
	joints     []Joint
	names      []string
	byName     map[string]int
	parents    []int
	placements []spatialmath.Pose
	idxQ       []int
	idxV       []int
	nq         int
	nv         int
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{byName: map[string]int{}}
}

// AddJoint appends a joint to the tree under the given parent (RootParent for a
// joint hanging off the world frame) with a fixed placement relative to the
// parent's frame, and returns its index.
func (t *Tree) AddJoint(name string, parent int, placement spatialmath.Pose, joint Joint) (int, error) {
	if parent != RootParent && (parent < 0 || parent >= len(t.joints)) {
		return 0, NewParentOutOfRangeError(parent, len(t.joints))
	}
	if _, ok := t.byName[name]; ok {
		return 0, NewDuplicateJointNameError(name)
	}
	id := len(t.joints)
	t.joints = append(t.joints, joint)
	t.names = append(t.names, name)
	t.byName[name] = id
	t.parents = append(t.parents, parent)
	t.placements = append(t.placements, placement)
	t.idxQ = append(t.idxQ, t.nq)
	t.idxV = append(t.idxV, t.nv)
	t.nq += joint.ConfigurationSize()
	t.nv += joint.DoF()
	return id, nil
}

// NumJoints returns the number of joints in the tree.
func (t *Tree) NumJoints() int { return len(t.joints) }

// ConfigurationSize returns the total configuration-space dimension nq.
func (t *Tree) ConfigurationSize() int { return t.nq }

// DoF returns the total velocity-space dimension nv.
func (t *Tree) DoF() int { return t.nv }

// Joint returns the joint model at the given index.
func (t *Tree) Joint(jointID int) Joint { return t.joints[jointID] }

// Name returns the name of the joint at the given index.
func (t *Tree) Name(jointID int) string { return t.names[jointID] }

// JointID returns the index of the named joint, or an error if absent.
func (t *Tree) JointID(name string) (int, error) {
	id, ok := t.byName[name]
	if !ok {
		return 0, NewUnknownJointError(name)
	}
	return id, nil
}

// Parent returns the parent index of the given joint, RootParent at a root.
func (t *Tree) Parent(jointID int) int { return t.parents[jointID] }

// Placement returns the fixed placement of the given joint relative to its parent.
func (t *Tree) Placement(jointID int) spatialmath.Pose { return t.placements[jointID] }

// VelocityIndex returns the first column of the joint's block in the Jacobian.
func (t *Tree) VelocityIndex(jointID int) int { return t.idxV[jointID] }

// ConfigurationIndex returns the first entry of the joint's configuration segment.
func (t *Tree) ConfigurationIndex(jointID int) int { return t.idxQ[jointID] }

// Support returns the joint indices on the path from the root to jointID,
// inclusive, in increasing order.
func (t *Tree) Support(jointID int) []int {
	var chain []int
	for i := jointID; i != RootParent; i = t.parents[i] {
		chain = append(chain, i)
	}
	for l, r := 0, len(chain)-1; l < r; l, r = l+1, r-1 {
		chain[l], chain[r] = chain[r], chain[l]
	}
	return chain
}

// Ancestor returns whether a is on the path from the root to b, inclusive.
func (t *Tree) Ancestor(a, b int) bool {
	for i := b; i != RootParent; i = t.parents[i] {
		if i == a {
			return true
		}
	}
	return false
}

// Neutral returns the configuration at which every joint transform is the identity.
func (t *Tree) Neutral() []float64 {
	q := make([]float64, 0, t.nq)
	for _, j := range t.joints {
		q = append(q, j.Neutral()...)
	}
	return q
}

// RandomConfiguration returns a valid random configuration, integrating each
// joint from neutral by a random tangent step so that manifold-valued
// configurations stay on their manifold.
func (t *Tree) RandomConfiguration(rnd *rand.Rand) []float64 {
	q := make([]float64, 0, t.nq)
	for _, j := range t.joints {
		v := make([]float64, j.DoF())
		for k := range v {
			v[k] = rnd.Float64()*4 - 2
		}
		qj, err := j.Integrate(j.Neutral(), v, 1)
		if err != nil {
			// Neutral and a DoF-sized tangent cannot mismatch.
			panic(err)
		}
		q = append(q, qj...)
	}
	return q
}

// Integrate steps configuration q along velocity v for time dt, joint by joint,
// respecting each joint's manifold structure.
func (t *Tree) Integrate(q, v []float64, dt float64) ([]float64, error) {
	var errAll error
	if len(q) != t.nq {
		multierr.AppendInto(&errAll, NewDimensionMismatchError("configuration", t.nq, len(q)))
	}
	if len(v) != t.nv {
		multierr.AppendInto(&errAll, NewDimensionMismatchError("velocity", t.nv, len(v)))
	}
	if errAll != nil {
		return nil, errAll
	}
	out := make([]float64, 0, t.nq)
	for i, j := range t.joints {
		next, err := j.Integrate(
			q[t.idxQ[i]:t.idxQ[i]+j.ConfigurationSize()],
			v[t.idxV[i]:t.idxV[i]+j.DoF()],
			dt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, next...)
	}
	return out, nil
}
