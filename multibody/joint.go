// Package multibody models an articulated rigid-body mechanism as a tree of
// joints and implements the Jacobian algorithms over it: the full-body geometric
// Jacobian, per-joint extraction in a choice of reference frames, and the
// Jacobian time derivative.
package multibody

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/mechframe/kinetree/spatialmath"
)

// Joint is the capability a joint model must provide: the size of its
// configuration and tangent (velocity) spaces, its configuration-dependent
// transform, and its motion subspace mapping joint velocities to spatial
// velocities in the joint's own frame.
type Joint interface {
	// ConfigurationSize returns the number of configuration variables of the
	// joint. It can exceed DoF for joints parameterized on a manifold, e.g. a
	// spherical joint stores a unit quaternion.
	ConfigurationSize() int

	// DoF returns the dimension of the joint's velocity space.
	DoF() int

	// Neutral returns the configuration segment at which the joint transform is
	// the identity.
	Neutral() []float64

	// Transform returns the joint's transform for the given configuration
	// segment, of length ConfigurationSize.
	Transform(q []float64) (spatialmath.Pose, error)

	// MotionSubspace returns DoF columns, each the spatial velocity in the
	// joint's own frame produced by a unit velocity of the corresponding
	// tangent coordinate, evaluated at the given configuration segment.
	MotionSubspace(q []float64) ([]spatialmath.Motion, error)

	// Integrate steps the configuration segment along the tangent segment v,
	// of length DoF, scaled by dt, respecting the joint's manifold structure.
	Integrate(q, v []float64, dt float64) ([]float64, error)
}

// subspaceVarier is implemented by joints whose motion subspace depends on the
// configuration, and therefore contributes its own time derivative to the
// Jacobian time variation on top of the velocity cross term.
type subspaceVarier interface {
	// MotionSubspaceVariation returns the time derivative of each subspace
	// column in the joint's own frame, given configuration and velocity
	// segments.
	MotionSubspaceVariation(q, v []float64) ([]spatialmath.Motion, error)
}

// Revolute is a 1DoF joint rotating about a fixed axis through the joint origin.
type Revolute struct {
	axis r3.Vector
}

// NewRevolute returns a revolute joint about the given axis. The axis is
// normalized and must be nonzero.
func NewRevolute(axis r3.Vector) (*Revolute, error) {
	if axis.Norm() == 0 {
		return nil, errZeroAxis
	}
	return &Revolute{axis: axis.Normalize()}, nil
}

// ConfigurationSize returns 1.
func (j *Revolute) ConfigurationSize() int { return 1 }

// DoF returns 1.
func (j *Revolute) DoF() int { return 1 }

// Neutral returns the zero angle.
func (j *Revolute) Neutral() []float64 { return []float64{0} }

// Transform returns the rotation by the configured angle about the joint axis.
func (j *Revolute) Transform(q []float64) (spatialmath.Pose, error) {
	if len(q) != 1 {
		return spatialmath.Pose{}, NewDimensionMismatchError("configuration", 1, len(q))
	}
	return spatialmath.NewPoseFromAxisAngle(j.axis, q[0]), nil
}

// MotionSubspace returns the single angular column along the joint axis.
func (j *Revolute) MotionSubspace(q []float64) ([]spatialmath.Motion, error) {
	if len(q) != 1 {
		return nil, NewDimensionMismatchError("configuration", 1, len(q))
	}
	return []spatialmath.Motion{{Angular: j.axis}}, nil
}

// Integrate steps the angle.
func (j *Revolute) Integrate(q, v []float64, dt float64) ([]float64, error) {
	if len(q) != 1 || len(v) != 1 {
		return nil, NewDimensionMismatchError("configuration/velocity", 1, len(q))
	}
	return []float64{q[0] + v[0]*dt}, nil
}

// Prismatic is a 1DoF joint translating along a fixed axis.
type Prismatic struct {
	axis r3.Vector
}

// NewPrismatic returns a prismatic joint along the given axis. The axis is
// normalized and must be nonzero.
func NewPrismatic(axis r3.Vector) (*Prismatic, error) {
	if axis.Norm() == 0 {
		return nil, errZeroAxis
	}
	return &Prismatic{axis: axis.Normalize()}, nil
}

// ConfigurationSize returns 1.
func (j *Prismatic) ConfigurationSize() int { return 1 }

// DoF returns 1.
func (j *Prismatic) DoF() int { return 1 }

// Neutral returns the zero displacement.
func (j *Prismatic) Neutral() []float64 { return []float64{0} }

// Transform returns the translation by the configured displacement along the axis.
func (j *Prismatic) Transform(q []float64) (spatialmath.Pose, error) {
	if len(q) != 1 {
		return spatialmath.Pose{}, NewDimensionMismatchError("configuration", 1, len(q))
	}
	return spatialmath.NewPoseFromPoint(j.axis.Mul(q[0])), nil
}

// MotionSubspace returns the single linear column along the joint axis.
func (j *Prismatic) MotionSubspace(q []float64) ([]spatialmath.Motion, error) {
	if len(q) != 1 {
		return nil, NewDimensionMismatchError("configuration", 1, len(q))
	}
	return []spatialmath.Motion{{Linear: j.axis}}, nil
}

// Integrate steps the displacement.
func (j *Prismatic) Integrate(q, v []float64, dt float64) ([]float64, error) {
	if len(q) != 1 || len(v) != 1 {
		return nil, NewDimensionMismatchError("configuration/velocity", 1, len(q))
	}
	return []float64{q[0] + v[0]*dt}, nil
}

// Helical is a 1DoF screw joint: rotation about an axis coupled with a
// proportional translation along it. Pitch is the translation per radian.
type Helical struct {
	axis  r3.Vector
	pitch float64
}

// NewHelical returns a helical joint about the given axis with the given pitch.
func NewHelical(axis r3.Vector, pitch float64) (*Helical, error) {
	if axis.Norm() == 0 {
		return nil, errZeroAxis
	}
	return &Helical{axis: axis.Normalize(), pitch: pitch}, nil
}

// ConfigurationSize returns 1.
func (j *Helical) ConfigurationSize() int { return 1 }

// DoF returns 1.
func (j *Helical) DoF() int { return 1 }

// Neutral returns the zero angle.
func (j *Helical) Neutral() []float64 { return []float64{0} }

// Transform returns the screw motion for the configured angle.
func (j *Helical) Transform(q []float64) (spatialmath.Pose, error) {
	if len(q) != 1 {
		return spatialmath.Pose{}, NewDimensionMismatchError("configuration", 1, len(q))
	}
	return spatialmath.NewPose(
		spatialmath.Exp3(j.axis.Mul(q[0])),
		j.axis.Mul(j.pitch*q[0]),
	), nil
}

// MotionSubspace returns the single screw column: angular along the axis,
// linear along the axis scaled by pitch.
func (j *Helical) MotionSubspace(q []float64) ([]spatialmath.Motion, error) {
	if len(q) != 1 {
		return nil, NewDimensionMismatchError("configuration", 1, len(q))
	}
	return []spatialmath.Motion{{Linear: j.axis.Mul(j.pitch), Angular: j.axis}}, nil
}

// Integrate steps the angle.
func (j *Helical) Integrate(q, v []float64, dt float64) ([]float64, error) {
	if len(q) != 1 || len(v) != 1 {
		return nil, NewDimensionMismatchError("configuration/velocity", 1, len(q))
	}
	return []float64{q[0] + v[0]*dt}, nil
}

// Spherical is a 3DoF ball joint. Its configuration is a unit quaternion stored
// as (w, x, y, z); its velocity is a body-frame angular velocity.
type Spherical struct{}

// NewSpherical returns a spherical joint.
func NewSpherical() *Spherical { return &Spherical{} }

// ConfigurationSize returns 4.
func (j *Spherical) ConfigurationSize() int { return 4 }

// DoF returns 3.
func (j *Spherical) DoF() int { return 3 }

// Neutral returns the identity quaternion.
func (j *Spherical) Neutral() []float64 { return []float64{1, 0, 0, 0} }

// Transform returns the rotation encoded by the configured quaternion.
func (j *Spherical) Transform(q []float64) (spatialmath.Pose, error) {
	if len(q) != 4 {
		return spatialmath.Pose{}, NewDimensionMismatchError("configuration", 4, len(q))
	}
	return spatialmath.NewPose(
		spatialmath.RotationFromQuaternion(quat.Number{Real: q[0], Imag: q[1], Jmag: q[2], Kmag: q[3]}),
		r3.Vector{},
	), nil
}

// MotionSubspace returns the three angular unit columns.
func (j *Spherical) MotionSubspace(q []float64) ([]spatialmath.Motion, error) {
	if len(q) != 4 {
		return nil, NewDimensionMismatchError("configuration", 4, len(q))
	}
	return []spatialmath.Motion{
		{Angular: r3.Vector{X: 1}},
		{Angular: r3.Vector{Y: 1}},
		{Angular: r3.Vector{Z: 1}},
	}, nil
}

// Integrate composes the configured quaternion with the exponential of the
// body-frame angular velocity.
func (j *Spherical) Integrate(q, v []float64, dt float64) ([]float64, error) {
	if len(q) != 4 {
		return nil, NewDimensionMismatchError("configuration", 4, len(q))
	}
	if len(v) != 3 {
		return nil, NewDimensionMismatchError("velocity", 3, len(v))
	}
	cur := quat.Number{Real: q[0], Imag: q[1], Jmag: q[2], Kmag: q[3]}
	step := spatialmath.QuaternionFromRotationVector(r3.Vector{X: v[0] * dt, Y: v[1] * dt, Z: v[2] * dt})
	next := normalizeQuat(quat.Mul(cur, step))
	return []float64{next.Real, next.Imag, next.Jmag, next.Kmag}, nil
}

// FreeFlyer is a 6DoF joint placing its child freely in space. Its configuration
// is a translation followed by a unit quaternion, (x, y, z, qw, qx, qy, qz); its
// velocity is a body-frame spatial velocity.
type FreeFlyer struct{}

// NewFreeFlyer returns a free-flyer joint.
func NewFreeFlyer() *FreeFlyer { return &FreeFlyer{} }

// ConfigurationSize returns 7.
func (j *FreeFlyer) ConfigurationSize() int { return 7 }

// DoF returns 6.
func (j *FreeFlyer) DoF() int { return 6 }

// Neutral returns the identity placement.
func (j *FreeFlyer) Neutral() []float64 { return []float64{0, 0, 0, 1, 0, 0, 0} }

// Transform returns the configured placement.
func (j *FreeFlyer) Transform(q []float64) (spatialmath.Pose, error) {
	if len(q) != 7 {
		return spatialmath.Pose{}, NewDimensionMismatchError("configuration", 7, len(q))
	}
	return spatialmath.NewPose(
		spatialmath.RotationFromQuaternion(quat.Number{Real: q[3], Imag: q[4], Jmag: q[5], Kmag: q[6]}),
		r3.Vector{X: q[0], Y: q[1], Z: q[2]},
	), nil
}

// MotionSubspace returns the identity: three linear then three angular unit columns.
func (j *FreeFlyer) MotionSubspace(q []float64) ([]spatialmath.Motion, error) {
	if len(q) != 7 {
		return nil, NewDimensionMismatchError("configuration", 7, len(q))
	}
	return []spatialmath.Motion{
		{Linear: r3.Vector{X: 1}},
		{Linear: r3.Vector{Y: 1}},
		{Linear: r3.Vector{Z: 1}},
		{Angular: r3.Vector{X: 1}},
		{Angular: r3.Vector{Y: 1}},
		{Angular: r3.Vector{Z: 1}},
	}, nil
}

// Integrate composes the configured placement with the exponential of the
// body-frame spatial velocity.
func (j *FreeFlyer) Integrate(q, v []float64, dt float64) ([]float64, error) {
	if len(q) != 7 {
		return nil, NewDimensionMismatchError("configuration", 7, len(q))
	}
	if len(v) != 6 {
		return nil, NewDimensionMismatchError("velocity", 6, len(v))
	}
	cur, err := j.Transform(q)
	if err != nil {
		return nil, err
	}
	step := spatialmath.Exp6(spatialmath.Motion{
		Linear:  r3.Vector{X: v[0] * dt, Y: v[1] * dt, Z: v[2] * dt},
		Angular: r3.Vector{X: v[3] * dt, Y: v[4] * dt, Z: v[5] * dt},
	})
	next := spatialmath.Compose(cur, step)
	nq := normalizeQuat(spatialmath.QuaternionFromRotation(next.Rotation))
	return []float64{
		next.Translation.X, next.Translation.Y, next.Translation.Z,
		nq.Real, nq.Imag, nq.Jmag, nq.Kmag,
	}, nil
}

// Fixed is a 0DoF joint. It contributes no Jacobian columns and is how
// auxiliary frames such as tool tips are attached to the tree.
type Fixed struct{}

// NewFixed returns a fixed joint.
func NewFixed() *Fixed { return &Fixed{} }

// ConfigurationSize returns 0.
func (j *Fixed) ConfigurationSize() int { return 0 }

// DoF returns 0.
func (j *Fixed) DoF() int { return 0 }

// Neutral returns the empty configuration.
func (j *Fixed) Neutral() []float64 { return nil }

// Transform returns the identity; the fixed placement lives on the tree edge.
func (j *Fixed) Transform(q []float64) (spatialmath.Pose, error) {
	if len(q) != 0 {
		return spatialmath.Pose{}, NewDimensionMismatchError("configuration", 0, len(q))
	}
	return spatialmath.NewZeroPose(), nil
}

// MotionSubspace returns no columns.
func (j *Fixed) MotionSubspace(q []float64) ([]spatialmath.Motion, error) {
	if len(q) != 0 {
		return nil, NewDimensionMismatchError("configuration", 0, len(q))
	}
	return nil, nil
}

// Integrate returns the empty configuration.
func (j *Fixed) Integrate(q, v []float64, dt float64) ([]float64, error) {
	if len(q) != 0 || len(v) != 0 {
		return nil, NewDimensionMismatchError("configuration/velocity", 0, len(q))
	}
	return nil, nil
}

func normalizeQuat(q quat.Number) quat.Number {
	return quat.Scale(1/quat.Abs(q), q)
}
