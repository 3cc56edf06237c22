// Package spatialmath defines the spatial math primitives used by the multibody
// algorithms: rigid transforms on SE(3), spatial velocities (twists), and the
// exponential and logarithmic maps relating the two.
package spatialmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/mechframe/kinetree/utils"
)

// Pose represents a rigid transform: an orthonormal rotation plus a translation.
// Poses compose associatively and act on Motion vectors via the adjoint action.
type Pose struct {
	Rotation    mgl64.Mat3
	Translation r3.Vector
}

// NewZeroPose returns the identity transform.
func NewZeroPose() Pose {
	return Pose{Rotation: mgl64.Ident3()}
}

// NewPose returns a pose with the given rotation and translation.
func NewPose(rotation mgl64.Mat3, translation r3.Vector) Pose {
	return Pose{Rotation: rotation, Translation: translation}
}

// NewPoseFromPoint returns a pure translation with identity rotation.
func NewPoseFromPoint(pt r3.Vector) Pose {
	return Pose{Rotation: mgl64.Ident3(), Translation: pt}
}

// NewPoseFromAxisAngle returns a pure rotation of angle theta about the given axis.
// The axis need not be normalized; a zero axis yields the identity.
func NewPoseFromAxisAngle(axis r3.Vector, theta float64) Pose {
	if axis.Norm() == 0 {
		return NewZeroPose()
	}
	return Pose{Rotation: Exp3(axis.Normalize().Mul(theta))}
}

// Compose returns the transform a∘b, i.e. b expressed through a.
func Compose(a, b Pose) Pose {
	return Pose{
		Rotation:    a.Rotation.Mul3(b.Rotation),
		Translation: a.Translation.Add(a.RotateVector(b.Translation)),
	}
}

// Invert returns the inverse transform.
func (p Pose) Invert() Pose {
	rt := p.Rotation.Transpose()
	return Pose{
		Rotation:    rt,
		Translation: rotateVector(rt, p.Translation).Mul(-1),
	}
}

// RotateVector applies only the rotation part of the pose to a 3-vector.
func (p Pose) RotateVector(v r3.Vector) r3.Vector {
	return rotateVector(p.Rotation, v)
}

// TransformPoint applies the full rigid transform to a point.
func (p Pose) TransformPoint(pt r3.Vector) r3.Vector {
	return p.RotateVector(pt).Add(p.Translation)
}

// Act transports a Motion expressed in this pose's frame into the parent frame,
// i.e. the adjoint action. The angular part is rotated; the linear part is rotated
// and picks up the translation coupling term.
func (p Pose) Act(m Motion) Motion {
	angular := p.RotateVector(m.Angular)
	return Motion{
		Linear:  p.RotateVector(m.Linear).Add(p.Translation.Cross(angular)),
		Angular: angular,
	}
}

// ActInv transports a Motion expressed in the parent frame into this pose's frame,
// the inverse adjoint action.
func (p Pose) ActInv(m Motion) Motion {
	rt := p.Rotation.Transpose()
	return Motion{
		Linear:  rotateVector(rt, m.Linear.Sub(p.Translation.Cross(m.Angular))),
		Angular: rotateVector(rt, m.Angular),
	}
}

// AlmostEqual returns whether two poses are equal to within epsilon, elementwise.
func (p Pose) AlmostEqual(other Pose, epsilon float64) bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if !utils.Float64AlmostEqual(p.Rotation.At(i, j), other.Rotation.At(i, j), epsilon) {
				return false
			}
		}
	}
	return utils.Float64AlmostEqual(p.Translation.X, other.Translation.X, epsilon) &&
		utils.Float64AlmostEqual(p.Translation.Y, other.Translation.Y, epsilon) &&
		utils.Float64AlmostEqual(p.Translation.Z, other.Translation.Z, epsilon)
}

// CheckRotation returns a non-nil error if the matrix is not orthonormal with
// determinant +1 to within epsilon. Functions taking rotations as input assume
// validity by contract; this is the explicit fail-fast check for callers that
// ingest rotations from outside.
func CheckRotation(r mgl64.Mat3, epsilon float64) error {
	prod := r.Mul3(r.Transpose())
	ident := mgl64.Ident3()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(prod.At(i, j)-ident.At(i, j)) > epsilon {
				return errors.New("matrix is not orthonormal")
			}
		}
	}
	if math.Abs(r.Det()-1) > epsilon {
		return errors.Errorf("matrix determinant is %f, not +1", r.Det())
	}
	return nil
}

func rotateVector(r mgl64.Mat3, v r3.Vector) r3.Vector {
	out := r.Mul3x1(mgl64.Vec3{v.X, v.Y, v.Z})
	return r3.Vector{X: out[0], Y: out[1], Z: out[2]}
}
