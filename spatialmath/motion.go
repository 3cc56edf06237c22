package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/mechframe/kinetree/utils"
)

// Motion is a spatial velocity (twist): a linear velocity paired with an angular
// velocity. As a 6-vector it is serialized linear first, angular second.
type Motion struct {
	Linear  r3.Vector
	Angular r3.Vector
}

// Add returns the componentwise sum of two motions.
func (m Motion) Add(other Motion) Motion {
	return Motion{
		Linear:  m.Linear.Add(other.Linear),
		Angular: m.Angular.Add(other.Angular),
	}
}

// Sub returns the componentwise difference of two motions.
func (m Motion) Sub(other Motion) Motion {
	return Motion{
		Linear:  m.Linear.Sub(other.Linear),
		Angular: m.Angular.Sub(other.Angular),
	}
}

// Mul returns the motion scaled by a scalar.
func (m Motion) Mul(s float64) Motion {
	return Motion{Linear: m.Linear.Mul(s), Angular: m.Angular.Mul(s)}
}

// Cross returns the spatial cross product m ×̂ other, the motion-on-motion action
// used when propagating velocities along a kinematic chain.
func (m Motion) Cross(other Motion) Motion {
	return Motion{
		Linear:  m.Angular.Cross(other.Linear).Add(m.Linear.Cross(other.Angular)),
		Angular: m.Angular.Cross(other.Angular),
	}
}

// Norm returns the Euclidean norm of the motion viewed as a 6-vector.
func (m Motion) Norm() float64 {
	return math.Sqrt(m.Linear.Norm2() + m.Angular.Norm2())
}

// AlmostEqual returns whether two motions are equal to within epsilon, componentwise.
func (m Motion) AlmostEqual(other Motion, epsilon float64) bool {
	return utils.Float64AlmostEqual(m.Linear.X, other.Linear.X, epsilon) &&
		utils.Float64AlmostEqual(m.Linear.Y, other.Linear.Y, epsilon) &&
		utils.Float64AlmostEqual(m.Linear.Z, other.Linear.Z, epsilon) &&
		utils.Float64AlmostEqual(m.Angular.X, other.Angular.X, epsilon) &&
		utils.Float64AlmostEqual(m.Angular.Y, other.Angular.Y, epsilon) &&
		utils.Float64AlmostEqual(m.Angular.Z, other.Angular.Z, epsilon)
}
