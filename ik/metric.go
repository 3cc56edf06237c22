package ik

import (
	"github.com/mechframe/kinetree/spatialmath"
)

// Metric measures the distance between two poses.
type Metric func(from, to spatialmath.Pose) float64

// NewSquaredNormMetric returns a Metric reporting the squared norm of the
// log-map twist carrying one pose to the other. It is zero exactly at equality
// and smooth everywhere rotations stay below a half-turn.
func NewSquaredNormMetric() Metric {
	return func(from, to spatialmath.Pose) float64 {
		d := spatialmath.Log6(spatialmath.Compose(from.Invert(), to))
		n := d.Norm()
		return n * n
	}
}
