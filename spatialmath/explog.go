package spatialmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/mechframe/kinetree/utils"
)

// Precision parameters for the log-map branch selection. These are empirically
// tuned cutoffs, not hard mathematical boundaries; the defaults match what the
// property tests verify. They may be adjusted before any log-map call, but not
// concurrently with one.
var (
	// SmallAngleThreshold is the angle below which truncated Taylor expansions
	// replace the exact trigonometric forms, which suffer catastrophic
	// cancellation as theta goes to 0.
	SmallAngleThreshold = 1e-4

	// NearPiOffset is how far below π the symmetric-part extraction takes over
	// in Log3. The antisymmetric-part formula loses precision well before the
	// exact singularity at π; offsets as small as 1e-6 are known to be
	// insufficient.
	NearPiOffset = 1e-2
)

// Skew returns the skew-symmetric cross-product matrix of v, i.e. Skew(v)·u = v×u.
func Skew(v r3.Vector) mgl64.Mat3 {
	var m mgl64.Mat3
	m.Set(0, 1, -v.Z)
	m.Set(0, 2, v.Y)
	m.Set(1, 0, v.Z)
	m.Set(1, 2, -v.X)
	m.Set(2, 0, -v.Y)
	m.Set(2, 1, v.X)
	return m
}

// Exp3 is the exponential map on the rotation group: it converts a rotation
// vector (axis scaled by angle) into a rotation matrix.
func Exp3(w r3.Vector) mgl64.Mat3 {
	theta := w.Norm()
	s := Skew(w)
	s2 := s.Mul3(s)
	var a, b float64
	if theta < SmallAngleThreshold {
		// second order expansions of sin(t)/t and (1-cos(t))/t²
		t2 := theta * theta
		a = 1 - t2/6
		b = 0.5 - t2/24
	} else {
		a = math.Sin(theta) / theta
		b = (1 - math.Cos(theta)) / (theta * theta)
	}
	return mgl64.Ident3().Add(s.Mul(a)).Add(s2.Mul(b))
}

// Exp6 is the exponential map on the rigid-motion group: it converts a spatial
// twist into the rigid transform reached by following that twist for unit time.
func Exp6(t Motion) Pose {
	theta := t.Angular.Norm()
	s := Skew(t.Angular)
	s2 := s.Mul3(s)
	var b, c float64
	if theta < SmallAngleThreshold {
		t2 := theta * theta
		b = 0.5 - t2/24
		c = 1.0/6 - t2/120
	} else {
		t2 := theta * theta
		b = (1 - math.Cos(theta)) / t2
		c = (theta - math.Sin(theta)) / (t2 * theta)
	}
	v := mgl64.Vec3{t.Linear.X, t.Linear.Y, t.Linear.Z}
	sv := s.Mul3x1(v)
	s2v := s2.Mul3x1(v)
	return Pose{
		Rotation: Exp3(t.Angular),
		Translation: r3.Vector{
			X: v[0] + b*sv[0] + c*s2v[0],
			Y: v[1] + b*sv[1] + c*s2v[1],
			Z: v[2] + b*sv[2] + c*s2v[2],
		},
	}
}

// Log3 is the logarithmic map on the rotation group: it converts a rotation
// matrix into its rotation vector and the rotation angle theta ∈ [0, π]. The
// input is assumed, not checked, to be a valid rotation; given that, the result
// is NaN-free over the whole group, including the identity and half-turns.
func Log3(r mgl64.Mat3) (r3.Vector, float64) {
	// Rounding can push the trace out of the mathematically reachable [-1, 3],
	// which would take acos out of its domain.
	tr := utils.Clamp(r.Trace(), -1, 3)
	theta := math.Acos((tr - 1) / 2)

	if theta >= math.Pi-NearPiOffset {
		// The antisymmetric part of r vanishes near a half-turn; recover each
		// component from the symmetric part instead, with signs resolved from
		// the off-diagonal entries. A slightly negative radicand is rounding
		// noise and clamps to zero.
		cphi := -(tr - 1) / 2
		beta := theta * theta / (1 + cphi)
		return r3.Vector{
			X: signFrom(r.At(2, 1), r.At(1, 2)) * sqrtClamped((r.At(0, 0)+cphi)*beta),
			Y: signFrom(r.At(0, 2), r.At(2, 0)) * sqrtClamped((r.At(1, 1)+cphi)*beta),
			Z: signFrom(r.At(1, 0), r.At(0, 1)) * sqrtClamped((r.At(2, 2)+cphi)*beta),
		}, theta
	}

	t := 1.0
	if theta > SmallAngleThreshold {
		t = theta / math.Sin(theta)
	}
	t /= 2
	return r3.Vector{
		X: t * (r.At(2, 1) - r.At(1, 2)),
		Y: t * (r.At(0, 2) - r.At(2, 0)),
		Z: t * (r.At(1, 0) - r.At(0, 1)),
	}, theta
}

// Jlog3 returns the 3×3 Jacobian of Log3 with respect to a right-perturbation of
// the rotation, evaluated from the angle and log vector already computed by Log3.
func Jlog3(theta float64, w r3.Vector) mgl64.Mat3 {
	st, ct := math.Sincos(theta)
	var alpha, diag float64
	if theta < SmallAngleThreshold {
		alpha = 1.0/12 + theta*theta/720
		diag = 0.5 * (2 - theta*theta/6)
	} else {
		st1mct := st / (1 - ct)
		alpha = 1/(theta*theta) - st1mct/(2*theta)
		diag = 0.5 * theta * st1mct
	}

	j := outer(w, w).Mul(alpha).Add(mgl64.Ident3().Mul(diag))
	return j.Add(Skew(w.Mul(0.5)))
}

// Log6 is the logarithmic map on the rigid-motion group: it converts a rigid
// transform into the spatial twist whose exponential recovers it. The map is
// double-valued at a half-turn rotation; for angles strictly below π the
// round trip through Exp6 is exact.
func Log6(m Pose) Motion {
	w, theta := Log3(m.Rotation)
	t2 := theta * theta
	st, ct := math.Sincos(theta)
	var alpha, beta float64
	if theta < SmallAngleThreshold {
		alpha = 1 - t2/12 - t2*t2/720
		beta = 1.0/12 + t2/720
	} else {
		alpha = theta * st / (2 * (1 - ct))
		beta = 1/t2 - st/(2*theta*(1-ct))
	}

	p := m.Translation
	return Motion{
		Linear:  p.Mul(alpha).Sub(w.Cross(p).Mul(0.5)).Add(w.Mul(beta * w.Dot(p))),
		Angular: w,
	}
}

// Jlog6 returns the 6×6 Jacobian of Log6 with respect to a right-perturbation of
// the transform, as a 2×2 grid of 3×3 blocks [[A, B], [0, D]] in linear-first
// ordering, where A = D = Jlog3 of the rotation and B couples the angular
// perturbation into the linear part of the log. Consumers use it to transport
// twists between tangent spaces at different linearization points.
func Jlog6(m Pose) *mat.Dense {
	w, t := Log3(m.Rotation)
	a := Jlog3(t, w)
	p := m.Translation

	t2 := t * t
	st, ct := math.Sincos(t)
	var beta, betaDotOverTheta float64
	if t < SmallAngleThreshold {
		beta = 1.0/12 + t2/720
		betaDotOverTheta = 1.0 / 360
	} else {
		tinv := 1 / t
		t2inv := tinv * tinv
		inv22ct := 1 / (2 * (1 - ct))
		beta = t2inv - st*tinv*inv22ct
		betaDotOverTheta = -2*t2inv*t2inv + (1+st*tinv)*t2inv*inv22ct
	}

	wTp := w.Dot(p)
	v3 := w.Mul(betaDotOverTheta * wTp).Sub(p.Mul(t2*betaDotOverTheta + 2*beta))
	c := outer(v3, w).Add(outer(w, p).Mul(beta)).Add(mgl64.Ident3().Mul(wTp * beta)).Add(Skew(p.Mul(0.5)))
	b := c.Mul3(a)

	out := mat.NewDense(6, 6, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.Set(i, j, a.At(i, j))
			out.Set(i+3, j+3, a.At(i, j))
			out.Set(i, j+3, b.At(i, j))
		}
	}
	return out
}

func signFrom(upper, lower float64) float64 {
	if upper > lower {
		return 1
	}
	return -1
}

func sqrtClamped(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return math.Sqrt(x)
}

func outer(a, b r3.Vector) mgl64.Mat3 {
	var m mgl64.Mat3
	m.Set(0, 0, a.X*b.X)
	m.Set(0, 1, a.X*b.Y)
	m.Set(0, 2, a.X*b.Z)
	m.Set(1, 0, a.Y*b.X)
	m.Set(1, 1, a.Y*b.Y)
	m.Set(1, 2, a.Y*b.Z)
	m.Set(2, 0, a.Z*b.X)
	m.Set(2, 1, a.Z*b.Y)
	m.Set(2, 2, a.Z*b.Z)
	return m
}
