package spatialmath

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func randomUnitAxis(rnd *rand.Rand) r3.Vector {
	for {
		v := r3.Vector{X: rnd.NormFloat64(), Y: rnd.NormFloat64(), Z: rnd.NormFloat64()}
		if v.Norm() > 1e-6 {
			return v.Normalize()
		}
	}
}

func TestLog3Identity(t *testing.T) {
	w, theta := Log3(mgl64.Ident3())
	test.That(t, theta, test.ShouldEqual, 0)
	test.That(t, w.Norm(), test.ShouldEqual, 0)

	// a rotation built from a tiny vector should come back out unchanged, with
	// no acos domain error from the trace rounding above 3
	tiny := r3.Vector{X: 1e-10, Y: -2e-10, Z: 3e-11}
	w, theta = Log3(Exp3(tiny))
	test.That(t, math.IsNaN(theta), test.ShouldBeFalse)
	test.That(t, w.Sub(tiny).Norm(), test.ShouldBeLessThan, 1e-12)
}

func TestLog3KnownRotations(t *testing.T) {
	axes := []r3.Vector{
		{X: 1}, {Y: 1}, {Z: 1},
		r3.Vector{X: 1, Y: 1, Z: 1}.Normalize(),
		r3.Vector{X: -2, Y: 1, Z: 3}.Normalize(),
	}
	angles := []float64{1e-6, 0.3, math.Pi / 4, math.Pi / 2, 2.5, 3.0}
	for _, axis := range axes {
		for _, angle := range angles {
			w, theta := Log3(Exp3(axis.Mul(angle)))
			test.That(t, theta, test.ShouldAlmostEqual, angle, 1e-9)
			test.That(t, w.Sub(axis.Mul(angle)).Norm(), test.ShouldBeLessThan, 1e-8)
		}
	}
}

func TestLog3HalfTurn(t *testing.T) {
	// rotation by exactly π about x is diag(1, -1, -1)
	var r mgl64.Mat3
	r.Set(0, 0, 1)
	r.Set(1, 1, -1)
	r.Set(2, 2, -1)
	w, theta := Log3(r)
	test.That(t, theta, test.ShouldAlmostEqual, math.Pi)
	test.That(t, math.Abs(w.X), test.ShouldAlmostEqual, math.Pi, 1e-9)
	test.That(t, w.Y, test.ShouldEqual, 0)
	test.That(t, w.Z, test.ShouldEqual, 0)

	// the map is double-valued at π, so verify half-turns about generic axes by
	// round trip rather than by comparing signs
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		axis := randomUnitAxis(rnd)
		rot := Exp3(axis.Mul(math.Pi))
		w, theta = Log3(rot)
		test.That(t, math.IsNaN(w.X) || math.IsNaN(w.Y) || math.IsNaN(w.Z), test.ShouldBeFalse)
		test.That(t, theta, test.ShouldAlmostEqual, math.Pi, 1e-6)
		back := Exp3(w)
		for row := 0; row < 3; row++ {
			for col := 0; col < 3; col++ {
				test.That(t, back.At(row, col), test.ShouldAlmostEqual, rot.At(row, col), 1e-6)
			}
		}
	}
}

func TestLog3RoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		angle := rnd.Float64() * (math.Pi - 1e-3)
		w := randomUnitAxis(rnd).Mul(angle)
		got, theta := Log3(Exp3(w))
		test.That(t, theta, test.ShouldAlmostEqual, angle, 1e-7)
		test.That(t, got.Sub(w).Norm(), test.ShouldBeLessThan, 1e-6)
	}
	// force both extraction regimes explicitly
	for _, angle := range []float64{1e-9, 1e-5, math.Pi - 0.05, math.Pi - 5e-3, math.Pi - 1e-4} {
		w := r3.Vector{X: 1, Y: -2, Z: 0.5}.Normalize().Mul(angle)
		got, _ := Log3(Exp3(w))
		test.That(t, got.Sub(w).Norm(), test.ShouldBeLessThan, 1e-6)
	}
}

func jlog3FiniteDifference(t *testing.T, r mgl64.Mat3) {
	t.Helper()
	const eps = 1e-6
	w, theta := Log3(r)
	j := Jlog3(theta, w)
	for col := 0; col < 3; col++ {
		var delta r3.Vector
		switch col {
		case 0:
			delta = r3.Vector{X: eps}
		case 1:
			delta = r3.Vector{Y: eps}
		case 2:
			delta = r3.Vector{Z: eps}
		}
		wPlus, _ := Log3(r.Mul3(Exp3(delta)))
		wMinus, _ := Log3(r.Mul3(Exp3(delta.Mul(-1))))
		fd := wPlus.Sub(wMinus).Mul(1 / (2 * eps))
		test.That(t, j.At(0, col), test.ShouldAlmostEqual, fd.X, 1e-5)
		test.That(t, j.At(1, col), test.ShouldAlmostEqual, fd.Y, 1e-5)
		test.That(t, j.At(2, col), test.ShouldAlmostEqual, fd.Z, 1e-5)
	}
}

func TestJlog3FiniteDifference(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	for i := 0; i < 100; i++ {
		angle := 0.05 + rnd.Float64()*2.9
		jlog3FiniteDifference(t, Exp3(randomUnitAxis(rnd).Mul(angle)))
	}
	// both small-angle regimes of the coefficients, and the near-π extraction
	axis := r3.Vector{X: 0.6, Y: -0.3, Z: 2.1}.Normalize()
	for _, angle := range []float64{1e-7, 1e-5, 5e-4, math.Pi - 0.05, math.Pi - 5e-3} {
		jlog3FiniteDifference(t, Exp3(axis.Mul(angle)))
	}
}

func TestLog6Basic(t *testing.T) {
	got := Log6(NewZeroPose())
	test.That(t, got.Norm(), test.ShouldEqual, 0)

	// with no rotation the log is the translation itself
	p := r3.Vector{X: 1, Y: -2, Z: 0.5}
	got = Log6(NewPoseFromPoint(p))
	test.That(t, got.Angular.Norm(), test.ShouldEqual, 0)
	test.That(t, got.Linear.Sub(p).Norm(), test.ShouldBeLessThan, 1e-12)
}

func TestLog6RoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	for i := 0; i < 500; i++ {
		tw := Motion{
			Linear:  randomUnitAxis(rnd).Mul(rnd.Float64() * 3),
			Angular: randomUnitAxis(rnd).Mul(rnd.Float64() * (math.Pi - 1e-3)),
		}
		got := Log6(Exp6(tw))
		test.That(t, got.Sub(tw).Norm(), test.ShouldBeLessThan, 1e-6)
	}
	// small and near-π angular parts
	for _, angle := range []float64{0, 1e-9, 1e-5, math.Pi - 5e-3} {
		tw := Motion{
			Linear:  r3.Vector{X: 0.3, Y: 0.1, Z: -0.7},
			Angular: r3.Vector{X: 2, Y: -1, Z: 0.5}.Normalize().Mul(angle),
		}
		got := Log6(Exp6(tw))
		test.That(t, got.Sub(tw).Norm(), test.ShouldBeLessThan, 1e-6)
	}
}

func motionBasis(col int, eps float64) Motion {
	var m Motion
	switch col {
	case 0:
		m.Linear.X = eps
	case 1:
		m.Linear.Y = eps
	case 2:
		m.Linear.Z = eps
	case 3:
		m.Angular.X = eps
	case 4:
		m.Angular.Y = eps
	case 5:
		m.Angular.Z = eps
	}
	return m
}

func jlog6FiniteDifference(t *testing.T, m Pose) {
	t.Helper()
	const eps = 1e-6
	j := Jlog6(m)
	for col := 0; col < 6; col++ {
		plus := Log6(Compose(m, Exp6(motionBasis(col, eps))))
		minus := Log6(Compose(m, Exp6(motionBasis(col, -eps))))
		fd := plus.Sub(minus).Mul(1 / (2 * eps))
		test.That(t, j.At(0, col), test.ShouldAlmostEqual, fd.Linear.X, 2e-5)
		test.That(t, j.At(1, col), test.ShouldAlmostEqual, fd.Linear.Y, 2e-5)
		test.That(t, j.At(2, col), test.ShouldAlmostEqual, fd.Linear.Z, 2e-5)
		test.That(t, j.At(3, col), test.ShouldAlmostEqual, fd.Angular.X, 2e-5)
		test.That(t, j.At(4, col), test.ShouldAlmostEqual, fd.Angular.Y, 2e-5)
		test.That(t, j.At(5, col), test.ShouldAlmostEqual, fd.Angular.Z, 2e-5)
	}
}

func TestJlog6FiniteDifference(t *testing.T) {
	rnd := rand.New(rand.NewSource(4))
	for i := 0; i < 50; i++ {
		m := Pose{
			Rotation:    Exp3(randomUnitAxis(rnd).Mul(0.05 + rnd.Float64()*2.9)),
			Translation: randomUnitAxis(rnd).Mul(rnd.Float64() * 2),
		}
		jlog6FiniteDifference(t, m)
	}
	// small-angle branch
	jlog6FiniteDifference(t, Pose{
		Rotation:    Exp3(r3.Vector{X: 1e-6, Y: 2e-6, Z: -1e-6}),
		Translation: r3.Vector{X: 0.4, Y: -1.1, Z: 0.2},
	})
}

func TestJlog6BlockStructure(t *testing.T) {
	m := Pose{
		Rotation:    Exp3(r3.Vector{X: 0.4, Y: -0.2, Z: 0.9}),
		Translation: r3.Vector{X: 1, Y: 2, Z: -0.5},
	}
	j := Jlog6(m)
	w, theta := Log3(m.Rotation)
	a := Jlog3(theta, w)
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			// diagonal blocks are both the rotation log Jacobian
			test.That(t, j.At(row, col), test.ShouldAlmostEqual, a.At(row, col))
			test.That(t, j.At(row+3, col+3), test.ShouldAlmostEqual, a.At(row, col))
			// bottom-left block is exactly zero
			test.That(t, j.At(row+3, col), test.ShouldEqual, 0)
		}
	}
}
