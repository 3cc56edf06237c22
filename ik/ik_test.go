package ik

import (
	"context"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/mechframe/kinetree/multibody"
	"github.com/mechframe/kinetree/spatialmath"
)

func planarArm(t *testing.T) (*multibody.Tree, int) {
	t.Helper()
	tree := multibody.NewTree()
	rz1, err := multibody.NewRevolute(r3.Vector{Z: 1})
	test.That(t, err, test.ShouldBeNil)
	j1, err := tree.AddJoint("shoulder", multibody.RootParent, spatialmath.NewZeroPose(), rz1)
	test.That(t, err, test.ShouldBeNil)
	rz2, err := multibody.NewRevolute(r3.Vector{Z: 1})
	test.That(t, err, test.ShouldBeNil)
	j2, err := tree.AddJoint("elbow", j1, spatialmath.NewPoseFromPoint(r3.Vector{X: 0.7}), rz2)
	test.That(t, err, test.ShouldBeNil)
	tool, err := tree.AddJoint("tool", j2, spatialmath.NewPoseFromPoint(r3.Vector{X: 0.4}), multibody.NewFixed())
	test.That(t, err, test.ShouldBeNil)
	return tree, tool
}

// sixDoF is a serial arm with enough axis variety to reach full pose goals.
func sixDoF(t *testing.T) (*multibody.Tree, int) {
	t.Helper()
	tree := multibody.NewTree()
	axes := []r3.Vector{{Z: 1}, {Y: 1}, {Y: 1}, {X: 1}, {Y: 1}, {X: 1}}
	offsets := []r3.Vector{{}, {Z: 0.3}, {X: 0.4}, {X: 0.3}, {X: 0.2}, {X: 0.1}}
	parent := multibody.RootParent
	for i, axis := range axes {
		rev, err := multibody.NewRevolute(axis)
		test.That(t, err, test.ShouldBeNil)
		parent, err = tree.AddJoint(
			string(rune('a'+i)), parent, spatialmath.NewPoseFromPoint(offsets[i]), rev,
		)
		test.That(t, err, test.ShouldBeNil)
	}
	return tree, parent
}

func poseAt(t *testing.T, tree *multibody.Tree, jointID int, q []float64) spatialmath.Pose {
	t.Helper()
	state := multibody.NewState(tree)
	_, err := multibody.ComputeJointJacobians(tree, state, q)
	test.That(t, err, test.ShouldBeNil)
	return state.Placements[jointID]
}

func TestSolvePlanar(t *testing.T) {
	logger := golog.NewTestLogger(t)
	tree, tool := planarArm(t)
	goal := poseAt(t, tree, tool, []float64{0.3, 0.7})

	solver, err := NewSolver(tree, tool, logger)
	test.That(t, err, test.ShouldBeNil)
	solution, err := solver.Solve(context.Background(), goal, tree.Neutral())
	test.That(t, err, test.ShouldBeNil)
	reached := poseAt(t, tree, tool, solution)
	test.That(t, reached.AlmostEqual(goal, 1e-6), test.ShouldBeTrue)
}

func TestSolveSixDoF(t *testing.T) {
	logger := golog.NewTestLogger(t)
	tree, tip := sixDoF(t)

	targets := [][]float64{
		{0.3, -0.2, 0.4, 0.1, -0.3, 0.2},
		{-0.4, 0.1, -0.1, 0.35, 0.2, -0.25},
		{0.05, 0.4, 0.3, -0.2, -0.4, 0.1},
	}
	dist := NewSquaredNormMetric()
	for _, qTrue := range targets {
		goal := poseAt(t, tree, tip, qTrue)
		solver, err := NewSolver(tree, tip, logger)
		test.That(t, err, test.ShouldBeNil)
		solution, err := solver.Solve(context.Background(), goal, tree.Neutral())
		test.That(t, err, test.ShouldBeNil)
		reached := poseAt(t, tree, tip, solution)
		test.That(t, dist(reached, goal), test.ShouldBeLessThan, 1e-12)
	}
}

func TestSquaredNormMetric(t *testing.T) {
	dist := NewSquaredNormMetric()
	a := spatialmath.NewPoseFromPoint(r3.Vector{X: 1})
	test.That(t, dist(a, a), test.ShouldEqual, 0)
	// pure translation: the twist is the displacement itself
	b := spatialmath.NewPoseFromPoint(r3.Vector{X: 1, Y: 2})
	test.That(t, dist(a, b), test.ShouldAlmostEqual, 4, 1e-12)
	test.That(t, dist(b, a), test.ShouldAlmostEqual, 4, 1e-12)
}

func TestSolveRespectsContext(t *testing.T) {
	logger := golog.NewTestLogger(t)
	tree, tool := planarArm(t)
	goal := poseAt(t, tree, tool, []float64{0.3, 0.7})
	solver, err := NewSolver(tree, tool, logger)
	test.That(t, err, test.ShouldBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = solver.Solve(ctx, goal, tree.Neutral())
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSolveInputValidation(t *testing.T) {
	logger := golog.NewTestLogger(t)
	tree, tool := planarArm(t)

	_, err := NewSolver(tree, 99, logger)
	test.That(t, err, test.ShouldNotBeNil)

	solver, err := NewSolver(tree, tool, logger)
	test.That(t, err, test.ShouldBeNil)

	badGoal := spatialmath.NewPoseFromPoint(r3.Vector{X: 1})
	badGoal.Rotation.Set(0, 0, 3)
	_, err = solver.Solve(context.Background(), badGoal, tree.Neutral())
	test.That(t, err, test.ShouldNotBeNil)

	goal := poseAt(t, tree, tool, []float64{0.3, 0.7})
	_, err = solver.Solve(context.Background(), goal, []float64{0})
	test.That(t, err, test.ShouldNotBeNil)
}
