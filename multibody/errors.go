package multibody

import (
	"github.com/pkg/errors"
)

var (
	errZeroAxis       = errors.New("cannot use zero vector as joint axis")
	errEmptyComposite = errors.New("composite joint requires at least one sub-joint")
)

// NewDimensionMismatchError returns an error indicating that an input vector or
// matrix disagrees in size with what the tree expects.
func NewDimensionMismatchError(what string, expected, got int) error {
	return errors.Errorf("%s dimension mismatch: expected %d, got %d", what, expected, got)
}

// NewJointOutOfRangeError returns an error indicating a joint index outside the tree.
func NewJointOutOfRangeError(jointID, numJoints int) error {
	return errors.Errorf("joint index %d out of range for tree with %d joints", jointID, numJoints)
}

// NewParentOutOfRangeError returns an error indicating an invalid parent index;
// a joint's parent must already be in the tree, or RootParent for a root joint.
func NewParentOutOfRangeError(parent, numJoints int) error {
	return errors.Errorf("parent index %d out of range for tree with %d joints", parent, numJoints)
}

// NewInvalidFrameError returns an error indicating an unsupported reference
// frame selector; passing one is a contract violation.
func NewInvalidFrameError(frame Frame) error {
	return errors.Errorf("invalid reference frame selector %d", int(frame))
}

// NewDuplicateJointNameError returns an error indicating a name collision in the tree.
func NewDuplicateJointNameError(name string) error {
	return errors.Errorf("tree already contains a joint named %q", name)
}

// NewUnknownJointError returns an error indicating the tree has no joint with
// the given name.
func NewUnknownJointError(name string) error {
	return errors.Errorf("tree has no joint named %q", name)
}
