package multibody

import (
	"github.com/mechframe/kinetree/spatialmath"
)

// Composite is a joint chaining several sub-joints into one, with an optional
// fixed placement ahead of each sub-joint. Its frame is the frame of the last
// sub-joint; its configuration and velocity are the concatenated sub-segments.
type Composite struct {
	joints     []Joint
	placements []spatialmath.Pose
	nq, nv     int
}

// NewComposite returns a composite of the given sub-joints. placements may be
// nil for all-identity, otherwise it must hold one fixed placement per
// sub-joint, applied ahead of it.
func NewComposite(joints []Joint, placements []spatialmath.Pose) (*Composite, error) {
	if len(joints) == 0 {
		return nil, errEmptyComposite
	}
	if placements == nil {
		placements = make([]spatialmath.Pose, len(joints))
		for i := range placements {
			placements[i] = spatialmath.NewZeroPose()
		}
	}
	if len(placements) != len(joints) {
		return nil, NewDimensionMismatchError("placements", len(joints), len(placements))
	}
	c := &Composite{joints: joints, placements: placements}
	for _, j := range joints {
		c.nq += j.ConfigurationSize()
		c.nv += j.DoF()
	}
	return c, nil
}

// ConfigurationSize returns the summed configuration size of the sub-joints.
func (c *Composite) ConfigurationSize() int { return c.nq }

// DoF returns the summed velocity-space dimension of the sub-joints.
func (c *Composite) DoF() int { return c.nv }

// Neutral returns the concatenated neutral configurations of the sub-joints.
func (c *Composite) Neutral() []float64 {
	out := make([]float64, 0, c.nq)
	for _, j := range c.joints {
		out = append(out, j.Neutral()...)
	}
	return out
}

// Transform composes the sub-joint placements and transforms in order.
func (c *Composite) Transform(q []float64) (spatialmath.Pose, error) {
	if len(q) != c.nq {
		return spatialmath.Pose{}, NewDimensionMismatchError("configuration", c.nq, len(q))
	}
	out := spatialmath.NewZeroPose()
	offset := 0
	for i, j := range c.joints {
		jq := q[offset : offset+j.ConfigurationSize()]
		jp, err := j.Transform(jq)
		if err != nil {
			return spatialmath.Pose{}, err
		}
		out = spatialmath.Compose(out, spatialmath.Compose(c.placements[i], jp))
		offset += j.ConfigurationSize()
	}
	return out, nil
}

// MotionSubspace returns the sub-joint columns transported into the composite's
// frame, i.e. through the inverse of the remaining chain after each sub-joint.
func (c *Composite) MotionSubspace(q []float64) ([]spatialmath.Motion, error) {
	if len(q) != c.nq {
		return nil, NewDimensionMismatchError("configuration", c.nq, len(q))
	}
	cols := make([]spatialmath.Motion, c.nv)
	suffixInv := spatialmath.NewZeroPose()
	qOff, vOff := c.nq, c.nv
	for i := len(c.joints) - 1; i >= 0; i-- {
		j := c.joints[i]
		qOff -= j.ConfigurationSize()
		vOff -= j.DoF()
		jq := q[qOff : qOff+j.ConfigurationSize()]
		sub, err := j.MotionSubspace(jq)
		if err != nil {
			return nil, err
		}
		for k, col := range sub {
			cols[vOff+k] = suffixInv.Act(col)
		}
		jp, err := j.Transform(jq)
		if err != nil {
			return nil, err
		}
		suffixInv = spatialmath.Compose(suffixInv, spatialmath.Compose(c.placements[i], jp).Invert())
	}
	return cols, nil
}

// MotionSubspaceVariation returns d/dt of the transported columns: each earlier
// sub-joint's column moves with the relative velocity of the chain after it,
// plus any variation of the sub-joint's own subspace.
func (c *Composite) MotionSubspaceVariation(q, v []float64) ([]spatialmath.Motion, error) {
	if len(q) != c.nq {
		return nil, NewDimensionMismatchError("configuration", c.nq, len(q))
	}
	if len(v) != c.nv {
		return nil, NewDimensionMismatchError("velocity", c.nv, len(v))
	}
	dcols := make([]spatialmath.Motion, c.nv)
	suffixInv := spatialmath.NewZeroPose()
	// nu is the velocity of the composite frame relative to the current
	// sub-joint's frame, expressed in the composite frame.
	var nu spatialmath.Motion
	qOff, vOff := c.nq, c.nv
	for i := len(c.joints) - 1; i >= 0; i-- {
		j := c.joints[i]
		qOff -= j.ConfigurationSize()
		vOff -= j.DoF()
		jq := q[qOff : qOff+j.ConfigurationSize()]
		jv := v[vOff : vOff+j.DoF()]
		sub, err := j.MotionSubspace(jq)
		if err != nil {
			return nil, err
		}
		transported := make([]spatialmath.Motion, len(sub))
		for k, col := range sub {
			transported[k] = suffixInv.Act(col)
			dcols[vOff+k] = transported[k].Cross(nu)
		}
		if varier, ok := j.(subspaceVarier); ok {
			dsub, err := varier.MotionSubspaceVariation(jq, jv)
			if err != nil {
				return nil, err
			}
			for k, dcol := range dsub {
				dcols[vOff+k] = dcols[vOff+k].Add(suffixInv.Act(dcol))
			}
		}
		for k := range transported {
			nu = nu.Add(transported[k].Mul(jv[k]))
		}
		jp, err := j.Transform(jq)
		if err != nil {
			return nil, err
		}
		suffixInv = spatialmath.Compose(suffixInv, spatialmath.Compose(c.placements[i], jp).Invert())
	}
	return dcols, nil
}

// Integrate steps each sub-joint's configuration segment by its velocity segment.
func (c *Composite) Integrate(q, v []float64, dt float64) ([]float64, error) {
	if len(q) != c.nq {
		return nil, NewDimensionMismatchError("configuration", c.nq, len(q))
	}
	if len(v) != c.nv {
		return nil, NewDimensionMismatchError("velocity", c.nv, len(v))
	}
	out := make([]float64, 0, c.nq)
	qOff, vOff := 0, 0
	for _, j := range c.joints {
		next, err := j.Integrate(q[qOff:qOff+j.ConfigurationSize()], v[vOff:vOff+j.DoF()], dt)
		if err != nil {
			return nil, err
		}
		out = append(out, next...)
		qOff += j.ConfigurationSize()
		vOff += j.DoF()
	}
	return out, nil
}
