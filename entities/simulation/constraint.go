package simulation

import (
	"math"

	"github.com/jakecoffman/cp"
)

// RigidThreshold is the stiffness at or above which a constraint is solved
// as an inextensible rod instead of a spring
const RigidThreshold = 0.5

// Style is a render hint for a constraint
type Style string

const (
	StyleLine   Style = "line"
	StyleSpring Style = "spring"
	StyleHidden Style = "hidden"
)

// ConstraintSpec describes a constraint to add. PointA and PointB are
// body-local offsets when the matching body is set and engine points when
// it is nil. A nil Length keeps the current distance between the endpoints.
type ConstraintSpec struct {
	BodyA     *Body
	BodyB     *Body
	PointA    cp.Vector
	PointB    cp.Vector
	Length    *float64
	Stiffness float64
	Damping   float64
	Style     Style
	// Slack makes Length a maximum; the ends may come closer but never
	// further apart. Stiffness is ignored.
	Slack bool
}

// Normalized moves a lone body into slot A so the fixed point is always B
func (s ConstraintSpec) Normalized() ConstraintSpec {
	if s.BodyA == nil && s.BodyB != nil {
		s.BodyA, s.BodyB = s.BodyB, nil
		s.PointA, s.PointB = s.PointB, s.PointA
	}
	return s
}

// Constraint is a distance constraint between two bodies, or between a body
// and a fixed point in space. BodyA is never nil.
type Constraint struct {
	ID        uint64
	BodyA     *Body
	BodyB     *Body
	PointA    cp.Vector
	PointB    cp.Vector
	Length    float64
	Stiffness float64
	Damping   float64
	Style     Style
	Slack     bool

	c     *cp.Constraint
	world *World
	// parked constraints have both ends immovable and are kept out of the
	// space until one end is released
	parked bool
}

// Rigid reports whether the constraint is solved as a rod
func (c *Constraint) Rigid() bool {
	return c.Stiffness >= RigidThreshold
}

// Fixed reports whether the B end is a point in space
func (c *Constraint) Fixed() bool {
	return c.BodyB == nil
}

// WorldA returns the engine position of the A end
func (c *Constraint) WorldA() cp.Vector {
	return c.BodyA.LocalToWorld(c.PointA)
}

// WorldB returns the engine position of the B end
func (c *Constraint) WorldB() cp.Vector {
	if c.BodyB == nil {
		return c.PointB
	}
	return c.BodyB.LocalToWorld(c.PointB)
}

// SetPointB moves the B end. For a fixed constraint this drags the anchor.
func (c *Constraint) SetPointB(p cp.Vector) {
	c.PointB = p
	switch joint := c.c.Class.(type) {
	case *cp.PinJoint:
		joint.AnchorB = p
	case *cp.PivotJoint:
		joint.AnchorB = p
	case *cp.DampedSpring:
		joint.AnchorB = p
	case *cp.SlideJoint:
		joint.AnchorB = p
	}
	c.BodyA.body.Activate()
}

// AddConstraint adds a constraint to the space. A lone body is moved into
// slot A first.
func (w *World) AddConstraint(spec ConstraintSpec) (*Constraint, error) {
	spec = spec.Normalized()
	if spec.BodyA == nil {
		return nil, ErrNoBody
	}

	c := &Constraint{
		ID:        w.newID(),
		BodyA:     spec.BodyA,
		BodyB:     spec.BodyB,
		PointA:    spec.PointA,
		PointB:    spec.PointB,
		Stiffness: spec.Stiffness,
		Damping:   spec.Damping,
		Style:     spec.Style,
		Slack:     spec.Slack,
		world:     w,
	}
	if c.Style == "" {
		c.Style = StyleLine
	}
	c.Length = c.WorldA().Distance(c.WorldB())
	if spec.Length != nil {
		c.Length = *spec.Length
	}

	c.build()
	if c.idle() {
		c.parked = true
	} else {
		w.space.AddConstraint(c.c)
	}
	w.constraints[c.ID] = c
	return c, nil
}

// build makes a fresh solver joint from the constraint's fields. A fresh
// joint carries no accumulated impulse.
func (c *Constraint) build() {
	a := c.BodyA.body
	b := c.world.space.StaticBody
	if c.BodyB != nil {
		b = c.BodyB.body
	}

	switch {
	case c.Slack:
		c.c = cp.NewSlideJoint(a, b, c.PointA, c.PointB, 0, c.Length)
	case c.Rigid() && c.Length < 1e-6:
		c.c = cp.NewPivotJoint2(a, b, c.PointA, c.PointB)
	case c.Rigid():
		c.c = cp.NewPinJoint(a, b, c.PointA, c.PointB)
		c.c.Class.(*cp.PinJoint).Dist = c.Length
	default:
		m := c.effectiveMass()
		rate := c.world.cfg.StepRate
		c.c = cp.NewDampedSpring(a, b, c.PointA, c.PointB, c.Length,
			c.Stiffness*m*rate*rate, c.Damping*m*rate)
	}
}

// idle reports whether neither end can move
func (c *Constraint) idle() bool {
	return c.BodyA.IsStatic() && (c.BodyB == nil || c.BodyB.IsStatic())
}

// settleConstraints rebuilds every constraint on b after b changed between
// static and dynamic. Springs pick up the new effective mass. A constraint
// with both ends immovable is parked outside the space.
func (w *World) settleConstraints(b *Body) {
	for _, c := range w.ConstraintsOf(b) {
		if !c.parked {
			w.space.RemoveConstraint(c.c)
		}
		c.build()
		c.parked = c.idle()
		if !c.parked {
			w.space.AddConstraint(c.c)
		}
	}
}

// RemoveConstraint deletes a constraint from the space
func (w *World) RemoveConstraint(c *Constraint) {
	if c == nil {
		return
	}
	if _, ok := w.constraints[c.ID]; !ok {
		return
	}
	if !c.parked {
		w.space.RemoveConstraint(c.c)
	}
	delete(w.constraints, c.ID)
	for _, comp := range w.composites {
		comp.dropConstraint(c)
	}
}

// ConstraintsOf returns every constraint touching the body
func (w *World) ConstraintsOf(b *Body) []*Constraint {
	var out []*Constraint
	for _, c := range w.Constraints() {
		if c.BodyA == b || c.BodyB == b {
			out = append(out, c)
		}
	}
	return out
}

// effectiveMass is the reduced mass seen by a spring between the two ends
func (c *Constraint) effectiveMass() float64 {
	ma := c.BodyA.Mass()
	if c.BodyA.IsStatic() {
		ma = math.Inf(1)
	}
	mb := math.Inf(1)
	if c.BodyB != nil && !c.BodyB.IsStatic() {
		mb = c.BodyB.Mass()
	}
	switch {
	case math.IsInf(ma, 1) && math.IsInf(mb, 1):
		return 1
	case math.IsInf(ma, 1):
		return mb
	case math.IsInf(mb, 1):
		return ma
	}
	return ma * mb / (ma + mb)
}
