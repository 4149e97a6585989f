package simulation

import (
	"math"

	"github.com/jakecoffman/cp"
)

// Kind tags what a body was created as
type Kind string

const (
	KindBox     Kind = "box"
	KindBall    Kind = "ball"
	KindPolygon Kind = "polygon"
	KindWall    Kind = "wall"
	KindGround  Kind = "ground"
	KindFulcrum Kind = "fulcrum"
	KindPulley  Kind = "pulley"
	KindSegment Kind = "segment"
)

// DefaultDensity is the mass per square pixel used when no mass is given
const DefaultDensity = 0.001

// BodySpec describes a body to add. Geometry is in engine pixels; Vertices
// are relative to Position. A zero Mass derives mass from Density and area.
type BodySpec struct {
	Kind        Kind
	Position    cp.Vector
	Angle       float64
	Width       float64
	Height      float64
	Radius      float64
	Vertices    []cp.Vector
	Mass        float64
	Density     float64
	Restitution float64
	Friction    float64
	Static      bool
	// Group puts shapes in one collision group; members never collide
	Group uint
}

// validate rejects geometry the solver cannot integrate
func (s BodySpec) validate(mass float64) error {
	a := s.area()
	if !(a > 0) || math.IsInf(a, 0) {
		return ErrBadGeometry
	}
	if !(mass > 0) || math.IsInf(mass, 0) {
		return ErrBadGeometry
	}
	return nil
}

func (s BodySpec) area() float64 {
	switch {
	case len(s.Vertices) >= 3:
		return polygonArea(s.Vertices)
	case s.Radius > 0:
		return math.Pi * s.Radius * s.Radius
	default:
		return s.Width * s.Height
	}
}

// Body is a rigid body in the world
type Body struct {
	ID     uint64
	Kind   Kind
	Label  string
	Width  float64
	Height float64
	Radius float64
	// Vertices are body-local polygon points, nil for boxes and balls
	Vertices []cp.Vector

	body      *cp.Body
	shape     *cp.Shape
	world     *World
	composite *Composite
}

func (b *Body) objectID() uint64 { return b.ID }

// Position returns the engine position of the centre of mass
func (b *Body) Position() cp.Vector { return b.body.Position() }

// Angle returns the engine rotation in radians
func (b *Body) Angle() float64 { return b.body.Angle() }

// Velocity returns the engine velocity in px/s
func (b *Body) Velocity() cp.Vector { return b.body.Velocity() }

// AngularVelocity returns the spin in rad/s
func (b *Body) AngularVelocity() float64 { return b.body.AngularVelocity() }

// Mass returns the body mass. Bodies keep their mass while static.
func (b *Body) Mass() float64 { return b.shape.Mass() }

// IsStatic reports whether the body is immovable
func (b *Body) IsStatic() bool { return b.body.GetType() == cp.BODY_STATIC }

// Restitution returns the bounciness of the body surface
func (b *Body) Restitution() float64 { return b.shape.Elasticity() }

// Friction returns the surface friction coefficient
func (b *Body) Friction() float64 { return b.shape.Friction() }

// Composite returns the composite the body belongs to, if any
func (b *Body) Composite() *Composite { return b.composite }

// SetPosition teleports the body
func (b *Body) SetPosition(p cp.Vector) {
	b.body.SetPosition(p)
	b.reindex()
}

// SetAngle rotates the body in place
func (b *Body) SetAngle(rad float64) {
	b.body.SetAngle(rad)
	b.reindex()
}

// SetVelocity replaces the linear velocity
func (b *Body) SetVelocity(v cp.Vector) {
	if b.IsStatic() {
		return
	}
	b.body.SetVelocityVector(v)
}

// SetAngularVelocity replaces the spin
func (b *Body) SetAngularVelocity(w float64) {
	if b.IsStatic() {
		return
	}
	b.body.SetAngularVelocity(w)
}

// SetMass changes the mass, recomputing the moment from the shape
func (b *Body) SetMass(m float64) {
	if m <= 0 {
		return
	}
	b.shape.SetMass(m)
}

// SetRestitution changes the bounciness
func (b *Body) SetRestitution(e float64) { b.shape.SetElasticity(e) }

// SetFriction changes the surface friction
func (b *Body) SetFriction(f float64) { b.shape.SetFriction(f) }

// SetStatic toggles between immovable and dynamic
func (b *Body) SetStatic(static bool) {
	if static == b.IsStatic() {
		return
	}
	if static {
		b.body.SetType(cp.BODY_STATIC)
		b.reindex()
	} else {
		b.body.SetType(cp.BODY_DYNAMIC)
		// mass is accumulated from the shape, which kept it while static
		b.shape.SetMass(b.shape.Mass())
		b.body.Activate()
	}
	if b.world != nil {
		b.world.settleConstraints(b)
	}
}

// ApplyImpulse applies an instantaneous impulse at the centre of mass
func (b *Body) ApplyImpulse(j cp.Vector) {
	if b.IsStatic() {
		return
	}
	b.body.ApplyImpulseAtWorldPoint(j, b.body.Position())
}

// WorldToLocal converts an engine point into body-local coordinates
func (b *Body) WorldToLocal(p cp.Vector) cp.Vector { return b.body.WorldToLocal(p) }

// LocalToWorld converts a body-local point into engine coordinates
func (b *Body) LocalToWorld(p cp.Vector) cp.Vector { return b.body.LocalToWorld(p) }

// Contains reports whether an engine point lies on the body
func (b *Body) Contains(p cp.Vector) bool {
	return b.shape.PointQuery(p).Distance <= 0
}

// reindex moves a static shape in the broadphase to the body's current pose.
// Static shapes are not refreshed by the step, so the shape is re-added.
func (b *Body) reindex() {
	space := b.shape.Space()
	if space == nil || !b.IsStatic() {
		return
	}
	space.RemoveShape(b.shape)
	space.AddShape(b.shape)
}

// AddBody creates a body from spec and adds it to the space. Geometry with
// no area, or a mass that is not positive, is refused with ErrBadGeometry.
func (w *World) AddBody(spec BodySpec) (*Body, error) {
	density := spec.Density
	if density <= 0 {
		density = DefaultDensity
	}
	mass := spec.Mass
	if mass <= 0 {
		mass = density * spec.area()
	}
	if err := spec.validate(mass); err != nil {
		return nil, err
	}

	b := &Body{
		ID:     w.newID(),
		Kind:   spec.Kind,
		Width:  spec.Width,
		Height: spec.Height,
		Radius: spec.Radius,
		world:  w,
	}

	b.body = cp.NewBody(mass, momentFor(spec, mass))
	b.body.SetPosition(spec.Position)
	b.body.SetAngle(spec.Angle)
	b.body.UserData = b
	w.space.AddBody(b.body)
	if spec.Static {
		// set before the shape goes in so it lands in the static index
		b.body.SetType(cp.BODY_STATIC)
	}

	switch {
	case len(spec.Vertices) >= 3:
		b.Vertices = append([]cp.Vector(nil), spec.Vertices...)
		b.shape = cp.NewPolyShape(b.body, len(b.Vertices), b.Vertices, cp.NewTransformIdentity(), 0)
	case spec.Radius > 0:
		b.shape = cp.NewCircle(b.body, spec.Radius, cp.Vector{})
	default:
		b.shape = cp.NewBox(b.body, spec.Width, spec.Height, 0)
	}
	b.shape.UserData = b
	b.shape.SetElasticity(spec.Restitution)
	b.shape.SetFriction(spec.Friction)
	if spec.Group != 0 {
		b.shape.SetFilter(cp.NewShapeFilter(spec.Group, cp.ALL_CATEGORIES, cp.ALL_CATEGORIES))
	}
	w.space.AddShape(b.shape)
	b.shape.SetMass(mass)

	w.bodies[b.ID] = b
	return b, nil
}

// RemoveBody deletes a body, every constraint attached to it, its label,
// and its reset snapshot.
func (w *World) RemoveBody(b *Body) {
	if b == nil {
		return
	}
	if _, ok := w.bodies[b.ID]; !ok {
		return
	}
	for _, c := range w.ConstraintsOf(b) {
		w.RemoveConstraint(c)
	}
	if b.composite != nil {
		b.composite.dropBody(b)
	}
	if b.Label != "" {
		if obj, ok := w.labels[b.Label]; ok && obj.objectID() == b.ID {
			delete(w.labels, b.Label)
		}
	}
	w.space.RemoveShape(b.shape)
	w.space.RemoveBody(b.body)
	delete(w.bodies, b.ID)
	delete(w.snapshots, b.ID)
	if b == w.ground {
		w.ground = nil
	}
}

// BodyAt returns the topmost body containing the engine point
func (w *World) BodyAt(p cp.Vector) (*Body, bool) {
	bodies := w.Bodies()
	for i := len(bodies) - 1; i >= 0; i-- {
		if bodies[i].Contains(p) {
			return bodies[i], true
		}
	}
	return nil, false
}

func momentFor(spec BodySpec, mass float64) float64 {
	if spec.Radius > 0 && len(spec.Vertices) < 3 {
		return cp.MomentForCircle(mass, 0, spec.Radius, cp.Vector{})
	}
	w, h := spec.Width, spec.Height
	if len(spec.Vertices) >= 3 {
		w, h = extent(spec.Vertices)
	}
	return cp.MomentForBox(mass, w, h)
}

func polygonArea(vs []cp.Vector) float64 {
	var a float64
	for i := range vs {
		p, q := vs[i], vs[(i+1)%len(vs)]
		a += p.X*q.Y - q.X*p.Y
	}
	return math.Abs(a) / 2
}

func extent(vs []cp.Vector) (w, h float64) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, v := range vs {
		minX, maxX = math.Min(minX, v.X), math.Max(maxX, v.X)
		minY, maxY = math.Min(minY, v.Y), math.Max(maxY, v.Y)
	}
	return maxX - minX, maxY - minY
}
