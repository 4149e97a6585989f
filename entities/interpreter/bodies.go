package interpreter

import (
	"encoding/json"
	"math"

	"github.com/jakecoffman/cp"

	"physics-lab/entities/simulation"
	"physics-lab/tools/units"
)

// Defaults for optional arguments, in world units
const (
	DefaultBoxSize         = 0.2
	DefaultBoxRestitution  = 0.5
	DefaultBallRadius      = 0.1
	DefaultBallRestitution = 0.8
	DefaultFriction        = 0.1

	PendulumBobRadius = 0.15
	PendulumStiffness = 0.9

	SpringBobDrop   = 2.0
	SpringBobRadius = 0.2
	SpringBobMass   = 1.0
	SpringStiffness = 0.05
	SpringDamping   = 0.02

	LeverThickness = 0.1
	FulcrumSize    = 0.3

	// InclineThickness is in engine pixels
	InclineThickness = 10.0
	InclineBaseY     = 0.1
)

type bodyArgs struct {
	WidthM      *float64 `json:"width_m"`
	HeightM     *float64 `json:"height_m"`
	RadiusM     *float64 `json:"radius_m"`
	XM          float64  `json:"x_m"`
	YM          float64  `json:"y_m"`
	Label       *string  `json:"label"`
	Mass        *float64 `json:"mass"`
	Restitution *float64 `json:"restitution"`
	IsStatic    *bool    `json:"isStatic"`
	VelocityX   *float64 `json:"velocityX"`
	VelocityY   *float64 `json:"velocityY"`
}

// place binds the label, applies an initial velocity, and snapshots
func place(w *simulation.World, b *simulation.Body, label string, vx, vy *float64) {
	if label != "" {
		// availability was checked before the body was built
		_ = w.Bind(label, b)
	}
	if vx != nil || vy != nil {
		b.SetVelocity(w.Units().VelocityToEngine(or(vx, 0), or(vy, 0)))
	}
	w.SaveSnapshot(b)
}

func (in *Interpreter) createBox(w *simulation.World, raw json.RawMessage) Result {
	var a bodyArgs
	if err := decode(raw, &a); err != nil {
		return fail("createBox: %v", err)
	}
	label := str(a.Label)
	if r, free := claim(w, label); !free {
		return r
	}

	u := w.Units()
	b, err := w.AddBody(simulation.BodySpec{
		Kind:        simulation.KindBox,
		Position:    u.ToEngine(a.XM, a.YM),
		Width:       u.Length(size(a.WidthM, DefaultBoxSize)),
		Height:      u.Length(size(a.HeightM, DefaultBoxSize)),
		Mass:        or(a.Mass, 0),
		Restitution: or(a.Restitution, DefaultBoxRestitution),
		Friction:    DefaultFriction,
		Static:      a.IsStatic != nil && *a.IsStatic,
	})
	if err != nil {
		return fail("createBox: %v", err)
	}
	place(w, b, label, a.VelocityX, a.VelocityY)
	return ok("created box '%s' at (%.2f, %.2f) m", label, a.XM, a.YM)
}

func (in *Interpreter) createBall(w *simulation.World, raw json.RawMessage) Result {
	var a bodyArgs
	if err := decode(raw, &a); err != nil {
		return fail("createBall: %v", err)
	}
	label := str(a.Label)
	if r, free := claim(w, label); !free {
		return r
	}

	u := w.Units()
	b, err := w.AddBody(simulation.BodySpec{
		Kind:        simulation.KindBall,
		Position:    u.ToEngine(a.XM, a.YM),
		Radius:      u.Length(size(a.RadiusM, DefaultBallRadius)),
		Mass:        or(a.Mass, 0),
		Restitution: or(a.Restitution, DefaultBallRestitution),
		Friction:    DefaultFriction,
	})
	if err != nil {
		return fail("createBall: %v", err)
	}
	place(w, b, label, a.VelocityX, a.VelocityY)
	return ok("created ball '%s' at (%.2f, %.2f) m", label, a.XM, a.YM)
}

type pendulumArgs struct {
	LengthM   float64  `json:"length_m"`
	AnchorXM  float64  `json:"anchorX_m"`
	AnchorYM  float64  `json:"anchorY_m"`
	Label     *string  `json:"label"`
	Mass      *float64 `json:"mass"`
	Stiffness *float64 `json:"stiffness"`
}

func (in *Interpreter) createPendulum(w *simulation.World, raw json.RawMessage) Result {
	var a pendulumArgs
	if err := decode(raw, &a); err != nil {
		return fail("createPendulum: %v", err)
	}
	if a.LengthM <= 0 {
		return fail("pendulum length must be positive")
	}
	label := str(a.Label)
	if r, free := claim(w, label); !free {
		return r
	}

	u := w.Units()
	anchor := u.ToEngine(a.AnchorXM, a.AnchorYM)
	bob, err := w.AddBody(simulation.BodySpec{
		Kind:        simulation.KindBall,
		Position:    cp.Vector{X: anchor.X, Y: anchor.Y + u.Length(a.LengthM)},
		Radius:      u.Length(PendulumBobRadius),
		Density:     0.02,
		Restitution: 0.9,
		Friction:    0.001,
	})
	if err != nil {
		return fail("createPendulum: %v", err)
	}
	length := u.Length(a.LengthM)
	if _, err := w.AddConstraint(simulation.ConstraintSpec{
		BodyA:     bob,
		PointB:    anchor,
		Length:    &length,
		Stiffness: PendulumStiffness,
	}); err != nil {
		w.RemoveBody(bob)
		return fail("createPendulum: %v", err)
	}
	place(w, bob, label, nil, nil)
	return ok("created pendulum '%s' of length %.2f m", label, a.LengthM)
}

func (in *Interpreter) createSpringPendulum(w *simulation.World, raw json.RawMessage) Result {
	var a pendulumArgs
	if err := decode(raw, &a); err != nil {
		return fail("createSpringPendulum: %v", err)
	}
	label := str(a.Label)
	if r, free := claim(w, label); !free {
		return r
	}

	u := w.Units()
	anchor := u.ToEngine(a.AnchorXM, a.AnchorYM)
	bob, err := w.AddBody(simulation.BodySpec{
		Kind:     simulation.KindBall,
		Position: cp.Vector{X: anchor.X, Y: anchor.Y + u.Length(SpringBobDrop)},
		Radius:   u.Length(SpringBobRadius),
		Mass:     size(a.Mass, SpringBobMass),
		Friction: DefaultFriction,
	})
	if err != nil {
		return fail("createSpringPendulum: %v", err)
	}
	if _, err := w.AddConstraint(simulation.ConstraintSpec{
		BodyA:     bob,
		PointB:    anchor,
		Stiffness: or(a.Stiffness, SpringStiffness),
		Damping:   SpringDamping,
		Style:     simulation.StyleSpring,
	}); err != nil {
		w.RemoveBody(bob)
		return fail("createSpringPendulum: %v", err)
	}
	place(w, bob, label, nil, nil)
	return ok("created spring pendulum '%s'", label)
}

type leverArgs struct {
	LengthM   float64 `json:"length_m"`
	FulcrumXM float64 `json:"fulcrumX_m"`
	FulcrumYM float64 `json:"fulcrumY_m"`
	BarLabel  *string `json:"barLabel"`
}

func (in *Interpreter) createLever(w *simulation.World, raw json.RawMessage) Result {
	var a leverArgs
	if err := decode(raw, &a); err != nil {
		return fail("createLever: %v", err)
	}
	if a.LengthM <= 0 {
		return fail("lever length must be positive")
	}
	label := str(a.BarLabel)
	if r, free := claim(w, label); !free {
		return r
	}

	u := w.Units()
	thickness := u.Length(LeverThickness)
	bar, err := w.AddBody(simulation.BodySpec{
		Kind:     simulation.KindBox,
		Position: u.ToEngine(a.FulcrumXM, a.FulcrumYM+LeverThickness/2),
		Width:    u.Length(a.LengthM),
		Height:   thickness,
		Friction: 0.01,
	})
	if err != nil {
		return fail("createLever: %v", err)
	}

	// triangular wedge with its apex at the pivot
	wedge := u.Length(FulcrumSize)
	fulcrum, err := w.AddBody(simulation.BodySpec{
		Kind:     simulation.KindFulcrum,
		Position: u.ToEngine(a.FulcrumXM, a.FulcrumYM-FulcrumSize/2),
		Vertices: []cp.Vector{
			{X: -wedge / 2, Y: wedge / 2},
			{X: wedge / 2, Y: wedge / 2},
			{X: 0, Y: -wedge / 2},
		},
		Friction: DefaultFriction,
		Static:   true,
	})
	if err != nil {
		w.RemoveBody(bar)
		return fail("createLever: %v", err)
	}

	// the underside of the bar rotates about the apex
	zero := 0.0
	if _, err := w.AddConstraint(simulation.ConstraintSpec{
		BodyA:     bar,
		PointA:    cp.Vector{X: 0, Y: thickness / 2},
		PointB:    u.ToEngine(a.FulcrumXM, a.FulcrumYM),
		Length:    &zero,
		Stiffness: 1,
		Style:     simulation.StyleHidden,
	}); err != nil {
		w.RemoveBody(bar)
		w.RemoveBody(fulcrum)
		return fail("createLever: %v", err)
	}
	place(w, bar, label, nil, nil)
	return ok("created lever '%s' of length %.2f m", label, a.LengthM)
}

type inclineArgs struct {
	AngleDeg float64 `json:"angle_deg"`
	XM       float64 `json:"x_m"`
	LengthM  float64 `json:"length_m"`
}

func (in *Interpreter) createInclinedPlane(w *simulation.World, raw json.RawMessage) Result {
	var a inclineArgs
	if err := decode(raw, &a); err != nil {
		return fail("createInclinedPlane: %v", err)
	}
	if a.LengthM <= 0 {
		return fail("plane length must be positive")
	}

	// engine angles turn clockwise on screen; negate so the plane rises rightward
	u := w.Units()
	angle := -units.Radians(a.AngleDeg)
	width := u.Length(a.LengthM)
	start := u.ToEngine(a.XM, InclineBaseY)
	if _, err := w.AddBody(simulation.BodySpec{
		Kind: simulation.KindWall,
		Position: cp.Vector{
			X: start.X + width/2*math.Cos(angle),
			Y: start.Y + width/2*math.Sin(angle),
		},
		Angle:    angle,
		Width:    width,
		Height:   InclineThickness,
		Friction: 1,
		Static:   true,
	}); err != nil {
		return fail("createInclinedPlane: %v", err)
	}
	return ok("created a %.0f° inclined plane", a.AngleDeg)
}
