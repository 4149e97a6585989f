package simulation

import (
	"math"

	"physics-lab/tools/units"
)

// BodyReport is the live state of one body in world units
type BodyReport struct {
	ID       uint64  `json:"id"`
	Label    string  `json:"label,omitempty"`
	Kind     Kind    `json:"kind"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	VX       float64 `json:"vx"`
	VY       float64 `json:"vy"`
	Speed    float64 `json:"speed"`
	AngleDeg float64 `json:"angleDeg"`
	Mass     float64 `json:"mass"`
	Static   bool    `json:"isStatic"`
	// Kinetic and Potential are zero for static bodies
	Kinetic   float64 `json:"kineticEnergy"`
	Potential float64 `json:"potentialEnergy"`
}

// Report converts a body's engine state to world units
func (w *World) Report(b *Body) BodyReport {
	x, y := w.units.ToWorld(b.Position())
	vx, vy := w.units.VelocityToWorld(b.Velocity())
	r := BodyReport{
		ID:       b.ID,
		Label:    b.Label,
		Kind:     b.Kind,
		X:        x,
		Y:        y,
		VX:       vx,
		VY:       vy,
		Speed:    math.Hypot(vx, vy),
		AngleDeg: -units.Degrees(b.Angle()),
		Mass:     b.Mass(),
		Static:   b.IsStatic(),
	}
	if !r.Static {
		r.Kinetic = 0.5 * r.Mass * r.Speed * r.Speed
		r.Potential = r.Mass * w.cfg.Gravity * y
	}
	return r
}

// BodyState is one body in a rendered frame, in world units
type BodyState struct {
	ID       uint64      `json:"id"`
	Label    string      `json:"label,omitempty"`
	Kind     Kind        `json:"kind"`
	X        float64     `json:"x"`
	Y        float64     `json:"y"`
	AngleDeg float64     `json:"angleDeg"`
	Width    float64     `json:"w,omitempty"`
	Height   float64     `json:"h,omitempty"`
	Radius   float64     `json:"r,omitempty"`
	Vertices [][2]float64 `json:"vertices,omitempty"`
	Static   bool        `json:"isStatic"`
}

// ConstraintState is one constraint in a rendered frame, in world units
type ConstraintState struct {
	ID    uint64     `json:"id"`
	A     [2]float64 `json:"a"`
	B     [2]float64 `json:"b"`
	Style Style      `json:"style"`
}

// Frame is a renderable snapshot of the world
type Frame struct {
	Elapsed     float64           `json:"elapsed"`
	Running     bool              `json:"running"`
	TimeScale   float64           `json:"timeScale"`
	Bodies      []BodyState       `json:"bodies"`
	Constraints []ConstraintState `json:"constraints"`
}

// Frame captures the world in world units
func (w *World) Frame() Frame {
	f := Frame{Elapsed: w.elapsed}
	for _, b := range w.Bodies() {
		x, y := w.units.ToWorld(b.Position())
		s := BodyState{
			ID:       b.ID,
			Label:    b.Label,
			Kind:     b.Kind,
			X:        x,
			Y:        y,
			AngleDeg: -units.Degrees(b.Angle()),
			Width:    w.units.Meters(b.Width),
			Height:   w.units.Meters(b.Height),
			Radius:   w.units.Meters(b.Radius),
			Static:   b.IsStatic(),
		}
		for _, v := range b.Vertices {
			s.Vertices = append(s.Vertices, [2]float64{w.units.Meters(v.X), -w.units.Meters(v.Y)})
		}
		f.Bodies = append(f.Bodies, s)
	}
	for _, c := range w.Constraints() {
		if c.Style == StyleHidden {
			continue
		}
		ax, ay := w.units.ToWorld(c.WorldA())
		bx, by := w.units.ToWorld(c.WorldB())
		f.Constraints = append(f.Constraints, ConstraintState{
			ID:    c.ID,
			A:     [2]float64{ax, ay},
			B:     [2]float64{bx, by},
			Style: c.Style,
		})
	}
	return f
}
