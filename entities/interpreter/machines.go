package interpreter

import (
	"encoding/json"
	"math"

	"github.com/jakecoffman/cp"

	"physics-lab/entities/simulation"
)

// Atwood machine geometry. Weight sizes are in engine pixels.
const (
	PulleyRadius     = 0.3
	AtwoodWeightSize = 40.0
	AtwoodRopeLength = 4.0
	AtwoodDropFactor = 3.0
	AtwoodSupportW   = 10.0
	AtwoodSupportH   = 20.0
	MaxRopeSegments  = 200
	// MinRopeSegment is the shortest segment, in engine pixels
	MinRopeSegment   = 1.0
	RopeSegmentWidth = 5.0
	// the rope ends hang off springs so a driven end can pull the chain
	RopeEndStiffness = 0.3
	RopeEndDamping   = 0.05
)

// Composite kinds
const (
	CompositeAtwood = "atwood"
	CompositeRope   = "rope"
)

type atwoodArgs struct {
	PulleyXM float64 `json:"pulleyX_m"`
	PulleyYM float64 `json:"pulleyY_m"`
	MassA    float64 `json:"massA"`
	LabelA   string  `json:"labelA"`
	MassB    float64 `json:"massB"`
	LabelB   string  `json:"labelB"`
}

func (in *Interpreter) createAtwoodMachine(w *simulation.World, raw json.RawMessage) Result {
	var a atwoodArgs
	if err := decode(raw, &a); err != nil {
		return fail("createAtwoodMachine: %v", err)
	}
	if a.MassA <= 0 || a.MassB <= 0 {
		return fail("both masses must be positive")
	}
	if a.LabelA == a.LabelB {
		return fail("the two weights need different labels")
	}
	for _, l := range []string{a.LabelA, a.LabelB} {
		if r, free := claim(w, l); !free {
			return r
		}
	}

	u := w.Units()
	pulley := u.ToEngine(a.PulleyXM, a.PulleyYM)
	radius := u.Length(PulleyRadius)
	comp := w.NewComposite(CompositeAtwood)

	bodies := []simulation.BodySpec{
		{Kind: simulation.KindPulley, Position: pulley, Radius: radius, Static: true},
		{
			Kind:     simulation.KindBox,
			Position: cp.Vector{X: pulley.X, Y: pulley.Y - radius},
			Width:    AtwoodSupportW,
			Height:   AtwoodSupportH,
			Static:   true,
		},
	}
	for _, side := range []struct{ dir, mass float64 }{{-1, a.MassA}, {1, a.MassB}} {
		bodies = append(bodies, simulation.BodySpec{
			Kind:     simulation.KindBox,
			Position: cp.Vector{X: pulley.X + side.dir*radius, Y: pulley.Y + radius*AtwoodDropFactor},
			Width:    AtwoodWeightSize,
			Height:   AtwoodWeightSize,
			Mass:     side.mass,
			Friction: DefaultFriction,
		})
	}
	for _, spec := range bodies {
		b, err := w.AddBody(spec)
		if err != nil {
			w.RemoveComposite(comp)
			return fail("createAtwoodMachine: %v", err)
		}
		comp.AddBody(b)
	}
	bodyA, bodyB := comp.Bodies[2], comp.Bodies[3]

	// rope segments run from either rim of the pulley to the top of a weight;
	// the hidden rope only caps how far apart the weights can get
	top := cp.Vector{X: 0, Y: -AtwoodWeightSize / 2}
	ropeLength := u.Length(AtwoodRopeLength)
	specs := []simulation.ConstraintSpec{
		{BodyA: bodyA, PointA: top, PointB: cp.Vector{X: pulley.X - radius, Y: pulley.Y}, Stiffness: 1},
		{BodyA: bodyB, PointA: top, PointB: cp.Vector{X: pulley.X + radius, Y: pulley.Y}, Stiffness: 1},
		{BodyA: bodyA, BodyB: bodyB, Length: &ropeLength, Slack: true, Style: simulation.StyleHidden},
	}
	for _, spec := range specs {
		c, err := w.AddConstraint(spec)
		if err != nil {
			w.RemoveComposite(comp)
			return fail("createAtwoodMachine: %v", err)
		}
		comp.AddConstraint(c)
	}

	place(w, bodyA, a.LabelA, nil, nil)
	place(w, bodyB, a.LabelB, nil, nil)
	return ok("created Atwood machine with '%s' (%gkg) and '%s' (%gkg)", a.LabelA, a.MassA, a.LabelB, a.MassB)
}

type ropeArgs struct {
	StartXM  float64 `json:"startX_m"`
	StartYM  float64 `json:"startY_m"`
	EndXM    float64 `json:"endX_m"`
	EndYM    float64 `json:"endY_m"`
	Segments float64 `json:"segments"`
	Label    string  `json:"label"`
}

func (in *Interpreter) createRope(w *simulation.World, raw json.RawMessage) Result {
	var a ropeArgs
	if err := decode(raw, &a); err != nil {
		return fail("createRope: %v", err)
	}
	n := int(math.Round(a.Segments))
	if n < 1 || n > MaxRopeSegments {
		return fail("segments must be between 1 and %d", MaxRopeSegments)
	}
	if a.Label == "" {
		return fail("a rope needs a label")
	}
	if r, free := claim(w, a.Label); !free {
		return r
	}

	u := w.Units()
	start := u.ToEngine(a.StartXM, a.StartYM)
	end := u.ToEngine(a.EndXM, a.EndYM)
	span := end.Sub(start)
	angle := math.Atan2(span.Y, span.X)
	// segments tile the span end to end so every link starts closed
	segment := span.Length() / float64(n)
	if segment < MinRopeSegment {
		return fail("the rope is too short for %d segments", n)
	}

	comp := w.NewComposite(CompositeRope)
	group := uint(comp.ID)
	for i := 0; i < n; i++ {
		t := (float64(i) + 0.5) / float64(n)
		b, err := w.AddBody(simulation.BodySpec{
			Kind:     simulation.KindSegment,
			Position: start.Add(span.Mult(t)),
			Angle:    angle,
			Width:    segment,
			Height:   RopeSegmentWidth,
			Friction: DefaultFriction,
			Group:    group,
		})
		if err != nil {
			w.RemoveComposite(comp)
			return fail("createRope: %v", err)
		}
		comp.AddBody(b)
	}

	half := segment / 2
	zero := 0.0
	link := func(spec simulation.ConstraintSpec) (*simulation.Constraint, bool) {
		c, err := w.AddConstraint(spec)
		if err != nil {
			return nil, false
		}
		comp.AddConstraint(c)
		return c, true
	}
	for i := 0; i+1 < n; i++ {
		if _, good := link(simulation.ConstraintSpec{
			BodyA:     comp.Bodies[i],
			PointA:    cp.Vector{X: half},
			BodyB:     comp.Bodies[i+1],
			PointB:    cp.Vector{X: -half},
			Length:    &zero,
			Stiffness: 1,
			Style:     simulation.StyleHidden,
		}); !good {
			w.RemoveComposite(comp)
			return fail("createRope: could not link segments")
		}
	}

	first, last := comp.Bodies[0], comp.Bodies[n-1]
	pin := func(b *simulation.Body, local, at cp.Vector) (*simulation.Constraint, bool) {
		return link(simulation.ConstraintSpec{
			BodyA:     b,
			PointA:    local,
			PointB:    at,
			Stiffness: RopeEndStiffness,
			Damping:   RopeEndDamping,
		})
	}
	startC, good := pin(first, cp.Vector{X: -half}, start)
	if !good {
		w.RemoveComposite(comp)
		return fail("createRope: could not pin the start")
	}
	if _, good := pin(last, cp.Vector{X: half}, end); !good {
		w.RemoveComposite(comp)
		return fail("createRope: could not pin the end")
	}
	comp.StartConstraint = startC

	if err := w.Bind(a.Label, comp); err != nil {
		w.RemoveComposite(comp)
		return fail("createRope: %v", err)
	}
	for _, b := range comp.Bodies {
		w.SaveSnapshot(b)
	}
	return ok("created rope '%s' with %d segments", a.Label, n)
}

type waveArgs struct {
	RopeLabel   string  `json:"ropeLabel"`
	AmplitudeM  float64 `json:"amplitude_m"`
	FrequencyHz float64 `json:"frequency_hz"`
}

func (in *Interpreter) startWave(w *simulation.World, raw json.RawMessage) Result {
	var a waveArgs
	if err := decode(raw, &a); err != nil {
		return fail("startWave: %v", err)
	}
	rope, found := w.Composite(a.RopeLabel)
	if !found || rope.StartConstraint == nil {
		return fail("no rope named '%s'", a.RopeLabel)
	}

	// a running wave is stopped first so its anchor is back at rest
	w.RemoveForcing(a.RopeLabel)
	anchor := rope.StartConstraint
	origin := anchor.PointB
	amplitude := w.Units().Length(a.AmplitudeM)
	freq := a.FrequencyHz
	w.SetForcing(a.RopeLabel,
		func(t float64) {
			dy := amplitude * math.Sin(2*math.Pi*freq*t)
			anchor.SetPointB(cp.Vector{X: origin.X, Y: origin.Y - dy})
		},
		func() { anchor.SetPointB(origin) },
	)
	return ok("started a %.2f m, %g Hz wave on '%s'", a.AmplitudeM, a.FrequencyHz, a.RopeLabel)
}

func (in *Interpreter) stopWave(w *simulation.World, raw json.RawMessage) Result {
	var a waveArgs
	if err := decode(raw, &a); err != nil {
		return fail("stopWave: %v", err)
	}
	if !w.RemoveForcing(a.RopeLabel) {
		return fail("no wave is running on '%s'", a.RopeLabel)
	}
	return ok("stopped the wave on '%s'", a.RopeLabel)
}
