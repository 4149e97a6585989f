package interpreter

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/jakecoffman/cp"

	"physics-lab/entities/simulation"
	"physics-lab/tools/sketch"
)

// Scene defaults for drawn bodies
const (
	SceneRestitution = 0.5
	SceneFriction    = 0.1
	// WallThickness is in engine pixels
	WallThickness = 10.0
)

// SceneObject is the model's per-drawing property assignment
type SceneObject struct {
	DrawingIndex float64  `json:"drawingIndex"`
	Label        *string  `json:"label"`
	Mass         *float64 `json:"mass"`
	Restitution  *float64 `json:"restitution"`
	Friction     *float64 `json:"friction"`
	IsStatic     *bool    `json:"isStatic"`
}

func (o SceneObject) properties() sketch.Properties {
	return sketch.Properties{
		Label:       o.Label,
		Mass:        o.Mass,
		Restitution: o.Restitution,
		Friction:    o.Friction,
		IsStatic:    o.IsStatic,
	}
}

type sceneArgs struct {
	Objects []SceneObject `json:"objects"`
}

// SceneMapping reports what a sketch turned into. Bodies is indexed by
// drawing index; nil marks a drawing that produced no body.
type SceneMapping struct {
	Bodies      []*simulation.Body
	Constraints []*simulation.Constraint
	Warnings    []string
}

func (in *Interpreter) createSceneFromDrawings(w *simulation.World, raw json.RawMessage) Result {
	var a sceneArgs
	if err := decode(raw, &a); err != nil {
		return fail("createSceneFromDrawings: %v", err)
	}
	if in.sketches == nil {
		return fail("there are no drawings to build from")
	}
	m := MapScene(w, in.sketches.Drawings(), in.sketches.Connections(), a.Objects)
	for _, warning := range m.Warnings {
		in.log.Warn("%s", warning)
	}

	created := 0
	for _, b := range m.Bodies {
		if b != nil {
			created++
		}
	}
	return ok("created %d bodies and %d connections from the drawings", created, len(m.Constraints))
}

// MapScene builds one body per drawing and one constraint per connection.
// Model properties for a drawing override the drawing's own properties.
func MapScene(w *simulation.World, drawings []sketch.Drawing, connections []sketch.Connection, objects []SceneObject) SceneMapping {
	byIndex := make(map[int]sketch.Properties, len(objects))
	for _, o := range objects {
		i := int(o.DrawingIndex)
		byIndex[i] = byIndex[i].Merge(o.properties())
	}

	m := SceneMapping{Bodies: make([]*simulation.Body, len(drawings))}
	for i, d := range drawings {
		props := d.Properties.Merge(byIndex[i])
		b := drawingBody(w, d, props)
		if b == nil {
			continue
		}
		if props.Label != nil && *props.Label != "" {
			if err := w.Bind(*props.Label, b); err != nil {
				m.Warnings = append(m.Warnings, fmt.Sprintf("drawing %d: %v, body left unlabelled", i, err))
			}
		}
		w.SaveSnapshot(b)
		m.Bodies[i] = b
	}

	for _, c := range connections {
		bodyA := bodyFor(m.Bodies, c.IndexA)
		bodyB := bodyFor(m.Bodies, c.IndexB)
		if bodyA == nil && bodyB == nil {
			continue
		}
		stiffness, damping, style := connectorStyle(string(c.Kind), SceneJointStiffness)
		spec := simulation.ConstraintSpec{
			BodyA:     bodyA,
			BodyB:     bodyB,
			PointA:    endpoint(bodyA, c.PointA),
			PointB:    endpoint(bodyB, c.PointB),
			Stiffness: stiffness,
			Damping:   damping,
			Style:     style,
		}
		con, err := w.AddConstraint(spec.Normalized())
		if err != nil {
			m.Warnings = append(m.Warnings, fmt.Sprintf("connection skipped: %v", err))
			continue
		}
		m.Constraints = append(m.Constraints, con)
	}
	return m
}

func bodyFor(bodies []*simulation.Body, index int) *simulation.Body {
	if index == sketch.None || index < 0 || index >= len(bodies) {
		return nil
	}
	return bodies[index]
}

// endpoint is a body-local offset when attached, else the literal point
func endpoint(b *simulation.Body, p sketch.Point) cp.Vector {
	v := cp.Vector{X: p.X, Y: p.Y}
	if b == nil {
		return v
	}
	return b.WorldToLocal(v)
}

func drawingBody(w *simulation.World, d sketch.Drawing, props sketch.Properties) *simulation.Body {
	if !d.Valid() {
		return nil
	}
	spec := simulation.BodySpec{
		Restitution: SceneRestitution,
		Friction:    SceneFriction,
	}
	if props.Restitution != nil {
		spec.Restitution = *props.Restitution
	}
	if props.Friction != nil {
		spec.Friction = *props.Friction
	}
	if props.Mass != nil && *props.Mass > 0 {
		spec.Mass = *props.Mass
	}
	spec.Static = props.IsStatic != nil && *props.IsStatic

	switch d.Kind {
	case sketch.Freeform:
		if len(d.Path) < 3 {
			return nil
		}
		center, vertices := convexOutline(d.Path)
		if outlineArea(vertices) < 1 {
			return nil
		}
		spec.Kind = simulation.KindPolygon
		spec.Position = center
		spec.Vertices = vertices
	case sketch.Box:
		spec.Kind = simulation.KindBox
		spec.Position = cp.Vector{X: d.X + d.W/2, Y: d.Y + d.H/2}
		spec.Width, spec.Height = d.W, d.H
	case sketch.Circle:
		spec.Kind = simulation.KindBall
		spec.Position = cp.Vector{X: d.X, Y: d.Y}
		spec.Radius = d.R
	case sketch.Wall:
		dx, dy := d.X2-d.X1, d.Y2-d.Y1
		spec.Kind = simulation.KindWall
		spec.Position = cp.Vector{X: (d.X1 + d.X2) / 2, Y: (d.Y1 + d.Y2) / 2}
		spec.Width = math.Hypot(dx, dy)
		spec.Height = WallThickness
		spec.Angle = math.Atan2(dy, dx)
		spec.Static = true
	default:
		return nil
	}
	b, err := w.AddBody(spec)
	if err != nil {
		return nil
	}
	return b
}

// convexOutline sorts the path clockwise on screen around its vertex mean
// and returns the polygon centroid with vertices relative to it
func convexOutline(path []sketch.Point) (cp.Vector, []cp.Vector) {
	var mean sketch.Point
	for _, p := range path {
		mean.X += p.X / float64(len(path))
		mean.Y += p.Y / float64(len(path))
	}
	sorted := append([]sketch.Point(nil), path...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return math.Atan2(sorted[i].Y-mean.Y, sorted[i].X-mean.X) < math.Atan2(sorted[j].Y-mean.Y, sorted[j].X-mean.X)
	})
	c := sketch.Centroid(sorted)
	out := make([]cp.Vector, len(sorted))
	for i, p := range sorted {
		out[i] = cp.Vector{X: p.X - c.X, Y: p.Y - c.Y}
	}
	return cp.Vector{X: c.X, Y: c.Y}, out
}

func outlineArea(vs []cp.Vector) float64 {
	var a float64
	for i := range vs {
		p, q := vs[i], vs[(i+1)%len(vs)]
		a += p.X*q.Y - q.X*p.Y
	}
	return math.Abs(a) / 2
}
