package interpreter

import (
	"encoding/json"
	"fmt"
	"strings"

	"physics-lab/entities/simulation"
	"physics-lab/tools/sketch"
	"physics-lab/tools/units"
)

// ForceScale converts a requested force in newtons into the impulse, in
// N·s, delivered to the body in one kick
const ForceScale = 0.05

// Connector stiffness and damping by connection type
const (
	JointStiffness      = 0.9
	SceneJointStiffness = 1.0
)

type motionArgs struct {
	Label     string   `json:"label"`
	VelocityX *float64 `json:"velocityX"`
	VelocityY *float64 `json:"velocityY"`
	ForceX    *float64 `json:"forceX"`
	ForceY    *float64 `json:"forceY"`
}

func missing(label string) Result {
	return fail("no object named '%s'", label)
}

func (in *Interpreter) setVelocity(w *simulation.World, raw json.RawMessage) Result {
	var a motionArgs
	if err := decode(raw, &a); err != nil {
		return fail("setVelocity: %v", err)
	}
	b, found := w.Body(a.Label)
	if !found {
		return missing(a.Label)
	}
	vx, vy := or(a.VelocityX, 0), or(a.VelocityY, 0)
	b.SetVelocity(w.Units().VelocityToEngine(vx, vy))
	return ok("set velocity of '%s' to (%.2f, %.2f) m/s", a.Label, vx, vy)
}

func (in *Interpreter) applyForce(w *simulation.World, raw json.RawMessage) Result {
	var a motionArgs
	if err := decode(raw, &a); err != nil {
		return fail("applyForce: %v", err)
	}
	b, found := w.Body(a.Label)
	if !found {
		return missing(a.Label)
	}
	fx, fy := or(a.ForceX, 0), or(a.ForceY, 0)
	// impulses scale like velocities between world and engine units
	b.ApplyImpulse(w.Units().VelocityToEngine(fx*ForceScale, fy*ForceScale))
	return ok("applied force (%g, %g) N to '%s'", fx, fy, a.Label)
}

type constraintArgs struct {
	LabelA  *string  `json:"labelA"`
	LabelB  *string  `json:"labelB"`
	AnchorX *float64 `json:"anchorX"`
	AnchorY *float64 `json:"anchorY"`
	Type    string   `json:"type"`
}

// connectorStyle maps a connection type to stiffness, damping, and hint
func connectorStyle(kind string, jointStiffness float64) (stiffness, damping float64, style simulation.Style) {
	if kind == string(sketch.Spring) {
		return SpringStiffness, SpringDamping, simulation.StyleSpring
	}
	return jointStiffness, 0, simulation.StyleLine
}

func (in *Interpreter) createConstraint(w *simulation.World, raw json.RawMessage) Result {
	var a constraintArgs
	if err := decode(raw, &a); err != nil {
		return fail("createConstraint: %v", err)
	}

	// every provided label must resolve; none may be silently dropped
	resolve := func(label *string) (*simulation.Body, Result, bool) {
		if label == nil || *label == "" {
			return nil, Result{}, true
		}
		b, found := w.Body(*label)
		if !found {
			return nil, missing(*label), false
		}
		return b, Result{}, true
	}
	bodyA, r, good := resolve(a.LabelA)
	if !good {
		return r
	}
	bodyB, r, good := resolve(a.LabelB)
	if !good {
		return r
	}
	if bodyA == nil && bodyB == nil {
		return fail("a connection needs at least one object")
	}
	if bodyA != nil && bodyA == bodyB {
		return fail("cannot connect '%s' to itself", str(a.LabelA))
	}

	stiffness, damping, style := connectorStyle(a.Type, JointStiffness)
	spec := simulation.ConstraintSpec{
		BodyA:     bodyA,
		BodyB:     bodyB,
		Stiffness: stiffness,
		Damping:   damping,
		Style:     style,
	}
	if bodyA == nil || bodyB == nil {
		if a.AnchorX == nil || a.AnchorY == nil {
			return fail("anchorX and anchorY are required when connecting a single object")
		}
		spec = spec.Normalized()
		spec.PointB = w.Units().ToEngine(*a.AnchorX, *a.AnchorY)
	}
	if _, err := w.AddConstraint(spec); err != nil {
		return fail("createConstraint: %v", err)
	}
	kind := a.Type
	if kind != string(sketch.Spring) {
		kind = string(sketch.Joint)
	}
	return ok("created %s", kind)
}

type modifyArgs struct {
	Label      string                     `json:"label"`
	Properties map[string]json.RawMessage `json:"properties"`
}

func (in *Interpreter) modifyObject(w *simulation.World, raw json.RawMessage) Result {
	var a modifyArgs
	if err := decode(raw, &a); err != nil {
		return fail("modifyObject: %v", err)
	}
	b, found := w.Body(a.Label)
	if !found {
		return missing(a.Label)
	}

	// decode the whole patch first so a bad value changes nothing
	var (
		mass, restitution, friction, angle *float64
		static                             *bool
		rename                             *string
	)
	var ignored []string
	for _, key := range keys(a.Properties) {
		value := a.Properties[key]
		if string(value) == "null" {
			continue
		}
		var err error
		switch key {
		case "mass":
			err = json.Unmarshal(value, &mass)
		case "restitution":
			err = json.Unmarshal(value, &restitution)
		case "friction":
			err = json.Unmarshal(value, &friction)
		case "isStatic":
			err = json.Unmarshal(value, &static)
		case "angle_deg":
			err = json.Unmarshal(value, &angle)
		case "label":
			err = json.Unmarshal(value, &rename)
		default:
			ignored = append(ignored, key)
		}
		if err != nil {
			return fail("modifyObject: bad value for %s: %v", key, err)
		}
	}
	if mass != nil && *mass <= 0 {
		return fail("mass must be positive")
	}
	if rename != nil && *rename == "" {
		return fail("new label must not be empty")
	}
	if rename != nil && *rename != a.Label && !w.Available(*rename) {
		return fail("label '%s' is already in use", *rename)
	}

	var changes []string
	if mass != nil {
		b.SetMass(*mass)
		changes = append(changes, fmt.Sprintf("mass %gkg", *mass))
	}
	if restitution != nil {
		b.SetRestitution(*restitution)
		changes = append(changes, fmt.Sprintf("restitution %g", *restitution))
	}
	if friction != nil {
		b.SetFriction(*friction)
		changes = append(changes, fmt.Sprintf("friction %g", *friction))
	}
	if static != nil {
		b.SetStatic(*static)
		changes = append(changes, fmt.Sprintf("static %t", *static))
	}
	if angle != nil {
		b.SetAngle(-units.Radians(*angle))
		changes = append(changes, fmt.Sprintf("angle %g°", *angle))
	}
	label := a.Label
	if rename != nil && *rename != a.Label {
		if err := w.Rename(a.Label, *rename); err != nil {
			return fail("modifyObject: %v", err)
		}
		label = *rename
		changes = append(changes, fmt.Sprintf("label '%s'", label))
	}
	for _, key := range ignored {
		in.log.Warn("modifyObject: unsupported property %q ignored", key)
	}

	w.SaveSnapshot(b)
	if len(changes) == 0 {
		return ok("nothing to change on '%s'", label)
	}
	return ok("updated %s on '%s'", strings.Join(changes, ", "), label)
}

type deleteArgs struct {
	Label string `json:"label"`
}

func (in *Interpreter) deleteObject(w *simulation.World, raw json.RawMessage) Result {
	var a deleteArgs
	if err := decode(raw, &a); err != nil {
		return fail("deleteObject: %v", err)
	}
	obj, found := w.Lookup(a.Label)
	if !found {
		return missing(a.Label)
	}
	w.Remove(obj)
	return ok("deleted '%s'", a.Label)
}
