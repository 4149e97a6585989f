package simulation

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jakecoffman/cp"

	"physics-lab/tools/units"
)

var (
	// ErrLabelTaken is returned when a label already names another object
	ErrLabelTaken = errors.New("label already in use")
	// ErrUnknownLabel is returned when a label does not resolve
	ErrUnknownLabel = errors.New("no object with that label")
	// ErrNoBody is returned for a constraint with no body on either side
	ErrNoBody = errors.New("constraint needs at least one body")
	// ErrBadGeometry is returned for a body with no area or no mass
	ErrBadGeometry = errors.New("body needs a positive size and mass")
)

// Object is anything a label can name: a *Body or a *Composite
type Object interface {
	objectID() uint64
}

// Snapshot is the saved kinematic state of a body, used by reset
type Snapshot struct {
	Position        cp.Vector
	Angle           float64
	Velocity        cp.Vector
	AngularVelocity float64
}

type forcing struct {
	apply func(t float64)
	stop  func()
}

// World is the live world state. Its methods assume the caller holds the
// owning Simulation's lock; reach it through Simulation.Do.
type World struct {
	space   *cp.Space
	units   units.Converter
	cfg     Config
	nextID  uint64
	elapsed float64

	bodies      map[uint64]*Body
	constraints map[uint64]*Constraint
	composites  map[uint64]*Composite
	labels      map[string]Object
	snapshots   map[uint64]Snapshot
	forcings    map[string]forcing
	ground      *Body
}

func newWorld(cfg Config) *World {
	w := &World{cfg: cfg}
	w.units = units.New(cfg.PixelsPerMeter, cfg.ViewportHeight)
	w.reset()
	return w
}

// reset discards everything and builds an empty world with ground
func (w *World) reset() {
	w.space = cp.NewSpace()
	w.space.SetGravity(cp.Vector{X: 0, Y: w.units.Length(w.cfg.Gravity)})
	w.elapsed = 0
	w.bodies = make(map[uint64]*Body)
	w.constraints = make(map[uint64]*Constraint)
	w.composites = make(map[uint64]*Composite)
	w.labels = make(map[string]Object)
	w.snapshots = make(map[uint64]Snapshot)
	w.forcings = make(map[string]forcing)

	// the slab hangs below y = 0 so its top surface is the world floor
	groundHeight := w.units.Length(GroundHeight)
	center := w.units.ToEngine(w.units.Meters(w.cfg.ViewportWidth)/2, 0)
	w.ground, _ = w.AddBody(BodySpec{
		Kind:     KindGround,
		Position: cp.Vector{X: center.X, Y: center.Y + groundHeight/2},
		Width:    w.units.Length(GroundWidth),
		Height:   groundHeight,
		Friction: 1,
		Static:   true,
	})
}

// Clear empties the world back to the bare ground
func (w *World) Clear() {
	w.reset()
}

func (w *World) newID() uint64 {
	w.nextID++
	return w.nextID
}

// Units returns the active unit converter
func (w *World) Units() units.Converter {
	return w.units
}

// Elapsed returns simulated seconds since the world was last cleared
func (w *World) Elapsed() float64 {
	return w.elapsed
}

// Ground returns the static floor body
func (w *World) Ground() *Body {
	return w.ground
}

// Bind names an object. An empty label is a no-op. A label already naming
// a different object is never overwritten.
func (w *World) Bind(label string, obj Object) error {
	if label == "" {
		return nil
	}
	if existing, ok := w.labels[label]; ok {
		if existing.objectID() == obj.objectID() {
			return nil
		}
		return fmt.Errorf("%w: %q", ErrLabelTaken, label)
	}
	w.labels[label] = obj
	switch o := obj.(type) {
	case *Body:
		o.Label = label
	case *Composite:
		o.Label = label
	}
	return nil
}

// Available reports whether a label can be bound to a new object
func (w *World) Available(label string) bool {
	if label == "" {
		return true
	}
	_, taken := w.labels[label]
	return !taken
}

// Lookup resolves a label to its live object
func (w *World) Lookup(label string) (Object, bool) {
	obj, ok := w.labels[label]
	return obj, ok
}

// Body resolves a label that names a body
func (w *World) Body(label string) (*Body, bool) {
	b, ok := w.labels[label].(*Body)
	return b, ok
}

// Composite resolves a label that names a composite
func (w *World) Composite(label string) (*Composite, bool) {
	c, ok := w.labels[label].(*Composite)
	return c, ok
}

// Rename moves a label to a new name in one step
func (w *World) Rename(from, to string) error {
	obj, ok := w.labels[from]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLabel, from)
	}
	if from == to {
		return nil
	}
	if _, taken := w.labels[to]; taken {
		return fmt.Errorf("%w: %q", ErrLabelTaken, to)
	}
	delete(w.labels, from)
	w.labels[to] = obj
	if f, ok := w.forcings[from]; ok {
		delete(w.forcings, from)
		w.forcings[to] = f
	}
	switch o := obj.(type) {
	case *Body:
		o.Label = to
	case *Composite:
		o.Label = to
	}
	return nil
}

// Unbind removes a label without touching the object
func (w *World) Unbind(label string) {
	delete(w.labels, label)
}

// Labels returns every bound label in sorted order
func (w *World) Labels() []string {
	out := make([]string, 0, len(w.labels))
	for l := range w.labels {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// SaveSnapshot records the current kinematic state of a non-static body
func (w *World) SaveSnapshot(b *Body) {
	if b == nil || b.IsStatic() {
		return
	}
	w.snapshots[b.ID] = Snapshot{
		Position:        b.body.Position(),
		Angle:           b.body.Angle(),
		Velocity:        b.body.Velocity(),
		AngularVelocity: b.body.AngularVelocity(),
	}
}

// SnapshotOf returns the saved state of a body
func (w *World) SnapshotOf(b *Body) (Snapshot, bool) {
	s, ok := w.snapshots[b.ID]
	return s, ok
}

// restore puts every surviving non-static body back to its snapshot
func (w *World) restore() int {
	n := 0
	for id, s := range w.snapshots {
		b, ok := w.bodies[id]
		if !ok || b.IsStatic() {
			continue
		}
		b.body.SetPosition(s.Position)
		b.body.SetAngle(s.Angle)
		b.body.SetVelocityVector(s.Velocity)
		b.body.SetAngularVelocity(s.AngularVelocity)
		n++
	}
	return n
}

// SetForcing registers a per-step function of elapsed time under a label,
// replacing any function already registered there. stop may be nil.
func (w *World) SetForcing(label string, apply func(t float64), stop func()) {
	if old, ok := w.forcings[label]; ok && old.stop != nil {
		old.stop()
	}
	w.forcings[label] = forcing{apply: apply, stop: stop}
}

// RemoveForcing stops and removes the function under a label
func (w *World) RemoveForcing(label string) bool {
	f, ok := w.forcings[label]
	if !ok {
		return false
	}
	if f.stop != nil {
		f.stop()
	}
	delete(w.forcings, label)
	return true
}

// HasForcing reports whether a forcing function runs under the label
func (w *World) HasForcing(label string) bool {
	_, ok := w.forcings[label]
	return ok
}

// Forcings returns the labels with active forcing functions, sorted
func (w *World) Forcings() []string {
	out := make([]string, 0, len(w.forcings))
	for l := range w.forcings {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func (w *World) step(dt float64) {
	for _, label := range w.Forcings() {
		w.forcings[label].apply(w.elapsed)
	}
	n := w.cfg.Substeps
	if n < 1 {
		n = 1
	}
	sub := dt / float64(n)
	for i := 0; i < n; i++ {
		w.space.Step(sub)
	}
	w.elapsed += dt
}

// Bodies returns the live bodies in creation order
func (w *World) Bodies() []*Body {
	out := make([]*Body, 0, len(w.bodies))
	for _, b := range w.bodies {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Constraints returns the live constraints in creation order
func (w *World) Constraints() []*Constraint {
	out := make([]*Constraint, 0, len(w.constraints))
	for _, c := range w.constraints {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Composites returns the live composites in creation order
func (w *World) Composites() []*Composite {
	out := make([]*Composite, 0, len(w.composites))
	for _, c := range w.composites {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Remove deletes a labelled object from the world together with its label
func (w *World) Remove(obj Object) {
	switch o := obj.(type) {
	case *Body:
		w.RemoveBody(o)
	case *Composite:
		w.RemoveComposite(o)
	}
}
