package interpreter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"physics-lab/entities/simulation"
	"physics-lab/tools/catalog"
	"physics-lab/tools/logger"
	"physics-lab/tools/sketch"
)

// Result is the outcome of one action
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func ok(format string, args ...any) Result {
	return Result{Success: true, Message: fmt.Sprintf(format, args...)}
}

func fail(format string, args ...any) Result {
	return Result{Success: false, Message: fmt.Sprintf(format, args...)}
}

// Sketches supplies the finalized drawings and connections consumed by
// createSceneFromDrawings
type Sketches interface {
	Drawings() []sketch.Drawing
	Connections() []sketch.Connection
}

type handler func(w *simulation.World, raw json.RawMessage) Result

// Interpreter executes catalog actions against the simulation
type Interpreter struct {
	sim      *simulation.Simulation
	catalog  *catalog.Catalog
	sketches Sketches
	log      *logger.Logger
	handlers map[string]handler
}

// New creates an interpreter for the physics catalog. sketches may be nil
// when no drawing surface is attached.
func New(sim *simulation.Simulation, cat *catalog.Catalog, sketches Sketches, log *logger.Logger) *Interpreter {
	if log == nil {
		log = logger.Default()
	}
	if cat == nil {
		cat = catalog.Physics()
	}
	in := &Interpreter{
		sim:      sim,
		catalog:  cat,
		sketches: sketches,
		log:      log.WithPrefix("interpreter"),
	}
	in.handlers = map[string]handler{
		catalog.ClearSimulation:         in.clearSimulation,
		catalog.CreateBox:               in.createBox,
		catalog.CreateBall:              in.createBall,
		catalog.CreatePendulum:          in.createPendulum,
		catalog.CreateSpringPendulum:    in.createSpringPendulum,
		catalog.CreateLever:             in.createLever,
		catalog.CreateInclinedPlane:     in.createInclinedPlane,
		catalog.SetVelocity:             in.setVelocity,
		catalog.ApplyForce:              in.applyForce,
		catalog.CreateSceneFromDrawings: in.createSceneFromDrawings,
		catalog.CreateConstraint:        in.createConstraint,
		catalog.ModifyObject:            in.modifyObject,
		catalog.DeleteObject:            in.deleteObject,
		catalog.CreateAtwoodMachine:     in.createAtwoodMachine,
		catalog.CreateRope:              in.createRope,
		catalog.StartWave:               in.startWave,
		catalog.StopWave:                in.stopWave,
	}
	return in
}

// Catalog returns the action catalog the interpreter serves
func (in *Interpreter) Catalog() *catalog.Catalog {
	return in.catalog
}

// Has reports whether name is an action the interpreter can run
func (in *Interpreter) Has(name string) bool {
	_, ok := in.handlers[name]
	return ok && in.catalog.Has(name)
}

// Execute validates and runs one action. It never panics and never returns
// an error: malformed calls and unknown names come back as failed results.
func (in *Interpreter) Execute(name string, args json.RawMessage) (res Result) {
	h, known := in.handlers[name]
	def, declared := in.catalog.Lookup(name)
	if !known || !declared {
		res = fail("unknown action %q", name)
		in.log.Warn("skipping unknown action %q", name)
		return res
	}
	if err := def.Validate(args); err != nil {
		res = fail("%v", err)
		in.log.Action(name, false, res.Message)
		return res
	}

	defer func() {
		if r := recover(); r != nil {
			in.log.Error("%s panicked: %v", name, r)
			res = fail("%s failed inside the simulation", name)
		}
		in.log.Action(name, res.Success, res.Message)
	}()

	in.sim.Do(func(w *simulation.World) {
		res = h(w, args)
	})
	return res
}

// decode unmarshals arguments into a typed struct, treating empty input as {}
func decode(raw json.RawMessage, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func or(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// size is like or but treats a non-positive or non-finite value as unset
func size(v *float64, def float64) float64 {
	if v == nil || !(*v > 0) || math.IsInf(*v, 0) {
		return def
	}
	return *v
}

func str(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func keys(m map[string]json.RawMessage) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// claim fails when a label is already bound to a live object
func claim(w *simulation.World, label string) (Result, bool) {
	if !w.Available(label) {
		return fail("label '%s' is already in use", label), false
	}
	return Result{}, true
}

func (in *Interpreter) clearSimulation(w *simulation.World, _ json.RawMessage) Result {
	w.Clear()
	return ok("cleared the simulation")
}
