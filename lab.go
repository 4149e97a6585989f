package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"physics-lab/entities/assistant"
	"physics-lab/entities/interpreter"
	"physics-lab/entities/simulation"
	"physics-lab/tools/catalog"
	"physics-lab/tools/llm"
	"physics-lab/tools/logger"
	"physics-lab/tools/sketch"
)

var (
	// ErrNothingToDo is returned for an empty prompt with no drawings
	ErrNothingToDo = errors.New("enter a request or draw something first")
	// ErrBusy is returned while another prompt is still in flight
	ErrBusy = errors.New("a request is already in progress")
)

// Lab orchestrates prompts, drawings and the simulation
type Lab struct {
	config    LabConfig
	sim       *simulation.Simulation
	pad       *sketch.Pad
	interp    *interpreter.Interpreter
	assistant *assistant.Assistant
	inflight  *semaphore.Weighted
	log       *logger.Logger
}

// NewLab creates a lab talking to client. Logs go to out, or stderr when
// out is nil.
func NewLab(config LabConfig, client llm.Client, out io.Writer) (*Lab, error) {
	if client == nil {
		return nil, fmt.Errorf("a model client is required")
	}
	if config.TimeScale < 0 {
		return nil, fmt.Errorf("time scale must not be negative")
	}
	if out == nil {
		out = os.Stderr
	}

	logLevel := logger.LevelInfo
	if config.VerboseLogging {
		logLevel = logger.LevelDebug
	}
	log := logger.New(out, logLevel, "lab")
	if !config.EnableLogging {
		log = logger.Discard()
	}

	cat := catalog.Physics()
	sim := simulation.New(config.simulation(), log)
	sim.SetTimeScale(config.TimeScale)
	pad := sketch.NewPad()

	return &Lab{
		config:    config,
		sim:       sim,
		pad:       pad,
		interp:    interpreter.New(sim, cat, pad, log),
		assistant: assistant.New(client, cat, assistant.Options{MaxTokens: config.MaxTokens, MaxRetries: config.MaxRetries}, log),
		inflight:  semaphore.NewWeighted(1),
		log:       log,
	}, nil
}

// SendPrompt runs one request cycle: ask the model, then execute every
// returned action in order. Actions are not rolled back on failure.
func (l *Lab) SendPrompt(ctx context.Context, text string) (*PromptResult, error) {
	if !l.inflight.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer l.inflight.Release(1)

	text = strings.TrimSpace(text)
	drawings, connections := l.pad.Drawings(), l.pad.Connections()
	if text == "" && len(drawings) == 0 {
		return nil, ErrNothingToDo
	}

	id := uuid.NewString()
	log := l.log.WithPrefix(id[:8])
	log.Banner("Prompt")
	if text != "" {
		log.Info("Request: %s", text)
	}

	reply, err := l.assistant.Ask(ctx, assistant.Context{
		Text:        text,
		Drawings:    len(drawings),
		Connections: len(connections),
		Labels:      l.sim.Labels(),
	})
	if err != nil {
		log.Error("model request failed: %v", err)
		return nil, fmt.Errorf("model request failed: %w", err)
	}
	if reply.Explanation != "" {
		log.Info("Model: %s", reply.Explanation)
	}

	result := &PromptResult{RequestID: id, Explanation: reply.Explanation}
	for _, call := range reply.Actions {
		var outcome ActionOutcome
		if !l.interp.Has(call.Name) {
			log.Warn("skipping unknown action %q", call.Name)
			outcome = ActionOutcome{Name: call.Name, Skipped: true, Message: fmt.Sprintf("unknown action %q", call.Name)}
		} else {
			res := l.run(call.Name, call.Arguments)
			outcome = ActionOutcome{Name: call.Name, Success: res.Success, Message: res.Message}
		}
		l.assistant.Acknowledge(call.ID, outcome.Success, outcome.Message)
		result.Actions = append(result.Actions, outcome)
	}

	log.Info("%s", result.Status())
	return result, nil
}

// Execute runs a single action outside a prompt cycle
func (l *Lab) Execute(ctx context.Context, name string, args json.RawMessage) interpreter.Result {
	if err := ctx.Err(); err != nil {
		return interpreter.Result{Success: false, Message: err.Error()}
	}
	return l.run(name, args)
}

func (l *Lab) run(name string, args json.RawMessage) interpreter.Result {
	res := l.interp.Execute(name, args)
	// drawings are consumed by the scene they produced
	if name == catalog.CreateSceneFromDrawings {
		l.pad.Clear()
	}
	return res
}

// LoadScene finalizes saved drawings and connections onto the pad and
// returns how many drawings were kept
func (l *Lab) LoadScene(scene *Scene) int {
	kept := 0
	for _, d := range scene.Drawings {
		if _, ok := l.pad.Finalize(d); ok {
			kept++
		} else {
			l.log.Debug("discarded degenerate %s drawing", d.Kind)
		}
	}
	for _, c := range scene.Connections {
		if !l.pad.Connect(c) {
			l.log.Debug("discarded %s connection", c.Kind)
		}
	}
	return kept
}

// ClearAll empties the world and the drawing pad
func (l *Lab) ClearAll() {
	l.sim.Clear()
	l.pad.Clear()
	l.log.Info("Cleared")
}

// Reset puts every body back to its saved initial state
func (l *Lab) Reset() int {
	n := l.sim.Reset()
	l.log.Info("Reset %d bodies", n)
	return n
}

// SetTimeScale changes simulation speed; 0 freezes time
func (l *Lab) SetTimeScale(f float64) {
	l.sim.SetTimeScale(f)
}

// TogglePlayPause flips the running state and returns the new one
func (l *Lab) TogglePlayPause() bool {
	return l.sim.TogglePlayPause()
}

// Sketches returns the drawing pad
func (l *Lab) Sketches() *sketch.Pad {
	return l.pad
}

// Simulation returns the simulation context
func (l *Lab) Simulation() *simulation.Simulation {
	return l.sim
}

// Objects reports every labelled body
func (l *Lab) Objects() []simulation.BodyReport {
	var out []simulation.BodyReport
	for _, label := range l.sim.Labels() {
		if r, ok := l.sim.Report(label); ok {
			out = append(out, r)
		}
	}
	return out
}
