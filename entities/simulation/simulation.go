package simulation

import (
	"context"
	"math"
	"sync"
	"time"

	"physics-lab/tools/logger"
	"physics-lab/tools/units"
)

const (
	// GroundWidth and GroundHeight size the static floor slab in meters
	GroundWidth  = 50.0
	GroundHeight = 0.2
	// StandardGravity is the downward acceleration in m/s²
	StandardGravity = 9.81
)

// Config holds the world scale and timing
type Config struct {
	PixelsPerMeter float64
	ViewportWidth  float64
	ViewportHeight float64
	// Gravity is the downward acceleration in m/s²
	Gravity float64
	// StepRate is physics steps per second of wall time
	StepRate float64
	// SyncRate is frames published per second by Run
	SyncRate float64
	// Substeps splits each step into smaller solver steps
	Substeps int
}

// DefaultConfig returns the lab defaults
func DefaultConfig() Config {
	return Config{
		PixelsPerMeter: units.DefaultPixelsPerMeter,
		ViewportWidth:  1000,
		ViewportHeight: 600,
		Gravity:        StandardGravity,
		StepRate:       60,
		SyncRate:       5,
		Substeps:       4,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PixelsPerMeter <= 0 {
		c.PixelsPerMeter = d.PixelsPerMeter
	}
	if c.ViewportWidth <= 0 {
		c.ViewportWidth = d.ViewportWidth
	}
	if c.ViewportHeight <= 0 {
		c.ViewportHeight = d.ViewportHeight
	}
	if c.StepRate <= 0 {
		c.StepRate = d.StepRate
	}
	if c.SyncRate <= 0 {
		c.SyncRate = d.SyncRate
	}
	if c.Substeps <= 0 {
		c.Substeps = d.Substeps
	}
	return c
}

// Simulation owns the world and serializes every access to it
type Simulation struct {
	mu        sync.Mutex
	cfg       Config
	world     *World
	running   bool
	timeScale float64
	onSelect  func(BodyReport, bool)
	log       *logger.Logger
}

// New creates a running simulation with an empty world
func New(cfg Config, log *logger.Logger) *Simulation {
	if log == nil {
		log = logger.Discard()
	}
	cfg = cfg.withDefaults()
	return &Simulation{
		cfg:       cfg,
		world:     newWorld(cfg),
		running:   true,
		timeScale: 1,
		log:       log,
	}
}

// Config returns the active configuration
func (s *Simulation) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Do runs fn with exclusive access to the world. Steps never interleave
// with fn.
func (s *Simulation) Do(fn func(w *World)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.world)
}

// Step advances the world by dt seconds of wall time, scaled by the time
// scale. A paused simulation does not move.
func (s *Simulation) Step(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || dt <= 0 || s.timeScale <= 0 {
		return
	}
	s.world.step(dt * s.timeScale)
}

// Clear removes every body, constraint, label, snapshot, and forcing
// function, leaving only the ground
func (s *Simulation) Clear() {
	s.mu.Lock()
	s.world.reset()
	notify := s.onSelect
	s.mu.Unlock()
	s.log.Info("world cleared")
	if notify != nil {
		notify(BodyReport{}, false)
	}
}

// Reset restores every non-static body to its snapshot
func (s *Simulation) Reset() int {
	s.mu.Lock()
	n := s.world.restore()
	s.mu.Unlock()
	s.log.Info("reset %d bodies", n)
	return n
}

// SetTimeScale sets the speed multiplier. Negative values clamp to zero.
func (s *Simulation) SetTimeScale(f float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeScale = math.Max(0, f)
}

// TimeScale returns the speed multiplier
func (s *Simulation) TimeScale() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeScale
}

// TogglePlayPause flips the running flag and returns the new state
func (s *Simulation) TogglePlayPause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = !s.running
	return s.running
}

// Running reports whether steps advance the world
func (s *Simulation) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SetViewport resizes the viewport. Existing bodies keep their engine
// positions; new world coordinates map against the new height.
func (s *Simulation) SetViewport(width, height float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if width > 0 {
		s.cfg.ViewportWidth = width
		s.world.cfg.ViewportWidth = width
	}
	if height > 0 {
		s.cfg.ViewportHeight = height
		s.world.cfg.ViewportHeight = height
		s.world.units = units.New(s.cfg.PixelsPerMeter, height)
	}
}

// OnBodySelected sets the single selection subscriber. It receives the
// report of the clicked body, or false when the click hit nothing.
func (s *Simulation) OnBodySelected(fn func(BodyReport, bool)) {
	s.mu.Lock()
	s.onSelect = fn
	s.mu.Unlock()
}

// SelectAt picks the topmost body at a world point in meters
func (s *Simulation) SelectAt(xm, ym float64) (BodyReport, bool) {
	s.mu.Lock()
	var (
		report BodyReport
		hit    bool
	)
	if b, ok := s.world.BodyAt(s.world.units.ToEngine(xm, ym)); ok && b.Kind != KindGround {
		report, hit = s.world.Report(b), true
	}
	notify := s.onSelect
	s.mu.Unlock()

	if notify != nil {
		notify(report, hit)
	}
	return report, hit
}

// Labels returns the labels currently bound in the world
func (s *Simulation) Labels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.world.Labels()
}

// Report returns the live state of a labelled body
func (s *Simulation) Report(label string) (BodyReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.world.Body(label)
	if !ok {
		return BodyReport{}, false
	}
	return s.world.Report(b), true
}

// Frame captures the current world for rendering
func (s *Simulation) Frame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.world.Frame()
	f.Running = s.running
	f.TimeScale = s.timeScale
	return f
}

// Run steps the world at StepRate and publishes a frame at SyncRate until
// the context is cancelled. onFrame may be nil.
func (s *Simulation) Run(ctx context.Context, onFrame func(Frame)) error {
	cfg := s.Config()
	stepTicker := time.NewTicker(time.Duration(float64(time.Second) / cfg.StepRate))
	syncTicker := time.NewTicker(time.Duration(float64(time.Second) / cfg.SyncRate))
	defer stepTicker.Stop()
	defer syncTicker.Stop()

	// fixed dt keeps the solver stable when ticks arrive late
	dt := 1 / cfg.StepRate
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stepTicker.C:
			s.Step(dt)
		case <-syncTicker.C:
			if onFrame != nil {
				onFrame(s.Frame())
			}
		}
	}
}
