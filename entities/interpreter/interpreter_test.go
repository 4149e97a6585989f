package interpreter

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"physics-lab/entities/simulation"
	"physics-lab/tools/catalog"
	"physics-lab/tools/logger"
	"physics-lab/tools/sketch"
)

type fixture struct {
	sim *simulation.Simulation
	pad *sketch.Pad
	in  *Interpreter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sim := simulation.New(simulation.DefaultConfig(), nil)
	pad := sketch.NewPad()
	return &fixture{
		sim: sim,
		pad: pad,
		in:  New(sim, catalog.Physics(), pad, logger.Discard()),
	}
}

func (f *fixture) run(t *testing.T, name string, args map[string]any) Result {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	return f.in.Execute(name, raw)
}

func (f *fixture) has(label string) bool {
	var found bool
	f.sim.Do(func(w *simulation.World) { _, found = w.Lookup(label) })
	return found
}

func (f *fixture) world(fn func(w *simulation.World)) {
	f.sim.Do(fn)
}

func TestCreationBindsLabels(t *testing.T) {
	cases := []struct {
		action string
		args   map[string]any
		labels []string
	}{
		{catalog.CreateBox, map[string]any{"x_m": 1, "y_m": 2, "label": "crate"}, []string{"crate"}},
		{catalog.CreateBall, map[string]any{"x_m": 1, "y_m": 2, "label": "b1"}, []string{"b1"}},
		{catalog.CreatePendulum, map[string]any{"length_m": 1.5, "anchorX_m": 3, "anchorY_m": 4, "label": "bob"}, []string{"bob"}},
		{catalog.CreateSpringPendulum, map[string]any{"anchorX_m": 3, "anchorY_m": 5, "label": "spring"}, []string{"spring"}},
		{catalog.CreateLever, map[string]any{"length_m": 2, "fulcrumX_m": 4, "fulcrumY_m": 0.3, "barLabel": "bar"}, []string{"bar"}},
		{catalog.CreateAtwoodMachine, map[string]any{"pulleyX_m": 5, "pulleyY_m": 4, "massA": 1, "labelA": "A", "massB": 2, "labelB": "B"}, []string{"A", "B"}},
		{catalog.CreateRope, map[string]any{"startX_m": 1, "startY_m": 5, "endX_m": 4, "endY_m": 5, "segments": 8, "label": "rope"}, []string{"rope"}},
	}
	for _, tc := range cases {
		t.Run(tc.action, func(t *testing.T) {
			f := newFixture(t)
			for _, l := range tc.labels {
				assert.False(t, f.has(l))
			}
			res := f.run(t, tc.action, tc.args)
			require.True(t, res.Success, res.Message)
			for _, l := range tc.labels {
				assert.True(t, f.has(l), l)
			}
		})
	}
}

func TestCreateRejectsTakenLabel(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.run(t, catalog.CreateBall, map[string]any{"x_m": 1, "y_m": 2, "label": "x"}).Success)

	var before int
	f.world(func(w *simulation.World) { before = len(w.Bodies()) })

	res := f.run(t, catalog.CreateBox, map[string]any{"x_m": 3, "y_m": 2, "label": "x"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "already in use")
	f.world(func(w *simulation.World) {
		assert.Len(t, w.Bodies(), before)
		b, _ := w.Body("x")
		assert.Equal(t, simulation.KindBall, b.Kind)
	})
}

func TestMalformedAndUnknownCalls(t *testing.T) {
	f := newFixture(t)

	res := f.in.Execute("summonDragon", json.RawMessage(`{}`))
	assert.False(t, res.Success)
	assert.False(t, f.in.Has("summonDragon"))
	assert.True(t, f.in.Has(catalog.StopWave))

	res = f.run(t, catalog.CreateBox, map[string]any{"x_m": 1})
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "y_m")

	res = f.in.Execute(catalog.CreateBall, json.RawMessage(`{"x_m": "left", "y_m": 1}`))
	assert.False(t, res.Success)

	f.world(func(w *simulation.World) { assert.Len(t, w.Bodies(), 1, "only the ground") })
}

func TestDeletedLabelNeverResolves(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.run(t, catalog.CreateBall, map[string]any{"x_m": 2, "y_m": 2, "label": "gone"}).Success)
	require.True(t, f.run(t, catalog.DeleteObject, map[string]any{"label": "gone"}).Success)

	calls := []struct {
		action string
		args   map[string]any
	}{
		{catalog.SetVelocity, map[string]any{"label": "gone", "velocityX": 1}},
		{catalog.ApplyForce, map[string]any{"label": "gone", "forceX": 1}},
		{catalog.ModifyObject, map[string]any{"label": "gone", "properties": map[string]any{"mass": 2}}},
		{catalog.DeleteObject, map[string]any{"label": "gone"}},
		{catalog.CreateConstraint, map[string]any{"labelA": "gone", "anchorX": 1, "anchorY": 1, "type": "joint"}},
		{catalog.StartWave, map[string]any{"ropeLabel": "gone", "amplitude_m": 0.1, "frequency_hz": 1}},
	}
	for _, c := range calls {
		t.Run(c.action, func(t *testing.T) {
			assert.False(t, f.run(t, c.action, c.args).Success)
		})
	}
	assert.Equal(t, 0, f.sim.Reset())
}

func TestModifyRenamesAtomically(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.run(t, catalog.CreateBall, map[string]any{"x_m": 2, "y_m": 2, "label": "L"}).Success)
	require.True(t, f.run(t, catalog.CreateBall, map[string]any{"x_m": 4, "y_m": 2, "label": "other"}).Success)

	res := f.run(t, catalog.ModifyObject, map[string]any{"label": "L", "properties": map[string]any{"label": "other", "mass": 9}})
	assert.False(t, res.Success)
	f.world(func(w *simulation.World) {
		b, ok := w.Body("L")
		require.True(t, ok)
		assert.NotEqual(t, 9.0, b.Mass(), "a rejected patch changes nothing")
	})

	res = f.run(t, catalog.ModifyObject, map[string]any{"label": "L", "properties": map[string]any{"label": "L2"}})
	require.True(t, res.Success, res.Message)
	assert.False(t, f.has("L"))
	assert.True(t, f.has("L2"))
	f.world(func(w *simulation.World) {
		b, _ := w.Body("L2")
		other, _ := w.Body("other")
		assert.Equal(t, "L2", b.Label)
		assert.NotSame(t, b, other)
	})
	assert.False(t, f.run(t, catalog.SetVelocity, map[string]any{"label": "L"}).Success)
	assert.True(t, f.run(t, catalog.SetVelocity, map[string]any{"label": "L2"}).Success)
}

func TestModifyPatchAndResnapshot(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.run(t, catalog.CreateBox, map[string]any{"x_m": 2, "y_m": 4, "label": "crate"}).Success)
	for i := 0; i < 20; i++ {
		f.sim.Step(1.0 / 60)
	}
	moved, _ := f.sim.Report("crate")

	res := f.run(t, catalog.ModifyObject, map[string]any{"label": "crate", "properties": map[string]any{
		"mass":        3,
		"restitution": 0.1,
		"friction":    0.7,
		"angle_deg":   45,
		"colour":      "red",
	}})
	require.True(t, res.Success, res.Message)
	assert.NotContains(t, res.Message, "colour")

	f.world(func(w *simulation.World) {
		b, _ := w.Body("crate")
		assert.InDelta(t, 3.0, b.Mass(), 1e-9)
		assert.InDelta(t, 0.1, b.Restitution(), 1e-9)
		assert.InDelta(t, 0.7, b.Friction(), 1e-9)
	})

	for i := 0; i < 20; i++ {
		f.sim.Step(1.0 / 60)
	}
	f.sim.Reset()
	r, _ := f.sim.Report("crate")
	assert.InDelta(t, moved.Y, r.Y, 1e-9, "reset returns to the modified state")
	assert.InDelta(t, 45.0, r.AngleDeg, 1e-6)
}

func TestModifyStaticToggle(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.run(t, catalog.CreateBox, map[string]any{"x_m": 2, "y_m": 3, "label": "shelf", "mass": 2}).Success)
	require.True(t, f.run(t, catalog.ModifyObject, map[string]any{"label": "shelf", "properties": map[string]any{"isStatic": true}}).Success)

	for i := 0; i < 30; i++ {
		f.sim.Step(1.0 / 60)
	}
	r, _ := f.sim.Report("shelf")
	assert.True(t, r.Static)
	assert.InDelta(t, 3.0, r.Y, 1e-9)

	require.True(t, f.run(t, catalog.ModifyObject, map[string]any{"label": "shelf", "properties": map[string]any{"isStatic": false}}).Success)
	f.sim.Step(1.0 / 60)
	f.sim.Step(1.0 / 60)
	r, _ = f.sim.Report("shelf")
	assert.False(t, r.Static)
	assert.InDelta(t, 2.0, r.Mass, 1e-9)
	assert.Less(t, r.Y, 3.0)
}

func TestCreateConstraint(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.run(t, catalog.CreateBall, map[string]any{"x_m": 2, "y_m": 2, "label": "a"}).Success)
	require.True(t, f.run(t, catalog.CreateBall, map[string]any{"x_m": 3, "y_m": 2, "label": "b"}).Success)

	count := func() int {
		var n int
		f.world(func(w *simulation.World) { n = len(w.Constraints()) })
		return n
	}

	assert.False(t, f.run(t, catalog.CreateConstraint, map[string]any{"type": "joint"}).Success)
	assert.False(t, f.run(t, catalog.CreateConstraint, map[string]any{"labelA": "nope", "labelB": "nada", "type": "spring"}).Success)
	assert.False(t, f.run(t, catalog.CreateConstraint, map[string]any{"labelA": "a", "labelB": "nada", "type": "joint"}).Success)
	assert.False(t, f.run(t, catalog.CreateConstraint, map[string]any{"labelA": "a", "type": "joint"}).Success, "no anchor given")
	assert.False(t, f.run(t, catalog.CreateConstraint, map[string]any{"labelA": "a", "labelB": "a", "type": "joint"}).Success)
	assert.Equal(t, 0, count())

	require.True(t, f.run(t, catalog.CreateConstraint, map[string]any{"labelA": "a", "labelB": "b", "type": "spring"}).Success)
	require.True(t, f.run(t, catalog.CreateConstraint, map[string]any{"labelB": "b", "anchorX": 3, "anchorY": 4, "type": "joint"}).Success)
	assert.Equal(t, 2, count())

	f.world(func(w *simulation.World) {
		cs := w.Constraints()
		b, _ := w.Body("b")
		assert.Equal(t, simulation.StyleSpring, cs[0].Style)
		assert.InDelta(t, SpringStiffness, cs[0].Stiffness, 1e-9)
		assert.Same(t, b, cs[1].BodyA)
		assert.True(t, cs[1].Fixed())
		assert.Equal(t, w.Units().ToEngine(3, 4), cs[1].PointB)
		assert.InDelta(t, JointStiffness, cs[1].Stiffness, 1e-9)
	})
}

func TestBallScenarioAxisInversion(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.run(t, catalog.CreateBall, map[string]any{"x_m": 2, "y_m": 2, "velocityX": 5, "velocityY": 0, "label": "b"}).Success)
	f.sim.Step(1.0 / 60)
	r, ok := f.sim.Report("b")
	require.True(t, ok)
	assert.Greater(t, r.X, 2.0)
	assert.Less(t, r.Y, 2.0)
}

func TestVelocityAndForce(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.run(t, catalog.CreateBall, map[string]any{"x_m": 2, "y_m": 3, "mass": 1, "label": "b"}).Success)

	require.True(t, f.run(t, catalog.SetVelocity, map[string]any{"label": "b", "velocityY": 3}).Success)
	r, _ := f.sim.Report("b")
	assert.InDelta(t, 3.0, r.VY, 1e-9)
	assert.InDelta(t, 0.0, r.VX, 1e-9)

	require.True(t, f.run(t, catalog.ApplyForce, map[string]any{"label": "b", "forceX": 10}).Success)
	r, _ = f.sim.Report("b")
	assert.InDelta(t, 10*ForceScale, r.VX, 1e-9)
}

func TestInclinedPlaneGeometry(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.run(t, catalog.CreateInclinedPlane, map[string]any{"angle_deg": 30, "x_m": 1, "length_m": 2}).Success)
	f.world(func(w *simulation.World) {
		bodies := w.Bodies()
		plane := bodies[len(bodies)-1]
		r := w.Report(plane)
		assert.True(t, r.Static)
		assert.InDelta(t, 30.0, r.AngleDeg, 1e-9)
		assert.InDelta(t, 1+0.8660254, r.X, 1e-6)
		assert.InDelta(t, InclineBaseY+0.5, r.Y, 1e-6)
		assert.InDelta(t, 1.0, plane.Friction(), 1e-9)
	})
}

func TestLeverAndAtwoodStructure(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.run(t, catalog.CreateLever, map[string]any{"length_m": 2, "fulcrumX_m": 4, "fulcrumY_m": 0.3, "barLabel": "bar"}).Success)
	require.True(t, f.run(t, catalog.CreateAtwoodMachine, map[string]any{"pulleyX_m": 7, "pulleyY_m": 4, "massA": 1, "labelA": "A", "massB": 3, "labelB": "B"}).Success)

	f.world(func(w *simulation.World) {
		assert.Len(t, w.Constraints(), 4)
		comps := w.Composites()
		require.Len(t, comps, 1)
		assert.Equal(t, CompositeAtwood, comps[0].Kind)
		assert.Len(t, comps[0].Bodies, 4)

		a, _ := w.Body("A")
		b, _ := w.Body("B")
		assert.InDelta(t, 1.0, a.Mass(), 1e-9)
		assert.InDelta(t, 3.0, b.Mass(), 1e-9)
	})

	require.True(t, f.run(t, catalog.DeleteObject, map[string]any{"label": "A"}).Success)
	f.world(func(w *simulation.World) {
		// only the lever pin and B's rim segment remain
		assert.Len(t, w.Constraints(), 2)
	})
}

func TestRopeAndWave(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.run(t, catalog.CreateRope, map[string]any{
		"startX_m": 1, "startY_m": 7, "endX_m": 11, "endY_m": 7, "segments": 20, "label": "day1",
	}).Success)

	assert.False(t, f.run(t, catalog.StartWave, map[string]any{"ropeLabel": "day2", "amplitude_m": 0.5, "frequency_hz": 1.5}).Success)
	require.True(t, f.run(t, catalog.CreateBall, map[string]any{"x_m": 1, "y_m": 1, "label": "ball"}).Success)
	assert.False(t, f.run(t, catalog.StartWave, map[string]any{"ropeLabel": "ball", "amplitude_m": 0.5, "frequency_hz": 1.5}).Success)

	require.True(t, f.run(t, catalog.StartWave, map[string]any{"ropeLabel": "day1", "amplitude_m": 0.5, "frequency_hz": 1.5}).Success)

	var origin float64
	f.world(func(w *simulation.World) {
		assert.Equal(t, []string{"day1"}, w.Forcings())
		rope, _ := w.Composite("day1")
		assert.Len(t, rope.Bodies, 20)
		assert.Len(t, rope.Constraints, 21)
		require.NotNil(t, rope.StartConstraint)
		origin = rope.StartConstraint.PointB.Y
		assert.InDelta(t, w.Units().ToEngine(1, 7).Y, origin, 1e-9)
	})

	f.sim.Step(1.0 / 60)
	f.sim.Step(1.0 / 60)
	f.world(func(w *simulation.World) {
		rope, _ := w.Composite("day1")
		assert.Less(t, rope.StartConstraint.PointB.Y, origin, "anchor rises first")
	})

	// restarting keeps a single driver
	require.True(t, f.run(t, catalog.StartWave, map[string]any{"ropeLabel": "day1", "amplitude_m": 0.2, "frequency_hz": 1}).Success)
	f.world(func(w *simulation.World) { assert.Len(t, w.Forcings(), 1) })

	require.True(t, f.run(t, catalog.StopWave, map[string]any{"ropeLabel": "day1"}).Success)
	assert.False(t, f.run(t, catalog.StopWave, map[string]any{"ropeLabel": "day1"}).Success)
	f.world(func(w *simulation.World) {
		rope, _ := w.Composite("day1")
		assert.InDelta(t, origin, rope.StartConstraint.PointB.Y, 1e-9)
		assert.Empty(t, w.Forcings())
	})

	require.True(t, f.run(t, catalog.StartWave, map[string]any{"ropeLabel": "day1", "amplitude_m": 0.5, "frequency_hz": 1.5}).Success)
	require.True(t, f.run(t, catalog.DeleteObject, map[string]any{"label": "day1"}).Success)
	f.world(func(w *simulation.World) {
		assert.Empty(t, w.Forcings())
		assert.Empty(t, w.Composites())
	})
}

func TestRopeRejectsBadSegments(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.run(t, catalog.CreateRope, map[string]any{
		"startX_m": 1, "startY_m": 7, "endX_m": 11, "endY_m": 7, "segments": 0, "label": "r",
	}).Success)
	assert.False(t, f.run(t, catalog.CreateRope, map[string]any{
		"startX_m": 1, "startY_m": 7, "endX_m": 1, "endY_m": 7, "segments": 5, "label": "r",
	}).Success, "a rope needs room for its segments")
	assert.False(t, f.has("r"))
}

func TestClearSimulation(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.run(t, catalog.CreateRope, map[string]any{
		"startX_m": 1, "startY_m": 7, "endX_m": 3, "endY_m": 7, "segments": 4, "label": "r",
	}).Success)
	require.True(t, f.run(t, catalog.StartWave, map[string]any{"ropeLabel": "r", "amplitude_m": 0.5, "frequency_hz": 1}).Success)
	require.True(t, f.run(t, catalog.ClearSimulation, nil).Success)

	f.world(func(w *simulation.World) {
		assert.Empty(t, w.Labels())
		assert.Empty(t, w.Forcings())
		assert.Len(t, w.Bodies(), 1)
	})
}

func TestNonPositiveSizesUseDefaults(t *testing.T) {
	cases := []struct {
		name   string
		action string
		args   map[string]any
		width  float64
		radius float64
	}{
		{"zero radius", catalog.CreateBall, map[string]any{"radius_m": 0}, 0, DefaultBallRadius},
		{"negative radius", catalog.CreateBall, map[string]any{"radius_m": -0.3}, 0, DefaultBallRadius},
		{"zero width", catalog.CreateBox, map[string]any{"width_m": 0, "height_m": 0.4}, DefaultBoxSize, 0},
		{"negative height", catalog.CreateBox, map[string]any{"width_m": 0.4, "height_m": -1}, 0.4, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			tc.args["x_m"], tc.args["y_m"], tc.args["label"] = 2, 2, "thing"
			res := f.run(t, tc.action, tc.args)
			require.True(t, res.Success, res.Message)

			f.world(func(w *simulation.World) {
				b, found := w.Body("thing")
				require.True(t, found)
				assert.Greater(t, b.Mass(), 0.0)
				assert.InDelta(t, w.Units().Length(tc.radius), b.Radius, 1e-9)
				if tc.width > 0 {
					assert.InDelta(t, w.Units().Length(tc.width), b.Width, 1e-9)
				}
			})
			f.sim.Step(1.0 / 60)

			r, _ := f.sim.Report("thing")
			assert.False(t, math.IsNaN(r.X) || math.IsNaN(r.Y))
			_, err := json.Marshal(f.sim.Frame())
			assert.NoError(t, err)
		})
	}
}

func TestStaticToggleOnConstrainedBody(t *testing.T) {
	cases := []struct {
		name      string
		action    string
		args      map[string]any
		anchorX   float64
		anchorY   float64
		length    float64
		tolerance float64
	}{
		{"pendulum", catalog.CreatePendulum, map[string]any{"length_m": 2, "anchorX_m": 5, "anchorY_m": 5, "label": "p"}, 5, 5, 2, 0.05},
		{"spring pendulum", catalog.CreateSpringPendulum, map[string]any{"anchorX_m": 3, "anchorY_m": 5, "label": "p"}, 3, 5, SpringBobDrop, 0.3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			require.True(t, f.run(t, tc.action, tc.args).Success)

			static := func(on bool) {
				require.True(t, f.run(t, catalog.ModifyObject, map[string]any{"label": "p", "properties": map[string]any{"isStatic": on}}).Success)
			}
			static(true)
			f.sim.Step(1.0 / 60)
			static(false)
			for i := 0; i < 60; i++ {
				f.sim.Step(1.0 / 60)
			}

			r, _ := f.sim.Report("p")
			require.False(t, math.IsNaN(r.X) || math.IsNaN(r.Y))
			assert.InDelta(t, tc.length, math.Hypot(r.X-tc.anchorX, r.Y-tc.anchorY), tc.tolerance)
		})
	}
}

func TestDrivenRopeStaysLinked(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.run(t, catalog.CreateRope, map[string]any{
		"startX_m": 1, "startY_m": 7, "endX_m": 11, "endY_m": 7, "segments": 20, "label": "day1",
	}).Success)
	require.True(t, f.run(t, catalog.StartWave, map[string]any{"ropeLabel": "day1", "amplitude_m": 0.5, "frequency_hz": 1.5}).Success)

	gaps := func() (worst float64) {
		f.world(func(w *simulation.World) {
			rope, _ := w.Composite("day1")
			for _, c := range rope.Constraints {
				if c.Fixed() {
					continue
				}
				worst = math.Max(worst, c.WorldA().Distance(c.WorldB()))
			}
		})
		return worst
	}
	assert.InDelta(t, 0, gaps(), 1e-6, "links start closed")

	f.world(func(w *simulation.World) {
		rope, _ := w.Composite("day1")
		for _, c := range rope.Constraints {
			if c.Fixed() {
				assert.False(t, c.Rigid(), "rope ends are springs")
			}
		}
		assert.InDelta(t, w.Units().Length(10)/20, rope.Bodies[0].Width, 1e-9)
	})

	for i := 0; i < 180; i++ {
		f.sim.Step(1.0 / 60)
		require.Less(t, gaps(), 1.0, "step %d", i)
	}
}

func TestAtwoodRopeDoesNotPushWeightsApart(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.run(t, catalog.CreateAtwoodMachine, map[string]any{
		"pulleyX_m": 7, "pulleyY_m": 4, "massA": 1, "labelA": "A", "massB": 3, "labelB": "B",
	}).Success)

	separation := func() float64 {
		a, _ := f.sim.Report("A")
		b, _ := f.sim.Report("B")
		return math.Hypot(b.X-a.X, b.Y-a.Y)
	}
	start := separation()

	for i := 0; i < 180; i++ {
		f.sim.Step(1.0 / 60)
	}
	assert.InDelta(t, start, separation(), 0.1)
	for _, l := range []string{"A", "B"} {
		r, _ := f.sim.Report(l)
		assert.Less(t, r.Y, 4.0, "%s hangs below the pulley", l)
	}
}
