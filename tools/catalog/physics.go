package catalog

// Action names in the physics domain
const (
	ClearSimulation         = "clearSimulation"
	CreateBox               = "createBox"
	CreateBall              = "createBall"
	CreatePendulum          = "createPendulum"
	CreateSpringPendulum    = "createSpringPendulum"
	CreateLever             = "createLever"
	CreateInclinedPlane     = "createInclinedPlane"
	SetVelocity             = "setVelocity"
	ApplyForce              = "applyForce"
	CreateSceneFromDrawings = "createSceneFromDrawings"
	CreateConstraint        = "createConstraint"
	ModifyObject            = "modifyObject"
	DeleteObject            = "deleteObject"
	CreateAtwoodMachine     = "createAtwoodMachine"
	CreateRope              = "createRope"
	StartWave               = "startWave"
	StopWave                = "stopWave"
)

// PhysicsDomain names the physics action set
const PhysicsDomain = "physics"

func num(name, desc string) Param  { return Param{Name: name, Type: Number, Description: desc} }
func str(name, desc string) Param  { return Param{Name: name, Type: String, Description: desc} }
func flag(name, desc string) Param { return Param{Name: name, Type: Boolean, Description: desc} }

func req(p Param) Param {
	p.Required = true
	return p
}

// Physics returns a fresh catalog of the physics actions
func Physics() *Catalog {
	c, err := New(PhysicsDomain, physicsDefinitions()...)
	if err != nil {
		// static data; a failure here is a programming error
		panic(err)
	}
	return c
}

func physicsDefinitions() []*Definition {
	return []*Definition{
		{
			Name:        ClearSimulation,
			Description: "Clear the simulation, removing every object.",
		},
		{
			Name:        CreateBox,
			Description: "Create a rectangular box body.",
			Params: []Param{
				num("width_m", "Box width in meters (default 0.2)."),
				num("height_m", "Box height in meters (default 0.2)."),
				req(num("x_m", "Center X in meters.")),
				req(num("y_m", "Center Y in meters, positive is up.")),
				str("label", "Unique name used to refer to the box later."),
				num("mass", "Mass in kg; derived from size when omitted."),
				num("restitution", "Bounciness 0..1 (default 0.5)."),
				flag("isStatic", "Fix the box in place."),
				num("velocityX", "Initial horizontal velocity in m/s."),
				num("velocityY", "Initial vertical velocity in m/s, positive is up."),
			},
		},
		{
			Name:        CreateBall,
			Description: "Create a circular ball body.",
			Params: []Param{
				num("radius_m", "Radius in meters (default 0.1)."),
				req(num("x_m", "Center X in meters.")),
				req(num("y_m", "Center Y in meters, positive is up.")),
				str("label", "Unique name used to refer to the ball later."),
				num("mass", "Mass in kg; derived from size when omitted."),
				num("restitution", "Bounciness 0..1 (default 0.8)."),
				num("velocityX", "Initial horizontal velocity in m/s."),
				num("velocityY", "Initial vertical velocity in m/s, positive is up."),
			},
		},
		{
			Name:        CreatePendulum,
			Description: "Create a simple pendulum hanging from a fixed anchor.",
			Params: []Param{
				req(num("length_m", "String length in meters.")),
				req(num("anchorX_m", "Anchor X in meters.")),
				req(num("anchorY_m", "Anchor Y in meters.")),
				str("label", "Name of the pendulum bob."),
			},
		},
		{
			Name:        CreateSpringPendulum,
			Description: "Create a mass hanging from a fixed anchor on a spring.",
			Params: []Param{
				req(num("anchorX_m", "Anchor X in meters.")),
				req(num("anchorY_m", "Anchor Y in meters.")),
				num("mass", "Mass of the bob in kg (default 1)."),
				num("stiffness", "Spring stiffness 0..1 (default 0.05)."),
				str("label", "Name of the bob."),
			},
		},
		{
			Name:        CreateLever,
			Description: "Create a lever: a bar resting on a fulcrum and pinned at the pivot.",
			Params: []Param{
				req(num("length_m", "Bar length in meters.")),
				req(num("fulcrumX_m", "Pivot X in meters.")),
				req(num("fulcrumY_m", "Pivot Y in meters.")),
				str("barLabel", "Name of the lever bar."),
			},
		},
		{
			Name:        CreateInclinedPlane,
			Description: "Create a static inclined plane starting at ground level.",
			Params: []Param{
				req(num("angle_deg", "Incline angle in degrees.")),
				req(num("x_m", "X of the lower end in meters.")),
				req(num("length_m", "Plane length in meters.")),
			},
		},
		{
			Name:        SetVelocity,
			Description: "Set the velocity of an object.",
			Params: []Param{
				req(str("label", "Object name.")),
				num("velocityX", "Horizontal velocity in m/s."),
				num("velocityY", "Vertical velocity in m/s, positive is up."),
			},
		},
		{
			Name:        ApplyForce,
			Description: "Apply an instantaneous force to an object.",
			Params: []Param{
				req(str("label", "Object name.")),
				num("forceX", "Horizontal force in N."),
				num("forceY", "Vertical force in N, positive is up."),
			},
		},
		{
			Name:        CreateSceneFromDrawings,
			Description: "Turn the user's drawings into physical objects.",
			Params: []Param{
				{
					Name: "objects",
					Type: Array,
					Items: &Param{
						Type: Object,
						Fields: []Param{
							req(num("drawingIndex", "Index of the drawing.")),
							str("label", "Name for the object."),
							num("mass", "Mass in kg."),
							num("restitution", "Bounciness 0..1."),
							num("friction", "Friction 0..1."),
							flag("isStatic", "Fix the object in place."),
						},
					},
				},
			},
		},
		{
			Name:        CreateConstraint,
			Description: "Create a connection (joint or spring).",
			Params: []Param{
				str("labelA", "First object name."),
				str("labelB", "Second object name."),
				num("anchorX", "Fixed anchor X in meters, used when only one object is given."),
				num("anchorY", "Fixed anchor Y in meters, used when only one object is given."),
				req(str("type", "Either 'joint' or 'spring'.")),
			},
		},
		{
			Name:        ModifyObject,
			Description: "Change properties of an object.",
			Params: []Param{
				req(str("label", "Object name.")),
				{
					Name:     "properties",
					Type:     Object,
					Required: true,
					Fields: []Param{
						num("mass", "Mass in kg."),
						num("restitution", "Bounciness 0..1."),
						num("friction", "Friction 0..1."),
						flag("isStatic", "Fix or release the object."),
						num("angle_deg", "Orientation in degrees."),
						str("label", "New name."),
					},
				},
			},
		},
		{
			Name:        DeleteObject,
			Description: "Delete an object.",
			Params: []Param{
				req(str("label", "Object name.")),
			},
		},
		{
			Name:        CreateAtwoodMachine,
			Description: "Create a single-pulley Atwood machine with two weights.",
			Params: []Param{
				req(num("pulleyX_m", "Pulley X in meters.")),
				req(num("pulleyY_m", "Pulley Y in meters.")),
				req(num("massA", "Mass of weight A in kg.")),
				req(str("labelA", "Name of weight A.")),
				req(num("massB", "Mass of weight B in kg.")),
				req(str("labelB", "Name of weight B.")),
			},
		},
		{
			Name:        CreateRope,
			Description: "Create an elastic rope between two points.",
			Params: []Param{
				req(num("startX_m", "Start X in meters.")),
				req(num("startY_m", "Start Y in meters.")),
				req(num("endX_m", "End X in meters.")),
				req(num("endY_m", "End Y in meters.")),
				req(num("segments", "Number of rope segments.")),
				req(str("label", "Name of the rope.")),
			},
		},
		{
			Name:        StartWave,
			Description: "Start driving a mechanical wave on an existing rope.",
			Params: []Param{
				req(str("ropeLabel", "Name of the rope.")),
				req(num("amplitude_m", "Wave amplitude in meters.")),
				req(num("frequency_hz", "Wave frequency in Hz.")),
			},
		},
		{
			Name:        StopWave,
			Description: "Stop the wave driving a rope and return its anchor to rest.",
			Params: []Param{
				req(str("ropeLabel", "Name of the rope.")),
			},
		},
	}
}
