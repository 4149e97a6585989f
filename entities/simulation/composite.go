package simulation

// Composite groups bodies and constraints created together, such as a rope
// or an Atwood machine. StartConstraint is the anchor a wave driver moves.
type Composite struct {
	ID              uint64
	Kind            string
	Label           string
	Bodies          []*Body
	Constraints     []*Constraint
	StartConstraint *Constraint
}

func (c *Composite) objectID() uint64 { return c.ID }

// NewComposite registers an empty composite
func (w *World) NewComposite(kind string) *Composite {
	c := &Composite{ID: w.newID(), Kind: kind}
	w.composites[c.ID] = c
	return c
}

// AddBody adds a body to the composite
func (c *Composite) AddBody(b *Body) {
	b.composite = c
	c.Bodies = append(c.Bodies, b)
}

// AddConstraint adds a constraint to the composite
func (c *Composite) AddConstraint(con *Constraint) {
	c.Constraints = append(c.Constraints, con)
}

func (c *Composite) dropBody(b *Body) {
	for i, x := range c.Bodies {
		if x == b {
			c.Bodies = append(c.Bodies[:i], c.Bodies[i+1:]...)
			break
		}
	}
	b.composite = nil
}

func (c *Composite) dropConstraint(con *Constraint) {
	for i, x := range c.Constraints {
		if x == con {
			c.Constraints = append(c.Constraints[:i], c.Constraints[i+1:]...)
			break
		}
	}
	if c.StartConstraint == con {
		c.StartConstraint = nil
	}
}

// RemoveComposite deletes every member of the composite, its label, and
// any forcing function registered under that label
func (w *World) RemoveComposite(c *Composite) {
	if c == nil {
		return
	}
	if c.Label != "" {
		w.RemoveForcing(c.Label)
		if obj, ok := w.labels[c.Label]; ok && obj.objectID() == c.ID {
			delete(w.labels, c.Label)
		}
	}
	for _, con := range append([]*Constraint(nil), c.Constraints...) {
		w.RemoveConstraint(con)
	}
	for _, b := range append([]*Body(nil), c.Bodies...) {
		w.RemoveBody(b)
	}
	delete(w.composites, c.ID)
}
