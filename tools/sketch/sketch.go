package sketch

import (
	"math"
	"sync"
)

// None marks a connection endpoint fixed in space rather than on a drawing
const None = -1

// Kind is the shape of a drawing
type Kind string

const (
	Freeform Kind = "freeform"
	Box      Kind = "box"
	Circle   Kind = "circle"
	Wall     Kind = "wall"
)

// ConnectionKind is the connector drawn between two points
type ConnectionKind string

const (
	Joint  ConnectionKind = "joint"
	Spring ConnectionKind = "spring"
)

// Point is a canvas position in engine pixels
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Properties is a partial property bag; nil fields are unset
type Properties struct {
	Label       *string  `json:"label,omitempty" yaml:"label,omitempty"`
	Mass        *float64 `json:"mass,omitempty" yaml:"mass,omitempty"`
	Restitution *float64 `json:"restitution,omitempty" yaml:"restitution,omitempty"`
	Friction    *float64 `json:"friction,omitempty" yaml:"friction,omitempty"`
	IsStatic    *bool    `json:"isStatic,omitempty" yaml:"isStatic,omitempty"`
}

// Merge returns p overlaid with every field set in over
func (p Properties) Merge(over Properties) Properties {
	if over.Label != nil {
		p.Label = over.Label
	}
	if over.Mass != nil {
		p.Mass = over.Mass
	}
	if over.Restitution != nil {
		p.Restitution = over.Restitution
	}
	if over.Friction != nil {
		p.Friction = over.Friction
	}
	if over.IsStatic != nil {
		p.IsStatic = over.IsStatic
	}
	return p
}

// Drawing is one finalized shape. Which geometry fields apply depends on Kind:
// Path for freeform, X/Y/W/H for box (origin is the top-left corner),
// X/Y/R for circle, X1/Y1/X2/Y2 for wall.
type Drawing struct {
	Kind       Kind       `json:"type" yaml:"type"`
	Path       []Point    `json:"path,omitempty" yaml:"path,omitempty"`
	X          float64    `json:"x,omitempty" yaml:"x,omitempty"`
	Y          float64    `json:"y,omitempty" yaml:"y,omitempty"`
	W          float64    `json:"w,omitempty" yaml:"w,omitempty"`
	H          float64    `json:"h,omitempty" yaml:"h,omitempty"`
	R          float64    `json:"r,omitempty" yaml:"r,omitempty"`
	X1         float64    `json:"x1,omitempty" yaml:"x1,omitempty"`
	Y1         float64    `json:"y1,omitempty" yaml:"y1,omitempty"`
	X2         float64    `json:"x2,omitempty" yaml:"x2,omitempty"`
	Y2         float64    `json:"y2,omitempty" yaml:"y2,omitempty"`
	Properties Properties `json:"properties" yaml:"properties"`
}

// Valid reports whether the drawing has usable geometry
func (d Drawing) Valid() bool {
	switch d.Kind {
	case Circle:
		return d.R >= 1
	case Box:
		return d.W >= 2 && d.H >= 2
	case Wall:
		return d.X1 != d.X2 || d.Y1 != d.Y2
	case Freeform:
		return len(d.Path) > 0
	}
	return false
}

// Center returns the drawing's reference point
func (d Drawing) Center() Point {
	switch d.Kind {
	case Circle:
		return Point{X: d.X, Y: d.Y}
	case Box:
		return Point{X: d.X + d.W/2, Y: d.Y + d.H/2}
	case Wall:
		return Point{X: (d.X1 + d.X2) / 2, Y: (d.Y1 + d.Y2) / 2}
	case Freeform:
		return Centroid(d.Path)
	}
	return Point{}
}

// Contains reports whether p lies inside the drawing. Walls are never hit.
func (d Drawing) Contains(p Point) bool {
	switch d.Kind {
	case Circle:
		return math.Hypot(p.X-d.X, p.Y-d.Y) < d.R
	case Box:
		return p.X > d.X && p.X < d.X+d.W && p.Y > d.Y && p.Y < d.Y+d.H
	case Freeform:
		inside := false
		path := d.Path
		for i, j := 0, len(path)-1; i < len(path); j, i = i, i+1 {
			a, b := path[i], path[j]
			if (a.Y > p.Y) != (b.Y > p.Y) && p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
				inside = !inside
			}
		}
		return inside
	}
	return false
}

// Connection links two drawings, or a drawing and a fixed point
type Connection struct {
	Kind   ConnectionKind `json:"type" yaml:"type"`
	IndexA int            `json:"indexA" yaml:"indexA"`
	PointA Point          `json:"pointA" yaml:"pointA"`
	IndexB int            `json:"indexB" yaml:"indexB"`
	PointB Point          `json:"pointB" yaml:"pointB"`
}

// Pad holds the finalized drawings and connections of the current session
type Pad struct {
	mu          sync.Mutex
	drawings    []Drawing
	connections []Connection
	selected    int
	pending     *Connection
	onSelect    func(index int, at Point)
}

// NewPad creates an empty drawing buffer
func NewPad() *Pad {
	return &Pad{selected: None}
}

// Finalize appends a completed drawing, discarding degenerate geometry.
// It returns the stable index of the drawing, or false when discarded.
func (p *Pad) Finalize(d Drawing) (int, bool) {
	if !d.Valid() {
		return None, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	d.Path = append([]Point(nil), d.Path...)
	p.drawings = append(p.drawings, d)
	return len(p.drawings) - 1, true
}

// Connect records a connection directly. Self-connections are rejected.
func (p *Pad) Connect(c Connection) bool {
	if c.IndexA != None && c.IndexA == c.IndexB {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.validIndex(c.IndexA) || !p.validIndex(c.IndexB) {
		return false
	}
	p.connections = append(p.connections, c)
	return true
}

// Click feeds one connection-tool click. The first click starts a connection,
// the second completes it. A completed connection is returned with true.
func (p *Pad) Click(kind ConnectionKind, at Point) (Connection, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	index := p.hit(at)
	point := at
	if index != None {
		point = p.drawings[index].Center()
	}

	if p.pending == nil {
		p.pending = &Connection{Kind: kind, IndexA: index, PointA: point}
		return Connection{}, false
	}
	if p.pending.IndexA == index && index != None {
		return Connection{}, false
	}

	c := *p.pending
	c.IndexB = index
	c.PointB = point
	p.pending = nil
	p.connections = append(p.connections, c)
	return c, true
}

// CancelConnection drops a half-finished connection
func (p *Pad) CancelConnection() {
	p.mu.Lock()
	p.pending = nil
	p.mu.Unlock()
}

// Select picks the topmost drawing under the point and notifies the subscriber
func (p *Pad) Select(at Point) int {
	p.mu.Lock()
	index := p.hit(at)
	p.selected = index
	notify := p.onSelect
	p.mu.Unlock()

	if notify != nil {
		notify(index, at)
	}
	return index
}

// Selected returns the index of the selected drawing, or None
func (p *Pad) Selected() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selected
}

// UpdateSelected merges a property patch into the selected drawing
func (p *Pad) UpdateSelected(patch Properties) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.selected == None || p.selected >= len(p.drawings) {
		return false
	}
	d := &p.drawings[p.selected]
	d.Properties = d.Properties.Merge(patch)
	return true
}

// OnSelect sets the single selection subscriber, replacing any previous one
func (p *Pad) OnSelect(fn func(index int, at Point)) {
	p.mu.Lock()
	p.onSelect = fn
	p.mu.Unlock()
}

// Drawings returns a copy of the finalized drawings in index order
func (p *Pad) Drawings() []Drawing {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Drawing(nil), p.drawings...)
}

// Connections returns a copy of the recorded connections
func (p *Pad) Connections() []Connection {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Connection(nil), p.connections...)
}

// Len returns the number of finalized drawings
func (p *Pad) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.drawings)
}

// Clear empties the buffer and deselects
func (p *Pad) Clear() {
	p.mu.Lock()
	p.drawings = nil
	p.connections = nil
	p.pending = nil
	p.selected = None
	notify := p.onSelect
	p.mu.Unlock()

	if notify != nil {
		notify(None, Point{})
	}
}

func (p *Pad) hit(at Point) int {
	for i := len(p.drawings) - 1; i >= 0; i-- {
		if p.drawings[i].Contains(at) {
			return i
		}
	}
	return None
}

func (p *Pad) validIndex(i int) bool {
	return i == None || (i >= 0 && i < len(p.drawings))
}

// Centroid returns the area-weighted centre of a polygon. Degenerate paths
// fall back to the vertex mean.
func Centroid(path []Point) Point {
	if len(path) == 0 {
		return Point{}
	}
	var area, cx, cy float64
	for i := range path {
		a, b := path[i], path[(i+1)%len(path)]
		cross := a.X*b.Y - b.X*a.Y
		area += cross
		cx += (a.X + b.X) * cross
		cy += (a.Y + b.Y) * cross
	}
	if math.Abs(area) < 1e-9 {
		var sx, sy float64
		for _, pt := range path {
			sx += pt.X
			sy += pt.Y
		}
		n := float64(len(path))
		return Point{X: sx / n, Y: sy / n}
	}
	area *= 3
	return Point{X: cx / area, Y: cy / area}
}
