package units

import (
	"math"

	"github.com/jakecoffman/cp"
)

// DefaultPixelsPerMeter is the scale used when none is configured
const DefaultPixelsPerMeter = 100.0

// Converter maps between world units (meters, Y up) and engine units
// (pixels, Y down from the top of the viewport).
type Converter struct {
	PixelsPerMeter float64
	ViewportHeight float64
}

// New creates a converter, falling back to the default scale
func New(pixelsPerMeter, viewportHeight float64) Converter {
	if pixelsPerMeter <= 0 {
		pixelsPerMeter = DefaultPixelsPerMeter
	}
	return Converter{PixelsPerMeter: pixelsPerMeter, ViewportHeight: viewportHeight}
}

// ToEngine converts a world position in meters to engine pixels
func (c Converter) ToEngine(xm, ym float64) cp.Vector {
	return cp.Vector{X: xm * c.PixelsPerMeter, Y: c.ViewportHeight - ym*c.PixelsPerMeter}
}

// ToWorld converts an engine position back to meters
func (c Converter) ToWorld(p cp.Vector) (xm, ym float64) {
	return p.X / c.PixelsPerMeter, (c.ViewportHeight - p.Y) / c.PixelsPerMeter
}

// Length converts a distance in meters to pixels
func (c Converter) Length(m float64) float64 {
	return m * c.PixelsPerMeter
}

// Meters converts a distance in pixels to meters
func (c Converter) Meters(px float64) float64 {
	return px / c.PixelsPerMeter
}

// VelocityToEngine converts m/s (Y up) to px/s (Y down)
func (c Converter) VelocityToEngine(vx, vy float64) cp.Vector {
	return cp.Vector{X: vx * c.PixelsPerMeter, Y: -vy * c.PixelsPerMeter}
}

// VelocityToWorld converts px/s (Y down) to m/s (Y up)
func (c Converter) VelocityToWorld(v cp.Vector) (vx, vy float64) {
	return v.X / c.PixelsPerMeter, -v.Y / c.PixelsPerMeter
}

// Radians converts degrees to radians
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Degrees converts radians to degrees
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
