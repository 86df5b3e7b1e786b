package plan

import (
	"fmt"
	"math"
)

const (
	// DefaultSurfaceWidth and DefaultSurfaceHeight are the fixed drawing
	// surface size in pixels, independent of room dimensions.
	DefaultSurfaceWidth  = 1000
	DefaultSurfaceHeight = 700

	// DefaultSurfacePadding is the margin kept around the room on every side.
	DefaultSurfacePadding = 60
)

// Surface is the pixel drawing area the room is fitted into
type Surface struct {
	Width   float64 `yaml:"width" json:"width"`
	Height  float64 `yaml:"height" json:"height"`
	Padding float64 `yaml:"padding" json:"padding"`
}

// DefaultSurface returns the 1000x700 surface with 60px padding
func DefaultSurface() Surface {
	return Surface{
		Width:   DefaultSurfaceWidth,
		Height:  DefaultSurfaceHeight,
		Padding: DefaultSurfacePadding,
	}
}

// Viewport maps room space (cm, origin top-left, y down) onto a Surface
// (pixels). The room is scaled uniformly and centered inside the padding.
type Viewport struct {
	surface  Surface
	scale    float64
	offset   Point
	toScreen AffineMatrix
	toRoom   AffineMatrix
}

// NewViewport computes the transform for a room on a surface. It is cheap and
// meant to be rebuilt for every render and pointer event.
func NewViewport(cfg RoomConfig, surface Surface) (Viewport, error) {
	if !positiveFinite(cfg.Width) || !positiveFinite(cfg.Height) {
		return Viewport{}, fmt.Errorf("room %vx%v: %w", cfg.Width, cfg.Height, ErrInvalidConfiguration)
	}
	availW := surface.Width - 2*surface.Padding
	availH := surface.Height - 2*surface.Padding
	if availW <= 0 || availH <= 0 {
		return Viewport{}, fmt.Errorf("surface %vx%v with padding %v: %w",
			surface.Width, surface.Height, surface.Padding, ErrInvalidConfiguration)
	}

	scale := math.Min(availW/cfg.Width, availH/cfg.Height)
	offset := Point{
		X: surface.Padding + (availW-cfg.Width*scale)/2,
		Y: surface.Padding + (availH-cfg.Height*scale)/2,
	}

	toScreen := MultiplyMatrices(Translation(offset.X, offset.Y), Scale(scale, scale))
	return Viewport{
		surface:  surface,
		scale:    scale,
		offset:   offset,
		toScreen: toScreen,
		toRoom:   InvertMatrix(toScreen),
	}, nil
}

// Scale returns pixels per centimeter
func (v Viewport) Scale() float64 { return v.scale }

// Offset returns the screen position of the room's top-left corner
func (v Viewport) Offset() Point { return v.offset }

// Surface returns the surface the viewport was built for
func (v Viewport) Surface() Surface { return v.surface }

// ToScreen converts a room-space point to screen space
func (v Viewport) ToScreen(p Point) Point {
	return TransformPoint(p, v.toScreen)
}

// ToRoom converts a screen-space point (e.g. a pointer position) to room space
func (v Viewport) ToRoom(p Point) Point {
	return TransformPoint(p, v.toRoom)
}

// Length converts a room-space length to pixels
func (v Viewport) Length(cm float64) float64 {
	return cm * v.scale
}

// TransformPoint applies an affine transform to a point
// x' = a*x + b*y + tx
// y' = c*x + d*y + ty
func TransformPoint(p Point, m AffineMatrix) Point {
	return Point{
		X: m.A*p.X + m.B*p.Y + m.Tx,
		Y: m.C*p.X + m.D*p.Y + m.Ty,
	}
}

// TransformPoints applies an affine transform to multiple points
func TransformPoints(points []Point, m AffineMatrix) []Point {
	result := make([]Point, len(points))
	for i, p := range points {
		result[i] = TransformPoint(p, m)
	}
	return result
}

// MultiplyMatrices composes two affine transforms: result = m1 * m2
// Applying result is equivalent to applying m2 first, then m1
func MultiplyMatrices(m1, m2 AffineMatrix) AffineMatrix {
	return AffineMatrix{
		A:  m1.A*m2.A + m1.B*m2.C,
		B:  m1.A*m2.B + m1.B*m2.D,
		Tx: m1.A*m2.Tx + m1.B*m2.Ty + m1.Tx,
		C:  m1.C*m2.A + m1.D*m2.C,
		D:  m1.C*m2.B + m1.D*m2.D,
		Ty: m1.C*m2.Tx + m1.D*m2.Ty + m1.Ty,
	}
}

// InvertMatrix computes the inverse of an affine transform
// Returns identity if matrix is singular (determinant ~= 0)
func InvertMatrix(m AffineMatrix) AffineMatrix {
	det := m.A*m.D - m.B*m.C
	if math.Abs(det) < 1e-12 {
		return Identity()
	}

	invDet := 1.0 / det
	return AffineMatrix{
		A:  m.D * invDet,
		B:  -m.B * invDet,
		Tx: (m.B*m.Ty - m.D*m.Tx) * invDet,
		C:  -m.C * invDet,
		D:  m.A * invDet,
		Ty: (m.C*m.Tx - m.A*m.Ty) * invDet,
	}
}

// Translation creates a translation-only transform
func Translation(tx, ty float64) AffineMatrix {
	return AffineMatrix{A: 1, B: 0, Tx: tx, C: 0, D: 1, Ty: ty}
}

// RotationDeg creates a rotation transform around the origin. With y pointing
// down, positive angles turn clockwise on screen.
func RotationDeg(degrees float64) AffineMatrix {
	rad := degrees * math.Pi / 180.0
	cos := math.Cos(rad)
	sin := math.Sin(rad)
	return AffineMatrix{A: cos, B: -sin, Tx: 0, C: sin, D: cos, Ty: 0}
}

// Scale creates a scaling transform
func Scale(sx, sy float64) AffineMatrix {
	return AffineMatrix{A: sx, B: 0, Tx: 0, C: 0, D: sy, Ty: 0}
}

// NormalizeAngle normalizes an angle in degrees to the range [0, 360).
func NormalizeAngle(degrees int) int {
	degrees %= 360
	if degrees < 0 {
		degrees += 360
	}
	return degrees
}
