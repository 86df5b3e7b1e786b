package plan

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidConfiguration is returned when room dimensions or tags cannot
	// describe a drawable room.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnknownKind is returned when a furniture type tag is not in the catalog.
	ErrUnknownKind = errors.New("unknown furniture kind")

	// ErrNoSelection is returned by selection actions when nothing is selected.
	ErrNoSelection = errors.New("no furniture selected")

	// ErrGenerationFailed is returned when the design collaborator could not
	// produce a visualization.
	ErrGenerationFailed = errors.New("generation failed")
)

// RoomType is the kind of room being furnished
type RoomType string

const (
	RoomBedroom    RoomType = "bedroom"
	RoomLivingRoom RoomType = "living_room"
	RoomOffice     RoomType = "office"
)

// Valid reports whether t is one of the known room types
func (t RoomType) Valid() bool {
	switch t {
	case RoomBedroom, RoomLivingRoom, RoomOffice:
		return true
	}
	return false
}

// Style is the interior design style applied to the room
type Style string

const (
	StyleScandi     Style = "scandi"
	StyleLoft       Style = "loft"
	StyleMinimalism Style = "minimalism"
)

// Valid reports whether s is one of the known styles
func (s Style) Valid() bool {
	switch s {
	case StyleScandi, StyleLoft, StyleMinimalism:
		return true
	}
	return false
}

// RoomConfig describes the room being planned. Dimensions are in centimeters.
type RoomConfig struct {
	Width  float64  `yaml:"width" json:"width"`
	Height float64  `yaml:"height" json:"height"`
	Type   RoomType `yaml:"type" json:"type"`
	Style  Style    `yaml:"style" json:"style"`
}

// DefaultRoomConfig returns the room a new design session starts with
func DefaultRoomConfig() RoomConfig {
	return RoomConfig{
		Width:  500,
		Height: 400,
		Type:   RoomBedroom,
		Style:  StyleScandi,
	}
}

// MaxRoomDimension bounds room width and height (cm). Every render draws one
// grid line per GridPitch, so the bound also bounds scene size.
const MaxRoomDimension = 10000.0

// Validate checks that the config describes a drawable room
func (c RoomConfig) Validate() error {
	if !positiveFinite(c.Width) || c.Width > MaxRoomDimension {
		return fmt.Errorf("room width %v: %w", c.Width, ErrInvalidConfiguration)
	}
	if !positiveFinite(c.Height) || c.Height > MaxRoomDimension {
		return fmt.Errorf("room height %v: %w", c.Height, ErrInvalidConfiguration)
	}
	if !c.Type.Valid() {
		return fmt.Errorf("room type %q: %w", c.Type, ErrInvalidConfiguration)
	}
	if !c.Style.Valid() {
		return fmt.Errorf("style %q: %w", c.Style, ErrInvalidConfiguration)
	}
	return nil
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// FurnitureItem is a piece of furniture placed in the room.
// X and Y locate the item's center in room space (cm). Width and Height are
// the extents before rotation is applied.
type FurnitureItem struct {
	ID       string        `yaml:"id" json:"id"`
	Kind     FurnitureKind `yaml:"type" json:"type"`
	X        float64       `yaml:"x" json:"x"`
	Y        float64       `yaml:"y" json:"y"`
	Width    float64       `yaml:"width" json:"width"`
	Height   float64       `yaml:"height" json:"height"`
	Rotation int           `yaml:"rotation" json:"rotation"` // degrees, multiple of 45 in [0, 360)
	Color    string        `yaml:"color" json:"color"`
}

// Center returns the item's center in room space
func (f FurnitureItem) Center() Point {
	return Point{X: f.X, Y: f.Y}
}

// HalfExtents returns half the unrotated width and height
func (f FurnitureItem) HalfExtents() (float64, float64) {
	return f.Width / 2, f.Height / 2
}

// Point represents a 2D coordinate
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// AffineMatrix for 2D transforms: x' = ax + by + tx, y' = cx + dy + ty
type AffineMatrix struct {
	A  float64 `json:"a"`
	B  float64 `json:"b"`
	Tx float64 `json:"tx"`
	C  float64 `json:"c"`
	D  float64 `json:"d"`
	Ty float64 `json:"ty"`
}

// Identity returns an identity matrix (no transformation)
func Identity() AffineMatrix {
	return AffineMatrix{A: 1, B: 0, Tx: 0, C: 0, D: 1, Ty: 0}
}

// Snapshot is an immutable copy of a design session's observable state
type Snapshot struct {
	Config     RoomConfig      `json:"config"`
	Furniture  []FurnitureItem `json:"furniture"`
	SelectedID string          `json:"selectedId,omitempty"`
	Dragging   bool            `json:"dragging"`
	HoveredID  string          `json:"hoveredId,omitempty"`
	Version    uint64          `json:"version"`
}

// cloneItems returns a copy of items that shares no backing array
func cloneItems(items []FurnitureItem) []FurnitureItem {
	out := make([]FurnitureItem, len(items))
	copy(out, items)
	return out
}
