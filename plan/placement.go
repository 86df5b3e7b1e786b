package plan

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

const (
	// SnapTolerance is how close (cm) an edge must come to a wall to snap flush.
	SnapTolerance = 10.0

	// RotationStep is the rotate action increment in degrees.
	RotationStep = 45

	// GridPitch is the background grid spacing in centimeters.
	GridPitch = 50.0
)

// SnapToWalls pulls an edge flush to a wall when it lands within tolerance of
// it. Each axis and side is checked independently; left/top are checked
// before right/bottom.
func SnapToWalls(item FurnitureItem, center Point, cfg RoomConfig, tolerance float64) Point {
	hw, hh := item.HalfExtents()

	if center.X-hw < tolerance {
		center.X = hw
	}
	if center.X+hw > cfg.Width-tolerance {
		center.X = cfg.Width - hw
	}
	if center.Y-hh < tolerance {
		center.Y = hh
	}
	if center.Y+hh > cfg.Height-tolerance {
		center.Y = cfg.Height - hh
	}
	return center
}

// ClampToRoom forces the center so the unrotated extent stays inside the
// room. An item larger than the room ends up flush with the left/top wall.
func ClampToRoom(item FurnitureItem, center Point, cfg RoomConfig) Point {
	hw, hh := item.HalfExtents()
	return Point{
		X: math.Max(hw, math.Min(cfg.Width-hw, center.X)),
		Y: math.Max(hh, math.Min(cfg.Height-hh, center.Y)),
	}
}

// MoveItem returns a copy of item re-centered at dest after wall snapping and
// the authoritative room clamp.
func MoveItem(item FurnitureItem, dest Point, cfg RoomConfig) FurnitureItem {
	c := SnapToWalls(item, dest, cfg, SnapTolerance)
	c = ClampToRoom(item, c, cfg)
	item.X = c.X
	item.Y = c.Y
	return item
}

// RotateItem advances the rotation by RotationStep. Position is untouched and
// no bounds are enforced.
func RotateItem(item FurnitureItem) FurnitureItem {
	item.Rotation = NormalizeAngle(item.Rotation + RotationStep)
	return item
}

// Overlaps reports whether two items' unrotated boxes share interior area
func Overlaps(a, b FurnitureItem) bool {
	ba, bb := ItemBound(a), ItemBound(b)
	return ba.Min[0] < bb.Max[0] && bb.Min[0] < ba.Max[0] &&
		ba.Min[1] < bb.Max[1] && bb.Min[1] < ba.Max[1]
}

// Collision names two overlapping items
type Collision struct {
	A string `json:"a"`
	B string `json:"b"`
}

// Collisions lists every overlapping pair in list order. Overlap is reported,
// never prevented.
func Collisions(items []FurnitureItem) []Collision {
	var out []Collision
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if Overlaps(items[i], items[j]) {
				out = append(out, Collision{A: items[i].ID, B: items[j].ID})
			}
		}
	}
	return out
}

// replaceItem returns a new list with fn applied to the item matching id.
// Other entries are copied unchanged.
func replaceItem(items []FurnitureItem, id string, fn func(FurnitureItem) FurnitureItem) ([]FurnitureItem, bool) {
	out := make([]FurnitureItem, len(items))
	found := false
	for i, it := range items {
		if it.ID == id {
			it = fn(it)
			found = true
		}
		out[i] = it
	}
	return out, found
}

// NormalizeFurniture checks and completes a furniture list for a room. Kinds
// must parse and IDs must be unique; missing IDs, sizes and colors are filled
// from the catalog and the room's palette, rotation is rounded to the nearest
// RotationStep and each center is clamped into the room. The input is not
// modified.
func NormalizeFurniture(items []FurnitureItem, cfg RoomConfig) ([]FurnitureItem, error) {
	palette := LookupStyle(cfg.Style).Palette
	seen := make(map[string]bool, len(items))
	out := make([]FurnitureItem, len(items))
	for i, it := range items {
		kind, err := ParseFurnitureKind(string(it.Kind))
		if err != nil {
			return nil, fmt.Errorf("furniture[%d]: %w", i, err)
		}
		if !finite(it.X) || !finite(it.Y) {
			return nil, fmt.Errorf("furniture[%d] position (%v, %v): %w", i, it.X, it.Y, ErrInvalidConfiguration)
		}
		if it.ID == "" {
			it.ID = "f-" + uuid.NewString()
		}
		if seen[it.ID] {
			return nil, fmt.Errorf("furniture[%d] duplicate id %q: %w", i, it.ID, ErrInvalidConfiguration)
		}
		seen[it.ID] = true

		entry := LookupFurniture(kind)
		if !positiveFinite(it.Width) {
			it.Width = entry.Width
		}
		if !positiveFinite(it.Height) {
			it.Height = entry.Height
		}
		if it.Color == "" {
			it.Color = palette[2]
		}
		it.Rotation = snapRotation(it.Rotation)
		c := ClampToRoom(it, it.Center(), cfg)
		it.X, it.Y = c.X, c.Y
		out[i] = it
	}
	return out, nil
}

// snapRotation rounds to the nearest RotationStep in [0, 360)
func snapRotation(deg int) int {
	steps := math.Round(float64(deg) / RotationStep)
	return NormalizeAngle(int(steps) * RotationStep)
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}
