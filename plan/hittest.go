package plan

import (
	"github.com/paulmach/orb"
)

// ItemBound returns the item's axis-aligned bounding box in room space,
// ignoring rotation.
func ItemBound(item FurnitureItem) orb.Bound {
	hw, hh := item.HalfExtents()
	return orb.Bound{
		Min: orb.Point{item.X - hw, item.Y - hh},
		Max: orb.Point{item.X + hw, item.Y + hh},
	}
}

// HitTest returns the topmost item whose unrotated bounding box contains p.
// Items later in the list are drawn later and win. Edges count as inside.
func HitTest(items []FurnitureItem, p Point) (FurnitureItem, bool) {
	pt := orb.Point{p.X, p.Y}
	for i := len(items) - 1; i >= 0; i-- {
		if ItemBound(items[i]).Contains(pt) {
			return items[i], true
		}
	}
	return FurnitureItem{}, false
}

// Footprint returns the item's rectangle rotated about its center, as a
// closed polygon in room space.
func Footprint(item FurnitureItem) orb.Polygon {
	hw, hh := item.HalfExtents()
	m := MultiplyMatrices(Translation(item.X, item.Y), RotationDeg(float64(item.Rotation)))
	corners := TransformPoints([]Point{
		{X: -hw, Y: -hh},
		{X: hw, Y: -hh},
		{X: hw, Y: hh},
		{X: -hw, Y: hh},
	}, m)

	ring := make(orb.Ring, 0, len(corners)+1)
	for _, c := range corners {
		ring = append(ring, orb.Point{c.X, c.Y})
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}
}

// RoomPolygon returns the room outline as a closed polygon
func RoomPolygon(cfg RoomConfig) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{0, 0},
		{cfg.Width, 0},
		{cfg.Width, cfg.Height},
		{0, cfg.Height},
		{0, 0},
	}}
}
