package plan

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// LayoutGeoJSON exports the room outline and each item's rotated footprint.
// Coordinates are room centimeters with y growing downward.
func LayoutGeoJSON(cfg RoomConfig, items []FurnitureItem) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	room := geojson.NewFeature(RoomPolygon(cfg))
	room.ID = "room"
	room.Properties["layer"] = "room"
	room.Properties["type"] = string(cfg.Type)
	room.Properties["style"] = string(cfg.Style)
	room.Properties["width"] = cfg.Width
	room.Properties["height"] = cfg.Height
	fc.Append(room)

	for _, it := range items {
		entry := LookupFurniture(it.Kind)
		f := geojson.NewFeature(Footprint(it))
		f.ID = it.ID
		f.Properties["layer"] = "furniture"
		f.Properties["id"] = it.ID
		f.Properties["kind"] = string(it.Kind)
		f.Properties["name"] = entry.Name
		f.Properties["category"] = entry.Category
		f.Properties["rotation"] = it.Rotation
		f.Properties["color"] = it.Color
		f.Properties["center"] = []float64{it.X, it.Y}
		fc.Append(f)
	}
	return fc
}

// Coverage returns the share of floor area under furniture, in [0, 1].
// Footprints are clipped to the room; overlapping items count twice, so the
// sum is capped at 1.
func Coverage(cfg RoomConfig, items []FurnitureItem) float64 {
	floor := cfg.Width * cfg.Height
	if floor <= 0 {
		return 0
	}

	bound := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{cfg.Width, cfg.Height}}
	var covered float64
	for _, it := range items {
		p := clip.Polygon(bound, Footprint(it))
		if len(p) == 0 {
			continue
		}
		covered += math.Abs(planar.Area(p))
	}
	return math.Min(1, covered/floor)
}
