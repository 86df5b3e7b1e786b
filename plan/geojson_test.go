package plan

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutGeoJSON(t *testing.T) {
	cfg := DefaultRoomConfig()
	items := []FurnitureItem{
		chairAt("a", 100, 100),
		{ID: "b", Kind: KindDesk, X: 300, Y: 250, Width: 140, Height: 70, Rotation: 90, Color: "#4B5563"},
	}

	fc := LayoutGeoJSON(cfg, items)
	require.Len(t, fc.Features, 3)

	room := fc.Features[0]
	assert.Equal(t, "room", room.ID)
	assert.Equal(t, "room", room.Properties["layer"])
	assert.Equal(t, "bedroom", room.Properties["type"])
	assert.Equal(t, orb.Bound{Max: orb.Point{500, 400}}, room.Geometry.Bound())

	desk := fc.Features[2]
	assert.Equal(t, "b", desk.ID)
	assert.Equal(t, "furniture", desk.Properties["layer"])
	assert.Equal(t, "desk", desk.Properties["kind"])
	assert.Equal(t, "Рабочий стол", desk.Properties["name"])
	assert.Equal(t, 90, desk.Properties["rotation"])

	b := desk.Geometry.Bound()
	assert.InDelta(t, 265.0, b.Min[0], 1e-9)
	assert.InDelta(t, 335.0, b.Max[0], 1e-9)
	assert.InDelta(t, 180.0, b.Min[1], 1e-9)
	assert.InDelta(t, 320.0, b.Max[1], 1e-9)
}

func TestLayoutGeoJSON_MarshalRoundTrip(t *testing.T) {
	data, err := LayoutGeoJSON(DefaultRoomConfig(), []FurnitureItem{chairAt("a", 100, 100)}).MarshalJSON()
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "FeatureCollection", raw["type"])

	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "a", fc.Features[1].Properties.MustString("id"))
	assert.IsType(t, orb.Polygon{}, fc.Features[1].Geometry)
}

func TestCoverage(t *testing.T) {
	cfg := DefaultRoomConfig() // 200000 cm2

	tests := []struct {
		name  string
		items []FurnitureItem
		want  float64
	}{
		{"empty", nil, 0},
		{"one chair", []FurnitureItem{chairAt("a", 250, 200)}, 3600.0 / 200000},
		{"rotated chair", []FurnitureItem{{ID: "a", X: 250, Y: 200, Width: 60, Height: 60, Rotation: 45}}, 3600.0 / 200000},
		{"half outside", []FurnitureItem{chairAt("a", 0, 200)}, 1800.0 / 200000},
		{"fully outside", []FurnitureItem{chairAt("a", -100, -100)}, 0},
		{"overlap counted twice", []FurnitureItem{chairAt("a", 250, 200), chairAt("b", 250, 200)}, 7200.0 / 200000},
		{"capped", []FurnitureItem{
			{ID: "r1", X: 250, Y: 200, Width: 500, Height: 400},
			{ID: "r2", X: 250, Y: 200, Width: 500, Height: 400},
		}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Coverage(cfg, tt.items), 1e-9)
		})
	}
}
