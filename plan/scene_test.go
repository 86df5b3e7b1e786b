package plan

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildScene_Layers(t *testing.T) {
	props := Props{Config: DefaultRoomConfig(), Furniture: []FurnitureItem{chairAt("c", 250, 200)}}

	scene, err := BuildScene(props, RenderState{}, DefaultSurface())
	require.NoError(t, err)

	assert.Equal(t, 1000.0, scene.Width)
	assert.Equal(t, 700.0, scene.Height)

	// 11 vertical (0..500) + 9 horizontal (0..400) lines every 50cm
	assert.Len(t, scene.ShapesIn(LayerGrid), 20)
	assert.Len(t, scene.ShapesIn(LayerWall), 2)
	assert.Len(t, scene.ShapesIn(LayerItem), 3)
	assert.Empty(t, scene.ShapesIn(LayerGuide))
	assert.Empty(t, scene.ShapesIn(LayerLabel))

	// grid first, walls next, furniture last
	assert.Equal(t, LayerGrid, scene.Shapes[0].Layer)
	assert.Equal(t, LayerWall, scene.Shapes[20].Layer)
	assert.Equal(t, LayerItem, scene.Shapes[len(scene.Shapes)-1].Layer)

	walls := scene.ShapesIn(LayerWall)
	assert.InDelta(t, 137.5, walls[0].Rect.X, 1e-9)
	assert.InDelta(t, 60.0, walls[0].Rect.Y, 1e-9)
	assert.InDelta(t, 725.0, walls[0].Rect.W, 1e-9)
	assert.InDelta(t, 580.0, walls[0].Rect.H, 1e-9)
	assert.Equal(t, 8.0, walls[0].Stroke.Width)
	assert.Equal(t, 2.0, walls[1].Stroke.Width)
}

func TestBuildScene_ItemAppearance(t *testing.T) {
	items := []FurnitureItem{
		{ID: "plain", Kind: KindChair, X: 100, Y: 100, Width: 60, Height: 60, Color: "#D1D5DB"},
		{ID: "hover", Kind: KindPlant, X: 200, Y: 100, Width: 40, Height: 40, Color: "#93C5FD"},
		{ID: "sel", Kind: KindDesk, X: 300, Y: 300, Width: 140, Height: 70, Rotation: 45, Color: "#4B5563"},
	}
	props := Props{Config: DefaultRoomConfig(), Furniture: items, SelectedID: "sel"}

	scene, err := BuildScene(props, RenderState{HoveredID: "hover"}, DefaultSurface())
	require.NoError(t, err)

	bodies := map[string]Shape{}
	icons := map[string]Shape{}
	for _, sh := range scene.ShapesIn(LayerItem) {
		switch sh.Kind {
		case ShapeRoundedRect:
			bodies[sh.ItemID] = sh
		case ShapeText:
			icons[sh.ItemID] = sh
		}
	}
	require.Len(t, bodies, 3)

	plain := bodies["plain"]
	assert.Equal(t, color.NRGBA{R: 0xD1, G: 0xD5, B: 0xDB, A: 230}, plain.Fill)
	assert.Equal(t, colorPlainStroke, plain.Stroke.Color)
	assert.Equal(t, 1.0, plain.Stroke.Width)
	assert.Zero(t, plain.Glow.Width)

	hover := bodies["hover"]
	assert.Equal(t, colorHovered, hover.Stroke.Color)
	assert.Equal(t, 2.0, hover.Stroke.Width)

	sel := bodies["sel"]
	assert.Equal(t, colorWhite, sel.Fill)
	assert.Equal(t, colorSelected, sel.Stroke.Color)
	assert.Equal(t, 3.0, sel.Stroke.Width)
	assert.Equal(t, glowWidth, sel.Glow.Width)
	assert.Equal(t, 45.0, sel.Rotation)
	assert.InDelta(t, 140*1.45, sel.Rect.W, 1e-9)
	assert.InDelta(t, -140*1.45/2, sel.Rect.X, 1e-9)

	assert.Equal(t, "🖥️", icons["sel"].Text)
	assert.Equal(t, "DESK", icons["sel"].AltText)
	assert.InDelta(t, 70*1.45*0.3, icons["sel"].FontSize, 1e-9)
}

func TestBuildScene_DragGuides(t *testing.T) {
	props := Props{
		Config:     DefaultRoomConfig(),
		Furniture:  []FurnitureItem{chairAt("c", 130, 80)},
		SelectedID: "c",
	}

	idle, err := BuildScene(props, RenderState{}, DefaultSurface())
	require.NoError(t, err)
	assert.Empty(t, idle.ShapesIn(LayerGuide), "guides only while dragging")

	scene, err := BuildScene(props, RenderState{Dragging: true}, DefaultSurface())
	require.NoError(t, err)

	guides := scene.ShapesIn(LayerGuide)
	require.Len(t, guides, 4)
	for _, g := range guides {
		assert.Equal(t, []float64{5, 5}, g.Stroke.Dashes)
	}

	// left guide runs from the wall to the item's left edge
	assert.InDelta(t, 137.5, guides[0].From.X, 1e-9)
	assert.InDelta(t, 137.5+100*1.45, guides[0].To.X, 1e-9)

	labels := scene.ShapesIn(LayerLabel)
	require.Len(t, labels, 2)
	assert.Equal(t, "130 см", labels[0].Text)
	assert.Equal(t, "80 см", labels[1].Text)
	assert.Equal(t, "130 cm", labels[0].AltText)

	// guides sit beneath the item they belong to
	firstGuide, firstItem := -1, -1
	for i, sh := range scene.Shapes {
		if sh.Layer == LayerGuide && firstGuide < 0 {
			firstGuide = i
		}
		if sh.Layer == LayerItem && firstItem < 0 {
			firstItem = i
		}
	}
	assert.Less(t, firstGuide, firstItem)
}

func TestBuildScene_RotatedGuidesShrink(t *testing.T) {
	props := Props{
		Config:     DefaultRoomConfig(),
		Furniture:  []FurnitureItem{{ID: "c", Kind: KindChair, X: 200, Y: 200, Width: 60, Height: 60, Rotation: 90}},
		SelectedID: "c",
	}
	scene, err := BuildScene(props, RenderState{Dragging: true}, DefaultSurface())
	require.NoError(t, err)

	// at 90 degrees the cosine factor collapses the edge offset to the center
	guides := scene.ShapesIn(LayerGuide)
	center := 137.5 + 200*1.45
	assert.InDelta(t, center, guides[0].To.X, 1e-9)
}

func TestBuildScene_IsPure(t *testing.T) {
	props := Props{Config: DefaultRoomConfig(), Furniture: []FurnitureItem{chairAt("c", 250, 200)}, SelectedID: "c"}
	a, err := BuildScene(props, RenderState{Dragging: true}, DefaultSurface())
	require.NoError(t, err)
	b, err := BuildScene(props, RenderState{Dragging: true}, DefaultSurface())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestParseHexColor(t *testing.T) {
	assert.Equal(t, color.NRGBA{R: 0x4f, G: 0x46, B: 0xe5, A: 255}, parseHexColor("#4f46e5"))
	assert.Equal(t, color.NRGBA{R: 0x4f, G: 0x46, B: 0xe5, A: 255}, parseHexColor("4F46E5"))
	assert.Equal(t, colorWhite, parseHexColor("#abc"))
	assert.Equal(t, colorWhite, parseHexColor("zzzzzz"))
	assert.Equal(t, colorWhite, parseHexColor(""))
}
