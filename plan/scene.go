package plan

import (
	"fmt"
	"image/color"
	"math"
)

// ShapeKind selects how a Shape is drawn
type ShapeKind int

const (
	ShapeLine ShapeKind = iota
	ShapeRect
	ShapeRoundedRect
	ShapeText
)

// Layer tags what a shape depicts, for renderers and tests that filter by it
type Layer string

const (
	LayerGrid  Layer = "grid"
	LayerWall  Layer = "wall"
	LayerGuide Layer = "guide"
	LayerItem  Layer = "item"
	LayerLabel Layer = "label"
)

// TextAnchor is the horizontal alignment of a text shape
type TextAnchor int

const (
	AnchorStart TextAnchor = iota
	AnchorCenter
)

// Rect is an axis-aligned rectangle given by its top-left corner and size
type Rect struct {
	X, Y, W, H float64
}

// Stroke describes an outline. A zero Width means no outline.
type Stroke struct {
	Color  color.NRGBA
	Width  float64
	Dashes []float64
}

// Shape is one drawing instruction in screen space. Geometry (From/To, Rect,
// text position) is local to Origin and rotated by Rotation degrees about it.
type Shape struct {
	Kind     ShapeKind
	Layer    Layer
	ItemID   string
	Origin   Point
	Rotation float64

	From, To Point
	Rect     Rect
	Radius   float64

	Fill   color.NRGBA
	Stroke Stroke
	Glow   Stroke // soft halo drawn beneath the shape

	Text     string
	AltText  string // ASCII fallback for text renderers without the glyph
	FontSize float64
	Anchor   TextAnchor
}

// Scene is the full back-to-front drawing of a floor plan
type Scene struct {
	Width  float64
	Height float64
	Shapes []Shape
}

// ShapesIn returns the shapes on the given layer, in draw order
func (s Scene) ShapesIn(layer Layer) []Shape {
	var out []Shape
	for _, sh := range s.Shapes {
		if sh.Layer == layer {
			out = append(out, sh)
		}
	}
	return out
}

var (
	colorGrid         = mustHex("#f1f5f9")
	colorWallOuter    = mustHex("#0f172a")
	colorWallInner    = mustHex("#334155")
	colorGuide        = mustHex("#94a3b8")
	colorGuideLabel   = mustHex("#64748b")
	colorSelected     = mustHex("#4f46e5")
	colorHovered      = mustHex("#6366f1")
	colorPlainStroke  = mustHex("#cbd5e1")
	colorTabPlain     = mustHex("#475569")
	colorIcon         = mustHex("#1e293b")
	colorSelectedGlow = color.NRGBA{R: 79, G: 70, B: 229, A: 128}
	colorWhite        = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

const (
	itemCornerRadius = 4.0
	itemAlpha        = 0.9
	guideLabelSize   = 10.0
	glowWidth        = 20.0
)

// RenderState is the interaction state the scene depends on besides props
type RenderState struct {
	HoveredID string
	Dragging  bool
}

// BuildScene draws the room, grid and furniture for the given state. It is a
// pure function of its inputs.
func BuildScene(props Props, rs RenderState, surface Surface) (Scene, error) {
	vp, err := NewViewport(props.Config, surface)
	if err != nil {
		return Scene{}, err
	}

	scene := Scene{Width: surface.Width, Height: surface.Height}
	cfg := props.Config
	off := vp.Offset()
	roomW := vp.Length(cfg.Width)
	roomH := vp.Length(cfg.Height)

	// Grid, in room units so density does not depend on resolution
	gridStroke := Stroke{Color: colorGrid, Width: 1}
	for i := 0.0; i <= cfg.Width; i += GridPitch {
		x := off.X + vp.Length(i)
		scene.Shapes = append(scene.Shapes, Shape{
			Kind: ShapeLine, Layer: LayerGrid,
			From: Point{X: x, Y: off.Y}, To: Point{X: x, Y: off.Y + roomH},
			Stroke: gridStroke,
		})
	}
	for i := 0.0; i <= cfg.Height; i += GridPitch {
		y := off.Y + vp.Length(i)
		scene.Shapes = append(scene.Shapes, Shape{
			Kind: ShapeLine, Layer: LayerGrid,
			From: Point{X: off.X, Y: y}, To: Point{X: off.X + roomW, Y: y},
			Stroke: gridStroke,
		})
	}

	// Walls: thick dark outline, then a thinner inner line
	walls := Rect{X: off.X, Y: off.Y, W: roomW, H: roomH}
	scene.Shapes = append(scene.Shapes,
		Shape{Kind: ShapeRect, Layer: LayerWall, Rect: walls, Stroke: Stroke{Color: colorWallOuter, Width: 8}},
		Shape{Kind: ShapeRect, Layer: LayerWall, Rect: walls, Stroke: Stroke{Color: colorWallInner, Width: 2}},
	)

	for _, item := range props.Furniture {
		selected := item.ID != "" && item.ID == props.SelectedID
		hovered := item.ID != "" && item.ID == rs.HoveredID

		if selected && rs.Dragging {
			scene.Shapes = append(scene.Shapes, dragGuides(item, vp, cfg)...)
		}
		scene.Shapes = append(scene.Shapes, itemShapes(item, vp, selected, hovered)...)
	}

	return scene, nil
}

// dragGuides draws dashed lines from the item's edges to each wall plus the
// item's position labels. Edge offsets use |cos(rotation)| on both axes,
// which only approximates the rotated extent.
func dragGuides(item FurnitureItem, vp Viewport, cfg RoomConfig) []Shape {
	off := vp.Offset()
	c := vp.ToScreen(item.Center())
	w := vp.Length(item.Width)
	h := vp.Length(item.Height)
	k := math.Abs(math.Cos(float64(item.Rotation) * math.Pi / 180))

	guide := Stroke{Color: colorGuide, Width: 1, Dashes: []float64{5, 5}}
	line := func(from, to Point) Shape {
		return Shape{Kind: ShapeLine, Layer: LayerGuide, ItemID: item.ID, From: from, To: to, Stroke: guide}
	}

	return []Shape{
		line(Point{X: off.X, Y: c.Y}, Point{X: c.X - w/2*k, Y: c.Y}),
		line(Point{X: c.X + w/2*k, Y: c.Y}, Point{X: off.X + vp.Length(cfg.Width), Y: c.Y}),
		line(Point{X: c.X, Y: off.Y}, Point{X: c.X, Y: c.Y - h/2*k}),
		line(Point{X: c.X, Y: c.Y + h/2*k}, Point{X: c.X, Y: off.Y + vp.Length(cfg.Height)}),
		{
			Kind: ShapeText, Layer: LayerLabel, ItemID: item.ID,
			From:     Point{X: off.X + vp.Length(item.X)/2, Y: c.Y - 5},
			Text:     fmt.Sprintf("%d см", int(math.Round(item.X))),
			AltText:  fmt.Sprintf("%d cm", int(math.Round(item.X))),
			FontSize: guideLabelSize, Fill: colorGuideLabel, Anchor: AnchorStart,
		},
		{
			Kind: ShapeText, Layer: LayerLabel, ItemID: item.ID,
			From:     Point{X: c.X + 5, Y: off.Y + vp.Length(item.Y)/2},
			Text:     fmt.Sprintf("%d см", int(math.Round(item.Y))),
			AltText:  fmt.Sprintf("%d cm", int(math.Round(item.Y))),
			FontSize: guideLabelSize, Fill: colorGuideLabel, Anchor: AnchorStart,
		},
	}
}

// itemShapes draws the body, front tab and icon in the item's rotated frame
func itemShapes(item FurnitureItem, vp Viewport, selected, hovered bool) []Shape {
	origin := vp.ToScreen(item.Center())
	rot := float64(item.Rotation)
	w := vp.Length(item.Width)
	h := vp.Length(item.Height)

	body := Shape{
		Kind: ShapeRoundedRect, Layer: LayerItem, ItemID: item.ID,
		Origin: origin, Rotation: rot,
		Rect:   Rect{X: -w / 2, Y: -h / 2, W: w, H: h},
		Radius: itemCornerRadius,
	}
	tab := Shape{
		Kind: ShapeRect, Layer: LayerItem, ItemID: item.ID,
		Origin: origin, Rotation: rot,
		Rect: Rect{X: -2, Y: -h/2 - 5, W: 4, H: 5},
		Fill: colorTabPlain,
	}

	switch {
	case selected:
		body.Fill = colorWhite
		body.Stroke = Stroke{Color: colorSelected, Width: 3}
		body.Glow = Stroke{Color: colorSelectedGlow, Width: glowWidth}
		tab.Fill = colorSelected
	case hovered:
		body.Fill = withAlpha(parseHexColor(item.Color), itemAlpha)
		body.Stroke = Stroke{Color: colorHovered, Width: 2}
	default:
		body.Fill = withAlpha(parseHexColor(item.Color), itemAlpha)
		body.Stroke = Stroke{Color: colorPlainStroke, Width: 1}
	}

	entry := LookupFurniture(item.Kind)
	icon := Shape{
		Kind: ShapeText, Layer: LayerItem, ItemID: item.ID,
		Origin: origin, Rotation: rot,
		Text:     entry.Symbol,
		AltText:  entry.Code,
		FontSize: math.Min(w, h) * 0.3,
		Fill:     colorIcon,
		Anchor:   AnchorCenter,
	}

	return []Shape{body, tab, icon}
}

// parseHexColor parses "#rrggbb" (the # is optional). Unparseable input
// yields opaque white so a bad color never hides an item.
func parseHexColor(hex string) color.NRGBA {
	fallback := colorWhite
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return fallback
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		return fallback
	}
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

func mustHex(hex string) color.NRGBA {
	return parseHexColor(hex)
}

func withAlpha(c color.NRGBA, alpha float64) color.NRGBA {
	c.A = uint8(math.Round(alpha * 255))
	return c
}
