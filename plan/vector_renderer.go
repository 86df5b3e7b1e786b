package plan

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// nrgbaToRGBA converts color.NRGBA to color.RGBA by premultiplying alpha.
// The canvas library expects premultiplied RGBA.
func nrgbaToRGBA(c color.NRGBA) color.RGBA {
	if c.A == 0 {
		return color.RGBA{0, 0, 0, 0}
	}
	if c.A == 255 {
		return color.RGBA{c.R, c.G, c.B, 255}
	}
	alpha32 := uint32(c.A)
	return color.RGBA{
		R: uint8((uint32(c.R) * alpha32) / 255),
		G: uint8((uint32(c.G) * alpha32) / 255),
		B: uint8((uint32(c.B) * alpha32) / 255),
		A: c.A,
	}
}

// VectorRenderer draws a Scene as SVG or PNG
type VectorRenderer struct {
	Resolution canvas.Resolution // PNG pixels per scene unit (default: 1)
	Background color.NRGBA
	Labels     bool // draw text shapes on raster output
}

// NewVectorRenderer creates a renderer with one pixel per scene unit on a
// white background
func NewVectorRenderer() *VectorRenderer {
	return &VectorRenderer{
		Resolution: canvas.DPMM(1),
		Background: colorWhite,
		Labels:     true,
	}
}

// canvasRenderer is implemented by both the svg and rasterizer renderers
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// RenderSVG writes the scene as an SVG document. Text shapes are not drawn;
// canvas text needs a loaded font family.
func (r *VectorRenderer) RenderSVG(w io.Writer, scene Scene) error {
	if scene.Width <= 0 || scene.Height <= 0 {
		return fmt.Errorf("render svg: empty scene: %w", ErrInvalidConfiguration)
	}
	svgRenderer := svg.New(w, scene.Width, scene.Height, nil)
	r.renderToCanvas(svgRenderer, scene)
	return svgRenderer.Close()
}

// RenderImage rasterizes the scene
func (r *VectorRenderer) RenderImage(scene Scene) (image.Image, error) {
	if scene.Width <= 0 || scene.Height <= 0 {
		return nil, fmt.Errorf("render png: empty scene: %w", ErrInvalidConfiguration)
	}
	res := r.Resolution
	if res <= 0 {
		res = canvas.DPMM(1)
	}
	rast := rasterizer.New(scene.Width, scene.Height, res, canvas.DefaultColorSpace)
	r.renderToCanvas(rast, scene)
	if r.Labels {
		drawLabels(rast, scene, res.DPMM())
	}
	return rast, nil
}

// RenderPNG writes the scene as a PNG
func (r *VectorRenderer) RenderPNG(w io.Writer, scene Scene) error {
	img, err := r.RenderImage(scene)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// RenderThumbnail writes a PNG scaled to fit within size x size pixels,
// keeping the aspect ratio
func (r *VectorRenderer) RenderThumbnail(w io.Writer, scene Scene, size int) error {
	if size <= 0 {
		return fmt.Errorf("thumbnail size %d: %w", size, ErrInvalidConfiguration)
	}
	img, err := r.RenderImage(scene)
	if err != nil {
		return err
	}
	return png.Encode(w, imaging.Fit(img, size, size, imaging.Lanczos))
}

// renderToCanvas draws every non-text shape (shared by SVG and PNG)
func (r *VectorRenderer) renderToCanvas(renderer canvasRenderer, scene Scene) {
	// canvas is y-up; scene coordinates are y-down from the top-left corner
	base := canvas.Identity.Translate(0, scene.Height).Scale(1, -1)

	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: nrgbaToRGBA(r.Background)}
	bgStyle.Stroke = canvas.Paint{Color: canvas.Transparent}
	renderer.RenderPath(canvas.Rectangle(scene.Width, scene.Height), bgStyle, canvas.Identity)

	for _, sh := range scene.Shapes {
		if sh.Kind == ShapeText {
			continue
		}
		m := base.Translate(sh.Origin.X, sh.Origin.Y).Rotate(sh.Rotation)
		path := shapePath(sh)
		if path == nil {
			continue
		}

		if sh.Glow.Width > 0 {
			renderer.RenderPath(path, strokeStyle(sh.Glow, color.NRGBA{}), m)
		}
		renderer.RenderPath(path, strokeStyle(sh.Stroke, sh.Fill), m)
	}
}

func shapePath(sh Shape) *canvas.Path {
	switch sh.Kind {
	case ShapeLine:
		p := &canvas.Path{}
		p.MoveTo(sh.From.X, sh.From.Y)
		p.LineTo(sh.To.X, sh.To.Y)
		return p
	case ShapeRect:
		return canvas.Rectangle(sh.Rect.W, sh.Rect.H).Translate(sh.Rect.X, sh.Rect.Y)
	case ShapeRoundedRect:
		return canvas.RoundedRectangle(sh.Rect.W, sh.Rect.H, sh.Radius).Translate(sh.Rect.X, sh.Rect.Y)
	default:
		return nil
	}
}

func strokeStyle(s Stroke, fill color.NRGBA) canvas.Style {
	style := canvas.DefaultStyle
	style.Fill = canvas.Paint{Color: nrgbaToRGBA(fill)}
	if s.Width > 0 {
		style.Stroke = canvas.Paint{Color: nrgbaToRGBA(s.Color)}
		style.StrokeWidth = s.Width
		style.Dashes = s.Dashes
	} else {
		style.Stroke = canvas.Paint{Color: canvas.Transparent}
	}
	return style
}

// drawLabels draws text shapes with the fixed-size basic font. Glyphs outside
// ASCII are not covered, so the ASCII AltText is used when present. Text is
// not rotated.
func drawLabels(dst draw.Image, scene Scene, dpmm float64) {
	face := basicfont.Face7x13
	ascent := face.Metrics().Ascent.Round()

	for _, sh := range scene.Shapes {
		if sh.Kind != ShapeText {
			continue
		}
		text := sh.Text
		if sh.AltText != "" {
			text = sh.AltText
		}
		if text == "" {
			continue
		}

		pos := TransformPoint(sh.From, MultiplyMatrices(
			Translation(sh.Origin.X, sh.Origin.Y), RotationDeg(sh.Rotation)))
		x := int(pos.X * dpmm)
		y := int(pos.Y * dpmm)

		d := &font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(sh.Fill),
			Face: face,
		}
		if sh.Anchor == AnchorCenter {
			x -= d.MeasureString(text).Round() / 2
			y += ascent / 2
		}
		d.Dot = fixed.P(x, y)
		d.DrawString(text)
	}
}
