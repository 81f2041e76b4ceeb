// Native PNG rendering for sketch scenes.
// Mirrors the SVG export using Go's image packages.

package sketchfile

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/ha1tch/sketch-toolkit/pkg/element"
	"github.com/ha1tch/sketch-toolkit/pkg/geom"
)

// supersample is the factor the scene is drawn at before downsampling.
const supersample = 4

// PNGOptions configures PNG rendering.
type PNGOptions struct {
	Width       int
	Height      int
	Padding     int
	StrokeWidth float64 // pixels at output size
	ShowFocus   bool    // mark binding focus points
}

// DefaultPNGOptions returns sensible defaults for PNG rendering.
func DefaultPNGOptions() PNGOptions {
	return PNGOptions{
		Width:       1024,
		Height:      768,
		Padding:     20,
		StrokeWidth: 2,
	}
}

// Colors used in rendering
var (
	colorWhite  = color.RGBA{255, 255, 255, 255}
	colorStroke = color.RGBA{30, 30, 30, 255}    // #1e1e1e
	colorFill   = color.RGBA{231, 245, 255, 255} // #e7f5ff
	colorBound  = color.RGBA{25, 113, 194, 255}  // #1971c2
	colorFocus  = color.RGBA{224, 49, 49, 255}   // #e03131
)

// renderContext holds rendering parameters at supersampled size.
type renderContext struct {
	img       *image.RGBA
	view      viewport
	scale     float64 // supersample factor
	lineWidth float64
	font      *opentype.Font
}

// RenderPNG renders the elements to PNG.
// Uses 4x supersampling for smoother output.
func RenderPNG(els []element.Element, w io.Writer, opts PNGOptions) error {
	img, err := renderImage(els, opts)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

func renderImage(els []element.Element, opts PNGOptions) (*image.RGBA, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", opts.Width, opts.Height)
	}
	if opts.StrokeWidth <= 0 {
		opts.StrokeWidth = 2
	}

	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	largeW, largeH := opts.Width*supersample, opts.Height*supersample
	large := image.NewRGBA(image.Rect(0, 0, largeW, largeH))
	draw.Draw(large, large.Bounds(), image.NewUniform(colorWhite), image.Point{}, draw.Src)

	ctx := &renderContext{
		img: large,
		view: fitViewport(sceneExtent(els),
			float64(largeW), float64(largeH), float64(opts.Padding*supersample)),
		scale:     supersample,
		lineWidth: opts.StrokeWidth * supersample,
		font:      fnt,
	}

	for _, el := range els {
		if el.Common().IsDeleted {
			continue
		}
		switch v := el.(type) {
		case *element.Shape:
			ctx.drawShape(v)
		case *element.Linear:
			ctx.drawLinear(v, opts.ShowFocus)
		case *element.Text:
			if err := ctx.drawText(v); err != nil {
				return nil, err
			}
		}
	}

	// Downsample to target size using high-quality interpolation
	final := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.CatmullRom.Scale(final, final.Bounds(), large, large.Bounds(), draw.Over, nil)
	return final, nil
}

func (ctx *renderContext) drawShape(s *element.Shape) {
	pts := ctx.view.applyAll(Outline(s))
	ctx.fillPolygon(pts, colorFill)

	stroke := colorStroke
	if len(s.BoundElementIDs) > 0 {
		stroke = colorBound
	}
	for i := range pts {
		a, b := pts[i], pts[(i+1)%len(pts)]
		ctx.drawLine(a, b, stroke)
	}
}

func (ctx *renderContext) drawLinear(l *element.Linear, showFocus bool) {
	pts := ctx.view.applyAll(l.AbsolutePoints())
	for i := 1; i < len(pts); i++ {
		ctx.drawLine(pts[i-1], pts[i], colorStroke)
	}

	if l.Type == element.TypeArrow && len(pts) >= 2 {
		from, tip := pts[len(pts)-2], pts[len(pts)-1]
		if left, right, ok := arrowHead(from, tip, 10*ctx.scale, 5*ctx.scale); ok {
			ctx.fillPolygon([]geom.Point{tip, left, right}, colorStroke)
		}
	}

	if !showFocus {
		return
	}
	for _, b := range []*element.Binding{l.StartBinding, l.EndBinding} {
		if b == nil {
			continue
		}
		c := ctx.view.apply(b.FocusPoint)
		ctx.fillCircle(c, 3*ctx.scale, colorFocus)
	}
}

func (ctx *renderContext) drawText(t *element.Text) error {
	size := t.FontSize * ctx.view.scale
	if size < 1 {
		return nil
	}
	face, err := opentype.NewFace(ctx.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone, // supersampled instead
	})
	if err != nil {
		return fmt.Errorf("font face: %w", err)
	}
	defer face.Close()

	origin := ctx.view.apply(geom.Pt(t.X, t.Y))
	ascent := face.Metrics().Ascent.Ceil()

	d := &font.Drawer{
		Dst:  ctx.img,
		Src:  image.NewUniform(colorStroke),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(int(origin.X)),
			Y: fixed.I(int(origin.Y) + ascent),
		},
	}
	d.DrawString(t.Text)
	return nil
}

// fillPolygon fills a closed polygon with an anti-aliased rasterizer
// sized to the polygon's bounding box.
func (ctx *renderContext) fillPolygon(pts []geom.Point, c color.Color) {
	if len(pts) < 3 {
		return
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, minY = math.Min(minX, p.X), math.Min(minY, p.Y)
		maxX, maxY = math.Max(maxX, p.X), math.Max(maxY, p.Y)
	}
	box := image.Rect(int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX))+1, int(math.Ceil(maxY))+1)
	if box.Intersect(ctx.img.Bounds()).Empty() {
		return
	}

	r := vector.NewRasterizer(box.Dx(), box.Dy())
	r.DrawOp = draw.Over
	ox, oy := float64(box.Min.X), float64(box.Min.Y)
	r.MoveTo(float32(pts[0].X-ox), float32(pts[0].Y-oy))
	for _, p := range pts[1:] {
		r.LineTo(float32(p.X-ox), float32(p.Y-oy))
	}
	r.ClosePath()
	r.Draw(ctx.img, box, image.NewUniform(c), image.Point{})
}

func (ctx *renderContext) fillCircle(center geom.Point, radius float64, c color.Color) {
	pts := make([]geom.Point, 24)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(len(pts))
		pts[i] = geom.Pt(center.X+radius*math.Cos(a), center.Y+radius*math.Sin(a))
	}
	ctx.fillPolygon(pts, c)
}

// drawLine strokes a segment with the context line width.
func (ctx *renderContext) drawLine(a, b geom.Point, c color.Color) {
	img := ctx.img
	halfThick := ctx.lineWidth / 2

	dx := b.X - a.X
	dy := b.Y - a.Y
	dist := math.Sqrt(dx*dx + dy*dy)
	if dist < 1 {
		for ty := -halfThick; ty <= halfThick; ty++ {
			for tx := -halfThick; tx <= halfThick; tx++ {
				img.Set(int(a.X+tx), int(a.Y+ty), c)
			}
		}
		return
	}

	steps := math.Max(math.Abs(dx), math.Abs(dy))
	perpX := -dy / dist
	perpY := dx / dist

	for i := 0.0; i <= steps; i++ {
		t := i / steps
		cx := a.X + dx*t
		cy := a.Y + dy*t
		for offset := -halfThick; offset <= halfThick; offset += 0.5 {
			img.Set(int(cx+perpX*offset), int(cy+perpY*offset), c)
		}
	}
}
