package sketchfile

import (
	"archive/zip"
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/sketch-toolkit/pkg/binding"
	"github.com/ha1tch/sketch-toolkit/pkg/element"
	"github.com/ha1tch/sketch-toolkit/pkg/geom"
	"github.com/ha1tch/sketch-toolkit/pkg/scene"
)

func boundScene() (*element.Shape, *element.Linear, *element.Text) {
	shape := element.NewShape(element.TypeRectangle, 40, 40, 20, 20)
	shape.BoundElementIDs = []string{"arrow-1"}
	arrow := element.NewLinear(element.TypeArrow, geom.Pt(0, 0), geom.Pt(50, 50))
	arrow.ID = "arrow-1"
	arrow.EndBinding = &element.Binding{ElementID: shape.ID, FocusPoint: geom.Pt(50, 50), Gap: 14.142}
	label := element.NewText(0, 70, "a < b", 16)
	return shape, arrow, label
}

func TestJSONRoundTrip(t *testing.T) {
	shape, arrow, label := boundScene()
	doc := NewDocument(scene.New(shape, arrow, label), 1.5)

	data, err := ToJSON(doc, false)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"sketch"`)
	assert.Contains(t, string(data), `"version":2`)
	assert.Contains(t, string(data), `"focusPoint":[50,50]`)

	got, err := ParseJSON(data)
	require.NoError(t, err)
	require.Len(t, got.Elements, 3)
	assert.Equal(t, 1.5, got.Zoom)
	assert.Equal(t, DefaultSource, got.Source)

	assert.Equal(t, shape, got.Elements[0])
	assert.Equal(t, arrow, got.Elements[1])
	assert.Equal(t, label, got.Elements[2])
}

func TestParseJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		is   error
	}{
		{"wrong document type", `{"type":"other","elements":[]}`, ErrUnknownType},
		{"unknown element type", `{"type":"sketch","elements":[{"id":"x","type":"star"}]}`, ErrUnknownType},
		{"malformed", `{"type":`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tt.data))
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestParseJSONNormalisesNegativeSize(t *testing.T) {
	data := `{"type":"sketch","elements":[{"id":"e","type":"ellipse","x":100,"y":0,"width":-100,"height":100}]}`

	doc, err := ParseJSON([]byte(data))
	require.NoError(t, err)
	require.Len(t, doc.Elements, 1)
	sh, ok := doc.Elements[0].(*element.Shape)
	require.True(t, ok)
	assert.Equal(t, 0.0, sh.X)
	assert.Equal(t, 100.0, sh.Width)

	s := scene.New(doc.Elements...)
	state := scene.DefaultAppState()
	for _, p := range []geom.Point{geom.Pt(50, 0), geom.Pt(0, 50)} {
		got := binding.FindBoundTarget(s, state, p)
		require.NotNil(t, got, "point %v", p)
		assert.Equal(t, "e", got.Common().ID)
	}

	assert.Len(t, sh.IntersectLine(geom.Pt(-100, 50), geom.Pt(50, 50)), 2)
}

func TestDocumentAppState(t *testing.T) {
	doc := &Document{Zoom: 2}
	st := doc.AppState()
	assert.Equal(t, 2.0, st.Zoom)
	assert.Equal(t, element.DefaultTolerance(), st.Tolerance)

	doc.Settings = &Settings{Binding: &BindingSettings{MaxGap: 40}}
	st = doc.AppState()
	assert.Equal(t, 40.0, st.Tolerance.MaxGap)
	assert.Equal(t, 15.0, st.Tolerance.MinGap)

	assert.Equal(t, 1.0, (&Document{}).AppState().Zoom)
}

func TestSketchArchive(t *testing.T) {
	shape, arrow, label := boundScene()
	doc := NewDocument(scene.New(shape, arrow, label), 1)
	doc.Settings = &Settings{Binding: &BindingSettings{MinGap: 5, Ratio: 0.1}}

	var buf bytes.Buffer
	require.NoError(t, WriteSketch(&buf, doc))

	got, err := ReadSketchBytes(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, got.Elements, 3)
	require.NotNil(t, got.Settings)
	assert.Equal(t, 5.0, got.Settings.Binding.MinGap)
	assert.Equal(t, 0.1, got.Settings.Binding.Ratio)
	assert.Equal(t, arrow, got.Elements[1])
}

func TestSketchArchiveWithoutScene(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("notes.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = ReadSketchBytes(buf.Bytes())
	assert.ErrorIs(t, err, ErrNoScene)
}

func TestLoadSaveByExtension(t *testing.T) {
	dir := t.TempDir()
	shape, arrow, label := boundScene()
	doc := NewDocument(scene.New(shape, arrow, label), 1)

	for _, name := range []string{"doc.json", "doc.sketch", "DOC.SKETCH"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, Save(path, doc))
			got, err := Load(path)
			require.NoError(t, err)
			assert.Len(t, got.Elements, 3)
		})
	}

	assert.ErrorIs(t, Save(filepath.Join(dir, "doc.txt"), doc), ErrUnsupportedFormat)
	_, err := Load(filepath.Join(dir, "doc.txt"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOutline(t *testing.T) {
	rect := element.NewShape(element.TypeRectangle, 0, 0, 10, 20)
	assert.Equal(t, []geom.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 20}, {X: 0, Y: 20}}, Outline(rect))

	ellipse := element.NewShape(element.TypeEllipse, 0, 0, 10, 20)
	pts := Outline(ellipse)
	require.Len(t, pts, ellipseSegments)
	assert.InDelta(t, 10, pts[0].X, 1e-9)
	assert.InDelta(t, 10, pts[0].Y, 1e-9)
}

func TestFitViewport(t *testing.T) {
	e := newExtent()
	e.add(geom.Pt(0, 0), geom.Pt(100, 50))

	v := fitViewport(e, 220, 220, 10)
	assert.Equal(t, 2.0, v.scale)
	assert.Equal(t, geom.Pt(10, 60), v.apply(geom.Pt(0, 0)))
	assert.Equal(t, geom.Pt(210, 160), v.apply(geom.Pt(100, 50)))

	assert.Equal(t, viewport{scale: 1}, fitViewport(newExtent(), 100, 100, 0))
}

func TestRenderPNG(t *testing.T) {
	shape, arrow, label := boundScene()
	els := []element.Element{shape, arrow, label}

	opts := DefaultPNGOptions()
	opts.Width, opts.Height = 160, 120
	opts.ShowFocus = true

	var buf bytes.Buffer
	require.NoError(t, RenderPNG(els, &buf, opts))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 160, img.Bounds().Dx())
	assert.Equal(t, 120, img.Bounds().Dy())

	// Corners are background, something was drawn in between
	r, g, b, _ := img.At(0, 0).RGBA()
	assert.Greater(t, r&g&b, uint32(0xf000))

	drawn := false
	for y := 0; y < 120 && !drawn; y++ {
		for x := 0; x < 160; x++ {
			if r, _, _, _ := img.At(x, y).RGBA(); r < 0x8000 {
				drawn = true
				break
			}
		}
	}
	assert.True(t, drawn)

	assert.Error(t, RenderPNG(els, &buf, PNGOptions{}))
}

func TestGenerateSVG(t *testing.T) {
	shape, arrow, label := boundScene()
	deleted := element.NewShape(element.TypeEllipse, 0, 0, 5, 5)
	deleted.IsDeleted = true
	diamond := element.NewShape(element.TypeDiamond, 100, 0, 20, 20)
	diamond.Angle = 0.5

	opts := DefaultSVGOptions()
	opts.ShowFocus = true
	opts.Title = "demo"
	svg := GenerateSVG([]element.Element{shape, arrow, label, deleted, diamond}, opts)

	assert.True(t, strings.HasPrefix(svg, "<?xml"))
	assert.Contains(t, svg, `<rect id="`+shape.ID+`" fill="#e7f5ff" stroke="#1971c2"`)
	assert.Contains(t, svg, `points="0,0 50,50"`)
	assert.Contains(t, svg, `marker-end="url(#arrowhead)"`)
	assert.Contains(t, svg, `<circle class="focus" cx="50" cy="50"`)
	assert.Contains(t, svg, "a &lt; b")
	assert.Contains(t, svg, `points="110,0 120,10 110,20 100,10"`)
	assert.Contains(t, svg, `transform="rotate(28.65 110 10)"`)
	assert.Contains(t, svg, "<title>demo</title>")
	assert.NotContains(t, svg, deleted.ID)
}

func TestGenerateSVGViewBox(t *testing.T) {
	shape, arrow, label := boundScene()
	svg := GenerateSVG([]element.Element{shape, arrow, label}, SVGOptions{Padding: 20})
	assert.Contains(t, svg, `width="1024" height="768" viewBox="-20 -20 100 130"`)

	empty := GenerateSVG(nil, SVGOptions{})
	assert.Contains(t, empty, `viewBox="0 0 100 100"`)
}

func TestNum(t *testing.T) {
	assert.Equal(t, "0", num(0))
	assert.Equal(t, "0", num(-0.001))
	assert.Equal(t, "100", num(100))
	assert.Equal(t, "1.5", num(1.5))
	assert.Equal(t, "3.14", num(3.14159))
}
