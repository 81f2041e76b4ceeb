package sketchfile

import (
	"archive/zip"
	"bytes"
	"testing"
)

// FuzzParseJSON tests the JSON parser with arbitrary input.
// Run with: go test -fuzz=FuzzParseJSON -fuzztime=30s ./pkg/sketchfile/
func FuzzParseJSON(f *testing.F) {
	f.Add([]byte(`{"type":"sketch","version":2,"elements":[]}`))
	f.Add([]byte(`{"type":"sketch","version":2,"elements":[{"id":"a","type":"rectangle","x":0,"y":0,"width":10,"height":10}]}`))
	f.Add([]byte(`{"type":"sketch","version":2,"elements":[{"id":"l","type":"arrow","points":[[0,0],[5,5]],"endBinding":{"elementId":"a","focusPoint":[1,1],"gap":2}}],"appState":{"zoom":2}}`))
	f.Add([]byte(`{"type":"sketch","elements":[{"id":"t","type":"text","text":"hi","fontSize":16}]}`))

	// Edge cases
	f.Add([]byte(`{}`))
	f.Add([]byte(`[]`))
	f.Add([]byte(`null`))
	f.Add([]byte(``))
	f.Add([]byte(`{"type":"sketch","elements":[{"type":"hexagon"}]}`))
	f.Add([]byte(`{"type":"sketch","elements":[{"type":"line","points":[[1]]}]}`))
	f.Add([]byte(`{"type":"sketch","elements":[{"type":"line","points":[]}]}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		doc, err := ParseJSON(data)
		if err != nil || doc == nil {
			return
		}
		// A decoded document must survive checking, encoding and export
		_ = doc.Scene().Check()
		_, _ = ToJSON(doc, false)
		_ = GenerateSVG(doc.Elements, DefaultSVGOptions())
	})
}

// FuzzReadSketch tests the archive reader with arbitrary bytes.
func FuzzReadSketch(f *testing.F) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create(sceneEntry)
	w.Write([]byte(`{"type":"sketch","version":2,"elements":[]}`))
	w, _ = zw.Create(settingsEntry)
	w.Write([]byte("binding:\n  min_gap: 5\n"))
	zw.Close()
	f.Add(buf.Bytes())

	f.Add([]byte{})
	f.Add([]byte("PK\x03\x04"))
	f.Add([]byte("not a zip"))

	f.Fuzz(func(t *testing.T, data []byte) {
		doc, err := ReadSketchBytes(data)
		if err == nil && doc != nil {
			_ = doc.AppState()
		}
	})
}
