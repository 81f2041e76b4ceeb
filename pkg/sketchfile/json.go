// Package sketchfile reads and writes sketch documents and exports them as
// PNG or SVG.
//
// A document is JSON:
//
//	{"type":"sketch","version":2,"source":"...","elements":[...],"appState":{"zoom":1}}
//
// The .sketch format is a zip bundle holding scene.json and, optionally,
// settings.yaml with per-document binding settings.
package sketchfile

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ha1tch/sketch-toolkit/pkg/element"
	"github.com/ha1tch/sketch-toolkit/pkg/scene"
)

// Format identifiers.
const (
	DocumentType    = "sketch"
	DocumentVersion = 2
	DefaultSource   = "sketch-toolkit"
)

var (
	// ErrUnknownType is returned for documents or elements with an
	// unrecognised type tag.
	ErrUnknownType = errors.New("unknown type")
	// ErrNoScene is returned when an archive has no scene.json.
	ErrNoScene = errors.New("scene.json not found in archive")
)

// Document is a decoded sketch document.
type Document struct {
	Source   string
	Elements []element.Element
	Zoom     float64
	Settings *Settings // present when loaded from an archive that had one
}

// NewDocument wraps a scene's elements in a document.
func NewDocument(s *scene.Scene, zoom float64) *Document {
	return &Document{
		Source:   DefaultSource,
		Elements: s.Elements(),
		Zoom:     zoom,
	}
}

// Scene builds a scene from the document's elements.
func (d *Document) Scene() *scene.Scene {
	return scene.New(d.Elements...)
}

// AppState returns the binding state described by the document: its zoom
// and, when present, its tolerance settings.
func (d *Document) AppState() scene.AppState {
	st := scene.DefaultAppState()
	if d.Zoom > 0 {
		st.Zoom = d.Zoom
	}
	if d.Settings != nil {
		st.Tolerance = d.Settings.Tolerance(st.Tolerance)
	}
	return st
}

type jsonDocument struct {
	Type     string            `json:"type"`
	Version  int               `json:"version"`
	Source   string            `json:"source,omitempty"`
	Elements []json.RawMessage `json:"elements"`
	AppState jsonAppState      `json:"appState"`
}

type jsonAppState struct {
	Zoom float64 `json:"zoom,omitempty"`
}

// ParseJSON decodes a document. Each element is decoded into the variant
// named by its type tag.
func ParseJSON(data []byte) (*Document, error) {
	var j jsonDocument
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if j.Type != DocumentType {
		return nil, fmt.Errorf("document %q: %w", j.Type, ErrUnknownType)
	}

	doc := &Document{Source: j.Source, Zoom: j.AppState.Zoom}
	for i, raw := range j.Elements {
		el, err := decodeElement(raw)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		doc.Elements = append(doc.Elements, el)
	}
	return doc, nil
}

func decodeElement(raw json.RawMessage) (element.Element, error) {
	var tag struct {
		Type element.Type `json:"type"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, err
	}

	var el element.Element
	switch {
	case tag.Type.IsShape():
		el = &element.Shape{}
	case tag.Type.IsLinear():
		el = &element.Linear{}
	case tag.Type == element.TypeText:
		el = &element.Text{}
	default:
		return nil, fmt.Errorf("element %q: %w", tag.Type, ErrUnknownType)
	}
	if err := json.Unmarshal(raw, el); err != nil {
		return nil, err
	}
	if sh, ok := el.(*element.Shape); ok {
		sh.Normalize()
	}
	return el, nil
}

// ToJSON encodes a document.
func ToJSON(d *Document, pretty bool) ([]byte, error) {
	j := struct {
		Type     string            `json:"type"`
		Version  int               `json:"version"`
		Source   string            `json:"source,omitempty"`
		Elements []element.Element `json:"elements"`
		AppState jsonAppState      `json:"appState"`
	}{
		Type:     DocumentType,
		Version:  DocumentVersion,
		Source:   d.Source,
		Elements: d.Elements,
		AppState: jsonAppState{Zoom: d.Zoom},
	}
	if j.Elements == nil {
		j.Elements = []element.Element{}
	}

	if pretty {
		return json.MarshalIndent(j, "", "  ")
	}
	return json.Marshal(j)
}
