package sketchfile

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ha1tch/sketch-toolkit/pkg/element"
)

// Archive entry names.
const (
	sceneEntry    = "scene.json"
	settingsEntry = "settings.yaml"
)

// ErrUnsupportedFormat is returned by Load and Save for unknown extensions.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Settings is the per-document settings.yaml content.
type Settings struct {
	Binding *BindingSettings `yaml:"binding,omitempty"`
}

// BindingSettings overrides the binding tolerance for one document.
// Zero fields keep the editor's value.
type BindingSettings struct {
	MinGap float64 `yaml:"min_gap,omitempty"`
	MaxGap float64 `yaml:"max_gap,omitempty"`
	Ratio  float64 `yaml:"ratio,omitempty"`
}

// Tolerance applies the overrides to base.
func (s *Settings) Tolerance(base element.Tolerance) element.Tolerance {
	if s == nil || s.Binding == nil {
		return base
	}
	if s.Binding.MinGap > 0 {
		base.MinGap = s.Binding.MinGap
	}
	if s.Binding.MaxGap > 0 {
		base.MaxGap = s.Binding.MaxGap
	}
	if s.Binding.Ratio > 0 {
		base.Ratio = s.Binding.Ratio
	}
	return base
}

// WriteSketchFile writes a document to a .sketch file.
func WriteSketchFile(path string, d *Document) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteSketch(file, d); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteSketch writes a document to w in .sketch format.
func WriteSketch(w io.Writer, d *Document) error {
	zw := zip.NewWriter(w)

	data, err := ToJSON(d, true)
	if err != nil {
		return fmt.Errorf("encode scene: %w", err)
	}
	sw, err := zw.Create(sceneEntry)
	if err != nil {
		return err
	}
	if _, err := sw.Write(data); err != nil {
		return err
	}

	if d.Settings != nil {
		settings, err := yaml.Marshal(d.Settings)
		if err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}
		yw, err := zw.Create(settingsEntry)
		if err != nil {
			return err
		}
		if _, err := yw.Write(settings); err != nil {
			return err
		}
	}

	return zw.Close()
}

// ReadSketchFile reads a document from a .sketch file.
func ReadSketchFile(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	return ReadSketch(file, info.Size())
}

// ReadSketch reads a document from r in .sketch format.
func ReadSketch(r io.ReaderAt, size int64) (*Document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	var sceneData, settingsData []byte
	for _, f := range zr.File {
		if f.Name != sceneEntry && f.Name != settingsEntry {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		if f.Name == sceneEntry {
			sceneData = data
		} else {
			settingsData = data
		}
	}

	if sceneData == nil {
		return nil, ErrNoScene
	}
	doc, err := ParseJSON(sceneData)
	if err != nil {
		return nil, err
	}

	if settingsData != nil {
		var s Settings
		if err := yaml.Unmarshal(settingsData, &s); err != nil {
			return nil, fmt.Errorf("decode settings: %w", err)
		}
		doc.Settings = &s
	}
	return doc, nil
}

// ReadSketchBytes reads a document from bytes in .sketch format.
func ReadSketchBytes(data []byte) (*Document, error) {
	return ReadSketch(bytes.NewReader(data), int64(len(data)))
}

// Load reads a .json or .sketch document, chosen by extension.
func Load(path string) (*Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return ParseJSON(data)
	case ".sketch":
		return ReadSketchFile(path)
	}
	return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
}

// Save writes a .json or .sketch document, chosen by extension. Settings are
// only kept by the .sketch format.
func Save(path string, d *Document) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err := ToJSON(d, true)
		if err != nil {
			return err
		}
		return os.WriteFile(path, data, 0644)
	case ".sketch":
		return WriteSketchFile(path, d)
	}
	return fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
}
