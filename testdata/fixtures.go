// Package testdata embeds recorded tracking sessions and reference images
// shared by tests.
package testdata

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"github.com/fabriziosardo/AR-Project/internal/tracking"
)

//go:embed recordings/*.json images/*.png
var fixturesFS embed.FS

// LoadRecording loads a recorded tracking session by name, without the
// .json extension.
func LoadRecording(name string) (*tracking.Recording, error) {
	data, err := fixturesFS.ReadFile("recordings/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("load recording %s: %w", name, err)
	}
	var rec tracking.Recording
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse recording %s: %w", name, err)
	}
	return &rec, nil
}

// LoadImage decodes an embedded reference image. The caller closes the Mat.
func LoadImage(name string) (*gocv.Mat, error) {
	data, err := fixturesFS.ReadFile("images/" + name)
	if err != nil {
		return nil, fmt.Errorf("load image %s: %w", name, err)
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", name, err)
	}

	return &mat, nil
}

// CopyImages writes the embedded reference images into dir so code that
// reads from disk can find them.
func CopyImages(dir string) error {
	entries, err := fixturesFS.ReadDir("images")
	if err != nil {
		return err
	}
	for _, entry := range entries {
		data, err := fixturesFS.ReadFile("images/" + entry.Name())
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, entry.Name()), data, 0644); err != nil {
			return fmt.Errorf("copy image %s: %w", entry.Name(), err)
		}
	}
	return nil
}
