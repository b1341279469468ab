package refimage

import (
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/fabriziosardo/AR-Project/internal/artwork"
)

// Image is a checked reference image.
type Image struct {
	Name           string  `json:"name"`
	Path           string  `json:"path"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	EdgeDensity    float64 `json:"edge_density"`
	PhysicalWidth  float64 `json:"physical_width,omitempty"`
	PhysicalHeight float64 `json:"physical_height,omitempty"`
	Problem        string  `json:"problem,omitempty"`
}

// Library is the set of reference images behind the registered artworks.
type Library struct {
	images map[string]Image
}

// LoadLibrary checks the image of every artwork that names one. Relative
// paths resolve against baseDir. Problems are logged and recorded on the
// image; they never stop the load.
func LoadLibrary(baseDir string, arts []artwork.Config, a *Analyzer, logger zerolog.Logger) *Library {
	lib := &Library{images: make(map[string]Image)}
	for _, art := range arts {
		if art.ImagePath == "" || art.ReferenceImage == "" {
			continue
		}
		path := art.ImagePath
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}

		img := Image{Name: art.ReferenceImage, Path: path, PhysicalWidth: art.PhysicalWidth}
		r, err := a.CheckFile(path)
		img.Width, img.Height, img.EdgeDensity = r.Width, r.Height, r.EdgeDensity
		if art.PhysicalWidth > 0 {
			img.PhysicalHeight = art.PhysicalWidth * r.Aspect()
		}
		if err != nil {
			img.Problem = err.Error()
			logger.Warn().Err(err).Str("artwork", art.ReferenceImage).Str("path", path).Msg("reference image check failed")
		} else {
			logger.Debug().
				Str("artwork", art.ReferenceImage).
				Int("width", r.Width).
				Int("height", r.Height).
				Float64("edge_density", r.EdgeDensity).
				Msg("reference image ok")
		}
		lib.images[art.ReferenceImage] = img
	}
	return lib
}

// Lookup returns the image registered for name.
func (l *Library) Lookup(name string) (Image, bool) {
	if l == nil {
		return Image{}, false
	}
	img, ok := l.images[name]
	return img, ok
}

// Images returns every image sorted by name.
func (l *Library) Images() []Image {
	if l == nil {
		return nil
	}
	out := make([]Image, 0, len(l.images))
	for _, img := range l.images {
		out = append(out, img)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Problems counts the images that failed their check.
func (l *Library) Problems() int {
	n := 0
	for _, img := range l.Images() {
		if img.Problem != "" {
			n++
		}
	}
	return n
}
