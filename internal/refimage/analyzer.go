// Package refimage checks the reference images that the tracker learns
// artworks from. An image that is too small or has too little texture will
// be detected late or not at all, so problems are reported at startup.
package refimage

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

var (
	ErrUnreadable  = errors.New("reference image unreadable")
	ErrTooSmall    = errors.New("reference image too small")
	ErrFeatureless = errors.New("reference image has too little texture")
)

// Edge detection constants
const (
	// BlurSize is the Gaussian kernel applied before edge detection
	BlurSize = 5
	// CannyLow and CannyHigh are the hysteresis thresholds
	CannyLow  = 50
	CannyHigh = 150
	// DefaultMinSide is the smallest accepted width or height in pixels
	DefaultMinSide = 300
	// DefaultMinEdgeDensity is the percentage of edge pixels below which
	// an image is considered featureless
	DefaultMinEdgeDensity = 2.0
)

// Report describes one analyzed image.
type Report struct {
	Width       int
	Height      int
	EdgeDensity float64 // percentage of pixels on an edge
}

// Aspect returns height over width.
func (r Report) Aspect() float64 {
	if r.Width == 0 {
		return 0
	}
	return float64(r.Height) / float64(r.Width)
}

// Analyzer measures how trackable an image is.
type Analyzer struct {
	minSide        int
	minEdgeDensity float64
	mu             sync.Mutex
}

// NewAnalyzer creates an Analyzer. Non-positive limits take the defaults.
func NewAnalyzer(minSide int, minEdgeDensity float64) *Analyzer {
	if minSide <= 0 {
		minSide = DefaultMinSide
	}
	if minEdgeDensity <= 0 {
		minEdgeDensity = DefaultMinEdgeDensity
	}
	return &Analyzer{minSide: minSide, minEdgeDensity: minEdgeDensity}
}

// Analyze measures a decoded image.
//
// Algorithm:
// 1. Convert to grayscale
// 2. Apply Gaussian blur to drop sensor noise
// 3. Run Canny edge detection
// 4. Count edge pixels / total pixels = edge density
func (a *Analyzer) Analyze(img *gocv.Mat) (Report, error) {
	if img == nil || img.Empty() {
		return Report{}, ErrUnreadable
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if img.Channels() > 1 {
		gocv.CvtColor(*img, &gray, gocv.ColorBGRToGray)
	} else {
		img.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: BlurSize, Y: BlurSize}, 0, 0, gocv.BorderDefault)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blurred, &edges, CannyLow, CannyHigh)

	total := edges.Rows() * edges.Cols()
	r := Report{Width: img.Cols(), Height: img.Rows()}
	if total > 0 {
		r.EdgeDensity = float64(gocv.CountNonZero(edges)) / float64(total) * 100.0
	}
	return r, nil
}

// Check analyzes img and applies the size and texture limits.
func (a *Analyzer) Check(img *gocv.Mat) (Report, error) {
	r, err := a.Analyze(img)
	if err != nil {
		return r, err
	}

	a.mu.Lock()
	minSide, minDensity := a.minSide, a.minEdgeDensity
	a.mu.Unlock()

	if r.Width < minSide || r.Height < minSide {
		return r, fmt.Errorf("%dx%d, need %d px per side: %w", r.Width, r.Height, minSide, ErrTooSmall)
	}
	if r.EdgeDensity < minDensity {
		return r, fmt.Errorf("edge density %.2f%% below %.2f%%: %w", r.EdgeDensity, minDensity, ErrFeatureless)
	}
	return r, nil
}

// CheckFile decodes and checks the image at path.
func (a *Analyzer) CheckFile(path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("read %s: %w", path, err)
	}
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return Report{}, fmt.Errorf("decode %s: %v: %w", path, err, ErrUnreadable)
	}
	defer mat.Close()
	return a.Check(&mat)
}

// SetMinEdgeDensity changes the texture limit. Values less than or equal
// to 0 are ignored.
func (a *Analyzer) SetMinEdgeDensity(density float64) {
	if density <= 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.minEdgeDensity = density
}
