// Package tracking defines the boundary between the image tracking subsystem
// and the rest of the guide: tracking lifecycle events, the quality of a
// tracked image and the sources that deliver them once per frame.
package tracking

import (
	"fmt"
	"strings"

	"github.com/fabriziosardo/AR-Project/internal/geom"
)

// EntityID identifies one physical image instance for as long as the
// tracking subsystem keeps it.
type EntityID string

// Quality is the tracking state reported for an image.
type Quality int

const (
	// QualityNone means the image is no longer being tracked.
	QualityNone Quality = iota
	// QualityLimited means the image is tracked but its pose is unreliable.
	QualityLimited
	// QualityFull means the image is tracked with a reliable pose.
	QualityFull
)

// String returns the lowercase name of the quality.
func (q Quality) String() string {
	switch q {
	case QualityNone:
		return "none"
	case QualityLimited:
		return "limited"
	case QualityFull:
		return "full"
	default:
		return fmt.Sprintf("quality(%d)", int(q))
	}
}

// ParseQuality parses a quality name as produced by String. "lost" and
// "degraded" are accepted as aliases.
func ParseQuality(s string) (Quality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "lost", "":
		return QualityNone, nil
	case "limited", "degraded":
		return QualityLimited, nil
	case "full", "tracking":
		return QualityFull, nil
	default:
		return QualityNone, fmt.Errorf("unknown tracking quality %q", s)
	}
}

// Observation is the latest known state of one tracked image.
type Observation struct {
	ID             EntityID
	ReferenceImage string
	Pose           geom.Pose
	Quality        Quality
}

// Batch is the set of changes delivered for a single frame. Consumers must
// process Added, then Updated, then Removed.
type Batch struct {
	Added   []Observation
	Updated []Observation
	Removed []EntityID
}

// Empty reports whether the batch carries no changes.
func (b Batch) Empty() bool {
	return len(b.Added) == 0 && len(b.Updated) == 0 && len(b.Removed) == 0
}

// Source delivers tracking batches. Subscribe registers fn for every batch
// until the returned function is called.
type Source interface {
	Subscribe(fn func(Batch)) (unsubscribe func())
}
