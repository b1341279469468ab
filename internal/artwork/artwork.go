// Package artwork holds the per-artwork configuration of the guide and the
// registry that maps reference image names to it.
package artwork

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/fabriziosardo/AR-Project/internal/geom"
)

// Config describes one artwork. It is never mutated after the registry is
// built.
type Config struct {
	// ReferenceImage is the name the tracking subsystem reports for the
	// printed artwork. It must be unique across the registry.
	ReferenceImage string
	// Template names the character model to spawn.
	Template string
	// Offset is authored as if the image lay flat: X along the image's
	// right, Y away from its surface and Z towards its top edge.
	Offset geom.Vec
	// Scale is applied uniformly to the spawned character.
	Scale float64
	// DistanceFromWall pushes the character out along the image normal
	// before the ground is resolved.
	DistanceFromWall float64
	Dialogue         []string
	Description      string

	// ImagePath and PhysicalWidth describe the reference image file used to
	// build the tracking library.
	ImagePath     string
	PhysicalWidth float64
}

// Registry maps reference image names to artwork configurations. It is safe
// for concurrent reads.
type Registry struct {
	byName map[string]Config
}

// BuildLookup builds a registry from configs. Entries with an empty
// reference image name are skipped; a later entry with the same name
// replaces the earlier one.
func BuildLookup(configs []Config, logger zerolog.Logger) *Registry {
	r := &Registry{byName: make(map[string]Config, len(configs))}

	for i, c := range configs {
		if c.ReferenceImage == "" {
			logger.Warn().Int("index", i).Msg("skipping artwork without reference image name")
			continue
		}
		if _, dup := r.byName[c.ReferenceImage]; dup {
			logger.Warn().Str("artwork", c.ReferenceImage).Int("index", i).Msg("duplicate reference image, later entry wins")
		}
		c.Dialogue = append([]string(nil), c.Dialogue...)
		r.byName[c.ReferenceImage] = c
	}

	logger.Info().Int("artworks", len(r.byName)).Msg("artwork registry built")
	return r
}

// Lookup returns the configuration registered for name.
func (r *Registry) Lookup(name string) (Config, bool) {
	if r == nil {
		return Config{}, false
	}
	c, ok := r.byName[name]
	return c, ok
}

// Len returns the number of registered artworks.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byName)
}

// Names returns the registered reference image names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ValidateUnique returns an error naming the first reference image that
// appears more than once. It is used when duplicates should stop startup
// instead of silently replacing each other.
func ValidateUnique(configs []Config) error {
	seen := make(map[string]int, len(configs))
	for i, c := range configs {
		if c.ReferenceImage == "" {
			continue
		}
		if prev, ok := seen[c.ReferenceImage]; ok {
			return fmt.Errorf("reference image %q defined at %d and %d", c.ReferenceImage, prev, i)
		}
		seen[c.ReferenceImage] = i
	}
	return nil
}
