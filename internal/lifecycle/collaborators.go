package lifecycle

import (
	"context"

	"github.com/fabriziosardo/AR-Project/internal/artwork"
	"github.com/fabriziosardo/AR-Project/internal/geom"
	"github.com/fabriziosardo/AR-Project/internal/placement"
)

// Character is a spawned visual instance. The manager owns it exclusively
// and calls Destroy exactly once.
type Character interface {
	ID() string
	SetPose(pose geom.Pose)
	SetActive(active bool)
	// AttachTo parents the character to an anchor; from then on the anchor
	// owns its placement.
	AttachTo(anchor Anchor)
	Destroy()
}

// Spawner instantiates characters from named templates.
type Spawner interface {
	Spawn(template string, pose geom.Pose, scale float64) (Character, error)
}

// Anchor is a durable spatial reference maintained by the environment.
type Anchor interface {
	ID() string
	Pose() geom.Pose
}

// AnchorProvider creates and releases anchors. CreateAnchor may block; the
// manager never calls it from the tick.
type AnchorProvider interface {
	CreateAnchor(ctx context.Context, pose geom.Pose) (Anchor, error)
	ReleaseAnchor(anchor Anchor) error
}

// DialogueInitializer receives the artwork of each newly spawned character.
type DialogueInitializer interface {
	InitializeDialogue(characterID string, art artwork.Config)
}

// Placer computes character placements. *placement.Calculator implements it.
type Placer interface {
	ComputePlacement(pose geom.Pose, art artwork.Config) placement.Placement
}
