package lifecycle

import (
	"time"

	"github.com/fabriziosardo/AR-Project/internal/tracking"
)

// EventKind names a lifecycle transition.
type EventKind string

const (
	EventSpawned         EventKind = "spawned"
	EventAnchorRequested EventKind = "anchor_requested"
	EventAnchored        EventKind = "anchored"
	EventAnchorFailed    EventKind = "anchor_failed"
	EventAnchorDiscarded EventKind = "anchor_discarded"
	EventDetached        EventKind = "detached"
	EventRemoved         EventKind = "removed"
)

// Event reports a transition of one entity.
type Event struct {
	Kind        EventKind
	Entity      tracking.EntityID
	Artwork     string
	CharacterID string
	AnchorID    string
	Err         error
	At          time.Time
}

// Listener is called after each batch, tick or teardown with the events it
// produced, outside the manager's lock.
type Listener func(Event)
