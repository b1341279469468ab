package lifecycle

import (
	"time"

	"github.com/fabriziosardo/AR-Project/internal/artwork"
	"github.com/fabriziosardo/AR-Project/internal/placement"
	"github.com/fabriziosardo/AR-Project/internal/tracking"
)

// entity is the state of one character. It is only touched with the
// manager's lock held.
type entity struct {
	id  tracking.EntityID
	gen uint64 // distinguishes re-spawns under a reused id
	art artwork.Config

	character Character
	anchor    Anchor
	anchored  bool
	pending   bool
	attempts  int

	visible     bool
	quality     tracking.Quality
	spawnedAt   time.Time
	stableSince time.Time // zero unless tracking is currently full quality
	last        placement.Placement
}

func (e *entity) phase(detached bool) Phase {
	switch {
	case detached:
		return PhaseDetached
	case e.anchored:
		return PhaseAnchored
	case e.pending:
		return PhaseAnchoring
	default:
		return PhaseUnanchored
	}
}

func (e *entity) info(detached bool) EntityInfo {
	info := EntityInfo{
		ID:          e.id,
		Artwork:     e.art.ReferenceImage,
		Phase:       e.phase(detached),
		Visible:     e.visible,
		Quality:     e.quality,
		Attempts:    e.attempts,
		SpawnedAt:   e.spawnedAt,
		StableSince: e.stableSince,
		Position:    e.last.Position,
	}
	if e.character != nil {
		info.CharacterID = e.character.ID()
	}
	if e.anchor != nil {
		info.AnchorID = e.anchor.ID()
		info.Position = e.anchor.Pose().Position
	}
	return info
}

func (m *Manager) setVisible(e *entity, visible bool) {
	if e.visible == visible {
		return
	}
	e.visible = visible
	e.character.SetActive(visible)
}

// added spawns a character for a newly tracked image.
func (m *Manager) added(obs tracking.Observation) {
	if _, ok := m.entities[obs.ID]; ok {
		// The tracker re-announced an image we already follow.
		m.updated(obs)
		return
	}

	log := m.log.With().Str("entity", string(obs.ID)).Str("artwork", obs.ReferenceImage).Logger()

	if m.paused {
		log.Debug().Msg("paused, not spawning")
		return
	}

	art, ok := m.registry.Lookup(obs.ReferenceImage)
	if !ok {
		log.Info().Msg("unregistered reference image, ignoring")
		return
	}
	if art.Template == "" {
		log.Warn().Msg("artwork has no character template, skipping spawn")
		return
	}

	pl := m.placer.ComputePlacement(obs.Pose, art)
	scale := art.Scale
	if scale <= 0 {
		scale = 1
	}
	ch, err := m.spawner.Spawn(art.Template, pl.Pose(), scale)
	if err != nil {
		log.Warn().Err(err).Str("template", art.Template).Msg("character spawn failed")
		return
	}

	now := m.now()
	m.nextGen++
	e := &entity{
		id:        obs.ID,
		gen:       m.nextGen,
		art:       art,
		character: ch,
		quality:   obs.Quality,
		spawnedAt: now,
		last:      pl,
		visible:   true,
	}
	if obs.Quality == tracking.QualityFull {
		e.stableSince = now
	}
	m.setVisible(e, obs.Quality == tracking.QualityFull)
	m.entities[obs.ID] = e

	if m.dialogue != nil {
		m.dialogue.InitializeDialogue(ch.ID(), art)
	}

	log.Info().
		Str("character", ch.ID()).
		Str("ground", pl.Ground.String()).
		Msg("character spawned")
	m.emit(EventSpawned, e, "", nil)
}

// updated re-places an unanchored character or hides it while tracking is
// unreliable, and requests an anchor once tracking has been stable. While
// paused only the visibility follows tracking quality.
func (m *Manager) updated(obs tracking.Observation) {
	e, ok := m.entities[obs.ID]
	if !ok {
		m.log.Trace().Str("entity", string(obs.ID)).Msg("update for unmanaged entity")
		return
	}
	e.quality = obs.Quality

	if e.anchored {
		return
	}

	if obs.Quality != tracking.QualityFull {
		e.stableSince = time.Time{}
		m.setVisible(e, false)
		return
	}

	if m.paused {
		// The character shows again where it last stood. Placement and
		// anchoring wait for the pause to end.
		m.setVisible(e, true)
		return
	}

	now := m.now()
	if e.stableSince.IsZero() {
		e.stableSince = now
	}

	pl := m.placer.ComputePlacement(obs.Pose, e.art)
	e.character.SetPose(pl.Pose())
	e.last = pl
	m.setVisible(e, true)

	if m.shouldAnchor(e, now) {
		m.requestAnchor(e, pl)
	}
}

func (m *Manager) shouldAnchor(e *entity, now time.Time) bool {
	if !m.cfg.AnchorsEnabled || e.pending || e.anchored {
		return false
	}
	if e.attempts >= m.cfg.MaxAnchorAttempts {
		return false
	}
	return now.Sub(e.stableSince) >= m.cfg.StabilityThreshold
}

// removed handles the end of tracking for an image. Anchored characters
// stay in the room; the rest are destroyed.
func (m *Manager) removed(id tracking.EntityID) {
	e, ok := m.entities[id]
	if !ok {
		return
	}
	delete(m.entities, id)

	if e.anchored {
		m.detached = append(m.detached, e)
		m.log.Info().Str("entity", string(id)).Str("anchor", e.anchor.ID()).Msg("tracking lost, character stays anchored")
		m.emit(EventDetached, e, e.anchor.ID(), nil)
		return
	}

	m.destroy(e)
}

// destroy releases everything an entity owns.
func (m *Manager) destroy(e *entity) {
	anchorID := ""
	if e.anchor != nil {
		anchorID = e.anchor.ID()
		m.releaseAnchor(e.anchor, e.id)
		e.anchor = nil
		e.anchored = false
	}
	e.character.Destroy()
	e.visible = false
	m.log.Debug().Str("entity", string(e.id)).Msg("character destroyed")
	m.emit(EventRemoved, e, anchorID, nil)
}
