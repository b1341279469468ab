package lifecycle

import (
	"errors"

	"github.com/fabriziosardo/AR-Project/internal/placement"
	"github.com/fabriziosardo/AR-Project/internal/tracking"
)

var errNoAnchor = errors.New("anchor provider returned no anchor")

// requestAnchor asks the provider for an anchor at the current placement.
// The result is tagged with the entity's id and generation and applied by
// the next Tick.
func (m *Manager) requestAnchor(e *entity, pl placement.Placement) {
	e.pending = true
	e.attempts++

	id, gen, pose := e.id, e.gen, pl.Pose()
	m.log.Info().
		Str("entity", string(id)).
		Int("attempt", e.attempts).
		Dur("stable_for", m.now().Sub(e.stableSince)).
		Msg("requesting anchor")
	m.emit(EventAnchorRequested, e, "", nil)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		a, err := m.anchors.CreateAnchor(m.ctx, pose)
		if err == nil && a == nil {
			err = errNoAnchor
		}
		res := anchorResult{id: id, gen: gen, anchor: a, err: err}

		select {
		case <-m.ctx.Done():
			m.releaseAnchor(a, id)
			return
		default:
		}

		select {
		case m.results <- res:
		case <-m.ctx.Done():
			m.releaseAnchor(a, id)
		}
	}()
}

// applyAnchor completes an anchor request. Results for entities that were
// removed or re-spawned in the meantime are released straight away.
func (m *Manager) applyAnchor(r anchorResult) {
	e, ok := m.entities[r.id]
	if !ok || e.gen != r.gen || !e.pending {
		if r.anchor != nil {
			m.log.Info().Str("entity", string(r.id)).Str("anchor", r.anchor.ID()).Msg("anchor completed for a removed character, releasing")
			m.releaseAnchor(r.anchor, r.id)
			m.events = append(m.events, Event{
				Kind:     EventAnchorDiscarded,
				Entity:   r.id,
				AnchorID: r.anchor.ID(),
				At:       m.now(),
			})
		}
		return
	}

	e.pending = false
	if r.err != nil {
		m.log.Warn().Err(r.err).Str("entity", string(r.id)).Int("attempt", e.attempts).Msg("anchor creation failed, character stays unanchored")
		m.emit(EventAnchorFailed, e, "", r.err)
		return
	}

	e.anchor = r.anchor
	e.anchored = true
	e.character.AttachTo(r.anchor)
	m.setVisible(e, true)

	m.log.Info().Str("entity", string(r.id)).Str("anchor", r.anchor.ID()).Msg("character anchored")
	m.emit(EventAnchored, e, r.anchor.ID(), nil)
}

func (m *Manager) releaseAnchor(a Anchor, id tracking.EntityID) {
	if a == nil || m.anchors == nil {
		return
	}
	if err := m.anchors.ReleaseAnchor(a); err != nil {
		m.log.Warn().Err(err).Str("entity", string(id)).Str("anchor", a.ID()).Msg("anchor release failed")
	}
}
