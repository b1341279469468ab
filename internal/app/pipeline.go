package app

import (
	"time"

	"github.com/fabriziosardo/AR-Project/internal/lifecycle"
	"github.com/fabriziosardo/AR-Project/internal/store"
)

// runPipeline is the frame loop. It is the only goroutine that hands
// batches to the lifecycle manager.
//
// Pipeline logic, once per frame:
// 1. Step attached replay sources
// 2. Apply every queued tracking batch in arrival order
// 3. Apply anchor requests that completed since the last frame
func (a *App) runPipeline(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.config.Settings.FrameInterval())
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			a.frame()
		}
	}
}

// frame runs one iteration of the loop.
func (a *App) frame() {
	a.mu.RLock()
	steppers := append([]stepper(nil), a.steppers...)
	enabled := a.enabled
	a.mu.RUnlock()

	if enabled {
		for _, s := range steppers {
			s.Step()
		}
	}

	var batches uint64
drain:
	for {
		select {
		case b := <-a.batches:
			batches++
			a.frames.Publish(b)
		default:
			break drain
		}
	}

	completed := a.manager.Tick()

	a.mu.Lock()
	a.stats.Frames++
	a.stats.Batches += batches
	a.mu.Unlock()

	if completed > 0 {
		a.log.Debug().Int("completed", completed).Msg("anchor requests applied")
	}
}

// onEvent reacts to lifecycle events: it keeps dialogue in step with the
// characters, records anchoring outcomes and updates the counters.
func (a *App) onEvent(ev lifecycle.Event) {
	switch ev.Kind {
	case lifecycle.EventSpawned:
		a.mu.Lock()
		a.stats.Spawned++
		a.stats.LastArtwork = ev.Artwork
		fn := a.onSpawn
		a.mu.Unlock()
		if fn != nil {
			fn(ev.Artwork)
		}
		return

	case lifecycle.EventRemoved:
		a.dialogue.Release(ev.CharacterID)

	case lifecycle.EventAnchored:
		a.mu.Lock()
		a.stats.Anchored++
		a.mu.Unlock()
	}

	if a.config.Store == nil {
		return
	}
	entry := &store.AnchorEvent{
		Kind:        string(ev.Kind),
		EntityID:    string(ev.Entity),
		Artwork:     ev.Artwork,
		CharacterID: ev.CharacterID,
		AnchorID:    ev.AnchorID,
		CreatedAt:   ev.At,
	}
	if ev.Err != nil {
		entry.Error = ev.Err.Error()
	}
	if err := a.config.Store.AnchorLog().Append(entry); err != nil {
		a.log.Warn().Err(err).Str("entity", entry.EntityID).Msg("failed to record anchor event")
	}
}
