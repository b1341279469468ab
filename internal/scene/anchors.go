package scene

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fabriziosardo/AR-Project/internal/geom"
	"github.com/fabriziosardo/AR-Project/internal/lifecycle"
)

// ErrUnknownAnchor is returned when releasing an anchor the room does not
// hold.
var ErrUnknownAnchor = errors.New("unknown anchor")

// AnchorOptions simulates the behaviour of a real anchor subsystem.
type AnchorOptions struct {
	// Latency delays every CreateAnchor call.
	Latency time.Duration
	// Fail, when set, is returned by every CreateAnchor call.
	Fail error
}

// Anchor is a fixed pose in the room.
type Anchor struct {
	id   string
	pose geom.Pose
}

func (a *Anchor) ID() string      { return a.id }
func (a *Anchor) Pose() geom.Pose { return a.pose }

// SetAnchorOptions changes latency and failure injection for later requests.
func (w *World) SetAnchorOptions(opts AnchorOptions) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.anchorOpts = opts
}

// CreateAnchor implements lifecycle.AnchorProvider.
func (w *World) CreateAnchor(ctx context.Context, pose geom.Pose) (lifecycle.Anchor, error) {
	w.mu.RLock()
	opts := w.anchorOpts
	w.mu.RUnlock()

	if opts.Latency > 0 {
		timer := time.NewTimer(opts.Latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if opts.Fail != nil {
		return nil, fmt.Errorf("create anchor: %w", opts.Fail)
	}

	a := &Anchor{id: uuid.NewString(), pose: pose}
	w.mu.Lock()
	w.anchors[a.id] = a
	w.mu.Unlock()
	w.log.Debug().Str("anchor", a.id).Msg("anchor created")
	return a, nil
}

// ReleaseAnchor implements lifecycle.AnchorProvider.
func (w *World) ReleaseAnchor(a lifecycle.Anchor) error {
	if a == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.anchors[a.ID()]; !ok {
		return fmt.Errorf("release %s: %w", a.ID(), ErrUnknownAnchor)
	}
	delete(w.anchors, a.ID())
	w.log.Debug().Str("anchor", a.ID()).Msg("anchor released")
	return nil
}

// AnchorIDs lists the anchors currently held.
func (w *World) AnchorIDs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ids := make([]string, 0, len(w.anchors))
	for id := range w.anchors {
		ids = append(ids, id)
	}
	return ids
}
