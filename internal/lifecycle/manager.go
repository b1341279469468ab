// Package lifecycle turns the stream of tracking events into live guide
// characters. Each tracked artwork gets one character that is re-placed on
// every update until tracking has been stable long enough, at which point
// the character is pinned to an environment anchor and stops following the
// image.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fabriziosardo/AR-Project/internal/artwork"
	"github.com/fabriziosardo/AR-Project/internal/geom"
	"github.com/fabriziosardo/AR-Project/internal/placement"
	"github.com/fabriziosardo/AR-Project/internal/tracking"
)

var (
	// ErrNoTrackingSource is returned by Attach when no source is given.
	// The manager disables itself in that case.
	ErrNoTrackingSource = errors.New("lifecycle: tracking source is required")
	// ErrClosed is returned when attaching a manager that was torn down.
	ErrClosed = errors.New("lifecycle: manager closed")
)

// resultBuffer bounds how many anchor completions can wait for a tick.
const resultBuffer = 64

// Config holds the stabilization settings.
type Config struct {
	// StabilityThreshold is how long an image must be tracked at full
	// quality without interruption before its character is anchored.
	StabilityThreshold time.Duration
	// AnchorsEnabled allows anchor promotion. Without it characters follow
	// their image for as long as it is tracked.
	AnchorsEnabled bool
	// MaxAnchorAttempts bounds anchor requests per entity. Zero means one.
	MaxAnchorAttempts int
}

// DefaultConfig returns a three second threshold with a single anchor
// attempt per entity.
func DefaultConfig() Config {
	return Config{
		StabilityThreshold: 3 * time.Second,
		AnchorsEnabled:     true,
		MaxAnchorAttempts:  1,
	}
}

// Deps are the collaborators of a Manager. Anchors and Dialogue are
// optional.
type Deps struct {
	Registry *artwork.Registry
	Placer   Placer
	Spawner  Spawner
	Anchors  AnchorProvider
	Dialogue DialogueInitializer
	Clock    func() time.Time
	Logger   zerolog.Logger
}

// Phase is the externally visible state of an entity.
type Phase string

const (
	PhaseUnanchored Phase = "unanchored"
	PhaseAnchoring  Phase = "anchoring"
	PhaseAnchored   Phase = "anchored"
	PhaseDetached   Phase = "detached"
)

// EntityInfo is a snapshot of one managed character.
type EntityInfo struct {
	ID          tracking.EntityID
	Artwork     string
	CharacterID string
	AnchorID    string
	Phase       Phase
	Visible     bool
	Quality     tracking.Quality
	Attempts    int
	SpawnedAt   time.Time
	StableSince time.Time
	Position    geom.Vec
}

type anchorResult struct {
	id     tracking.EntityID
	gen    uint64
	anchor Anchor
	err    error
}

// Manager owns the mapping from tracking identity to character state.
// HandleBatch and Tick are meant to be called from a single frame loop; the
// internal lock only makes Snapshot safe to call from other goroutines.
type Manager struct {
	cfg      Config
	registry *artwork.Registry
	placer   Placer
	spawner  Spawner
	anchors  AnchorProvider
	dialogue DialogueInitializer
	now      func() time.Time
	log      zerolog.Logger

	mu          sync.Mutex
	entities    map[tracking.EntityID]*entity
	detached    []*entity
	nextGen     uint64
	events      []Event
	listeners   []Listener
	disabled    bool
	paused      bool
	closed      bool
	unsubscribe func()

	results chan anchorResult
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a Manager. Registry, Placer and Spawner are required.
func New(cfg Config, deps Deps) (*Manager, error) {
	if deps.Registry == nil {
		return nil, fmt.Errorf("lifecycle: artwork registry is required")
	}
	if deps.Placer == nil {
		return nil, fmt.Errorf("lifecycle: placer is required")
	}
	if deps.Spawner == nil {
		return nil, fmt.Errorf("lifecycle: spawner is required")
	}
	if cfg.MaxAnchorAttempts <= 0 {
		cfg.MaxAnchorAttempts = 1
	}
	if cfg.StabilityThreshold < 0 {
		cfg.StabilityThreshold = 0
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	if cfg.AnchorsEnabled && deps.Anchors == nil {
		deps.Logger.Warn().Msg("anchors enabled but no anchor provider, characters will follow their images")
		cfg.AnchorsEnabled = false
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:      cfg,
		registry: deps.Registry,
		placer:   deps.Placer,
		spawner:  deps.Spawner,
		anchors:  deps.Anchors,
		dialogue: deps.Dialogue,
		now:      clock,
		log:      deps.Logger,
		entities: make(map[tracking.EntityID]*entity),
		results:  make(chan anchorResult, resultBuffer),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Subscribe registers a listener for lifecycle events.
func (m *Manager) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// SetRegistry replaces the artwork registry used for later spawns. Live
// characters keep the configuration they were spawned with.
func (m *Manager) SetRegistry(r *artwork.Registry) {
	if r == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry = r
}

// SetPaused pauses or resumes the manager. While paused no characters are
// spawned, re-placed or anchored, but quality drops still hide characters
// and removals still apply. Resuming restarts every stability timer, so
// anchoring needs a full threshold of tracking after the pause.
func (m *Manager) SetPaused(paused bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.paused == paused {
		return
	}
	m.paused = paused
	if !paused {
		for _, e := range m.entities {
			e.stableSince = time.Time{}
		}
	}
	m.log.Info().Bool("paused", paused).Msg("lifecycle pause changed")
}

// Paused reports whether the manager is paused.
func (m *Manager) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// Attach subscribes the manager to src. A nil source disables the manager
// for good: every later batch is ignored.
func (m *Manager) Attach(src tracking.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if src == nil {
		m.disabled = true
		m.log.Error().Msg("no tracking source, lifecycle processing disabled")
		return ErrNoTrackingSource
	}
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.unsubscribe = src.Subscribe(m.HandleBatch)
	return nil
}

// Disabled reports whether processing was switched off.
func (m *Manager) Disabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disabled
}

// HandleBatch applies one frame of tracking changes: added first, then
// updated, then removed.
func (m *Manager) HandleBatch(b tracking.Batch) {
	m.mu.Lock()
	if m.disabled || m.closed {
		m.mu.Unlock()
		return
	}

	for _, obs := range b.Added {
		m.added(obs)
	}
	for _, obs := range b.Updated {
		m.updated(obs)
	}
	for _, id := range b.Removed {
		m.removed(id)
	}

	events, listeners := m.takeEvents()
	m.mu.Unlock()

	dispatch(events, listeners)
}

// Tick applies the anchor requests that completed since the last tick and
// returns how many were processed.
func (m *Manager) Tick() int {
	m.mu.Lock()
	n := 0
drain:
	for {
		select {
		case r := <-m.results:
			m.applyAnchor(r)
			n++
		default:
			break drain
		}
	}
	events, listeners := m.takeEvents()
	m.mu.Unlock()

	dispatch(events, listeners)
	return n
}

// Close tears the scene down: it destroys every character, releases every
// anchor and cancels pending anchor requests. Anchors that complete after
// Close are released as they arrive.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}

	all := make([]*entity, 0, len(m.entities)+len(m.detached))
	for _, e := range m.entities {
		all = append(all, e)
	}
	all = append(all, m.detached...)
	for _, e := range all {
		m.destroy(e)
	}
	m.entities = make(map[tracking.EntityID]*entity)
	m.detached = nil

	events, listeners := m.takeEvents()
	m.mu.Unlock()
	dispatch(events, listeners)

	m.cancel()
	m.wg.Wait()

	for {
		select {
		case r := <-m.results:
			m.releaseAnchor(r.anchor, r.id)
		default:
			m.log.Info().Int("characters", len(all)).Msg("lifecycle torn down")
			return
		}
	}
}

// Len returns the number of characters still tracked, excluding detached
// anchored ones.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entities)
}

// Snapshot returns the state of every live character, tracked or detached,
// ordered by spawn time.
func (m *Manager) Snapshot() []EntityInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]EntityInfo, 0, len(m.entities)+len(m.detached))
	for _, e := range m.entities {
		out = append(out, e.info(false))
	}
	for _, e := range m.detached {
		out = append(out, e.info(true))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SpawnedAt.Equal(out[j].SpawnedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].SpawnedAt.Before(out[j].SpawnedAt)
	})
	return out
}

// Lookup returns the snapshot of a tracked entity.
func (m *Manager) Lookup(id tracking.EntityID) (EntityInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entities[id]
	if !ok {
		return EntityInfo{}, false
	}
	return e.info(false), true
}

func (m *Manager) emit(kind EventKind, e *entity, anchorID string, err error) {
	ev := Event{
		Kind:    kind,
		Entity:  e.id,
		Artwork: e.art.ReferenceImage,
		Err:     err,
		At:      m.now(),
	}
	if e.character != nil {
		ev.CharacterID = e.character.ID()
	}
	ev.AnchorID = anchorID
	m.events = append(m.events, ev)
}

func (m *Manager) takeEvents() ([]Event, []Listener) {
	if len(m.events) == 0 {
		return nil, nil
	}
	events := m.events
	m.events = nil
	return events, append([]Listener(nil), m.listeners...)
}

func dispatch(events []Event, listeners []Listener) {
	for _, ev := range events {
		for _, l := range listeners {
			l(ev)
		}
	}
}

var _ Placer = (*placement.Calculator)(nil)
