package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/fabriziosardo/AR-Project/internal/artwork"
	"github.com/fabriziosardo/AR-Project/internal/geom"
	"github.com/fabriziosardo/AR-Project/internal/ground"
	"github.com/fabriziosardo/AR-Project/internal/placement"
	"github.com/fabriziosardo/AR-Project/internal/tracking"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// offsetPlacer puts characters one metre in front of the image.
type offsetPlacer struct {
	mu    sync.Mutex
	calls int
}

func (p *offsetPlacer) ComputePlacement(pose geom.Pose, art artwork.Config) placement.Placement {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	pos := r3.Add(pose.Position, geom.Vec{Z: 1})
	return placement.Placement{Candidate: pos, Position: pos, Rotation: geom.Identity(), Ground: ground.SourceRaycast}
}

type fakeCharacter struct {
	mu        sync.Mutex
	id        string
	template  string
	pose      geom.Pose
	poses     int
	active    bool
	anchor    Anchor
	destroyed int
}

func (c *fakeCharacter) ID() string { return c.id }

func (c *fakeCharacter) SetPose(p geom.Pose) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pose = p
	c.poses++
}

func (c *fakeCharacter) SetActive(a bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = a
}

func (c *fakeCharacter) AttachTo(a Anchor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.anchor = a
}

func (c *fakeCharacter) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyed++
}

func (c *fakeCharacter) state() (active bool, poses, destroyed int, anchor Anchor, pose geom.Pose) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active, c.poses, c.destroyed, c.anchor, c.pose
}

type fakeSpawner struct {
	mu        sync.Mutex
	spawned   []*fakeCharacter
	templates map[string]bool
}

var errUnknownTemplate = errors.New("unknown template")

func (s *fakeSpawner) Spawn(template string, pose geom.Pose, scale float64) (Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.templates != nil && !s.templates[template] {
		return nil, errUnknownTemplate
	}
	c := &fakeCharacter{id: fmt.Sprintf("char-%d", len(s.spawned)+1), template: template, pose: pose, active: true}
	s.spawned = append(s.spawned, c)
	return c, nil
}

func (s *fakeSpawner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.spawned)
}

func (s *fakeSpawner) live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.spawned {
		if _, _, destroyed, _, _ := c.state(); destroyed == 0 {
			n++
		}
	}
	return n
}

func (s *fakeSpawner) get(i int) *fakeCharacter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spawned[i]
}

type fakeAnchor struct {
	id   string
	pose geom.Pose
}

func (a *fakeAnchor) ID() string      { return a.id }
func (a *fakeAnchor) Pose() geom.Pose { return a.pose }

// fakeAnchors completes immediately unless gate is set, in which case each
// request waits for a value on gate (or for cancellation, which still
// yields an anchor so the release path is exercised).
type fakeAnchors struct {
	mu       sync.Mutex
	requests []geom.Pose
	released []string
	fail     error
	gate     chan struct{}
}

func (f *fakeAnchors) CreateAnchor(ctx context.Context, pose geom.Pose) (Anchor, error) {
	f.mu.Lock()
	f.requests = append(f.requests, pose)
	id := fmt.Sprintf("anchor-%d", len(f.requests))
	gate, fail := f.gate, f.fail
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return &fakeAnchor{id: id, pose: pose}, nil
		}
	}
	if fail != nil {
		return nil, fail
	}
	return &fakeAnchor{id: id, pose: pose}, nil
}

func (f *fakeAnchors) ReleaseAnchor(a Anchor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, a.ID())
	return nil
}

func (f *fakeAnchors) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeAnchors) releasedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.released...)
}

type recordingDialogue struct {
	mu    sync.Mutex
	calls map[string]string
}

func (d *recordingDialogue) InitializeDialogue(characterID string, art artwork.Config) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.calls == nil {
		d.calls = make(map[string]string)
	}
	d.calls[characterID] = art.ReferenceImage
}

func obs(id, image string, q tracking.Quality, pos geom.Vec) tracking.Observation {
	return tracking.Observation{
		ID:             tracking.EntityID(id),
		ReferenceImage: image,
		Pose:           geom.NewPose(pos, geom.Identity()),
		Quality:        q,
	}
}

func added(o ...tracking.Observation) tracking.Batch   { return tracking.Batch{Added: o} }
func updated(o ...tracking.Observation) tracking.Batch { return tracking.Batch{Updated: o} }
func removed(ids ...string) tracking.Batch {
	b := tracking.Batch{}
	for _, id := range ids {
		b.Removed = append(b.Removed, tracking.EntityID(id))
	}
	return b
}
