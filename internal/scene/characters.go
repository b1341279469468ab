package scene

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/fabriziosardo/AR-Project/internal/geom"
	"github.com/fabriziosardo/AR-Project/internal/lifecycle"
)

// ErrTemplateNotFound is returned when spawning a model the room does not
// know.
var ErrTemplateNotFound = errors.New("character template not found")

// Character is a guide model placed in the room.
type Character struct {
	id       string
	template string
	scale    float64
	world    *World

	mu        sync.Mutex
	pose      geom.Pose
	active    bool
	anchor    lifecycle.Anchor
	destroyed bool
}

// CharacterState is a copy of a character's current state.
type CharacterState struct {
	ID       string   `json:"id"`
	Template string   `json:"template"`
	Scale    float64  `json:"scale"`
	Position geom.Vec `json:"position"`
	Yaw      float64  `json:"yaw"`
	Active   bool     `json:"active"`
	AnchorID string   `json:"anchor_id,omitempty"`
}

// Spawn implements lifecycle.Spawner.
func (w *World) Spawn(template string, pose geom.Pose, scale float64) (lifecycle.Character, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.templates != nil && !w.templates[template] {
		return nil, fmt.Errorf("spawn %q: %w", template, ErrTemplateNotFound)
	}
	c := &Character{
		id:       uuid.NewString(),
		template: template,
		scale:    scale,
		world:    w,
		pose:     pose,
		active:   true,
	}
	w.characters[c.id] = c
	w.log.Debug().Str("character", c.id).Str("template", template).Msg("character spawned")
	return c, nil
}

// Characters returns the state of every character in the room, ordered by id.
func (w *World) Characters() []CharacterState {
	w.mu.RLock()
	list := make([]*Character, 0, len(w.characters))
	for _, c := range w.characters {
		list = append(list, c)
	}
	w.mu.RUnlock()

	out := make([]CharacterState, 0, len(list))
	for _, c := range list {
		out = append(out, c.State())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Character) ID() string { return c.id }

// SetPose moves the character. It has no effect once the character is
// attached to an anchor.
func (c *Character) SetPose(p geom.Pose) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.anchor != nil {
		return
	}
	c.pose = p
}

func (c *Character) SetActive(active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = active
}

// AttachTo parents the character to an anchor. The character keeps its
// world position; the anchor pose becomes its reference.
func (c *Character) AttachTo(a lifecycle.Anchor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.anchor = a
	if a != nil {
		c.pose = a.Pose()
	}
}

// Destroy removes the character from the room. Calling it twice is a no-op.
func (c *Character) Destroy() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.destroyed = true
	c.mu.Unlock()

	c.world.mu.Lock()
	delete(c.world.characters, c.id)
	c.world.mu.Unlock()
}

// State returns a copy of the character's state.
func (c *Character) State() CharacterState {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := CharacterState{
		ID:       c.id,
		Template: c.template,
		Scale:    c.scale,
		Position: c.pose.Position,
		Yaw:      geom.YawOf(c.pose.Rotation),
		Active:   c.active,
	}
	if c.anchor != nil {
		s.AnchorID = c.anchor.ID()
	}
	return s
}
