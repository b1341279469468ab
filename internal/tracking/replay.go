package tracking

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

// Recording is a captured tracking session, one batch per frame.
type Recording struct {
	Name   string      `json:"name"`
	Frames []WireBatch `json:"frames"`
}

// LoadRecording reads a JSON recording from path.
func LoadRecording(path string) (*Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recording %s: %w", path, err)
	}
	var rec Recording
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse recording %s: %w", path, err)
	}
	return &rec, nil
}

// ReplaySource plays back a recording one frame per Step. Recorded ids are
// remapped to fresh identities on every pass, so a looped recording looks
// like new physical images to the consumer.
type ReplaySource struct {
	*ChannelSource

	frames []Batch
	index  int
	loop   bool
	ids    map[EntityID]EntityID
	mu     sync.Mutex
}

// NewReplaySource decodes rec into a ReplaySource.
func NewReplaySource(rec *Recording, loop bool) (*ReplaySource, error) {
	frames := make([]Batch, 0, len(rec.Frames))
	for i, wb := range rec.Frames {
		b, err := wb.Decode()
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		frames = append(frames, b)
	}
	return &ReplaySource{
		ChannelSource: NewChannelSource(),
		frames:        frames,
		loop:          loop,
		ids:           make(map[EntityID]EntityID),
	}, nil
}

// Step publishes the next frame. It returns false once the recording is
// exhausted and looping is disabled.
func (r *ReplaySource) Step() bool {
	r.mu.Lock()
	if len(r.frames) == 0 {
		r.mu.Unlock()
		return false
	}
	if r.index >= len(r.frames) {
		if !r.loop {
			r.mu.Unlock()
			return false
		}
		r.index = 0
		r.ids = make(map[EntityID]EntityID)
	}
	b := r.remap(r.frames[r.index])
	r.index++
	r.mu.Unlock()

	r.Publish(b)
	return true
}

// Reset restarts playback from the first frame.
func (r *ReplaySource) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.index = 0
	r.ids = make(map[EntityID]EntityID)
}

// Len returns the number of frames in the recording.
func (r *ReplaySource) Len() int {
	return len(r.frames)
}

func (r *ReplaySource) remap(b Batch) Batch {
	out := Batch{
		Added:   make([]Observation, 0, len(b.Added)),
		Updated: make([]Observation, 0, len(b.Updated)),
		Removed: make([]EntityID, 0, len(b.Removed)),
	}
	for _, o := range b.Added {
		o.ID = r.idFor(o.ID)
		out.Added = append(out.Added, o)
	}
	for _, o := range b.Updated {
		o.ID = r.idFor(o.ID)
		out.Updated = append(out.Updated, o)
	}
	for _, id := range b.Removed {
		out.Removed = append(out.Removed, r.idFor(id))
		delete(r.ids, id)
	}
	return out
}

func (r *ReplaySource) idFor(recorded EntityID) EntityID {
	if id, ok := r.ids[recorded]; ok {
		return id
	}
	id := EntityID(uuid.NewString())
	r.ids[recorded] = id
	return id
}
