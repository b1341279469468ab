package tracking

import "sync"

// ChannelSource is a Source fed by Publish. It fans batches out to every
// subscriber synchronously, in subscription order.
type ChannelSource struct {
	mu     sync.RWMutex
	next   int
	subs   map[int]func(Batch)
	order  []int
	closed bool
}

// NewChannelSource creates an empty ChannelSource.
func NewChannelSource() *ChannelSource {
	return &ChannelSource{
		subs: make(map[int]func(Batch)),
	}
}

// Subscribe implements Source.
func (s *ChannelSource) Subscribe(fn func(Batch)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	s.subs[id] = fn
	s.order = append(s.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			for i, v := range s.order {
				if v == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers b to all current subscribers. Empty batches and batches
// published after Close are dropped.
func (s *ChannelSource) Publish(b Batch) {
	if b.Empty() {
		return
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return
	}
	fns := make([]func(Batch), 0, len(s.order))
	for _, id := range s.order {
		fns = append(fns, s.subs[id])
	}
	s.mu.RUnlock()

	// Call outside the lock so subscribers may unsubscribe from the callback.
	for _, fn := range fns {
		fn(b)
	}
}

// Subscribers returns the number of active subscriptions.
func (s *ChannelSource) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Close stops delivery of further batches.
func (s *ChannelSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
