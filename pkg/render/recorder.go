package render

import (
	"context"
	"sync"
)

// Recorder is a Renderer that keeps every call in memory.
type Recorder struct {
	mu        sync.Mutex
	uploads   []*Shape
	destroyed []string
	live      map[string]*Shape
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{live: make(map[string]*Shape)}
}

// Upload records a copy of s.
func (r *Recorder) Upload(_ context.Context, s *Shape) error {
	c := s.Clone()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uploads = append(r.uploads, c)
	r.live[c.ID] = c
	return nil
}

// Destroy records the removal of id.
func (r *Recorder) Destroy(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroyed = append(r.destroyed, id)
	delete(r.live, id)
	return nil
}

// Uploads returns every uploaded shape in call order.
func (r *Recorder) Uploads() []*Shape {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Shape(nil), r.uploads...)
}

// Destroyed returns every destroyed ID in call order.
func (r *Recorder) Destroyed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.destroyed...)
}

// Live returns the last upload of id unless it was destroyed since.
func (r *Recorder) Live(id string) (*Shape, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.live[id]
	return s, ok
}

// LiveCount returns the number of shapes uploaded and not destroyed.
func (r *Recorder) LiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}
