// Package render holds the mesh description handed to renderers and the
// renderers molsurf ships with: an in-memory recorder, file exporters and
// a websocket hub that streams shapes to browser viewers.
package render

import (
	"context"
	"errors"
	"slices"

	"github.com/chazu/molsurf/pkg/colorscheme"
)

// Anchor binds a shape to the structure it was computed from.
type Anchor struct {
	Target int `json:"target"`
}

// Shape is a colored triangle mesh ready for display.
type Shape struct {
	ID        string           `json:"id"`
	Name      string           `json:"name,omitempty"`
	Anchor    Anchor           `json:"anchor"`
	Vertices  []float32        `json:"vertices"`
	Normals   []float32        `json:"normals"`
	Triangles []uint32         `json:"triangles"`
	Colors    []float32        `json:"colors"`
	Color     colorscheme.RGBA `json:"color"`
	Unlit     bool             `json:"unlit"`
}

// Visible reports whether the shape's overall tint is not fully
// transparent.
func (s *Shape) Visible() bool {
	return s.Color.A > 0
}

// Clone returns a deep copy of s.
func (s *Shape) Clone() *Shape {
	c := *s
	c.Vertices = slices.Clone(s.Vertices)
	c.Normals = slices.Clone(s.Normals)
	c.Triangles = slices.Clone(s.Triangles)
	c.Colors = slices.Clone(s.Colors)
	return &c
}

// Renderer displays shapes. Upload creates or replaces the shape with the
// same ID; Destroy removes it. Both are idempotent.
type Renderer interface {
	Upload(ctx context.Context, s *Shape) error
	Destroy(ctx context.Context, id string) error
}

// Multi fans every call out to all of its renderers.
type Multi []Renderer

// Upload uploads s to every renderer and joins their errors.
func (m Multi) Upload(ctx context.Context, s *Shape) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Upload(ctx, s))
	}
	return errors.Join(errs...)
}

// Destroy destroys id on every renderer and joins their errors.
func (m Multi) Destroy(ctx context.Context, id string) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Destroy(ctx, id))
	}
	return errors.Join(errs...)
}
