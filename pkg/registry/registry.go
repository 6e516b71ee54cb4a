// Package registry manages the live surfaces of a session. It is the only
// owner allowed to destroy a surface.Instance, and it turns generation
// failures into a single user notification.
package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/chazu/molsurf/pkg/logging"
	"github.com/chazu/molsurf/pkg/solver"
	"github.com/chazu/molsurf/pkg/surface"
)

// ErrNotFound is returned for an unknown surface ID.
var ErrNotFound = errors.New("surface not found")

// Notifier tells the user about failed generations.
type Notifier interface {
	GenerationFailed(name string, err error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(name string, err error)

// GenerationFailed calls f.
func (f NotifierFunc) GenerationFailed(name string, err error) { f(name, err) }

// Registry holds surfaces in creation order. It is safe for concurrent
// use; generations run on the caller's goroutine.
type Registry struct {
	deps   surface.Deps
	notify Notifier

	mu       sync.Mutex
	surfaces []*surface.Instance
	seq      uint64
}

// New returns an empty Registry creating instances with deps. notify may
// be nil.
func New(deps surface.Deps, notify Notifier) *Registry {
	if notify == nil {
		notify = NotifierFunc(func(string, error) {})
	}
	return &Registry{deps: deps, notify: notify}
}

// Generate creates a surface and generates it. A canceled generation
// returns solver.ErrCanceled without notifying anyone; the surface is still
// destroyed and removed. Any other failure
// is reported to the Notifier once, and the surface is destroyed and
// removed before Generate returns. An empty name gets a numbered default.
func (r *Registry) Generate(ctx context.Context, name string, target int, req surface.Request, opts surface.Options) (*surface.Instance, error) {
	r.mu.Lock()
	r.seq++
	if name == "" {
		name = fmt.Sprintf("Surface %d", r.seq)
	}
	inst := surface.New(uuid.NewString(), name, target, req, opts, r.deps)
	r.surfaces = append(r.surfaces, inst)
	r.mu.Unlock()

	log := logging.Logger()
	err := inst.Generate(ctx)
	switch {
	case err == nil:
		return inst, nil
	case errors.Is(err, solver.ErrCanceled):
		log.Debug("generation canceled", "surface", name)
		if derr := inst.Destroy(context.WithoutCancel(ctx)); derr != nil {
			log.Warn("destroying canceled surface", "surface", name, "error", derr)
		}
		r.remove(inst)
		return nil, err
	}

	log.Error("generation failed", "surface", name, "error", err)
	r.notify.GenerationFailed(name, err)
	if derr := inst.Destroy(context.WithoutCancel(ctx)); derr != nil {
		log.Warn("destroying failed surface", "surface", name, "error", derr)
	}
	r.remove(inst)
	return nil, err
}

// Supersede replaces the surface id by a new one computed from req, keeping
// its name, target and options. The old surface is destroyed first, which
// cancels it if it is still generating.
func (r *Registry) Supersede(ctx context.Context, id string, req surface.Request) (*surface.Instance, error) {
	old, ok := r.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := r.Delete(ctx, id); err != nil {
		return nil, err
	}
	return r.Generate(ctx, old.Name(), old.Target(), req, old.Options())
}

func (r *Registry) remove(inst *surface.Instance) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.surfaces)
	r.surfaces = slices.DeleteFunc(r.surfaces, func(s *surface.Instance) bool { return s == inst })
	return len(r.surfaces) != n
}

// Get returns the surface with the given ID.
func (r *Registry) Get(id string) (*surface.Instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Find(r.surfaces, func(s *surface.Instance) bool { return s.ID() == id })
}

// List returns all surfaces in creation order, generating ones included.
func (r *Registry) List() []*surface.Instance {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.surfaces)
}

// Len returns the number of surfaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.surfaces)
}

// Delete destroys and removes the surface id.
func (r *Registry) Delete(ctx context.Context, id string) error {
	inst, ok := r.Get(id)
	if !ok || !r.remove(inst) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return inst.Destroy(ctx)
}

// DeleteAll destroys and removes every surface, canceling running
// generations.
func (r *Registry) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	all := r.surfaces
	r.surfaces = nil
	r.mu.Unlock()
	return destroyAll(ctx, all)
}

// Prune destroys the surfaces whose target is not in liveTargets and
// returns how many were removed.
func (r *Registry) Prune(ctx context.Context, liveTargets []int) (int, error) {
	r.mu.Lock()
	stale, keep := lo.FilterReject(r.surfaces, func(s *surface.Instance, _ int) bool {
		return !slices.Contains(liveTargets, s.Target())
	})
	r.surfaces = keep
	r.mu.Unlock()
	return len(stale), destroyAll(ctx, stale)
}

func destroyAll(ctx context.Context, all []*surface.Instance) error {
	var errs []error
	for _, s := range all {
		errs = append(errs, s.Destroy(ctx))
	}
	return errors.Join(errs...)
}

// ready returns the surfaces that finished generating.
func (r *Registry) ready() []*surface.Instance {
	return lo.Filter(r.List(), func(s *surface.Instance, _ int) bool { return s.Done() })
}

// AnyVisible reports whether a generated surface is shown.
func (r *Registry) AnyVisible() bool {
	return lo.SomeBy(r.ready(), func(s *surface.Instance) bool { return s.Visible() })
}

// ToggleAll hides every generated surface when any is visible, and shows
// them all otherwise. Surfaces still generating are left alone.
func (r *Registry) ToggleAll(ctx context.Context) error {
	show := !r.AnyVisible()
	var errs []error
	for _, s := range r.ready() {
		err := s.ToggleVisible(ctx, &show)
		if errors.Is(err, surface.ErrInvalidState) {
			// Destroyed since ready() listed it.
			continue
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
