// Package surface drives the generation of one molecular surface: geometry
// through the partitioned solver, optional ambient occlusion, coloring and
// upload to a renderer. An Instance then serves cheap color and visibility
// updates until it is destroyed.
package surface

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chazu/molsurf/pkg/colorscheme"
	"github.com/chazu/molsurf/pkg/logging"
	"github.com/chazu/molsurf/pkg/mesh"
	"github.com/chazu/molsurf/pkg/partition"
	"github.com/chazu/molsurf/pkg/render"
	"github.com/chazu/molsurf/pkg/solver"
	"github.com/chazu/molsurf/pkg/solver/aoembree"
	"github.com/chazu/molsurf/pkg/structure"
)

// Request is the fixed geometry input of an instance.
type Request struct {
	// Atoms are the atoms to mesh, grouped by chain or residue when Mode
	// needs it.
	Atoms []structure.Atom
	Mode  partition.Mode
	// AO requests ambient occlusion.
	AO bool
}

// Options are the tunable parameters of an instance. Only the color
// fields can change after creation.
type Options struct {
	Scheme colorscheme.Scheme
	// Color is the base color; its alpha is the mesh opacity when visible.
	Color   colorscheme.RGBA
	AOScale float32

	Quality       partition.Quality
	AOSteps       int
	AOMaxDistance float64
}

// DefaultOptions colors by chain from a random preset.
func DefaultOptions() Options {
	return Options{
		Scheme:        colorscheme.Chain,
		Color:         colorscheme.MustParseHex(colorscheme.RandomPreset().Hex),
		AOScale:       1,
		Quality:       partition.DefaultQuality(),
		AOSteps:       aoembree.DefaultSteps,
		AOMaxDistance: aoembree.DefaultMaxDistance,
	}
}

// withDefaults replaces unset numeric settings with their defaults. The
// scheme and color are kept as given.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	q := &o.Quality
	if q.ProbeRadius <= 0 {
		q.ProbeRadius = d.Quality.ProbeRadius
	}
	if q.Density <= 0 {
		q.Density = d.Quality.Density
	}
	if q.HDensitySmall <= 0 {
		q.HDensitySmall = d.Quality.HDensitySmall
	}
	if q.HDensityLarge <= 0 {
		q.HDensityLarge = d.Quality.HDensityLarge
	}
	if q.LargeAtoms <= 0 {
		q.LargeAtoms = d.Quality.LargeAtoms
	}
	if o.AOScale <= 0 || o.AOScale > 1 {
		o.AOScale = d.AOScale
	}
	if o.AOSteps <= 0 {
		o.AOSteps = d.AOSteps
	}
	if o.AOMaxDistance <= 0 {
		o.AOMaxDistance = d.AOMaxDistance
	}
	return o
}

// Deps are the collaborators an instance works with.
type Deps struct {
	Geometry solver.Geometry
	// Occlusion may be nil when no occlusion solver is available.
	Occlusion solver.Occlusion
	Renderer  render.Renderer
	Tables    *colorscheme.Tables
}

// Instance is one molecular surface. Generate runs at most once; Destroy
// may be called at any time from any goroutine.
type Instance struct {
	id     string
	name   string
	target int
	req    Request
	deps   Deps

	canceled atomic.Bool

	mu       sync.Mutex
	state    State
	opts     Options
	visible  bool
	cancel   context.CancelFunc
	mesh     *mesh.Buffer
	shape    *render.Shape
	uploaded bool
}

// New returns an idle instance. id also names the uploaded shape; target
// is the handle of the structure the shape is anchored to.
func New(id, name string, target int, req Request, opts Options, deps Deps) *Instance {
	if deps.Tables == nil {
		deps.Tables = colorscheme.DefaultTables()
	}
	opts = opts.withDefaults()
	return &Instance{
		id:      id,
		name:    name,
		target:  target,
		req:     req,
		opts:    opts,
		deps:    deps,
		visible: true,
	}
}

func (i *Instance) ID() string       { return i.id }
func (i *Instance) Name() string     { return i.name }
func (i *Instance) Target() int      { return i.target }
func (i *Instance) Request() Request { return i.req }

// State returns the current lifecycle state.
func (i *Instance) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Done reports whether generation completed.
func (i *Instance) Done() bool {
	return i.State() == Ready
}

// Visible reports whether the mesh is shown.
func (i *Instance) Visible() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.visible
}

// Options returns the current options.
func (i *Instance) Options() Options {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.opts
}

// Mesh returns the generated mesh, nil before Ready. It must not be
// modified.
func (i *Instance) Mesh() *mesh.Buffer {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.mesh
}

// Generate computes and uploads the surface. It returns solver.ErrCanceled
// when Destroy interrupted it; in that case nothing was uploaded and the
// instance never became Ready. Other errors leave the instance Failed.
func (i *Instance) Generate(ctx context.Context) error {
	i.mu.Lock()
	if i.state != Idle {
		s := i.state
		i.mu.Unlock()
		return invalid("generate", s)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	i.cancel = cancel
	i.state = Generating
	opts := i.opts
	i.mu.Unlock()

	log := logging.Logger().With("surface", i.name)
	start := time.Now()

	m, err := partition.Build(ctx, i.deps.Geometry, i.req.Atoms, i.req.Mode, opts.Quality)
	if err != nil {
		return i.abort(err)
	}

	if i.req.AO && i.deps.Occlusion != nil && !m.IsEmpty() {
		ao, err := i.deps.Occlusion.Solve(ctx, m, opts.AOSteps, opts.AOMaxDistance)
		switch {
		case errors.Is(err, solver.ErrCanceled) || i.canceled.Load():
			return i.abort(solver.ErrCanceled)
		case err != nil:
			log.Warn("ambient occlusion disabled", "error", err)
		case len(ao) != m.VertexCount():
			log.Warn("ambient occlusion disabled", "error", fmt.Errorf("%w: expected %d, got %d",
				solver.ErrOcclusionMismatch, m.VertexCount(), len(ao)))
		default:
			m.Occlusion = ao
		}
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.canceled.Load() {
		i.settle(Canceled)
		return solver.ErrCanceled
	}
	i.mesh = m
	i.shape = &render.Shape{
		ID:        i.id,
		Name:      i.name,
		Anchor:    render.Anchor{Target: i.target},
		Vertices:  m.Vertices,
		Normals:   m.Normals,
		Triangles: m.Triangles,
		Color:     colorscheme.White.WithAlpha(i.opts.Color.A),
		Unlit:     m.HasOcclusion(),
	}
	if err := i.applyColorLocked(ctx); err != nil {
		if errors.Is(err, solver.ErrCanceled) {
			i.settle(Canceled)
			return err
		}
		i.state = Failed
		return err
	}
	i.state = Ready
	log.Info("surface ready",
		"atoms", len(i.req.Atoms), "vertices", m.VertexCount(), "triangles", m.TriangleCount(),
		"ao", m.HasOcclusion(), "elapsed", time.Since(start))
	return nil
}

// abort ends a generation that did not reach the upload step.
func (i *Instance) abort(err error) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if errors.Is(err, solver.ErrCanceled) || i.canceled.Load() {
		i.settle(Canceled)
		return solver.ErrCanceled
	}
	i.settle(Failed)
	return fmt.Errorf("generating %s: %w", i.name, err)
}

// settle moves to s unless the instance was destroyed meanwhile.
func (i *Instance) settle(s State) {
	if i.state != Destroyed {
		i.state = s
	}
}

// Destroy cancels any running generation, killing its solver process, and
// removes the uploaded shape. Calling it again is a no-op.
func (i *Instance) Destroy(ctx context.Context) error {
	i.canceled.Store(true)
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state == Destroyed {
		return nil
	}
	if i.cancel != nil {
		i.cancel()
	}
	i.state = Destroyed
	if !i.uploaded {
		return nil
	}
	i.uploaded = false
	return i.deps.Renderer.Destroy(ctx, i.id)
}

// ToggleVisible shows or hides the mesh. A nil show flips visibility.
func (i *Instance) ToggleVisible(ctx context.Context, show *bool) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state != Ready {
		return invalid("toggle visibility", i.state)
	}
	want := !i.visible
	if show != nil {
		want = *show
	}
	if want == i.visible {
		return nil
	}
	i.visible = want
	i.shape.Color.A = 0
	if want {
		i.shape.Color.A = i.opts.Color.A
	}
	if err := i.upload(ctx); err != nil {
		i.visible = !want
		if errors.Is(err, solver.ErrCanceled) {
			return invalid("toggle visibility", Destroyed)
		}
		return err
	}
	return nil
}

// ApplyColor recolors the mesh from the current options.
func (i *Instance) ApplyColor(ctx context.Context) error {
	return i.recolor(ctx, "apply color", func(*Options) error { return nil })
}

// SetColorScheme switches the color scheme and recolors.
func (i *Instance) SetColorScheme(ctx context.Context, s colorscheme.Scheme) error {
	return i.recolor(ctx, "set color scheme", func(o *Options) error {
		o.Scheme = s
		return nil
	})
}

// SetColor sets the base color from a hex string, keeping the current
// alpha, and recolors.
func (i *Instance) SetColor(ctx context.Context, hex string) error {
	c, err := colorscheme.ParseHex(hex)
	if err != nil {
		return err
	}
	return i.recolor(ctx, "set color", func(o *Options) error {
		o.Color = c.WithAlpha(o.Color.A)
		return nil
	})
}

// SetAlpha sets the mesh opacity and recolors.
func (i *Instance) SetAlpha(ctx context.Context, alpha float32) error {
	if alpha < 0 || alpha > 1 {
		return fmt.Errorf("alpha %g outside [0,1]", alpha)
	}
	return i.recolor(ctx, "set alpha", func(o *Options) error {
		o.Color.A = alpha
		return nil
	})
}

// SetAOScale sets the occlusion contrast and recolors.
func (i *Instance) SetAOScale(ctx context.Context, scale float32) error {
	if scale <= 0 || scale > 1 {
		return fmt.Errorf("ao scale %g outside (0,1]", scale)
	}
	return i.recolor(ctx, "set ao scale", func(o *Options) error {
		o.AOScale = scale
		return nil
	})
}

// HexColor returns the base color as "#rrggbb".
func (i *Instance) HexColor() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.opts.Color.Hex()
}

func (i *Instance) recolor(ctx context.Context, op string, update func(*Options) error) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state != Ready {
		return invalid(op, i.state)
	}
	opts := i.opts
	if err := update(&opts); err != nil {
		return err
	}
	prev := i.opts
	i.opts = opts
	if err := i.applyColorLocked(ctx); err != nil {
		i.opts = prev
		if errors.Is(err, solver.ErrCanceled) {
			return invalid(op, Destroyed)
		}
		return err
	}
	return nil
}

// applyColorLocked recomputes vertex colors and uploads when visible.
func (i *Instance) applyColorLocked(ctx context.Context) error {
	perAtom, err := colorscheme.PerAtom(i.deps.Tables, i.req.Atoms, i.opts.Scheme, i.opts.Color)
	if err != nil {
		return err
	}
	colors := colorscheme.PerVertex(perAtom, i.mesh.AtomIndex)
	i.shape.Colors = colorscheme.Composite(colors, i.mesh.Occlusion, i.opts.AOScale)
	if !i.visible {
		return nil
	}
	i.shape.Color.A = i.opts.Color.A
	return i.upload(ctx)
}

// upload sends the shape to the renderer. It returns solver.ErrCanceled
// once Destroy has started, even if Destroy is still waiting for the lock.
func (i *Instance) upload(ctx context.Context) error {
	if i.canceled.Load() {
		return solver.ErrCanceled
	}
	if err := i.deps.Renderer.Upload(ctx, i.shape); err != nil {
		return fmt.Errorf("uploading %s: %w", i.name, err)
	}
	i.uploaded = true
	return nil
}
