package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chazu/molsurf/pkg/colorscheme"
	"github.com/chazu/molsurf/pkg/config"
	"github.com/chazu/molsurf/pkg/logging"
	"github.com/chazu/molsurf/pkg/partition"
	"github.com/chazu/molsurf/pkg/registry"
	"github.com/chazu/molsurf/pkg/render"
	"github.com/chazu/molsurf/pkg/solver"
	"github.com/chazu/molsurf/pkg/solver/aoembree"
	"github.com/chazu/molsurf/pkg/solver/msms"
	"github.com/chazu/molsurf/pkg/solver/sdfx"
	"github.com/chazu/molsurf/pkg/structure"
	"github.com/chazu/molsurf/pkg/surface"
)

// ErrNoAtoms is returned when the selection leaves nothing to mesh.
var ErrNoAtoms = errors.New("no atoms selected")

// App wires the configured solvers, renderers and surface registry. One
// App serves a whole command-line session.
type App struct {
	cfg      *config.Config
	out      io.Writer
	registry *registry.Registry
	recorder *render.Recorder
	hub      *render.Hub
	aoReady  bool
}

// Request describes one surface to generate from a structure file.
type Request struct {
	Input            string
	Name             string
	Chains           []string
	IncludeHydrogens bool
	IncludeWaters    bool
	Mode             partition.Mode
	AO               bool
	// Scheme and Color override the configured surface defaults when set.
	Scheme string
	Color  string
	STL    string
	JSON   string
}

// NewApp builds an App from cfg. Messages for the user go to out. When
// serve is true the App also streams shapes to websocket viewers.
func NewApp(cfg *config.Config, out io.Writer, serve bool) (*App, error) {
	geometry, err := newGeometry(cfg)
	if err != nil {
		return nil, err
	}

	tables := colorscheme.DefaultTables()
	if cfg.Surface.Tables != "" {
		if tables, err = readTables(cfg.Surface.Tables); err != nil {
			return nil, err
		}
	}

	a := &App{cfg: cfg, out: out, recorder: render.NewRecorder()}
	renderers := render.Multi{a.recorder}
	if serve {
		a.hub = render.NewHub()
		renderers = append(renderers, a.hub)
	}

	deps := surface.Deps{Geometry: geometry, Renderer: renderers, Tables: tables}
	if occ := newOcclusion(cfg); occ != nil {
		deps.Occlusion = occ
		a.aoReady = true
	}
	a.registry = registry.New(deps, registry.NotifierFunc(a.generationFailed))
	return a, nil
}

func newGeometry(cfg *config.Config) (solver.Geometry, error) {
	switch cfg.Solver.Backend {
	case "sdfx":
		return sdfx.New(), nil
	case "msms":
		proc, err := cfg.Solver.Process()
		if err != nil {
			return nil, err
		}
		return msms.New(proc), nil
	}
	return nil, fmt.Errorf("unknown solver backend %q", cfg.Solver.Backend)
}

// newOcclusion returns nil when occlusion is disabled or cannot run here.
func newOcclusion(cfg *config.Config) *aoembree.Solver {
	if !cfg.Occlusion.Enabled {
		return nil
	}
	log := logging.Logger()
	proc, err := cfg.Occlusion.Process()
	if err != nil {
		log.Warn("occlusion disabled", "error", err)
		return nil
	}
	s, err := aoembree.New(proc)
	if err != nil {
		log.Info("occlusion disabled", "error", err)
		return nil
	}
	return s
}

func readTables(path string) (*colorscheme.Tables, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening color tables: %w", err)
	}
	defer f.Close()
	t, err := colorscheme.ReadTables(f)
	if err != nil {
		return nil, fmt.Errorf("color tables %s: %w", path, err)
	}
	return t, nil
}

func (a *App) generationFailed(name string, err error) {
	fmt.Fprintf(a.out, "Failed to generate %s: %v\n", name, err)
}

// Registry returns the surfaces of the session.
func (a *App) Registry() *registry.Registry { return a.registry }

// Recorder returns the shapes uploaded so far.
func (a *App) Recorder() *render.Recorder { return a.recorder }

// AOAvailable reports whether an occlusion solver is configured.
func (a *App) AOAvailable() bool { return a.aoReady }

// Generate reads the structure, applies the selection and generates one
// surface, then writes the requested exports.
func (a *App) Generate(ctx context.Context, req Request) (*surface.Instance, error) {
	atoms, err := LoadAtoms(req.Input)
	if err != nil {
		return nil, err
	}
	filter := structure.Filter{
		Chains:           req.Chains,
		IncludeHydrogens: req.IncludeHydrogens,
		IncludeWaters:    req.IncludeWaters,
	}
	atoms, sum := filter.Apply(atoms)
	if len(atoms) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoAtoms, req.Input)
	}
	fmt.Fprintln(a.out, sum)

	opts, err := a.options(req)
	if err != nil {
		return nil, err
	}
	if req.AO && !a.aoReady {
		logging.Logger().Warn("ambient occlusion requested but unavailable")
	}

	name := req.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(req.Input), filepath.Ext(req.Input))
	}
	start := time.Now()
	inst, err := a.registry.Generate(ctx, name, 0, surface.Request{
		Atoms: atoms,
		Mode:  req.Mode,
		AO:    req.AO && a.aoReady,
	}, opts)
	if err != nil {
		return nil, err
	}
	m := inst.Mesh()
	fmt.Fprintf(a.out, "%s: %d vertices, %d triangles in %s\n",
		inst.Name(), m.VertexCount(), m.TriangleCount(), time.Since(start).Round(time.Millisecond))

	if err := a.export(inst, req); err != nil {
		return inst, err
	}
	return inst, nil
}

// options resolves the surface options from the configuration and the
// request overrides.
func (a *App) options(req Request) (surface.Options, error) {
	opts := surface.DefaultOptions()
	opts.Quality = a.cfg.Solver.Quality()
	opts.AOSteps = a.cfg.Occlusion.Steps
	opts.AOMaxDistance = a.cfg.Occlusion.MaxDistance
	opts.AOScale = a.cfg.Surface.AOScaleValue()

	schemeName := a.cfg.Surface.Scheme
	if req.Scheme != "" {
		schemeName = req.Scheme
	}
	scheme, err := colorscheme.ParseScheme(schemeName)
	if err != nil {
		return opts, err
	}
	opts.Scheme = scheme

	hex := a.cfg.Surface.Color
	if req.Color != "" {
		hex = req.Color
	}
	if hex != "" {
		if opts.Color, err = colorscheme.ParseHex(hex); err != nil {
			return opts, err
		}
	}
	opts.Color = opts.Color.WithAlpha(a.cfg.Surface.AlphaValue())
	return opts, nil
}

func (a *App) export(inst *surface.Instance, req Request) error {
	if req.STL == "" && req.JSON == "" {
		return nil
	}
	shape, ok := a.recorder.Live(inst.ID())
	if !ok {
		return fmt.Errorf("%s was not uploaded", inst.Name())
	}
	if req.STL != "" {
		if err := render.SaveSTL(req.STL, shape); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "wrote %s\n", req.STL)
	}
	if req.JSON != "" {
		if err := render.SaveJSON(req.JSON, shape); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "wrote %s\n", req.JSON)
	}
	return nil
}

// Handler returns the viewer endpoint, or nil when the App does not serve.
func (a *App) Handler() http.Handler {
	if a.hub == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/ws", a.hub)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","surfaces":%d,"viewers":%d}`, a.registry.Len(), a.hub.Clients())
	})
	return mux
}

// RunHub delivers shapes to viewers until ctx is done.
func (a *App) RunHub(ctx context.Context) {
	if a.hub != nil {
		a.hub.Run(ctx)
	}
}

// Close destroys every remaining surface.
func (a *App) Close(ctx context.Context) error {
	return a.registry.DeleteAll(ctx)
}

// LoadAtoms reads a .pdb or .xyzr file.
func LoadAtoms(path string) ([]structure.Atom, error) {
	read := structure.ReadPDB
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdb", ".ent":
	case ".xyzr":
		read = structure.ReadXYZR
	default:
		return nil, fmt.Errorf("unsupported structure file %s: want .pdb or .xyzr", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening structure: %w", err)
	}
	defer f.Close()
	atoms, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return atoms, nil
}
