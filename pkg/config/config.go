// Package config loads molsurf settings from defaults, an optional TOML
// file, a .env file and environment variables, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mattn/go-shellwords"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"

	"github.com/chazu/molsurf/pkg/logging"
	"github.com/chazu/molsurf/pkg/partition"
	"github.com/chazu/molsurf/pkg/solver"
)

// Config holds all molsurf configuration.
type Config struct {
	Solver    SolverConfig    `toml:"solver"`
	Occlusion OcclusionConfig `toml:"occlusion"`
	Surface   SurfaceConfig   `toml:"surface"`
	Logging   LoggingConfig   `toml:"logging"`
	Viewer    ViewerConfig    `toml:"viewer"`
}

// SolverConfig configures the geometry solver.
type SolverConfig struct {
	// Backend is "msms" for the external program or "sdfx" for the
	// in-process mesher.
	Backend string `toml:"backend" validate:"oneof=msms sdfx"`
	Path    string `toml:"path" validate:"required_if=Backend msms"`
	// Args are extra arguments placed before the generated ones, parsed
	// with shell quoting rules.
	Args          string  `toml:"args"`
	ProbeRadius   float64 `toml:"probe_radius" validate:"gt=0"`
	Density       float64 `toml:"density" validate:"gt=0"`
	HDensitySmall float64 `toml:"hdensity_small" validate:"gt=0"`
	HDensityLarge float64 `toml:"hdensity_large" validate:"gt=0"`
	LargeAtoms    int     `toml:"large_atoms" validate:"gt=0"`
}

// OcclusionConfig configures the ambient occlusion solver.
type OcclusionConfig struct {
	Enabled     bool    `toml:"enabled"`
	Path        string  `toml:"path"`
	Steps       int     `toml:"steps" validate:"gt=0"`
	MaxDistance float64 `toml:"max_distance" validate:"gt=0"`
}

// SurfaceConfig holds the defaults of new surfaces.
type SurfaceConfig struct {
	Scheme string `toml:"scheme" validate:"oneof=all monochrome chain residue element hydrophobicity secondary-structure ss"`
	// Color is a "#rrggbb" base color; empty picks a random preset.
	Color   string  `toml:"color" validate:"omitempty,hexcolor"`
	AOScale float64 `toml:"ao_scale" validate:"gt=0,lte=1"`
	Alpha   int     `toml:"alpha" validate:"gte=0,lte=255"`
	// Tables is an optional TOML file overriding the color tables.
	Tables string `toml:"tables"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `toml:"level" validate:"oneof=debug info warn error"`
	Format string `toml:"format" validate:"oneof=text json"`
}

// ViewerConfig configures the websocket viewer endpoint.
type ViewerConfig struct {
	Addr string `toml:"addr" validate:"omitempty,hostname_port"`
}

// Default returns the built-in configuration for the running platform.
func Default() *Config {
	msms, ao := DefaultPaths(runtime.GOOS)
	return &Config{
		Solver: SolverConfig{
			Backend:       "msms",
			Path:          msms,
			ProbeRadius:   solver.DefaultProbeRadius,
			Density:       solver.DefaultDensity,
			HDensitySmall: solver.DefaultHDensitySmall,
			HDensityLarge: solver.DefaultHDensityLarge,
			LargeAtoms:    solver.LargeStructureAtoms,
		},
		Occlusion: OcclusionConfig{
			Enabled:     ao != "",
			Path:        ao,
			Steps:       512,
			MaxDistance: 50,
		},
		Surface: SurfaceConfig{
			Scheme:  "chain",
			AOScale: 1,
			Alpha:   255,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPaths returns the bundled solver executables for goos. The
// occlusion path is empty where no build exists.
func DefaultPaths(goos string) (msms, occlusion string) {
	switch goos {
	case "linux":
		return filepath.Join("bin", "linux", "msms"), filepath.Join("bin", "linux", "AOEmbree")
	case "windows":
		return filepath.Join("bin", "win32", "msms.exe"), filepath.Join("bin", "win32", "AOEmbree.exe")
	case "darwin":
		return filepath.Join("bin", "darwin", "msms"), ""
	}
	return "", ""
}

// Load builds the configuration. The TOML file named by MOLSURF_CONFIG, if
// set, is applied over the defaults; environment variables, including
// those from a .env file in the working directory, override both.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logging.Logger().Debug(".env file not loaded", "error", err)
	}

	cfg := Default()
	if path := os.Getenv("MOLSURF_CONFIG"); path != "" {
		if err := cfg.ReadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// ReadFile decodes a TOML file over c. Keys absent from the file keep
// their current values.
func (c *Config) ReadFile(path string) error {
	path, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("config path %s: %w", path, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()
	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("decoding config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Solver.Backend = getEnv("MOLSURF_BACKEND", c.Solver.Backend)
	c.Solver.Path = getEnv("MSMS_PATH", c.Solver.Path)
	c.Solver.Args = getEnv("MSMS_ARGS", c.Solver.Args)
	c.Solver.ProbeRadius = getFloatEnv("MSMS_PROBE_RADIUS", c.Solver.ProbeRadius)
	c.Solver.Density = getFloatEnv("MSMS_DENSITY", c.Solver.Density)
	c.Solver.HDensitySmall = getFloatEnv("MSMS_HDENSITY_SMALL", c.Solver.HDensitySmall)
	c.Solver.HDensityLarge = getFloatEnv("MSMS_HDENSITY_LARGE", c.Solver.HDensityLarge)
	c.Solver.LargeAtoms = getIntEnv("MSMS_LARGE_ATOMS", c.Solver.LargeAtoms)

	c.Occlusion.Enabled = getBoolEnv("AO_ENABLED", c.Occlusion.Enabled)
	c.Occlusion.Path = getEnv("AO_PATH", c.Occlusion.Path)
	c.Occlusion.Steps = getIntEnv("AO_STEPS", c.Occlusion.Steps)
	c.Occlusion.MaxDistance = getFloatEnv("AO_MAX_DISTANCE", c.Occlusion.MaxDistance)

	c.Surface.Scheme = getEnv("SURFACE_SCHEME", c.Surface.Scheme)
	c.Surface.Color = getEnv("SURFACE_COLOR", c.Surface.Color)
	c.Surface.AOScale = getFloatEnv("SURFACE_AO_SCALE", c.Surface.AOScale)
	c.Surface.Alpha = getIntEnv("SURFACE_ALPHA", c.Surface.Alpha)
	c.Surface.Tables = getEnv("COLOR_TABLES", c.Surface.Tables)

	c.Logging.Level = strings.ToLower(getEnv("LOG_LEVEL", c.Logging.Level))
	c.Logging.Format = strings.ToLower(getEnv("LOG_FORMAT", c.Logging.Format))

	c.Viewer.Addr = getEnv("VIEWER_ADDR", c.Viewer.Addr)
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.Solver.Path, &c.Occlusion.Path, &c.Surface.Tables} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expanding %s: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, validationMessage(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func validationMessage(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required_if":
		return fmt.Sprintf("%s is required when %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "gt", "gte", "lte":
		return fmt.Sprintf("%s must be %s %s, got %v", field, fe.Tag(), fe.Param(), fe.Value())
	case "hexcolor":
		return fmt.Sprintf("%s must be a hex color, got %q", field, fe.Value())
	case "hostname_port":
		return fmt.Sprintf("%s must be host:port, got %q", field, fe.Value())
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}

// Quality returns the partition quality settings.
func (c *SolverConfig) Quality() partition.Quality {
	return partition.Quality{
		ProbeRadius:   c.ProbeRadius,
		Density:       c.Density,
		HDensitySmall: c.HDensitySmall,
		HDensityLarge: c.HDensityLarge,
		LargeAtoms:    c.LargeAtoms,
	}
}

// Process returns how to launch the geometry solver.
func (c *SolverConfig) Process() (solver.Process, error) {
	return process(c.Path, c.Args)
}

// Process returns how to launch the occlusion solver.
func (c *OcclusionConfig) Process() (solver.Process, error) {
	return process(c.Path, "")
}

// process builds a solver.Process. Executables shipped in a bin/linux
// directory find their shared libraries next to them.
func process(path, args string) (solver.Process, error) {
	p := solver.Process{Path: path}
	if args != "" {
		parsed, err := shellwords.Parse(args)
		if err != nil {
			return p, fmt.Errorf("parsing solver args %q: %w", args, err)
		}
		p.Args = parsed
	}
	if dir := filepath.Dir(path); runtime.GOOS == "linux" && filepath.Base(dir) == "linux" {
		p.Env = []string{"LD_LIBRARY_PATH=" + dir}
	}
	return p, nil
}

// AOScaleValue returns the AO scale as float32.
func (c *SurfaceConfig) AOScaleValue() float32 {
	return float32(c.AOScale)
}

// AlphaValue returns the configured alpha in [0,1].
func (c *SurfaceConfig) AlphaValue() float32 {
	return float32(c.Alpha) / 255
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		logging.Logger().Warn("invalid integer, using default", "key", key, "value", value, "default", defaultValue)
		return defaultValue
	}
	return v
}

func getFloatEnv(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logging.Logger().Warn("invalid number, using default", "key", key, "value", value, "default", defaultValue)
		return defaultValue
	}
	return v
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(value)
	if err != nil {
		logging.Logger().Warn("invalid boolean, using default", "key", key, "value", value, "default", defaultValue)
		return defaultValue
	}
	return v
}
