package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate clears the variables Load reads so the test environment does not
// leak in.
func isolate(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"MOLSURF_CONFIG", "MOLSURF_BACKEND", "MSMS_PATH", "MSMS_ARGS", "MSMS_PROBE_RADIUS",
		"MSMS_DENSITY", "MSMS_HDENSITY_SMALL", "MSMS_HDENSITY_LARGE", "MSMS_LARGE_ATOMS",
		"AO_ENABLED", "AO_PATH", "AO_STEPS", "AO_MAX_DISTANCE", "SURFACE_SCHEME",
		"SURFACE_COLOR", "SURFACE_AO_SCALE", "SURFACE_ALPHA", "COLOR_TABLES",
		"LOG_LEVEL", "LOG_FORMAT", "VIEWER_ADDR",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("MSMS_PATH", "/opt/msms/msms")
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "msms", cfg.Solver.Backend)
	assert.Equal(t, "/opt/msms/msms", cfg.Solver.Path)
	assert.Equal(t, 1.5, cfg.Solver.ProbeRadius)
	assert.Equal(t, 10.0, cfg.Solver.Density)
	assert.Equal(t, 20000, cfg.Solver.LargeAtoms)
	assert.Equal(t, 512, cfg.Occlusion.Steps)
	assert.Equal(t, 50.0, cfg.Occlusion.MaxDistance)
	assert.Equal(t, "chain", cfg.Surface.Scheme)
	assert.Equal(t, float32(1), cfg.Surface.AlphaValue())
	assert.Equal(t, float32(1), cfg.Surface.AOScaleValue())
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFileThenEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "molsurf.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[solver]
backend = "sdfx"
probe_radius = 1.4

[surface]
color = "#ff8000"
alpha = 200

[viewer]
addr = "localhost:8090"
`), 0o644))
	t.Setenv("MOLSURF_CONFIG", path)
	t.Setenv("SURFACE_ALPHA", "128")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("AO_STEPS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sdfx", cfg.Solver.Backend)
	assert.Equal(t, 1.4, cfg.Solver.ProbeRadius)
	assert.Equal(t, 10.0, cfg.Solver.Density, "keys absent from the file keep defaults")
	assert.Equal(t, "#ff8000", cfg.Surface.Color)
	assert.Equal(t, 128, cfg.Surface.Alpha, "environment wins over the file")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 512, cfg.Occlusion.Steps, "bad numbers fall back")
	assert.Equal(t, "localhost:8090", cfg.Viewer.Addr)
}

func TestLoadErrors(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	unknown := filepath.Join(dir, "unknown.toml")
	require.NoError(t, os.WriteFile(unknown, []byte("[solver]\nspeed = 3\n"), 0o644))

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("MOLSURF_CONFIG", filepath.Join(dir, "nope.toml"))
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("unknown key", func(t *testing.T) {
		t.Setenv("MOLSURF_CONFIG", unknown)
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("invalid value", func(t *testing.T) {
		t.Setenv("SURFACE_AO_SCALE", "1.5")
		_, err := Load()
		assert.ErrorContains(t, err, "Surface.AOScale")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown backend", func(c *Config) { c.Solver.Backend = "nanoshaper" }, "Solver.Backend must be one of"},
		{"msms without path", func(c *Config) { c.Solver.Path = "" }, "Solver.Path is required"},
		{"sdfx without path", func(c *Config) { c.Solver.Backend, c.Solver.Path = "sdfx", "" }, ""},
		{"negative probe", func(c *Config) { c.Solver.ProbeRadius = -1 }, "Solver.ProbeRadius"},
		{"bad color", func(c *Config) { c.Surface.Color = "orange" }, "Surface.Color must be a hex color"},
		{"alpha too large", func(c *Config) { c.Surface.Alpha = 256 }, "Surface.Alpha"},
		{"bad scheme", func(c *Config) { c.Surface.Scheme = "rainbow" }, "Surface.Scheme"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "Logging.Format"},
		{"bad viewer addr", func(c *Config) { c.Viewer.Addr = "8090" }, "Viewer.Addr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Solver.Path = "/opt/msms/msms"
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestHomeExpansion(t *testing.T) {
	isolate(t)
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("MSMS_PATH", "~/tools/msms")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "tools", "msms"), cfg.Solver.Path)
}

func TestProcess(t *testing.T) {
	c := SolverConfig{Path: "/opt/msms", Args: `-verbose "-name=a b"`}
	p, err := c.Process()
	require.NoError(t, err)
	assert.Equal(t, "/opt/msms", p.Path)
	assert.Equal(t, []string{"-verbose", "-name=a b"}, p.Args)
	assert.Empty(t, p.Env)

	c.Args = `"unterminated`
	_, err = c.Process()
	assert.Error(t, err)

	if runtime.GOOS == "linux" {
		msms, ao := DefaultPaths("linux")
		p, err = (&OcclusionConfig{Path: ao}).Process()
		require.NoError(t, err)
		assert.Equal(t, []string{"LD_LIBRARY_PATH=" + filepath.Dir(msms)}, p.Env)
	}
}

func TestDefaultPaths(t *testing.T) {
	msms, ao := DefaultPaths("windows")
	assert.Equal(t, filepath.Join("bin", "win32", "msms.exe"), msms)
	assert.Equal(t, filepath.Join("bin", "win32", "AOEmbree.exe"), ao)

	msms, ao = DefaultPaths("darwin")
	assert.NotEmpty(t, msms)
	assert.Empty(t, ao, "no occlusion build for macOS")

	msms, _ = DefaultPaths("plan9")
	assert.Empty(t, msms)
}

func TestQuality(t *testing.T) {
	c := Default().Solver
	c.HDensityLarge = 0.5
	q := c.Quality()
	assert.Equal(t, 0.5, q.HDensityLarge)
	assert.Equal(t, c.LargeAtoms, q.LargeAtoms)
}
