package colorscheme

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// RGBA is a color with channels in [0,1].
type RGBA struct {
	R float32 `json:"r"`
	G float32 `json:"g"`
	B float32 `json:"b"`
	A float32 `json:"a"`
}

// White is opaque white.
var White = RGBA{1, 1, 1, 1}

// Gray is the fallback color for unmapped residues.
var Gray = RGBA{0.5, 0.5, 0.5, 1}

// ParseHex parses "#rrggbb" or "#rrggbbaa", with or without the leading
// '#'. A missing alpha is opaque.
func ParseHex(s string) (RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	alpha := float32(1)
	if len(s) == 8 {
		a, err := strconv.ParseUint(s[6:], 16, 8)
		if err != nil {
			return RGBA{}, fmt.Errorf("color %q: bad alpha: %w", s, err)
		}
		alpha = float32(a) / 255
		s = s[:6]
	}
	if len(s) != 6 {
		return RGBA{}, fmt.Errorf("color %q: want 6 or 8 hex digits", s)
	}
	c, err := colorful.Hex("#" + s)
	if err != nil {
		return RGBA{}, fmt.Errorf("color %q: %w", s, err)
	}
	return RGBA{float32(c.R), float32(c.G), float32(c.B), alpha}, nil
}

// MustParseHex is ParseHex for constant tables; it panics on bad input.
func MustParseHex(s string) RGBA {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c RGBA) colorful() colorful.Color {
	return colorful.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B)}
}

// Hex formats the RGB channels as "#rrggbb".
func (c RGBA) Hex() string {
	return c.colorful().Clamped().Hex()
}

// Opaque returns c with alpha set to 1.
func (c RGBA) Opaque() RGBA {
	c.A = 1
	return c
}

// WithAlpha returns c with alpha a.
func (c RGBA) WithAlpha(a float32) RGBA {
	c.A = a
	return c
}

// BlendWhite moves each RGB channel of c toward 1 by t: t=0 returns c,
// t=1 returns white. The result is opaque.
func (c RGBA) BlendWhite(t float32) RGBA {
	switch {
	case t <= 0:
		return c.Opaque()
	case t >= 1:
		return White
	}
	b := c.colorful().BlendRgb(colorful.Color{R: 1, G: 1, B: 1}, float64(t))
	return RGBA{float32(b.R), float32(b.G), float32(b.B), 1}
}

// Preset is a named base color.
type Preset struct {
	Name string
	Hex  string
}

// Presets are the named base colors offered to users. The first entry is
// the placeholder shown for a custom color.
var Presets = []Preset{
	{"Custom", "#808080"},
	{"Red", "#ff0000"},
	{"Orange", "#ff8000"},
	{"Yellow", "#ffff00"},
	{"Yellow Green", "#80ff00"},
	{"Green", "#00ff00"},
	{"Aqua Green", "#00ff80"},
	{"Cyan", "#00ffff"},
	{"Azure", "#0080ff"},
	{"Blue", "#0000ff"},
	{"Violet", "#8000ff"},
	{"Magenta", "#ff00ff"},
	{"Pink", "#ff0080"},
	{"White", "#ffffff"},
	{"Gray", "#808080"},
	{"Black", "#000000"},
}

// RandomPreset returns one of the saturated presets, Red through Pink.
func RandomPreset() Preset {
	return Presets[1+rand.IntN(12)]
}

// PresetByName looks up a preset, ignoring case.
func PresetByName(name string) (Preset, bool) {
	for _, p := range Presets {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Preset{}, false
}
