// Package palette hands out opaque display colors for piece types.
package palette

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/eugenenazirov/slab-nesting/internal/nesting"
)

// fallback is used when a token cannot be parsed.
var fallback = color.NRGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xff}

// New returns a random "#rrggbb" token drawn from a version 4 UUID.
// Collisions are harmless; the token only distinguishes piece types on screen.
func New() nesting.Color {
	id := uuid.New()
	return nesting.Color(fmt.Sprintf("#%02x%02x%02x", id[0], id[1], id[2]))
}

// Valid reports whether c is a well-formed "#rrggbb" token.
func Valid(c nesting.Color) bool {
	_, err := parse(string(c))
	return err == nil
}

// RGBA converts a token to a color, falling back to neutral grey when the
// token is malformed.
func RGBA(c nesting.Color) color.NRGBA {
	rgb, err := parse(string(c))
	if err != nil {
		return fallback
	}
	return rgb
}

// RGB returns the 0-255 channels of a token, as used by PDF writers.
func RGB(c nesting.Color) (r, g, b int) {
	rgb := RGBA(c)
	return int(rgb.R), int(rgb.G), int(rgb.B)
}

func parse(raw string) (color.NRGBA, error) {
	hex, ok := strings.CutPrefix(strings.TrimSpace(raw), "#")
	if !ok || len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", raw)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", raw, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
