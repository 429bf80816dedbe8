package importer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/eugenenazirov/slab-nesting/internal/nesting"
)

// sizePattern accepts "1000x2000", "1000 x 2000", "35*120", "35×120.5".
var sizePattern = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*[x×*X]\s*(\d+(?:\.\d+)?)\s*$`)

// ParseSize parses a "WIDTHxHEIGHT" string.
func ParseSize(text string) (width, height float64, err error) {
	match := sizePattern.FindStringSubmatch(text)
	if match == nil {
		return 0, 0, fmt.Errorf("invalid size %q, expected WIDTHxHEIGHT", text)
	}
	width, _ = strconv.ParseFloat(match[1], 64)
	height, _ = strconv.ParseFloat(match[2], 64)
	return width, height, nil
}

// ParseSlab parses a slab size such as "1000x2000".
func ParseSlab(text string) (nesting.SlabSpec, error) {
	w, h, err := ParseSize(text)
	if err != nil {
		return nesting.SlabSpec{}, err
	}
	return nesting.SlabSpec{Width: w, Height: h}, nil
}

// ParsePiece parses "NAME:WxH" or "NAME:WxH:#rrggbb". The name may itself
// contain colons; the size is taken from the last or second to last field.
func ParsePiece(text string) (nesting.PieceSpec, error) {
	parts := strings.Split(text, ":")
	if len(parts) < 2 {
		return nesting.PieceSpec{}, fmt.Errorf("invalid piece %q, expected NAME:WIDTHxHEIGHT", text)
	}

	var color nesting.Color
	if last := strings.TrimSpace(parts[len(parts)-1]); strings.HasPrefix(last, "#") && len(parts) >= 3 {
		color = nesting.Color(strings.ToLower(last))
		parts = parts[:len(parts)-1]
	}

	w, h, err := ParseSize(parts[len(parts)-1])
	if err != nil {
		return nesting.PieceSpec{}, fmt.Errorf("piece %q: %w", text, err)
	}
	return nesting.PieceSpec{
		Name:   strings.TrimSpace(strings.Join(parts[:len(parts)-1], ":")),
		Width:  w,
		Height: h,
		Color:  color,
	}, nil
}
