package nesting

import (
	"fmt"
	"math"
	"math/bits"
)

const (
	// DefaultDisplayExtent is the on-screen length of the slab's longer side.
	DefaultDisplayExtent = 300.0
	// MaxDisplayExtent bounds the display extent so raster canvases stay small.
	MaxDisplayExtent = 10000.0
)

// ScaleFor returns the factor that maps the slab's longer side to extent
// display units. It returns 0 for a slab without a positive dimension.
func ScaleFor(extent float64, slab SlabSpec) float64 {
	longest := max(slab.Width, slab.Height)
	if longest <= 0 || extent <= 0 {
		return 0
	}
	return extent / longest
}

// Canvas returns the display size of the slab background at scale.
func Canvas(slab SlabSpec, scale float64) (width, height float64) {
	return slab.Width * scale, slab.Height * scale
}

// MaxRects bounds the number of rectangles a single projection may produce.
const MaxRects = 100_000

// Project lays out each placement's grid in row-major order from the slab's
// top-left corner and returns the rectangles in display units. Every placement
// starts at the same origin, so grids of different piece types overlap.
//
// Placements are checked against the slab first: a negative grid, a count
// other than Across*Down, or a grid that would not fit the slab yields
// ErrInvalidPlacement. More than MaxRects rectangles in total yields
// ErrTooManyRects. A non-positive scale yields no rectangles.
func Project(slab SlabSpec, placements []Placement, scale float64) ([]ScreenRect, error) {
	total := 0
	for i, p := range placements {
		if err := checkPlacement(slab, p); err != nil {
			return nil, fmt.Errorf("placement %d: %w", i, err)
		}
		if p.Count > MaxRects-total {
			return nil, fmt.Errorf("%w: more than %d", ErrTooManyRects, MaxRects)
		}
		total += p.Count
	}
	if scale <= 0 {
		return []ScreenRect{}, nil
	}

	rects := make([]ScreenRect, 0, total)
	for idx, p := range placements {
		w := p.Spec.Width * scale
		h := p.Spec.Height * scale
		for row := 0; row < p.Down; row++ {
			for col := 0; col < p.Across; col++ {
				rects = append(rects, ScreenRect{
					X:      float64(col) * p.Spec.Width * scale,
					Y:      float64(row) * p.Spec.Height * scale,
					Width:  w,
					Height: h,
					Color:  p.Spec.Color,
					Piece:  idx,
					Row:    row,
					Col:    col,
				})
			}
		}
	}
	return rects, nil
}

// checkPlacement accepts exactly the grids Compute could have produced for
// the placement's piece on slab, plus smaller ones.
func checkPlacement(slab SlabSpec, p Placement) error {
	if p.Across < 0 || p.Down < 0 {
		return fmt.Errorf("%w: negative grid %dx%d", ErrInvalidPlacement, p.Across, p.Down)
	}
	if p.Count == 0 && (p.Across == 0 || p.Down == 0) {
		return nil
	}
	if !(p.Spec.Width > 0 && p.Spec.Height > 0) {
		return fmt.Errorf("%w: piece %q has non-positive dimensions", ErrInvalidPlacement, p.Spec.Name)
	}
	if float64(p.Across) > math.Floor(slab.Width/p.Spec.Width) || float64(p.Down) > math.Floor(slab.Height/p.Spec.Height) {
		return fmt.Errorf("%w: %dx%d grid of %q does not fit the slab", ErrInvalidPlacement, p.Across, p.Down, p.Spec.Name)
	}
	hi, lo := bits.Mul(uint(p.Across), uint(p.Down))
	if p.Count < 0 || hi != 0 || lo != uint(p.Count) {
		return fmt.Errorf("%w: count %d is not %dx%d", ErrInvalidPlacement, p.Count, p.Across, p.Down)
	}
	return nil
}
