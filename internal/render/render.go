// Package render draws projected layouts. Every renderer receives the same
// screen-space rectangles, so the diagram looks alike in each format: a grey
// slab background with every piece type's grid overlaid from the top-left
// corner.
package render

import (
	"fmt"
	"math"

	"github.com/eugenenazirov/slab-nesting/internal/nesting"
)

const (
	backgroundColor nesting.Color = "#f0f0f0"
	strokeColor     nesting.Color = "#000000"
)

// Diagram is a projected layout ready for drawing.
type Diagram struct {
	Slab  nesting.SlabSpec
	Scale float64
	Rects []nesting.ScreenRect
}

// NewDiagram projects placements at scale.
func NewDiagram(slab nesting.SlabSpec, placements []nesting.Placement, scale float64) (Diagram, error) {
	rects, err := nesting.Project(slab, placements, scale)
	if err != nil {
		return Diagram{}, fmt.Errorf("project layout: %w", err)
	}
	return Diagram{
		Slab:  slab,
		Scale: scale,
		Rects: rects,
	}, nil
}

// Size returns the canvas size in display units.
func (d Diagram) Size() (width, height float64) {
	return nesting.Canvas(d.Slab, d.Scale)
}

// pixelSize rounds the canvas up to whole pixels, never below one.
func (d Diagram) pixelSize() (int, int) {
	w, h := d.Size()
	return max(int(math.Ceil(w)), 1), max(int(math.Ceil(h)), 1)
}
