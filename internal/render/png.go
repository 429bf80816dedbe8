package render

import (
	"fmt"
	"io"

	"github.com/fogleman/gg"

	"github.com/eugenenazirov/slab-nesting/internal/palette"
)

// PNG rasterises the diagram at one pixel per display unit.
func PNG(w io.Writer, d Diagram) error {
	pw, ph := d.pixelSize()
	dc := gg.NewContext(pw, ph)

	dc.SetColor(palette.RGBA(backgroundColor))
	dc.Clear()

	dc.SetLineWidth(1)
	for _, r := range d.Rects {
		dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
		dc.SetColor(palette.RGBA(r.Color))
		dc.FillPreserve()
		dc.SetColor(palette.RGBA(strokeColor))
		dc.Stroke()
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
