package render

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/yofu/dxf"
	dxfcolor "github.com/yofu/dxf/color"
	"github.com/yofu/dxf/drawing"

	"github.com/eugenenazirov/slab-nesting/internal/nesting"
)

const slabLayer = "SLAB"

// DXF writes the layout in slab units for CAD and CNC tooling. Each piece type
// gets its own layer. DXF has its Y axis pointing up, so rows are mirrored
// against the slab height.
func DXF(w io.Writer, slab nesting.SlabSpec, placements []nesting.Placement) error {
	rects, err := nesting.Project(slab, placements, 1)
	if err != nil {
		return fmt.Errorf("project layout: %w", err)
	}

	dr := dxf.NewDrawing()

	if _, err := dr.AddLayer(slabLayer, dxfcolor.ColorNumber(8), dxf.DefaultLineType, true); err != nil {
		return fmt.Errorf("add slab layer: %w", err)
	}
	if _, err := dr.LwPolyline(true, rectVertices(0, 0, slab.Width, slab.Height)...); err != nil {
		return fmt.Errorf("draw slab outline: %w", err)
	}

	layers := make([]string, len(placements))
	for i, p := range placements {
		layers[i] = layerName(i, p.Spec.Name)
		if _, err := dr.AddLayer(layers[i], dxfcolor.ColorNumber(i%6+1), dxf.DefaultLineType, false); err != nil {
			return fmt.Errorf("add layer %s: %w", layers[i], err)
		}
	}

	for _, r := range rects {
		if err := dr.ChangeLayer(layers[r.Piece]); err != nil {
			return fmt.Errorf("select layer %s: %w", layers[r.Piece], err)
		}
		y := slab.Height - r.Y - r.Height
		if _, err := dr.LwPolyline(true, rectVertices(r.X, y, r.Width, r.Height)...); err != nil {
			return fmt.Errorf("draw piece %d: %w", r.Piece, err)
		}
	}

	return writeDrawing(w, dr)
}

func rectVertices(x, y, w, h float64) [][]float64 {
	return [][]float64{
		{x, y},
		{x + w, y},
		{x + w, y + h},
		{x, y + h},
	}
}

// layerName builds a DXF-safe layer name; the index keeps duplicate piece
// names apart.
func layerName(index int, name string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, name)
	if clean == "" {
		return fmt.Sprintf("PIECE_%d", index+1)
	}
	return fmt.Sprintf("PIECE_%d_%s", index+1, strings.ToUpper(clean))
}

// writeDrawing round-trips through a temporary file since the drawing only
// saves to a path.
func writeDrawing(w io.Writer, dr *drawing.Drawing) error {
	dir, err := os.MkdirTemp("", "slab-dxf-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "layout.dxf")
	if err := dr.SaveAs(path); err != nil {
		return fmt.Errorf("save dxf: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open dxf: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("copy dxf: %w", err)
	}
	return nil
}
