// Package export turns a calculation into documents: a PDF report with the
// layout diagram, an XLSX workbook and an HTML bar chart.
package export

import (
	"errors"
	"time"

	"github.com/eugenenazirov/slab-nesting/internal/nesting"
)

// ErrNoResult is returned when there is nothing to export.
var ErrNoResult = errors.New("no calculation result to export")

// Report is the input shared by all exporters.
type Report struct {
	Title       string
	Slab        nesting.SlabSpec
	Result      nesting.CalculationResult
	GeneratedAt time.Time
}

// Summary is the machine-readable digest of a report, embedded as a QR code in
// the PDF and written to the XLSX summary sheet.
type Summary struct {
	SlabWidth  float64        `json:"slab_w"`
	SlabHeight float64        `json:"slab_h"`
	Pieces     []SummaryPiece `json:"pieces"`
	WasteArea  float64        `json:"waste"`
}

// SummaryPiece is one placement within a Summary.
type SummaryPiece struct {
	Name   string  `json:"name"`
	Width  float64 `json:"w"`
	Height float64 `json:"h"`
	Count  int     `json:"count"`
}

// Summarize builds the digest of r.
func Summarize(r Report) Summary {
	s := Summary{
		SlabWidth:  r.Slab.Width,
		SlabHeight: r.Slab.Height,
		Pieces:     make([]SummaryPiece, 0, len(r.Result.Placements)),
		WasteArea:  r.Result.WasteArea,
	}
	for _, p := range r.Result.Placements {
		s.Pieces = append(s.Pieces, SummaryPiece{
			Name:   p.Spec.Name,
			Width:  p.Spec.Width,
			Height: p.Spec.Height,
			Count:  p.Count,
		})
	}
	return s
}

func (r Report) title() string {
	if r.Title == "" {
		return "Slab cutting layout"
	}
	return r.Title
}
