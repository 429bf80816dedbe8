package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/eugenenazirov/slab-nesting/internal/nesting"
	"github.com/eugenenazirov/slab-nesting/internal/palette"
)

// Page layout constants (A4 portrait in mm).
const (
	pageWidth    = 210.0
	pageHeight   = 297.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 10.0
	statsHeight  = 18.0
	qrSize       = 30.0
	legendHeight = 60.0
	drawAreaTop  = marginTop + headerHeight + statsHeight
)

// PDF writes a one-page report: title, statistics, the layout diagram scaled
// to the page, a legend with per-piece counts, and a QR code carrying the
// JSON summary.
func PDF(w io.Writer, r Report) error {
	if r.Slab.Width <= 0 || r.Slab.Height <= 0 {
		return ErrNoResult
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight-qrSize, headerHeight, r.title(), "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	pdf.CellFormat(0, 5, fmt.Sprintf("Slab: %.2f x %.2f mm", r.Slab.Width, r.Slab.Height), "", 1, "L", false, 0, "")
	pdf.SetX(marginLeft)
	pdf.CellFormat(0, 5, fmt.Sprintf("Pieces: %d | Waste area: %.2f sq mm | Efficiency: %.1f%%",
		r.Result.TotalCount(), r.Result.WasteArea, r.Result.Efficiency()), "", 1, "L", false, 0, "")
	if !r.GeneratedAt.IsZero() {
		pdf.SetX(marginLeft)
		pdf.CellFormat(0, 5, "Generated: "+r.GeneratedAt.Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	}

	if err := drawSummaryQR(pdf, r); err != nil {
		return err
	}

	canvasH, err := drawLayout(pdf, r)
	if err != nil {
		return err
	}
	drawLegend(pdf, r, drawAreaTop+canvasH+5)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// drawLayout renders the diagram inside the drawing area and returns its
// height on the page.
func drawLayout(pdf *fpdf.Fpdf, r Report) (float64, error) {
	drawWidth := pageWidth - marginLeft - marginRight
	drawHeight := pageHeight - drawAreaTop - marginBottom - legendHeight

	scale := min(drawWidth/r.Slab.Width, drawHeight/r.Slab.Height)
	rects, err := nesting.Project(r.Slab, r.Result.Placements, scale)
	if err != nil {
		return 0, fmt.Errorf("project layout: %w", err)
	}
	canvasW, canvasH := nesting.Canvas(r.Slab, scale)
	offsetX := marginLeft + (drawWidth-canvasW)/2
	offsetY := drawAreaTop

	pdf.SetFillColor(240, 240, 240)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.4)
	pdf.Rect(offsetX, offsetY, canvasW, canvasH, "FD")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.1)
	for _, rect := range rects {
		cr, cg, cb := palette.RGB(rect.Color)
		pdf.SetFillColor(cr, cg, cb)
		pdf.Rect(offsetX+rect.X, offsetY+rect.Y, rect.Width, rect.Height, "FD")
	}

	pdf.SetFont("Helvetica", "", 7)
	pdf.SetTextColor(80, 80, 80)
	pdf.SetXY(offsetX, offsetY+canvasH+0.5)
	pdf.CellFormat(canvasW, 3, fmt.Sprintf("%.0f mm", r.Slab.Width), "", 0, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	return canvasH + 4, nil
}

func drawLegend(pdf *fpdf.Fpdf, r Report, startY float64) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetXY(marginLeft, startY)
	pdf.CellFormat(0, 6, "Results", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	y := startY + 7
	for _, p := range r.Result.Placements {
		if y > pageHeight-marginBottom-5 {
			pdf.SetXY(marginLeft, y)
			pdf.CellFormat(0, 5, "...", "", 0, "L", false, 0, "")
			break
		}
		cr, cg, cb := palette.RGB(p.Spec.Color)
		pdf.SetFillColor(cr, cg, cb)
		pdf.Rect(marginLeft, y+0.5, 4, 4, "FD")

		pdf.SetXY(marginLeft+6, y)
		line := fmt.Sprintf("%s (%.0f x %.0f): %d pcs (%d x %d)",
			p.Spec.Name, p.Spec.Width, p.Spec.Height, p.Count, p.Across, p.Down)
		pdf.CellFormat(0, 5, line, "", 0, "L", false, 0, "")
		y += 6
	}
}

func drawSummaryQR(pdf *fpdf.Fpdf, r Report) error {
	data, err := json.Marshal(Summarize(r))
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	qrPNG, err := qrcode.Encode(string(data), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("generate QR code: %w", err)
	}

	pdf.RegisterImageOptionsReader("summary_qr", fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))
	pdf.ImageOptions("summary_qr", pageWidth-marginRight-qrSize, marginTop-5, qrSize, qrSize,
		false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	return nil
}
