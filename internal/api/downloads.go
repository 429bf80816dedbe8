package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/eugenenazirov/slab-nesting/internal/export"
	"github.com/eugenenazirov/slab-nesting/internal/nesting"
	"github.com/eugenenazirov/slab-nesting/internal/render"
	"github.com/eugenenazirov/slab-nesting/internal/session"
)

const (
	contentTypeSVG  = "image/svg+xml"
	contentTypePNG  = "image/png"
	contentTypeDXF  = "application/dxf"
	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeHTML = "text/html; charset=utf-8"
)

func (h *Handler) handleLayoutSVG(w http.ResponseWriter, r *http.Request) {
	h.serveDiagram(w, r, contentTypeSVG, "", render.SVG)
}

func (h *Handler) handleLayoutPNG(w http.ResponseWriter, r *http.Request) {
	h.serveDiagram(w, r, contentTypePNG, "", render.PNG)
}

func (h *Handler) handleLayoutDXF(w http.ResponseWriter, r *http.Request) {
	h.serveOutcome(w, contentTypeDXF, "layout.dxf", func(buf io.Writer, out session.Outcome) error {
		return render.DXF(buf, out.Slab, out.Result.Placements)
	})
}

func (h *Handler) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	h.serveReport(w, r, contentTypePDF, "report.pdf", export.PDF)
}

func (h *Handler) handleReportXLSX(w http.ResponseWriter, r *http.Request) {
	h.serveReport(w, r, contentTypeXLSX, "report.xlsx", export.XLSX)
}

func (h *Handler) handleChartHTML(w http.ResponseWriter, r *http.Request) {
	h.serveReport(w, r, contentTypeHTML, "", export.Chart)
}

// serveDiagram draws the session layout. An "extent" query parameter overrides
// the session scale for this response only.
func (h *Handler) serveDiagram(w http.ResponseWriter, r *http.Request, contentType, filename string, draw func(io.Writer, render.Diagram) error) {
	scaleFor, ok := extentOverride(w, r)
	if !ok {
		return
	}
	h.serveOutcome(w, contentType, filename, func(buf io.Writer, out session.Outcome) error {
		scale := out.Scale
		if scaleFor != nil {
			scale = scaleFor(out.Slab)
		}
		d, err := render.NewDiagram(out.Slab, out.Result.Placements, scale)
		if err != nil {
			return err
		}
		return draw(buf, d)
	})
}

func (h *Handler) serveReport(w http.ResponseWriter, r *http.Request, contentType, filename string, write func(io.Writer, export.Report) error) {
	title := r.URL.Query().Get("title")
	h.serveOutcome(w, contentType, filename, func(buf io.Writer, out session.Outcome) error {
		return write(buf, export.Report{
			Title:       title,
			Slab:        out.Slab,
			Result:      *out.Result,
			GeneratedAt: h.clock(),
		})
	})
}

// serveOutcome renders into memory first so a failing writer still produces a
// JSON error instead of a truncated file.
func (h *Handler) serveOutcome(w http.ResponseWriter, contentType, filename string, write func(io.Writer, session.Outcome) error) {
	out := h.session.Outcome()
	if !out.OK() {
		writeLayoutError(w, out.Err)
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, out); err != nil {
		writeLayoutError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func extentOverride(w http.ResponseWriter, r *http.Request) (func(nesting.SlabSpec) float64, bool) {
	raw := r.URL.Query().Get("extent")
	if raw == "" {
		return nil, true
	}
	extent, err := strconv.ParseFloat(raw, 64)
	if err != nil || !(extent > 0) || extent > nesting.MaxDisplayExtent {
		writeError(w, http.StatusBadRequest, "Invalid request",
			fmt.Sprintf("extent must be a number between 0 and %v", nesting.MaxDisplayExtent))
		return nil, false
	}
	return func(slab nesting.SlabSpec) float64 {
		return nesting.ScaleFor(extent, slab)
	}, true
}
