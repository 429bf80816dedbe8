package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/eugenenazirov/slab-nesting/internal/importer"
	"github.com/eugenenazirov/slab-nesting/internal/nesting"
	"github.com/eugenenazirov/slab-nesting/internal/session"
	"github.com/eugenenazirov/slab-nesting/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const maxUploadSize = 10 << 20

// Handler wires the session, its storage and the calculator into HTTP handlers.
type Handler struct {
	session    *session.Session
	storage    storage.Storage
	calculator nesting.Calculator

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler with the provided dependencies. The session
// must follow store.
func NewHandler(sess *session.Session, store storage.Storage, calc nesting.Calculator, opts ...HandlerOption) *Handler {
	h := &Handler{
		session:    sess,
		storage:    store,
		calculator: calc,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetSlab(w http.ResponseWriter, r *http.Request) {
	_ = r
	snap := h.storage.Snapshot()
	writeJSON(w, http.StatusOK, slabResponse{
		Width:     snap.Slab.Width,
		Height:    snap.Slab.Height,
		UpdatedAt: snap.UpdatedAt,
	})
}

func (h *Handler) handlePutSlab(w http.ResponseWriter, r *http.Request) {
	var req slabRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	if err := h.storage.SetSlab(nesting.SlabSpec{Width: req.Width, Height: req.Height}); err != nil {
		if errors.Is(err, storage.ErrInvalidSlab) {
			writeError(w, http.StatusBadRequest, "Invalid slab", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	snap := h.storage.Snapshot()
	writeJSON(w, http.StatusOK, slabResponse{
		Width:     snap.Slab.Width,
		Height:    snap.Slab.Height,
		UpdatedAt: snap.UpdatedAt,
		Message:   "Slab updated successfully",
	})
}

func (h *Handler) handleListPieces(w http.ResponseWriter, r *http.Request) {
	_ = r
	snap := h.storage.Snapshot()
	writeJSON(w, http.StatusOK, piecesResponse{
		Pieces:    pieceViews(snap.Pieces),
		UpdatedAt: snap.UpdatedAt,
	})
}

func (h *Handler) handleAddPiece(w http.ResponseWriter, r *http.Request) {
	var req pieceRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	draft := storage.PieceDraft{Name: strings.TrimSpace(req.Name), Color: req.Color}
	if req.Width != nil {
		draft.Width = *req.Width
	}
	if req.Height != nil {
		draft.Height = *req.Height
	}
	if (req.Width != nil && !(draft.Width > 0)) || (req.Height != nil && !(draft.Height > 0)) {
		writeError(w, http.StatusBadRequest, "Invalid piece", storage.ErrInvalidPiece.Error())
		return
	}

	index, piece, err := h.storage.AddPiece(draft)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidPiece) {
			writeError(w, http.StatusBadRequest, "Invalid piece", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, pieceResponse{
		Piece:   newPieceView(index, piece),
		Message: "Piece added",
	})
}

func (h *Handler) handleUpdatePiece(w http.ResponseWriter, r *http.Request) {
	index, ok := pieceIndex(w, r)
	if !ok {
		return
	}

	var req piecePatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	piece, err := h.storage.UpdatePiece(index, storage.PiecePatch{
		Name:   req.Name,
		Width:  req.Width,
		Height: req.Height,
	})
	if err != nil {
		writeStorageError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pieceResponse{
		Piece:   newPieceView(index, piece),
		Message: "Piece updated",
	})
}

func (h *Handler) handleDeletePiece(w http.ResponseWriter, r *http.Request) {
	index, ok := pieceIndex(w, r)
	if !ok {
		return
	}

	if err := h.storage.RemovePiece(index); err != nil {
		writeStorageError(w, err)
		return
	}

	snap := h.storage.Snapshot()
	writeJSON(w, http.StatusOK, piecesResponse{
		Pieces:    pieceViews(snap.Pieces),
		UpdatedAt: snap.UpdatedAt,
		Message:   fmt.Sprintf("Piece %d removed", index),
	})
}

func (h *Handler) handleImportPieces(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload", "expected a multipart form with a file field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload", "missing file field")
		return
	}
	defer file.Close()

	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = "append"
	}
	if mode != "append" && mode != "replace" {
		writeError(w, http.StatusBadRequest, "Invalid request", "mode must be append or replace")
		return
	}

	result, err := importer.Import(header.Filename, file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload", err.Error(), "Upload a .csv or .xlsx file")
		return
	}
	if !result.OK() {
		writeError(w, http.StatusBadRequest, "Invalid import file", strings.Join(result.Errors, "; "),
			"Provide name, width and height columns with positive numbers")
		return
	}

	if mode == "replace" {
		err = h.storage.ReplacePieces(result.Pieces)
	} else {
		err = h.storage.AppendPieces(result.Pieces)
	}
	if err != nil {
		writeStorageError(w, err)
		return
	}

	snap := h.storage.Snapshot()
	writeJSON(w, http.StatusOK, importResponse{
		Imported: len(result.Pieces),
		Mode:     mode,
		Pieces:   pieceViews(snap.Pieces),
		Warnings: result.Warnings,
	})
}

func (h *Handler) handleGetResult(w http.ResponseWriter, r *http.Request) {
	_ = r
	out := h.session.Outcome()
	if !out.OK() {
		writeValidationError(w, out.Err)
		return
	}
	writeJSON(w, http.StatusOK, newResultResponse(out.Slab, *out.Result, out.Scale, out.Version, out.ComputedAt))
}

func (h *Handler) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	rects, out, err := h.session.Layout()
	if err != nil {
		writeLayoutError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newLayoutResponse(out.Slab, out.Scale, rects))
}

func (h *Handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	start := time.Now()
	result, err := h.calculator.Compute(req.Slab, req.Pieces)
	elapsed := time.Since(start)
	if err != nil {
		writeValidationError(w, err)
		return
	}

	resp := newResultResponse(req.Slab, result, nesting.ScaleFor(h.session.DisplayExtent(), req.Slab), 0, time.Time{})
	resp.CalculationTimeMs = elapsed.Milliseconds()
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	scale := nesting.ScaleFor(h.session.DisplayExtent(), req.Slab)
	if req.Scale != nil {
		scale = *req.Scale
	}
	if !(scale > 0) {
		writeError(w, http.StatusBadRequest, "Invalid request", "scale must be a positive number",
			"Omit scale to derive it from the slab")
		return
	}

	rects, err := nesting.Project(req.Slab, req.Placements, scale)
	if err != nil {
		writeLayoutError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newLayoutResponse(req.Slab, scale, rects))
}

func pieceIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "piece index must be an integer")
		return 0, false
	}
	return index, true
}

func decodeOptionalJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type slabRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type slabResponse struct {
	Width     float64   `json:"width"`
	Height    float64   `json:"height"`
	UpdatedAt time.Time `json:"updatedAt"`
	Message   string    `json:"message,omitempty"`
}

type pieceRequest struct {
	Name   string        `json:"name"`
	Width  *float64      `json:"width"`
	Height *float64      `json:"height"`
	Color  nesting.Color `json:"color"`
}

type piecePatchRequest struct {
	Name   *string  `json:"name"`
	Width  *float64 `json:"width"`
	Height *float64 `json:"height"`
}

type pieceView struct {
	Index  int           `json:"index"`
	Name   string        `json:"name"`
	Width  float64       `json:"width"`
	Height float64       `json:"height"`
	Color  nesting.Color `json:"color"`
}

func newPieceView(index int, p nesting.PieceSpec) pieceView {
	return pieceView{Index: index, Name: p.Name, Width: p.Width, Height: p.Height, Color: p.Color}
}

func pieceViews(pieces []nesting.PieceSpec) []pieceView {
	views := make([]pieceView, 0, len(pieces))
	for i, p := range pieces {
		views = append(views, newPieceView(i, p))
	}
	return views
}

type pieceResponse struct {
	Piece   pieceView `json:"piece"`
	Message string    `json:"message,omitempty"`
}

type piecesResponse struct {
	Pieces    []pieceView `json:"pieces"`
	UpdatedAt time.Time   `json:"updatedAt"`
	Message   string      `json:"message,omitempty"`
}

type importResponse struct {
	Imported int         `json:"imported"`
	Mode     string      `json:"mode"`
	Pieces   []pieceView `json:"pieces"`
	Warnings []string    `json:"warnings,omitempty"`
}

type calculateRequest struct {
	Slab   nesting.SlabSpec    `json:"slab"`
	Pieces []nesting.PieceSpec `json:"pieces"`
}

type projectRequest struct {
	Slab       nesting.SlabSpec    `json:"slab"`
	Placements []nesting.Placement `json:"placements"`
	Scale      *float64            `json:"scale"`
}

type resultResponse struct {
	Slab              nesting.SlabSpec    `json:"slab"`
	Placements        []nesting.Placement `json:"placements"`
	SlabArea          float64             `json:"slabArea"`
	UsedArea          float64             `json:"usedArea"`
	WasteArea         float64             `json:"wasteArea"`
	Efficiency        float64             `json:"efficiency"`
	TotalCount        int                 `json:"totalCount"`
	Scale             float64             `json:"scale"`
	Version           uint64              `json:"version,omitempty"`
	ComputedAt        *time.Time          `json:"computedAt,omitempty"`
	CalculationTimeMs int64               `json:"calculationTimeMs"`
}

func newResultResponse(slab nesting.SlabSpec, res nesting.CalculationResult, scale float64, version uint64, computedAt time.Time) resultResponse {
	resp := resultResponse{
		Slab:       slab,
		Placements: res.Placements,
		SlabArea:   res.SlabArea,
		UsedArea:   res.UsedArea,
		WasteArea:  res.WasteArea,
		Efficiency: res.Efficiency(),
		TotalCount: res.TotalCount(),
		Scale:      scale,
		Version:    version,
	}
	if resp.Placements == nil {
		resp.Placements = []nesting.Placement{}
	}
	if !computedAt.IsZero() {
		resp.ComputedAt = &computedAt
	}
	return resp
}

type canvasView struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type layoutResponse struct {
	Scale  float64              `json:"scale"`
	Canvas canvasView           `json:"canvas"`
	Rects  []nesting.ScreenRect `json:"rects"`
}

func newLayoutResponse(slab nesting.SlabSpec, scale float64, rects []nesting.ScreenRect) layoutResponse {
	w, h := nesting.Canvas(slab, scale)
	if rects == nil {
		rects = []nesting.ScreenRect{}
	}
	return layoutResponse{Scale: scale, Canvas: canvasView{Width: w, Height: h}, Rects: rects}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Kind       string `json:"kind,omitempty"`
	Piece      string `json:"piece,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

// writeValidationError maps calculator errors to 422 responses that name the
// failed rule and the offending piece.
func writeValidationError(w http.ResponseWriter, err error) {
	var verr *nesting.ValidationError
	if !errors.As(err, &verr) {
		writeInternalError(w, err)
		return
	}

	resp := errorResponse{
		Error:   "Cannot calculate layout",
		Details: verr.Error(),
		Kind:    string(verr.Kind),
		Piece:   verr.Piece,
	}
	switch {
	case errors.Is(err, nesting.ErrInvalidSlabDimensions):
		resp.Suggestion = "Set a slab width and height greater than zero"
	case errors.Is(err, nesting.ErrInvalidPieceDimensions):
		resp.Suggestion = fmt.Sprintf("Give piece %q a width and height greater than zero", verr.Piece)
	case errors.Is(err, nesting.ErrPieceExceedsSlab):
		resp.Suggestion = fmt.Sprintf("Shrink piece %q or enlarge the slab", verr.Piece)
	case errors.Is(err, nesting.ErrTooManyPieces):
		resp.Suggestion = fmt.Sprintf("Enlarge piece %q or shrink the slab", verr.Piece)
	}
	writeJSON(w, http.StatusUnprocessableEntity, resp)
}

// writeLayoutError covers projection failures on top of the calculator errors.
func writeLayoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, nesting.ErrInvalidPlacement):
		writeError(w, http.StatusBadRequest, "Invalid placement", err.Error(),
			"Send placements as returned by /api/calculate")
	case errors.Is(err, nesting.ErrTooManyRects):
		writeError(w, http.StatusUnprocessableEntity, "Cannot draw layout", err.Error(),
			fmt.Sprintf("Use larger pieces so the layout stays within %d pieces", nesting.MaxRects))
	default:
		writeValidationError(w, err)
	}
}

func writeStorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrIndexOutOfRange):
		writeError(w, http.StatusNotFound, "Piece not found", err.Error())
	case errors.Is(err, storage.ErrInvalidPiece):
		writeError(w, http.StatusBadRequest, "Invalid piece", err.Error())
	case errors.Is(err, storage.ErrInvalidSlab):
		writeError(w, http.StatusBadRequest, "Invalid slab", err.Error())
	default:
		writeInternalError(w, err)
	}
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
