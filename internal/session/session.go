// Package session recomputes the cutting layout whenever the stored slab or
// piece list changes and keeps the latest outcome for the hosting surfaces.
package session

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/slab-nesting/internal/nesting"
	"github.com/eugenenazirov/slab-nesting/internal/storage"
)

// Outcome is the result of the most recent recomputation. Exactly one of
// Result and Err is set.
type Outcome struct {
	Slab       nesting.SlabSpec
	Result     *nesting.CalculationResult
	Err        error
	Scale      float64
	Version    uint64
	ComputedAt time.Time
}

// OK reports whether the last recomputation succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Result != nil
}

// Session binds a storage to a calculator.
type Session struct {
	store  storage.Storage
	calc   nesting.Calculator
	logger *zap.Logger
	extent float64
	clock  func() time.Time

	mu          sync.RWMutex
	outcome     Outcome
	unsubscribe func()
}

// Option configures a Session.
type Option func(*Session)

// WithDisplayExtent sets the display length of the slab's longer side.
func WithDisplayExtent(extent float64) Option {
	return func(s *Session) {
		if extent > 0 {
			s.extent = extent
		}
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Session) {
		s.clock = clock
	}
}

// New computes the initial outcome from the current storage state and
// subscribes to later changes.
func New(store storage.Storage, calc nesting.Calculator, logger *zap.Logger, opts ...Option) *Session {
	s := &Session{
		store:  store,
		calc:   calc,
		logger: logger,
		extent: nesting.DefaultDisplayExtent,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.recompute(store.Snapshot())
	s.unsubscribe = store.Subscribe(s.recompute)
	return s
}

// Close stops following storage changes.
func (s *Session) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// DisplayExtent returns the configured display extent.
func (s *Session) DisplayExtent() float64 {
	return s.extent
}

// Outcome returns the latest outcome. The returned result is a copy.
func (s *Session) Outcome() Outcome {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.outcome
	if out.Result != nil {
		res := *out.Result
		res.Placements = append([]nesting.Placement(nil), out.Result.Placements...)
		out.Result = &res
	}
	return out
}

// Layout projects the latest result at the session scale. It returns the
// outcome's error when the last recomputation failed, and
// nesting.ErrTooManyRects when the result is too large to draw.
func (s *Session) Layout() ([]nesting.ScreenRect, Outcome, error) {
	out := s.Outcome()
	if !out.OK() {
		return nil, out, out.Err
	}
	rects, err := nesting.Project(out.Slab, out.Result.Placements, out.Scale)
	if err != nil {
		return nil, out, err
	}
	return rects, out, nil
}

func (s *Session) recompute(snap storage.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.Version < s.outcome.Version {
		return
	}

	next := Outcome{
		Slab:       snap.Slab,
		Scale:      s.outcome.Scale,
		Version:    snap.Version,
		ComputedAt: s.clock(),
	}

	result, err := s.calc.Compute(snap.Slab, snap.Pieces)
	if err != nil {
		next.Err = err
		s.outcome = next
		s.logger.Info("layout recomputation rejected input",
			zap.Uint64("version", snap.Version),
			zap.Error(err),
		)
		return
	}

	next.Result = &result
	next.Scale = nesting.ScaleFor(s.extent, snap.Slab)
	s.outcome = next
	s.logger.Debug("layout recomputed",
		zap.Uint64("version", snap.Version),
		zap.Int("piece_types", len(result.Placements)),
		zap.Int("pieces", result.TotalCount()),
		zap.Float64("waste_area", result.WasteArea),
		zap.Float64("scale", next.Scale),
	)
}
