package storage

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/eugenenazirov/slab-nesting/internal/nesting"
	"github.com/eugenenazirov/slab-nesting/internal/palette"
)

const (
	defaultPieceWidth  = 100.0
	defaultPieceHeight = 100.0
)

var (
	// ErrInvalidSlab indicates a slab dimension that is not a positive number.
	ErrInvalidSlab = errors.New("slab width and height must be positive numbers")
	// ErrInvalidPiece indicates a piece dimension that is not a positive number.
	ErrInvalidPiece = errors.New("piece width and height must be positive numbers")
	// ErrIndexOutOfRange is returned when a piece index does not address an existing piece.
	ErrIndexOutOfRange = errors.New("piece index out of range")
)

var defaultSlab = nesting.SlabSpec{Width: 1000, Height: 2000}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	Slab      nesting.SlabSpec
	Pieces    []nesting.PieceSpec
	Version   uint64
	UpdatedAt time.Time
}

// PieceDraft carries the optional fields of a new piece. Zero values are
// replaced by defaults.
type PieceDraft struct {
	Name   string
	Width  float64
	Height float64
	Color  nesting.Color
}

// PiecePatch carries the editable fields of an existing piece; nil fields are
// left unchanged. Color is fixed at creation and cannot be patched.
type PiecePatch struct {
	Name   *string
	Width  *float64
	Height *float64
}

// Storage holds the slab and the ordered piece list of an interactive session.
// Pieces are addressed by position only; removing one shifts the indices of
// the pieces after it.
type Storage interface {
	Slab() (nesting.SlabSpec, error)
	SetSlab(slab nesting.SlabSpec) error
	Pieces() ([]nesting.PieceSpec, error)
	AddPiece(draft PieceDraft) (int, nesting.PieceSpec, error)
	UpdatePiece(index int, patch PiecePatch) (nesting.PieceSpec, error)
	RemovePiece(index int) error
	ReplacePieces(pieces []nesting.PieceSpec) error
	AppendPieces(pieces []nesting.PieceSpec) error
	Snapshot() Snapshot
	Subscribe(fn func(Snapshot)) (unsubscribe func())
}

// MemoryStorage keeps session state in-memory and guards access with a RWMutex.
// Subscribers run synchronously after each successful mutation, in mutation
// order, and must not mutate the storage themselves.
type MemoryStorage struct {
	mu        sync.RWMutex
	slab      nesting.SlabSpec
	pieces    []nesting.PieceSpec
	version   uint64
	updatedAt time.Time
	clock     func() time.Time

	notifyMu    sync.Mutex
	subMu       sync.Mutex
	nextSubID   int
	subscribers map[int]func(Snapshot)
}

// Option configures a MemoryStorage.
type Option func(*MemoryStorage)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *MemoryStorage) {
		s.clock = clock
	}
}

// NewMemoryStorage initialises storage with the default slab and a single
// 200x300 piece.
func NewMemoryStorage(opts ...Option) *MemoryStorage {
	s := &MemoryStorage{
		slab: defaultSlab,
		clock: func() time.Time {
			return time.Now().UTC()
		},
		subscribers: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.pieces = []nesting.PieceSpec{{Name: defaultName(0), Width: 200, Height: 300, Color: palette.New()}}
	s.updatedAt = s.clock()
	return s
}

// DefaultSlab returns the slab a new session starts with.
func DefaultSlab() nesting.SlabSpec {
	return defaultSlab
}

// Slab returns the current slab.
func (s *MemoryStorage) Slab() (nesting.SlabSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.slab, nil
}

// SetSlab validates and stores new slab dimensions.
func (s *MemoryStorage) SetSlab(slab nesting.SlabSpec) error {
	if !(slab.Width > 0 && slab.Height > 0) {
		return ErrInvalidSlab
	}
	return s.mutate(func() error {
		s.slab = slab
		return nil
	})
}

// Pieces returns a defensive copy of the piece list.
func (s *MemoryStorage) Pieces() ([]nesting.PieceSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return clonePieces(s.pieces), nil
}

// AddPiece appends a piece and returns its index. A missing name becomes
// "Piece N" where N is the new list length, so names can repeat after removals.
func (s *MemoryStorage) AddPiece(draft PieceDraft) (int, nesting.PieceSpec, error) {
	if !(draft.Width >= 0 && draft.Height >= 0) {
		return 0, nesting.PieceSpec{}, ErrInvalidPiece
	}

	var (
		index int
		piece nesting.PieceSpec
	)
	err := s.mutate(func() error {
		piece = nesting.PieceSpec{
			Name:   draft.Name,
			Width:  draft.Width,
			Height: draft.Height,
			Color:  draft.Color,
		}
		if piece.Name == "" {
			piece.Name = defaultName(len(s.pieces))
		}
		if piece.Width == 0 {
			piece.Width = defaultPieceWidth
		}
		if piece.Height == 0 {
			piece.Height = defaultPieceHeight
		}
		if !palette.Valid(piece.Color) {
			piece.Color = palette.New()
		}
		index = len(s.pieces)
		s.pieces = append(s.pieces, piece)
		return nil
	})
	if err != nil {
		return 0, nesting.PieceSpec{}, err
	}
	return index, piece, nil
}

// UpdatePiece applies patch to the piece at index.
func (s *MemoryStorage) UpdatePiece(index int, patch PiecePatch) (nesting.PieceSpec, error) {
	if (patch.Width != nil && !(*patch.Width > 0)) || (patch.Height != nil && !(*patch.Height > 0)) {
		return nesting.PieceSpec{}, ErrInvalidPiece
	}

	var piece nesting.PieceSpec
	err := s.mutate(func() error {
		if index < 0 || index >= len(s.pieces) {
			return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
		}
		piece = s.pieces[index]
		if patch.Name != nil {
			piece.Name = *patch.Name
		}
		if patch.Width != nil {
			piece.Width = *patch.Width
		}
		if patch.Height != nil {
			piece.Height = *patch.Height
		}
		s.pieces[index] = piece
		return nil
	})
	return piece, err
}

// RemovePiece deletes the piece at index; later pieces move down by one.
func (s *MemoryStorage) RemovePiece(index int) error {
	return s.mutate(func() error {
		if index < 0 || index >= len(s.pieces) {
			return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
		}
		s.pieces = append(s.pieces[:index:index], s.pieces[index+1:]...)
		return nil
	})
}

// ReplacePieces swaps the whole piece list. Pieces without a valid color get a
// generated one.
func (s *MemoryStorage) ReplacePieces(pieces []nesting.PieceSpec) error {
	next, err := preparePieces(pieces)
	if err != nil {
		return err
	}
	return s.mutate(func() error {
		s.pieces = next
		return nil
	})
}

// AppendPieces adds pieces after the existing ones in a single mutation.
func (s *MemoryStorage) AppendPieces(pieces []nesting.PieceSpec) error {
	next, err := preparePieces(pieces)
	if err != nil {
		return err
	}
	return s.mutate(func() error {
		s.pieces = append(s.pieces, next...)
		return nil
	})
}

func preparePieces(pieces []nesting.PieceSpec) ([]nesting.PieceSpec, error) {
	next := clonePieces(pieces)
	for i := range next {
		if !(next[i].Width > 0 && next[i].Height > 0) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPiece, next[i].Name)
		}
		if !palette.Valid(next[i].Color) {
			next[i].Color = palette.New()
		}
	}
	return next, nil
}

// Snapshot returns a consistent copy of the whole state.
func (s *MemoryStorage) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshotLocked()
}

// Subscribe registers fn to be called after every successful mutation.
func (s *MemoryStorage) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}

func (s *MemoryStorage) mutate(apply func() error) error {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if err := apply(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.version++
	s.updatedAt = s.clock()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	for _, fn := range s.listeners() {
		fn(snap)
	}
	return nil
}

func (s *MemoryStorage) listeners() []func(Snapshot) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	ids := make([]int, 0, len(s.subscribers))
	for id := range s.subscribers {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		out = append(out, s.subscribers[id])
	}
	return out
}

func (s *MemoryStorage) snapshotLocked() Snapshot {
	return Snapshot{
		Slab:      s.slab,
		Pieces:    clonePieces(s.pieces),
		Version:   s.version,
		UpdatedAt: s.updatedAt,
	}
}

func clonePieces(src []nesting.PieceSpec) []nesting.PieceSpec {
	if len(src) == 0 {
		return []nesting.PieceSpec{}
	}

	out := make([]nesting.PieceSpec, len(src))
	copy(out, src)
	return out
}

func defaultName(existing int) string {
	return fmt.Sprintf("Piece %d", existing+1)
}
