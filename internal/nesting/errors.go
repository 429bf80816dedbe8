package nesting

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSlabDimensions is returned when either slab dimension is not positive.
	ErrInvalidSlabDimensions = errors.New("slab dimensions must be positive numbers")
	// ErrInvalidPieceDimensions is matched by errors for a piece with a non-positive dimension.
	ErrInvalidPieceDimensions = errors.New("piece dimensions must be positive numbers")
	// ErrPieceExceedsSlab is matched by errors for a piece larger than the slab on either axis.
	ErrPieceExceedsSlab = errors.New("piece is larger than the slab")
	// ErrTooManyPieces is matched by errors for a piece so small against the
	// slab that its grid count does not fit in an int.
	ErrTooManyPieces = errors.New("piece fits on the slab too many times to count")

	// ErrInvalidPlacement is returned by Project for a placement whose grid is
	// inconsistent or does not fit the slab.
	ErrInvalidPlacement = errors.New("invalid placement")
	// ErrTooManyRects is returned by Project when the layout would exceed MaxRects.
	ErrTooManyRects = errors.New("layout has too many pieces to draw")
)

// ErrorKind names the validation rule that failed.
type ErrorKind string

const (
	KindInvalidSlabDimensions  ErrorKind = "InvalidSlabDimensions"
	KindInvalidPieceDimensions ErrorKind = "InvalidPieceDimensions"
	KindPieceExceedsSlab       ErrorKind = "PieceExceedsSlab"
	KindTooManyPieces          ErrorKind = "TooManyPieces"
)

// ValidationError reports the first failed precondition of a calculation.
// Piece and Index are only meaningful for the piece kinds.
type ValidationError struct {
	Kind  ErrorKind
	Piece string
	Index int
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindInvalidPieceDimensions:
		return fmt.Sprintf("dimensions of piece %q must be positive numbers", e.Piece)
	case KindPieceExceedsSlab:
		return fmt.Sprintf("piece %q is larger than the slab", e.Piece)
	case KindTooManyPieces:
		return fmt.Sprintf("piece %q fits on the slab too many times to count", e.Piece)
	default:
		return ErrInvalidSlabDimensions.Error()
	}
}

// Is lets errors.Is match a ValidationError against the package sentinels.
func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrInvalidSlabDimensions:
		return e.Kind == KindInvalidSlabDimensions
	case ErrInvalidPieceDimensions:
		return e.Kind == KindInvalidPieceDimensions
	case ErrPieceExceedsSlab:
		return e.Kind == KindPieceExceedsSlab
	case ErrTooManyPieces:
		return e.Kind == KindTooManyPieces
	}
	return false
}

func invalidSlab() error {
	return &ValidationError{Kind: KindInvalidSlabDimensions, Index: -1}
}

func invalidPiece(kind ErrorKind, index int, p PieceSpec) error {
	return &ValidationError{Kind: kind, Piece: p.Name, Index: index}
}
