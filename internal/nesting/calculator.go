package nesting

import (
	"math"
	"math/bits"
)

type gridCalculator struct{}

// New creates a Calculator that tiles every piece type independently over the
// full slab.
func New() Calculator {
	return &gridCalculator{}
}

func (c *gridCalculator) Compute(slab SlabSpec, pieces []PieceSpec) (CalculationResult, error) {
	return Compute(slab, pieces)
}

// Compute validates the inputs and counts how many whole copies of each piece
// type fit on the slab in an axis-aligned grid. Validation stops at the first
// failure, so at most one error is reported.
//
// Every piece type is tiled against the whole slab, not against the space left
// by earlier types. WasteArea is the slab area minus the sum of those
// independent tilings; with several types that sum can exceed the slab.
//
// A grid whose count, or the running total over all types, does not fit in an
// int is rejected with ErrTooManyPieces.
func Compute(slab SlabSpec, pieces []PieceSpec) (CalculationResult, error) {
	if !(slab.Width > 0 && slab.Height > 0) {
		return CalculationResult{}, invalidSlab()
	}

	placements := make([]Placement, 0, len(pieces))
	var (
		used  float64
		total int
	)
	for i, p := range pieces {
		if !(p.Width > 0 && p.Height > 0) {
			return CalculationResult{}, invalidPiece(KindInvalidPieceDimensions, i, p)
		}
		if p.Width > slab.Width || p.Height > slab.Height {
			return CalculationResult{}, invalidPiece(KindPieceExceedsSlab, i, p)
		}

		across, down, count, ok := gridCount(slab, p)
		if !ok || count > math.MaxInt-total {
			return CalculationResult{}, invalidPiece(KindTooManyPieces, i, p)
		}
		total += count
		placement := Placement{
			Spec:   p,
			Across: across,
			Down:   down,
			Count:  count,
		}
		used += placement.Area()
		placements = append(placements, placement)
	}

	area := slab.Area()
	return CalculationResult{
		Placements: placements,
		SlabArea:   area,
		UsedArea:   used,
		WasteArea:  area - used,
	}, nil
}

// gridCount returns floor(W/w), floor(H/h) and their product, reporting false
// when any of them overflows an int.
func gridCount(slab SlabSpec, p PieceSpec) (across, down, count int, ok bool) {
	acrossF := math.Floor(slab.Width / p.Width)
	downF := math.Floor(slab.Height / p.Height)
	// float64(math.MaxInt) rounds up to 2^63, one past the largest int.
	if acrossF >= float64(math.MaxInt) || downF >= float64(math.MaxInt) {
		return 0, 0, 0, false
	}
	across, down = int(acrossF), int(downF)
	hi, lo := bits.Mul(uint(across), uint(down))
	if hi != 0 || lo > math.MaxInt {
		return 0, 0, 0, false
	}
	return across, down, int(lo), true
}
