package nesting

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		slab      SlabSpec
		pieces    []PieceSpec
		want      []Placement
		wantWaste float64
		wantErr   error
	}{
		{
			name:   "ReferenceSlab",
			slab:   SlabSpec{Width: 1000, Height: 2000},
			pieces: []PieceSpec{{Name: "Piece 1", Width: 200, Height: 300}},
			want: []Placement{
				{Spec: PieceSpec{Name: "Piece 1", Width: 200, Height: 300}, Across: 5, Down: 6, Count: 30},
			},
			wantWaste: 200_000,
		},
		{
			name:      "EmptyPieceList",
			slab:      SlabSpec{Width: 300, Height: 400},
			pieces:    nil,
			want:      []Placement{},
			wantWaste: 120_000,
		},
		{
			name:   "ExactFit",
			slab:   SlabSpec{Width: 100, Height: 100},
			pieces: []PieceSpec{{Name: "Tile", Width: 25, Height: 50}},
			want: []Placement{
				{Spec: PieceSpec{Name: "Tile", Width: 25, Height: 50}, Across: 4, Down: 2, Count: 8},
			},
			wantWaste: 0,
		},
		{
			name:   "PieceEqualToSlab",
			slab:   SlabSpec{Width: 120.5, Height: 80},
			pieces: []PieceSpec{{Name: "Whole", Width: 120.5, Height: 80}},
			want: []Placement{
				{Spec: PieceSpec{Name: "Whole", Width: 120.5, Height: 80}, Across: 1, Down: 1, Count: 1},
			},
			wantWaste: 0,
		},
		{
			name:    "PieceExceedsSlab",
			slab:    SlabSpec{Width: 100, Height: 100},
			pieces:  []PieceSpec{{Name: "Wide", Width: 150, Height: 50}},
			wantErr: ErrPieceExceedsSlab,
		},
		{
			name:    "PieceTallerThanSlab",
			slab:    SlabSpec{Width: 100, Height: 100},
			pieces:  []PieceSpec{{Name: "Tall", Width: 50, Height: 101}},
			wantErr: ErrPieceExceedsSlab,
		},
		{
			name:    "ZeroSlabWidth",
			slab:    SlabSpec{Width: 0, Height: 100},
			wantErr: ErrInvalidSlabDimensions,
		},
		{
			name:    "NegativeSlabHeight",
			slab:    SlabSpec{Width: 100, Height: -1},
			pieces:  []PieceSpec{{Name: "A", Width: 10, Height: 10}},
			wantErr: ErrInvalidSlabDimensions,
		},
		{
			name:    "ZeroPieceWidth",
			slab:    SlabSpec{Width: 100, Height: 100},
			pieces:  []PieceSpec{{Name: "Flat", Width: 0, Height: 10}},
			wantErr: ErrInvalidPieceDimensions,
		},
		{
			name:    "NaNPieceHeight",
			slab:    SlabSpec{Width: 100, Height: 100},
			pieces:  []PieceSpec{{Name: "Broken", Width: 10, Height: math.NaN()}},
			wantErr: ErrInvalidPieceDimensions,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := New().Compute(tc.slab, tc.pieces)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Empty(t, got.Placements)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Placements)
			assert.InDelta(t, tc.wantWaste, got.WasteArea, 1e-6)
			assert.InDelta(t, tc.slab.Area(), got.SlabArea, 1e-6)
		})
	}
}

func TestComputeReferenceAreas(t *testing.T) {
	t.Parallel()

	got, err := Compute(SlabSpec{Width: 1000, Height: 2000}, []PieceSpec{{Name: "Piece 1", Width: 200, Height: 300}})
	require.NoError(t, err)

	require.Len(t, got.Placements, 1)
	assert.Equal(t, 30, got.TotalCount())
	assert.InDelta(t, 1_800_000, got.UsedArea, 1e-6)
	assert.InDelta(t, 1_800_000, got.Placements[0].Area(), 1e-6)
	assert.InDelta(t, 200_000, got.WasteArea, 1e-6)
	assert.InDelta(t, 90, got.Efficiency(), 1e-9)
}

func TestComputeSinglePieceCountFormula(t *testing.T) {
	t.Parallel()

	slabs := []SlabSpec{{1000, 2000}, {37, 11}, {2440, 1220}, {1, 1}, {99.9, 250.25}}
	fractions := []float64{1, 0.9, 0.5, 0.33, 0.1, 0.07}

	for _, slab := range slabs {
		for _, fw := range fractions {
			for _, fh := range fractions {
				piece := PieceSpec{Name: "p", Width: slab.Width * fw, Height: slab.Height * fh}
				got, err := Compute(slab, []PieceSpec{piece})
				require.NoError(t, err)

				across := int(math.Floor(slab.Width / piece.Width))
				down := int(math.Floor(slab.Height / piece.Height))
				p := got.Placements[0]
				assert.Equal(t, across, p.Across)
				assert.Equal(t, down, p.Down)
				assert.Equal(t, across*down, p.Count)
				assert.GreaterOrEqual(t, got.WasteArea, -1e-6, "slab %v piece %v", slab, piece)
			}
		}
	}
}

func TestComputeFirstFailingPieceWins(t *testing.T) {
	t.Parallel()

	slab := SlabSpec{Width: 100, Height: 100}
	pieces := []PieceSpec{
		{Name: "ok", Width: 10, Height: 10},
		{Name: "too big", Width: 200, Height: 10},
		{Name: "zero", Width: 0, Height: 10},
	}

	_, err := Compute(slab, pieces)
	require.ErrorIs(t, err, ErrPieceExceedsSlab)
	assert.NotErrorIs(t, err, ErrInvalidPieceDimensions)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, KindPieceExceedsSlab, verr.Kind)
	assert.Equal(t, "too big", verr.Piece)
	assert.Equal(t, 1, verr.Index)
	assert.Equal(t, `piece "too big" is larger than the slab`, err.Error())

	pieces[1], pieces[2] = pieces[2], pieces[1]
	_, err = Compute(slab, pieces)
	require.ErrorIs(t, err, ErrInvalidPieceDimensions)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "zero", verr.Piece)
	assert.Equal(t, `dimensions of piece "zero" must be positive numbers`, err.Error())
}

func TestComputeSlabCheckPrecedesPieces(t *testing.T) {
	t.Parallel()

	_, err := Compute(SlabSpec{Width: 0, Height: 100}, []PieceSpec{{Name: "bad", Width: -1, Height: -1}})
	require.ErrorIs(t, err, ErrInvalidSlabDimensions)
	assert.Equal(t, ErrInvalidSlabDimensions.Error(), err.Error())

	_, err = Compute(SlabSpec{Width: 0, Height: 100}, nil)
	require.ErrorIs(t, err, ErrInvalidSlabDimensions)
}

// Several types are each tiled over the whole slab, so the waste figure is a
// per-type overlay and can drop below zero.
func TestComputeMultipleTypesOverlay(t *testing.T) {
	t.Parallel()

	slab := SlabSpec{Width: 100, Height: 100}
	pieces := []PieceSpec{
		{Name: "half", Width: 50, Height: 50, Color: "#ff0000"},
		{Name: "half again", Width: 50, Height: 50, Color: "#00ff00"},
		{Name: "thin", Width: 30, Height: 100, Color: "#0000ff"},
	}

	got, err := Compute(slab, pieces)
	require.NoError(t, err)
	require.Len(t, got.Placements, 3)

	for i, p := range got.Placements {
		assert.Equal(t, pieces[i], p.Spec, "placement order follows input order")
	}
	assert.Equal(t, 4, got.Placements[0].Count)
	assert.Equal(t, 4, got.Placements[1].Count)
	assert.Equal(t, 3, got.Placements[2].Count)
	assert.InDelta(t, 29_000, got.UsedArea, 1e-6)
	assert.InDelta(t, 10_000-29_000, got.WasteArea, 1e-6)
}

func TestComputeDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	pieces := []PieceSpec{{Name: "A", Width: 10, Height: 20, Color: "#123456"}}
	got, err := Compute(SlabSpec{Width: 100, Height: 100}, pieces)
	require.NoError(t, err)

	got.Placements[0].Spec.Name = "changed"
	assert.Equal(t, "A", pieces[0].Name)
}

func TestEfficiencyWithoutSlabArea(t *testing.T) {
	t.Parallel()

	assert.Zero(t, CalculationResult{}.Efficiency())
}

func BenchmarkCompute(b *testing.B) {
	slab := SlabSpec{Width: 2440, Height: 1220}
	pieces := make([]PieceSpec, 64)
	for i := range pieces {
		pieces[i] = PieceSpec{Name: "p", Width: float64(10 + i), Height: float64(20 + i)}
	}
	for i := 0; i < b.N; i++ {
		if _, err := Compute(slab, pieces); err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestComputeRejectsUncountableGrids(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		slab   SlabSpec
		pieces []PieceSpec
		piece  string
		index  int
	}{
		{"across beyond int", SlabSpec{Width: 1e30, Height: 10}, []PieceSpec{{Name: "Sliver", Width: 1, Height: 10}}, "Sliver", 0},
		{"product beyond int", SlabSpec{Width: 1e10, Height: 1e10}, []PieceSpec{{Name: "Dust", Width: 1, Height: 1}}, "Dust", 0},
		{"total beyond int", SlabSpec{Width: 3e9, Height: 2e9}, []PieceSpec{
			{Name: "First", Width: 1, Height: 1},
			{Name: "Second", Width: 1, Height: 1},
		}, "Second", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res, err := Compute(tt.slab, tt.pieces)
			require.ErrorIs(t, err, ErrTooManyPieces)
			assert.Empty(t, res.Placements)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, KindTooManyPieces, verr.Kind)
			assert.Equal(t, tt.piece, verr.Piece)
			assert.Equal(t, tt.index, verr.Index)
		})
	}
}

func TestComputeLargeButCountableGrid(t *testing.T) {
	t.Parallel()

	slab := SlabSpec{Width: 1e9, Height: 1e9}
	res, err := Compute(slab, []PieceSpec{{Name: "Dust", Width: 1, Height: 1}})
	require.NoError(t, err)

	p := res.Placements[0]
	assert.Equal(t, 1_000_000_000, p.Across)
	assert.Equal(t, 1_000_000_000, p.Down)
	assert.Equal(t, p.Across*p.Down, p.Count)
	assert.Equal(t, p.Count, res.TotalCount())
	assert.InDelta(t, 0, res.WasteArea, 1e-6)
}
