package nesting

// Color is an opaque display token in "#rrggbb" form. It identifies a piece
// type in rendered output and plays no part in placement.
type Color string

// SlabSpec describes the stock sheet being cut.
type SlabSpec struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Area returns Width*Height.
func (s SlabSpec) Area() float64 {
	return s.Width * s.Height
}

// PieceSpec describes one rectangular piece type. Names are labels only and
// need not be unique.
type PieceSpec struct {
	Name   string  `json:"name" yaml:"name"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
	Color  Color   `json:"color" yaml:"color"`
}

// Area returns the footprint of a single piece.
func (p PieceSpec) Area() float64 {
	return p.Width * p.Height
}

// Placement is the grid tiling of one piece type across the whole slab.
type Placement struct {
	Spec   PieceSpec `json:"spec"`
	Across int       `json:"across"`
	Down   int       `json:"down"`
	Count  int       `json:"count"`
}

// Area returns the slab area covered by this placement's grid.
func (p Placement) Area() float64 {
	return float64(p.Count) * p.Spec.Area()
}

// CalculationResult summarises a calculation.
// Each placement is evaluated as if it had the slab to itself, so UsedArea is
// the sum of independent per-type tilings rather than a combined cutting plan.
type CalculationResult struct {
	Placements []Placement `json:"placements"`
	SlabArea   float64     `json:"slabArea"`
	UsedArea   float64     `json:"usedArea"`
	WasteArea  float64     `json:"wasteArea"`
}

// Efficiency returns UsedArea as a percentage of SlabArea.
func (r CalculationResult) Efficiency() float64 {
	if r.SlabArea <= 0 {
		return 0
	}
	return r.UsedArea / r.SlabArea * 100
}

// TotalCount returns the number of pieces over all placements.
func (r CalculationResult) TotalCount() int {
	total := 0
	for _, p := range r.Placements {
		total += p.Count
	}
	return total
}

// ScreenRect is one projected piece in display units. Piece is the index of
// the placement that produced it; Row and Col locate it in that grid.
type ScreenRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Color  Color   `json:"color"`
	Piece  int     `json:"piece"`
	Row    int     `json:"row"`
	Col    int     `json:"col"`
}

// Calculator describes the behaviour required from a placement calculator.
type Calculator interface {
	Compute(slab SlabSpec, pieces []PieceSpec) (CalculationResult, error)
}
