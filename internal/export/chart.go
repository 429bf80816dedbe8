package export

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Chart writes an HTML page with a bar chart of the piece count per type.
func Chart(w io.Writer, r Report) error {
	names := make([]string, 0, len(r.Result.Placements))
	items := make([]opts.BarData, 0, len(r.Result.Placements))
	for _, p := range r.Result.Placements {
		names = append(names, p.Spec.Name)
		items = append(items, opts.BarData{
			Name:      p.Spec.Name,
			Value:     p.Count,
			ItemStyle: &opts.ItemStyle{Color: string(p.Spec.Color)},
		})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    r.title(),
			Subtitle: fmt.Sprintf("Slab %.0f x %.0f, waste %.2f", r.Slab.Width, r.Slab.Height, r.Result.WasteArea),
		}),
	)
	bar.SetXAxis(names).AddSeries("Count", items)

	if err := bar.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
