package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/eugenenazirov/slab-nesting/internal/nesting"
	"github.com/eugenenazirov/slab-nesting/internal/palette"
)

const (
	summarySheet    = "Summary"
	placementsSheet = "Placements"
)

// XLSX writes a workbook with a summary sheet and one row per placement. The
// name cell of each row is filled with the piece color.
func XLSX(w io.Writer, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(placementsSheet); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	summary := [][]any{
		{"Title", r.title()},
		{"Slab width", r.Slab.Width},
		{"Slab height", r.Slab.Height},
		{"Slab area", r.Result.SlabArea},
		{"Used area", r.Result.UsedArea},
		{"Waste area", r.Result.WasteArea},
		{"Efficiency %", r.Result.Efficiency()},
		{"Total pieces", r.Result.TotalCount()},
	}
	if !r.GeneratedAt.IsZero() {
		summary = append(summary, []any{"Generated", r.GeneratedAt.Format("2006-01-02 15:04:05 MST")})
	}
	for i, row := range summary {
		if err := setRow(f, summarySheet, i+1, row); err != nil {
			return err
		}
	}

	header := []any{"#", "Name", "Width", "Height", "Across", "Down", "Count", "Area"}
	if err := setRow(f, placementsSheet, 1, header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	if err := f.SetCellStyle(placementsSheet, "A1", "H1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, p := range r.Result.Placements {
		row := i + 2
		values := []any{i + 1, p.Spec.Name, p.Spec.Width, p.Spec.Height, p.Across, p.Down, p.Count, p.Area()}
		if err := setRow(f, placementsSheet, row, values); err != nil {
			return err
		}

		fill, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{hexFill(p.Spec.Color)}},
		})
		if err != nil {
			return fmt.Errorf("create fill style: %w", err)
		}
		cell, err := excelize.CoordinatesToCellName(2, row)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(placementsSheet, cell, cell, fill); err != nil {
			return fmt.Errorf("style row %d: %w", row, err)
		}
	}

	if err := f.SetColWidth(summarySheet, "A", "A", 16); err != nil {
		return err
	}
	if err := f.SetColWidth(placementsSheet, "B", "B", 24); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func hexFill(c nesting.Color) string {
	r, g, b := palette.RGB(c)
	return strings.ToUpper(fmt.Sprintf("%02x%02x%02x", r, g, b))
}
