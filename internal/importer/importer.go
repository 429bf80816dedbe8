// Package importer reads piece lists from CSV and Excel files. It detects the
// CSV delimiter and maps columns from case-insensitive header aliases.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/eugenenazirov/slab-nesting/internal/nesting"
	"github.com/eugenenazirov/slab-nesting/internal/palette"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor Excel.
var ErrUnsupportedFormat = errors.New("unsupported file format, expected .csv or .xlsx")

// Result holds the pieces read from a file along with per-row problems.
type Result struct {
	Pieces   []nesting.PieceSpec
	Errors   []string
	Warnings []string
}

// OK reports whether at least one piece was read and no row failed.
func (r Result) OK() bool {
	return len(r.Errors) == 0 && len(r.Pieces) > 0
}

// ColumnMapping maps column roles to their indices in the data.
type ColumnMapping struct {
	Name   int
	Width  int
	Height int
	Color  int
}

var positional = ColumnMapping{Name: 0, Width: 1, Height: 2, Color: 3}

// headerAliases maps canonical column names to their accepted aliases (all lowercase).
var headerAliases = map[string][]string{
	"name":   {"name", "label", "piece", "part", "part name", "description", "item"},
	"width":  {"width", "w", "length", "len", "x"},
	"height": {"height", "h", "depth", "d", "y"},
	"color":  {"color", "colour", "fill"},
}

// DetectCSVDelimiter returns the candidate delimiter that splits the data into
// the most consistent multi-column rows.
func DetectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	best := ','
	bestScore := 0

	for _, delim := range candidates {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		records, err := reader.ReadAll()
		if err != nil || len(records) == 0 {
			continue
		}
		firstCols := len(records[0])
		if firstCols < 2 {
			continue
		}

		score := 0
		for _, row := range records {
			if len(row) == firstCols {
				score++
			}
		}
		if weighted := score*10 + firstCols; weighted > bestScore {
			bestScore = weighted
			best = delim
		}
	}

	return best
}

// DetectColumns matches a header row against the known aliases. It returns
// false and the positional mapping (name, width, height, color) when the row
// is not a header.
func DetectColumns(row []string) (ColumnMapping, bool) {
	mapping := ColumnMapping{Name: -1, Width: -1, Height: -1, Color: -1}
	isHeader := false

	for i, cell := range row {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for role, aliases := range headerAliases {
			for _, alias := range aliases {
				if normalized != alias {
					continue
				}
				isHeader = true
				switch role {
				case "name":
					if mapping.Name == -1 {
						mapping.Name = i
					}
				case "width":
					if mapping.Width == -1 {
						mapping.Width = i
					}
				case "height":
					if mapping.Height == -1 {
						mapping.Height = i
					}
				case "color":
					if mapping.Color == -1 {
						mapping.Color = i
					}
				}
			}
		}
	}

	if !isHeader {
		return positional, false
	}
	return mapping, true
}

// Import dispatches on the file extension.
func Import(filename string, r io.Reader) (Result, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return ImportCSV(r), nil
	case ".xlsx", ".xlsm":
		return ImportExcel(r), nil
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)
	}
}

// ImportCSV reads pieces from CSV data with an auto-detected delimiter.
func ImportCSV(r io.Reader) Result {
	result := Result{}

	data, err := io.ReadAll(r)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read file: %v", err))
		return result
	}
	if len(bytes.TrimSpace(data)) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	delimiter := DetectCSVDelimiter(data)
	if delimiter != ',' {
		name := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delimiter]
		result.Warnings = append(result.Warnings, fmt.Sprintf("Detected %s delimiter", name))
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}

	return importFromRows(records, "Line", result.Warnings)
}

// ImportExcel reads pieces from the first sheet of an Excel workbook.
func ImportExcel(r io.Reader) Result {
	result := Result{}

	f, err := excelize.OpenReader(r)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open Excel file: %v", err))
		return result
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		result.Errors = append(result.Errors, "Excel file has no sheets")
		return result
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read Excel data: %v", err))
		return result
	}

	return importFromRows(rows, "Row", nil)
}

func importFromRows(rows [][]string, rowPrefix string, warnings []string) Result {
	result := Result{Warnings: warnings}

	if len(rows) == 0 {
		result.Errors = append(result.Errors, "No data rows found")
		return result
	}

	mapping, hasHeader := DetectColumns(rows[0])
	start := 0
	if hasHeader {
		start = 1
		var missing []string
		if mapping.Width == -1 {
			missing = append(missing, "Width")
		}
		if mapping.Height == -1 {
			missing = append(missing, "Height")
		}
		if len(missing) > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("Required columns not found in header: %s", strings.Join(missing, ", ")))
			return result
		}
	}

	for i := start; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}

		rowLabel := fmt.Sprintf("%s %d", rowPrefix, i+1)
		piece, warning, err := parseRow(row, mapping, len(result.Pieces))
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", rowLabel, err))
			continue
		}
		if warning != "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %s", rowLabel, warning))
		}
		result.Pieces = append(result.Pieces, piece)
	}

	if len(result.Pieces) == 0 && len(result.Errors) == 0 {
		result.Errors = append(result.Errors, "No data rows found")
	}
	return result
}

func parseRow(row []string, m ColumnMapping, existing int) (nesting.PieceSpec, string, error) {
	piece := nesting.PieceSpec{Name: cell(row, m.Name)}
	if piece.Name == "" {
		piece.Name = fmt.Sprintf("Piece %d", existing+1)
	}

	var err error
	if piece.Width, err = parseDimension(cell(row, m.Width), "width"); err != nil {
		return nesting.PieceSpec{}, "", err
	}
	if piece.Height, err = parseDimension(cell(row, m.Height), "height"); err != nil {
		return nesting.PieceSpec{}, "", err
	}

	var warning string
	if raw := cell(row, m.Color); raw != "" {
		c := nesting.Color(strings.ToLower(raw))
		if palette.Valid(c) {
			piece.Color = c
		} else {
			warning = fmt.Sprintf("ignoring color %q", raw)
		}
	}
	if piece.Color == "" {
		piece.Color = palette.New()
	}
	return piece, warning, nil
}

func parseDimension(raw, field string) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("missing %s", field)
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", field, raw)
	}
	if !(v > 0) {
		return 0, fmt.Errorf("%s must be positive, got %s", field, raw)
	}
	return v, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
