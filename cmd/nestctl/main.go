package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/slab-nesting/internal/export"
	"github.com/eugenenazirov/slab-nesting/internal/importer"
	"github.com/eugenenazirov/slab-nesting/internal/logging"
	"github.com/eugenenazirov/slab-nesting/internal/nesting"
	"github.com/eugenenazirov/slab-nesting/internal/palette"
	"github.com/eugenenazirov/slab-nesting/internal/render"
)

// exitValidation is returned when the input cannot be laid out.
const exitValidation = 2

var formats = []string{"svg", "png", "dxf", "pdf", "xlsx", "html"}

type inputFlags struct {
	slab       string
	pieces     []string
	importFile string
}

type cli struct {
	app     *kingpin.Application
	verbose bool

	compute     *kingpin.CmdClause
	computeIn   inputFlags
	computeJSON bool

	render    *kingpin.CmdClause
	renderIn  inputFlags
	format    string
	out       string
	extent    float64
	title     string
	stdout    io.Writer
	clockFunc func() time.Time
}

func newCLI(stdout io.Writer) *cli {
	c := &cli{
		app:       kingpin.New("nestctl", "Count and draw how many copies of each piece fit on a slab"),
		stdout:    stdout,
		clockFunc: func() time.Time { return time.Now().UTC() },
	}
	c.app.Flag("verbose", "Log debug output to stderr").Short('v').BoolVar(&c.verbose)

	c.compute = c.app.Command("compute", "Print the placement of every piece type")
	c.computeIn.register(c.compute)
	c.compute.Flag("json", "Print the result as JSON").BoolVar(&c.computeJSON)

	c.render = c.app.Command("render", "Write the layout diagram or a report to a file")
	c.renderIn.register(c.render)
	c.render.Flag("format", "Output format").Default("svg").EnumVar(&c.format, formats...)
	c.render.Flag("out", "Output file, - for stdout").Short('o').Required().StringVar(&c.out)
	c.render.Flag("extent", "Display length of the slab's longer side for svg and png").
		Default(fmt.Sprint(nesting.DefaultDisplayExtent)).Float64Var(&c.extent)
	c.render.Flag("title", "Report title for pdf, xlsx and html").StringVar(&c.title)

	return c
}

func (in *inputFlags) register(cmd *kingpin.CmdClause) {
	cmd.Flag("slab", "Slab size as WIDTHxHEIGHT").Default("1000x2000").StringVar(&in.slab)
	cmd.Flag("piece", "Piece as NAME:WIDTHxHEIGHT[:#rrggbb] (repeatable)").Short('p').StringsVar(&in.pieces)
	cmd.Flag("import", "CSV or XLSX file with name, width and height columns").ExistingFileVar(&in.importFile)
}

func main() {
	c := newCLI(os.Stdout)
	command, err := c.app.Parse(os.Args[1:])
	if err != nil {
		c.app.FatalUsage("%v\n", err)
	}

	level := "warn"
	if c.verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.WithConsole(), logging.WithLevel(level))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := c.run(command, logger); err != nil {
		var verr *nesting.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(os.Stderr, "nestctl: %v\n", err)
			_ = logger.Sync()
			os.Exit(exitValidation)
		}
		c.app.Fatalf("%v", err)
	}
}

func (c *cli) run(command string, logger *zap.Logger) error {
	switch command {
	case c.compute.FullCommand():
		slab, result, err := c.calculate(c.computeIn, logger)
		if err != nil {
			return err
		}
		if c.computeJSON {
			return writeJSON(c.stdout, slab, result)
		}
		return writeTable(c.stdout, slab, result)
	case c.render.FullCommand():
		if !(c.extent > 0) || c.extent > nesting.MaxDisplayExtent {
			return fmt.Errorf("--extent must be greater than 0 and at most %v, got %v", nesting.MaxDisplayExtent, c.extent)
		}
		slab, result, err := c.calculate(c.renderIn, logger)
		if err != nil {
			return err
		}
		return c.writeOutput(slab, result, logger)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func (c *cli) calculate(in inputFlags, logger *zap.Logger) (nesting.SlabSpec, nesting.CalculationResult, error) {
	slab, err := importer.ParseSlab(in.slab)
	if err != nil {
		return nesting.SlabSpec{}, nesting.CalculationResult{}, err
	}
	pieces, err := loadPieces(in, logger)
	if err != nil {
		return nesting.SlabSpec{}, nesting.CalculationResult{}, err
	}

	result, err := nesting.New().Compute(slab, pieces)
	if err != nil {
		return nesting.SlabSpec{}, nesting.CalculationResult{}, err
	}
	logger.Debug("layout computed",
		zap.Int("piece_types", len(result.Placements)),
		zap.Int("pieces", result.TotalCount()),
		zap.Float64("waste_area", result.WasteArea),
	)
	return slab, result, nil
}

// loadPieces collects pieces from --piece flags followed by the imported file.
// Unnamed pieces are numbered by their final position.
func loadPieces(in inputFlags, logger *zap.Logger) ([]nesting.PieceSpec, error) {
	pieces := make([]nesting.PieceSpec, 0, len(in.pieces))
	for _, raw := range in.pieces {
		p, err := importer.ParsePiece(raw)
		if err != nil {
			return nil, err
		}
		pieces = append(pieces, p)
	}

	if in.importFile != "" {
		f, err := os.Open(in.importFile)
		if err != nil {
			return nil, fmt.Errorf("open import file: %w", err)
		}
		defer f.Close()

		res, err := importer.Import(in.importFile, f)
		if err != nil {
			return nil, err
		}
		for _, w := range res.Warnings {
			logger.Warn("import warning", zap.String("file", in.importFile), zap.String("detail", w))
		}
		if !res.OK() {
			return nil, fmt.Errorf("import %s: %s", in.importFile, strings.Join(res.Errors, "; "))
		}
		pieces = append(pieces, res.Pieces...)
	}

	for i := range pieces {
		if pieces[i].Name == "" {
			pieces[i].Name = fmt.Sprintf("Piece %d", i+1)
		}
		if !palette.Valid(pieces[i].Color) {
			pieces[i].Color = palette.New()
		}
	}
	return pieces, nil
}

// writeOutput renders into memory so a failed render leaves no partial file
// behind.
func (c *cli) writeOutput(slab nesting.SlabSpec, result nesting.CalculationResult, logger *zap.Logger) error {
	var buf bytes.Buffer
	if err := c.renderTo(&buf, slab, result); err != nil {
		return err
	}

	if c.out == "-" {
		if _, err := c.stdout.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	} else if err := writeFile(c.out, buf.Bytes()); err != nil {
		return err
	}

	logger.Debug("output written", zap.String("format", c.format), zap.String("path", c.out))
	return nil
}

func writeFile(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}

func (c *cli) drawDiagram(w io.Writer, slab nesting.SlabSpec, result nesting.CalculationResult, draw func(io.Writer, render.Diagram) error) error {
	d, err := render.NewDiagram(slab, result.Placements, nesting.ScaleFor(c.extent, slab))
	if err != nil {
		return err
	}
	return draw(w, d)
}

func (c *cli) renderTo(w io.Writer, slab nesting.SlabSpec, result nesting.CalculationResult) error {
	report := export.Report{Title: c.title, Slab: slab, Result: result, GeneratedAt: c.clockFunc()}
	var err error
	switch c.format {
	case "svg":
		err = c.drawDiagram(w, slab, result, render.SVG)
	case "png":
		err = c.drawDiagram(w, slab, result, render.PNG)
	case "dxf":
		err = render.DXF(w, slab, result.Placements)
	case "pdf":
		err = export.PDF(w, report)
	case "xlsx":
		err = export.XLSX(w, report)
	case "html":
		err = export.Chart(w, report)
	default:
		err = fmt.Errorf("unsupported format %q", c.format)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", c.format, err)
	}
	return nil
}

type jsonResult struct {
	Slab       nesting.SlabSpec    `json:"slab"`
	Placements []nesting.Placement `json:"placements"`
	SlabArea   float64             `json:"slabArea"`
	UsedArea   float64             `json:"usedArea"`
	WasteArea  float64             `json:"wasteArea"`
	Efficiency float64             `json:"efficiency"`
	TotalCount int                 `json:"totalCount"`
}

func writeJSON(w io.Writer, slab nesting.SlabSpec, result nesting.CalculationResult) error {
	placements := result.Placements
	if placements == nil {
		placements = []nesting.Placement{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonResult{
		Slab:       slab,
		Placements: placements,
		SlabArea:   result.SlabArea,
		UsedArea:   result.UsedArea,
		WasteArea:  result.WasteArea,
		Efficiency: result.Efficiency(),
		TotalCount: result.TotalCount(),
	})
}

func writeTable(w io.Writer, slab nesting.SlabSpec, result nesting.CalculationResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Slab %vx%v\n\n", slab.Width, slab.Height)
	fmt.Fprintln(tw, "#\tNAME\tSIZE\tACROSS\tDOWN\tCOUNT")
	for i, p := range result.Placements {
		fmt.Fprintf(tw, "%d\t%s\t%vx%v\t%d\t%d\t%d\n", i+1, p.Spec.Name, p.Spec.Width, p.Spec.Height, p.Across, p.Down, p.Count)
	}
	fmt.Fprintf(tw, "\nTotal pieces: %d\n", result.TotalCount())
	fmt.Fprintf(tw, "Waste area: %v\n", result.WasteArea)
	fmt.Fprintf(tw, "Efficiency: %.1f%%\n", result.Efficiency())
	return tw.Flush()
}
