package render

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// SVG writes the diagram as a standalone SVG document.
func SVG(w io.Writer, d Diagram) error {
	width, height := d.Size()
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`+"\n",
		num(width), num(height), num(width), num(height))
	fmt.Fprintf(bw, `<rect width="100%%" height="100%%" fill="%s"/>`+"\n", backgroundColor)
	for _, r := range d.Rects {
		fmt.Fprintf(bw, `<rect data-key="%d-%d-%d" x="%s" y="%s" width="%s" height="%s" fill="%s" stroke="%s"/>`+"\n",
			r.Piece, r.Row, r.Col, num(r.X), num(r.Y), num(r.Width), num(r.Height), attr(string(r.Color)), strokeColor)
	}
	bw.WriteString("</svg>\n")

	return bw.Flush()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func attr(v string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(v))
	return b.String()
}
