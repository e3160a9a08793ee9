// Package render draws a stack layout as a standalone SVG document.
package render

import (
	"fmt"
	"html"
	"io"
	"strings"

	"tracestack/internal/stack"
)

const (
	axisHeight   = 20
	legendHeight = 24
	sidePadding  = 25
	arrowColor   = "#8543e0"
)

// SVG writes l as an SVG document to w: legend, lanes, bars, connectors and
// the duration axis beneath the lanes.
func SVG(w io.Writer, l *stack.Layout) error {
	var b strings.Builder

	top := float64(legendHeight)
	width := l.Width + 2*sidePadding
	height := top + l.Height + axisHeight + 10

	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" font-family="sans-serif" font-size="12">`+"\n", width, height)
	b.WriteString(`<defs><marker id="arrow" markerUnits="strokeWidth" markerWidth="5" markerHeight="5" viewBox="-5 -5 10 10" refX="0" refY="0" orient="auto">`)
	fmt.Fprintf(&b, `<path d="M 0,0 m -5,-5 L 5,0 L -5,5 Z" fill="%s" opacity="0.8"/></marker></defs>`+"\n", arrowColor)

	writeLegend(&b, l.Legend)

	fmt.Fprintf(&b, `<g transform="translate(%d,%.0f)">`+"\n", sidePadding, top)
	for _, bar := range l.Bars {
		writeBar(&b, bar)
	}
	for _, c := range l.Connectors {
		writeConnector(&b, c)
	}
	writeAxis(&b, l)
	b.WriteString("</g>\n</svg>\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func writeLegend(b *strings.Builder, legend []stack.LegendEntry) {
	x := float64(sidePadding)
	for _, e := range legend {
		fmt.Fprintf(b, `<rect x="%.1f" y="4" width="12" height="12" fill="%s"/>`, x, html.EscapeString(e.Color))
		fmt.Fprintf(b, `<text x="%.1f" y="14">%s</text>`+"\n", x+16, html.EscapeString(e.ApplicationCode))
		x += 16 + 7*float64(len(e.ApplicationCode)) + 16
	}
}

func writeBar(b *strings.Builder, bar stack.Bar) {
	fmt.Fprintf(b, `<g data-span-key="%s">`, html.EscapeString(bar.SpanKey.String()))
	fmt.Fprintf(b, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s"`, bar.X, bar.Y, bar.Width, bar.Height, html.EscapeString(bar.Fill))
	if bar.IsError {
		b.WriteString(` stroke="#F04864" stroke-width="2"`)
	}
	b.WriteString("/>")
	fmt.Fprintf(b, `<text x="%.2f" y="%.2f" dominant-baseline="middle">%s</text></g>`+"\n",
		bar.X+5, bar.Y+bar.Height/2, html.EscapeString(bar.Label))
}

func writeConnector(b *strings.Builder, c stack.Connector) {
	for i, s := range c.Segments {
		fmt.Fprintf(b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-opacity="0.6"`,
			s.X1, s.Y1, s.X2, s.Y2, arrowColor)
		if c.Arrow && i == len(c.Segments)-1 {
			b.WriteString(` marker-end="url(#arrow)"`)
		}
		b.WriteString("/>\n")
	}
}

func writeAxis(b *strings.Builder, l *stack.Layout) {
	y := l.Height + axisHeight
	fmt.Fprintf(b, `<line x1="0" y1="%.2f" x2="%.2f" y2="%.2f" stroke="#999"/>`+"\n", y, l.Width, y)
	for _, t := range l.Axis.Ticks {
		fmt.Fprintf(b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="#eee"/>`, t.Position, y-l.Axis.TickSize, t.Position, y)
		fmt.Fprintf(b, `<text x="%.2f" y="%.2f" text-anchor="middle">%s</text>`+"\n", t.Position, y+14, html.EscapeString(t.Label))
	}
}
