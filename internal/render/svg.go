package render

import (
	"bytes"
	"fmt"
	"html"
	"strconv"
	"strings"
)

// Canvas geometry, in SVG user units.
const (
	width        = 1200
	height       = 600
	marginLeft   = 70
	marginRight  = 200
	marginTop    = 50
	marginBottom = 60
	yTicks       = 5
)

func (c *Chart) plotX(x float64) float64 {
	span := c.XMax - c.XMin
	if span == 0 {
		span = 1
	}
	return marginLeft + (x-c.XMin)/span*(width-marginLeft-marginRight)
}

func (c *Chart) plotY(y float64) float64 {
	return height - marginBottom - (y-c.YMin)/(c.YMax-c.YMin)*(height-marginTop-marginBottom)
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}

// SVG draws the chart as a standalone SVG document.
func (c *Chart) SVG() []byte {
	var b bytes.Buffer
	esc := html.EscapeString
	left, right := float64(marginLeft), float64(width-marginRight)
	top, bottom := float64(marginTop), float64(height-marginBottom)

	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" id="chart" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif" font-size="12">`+"\n",
		width, height, width, height)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="#ffffff"/>`+"\n", width, height)
	fmt.Fprintf(&b, `<text class="title" x="%s" y="28" text-anchor="middle" font-size="16">%s</text>`+"\n",
		num((left+right)/2), esc(c.Title))

	// grid and y labels
	b.WriteString(`<g class="grid">` + "\n")
	for i := 0; i <= yTicks; i++ {
		v := c.YMin + (c.YMax-c.YMin)*float64(i)/yTicks
		y := c.plotY(v)
		fmt.Fprintf(&b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="#999999" stroke-width="0.8"/>`+"\n",
			num(left), num(y), num(right), num(y))
		fmt.Fprintf(&b, `<text class="ytick" x="%s" y="%s" text-anchor="end">%s</text>`+"\n",
			num(left-6), num(y+4), strconv.FormatFloat(v, 'g', 3, 64))
	}
	for _, t := range c.Ticks {
		x := c.plotX(t.X)
		fmt.Fprintf(&b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="#CCCCCC" stroke-dasharray="2,2" stroke-width="0.5"/>`+"\n",
			num(x), num(top), num(x), num(bottom))
		fmt.Fprintf(&b, `<text class="xtick" x="%s" y="%s" text-anchor="middle">%s</text>`+"\n",
			num(x), num(bottom+18), esc(t.Label))
	}
	b.WriteString("</g>\n")
	fmt.Fprintf(&b, `<rect x="%s" y="%s" width="%s" height="%s" fill="none" stroke="#333333"/>`+"\n",
		num(left), num(top), num(right-left), num(bottom-top))
	fmt.Fprintf(&b, `<text class="xlabel" x="%s" y="%d" text-anchor="middle">%s</text>`+"\n",
		num((left+right)/2), height-15, esc(c.XLabel))

	b.WriteString(`<g class="markers">` + "\n")
	for _, m := range c.Markers {
		x := c.plotX(m.X)
		fmt.Fprintf(&b, `<line class="marker" x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-dasharray="6,4" stroke-width="1.2"><title>%s</title></line>`+"\n",
			num(x), num(top), num(x), num(bottom), esc(m.Color), esc(m.Text))
	}
	b.WriteString("</g>\n")

	b.WriteString(`<g class="lines">` + "\n")
	for _, l := range c.Lines {
		for _, seg := range l.Segments {
			if len(seg) == 1 {
				fmt.Fprintf(&b, `<circle class="series-point" data-label="%s" cx="%s" cy="%s" r="3" fill="%s"/>`+"\n",
					esc(l.Label), num(c.plotX(seg[0].X)), num(c.plotY(seg[0].Y)), esc(l.Color))
				continue
			}
			pts := make([]string, len(seg))
			for i, p := range seg {
				pts[i] = num(c.plotX(p.X)) + "," + num(c.plotY(p.Y))
			}
			fmt.Fprintf(&b, `<polyline class="series" data-label="%s" points="%s" fill="none" stroke="%s" stroke-width="2"/>`+"\n",
				esc(l.Label), strings.Join(pts, " "), esc(l.Color))
		}
	}
	b.WriteString("</g>\n")

	b.WriteString(`<g class="legend">` + "\n")
	for i, l := range c.Lines {
		y := top + 10 + float64(i)*20
		fmt.Fprintf(&b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="3"/>`+"\n",
			num(right+15), num(y), num(right+40), num(y), esc(l.Color))
		fmt.Fprintf(&b, `<text class="legend-label" x="%s" y="%s">%s</text>`+"\n",
			num(right+46), num(y+4), esc(l.Label))
	}
	b.WriteString("</g>\n")
	b.WriteString("</svg>\n")
	return b.Bytes()
}
