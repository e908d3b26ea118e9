// Package render turns a computed history into a line chart: SVG, an HTML
// page around the SVG, or a PNG screenshot of that page.
package render

import (
	"fmt"

	"github.com/fortuna/stathistory/internal/config"
	"github.com/fortuna/stathistory/internal/feed"
	"github.com/fortuna/stathistory/internal/history"
	"github.com/fortuna/stathistory/internal/stats"
	"github.com/fortuna/stathistory/internal/timeaxis"
)

// NeutralColor marks feed events that mention several charted players.
const NeutralColor = "#808080"

// maxTicks bounds the number of labelled x positions.
const maxTicks = 12

// Options controls chart styling.
type Options struct {
	Smooth int
	Colors []string
}

// OptionsFrom takes the chart options out of a run configuration.
func OptionsFrom(cfg config.Config) Options {
	return Options{Smooth: cfg.Smooth, Colors: cfg.Colors}
}

// Point is one sample of a line. X is a fractional axis index.
type Point struct {
	X float64
	Y float64
}

// Line is one plotted series. Segments are the runs of consecutive
// defined samples; an undefined sample breaks the line.
type Line struct {
	Label    string
	Name     string
	Color    string
	Segments [][]Point
}

// Marker is a vertical reference line for a feed annotation.
type Marker struct {
	X     float64
	Color string
	Text  string
}

// Tick labels one x position.
type Tick struct {
	X     float64
	Label string
}

// Chart is a fully laid out chart in axis units.
type Chart struct {
	Title   string
	XLabel  string
	XMin    float64
	XMax    float64
	YMin    float64
	YMax    float64
	Ticks   []Tick
	Lines   []Line
	Markers []Marker
	// Caption lists every annotation, placed or not, in feed order.
	Caption []string
}

// NewChart lays out a history. Player histories plot one line per stat;
// team histories plot the chosen stat once per player, after dropping axis
// points where no player has a value. Lines break at dropped points as they
// do at undefined values.
func NewChart(h *history.History, opts Options) *Chart {
	if len(opts.Colors) == 0 {
		opts.Colors = config.DefaultColors
	}

	type series struct {
		label, name string
		values      []stats.Value
	}
	var all []series
	if h.Solo() && len(h.Entities) > 0 {
		e := h.Entities[0]
		for _, stat := range h.Stats {
			all = append(all, series{label: stat, name: e.Name, values: e.Values(stat)})
		}
	} else if len(h.Stats) > 0 {
		for _, e := range h.Entities {
			all = append(all, series{label: e.Label, name: e.Name, values: e.Values(h.Stats[0])})
		}
	}

	keep := make([]int, len(h.Axis))
	for i := range keep {
		keep[i] = i
	}
	if !h.Solo() {
		values := make([][]stats.Value, len(all))
		for i, s := range all {
			values[i] = s.values
		}
		keep = keepPoints(values, len(h.Axis))
	}

	c := &Chart{
		Title:  h.Title,
		XLabel: "Day",
		XMin:   0,
		XMax:   float64(max(len(h.Axis)-1, 0)),
	}

	empty := true
	for i, s := range all {
		smoothed := Smooth(pick(s.values, keep), opts.Smooth)
		line := Line{Label: s.label, Name: s.name, Color: opts.Colors[i%len(opts.Colors)]}
		var seg []Point
		for j, v := range smoothed {
			if j > 0 && keep[j] != keep[j-1]+1 && len(seg) > 0 {
				line.Segments = append(line.Segments, seg)
				seg = nil
			}
			y, ok := v.Float()
			if !ok {
				if len(seg) > 0 {
					line.Segments = append(line.Segments, seg)
					seg = nil
				}
				continue
			}
			if empty {
				c.YMin, c.YMax, empty = y, y, false
			}
			c.YMin, c.YMax = min(c.YMin, y), max(c.YMax, y)
			seg = append(seg, Point{X: float64(keep[j]), Y: y})
		}
		if len(seg) > 0 {
			line.Segments = append(line.Segments, seg)
		}
		c.Lines = append(c.Lines, line)
	}
	c.YMin, c.YMax = padRange(c.YMin, c.YMax, empty)

	c.Ticks = ticks(h.Axis)
	c.Markers, c.Caption = markers(h, c.Lines)
	return c
}

func padRange(lo, hi float64, empty bool) (float64, float64) {
	if empty {
		return 0, 1
	}
	if lo == hi {
		return lo - 0.5, hi + 0.5
	}
	pad := (hi - lo) * 0.05
	return lo - pad, hi + pad
}

func ticks(axis timeaxis.Axis) []Tick {
	if len(axis) == 0 {
		return nil
	}
	step := max((len(axis)+maxTicks-1)/maxTicks, 1)
	spans := axis.SpansSeasons()

	var out []Tick
	for i := 0; i < len(axis); i += step {
		label := fmt.Sprint(axis[i].Day)
		if spans {
			label = fmt.Sprintf("S%d D%d", axis[i].Season, axis[i].Day)
		}
		out = append(out, Tick{X: float64(i), Label: label})
	}
	return out
}

// markers places annotations on the axis. A marker takes a player's line
// color when the annotation names exactly one charted player who has a
// line of their own; otherwise it is neutral.
func markers(h *history.History, lines []Line) ([]Marker, []string) {
	colorOf := make(map[string]string)
	if !h.Solo() {
		for _, l := range lines {
			colorOf[l.Name] = l.Color
		}
	}
	spans := h.Axis.SpansSeasons()

	var out []Marker
	var caption []string
	for _, a := range h.Annotations {
		text := captionLine(a, spans)
		caption = append(caption, text)

		x, ok := h.Axis.Position(a.Time)
		if !ok {
			continue
		}
		color := NeutralColor
		if len(a.Names) == 1 {
			if c, ok := colorOf[a.Names[0]]; ok {
				color = c
			}
		}
		out = append(out, Marker{X: x, Color: color, Text: text})
	}
	return out, caption
}

func captionLine(a feed.Annotation, spans bool) string {
	switch {
	case a.Time.IsSpecial():
		return fmt.Sprintf("%s: %s", a.Time.Special, a.Text)
	case spans:
		return fmt.Sprintf("S%d Day %d: %s", a.Time.Season, a.Time.Day, a.Text)
	}
	return fmt.Sprintf("Day %d: %s", a.Time.Day, a.Text)
}
