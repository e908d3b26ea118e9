package render

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fortuna/stathistory/internal/config"
	"github.com/fortuna/stathistory/internal/history"
)

var (
	// ErrUnknownFormat is returned for an output format the renderer lacks.
	ErrUnknownFormat = errors.New("unknown output format")
	// ErrPNGUnavailable is returned for png output without an exporter.
	ErrPNGUnavailable = errors.New("png export not configured")
)

// Renderer produces every output format from a history.
type Renderer struct {
	opts Options
	png  *PNGExporter
}

// NewRenderer creates a renderer. png may be nil when PNG output is not
// needed.
func NewRenderer(opts Options, png *PNGExporter) *Renderer {
	return &Renderer{opts: opts, png: png}
}

// ContentType is the MIME type of a format.
func ContentType(format string) string {
	switch format {
	case config.FormatJSON:
		return "application/json"
	case config.FormatSVG:
		return "image/svg+xml"
	case config.FormatHTML:
		return "text/html; charset=utf-8"
	case config.FormatPNG:
		return "image/png"
	}
	return "application/octet-stream"
}

// Render encodes h in format. Smoothing applies to the chart formats only;
// JSON carries the unsmoothed series.
func (r *Renderer) Render(ctx context.Context, h *history.History, format string) ([]byte, error) {
	switch format {
	case config.FormatJSON:
		out, err := json.MarshalIndent(h, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding history: %w", err)
		}
		return out, nil
	case config.FormatSVG:
		return NewChart(h, r.opts).SVG(), nil
	case config.FormatHTML:
		return NewChart(h, r.opts).HTML()
	case config.FormatPNG:
		if r.png == nil {
			return nil, ErrPNGUnavailable
		}
		page, err := NewChart(h, r.opts).HTML()
		if err != nil {
			return nil, err
		}
		return r.png.Export(ctx, page)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}
