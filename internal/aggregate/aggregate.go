package aggregate

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/fortuna/stathistory/internal/stats"
	"github.com/fortuna/stathistory/internal/timeaxis"
)

// ErrUnknownMode is returned for an addressing mode other than cumulative or rolling.
var ErrUnknownMode = errors.New("unknown addressing mode")

// Mode selects how each sample's query range is derived from the axis.
type Mode string

const (
	// Cumulative samples cover everything from the fixed start to the point.
	Cumulative Mode = "cumulative"
	// Rolling samples cover a centered window of neighbouring axis points.
	Rolling Mode = "rolling"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Cumulative, Rolling:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Addressing pairs a mode with its rolling window (in axis points).
type Addressing struct {
	Mode   Mode
	Window int
}

// Range is a closed query interval.
type Range struct {
	Start timeaxis.TimePoint `json:"start"`
	End   timeaxis.TimePoint `json:"end"`
}

// Contains reports whether t falls in the range by calendar order.
func (r Range) Contains(t timeaxis.TimePoint) bool {
	return !t.Before(r.Start) && !r.End.Before(t)
}

// HalfWindow is the number of axis points taken on each side of a rolling
// sample. Halves round to even.
func HalfWindow(window int) int {
	return int(math.RoundToEven(float64(window) / 2))
}

// Ranges returns the query range of every axis point.
func Ranges(axis timeaxis.Axis, start timeaxis.TimePoint, addr Addressing) []Range {
	ranges := make([]Range, len(axis))
	if addr.Mode == Rolling {
		w := HalfWindow(addr.Window)
		last := len(axis) - 1
		for i := range axis {
			ranges[i] = Range{Start: axis[max(i-w, 0)], End: axis[min(i+w, last)]}
		}
		return ranges
	}

	for i, p := range axis {
		ranges[i] = Range{Start: start, End: p}
	}
	return ranges
}

// Record is one entity's stat block in a per-range response.
type Record struct {
	EntityID string             `json:"player_id"`
	Stats    stats.RawStatBlock `json:"stats"`
}

// Row is one entity's counts for a single day, as returned by the tabular endpoint.
type Row struct {
	Time     timeaxis.TimePoint
	EntityID string
	Stats    stats.RawStatBlock
}

// Series holds one raw block per axis point.
type Series []stats.RawStatBlock

// Table maps entity ids to axis-aligned series. Every series in a table has
// the axis' length.
type Table map[string]Series

func newTable(entityIDs []string, n int) Table {
	table := make(Table, len(entityIDs))
	for _, id := range entityIDs {
		table[id] = make(Series, n)
	}
	return table
}

// Reshape turns per-point responses (results[i] answers axis[i]) into a
// table. Entities missing from a point's response get an empty block there;
// records for entities outside entityIDs are dropped.
func Reshape(axis timeaxis.Axis, entityIDs []string, results [][]Record) (Table, error) {
	if len(results) != len(axis) {
		return nil, fmt.Errorf("reshaping %d responses onto %d axis points", len(results), len(axis))
	}

	table := newTable(entityIDs, len(axis))
	for i := range axis {
		for _, rec := range results[i] {
			series, ok := table[rec.EntityID]
			if !ok {
				continue
			}
			series[i] = rec.Stats.Clone()
		}
		for _, series := range table {
			if series[i] == nil {
				series[i] = stats.RawStatBlock{}
			}
		}
	}
	return table, nil
}

// FromRows builds a table from per-day rows.
//
// Cumulative: each point sums the entity's rows from start through the
// point. A point with no new rows reuses the previous block (no games
// played means unchanged stats), and an entity with no rows yet has an empty block.
//
// Rolling: each point sums the entity's rows inside the point's window.
func FromRows(axis timeaxis.Axis, entityIDs []string, rows []Row, start timeaxis.TimePoint, addr Addressing) Table {
	table := newTable(entityIDs, len(axis))

	byEntity := make(map[string][]Row, len(entityIDs))
	for _, row := range rows {
		if _, ok := table[row.EntityID]; ok {
			byEntity[row.EntityID] = append(byEntity[row.EntityID], row)
		}
	}
	for _, rs := range byEntity {
		sort.SliceStable(rs, func(i, j int) bool { return rs[i].Time.Before(rs[j].Time) })
	}

	ranges := Ranges(axis, start, addr)
	for id, series := range table {
		rs := byEntity[id]
		if addr.Mode == Rolling {
			for i, r := range ranges {
				block := stats.RawStatBlock{}
				for _, row := range rs {
					if r.Contains(row.Time) {
						block = block.Add(row.Stats)
					}
				}
				series[i] = block
			}
			continue
		}

		acc := stats.RawStatBlock{}
		next := 0
		for i, p := range axis {
			for next < len(rs) && !p.Before(rs[next].Time) {
				if !rs[next].Time.Before(start) {
					acc = acc.Add(rs[next].Stats)
				}
				next++
			}
			series[i] = acc.Clone()
		}
	}
	return table
}
