package timeaxis

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidTimePoint is returned when a "season,day" string cannot be parsed.
var ErrInvalidTimePoint = errors.New("invalid time point")

// TimePoint addresses one slot of the league calendar.
// Special is set (and Day ignored) for non-numbered event days such as
// "Superstar Break" that sit outside the regular schedule.
type TimePoint struct {
	Season  int    `json:"season"`
	Day     int    `json:"day"`
	Special string `json:"special,omitempty"`
}

// At returns the numbered day of a season.
func At(season, day int) TimePoint {
	return TimePoint{Season: season, Day: day}
}

// IsSpecial reports whether the point is a sentinel (non-numbered) day.
func (t TimePoint) IsSpecial() bool {
	return t.Special != ""
}

// Compare orders points by season, then day. Within a season a special day
// sorts after every numbered day.
func (t TimePoint) Compare(o TimePoint) int {
	switch {
	case t.Season < o.Season:
		return -1
	case t.Season > o.Season:
		return 1
	}

	switch {
	case t.IsSpecial() && o.IsSpecial():
		return strings.Compare(t.Special, o.Special)
	case t.IsSpecial():
		return 1
	case o.IsSpecial():
		return -1
	case t.Day < o.Day:
		return -1
	case t.Day > o.Day:
		return 1
	}
	return 0
}

// Before reports whether t sorts strictly before o.
func (t TimePoint) Before(o TimePoint) bool {
	return t.Compare(o) < 0
}

// Within reports whether t lies in the closed range [start, end].
// Special days are always considered in range.
func (t TimePoint) Within(start, end TimePoint) bool {
	if t.IsSpecial() {
		return true
	}
	return start.Compare(t) <= 0 && t.Compare(end) <= 0
}

// Query formats the point the way the stats API expects it: "season,day".
func (t TimePoint) Query() string {
	if t.IsSpecial() {
		return fmt.Sprintf("%d,%s", t.Season, t.Special)
	}
	return fmt.Sprintf("%d,%d", t.Season, t.Day)
}

func (t TimePoint) String() string {
	if t.IsSpecial() {
		return fmt.Sprintf("S%d %s", t.Season, t.Special)
	}
	return fmt.Sprintf("S%d D%d", t.Season, t.Day)
}

// Parse reads a "season,day" pair. A non-numeric day yields a special point.
func Parse(s string) (TimePoint, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ",", 2)
	if len(parts) != 2 {
		return TimePoint{}, fmt.Errorf("%w: %q (want season,day)", ErrInvalidTimePoint, s)
	}

	season, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return TimePoint{}, fmt.Errorf("%w: season %q", ErrInvalidTimePoint, parts[0])
	}

	dayStr := strings.TrimSpace(parts[1])
	if dayStr == "" {
		return TimePoint{}, fmt.Errorf("%w: empty day in %q", ErrInvalidTimePoint, s)
	}
	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return TimePoint{Season: season, Special: dayStr}, nil
	}
	return At(season, day), nil
}

// Axis is an ordered sequence of sampling points.
type Axis []TimePoint

// Build produces the sampling points between start and end for a league,
// stepping two days at a time. Interior seasons span the league's full
// calendar; the first and last season use the normalized caller bounds.
// A start that normalizes past the end yields an empty axis.
func Build(start, end TimePoint, league League) Axis {
	axis := Axis{}
	for season := start.Season; season <= end.Season; season++ {
		from, to := league.FirstDay(), league.LastDay()
		if season == start.Season {
			from = league.NormalizeStart(start.Day)
		}
		if season == end.Season {
			to = league.NormalizeEnd(end.Day)
		}
		for day := from; day <= to; day += 2 {
			axis = append(axis, At(season, day))
		}
	}
	return axis
}

// SpansSeasons reports whether the axis covers more than one season.
func (a Axis) SpansSeasons() bool {
	return len(a) > 0 && a[0].Season != a[len(a)-1].Season
}

// Position places t on the axis as a fractional index. Points between two
// samples of the same season are interpolated by day. Special days and points
// outside the axis have no position.
func (a Axis) Position(t TimePoint) (float64, bool) {
	if t.IsSpecial() || len(a) == 0 {
		return 0, false
	}
	if t.Before(a[0]) || a[len(a)-1].Before(t) {
		return 0, false
	}

	i := sort.Search(len(a), func(i int) bool { return !a[i].Before(t) })
	if a[i].Compare(t) == 0 {
		return float64(i), true
	}

	prev, next := a[i-1], a[i]
	if prev.Season != t.Season {
		return float64(i), true
	}
	if next.Season != t.Season {
		return float64(i - 1), true
	}
	frac := float64(t.Day-prev.Day) / float64(next.Day-prev.Day)
	return float64(i-1) + frac, true
}
