package timeaxis_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/stathistory/internal/timeaxis"
)

var (
	greater = timeaxis.League{Greater: true}
	lesser  = timeaxis.League{}
)

func TestForID(t *testing.T) {
	assert.True(t, timeaxis.ForID("6805db0cac48194de3cd3fe4", timeaxis.DefaultGreaterLeagueIDs).Greater)
	assert.True(t, timeaxis.ForID("6805db0cac48194de3cd3fe5", timeaxis.DefaultGreaterLeagueIDs).Greater)
	assert.False(t, timeaxis.ForID("6805db0cac48194de3cd4000", timeaxis.DefaultGreaterLeagueIDs).Greater)
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		name      string
		league    timeaxis.League
		day       int
		wantStart int
		wantEnd   int
	}{
		{"GreaterZero", greater, 0, 1, 0},
		{"GreaterNegative", greater, -5, 1, 0},
		{"GreaterOdd", greater, 17, 17, 17},
		{"GreaterEven", greater, 18, 19, 17},
		{"GreaterPastEnd", greater, 300, 301, 255},
		{"LesserZero", lesser, 0, 2, 1},
		{"LesserOdd", lesser, 17, 18, 16},
		{"LesserEven", lesser, 18, 18, 18},
		{"LesserPastEnd", lesser, 255, 256, 240},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantStart, tc.league.NormalizeStart(tc.day))
			assert.Equal(t, tc.wantEnd, tc.league.NormalizeEnd(tc.day))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, league := range []timeaxis.League{greater, lesser} {
		for day := league.FirstDay(); day <= league.LastDay(); day++ {
			if !league.Valid(day) {
				continue
			}
			assert.Equal(t, day, league.NormalizeStart(day), "start day %d greater=%v", day, league.Greater)
			assert.Equal(t, day, league.NormalizeEnd(day), "end day %d greater=%v", day, league.Greater)
			assert.Equal(t, league.NormalizeStart(day), league.NormalizeStart(league.NormalizeStart(day)))
		}
	}
}

func TestBuildSingleSeason(t *testing.T) {
	axis := timeaxis.Build(timeaxis.At(1, 0), timeaxis.At(1, 10), lesser)
	assert.Equal(t, timeaxis.Axis{
		timeaxis.At(1, 2), timeaxis.At(1, 4), timeaxis.At(1, 6), timeaxis.At(1, 8), timeaxis.At(1, 10),
	}, axis)

	axis = timeaxis.Build(timeaxis.At(1, 0), timeaxis.At(1, 10), greater)
	assert.Equal(t, timeaxis.Axis{
		timeaxis.At(1, 1), timeaxis.At(1, 3), timeaxis.At(1, 5), timeaxis.At(1, 7), timeaxis.At(1, 9),
	}, axis)
}

func TestBuildMultiSeason(t *testing.T) {
	axis := timeaxis.Build(timeaxis.At(1, 236), timeaxis.At(3, 4), lesser)

	want := timeaxis.Axis{timeaxis.At(1, 236), timeaxis.At(1, 238), timeaxis.At(1, 240)}
	for day := 2; day <= 240; day += 2 {
		want = append(want, timeaxis.At(2, day))
	}
	want = append(want, timeaxis.At(3, 2), timeaxis.At(3, 4))

	assert.Equal(t, want, axis)
	assert.True(t, axis.SpansSeasons())
}

func TestBuildEmpty(t *testing.T) {
	cases := []struct {
		name       string
		start, end timeaxis.TimePoint
		league     timeaxis.League
	}{
		{"StartPastEnd", timeaxis.At(1, 11), timeaxis.At(1, 10), greater},
		{"SameOddDayLesser", timeaxis.At(1, 9), timeaxis.At(1, 9), lesser},
		{"SeasonsReversed", timeaxis.At(2, 1), timeaxis.At(1, 255), greater},
		{"StartBeyondCalendar", timeaxis.At(1, 250), timeaxis.At(1, 300), lesser},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			axis := timeaxis.Build(tc.start, tc.end, tc.league)
			require.NotNil(t, axis)
			assert.Empty(t, axis)
		})
	}
}

func TestBuildStaysInCalendar(t *testing.T) {
	bounds := []int{-5, 0, 1, 2, 3, 100, 239, 240, 241, 254, 255, 256, 400}
	for _, league := range []timeaxis.League{greater, lesser} {
		for _, start := range bounds {
			for _, end := range bounds {
				axis := timeaxis.Build(timeaxis.At(4, start), timeaxis.At(5, end), league)
				for _, p := range axis {
					if !league.Valid(p.Day) {
						t.Fatalf("Build(%d,%d) greater=%v produced invalid day %v", start, end, league.Greater, p)
					}
				}
			}
		}
	}
}

func TestParse(t *testing.T) {
	p, err := timeaxis.Parse("3, 120")
	require.NoError(t, err)
	assert.Equal(t, timeaxis.At(3, 120), p)
	assert.Equal(t, "3,120", p.Query())

	p, err = timeaxis.Parse("2,Superstar Break")
	require.NoError(t, err)
	assert.True(t, p.IsSpecial())
	assert.Equal(t, "Superstar Break", p.Special)

	for _, bad := range []string{"", "3", "x,4", "3,"} {
		_, err := timeaxis.Parse(bad)
		assert.True(t, errors.Is(err, timeaxis.ErrInvalidTimePoint), "Parse(%q) = %v", bad, err)
	}
}

func TestCompareAndWithin(t *testing.T) {
	special := timeaxis.TimePoint{Season: 1, Special: "Holiday"}

	assert.True(t, timeaxis.At(1, 240).Before(special))
	assert.True(t, special.Before(timeaxis.At(2, 1)))
	assert.True(t, timeaxis.At(1, 5).Before(timeaxis.At(1, 6)))
	assert.Equal(t, 0, timeaxis.At(2, 5).Compare(timeaxis.At(2, 5)))

	start, end := timeaxis.At(1, 10), timeaxis.At(1, 20)
	assert.True(t, timeaxis.At(1, 10).Within(start, end))
	assert.True(t, timeaxis.At(1, 20).Within(start, end))
	assert.False(t, timeaxis.At(1, 21).Within(start, end))
	assert.True(t, timeaxis.TimePoint{Season: 9, Special: "Election"}.Within(start, end))
}

func TestPosition(t *testing.T) {
	axis := timeaxis.Build(timeaxis.At(1, 236), timeaxis.At(2, 6), lesser)

	pos, ok := axis.Position(timeaxis.At(1, 238))
	require.True(t, ok)
	assert.Equal(t, 1.0, pos)

	pos, ok = axis.Position(timeaxis.At(1, 237))
	require.True(t, ok)
	assert.InDelta(t, 0.5, pos, 1e-9)

	pos, ok = axis.Position(timeaxis.At(2, 3))
	require.True(t, ok)
	assert.InDelta(t, 3.5, pos, 1e-9)

	_, ok = axis.Position(timeaxis.At(2, 100))
	assert.False(t, ok)
	_, ok = axis.Position(timeaxis.TimePoint{Season: 1, Special: "Holiday"})
	assert.False(t, ok)
}
