package mmolb_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/stathistory/internal/aggregate"
	"github.com/fortuna/stathistory/internal/mmolb"
	"github.com/fortuna/stathistory/internal/stats"
	"github.com/fortuna/stathistory/internal/timeaxis"
)

const teamJSON = `{"items":[{"entity_id":"t1","data":{
	"Location":"Harbor","Name":"Herons","League":"6805db0cac48194de3cd3fe4",
	"Players":[
		{"PlayerID":"p1","FirstName":"Ada","LastName":"Quill","Position":"C","PositionType":"Batter"},
		{"PlayerID":"p2","FirstName":"Bo","LastName":"Rivers","Position":"SP","PositionType":"Pitcher"},
		{"PlayerID":"p3","FirstName":"Cy","LastName":"Moss","Position":"1B","PositionType":"Batter"}
	],
	"Feed":[{"season":3,"day":12,"type":"augment","text":"Ada Quill gained +1 Aim."}]
}}]}`

const playerJSON = `{"items":[{"entity_id":"p1","data":{
	"FirstName":"Ada","LastName":"Quill","TeamID":"t1","Position":"C","PositionType":"Batter",
	"Feed":[{"season":3,"day":"Superstar Break","type":"augment","text":"Ada Quill rested."}]
}}]}`

func newClient(t *testing.T, handler http.HandlerFunc, maxConnections int) *mmolb.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	fetcher := mmolb.NewFetcher(srv.Client(), nil, time.Minute, maxConnections, nil)
	return mmolb.New(fetcher, srv.URL+"/chron/v0", srv.URL, nil)
}

func TestTeamLookup(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chron/v0/entities", r.URL.Path)
		assert.Equal(t, "team_lite", r.URL.Query().Get("kind"))
		assert.Equal(t, "t1", r.URL.Query().Get("id"))
		assert.Equal(t, mmolb.UserAgent, r.Header.Get("User-Agent"))
		fmt.Fprint(w, teamJSON)
	}, 4)

	team, err := client.Team(context.Background(), "t1")
	require.NoError(t, err)

	assert.Equal(t, "t1", team.ID)
	assert.Equal(t, "Harbor Herons", team.FullName())
	require.Len(t, team.Players, 3)

	batters := team.Roster(stats.Batter)
	require.Len(t, batters, 2)
	assert.Equal(t, "C Ada Quill", batters[0].Label())
	assert.Equal(t, "p3", batters[1].ID)
	assert.Len(t, team.Roster(stats.Pitcher), 1)

	require.Len(t, team.Feed, 1)
	assert.Equal(t, timeaxis.At(3, 12), team.Feed[0].Time)
}

func TestPlayerLookup(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "player_lite", r.URL.Query().Get("kind"))
		fmt.Fprint(w, playerJSON)
	}, 4)

	p, err := client.Player(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "Ada Quill", p.FullName())
	assert.Equal(t, "t1", p.TeamID)
	assert.Equal(t, stats.Batter, p.PositionType)
	require.Len(t, p.Feed, 1)
	assert.True(t, p.Feed[0].Time.IsSpecial())
}

func TestLookupNotFound(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[]}`)
	}, 4)

	_, err := client.Player(context.Background(), "nobody")
	assert.True(t, errors.Is(err, mmolb.ErrNotFound))

	_, err = client.Team(context.Background(), "nowhere")
	assert.True(t, errors.Is(err, mmolb.ErrNotFound))
}

func TestStatRangesOrderedAndCapped(t *testing.T) {
	const limit = 2
	var active, peak atomic.Int32

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)

		assert.Equal(t, "/player-stats", r.URL.Path)
		assert.Equal(t, "t1", r.URL.Query().Get("team"))
		end := r.URL.Query().Get("end")
		day := strings.SplitN(end, ",", 2)[1]
		fmt.Fprintf(w, `[{"player_id":"p1","stats":{"at_bats":%s}}]`, day)
	}, limit)

	axis := timeaxis.Build(timeaxis.At(1, 1), timeaxis.At(1, 11), timeaxis.League{Greater: true})
	ranges := aggregate.Ranges(axis, timeaxis.At(1, 0), aggregate.Addressing{Mode: aggregate.Cumulative})

	var mu sync.Mutex
	var calls []int
	results, err := client.StatRanges(context.Background(),
		mmolb.Subject{Kind: mmolb.KindTeam, ID: "t1"}, ranges,
		func(done, total int) {
			mu.Lock()
			calls = append(calls, done)
			mu.Unlock()
			assert.Equal(t, len(ranges), total)
		})
	require.NoError(t, err)
	require.Len(t, results, len(axis))

	for i, p := range axis {
		require.Len(t, results[i], 1)
		assert.Equal(t, p.Day, results[i][0].Stats.Get(stats.AtBats))
	}
	assert.LessOrEqual(t, peak.Load(), int32(limit))
	assert.Len(t, calls, len(ranges))
}

func TestStatRangesFailureFailsBatch(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("end") == "1,5" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `[]`)
	}, 4)

	axis := timeaxis.Build(timeaxis.At(1, 1), timeaxis.At(1, 9), timeaxis.League{Greater: true})
	ranges := aggregate.Ranges(axis, timeaxis.At(1, 0), aggregate.Addressing{Mode: aggregate.Cumulative})

	results, err := client.StatRanges(context.Background(), mmolb.Subject{Kind: mmolb.KindPlayer, ID: "p1"}, ranges, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Nil(t, results)
}

func TestStatRows(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stats", r.URL.Path)
		assert.Equal(t, "player,day", r.URL.Query().Get("group"))
		assert.Equal(t, "at_bats,singles", r.URL.Query().Get("fields"))
		fmt.Fprint(w, "season,day,player_id,at_bats,singles\n1,3,p1,4,2\n1,5,p1,3,\n1,Holiday,p1,1,1\n")
	}, 4)

	rows, err := client.StatRows(context.Background(),
		mmolb.Subject{Kind: mmolb.KindPlayer, ID: "p1"},
		aggregate.Range{Start: timeaxis.At(1, 1), End: timeaxis.At(1, 9)},
		[]string{stats.AtBats, stats.Singles})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, timeaxis.At(1, 3), rows[0].Time)
	assert.Equal(t, 4, rows[0].Stats.Get(stats.AtBats))
	assert.Equal(t, 0, rows[1].Stats.Get(stats.Singles))
	assert.Equal(t, "Holiday", rows[2].Time.Special)
}

func TestParseRowsRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"WrongHeader", "day,season,player_id\n"},
		{"ShortRow", "season,day,player_id,at_bats\n1,3,p1\n"},
		{"NonNumericCount", "season,day,player_id,at_bats\n1,3,p1,x\n"},
		{"NonNumericSeason", "season,day,player_id,at_bats\nS,3,p1,1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := mmolb.ParseRows(strings.NewReader(tc.body))
			assert.Error(t, err)
		})
	}
}

func TestParseRowsEmptyBody(t *testing.T) {
	rows, err := mmolb.ParseRows(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}
