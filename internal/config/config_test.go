package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/stathistory/internal/aggregate"
	"github.com/fortuna/stathistory/internal/config"
	"github.com/fortuna/stathistory/internal/timeaxis"
)

func TestDefaultIsValid(t *testing.T) {
	c := config.Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 4, c.MaxConnections)
	assert.Equal(t, 25*time.Minute, c.CacheTTL)
	assert.Equal(t, 5, c.Smooth)
	assert.Equal(t, "ops", c.TeamStat())
	assert.Len(t, c.Colors, 12)
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"UnknownMode", func(c *config.Config) { c.Mode = "umpires" }},
		{"UnknownAddressing", func(c *config.Config) { c.Addressing = "weekly" }},
		{"ZeroWindow", func(c *config.Config) { c.Window = 0 }},
		{"ZeroSmooth", func(c *config.Config) { c.Smooth = 0 }},
		{"UnknownTransport", func(c *config.Config) { c.Transport = "xml" }},
		{"PitcherStatForBatters", func(c *config.Config) { c.BatterStat = "era" }},
		{"UnknownSoloStat", func(c *config.Config) { c.SoloStats = []string{"war"} }},
		{"NoColors", func(c *config.Config) { c.Colors = nil }},
		{"ZeroConnections", func(c *config.Config) { c.MaxConnections = 0 }},
		{"UnknownCache", func(c *config.Config) { c.CacheBackend = "memcached" }},
		{"UnknownFormat", func(c *config.Config) { c.Format = "gif" }},
		{"SpecialStart", func(c *config.Config) { c.Start = timeaxis.TimePoint{Season: 1, Special: "Holiday"} }},
		{"EndBeforeStart", func(c *config.Config) { c.Start, c.End = timeaxis.At(3, 1), timeaxis.At(2, 1) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := config.Default()
			tc.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, config.ErrInvalid))
		})
	}
}

func TestSoloStatsMayMixRoles(t *testing.T) {
	c := config.Default()
	c.SoloStats = []string{"ops", "era"}
	assert.NoError(t, c.Validate())
}

func TestDecodeOverlaysFile(t *testing.T) {
	yaml := `
mode: pitchers
id: team-1
start: "2,10"
end: "3,100"
addressing: rolling
window: 7
transport: csv
pitcher_stat: whip
colors: ["#000000", "#ffffff"]
cache:
  backend: postgres
  ttl: 10m
serve:
  rest_port: "9000"
  watch: ["player:p1", "batters:t1"]
refresh_interval: 1h
`
	c, err := config.Default().Decode([]byte(yaml))
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, config.ModePitchers, c.Mode)
	assert.Equal(t, "team-1", c.ID)
	assert.Equal(t, timeaxis.At(2, 10), c.Start)
	assert.Equal(t, timeaxis.At(3, 100), c.End)
	assert.Equal(t, aggregate.Rolling, c.Addressing)
	assert.Equal(t, 7, c.Window)
	assert.Equal(t, config.TransportCSV, c.Transport)
	assert.Equal(t, "whip", c.TeamStat())
	assert.Equal(t, []string{"#000000", "#ffffff"}, c.Colors)
	assert.Equal(t, config.CachePostgres, c.CacheBackend)
	assert.Equal(t, 10*time.Minute, c.CacheTTL)
	assert.Equal(t, "9000", c.RESTPort)
	assert.Equal(t, "8081", c.WSPort)
	assert.Equal(t, []config.Target{
		{Mode: config.ModePlayer, ID: "p1"},
		{Mode: config.ModeBatters, ID: "t1"},
	}, c.Watch)
	assert.Equal(t, time.Hour, c.RefreshInterval)

	// untouched keys keep their defaults
	assert.Equal(t, "ops", c.BatterStat)
	assert.Equal(t, 4, c.MaxConnections)
}

func TestDecodeRejectsBadTimePoint(t *testing.T) {
	_, err := config.Default().Decode([]byte(`start: "two"`))
	assert.True(t, errors.Is(err, config.ErrInvalid))
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stathistory.yaml")
	require.NoError(t, os.WriteFile(path, []byte("id: from-file\nmax_connections: 2\n"), 0o644))

	t.Setenv("STATHISTORY_ID", "from-env")
	t.Setenv("STATHISTORY_CACHE", "none")
	t.Setenv("STATHISTORY_END", "1,120")
	t.Setenv("STATHISTORY_WATCH", "pitchers:t9, player:p9")

	c, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", c.ID)
	assert.Equal(t, 2, c.MaxConnections)
	assert.Equal(t, config.CacheNone, c.CacheBackend)
	assert.Equal(t, timeaxis.At(1, 120), c.End)
	assert.Equal(t, []config.Target{
		{Mode: config.ModePitchers, ID: "t9"},
		{Mode: config.ModePlayer, ID: "p9"},
	}, c.Watch)
}

func TestEnvRejectsBadInt(t *testing.T) {
	t.Setenv("STATHISTORY_MAX_CONNECTIONS", "many")
	_, err := config.Load("")
	assert.True(t, errors.Is(err, config.ErrInvalid))
}

func TestParseTarget(t *testing.T) {
	got, err := config.ParseTarget("Batters:abc")
	require.NoError(t, err)
	assert.Equal(t, config.Target{Mode: config.ModeBatters, ID: "abc"}, got)
	assert.Equal(t, "batters:abc", got.String())

	for _, bad := range []string{"abc", "player:", "coach:abc"} {
		_, err := config.ParseTarget(bad)
		assert.Error(t, err, bad)
	}
}

func TestWithKeepsOriginal(t *testing.T) {
	base := config.Default()
	other := base.With(config.Target{Mode: config.ModeBatters, ID: "t1"})
	assert.Equal(t, config.ModePlayer, base.Mode)
	assert.Equal(t, "t1", other.ID)
}
