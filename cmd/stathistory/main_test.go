package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/stathistory/internal/aggregate"
	"github.com/fortuna/stathistory/internal/config"
	"github.com/fortuna/stathistory/internal/timeaxis"
)

func parse(t *testing.T, args ...string) (config.Config, *flags, error) {
	t.Helper()
	f := &flags{}
	root := newRootCmd(f)
	cmd, rest, err := root.Find(args)
	require.NoError(t, err)
	require.NoError(t, cmd.ParseFlags(rest))
	cfg, err := loadConfig(cmd, f)
	return cfg, f, err
}

func TestLoadConfigTeamFlags(t *testing.T) {
	cfg, f, err := parse(t, "team", "t1", "--role", "pitchers", "--stat", "WHIP", "--start", "2,10", "--addressing", "rolling", "--window", "7", "-o", "chart.png")
	require.NoError(t, err)

	assert.Equal(t, "pitchers", f.role)
	assert.Equal(t, "whip", cfg.PitcherStat)
	assert.Equal(t, "ops", cfg.BatterStat)
	assert.Equal(t, timeaxis.At(2, 10), cfg.Start)
	assert.Equal(t, aggregate.Rolling, cfg.Addressing)
	assert.Equal(t, 7, cfg.Window)
	assert.Equal(t, "chart.png", cfg.Output)
	assert.Equal(t, config.FormatPNG, cfg.Format)
}

func TestLoadConfigUnsetFlagsKeepDefaults(t *testing.T) {
	cfg, _, err := parse(t, "player", "p1")
	require.NoError(t, err)

	def := config.Default()
	assert.Equal(t, def.Start, cfg.Start)
	assert.Equal(t, def.Window, cfg.Window)
	assert.Equal(t, def.Format, cfg.Format)
	assert.Empty(t, cfg.SoloStats)
}

func TestLoadConfigExplicitFormatWins(t *testing.T) {
	cfg, _, err := parse(t, "player", "p1", "--stats", "ba,obp", "-o", "out.png", "--format", "svg")
	require.NoError(t, err)
	assert.Equal(t, config.FormatSVG, cfg.Format)
	assert.Equal(t, []string{"ba", "obp"}, cfg.SoloStats)
}

func TestLoadConfigBadStart(t *testing.T) {
	_, _, err := parse(t, "player", "p1", "--start", "tomorrow")
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestRoleMode(t *testing.T) {
	m, err := roleMode("Pitchers")
	require.NoError(t, err)
	assert.Equal(t, config.ModePitchers, m)

	m, err = roleMode("")
	require.NoError(t, err)
	assert.Equal(t, config.ModeBatters, m)

	_, err = roleMode("fielders")
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestFormatFor(t *testing.T) {
	tests := map[string]string{
		"a.json": config.FormatJSON,
		"a.SVG":  config.FormatSVG,
		"a.htm":  config.FormatHTML,
		"a.png":  config.FormatPNG,
		"a.jpeg": "",
		"no-ext": "",
	}
	for path, want := range tests {
		assert.Equal(t, want, formatFor(path), path)
	}
}

func TestPurgeWithoutCache(t *testing.T) {
	root := newRootCmd(&flags{})
	root.SetArgs([]string{"cache", "purge", "--cache", "none"})
	assert.NoError(t, root.Execute())
}
