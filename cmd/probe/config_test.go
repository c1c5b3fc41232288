package main

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(wd)) })
}

func TestReadConfig_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TARGET_URL", "http://localhost:8081")

	cfg, err := readConfig()
	require.NoError(t, err)
	require.Equal(t, []string{"/orders"}, cfg.Paths)
	require.Equal(t, 20, cfg.Requests)
	require.Equal(t, 5*time.Minute, cfg.RequestTimeout)
	require.Equal(t, "routes.example.yaml", cfg.RoutesFile)
	require.Equal(t, "ratelimit:client", cfg.Stats.Prefix)
	require.False(t, cfg.Stats.Enabled)
}

func TestReadConfig_RequiresTarget(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TARGET_URL", "")

	_, err := readConfig()
	require.Error(t, err)
}

func TestReadConfig_StatsNeedRedisAddr(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TARGET_URL", "http://localhost:8081")
	t.Setenv("RATE_STATS_ENABLED", "true")

	_, err := readConfig()
	require.ErrorContains(t, err, "RATE_STATS_REDIS_ADDR")
}

func TestReadConfig_ParsesLists(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TARGET_URL", "http://localhost:8081")
	t.Setenv("PROBE_PATHS", "/orders,/items/1")
	t.Setenv("PACER_RPS", "2.5")
	t.Setenv("PACER_BURST", "0")

	_, err := readConfig()
	require.ErrorContains(t, err, "PACER_BURST")

	t.Setenv("PACER_BURST", "3")
	cfg, err := readConfig()
	require.NoError(t, err)
	require.Equal(t, []string{"/orders", "/items/1"}, cfg.Paths)
	require.Equal(t, 2.5, cfg.PacerRPS)
}
