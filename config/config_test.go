package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := "addr: 127.0.0.1:7005\nbootstrap:\n  - 127.0.0.1:7001\n  - 127.0.0.1:7002\nstore_node_list: true\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:7005", cfg.Addr)
	require.Equal(t, []string{"127.0.0.1:7001", "127.0.0.1:7002"}, cfg.Bootstrap)
	require.True(t, cfg.StoreNodeList)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	require.Error(t, err)
}

func TestLoadParsesProberTimingKnobs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := "addr: 127.0.0.1:7005\nping_interval_ms: 500\noffline_recheck_secs: 20\nnodelist_resync_ms: 250\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, int64(500), cfg.PingGateMs)
	require.Equal(t, int64(20), cfg.OfflineRecheck)
	require.Equal(t, int64(250), cfg.NodeListStale)
}
