package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPathForReplacesDotsAndColons(t *testing.T) {
	require.Equal(t, "127_0_0_1_7001.json", PathFor("127.0.0.1:7001"))
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })

	fs := New("127.0.0.1:7001", nil)
	fs.Save([]string{"127.0.0.1:7002", "127.0.0.1:7003"})

	got := fs.Load()
	require.Equal(t, []string{"127.0.0.1:7002", "127.0.0.1:7003"}, got)

	_, err = os.Stat(filepath.Join(dir, "127_0_0_1_7001.json"))
	require.NoError(t, err)
}

func TestLoadMissingFileReturnsNil(t *testing.T) {
	fs := New("127.0.0.1:9999", nil)
	fs.path = filepath.Join(t.TempDir(), "nope.json")
	require.Nil(t, fs.Load())
}
