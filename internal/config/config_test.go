package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadDefaults(t *testing.T) {
	p := writeTemp(t, "a.yml", "env: test\n")
	c, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, ":7080", c.HTTP.Addr)
	require.Equal(t, 50, c.Chat.HistoryLimit)
	require.Equal(t, 200, c.Chat.HistoryMaxLimit)
	require.Equal(t, 256, c.WS.SendQueue)
	require.Equal(t, 5*time.Second, c.WS.WriteTimeout)
	require.Equal(t, "Bearer ", c.Auth.Token.BearerPrefix)
	require.Equal(t, "token:app:", c.Auth.Token.RedisPrefix)
}

func TestLoadMergesFilesInOrder(t *testing.T) {
	base := writeTemp(t, "common.yml", "http:\n  addr: \":9000\"\nchat:\n  history_limit: 25\n")
	over := writeTemp(t, "local.yml", "http:\n  addr: \":9001\"\n")
	c, err := Load(base + "," + over)
	require.NoError(t, err)
	require.Equal(t, ":9001", c.HTTP.Addr)
	require.Equal(t, 25, c.Chat.HistoryLimit)
}

func TestLoadRequiresPath(t *testing.T) {
	_, err := Load("  ")
	require.Error(t, err)
}
