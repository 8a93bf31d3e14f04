package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"empire_bot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	body += "\nstorage:\n  path: " + filepath.Join(dir, "empire.db") +
		"\nlogging:\n  dir: " + filepath.Join(dir, "logs") + "\n"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestInitialize(t *testing.T) {
	path := writeConfig(t, `
accounts:
  - user_id: 1
    phpsessid: a
    remember_token: b
  - user_id: 2
    phpsessid: c
    remember_token: d
    steam:
      account_name: bot
      session_id: s
      login_secure: l
status:
  addr: localhost:0
`)

	b := NewBootstrap()
	require.NoError(t, b.Initialize(path))
	defer b.Journal.Close()

	statuses := b.Registry.Statuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, domain.UserID(1), statuses[0].UserID)
	assert.Equal(t, "manual", statuses[0].OfferMode)
	assert.Equal(t, "steam", statuses[1].OfferMode)
	assert.NotNil(t, b.Status)
	assert.NotNil(t, b.Notifier)
}

func TestInitialize_InvalidConfig(t *testing.T) {
	path := writeConfig(t, "accounts: []\n")

	err := NewBootstrap().Initialize(path)

	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "accounts", cfgErr.Field)
}

func TestInitialize_MissingFile(t *testing.T) {
	err := NewBootstrap().Initialize(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	path := writeConfig(t, `
accounts:
  - user_id: 1
    phpsessid: a
    remember_token: b
`)
	b := NewBootstrap()
	require.NoError(t, b.Initialize(path))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestInitialize_NotifySinks(t *testing.T) {
	path := writeConfig(t, `
accounts:
  - user_id: 1
    phpsessid: a
    remember_token: b
notify:
  webhook_url: https://hooks.example.com/x
  redis_url: redis://localhost:6379/0
`)

	b := NewBootstrap()
	require.NoError(t, b.Initialize(path))
	defer b.Journal.Close()
	defer b.Redis.Close()

	assert.NotNil(t, b.Redis)
	assert.Nil(t, b.Status, "status server is disabled without an address")
}
