package xray

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `{
  "log": {"loglevel": "warning", "access": "/var/log/xray/access.log"},
  "api": {"tag": "api", "services": ["StatsService", "HandlerService"]},
  "stats": {},
  "policy": {"levels": {"0": {"statsUserUplink": true, "statsUserDownlink": true}}},
  "inbounds": [
    {
      "tag": "api",
      "port": 10085,
      "listen": "127.0.0.1",
      "protocol": "dokodemo-door",
      "settings": {"address": "127.0.0.1"}
    },
    {
      "tag": "vless-ws",
      "port": 8081,
      "protocol": "vless",
      "settings": {
        "clients": [{"id": "aaaa", "email": "old@bot"}],
        "decryption": "none"
      },
      "streamSettings": {"network": "ws", "security": "none", "wsSettings": {"path": "/ws8081"}}
    }
  ],
  "outbounds": [{"protocol": "freedom", "tag": "direct"}]
}`

func testSpec() InboundSpec {
	return InboundSpec{Tag: "vless-ws", Port: 8081, WSPath: "/ws8081", Security: "none"}
}

func writeConfig(t *testing.T, content string) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return NewStore(path, testSpec(), nil), path
}

func TestLoad_MissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nope.json"), testSpec(), nil)
	_, err := store.Load()
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestLocateManagedInbound_ByTag(t *testing.T) {
	store, _ := writeConfig(t, sampleConfig)
	doc, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, store.LocateManagedInbound(doc))
}

func TestLocateManagedInbound_BySignature(t *testing.T) {
	// конфиг времён ручного администрирования: тег другой, но vless+ws на месте
	cfg := `{"inbounds": [
		{"tag": "legacy", "protocol": "vless",
		 "settings": {"clients": [], "decryption": "none"},
		 "streamSettings": {"network": "ws", "wsSettings": {"path": "/old"}}}
	]}`
	store, _ := writeConfig(t, cfg)
	doc, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, store.LocateManagedInbound(doc))
}

func TestEnsureManagedInbound_Idempotent(t *testing.T) {
	store, _ := writeConfig(t, `{"inbounds": []}`)
	doc, err := store.Load()
	require.NoError(t, err)

	require.NoError(t, store.EnsureManagedInbound(doc))
	require.NoError(t, store.EnsureManagedInbound(doc))
	assert.Len(t, doc.inbounds, 1)

	clients, err := store.Clients(doc)
	require.NoError(t, err)
	assert.Empty(t, clients)
}

func TestClients_NoManagedInbound(t *testing.T) {
	store, _ := writeConfig(t, `{"inbounds": [{"tag": "api", "protocol": "dokodemo-door"}]}`)
	doc, err := store.Load()
	require.NoError(t, err)
	_, err = store.Clients(doc)
	assert.ErrorIs(t, err, ErrNoManagedInbound)
}

func TestSetClients_PreservesUnrelatedFields(t *testing.T) {
	store, path := writeConfig(t, sampleConfig)
	doc, err := store.Load()
	require.NoError(t, err)

	clients, err := store.Clients(doc)
	require.NoError(t, err)
	require.NoError(t, store.SetClients(doc, append(clients, Client{ID: "bbbb", Email: "new@bot"})))
	require.NoError(t, store.ApplySafely(context.Background(), doc))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var out struct {
		Log      map[string]any `json:"log"`
		API      map[string]any `json:"api"`
		Policy   map[string]any `json:"policy"`
		Inbounds []struct {
			Tag      string `json:"tag"`
			Protocol string `json:"protocol"`
			Settings struct {
				Clients    []Client `json:"clients"`
				Decryption string   `json:"decryption"`
			} `json:"settings"`
			StreamSettings map[string]any `json:"streamSettings"`
		} `json:"inbounds"`
		Outbounds []map[string]any `json:"outbounds"`
	}
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, "warning", out.Log["loglevel"])
	assert.NotNil(t, out.API)
	assert.NotNil(t, out.Policy)
	assert.Len(t, out.Outbounds, 1)

	require.Len(t, out.Inbounds, 2)
	assert.Equal(t, "api", out.Inbounds[0].Tag)
	assert.Equal(t, "dokodemo-door", out.Inbounds[0].Protocol)

	managed := out.Inbounds[1]
	assert.Equal(t, "none", managed.Settings.Decryption)
	require.Len(t, managed.Settings.Clients, 2)
	assert.Equal(t, Client{ID: "aaaa", Email: "old@bot"}, managed.Settings.Clients[0])
	assert.Equal(t, Client{ID: "bbbb", Email: "new@bot"}, managed.Settings.Clients[1])
	assert.Equal(t, "ws", managed.StreamSettings["network"])
}

func TestApplySafely_ValidationFailureLeavesLiveFileIntact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	var checked string
	store := NewStore(path, testSpec(), func(ctx context.Context, p string) error {
		checked = p
		return errors.New("bad config")
	})

	doc, err := store.Load()
	require.NoError(t, err)
	require.NoError(t, store.SetClients(doc, []Client{{ID: "x", Email: "x@bot"}}))

	err = store.ApplySafely(context.Background(), doc)
	assert.ErrorIs(t, err, ErrValidationRejected)

	// валидация шла по временному файлу, а не по живому
	assert.NotEqual(t, path, checked)
	assert.NotEmpty(t, checked)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sampleConfig, string(data))

	// временный файл не должен остаться в директории
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "config.json", entries[0].Name())
}

func TestApplySafely_WritesBackup(t *testing.T) {
	store, path := writeConfig(t, sampleConfig)
	doc, err := store.Load()
	require.NoError(t, err)
	require.NoError(t, store.SetClients(doc, nil))
	require.NoError(t, store.ApplySafely(context.Background(), doc))

	bak, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	assert.Equal(t, sampleConfig, string(bak))
}
