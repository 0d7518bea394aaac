package xray

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeController считает вызовы и по флагам имитирует недоступный runtime API.
type fakeController struct {
	apiDown    bool
	addCalls   int
	rmCalls    int
	reloads    int
	liveEmails map[string]bool
}

func (f *fakeController) ReloadOrRestart(ctx context.Context) error {
	f.reloads++
	return nil
}

func (f *fakeController) AddUserLive(ctx context.Context, identity, secret string) error {
	f.addCalls++
	if f.apiDown {
		return ErrRuntimeAPIUnavailable
	}
	if f.liveEmails == nil {
		f.liveEmails = map[string]bool{}
	}
	f.liveEmails[identity] = true
	return nil
}

func (f *fakeController) RemoveUserLive(ctx context.Context, identity string) (bool, error) {
	f.rmCalls++
	if f.apiDown {
		return false, ErrRuntimeAPIUnavailable
	}
	found := f.liveEmails[identity]
	delete(f.liveEmails, identity)
	return found, nil
}

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T, ctrl *fakeController) (*Manager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"inbounds": []}`), 0o644))
	store := NewStore(path, testSpec(), nil)
	link := LinkParams{Host: "vpn.example.com", Port: 8081, Path: "/ws8081", Security: "none"}
	return NewManager(store, ctrl, link, discardLog()), path
}

func TestManager_AddAccount_Idempotent(t *testing.T) {
	ctrl := &fakeController{}
	m, path := newTestManager(t, ctrl)
	ctx := context.Background()

	secret1, link1, err := m.AddAccount(ctx, "u1-o1-1@bot")
	require.NoError(t, err)
	require.NotEmpty(t, secret1)
	assert.Contains(t, link1, secret1)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	secret2, link2, err := m.AddAccount(ctx, "u1-o1-1@bot")
	require.NoError(t, err)
	assert.Equal(t, secret1, secret2)
	assert.Equal(t, link1, link2)

	// повторный вызов не пишет файл и не дёргает движок
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
	assert.Equal(t, 1, ctrl.addCalls)
	assert.Equal(t, 0, ctrl.reloads)
}

func TestManager_AddAccount_FallbackReload(t *testing.T) {
	ctrl := &fakeController{apiDown: true}
	m, _ := newTestManager(t, ctrl)

	_, _, err := m.AddAccount(context.Background(), "u1-o1-1@bot")
	require.NoError(t, err)
	assert.Equal(t, 1, ctrl.reloads)
}

func TestManager_RemoveAccount(t *testing.T) {
	ctrl := &fakeController{}
	m, _ := newTestManager(t, ctrl)
	ctx := context.Background()

	_, _, err := m.AddAccount(ctx, "u1-o1-1@bot")
	require.NoError(t, err)

	removed, err := m.RemoveAccount(ctx, "u1-o1-1@bot")
	require.NoError(t, err)
	assert.True(t, removed)
	// живое удаление прошло — reload не нужен
	assert.Equal(t, 0, ctrl.reloads)

	// идемпотентность: второго удаления нет
	removed, err = m.RemoveAccount(ctx, "u1-o1-1@bot")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestManager_RemoveAccount_FallbackReload(t *testing.T) {
	ctrl := &fakeController{}
	m, path := newTestManager(t, ctrl)
	ctx := context.Background()

	_, _, err := m.AddAccount(ctx, "u1-o1-1@bot")
	require.NoError(t, err)

	ctrl.apiDown = true
	removed, err := m.RemoveAccount(ctx, "u1-o1-1@bot")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 1, ctrl.reloads)

	store := NewStore(path, testSpec(), nil)
	doc, err := store.Load()
	require.NoError(t, err)
	clients, err := store.Clients(doc)
	require.NoError(t, err)
	assert.Empty(t, clients)
}

func TestManager_RemoveAccount_NoopKeepsFile(t *testing.T) {
	ctrl := &fakeController{}
	m, path := newTestManager(t, ctrl)
	ctx := context.Background()

	_, _, err := m.AddAccount(ctx, "keep@bot")
	require.NoError(t, err)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	removed, err := m.RemoveAccount(ctx, "ghost@bot")
	require.NoError(t, err)
	assert.False(t, removed)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
	assert.Equal(t, 0, ctrl.reloads)
}

func TestManager_TwoAccountsIndependent(t *testing.T) {
	ctrl := &fakeController{}
	m, _ := newTestManager(t, ctrl)
	ctx := context.Background()

	s1, _, err := m.AddAccount(ctx, "a@bot")
	require.NoError(t, err)
	s2, _, err := m.AddAccount(ctx, "b@bot")
	require.NoError(t, err)
	assert.NotEqual(t, s1, s2)

	removed, err := m.RemoveAccount(ctx, "a@bot")
	require.NoError(t, err)
	assert.True(t, removed)

	// второй доступ жив и идемпотентно возвращается
	s2again, _, err := m.AddAccount(ctx, "b@bot")
	require.NoError(t, err)
	assert.Equal(t, s2, s2again)
}
