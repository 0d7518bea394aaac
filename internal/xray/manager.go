package xray

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Spok95/vira-vpn/internal/infra/metrics"
	"github.com/google/uuid"
)

// ProcessController — операции над работающим процессом Xray.
type ProcessController interface {
	ReloadOrRestart(ctx context.Context) error
	AddUserLive(ctx context.Context, identity, secret string) error
	RemoveUserLive(ctx context.Context, identity string) (bool, error)
}

// Manager — идемпотентный add/remove аккаунтов поверх Store и Controller.
//
// Все мутации конфиг-файла сериализуются одним мьютексом: параллельные
// read-modify-write без него молча теряют одну из правок. Runtime API в
// сериализации не нуждается — движок сам упорядочивает свои операции, но
// живое добавление мы всё равно дублируем в файл (без reload), иначе
// перезапуск Xray потеряет выданные доступы.
type Manager struct {
	mu    sync.Mutex
	store *Store
	ctrl  ProcessController
	link  LinkParams
	log   *slog.Logger
}

func NewManager(store *Store, ctrl ProcessController, link LinkParams, log *slog.Logger) *Manager {
	return &Manager{store: store, ctrl: ctrl, link: link, log: log}
}

// AddAccount выдаёт (или возвращает существующий) доступ для identity.
// Повторный вызов без удаления — дешёвый no-op: тот же secret, та же ссылка,
// ни одной записи на диск и ни одного reload.
func (m *Manager) AddAccount(ctx context.Context, identity string) (secret, link string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.store.Load()
	if err != nil {
		return "", "", err
	}
	if err := m.store.EnsureManagedInbound(doc); err != nil {
		return "", "", err
	}
	clients, err := m.store.Clients(doc)
	if err != nil {
		return "", "", err
	}
	for _, c := range clients {
		if c.Email == identity {
			return c.ID, BuildVlessWSLink(c.ID, m.link, identity), nil
		}
	}

	secret = uuid.NewString()
	if err := m.store.SetClients(doc, append(clients, Client{ID: secret, Email: identity})); err != nil {
		return "", "", err
	}
	if err := m.store.ApplySafely(ctx, doc); err != nil {
		return "", "", err
	}

	if liveErr := m.ctrl.AddUserLive(ctx, identity, secret); liveErr != nil {
		m.log.Info("runtime api unavailable, reloading xray", "identity", identity, "err", liveErr)
		if err := m.ctrl.ReloadOrRestart(ctx); err != nil {
			return "", "", err
		}
	}

	metrics.AccountsAdded.Inc()
	return secret, BuildVlessWSLink(secret, m.link, identity), nil
}

// RemoveAccount снимает доступ для identity. Возвращает, была ли запись.
// Файл чистится всегда, даже если живое удаление прошло: иначе рестарт
// движка воскресит удалённого клиента. Пустая фильтрация не пишет файл и
// не дёргает reload.
func (m *Manager) RemoveAccount(ctx context.Context, identity string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	liveFound, liveErr := m.ctrl.RemoveUserLive(ctx, identity)
	if liveErr != nil && !errors.Is(liveErr, ErrRuntimeAPIUnavailable) {
		return false, liveErr
	}

	doc, err := m.store.Load()
	if err != nil {
		return false, err
	}
	clients, err := m.store.Clients(doc)
	if err != nil {
		if errors.Is(err, ErrNoManagedInbound) {
			return liveErr == nil && liveFound, nil
		}
		return false, err
	}

	kept := clients[:0:0]
	for _, c := range clients {
		if c.Email != identity {
			kept = append(kept, c)
		}
	}
	changed := len(kept) != len(clients)

	if changed {
		if err := m.store.SetClients(doc, kept); err != nil {
			return false, err
		}
		if err := m.store.ApplySafely(ctx, doc); err != nil {
			return false, err
		}
		if liveErr != nil {
			// живого удаления не было — без reload движок не узнает об изменении
			if err := m.ctrl.ReloadOrRestart(ctx); err != nil {
				return false, err
			}
		}
	}

	removed := changed || (liveErr == nil && liveFound)
	if removed {
		metrics.AccountsRemoved.Inc()
	}
	return removed, nil
}
