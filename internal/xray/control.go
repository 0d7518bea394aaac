package xray

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/Spok95/vira-vpn/internal/infra/metrics"
)

// Controller управляет внешним процессом Xray: reload/restart через systemd
// и живое добавление/удаление клиентов через runtime API (`xray api adu|rmu`).
type Controller struct {
	serviceName string
	bin         string
	apiAddr     string
	inboundTag  string
	timeout     time.Duration
	log         *slog.Logger
}

func NewController(serviceName, bin, apiAddr, inboundTag string, timeout time.Duration, log *slog.Logger) *Controller {
	return &Controller{
		serviceName: serviceName,
		bin:         bin,
		apiAddr:     apiAddr,
		inboundTag:  inboundTag,
		timeout:     timeout,
		log:         log,
	}
}

func (c *Controller) run(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

// ReloadOrRestart сначала пробует graceful reload (не рвёт текущие
// соединения); только если reload не прошёл — полный restart. Ошибка
// возвращается, когда не сработало ни то, ни другое.
func (c *Controller) ReloadOrRestart(ctx context.Context) error {
	out1, err1 := c.run(ctx, "sudo", "systemctl", "reload", c.serviceName)
	if err1 == nil {
		metrics.EngineApplies.WithLabelValues("reload").Inc()
		return nil
	}
	c.log.Warn("xray reload failed, falling back to restart", "err", err1, "out", out1)

	out2, err2 := c.run(ctx, "sudo", "systemctl", "restart", c.serviceName)
	if err2 == nil {
		metrics.EngineApplies.WithLabelValues("restart").Inc()
		return nil
	}
	return fmt.Errorf("%w: reload: %s (%s); restart: %s (%s)",
		ErrControlFailed, err1, out1, err2, out2)
}

// apiPayload — минимальный inbound-фрагмент, который принимают adu/rmu.
func (c *Controller) apiPayload(clients []Client) ([]byte, error) {
	type settings struct {
		Clients []Client `json:"clients"`
	}
	type inbound struct {
		Tag      string   `json:"tag"`
		Protocol string   `json:"protocol"`
		Settings settings `json:"settings"`
	}
	return json.Marshal(map[string][]inbound{
		"inbounds": {{Tag: c.inboundTag, Protocol: "vless", Settings: settings{Clients: clients}}},
	})
}

func (c *Controller) apiCall(ctx context.Context, op string, clients []Client) (string, error) {
	payload, err := c.apiPayload(clients)
	if err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp("", ".xrayapi_*.json")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	return c.run(ctx, c.bin, "api", op, "--server="+c.apiAddr, tmp.Name())
}

// AddUserLive добавляет клиента в работающий процесс без записи на диск и
// без reload. Любой сбой CLI трактуется как недоступность runtime API:
// вызывающий уходит на файловый путь, пользователю это не видно.
func (c *Controller) AddUserLive(ctx context.Context, identity, secret string) error {
	out, err := c.apiCall(ctx, "adu", []Client{{ID: secret, Email: identity}})
	if err != nil {
		return fmt.Errorf("%w: adu: %s (%s)", ErrRuntimeAPIUnavailable, err, out)
	}
	metrics.EngineApplies.WithLabelValues("api").Inc()
	return nil
}

// RemoveUserLive удаляет клиента через runtime API. CLI не различает
// "не найден" и успех надёжно, поэтому found=true при нулевом коде выхода,
// а любой сбой — сигнал уйти на файловый путь.
func (c *Controller) RemoveUserLive(ctx context.Context, identity string) (bool, error) {
	out, err := c.apiCall(ctx, "rmu", []Client{{Email: identity}})
	if err != nil {
		return false, fmt.Errorf("%w: rmu: %s (%s)", ErrRuntimeAPIUnavailable, err, out)
	}
	return true, nil
}
