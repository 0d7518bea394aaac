package xray

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// StatsClient читает накопительные счётчики трафика через
// `xray api stats query --server=... --name 'user>>>EMAIL>>>traffic>>>uplink'`.
type StatsClient struct {
	bin     string
	apiAddr string
	timeout time.Duration
	log     *slog.Logger
}

func NewStatsClient(bin, apiAddr string, timeout time.Duration, log *slog.Logger) *StatsClient {
	return &StatsClient{bin: bin, apiAddr: apiAddr, timeout: timeout, log: log}
}

// parseStatValue принимает и голое число, и форму "value: N" — разные сборки
// Xray печатают по-разному. Пустой вывод означает нулевой счётчик.
func parseStatValue(out string) (uint64, error) {
	out = strings.TrimSpace(out)
	if cut, ok := strings.CutPrefix(out, "value:"); ok {
		out = strings.TrimSpace(cut)
	}
	if out == "" {
		return 0, nil
	}
	return strconv.ParseUint(out, 10, 64)
}

func (c *StatsClient) query(ctx context.Context, name string) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, c.bin,
		"api", "stats", "query", "--server="+c.apiAddr, "--name", name).Output()
	if err != nil {
		return 0, err
	}
	return parseStatValue(string(out))
}

// AccountBytes возвращает uplink+downlink для identity. Любой сбой запроса —
// нулевая выборка, а не ошибка: временный промах не должен портить накопленный
// итог, дельта нуля всегда безопасна.
func (c *StatsClient) AccountBytes(ctx context.Context, identity string) uint64 {
	var total uint64
	for _, dir := range []string{"uplink", "downlink"} {
		name := fmt.Sprintf("user>>>%s>>>traffic>>>%s", identity, dir)
		v, err := c.query(ctx, name)
		if err != nil {
			c.log.Debug("stats query failed", "name", name, "err", err)
			continue
		}
		total += v
	}
	return total
}
