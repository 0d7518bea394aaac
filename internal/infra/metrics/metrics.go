package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AccountsAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vira_accounts_added_total",
		Help: "Клиенты, добавленные в Xray.",
	})
	AccountsRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vira_accounts_removed_total",
		Help: "Клиенты, удалённые из Xray.",
	})
	// mode: api | reload | restart
	EngineApplies = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vira_engine_applies_total",
		Help: "Применение изменений конфигурации Xray по способу.",
	}, []string{"mode"})
	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vira_sweep_runs_total",
		Help: "Итерации фоновых обходов.",
	}, []string{"sweep"})
	SweepFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vira_sweep_failures_total",
		Help: "Ошибки обработки отдельных подписок в обходах.",
	}, []string{"sweep"})
	Suspended = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vira_subscriptions_suspended_total",
		Help: "Отключённые подписки по причине.",
	}, []string{"cause"})
)
