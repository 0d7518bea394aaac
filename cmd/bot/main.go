package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/Spok95/vira-vpn/internal/bot"
	"github.com/Spok95/vira-vpn/internal/config"
	"github.com/Spok95/vira-vpn/internal/dialog"
	"github.com/Spok95/vira-vpn/internal/domain/admins"
	"github.com/Spok95/vira-vpn/internal/domain/orders"
	"github.com/Spok95/vira-vpn/internal/domain/plans"
	"github.com/Spok95/vira-vpn/internal/domain/subscriptions"
	"github.com/Spok95/vira-vpn/internal/domain/users"
	"github.com/Spok95/vira-vpn/internal/enforce"
	"github.com/Spok95/vira-vpn/internal/infra/db"
	httpx "github.com/Spok95/vira-vpn/internal/infra/http"
	"github.com/Spok95/vira-vpn/internal/infra/logger"
	"github.com/Spok95/vira-vpn/internal/provision"
	"github.com/Spok95/vira-vpn/internal/usage"
	"github.com/Spok95/vira-vpn/internal/xray"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/subosito/gotenv"
)

func runMigrations(dsn string, log *slog.Logger) error {
	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, "migrations")
}

func main() {
	_ = gotenv.Load()

	cfg, err := config.Load("config/example.yaml")
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)

	if err := runMigrations(cfg.Postgres.DSN, log); err != nil {
		log.Error("migrations failed", "err", err)
		return
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return
	}
	defer pool.Close()
	log.Info("db connected")

	usersRepo := users.NewRepo(pool)
	plansRepo := plans.NewRepo(pool)
	ordersRepo := orders.NewRepo(pool)
	subsRepo := subscriptions.NewRepo(pool)
	adminsRepo := admins.NewRepo(pool)
	statesRepo := dialog.NewRepo(pool)

	store := xray.NewStore(cfg.Xray.ConfigPath, xray.InboundSpec{
		Tag:      cfg.Xray.InboundTag,
		Port:     cfg.Xray.Port,
		WSPath:   cfg.Xray.WSPath,
		Security: cfg.Xray.Security,
	}, xray.XrayValidator(cfg.Xray.Bin))
	ctrl := xray.NewController(cfg.Xray.ServiceName, cfg.Xray.Bin, cfg.Xray.APIAddr,
		cfg.Xray.InboundTag, cfg.Enforce.CallTimeout, log)
	stats := xray.NewStatsClient(cfg.Xray.Bin, cfg.Xray.APIAddr, cfg.Enforce.CallTimeout, log)
	manager := xray.NewManager(store, ctrl, xray.LinkParams{
		Host:     cfg.Xray.Domain,
		Port:     cfg.Xray.Port,
		Path:     cfg.Xray.WSPath,
		Security: cfg.Xray.Security,
	}, log)

	meter := usage.NewMeter(stats, subsRepo, log)

	prov := provision.NewService(ordersRepo, plansRepo, subsRepo, manager, provision.TrialConf{
		QuotaMB: cfg.Trial.QuotaMB,
		Hours:   cfg.Trial.Hours,
		Devices: cfg.Trial.Devices,
	}, log)

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		log.Error("telegram init failed", "err", err)
		return
	}
	log.Info("telegram authorized", "bot", api.Self.UserName)

	b := bot.New(api, log,
		usersRepo, plansRepo, ordersRepo, subsRepo, adminsRepo, statesRepo,
		prov, cfg.Telegram.AdminChatID,
		bot.CardInfo{
			Number:      cfg.Payment.CardNumber,
			Name:        cfg.Payment.CardName,
			DeadlineMin: cfg.Payment.DeadlineMin,
		}, cfg.Support.Username)

	sched := enforce.NewScheduler(subsRepo, manager, meter, b, log)
	go sched.RunExpiry(ctx, cfg.Enforce.ExpireInterval)
	go sched.RunQuota(ctx, cfg.Enforce.QuotaInterval)

	srv := httpx.New(cfg.HTTP.Addr, cfg.Metrics.Enabled, pool.Ping)
	go func() {
		if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	if err := b.Run(ctx, 30); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("bot stopped", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}
