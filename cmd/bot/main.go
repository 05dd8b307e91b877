package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/Spok95/construction-bot/internal/bot"
	"github.com/Spok95/construction-bot/internal/config"
	"github.com/Spok95/construction-bot/internal/dialog"
	"github.com/Spok95/construction-bot/internal/domain/batches"
	"github.com/Spok95/construction-bot/internal/domain/dailyreports"
	"github.com/Spok95/construction-bot/internal/domain/deliveries"
	"github.com/Spok95/construction-bot/internal/domain/files"
	"github.com/Spok95/construction-bot/internal/domain/issues"
	"github.com/Spok95/construction-bot/internal/domain/projects"
	"github.com/Spok95/construction-bot/internal/domain/tasks"
	"github.com/Spok95/construction-bot/internal/domain/users"
	"github.com/Spok95/construction-bot/internal/export"
	"github.com/Spok95/construction-bot/internal/infra/db"
	"github.com/Spok95/construction-bot/internal/infra/gemini"
	httpx "github.com/Spok95/construction-bot/internal/infra/http"
	"github.com/Spok95/construction-bot/internal/infra/logger"
	"github.com/Spok95/construction-bot/internal/infra/odoo"
	"github.com/Spok95/construction-bot/internal/infra/telegram"
	"github.com/Spok95/construction-bot/internal/resolver"
	"github.com/Spok95/construction-bot/internal/webapp"
	"github.com/Spok95/construction-bot/internal/workflow"
)

// updateTimeout обработка одного апдейта, включая вызовы ИИ и учёта
const updateTimeout = 2 * time.Minute

func runMigrations(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, "migrations")
}

func main() {
	defaultPath := os.Getenv("APP_CONFIG")
	if defaultPath == "" {
		defaultPath = "config/example.yaml"
	}
	path := flag.String("config", defaultPath, "path to config file")
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)
	loc := cfg.Location()

	if err := runMigrations(cfg.Postgres.DSN); err != nil {
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

	userRepo := users.NewRepo(pool)
	projectRepo := projects.NewRepo(pool)
	batchRepo := batches.NewRepo(pool)
	deliveryRepo := deliveries.NewRepo(pool)

	api, err := telegram.NewAPI(cfg.Telegram.Token, cfg.Outbound.Timeout, cfg.App.Env == "dev")
	if err != nil {
		log.Error("telegram init failed", "err", err)
		return
	}
	sender := telegram.NewSender(api, cfg.Outbound.Timeout)
	log.Info("telegram authorized", "bot", api.Self.UserName)

	deps := bot.Deps{
		Sender:      sender,
		Log:         log,
		States:      dialog.NewRepo(pool),
		Users:       userRepo,
		Projects:    projectRepo,
		Tasks:       tasks.NewRepo(pool),
		Batches:     batchRepo,
		Deliveries:  deliveryRepo,
		Issues:      issues.NewRepo(pool),
		Reports:     dailyreports.NewRepo(pool),
		Files:       files.NewRepo(pool),
		AdminChatID: cfg.Telegram.AdminChatID,
		PublicURL:   cfg.HTTP.PublicURL,
		Font:        export.Font{Family: "DejaVu", Path: cfg.Export.PDFFont},
		Location:    loc,
		Timeout:     updateTimeout,
	}
	flowDeps := workflow.Deps{
		Batches:     batchRepo,
		Deliveries:  deliveryRepo,
		Users:       userRepo,
		Projects:    projectRepo,
		Sender:      sender,
		Log:         log,
		Policy:      deliveries.Policy{ForwardOnly: cfg.Delivery.ForwardOnly},
		AdminChatID: cfg.Telegram.AdminChatID,
	}

	var fin webapp.FinanceSource
	if cfg.Odoo.URL != "" {
		client := odoo.NewClient(cfg.Odoo.URL, cfg.Odoo.DB, cfg.Odoo.Username, cfg.Odoo.Password, cfg.Outbound.Timeout)
		res := resolver.New(odoo.NewStore(client), resolver.DefaultNaming(), log)
		finance := odoo.NewFinance(client)
		fin = finance
		deps.Finance, deps.Pusher = finance, res
		flowDeps.Pusher = res
		log.Info("odoo enabled", "url", cfg.Odoo.URL)
	} else {
		log.Warn("odoo disabled: finance, intake and stage lines are unavailable")
	}

	if cfg.Gemini.APIKey != "" {
		ai, err := gemini.New(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			log.Error("gemini init failed", "err", err)
			return
		}
		defer ai.Close()
		deps.AI = ai
	} else {
		log.Warn("gemini disabled: AI drafts and voice prices are unavailable")
	}

	srv := httpx.New(cfg.HTTP.Addr, cfg.Metrics.Enabled, log)
	if cfg.WebApp.Secret != "" && fin != nil {
		sessions := webapp.NewSessions(cfg.WebApp.Secret, cfg.WebApp.TTL)
		deps.Sessions = sessions
		srv.Mount("/webapp", webapp.NewHandler(sessions, userRepo, projectRepo, fin, log, loc).Routes())
	}

	deps.Workflow = workflow.New(flowDeps)
	b := bot.New(deps)
	dispatcher := bot.NewDispatcher(b.HandleUpdate, cfg.Telegram.Workers, log)

	if cfg.Telegram.Mode == config.ModeWebhook {
		srv.Webhook(cfg.Telegram.WebhookPath, func(upd tgbotapi.Update) {
			dispatcher.Dispatch(ctx, upd)
		})
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			stop()
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr, "mode", cfg.Telegram.Mode)

	if cfg.Telegram.Mode == config.ModePolling {
		if err := bot.Poll(ctx, api, cfg.Telegram.PollTimeout, dispatcher); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("polling stopped", "err", err)
		}
	} else {
		<-ctx.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	dispatcher.Wait()
	log.Info("graceful shutdown complete", "at", time.Now().In(loc).Format(time.RFC3339))
}
