package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/omarshaarawi/courtside/internal/api/portal"
	"github.com/omarshaarawi/courtside/internal/bot"
	"github.com/omarshaarawi/courtside/internal/catalog"
	"github.com/omarshaarawi/courtside/internal/config"
	"github.com/omarshaarawi/courtside/internal/guard"
	"github.com/omarshaarawi/courtside/internal/metrics"
	"github.com/omarshaarawi/courtside/internal/repository/sqlite"
	"github.com/omarshaarawi/courtside/internal/scheduler"
	"github.com/omarshaarawi/courtside/internal/service"
	"github.com/omarshaarawi/courtside/internal/workflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Error running application", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file loaded", "error", err)
	}

	cfg, err := config.New()
	if err != nil {
		return err
	}
	if err := cfg.TelegramBot.RequireBot(); err != nil {
		return err
	}
	level, _ := cfg.Level()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	store, err := sqlite.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	sched, err := scheduler.NewScheduler(cfg.Digest.Timezone)
	if err != nil {
		return err
	}
	sched.Start()
	defer func() {
		if err := sched.Stop(); err != nil {
			slog.Error("Error stopping scheduler", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// The bot is built after the client it depends on; redirects only fire
	// after a request, by which point it exists.
	var telegramBot *bot.TelegramBot
	redirect := portal.RedirectorFunc(func() { telegramBot.RedirectToLogin() })

	client := portal.NewClient(cfg.Portal, store,
		portal.WithMetrics(m),
		portal.WithRedirect(sched, redirect),
	)
	api := portal.NewAPI(client)
	portalService := service.NewPortalService(api, store)
	wf := workflow.New(api, workflow.WithListener(portalService), workflow.WithMetrics(m))
	handler := bot.NewHandler(portalService, guard.New(store), catalog.New(api), wf)

	telegramBot, err = bot.NewTelegramBot(cfg.TelegramBot.Token, cfg.TelegramBot.ChatID, handler)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Digest.Cron != "" {
		if err := sched.Every(cfg.Digest.Cron, "digest", func() { telegramBot.SendDigest(ctx) }); err != nil {
			return err
		}
		slog.Info("Digest scheduled", "cron", cfg.Digest.Cron, "timezone", cfg.Digest.Timezone)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", healthCheckHandler(api))
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: cfg.HealthAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return telegramBot.Start(gctx)
	})

	err = g.Wait()
	slog.Info("Shutting down gracefully...")
	return err
}

// healthCheckHandler reports the bot as healthy and includes whether the
// portal answers its own health check.
func healthCheckHandler(api *portal.API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := api.Health(ctx); err != nil {
			_, _ = w.Write([]byte("ok\nportal: unreachable\n"))
			return
		}
		_, _ = w.Write([]byte("ok\nportal: ok\n"))
	}
}
