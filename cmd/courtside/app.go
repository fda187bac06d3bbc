package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/omarshaarawi/courtside/internal/api/portal"
	"github.com/omarshaarawi/courtside/internal/catalog"
	"github.com/omarshaarawi/courtside/internal/config"
	"github.com/omarshaarawi/courtside/internal/guard"
	"github.com/omarshaarawi/courtside/internal/repository/sqlite"
	"github.com/omarshaarawi/courtside/internal/scheduler"
	"github.com/omarshaarawi/courtside/internal/service"
	"github.com/omarshaarawi/courtside/internal/workflow"
)

const msgRelogin = "Your session expired. Run `courtside login <username>` to continue."

// app holds everything a command needs. It is wired once per process, before
// the first command runs.
type app struct {
	out    io.Writer
	errOut io.Writer
	plain  bool

	cfg      *config.Config
	store    *sqlite.Store
	sched    *scheduler.Scheduler
	api      *portal.API
	service  *service.PortalService
	guard    *guard.Guard
	catalog  *catalog.Catalog
	workflow *workflow.Workflow
}

// syncWriter serializes writes from the command and from scheduled tasks.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (a *app) init() error {
	// The login redirect prints from the scheduler's goroutine.
	if _, ok := a.errOut.(*syncWriter); !ok {
		a.errOut = &syncWriter{w: a.errOut}
	}

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	cfg, err := config.New()
	if err != nil {
		return err
	}
	a.cfg = cfg

	level, _ := cfg.Level()
	slog.SetDefault(slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level})))

	a.store, err = sqlite.Open(cfg.Store.Path)
	if err != nil {
		return err
	}

	a.sched, err = scheduler.NewScheduler(cfg.Digest.Timezone)
	if err != nil {
		return err
	}
	a.sched.Start()

	client := portal.NewClient(cfg.Portal, a.store, portal.WithRedirect(a.sched, portal.RedirectorFunc(a.redirectToLogin)))
	a.api = portal.NewAPI(client)
	a.service = service.NewPortalService(a.api, a.store)
	a.guard = guard.New(a.store)
	a.catalog = catalog.New(a.api)
	a.workflow = workflow.New(a.api, workflow.WithListener(a.service))
	return nil
}

func (a *app) redirectToLogin() {
	a.catalog.Reset()
	a.workflow.Reset()
	fmt.Fprintln(a.errOut, msgRelogin)
}

// close lets a pending login redirect fire before the process exits, then
// releases the scheduler and the store.
func (a *app) close() {
	if a.sched != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Portal.RedirectDelay+time.Second)
		if err := a.sched.Wait(ctx); err != nil {
			slog.Warn("Pending tasks did not finish", "error", err)
		}
		cancel()
		if err := a.sched.Stop(); err != nil {
			slog.Error("Error stopping scheduler", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Error("Error closing session store", "error", err)
		}
	}
}
