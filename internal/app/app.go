package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"threadchat/internal/janitor"
	"threadchat/pkg/chat"
	"threadchat/pkg/config"
	"threadchat/pkg/hub"
	"threadchat/pkg/store"
	"threadchat/pkg/validation"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	hub *hub.Hub
	srv *http.Server
}

// New initializes resources that do not require a running context (store,
// validation rules, hub). It does not start the HTTP server or the
// janitor; call Run to start those and block until shutdown.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	if err := validateConfig(eff); err != nil {
		return nil, err
	}

	cfg := eff.Config
	validation.SetRules(validation.Rules{MaxBodyLen: cfg.Chat.MaxBodyLen})
	chat.SetDefaultAuthor(cfg.Chat.DefaultAuthor)
	chat.SetPopulateDepth(cfg.PopulateDepth())

	if err := store.Open(eff.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}

	h := hub.New(hub.Options{
		SendBuffer:   cfg.Hub.SendBuffer,
		PingInterval: time.Duration(cfg.Hub.PingInterval) * time.Second,
	})

	return &App{eff: eff, version: version, commit: commit, buildDate: buildDate, hub: h}, nil
}

// Run starts the janitor and the HTTP server, and blocks until ctx is
// cancelled or a fatal server error occurs. The store is closed on the way
// out.
func (a *App) Run(ctx context.Context) error {
	cancelJanitor, err := janitor.Start(ctx, a.eff.Config)
	if err != nil {
		return err
	}
	defer cancelJanitor()

	a.printBanner()

	errCh := a.startHTTP()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.srv.Shutdown(shutdownCtx)
		return store.Close()
	case err := <-errCh:
		_ = store.Close()
		return err
	}
}

// Hub exposes the broadcast coordinator (used by tests).
func (a *App) Hub() *hub.Hub { return a.hub }
