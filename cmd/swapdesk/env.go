package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/swapdesk/internal/api"
	"github.com/nhle/swapdesk/internal/credential"
	"github.com/nhle/swapdesk/internal/logging"
	"github.com/nhle/swapdesk/internal/model"
	"github.com/nhle/swapdesk/internal/session"
	"github.com/nhle/swapdesk/internal/store"
	"github.com/nhle/swapdesk/internal/theme"
)

// errNotLoggedIn is returned by commands that need a session when none can
// be resumed.
var errNotLoggedIn = errors.New("not logged in: run `swapdesk login` first")

// appEnv holds the process-wide services shared by every command.
type appEnv struct {
	cfg     *model.AppConfig
	logger  *zap.Logger
	db      store.Store
	client  *api.Client
	manager *session.Manager

	closeLog func()
}

// newAppEnv opens the local database, the credential vault and the
// backend client described by cfg.
func newAppEnv(cfg *model.AppConfig, verbose bool) (*appEnv, error) {
	theme.Apply(cfg.Display.Theme)

	logger, closeLog, err := logging.New(cfg, verbose)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.Storage.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			closeLog()
			return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
		}
	}
	db, err := store.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		closeLog()
		return nil, err
	}

	vault, err := credential.Open(model.ConfigDir())
	if err != nil {
		_ = db.Close()
		closeLog()
		return nil, err
	}

	client := api.NewClient(cfg.API.BaseURL,
		api.WithTimeout(time.Duration(cfg.API.TimeoutSec)*time.Second),
		api.WithLogger(logger),
	)

	return &appEnv{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		client:   client,
		manager:  session.NewManager(client, vault, db, logger),
		closeLog: closeLog,
	}, nil
}

// Close releases the database and flushes the log.
func (e *appEnv) Close() {
	if err := e.db.Close(); err != nil {
		e.logger.Warn("closing database", zap.Error(err))
	}
	if e.closeLog != nil {
		e.closeLog()
	}
}

// session resumes the persisted session, translating the resume errors
// into messages for the terminal.
func (e *appEnv) session(ctx context.Context) (*session.Session, error) {
	s, err := e.manager.Resume(ctx)
	switch {
	case err == nil:
		return s, nil
	case errors.Is(err, session.ErrNoSession):
		return nil, errNotLoggedIn
	case errors.Is(err, session.ErrExpired):
		return nil, errors.New("your session has expired: run `swapdesk login` again")
	default:
		return nil, err
	}
}

// pageSize returns the configured inbox page size.
func (e *appEnv) pageSize() int {
	return e.cfg.Poll.PageSize
}
