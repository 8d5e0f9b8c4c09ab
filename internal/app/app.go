package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/loungecore/internal/auth"
	"github.com/vovakirdan/loungecore/internal/config"
	"github.com/vovakirdan/loungecore/internal/core"
	"github.com/vovakirdan/loungecore/internal/log"
	"github.com/vovakirdan/loungecore/internal/preview"
	"github.com/vovakirdan/loungecore/internal/store"
	"github.com/vovakirdan/loungecore/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/loungecore/internal/transport/http"
	"github.com/vovakirdan/loungecore/internal/userlog"
)

var (
	_ core.HistorySource  = (store.Store)(nil)
	_ core.ThumbnailStore = (*preview.Storage)(nil)
	_ core.PreviewCache   = (*preview.Storage)(nil)
	_ core.UserLogWriter  = (*userlog.Writer)(nil)
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	writeback       *core.Writeback
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration. fs backs the
// preview storage and user logs.
func New(cfg *config.Config, fs afero.Fs, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{shutdownTimeout: cfg.ShutdownTimeout, log: logger}

	// Public mode keeps nothing beyond the process lifetime.
	var (
		index store.MessageStore
		ulog  core.UserLogWriter
	)
	if !cfg.Public {
		st, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		a.store = st
		index = st
		logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

		w, err := userlog.New(fs, cfg.LogsDir, log.Component(logger, "userlog"))
		if err != nil {
			a.cleanup()
			return nil, fmt.Errorf("init user logs: %w", err)
		}
		ulog = w
	}

	opts := cfg.Options()
	a.writeback = core.NewWriteback(index, ulog, opts.LobbyLogTarget, cfg.WritebackQueue, log.Component(logger, "writeback"))

	svc := &core.Services{
		Options:    opts,
		ChannelIDs: core.NewIDAllocator(),
		MessageIDs: core.NewIDAllocator(),
		Writeback:  a.writeback,
		Log:        log.Component(logger, "core"),
	}
	if a.store != nil {
		svc.History = a.store
	}

	// files stays a nil interface when nothing is stored on disk.
	var files transporthttp.PreviewFiles
	if cfg.Prefetch && cfg.PrefetchStorage {
		storage, err := preview.New(fs, cfg.StorageDir, log.Component(logger, "preview"))
		if err != nil {
			a.cleanup()
			return nil, fmt.Errorf("init preview storage: %w", err)
		}
		svc.Previews = storage
		svc.Thumbnails = storage
		files = storage
	}

	accounts, passwords, err := buildAccounts(cfg, svc, logger)
	if err != nil {
		a.cleanup()
		return nil, err
	}
	a.hub = core.NewHub(accounts, log.Component(logger, "hub"))

	authService := auth.NewService(passwords, &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.TokenTTL,
	})

	a.server = transporthttp.NewServer(a.hub, authService, files, cfg, logger)
	return a, nil
}

func buildAccounts(cfg *config.Config, svc *core.Services, logger *zerolog.Logger) ([]*core.Account, map[string]string, error) {
	accounts := make([]*core.Account, 0, len(cfg.Accounts))
	passwords := make(map[string]string, len(cfg.Accounts))
	for _, ac := range cfg.Accounts {
		account, err := core.NewAccount(core.AccountConfig{
			Name:       ac.Name,
			Log:        ac.Log,
			Highlights: ac.Highlights,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		for _, nc := range ac.Networks {
			n, err := core.NewNetwork(svc, account, core.NetworkConfig{
				ID:     nc.ID,
				Name:   nc.Name,
				Host:   nc.Host,
				Nick:   nc.Nick,
				Prefix: nc.Prefix,
			})
			if err != nil {
				return nil, nil, fmt.Errorf("account %s: %w", ac.Name, err)
			}
			logger.Info().Str("account", ac.Name).Str("network", nc.Name).Str("network_id", n.ID.String()).Msg("network loaded")
		}
		accounts = append(accounts, account)
		passwords[ac.Name] = ac.Password
	}
	return accounts, passwords, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts every loop and the HTTP server and blocks until context
// cancellation or a fatal error.
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	// Writeback outlives the networks so pushes made during shutdown are
	// still flushed.
	wbCtx, stopWriteback := context.WithCancel(context.Background())
	wbDone := make(chan struct{})
	go func() {
		defer close(wbDone)
		a.writeback.Run(wbCtx)
	}()
	defer func() {
		stopWriteback()
		<-wbDone
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(gctx)
		return nil
	})
	for _, n := range a.hub.Networks() {
		g.Go(func() error {
			n.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
		a.store = nil
	}
}
