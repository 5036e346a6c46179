// Package app assembles the meeting service and its collaborators from configuration.
// Both the CLI and the HTTP API start from New.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"meetnote/internal/backend"
	"meetnote/internal/config"
	"meetnote/internal/database"
	"meetnote/internal/devicestate"
	"meetnote/internal/metrics"
	"meetnote/internal/notify"
	"meetnote/internal/repository"
	"meetnote/internal/repository/postgres"
	"meetnote/internal/repository/postgrest"
	"meetnote/internal/service"
	"meetnote/internal/storage"
	"meetnote/internal/supabase"
)

// Options are the front-end specific parts of the wiring.
type Options struct {
	// Registerer receives the upload counter; nil disables it.
	Registerer prometheus.Registerer
	// Prompter answers permission questions; nil means never prompt.
	Prompter notify.Prompter
	// Desktop shows local notifications; nil disables them.
	Desktop notify.Desktop
	Logger  *slog.Logger
}

// App is a fully wired application. Close releases what New opened.
type App struct {
	Config   *config.AppConfig
	Log      *slog.Logger
	Meetings service.MeetingService
	Backend  *backend.Client
	State    *devicestate.Store
	Notify   *notify.Bridge

	repo    repository.MeetingRepository
	closers []func() error
}

// New builds the application. A missing hosted configuration is not an error: the
// meeting service then answers every call with service.ErrNotConfigured.
func New(ctx context.Context, cfg *config.AppConfig, opts Options) (*App, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	a := &App{Config: cfg, Log: log}

	state, err := devicestate.Open(devicestate.DefaultPath(cfg.StateDir))
	if err != nil {
		return nil, fmt.Errorf("device state: %w", err)
	}
	a.State = state
	a.closers = append(a.closers, state.Close)

	// BACKEND_TIMEOUT bounds the processing hand-off only.
	a.Backend = backend.NewClient(cfg.Backend, nil, log)
	a.Notify = notify.NewBridge(notify.BridgeConfig{
		State:       state,
		Prompter:    opts.Prompter,
		Issuer:      notify.NewExpoIssuer(cfg.Push.TokenURL, nil),
		Desktop:     opts.Desktop,
		ProjectID:   cfg.Push.ProjectID,
		DeviceToken: cfg.Push.DeviceToken,
		TokenType:   cfg.Push.TokenType,
		Logger:      log,
	})

	var uploads *metrics.Uploads
	if opts.Registerer != nil {
		if uploads, err = metrics.NewUploads(opts.Registerer); err != nil {
			a.Close()
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	var store storage.Storage
	if cfg.HostedConfigured() {
		client := supabase.NewClient(cfg.Supabase)
		if store, err = newStorage(cfg, client); err != nil {
			a.Close()
			return nil, err
		}
		if a.repo, err = a.newRepository(ctx, cfg, client); err != nil {
			a.Close()
			return nil, err
		}
	} else {
		log.Warn("hosted_backend_not_configured", slog.String("hint", "set SUPABASE_URL and SUPABASE_ANON_KEY"))
	}

	a.Meetings = service.NewMeetingService(store, a.repo, a.Backend, service.Options{
		Configured:   cfg.HostedConfigured(),
		SignedURLTTL: cfg.Storage.SignedURLTTL,
		Tokens:       a.Notify,
		Notifier:     a.Notify,
		Uploads:      uploads,
		Logger:       log,
	})
	return a, nil
}

func newStorage(cfg *config.AppConfig, client *supabase.Client) (storage.Storage, error) {
	switch cfg.Storage.Driver {
	case "", "supabase":
		return storage.NewSupabase(client, cfg.Storage.Bucket)
	case "s3":
		return storage.NewMinIO(cfg.Storage, cfg.Supabase.URL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func (a *App) newRepository(ctx context.Context, cfg *config.AppConfig, client *supabase.Client) (repository.MeetingRepository, error) {
	switch cfg.Database.Driver {
	case "", "postgrest":
		return postgrest.NewMeetingPostgREST(client), nil
	case "postgres":
		db, err := database.Open(ctx, cfg.Database, a.Log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		return postgres.NewMeetingPostgres(db), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// Health is what /health and doctor ping.
func (a *App) Health() interface {
	PingContext(ctx context.Context) error
} {
	if a.repo == nil {
		return notConfigured{}
	}
	return a.repo
}

type notConfigured struct{}

func (notConfigured) PingContext(context.Context) error { return service.ErrNotConfigured }

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
