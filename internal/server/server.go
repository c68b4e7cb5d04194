package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/Avenger11764/duo-learning/internal/auth"
	"github.com/Avenger11764/duo-learning/internal/badge"
	"github.com/Avenger11764/duo-learning/internal/clock"
	"github.com/Avenger11764/duo-learning/internal/config"
	"github.com/Avenger11764/duo-learning/internal/feed"
	"github.com/Avenger11764/duo-learning/internal/httpmw"
	"github.com/Avenger11764/duo-learning/internal/live"
	"github.com/Avenger11764/duo-learning/internal/model"
	"github.com/Avenger11764/duo-learning/internal/profile"
	"github.com/Avenger11764/duo-learning/internal/progress"
	"github.com/Avenger11764/duo-learning/internal/session"
	"github.com/Avenger11764/duo-learning/internal/store"
	"github.com/Avenger11764/duo-learning/internal/telemetry"
)

type Options struct {
	Config *config.Config
	Logger *log.Logger
	Clock  clock.Clock

	// Store overrides the configured backend; tests inject a memory store
	// here.
	Store store.Store
}

// NewHandler assembles the whole HTTP surface: store backend, seed data,
// auth, live hub, API routes, middleware chain.
func NewHandler(ctx context.Context, opts Options) (http.Handler, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}

	st := opts.Store
	if st == nil {
		var err error
		st, err = openStore(opts.Config, opts.Clock)
		if err != nil {
			return nil, err
		}
	}

	profiles := profile.NewRepo(st)
	if err := profiles.SeedIfEmpty(ctx); err != nil {
		return nil, fmt.Errorf("seed profiles: %w", err)
	}
	logs := feed.NewRepo(st)
	events := telemetry.NewMemoryRepository()

	app := &App{
		Config:   opts.Config,
		Clock:    opts.Clock,
		Store:    st,
		Profiles: profiles,
		Feed:     logs,
		Sessions: &session.Logger{
			Profiles:    profiles,
			Feed:        logs,
			Leveling:    progress.Leveling{XPPerMinute: opts.Config.Balance.XPPerMinute},
			Catalog:     badge.Catalog(),
			Clock:       opts.Clock,
			Telemetry:   events,
			SubjectBump: opts.Config.Balance.SubjectBumpPercent,
		},
		Auth:      auth.NewService(profiles, opts.Clock, opts.Logger, time.Duration(opts.Config.Auth.SessionTTLHours)*time.Hour),
		Hub:       live.NewHub(profiles, logs, opts.Logger),
		Telemetry: events,
	}
	go app.Hub.Run(ctx)

	mux := http.NewServeMux()
	rr := &RouteRegistry{}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": "duolearn",
			"time":    opts.Clock.Now().UTC().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := st.List(r.Context(), profile.Collection); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"ok":    false,
				"error": "store unavailable",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": "duolearn",
			"time":    opts.Clock.Now().UTC().Format(time.RFC3339),
		})
	})

	registerAuthRoutes(mux, app)

	api := http.NewServeMux()
	RegisterAPIRoutes(api, rr, app)
	api.Handle("GET /ws", app.Hub)
	mux.Handle("/api/", app.Auth.RequireAPI(api))
	mux.Handle("/ws", app.Auth.RequireAPI(api))

	RegisterAdminRoutes(mux, rr)

	return httpmw.Chain(
		mux,
		httpmw.WithAccessLog(opts.Logger),
		httpmw.WithRequestID,
		httpmw.WithRecover(opts.Logger),
	), nil
}

func openStore(cfg *config.Config, c clock.Clock) (store.Store, error) {
	switch cfg.Store.Backend {
	case "", "memory":
		return store.NewMemory(c), nil
	case "redis":
		return store.NewRedis(store.LoadRedisConfigFromEnv())
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// registerAuthRoutes mounts login/logout outside the auth middleware.
func registerAuthRoutes(mux *http.ServeMux, app *App) {
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ProfileID  string `json:"profileId"`
			Credential string `json:"credential"`
		}
		if !decodeJSON(w, r, &body) {
			return
		}
		token, exp, err := app.Auth.Login(r.Context(), model.ProfileID(body.ProfileID), body.Credential)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrUnknownProfile):
				writeErr(w, http.StatusNotFound, "unknown profile")
			case errors.Is(err, auth.ErrCredentialMismatch):
				writeErr(w, http.StatusUnauthorized, "credential mismatch")
			default:
				writeErr(w, http.StatusInternalServerError, err.Error())
			}
			return
		}
		app.Auth.SetSessionCookie(w, r, token, exp)
		p, err := app.Profiles.Get(r.Context(), model.ProfileID(body.ProfileID))
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token":   token,
			"profile": app.effectiveProfile(p),
		})
	})

	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		app.Auth.ClearSessionCookie(w, r)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
}
