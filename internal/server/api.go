package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/Avenger11764/duo-learning/internal/auth"
	"github.com/Avenger11764/duo-learning/internal/clock"
	"github.com/Avenger11764/duo-learning/internal/config"
	"github.com/Avenger11764/duo-learning/internal/feed"
	"github.com/Avenger11764/duo-learning/internal/focus"
	"github.com/Avenger11764/duo-learning/internal/live"
	"github.com/Avenger11764/duo-learning/internal/model"
	"github.com/Avenger11764/duo-learning/internal/ops"
	"github.com/Avenger11764/duo-learning/internal/profile"
	"github.com/Avenger11764/duo-learning/internal/session"
	"github.com/Avenger11764/duo-learning/internal/store"
	"github.com/Avenger11764/duo-learning/internal/telemetry"
)

// App holds everything the handlers depend on.
type App struct {
	Config    *config.Config
	Clock     clock.Clock
	Store     store.Store
	Profiles  *profile.Repo
	Feed      *feed.Repo
	Sessions  *session.Logger
	Auth      *auth.Service
	Hub       *live.Hub
	Telemetry telemetry.Repository

	mu          sync.Mutex
	controllers map[model.ProfileID]*focus.Controller
}

// focusFor returns the per-profile countdown controller, creating it on
// first use. Controllers live for the process lifetime.
func (app *App) focusFor(id model.ProfileID) *focus.Controller {
	app.mu.Lock()
	defer app.mu.Unlock()
	if app.controllers == nil {
		app.controllers = make(map[model.ProfileID]*focus.Controller)
	}
	if c, ok := app.controllers[id]; ok {
		return c
	}
	c := focus.NewController(focus.Options{
		Clock:     app.Clock,
		Profiles:  app.Profiles,
		Logger:    app.Sessions,
		Telemetry: app.Telemetry,
		ProfileID: id,
	})
	app.controllers[id] = c
	return c
}

func (app *App) record(t telemetry.EventType, md telemetry.EventMetadata) {
	if app.Telemetry != nil {
		_ = app.Telemetry.RecordEvent(t, md)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

// mustView returns the resolved view, failing the request if the auth
// middleware did not run.
func mustView(w http.ResponseWriter, r *http.Request) (auth.View, bool) {
	v, ok := auth.ViewFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
	}
	return v, ok
}

// mustWritable additionally refuses partner views: read-only means no
// mutations, not silent redirection to the viewer's own data.
func mustWritable(w http.ResponseWriter, r *http.Request) (auth.View, bool) {
	v, ok := mustView(w, r)
	if !ok {
		return v, false
	}
	if v.ReadOnly {
		writeErr(w, http.StatusForbidden, "read-only view")
		return v, false
	}
	return v, true
}

// effectiveProfile applies tolerant focus reading and strips the stored
// credential before a profile leaves the API.
func (app *App) effectiveProfile(p model.Profile) model.Profile {
	p.FocusStatus = focus.Effective(p.FocusStatus, app.Clock.Now())
	p.Credential = ""
	return p
}

func (app *App) profileErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, profile.ErrNotFound):
		writeErr(w, http.StatusNotFound, "profile not found")
	case errors.Is(err, profile.ErrSubjectNotFound):
		writeErr(w, http.StatusNotFound, "subject not found")
	case errors.Is(err, profile.ErrGoalNotFound):
		writeErr(w, http.StatusNotFound, "goal not found")
	default:
		writeErr(w, http.StatusInternalServerError, err.Error())
	}
}

// RegisterAPIRoutes wires every authenticated route. The auth middleware
// is applied by the caller around the whole mux.
func RegisterAPIRoutes(mux *http.ServeMux, rr *RouteRegistry, app *App) {
	Handle(mux, rr, "GET /api/auth/session", "Current session and view", "", func(w http.ResponseWriter, r *http.Request) {
		v, ok := mustView(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"profileId": v.Viewer,
			"viewing":   v.Target,
			"readOnly":  v.ReadOnly,
		})
	})

	Handle(mux, rr, "GET /api/profile", "Viewed profile", "", func(w http.ResponseWriter, r *http.Request) {
		v, ok := mustView(w, r)
		if !ok {
			return
		}
		p, err := app.Profiles.Get(r.Context(), v.Target)
		if err != nil {
			app.profileErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, app.effectiveProfile(p))
	})

	Handle(mux, rr, "PATCH /api/profile", "Edit name/role/avatar", `{"name":"Alex","role":"Web Developer","avatar":"🦊"}`, func(w http.ResponseWriter, r *http.Request) {
		v, ok := mustWritable(w, r)
		if !ok {
			return
		}
		var body struct {
			Name   *string `json:"name"`
			Role   *string `json:"role"`
			Avatar *string `json:"avatar"`
		}
		if !decodeJSON(w, r, &body) {
			return
		}
		fields := store.Fields{}
		if body.Name != nil {
			fields["name"] = *body.Name
		}
		if body.Role != nil {
			fields["role"] = *body.Role
		}
		if body.Avatar != nil {
			fields["avatar"] = *body.Avatar
		}
		if len(fields) == 0 {
			writeErr(w, http.StatusBadRequest, "nothing to update")
			return
		}
		if err := app.Profiles.UpdateFields(r.Context(), v.Target, fields); err != nil {
			app.profileErr(w, err)
			return
		}
		app.record(telemetry.EventProfileEdited, telemetry.EventMetadata{"profile": string(v.Target)})
		p, err := app.Profiles.Get(r.Context(), v.Target)
		if err != nil {
			app.profileErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, app.effectiveProfile(p))
	})

	Handle(mux, rr, "GET /api/profiles", "All profiles", "", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := mustView(w, r); !ok {
			return
		}
		ps, err := app.Profiles.List(r.Context())
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		for i := range ps {
			ps[i] = app.effectiveProfile(ps[i])
		}
		writeJSON(w, http.StatusOK, ps)
	})

	Handle(mux, rr, "POST /api/subjects", "Add a subject", `{"name":"Linear Algebra"}`, func(w http.ResponseWriter, r *http.Request) {
		v, ok := mustWritable(w, r)
		if !ok {
			return
		}
		var body struct {
			Name string `json:"name"`
		}
		if !decodeJSON(w, r, &body) {
			return
		}
		sub, err := app.Profiles.AddSubject(r.Context(), v.Target, body.Name)
		if err != nil {
			if errors.Is(err, profile.ErrNotFound) {
				app.profileErr(w, err)
				return
			}
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, sub)
	})

	Handle(mux, rr, "DELETE /api/subjects/{id}", "Delete a subject", "", func(w http.ResponseWriter, r *http.Request) {
		v, ok := mustWritable(w, r)
		if !ok {
			return
		}
		if err := app.Profiles.DeleteSubject(r.Context(), v.Target, r.PathValue("id")); err != nil {
			app.profileErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	Handle(mux, rr, "POST /api/goals", "Add a goal", `{"text":"Finish chapter 4"}`, func(w http.ResponseWriter, r *http.Request) {
		v, ok := mustWritable(w, r)
		if !ok {
			return
		}
		var body struct {
			Text string `json:"text"`
		}
		if !decodeJSON(w, r, &body) {
			return
		}
		g, err := app.Profiles.AddGoal(r.Context(), v.Target, body.Text)
		if err != nil {
			if errors.Is(err, profile.ErrNotFound) {
				app.profileErr(w, err)
				return
			}
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, g)
	})

	Handle(mux, rr, "POST /api/goals/{id}/toggle", "Toggle a goal", "", func(w http.ResponseWriter, r *http.Request) {
		v, ok := mustWritable(w, r)
		if !ok {
			return
		}
		g, err := app.Profiles.ToggleGoal(r.Context(), v.Target, r.PathValue("id"))
		if err != nil {
			app.profileErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	})

	Handle(mux, rr, "POST /api/sessions", "Log a study session", `{"subjectId":"s1","duration":30,"note":"hooks deep dive"}`, func(w http.ResponseWriter, r *http.Request) {
		v, ok := mustWritable(w, r)
		if !ok {
			return
		}
		var body struct {
			SubjectID string `json:"subjectId"`
			Duration  int    `json:"duration"`
			Note      string `json:"note"`
		}
		if !decodeJSON(w, r, &body) {
			return
		}
		res, err := app.Sessions.Log(r.Context(), v.Target, body.SubjectID, body.Duration, body.Note)
		if err != nil {
			switch {
			case errors.Is(err, session.ErrNoSubject), errors.Is(err, session.ErrBadDuration):
				writeErr(w, http.StatusBadRequest, err.Error())
			case errors.Is(err, profile.ErrNotFound):
				writeErr(w, http.StatusNotFound, "profile not found")
			default:
				writeErr(w, http.StatusBadGateway, err.Error())
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"profile":   app.effectiveProfile(res.Profile),
			"entryId":   res.EntryID,
			"leveledUp": res.LeveledUp,
			"newBadges": res.NewBadges,
		})
	})

	Handle(mux, rr, "POST /api/focus/start", "Start a focus countdown", `{"subjectId":"s1","duration":25}`, func(w http.ResponseWriter, r *http.Request) {
		v, ok := mustWritable(w, r)
		if !ok {
			return
		}
		var body struct {
			SubjectID string `json:"subjectId"`
			Duration  int    `json:"duration"`
		}
		if !decodeJSON(w, r, &body) {
			return
		}
		if body.Duration <= 0 {
			body.Duration = app.Config.Focus.DefaultMinutes
		}
		p, err := app.Profiles.Get(r.Context(), v.Target)
		if err != nil {
			app.profileErr(w, err)
			return
		}
		var subject *model.Subject
		for i := range p.Subjects {
			if p.Subjects[i].ID == body.SubjectID {
				subject = &p.Subjects[i]
				break
			}
		}
		if subject == nil {
			writeErr(w, http.StatusBadRequest, "subject not found")
			return
		}
		if err := app.focusFor(v.Target).Start(r.Context(), *subject, body.Duration); err != nil {
			writeErr(w, http.StatusConflict, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"state": focus.StateRunning})
	})

	Handle(mux, rr, "POST /api/focus/stop", "Cancel the countdown without logging", "", func(w http.ResponseWriter, r *http.Request) {
		v, ok := mustWritable(w, r)
		if !ok {
			return
		}
		if err := app.focusFor(v.Target).Stop(r.Context()); err != nil {
			writeErr(w, http.StatusConflict, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"state": focus.StateIdle})
	})

	Handle(mux, rr, "POST /api/focus/finish", "End the countdown now, logging elapsed minutes", "", func(w http.ResponseWriter, r *http.Request) {
		v, ok := mustWritable(w, r)
		if !ok {
			return
		}
		minutes, err := app.focusFor(v.Target).FinishEarly(r.Context())
		if err != nil {
			if errors.Is(err, focus.ErrNotRunning) {
				writeErr(w, http.StatusConflict, err.Error())
				return
			}
			writeErr(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"state": focus.StateFinished, "minutes": minutes})
	})

	Handle(mux, rr, "GET /api/focus", "Countdown state for the viewer", "", func(w http.ResponseWriter, r *http.Request) {
		v, ok := mustView(w, r)
		if !ok {
			return
		}
		remaining, state, err := app.focusFor(v.Viewer).Tick(r.Context())
		if err != nil {
			writeErr(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"state":            state,
			"remainingSeconds": int(remaining / time.Second),
		})
	})

	Handle(mux, rr, "GET /api/feed", "Activity feed, newest first", "", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := mustView(w, r); !ok {
			return
		}
		entries, err := app.Feed.List(r.Context())
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, entries)
	})

	Handle(mux, rr, "POST /api/feed/{id}/like", "Like a feed entry", "", func(w http.ResponseWriter, r *http.Request) {
		v, ok := mustView(w, r)
		if !ok {
			return
		}
		likes, err := app.Feed.Like(r.Context(), model.LogID(r.PathValue("id")))
		if err != nil {
			if errors.Is(err, feed.ErrNotFound) {
				writeErr(w, http.StatusNotFound, "entry not found")
				return
			}
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		app.record(telemetry.EventEntryLiked, telemetry.EventMetadata{
			"profile": string(v.Viewer), "entry": r.PathValue("id"),
		})
		writeJSON(w, http.StatusOK, map[string]any{"likes": likes})
	})

	Handle(mux, rr, "GET /api/stats", "Aggregate stats for the viewed profile", "", func(w http.ResponseWriter, r *http.Request) {
		v, ok := mustView(w, r)
		if !ok {
			return
		}
		entries, err := app.Feed.List(r.Context())
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, feed.StatsFor(entries, v.Target, app.Clock.Now()))
	})

	Handle(mux, rr, "GET /api/config", "Effective configuration", "", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := mustView(w, r); !ok {
			return
		}
		writeJSON(w, http.StatusOK, app.Config)
	})

	Handle(mux, rr, "POST /api/admin/reset", "Wipe both collections and reseed", `{"secret":"..."}`, func(w http.ResponseWriter, r *http.Request) {
		if _, ok := mustView(w, r); !ok {
			return
		}
		var body struct {
			Secret string `json:"secret"`
		}
		if !decodeJSON(w, r, &body) {
			return
		}
		if err := ops.CheckAdminSecret(body.Secret); err != nil {
			writeErr(w, http.StatusForbidden, "admin secret mismatch")
			return
		}
		err := ops.Reset(r.Context(), app.Store)
		app.record(telemetry.EventStoreReset, telemetry.EventMetadata{"err": err != nil})
		if err != nil {
			// Best-effort: some documents may be gone, some not.
			writeErr(w, http.StatusBadGateway, err.Error())
			return
		}
		if err := app.Profiles.SeedIfEmpty(r.Context()); err != nil {
			writeErr(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
}
