// Package http exposes the dictation session as a command/observation API:
// REST commands, a state snapshot, and a WebSocket stream of snapshots
// pushed on every state change.
package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"speech-dictation-service/internal/observability"
	"speech-dictation-service/internal/observability/logging"
	"speech-dictation-service/internal/observability/metrics"
	"speech-dictation-service/internal/service/session"
)

// 1 MiB is plenty for an audio chunk or a command body.
const maxBodyBytes = 1 << 20

type api struct {
	baseCtx    context.Context
	controller *session.Controller
	hub        *hub
	log        zerolog.Logger
}

// NewRouter constructs the HTTP router. baseCtx bounds the lifetime of
// operations a request only triggers, such as a recognition session that
// keeps running after the toggle request returns.
func NewRouter(baseCtx context.Context, controller *session.Controller) http.Handler {
	a := &api{
		baseCtx:    baseCtx,
		controller: controller,
		hub:        newHub(),
		log:        logging.WithComponent("http"),
	}
	controller.SetObserver(a.hub.broadcast)

	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observability.RequestInstrumentation(metrics.DefaultMetrics))

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// API routes
	r.Route("/v1", func(r chi.Router) {
		r.Post("/session/toggle", a.handleToggle)
		r.Post("/session/reconnect", a.handleReconnect)
		r.Post("/session/audio", a.handleAudio)
		r.Post("/records/{id}/edit", a.handleEdit)
		r.Post("/records/{id}/save", a.handleSave)
		r.Delete("/records/{id}", a.handleDelete)
		r.Delete("/records", a.handleClearAll)
		r.Post("/speak", a.handleSpeak)
		r.Get("/state", a.handleState)
		r.Get("/examples", a.handleExamples)
		r.Get("/events", a.handleEvents)
	})

	return r
}

func (a *api) respondSnapshot(w http.ResponseWriter, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(a.controller.Snapshot()); err != nil {
		a.log.Warn().Err(err).Msg("encode snapshot")
	}
}

func (a *api) handleToggle(w http.ResponseWriter, r *http.Request) {
	// The recognition session outlives this request.
	a.controller.ToggleListening(a.baseCtx)
	a.respondSnapshot(w, http.StatusOK)
}

func (a *api) handleReconnect(w http.ResponseWriter, r *http.Request) {
	a.controller.Reconnect(a.baseCtx)
	a.respondSnapshot(w, http.StatusOK)
}

func (a *api) handleAudio(w http.ResponseWriter, r *http.Request) {
	chunk, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "read audio chunk", http.StatusBadRequest)
		return
	}
	if err := a.controller.PushAudio(r.Context(), chunk); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type editCommand struct {
	Action string `json:"action"` // begin, draft, commit, cancel
	Text   string `json:"text"`
}

func (a *api) handleEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var cmd editCommand
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&cmd); err != nil {
		http.Error(w, "invalid edit command", http.StatusBadRequest)
		return
	}
	switch cmd.Action {
	case "begin":
		a.controller.BeginEdit(id)
	case "draft":
		a.controller.UpdateDraft(id, cmd.Text)
	case "commit":
		a.controller.CommitEdit(id)
	case "cancel":
		a.controller.CancelEdit(id)
	default:
		http.Error(w, "unknown edit action", http.StatusBadRequest)
		return
	}
	a.respondSnapshot(w, http.StatusOK)
}

func (a *api) handleSave(w http.ResponseWriter, r *http.Request) {
	a.controller.SaveRecord(chi.URLParam(r, "id"))
	a.respondSnapshot(w, http.StatusAccepted)
}

func (a *api) handleDelete(w http.ResponseWriter, r *http.Request) {
	a.controller.DeleteRecord(chi.URLParam(r, "id"))
	a.respondSnapshot(w, http.StatusAccepted)
}

func (a *api) handleClearAll(w http.ResponseWriter, r *http.Request) {
	a.controller.ClearAll(r.Context())
	a.respondSnapshot(w, http.StatusOK)
}

type speakCommand struct {
	Text string `json:"text"`
}

func (a *api) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var cmd speakCommand
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&cmd); err != nil && err != io.EOF {
		http.Error(w, "invalid speak command", http.StatusBadRequest)
		return
	}
	a.controller.Speak(a.baseCtx, cmd.Text)
	a.respondSnapshot(w, http.StatusAccepted)
}

func (a *api) handleState(w http.ResponseWriter, r *http.Request) {
	a.respondSnapshot(w, http.StatusOK)
}

func (a *api) handleExamples(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	payload := map[string][]string{"examples": a.controller.Examples()}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.log.Warn().Err(err).Msg("encode examples")
	}
}

func (a *api) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := a.hub.upgrade(w, r)
	if err != nil {
		a.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	// The first frame is the current state so a late subscriber does not
	// wait for the next change.
	a.hub.send(conn, a.controller.Snapshot())
	a.hub.serve(conn)
}
