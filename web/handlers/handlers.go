// Package handlers provides HTTP handlers for the web interface.
package handlers

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/alienxp03/courtroom/internal/core"
	"github.com/alienxp03/courtroom/internal/engine"
	"github.com/alienxp03/courtroom/internal/export"
	"github.com/alienxp03/courtroom/internal/persona"
	"github.com/alienxp03/courtroom/internal/storage"
	"github.com/alienxp03/courtroom/provider"
)

//go:embed templates/*.html
var templateFS embed.FS

const defaultOperationTimeout = 10 * time.Minute

// Options configures a Handler.
type Options struct {
	// HealthCachePath is where provider health checks are remembered.
	// Empty keeps them in memory.
	HealthCachePath string
	HealthCacheTTL  time.Duration

	// OperationTimeout bounds a single start, round or verdict request.
	OperationTimeout time.Duration

	Logger *slog.Logger
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	engine      *engine.Engine
	sessions    *engine.Manager
	storage     storage.Storage
	registry    *provider.Registry
	templates   *template.Template
	healthCache *providerHealthCache
	hub         *hub
	opTimeout   time.Duration
	logger      *slog.Logger
}

// New creates a new Handler. The engine's status events are routed to the
// session streams.
func New(eng *engine.Engine, sessions *engine.Manager, registry *provider.Registry, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = provider.NewRegistry()
	}
	timeout := opts.OperationTimeout
	if timeout <= 0 {
		timeout = defaultOperationTimeout
	}

	funcMap := template.FuncMap{
		"formatTime": func(t time.Time) string {
			return t.Format("Jan 2, 2006 3:04 PM")
		},
		"shortID": func(id string) string {
			if len(id) > 8 {
				return id[:8]
			}
			return id
		},
		"stateLabel": func(s core.State) string {
			return strings.ReplaceAll(string(s), "_", " ")
		},
		"stateColor": func(s core.State) string {
			switch s {
			case core.StateVerdictRendered:
				return "bg-green-100 text-green-800"
			case core.StateVerdictPending:
				return "bg-yellow-100 text-yellow-800"
			case core.StateRoundInProgress:
				return "bg-blue-100 text-blue-800"
			default:
				return "bg-gray-100 text-gray-800"
			}
		},
		"isError": core.IsErrorText,
		"nl2br": func(s string) template.HTML {
			escaped := template.HTMLEscapeString(s)
			return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
		},
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		logger.Error("Failed to parse templates", "error", err)
		panic(err)
	}

	h := &Handler{
		engine:      eng,
		sessions:    sessions,
		storage:     eng.Storage(),
		registry:    registry,
		templates:   tmpl,
		healthCache: newProviderHealthCache(opts.HealthCachePath, opts.HealthCacheTTL),
		hub:         newHub(),
		opTimeout:   timeout,
		logger:      logger,
	}
	eng.OnStatus(h.PublishStatus)
	return h
}

// Routes returns the router for the web UI and the JSON API.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)

	// Pages
	r.Get("/", h.handleIndex)
	r.Post("/sessions", h.handleCreateSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.handleSessionView)
		r.Post("/advance", h.handleAdvance)
		r.Post("/verdict", h.handleVerdict)
		r.Post("/reset", h.handleReset)
		r.Post("/delete", h.handleDelete)
		r.Get("/export/{format}", h.handleExport)
	})

	// API
	r.Route("/api", func(r chi.Router) {
		r.Get("/roles", h.handleAPIRoles)
		r.Get("/providers/health", h.handleAPIProvidersHealth)
		r.Get("/sessions", h.handleAPISessions)
		r.Post("/sessions", h.handleAPICreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", h.handleAPISession)
			r.Delete("/", h.handleAPIDeleteSession)
			r.Post("/start", h.handleAPIStart)
			r.Post("/advance", h.handleAPIAdvance)
			r.Post("/verdict", h.handleAPIVerdict)
			r.Post("/reset", h.handleAPIReset)
			r.Get("/stream", h.handleSessionStream)
			r.Get("/export/{format}", h.handleExport)
		})
	})

	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Debug("Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// Page handlers

type indexData struct {
	Sessions []*core.SessionSummary
	Case     string
	Error    string
}

type entryView struct {
	Name        string
	Description string
	Side        string
	Text        string
}

type roundView struct {
	Number  int
	Entries []entryView
}

type sessionData struct {
	Session        core.Snapshot
	Title          string
	Rounds         []roundView
	CanAdvance     bool
	CanCallVerdict bool
	CanRender      bool
	Error          string
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.renderIndex(w, http.StatusOK, indexData{})
}

func (h *Handler) renderIndex(w http.ResponseWriter, code int, data indexData) {
	sessions, err := h.listSessions(50, 0)
	if err != nil {
		h.logger.Error("Failed to list sessions", "error", err)
	}
	data.Sessions = sessions
	h.renderStatus(w, code, "index.html", data)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderIndex(w, http.StatusBadRequest, indexData{Error: "Invalid form data"})
		return
	}
	caseText := r.FormValue("case")

	s := h.sessions.Create()
	ctx, cancel := h.opContext(r)
	defer cancel()

	if err := h.start(ctx, s, caseText); err != nil {
		h.sessions.Delete(s.ID())
		h.renderIndex(w, statusFor(err), indexData{Case: caseText, Error: err.Error()})
		return
	}
	http.Redirect(w, r, "/sessions/"+s.ID(), http.StatusSeeOther)
}

func (h *Handler) handleSessionView(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessions.Get(sessionID(r))
	if !ok {
		http.NotFound(w, r)
		return
	}
	h.renderSession(w, http.StatusOK, s, "")
}

func (h *Handler) renderSession(w http.ResponseWriter, code int, s *engine.Session, errMsg string) {
	snap := s.Snapshot()
	data := sessionData{
		Session:        snap,
		Title:          core.TitleFromCase(snap.Case),
		Rounds:         roundViews(snap.Rounds),
		CanAdvance:     snap.State == core.StateCaseSummarized || snap.State == core.StateRoundComplete,
		CanCallVerdict: snap.State == core.StateRoundComplete || snap.State == core.StateVerdictPending,
		CanRender:      snap.State == core.StateVerdictPending,
		Error:          errMsg,
	}
	h.renderStatus(w, code, "session.html", data)
}

func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	h.pageAction(w, r, func(ctx context.Context, s *engine.Session) error {
		_, err := h.advance(ctx, s)
		return err
	})
}

func (h *Handler) handleVerdict(w http.ResponseWriter, r *http.Request) {
	h.pageAction(w, r, func(ctx context.Context, s *engine.Session) error {
		_, err := h.verdict(ctx, s)
		return err
	})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	h.pageAction(w, r, func(ctx context.Context, s *engine.Session) error {
		h.reset(s)
		return nil
	})
}

func (h *Handler) pageAction(w http.ResponseWriter, r *http.Request, action func(context.Context, *engine.Session) error) {
	s, ok := h.sessions.Get(sessionID(r))
	if !ok {
		http.NotFound(w, r)
		return
	}

	ctx, cancel := h.opContext(r)
	defer cancel()

	if err := action(ctx, s); err != nil {
		h.renderSession(w, statusFor(err), s, err.Error())
		return
	}
	http.Redirect(w, r, "/sessions/"+s.ID(), http.StatusSeeOther)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deleteSession(sessionID(r)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	format := chi.URLParam(r, "format")

	snap, err := h.snapshot(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if snap == nil {
		http.NotFound(w, r)
		return
	}

	exporter, err := export.GetExporter(export.Format(format))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	filename := export.GenerateFilename(snap, exporter.FileExtension())
	w.Header().Set("Content-Type", exporter.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))

	if err := exporter.Export(snap, w); err != nil {
		h.logger.Error("Export failed", "session", id, "format", format, "error", err)
		http.Error(w, "Export failed", http.StatusInternalServerError)
	}
}

// API handlers

type caseRequest struct {
	Case string `json:"case"`
}

func (h *Handler) handleAPIRoles(w http.ResponseWriter, r *http.Request) {
	type roleInfo struct {
		Role        core.Role `json:"role"`
		Name        string    `json:"name"`
		Description string    `json:"description"`
		Provider    string    `json:"provider,omitempty"`
	}

	personas := persona.DefaultPersonas()
	result := make([]roleInfo, 0, len(personas))
	for _, p := range personas {
		result = append(result, roleInfo{
			Role:        p.Role,
			Name:        p.Name,
			Description: p.Description,
			Provider:    h.registry.Binding(p.Role),
		})
	}
	h.json(w, result)
}

func (h *Handler) handleAPIProvidersHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	refresh := r.URL.Query().Get("refresh") == "true"
	result := make(map[string]interface{})

	for _, p := range h.registry.List() {
		checker, ok := p.(provider.HealthChecker)
		if !ok {
			continue
		}

		status, cached := provider.HealthStatus{}, false
		if !refresh {
			status, cached = h.healthCache.GetFresh(p.Name())
		}
		if !cached {
			status = checker.HealthCheck(ctx)
			h.healthCache.Set(p.Name(), status)
		}

		result[p.Name()] = map[string]interface{}{
			"roles":         h.registry.Roles(p.Name()),
			"available":     status.Available,
			"response_time": status.ResponseTime.Seconds(),
			"error":         status.Error,
			"checked_at":    status.CheckedAt,
			"cached":        cached,
		}
	}

	h.json(w, map[string]interface{}{
		"providers": result,
		"bindings":  h.registry.Bindings(),
	})
}

func (h *Handler) handleAPISessions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 20
	}

	sessions, err := h.listSessions(limit, offset)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.json(w, sessions)
}

func (h *Handler) handleAPICreateSession(w http.ResponseWriter, r *http.Request) {
	var req caseRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.jsonError(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
	}

	s := h.sessions.Create()
	if req.Case != "" {
		ctx, cancel := h.opContext(r)
		defer cancel()
		if err := h.start(ctx, s, req.Case); err != nil {
			h.sessions.Delete(s.ID())
			h.jsonError(w, err.Error(), statusFor(err))
			return
		}
	}

	w.Header().Set("Location", "/api/sessions/"+s.ID())
	h.jsonStatus(w, http.StatusCreated, s.Snapshot())
}

func (h *Handler) handleAPISession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshot(sessionID(r))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if snap == nil {
		h.jsonError(w, "Session not found", http.StatusNotFound)
		return
	}
	h.json(w, map[string]interface{}{
		"session": snap,
		"briefs":  snap.Briefs(),
	})
}

func (h *Handler) handleAPIDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.deleteSession(sessionID(r)); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAPIStart(w http.ResponseWriter, r *http.Request) {
	var req caseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	h.apiAction(w, r, func(ctx context.Context, s *engine.Session) (interface{}, error) {
		if err := h.start(ctx, s, req.Case); err != nil {
			return nil, err
		}
		return s.Snapshot(), nil
	})
}

func (h *Handler) handleAPIAdvance(w http.ResponseWriter, r *http.Request) {
	h.apiAction(w, r, func(ctx context.Context, s *engine.Session) (interface{}, error) {
		round, err := h.advance(ctx, s)
		if err != nil {
			return nil, err
		}
		snap := s.Snapshot()
		return map[string]interface{}{
			"round":         round,
			"state":         snap.State,
			"verdict_ready": snap.VerdictReady,
		}, nil
	})
}

func (h *Handler) handleAPIVerdict(w http.ResponseWriter, r *http.Request) {
	h.apiAction(w, r, func(ctx context.Context, s *engine.Session) (interface{}, error) {
		v, err := h.verdict(ctx, s)
		if err != nil {
			return nil, err
		}
		return v, nil
	})
}

func (h *Handler) handleAPIReset(w http.ResponseWriter, r *http.Request) {
	h.apiAction(w, r, func(ctx context.Context, s *engine.Session) (interface{}, error) {
		h.reset(s)
		return s.Snapshot(), nil
	})
}

func (h *Handler) apiAction(w http.ResponseWriter, r *http.Request, action func(context.Context, *engine.Session) (interface{}, error)) {
	s, ok := h.sessions.Get(sessionID(r))
	if !ok {
		h.jsonError(w, "Session not found", http.StatusNotFound)
		return
	}

	ctx, cancel := h.opContext(r)
	defer cancel()

	result, err := action(ctx, s)
	if err != nil {
		h.jsonError(w, err.Error(), statusFor(err))
		return
	}
	h.json(w, result)
}

// Session operations shared by pages and the API. Each one publishes its
// outcome to the session stream.

func (h *Handler) start(ctx context.Context, s *engine.Session, caseText string) error {
	if err := h.engine.Start(ctx, s, caseText); err != nil {
		return err
	}
	h.hub.publish(s.ID(), StreamEvent{Type: EventSnapshot, Data: s.Snapshot()})
	return nil
}

func (h *Handler) advance(ctx context.Context, s *engine.Session) (core.Round, error) {
	round, err := h.engine.AdvanceRound(ctx, s)
	if err != nil {
		h.hub.publish(s.ID(), StreamEvent{Type: EventError, Data: map[string]string{"message": err.Error()}})
		return core.Round{}, err
	}
	h.hub.publish(s.ID(), StreamEvent{Type: EventRoundComplete, Data: round})
	if snap := s.Snapshot(); snap.VerdictReady && snap.State == core.StateVerdictPending {
		h.hub.publish(s.ID(), StreamEvent{Type: EventVerdictReady, Data: map[string]int{"rounds": len(snap.Rounds)}})
	}
	return round, nil
}

func (h *Handler) verdict(ctx context.Context, s *engine.Session) (core.Verdict, error) {
	if err := h.engine.ForceVerdict(s); err != nil {
		return core.Verdict{}, err
	}
	v, err := h.engine.RenderVerdict(ctx, s)
	if err != nil {
		h.hub.publish(s.ID(), StreamEvent{Type: EventError, Data: map[string]string{"message": err.Error()}})
		return core.Verdict{}, err
	}
	h.hub.publish(s.ID(), StreamEvent{Type: EventVerdict, Data: v})
	return v, nil
}

func (h *Handler) reset(s *engine.Session) {
	h.engine.Reset(s)
	h.hub.publish(s.ID(), StreamEvent{Type: EventReset, Data: s.Snapshot()})
}

// deleteSession drops a session from memory and the docket. A live session
// is discarded through the engine so a round still running for it cannot
// write it back.
func (h *Handler) deleteSession(id string) error {
	if s, ok := h.sessions.Get(id); ok {
		h.sessions.Delete(id)
		return h.engine.Discard(s)
	}
	if h.storage == nil {
		return nil
	}
	return h.storage.DeleteSession(id)
}

// snapshot returns the live session, falling back to the docket. A nil
// snapshot with no error means the session does not exist.
func (h *Handler) snapshot(id string) (*core.Snapshot, error) {
	if s, ok := h.sessions.Get(id); ok {
		snap := s.Snapshot()
		return &snap, nil
	}
	if h.storage == nil {
		return nil, nil
	}
	return h.storage.GetSession(id)
}

func (h *Handler) listSessions(limit, offset int) ([]*core.SessionSummary, error) {
	if h.storage != nil {
		return h.storage.ListSessions(limit, offset)
	}

	live := h.sessions.List()
	result := make([]*core.SessionSummary, 0, len(live))
	for i, s := range live {
		if i < offset {
			continue
		}
		if len(result) == limit {
			break
		}
		snap := s.Snapshot()
		result = append(result, &core.SessionSummary{
			ID:         snap.ID,
			Title:      core.TitleFromCase(snap.Case),
			State:      snap.State,
			RoundCount: len(snap.Rounds),
			HasVerdict: snap.Verdict != nil,
			CreatedAt:  snap.CreatedAt,
			UpdatedAt:  snap.UpdatedAt,
		})
	}
	return result, nil
}

func (h *Handler) opContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.opTimeout)
}

func roundViews(rounds []core.Round) []roundView {
	advocates := persona.Advocates()
	views := make([]roundView, 0, len(rounds))
	for _, r := range rounds {
		texts := []string{r.ProsecutionStrategy, r.ProsecutionArgument, r.DefenseStrategy, r.DefenseArgument}
		rv := roundView{Number: r.Number}
		for i, p := range advocates {
			side := "defense"
			if p.Role == core.RoleProsecutor || p.Role == core.RoleProsecutionStrategist {
				side = "prosecution"
			}
			rv.Entries = append(rv.Entries, entryView{
				Name:        p.Name,
				Description: p.Description,
				Side:        side,
				Text:        texts[i],
			})
		}
		views = append(views, rv)
	}
	return views
}

func sessionID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	var verr *core.ValidationError
	var terr *core.TransitionError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.As(err, &terr):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Helper functions

func (h *Handler) renderStatus(w http.ResponseWriter, code int, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("Template error", "template", name, "error", err)
	}
}

func (h *Handler) json(w http.ResponseWriter, data interface{}) {
	h.jsonStatus(w, http.StatusOK, data)
}

func (h *Handler) jsonStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
