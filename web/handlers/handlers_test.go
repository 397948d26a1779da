package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alienxp03/courtroom/internal/config"
	"github.com/alienxp03/courtroom/internal/core"
	"github.com/alienxp03/courtroom/internal/engine"
	"github.com/alienxp03/courtroom/internal/storage"
)

// setupTestHandler wires a mock court with an in-memory docket.
func setupTestHandler(t *testing.T, minRounds int) *Handler {
	t.Helper()

	cfg := config.Default()
	cfg.Mock = true
	cfg.Judge.MinRounds = minRounds

	court, err := cfg.BuildCourt(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Failed to build court: %v", err)
	}

	store, err := storage.NewSQLiteStorage()
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	if err := store.Initialize(); err != nil {
		t.Fatalf("Failed to initialize storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	eng, err := engine.New(court.Cast, store)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	return New(eng, engine.NewManager(), court.Registry, Options{})
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, h http.Handler, caseText string) core.Snapshot {
	t.Helper()
	payload, _ := json.Marshal(caseRequest{Case: caseText})
	w := do(t, h, "POST", "/api/sessions", string(payload))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var snap core.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	return snap
}

func TestAPISessionLifecycle(t *testing.T) {
	h := setupTestHandler(t, 2).Routes()

	snap := createSession(t, h, "A is accused of stealing a bicycle.")
	if snap.State != core.StateCaseSummarized {
		t.Fatalf("expected case_summarized, got %s", snap.State)
	}
	if snap.Summary == "" {
		t.Error("expected a clerk summary")
	}

	base := "/api/sessions/" + snap.ID

	w := do(t, h, "POST", base+"/advance", "")
	if w.Code != http.StatusOK {
		t.Fatalf("advance: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var adv struct {
		Round        core.Round `json:"round"`
		State        core.State `json:"state"`
		VerdictReady bool       `json:"verdict_ready"`
	}
	json.Unmarshal(w.Body.Bytes(), &adv)
	if adv.Round.Number != 1 || adv.State != core.StateRoundComplete || adv.VerdictReady {
		t.Errorf("unexpected first round result: %+v", adv)
	}

	w = do(t, h, "POST", base+"/advance", "")
	json.Unmarshal(w.Body.Bytes(), &adv)
	if adv.State != core.StateVerdictPending || !adv.VerdictReady {
		t.Errorf("expected verdict pending after min rounds, got %+v", adv)
	}

	// No further rounds once the verdict is pending.
	if w := do(t, h, "POST", base+"/advance", ""); w.Code != http.StatusConflict {
		t.Errorf("expected 409 advancing a pending session, got %d", w.Code)
	}

	w = do(t, h, "POST", base+"/verdict", "")
	if w.Code != http.StatusOK {
		t.Fatalf("verdict: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var v core.Verdict
	json.Unmarshal(w.Body.Bytes(), &v)
	if v.Text == "" {
		t.Error("expected verdict text")
	}

	// Rendering again returns the same verdict.
	w = do(t, h, "POST", base+"/verdict", "")
	var again core.Verdict
	json.Unmarshal(w.Body.Bytes(), &again)
	if again.Text != v.Text || !again.RenderedAt.Equal(v.RenderedAt) {
		t.Error("expected cached verdict on second call")
	}

	w = do(t, h, "GET", base, "")
	var detail struct {
		Session core.Snapshot `json:"session"`
		Briefs  core.Briefs   `json:"briefs"`
	}
	json.Unmarshal(w.Body.Bytes(), &detail)
	if detail.Session.State != core.StateVerdictRendered || len(detail.Session.Rounds) != 2 {
		t.Errorf("unexpected session detail: state=%s rounds=%d", detail.Session.State, len(detail.Session.Rounds))
	}
	if detail.Briefs.Rounds != 2 || detail.Briefs.Prosecution == "" {
		t.Errorf("unexpected briefs: %+v", detail.Briefs)
	}

	w = do(t, h, "POST", base+"/reset", "")
	var reset core.Snapshot
	json.Unmarshal(w.Body.Bytes(), &reset)
	if reset.State != core.StateAwaitingCase || len(reset.Rounds) != 0 || reset.Verdict != nil {
		t.Errorf("reset left state behind: %+v", reset)
	}

	w = do(t, h, "POST", base+"/start", `{"case": "B is accused of fraud."}`)
	if w.Code != http.StatusOK {
		t.Errorf("restart: expected 200, got %d", w.Code)
	}
}

func TestAPICreateSessionValidation(t *testing.T) {
	handler := setupTestHandler(t, 1)
	h := handler.Routes()

	w := do(t, h, "POST", "/api/sessions", `{"case": "   "}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for blank case, got %d", w.Code)
	}
	if handler.sessions.Len() != 0 {
		t.Error("rejected session should not be kept")
	}

	w = do(t, h, "POST", "/api/sessions", `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad JSON, got %d", w.Code)
	}

	// An empty body opens a session awaiting its case.
	w = do(t, h, "POST", "/api/sessions", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	var snap core.Snapshot
	json.Unmarshal(w.Body.Bytes(), &snap)
	if snap.State != core.StateAwaitingCase {
		t.Errorf("expected awaiting_case, got %s", snap.State)
	}

	if w := do(t, h, "POST", "/api/sessions/"+snap.ID+"/advance", ""); w.Code != http.StatusConflict {
		t.Errorf("expected 409 advancing before a case, got %d", w.Code)
	}
	if w := do(t, h, "POST", "/api/sessions/"+snap.ID+"/verdict", ""); w.Code != http.StatusConflict {
		t.Errorf("expected 409 calling a verdict before any round, got %d", w.Code)
	}
}

func TestAPISessionNotFound(t *testing.T) {
	h := setupTestHandler(t, 1).Routes()

	for _, tc := range []struct{ method, path string }{
		{"GET", "/api/sessions/missing"},
		{"POST", "/api/sessions/missing/advance"},
		{"POST", "/api/sessions/missing/verdict"},
		{"POST", "/api/sessions/missing/reset"},
	} {
		if w := do(t, h, tc.method, tc.path, ""); w.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", tc.method, tc.path, w.Code)
		}
	}
}

func TestAPISessionsList(t *testing.T) {
	h := setupTestHandler(t, 1).Routes()

	createSession(t, h, "First case.")
	second := createSession(t, h, "Second case.")

	w := do(t, h, "GET", "/api/sessions?limit=10", "")
	var sessions []core.SessionSummary
	if err := json.Unmarshal(w.Body.Bytes(), &sessions); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}

	if w := do(t, h, "DELETE", "/api/sessions/"+second.ID, ""); w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
	w = do(t, h, "GET", "/api/sessions", "")
	json.Unmarshal(w.Body.Bytes(), &sessions)
	if len(sessions) != 1 {
		t.Errorf("expected 1 session after delete, got %d", len(sessions))
	}
}

func TestAPIDeleteLiveSession(t *testing.T) {
	handler := setupTestHandler(t, 1)
	h := handler.Routes()
	snap := createSession(t, h, "A is accused of theft.")

	live, ok := handler.sessions.Get(snap.ID)
	if !ok {
		t.Fatal("expected the new session to be live")
	}

	if w := do(t, h, "DELETE", "/api/sessions/"+snap.ID, ""); w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", w.Code)
	}
	if _, ok := handler.sessions.Get(snap.ID); ok {
		t.Error("session should be gone from memory")
	}

	// A late write from an operation that held the session must not
	// bring the docket row back.
	handler.engine.Reset(live)
	got, err := handler.storage.GetSession(snap.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got != nil {
		t.Error("deleted session was written back to the docket")
	}
	if w := do(t, h, "GET", "/api/sessions/"+snap.ID, ""); w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestAPIRoles(t *testing.T) {
	h := setupTestHandler(t, 1).Routes()

	w := do(t, h, "GET", "/api/roles", "")
	var roles []struct {
		Role     core.Role `json:"role"`
		Name     string    `json:"name"`
		Provider string    `json:"provider"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &roles); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(roles) != len(core.Roles) {
		t.Fatalf("expected %d roles, got %d", len(core.Roles), len(roles))
	}
	for _, r := range roles {
		if r.Provider != "mock" {
			t.Errorf("expected %s bound to mock, got %q", r.Role, r.Provider)
		}
	}
}

func TestExport(t *testing.T) {
	h := setupTestHandler(t, 1).Routes()
	snap := createSession(t, h, "A is accused of theft.")
	do(t, h, "POST", "/api/sessions/"+snap.ID+"/advance", "")
	do(t, h, "POST", "/api/sessions/"+snap.ID+"/verdict", "")

	tests := []struct {
		format      string
		contentType string
		contains    string
	}{
		{"markdown", "text/markdown", "Verdict"},
		{"json", "application/json", `"verdict"`},
		{"pdf", "application/pdf", "%PDF"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			w := do(t, h, "GET", "/sessions/"+snap.ID+"/export/"+tt.format, "")
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}
			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, tt.contentType) {
				t.Errorf("expected content type %s, got %s", tt.contentType, ct)
			}
			if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
				t.Errorf("expected attachment, got %q", cd)
			}
			if !strings.Contains(w.Body.String(), tt.contains) {
				t.Errorf("expected body to contain %q", tt.contains)
			}
		})
	}

	if w := do(t, h, "GET", "/sessions/"+snap.ID+"/export/docx", ""); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown format, got %d", w.Code)
	}
	if w := do(t, h, "GET", "/sessions/missing/export/json", ""); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown session, got %d", w.Code)
	}
}

func TestPages(t *testing.T) {
	handler := setupTestHandler(t, 1)
	h := handler.Routes()

	w := do(t, h, "GET", "/", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Present a case") {
		t.Fatalf("index did not render: %d", w.Code)
	}

	form := url.Values{"case": {"   "}}
	req := httptest.NewRequest("POST", "/sessions", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "please enter a case description") {
		t.Errorf("expected re-prompt for blank case, got %d", w.Code)
	}

	form = url.Values{"case": {"The accused took a loaf of bread."}}
	req = httptest.NewRequest("POST", "/sessions", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", w.Code)
	}
	location := w.Header().Get("Location")
	if !strings.HasPrefix(location, "/sessions/") {
		t.Fatalf("unexpected redirect %q", location)
	}

	w = do(t, h, "GET", location, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Clerk's Summary") {
		t.Errorf("session page did not render summary: %d", w.Code)
	}

	if w := do(t, h, "POST", location+"/advance", ""); w.Code != http.StatusSeeOther {
		t.Errorf("expected redirect after advance, got %d", w.Code)
	}
	w = do(t, h, "GET", location, "")
	if !strings.Contains(w.Body.String(), "Round 1") || !strings.Contains(w.Body.String(), "heard enough evidence") {
		t.Error("expected round and readiness notice on the page")
	}

	if w := do(t, h, "POST", location+"/verdict", ""); w.Code != http.StatusSeeOther {
		t.Errorf("expected redirect after verdict, got %d", w.Code)
	}
	w = do(t, h, "GET", location, "")
	if !strings.Contains(w.Body.String(), "Final Verdict") {
		t.Error("expected verdict on the page")
	}

	// A round after the verdict is refused and the page says why.
	w = do(t, h, "POST", location+"/advance", "")
	if w.Code != http.StatusConflict || !strings.Contains(w.Body.String(), "Error") {
		t.Errorf("expected conflict page, got %d", w.Code)
	}

	if w := do(t, h, "POST", location+"/delete", ""); w.Code != http.StatusSeeOther {
		t.Errorf("expected redirect after delete, got %d", w.Code)
	}
	if w := do(t, h, "GET", location, ""); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}
	if handler.sessions.Len() != 0 {
		t.Error("session still live after delete")
	}
}

func TestSessionStream(t *testing.T) {
	handler := setupTestHandler(t, 1)
	srv := httptest.NewServer(handler.Routes())
	defer srv.Close()

	snap := createSession(t, handler.Routes(), "A is accused of theft.")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, "GET", srv.URL+"/api/sessions/"+snap.ID+"/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stream request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	events := make(chan string, 64)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
				events <- name
			}
		}
	}()

	next := func() string {
		select {
		case name, ok := <-events:
			if !ok {
				t.Fatal("stream closed early")
			}
			return name
		case <-ctx.Done():
			t.Fatal("timed out waiting for stream event")
		}
		return ""
	}

	if name := next(); name != EventSnapshot {
		t.Fatalf("expected initial snapshot, got %s", name)
	}

	go func() {
		http.Post(srv.URL+"/api/sessions/"+snap.ID+"/advance", "application/json", nil)
	}()

	var seen []string
	for {
		name := next()
		seen = append(seen, name)
		if name == EventVerdictReady {
			break
		}
	}

	statuses := 0
	for _, name := range seen {
		if name == EventStatus {
			statuses++
		}
	}
	if statuses != 8 {
		t.Errorf("expected 8 status events for one round, got %d (%v)", statuses, seen)
	}
	if seen[len(seen)-2] != EventRoundComplete {
		t.Errorf("expected round_complete before verdict_ready, got %v", seen)
	}
}

func TestSessionStreamNotFound(t *testing.T) {
	h := setupTestHandler(t, 1).Routes()
	w := do(t, h, "GET", "/api/sessions/missing/stream", "")
	if !strings.Contains(w.Body.String(), "event: error") {
		t.Errorf("expected error event, got %q", w.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&core.ValidationError{Field: "case", Message: "blank"}, http.StatusBadRequest},
		{&core.TransitionError{From: core.StateAwaitingCase, Operation: "advance"}, http.StatusConflict},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{context.Canceled, http.StatusServiceUnavailable},
		{http.ErrHandlerTimeout, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
