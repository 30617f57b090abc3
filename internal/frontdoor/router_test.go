package frontdoor

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"github.com/fergusfinn/claude-host/internal/common/logger"
	"github.com/fergusfinn/claude-host/internal/domain"
	"github.com/fergusfinn/claude-host/internal/frontdoor/devauth"
	"github.com/fergusfinn/claude-host/internal/registry"
	"github.com/fergusfinn/claude-host/internal/richbridge"
	"github.com/fergusfinn/claude-host/internal/sessionmanager"
	"github.com/fergusfinn/claude-host/internal/terminalbridge"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(logger.LoggingConfig{Level: "error", Format: "text"})
	if err != nil {
		t.Fatalf("building logger: %v", err)
	}
	return log
}

type testServer struct {
	*Server
	store *fakeStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := testLogger(t)
	st := newFakeStore()
	reg := registry.New(log, nil)
	t.Cleanup(reg.Stop)
	mgr := sessionmanager.New(st, fakeResolver{}, reg, log)
	t.Cleanup(mgr.Stop)

	terminals := terminalbridge.New(func(name string) []string { return []string{"cat"} }, log)
	rich := richbridge.New(t.Context(), nil, nil, log)

	srv := New(mgr, terminals, rich, reg, devauth.Extractor{}, log)
	return &testServer{Server: srv, store: st}
}

func (ts *testServer) engine() *gin.Engine {
	e := gin.New()
	ts.Routes(e)
	return e
}

func TestRequirePrincipal_RejectsMissingHeader(t *testing.T) {
	ts := newTestServer(t)
	e := ts.engine()

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSessionLifecycle_HTTP(t *testing.T) {
	ts := newTestServer(t)
	e := ts.engine()
	srv := httptest.NewServer(e)
	defer srv.Close()

	createReq, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/sessions",
		strings.NewReader(`{"command":"bash"}`))
	createReq.Header.Set("x-dev-user", "alice")
	createReq.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(createReq)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	listReq, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/sessions", nil)
	listReq.Header.Set("x-dev-user", "alice")
	resp, err = http.DefaultClient.Do(listReq)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	otherReq, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/sessions", nil)
	otherReq.Header.Set("x-dev-user", "bob")
	resp, err = http.DefaultClient.Do(otherReq)
	if err != nil {
		t.Fatalf("list sessions as other user: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestTerminalWS_LocalEcho(t *testing.T) {
	ts := newTestServer(t)
	sess := &domain.Session{
		Name: "mysess", OwnerUserID: "alice", ExecutorID: domain.LocalExecutorID,
		Mode: domain.ModeTerminal, Command: "bash", CreatedAt: time.Now(), LastActivity: time.Now(),
	}
	if err := ts.store.CreateSession(t.Context(), sess); err != nil {
		t.Fatalf("seeding session: %v", err)
	}

	e := ts.engine()
	srv := httptest.NewServer(e)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/sessions/mysess"
	header := http.Header{}
	header.Set("x-dev-user", "alice")

	conn, resp, err := gorillaws.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dialing terminal ws: %v", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}
	defer conn.Close()

	if err := conn.WriteMessage(gorillaws.BinaryMessage, []byte("echo hi\n")); err != nil {
		t.Fatalf("writing to terminal: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got bytes.Buffer
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		got.Write(data)
		if bytes.Contains(got.Bytes(), []byte("hi")) {
			return
		}
	}
	t.Fatalf("did not observe echoed output, got: %q", got.String())
}

func TestTerminalWS_RejectsRichSession(t *testing.T) {
	ts := newTestServer(t)
	sess := &domain.Session{
		Name: "richsess", OwnerUserID: "alice", ExecutorID: domain.LocalExecutorID,
		Mode: domain.ModeRich, Command: "claude", CreatedAt: time.Now(), LastActivity: time.Now(),
	}
	if err := ts.store.CreateSession(t.Context(), sess); err != nil {
		t.Fatalf("seeding session: %v", err)
	}

	e := ts.engine()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws/sessions/richsess", nil)
	req.Header.Set("x-dev-user", "alice")
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for rich-mode session on terminal route, got %d", rec.Code)
	}
}

func TestExecutorControlWS_RejectsMissingToken(t *testing.T) {
	ts := newTestServer(t)
	e := ts.engine()
	srv := httptest.NewServer(e)
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws/executor/control"

	_, resp, err := gorillaws.DefaultDialer.Dial(u.String(), nil)
	if err == nil {
		t.Fatalf("expected dial failure without x-executor-token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}
}
