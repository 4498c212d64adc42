package api

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BTreeMap/SupportPipe/internal/store"
	"github.com/BTreeMap/SupportPipe/internal/testutil"
)

func TestCORS_AllowedOrigin(t *testing.T) {
	ts := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := ts.do(t, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("expected origin to be reflected, got %q", got)
	}
	if rr.Header().Get("Vary") != "Origin" {
		t.Errorf("expected Vary: Origin, got %q", rr.Header().Get("Vary"))
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	ts := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr := ts.do(t, req)

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "disallowed origin")
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disallowed origin must not be echoed, got %q", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	ts := newTestServer(WithAllowedOrigins("https://support.example/"))
	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "https://support.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := ts.do(t, req)

	testutil.AssertHTTPStatus(t, http.StatusNoContent, rr.Code, "preflight")
	if rr.Header().Get("Access-Control-Allow-Origin") != "https://support.example" {
		t.Errorf("unexpected allow origin %q", rr.Header().Get("Access-Control-Allow-Origin"))
	}
	if rr.Header().Get("Access-Control-Allow-Methods") != corsAllowMethods {
		t.Errorf("unexpected allow methods %q", rr.Header().Get("Access-Control-Allow-Methods"))
	}
	if rr.Header().Get("Access-Control-Allow-Headers") != "Content-Type" {
		t.Errorf("unexpected allow headers %q", rr.Header().Get("Access-Control-Allow-Headers"))
	}
	if ts.completer.Calls() != 0 {
		t.Error("preflight must not reach the handler")
	}

	// The default origins are replaced, not extended.
	req = httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr = ts.do(t, req)
	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("default origin should not be allowed after WithAllowedOrigins")
	}
}

func TestRequestID(t *testing.T) {
	ts := newTestServer()
	rr := ts.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	first := rr.Header().Get(RequestIDHeader)
	if len(first) != 36 {
		t.Errorf("expected a generated uuid request id, got %q", first)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "client-supplied-id")
	rr = ts.do(t, req)
	if got := rr.Header().Get(RequestIDHeader); got != "client-supplied-id" {
		t.Errorf("expected caller request id to be kept, got %q", got)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	var seenID string
	h := requestLogMiddleware(recoverMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = RequestID(r.Context())
		panic("handler exploded")
	})))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	testutil.AssertHTTPStatus(t, http.StatusInternalServerError, rr.Code, "panic")
	if rr.Header().Get("Content-Type") != "application/json" {
		t.Errorf("expected JSON body, got %q", rr.Header().Get("Content-Type"))
	}
	if seenID == "" || seenID != rr.Header().Get(RequestIDHeader) {
		t.Errorf("handler request id %q does not match header %q", seenID, rr.Header().Get(RequestIDHeader))
	}
}

func TestWriteJSONResponse_MarshalFailure(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSONResponse(rr, http.StatusOK, map[string]interface{}{"bad": make(chan int)})
	testutil.AssertHTTPStatus(t, http.StatusInternalServerError, rr.Code, "marshal failure")
	if rr.Body.String() != string(fallbackErrorResponse) {
		t.Errorf("expected fallback body, got %s", rr.Body.String())
	}
}

func TestServe_GracefulShutdown(t *testing.T) {
	ts := newTestServer(WithShutdownTimeout(2 * time.Second))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ts.server.Serve(ctx, ln)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	testutil.AssertHTTPStatus(t, http.StatusOK, resp.StatusCode, "live server")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestBuildOpts_Defaults(t *testing.T) {
	cfg := buildOpts([]Option{WithAddr(""), WithMaxBodyBytes(-1)})
	if cfg.Addr != DefaultAddr || cfg.MaxBodyBytes != DefaultMaxBodyBytes || cfg.ShutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("expected default origins, got %v", cfg.AllowedOrigins)
	}
}

func TestStartSessionPruning(t *testing.T) {
	history := store.NewHistoryStore()

	sched, err := startSessionPruning(history, buildOpts([]Option{WithSessionTTL(0)}))
	if err != nil || sched != nil {
		t.Fatalf("expected pruning disabled, got %v, %v", sched, err)
	}

	sched, err = startSessionPruning(history, buildOpts(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sched == nil || sched.Jobs() != 1 {
		t.Fatal("expected one scheduled prune job")
	}
	sched.Stop()

	if _, err := startSessionPruning(history, buildOpts([]Option{WithPruneSchedule("whenever")})); err == nil {
		t.Error("expected an invalid schedule to fail")
	}
}
