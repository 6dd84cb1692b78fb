package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/bruteguard"
	"github.com/MrEthical07/bruteguard/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testEngine(t *testing.T) *bruteguard.Engine {
	t.Helper()

	cfg := bruteguard.DefaultConfig()
	cfg.Protection.SoftLimit = 2
	cfg.Protection.BanLimit = 4
	cfg.Protection.BanWindow = time.Hour
	cfg.Protection.SoftChallengeTTL = time.Hour

	engine, err := bruteguard.New().WithConfig(cfg).WithStore(store.NewMemory()).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

// loginHandler accepts only password "ok".
func loginHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("password") != "ok" {
			http.Error(w, "bad credentials", http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func login(t *testing.T, h http.Handler, remote, password string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/login?password="+password, nil)
	req.RemoteAddr = remote
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func errorBody(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()

	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return body["error"]
}

func TestProtectEscalation(t *testing.T) {
	engine := testEngine(t)
	h := Protect(engine)(loginHandler())
	const addr = "10.0.0.1:5555"

	for i := 0; i < 2; i++ {
		if rr := login(t, h, addr, "bad", nil); rr.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, rr.Code)
		}
	}

	rr := login(t, h, addr, "ok", nil)
	if rr.Code != http.StatusPreconditionRequired {
		t.Fatalf("expected 428 after soft limit, got %d", rr.Code)
	}
	if msg := errorBody(t, rr); msg != "Captcha is mandatory" {
		t.Fatalf("unexpected challenge message %q", msg)
	}

	if err := engine.SetChallengePassed(context.Background(), "10.0.0.1"); err != nil {
		t.Fatalf("SetChallengePassed failed: %v", err)
	}
	login(t, h, addr, "bad", nil)
	// The failure above revokes the pass.
	if rr := login(t, h, addr, "bad", nil); rr.Code != http.StatusPreconditionRequired {
		t.Fatalf("expected 428 after pass was revoked, got %d", rr.Code)
	}

	if err := engine.SetChallengePassed(context.Background(), "10.0.0.1"); err != nil {
		t.Fatalf("SetChallengePassed failed: %v", err)
	}
	login(t, h, addr, "bad", nil)

	rr = login(t, h, addr, "ok", nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 after ban limit, got %d", rr.Code)
	}
	if msg := errorBody(t, rr); msg != "Your ip has been banned after several login attempts for 1 hours." {
		t.Fatalf("unexpected ban message %q", msg)
	}
}

func TestProtectSuccessResetsHistory(t *testing.T) {
	engine := testEngine(t)
	h := Protect(engine)(loginHandler())
	const addr = "10.0.0.2:1234"

	login(t, h, addr, "bad", nil)
	if rr := login(t, h, addr, "ok", nil); rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}

	rec, err := engine.Inspect(context.Background(), "10.0.0.2")
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if rec.Attempts != 0 {
		t.Fatalf("expected history reset, got %d attempts", rec.Attempts)
	}
}

func TestProtectCustomFailureStatus(t *testing.T) {
	engine := testEngine(t)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	h := Protect(engine, WithFailureStatus(http.StatusBadRequest))(handler)

	login(t, h, "10.0.0.3:1", "x", nil)
	rec, err := engine.Inspect(context.Background(), "10.0.0.3")
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if rec.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", rec.Attempts)
	}
}

func TestProtectImplicitOKCountsAsSuccess(t *testing.T) {
	engine := testEngine(t)
	if _, err := engine.RecordFailure(context.Background(), "10.0.0.4"); err != nil {
		t.Fatalf("RecordFailure failed: %v", err)
	}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("welcome"))
	})

	login(t, Protect(engine)(handler), "10.0.0.4:1", "", nil)
	rec, _ := engine.Inspect(context.Background(), "10.0.0.4")
	if rec.Attempts != 0 {
		t.Fatalf("expected reset after implicit 200, got %d", rec.Attempts)
	}
}

func TestProtectForwardedFor(t *testing.T) {
	engine := testEngine(t)
	h := Protect(engine, WithKeyFunc(KeyByForwardedFor))(loginHandler())

	login(t, h, "192.168.1.1:80", "bad", map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"})

	rec, err := engine.Inspect(context.Background(), "203.0.113.9")
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if rec.Attempts != 1 {
		t.Fatalf("expected attempt keyed by forwarded address, got %d", rec.Attempts)
	}
	proxy, _ := engine.Inspect(context.Background(), "192.168.1.1")
	if proxy.Attempts != 0 {
		t.Fatalf("proxy address must not be counted, got %d", proxy.Attempts)
	}
}

func TestProtectWithChallengeForcesChallenge(t *testing.T) {
	engine := testEngine(t)
	h := ProtectWithChallenge(engine)(loginHandler())

	if rr := login(t, h, "10.0.0.5:1", "ok", nil); rr.Code != http.StatusPreconditionRequired {
		t.Fatalf("expected 428 for a fresh client, got %d", rr.Code)
	}
	if err := engine.SetChallengePassed(context.Background(), "10.0.0.5"); err != nil {
		t.Fatalf("SetChallengePassed failed: %v", err)
	}
	if rr := login(t, h, "10.0.0.5:1", "ok", nil); rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 after passing the challenge, got %d", rr.Code)
	}
}

func TestProtectChallengeVerifier(t *testing.T) {
	engine := testEngine(t)
	verify := func(r *http.Request) bool { return r.Header.Get("X-Captcha") == "solved" }
	h := Protect(engine, RequireChallenge(), WithChallengeVerifier(verify))(loginHandler())

	if rr := login(t, h, "10.0.0.6:1", "ok", nil); rr.Code != http.StatusPreconditionRequired {
		t.Fatalf("expected 428 without an answer, got %d", rr.Code)
	}
	if rr := login(t, h, "10.0.0.6:1", "ok", map[string]string{"X-Captcha": "solved"}); rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 with a verified answer, got %d", rr.Code)
	}
}

func TestOutcomeFromContext(t *testing.T) {
	engine := testEngine(t)
	var (
		got bruteguard.Outcome
		ok  bool
	)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = OutcomeFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	login(t, Protect(engine)(handler), "10.0.0.7:1", "", nil)
	if !ok || got.Kind != bruteguard.OutcomeAllow {
		t.Fatalf("expected allow outcome in context, got %v (ok=%v)", got, ok)
	}
	if _, ok := OutcomeFromContext(context.Background()); ok {
		t.Fatal("expected no outcome on a bare context")
	}
}

func TestProtectStoreDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	engine, err := bruteguard.New().WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	mr.Close()

	called := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	rr := login(t, Protect(engine)(handler), "10.0.0.8:1", "", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if called {
		t.Fatal("handler must not run when the store is unavailable")
	}
}

func TestProtectBlankIdentifier(t *testing.T) {
	engine := testEngine(t)
	for _, key := range []string{"", "   ", "\t"} {
		called := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
		h := Protect(engine, WithKeyFunc(func(*http.Request) string { return key }))(handler)

		rr := login(t, h, "10.0.0.10:1", "ok", nil)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("key %q: expected 400, got %d", key, rr.Code)
		}
		if called {
			t.Fatalf("key %q: handler must not run without an identifier", key)
		}
	}
}

func TestProtectNilEngine(t *testing.T) {
	rr := login(t, Protect(nil)(loginHandler()), "10.0.0.9:1", "ok", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestKeyByRemoteAddr(t *testing.T) {
	cases := map[string]string{
		"10.1.1.1:443":     "10.1.1.1",
		"[2001:db8::1]:80": "2001:db8::1",
		"unix-socket":      "unix-socket",
	}
	for remote, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		if got := KeyByRemoteAddr(req); got != want {
			t.Fatalf("KeyByRemoteAddr(%q) = %q, want %q", remote, got, want)
		}
	}
}
