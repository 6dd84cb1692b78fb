package adminapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/bruteguard"
	"github.com/MrEthical07/bruteguard/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testEngine(t *testing.T, s store.Store) *bruteguard.Engine {
	t.Helper()

	cfg := bruteguard.DefaultConfig()
	cfg.Protection.SoftLimit = 2
	cfg.Protection.BanLimit = 3
	cfg.Metrics.Enabled = true

	engine, err := bruteguard.New().WithConfig(cfg).WithStore(s).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func fail(t *testing.T, e *bruteguard.Engine, id string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := e.RecordFailure(context.Background(), id); err != nil {
			t.Fatalf("RecordFailure failed: %v", err)
		}
	}
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHandlerHealth(t *testing.T) {
	api := New(testEngine(t, store.NewMemory()), Settings{}, nil)

	rec := do(t, api.Handler(), http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var body healthResponse
	decode(t, rec, &body)
	if body.Status != "ok" || !body.KeyScan {
		t.Fatalf("unexpected health body %+v", body)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected a request id header")
	}
}

func TestHandlerHealthStoreDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	api := New(testEngine(t, store.NewRedis(rdb)), Settings{}, nil)
	mr.Close()

	rec := do(t, api.Handler(), http.MethodGet, "/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}

	rec = do(t, api.Handler(), http.MethodGet, "/v1/identifiers/10.0.0.1")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected inspect to fail with 503, got %d", rec.Code)
	}
}

func TestHandlerListings(t *testing.T) {
	engine := testEngine(t, store.NewMemory())
	fail(t, engine, "10.0.0.1", 3)
	fail(t, engine, "2001:db8::1", 1)
	h := New(engine, Settings{}, nil).Handler()

	rec := do(t, h, http.MethodGet, "/v1/identifiers/banned")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body identifiersResponse
	decode(t, rec, &body)
	sort.Strings(body.Identifiers)
	if body.Count != 2 || body.Identifiers[0] != "10.0.0.1" || body.Identifiers[1] != "2001:db8::1" {
		t.Fatalf("unexpected banned listing %+v", body)
	}

	rec = do(t, h, http.MethodGet, "/v1/identifiers/challenged")
	decode(t, rec, &body)
	if body.Count != 2 {
		t.Fatalf("unexpected challenged listing %+v", body)
	}
}

func TestHandlerListingWithoutScan(t *testing.T) {
	engine := testEngine(t, store.WithoutScan(store.NewMemory()))
	fail(t, engine, "10.0.0.1", 1)

	rec := do(t, New(engine, Settings{}, nil).Handler(), http.MethodGet, "/v1/identifiers/banned")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"identifiers":[]`) {
		t.Fatalf("expected an empty array, got %s", rec.Body.String())
	}
}

func TestHandlerInspectResetAndChallenge(t *testing.T) {
	engine := testEngine(t, store.NewMemory())
	fail(t, engine, "2001:db8::7", 3)
	h := New(engine, Settings{}, nil).Handler()

	rec := do(t, h, http.MethodGet, "/v1/identifiers/2001:db8::7")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got struct {
		Identifier string `json:"identifier"`
		Attempts   int    `json:"attempts"`
		Outcome    struct {
			Kind        string `json:"kind"`
			BanDuration string `json:"ban_duration"`
		} `json:"outcome"`
	}
	decode(t, rec, &got)
	if got.Identifier != "2001:db8::7" || got.Attempts != 3 || got.Outcome.Kind != "banned" || got.Outcome.BanDuration != "24 hours" {
		t.Fatalf("unexpected record %+v", got)
	}

	if rec := do(t, h, http.MethodDelete, "/v1/identifiers/2001%3Adb8%3A%3A7"); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on reset, got %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/v1/identifiers/2001:db8::7")
	decode(t, rec, &got)
	if got.Attempts != 0 || got.Outcome.Kind != "allow" {
		t.Fatalf("expected history reset, got %+v", got)
	}

	fail(t, engine, "10.0.0.9", 2)
	if rec := do(t, h, http.MethodPost, "/v1/identifiers/10.0.0.9/challenge-passed"); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on challenge pass, got %d", rec.Code)
	}
	out, err := engine.Validate(context.Background(), "10.0.0.9")
	if err != nil || out.Kind != bruteguard.OutcomeAllow {
		t.Fatalf("expected allow after operator pass, got %v err=%v", out, err)
	}
}

func TestHandlerInvalidIdentifier(t *testing.T) {
	h := New(testEngine(t, store.NewMemory()), Settings{}, nil).Handler()

	rec := do(t, h, http.MethodGet, "/v1/identifiers/%20")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body errorResponse
	decode(t, rec, &body)
	if body.Error == "" {
		t.Fatal("expected an error message")
	}
}

func TestHandlerMetricsAndReport(t *testing.T) {
	engine := testEngine(t, store.NewMemory())
	fail(t, engine, "10.0.0.1", 1)
	h := New(engine, Settings{}, nil).Handler()

	rec := do(t, h, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "bruteguard_failure_recorded_total 1") {
		t.Fatalf("unexpected metrics output (%d): %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/v1/report")
	var report bruteguard.SecurityReport
	decode(t, rec, &report)
	if report.BanLimit != 3 || !report.KeyScanAvailable {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestHandlerRateLimit(t *testing.T) {
	api := New(testEngine(t, store.NewMemory()), Settings{RateLimit: 2, RateWindow: time.Minute}, nil)
	h := api.Handler()

	for i := 0; i < 2; i++ {
		if rec := do(t, h, http.MethodGet, "/health"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
	if rec := do(t, h, http.MethodGet, "/health"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestRequestIDPropagatesToAudit(t *testing.T) {
	sink := bruteguard.NewChannelSink(8)
	cfg := bruteguard.DefaultConfig()
	cfg.Audit.Enabled = true
	engine, err := bruteguard.New().WithConfig(cfg).WithStore(store.NewMemory()).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	h := New(engine, Settings{}, nil).Handler()

	req := httptest.NewRequest(http.MethodDelete, "/v1/identifiers/10.0.0.1", nil)
	req.Header.Set("X-Request-Id", "req-42")
	h.ServeHTTP(httptest.NewRecorder(), req)
	engine.Close()

	select {
	case ev := <-sink.Events():
		if ev.EventType != bruteguard.AuditHistoryReset || ev.Metadata["request_id"] != "req-42" {
			t.Fatalf("unexpected event %+v", ev)
		}
	default:
		t.Fatal("expected a history_reset event")
	}
}
