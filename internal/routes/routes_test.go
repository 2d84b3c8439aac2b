package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/wallet_bff/internal/config"
	"github.com/congo-pay/wallet_bff/internal/funding"
	"github.com/congo-pay/wallet_bff/internal/logging"
	"github.com/congo-pay/wallet_bff/internal/metrics"
	"github.com/congo-pay/wallet_bff/internal/querycache"
	"github.com/congo-pay/wallet_bff/internal/session"
	"github.com/congo-pay/wallet_bff/internal/walletapi"
)

func testDeps(t *testing.T, env string) Deps {
	t.Helper()
	wallet := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/countries":
			_, _ = io.WriteString(w, `{"success":true,"data":[{"id":1,"name":"Nigeria","code":"NG"}]}`)
		case "/wallet/balances":
			_, _ = io.WriteString(w, `{"success":true,"data":[]}`)
		case "/users/me":
			_, _ = io.WriteString(w, `{"success":true,"data":{"id":1}}`)
		case "/wallet/deposit/bank-details":
			_, _ = io.WriteString(w, `{"success":true,"data":{"bankName":"Congo Bank","accountNumber":"0123456789","accountName":"CongoPay"}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"success":false,"message":"not found"}`)
		}
	}))
	t.Cleanup(wallet.Close)

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	logger := logging.Discard()
	m := metrics.New()
	sessions := session.NewStore(session.Options{Capacity: 10, IdleTTL: time.Minute, Logger: logger, OnChange: m.SetSessions})
	svc, err := funding.NewService(funding.ServiceOptions{
		Wallet:   walletapi.New(walletapi.Options{BaseURL: wallet.URL, Timeout: 2 * time.Second, Logger: logger, Observer: m}),
		Queries:  querycache.NewRedis(cache),
		QueryTTL: time.Minute,
		Sessions: sessions,
		Metrics:  m,
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return Deps{
		Cfg: config.Config{
			AppName:         "test",
			AppEnv:          env,
			IdempotencyTTL:  time.Minute,
			KeypadRateLimit: 30,
		},
		Cache:    cache,
		Logger:   logger,
		Funding:  svc,
		Sessions: sessions,
		Metrics:  m,
	}
}

func newApp(t *testing.T) (*fiber.App, Deps) {
	t.Helper()
	d := testDeps(t, "production")
	app := fiber.New()
	if err := Setup(app, d); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return app, d
}

func TestSetupRequiresRedisOutsideDev(t *testing.T) {
	d := testDeps(t, "production")
	d.Cache = nil
	if err := Setup(fiber.New(), d); err == nil {
		t.Fatalf("expected an error without redis in production")
	}
	d.Cfg.AppEnv = "development"
	if err := Setup(fiber.New(), d); err != nil {
		t.Fatalf("dev setup without redis: %v", err)
	}
}

func openSession(t *testing.T, app *fiber.App, key string) string {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/fund/sessions", strings.NewReader(`{}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer tok")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("open: expected %d got %d", fiber.StatusCreated, resp.StatusCode)
	}
	var body funding.OpenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode open response: %v", err)
	}
	return body.SessionID
}

func TestOpenSessionIsIdempotent(t *testing.T) {
	app, d := newApp(t)

	first := openSession(t, app, "mount-1")
	second := openSession(t, app, "mount-1")
	if first != second {
		t.Fatalf("replayed open must return the same session, got %s and %s", first, second)
	}
	if d.Sessions.Len() != 1 {
		t.Fatalf("expected one live session, got %d", d.Sessions.Len())
	}
	openSession(t, app, "")
	if d.Sessions.Len() != 2 {
		t.Fatalf("expected two live sessions, got %d", d.Sessions.Len())
	}
}

func TestHealthReportsSessions(t *testing.T) {
	app, _ := newApp(t)
	openSession(t, app, "")

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/healthz", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected %d got %d", fiber.StatusOK, resp.StatusCode)
	}
	var body struct {
		Status   map[string]string `json:"status"`
		Sessions int               `json:"sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if body.Status["redis"] != "ok" || body.Sessions != 1 {
		t.Fatalf("unexpected health %+v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	app, _ := newApp(t)
	openSession(t, app, "")

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/metrics", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	for _, name := range []string{"fund_sessions_open 1", "wallet_api_requests_total"} {
		if !strings.Contains(string(raw), name) {
			t.Fatalf("metrics output missing %q", name)
		}
	}
}

func TestPingCarriesRequestID(t *testing.T) {
	app, _ := newApp(t)
	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("X-Request-ID", "req-42")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode ping: %v", err)
	}
	if body["request_id"] != "req-42" {
		t.Fatalf("unexpected request id %q", body["request_id"])
	}
}

func TestFundRoutesRequireBearer(t *testing.T) {
	app, _ := newApp(t)
	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/api/v1/fund/sessions", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected %d got %d", fiber.StatusUnauthorized, resp.StatusCode)
	}
}
