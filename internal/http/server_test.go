package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"contahogar/internal/core"
	"contahogar/internal/middleware/ratelimit"
	"contahogar/internal/session"
	"contahogar/internal/sheets/memory"
)

// Day 10 is past every default reminder day (5).
var fixedNow = time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC)

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestServer(t *testing.T, sheet *memory.Sheet, opts ...Option) *Server {
	t.Helper()
	deps := Dependencies{
		Sessions:  session.NewStore(core.DefaultRoster(), 100, time.Hour),
		Connector: sheet,
		Backend:   "memory",
	}
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	srv := NewServer(":0", deps, opts...)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

// client replays the session cookie like a browser would.
type client struct {
	t       *testing.T
	srv     *Server
	cookies []*http.Cookie
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rr := httptest.NewRecorder()
	c.srv.Handler.ServeHTTP(rr, req)
	if set := rr.Result().Cookies(); len(set) > 0 {
		c.cookies = set
	}
	return rr
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *client) post(path string, form url.Values, htmx bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return c.do(req)
}

func charge(persona, field, value string) url.Values {
	return url.Values{"persona": {persona}, "field": {field}, "value": {value}}
}

func TestIndexAndHealth(t *testing.T) {
	srv := newTestServer(t, memory.New())
	c := &client{t: t, srv: srv}

	rr := c.get("/")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{"ContaHogar Pro", "Daniel Berrio", "Henner Heredia", "$1.648.000", "© 2024"} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}
	if strings.Contains(body, "Recordatorios pendientes") {
		t.Error("fresh ledger should not show reminders")
	}
	if len(c.cookies) != 1 || c.cookies[0].Name != SessionCookie || !c.cookies[0].HttpOnly {
		t.Fatalf("session cookie = %+v", c.cookies)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing security headers")
	}
	if rr.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("Cache-Control = %q", rr.Header().Get("Cache-Control"))
	}

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rr := c.get(path)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, rr.Code, rr.Body.String())
		}
	}
}

func TestIndexUnknownPathAndMethod(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t, memory.New())}

	if rr := c.get("/nope"); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown path status=%d", rr.Code)
	}
	if rr := c.do(httptest.NewRequest(http.MethodDelete, "/", nil)); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("DELETE / status=%d", rr.Code)
	}
}

func TestUpdateChargeRecomputesSummary(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t, memory.New())}
	c.get("/")

	rr := c.post("/charges", charge("Daniel Berrio", "servicios", "50000"), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{
		"$1.698.000",               // grand total
		`id="total-daniel-berrio"`, // out-of-band subtotal
		`hx-swap-oob="true"`,
		"$493.000",
		"Recordatorios pendientes",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("response missing %q:\n%s", want, body)
		}
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), EventLedgerUpdated) {
		t.Errorf("HX-Trigger = %q", rr.Header().Get("HX-Trigger"))
	}

	// The page keeps the edited value on the next render.
	page := c.get("/").Body.String()
	if !strings.Contains(page, `value="50000"`) {
		t.Error("index does not keep the edited value")
	}
	if !strings.Contains(page, "Pendiente desde el día 5") {
		t.Error("index does not flag the overdue card")
	}
}

func TestUpdateChargeValidation(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{"decimal comma", charge("Oscar Berrio", "internet", "12,5"), msgInvalidAmount},
		{"negative", charge("Oscar Berrio", "internet", "-1"), msgInvalidAmount},
		{"letters", charge("Oscar Berrio", "internet", "abc"), msgInvalidAmount},
		{"decimal point", charge("Oscar Berrio", "internet", "12.5"), msgInvalidAmount},
		{"bad grouping", charge("Oscar Berrio", "internet", "1.2.3"), msgInvalidAmount},
		{"above ceiling", charge("Oscar Berrio", "internet", "9223372036854775807"), msgAmountTooLarge},
		{"unknown field", charge("Oscar Berrio", "arriendo", "10"), msgUnknownField},
		{"unknown person", charge("Nadie", "internet", "10"), msgUnknownPerson},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &client{t: t, srv: newTestServer(t, memory.New())}
			rr := c.post("/charges", tt.form, true)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status=%d, want 422", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tt.want) {
				t.Fatalf("body = %q, want %q", rr.Body.String(), tt.want)
			}
			if rr.Header().Get("HX-Retarget") != "#flash" {
				t.Fatalf("HX-Retarget = %q", rr.Header().Get("HX-Retarget"))
			}
		})
	}
}

func TestUpdateChargeWrongMethod(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t, memory.New())}
	rr := c.get("/charges")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
	if rr.Header().Get("Allow") != "POST" {
		t.Fatalf("Allow = %q", rr.Header().Get("Allow"))
	}
}

func TestUpdateChargePlainFormRedirects(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t, memory.New())}
	rr := c.post("/charges", charge("Henner Heredia", "aseo", "20000"), false)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		t.Fatalf("status=%d location=%q", rr.Code, rr.Header().Get("Location"))
	}
	if !strings.Contains(c.get("/").Body.String(), "$396.000") {
		t.Fatal("update from plain form not applied")
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	srv := newTestServer(t, memory.New())
	alice := &client{t: t, srv: srv}
	bob := &client{t: t, srv: srv}
	alice.get("/")
	bob.get("/")

	alice.post("/charges", charge("Daniel Hurtado", "internet", "100000"), true)

	if !strings.Contains(alice.get("/").Body.String(), "$1.748.000") {
		t.Error("alice's total not updated")
	}
	if !strings.Contains(bob.get("/").Body.String(), "$1.648.000") {
		t.Error("bob's ledger changed by alice's update")
	}
}

func TestExportAppendsRows(t *testing.T) {
	sheet := memory.New()
	c := &client{t: t, srv: newTestServer(t, sheet)}
	c.get("/")

	for i := 1; i <= 2; i++ {
		rr := c.post("/export", nil, true)
		if rr.Code != http.StatusOK {
			t.Fatalf("export %d status=%d body=%s", i, rr.Code, rr.Body.String())
		}
		if !strings.Contains(rr.Body.String(), msgExportOK) {
			t.Fatalf("body = %q", rr.Body.String())
		}
		if !strings.Contains(rr.Header().Get("HX-Trigger"), `"type":"success"`) {
			t.Fatalf("HX-Trigger = %q", rr.Header().Get("HX-Trigger"))
		}
		if want := 1 + 4*i; sheet.Len() != want {
			t.Fatalf("after export %d rows = %d, want %d", i, sheet.Len(), want)
		}
	}

	rows := sheet.Rows()
	if rows[0][0] != "Persona" || rows[1][0] != "Daniel Berrio" || rows[1][6] != "2024-03-10" {
		t.Fatalf("unexpected rows: %v", rows[:2])
	}

	metrics := c.get("/metrics").Body.String()
	if !strings.Contains(metrics, "exports_total 2") || !strings.Contains(metrics, "exported_rows_total 8") {
		t.Fatalf("metrics:\n%s", metrics)
	}
}

func TestExportFailures(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*memory.Sheet)
		wantMsg  string
		wantRows int
	}{
		{
			name:     "connection",
			setup:    func(s *memory.Sheet) { s.FailConnect(errors.New("auth refused")) },
			wantMsg:  msgExportConnection,
			wantRows: 0,
		},
		{
			name:     "write after header",
			setup:    func(s *memory.Sheet) { s.FailWritesAfter(1, errors.New("quota")) },
			wantMsg:  msgExportWrite,
			wantRows: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet := memory.New()
			tt.setup(sheet)
			c := &client{t: t, srv: newTestServer(t, sheet)}

			rr := c.post("/export", nil, true)
			if rr.Code != http.StatusBadGateway {
				t.Fatalf("status=%d, want 502", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tt.wantMsg) {
				t.Fatalf("body = %q, want %q", rr.Body.String(), tt.wantMsg)
			}
			if strings.Contains(rr.Body.String(), "quota") || strings.Contains(rr.Body.String(), "auth refused") {
				t.Fatal("internal error leaked to the page")
			}
			if sheet.Len() != tt.wantRows {
				t.Fatalf("rows = %d, want %d", sheet.Len(), tt.wantRows)
			}
		})
	}
}

func TestReportDownload(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t, memory.New())}
	rr := c.get("/report.pdf")

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); cd != `attachment; filename="reporte_contahogar_20240310.pdf"` {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(rr.Body.String(), "%PDF") {
		t.Fatal("body is not a PDF")
	}
}

func TestSummaryPartial(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t, memory.New())}
	rr := c.get("/ui/summary")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	if strings.Contains(body, "<html") {
		t.Fatal("partial rendered the full page")
	}
	if !strings.Contains(body, `id="sum-total"`) {
		t.Fatalf("summary missing totals: %s", body)
	}
}

func TestTemplateParseErrorPath(t *testing.T) {
	srv := newTestServer(t, memory.New(), WithTemplateFS(fstest.MapFS{}))
	c := &client{t: t, srv: srv}

	if rr := c.get("/"); rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for missing templates, got %d", rr.Code)
	}
	if rr := c.get("/readyz"); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 readiness, got %d", rr.Code)
	}
	if rr := c.get("/healthz"); rr.Code != http.StatusOK {
		t.Fatalf("liveness should not depend on templates, got %d", rr.Code)
	}
}

func TestReadyReportsBackendFailure(t *testing.T) {
	deps := Dependencies{
		Sessions:  session.NewStore(core.DefaultRoster(), 10, time.Hour),
		Connector: memory.New(),
		Ready:     pingerFunc(func(context.Context) error { return errors.New("database is locked") }),
	}
	srv := NewServer(":0", deps)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "database is locked") {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestRateLimitAppliesToPosts(t *testing.T) {
	srv := newTestServer(t, memory.New(), WithRateLimit(ratelimit.Config{
		RequestsPerMinute: 1,
		Methods:           []string{http.MethodPost},
	}))
	c := &client{t: t, srv: srv}

	if rr := c.post("/charges", charge("Oscar Berrio", "aseo", "1"), true); rr.Code != http.StatusOK {
		t.Fatalf("first post status=%d", rr.Code)
	}
	rr := c.post("/charges", charge("Oscar Berrio", "aseo", "2"), true)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second post status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}
	if rr := c.get("/"); rr.Code != http.StatusOK {
		t.Fatalf("GET limited: %d", rr.Code)
	}
}

func TestSuspiciousRequestRejected(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t, memory.New())}
	if rr := c.get("/.env"); rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", rr.Code)
	}
}

func TestStaticAssets(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t, memory.New())}
	rr := c.get("/static/app.css")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("Cache-Control"), "max-age=3600") {
		t.Fatalf("Cache-Control = %q", rr.Header().Get("Cache-Control"))
	}
}

func TestShutdownIdempotent(t *testing.T) {
	srv := newTestServer(t, memory.New())
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Daniel Berrio":   "daniel-berrio",
		"  Oscar  Berrio": "oscar-berrio",
		"A.B":             "a-b",
		"":                "",
	}
	for in, want := range tests {
		if got := slug(in); got != want {
			t.Errorf("slug(%q) = %q, want %q", in, got, want)
		}
	}
}
