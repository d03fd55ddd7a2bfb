package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"contahogar/internal/cache"
	applog "contahogar/internal/log"
	"contahogar/internal/middleware/ratelimit"
	"contahogar/internal/middleware/security"
	"contahogar/internal/middleware/trace"
	"contahogar/internal/session"
	"contahogar/internal/sheets"
	appweb "contahogar/web"
)

// Pinger is the readiness probe of a storage backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the collaborators a Server needs. Ready and Caches are optional.
type Dependencies struct {
	Sessions  *session.Store
	Connector sheets.Connector
	Ready     Pinger
	Caches    *cache.Manager
	Backend   string
}

// Option customizes a Server.
type Option func(*Server)

// WithClock replaces time.Now for reminders, export dates and report stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithRateLimit replaces the default POST rate limit.
func WithRateLimit(cfg ratelimit.Config) Option {
	return func(s *Server) { s.limitConfig = cfg }
}

// WithTemplateFS parses templates from fsys instead of the embedded set.
func WithTemplateFS(fsys fs.FS) Option {
	return func(s *Server) { s.templateFS = fsys }
}

// WithSecureCookies marks the session cookie Secure even behind a TLS-terminating proxy.
func WithSecureCookies(secure bool) Option {
	return func(s *Server) { s.secureCookies = secure }
}

// WithLogger sets the logger stored in every request context.
func WithLogger(logger *applog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

type Server struct {
	http.Server
	templates *template.Template
	sessions  *session.Store
	connector sheets.Connector
	ready     Pinger
	caches    *cache.Manager
	backend   string

	logger      *applog.Logger
	tracer      *trace.Middleware
	detector    *security.Detector
	rateLimiter *ratelimit.Limiter
	limitConfig ratelimit.Config

	templateFS    fs.FS
	secureCookies bool
	now           func() time.Time
	appMetrics    *appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run http.Server.
func NewServer(addr string, deps Dependencies, opts ...Option) *Server {
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		sessions:    deps.Sessions,
		connector:   deps.Connector,
		ready:       deps.Ready,
		caches:      deps.Caches,
		backend:     deps.Backend,
		limitConfig: ratelimit.DefaultConfig(),
		templateFS:  appweb.TemplatesFS,
		now:         time.Now,
		appMetrics:  &appMetrics{uptime: time.Now()},
		detector:    security.NewDetector(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = applog.FromContext(context.Background()).WithComponent(applog.ComponentHTTP)
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)
	s.rateLimiter = ratelimit.NewLimiter(s.limitConfig)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(s.templateFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates",
			applog.FieldComponent, applog.ComponentTemplate,
			applog.FieldError, err)
		t = nil
	}
	s.templates = t

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	mux.Handle("/", security.NoStore(http.HandlerFunc(s.handleIndex)))
	mux.Handle("/ui/summary", security.NoStore(http.HandlerFunc(s.handleSummary)))
	mux.Handle("/charges", security.NoStore(http.HandlerFunc(s.handleUpdateCharge)))
	mux.Handle("/export", security.NoStore(http.HandlerFunc(s.handleExport)))
	mux.Handle("/report.pdf", security.NoStore(http.HandlerFunc(s.handleReport)))

	// Outermost first: trace, headers, hostile-request filter, POST limit, logger.
	var h http.Handler = mux
	h = applog.Middleware(s.logger, trace.GetRequestID)(h)
	h = s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)
	s.Handler = h

	return s
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "Demasiadas solicitudes. Intenta de nuevo en un minuto.").
		TriggerErrorNotification("Demasiadas solicitudes").
		Write(w)
}

// Shutdown stops background cleanup and then the HTTP server. Only the
// first call has any effect.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		if s.caches != nil {
			s.caches.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
