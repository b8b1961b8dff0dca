package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	tenantAuth "github.com/MrEthical07/tenantAuth"
	"github.com/MrEthical07/tenantAuth/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Options configures NewRouter. The zero value serves every route without
// CORS and without the login rate limiter.
type Options struct {
	Logger *slog.Logger
	// AllowedOrigins enables CORS with credentials for the listed origins.
	AllowedOrigins []string
	// LoginRateLimit enables the per-IP limiter on /auth/login when
	// RequestsPerSecond > 0.
	LoginRateLimit middleware.RateLimitConfig
	// MaxBodyBytes caps request bodies. Zero means 1 MiB.
	MaxBodyBytes int64
}

// Server holds the handlers for one engine.
type Server struct {
	engine  *tenantAuth.Engine
	session tenantAuth.SessionConfig
	logger  *slog.Logger
	maxBody int64
}

// NewRouter builds the HTTP surface for engine.
func NewRouter(engine *tenantAuth.Engine, opts Options) (http.Handler, error) {
	if engine == nil {
		return nil, tenantAuth.ErrEngineNotReady
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	s := &Server{
		engine:  engine,
		session: engine.Config().Session,
		logger:  logger,
		maxBody: maxBody,
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientIP)
	r.Use(requestLogger(logger))
	if m := engine.Metrics(); m != nil {
		hm, err := newHTTPMetrics(m.Registry(), engine.Config().Metrics.Namespace)
		if err != nil {
			return nil, err
		}
		r.Use(hm.instrument)
	}
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH"},
			AllowedHeaders:   []string{"*"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	cookie := s.session.CookieName

	r.Route("/auth", func(r chi.Router) {
		if opts.LoginRateLimit.RequestsPerSecond > 0 {
			limiter := middleware.NewIPRateLimiter(opts.LoginRateLimit)
			r.With(limiter.Middleware).Post("/login", s.handleLogin)
		} else {
			r.Post("/login", s.handleLogin)
		}
		r.Post("/logout", s.handleLogout)
		r.With(middleware.RequireSession(engine, cookie)).Post("/logout-all", s.handleLogoutAll)
		r.Post("/validate-session", s.handleValidateSession)
		r.Post("/validate-employee-session", s.handleValidateEmployeeSession)
	})

	r.With(middleware.RequireSuperAdmin(engine, cookie)).Get("/admin/dashboard", s.handleAdminDashboard)
	r.With(middleware.RequireSuperAdmin(engine, cookie)).Post("/organization/create", s.handleCreateOrganization)
	r.With(middleware.RequireEmployee(engine, cookie)).Post("/manage-employees/add-employee", s.handleAddEmployee)

	r.Method(http.MethodGet, "/metrics", engine.MetricsHandler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r, nil
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.LogAttrs(r.Context(), slog.LevelInfo, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", tenantAuth.RequestIDFromContext(r.Context())),
			)
		})
	}
}
