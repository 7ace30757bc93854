// Package httpapi exposes the session layer over HTTP.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/accounts"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/verification"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxBodyBytes = 1 << 20

// Dependencies wires the router.
type Dependencies struct {
	Auth     *goSession.Authenticator
	Accounts accounts.Store
	Hasher   *password.PBKDF2
	Codes    *verification.Store
	Mailer   verification.Mailer
	Limiter  *rate.Limiter
	Cookie   middleware.CookieConfig
	Logger   *slog.Logger

	// Metrics serves /metrics when set.
	Metrics        http.Handler
	CORSOrigins    []string
	EnableOTelHTTP bool
	// FallbackEnabled keeps /health/ready at 200 while the cache is down.
	FallbackEnabled bool
}

// NewRouter builds the HTTP handler.
func NewRouter(dep Dependencies) http.Handler {
	if dep.Cookie.Name == "" {
		dep.Cookie.Name = middleware.DefaultCookieName
	}
	if dep.Logger == nil {
		dep.Logger = slog.New(slog.DiscardHandler)
	}
	if dep.Mailer == nil {
		dep.Mailer = verification.LogMailer{Logger: dep.Logger}
	}

	h := &Handler{
		auth:     dep.Auth,
		accounts: dep.Accounts,
		hasher:   dep.Hasher,
		codes:    dep.Codes,
		mailer:   dep.Mailer,
		limiter:  dep.Limiter,
		cookie:   dep.Cookie,
		logger:   dep.Logger.With(slog.String("component", "http")),
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(requestLogger(h.logger))
	r.Use(corsHandler(dep.CORSOrigins))
	r.Use(bodyLimit(maxBodyBytes))
	r.Use(middleware.ClientInfo)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Auth.Manager().IsAvailable(r.Context()) {
			writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready", "cache": "up"})
			return
		}
		if dep.FallbackEnabled {
			writeJSON(w, r, http.StatusOK, map[string]string{"status": "degraded", "cache": "down"})
			return
		}
		writeError(w, r, http.StatusServiceUnavailable, "cache_unavailable", "session cache is unreachable")
	})
	if dep.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", dep.Metrics)
	}

	requireSession := middleware.RequireSession(dep.Auth, dep.Cookie.Name)
	requireStrict := middleware.RequireStrict(dep.Auth, dep.Cookie.Name)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Post("/send_verification_code", h.SendVerificationCode)
		r.Post("/register", h.Register)
		r.Post("/register_with_verification", h.Register)

		r.With(requireSession).Get("/session", h.Session)
		r.With(requireStrict).Get("/session/count", h.SessionCount)
		r.With(requireStrict).Post("/force_logout", h.ForceLogout)
	})

	var handler http.Handler = r
	if dep.EnableOTelHTTP {
		handler = otelhttp.NewHandler(r, "http.server")
	}
	return handler
}

// corsHandler allows the listed origins only. No origins disables CORS.
func corsHandler(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.HeaderSessionToken},
		AllowCredentials: true,
		MaxAge:           600,
	})
	return c.Handler
}

func bodyLimit(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.InfoContext(r.Context(), "http.request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.String("request_id", chimiddleware.GetReqID(r.Context())),
				slog.String("remote", r.RemoteAddr),
			)
		})
	}
}
