// Package api exposes the HTTP surface of the service.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/raushankrgupta/temple-connect/account"
	"github.com/raushankrgupta/temple-connect/followup"
	"github.com/raushankrgupta/temple-connect/models"
	"github.com/raushankrgupta/temple-connect/outreach"
	"github.com/raushankrgupta/temple-connect/program"
	"github.com/raushankrgupta/temple-connect/roles"
	"github.com/raushankrgupta/temple-connect/store"
	"github.com/raushankrgupta/temple-connect/utils"
	"go.uber.org/zap"
)

// Handler holds the services every route needs.
type Handler struct {
	Accounts  *account.Service
	Roles     *roles.Service
	FollowUps *followup.Service
	Programs  *program.Service
	Outreach  *outreach.Service
	Users     store.Accounts
	Tokens    *utils.Tokens
	Metrics   *Metrics

	CookieName    string
	SessionTTL    time.Duration
	SecureCookies bool
	CORSOrigins   []string
}

var (
	staff     = []models.Role{models.RoleAdmin, models.RoleVolunteer}
	adminOnly = []models.Role{models.RoleAdmin}
)

// NewRouter mounts every route behind the security, logging and metrics middleware.
func NewRouter(h *Handler) http.Handler {
	if h.CookieName == "" {
		h.CookieName = "token"
	}
	if h.Metrics == nil {
		h.Metrics = NewMetrics()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestID)
	r.Use(LoggingMiddleware(zap.S()))
	r.Use(h.Metrics.Instrument)
	r.Use(SecurityHeadersMiddleware())
	if len(h.CORSOrigins) > 0 {
		r.Use(cors.Handler(corsOptions(h.CORSOrigins)))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", h.Metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Use(h.Authenticate)

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/signup", h.Signup)
			auth.Post("/verify-otp", h.VerifyOTP)
			auth.Post("/login", h.Login)
			auth.Post("/logout", h.Logout)
			auth.With(h.RequireAuth).Get("/me", h.Me)
			auth.Post("/forgot-password/send-otp", h.SendResetOTP)
			auth.Post("/forgot-password/verify-otp", h.VerifyResetOTP)
			auth.Post("/forgot-password/reset-password", h.ResetPassword)
		})

		api.Group(func(g chi.Router) {
			g.Use(h.RequireAuth)
			g.Get("/users/me", h.GetProfile)
			g.Patch("/users/me", h.UpdateProfile)
			g.Get("/programs", h.ListPrograms)
		})

		api.Post("/outreach", h.RegisterOutreach)
		api.With(h.RequireRole(staff...)).Get("/outreach", h.ListOutreach)
		api.With(h.RequireRole(adminOnly...)).Delete("/outreach/{id}", h.DeleteOutreach)

		api.With(h.RequireRole(staff...)).Post("/roles/change", h.ChangeRole)

		api.Route("/followups", func(f chi.Router) {
			f.Group(func(g chi.Router) {
				g.Use(h.RequireRole(adminOnly...))
				g.Post("/bulk-assign", h.BulkAssign)
				g.Get("/volunteers-stats", h.VolunteerStats)
				g.Get("/export", h.ExportFollowUps)
				g.Delete("/{id}/update", h.DeleteFollowUp)
			})
			f.Group(func(g chi.Router) {
				g.Use(h.RequireRole(staff...))
				g.Post("/create-for-date", h.CreateForDate)
				g.Patch("/{id}/update", h.UpdateFollowUp)
				g.Get("/mine", h.MyFollowUps)
			})
		})

		api.Group(func(g chi.Router) {
			g.Use(h.RequireRole(adminOnly...))
			g.Post("/programs", h.CreateProgram)
		})
		api.Group(func(g chi.Router) {
			g.Use(h.RequireRole(staff...))
			g.Post("/programs/{id}/participants", h.EnrolParticipant)
			g.Post("/programs/{id}/attendance", h.MarkAttendance)
		})
	})

	return r
}

// corsOptions allows the listed origins. Cookies are only shared with
// explicitly listed origins, never with a wildcard.
func corsOptions(origins []string) cors.Options {
	credentials := true
	for _, o := range origins {
		if o == "*" {
			credentials = false
		}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: credentials,
		MaxAge:           300,
	}
}

// RequestID propagates X-Request-ID or assigns a fresh one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// LoggingMiddleware logs every request at debug level.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
				"size", ww.BytesWritten(),
				"requestId", requestIDFrom(r.Context()),
			)
		})
	}
}

// SecurityHeadersMiddleware sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) requestLog(r *http.Request, api string) *utils.RequestLog {
	return utils.NewRequestLog(api,
		"method", r.Method,
		"path", r.URL.Path,
		"requestId", requestIDFrom(r.Context()),
	)
}
