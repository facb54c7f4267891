package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/raushankrgupta/temple-connect/models"
	"github.com/raushankrgupta/temple-connect/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// legacyCookie is the older session cookie name still sent by some clients.
const legacyCookie = "jwt"

type ctxKey int

const (
	sessionKey ctxKey = iota
	requestIDKey
)

// Session is the authenticated caller, resolved once per request.
type Session struct {
	User *models.User
}

func (s *Session) Actor() models.Actor {
	return models.Actor{ID: s.User.ID, Role: s.User.Role, Name: s.User.Name}
}

// SessionFrom returns the session stored by Authenticate, if any.
func SessionFrom(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey).(*Session)
	return s, ok && s != nil
}

func withSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// bearerToken looks in the configured cookie, the Authorization header and
// the legacy cookie, in that order.
func (h *Handler) bearerToken(r *http.Request) string {
	if c, err := r.Cookie(h.CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if c, err := r.Cookie(legacyCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return ""
}

// Authenticate attaches a Session when the request carries a valid token for
// an active account. Requests without one continue anonymously.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := h.Tokens.ValidateToken(token, utils.PurposeSession)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		id, err := primitive.ObjectIDFromHex(claims.Subject)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		user, err := h.Users.GetByID(r.Context(), id)
		if err != nil || !user.IsActive || user.IsPending() {
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), &Session{User: user})))
	})
}

// RequireAuth rejects anonymous requests.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionFrom(r.Context()); !ok {
			logger := h.requestLog(r, "Auth Middleware")
			defer logger.Flush()
			utils.RespondError(w, logger, "Authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole admits only sessions holding one of roles.
func (h *Handler) RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return h.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, _ := SessionFrom(r.Context())
			for _, role := range roles {
				if s.User.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			logger := h.requestLog(r, "Auth Middleware")
			defer logger.Flush()
			utils.RespondError(w, logger, "You do not have permission to do this", http.StatusForbidden)
		}))
	}
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{h.CookieName, legacyCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
