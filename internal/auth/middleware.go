package auth

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/applyo/prospector/internal/apperr"
	"github.com/applyo/prospector/internal/persistence"
)

const CookieName = "prospector_session"

type contextKey int

const (
	userKey contextKey = iota
	sessionKey
)

// UserFromContext returns the user set by RequireAuth, or nil.
func UserFromContext(ctx context.Context) *persistence.User {
	u, _ := ctx.Value(userKey).(*persistence.User)
	return u
}

func SessionFromContext(ctx context.Context) *persistence.Session {
	s, _ := ctx.Value(sessionKey).(*persistence.Session)
	return s
}

// TokenFromRequest reads the session token from the cookie, then the Bearer header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// ClientFromRequest captures the caller's address and user agent.
func ClientFromRequest(r *http.Request) Client {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}
	return Client{IPAddress: ip, UserAgent: r.UserAgent()}
}

// RequireAuth rejects requests without a live session with 401.
func RequireAuth(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, user, err := svc.Authenticate(r.Context(), TokenFromRequest(r))
			if err != nil {
				status := http.StatusInternalServerError
				if apperr.IsType(err, apperr.ErrUnauthorized) {
					status = http.StatusUnauthorized
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": apperr.PublicMessage(err)})
				return
			}
			ctx := context.WithValue(r.Context(), userKey, user)
			ctx = context.WithValue(ctx, sessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func SetSessionCookie(w http.ResponseWriter, sess *persistence.Session, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}

func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}
