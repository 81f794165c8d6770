package http

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/Micevski239/dysnomia-website-sub001/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	SessionCookie = "cart_session"
	SessionHeader = "X-Cart-Session"

	sessionMaxAge = 90 * 24 * time.Hour
)

type ctxKey int

const sessionKey ctxKey = iota

var sessionPattern = regexp.MustCompile(`^[A-Za-z0-9-]{8,64}$`)

// SessionMiddleware resolves the cart session from the cookie or the
// X-Cart-Session header, issuing a new one when neither holds a valid id.
// The id is echoed back in both places.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := ""
		if c, err := r.Cookie(SessionCookie); err == nil && sessionPattern.MatchString(c.Value) {
			session = c.Value
		} else if h := r.Header.Get(SessionHeader); sessionPattern.MatchString(h) {
			session = h
		}
		if session == "" {
			session = uuid.NewString()
		}

		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    session,
			Path:     "/",
			MaxAge:   int(sessionMaxAge.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		w.Header().Set(SessionHeader, session)

		ctx := context.WithValue(r.Context(), sessionKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func WithSession(ctx context.Context, session string) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

func sessionFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(sessionKey).(string); ok {
		return s
	}
	return ""
}

// RequestLogger logs and counts every request once it has been served.
func RequestLogger(logger *zap.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			elapsed := time.Since(start)

			m.ObserveRequest(route, strconv.Itoa(status), float64(elapsed.Milliseconds()))
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", status),
				zap.Duration("duration", elapsed),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
