package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"quizbot/internal/config"
)

// UserHeader carries the caller identity. Authentication happens in front of
// this service.
const UserHeader = "X-User-ID"

type userKey struct{}

// requestLogger stores the request id in the log context and logs every request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := config.ContextWithFields(r.Context(), logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
		})
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r.WithContext(ctx))

		config.WithContext(ctx).WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
		}).Debug("request served")
	})
}

// requireUser rejects requests without a caller identity. WebSocket clients
// that cannot set headers may pass it as the userId query parameter.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.Header.Get(UserHeader)
		if user == "" {
			user = r.URL.Query().Get("userId")
		}
		if user == "" {
			writeJSON(w, http.StatusUnauthorized, errorPayload{Message: "missing " + UserHeader})
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, user)
		ctx = config.ContextWithFields(ctx, logrus.Fields{"user_id": user})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFrom(ctx context.Context) string {
	user, _ := ctx.Value(userKey{}).(string)
	return user
}
