package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/goliatone/go-forum-cache/forum"
	"github.com/goliatone/go-forum-cache/internal/auth"
)

type claimsKey struct{}

// requestLogger logs one line per request once the handler returns.
func requestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("HTTP Request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestID", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// authenticate requires a valid, unrevoked bearer token and stores its
// claims in the request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			writeMessage(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := s.tokens.Parse(raw)
		if err != nil {
			s.logger.Debug("token rejected", zap.Error(err))
			writeMessage(w, http.StatusUnauthorized, "invalid token")
			return
		}

		revoked, err := s.blocklist.IsRevoked(r.Context(), claims.JTI)
		if err != nil {
			s.logger.Error("blocklist lookup failed", zap.String("jti", claims.JTI), zap.Error(err))
			writeMessage(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if revoked {
			writeMessage(w, http.StatusUnauthorized, "token has been revoked")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func claimsFrom(ctx context.Context) (auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(auth.Claims)
	return c, ok
}

func actorFrom(ctx context.Context) (forum.Actor, bool) {
	c, ok := claimsFrom(ctx)
	if !ok {
		return forum.Actor{}, false
	}
	return forum.Actor{ID: c.UserID, Username: c.Username}, true
}
