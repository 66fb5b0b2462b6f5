package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/KotFed0t/crypto_vault_tracker/internal/auth"
	"github.com/KotFed0t/crypto_vault_tracker/internal/model"
	"github.com/KotFed0t/crypto_vault_tracker/internal/transport/rest/response"
	"github.com/KotFed0t/crypto_vault_tracker/utils"
)

const RequestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logger attaches a request id to the context and logs the request outcome.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()

		ctx := utils.CtxWithRqID(r.Context(), r.Header.Get(RequestIDHeader))
		rqID := utils.GetRequestIDFromCtx(ctx)
		w.Header().Set(RequestIDHeader, rqID)

		slog.Info("start request", slog.String("rqID", rqID), slog.String("method", r.Method), slog.String("path", r.URL.Path))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			slog.Info(
				"request finished",
				slog.String("rqID", rqID),
				slog.Int("status", rec.status),
				slog.String("request duration", fmt.Sprintf("%.3fs", time.Since(now).Seconds())),
			)
		}()

		next.ServeHTTP(rec, r.WithContext(ctx))
	})
}

func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error(
					"panic recovered",
					slog.String("rqID", utils.GetRequestIDFromCtx(r.Context())),
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
				)
				response.Error(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// CORS allows the dashboard origin to call the API with credentials.
func CORS(allowedOrigin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowedOrigin == "*" || origin == allowedOrigin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+RequestIDHeader)
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Claims, error)
}

type claimsKey struct{}

func ClaimsFromCtx(ctx context.Context) (auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(auth.Claims)
	return claims, ok
}

// AuthGuard rejects requests without a valid token. With roles given, the token role must be one of them.
func AuthGuard(authenticator Authenticator, cookieName string, roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := authenticator.Authenticate(r.Context(), TokenFromRequest(r, cookieName))
			if err != nil {
				response.Error(w, http.StatusUnauthorized, "You are not authorized")
				return
			}

			if len(roles) > 0 && !slices.Contains(roles, claims.Role) {
				slog.Info(
					"forbidden",
					slog.String("rqID", utils.GetRequestIDFromCtx(r.Context())),
					slog.Int64("userID", claims.UserID),
					slog.String("role", string(claims.Role)),
				)
				response.Error(w, http.StatusForbidden, "You are not allowed to access this resource")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}

// TokenFromRequest prefers the session cookie over a bearer header.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
