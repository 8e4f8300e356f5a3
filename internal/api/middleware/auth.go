package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Harshitk-cp/practicedesk/internal/domain"
	"github.com/Harshitk-cp/practicedesk/internal/service"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const principalKey contextKey = "principal"

// PrincipalFromContext returns the authenticated user, if any.
func PrincipalFromContext(ctx context.Context) *domain.User {
	u, _ := ctx.Value(principalKey).(*domain.User)
	return u
}

// WithPrincipal stores the authenticated user on ctx.
func WithPrincipal(ctx context.Context, u *domain.User) context.Context {
	return context.WithValue(ctx, principalKey, u)
}

// UserLookup resolves an API key hash to its user.
type UserLookup interface {
	GetUserByAPIKeyHash(ctx context.Context, apiKeyHash string) (*domain.User, error)
}

// Authenticator resolves bearer API keys to users, caching hits for ttl.
type Authenticator struct {
	users  UserLookup
	cache  *cache.Cache
	logger *zap.Logger
}

// NewAuthenticator caches resolved users for ttl.
func NewAuthenticator(users UserLookup, ttl time.Duration, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		users:  users,
		cache:  cache.New(ttl, 2*ttl),
		logger: logger,
	}
}

// Forget drops a cached key, e.g. after the user was changed.
func (a *Authenticator) Forget(apiKeyHash string) {
	a.cache.Delete(apiKeyHash)
}

func (a *Authenticator) resolve(ctx context.Context, apiKey string) (*domain.User, error) {
	hash := service.HashAPIKey(apiKey)
	if u, ok := a.cache.Get(hash); ok {
		return u.(*domain.User), nil
	}
	u, err := a.users.GetUserByAPIKeyHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	a.cache.SetDefault(hash, u)
	return u, nil
}

// Middleware rejects requests without a valid bearer API key.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			writeError(w, http.StatusUnauthorized, "invalid authorization header format")
			return
		}

		user, err := a.resolve(r.Context(), parts[1])
		if err != nil {
			a.logger.Debug("api key rejected", zap.String("request_id", RequestIDFromContext(r.Context())), zap.Error(err))
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), user)))
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
