package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/example/ec-storefront/internal/apperr"
	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/domain/order"
	"github.com/example/ec-storefront/internal/domain/user"
	log "github.com/sirupsen/logrus"
)

const accessTokenCookie = "access_token"

var (
	ErrAuthenticationRequired = apperr.New(apperr.Unauthorized, "authentication required")
	ErrInvalidToken           = apperr.New(apperr.Unauthorized, "invalid or expired access token")
	ErrRoleRequired           = apperr.New(apperr.Forbidden, "insufficient role for this operation")
)

type claimsKey struct{}

func withClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ExtractToken returns the access token from the access_token cookie, falling
// back to a bearer Authorization header.
func ExtractToken(r *http.Request) string {
	if cookie, err := r.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func authenticate(jwtService *auth.JWTService, r *http.Request) (*auth.Claims, error) {
	token := ExtractToken(r)
	if token == "" {
		return nil, ErrAuthenticationRequired
	}
	claims, err := jwtService.ValidateAccessToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// AuthMiddleware admits only requests carrying a valid access token.
func AuthMiddleware(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	logger := log.WithField("component", "auth")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := authenticate(jwtService, r)
			if err != nil {
				WriteError(w, logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// OptionalAuthMiddleware attaches the caller's identity when a valid token is
// present. Anything else proceeds as a guest, so guest checkout never fails on
// a stale cookie.
func OptionalAuthMiddleware(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	logger := log.WithField("component", "auth")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := authenticate(jwtService, r)
			switch {
			case err == nil:
				r = r.WithContext(withClaims(r.Context(), claims))
			case errors.Is(err, ErrInvalidToken):
				logger.WithField("path", r.URL.Path).Debug("ignoring invalid access token, continuing as guest")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole admits callers holding one of roles. It must run behind
// AuthMiddleware.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	logger := log.WithField("component", "auth")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetUserFromContext(r.Context())
			if !ok {
				WriteError(w, logger, ErrAuthenticationRequired)
				return
			}
			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			logger.WithFields(log.Fields{
				"user_id": claims.UserID,
				"role":    claims.Role,
				"path":    r.URL.Path,
			}).Info("role check failed")
			WriteError(w, logger, ErrRoleRequired)
		})
	}
}

// RequireAdmin is RequireRole for the admin role.
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireRole(user.RoleAdmin)
}

func GetUserFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims, ok
}

func GetUserID(ctx context.Context) string {
	claims, ok := GetUserFromContext(ctx)
	if !ok {
		return ""
	}
	return claims.UserID
}

func IsAdmin(ctx context.Context) bool {
	claims, ok := GetUserFromContext(ctx)
	return ok && claims.Role == user.RoleAdmin
}

// OrderIdentity is the identity an order is placed under, or nil for a guest.
func OrderIdentity(ctx context.Context) *order.Identity {
	claims, ok := GetUserFromContext(ctx)
	if !ok {
		return nil
	}
	return &order.Identity{UserID: claims.UserID, Username: claims.Username, Role: claims.Role}
}
