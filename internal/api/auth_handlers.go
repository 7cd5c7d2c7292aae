package api

import (
	"net/http"
	"time"

	"github.com/example/ec-storefront/internal/api/middleware"
	"github.com/example/ec-storefront/internal/apperr"
	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/domain/user"
	log "github.com/sirupsen/logrus"
)

const (
	accessCookieName  = "access_token"
	refreshCookieName = "refresh_token"
	sessionCookieName = "session_id"
	refreshCookiePath = "/auth/refresh"
)

var errNoSession = apperr.New(apperr.Unauthorized, "no refresh session")

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	userService  *user.Service
	jwtService   *auth.JWTService
	cookieSecure bool
	logger       *log.Entry
}

func NewAuthHandlers(userService *user.Service, jwtService *auth.JWTService, cookieSecure bool) *AuthHandlers {
	return &AuthHandlers{
		userService:  userService,
		jwtService:   jwtService,
		cookieSecure: cookieSecure,
		logger:       log.WithField("component", "auth"),
	}
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User    UserResponse `json:"user"`
	Message string       `json:"message,omitempty"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func newUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}

	u, err := h.userService.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}
	if err := h.startSession(w, r, u); err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, AuthResponse{User: newUserResponse(u), Message: "Registration successful"})
}

func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}

	u, err := h.userService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}
	if err := h.startSession(w, r, u); err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}
	h.logger.WithField("user_id", u.ID).Info("user logged in")

	middleware.WriteJSON(w, http.StatusOK, AuthResponse{User: newUserResponse(u), Message: "Login successful"})
}

func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if userID := middleware.GetUserID(r.Context()); userID != "" {
		if err := h.userService.EndSessions(r.Context(), userID); err != nil {
			h.logger.WithError(err).WithField("user_id", userID).Warn("failed to end sessions")
		}
	}
	h.clearAuthCookies(w)

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

// Refresh rotates the session: the presented refresh token must match the
// stored session, which is consumed and replaced.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshCookie, err := r.Cookie(refreshCookieName)
	if err != nil {
		middleware.WriteError(w, h.logger, errNoSession)
		return
	}
	sessionCookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		h.clearAuthCookies(w)
		middleware.WriteError(w, h.logger, errNoSession)
		return
	}
	if _, err := h.jwtService.ValidateRefreshToken(refreshCookie.Value); err != nil {
		h.clearAuthCookies(w)
		middleware.WriteError(w, h.logger, errNoSession)
		return
	}

	u, err := h.userService.ResumeSession(r.Context(), sessionCookie.Value, refreshCookie.Value)
	if err != nil {
		h.clearAuthCookies(w)
		middleware.WriteError(w, h.logger, err)
		return
	}
	if err := h.startSession(w, r, u); err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "Token refreshed"})
}

func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.userService.Get(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, newUserResponse(u))
}

// startSession issues both tokens, records the refresh session and sets the cookies.
func (h *AuthHandlers) startSession(w http.ResponseWriter, r *http.Request, u *user.User) error {
	accessToken, accessExpiry, err := h.jwtService.GenerateAccessToken(auth.Identity{
		UserID:   u.ID,
		Email:    u.Email,
		Username: u.Username,
		Role:     u.Role,
	})
	if err != nil {
		return err
	}
	refreshToken, refreshExpiry, err := h.jwtService.GenerateRefreshToken(u.ID)
	if err != nil {
		return err
	}
	sess, err := h.userService.StartSession(r.Context(), u, refreshToken, refreshExpiry, r.RemoteAddr, r.UserAgent())
	if err != nil {
		return err
	}

	secure := h.cookieSecure || r.TLS != nil
	http.SetCookie(w, &http.Cookie{
		Name:     accessCookieName,
		Value:    accessToken,
		Path:     "/",
		Expires:  accessExpiry,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    refreshToken,
		Path:     refreshCookiePath,
		Expires:  refreshExpiry,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		Expires:  refreshExpiry,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

func (h *AuthHandlers) clearAuthCookies(w http.ResponseWriter) {
	for name, path := range map[string]string{
		accessCookieName:  "/",
		refreshCookieName: refreshCookiePath,
		sessionCookieName: "/",
	} {
		http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: path, MaxAge: -1, HttpOnly: true})
	}
}
