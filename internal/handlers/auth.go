package handlers

import (
	"net/http"
	"time"

	"github.com/docflow/apiserver/internal/auth"
	"github.com/docflow/apiserver/internal/services"
	"github.com/docflow/apiserver/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AuthHandler serves login and the current identity.
type AuthHandler struct {
	authService *services.AuthService
	tokens      *auth.TokenManager
	logger      *zap.Logger
}

func NewAuthHandler(authService *services.AuthService, tokens *auth.TokenManager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		tokens:      tokens,
		logger:      logger,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, authService *services.AuthService, tokens *auth.TokenManager, logger *zap.Logger) {
	handler := NewAuthHandler(authService, tokens, logger)

	r.Post("/login", handler.Login)
	r.With(RequireAuth(tokens, logger)).Get("/me", handler.Me)
}

// RequireAuth verifies the bearer token and stores its identity in the
// request context. The role comes from the token, never from the store.
func RequireAuth(tokens *auth.TokenManager, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				writeServiceError(w, r, logger, err)
				return
			}

			identity, err := tokens.Authorize(token, "")
			if err != nil {
				writeServiceError(w, r, logger, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
		})
	}
}

// Login verifies credentials and returns a signed token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.authService.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      session.User,
	})
}

// Me echoes the identity embedded in the caller's token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeServiceError(w, r, h.logger, auth.ErrMissingToken)
		return
	}
	writeJSON(w, http.StatusOK, identity)
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      types.User `json:"user"`
}
