package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/petalmail/apiserver/internal/auth"
	"github.com/petalmail/apiserver/internal/events"
	"github.com/petalmail/apiserver/internal/metrics"
	"github.com/petalmail/apiserver/internal/services"
	"github.com/petalmail/apiserver/internal/store"
	"github.com/petalmail/apiserver/types"
	"go.uber.org/zap"
)

// TokenIssuer signs identities into bearer tokens.
type TokenIssuer interface {
	Issue(identity auth.Identity) (string, error)
}

// TokenVerifier turns a bearer token back into an identity.
type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}

// AuthHandler provides the registration and log-in endpoints.
type AuthHandler struct {
	userService *services.UserService
	hasher      PasswordHasher
	tokens      TokenIssuer
	events      events.Emitter
	logger      *zap.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(
	userService *services.UserService,
	hasher PasswordHasher,
	tokens TokenIssuer,
	emitter events.Emitter,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		hasher:      hasher,
		tokens:      tokens,
		events:      emitter,
		logger:      logger,
	}
}

// AuthRouter registers the public auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/register", handler.Register)
	r.Post("/log-in", handler.Login)
}

// RequireAuth rejects requests without a valid bearer token and attaches the
// token's identity to the context of those it lets through. Bad or expired
// tokens additionally raise a jwt-error event.
func RequireAuth(verifier TokenVerifier, emitter events.Emitter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := auth.BearerToken(r)
			if err != nil {
				reason := "missing_header"
				if errors.Is(err, auth.ErrInvalidScheme) {
					reason = "invalid_scheme"
				}
				metrics.IncrementAuthRejection(reason)
				writeError(w, http.StatusUnauthorized, "Invalid authorization")
				return
			}

			identity, err := verifier.Verify(tokenString)
			if err != nil {
				var reason, msg string
				switch {
				case errors.Is(err, auth.ErrTokenExpired):
					reason, msg = "token_expired", auth.ErrTokenExpired.Error()
				case errors.Is(err, auth.ErrInvalidToken):
					reason, msg = "invalid_token", auth.ErrInvalidToken.Error()
				default:
					logger.Error("verify token",
						zap.String("request_id", middleware.GetReqID(r.Context())),
						zap.Error(err),
					)
					writeError(w, http.StatusInternalServerError, "Error verifying token")
					return
				}

				metrics.IncrementAuthRejection(reason)
				logger.Info("rejected bearer token",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("reason", reason),
					zap.Error(err),
				)
				emitter.Emit(r.Context(), events.JWTError, events.JWTErrorData{
					Error:      msg,
					Method:     r.Method,
					Path:       r.URL.Path,
					RemoteAddr: r.RemoteAddr,
				})
				writeError(w, http.StatusUnauthorized, msg)
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
		})
	}
}

// Register creates a new user account and returns a token for it.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || strings.TrimSpace(req.Password) == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	hashed, err := h.hasher.Hash(req.Password)
	if err != nil {
		h.logger.Error("hash password", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error, please try again")
		return
	}

	user, err := h.userService.Create(r.Context(), types.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashed,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "Error creating user")
			return
		}
		h.logger.Error("create user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error creating user")
		return
	}

	token, err := h.tokens.Issue(auth.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     auth.RoleUser,
	})
	if err != nil {
		h.logger.Error("issue token", zap.Int64("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error, please try again")
		return
	}

	h.events.Emit(r.Context(), events.UserRegistered, map[string]any{
		"userId": user.ID,
		"email":  user.Email,
	})
	writeData(w, http.StatusCreated, token)
}

// Login verifies credentials and returns a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	user, err := h.userService.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Email not found")
			return
		}
		h.logger.Error("load user for log-in", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error logging in")
		return
	}

	ok, err := h.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		h.logger.Error("verify password", zap.Int64("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error logging in")
		return
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, "Password not found")
		return
	}

	token, err := h.tokens.Issue(auth.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     auth.RoleUser,
	})
	if err != nil {
		h.logger.Error("issue token", zap.Int64("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error logging in")
		return
	}

	writeData(w, http.StatusOK, token)
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
