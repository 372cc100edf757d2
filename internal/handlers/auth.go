package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/quizmind/apiserver/internal/services"
)

const (
	msgNotAuthenticated   = "Not authenticated"
	msgInvalidCredentials = "Could not validate credentials"
)

// TokenVerifier resolves a bearer token to its subject.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// AuthHandler provides account and JWT authentication endpoints.
type AuthHandler struct {
	userService *services.UserService
	tokens      TokenVerifier
	logger      *slog.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, tokens TokenVerifier, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		tokens:      tokens,
		logger:      logger,
	}
}

// AuthRouter registers account routes on the given router.
func AuthRouter(r chi.Router, userService *services.UserService, tokens TokenVerifier, logger *slog.Logger) {
	handler := NewAuthHandler(userService, tokens, logger)

	r.Post("/signup", handler.Signup)
	r.Post("/login", handler.Login)
	r.Post("/forgot", handler.ForgotPassword)
	r.With(handler.RequireUser).Get("/dashboard", handler.Dashboard)
}

// RequireUser enforces bearer authentication and injects the user into the
// request context.
func (h *AuthHandler) RequireUser(next http.Handler) http.Handler {
	return RequireUser(h.userService, h.tokens, h.logger)(next)
}

// RequireUser constructs the auth middleware for other routers.
func RequireUser(userService *services.UserService, tokens TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				writeUnauthorized(w, msgNotAuthenticated)
				return
			}

			email, err := tokens.Verify(tokenString)
			if err != nil {
				writeUnauthorized(w, msgInvalidCredentials)
				return
			}

			user, err := userService.GetByEmail(r.Context(), email)
			if err != nil {
				if errors.Is(err, services.ErrUserNotFound) {
					writeUnauthorized(w, msgInvalidCredentials)
					return
				}
				logger.Error("load authenticated user", "error", err)
				writeError(w, http.StatusInternalServerError, "failed to load user")
				return
			}

			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

// Signup creates a new account.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	user, err := h.userService.Signup(r.Context(), services.SignupInput{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
		Education:   req.Education,
	})
	if err != nil {
		if errors.Is(err, services.ErrDuplicateEmail) {
			writeError(w, http.StatusBadRequest, "User with this email already exists")
			return
		}
		h.logger.Error("signup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// Login verifies credentials and returns a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	token, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeUnauthorized(w, "Incorrect username or password")
			return
		}
		h.logger.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Dashboard returns the authenticated user.
func (h *AuthHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, msgNotAuthenticated)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ForgotPassword sets a new password for the account with the given email.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	err := h.userService.ForgotPassword(r.Context(), req.Email, req.NewPassword, req.ConfirmPassword)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, MessageResponse{Message: "Password updated successfully"})
	case errors.Is(err, services.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, services.ErrPasswordMismatch):
		writeError(w, http.StatusBadRequest, "Passwords do not match")
	default:
		h.logger.Error("forgot password failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update password")
	}
}

type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phone_number"`
	Education   string `json:"education"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email           string `json:"email"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
