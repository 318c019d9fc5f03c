package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/go-chi/chi/v5"
)

const (
	msgRegistered = "User successfully created!"
	msgLoggedIn   = "Login successful!"
)

// AuthAPI is the part of services.AuthService the handlers need.
type AuthAPI interface {
	Register(ctx context.Context, req services.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
}

// UserAPI is the part of services.UserService the handlers need.
type UserAPI interface {
	Get(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, id string, req services.UpdateRequest) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

type Handler struct {
	auth   AuthAPI
	users  UserAPI
	logger logging.Logger
}

func NewHandler(a AuthAPI, u UserAPI, logger logging.Logger) *Handler {
	return &Handler{auth: a, users: u, logger: logger}
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := decodeRegister(r.Body)
	if err != nil {
		writeServiceError(ctx, w, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeServiceError(ctx, w, h.logger, validationError(err))
		return
	}

	user, err := h.auth.Register(ctx, req.toService())
	if err != nil {
		writeServiceError(ctx, w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, RegisterResponse{Message: msgRegistered, User: newUserResponse(user)})
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoginRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeServiceError(ctx, w, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeServiceError(ctx, w, h.logger, validationError(err))
		return
	}

	res, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		writeLoginError(ctx, w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Message:     msgLoggedIn,
		AccessToken: res.AccessToken,
		User:        PrincipalSummary{Username: res.User.UserName, Email: res.User.Email},
	})
}

// Me handles GET /users/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(principal))
}

// UpdateMe handles PATCH /users/me.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		writeUnauthenticated(w)
		return
	}

	var req UpdateRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeServiceError(ctx, w, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeServiceError(ctx, w, h.logger, validationError(err))
		return
	}

	user, err := h.users.Update(ctx, principal.ID, req.toService())
	if err != nil {
		writeServiceError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

// DeleteMe handles DELETE /users/me.
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		writeUnauthenticated(w)
		return
	}

	if err := h.users.Delete(ctx, principal.ID); err != nil {
		writeServiceError(ctx, w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetUser handles GET /users/{id}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.users.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
