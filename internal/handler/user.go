package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sakif/time-capsule/internal/service"
)

// AccountService is what UserHandler needs from the service layer.
// *service.AuthService implements it.
type AccountService interface {
	Register(ctx context.Context, username, email, password string) (*service.AuthResult, error)
	Login(ctx context.Context, email, password string) (*service.AuthResult, error)
}

// msgSomethingWentWrong is the fallback for unexpected register/login failures.
const msgSomethingWentWrong = "Something went wrong"

// UserHandler serves the /api/users routes.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister  → create an account, respond with profile + token
//   - HandleLogin     → check credentials, respond with profile + token
//   - HandleProtected → greet the authenticated user
//   - HandleMe        → return the authenticated user's profile
type UserHandler struct {
	accounts AccountService
	logger   *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(accounts AccountService, logger *slog.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, logger: logger}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse is the body of a successful register or login.
type authResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Token    string `json:"token"`
}

func newAuthResponse(res *service.AuthResult) authResponse {
	return authResponse{
		ID:       res.User.ID,
		Username: res.User.Username,
		Email:    res.User.Email,
		Token:    res.Token,
	}
}

// HandleRegister creates a new account.
//
// HTTP: POST /api/users/register
// REQUEST BODY: {"username": "...", "email": "...", "password": "..."}
// RESPONSE: 201 {"id", "username", "email", "token"}
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid register JSON", slog.String("error", err.Error()))
		writeMessage(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	res, err := h.accounts.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err, msgSomethingWentWrong)
		return
	}

	writeJSON(w, http.StatusCreated, newAuthResponse(res))
}

// HandleLogin exchanges credentials for a token.
//
// HTTP: POST /api/users/login
// REQUEST BODY: {"email": "...", "password": "..."}
// RESPONSE: 200 {"id", "username", "email", "token"}
func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid login JSON", slog.String("error", err.Error()))
		writeMessage(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	res, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err, msgSomethingWentWrong)
		return
	}

	writeJSON(w, http.StatusOK, newAuthResponse(res))
}

// HandleProtected is a simple endpoint clients use to check a token works.
//
// HTTP: GET /api/users/protected (behind auth.RequireAuth)
func (h *UserHandler) HandleProtected(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeMessage(w, http.StatusOK, fmt.Sprintf("Hello %s, you're authorized!", user.Username))
}

// HandleMe returns the current user's profile. The password hash is never
// part of it (model.User tags it json:"-").
//
// HTTP: GET /api/users/me (behind auth.RequireAuth)
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}
