package http

import (
	"encoding/json"
	"net/http"

	"github.com/filecrate/filecrate/internal/service"
	"github.com/filecrate/filecrate/pkg/httpx"
	"github.com/filecrate/filecrate/pkg/slogx"
)

type SignupHandler struct {
	AuthService *service.AuthService
}

type signupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type signupResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

// ServeHTTP handles account registration.
//
//	@Summary		Register a new account
//	@Description	Creates a user. Usernames are case-insensitive and must be unique.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		signupRequest	true	"Signup payload"
//	@Success		201		{object}	signupResponse
//	@Failure		400		{object}	httpx.ErrorResponse	"Invalid username, password, or name"
//	@Failure		409		{object}	httpx.ErrorResponse	"Username already exists"
//	@Router			/api/signup [post].
func (h *SignupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.AuthService.Signup(ctx, req.Username, req.Password, req.Name)
	if err != nil {
		log.Info("signup rejected", "err", err)
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, signupResponse{
		Message: "User registered successfully",
		UserID:  user.ID,
	})
}
