package http

import (
	"encoding/json"
	"net/http"

	"github.com/filecrate/filecrate/internal/domain"
	"github.com/filecrate/filecrate/internal/service"
	"github.com/filecrate/filecrate/pkg/httpx"
	"github.com/filecrate/filecrate/pkg/slogx"
)

type LoginHandler struct {
	AuthService *service.AuthService
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string                `json:"token"`
	User  domain.PublicUserView `json:"user"`
}

// ServeHTTP handles credential login and session token minting.
//
//	@Summary		Log in
//	@Description	Verifies credentials and returns a bearer token valid for one hour.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		loginRequest	true	"Login payload"
//	@Success		200		{object}	loginResponse
//	@Failure		401		{object}	httpx.ErrorResponse	"Invalid username or password"
//	@Router			/api/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, user, err := h.AuthService.Login(ctx, req.Username, req.Password)
	if err != nil {
		log.Info("login failed", "err", err)
		writeServiceError(w, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		Token: token,
		User:  user,
	})
}
