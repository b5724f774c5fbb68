package http

import (
	"errors"
	"net/http"

	"github.com/filecrate/filecrate/internal/service"
	"github.com/filecrate/filecrate/pkg/httpx"
)

// writeServiceError maps service-layer errors onto the wire. Anything
// unrecognized is a 500 with a generic body; internals never leak to clients.
func writeServiceError(w http.ResponseWriter, err error) {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		httpx.WriteError(w, http.StatusBadRequest, ve.Msg)
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid username or password")
	case errors.Is(err, service.ErrUsernameTaken):
		httpx.WriteError(w, http.StatusConflict, "Username already exists")
	case errors.Is(err, service.ErrBadFileID):
		httpx.WriteError(w, http.StatusBadRequest, "Invalid file id")
	case errors.Is(err, service.ErrFileNotFound):
		httpx.WriteError(w, http.StatusNotFound, "File not found")
	case errors.Is(err, service.ErrNotOwner):
		httpx.WriteError(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, service.ErrEmptyBatch):
		httpx.WriteError(w, http.StatusBadRequest, "No files were uploaded")
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
