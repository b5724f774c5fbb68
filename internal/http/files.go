package http

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/filecrate/filecrate/internal/service"
	"github.com/filecrate/filecrate/pkg/httpx"
	"github.com/filecrate/filecrate/pkg/slogx"
)

type FilesHandler struct {
	FileService *service.FileService
}

type deleteResponse struct {
	Message string `json:"message"`
}

// HandleList lists the caller's files.
//
//	@Summary		List files
//	@Description	Returns the caller's files in upload order. Content is not included.
//	@Tags			Files
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		domain.FileRecord
//	@Failure		401	{object}	httpx.ErrorResponse	"Invalid or missing token"
//	@Router			/api/files [get].
func (h *FilesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	records, err := h.FileService.List(ctx, userID)
	if err != nil {
		slogx.FromContext(ctx).Error("list files failed", "user_id", userID, "err", err)
		writeServiceError(w, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, records)
}

// HandleDownload streams one file's content back to its owner.
//
//	@Summary		Download a file
//	@Description	Streams the stored bytes as an attachment. Only the owner may download.
//	@Tags			Files
//	@Security		BearerAuth
//	@Produce		application/octet-stream
//	@Param			id	path		string	true	"File id"
//	@Success		200	{file}		binary
//	@Failure		400	{object}	httpx.ErrorResponse	"Malformed file id"
//	@Failure		401	{object}	httpx.ErrorResponse	"Invalid or missing token"
//	@Failure		403	{object}	httpx.ErrorResponse	"File belongs to another user"
//	@Failure		404	{object}	httpx.ErrorResponse	"No such file"
//	@Router			/api/files/{id}/download [get].
func (h *FilesHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	file, content, err := h.FileService.Download(ctx, userID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer content.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(file.SizeBytes, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": file.Filename,
	}))

	if _, err := io.Copy(w, content); err != nil {
		// Headers are gone; all we can do is log the broken transfer.
		slogx.FromContext(ctx).Warn("download interrupted",
			"file_id", file.ID, "err", fmt.Errorf("copy: %w", err))
	}
}

// HandleDelete permanently removes one of the caller's files.
//
//	@Summary		Delete a file
//	@Description	Removes the file's metadata and content. Only the owner may delete.
//	@Tags			Files
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"File id"
//	@Success		200	{object}	deleteResponse
//	@Failure		400	{object}	httpx.ErrorResponse	"Malformed file id"
//	@Failure		401	{object}	httpx.ErrorResponse	"Invalid or missing token"
//	@Failure		403	{object}	httpx.ErrorResponse	"File belongs to another user"
//	@Failure		404	{object}	httpx.ErrorResponse	"No such file"
//	@Router			/api/files/{id} [delete].
func (h *FilesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.FileService.Delete(ctx, userID, r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, deleteResponse{
		Message: "File deleted successfully",
	})
}
