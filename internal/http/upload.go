package http

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/filecrate/filecrate/internal/service"
	"github.com/filecrate/filecrate/pkg/httpx"
	"github.com/filecrate/filecrate/pkg/slogx"
)

// multipartMemoryLimit is how much of a parsed form stays in memory before
// spilling to temp files. Uploads larger than this still work; they just hit
// disk while parsing.
const multipartMemoryLimit = 32 << 20

// uploadFieldName is the multipart field clients put their files under.
const uploadFieldName = "files"

type UploadHandler struct {
	FileService    *service.FileService
	MaxUploadBytes int64
}

type uploadResponse struct {
	Message string `json:"message"`
}

// ServeHTTP handles a multipart upload of one or more files.
//
//	@Summary		Upload files
//	@Description	Accepts multipart form data under the "files" field. Each file is
//	@Description	stored independently; a failed file does not undo its siblings.
//	@Tags			Files
//	@Security		BearerAuth
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			files	formData	file	true	"Files to upload"
//	@Success		200		{object}	uploadResponse
//	@Failure		400		{object}	httpx.ErrorResponse	"No files in the request"
//	@Failure		401		{object}	httpx.ErrorResponse	"Invalid or missing token"
//	@Failure		413		{object}	httpx.ErrorResponse	"Request body too large"
//	@Router			/api/upload [post].
func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		httpx.WriteError(w, http.StatusBadRequest, "Invalid multipart request")
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			log.Warn("failed to clean multipart temp files", "err", err)
		}
	}()

	headers := r.MultipartForm.File[uploadFieldName]
	batch := make([]service.UploadFile, 0, len(headers))
	for _, fh := range headers {
		batch = append(batch, service.UploadFile{
			Filename: fh.Filename,
			Open:     openHeader(fh),
		})
	}

	if _, err := h.FileService.UploadBatch(ctx, userID, batch); err != nil {
		log.Warn("upload batch failed", "user_id", userID, "err", err)
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, uploadResponse{
		Message: "Files uploaded successfully",
	})
}

func openHeader(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) { return fh.Open() }
}
