package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/filecrate/filecrate/internal/domain"
	"github.com/filecrate/filecrate/pkg/idx"
	"github.com/filecrate/filecrate/pkg/slogx"
)

// ErrEmptyBatch is returned when an upload request carries no files.
var ErrEmptyBatch = errors.New("empty_batch")

// UploadFile is one file in an upload batch. Open is called once, from the
// goroutine handling this file.
type UploadFile struct {
	Filename string
	Open     func() (io.ReadCloser, error)
}

// UploadBatch stores every file in the batch concurrently. Each file is an
// independent unit of work: its content is streamed to the blob store,
// committed, and only then recorded in metadata, so a listing can never show
// a file whose bytes are not fully on disk.
//
// Files that fail do not roll back their siblings. The returned slice holds
// the files that made it, in batch order; the error reports the first
// failure, if any.
func (s *FileService) UploadBatch(ctx context.Context, ownerID string, files []UploadFile) ([]domain.StoredFile, error) {
	if len(files) == 0 {
		return nil, ErrEmptyBatch
	}

	batchID := uuid.NewString()
	l := slogx.FromContext(ctx).With(
		slog.String("batch_id", batchID),
		slog.String("user_id", ownerID),
	)

	// Ids are minted up front, in batch order. They are what ListFilesByOwner
	// sorts by, so minting them inside the goroutines would make the listing
	// order depend on scheduling instead of the order the client sent.
	ids := make([]idx.ID, len(files))
	for i := range files {
		ids[i] = idx.New()
	}

	saved := make([]domain.StoredFile, len(files))

	var g errgroup.Group
	for i, f := range files {
		g.Go(func() error {
			stored, err := s.storeOne(ctx, ownerID, ids[i], f)
			if err != nil {
				l.Warn("file upload failed",
					slog.String("filename", f.Filename),
					slog.Any("err", err))
				return err
			}
			saved[i] = stored
			return nil
		})
	}

	err := g.Wait()

	result := saved[:0]
	for _, f := range saved {
		if f.ID != "" {
			result = append(result, f)
		}
	}

	l.Info("upload batch finished",
		slog.Int("requested", len(files)),
		slog.Int("stored", len(result)))

	return result, err
}

func (s *FileService) storeOne(ctx context.Context, ownerID string, id idx.ID, f UploadFile) (domain.StoredFile, error) {
	name := sanitizeFilename(f.Filename)
	if name == "" {
		return domain.StoredFile{}, validationErr("filename is required")
	}

	src, err := f.Open()
	if err != nil {
		return domain.StoredFile{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	w, err := s.Blobs.Create(id)
	if err != nil {
		return domain.StoredFile{}, err
	}
	defer w.Abort()

	if _, err := io.Copy(w, src); err != nil {
		return domain.StoredFile{}, fmt.Errorf("write blob %s: %w", id, err)
	}
	if err := w.Commit(); err != nil {
		return domain.StoredFile{}, err
	}

	stored := domain.StoredFile{
		ID:        id.String(),
		OwnerID:   ownerID,
		Filename:  name,
		SizeBytes: w.Size(),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.Store.Files().CreateFile(ctx, stored); err != nil {
		// Content without metadata is unreachable; drop it rather than
		// leave it for housekeeping.
		_ = s.Blobs.Remove(id)
		return domain.StoredFile{}, err
	}

	return stored, nil
}

// sanitizeFilename strips any client-supplied directory components. The name
// is display data only, but it still must not smuggle path separators into
// Content-Disposition headers or logs.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "." || name == "/" || name == "" {
		return ""
	}
	return name
}
