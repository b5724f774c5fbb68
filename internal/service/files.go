package service

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/filecrate/filecrate/internal/blob"
	"github.com/filecrate/filecrate/internal/domain"
	"github.com/filecrate/filecrate/internal/store"
	"github.com/filecrate/filecrate/pkg/idx"
	"github.com/filecrate/filecrate/pkg/slogx"
)

var (
	ErrBadFileID    = errors.New("bad_file_id")
	ErrFileNotFound = errors.New("file_not_found")
	ErrNotOwner     = errors.New("not_owner")
)

// FileService is the access-controlled gateway to stored files. Every
// id-addressed operation checks existence before ownership, so probing an id
// that was never allocated looks identical to probing one owned by someone
// else having been deleted.
type FileService struct {
	Store store.Store
	Blobs *blob.Store
}

// List returns the caller's files in upload order. Other users' files are
// invisible here by construction, not by filtering.
func (s *FileService) List(ctx context.Context, ownerID string) ([]domain.FileRecord, error) {
	files, err := s.Store.Files().ListFilesByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	records := make([]domain.FileRecord, 0, len(files))
	for _, f := range files {
		records = append(records, f.Record())
	}
	return records, nil
}

// Download returns file metadata and a lazy reader over its content. The
// caller owns closing the reader.
func (s *FileService) Download(ctx context.Context, callerID, fileID string) (domain.StoredFile, io.ReadCloser, error) {
	file, err := s.authorize(ctx, callerID, fileID)
	if err != nil {
		return domain.StoredFile{}, nil, err
	}

	r, err := s.Blobs.Open(idx.ID(file.ID))
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			// Metadata won a race against a concurrent delete; the file
			// is gone for all practical purposes.
			return domain.StoredFile{}, nil, ErrFileNotFound
		}
		return domain.StoredFile{}, nil, err
	}

	return file, r, nil
}

// Delete removes a file the caller owns. The metadata row goes first so the
// file stops being listable immediately; the blob follows. A blob already
// missing is fine, housekeeping or a racing delete got there first.
func (s *FileService) Delete(ctx context.Context, callerID, fileID string) error {
	file, err := s.authorize(ctx, callerID, fileID)
	if err != nil {
		return err
	}

	if err := s.Store.Files().DeleteFile(ctx, file.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrFileNotFound
		}
		return err
	}

	if err := s.Blobs.Remove(idx.ID(file.ID)); err != nil && !errors.Is(err, blob.ErrNotFound) {
		slogx.FromContext(ctx).Warn("blob removal failed after metadata delete",
			slog.String("file_id", file.ID),
			slog.Any("err", err))
	}

	slogx.FromContext(ctx).Info("file deleted",
		slog.String("file_id", file.ID),
		slog.String("user_id", callerID))

	return nil
}

// authorize resolves a client-supplied file id to metadata the caller may
// act on. Malformed ids fail before any store lookup.
func (s *FileService) authorize(ctx context.Context, callerID, fileID string) (domain.StoredFile, error) {
	id, err := idx.Parse(fileID)
	if err != nil {
		return domain.StoredFile{}, ErrBadFileID
	}

	file, err := s.Store.Files().GetFileByID(ctx, id.String())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.StoredFile{}, ErrFileNotFound
		}
		return domain.StoredFile{}, err
	}

	if file.OwnerID != callerID {
		return domain.StoredFile{}, ErrNotOwner
	}

	return file, nil
}
