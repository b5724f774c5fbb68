package store

import (
	"context"
	"errors"

	"github.com/filecrate/filecrate/internal/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root metadata access interface. The concrete driver (sqlite)
// implements it. It is constructed once by the process entry point and passed
// into every component; nothing reads a shared connection from ambient state.
type Store interface {
	Users() Users
	Files() Files

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST Commit() or Rollback() the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn inside a transaction, rolling back when fn errors
	// and committing otherwise. Prefer this over Tx directly.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases the underlying connection.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transaction-scoped Store with explicit completion.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername looks up the lowercased username. The column collates
	// case-insensitively, so "Alice" and "alice" resolve to the same row.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user (id is app-assigned ULID). A username
	// collision, including a case-insensitive one, fails with
	// ErrAlreadyExists off the schema's unique index, which is the
	// authoritative guard against duplicate signups racing each other.
	CreateUser(ctx context.Context, u domain.User) error
}

type Files interface {
	// CreateFile records metadata for a blob whose content is already
	// committed. Listing only ever sees fully-written files.
	CreateFile(ctx context.Context, f domain.StoredFile) error

	// GetFileByID returns metadata only; content stays in the blob store.
	GetFileByID(ctx context.Context, id string) (domain.StoredFile, error)

	// ListFilesByOwner returns all of one owner's files in insertion order
	// (ids are ULIDs, so id order is creation order).
	ListFilesByOwner(ctx context.Context, ownerID string) ([]domain.StoredFile, error)

	// DeleteFile removes the metadata row, ErrNotFound when absent.
	DeleteFile(ctx context.Context, id string) error

	// ListAllIDs returns every file id. Used by housekeeping to detect
	// orphaned blobs on disk.
	ListAllIDs(ctx context.Context) ([]string, error)
}
