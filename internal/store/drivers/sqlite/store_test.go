package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/filecrate/filecrate/internal/domain"
	"github.com/filecrate/filecrate/internal/store"
	"github.com/filecrate/filecrate/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func newTestUser(username string) domain.User {
	now := time.Now().UTC()
	return domain.User{
		ID:           idx.New().String(),
		Username:     username,
		DisplayName:  username,
		PasswordHash: "$2a$14$fakefakefakefakefakefakefakefakefakefakefakefakefake",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestUsersCreateAndGet(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	u := newTestUser("alice")
	require.NoError(t, s.Users().CreateUser(ctx, u))

	byID, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", byID.Username)
	require.False(t, byID.CreatedAt.IsZero())

	byName, err := s.Users().GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, u.ID, byName.ID)
}

func TestUsersGetMissing(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Users().GetUserByID(ctx, idx.New().String())
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Users().GetUserByUsername(ctx, "nobody")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsersDuplicateUsernameRejectedBySchema(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Users().CreateUser(ctx, newTestUser("bob")))

	t.Run("exact duplicate", func(t *testing.T) {
		err := s.Users().CreateUser(ctx, newTestUser("bob"))
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("case-insensitive duplicate", func(t *testing.T) {
		err := s.Users().CreateUser(ctx, newTestUser("BoB"))
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})
}

func TestUsersCreatePersistsGivenTimestamps(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	// The row must carry the caller's timestamps, not ones stamped at insert
	// time; the user struct returned from signup and the persisted row have
	// to agree exactly.
	u := newTestUser("tina")
	u.CreatedAt = time.Date(2024, 3, 9, 12, 30, 45, 123456789, time.UTC)
	u.UpdatedAt = u.CreatedAt.Add(time.Hour)
	require.NoError(t, s.Users().CreateUser(ctx, u))

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.CreatedAt.Equal(u.CreatedAt), "created_at: want %v, got %v", u.CreatedAt, got.CreatedAt)
	require.True(t, got.UpdatedAt.Equal(u.UpdatedAt), "updated_at: want %v, got %v", u.UpdatedAt, got.UpdatedAt)
}

func TestUsersLookupIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	u := newTestUser("carol")
	require.NoError(t, s.Users().CreateUser(ctx, u))

	got, err := s.Users().GetUserByUsername(ctx, "CAROL")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
}

func newTestFile(ownerID, filename string, size int64) domain.StoredFile {
	return domain.StoredFile{
		ID:        idx.New().String(),
		OwnerID:   ownerID,
		Filename:  filename,
		SizeBytes: size,
		CreatedAt: time.Now().UTC(),
	}
}

func TestFilesCreateGetDelete(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	owner := idx.New().String()
	f := newTestFile(owner, "report.pdf", 1234)
	require.NoError(t, s.Files().CreateFile(ctx, f))

	got, err := s.Files().GetFileByID(ctx, f.ID)
	require.NoError(t, err)
	require.Equal(t, owner, got.OwnerID)
	require.Equal(t, "report.pdf", got.Filename)
	require.Equal(t, int64(1234), got.SizeBytes)

	require.NoError(t, s.Files().DeleteFile(ctx, f.ID))

	_, err = s.Files().GetFileByID(ctx, f.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestFilesDeleteTwice(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	f := newTestFile(idx.New().String(), "once.bin", 1)
	require.NoError(t, s.Files().CreateFile(ctx, f))

	require.NoError(t, s.Files().DeleteFile(ctx, f.ID))
	require.ErrorIs(t, s.Files().DeleteFile(ctx, f.ID), store.ErrNotFound)
}

func TestFilesListByOwnerInsertionOrderAndIsolation(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	ownerA := idx.New().String()
	ownerB := idx.New().String()

	var created []string
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		f := newTestFile(ownerA, name, 10)
		require.NoError(t, s.Files().CreateFile(ctx, f))
		created = append(created, f.ID)
	}
	require.NoError(t, s.Files().CreateFile(ctx, newTestFile(ownerB, "other.txt", 20)))

	listed, err := s.Files().ListFilesByOwner(ctx, ownerA)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	for i, f := range listed {
		require.Equal(t, created[i], f.ID)
		require.Equal(t, ownerA, f.OwnerID)
	}

	other, err := s.Files().ListFilesByOwner(ctx, ownerB)
	require.NoError(t, err)
	require.Len(t, other, 1)

	empty, err := s.Files().ListFilesByOwner(ctx, idx.New().String())
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	u := newTestUser("dave")
	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, u); err != nil {
			return err
		}
		return context.Canceled // force rollback
	})
	require.Error(t, err)

	_, err = s.Users().GetUserByID(ctx, u.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestPing(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
}
