package sqlite

import (
	"context"

	"github.com/filecrate/filecrate/internal/domain"
	"github.com/filecrate/filecrate/internal/store"
)

type filesRepo struct {
	q dbtx
}

const fileColumns = `id, owner_id, filename, size_bytes, created_at`

func (r *filesRepo) CreateFile(ctx context.Context, f domain.StoredFile) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO files (id, owner_id, filename, size_bytes, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		f.ID, f.OwnerID, f.Filename, f.SizeBytes, f.CreatedAt,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return nil
}

func (r *filesRepo) GetFileByID(ctx context.Context, id string) (domain.StoredFile, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE id = ?`, id)

	var f domain.StoredFile
	if err := row.Scan(&f.ID, &f.OwnerID, &f.Filename, &f.SizeBytes, &f.CreatedAt); err != nil {
		return domain.StoredFile{}, mapNotFound(err)
	}
	return f, nil
}

// ListFilesByOwner orders by id; ULIDs sort by creation time, so the listing
// is stable insertion order across calls.
func (r *filesRepo) ListFilesByOwner(ctx context.Context, ownerID string) ([]domain.StoredFile, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.StoredFile
	for rows.Next() {
		var f domain.StoredFile
		if err := rows.Scan(&f.ID, &f.OwnerID, &f.Filename, &f.SizeBytes, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *filesRepo) DeleteFile(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *filesRepo) ListAllIDs(ctx context.Context) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id FROM files ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
