package domain

import "time"

// StoredFile is the metadata record for one committed blob. Content bytes
// live in the blob store under the same id. OwnerID is fixed at creation and
// never reassigned.
type StoredFile struct {
	ID        string
	OwnerID   string
	Filename  string // user-supplied, treated as untrusted display data
	SizeBytes int64
	CreatedAt time.Time
}

// FileRecord is the outward-facing list/download entry. Field names follow
// the established client wire format.
type FileRecord struct {
	ID         string    `json:"_id"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	UploadDate time.Time `json:"uploadDate"`
}

// Record converts stored metadata to the outward-facing shape.
func (f StoredFile) Record() FileRecord {
	return FileRecord{
		ID:         f.ID,
		Filename:   f.Filename,
		Size:       f.SizeBytes,
		UploadDate: f.CreatedAt,
	}
}
