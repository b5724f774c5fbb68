package domain

import "time"

// User is a credential-store record. PasswordHash is a peppered bcrypt hash;
// the plaintext never survives past signup validation.
type User struct {
	ID           string
	Username     string // stored lowercase, unique case-insensitively
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUserView is the redacted shape returned to clients. It never carries
// the password hash.
type PublicUserView struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"name,omitempty"`
}

// Public returns the redacted view of u.
func (u User) Public() PublicUserView {
	return PublicUserView{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
	}
}
