package cryptox

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// HashCost is the bcrypt cost factor. 14 rounds keeps offline brute force
// expensive while staying tolerable for interactive login.
const HashCost = 14

// ErrMismatch is returned when a password does not match its stored hash.
var ErrMismatch = errors.New("cryptox: password does not match")

// HashPassword returns a salted bcrypt hash of the peppered password.
// bcrypt salts internally, so two hashes of the same password differ.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(prehash(password), HashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext candidate against a stored bcrypt hash.
// The underlying comparison is constant-time.
func VerifyPassword(password, encodedHash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), prehash(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatch
		}
		return err
	}
	return nil
}

// prehash folds the pepper in and collapses the input below bcrypt's 72-byte
// limit so arbitrarily long passwords are not silently truncated.
func prehash(password string) []byte {
	sum := sha256.Sum256([]byte(password + GetPepper()))
	return []byte(base64.RawStdEncoding.EncodeToString(sum[:]))
}
