package service

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/filecrate/filecrate/internal/blob"
	"github.com/filecrate/filecrate/internal/store"
	"github.com/filecrate/filecrate/internal/store/drivers/sqlite"
	"github.com/filecrate/filecrate/pkg/cryptox"
	"github.com/filecrate/filecrate/pkg/jwtx"
)

const testIssuer = "filecrate-test"

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type testEnv struct {
	Store    store.Store
	Blobs    *blob.Store
	Auth     *AuthService
	Files    *FileService
	Verifier jwtx.Verifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cryptox.SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	blobs, err := blob.Open(t.TempDir())
	require.NoError(t, err)

	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)

	return &testEnv{
		Store: st,
		Blobs: blobs,
		Auth: &AuthService{
			Store:      st,
			Signer:     signer,
			Issuer:     testIssuer,
			SessionTTL: time.Hour,
		},
		Files:    &FileService{Store: st, Blobs: blobs},
		Verifier: jwtx.NewVerifierHS256(testSecret, testIssuer, 0),
	}
}
