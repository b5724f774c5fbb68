package http

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/filecrate/filecrate/internal/blob"
	"github.com/filecrate/filecrate/internal/service"
	"github.com/filecrate/filecrate/internal/store/drivers/sqlite"
	"github.com/filecrate/filecrate/pkg/cryptox"
	"github.com/filecrate/filecrate/pkg/jwtx"
	"github.com/filecrate/filecrate/pkg/slogx"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestServer(t *testing.T) *httptest.Server {
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
	verifier := jwtx.NewVerifierHS256(testSecret, "filecrate-test", 0)

	logger := slogx.New(slogx.Config{Service: "filecrate", Level: "error", Format: "text"})

	router := NewRouter(verifier, "test", st, logger)
	router.Blobs = blobs
	router.AuthService = &service.AuthService{
		Store:      st,
		Signer:     signer,
		Issuer:     "filecrate-test",
		SessionTTL: time.Hour,
	}
	router.FileService = &service.FileService{Store: st, Blobs: blobs}
	router.MaxUploadBytes = 8 << 20
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, srv *httptest.Server, path string, body any) (*http.Response, []byte) {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func doAuthed(t *testing.T, srv *httptest.Server, method, path, token string, body io.Reader, contentType string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, srv.URL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func signupAndLogin(t *testing.T, srv *httptest.Server, username, password string) string {
	t.Helper()

	resp, _ := postJSON(t, srv, "/api/signup", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, raw := postJSON(t, srv, "/api/login", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(raw, &login))
	require.NotEmpty(t, login.Token)
	return login.Token
}

func uploadFiles(t *testing.T, srv *httptest.Server, token string, files map[string][]byte) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	return doAuthed(t, srv, http.MethodPost, "/api/upload", token, &buf, mw.FormDataContentType())
}

type fileRecord struct {
	ID         string    `json:"_id"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	UploadDate time.Time `json:"uploadDate"`
}

func listFiles(t *testing.T, srv *httptest.Server, token string) []fileRecord {
	t.Helper()

	resp, raw := doAuthed(t, srv, http.MethodGet, "/api/files", token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var records []fileRecord
	require.NoError(t, json.Unmarshal(raw, &records))
	return records
}

func TestFullUserJourney(t *testing.T) {
	srv := newTestServer(t)
	token := signupAndLogin(t, srv, "alice", "hunter2pass")

	// A fresh account owns nothing.
	require.Empty(t, listFiles(t, srv, token))

	want := map[string][]byte{
		"notes.txt":  []byte("remember the milk"),
		"binary.dat": {0x00, 0x01, 0xFF, 0xFE, 0x7F},
	}
	resp, raw := uploadFiles(t, srv, token, want)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(raw), "Files uploaded successfully")

	records := listFiles(t, srv, token)
	require.Len(t, records, 2)
	for _, rec := range records {
		content, ok := want[rec.Filename]
		require.True(t, ok, "unexpected file %q", rec.Filename)
		require.Equal(t, int64(len(content)), rec.Size)
		require.False(t, rec.UploadDate.IsZero())

		dlResp, got := doAuthed(t, srv, http.MethodGet, "/api/files/"+rec.ID+"/download", token, nil, "")
		require.Equal(t, http.StatusOK, dlResp.StatusCode)
		require.Equal(t, "application/octet-stream", dlResp.Header.Get("Content-Type"))
		require.Contains(t, dlResp.Header.Get("Content-Disposition"), "attachment")
		require.Contains(t, dlResp.Header.Get("Content-Disposition"), rec.Filename)
		require.Equal(t, content, got)
	}

	// Delete one file; the other survives.
	victim := records[0]
	delResp, _ := doAuthed(t, srv, http.MethodDelete, "/api/files/"+victim.ID, token, nil, "")
	require.Equal(t, http.StatusOK, delResp.StatusCode)

	remaining := listFiles(t, srv, token)
	require.Len(t, remaining, 1)
	require.NotEqual(t, victim.ID, remaining[0].ID)

	dlResp, _ := doAuthed(t, srv, http.MethodGet, "/api/files/"+victim.ID+"/download", token, nil, "")
	require.Equal(t, http.StatusNotFound, dlResp.StatusCode)
}

func TestSignupErrors(t *testing.T) {
	srv := newTestServer(t)

	resp, raw := postJSON(t, srv, "/api/signup", map[string]string{
		"username": "x",
		"password": "password",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, string(raw), "username")

	resp, _ = postJSON(t, srv, "/api/signup", map[string]string{
		"username": "carol",
		"password": "password",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Same name, different case: still taken.
	resp, raw = postJSON(t, srv, "/api/signup", map[string]string{
		"username": "CAROL",
		"password": "password2",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Contains(t, string(raw), "already exists")
}

func TestLoginErrors(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := postJSON(t, srv, "/api/signup", map[string]string{
		"username": "dave",
		"password": "correcthorse",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = postJSON(t, srv, "/api/login", map[string]string{
		"username": "dave",
		"password": "wronghorse",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = postJSON(t, srv, "/api/login", map[string]string{
		"username": "nobody",
		"password": "correcthorse",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStorageRequiresToken(t *testing.T) {
	srv := newTestServer(t)

	paths := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/files"},
		{http.MethodPost, "/api/upload"},
		{http.MethodGet, "/api/files/doesnotmatter/download"},
		{http.MethodDelete, "/api/files/doesnotmatter"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			resp, _ := doAuthed(t, srv, p.method, p.path, "", nil, "")
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			require.Contains(t, resp.Header.Get("WWW-Authenticate"), "Bearer")
		})
	}

	t.Run("garbage token", func(t *testing.T) {
		resp, _ := doAuthed(t, srv, http.MethodGet, "/api/files", "not.a.jwt", nil, "")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestCrossUserAccessDenied(t *testing.T) {
	srv := newTestServer(t)
	aliceToken := signupAndLogin(t, srv, "alice", "password1")
	bobToken := signupAndLogin(t, srv, "bob", "password2")

	resp, _ := uploadFiles(t, srv, aliceToken, map[string][]byte{"secret.txt": []byte("hers")})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fileID := listFiles(t, srv, aliceToken)[0].ID

	// Bob sees an empty vault and cannot touch alice's file.
	require.Empty(t, listFiles(t, srv, bobToken))

	resp, _ = doAuthed(t, srv, http.MethodGet, "/api/files/"+fileID+"/download", bobToken, nil, "")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doAuthed(t, srv, http.MethodDelete, "/api/files/"+fileID, bobToken, nil, "")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	// The failed attempts deleted nothing.
	require.Len(t, listFiles(t, srv, aliceToken), 1)
}

func TestFileIDValidation(t *testing.T) {
	srv := newTestServer(t)
	token := signupAndLogin(t, srv, "erin", "password9")

	resp, _ := doAuthed(t, srv, http.MethodGet, "/api/files/%21%21%21/download", token, nil, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Well-formed but unknown id.
	resp, _ = doAuthed(t, srv, http.MethodGet, "/api/files/01ARZ3NDEKTSV4RRFFQ69G5FAV/download", token, nil, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUploadWithoutFiles(t *testing.T) {
	srv := newTestServer(t)
	token := signupAndLogin(t, srv, "frank", "password3")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "no files here"))
	require.NoError(t, mw.Close())

	resp, _ := doAuthed(t, srv, http.MethodPost, "/api/upload", token, &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, raw := doAuthed(t, srv, http.MethodGet, "/livez", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(raw), `"status":"ok"`)

	resp, raw = doAuthed(t, srv, http.MethodGet, "/readyz", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(raw), `"status":"ok"`)
}
