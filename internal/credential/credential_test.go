// Package credential_test tests credential discovery and download.
package credential_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/voice-clone-service/internal/core"
	"github.com/book-expert/voice-clone-service/internal/credential"
)

const serviceAccountJSON = `{"type":"service_account","project_id":"demo"}`

func newCredentialServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return server
}

func TestAcquire_SingleLocalFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	existing := filepath.Join(dir, "account.json")
	require.NoError(t, os.WriteFile(existing, []byte(serviceAccountJSON), 0o600))

	got, err := credential.NewAcquirer(dir, "", nil).Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, existing, got)
}

func TestAcquire_MultipleLocalFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"a.json", "b.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o600))
	}

	_, err := credential.NewAcquirer(dir, "", nil).Acquire(context.Background())
	require.ErrorIs(t, err, core.ErrConfiguration)
	require.ErrorIs(t, err, credential.ErrAmbiguous)
}

func TestAcquire_CreatesDirectoryAndRequiresURL(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "credential")

	_, err := credential.NewAcquirer(dir, "", nil).Acquire(context.Background())
	require.ErrorIs(t, err, core.ErrConfiguration)
	require.ErrorIs(t, err, credential.ErrURLMissing)
	assert.DirExists(t, dir)
}

func TestAcquire_Download(t *testing.T) {
	t.Parallel()

	server := newCredentialServer(t, http.StatusOK, serviceAccountJSON)
	dir := t.TempDir()

	got, err := credential.NewAcquirer(dir, server.URL+"/keys/account.json", server.Client()).Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "account.json"), got)

	saved, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.JSONEq(t, serviceAccountJSON, string(saved))
}

func TestAcquire_DownloadFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		path   string
		want   error
	}{
		{name: "not a json url", status: http.StatusOK, body: serviceAccountJSON, path: "/keys/account.txt", want: credential.ErrURLNotJSON},
		{name: "invalid json body", status: http.StatusOK, body: "<html>", path: "/account.json", want: credential.ErrInvalidJSON},
		{name: "server error", status: http.StatusNotFound, body: "missing", path: "/account.json", want: core.ErrConfiguration},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			server := newCredentialServer(t, testCase.status, testCase.body)
			dir := t.TempDir()

			_, err := credential.NewAcquirer(dir, server.URL+testCase.path, server.Client()).Acquire(context.Background())
			require.ErrorIs(t, err, core.ErrConfiguration)
			require.ErrorIs(t, err, testCase.want)

			matches, globErr := filepath.Glob(filepath.Join(dir, "*.json"))
			require.NoError(t, globErr)
			assert.Empty(t, matches)
		})
	}
}
