// Package cloudstorage_test tests bucket naming helpers and local sync.
package cloudstorage_test

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"testing"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/voice-clone-service/internal/cloudstorage"
)

var errMockList = errors.New("mock list error")

// mockRemote serves objects from memory.
type mockRemote struct {
	objects         map[string][]byte
	listShouldFail  bool
	listedPrefix    string
	listedDelimiter string
	downloaded      []string
}

func (m *mockRemote) List(_ context.Context, prefix, delimiter string) ([]string, error) {
	if m.listShouldFail {
		return nil, errMockList
	}

	m.listedPrefix = prefix
	m.listedDelimiter = delimiter

	names := make([]string, 0, len(m.objects))
	for name := range m.objects {
		names = append(names, name)
	}

	return names, nil
}

func (m *mockRemote) Download(_ context.Context, name, localPath string) error {
	m.downloaded = append(m.downloaded, name)

	return os.WriteFile(localPath, m.objects[name], 0o600)
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	testLogger, err := logger.New(t.TempDir(), "test-log.log")
	require.NoError(t, err)
	t.Cleanup(func() { _ = testLogger.Close() })

	return testLogger
}

func TestSync_DownloadsMissingAndSkipsExisting(t *testing.T) {
	t.Parallel()

	remote := &mockRemote{objects: map[string][]byte{
		"source_wav/":                   nil,
		"source_wav/steve_jobs.mp3":     []byte("remote steve"),
		"source_wav/morgan_freeman.mp3": []byte("remote morgan"),
	}}

	dir := filepath.Join(t.TempDir(), "sample_voice")
	require.NoError(t, os.MkdirAll(dir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "steve_jobs.mp3"), []byte("local steve"), 0o600))

	report, err := cloudstorage.Sync(context.Background(), remote, "source_wav/", "/", dir, newTestLogger(t))
	require.NoError(t, err)

	assert.Equal(t, "source_wav/", remote.listedPrefix)
	assert.Equal(t, "/", remote.listedDelimiter)
	assert.Equal(t, []string{"morgan_freeman.mp3"}, report.Downloaded)
	assert.Equal(t, []string{"steve_jobs.mp3"}, report.Skipped)
	assert.Equal(t, []string{"source_wav/morgan_freeman.mp3"}, remote.downloaded)

	local, err := os.ReadFile(filepath.Join(dir, "steve_jobs.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "local steve", string(local), "existing files must not be overwritten")

	fetched, err := os.ReadFile(filepath.Join(dir, "morgan_freeman.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "remote morgan", string(fetched))
}

func TestSync_CreatesDirectory(t *testing.T) {
	t.Parallel()

	remote := &mockRemote{objects: map[string][]byte{"a/voice.mp3": []byte("x")}}
	dir := filepath.Join(t.TempDir(), "nested", "voices")

	report, err := cloudstorage.Sync(context.Background(), remote, "a/", "/", dir, newTestLogger(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"voice.mp3"}, report.Downloaded)
	assert.FileExists(t, filepath.Join(dir, "voice.mp3"))
}

func TestSync_ListFailure(t *testing.T) {
	t.Parallel()

	remote := &mockRemote{listShouldFail: true}

	_, err := cloudstorage.Sync(context.Background(), remote, "a/", "/", t.TempDir(), newTestLogger(t))
	require.ErrorIs(t, err, errMockList)
}

func TestObjectName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "generated_mp3/speech.mp3", cloudstorage.ObjectName("generated_mp3", "speech.mp3"))
	assert.Equal(t, "generated_mp3/speech.mp3", cloudstorage.ObjectName("/generated_mp3/", "speech.mp3"))
	assert.Equal(t, "speech.mp3", cloudstorage.ObjectName("", "speech.mp3"))
	assert.Equal(t, "speech.mp3", path.Base(cloudstorage.ObjectName("x/y", "speech.mp3")))
}

func TestPublicURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"https://storage.googleapis.com/deputy_ai_hackathon/generated_mp3/speech_20240101_000000_abcdefgh.mp3",
		cloudstorage.PublicURL("deputy_ai_hackathon", "generated_mp3/speech_20240101_000000_abcdefgh.mp3"),
	)
	assert.Equal(t,
		"https://storage.googleapis.com/b/dir/with%20space.mp3",
		cloudstorage.PublicURL("b", "dir/with space.mp3"),
	)
}
