// Package speaker_test tests the speaker catalog and resolver.
package speaker_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/voice-clone-service/internal/core"
	"github.com/book-expert/voice-clone-service/internal/speaker"
)

const testExtension = ".mp3"

// createSpeakersDir writes an empty reference file for each name and returns the directory.
func createSpeakersDir(t *testing.T, files ...string) string {
	t.Helper()

	dir := t.TempDir()

	for _, file := range files {
		err := os.WriteFile(filepath.Join(dir, file), []byte("ID3"), 0o600)
		require.NoError(t, err)
	}

	return dir
}

func newResolver(t *testing.T, policy speaker.Policy, files ...string) *speaker.Resolver {
	t.Helper()

	catalog, err := speaker.NewCatalog(createSpeakersDir(t, files...), testExtension)
	require.NoError(t, err)

	return speaker.NewResolver(catalog, policy)
}

func TestNewCatalog_SortsAndFilters(t *testing.T) {
	t.Parallel()

	dir := createSpeakersDir(t, "morgan_freeman.mp3", "Steve_Jobs.MP3", "notes.txt", "alan_watts.mp3")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.mp3"), 0o750))

	catalog, err := speaker.NewCatalog(dir, testExtension)
	require.NoError(t, err)

	assert.Equal(t, []string{"Steve_Jobs", "alan_watts", "morgan_freeman"}, catalog.Names())
	assert.Equal(t, 3, catalog.Len())
	assert.Equal(t, "Steve_Jobs", catalog.Default().Name)
	assert.Equal(t, filepath.Join(dir, "Steve_Jobs.MP3"), catalog.Default().Path)
}

func TestNewCatalog_EmptyDirectory(t *testing.T) {
	t.Parallel()

	_, err := speaker.NewCatalog(createSpeakersDir(t, "readme.txt"), testExtension)
	require.ErrorIs(t, err, core.ErrConfiguration)
	require.ErrorIs(t, err, speaker.ErrNoSpeakers)
}

func TestNewCatalog_MissingDirectory(t *testing.T) {
	t.Parallel()

	_, err := speaker.NewCatalog(filepath.Join(t.TempDir(), "absent"), testExtension)
	require.ErrorIs(t, err, core.ErrConfiguration)
}

func TestResolve_AbsentQueryReturnsDefault(t *testing.T) {
	t.Parallel()

	for _, files := range [][]string{
		{"steve_jobs.mp3"},
		{"steve_jobs.mp3", "morgan_freeman.mp3"},
		{"c.mp3", "b.mp3", "a.mp3", "d.mp3"},
	} {
		resolver := newResolver(t, speaker.Policy{}, files...)
		want := resolver.Catalog().Default()

		for _, query := range []string{"", "   ", "\t"} {
			match := resolver.Resolve(query)
			assert.Equal(t, want, match.Speaker)
			assert.True(t, match.Defaulted)
		}
	}
}

func TestResolve_ExactMatchWins(t *testing.T) {
	t.Parallel()

	resolver := newResolver(t, speaker.Policy{}, "steve_jobs.mp3", "morgan_freeman.mp3", "steve_jobz.mp3")

	for _, query := range []string{"steve_jobs", "STEVE_JOBS", "Steve_Jobs.mp3", "steve_jobs.wav"} {
		match := resolver.Resolve(query)
		assert.Equal(t, "steve_jobs", match.Speaker.Name, query)
		assert.Zero(t, match.Distance, query)
		assert.False(t, match.Defaulted, query)
	}
}

func TestResolve_MixedCaseWithTrailingSpace(t *testing.T) {
	t.Parallel()

	resolver := newResolver(t, speaker.Policy{}, "steve_jobs.mp3", "morgan_freeman.mp3")

	match := resolver.Resolve("Steve Jobs ")
	assert.Equal(t, "steve_jobs", match.Speaker.Name)
	assert.Equal(t, 1, match.Distance, "only the space/underscore substitution should remain")
	assert.True(t, strings.HasSuffix(match.Speaker.Path, "steve_jobs.mp3"))
}

func TestResolve_TieGoesToCatalogOrder(t *testing.T) {
	t.Parallel()

	resolver := newResolver(t, speaker.Policy{}, "bob.mp3", "bab.mp3")

	match := resolver.Resolve("bxb")
	assert.Equal(t, "bab", match.Speaker.Name)
	assert.Equal(t, 1, match.Distance)
}

func TestResolve_LegacyPolicyUsesDefaultWhenFileExists(t *testing.T) {
	t.Parallel()

	resolver := newResolver(t, speaker.Policy{UseFuzzyMatchOnlyIfMissing: true}, "morgan_freeman.mp3", "steve_jobs.mp3")

	match := resolver.Resolve("steve jobs")
	assert.Equal(t, "morgan_freeman", match.Speaker.Name)
	assert.Equal(t, "steve_jobs", match.Closest.Name)
	assert.True(t, match.Defaulted)
}

func TestResolve_LegacyPolicyUsesCandidateWhenFileMissing(t *testing.T) {
	t.Parallel()

	resolver := newResolver(t, speaker.Policy{UseFuzzyMatchOnlyIfMissing: true}, "morgan_freeman.mp3", "steve_jobs.mp3")

	candidate := filepath.Join(filepath.Dir(resolver.Catalog().Default().Path), "steve_jobs.mp3")
	require.NoError(t, os.Remove(candidate))

	match := resolver.Resolve("steve jobs")
	assert.Equal(t, "steve_jobs", match.Speaker.Name)
	assert.Equal(t, candidate, match.Speaker.Path)
	assert.False(t, match.Defaulted)
}

func TestResolve_DotNameIsMatchedNotDefaulted(t *testing.T) {
	t.Parallel()

	resolver := newResolver(t, speaker.Policy{}, "alan.mp3", "zeta.mp3")

	match := resolver.Resolve(".zeta")
	assert.Equal(t, "zeta", match.Speaker.Name)
	assert.Equal(t, 1, match.Distance)
	assert.False(t, match.Defaulted)
}

func TestResolve_LegacyPolicyKeepsScannedExtension(t *testing.T) {
	t.Parallel()

	resolver := newResolver(t, speaker.Policy{UseFuzzyMatchOnlyIfMissing: true}, "Alan.mp3", "Steve_Jobs.MP3")

	match := resolver.Resolve("steve jobs")
	assert.Equal(t, "Steve_Jobs", match.Closest.Name)
	assert.True(t, match.Defaulted, "the scanned file exists so the default speaker is used")
	assert.Equal(t, "Alan", match.Speaker.Name)

	candidate := match.Closest.Path
	require.NoError(t, os.Remove(candidate))

	match = resolver.Resolve("steve jobs")
	assert.False(t, match.Defaulted)
	assert.Equal(t, candidate, match.Speaker.Path)
	assert.True(t, strings.HasSuffix(match.Speaker.Path, "Steve_Jobs.MP3"))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query string
		want  string
	}{
		{query: "Steve_Jobs.MP3", want: "steve_jobs"},
		{query: "  Morgan Freeman  ", want: "morgan freeman"},
		{query: "", want: ""},
		{query: "archive.tar.gz", want: "archive.tar"},
		{query: ".zeta", want: ".zeta"},
		{query: ".Zeta.mp3", want: ".zeta"},
		{query: "...", want: "..."},
	}

	for _, testCase := range tests {
		assert.Equal(t, testCase.want, speaker.Normalize(testCase.query), testCase.query)
	}
}

func TestDistance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{a: "", b: "", want: 0},
		{a: "abc", b: "", want: 3},
		{a: "", b: "abc", want: 3},
		{a: "kitten", b: "sitting", want: 3},
		{a: "flaw", b: "lawn", want: 2},
		{a: "steve jobs", b: "steve_jobs", want: 1},
		{a: "héllo", b: "hello", want: 1},
	}

	for _, testCase := range tests {
		assert.Equal(t, testCase.want, speaker.Distance(testCase.a, testCase.b), "%q/%q", testCase.a, testCase.b)
	}
}

func TestDistance_Properties(t *testing.T) {
	t.Parallel()

	words := []string{"", "a", "steve_jobs", "morgan_freeman", "Steve Jobs ", "alan", "αβγ", "sitting"}

	for _, a := range words {
		assert.Zero(t, speaker.Distance(a, a), "identity for %q", a)

		for _, b := range words {
			assert.Equal(t, speaker.Distance(a, b), speaker.Distance(b, a), "symmetry for %q/%q", a, b)
		}

		for i := 0; i <= len([]rune(a)); i++ {
			runes := []rune(a)
			inserted := string(runes[:i]) + "x" + string(runes[i:])
			assert.Equal(t, 1, speaker.Distance(a, inserted), "single insertion into %q at %d", a, i)
		}
	}
}
