package speaker

import (
	"os"
	"path/filepath"
	"strings"
)

// Policy selects how a fuzzy match is turned into a reference voice.
type Policy struct {
	// UseFuzzyMatchOnlyIfMissing reproduces the legacy behavior: when the file for the
	// closest name exists the default speaker is used, and the closest name is used only
	// when its file is missing.
	UseFuzzyMatchOnlyIfMissing bool
}

// Match is the outcome of a resolution.
type Match struct {
	Speaker Speaker
	// Closest is the catalog entry nearest to the query; zero when the query was absent.
	Closest Speaker
	// Distance between the normalized query and Closest.
	Distance int
	// Defaulted is true when the default speaker was returned.
	Defaulted bool
}

// Resolver maps client-supplied speaker names onto the catalog. It is safe for concurrent use.
type Resolver struct {
	catalog *Catalog
	policy  Policy
	exists  func(path string) bool
}

// NewResolver creates a resolver over catalog using policy.
func NewResolver(catalog *Catalog, policy Policy) *Resolver {
	return &Resolver{
		catalog: catalog,
		policy:  policy,
		exists:  fileExists,
	}
}

// Catalog returns the underlying catalog.
func (r *Resolver) Catalog() *Catalog {
	return r.catalog
}

// Resolve returns the reference voice for query. A blank query selects the default speaker.
// Ties on distance go to the earlier catalog entry.
func (r *Resolver) Resolve(query string) Match {
	normalized := Normalize(query)
	if normalized == "" {
		return Match{Speaker: r.catalog.Default(), Defaulted: true}
	}

	closest, distance := r.closest(normalized)
	match := Match{Speaker: closest, Closest: closest, Distance: distance}

	if !r.policy.UseFuzzyMatchOnlyIfMissing {
		return match
	}

	candidate := r.catalog.candidatePath(closest)
	if r.exists(candidate) {
		match.Speaker = r.catalog.Default()
		match.Defaulted = true

		return match
	}

	match.Speaker = Speaker{Name: closest.Name, Path: candidate, key: closest.key}

	return match
}

func (r *Resolver) closest(normalized string) (Speaker, int) {
	best := r.catalog.speakers[0]
	bestDistance := Distance(normalized, best.key)

	for _, candidate := range r.catalog.speakers[1:] {
		distance := Distance(normalized, candidate.key)
		if distance < bestDistance {
			best = candidate
			bestDistance = distance
		}
	}

	return best, bestDistance
}

// Normalize lower-cases query, trims surrounding whitespace and strips a trailing extension.
// Leading dots belong to the name, so ".zeta" keeps its text.
func Normalize(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))

	return strings.TrimSuffix(normalized, extension(normalized))
}

// extension returns the final extension of name, ignoring dots that lead the base name.
func extension(name string) string {
	return filepath.Ext(strings.TrimLeft(filepath.Base(name), "."))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}
