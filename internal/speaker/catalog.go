// Package speaker maintains the catalog of reference voices and resolves free-text speaker
// names to the closest catalog entry by edit distance.
package speaker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/book-expert/voice-clone-service/internal/core"
)

// ErrNoSpeakers indicates that the speakers directory holds no reference audio.
var ErrNoSpeakers = errors.New("no reference audio files found")

// Speaker is one reference voice.
type Speaker struct {
	// Name is the file name without extension, in its original case.
	Name string
	// Path is the reference audio file path.
	Path string

	key string
}

// Catalog is the ordered, immutable set of reference voices discovered at startup.
type Catalog struct {
	dir      string
	speakers []Speaker
}

// NewCatalog scans dir for files ending in extension (case-insensitive) and builds a catalog
// sorted by file name. An empty catalog is a configuration error.
func NewCatalog(dir, extension string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read speakers directory %s: %w", core.ErrConfiguration, dir, err)
	}

	speakers := make([]Speaker, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), extension) {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		speakers = append(speakers, Speaker{
			Name: name,
			Path: filepath.Join(dir, entry.Name()),
			key:  strings.ToLower(name),
		})
	}

	if len(speakers) == 0 {
		return nil, fmt.Errorf("%w: %w in %s (extension %s)", core.ErrConfiguration, ErrNoSpeakers, dir, extension)
	}

	sort.SliceStable(speakers, func(i, j int) bool {
		return filepath.Base(speakers[i].Path) < filepath.Base(speakers[j].Path)
	})

	return &Catalog{dir: dir, speakers: speakers}, nil
}

// Default returns the first speaker in catalog order.
func (c *Catalog) Default() Speaker {
	return c.speakers[0]
}

// Len returns the number of speakers.
func (c *Catalog) Len() int {
	return len(c.speakers)
}

// Names returns the speaker names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.speakers))
	for i, s := range c.speakers {
		names[i] = s.Name
	}

	return names
}

// candidatePath is where s lives in the catalog directory, keeping the extension as scanned.
func (c *Catalog) candidatePath(s Speaker) string {
	return filepath.Join(c.dir, s.Name+filepath.Ext(s.Path))
}
