package speech

import (
	"encoding/base32"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	filenamePrefix    = "speech"
	timestampLayout   = "20060102_150405"
	suffixRandomBytes = 5
)

var suffixEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NameGenerator produces artifact names of the form speech_YYYYMMDD_HHMMSS_xxxxxxxx.ext.
// The 8-character suffix carries 40 random bits, so concurrent requests within the same
// second do not need coordination.
type NameGenerator struct {
	now       func() time.Time
	extension string
}

// NewNameGenerator creates a generator for files ending in extension, e.g. ".mp3".
// A nil clock defaults to time.Now.
func NewNameGenerator(extension string, now func() time.Time) *NameGenerator {
	if now == nil {
		now = time.Now
	}

	return &NameGenerator{now: now, extension: extension}
}

// Next returns a fresh artifact name.
func (g *NameGenerator) Next() string {
	return fmt.Sprintf("%s_%s_%s%s", filenamePrefix, g.now().Format(timestampLayout), randomSuffix(), g.extension)
}

// randomSuffix encodes the first five bytes of a v4 UUID, all of which are random.
func randomSuffix() string {
	id := uuid.New()

	return strings.ToLower(suffixEncoding.EncodeToString(id[:suffixRandomBytes]))
}
