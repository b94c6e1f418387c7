// Package core defines the collaborator interfaces and error kinds shared by the voice clone service.
package core

import "context"

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

// SynthesisRequest carries everything the synthesis capability needs to render one clip.
type SynthesisRequest struct {
	Text          string
	ReferencePath string
	Language      string
	OutputPath    string
}

// Synthesizer renders text in the voice of a reference audio sample into a local audio file.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) error
}

// Uploader publishes a local file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}
