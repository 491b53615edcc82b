package ports

import "context"

// ArtifactStore fetches serialized model bundles by name. Implementations
// return domain.ErrArtifactNotFound when the name is absent.
type ArtifactStore interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
	// Describe identifies the backing location for logs and status output.
	Describe() string
}
