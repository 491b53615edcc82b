package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"model-serving-service/internal/core/domain"
	ports "model-serving-service/internal/core/ports/output"
)

const bundleExt = ".json"

// maxBundleSize bounds a single artifact read.
const maxBundleSize = 64 << 20

type artifactStore struct {
	dir string
}

// NewArtifactStore reads bundles named <name>.json from dir.
func NewArtifactStore(dir string) ports.ArtifactStore {
	return &artifactStore{dir: dir}
}

func (s *artifactStore) Describe() string {
	return "file://" + s.dir
}

func (s *artifactStore) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, fmt.Errorf("%w: invalid artifact name %q", domain.ErrArtifactNotFound, name)
	}

	path := filepath.Join(s.dir, name+bundleExt)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, path)
		}
		return nil, fmt.Errorf("stat artifact: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrArtifactNotFound, path)
	}
	if info.Size() > maxBundleSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", domain.ErrInvalidBundle, path, info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return data, nil
}

var _ ports.ArtifactStore = (*artifactStore)(nil)
