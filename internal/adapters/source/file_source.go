package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cibounipi/mensabot/internal/domain/providers"
	apperrors "github.com/cibounipi/mensabot/pkg/errors"
)

// FileSource reads documents from a local directory, the layout the
// scraping jobs write to.
type FileSource struct {
	dir string
}

// NewFileSource creates a document source rooted at dir
func NewFileSource(dir string) providers.DocumentSource {
	return &FileSource{dir: dir}
}

// Fetch reads the named document
func (s *FileSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name != filepath.Base(name) {
		return nil, apperrors.NewValidationErrorf("invalid document name %q", name)
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.NewNotFoundError(name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// Name identifies the source in logs
func (s *FileSource) Name() string {
	return "file:" + s.dir
}
