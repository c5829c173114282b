package expansion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dd0wney/cluso-chainviz/pkg/graph"
)

// ErrOutsideRoot is returned for sources that would resolve outside the
// loader's root
var ErrOutsideRoot = errors.New("source outside loader root")

// FileLoader reads payloads from JSON files under Root. Sources are
// relative to Root and may not leave it, through ".." or a symlink.
type FileLoader struct {
	Root string
}

// NewFileLoader creates a loader rooted at root. An empty root is the
// working directory.
func NewFileLoader(root string) *FileLoader {
	return &FileLoader{Root: root}
}

// Load implements Loader
func (l *FileLoader) Load(ctx context.Context, source string) (*graph.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if filepath.IsAbs(source) || !filepath.IsLocal(filepath.FromSlash(source)) {
		return nil, fmt.Errorf("%w: %s", ErrOutsideRoot, source)
	}

	root := l.Root
	if root == "" {
		root = "."
	}
	f, err := os.OpenInRoot(root, filepath.FromSlash(source))
	if err != nil {
		return nil, fmt.Errorf("open payload: %w", err)
	}
	defer f.Close()

	return Decode(f)
}
