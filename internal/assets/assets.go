// Package assets resolves image paths named in model commands. Paths are
// jailed to a configured root so a generated command can never probe or
// reference files outside the run's asset directory.
package assets

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

var (
	ErrNotFound         = errors.New("image not found")
	ErrSandboxViolation = errors.New("path escapes asset root")
	ErrNotAnImage       = errors.New("not a decodable image")
)

// Store resolves and probes images under a single root directory. A zero
// root disables jailing, for callers that already pass absolute trusted
// paths.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// Resolve maps a command-supplied path to a real file path inside the root.
func (s *Store) Resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: empty path", ErrNotFound)
	}
	if s.root == "" {
		return filepath.Clean(path), nil
	}
	joined := path
	if !filepath.IsAbs(joined) {
		joined = filepath.Join(s.root, joined)
	}
	resolved, err := filepath.Abs(filepath.Clean(joined))
	if err != nil {
		return "", err
	}
	rootAbs, err := filepath.Abs(s.root)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(rootAbs, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrSandboxViolation, path)
	}
	return resolved, nil
}

// Stat resolves the path and confirms a regular file exists there. Symlinks
// are rejected: the jail must hold for the file actually opened, not just
// the name.
func (s *Store) Stat(path string) (string, error) {
	resolved, err := s.Resolve(path)
	if err != nil {
		return "", err
	}
	info, err := os.Lstat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return "", fmt.Errorf("%w: %s is a symlink", ErrSandboxViolation, path)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return resolved, nil
}

// ImageSize returns the pixel dimensions of the image at path.
func (s *Store) ImageSize(path string) (width, height int, err error) {
	resolved, err := s.Stat(path)
	if err != nil {
		return 0, 0, err
	}
	f, err := os.Open(resolved)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %s: %v", ErrNotAnImage, path, err)
	}
	return cfg.Width, cfg.Height, nil
}
