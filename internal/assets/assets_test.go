package assets

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveInsideRoot(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)

	resolved, err := s.Resolve("sub/image.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "sub", "image.png"), resolved)
}

func TestResolveRejectsEscapes(t *testing.T) {
	s := NewStore(t.TempDir())
	for _, path := range []string{"../outside.png", "a/../../outside.png", "/etc/passwd"} {
		_, err := s.Resolve(path)
		assert.ErrorIs(t, err, ErrSandboxViolation, "path %q", path)
	}
}

func TestResolveEmptyPath(t *testing.T) {
	s := NewStore(t.TempDir())
	_, err := s.Resolve("  ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveWithoutRoot(t *testing.T) {
	s := NewStore("")
	resolved, err := s.Resolve("/anywhere/img.png")
	require.NoError(t, err)
	assert.Equal(t, "/anywhere/img.png", resolved)
}

func TestStatMissingFile(t *testing.T) {
	s := NewStore(t.TempDir())
	_, err := s.Stat("missing.png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatRejectsSymlink(t *testing.T) {
	root := t.TempDir()
	outside := filepath.Join(t.TempDir(), "real.png")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o600))
	link := filepath.Join(root, "link.png")
	require.NoError(t, os.Symlink(outside, link))

	s := NewStore(root)
	_, err := s.Stat("link.png")
	assert.ErrorIs(t, err, ErrSandboxViolation)
}

func TestStatRejectsDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "dir.png"), 0o755))
	s := NewStore(root)
	_, err := s.Stat("dir.png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImageSize(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "img.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 64, 48))))
	require.NoError(t, f.Close())

	s := NewStore(root)
	w, h, err := s.ImageSize("img.png")
	require.NoError(t, err)
	assert.Equal(t, 64, w)
	assert.Equal(t, 48, h)
}

func TestImageSizeNotAnImage(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "fake.png"), []byte("not a png"), 0o600))
	s := NewStore(root)
	_, _, err := s.ImageSize("fake.png")
	assert.ErrorIs(t, err, ErrNotAnImage)
}
