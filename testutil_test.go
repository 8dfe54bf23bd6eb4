package nanofs_test

import (
	"os"
	"testing"

	"github.com/nanofs/nanofs"
)

// tempImageFile creates a size-byte temp file and returns its path.
func tempImageFile(t *testing.T, size int64) (string, error) {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "nanofs-*.img")
	if err != nil {
		return "", err
	}
	path := f.Name()
	err = f.Truncate(size)
	f.Close()
	return path, err
}

// newImage creates a size-byte temp file, formats it with the given inode
// count, and returns a mounted FS. The backing file is removed when the
// test completes.
func newImage(t *testing.T, size int64, inodes int) *nanofs.FS {
	t.Helper()

	path, err := tempImageFile(t, size)
	if err != nil {
		t.Fatalf("create temp image: %s", err)
	}

	img, err := nanofs.OpenImage(path)
	if err != nil {
		t.Fatalf("open image: %s", err)
	}

	if err := nanofs.Format(img, nanofs.FormatOptions{Inodes: inodes, Zero: true}); err != nil {
		img.Close()
		t.Fatalf("format: %s", err)
	}

	fsys, err := nanofs.Mount(img)
	if err != nil {
		img.Close()
		t.Fatalf("mount: %s", err)
	}

	t.Cleanup(func() { fsys.Close() })
	return fsys
}
