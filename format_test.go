package nanofs_test

import (
	"testing"

	"github.com/nanofs/nanofs"
)

func TestFormatInitializesSuperblockAndRoot(t *testing.T) {
	fsys := newImage(t, 1<<20, 32)

	sb := fsys.Superblock()
	if sb.Magic() != nanofs.Magic {
		t.Fatalf("magic not set after format")
	}
	if sb.InodesCount() != 32 {
		t.Errorf("inodes count = %d, want 32", sb.InodesCount())
	}
	if sb.FreeInodes() != 31 {
		t.Errorf("free inodes = %d, want 31 (root claims inode 0)", sb.FreeInodes())
	}

	root, err := fsys.GetAttr("/")
	if err != nil {
		t.Fatalf("stat root: %s", err)
	}
	if root.Links != 2 {
		t.Errorf("root link count = %d, want 2", root.Links)
	}
	if root.Mode&0777 != 0777 {
		t.Errorf("root perm bits = %o, want 0777", root.Mode&0777)
	}
}

func TestFormatRefusesUnlessForced(t *testing.T) {
	path, err := tempImageFile(t, 1<<20)
	if err != nil {
		t.Fatalf("create temp image: %s", err)
	}

	img, err := nanofs.OpenImage(path)
	if err != nil {
		t.Fatalf("open image: %s", err)
	}
	if err := nanofs.Format(img, nanofs.FormatOptions{Inodes: 32, Zero: true}); err != nil {
		t.Fatalf("first format: %s", err)
	}
	img.Close()

	img, err = nanofs.OpenImage(path)
	if err != nil {
		t.Fatalf("reopen image: %s", err)
	}
	defer img.Close()

	if err := nanofs.Format(img, nanofs.FormatOptions{Inodes: 16}); err == nil {
		t.Fatalf("expected format without -f to refuse an already-formatted image")
	}
	if err := nanofs.Format(img, nanofs.FormatOptions{Inodes: 16, Force: true}); err != nil {
		t.Fatalf("format with force: %s", err)
	}
}

func TestFormatTooSmallForInodes(t *testing.T) {
	f, err := tempImageFile(t, 8192)
	if err != nil {
		t.Fatalf("create temp image: %s", err)
	}
	img, err := nanofs.OpenImage(f)
	if err != nil {
		t.Fatalf("open image: %s", err)
	}
	defer img.Close()

	err = nanofs.Format(img, nanofs.FormatOptions{Inodes: 100000, Zero: true})
	if err == nil {
		t.Fatalf("expected format to fail for an image too small for the inode count")
	}
}
