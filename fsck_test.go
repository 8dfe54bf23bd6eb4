package nanofs_test

import (
	"testing"

	"github.com/nanofs/nanofs"
)

func TestCheckCleanImage(t *testing.T) {
	fsys := newImage(t, 1<<20, 32)
	if err := fsys.Mkdir("/a", 0755); err != nil {
		t.Fatalf("mkdir /a: %s", err)
	}
	if err := fsys.Create("/a/f", 0644); err != nil {
		t.Fatalf("create /a/f: %s", err)
	}
	if _, err := fsys.Write("/a/f", []byte("data"), 0); err != nil {
		t.Fatalf("write /a/f: %s", err)
	}

	report := nanofs.Check(fsys)
	if !report.OK() {
		t.Fatalf("expected clean image, got: %s", report.Errors)
	}
}

// TestCheckCleanAfterUnlink exercises unlink's block-release path directly:
// a file's extent block and data block are both allocated, then Unlink must
// release both, leaving no orphaned blocks for Check to find. A regression
// that skips releasing either block is covered end-to-end by
// TestCheckDetectsOrphanedBlockAfterIncompleteUnlink in fsck_internal_test.go,
// which reaches into the unexported primitives to simulate exactly that bug.
func TestCheckCleanAfterUnlink(t *testing.T) {
	fsys := newImage(t, 1<<20, 32)
	if err := fsys.Create("/f", 0644); err != nil {
		t.Fatalf("create /f: %s", err)
	}
	if _, err := fsys.Write("/f", []byte("data"), 0); err != nil {
		t.Fatalf("write /f: %s", err)
	}
	if err := fsys.Unlink("/f"); err != nil {
		t.Fatalf("unlink /f: %s", err)
	}

	report := nanofs.Check(fsys)
	if !report.OK() {
		t.Fatalf("expected clean image after unlink, got: %s", report.Errors)
	}
}
