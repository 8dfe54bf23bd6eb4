package nanofs_test

import (
	"testing"

	"github.com/nanofs/nanofs"
)

// TestLifecycleScenarios follows the end-to-end scenarios described for a
// 1 MiB image formatted with 32 inodes: create a directory and a file
// inside it, write and read data, then remove everything and confirm the
// free counters return to their post-format values.
func TestLifecycleScenarios(t *testing.T) {
	fsys := newImage(t, 1<<20, 32)
	sb := fsys.Superblock()

	freeInodesAfterFormat := sb.FreeInodes()
	freeBlocksAfterFormat := sb.FreeBlocks()

	if err := fsys.Mkdir("/a", 0755); err != nil {
		t.Fatalf("mkdir /a: %s", err)
	}
	if err := fsys.Create("/a/f", 0644); err != nil {
		t.Fatalf("create /a/f: %s", err)
	}

	payload := []byte("hello, nanofs")
	n, err := fsys.Write("/a/f", payload, 0)
	if err != nil {
		t.Fatalf("write /a/f: %s", err)
	}
	if n != len(payload) {
		t.Fatalf("write returned %d, want %d", n, len(payload))
	}

	buf := make([]byte, len(payload))
	n, err = fsys.Read("/a/f", buf, 0)
	if err != nil {
		t.Fatalf("read /a/f: %s", err)
	}
	if string(buf[:n]) != string(payload) {
		t.Fatalf("read back %q, want %q", buf[:n], payload)
	}

	attr, err := fsys.GetAttr("/a/f")
	if err != nil {
		t.Fatalf("stat /a/f: %s", err)
	}
	if attr.Size != uint64(len(payload)) {
		t.Errorf("size = %d, want %d", attr.Size, len(payload))
	}

	entries, err := fsys.ReadDir("/a")
	if err != nil {
		t.Fatalf("readdir /a: %s", err)
	}
	wantNames := map[string]bool{".": false, "..": false, "f": false}
	for _, e := range entries {
		if _, ok := wantNames[e.Name]; ok {
			wantNames[e.Name] = true
		}
	}
	for name, seen := range wantNames {
		if !seen {
			t.Errorf("readdir /a missing %q", name)
		}
	}

	if err := fsys.Unlink("/a/f"); err != nil {
		t.Fatalf("unlink /a/f: %s", err)
	}
	if err := fsys.Rmdir("/a"); err != nil {
		t.Fatalf("rmdir /a: %s", err)
	}

	if got := sb.FreeInodes(); got != freeInodesAfterFormat {
		t.Errorf("free inodes after cleanup = %d, want %d", got, freeInodesAfterFormat)
	}
	if got := sb.FreeBlocks(); got != freeBlocksAfterFormat {
		t.Errorf("free blocks after cleanup = %d, want %d", got, freeBlocksAfterFormat)
	}
}

func TestMkdirExistingNameFails(t *testing.T) {
	fsys := newImage(t, 1<<20, 32)
	if err := fsys.Mkdir("/a", 0755); err != nil {
		t.Fatalf("mkdir /a: %s", err)
	}
	if err := fsys.Mkdir("/a", 0755); err != nanofs.ErrExists {
		t.Fatalf("mkdir /a again = %v, want ErrExists", err)
	}
}

func TestRmdirNonEmptyFails(t *testing.T) {
	fsys := newImage(t, 1<<20, 32)
	if err := fsys.Mkdir("/a", 0755); err != nil {
		t.Fatalf("mkdir /a: %s", err)
	}
	if err := fsys.Create("/a/f", 0644); err != nil {
		t.Fatalf("create /a/f: %s", err)
	}
	if err := fsys.Rmdir("/a"); err != nanofs.ErrNotEmpty {
		t.Fatalf("rmdir non-empty /a = %v, want ErrNotEmpty", err)
	}
}

func TestUnlinkOnDirectoryFails(t *testing.T) {
	fsys := newImage(t, 1<<20, 32)
	if err := fsys.Mkdir("/a", 0755); err != nil {
		t.Fatalf("mkdir /a: %s", err)
	}
	if err := fsys.Unlink("/a"); err != nanofs.ErrIsDirectory {
		t.Fatalf("unlink /a = %v, want ErrIsDirectory", err)
	}
}

func TestTruncateGrowsWithZeros(t *testing.T) {
	fsys := newImage(t, 1<<20, 32)
	if err := fsys.Create("/f", 0644); err != nil {
		t.Fatalf("create /f: %s", err)
	}
	if err := fsys.Truncate("/f", 10); err != nil {
		t.Fatalf("truncate /f: %s", err)
	}

	buf := make([]byte, 10)
	n, err := fsys.Read("/f", buf, 0)
	if err != nil {
		t.Fatalf("read /f: %s", err)
	}
	for i := 0; i < n; i++ {
		if buf[i] != 0 {
			t.Fatalf("byte %d = %d, want 0 after truncate-extend", i, buf[i])
		}
	}
}

func TestTruncateShrinksReleasesBlocks(t *testing.T) {
	fsys := newImage(t, 1<<20, 32)
	sb := fsys.Superblock()
	freeBlocksBefore := sb.FreeBlocks()

	if err := fsys.Create("/f", 0644); err != nil {
		t.Fatalf("create /f: %s", err)
	}
	if _, err := fsys.Write("/f", make([]byte, 4096), 0); err != nil {
		t.Fatalf("write /f: %s", err)
	}
	if err := fsys.Truncate("/f", 0); err != nil {
		t.Fatalf("truncate /f to 0: %s", err)
	}
	if err := fsys.Unlink("/f"); err != nil {
		t.Fatalf("unlink /f: %s", err)
	}
	if got := sb.FreeBlocks(); got != freeBlocksBefore {
		t.Errorf("free blocks after truncate+unlink = %d, want %d", got, freeBlocksBefore)
	}
}

func TestReadPastEOFReturnsZero(t *testing.T) {
	fsys := newImage(t, 1<<20, 32)
	if err := fsys.Create("/f", 0644); err != nil {
		t.Fatalf("create /f: %s", err)
	}
	buf := make([]byte, 16)
	n, err := fsys.Read("/f", buf, 100)
	if err != nil {
		t.Fatalf("read past EOF: %s", err)
	}
	if n != 0 {
		t.Errorf("read past EOF returned %d bytes, want 0", n)
	}
}

func TestUtimensOmitLeavesMtimeUnchanged(t *testing.T) {
	fsys := newImage(t, 1<<20, 32)
	if err := fsys.Create("/f", 0644); err != nil {
		t.Fatalf("create /f: %s", err)
	}
	before, err := fsys.GetAttr("/f")
	if err != nil {
		t.Fatalf("stat /f: %s", err)
	}

	if err := fsys.Utimens("/f", nanofs.Timespec{Nsec: nanofs.UtimeOmit}); err != nil {
		t.Fatalf("utimens omit: %s", err)
	}

	after, err := fsys.GetAttr("/f")
	if err != nil {
		t.Fatalf("stat /f: %s", err)
	}
	if !before.Mtime.Equal(after.Mtime) {
		t.Errorf("mtime changed after UTIME_OMIT: %v -> %v", before.Mtime, after.Mtime)
	}
}

func TestNotFoundOnMissingPath(t *testing.T) {
	fsys := newImage(t, 1<<20, 32)
	if _, err := fsys.GetAttr("/nope"); err != nanofs.ErrNotFound {
		t.Fatalf("stat missing path = %v, want ErrNotFound", err)
	}
}
