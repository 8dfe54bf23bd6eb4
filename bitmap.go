package nanofs

import (
	"github.com/boljen/go-bitmap"
)

// extent is a contiguous (start, count) span of blocks within whatever
// region a bitmap governs (data blocks, relative to the start of the data
// region).
type extent struct {
	Start uint32
	Count uint32
}

// Bitmap is the allocator over one bit-array region of the image: the inode
// bitmap or the data bitmap. It aliases the underlying bytes directly so
// every Set/Clear mutates the mapped image in place. It does not touch the
// superblock's free counters; FS's allocate/free wrappers keep those in step.
//
// github.com/boljen/go-bitmap numbers bits LSB-first within a byte; the
// on-disk format here is specified MSB-first (bit 0 of a bitmap byte is
// its MSB). msbIndex flips the within-byte bit position before every call
// so the physical bytes end up exactly as spec.md §6 describes while bit
// mutation still goes through the library.
type Bitmap struct {
	bm bitmap.Bitmap
	n  int // number of bits this region actually governs
}

func msbIndex(i int) int {
	return (i &^ 7) | (7 - i&7)
}

// newBitmap wraps buf (exactly the bytes of one region) as a Bitmap
// governing n logical bits. Free-counter bookkeeping is the caller's
// responsibility (see FS.allocInode/freeInode/allocDataRun/freeDataRun), keeping this
// type ignorant of superblocks.
func newBitmap(buf []byte, n int) *Bitmap {
	return &Bitmap{bm: bitmap.NewSlice(buf), n: n}
}

func (b *Bitmap) get(i int) bool {
	return b.bm.Get(msbIndex(i))
}

func (b *Bitmap) setBit(i int, v bool) {
	b.bm.Set(msbIndex(i), v)
}

// set marks bit i allocated.
func (b *Bitmap) set(i int) {
	b.setBit(i, true)
}

// clear marks bit i free.
func (b *Bitmap) clear(i int) {
	b.setBit(i, false)
}

// setRange marks every bit in [e.Start, e.Start+e.Count) allocated.
func (b *Bitmap) setRange(e extent) {
	for i := uint32(0); i < e.Count; i++ {
		b.set(int(e.Start + i))
	}
}

// clearRange marks every bit in [e.Start, e.Start+e.Count) free.
func (b *Bitmap) clearRange(e extent) {
	for i := uint32(0); i < e.Count; i++ {
		b.clear(int(e.Start + i))
	}
}

// findRun scans left to right for the first free run of at least length
// bits, same shape as dargueta-disko's Allocator.findRun but falling back to
// the longest run seen instead of failing when no run is long enough
// (spec.md §4.1 and original_source/a1b/a1fs.c's search_bitmap). The
// returned extent's Count is capped at length.
func (b *Bitmap) findRun(length int) (extent, error) {
	if length <= 0 {
		return extent{}, nil
	}

	runStart, runLen := -1, 0
	bestStart, bestLen := -1, 0

	flush := func(end int) {
		if runLen > bestLen {
			bestStart, bestLen = runStart, runLen
		}
		_ = end
	}

	for i := 0; i < b.n; i++ {
		if !b.get(i) {
			if runLen == 0 {
				runStart = i
			}
			runLen++
			if runLen == length {
				return extent{Start: uint32(runStart), Count: uint32(length)}, nil
			}
		} else {
			flush(i)
			runLen = 0
		}
	}
	flush(b.n)

	if bestLen == 0 {
		return extent{}, ErrNoSpace
	}
	return extent{Start: uint32(bestStart), Count: uint32(bestLen)}, nil
}

// findOne finds a single free bit, used by the inode allocator.
func (b *Bitmap) findOne() (int, error) {
	e, err := b.findRun(1)
	if err != nil {
		return 0, err
	}
	return int(e.Start), nil
}

// countFree returns the number of 0 bits, used by fsck to cross-check the
// superblock's cached free counters (spec.md §8).
func (b *Bitmap) countFree() int {
	n := 0
	for i := 0; i < b.n; i++ {
		if !b.get(i) {
			n++
		}
	}
	return n
}
