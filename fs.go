package nanofs

import (
	"fmt"
	"log"
)

// FS is one mounted image: the superblock, the two bitmap allocators, the
// inode table, and the data region, all views over the same mmap'd bytes
// (spec.md §2). It holds no other state — spec.md §5 calls for a
// single-threaded, request-at-a-time engine with no locks, so FS is safe to
// use only from one goroutine at a time, same as the teacher's Superblock
// which is built around one io.ReaderAt for the life of a mount.
type FS struct {
	img *Image
	sb  *Superblock

	inodeBitmap *Bitmap
	dataBitmap  *Bitmap

	inodeTable []byte
	dataRegion []byte
}

// Mount validates img's superblock and wires up the allocators and table
// views over it. The root inode is guaranteed to exist at inode 0
// (spec.md §3 invariants).
func Mount(img *Image) (*FS, error) {
	sb, err := OpenSuperblock(img.Bytes())
	if err != nil {
		return nil, err
	}

	buf := img.Bytes()
	inodeBitmapOff := int(sb.InodeBitmapBlock()) * BlockSize
	inodeTableOff := int(sb.InodeTableBlock()) * BlockSize
	dataBitmapOff := int(sb.DataBitmapBlock()) * BlockSize
	firstDataOff := int(sb.FirstDataBlock()) * BlockSize
	imageEnd := int(sb.BlocksCount()) * BlockSize

	if firstDataOff > len(buf) || imageEnd > len(buf) {
		return nil, fmt.Errorf("nanofs: %w: layout exceeds image size", ErrInvalidImage)
	}

	fs := &FS{
		img:         img,
		sb:          sb,
		dataBitmap:  newBitmap(buf[dataBitmapOff:inodeBitmapOff], int(sb.DataBlocksCount())),
		inodeBitmap: newBitmap(buf[inodeBitmapOff:inodeTableOff], int(sb.InodesCount())),
		inodeTable:  buf[inodeTableOff:firstDataOff],
		dataRegion:  buf[firstDataOff:imageEnd],
	}
	log.Printf("nanofs: mounted image, %d blocks (%d reserved), %d inodes", sb.BlocksCount(), sb.ReservedBlocks(), sb.InodesCount())
	return fs, nil
}

// Close flushes the image to disk and releases the mapping.
func (fs *FS) Close() error {
	syncErr := fs.img.Sync()
	if err := fs.img.Close(); err != nil {
		return err
	}
	return syncErr
}

// Superblock exposes the underlying superblock view, e.g. for StatFS.
func (fs *FS) Superblock() *Superblock {
	return fs.sb
}

// root returns the root inode (always inode 0, spec.md §3 invariants).
func (fs *FS) root() *Inode {
	return fs.inodeAt(0)
}

// block returns the n'th data block as a BlockSize-length slice.
func (fs *FS) block(n uint32) []byte {
	off := int(n) * BlockSize
	return fs.dataRegion[off : off+BlockSize]
}

// allocInode asks the inode bitmap for a free inode number. The caller must
// fully initialize the returned inode's record before it can be observed by
// a lookup (spec.md §4.2).
func (fs *FS) allocInode() (*Inode, error) {
	n, err := fs.inodeBitmap.findOne()
	if err != nil {
		return nil, ErrNoSpace
	}
	fs.inodeBitmap.set(n)
	fs.sb.addFreeInodes(-1)
	return fs.inodeAt(uint32(n)), nil
}

// freeInode clears an inode's bitmap bit. The caller must have already
// released the inode's extent list and extent block.
func (fs *FS) freeInode(ino uint32) {
	fs.inodeBitmap.clear(int(ino))
	fs.sb.addFreeInodes(1)
}

// allocDataRun asks the data bitmap for a run of up to n free blocks,
// zero-filling every block it claims (spec.md §4.1 invariant: "each set on
// the data bitmap zero-fills the newly claimed data block").
func (fs *FS) allocDataRun(n int) (extent, error) {
	e, err := fs.dataBitmap.findRun(n)
	if err != nil {
		return extent{}, err
	}
	fs.dataBitmap.setRange(e)
	fs.sb.addFreeBlocks(-int32(e.Count))
	for i := uint32(0); i < e.Count; i++ {
		blk := fs.block(e.Start + i)
		for j := range blk {
			blk[j] = 0
		}
	}
	return e, nil
}

// freeDataRun releases a run of data blocks back to the data bitmap.
func (fs *FS) freeDataRun(e extent) {
	fs.dataBitmap.clearRange(e)
	fs.sb.addFreeBlocks(int32(e.Count))
}
