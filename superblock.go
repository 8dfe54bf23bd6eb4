package nanofs

import (
	"encoding/binary"
	"fmt"
)

// BlockSize is the fixed unit of allocation and addressing (spec.md §3).
const BlockSize = 4096

// Magic identifies a formatted image.
const Magic uint64 = 0xC5C369A1C5C369A1

// InodeSize is the fixed size of one on-disk inode record.
const InodeSize = 64

// ExtentSize is the fixed size of one (start, count) extent pair.
const ExtentSize = 8

// MaxExtentsPerInode is block_size / sizeof(extent): the extent block of an
// inode holds at most this many extents.
const MaxExtentsPerInode = BlockSize / ExtentSize

// DirEntrySize is the fixed size of one directory entry.
const DirEntrySize = 256

// NameMax is the largest name a directory entry can hold, including the
// null terminator.
const NameMax = DirEntrySize - 4

// PathMax bounds a resolvable path's length (spec.md §4.6 get-attr).
const PathMax = 4096

// noExtentBlock is the sentinel stored when an inode has no extent block.
const noExtentBlock uint32 = 0xFFFFFFFF

var byteOrder = binary.LittleEndian

// superblock field byte offsets within block 0, in the order spec.md §6
// lays them out.
const (
	sbOffMagic            = 0
	sbOffSize             = 8
	sbOffInodesCount      = 16
	sbOffBlocksCount      = 20
	sbOffReservedBlocks   = 24
	sbOffFreeInodes       = 28
	sbOffFreeBlocks       = 32
	sbOffInodeBitmapBlock = 36
	sbOffInodeTableBlock  = 40
	sbOffDataBitmapBlock  = 44
	sbOffFirstDataBlock   = 48
	sbSize                = 52
)

// Superblock is a typed view over block 0 of the image. It does not copy
// the header out: every accessor reads or writes directly through the
// mapped bytes, so mutating a counter here is immediately visible to any
// other accessor sharing the same Image.
type Superblock struct {
	buf []byte // image[0:BlockSize]
}

func newSuperblockView(image []byte) *Superblock {
	return &Superblock{buf: image[:BlockSize]}
}

// OpenSuperblock validates the magic of an already-formatted image and
// returns a view over it.
func OpenSuperblock(image []byte) (*Superblock, error) {
	if len(image) < BlockSize {
		return nil, ErrInvalidImage
	}
	sb := newSuperblockView(image)
	if sb.Magic() != Magic {
		return nil, ErrInvalidImage
	}
	return sb, nil
}

func (sb *Superblock) u64(off int) uint64      { return byteOrder.Uint64(sb.buf[off:]) }
func (sb *Superblock) setU64(off int, v uint64) { byteOrder.PutUint64(sb.buf[off:], v) }
func (sb *Superblock) u32(off int) uint32      { return byteOrder.Uint32(sb.buf[off:]) }
func (sb *Superblock) setU32(off int, v uint32) { byteOrder.PutUint32(sb.buf[off:], v) }

func (sb *Superblock) Magic() uint64     { return sb.u64(sbOffMagic) }
func (sb *Superblock) setMagic(v uint64) { sb.setU64(sbOffMagic, v) }

func (sb *Superblock) Size() uint64     { return sb.u64(sbOffSize) }
func (sb *Superblock) setSize(v uint64) { sb.setU64(sbOffSize, v) }

func (sb *Superblock) InodesCount() uint32     { return sb.u32(sbOffInodesCount) }
func (sb *Superblock) setInodesCount(v uint32) { sb.setU32(sbOffInodesCount, v) }

func (sb *Superblock) BlocksCount() uint32     { return sb.u32(sbOffBlocksCount) }
func (sb *Superblock) setBlocksCount(v uint32) { sb.setU32(sbOffBlocksCount, v) }

func (sb *Superblock) ReservedBlocks() uint32     { return sb.u32(sbOffReservedBlocks) }
func (sb *Superblock) setReservedBlocks(v uint32) { sb.setU32(sbOffReservedBlocks, v) }

// FreeInodes is the number of 0 bits in the inode bitmap.
func (sb *Superblock) FreeInodes() uint32 { return sb.u32(sbOffFreeInodes) }

func (sb *Superblock) setFreeInodes(v uint32) { sb.setU32(sbOffFreeInodes, v) }
func (sb *Superblock) addFreeInodes(delta int32) {
	sb.setFreeInodes(uint32(int32(sb.FreeInodes()) + delta))
}

// FreeBlocks is the number of 0 bits in the data bitmap.
func (sb *Superblock) FreeBlocks() uint32 { return sb.u32(sbOffFreeBlocks) }

func (sb *Superblock) setFreeBlocks(v uint32) { sb.setU32(sbOffFreeBlocks, v) }
func (sb *Superblock) addFreeBlocks(delta int32) {
	sb.setFreeBlocks(uint32(int32(sb.FreeBlocks()) + delta))
}

func (sb *Superblock) InodeBitmapBlock() uint32     { return sb.u32(sbOffInodeBitmapBlock) }
func (sb *Superblock) setInodeBitmapBlock(v uint32) { sb.setU32(sbOffInodeBitmapBlock, v) }

func (sb *Superblock) InodeTableBlock() uint32     { return sb.u32(sbOffInodeTableBlock) }
func (sb *Superblock) setInodeTableBlock(v uint32) { sb.setU32(sbOffInodeTableBlock, v) }

func (sb *Superblock) DataBitmapBlock() uint32     { return sb.u32(sbOffDataBitmapBlock) }
func (sb *Superblock) setDataBitmapBlock(v uint32) { sb.setU32(sbOffDataBitmapBlock, v) }

func (sb *Superblock) FirstDataBlock() uint32     { return sb.u32(sbOffFirstDataBlock) }
func (sb *Superblock) setFirstDataBlock(v uint32) { sb.setU32(sbOffFirstDataBlock, v) }

// DataBlocksCount is the number of blocks in the data region.
func (sb *Superblock) DataBlocksCount() uint32 {
	return sb.BlocksCount() - sb.ReservedBlocks()
}

func (sb *Superblock) String() string {
	return fmt.Sprintf("nanofs image: %d blocks (%d reserved), %d inodes, %d free blocks, %d free inodes",
		sb.BlocksCount(), sb.ReservedBlocks(), sb.InodesCount(), sb.FreeBlocks(), sb.FreeInodes())
}
