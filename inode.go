package nanofs

import "time"

// inode record field offsets within its 64-byte slot (spec.md §6).
const (
	inoOffMode        = 0
	inoOffLinks       = 4
	inoOffSize        = 8
	inoOffMtimeSec    = 16
	inoOffMtimeNsec   = 24
	inoOffIno         = 32
	inoOffNumExtents  = 36
	inoOffExtentBlock = 40
)

// Inode is a view over one 64-byte slot of the inode table. Like
// Superblock, it does not copy the record out: every accessor reads or
// writes straight through the mapped image.
type Inode struct {
	fs  *FS
	buf []byte // fs.inodeTable[ino*InodeSize : (ino+1)*InodeSize]
	Ino uint32
}

func (fs *FS) inodeAt(ino uint32) *Inode {
	off := int(ino) * InodeSize
	return &Inode{fs: fs, buf: fs.inodeTable[off : off+InodeSize], Ino: ino}
}

func (i *Inode) Mode() uint32     { return byteOrder.Uint32(i.buf[inoOffMode:]) }
func (i *Inode) setMode(m uint32) { byteOrder.PutUint32(i.buf[inoOffMode:], m) }

func (i *Inode) Links() uint32     { return byteOrder.Uint32(i.buf[inoOffLinks:]) }
func (i *Inode) setLinks(n uint32) { byteOrder.PutUint32(i.buf[inoOffLinks:], n) }

func (i *Inode) Size() uint64     { return byteOrder.Uint64(i.buf[inoOffSize:]) }
func (i *Inode) setSize(n uint64) { byteOrder.PutUint64(i.buf[inoOffSize:], n) }

func (i *Inode) MtimeSec() int64     { return int64(byteOrder.Uint64(i.buf[inoOffMtimeSec:])) }
func (i *Inode) setMtimeSec(v int64) { byteOrder.PutUint64(i.buf[inoOffMtimeSec:], uint64(v)) }

func (i *Inode) MtimeNsec() int64     { return int64(byteOrder.Uint64(i.buf[inoOffMtimeNsec:])) }
func (i *Inode) setMtimeNsec(v int64) { byteOrder.PutUint64(i.buf[inoOffMtimeNsec:], uint64(v)) }

func (i *Inode) NumExtents() uint16     { return byteOrder.Uint16(i.buf[inoOffNumExtents:]) }
func (i *Inode) setNumExtents(n uint16) { byteOrder.PutUint16(i.buf[inoOffNumExtents:], n) }

func (i *Inode) ExtentBlock() uint32     { return byteOrder.Uint32(i.buf[inoOffExtentBlock:]) }
func (i *Inode) setExtentBlock(b uint32) { byteOrder.PutUint32(i.buf[inoOffExtentBlock:], b) }

func (i *Inode) hasExtentBlock() bool {
	return i.ExtentBlock() != noExtentBlock
}

// IsDir reports whether this inode's stored mode identifies a directory,
// using the masking comparison spec.md §9 mandates.
func (i *Inode) IsDir() bool {
	return isDirMode(i.Mode())
}

// Mtime returns the stored last-modification timestamp.
func (i *Inode) Mtime() time.Time {
	return time.Unix(i.MtimeSec(), i.MtimeNsec())
}

// SetMtime sets the last-modification timestamp. Every mutating operation
// in ops.go calls this with the current real time once it's done mutating
// an inode (spec.md §4.6).
func (i *Inode) SetMtime(t time.Time) {
	i.setMtimeSec(t.Unix())
	i.setMtimeNsec(int64(t.Nanosecond()))
}

// touch sets the stored mtime to now.
func (i *Inode) touch() {
	i.SetMtime(time.Now())
}

// init fully initializes a freshly allocated inode's record; the caller
// must do this before any path lookup can observe the inode (spec.md §4.2).
func (i *Inode) init(mode uint32, links uint32) {
	i.setMode(mode)
	i.setLinks(links)
	i.setSize(0)
	i.setNumExtents(0)
	i.setExtentBlock(noExtentBlock)
	i.touch()
	// ino field is informational (mirrors the table index) but kept so a
	// raw inode record is self-describing without its table position.
	byteOrder.PutUint32(i.buf[inoOffIno:], i.Ino)
}

// blockCount512 rounds Size() up to 512-byte sectors, the unit get-attr
// reports block counts in (spec.md §4.6).
func (i *Inode) blockCount512() uint64 {
	return (i.Size() + 511) / 512
}
