package nanofs

import "time"

// UtimeNow and UtimeOmit mirror the standard utimensat() sentinel nsec
// values: the former means "set to the current time", the latter means
// "leave this timestamp alone" (spec.md §9 open question: the source only
// handled UTIME_NOW; UTIME_OMIT is honored here).
const (
	UtimeNow  int64 = (1 << 30) - 1
	UtimeOmit int64 = (1 << 30) - 2
)

// Timespec is a (seconds, nanoseconds) pair, matching the wire shape FUSE
// passes to utimens.
type Timespec struct {
	Sec  int64
	Nsec int64
}

// StatFSResult is the result of StatFS.
type StatFSResult struct {
	BlockSize   uint32
	TotalBlocks uint64
	FreeBlocks  uint64
	TotalInodes uint32
	FreeInodes  uint32
	NameMax     uint32
}

// Attr is the result of GetAttr.
type Attr struct {
	Mode   uint32
	Links  uint32
	Size   uint64
	Blocks uint64 // 512-byte sectors
	Mtime  time.Time
	Ino    uint32
}

// DirEntryInfo is one entry returned by ReadDir, including the synthesized
// "." and ".." entries (spec.md §4.6).
type DirEntryInfo struct {
	Name  string
	Ino   uint32
	IsDir bool
}

// StatFS returns filesystem-wide statistics. Infallible (spec.md §4.6).
func (fs *FS) StatFS() StatFSResult {
	sb := fs.sb
	return StatFSResult{
		BlockSize:   BlockSize,
		TotalBlocks: uint64(sb.BlocksCount()),
		FreeBlocks:  uint64(sb.FreeBlocks()),
		TotalInodes: sb.InodesCount(),
		FreeInodes:  sb.FreeInodes(),
		NameMax:     NameMax,
	}
}

// GetAttr resolves path and returns its attributes.
func (fs *FS) GetAttr(path string) (Attr, error) {
	if len(path) >= PathMax {
		return Attr{}, ErrNameTooLong
	}
	ino, err := fs.resolve(path)
	if err != nil {
		return Attr{}, err
	}
	return Attr{
		Mode:   ino.Mode(),
		Links:  ino.Links(),
		Size:   ino.Size(),
		Blocks: ino.blockCount512(),
		Mtime:  ino.Mtime(),
		Ino:    ino.Ino,
	}, nil
}

// ReadDir resolves path (which must be a directory) and returns "." and
// ".." followed by every stored entry in stored order. No separate "."/".."
// entries are ever persisted (spec.md §4.6).
func (fs *FS) ReadDir(path string) ([]DirEntryInfo, error) {
	cur, parent, err := fs.resolveWithParent(path)
	if err != nil {
		return nil, err
	}
	if !cur.IsDir() {
		return nil, ErrNotDirectory
	}

	out := []DirEntryInfo{
		{Name: ".", Ino: cur.Ino, IsDir: true},
		{Name: "..", Ino: parent.Ino, IsDir: true},
	}
	cur.forEachEntry(func(name string, ino uint32) bool {
		out = append(out, DirEntryInfo{Name: name, Ino: ino, IsDir: fs.inodeAt(ino).IsDir()})
		return true
	})
	return out, nil
}

// Mkdir creates an empty directory at path (spec.md §4.6). If adding the
// entry to the parent fails, the just-allocated inode is rolled back rather
// than leaked (spec.md §9 open question, resolved).
func (fs *FS) Mkdir(path string, mode uint32) error {
	return fs.createChild(path, (mode&0777)|ModeDir, 2, true)
}

// Create creates an empty regular file at path (spec.md §4.6).
func (fs *FS) Create(path string, mode uint32) error {
	return fs.createChild(path, (mode&0777)|ModeRegular, 1, false)
}

func (fs *FS) createChild(path string, mode uint32, links uint32, isDir bool) error {
	parent, name, err := fs.resolveParent(path)
	if err != nil {
		return err
	}
	if _, err := parent.lookupEntry(name); err == nil {
		return ErrExists
	}

	child, err := fs.allocInode()
	if err != nil {
		return err
	}
	child.init(mode, links)

	if err := parent.addEntry(name, child.Ino, isDir); err != nil {
		fs.freeInode(child.Ino)
		return err
	}

	parent.touch()
	return nil
}

// Rmdir removes an empty directory (spec.md §4.6).
func (fs *FS) Rmdir(path string) error {
	parent, name, err := fs.resolveParent(path)
	if err != nil {
		return err
	}
	childIno, err := parent.lookupEntry(name)
	if err != nil {
		return err
	}
	child := fs.inodeAt(childIno)
	if !child.IsDir() {
		return ErrNotDirectory
	}
	if child.Size() > 0 {
		return ErrNotEmpty
	}

	fs.releaseExtentBlock(child)
	fs.freeInode(child.Ino)

	if err := parent.removeEntry(name); err != nil {
		return err
	}
	parent.touch()
	return nil
}

// Unlink removes a file, releasing all of its data blocks, its extent
// block, and its inode (spec.md §4.6).
func (fs *FS) Unlink(path string) error {
	parent, name, err := fs.resolveParent(path)
	if err != nil {
		return err
	}
	childIno, err := parent.lookupEntry(name)
	if err != nil {
		return err
	}
	child := fs.inodeAt(childIno)
	if child.IsDir() {
		return ErrIsDirectory
	}

	child.deallocateBlocks(child.totalBlocks())
	fs.releaseExtentBlock(child)
	fs.freeInode(child.Ino)

	if err := parent.removeEntry(name); err != nil {
		return err
	}
	parent.touch()
	return nil
}

func (fs *FS) releaseExtentBlock(ino *Inode) {
	if !ino.hasExtentBlock() {
		return
	}
	fs.freeDataRun(extent{Start: ino.ExtentBlock(), Count: 1})
	ino.setExtentBlock(noExtentBlock)
}

// Utimens sets path's mtime. times.Nsec of UtimeOmit leaves it unchanged;
// UtimeNow sets it to the current real time; any other value is used
// verbatim (spec.md §4.6, §9).
func (fs *FS) Utimens(path string, mtime Timespec) error {
	ino, err := fs.resolve(path)
	if err != nil {
		return err
	}
	switch mtime.Nsec {
	case UtimeOmit:
		return nil
	case UtimeNow:
		ino.touch()
	default:
		ino.SetMtime(time.Unix(mtime.Sec, mtime.Nsec))
	}
	return nil
}

// Truncate changes path's size, extending with zero bytes or releasing
// trailing blocks as needed (spec.md §4.6).
func (fs *FS) Truncate(path string, newSize uint64) error {
	ino, err := fs.resolve(path)
	if err != nil {
		return err
	}
	if ino.IsDir() {
		return ErrIsDirectory
	}

	cur := ino.Size()
	switch {
	case newSize == cur:
		return nil
	case newSize > cur:
		if err := ino.addBytes(newSize - cur); err != nil {
			return err
		}
	default:
		oldBlocks, newBlocks := blocksFor(cur), blocksFor(newSize)
		if newBlocks < oldBlocks {
			ino.deallocateBlocks(int(oldBlocks - newBlocks))
		}
		ino.setSize(newSize)
	}
	ino.touch()
	return nil
}

// Read copies up to len(buf) bytes starting at offset into buf, returning
// the real byte count. offset >= size returns (0, nil) (EOF). If the
// request would read past EOF, the tail of buf is zero-filled. The caller
// guarantees [offset, offset+len(buf)) lies within a single block.
func (fs *FS) Read(path string, buf []byte, offset int64) (int, error) {
	ino, err := fs.resolve(path)
	if err != nil {
		return 0, err
	}
	if ino.IsDir() {
		return 0, ErrIsDirectory
	}

	size := int64(ino.Size())
	if offset >= size {
		return 0, nil
	}

	avail := size - offset
	toRead := int64(len(buf))
	if toRead > avail {
		toRead = avail
	}

	blockNum, inOff := ino.mapOffset(offset)
	blk := fs.block(blockNum)
	n := copy(buf[:toRead], blk[inOff:])

	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
	return n, nil
}

// Write writes len(buf) bytes at offset, extending the file as needed. The
// caller guarantees [offset, offset+len(buf)) lies within a single block.
func (fs *FS) Write(path string, buf []byte, offset int64) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	ino, err := fs.resolve(path)
	if err != nil {
		return 0, err
	}
	if ino.IsDir() {
		return 0, ErrIsDirectory
	}

	if err := ino.ensureExtentBlock(); err != nil {
		return 0, err
	}

	size := ino.Size()
	if uint64(offset) > size {
		if err := ino.addBytes(uint64(offset) - size); err != nil {
			return 0, err
		}
		size = ino.Size()
	}
	if end := uint64(offset) + uint64(len(buf)); end > size {
		if err := ino.addBytes(end - size); err != nil {
			return 0, err
		}
	}

	blockNum, inOff := ino.mapOffset(offset)
	blk := fs.block(blockNum)
	n := copy(blk[inOff:], buf)

	ino.touch()
	return n, nil
}

// Destroy flushes and unmaps the image. Called once when the driver
// unmounts (spec.md §6).
func (fs *FS) Destroy() error {
	return fs.Close()
}

// resolveWithParent is like resolve but also returns the immediate parent
// of the resolved inode (the root's parent is itself), needed to fill in
// ".." during ReadDir without the directory store persisting a parent
// pointer of its own.
func (fs *FS) resolveWithParent(path string) (cur, parent *Inode, err error) {
	cur = fs.root()
	parent = fs.root()

	for _, comp := range splitPath(path) {
		if !cur.IsDir() {
			return nil, nil, ErrNotDirectory
		}
		ino, err := cur.lookupEntry(comp)
		if err != nil {
			return nil, nil, err
		}
		parent = cur
		cur = fs.inodeAt(ino)
	}
	return cur, parent, nil
}
