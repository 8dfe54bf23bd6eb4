package nanofs

import "bytes"

// entriesPerBlock is exact (BlockSize divides evenly by DirEntrySize), so a
// directory entry never straddles a block boundary and grow-by-one-block
// always adds a whole number of new slots.
const entriesPerBlock = BlockSize / DirEntrySize

// direntNameOff: a directory entry is a 4-byte inode number followed by a
// null-terminated name filling the rest of the 256-byte slot.
const direntNameOff = 4

// entrySlice returns the raw 256-byte slot for directory entry index idx.
// dir must be a directory inode whose size already covers idx entries.
func (dir *Inode) entrySlice(idx int) []byte {
	blockIdx := idx / entriesPerBlock
	offInBlock := (idx % entriesPerBlock) * DirEntrySize
	blockNum, _ := dir.mapOffset(int64(blockIdx) * BlockSize)
	blk := dir.fs.block(blockNum)
	return blk[offInBlock : offInBlock+DirEntrySize]
}

func entryIno(e []byte) uint32 {
	return byteOrder.Uint32(e)
}

func setEntryIno(e []byte, ino uint32) {
	byteOrder.PutUint32(e, ino)
}

func entryName(e []byte) string {
	raw := e[direntNameOff:]
	if n := bytes.IndexByte(raw, 0); n >= 0 {
		raw = raw[:n]
	}
	return string(raw)
}

func setEntryName(e []byte, name string) {
	raw := e[direntNameOff:]
	for i := range raw {
		raw[i] = 0
	}
	copy(raw, name)
}

// numEntries returns how many live entries this directory currently holds.
func (dir *Inode) numEntries() int {
	return int(dir.Size() / DirEntrySize)
}

// addEntry appends a (name, ino) entry to dir's directory store, growing
// the directory by one block whenever the current size is already a whole
// number of blocks (spec.md §4.4). childIsDir bumps dir's own link count,
// mirroring the ".." back-reference a new subdirectory holds.
func (dir *Inode) addEntry(name string, ino uint32, childIsDir bool) error {
	if len(name)+1 > NameMax {
		return ErrNameTooLong
	}

	if dir.Size()%BlockSize == 0 {
		if err := dir.allocateBlocks(1); err != nil {
			return err
		}
	}

	idx := dir.numEntries()
	e := dir.entrySlice(idx)
	setEntryIno(e, ino)
	setEntryName(e, name)

	dir.setSize(dir.Size() + DirEntrySize)
	if childIsDir {
		dir.setLinks(dir.Links() + 1)
	}
	return nil
}

// lookupEntry scans dir's entries in stored order and returns the inode
// number bound to name, or ErrNotFound.
func (dir *Inode) lookupEntry(name string) (uint32, error) {
	n := dir.numEntries()
	for idx := 0; idx < n; idx++ {
		e := dir.entrySlice(idx)
		if entryName(e) == name {
			return entryIno(e), nil
		}
	}
	return 0, ErrNotFound
}

// removeEntry finds name in dir and removes it by copying the last entry
// over its slot (order is not preserved beyond "stored order", spec.md
// §4.4 / §9), then shrinking the directory and releasing a trailing block
// whenever the new size becomes a whole number of blocks. A directory left
// with no entries also gives back its extent block, so it holds no data
// blocks at all, like a freshly made one. It decrements dir's link count if
// the removed entry named a directory.
func (dir *Inode) removeEntry(name string) error {
	n := dir.numEntries()
	target := -1
	for idx := 0; idx < n; idx++ {
		if entryName(dir.entrySlice(idx)) == name {
			target = idx
			break
		}
	}
	if target == -1 {
		return ErrNotFound
	}

	removedIno := entryIno(dir.entrySlice(target))
	removedIsDir := dir.fs.inodeAt(removedIno).IsDir()

	last := n - 1
	if target != last {
		copy(dir.entrySlice(target), dir.entrySlice(last))
	}

	dir.setSize(dir.Size() - DirEntrySize)
	if dir.Size()%BlockSize == 0 {
		dir.deallocateBlocks(1)
	}
	if dir.Size() == 0 {
		dir.fs.releaseExtentBlock(dir)
	}
	if removedIsDir {
		dir.setLinks(dir.Links() - 1)
	}
	return nil
}

// forEachEntry calls fn(name, ino) for every live entry in stored order,
// stopping early if fn returns false. Used by read-dir.
func (dir *Inode) forEachEntry(fn func(name string, ino uint32) bool) {
	n := dir.numEntries()
	for idx := 0; idx < n; idx++ {
		e := dir.entrySlice(idx)
		if !fn(entryName(e), entryIno(e)) {
			return
		}
	}
}
