package nanofs

// extents returns the inode's current extent list, reading it out of its
// extent block. A freshly created, empty inode with no extent block at all
// returns nil.
func (i *Inode) extents() []extent {
	if !i.hasExtentBlock() {
		return nil
	}
	n := int(i.NumExtents())
	buf := i.fs.block(i.ExtentBlock())
	list := make([]extent, n)
	for idx := 0; idx < n; idx++ {
		off := idx * ExtentSize
		list[idx] = extent{
			Start: byteOrder.Uint32(buf[off:]),
			Count: byteOrder.Uint32(buf[off+4:]),
		}
	}
	return list
}

// writeExtents serializes list back into the inode's extent block and
// updates NumExtents. The caller is responsible for the 512-entry cap.
func (i *Inode) writeExtents(list []extent) {
	buf := i.fs.block(i.ExtentBlock())
	for idx, e := range list {
		off := idx * ExtentSize
		byteOrder.PutUint32(buf[off:], e.Start)
		byteOrder.PutUint32(buf[off+4:], e.Count)
	}
	i.setNumExtents(uint16(len(list)))
}

// ensureExtentBlock allocates this inode's single extent block if it
// doesn't have one yet (spec.md §4.3: "if n = 0 but the inode currently has
// no extent block, allocate and record one extent block so the file has a
// valid but empty extent list").
func (i *Inode) ensureExtentBlock() error {
	if i.hasExtentBlock() {
		return nil
	}
	e, err := i.fs.allocDataRun(1)
	if err != nil {
		return err
	}
	if e.Count != 1 {
		// allocDataRun only ever returns a short run when the request
		// can't be fully satisfied; for a single block that means there
		// was no free block at all.
		i.fs.freeDataRun(e)
		return ErrNoSpace
	}
	i.setExtentBlock(e.Start)
	i.setNumExtents(0)
	return nil
}

// allocateBlocks grows the inode by up to n blocks, greedily taking
// whatever contiguous runs the data bitmap can offer (spec.md §4.3). It
// fails with ErrNoSpace if fewer than n free blocks exist in total or if
// the 512-extent cap would be exceeded before n blocks are satisfied.
func (i *Inode) allocateBlocks(n int) error {
	if err := i.ensureExtentBlock(); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	if uint32(n) > i.fs.sb.FreeBlocks() {
		return ErrNoSpace
	}

	list := i.extents()
	originalLen := len(list)
	var originalLastCount uint32
	if originalLen > 0 {
		originalLastCount = list[originalLen-1].Count
	}
	remaining := n

	for remaining > 0 {
		if len(list) >= MaxExtentsPerInode {
			// nothing has been written back yet, so rolling back the
			// blocks we grabbed this call is enough to undo it
			for _, e := range list[originalLen:] {
				i.fs.freeDataRun(e)
			}
			if originalLen > 0 {
				if last := list[originalLen-1]; last.Count > originalLastCount {
					i.fs.freeDataRun(extent{Start: last.Start + originalLastCount, Count: last.Count - originalLastCount})
				}
			}
			return ErrNoSpace
		}

		e, err := i.fs.allocDataRun(remaining)
		if err != nil {
			return err
		}

		if n := len(list); n > 0 && list[n-1].Start+list[n-1].Count == e.Start {
			// merge with the preceding extent when the new run happens to
			// be contiguous with it
			list[n-1].Count += e.Count
		} else {
			list = append(list, e)
		}
		remaining -= int(e.Count)
	}

	i.writeExtents(list)
	return nil
}

// deallocateBlocks shrinks the inode by n blocks from the tail, popping and
// trimming extents as needed (spec.md §4.3). The extent block itself is
// not released here.
func (i *Inode) deallocateBlocks(n int) {
	if n <= 0 || !i.hasExtentBlock() {
		return
	}
	list := i.extents()

	for n > 0 && len(list) > 0 {
		last := &list[len(list)-1]
		if int(last.Count) <= n {
			i.fs.freeDataRun(*last)
			n -= int(last.Count)
			list = list[:len(list)-1]
		} else {
			tail := extent{Start: last.Start + last.Count - uint32(n), Count: uint32(n)}
			i.fs.freeDataRun(tail)
			last.Count -= uint32(n)
			n = 0
		}
	}

	i.writeExtents(list)
}

// totalBlocks sums this inode's extent counts, i.e. how many data blocks
// (besides the extent block itself) its content currently occupies.
func (i *Inode) totalBlocks() int {
	total := 0
	for _, e := range i.extents() {
		total += int(e.Count)
	}
	return total
}

// mapOffset walks the inode's extents to find the absolute data-region
// block number and in-block byte offset holding logical byte offset off.
// off must be < i.Size() (the caller is responsible for EOF checks).
func (i *Inode) mapOffset(off int64) (blockNum uint32, inBlockOff int) {
	logicalBlock := uint32(off / BlockSize)
	inBlockOff = int(off % BlockSize)

	skip := logicalBlock
	for _, e := range i.extents() {
		if skip < e.Count {
			return e.Start + skip, inBlockOff
		}
		skip -= e.Count
	}
	// unreachable if size/extents are consistent (spec.md §3 invariant)
	return 0, inBlockOff
}

// addBytes extends the inode's logical size by n bytes: zero-fills the
// unused tail of the current last block, allocates however many additional
// whole blocks the new tail needs (each freshly allocated block already
// comes back zeroed from the allocator, spec.md §4.1), and bumps Size
// (spec.md §4.6 add_bytes helper). The tail zero-fill matters even when no
// new block is allocated: a block kept across a same-block shrink still
// holds its old bytes beyond the new size (spec.md §4.6 truncate note), and
// those must read back as zero once the file is extended again.
func (i *Inode) addBytes(n uint64) error {
	if err := i.ensureExtentBlock(); err != nil {
		return err
	}

	oldSize := i.Size()
	newSize := oldSize + n

	if tail := oldSize % BlockSize; tail != 0 {
		blockNum, inOff := i.mapOffset(int64(oldSize))
		blk := i.fs.block(blockNum)
		end := inOff + int(newSize-oldSize)
		if end > BlockSize {
			end = BlockSize
		}
		for j := inOff; j < end; j++ {
			blk[j] = 0
		}
	}

	oldBlocks := blocksFor(oldSize)
	newBlocks := blocksFor(newSize)

	if newBlocks > oldBlocks {
		if err := i.allocateBlocks(int(newBlocks - oldBlocks)); err != nil {
			return err
		}
	}

	i.setSize(newSize)
	return nil
}

// blocksFor returns ceil(size / BlockSize).
func blocksFor(size uint64) uint64 {
	return (size + BlockSize - 1) / BlockSize
}
