package nanofs

import (
	"context"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/sirupsen/logrus"
)

// Node is the FUSE-facing adapter around a path in the mounted image. It
// embeds fs.Inode so the go-fuse library can track the kernel-visible inode
// tree, while the actual filesystem state lives entirely in the mmap'd
// image behind FS (spec.md §5: the engine itself holds no per-request
// state). One Node exists per live dentry; its path is recomputed from its
// parent chain rather than cached, since rename is not part of this
// filesystem's operation set.
type Node struct {
	fs.Inode
	fsys *FS
	log  *logrus.Logger
}

var (
	_ fs.NodeGetattrer  = (*Node)(nil)
	_ fs.NodeLookuper   = (*Node)(nil)
	_ fs.NodeReaddirer  = (*Node)(nil)
	_ fs.NodeMkdirer    = (*Node)(nil)
	_ fs.NodeRmdirer    = (*Node)(nil)
	_ fs.NodeCreater    = (*Node)(nil)
	_ fs.NodeUnlinker   = (*Node)(nil)
	_ fs.NodeSetattrer  = (*Node)(nil)
	_ fs.NodeReader     = (*Node)(nil)
	_ fs.NodeWriter     = (*Node)(nil)
	_ fs.NodeStatfser   = (*Node)(nil)
	_ fs.NodeOpener     = (*Node)(nil)
)

// Root returns the FUSE tree root for fsys. Pass it to fs.Mount.
func Root(fsys *FS, log *logrus.Logger) fs.InodeEmbedder {
	return &Node{fsys: fsys, log: log}
}

// path reconstructs this node's absolute path by walking go-fuse's own
// parent links, which it maintains for every live dentry.
func (n *Node) path() string {
	return "/" + n.Inode.Path(nil)
}

func errnoOf(err error) syscall.Errno {
	switch err {
	case nil:
		return 0
	case ErrNotFound:
		return syscall.ENOENT
	case ErrExists:
		return syscall.EEXIST
	case ErrNotDirectory:
		return syscall.ENOTDIR
	case ErrIsDirectory:
		return syscall.EISDIR
	case ErrNotEmpty:
		return syscall.ENOTEMPTY
	case ErrNoSpace:
		return syscall.ENOSPC
	case ErrNameTooLong:
		return syscall.ENAMETOOLONG
	case ErrUnsupported:
		return syscall.ENOSYS
	default:
		return syscall.EIO
	}
}

func attrToFuse(a Attr, out *fuse.Attr) {
	out.Ino = uint64(a.Ino)
	out.Size = a.Size
	out.Blocks = a.Blocks
	out.Mode = a.Mode
	out.Nlink = a.Links
	sec, nsec := uint64(a.Mtime.Unix()), uint32(a.Mtime.Nanosecond())
	out.Mtime, out.Mtimensec = sec, nsec
	out.Atime, out.Atimensec = sec, nsec
	out.Ctime, out.Ctimensec = sec, nsec
}

func (n *Node) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	a, err := n.fsys.GetAttr(n.path())
	if err != nil {
		return errnoOf(err)
	}
	attrToFuse(a, &out.Attr)
	return 0
}

func (n *Node) Setattr(ctx context.Context, f fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	path := n.path()

	if size, ok := in.GetSize(); ok {
		if err := n.fsys.Truncate(path, size); err != nil {
			return errnoOf(err)
		}
	}
	if mtime, ok := in.GetMTime(); ok {
		if err := n.fsys.Utimens(path, Timespec{Sec: mtime.Unix(), Nsec: int64(mtime.Nanosecond())}); err != nil {
			return errnoOf(err)
		}
	}

	a, err := n.fsys.GetAttr(path)
	if err != nil {
		return errnoOf(err)
	}
	attrToFuse(a, &out.Attr)
	return 0
}

func (n *Node) child(name string, a Attr) *fs.Inode {
	stable := fs.StableAttr{Ino: uint64(a.Ino)}
	if isDirMode(a.Mode) {
		stable.Mode = fuseModeDir
	} else {
		stable.Mode = fuseModeRegular
	}
	return n.NewInode(context.Background(), &Node{fsys: n.fsys, log: n.log}, stable)
}

const (
	fuseModeDir     = 0040000
	fuseModeRegular = 0100000
)

func (n *Node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	childPath := joinPath(n.path(), name)
	a, err := n.fsys.GetAttr(childPath)
	if err != nil {
		return nil, errnoOf(err)
	}
	attrToFuse(a, &out.Attr)
	out.SetEntryTimeout(time.Second)
	out.SetAttrTimeout(time.Second)
	return n.child(name, a), 0
}

func (n *Node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	entries, err := n.fsys.ReadDir(n.path())
	if err != nil {
		return nil, errnoOf(err)
	}
	list := make([]fuse.DirEntry, 0, len(entries))
	for _, e := range entries {
		mode := uint32(fuseModeRegular)
		if e.IsDir {
			mode = fuseModeDir
		}
		list = append(list, fuse.DirEntry{Name: e.Name, Ino: uint64(e.Ino), Mode: mode})
	}
	return fs.NewListDirStream(list), 0
}

func (n *Node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	childPath := joinPath(n.path(), name)
	if err := n.fsys.Mkdir(childPath, mode); err != nil {
		return nil, errnoOf(err)
	}
	a, err := n.fsys.GetAttr(childPath)
	if err != nil {
		return nil, errnoOf(err)
	}
	attrToFuse(a, &out.Attr)
	n.log.WithField("path", childPath).Debug("mkdir")
	return n.child(name, a), 0
}

func (n *Node) Rmdir(ctx context.Context, name string) syscall.Errno {
	childPath := joinPath(n.path(), name)
	if err := n.fsys.Rmdir(childPath); err != nil {
		return errnoOf(err)
	}
	return 0
}

func (n *Node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	childPath := joinPath(n.path(), name)
	if err := n.fsys.Create(childPath, mode); err != nil {
		return nil, nil, 0, errnoOf(err)
	}
	a, err := n.fsys.GetAttr(childPath)
	if err != nil {
		return nil, nil, 0, errnoOf(err)
	}
	attrToFuse(a, &out.Attr)
	n.log.WithField("path", childPath).Debug("create")
	return n.child(name, a), nil, 0, 0
}

func (n *Node) Unlink(ctx context.Context, name string) syscall.Errno {
	childPath := joinPath(n.path(), name)
	if err := n.fsys.Unlink(childPath); err != nil {
		return errnoOf(err)
	}
	return 0
}

func (n *Node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (n *Node) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	got, err := n.fsys.Read(n.path(), dest, off)
	if err != nil {
		return nil, errnoOf(err)
	}
	return fuse.ReadResultData(dest[:got]), 0
}

func (n *Node) Write(ctx context.Context, f fs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	written, err := n.fsys.Write(n.path(), data, off)
	if err != nil {
		return 0, errnoOf(err)
	}
	return uint32(written), 0
}

func (n *Node) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	s := n.fsys.StatFS()
	out.Bsize = s.BlockSize
	out.Blocks = s.TotalBlocks
	out.Bfree = s.FreeBlocks
	out.Bavail = s.FreeBlocks
	out.Files = uint64(s.TotalInodes)
	out.Ffree = uint64(s.FreeInodes)
	out.NameLen = s.NameMax
	return 0
}

func joinPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}
