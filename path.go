package nanofs

import "strings"

// resolve walks an absolute, `/`-separated path from the root inode
// (spec.md §4.5). An empty path or "/" resolves to the root. "." and ".."
// are never looked up here: they are synthesized by read-dir and never
// stored as real entries (spec.md §3 invariants).
func (fs *FS) resolve(path string) (*Inode, error) {
	cur := fs.root()

	for _, comp := range splitPath(path) {
		if !cur.IsDir() {
			return nil, ErrNotDirectory
		}
		ino, err := cur.lookupEntry(comp)
		if err != nil {
			return nil, err
		}
		cur = fs.inodeAt(ino)
	}
	return cur, nil
}

// resolveParent splits path into its parent directory and final component,
// resolving the parent (which must be a directory) and returning both it
// and the bare name. Used by mkdir/create/unlink/rmdir, all of which need
// to mutate the parent's directory store after resolving it.
func (fs *FS) resolveParent(path string) (parent *Inode, name string, err error) {
	comps := splitPath(path)
	if len(comps) == 0 {
		return nil, "", ErrNotFound
	}
	name = comps[len(comps)-1]

	parent = fs.root()
	for _, comp := range comps[:len(comps)-1] {
		if !parent.IsDir() {
			return nil, "", ErrNotDirectory
		}
		ino, err := parent.lookupEntry(comp)
		if err != nil {
			return nil, "", err
		}
		parent = fs.inodeAt(ino)
	}
	if !parent.IsDir() {
		return nil, "", ErrNotDirectory
	}
	return parent, name, nil
}

// splitPath splits an absolute path into its non-empty components.
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	comps := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			comps = append(comps, p)
		}
	}
	return comps
}
