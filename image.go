package nanofs

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Image is the memory-mapped backing file for one mounted filesystem. It is
// acquired once (Open) and released once (Close); every accessor in this
// package reads and writes through the returned byte slice in place, the
// same way the teacher's Superblock wraps a single io.ReaderAt for the
// lifetime of a mount.
type Image struct {
	f    *os.File
	data []byte
}

// OpenImage mmaps path read-write and returns an Image spanning the whole
// file. The caller must Close it when done.
func OpenImage(path string) (*Image, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.Size() == 0 {
		f.Close()
		return nil, fmt.Errorf("nanofs: image %s is empty", path)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("nanofs: mmap %s: %w", path, err)
	}

	return &Image{f: f, data: data}, nil
}

// Bytes returns the whole image as an addressable byte array.
func (img *Image) Bytes() []byte {
	return img.data
}

// Len returns the image size in bytes.
func (img *Image) Len() int {
	return len(img.data)
}

// Sync flushes dirty pages back to the backing file.
func (img *Image) Sync() error {
	return unix.Msync(img.data, unix.MS_SYNC)
}

// Close unmaps the image and closes the backing file.
func (img *Image) Close() error {
	if img.data != nil {
		if err := unix.Munmap(img.data); err != nil {
			return err
		}
		img.data = nil
	}
	return img.f.Close()
}
