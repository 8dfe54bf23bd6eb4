package nanofs

// Inode mode bits follow the usual Unix encoding: the high nibble carries
// the file type, the low bits carry permissions. Only the regular-file and
// directory types are ever produced by this filesystem (spec.md Non-goals:
// no symlinks, no devices, no sockets).
const (
	modeTypeMask = 0xf000
	ModeDir      = 0x4000
	ModeRegular  = 0x8000
)

// isDirMode reports whether mode's type bits (masked with modeTypeMask)
// identify a directory. spec.md §9 mandates this masking variant over the
// source's other, buggier variant that compares mode == ModeDir directly
// and so misfires whenever permission bits are non-zero.
func isDirMode(mode uint32) bool {
	return mode&modeTypeMask == ModeDir
}
