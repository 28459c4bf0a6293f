package ntfs

import "errors"

var (
	//ErrNotNTFS means the boot sector is not NTFS shaped or has degenerate geometry
	ErrNotNTFS = errors.New("volume is not NTFS")
	//ErrBootstrap means record 0 could not seed the MFT map
	ErrBootstrap = errors.New("unable to bootstrap MFT from record 0")
	//ErrCorruptRecord means a record failed its signature or fixup structure checks
	ErrCorruptRecord = errors.New("corrupt MFT record")
	//ErrBadRunlist means a runlist's field sizes or bytes don't add up
	ErrBadRunlist = errors.New("malformed runlist")
	//ErrBadAttribute means an attribute record can't be walked or decoded
	ErrBadAttribute = errors.New("malformed attribute record")
	//ErrEntryOutOfRange means the requested entry sits beyond the decoded MFT
	ErrEntryOutOfRange = errors.New("entry number beyond MFT extent")
)
