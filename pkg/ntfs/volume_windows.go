//go:build windows

package ntfs

import (
	"os"

	"golang.org/x/sys/windows"
)

//openVolume opens a volume image or a live volume like \\.\C: for
//positioned binary reads. Raw volumes must be shared with whatever else
//has them open, and backup semantics lets the handle reach protected
//system objects.
func openVolume(path string) (*os.File, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}
	handle, err := windows.CreateFile(
		p,
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_BACKUP_SEMANTICS,
		0,
	)
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(handle), path), nil
}
