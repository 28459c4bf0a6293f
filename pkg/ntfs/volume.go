//go:build !windows

package ntfs

import "os"

//openVolume opens a volume image for positioned binary reads.
func openVolume(path string) (*os.File, error) {
	return os.Open(path)
}
