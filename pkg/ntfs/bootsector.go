package ntfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

//BootSector is the raw 512 byte NTFS boot sector, read straight off the
//front of the volume. Field layout matches the on-disk one exactly so the
//whole thing can be filled with a single binary.Read.
type BootSector struct {
	Jump             [3]byte
	OEMID            [8]byte
	BytePerSector    uint16
	SectorPerCluster uint8
	Reserved         [2]byte
	Zero1            [3]byte
	Unused1          [2]byte
	MediaDescriptor  byte
	Zeros2           [2]byte
	SectorPerTrack   uint16
	HeadNumber       uint16
	HiddenSector     uint32
	Unused2          [8]byte
	TotalSector      int64
	MFTCluster       int64
	MFTMirrCluster   int64
	ClusterPerRecord int8
	Unused3          [3]byte
	ClusterPerBlock  int8
	Unused4          [3]byte
	SerialNumber     uint64
	CheckSum         uint32
	BootCode         [0x1aa]byte
	EndMarker        [2]byte
}

const (
	bootSectorSize = 512

	//BytesPerEntry is the fixed size of one MFT record.
	BytesPerEntry = 1024
)

//VolumeGeometry holds the sizing facts derived from the boot sector. Built
//once when a volume is opened and read-only after that.
type VolumeGeometry struct {
	BytesPerSector    uint16
	SectorsPerCluster uint8
	BytesPerCluster   uint32
	BytesPerEntry     uint32
	TotalSectors      int64
	MFTByteOffset     int64
}

//SectorsPerEntry is how many volume sectors one MFT record spans.
func (g VolumeGeometry) SectorsPerEntry() uint64 {
	return uint64(g.BytesPerEntry / uint32(g.BytesPerSector))
}

//ParseBootSector decodes the first 512 bytes of a volume into its geometry.
func ParseBootSector(b []byte) (VolumeGeometry, error) {
	var g VolumeGeometry
	if len(b) < bootSectorSize {
		return g, fmt.Errorf("%w: boot sector is %d bytes, want %d", ErrNotNTFS, len(b), bootSectorSize)
	}
	sec := BootSector{}
	if err := binary.Read(bytes.NewReader(b[:bootSectorSize]), binary.LittleEndian, &sec); err != nil {
		return g, fmt.Errorf("%w: %v", ErrNotNTFS, err)
	}
	if !bytes.HasPrefix(sec.OEMID[:], []byte("NTFS")) {
		return g, fmt.Errorf("%w: OEM ID %q", ErrNotNTFS, sec.OEMID[:])
	}
	if sec.BytePerSector == 0 || sec.SectorPerCluster == 0 {
		return g, fmt.Errorf("%w: %d bytes/sector, %d sectors/cluster", ErrNotNTFS, sec.BytePerSector, sec.SectorPerCluster)
	}
	if BytesPerEntry%uint32(sec.BytePerSector) != 0 {
		return g, fmt.Errorf("%w: %d byte sectors don't pack into %d byte records", ErrNotNTFS, sec.BytePerSector, BytesPerEntry)
	}
	if sec.MFTCluster < 0 {
		return g, fmt.Errorf("%w: MFT cluster %d", ErrNotNTFS, sec.MFTCluster)
	}
	if sec.TotalSector <= 0 {
		return g, fmt.Errorf("%w: %d sectors in volume", ErrNotNTFS, sec.TotalSector)
	}
	if sec.MFTCluster >= sec.TotalSector/int64(sec.SectorPerCluster) {
		return g, fmt.Errorf("%w: MFT cluster %d beyond %d sector volume", ErrNotNTFS, sec.MFTCluster, sec.TotalSector)
	}
	g = VolumeGeometry{
		BytesPerSector:    sec.BytePerSector,
		SectorsPerCluster: sec.SectorPerCluster,
		BytesPerCluster:   uint32(sec.BytePerSector) * uint32(sec.SectorPerCluster),
		BytesPerEntry:     BytesPerEntry,
		TotalSectors:      sec.TotalSector,
		MFTByteOffset:     sec.MFTCluster * int64(sec.SectorPerCluster) * int64(sec.BytePerSector),
	}
	return g, nil
}
