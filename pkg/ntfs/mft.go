package ntfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

//RecordHeader is the fixed header at the front of every MFT record.
type RecordHeader struct {
	Signature [4]byte
	UpdateOffset,
	UpdateNumber uint16
	LogFile int64
	SequenceNumber,
	HardLinkCount,
	AttributeOffset,
	Flag uint16
	UsedSize,
	AllocatedSize uint32
	BaseRecord      int64
	NextAttributeID uint16
	Unused          [2]byte
	MFTRecord       uint32
}

//record header flag bits
const (
	recordFlagInUse = 0x0001
	recordFlagDir   = 0x0002
)

var recordSignature = []byte("FILE")

func parseRecordHeader(record []byte) (RecordHeader, error) {
	hdr := RecordHeader{}
	if err := binary.Read(bytes.NewReader(record), binary.LittleEndian, &hdr); err != nil {
		return hdr, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return hdr, nil
}

//locateMFT bootstraps the full sector map of the MFT. Record 0 always sits
//whole and contiguous at the boot sector's MFT offset, and its own $DATA
//runlist says where the rest of the table lives. Every run must fit the
//volume extent the boot sector declared before the map is built. Decoded
//cluster addresses are expanded to per sector addresses so a fragmented
//table reads the same way as a contiguous one.
func locateMFT(vol io.ReaderAt, geom VolumeGeometry) ([]int64, bool, error) {
	raw := make([]byte, geom.BytesPerEntry)
	if _, err := vol.ReadAt(raw, geom.MFTByteOffset); err != nil {
		return nil, false, fmt.Errorf("reading MFT record 0 at %d: %w", geom.MFTByteOffset, err)
	}
	record, corrupt, err := applyFixup(raw)
	if err != nil {
		return nil, false, fmt.Errorf("%w: record 0: %v", ErrBootstrap, err)
	}
	if !bytes.Equal(record[:4], recordSignature) {
		return nil, corrupt, fmt.Errorf("%w: record 0 signature %q", ErrBootstrap, record[:4])
	}
	attrs, err := findAttributes(record, AttrData)
	if err != nil {
		return nil, corrupt, fmt.Errorf("%w: record 0: %v", ErrBootstrap, err)
	}
	var runlist []byte
	for _, attr := range attrs {
		if len(attr) < nonResidentHeaderSize || attr[8] == 0 {
			continue
		}
		hdr := AttributeHeaderNonResident{}
		if err := binary.Read(bytes.NewReader(attr[:nonResidentHeaderSize]), binary.LittleEndian, &hdr); err != nil {
			return nil, corrupt, fmt.Errorf("%w: record 0 $DATA header: %v", ErrBootstrap, err)
		}
		off := int(hdr.DataRunOffset)
		if off < nonResidentHeaderSize || off > len(attr) {
			return nil, corrupt, fmt.Errorf("%w: record 0 $DATA runlist offset %d", ErrBootstrap, off)
		}
		runlist = attr[off:]
		break
	}
	if runlist == nil {
		return nil, corrupt, fmt.Errorf("%w: record 0 has no non resident $DATA", ErrBootstrap)
	}
	runs, err := DecodeRunlist(runlist)
	if err != nil {
		return nil, corrupt, fmt.Errorf("%w: record 0 $DATA: %v", ErrBootstrap, err)
	}
	//the table's runs must sit inside the volume the boot sector describes
	clusterCount := geom.TotalSectors / int64(geom.SectorsPerCluster)
	var mapped uint64
	for _, r := range runs {
		if r.Length > uint64(clusterCount) || mapped+r.Length > uint64(clusterCount) {
			return nil, corrupt, fmt.Errorf("%w: record 0 $DATA maps %d+%d clusters, volume holds %d", ErrBootstrap, mapped, r.Length, clusterCount)
		}
		mapped += r.Length
		if r.Sparse {
			continue
		}
		if r.Offset < 0 || r.Offset > clusterCount-int64(r.Length) {
			return nil, corrupt, fmt.Errorf("%w: record 0 $DATA run at cluster %d outside volume", ErrBootstrap, r.Offset)
		}
	}
	clusters := UnitAddresses(runs)
	sectors := make([]int64, 0, len(clusters)*int(geom.SectorsPerCluster))
	for _, c := range clusters {
		base := c * int64(geom.SectorsPerCluster)
		for s := 0; s < int(geom.SectorsPerCluster); s++ {
			sectors = append(sectors, base+int64(s))
		}
	}
	return sectors, corrupt, nil
}

//readEntry assembles the raw record for one entry from the MFT sector map
//and applies the fixup. Indices into the map are logical, the map values
//are absolute volume sectors, so fragmentation never shows up here. Each
//sector is read with its own positioned read, no seek state is shared.
func readEntry(vol io.ReaderAt, geom VolumeGeometry, sectors []int64, entry uint64) ([]byte, bool, error) {
	per := geom.SectorsPerEntry()
	count := uint64(len(sectors)) / per
	if entry >= count {
		return nil, false, fmt.Errorf("%w: entry %d of %d", ErrEntryOutOfRange, entry, count)
	}
	bps := int64(geom.BytesPerSector)
	raw := make([]byte, geom.BytesPerEntry)
	for i := uint64(0); i < per; i++ {
		sector := sectors[entry*per+i]
		chunk := raw[int64(i)*bps : (int64(i)+1)*bps]
		if _, err := vol.ReadAt(chunk, sector*bps); err != nil {
			return nil, false, fmt.Errorf("reading entry %d sector %d: %w", entry, sector, err)
		}
	}
	record, corrupt, err := applyFixup(raw)
	if err != nil {
		return nil, false, fmt.Errorf("entry %d: %w", entry, err)
	}
	if !bytes.Equal(record[:4], recordSignature) {
		return nil, corrupt, fmt.Errorf("%w: entry %d signature %q", ErrCorruptRecord, entry, record[:4])
	}
	return record, corrupt, nil
}
