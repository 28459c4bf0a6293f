package ntfs

import (
	"encoding/binary"
	"errors"
	"testing"
)

func bootBytes(bps uint16, spc uint8, total, mftCluster uint64) []byte {
	b := make([]byte, 512)
	copy(b[3:], "NTFS    ")
	binary.LittleEndian.PutUint16(b[11:], bps)
	b[13] = spc
	binary.LittleEndian.PutUint64(b[40:], total)
	binary.LittleEndian.PutUint64(b[48:], mftCluster)
	return b
}

func TestParseBootSector(t *testing.T) {
	g, err := ParseBootSector(bootBytes(512, 8, 16777216, 786432))
	if err != nil {
		t.Fatal(err)
	}
	if g.BytesPerSector != 512 || g.SectorsPerCluster != 8 {
		t.Errorf("sizing: got %d/%d", g.BytesPerSector, g.SectorsPerCluster)
	}
	if g.BytesPerCluster != 4096 {
		t.Errorf("bytes per cluster: got %d, want 4096", g.BytesPerCluster)
	}
	if g.TotalSectors != 16777216 {
		t.Errorf("total sectors: got %d, want 16777216", g.TotalSectors)
	}
	if g.MFTByteOffset != 3221225472 {
		t.Errorf("MFT offset: got %d, want 3221225472", g.MFTByteOffset)
	}
	if g.BytesPerEntry != 1024 {
		t.Errorf("bytes per entry: got %d, want 1024", g.BytesPerEntry)
	}
	if g.SectorsPerEntry() != 2 {
		t.Errorf("sectors per entry: got %d, want 2", g.SectorsPerEntry())
	}
}

func TestParseBootSectorRejectsBadInput(t *testing.T) {
	wrongOEM := bootBytes(512, 8, 16777216, 786432)
	copy(wrongOEM[3:], "EXFAT   ")

	cases := map[string][]byte{
		"short buffer":       bootBytes(512, 8, 64, 4)[:200],
		"zero sector size":   bootBytes(0, 8, 64, 4),
		"zero cluster size":  bootBytes(512, 0, 64, 4),
		"odd sector size":    bootBytes(4096, 1, 64, 4),
		"wrong OEM label":    wrongOEM,
		"zero total sectors": bootBytes(512, 8, 0, 4),
		"MFT outside volume": bootBytes(512, 8, 64, 100),
	}
	for name, b := range cases {
		if _, err := ParseBootSector(b); !errors.Is(err, ErrNotNTFS) {
			t.Errorf("%s: got %v, want ErrNotNTFS", name, err)
		}
	}
}
