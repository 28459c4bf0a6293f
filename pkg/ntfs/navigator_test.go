package ntfs

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

//buildRecord assembles a complete MFT record: header, attributes,
//terminator, then the fixup protection a real volume would carry.
func buildRecord(flags uint16, attrs ...[]byte) []byte {
	rec := make([]byte, 1024)
	copy(rec[0:], "FILE")
	binary.LittleEndian.PutUint16(rec[4:], 48) //fixup array
	binary.LittleEndian.PutUint16(rec[6:], 3)
	binary.LittleEndian.PutUint16(rec[20:], 56) //first attribute
	binary.LittleEndian.PutUint16(rec[22:], flags)
	pos := 56
	for _, a := range attrs {
		copy(rec[pos:], a)
		pos += len(a)
	}
	binary.LittleEndian.PutUint32(rec[pos:], attrTerminator)
	protect(rec, 0x0042)
	return rec
}

//buildVolume assembles a small image: 512 byte sectors, one sector per
//cluster, the MFT anchored at cluster 2 and fragmented into clusters
//2,3 and 8,9. Entry 0 is the table's own record, entry 1 a directory
//junction with two names and a reparse point.
func buildVolume() []byte {
	vol := make([]byte, 10*512)
	copy(vol[3:], "NTFS    ")
	binary.LittleEndian.PutUint16(vol[11:], 512)
	vol[13] = 1
	binary.LittleEndian.PutUint64(vol[40:], 10)
	binary.LittleEndian.PutUint64(vol[48:], 2)

	rec0 := buildRecord(recordFlagInUse,
		buildResidentAttr(AttrFileName, buildFileNameContent(5, "$MFT", NamespaceWin32DOS)),
		buildNonResidentAttr(AttrData, []byte{0x11, 0x02, 0x02, 0x11, 0x02, 0x06, 0x00}),
	)
	copy(vol[1024:], rec0)

	rec1 := buildRecord(recordFlagInUse|recordFlagDir,
		buildResidentAttr(AttrFileName, buildFileNameContent(5, "PROGRA~1", NamespaceDOS)),
		buildResidentAttr(AttrFileName, buildFileNameContent(5, "Program Files", NamespaceWin32)),
		buildResidentAttr(AttrReparsePoint, buildReparseContent(3, []byte{0xDE, 0xAD, 0xBE, 0xEF})),
	)
	copy(vol[4096:], rec1)
	return vol
}

func TestNavigatorEndToEnd(t *testing.T) {
	nav, err := NewNavigator(bytes.NewReader(buildVolume()))
	if err != nil {
		t.Fatal(err)
	}
	defer nav.Close()

	if got := nav.EntryCount(); got != 2 {
		t.Fatalf("entry count: got %d, want 2", got)
	}
	if g := nav.Geometry(); g.BytesPerCluster != 512 || g.MFTByteOffset != 1024 {
		t.Fatalf("geometry: got %+v", g)
	}

	e, err := nav.GetEntry(0)
	if err != nil {
		t.Fatal(err)
	}
	if !e.HasName || e.Name != "$MFT" {
		t.Errorf("entry 0 name: got %+v", e)
	}
	if e.HasReparse {
		t.Error("entry 0 should have no reparse point")
	}

	e, err = nav.GetEntry(1)
	if err != nil {
		t.Fatal(err)
	}
	if !e.HasName || e.Name != "Program Files" || e.Namespace != NamespaceWin32 {
		t.Errorf("entry 1 name: got %q namespace %d", e.Name, e.Namespace)
	}
	if e.ParentEntry() != 5 {
		t.Errorf("entry 1 parent: got %d, want 5", e.ParentEntry())
	}
	if !e.InUse || !e.IsDir {
		t.Errorf("entry 1 flags: got inUse=%v dir=%v", e.InUse, e.IsDir)
	}
	if !e.HasReparse || e.ReparseTag != 3 || !bytes.Equal(e.ReparseData, []byte{0xDE, 0xAD, 0xBE, 0xEF}) {
		t.Errorf("entry 1 reparse: got tag %d data % x", e.ReparseTag, e.ReparseData)
	}
	if e.Corrupt {
		t.Error("entry 1 flagged corrupt on a clean image")
	}
}

func TestOpenClosesOnSuccessAndFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "volume.img")
	if err := os.WriteFile(path, buildVolume(), 0644); err != nil {
		t.Fatal(err)
	}

	nav, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	e, err := nav.GetEntry(1)
	if err != nil {
		t.Fatal(err)
	}
	if e.Name != "Program Files" {
		t.Errorf("got %q", e.Name)
	}
	if err := nav.Close(); err != nil {
		t.Error(err)
	}

	if _, err := Open(filepath.Join(dir, "missing.img")); err == nil {
		t.Error("opening a missing image should fail")
	}

	junk := filepath.Join(dir, "junk.img")
	if err := os.WriteFile(junk, []byte("not a filesystem"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(junk); !errors.Is(err, ErrNotNTFS) {
		t.Errorf("got %v, want ErrNotNTFS", err)
	}
}

func TestGetEntryOutOfRange(t *testing.T) {
	nav, err := NewNavigator(bytes.NewReader(buildVolume()))
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range []uint64{2, 1 << 40} {
		if _, err := nav.GetEntry(entry); !errors.Is(err, ErrEntryOutOfRange) {
			t.Errorf("entry %d: got %v, want ErrEntryOutOfRange", entry, err)
		}
	}
}

func TestGetEntryShortVolume(t *testing.T) {
	//the second half of entry 1 is cut off
	nav, err := NewNavigator(bytes.NewReader(buildVolume()[:4608]))
	if err != nil {
		t.Fatal(err)
	}
	_, err = nav.GetEntry(1)
	if !errors.Is(err, io.EOF) {
		t.Errorf("got %v, want an EOF read failure", err)
	}
}

func TestGetEntryCorruptFixup(t *testing.T) {
	vol := buildVolume()
	vol[4096+510] ^= 0xFF //stale tail in entry 1's first sector
	nav, err := NewNavigator(bytes.NewReader(vol))
	if err != nil {
		t.Fatal(err)
	}
	e, err := nav.GetEntry(1)
	if err != nil {
		t.Fatal(err)
	}
	if !e.Corrupt {
		t.Error("fixup mismatch not surfaced")
	}
	if e.Name != "Program Files" {
		t.Errorf("decode should continue past the corruption, got %q", e.Name)
	}
}

func TestNewNavigatorBootstrapFailures(t *testing.T) {
	badSig := buildVolume()
	copy(badSig[1024:], "BAAD")

	noData := buildVolume()
	rec0 := buildRecord(recordFlagInUse,
		buildResidentAttr(AttrFileName, buildFileNameContent(5, "$MFT", NamespaceWin32DOS)),
	)
	copy(noData[1024:], rec0)

	residentData := buildVolume()
	rec0 = buildRecord(recordFlagInUse,
		buildResidentAttr(AttrData, []byte{1, 2, 3, 4}),
	)
	copy(residentData[1024:], rec0)

	//one run whose declared length is 2^61 clusters
	hugeRun := buildVolume()
	rec0 = buildRecord(recordFlagInUse,
		buildNonResidentAttr(AttrData, []byte{0x18, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x20, 0x02, 0x00}),
	)
	copy(hugeRun[1024:], rec0)

	//one run of one cluster at cluster 127, past the 10 cluster extent
	farRun := buildVolume()
	rec0 = buildRecord(recordFlagInUse,
		buildNonResidentAttr(AttrData, []byte{0x11, 0x01, 0x7F, 0x00}),
	)
	copy(farRun[1024:], rec0)

	for name, vol := range map[string][]byte{
		"bad signature":        badSig,
		"no $DATA":             noData,
		"resident $DATA only":  residentData,
		"oversized run length": hugeRun,
		"run outside volume":   farRun,
	} {
		if _, err := NewNavigator(bytes.NewReader(vol)); !errors.Is(err, ErrBootstrap) {
			t.Errorf("%s: got %v, want ErrBootstrap", name, err)
		}
	}
}

func TestNewNavigatorEmptyImage(t *testing.T) {
	if _, err := NewNavigator(bytes.NewReader(nil)); !errors.Is(err, ErrNotNTFS) {
		t.Errorf("got %v, want ErrNotNTFS", err)
	}
}

func TestStream(t *testing.T) {
	nav, err := NewNavigator(bytes.NewReader(buildVolume()))
	if err != nil {
		t.Fatal(err)
	}
	var got []Entry
	for e := range nav.Stream() {
		got = append(got, e)
	}
	if len(got) != 2 {
		t.Fatalf("streamed %d entries, want 2", len(got))
	}
	if got[0].Number != 0 || got[1].Number != 1 {
		t.Errorf("entries out of order: %d, %d", got[0].Number, got[1].Number)
	}
	if got[1].Name != "Program Files" {
		t.Errorf("got %q", got[1].Name)
	}
}

func TestStreamSkipsBadRecords(t *testing.T) {
	vol := buildVolume()
	copy(vol[4096:], "BAAD") //entry 1's signature
	nav, err := NewNavigator(bytes.NewReader(vol))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := nav.GetEntry(1); !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("got %v, want ErrCorruptRecord", err)
	}
	var got []Entry
	for e := range nav.Stream() {
		got = append(got, e)
	}
	if len(got) != 1 {
		t.Fatalf("streamed %d entries, want the bad slot skipped", len(got))
	}
	if got[0].Number != 0 || got[0].Name != "$MFT" {
		t.Errorf("surviving entry: %+v", got[0])
	}
}

func BenchmarkGetEntry(b *testing.B) {
	nav, err := NewNavigator(bytes.NewReader(buildVolume()))
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for n := 0; n < b.N; n++ {
		if _, err := nav.GetEntry(1); err != nil {
			b.Fatal(err)
		}
	}
}
