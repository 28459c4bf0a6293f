package ntfs

import (
	"errors"
	"fmt"
	"io"

	"github.com/gomftnav/gomftnav/pkg/logger"
)

//Entry is everything GetEntry knows about one MFT record. Built fresh per
//call, it holds no references into shared state.
type Entry struct {
	Number    uint64
	HasName   bool
	Name      string
	Namespace byte
	ParentRef uint64
	InUse     bool
	IsDir     bool
	//Corrupt is set when a protected sector of the record failed its update
	//sequence check. The decoded fields are still best effort valid.
	Corrupt     bool
	HasReparse  bool
	ReparseTag  uint32
	ReparseData []byte
}

//ParentEntry strips the sequence number out of the parent reference,
//leaving the parent's MFT entry number. The reference packs the sequence
//into its top 16 bits.
func (e Entry) ParentEntry() uint64 {
	return e.ParentRef & 0xffffffffffff
}

//Navigator owns an open volume and the decoded MFT layout. Geometry and
//the sector map are built once at open time and never change afterwards,
//and every read is positioned, so GetEntry is safe to call from multiple
//goroutines.
type Navigator struct {
	vol     io.ReaderAt
	closer  io.Closer
	geom    VolumeGeometry
	sectors []int64
}

//Open maps the MFT of the volume image at path (on Windows a raw volume
//like \\.\C: works too). The file is closed again if anything about it
//fails to parse.
func Open(path string) (*Navigator, error) {
	f, err := openVolume(path)
	if err != nil {
		return nil, err
	}
	nav, err := NewNavigator(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	nav.closer = f
	return nav, nil
}

//NewNavigator maps the MFT of a volume already open for positioned reads.
//The caller keeps ownership of r and closes it itself.
func NewNavigator(r io.ReaderAt) (*Navigator, error) {
	boot := make([]byte, bootSectorSize)
	got, err := r.ReadAt(boot, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading boot sector: %w", err)
	}
	geom, err := ParseBootSector(boot[:got])
	if err != nil {
		return nil, err
	}
	sectors, corrupt, err := locateMFT(r, geom)
	if err != nil {
		return nil, err
	}
	l := logger.Logger.Sugar()
	l.Debugf("%d bytes/sector, %d sectors/cluster, MFT at byte %d", geom.BytesPerSector, geom.SectorsPerCluster, geom.MFTByteOffset)
	l.Debugf("MFT spans %d sectors, %d entries", len(sectors), uint64(len(sectors))/geom.SectorsPerEntry())
	if corrupt {
		l.Warn("MFT record 0 failed its fixup check")
	}
	return &Navigator{vol: r, geom: geom, sectors: sectors}, nil
}

//Geometry returns the volume sizing read from the boot sector.
func (n *Navigator) Geometry() VolumeGeometry { return n.geom }

//EntryCount is how many records the mapped MFT holds.
func (n *Navigator) EntryCount() uint64 {
	return uint64(len(n.sectors)) / n.geom.SectorsPerEntry()
}

//GetEntry reads one MFT record and decodes its $FILE_NAME and
//$REPARSE_POINT attributes. Either attribute may simply be absent, that is
//not an error, the matching fields stay empty.
func (n *Navigator) GetEntry(entry uint64) (Entry, error) {
	record, corrupt, err := readEntry(n.vol, n.geom, n.sectors, entry)
	if err != nil {
		return Entry{}, err
	}
	hdr, err := parseRecordHeader(record)
	if err != nil {
		return Entry{}, fmt.Errorf("entry %d: %w", entry, err)
	}
	e := Entry{
		Number:  entry,
		InUse:   hdr.Flag&recordFlagInUse != 0,
		IsDir:   hdr.Flag&recordFlagDir != 0,
		Corrupt: corrupt,
	}
	names, err := findAttributes(record, AttrFileName)
	if err != nil {
		return Entry{}, fmt.Errorf("entry %d: %w", entry, err)
	}
	if len(names) > 0 {
		v, err := decodeFileName(names)
		if err != nil {
			return Entry{}, fmt.Errorf("entry %d: %w", entry, err)
		}
		e.HasName = true
		e.Name = v.Name
		e.Namespace = v.Namespace
		e.ParentRef = v.ParentRef
	}
	reparses, err := findAttributes(record, AttrReparsePoint)
	if err != nil {
		return Entry{}, fmt.Errorf("entry %d: %w", entry, err)
	}
	if len(reparses) > 0 {
		v, err := decodeReparse(reparses[0])
		if err != nil {
			return Entry{}, fmt.Errorf("entry %d: %w", entry, err)
		}
		e.HasReparse = true
		e.ReparseTag = v.Tag
		e.ReparseData = v.Data
	}
	return e, nil
}

//Stream walks the whole table and sends every entry that decodes. Slots
//that fail to read or parse are logged at debug and skipped, the scan
//itself never stops. The channel closes once the table is done.
func (n *Navigator) Stream() <-chan Entry {
	out := make(chan Entry, 500)
	go func() {
		defer close(out)
		l := logger.Logger.Sugar()
		count := n.EntryCount()
		for i := uint64(0); i < count; i++ {
			e, err := n.GetEntry(i)
			if err != nil {
				l.Debugf("skipping entry %d: %v", i, err)
				continue
			}
			out <- e
		}
	}()
	return out
}

//Close releases the volume handle if the Navigator owns one.
func (n *Navigator) Close() error {
	if n.closer == nil {
		return nil
	}
	return n.closer.Close()
}
