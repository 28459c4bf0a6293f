package ntfs

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"golang.org/x/text/encoding/unicode"
)

//attribute type codes from the on disk format
const (
	AttrStandardInformation uint32 = 0x10
	AttrAttributeList       uint32 = 0x20
	AttrFileName            uint32 = 0x30
	AttrData                uint32 = 0x80
	AttrIndexRoot           uint32 = 0x90
	AttrReparsePoint        uint32 = 0xC0

	attrTerminator uint32 = 0xFFFFFFFF
)

//$FILE_NAME namespace tags
const (
	NamespacePOSIX    byte = 0
	NamespaceWin32    byte = 1
	NamespaceDOS      byte = 2
	NamespaceWin32DOS byte = 3
)

type AttributeHeader struct {
	TypeID, Length                uint32
	NRFlag, NameLength            byte
	NameOffset, Flag, AttributeID uint16
}

type AttributeHeaderResident struct {
	AttributeHeader AttributeHeader
	ContentLength   uint32
	ContentOffset   uint16 //usually 0x18
	IndexedFlag     byte
	Padding         byte
}

type AttributeHeaderNonResident struct {
	AttributeHeader             AttributeHeader
	StartingVCN, LastVCN        int64
	DataRunOffset, CompressSize uint16
	Padding                     uint32
	AllocatedSize,
	RealSize,
	InitialisedDataSize int64
}

const (
	residentHeaderSize    = 24
	nonResidentHeaderSize = 64
)

//findAttributes returns every attribute record of the wanted type, whole
//(header included), in disk order. The walk starts at the entry header's
//first attribute offset and ends at the 0xFFFFFFFF terminator. An absent
//type is not an error, the result is just empty.
func findAttributes(record []byte, typeID uint32) ([][]byte, error) {
	if len(record) < 22 {
		return nil, fmt.Errorf("%w: %d byte record", ErrCorruptRecord, len(record))
	}
	pos := int(binary.LittleEndian.Uint16(record[20:22]))
	var found [][]byte
	for {
		if pos+8 > len(record) {
			return nil, fmt.Errorf("%w: walk ran past record end at %d", ErrBadAttribute, pos)
		}
		typ := binary.LittleEndian.Uint32(record[pos:])
		if typ == attrTerminator {
			return found, nil
		}
		length := int(binary.LittleEndian.Uint32(record[pos+4:]))
		if length == 0 {
			return nil, fmt.Errorf("%w: zero length attribute at %d", ErrBadAttribute, pos)
		}
		if pos+length > len(record) {
			return nil, fmt.Errorf("%w: attribute at %d overruns record", ErrBadAttribute, pos)
		}
		if typ == typeID {
			found = append(found, record[pos:pos+length])
		}
		pos += length
	}
}

//residentContent slices the value bytes out of a resident attribute.
func residentContent(attr []byte) ([]byte, error) {
	if len(attr) < residentHeaderSize {
		return nil, fmt.Errorf("%w: %d byte attribute header", ErrBadAttribute, len(attr))
	}
	hdr := AttributeHeaderResident{}
	if err := binary.Read(bytes.NewReader(attr[:residentHeaderSize]), binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadAttribute, err)
	}
	if hdr.AttributeHeader.NRFlag != 0 {
		return nil, fmt.Errorf("%w: attribute 0x%x is non resident", ErrBadAttribute, hdr.AttributeHeader.TypeID)
	}
	start := int(hdr.ContentOffset)
	end := start + int(hdr.ContentLength)
	if start < residentHeaderSize || end > len(attr) {
		return nil, fmt.Errorf("%w: content %d..%d outside %d byte attribute", ErrBadAttribute, start, end, len(attr))
	}
	return attr[start:end], nil
}

//FileNameContent is the fixed prefix of a $FILE_NAME value. The name text
//follows it directly.
type FileNameContent struct {
	ParentDirectory uint64
	DateCreated,
	DateModified,
	DateMFTModified,
	DateAccessed int64
	LogicalSize, DiskSize int64
	Flag                  uint32
	ReparseValue          uint32
	NameLength            byte
	NameType              byte
}

const fileNameContentSize = 66

//FileNameValue is a decoded $FILE_NAME attribute.
type FileNameValue struct {
	Name      string
	Namespace byte
	ParentRef uint64
}

//decodeFileName picks the best of an entry's name attributes and decodes
//it. Objects usually carry one name per namespace; a Win32 or combined
//Win32+DOS name wins over a POSIX or DOS only one, and the first found wins
//among equals.
func decodeFileName(attrs [][]byte) (FileNameValue, error) {
	var best FileNameValue
	bestRank := -1
	for _, attr := range attrs {
		content, err := residentContent(attr)
		if err != nil {
			return FileNameValue{}, err
		}
		v, err := decodeOneFileName(content)
		if err != nil {
			return FileNameValue{}, err
		}
		rank := namespaceRank(v.Namespace)
		if bestRank == -1 || rank < bestRank {
			best, bestRank = v, rank
		}
	}
	if bestRank == -1 {
		return FileNameValue{}, fmt.Errorf("%w: no name attribute given", ErrBadAttribute)
	}
	return best, nil
}

func decodeOneFileName(content []byte) (FileNameValue, error) {
	if len(content) < fileNameContentSize {
		return FileNameValue{}, fmt.Errorf("%w: %d byte name value", ErrBadAttribute, len(content))
	}
	hdr := FileNameContent{}
	if err := binary.Read(bytes.NewReader(content[:fileNameContentSize]), binary.LittleEndian, &hdr); err != nil {
		return FileNameValue{}, fmt.Errorf("%w: %v", ErrBadAttribute, err)
	}
	end := fileNameContentSize + int(hdr.NameLength)*2
	if end > len(content) {
		return FileNameValue{}, fmt.Errorf("%w: name text overruns %d byte value", ErrBadAttribute, len(content))
	}
	name, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().String(string(content[fileNameContentSize:end]))
	if err != nil {
		return FileNameValue{}, fmt.Errorf("%w: name is not UTF-16: %v", ErrBadAttribute, err)
	}
	return FileNameValue{
		Name:      name,
		Namespace: hdr.NameType,
		ParentRef: hdr.ParentDirectory,
	}, nil
}

func namespaceRank(ns byte) int {
	if ns == NamespaceWin32 || ns == NamespaceWin32DOS {
		return 0
	}
	return 1
}

//ReparseValue is a decoded $REPARSE_POINT attribute.
type ReparseValue struct {
	Tag  uint32
	Data []byte
}

//decodeReparse unpacks a reparse point value: tag, data length, two
//reserved bytes, then the data itself.
func decodeReparse(attr []byte) (ReparseValue, error) {
	content, err := residentContent(attr)
	if err != nil {
		return ReparseValue{}, err
	}
	if len(content) < 8 {
		return ReparseValue{}, fmt.Errorf("%w: %d byte reparse value", ErrBadAttribute, len(content))
	}
	tag := binary.LittleEndian.Uint32(content[0:4])
	size := int(binary.LittleEndian.Uint16(content[4:6]))
	if 8+size > len(content) {
		return ReparseValue{}, fmt.Errorf("%w: reparse data %d bytes, value holds %d", ErrBadAttribute, size, len(content)-8)
	}
	data := make([]byte, size)
	copy(data, content[8:8+size])
	return ReparseValue{Tag: tag, Data: data}, nil
}
