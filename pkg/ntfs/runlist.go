package ntfs

import "fmt"

//Run is one extent of a non resident attribute, in allocation units
//(clusters). Offset is absolute, the signed deltas in the encoding have
//already been summed by the decoder. A sparse run covers length units but
//has no physical location at all.
type Run struct {
	Offset int64
	Length uint64
	Sparse bool
}

//DecodeRunlist unpacks the variable length extent encoding used by non
//resident attributes. Each run starts with a header byte whose low nibble
//gives the size of the length field and high nibble the size of the offset
//field, followed by that many bytes of unsigned length then two's
//complement offset delta, both little endian. Offsets accumulate run to
//run. A zero header byte ends the list and an offset size of zero marks a
//sparse run.
func DecodeRunlist(b []byte) ([]Run, error) {
	var runs []Run
	offset := int64(0)
	pos := 0
	for pos < len(b) && b[pos] != 0x00 {
		h := b[pos]
		lenSize := int(h & 0x0f)
		offSize := int(h >> 4)
		pos++
		if lenSize == 0 || lenSize > 8 || offSize > 8 {
			return nil, fmt.Errorf("%w: header nibbles %d/%d", ErrBadRunlist, lenSize, offSize)
		}
		if pos+lenSize+offSize > len(b) {
			return nil, fmt.Errorf("%w: truncated run at byte %d", ErrBadRunlist, pos-1)
		}
		length := uint64(0)
		for i := 0; i < lenSize; i++ {
			length |= uint64(b[pos+i]) << (8 * uint(i))
		}
		pos += lenSize
		if length == 0 {
			return nil, fmt.Errorf("%w: zero length run", ErrBadRunlist)
		}
		if offSize == 0 {
			runs = append(runs, Run{Length: length, Sparse: true})
			continue
		}
		delta := uint64(0)
		for i := 0; i < offSize; i++ {
			delta |= uint64(b[pos+i]) << (8 * uint(i))
		}
		pos += offSize
		shift := uint(64 - 8*offSize)
		offset += int64(delta<<shift) >> shift
		runs = append(runs, Run{Offset: offset, Length: length})
	}
	return runs, nil
}

//UnitAddresses flattens runs into the absolute address of every allocation
//unit they cover, in order. Sparse runs contribute nothing.
func UnitAddresses(runs []Run) []int64 {
	total := uint64(0)
	for _, r := range runs {
		if !r.Sparse {
			total += r.Length
		}
	}
	units := make([]int64, 0, total)
	for _, r := range runs {
		if r.Sparse {
			continue
		}
		for i := uint64(0); i < r.Length; i++ {
			units = append(units, r.Offset+int64(i))
		}
	}
	return units
}
