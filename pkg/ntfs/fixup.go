package ntfs

import (
	"encoding/binary"
	"fmt"
)

//NTFS protects multi sector records in 512 byte units regardless of the
//volume sector size.
const fixupStride = 512

//applyFixup restores the last two bytes of every protected 512 byte chunk
//of a record from its update sequence array. Entry 0 of the array is the
//sequence number that was stamped over those bytes, entries 1..n-1 hold the
//true values. The input is never modified; the returned buffer is a
//corrected copy. A stamped value that doesn't match the sequence number
//marks the record corrupt, restoration still happens and the caller decides
//what to do with the flag.
func applyFixup(raw []byte) (fixed []byte, corrupt bool, err error) {
	if len(raw) < 8 {
		return nil, false, fmt.Errorf("%w: %d byte record", ErrCorruptRecord, len(raw))
	}
	off := int(binary.LittleEndian.Uint16(raw[4:6]))
	count := int(binary.LittleEndian.Uint16(raw[6:8]))
	if count == 0 {
		return nil, false, fmt.Errorf("%w: empty fixup array", ErrCorruptRecord)
	}
	if off+2*count > len(raw) {
		return nil, false, fmt.Errorf("%w: fixup array at %d overruns %d byte record", ErrCorruptRecord, off, len(raw))
	}
	if (count-1)*fixupStride > len(raw) {
		return nil, false, fmt.Errorf("%w: fixup count %d covers more than %d bytes", ErrCorruptRecord, count, len(raw))
	}
	fixed = make([]byte, len(raw))
	copy(fixed, raw)
	usn := binary.LittleEndian.Uint16(raw[off:])
	for i := 1; i < count; i++ {
		end := i * fixupStride
		if binary.LittleEndian.Uint16(fixed[end-2:]) != usn {
			corrupt = true
		}
		fixed[end-2] = raw[off+2*i]
		fixed[end-1] = raw[off+2*i+1]
	}
	return fixed, corrupt, nil
}
