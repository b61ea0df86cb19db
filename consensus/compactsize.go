package consensus

import "encoding/binary"

// CompactSize is the length prefix used by every variable-size wire field.
type CompactSize uint64

func (c CompactSize) Encode() []byte {
	return appendCompactSize(nil, uint64(c))
}

// DecodeCompactSize decodes one value from the front of b and returns it with
// the number of bytes consumed. Non-minimal encodings are rejected.
func DecodeCompactSize(b []byte) (CompactSize, int, error) {
	if len(b) < 1 {
		return 0, 0, txerr(TX_ERR_PARSE, "compactsize: empty")
	}
	tag := b[0]
	switch {
	case tag < 0xfd:
		return CompactSize(tag), 1, nil
	case tag == 0xfd:
		if len(b) < 3 {
			return 0, 0, txerr(TX_ERR_PARSE, "compactsize: truncated u16")
		}
		n := uint64(binary.LittleEndian.Uint16(b[1:3]))
		if n < 0xfd {
			return 0, 0, txerr(TX_ERR_PARSE, "compactsize: non-minimal u16")
		}
		return CompactSize(n), 3, nil
	case tag == 0xfe:
		if len(b) < 5 {
			return 0, 0, txerr(TX_ERR_PARSE, "compactsize: truncated u32")
		}
		n := uint64(binary.LittleEndian.Uint32(b[1:5]))
		if n < 0x1_0000 {
			return 0, 0, txerr(TX_ERR_PARSE, "compactsize: non-minimal u32")
		}
		return CompactSize(n), 5, nil
	default: // 0xff
		if len(b) < 9 {
			return 0, 0, txerr(TX_ERR_PARSE, "compactsize: truncated u64")
		}
		n := binary.LittleEndian.Uint64(b[1:9])
		if n < 0x1_0000_0000 {
			return 0, 0, txerr(TX_ERR_PARSE, "compactsize: non-minimal u64")
		}
		return CompactSize(n), 9, nil
	}
}
