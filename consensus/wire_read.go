package consensus

import (
	"encoding/binary"
	"fmt"
)

func readU8(b []byte, off *int) (uint8, error) {
	if *off+1 > len(b) {
		return 0, txerr(TX_ERR_PARSE, "unexpected EOF (u8)")
	}
	v := b[*off]
	*off++
	return v, nil
}

func readU16le(b []byte, off *int) (uint16, error) {
	if *off+2 > len(b) {
		return 0, txerr(TX_ERR_PARSE, "unexpected EOF (u16le)")
	}
	v := binary.LittleEndian.Uint16(b[*off : *off+2])
	*off += 2
	return v, nil
}

func readU32le(b []byte, off *int) (uint32, error) {
	if *off+4 > len(b) {
		return 0, txerr(TX_ERR_PARSE, "unexpected EOF (u32le)")
	}
	v := binary.LittleEndian.Uint32(b[*off : *off+4])
	*off += 4
	return v, nil
}

func readU64le(b []byte, off *int) (uint64, error) {
	if *off+8 > len(b) {
		return 0, txerr(TX_ERR_PARSE, "unexpected EOF (u64le)")
	}
	v := binary.LittleEndian.Uint64(b[*off : *off+8])
	*off += 8
	return v, nil
}

func readBytes(b []byte, off *int, n int) ([]byte, error) {
	if n < 0 {
		return nil, txerr(TX_ERR_PARSE, "negative length")
	}
	if *off+n > len(b) {
		return nil, txerr(TX_ERR_PARSE, "unexpected EOF (bytes)")
	}
	v := b[*off : *off+n]
	*off += n
	return v, nil
}

func readCompactSize(b []byte, off *int) (uint64, error) {
	if *off > len(b) {
		return 0, txerr(TX_ERR_PARSE, "unexpected EOF (compactsize)")
	}
	cs, used, err := DecodeCompactSize(b[*off:])
	if err != nil {
		return 0, err
	}
	*off += used
	return uint64(cs), nil
}

// readVarBytes reads a CompactSize-prefixed field of at most max bytes and
// returns a copy detached from b.
func readVarBytes(b []byte, off *int, max uint64, name string) ([]byte, error) {
	n, err := readCompactSize(b, off)
	if err != nil {
		return nil, err
	}
	if n > max {
		return nil, txerr(TX_ERR_PARSE, fmt.Sprintf("%s length %d exceeds %d", name, n, max))
	}
	v, err := readBytes(b, off, int(n))
	if err != nil {
		return nil, err
	}
	if len(v) == 0 {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func readHash32(b []byte, off *int) ([32]byte, error) {
	var h [32]byte
	v, err := readBytes(b, off, 32)
	if err != nil {
		return h, err
	}
	copy(h[:], v)
	return h, nil
}
