package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlockUndo_RoundTrip(t *testing.T) {
	u := &BlockUndo{Height: 5, PrevHash: [32]byte{4}}
	b, err := encodeBlockUndo(u)
	require.NoError(t, err)
	got, err := decodeBlockUndo(b)
	require.NoError(t, err)
	require.Equal(t, u.Height, got.Height)
	require.Equal(t, u.PrevHash, got.PrevHash)
	require.Empty(t, got.Deltas)

	_, err = decodeBlockUndo(b[:10])
	require.Error(t, err)
	_, err = decodeBlockUndo(append(b, 0))
	require.Error(t, err)
	_, err = encodeBlockUndo(nil)
	require.Error(t, err)
}

func TestTipEncoding(t *testing.T) {
	tip := Tip{Height: 1 << 40, Hash: [32]byte{1, 2, 3}}
	got, err := decodeTip(encodeTip(tip))
	require.NoError(t, err)
	require.Equal(t, tip, got)
	_, err = decodeTip([]byte{1})
	require.Error(t, err)
}
