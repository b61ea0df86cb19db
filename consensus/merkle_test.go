package consensus

import "testing"

func TestMerkleRootTxids_Empty(t *testing.T) {
	if root := MerkleRootTxids(nil); root != ([32]byte{}) {
		t.Fatalf("empty root must be zero")
	}
}

func TestMerkleRootTxids_Single(t *testing.T) {
	txid := [32]byte{0x01}
	root := MerkleRootTxids([][32]byte{txid})

	var pre [1 + 32]byte
	pre[0] = 0x00
	copy(pre[1:], txid[:])
	want := sha3_256(pre[:])
	if root != want {
		t.Fatalf("root mismatch")
	}
}

func TestMerkleRootTxids_Two(t *testing.T) {
	txid1 := [32]byte{0x01}
	txid2 := [32]byte{0x02}
	root := MerkleRootTxids([][32]byte{txid1, txid2})

	var leaf [1 + 32]byte
	copy(leaf[1:], txid1[:])
	l1 := sha3_256(leaf[:])
	copy(leaf[1:], txid2[:])
	l2 := sha3_256(leaf[:])

	var node [1 + 32 + 32]byte
	node[0] = 0x01
	copy(node[1:33], l1[:])
	copy(node[33:], l2[:])
	if root != sha3_256(node[:]) {
		t.Fatalf("root mismatch")
	}
}

func TestMerkleRootTxids_OddPromotesLast(t *testing.T) {
	ids := [][32]byte{{0x01}, {0x02}, {0x03}}
	root3 := MerkleRootTxids(ids)
	root2 := MerkleRootTxids(ids[:2])

	var leaf [1 + 32]byte
	copy(leaf[1:], ids[2][:])
	l3 := sha3_256(leaf[:])

	var node [1 + 32 + 32]byte
	node[0] = 0x01
	copy(node[1:33], root2[:])
	copy(node[33:], l3[:])
	if root3 != sha3_256(node[:]) {
		t.Fatalf("odd promotion mismatch")
	}
}
