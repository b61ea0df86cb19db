package consensus

import (
	"bytes"
	"encoding/hex"
	"reflect"
	"testing"
)

func sampleCoinUTXOTx() *CoinUTXOTx {
	// secp256k1 generator point, compressed.
	pub, _ := hex.DecodeString("0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798")
	return &CoinUTXOTx{
		Version:         1,
		TxUID:           NewPubKeyUID(pub),
		FeeSymbol:       SYMBOL_WICC,
		Fees:            10_000,
		ValidHeight:     77,
		Memo:            []byte("rent"),
		PriorUtxoTxid:   [32]byte{0x01, 0x02, 0x03},
		PriorUtxoSecret: []byte("preimage"),
		Utxo: CoinUTXO{
			CoinSymbol:   SYMBOL_WICC,
			CoinAmount:   5_000,
			ToUID:        NewRegIDUID(RegID{Height: 12, Index: 3}),
			LockDuration: 8,
			HTLC:         HTLCCondition{SecretHash: [32]byte{0xee}, CollectTimeout: 40},
		},
		Signature: []byte{0x30, 0x01, 0x02},
	}
}

func TestMarshalTx_NilReturnsError(t *testing.T) {
	if _, err := MarshalTx(nil); err == nil {
		t.Fatalf("expected error for nil tx")
	}
	if _, err := MarshalTx(&Tx{Kind: TX_KIND_COIN_UTXO}); err == nil {
		t.Fatalf("expected error for missing body")
	}
}

func TestMarshalTx_CoinUTXORoundtrip(t *testing.T) {
	tx := NewCoinUTXOTx(sampleCoinUTXOTx())
	b, err := MarshalTx(tx)
	if err != nil {
		t.Fatalf("MarshalTx: %v", err)
	}

	parsed, txid, n, err := ParseTx(b)
	if err != nil {
		t.Fatalf("ParseTx: %v", err)
	}
	if n != len(b) {
		t.Fatalf("consumed %d, want %d", n, len(b))
	}
	if !reflect.DeepEqual(parsed, tx) {
		t.Fatalf("roundtrip mismatch:\n got %+v\nwant %+v", parsed.CoinUTXO, tx.CoinUTXO)
	}
	want, err := tx.Txid()
	if err != nil {
		t.Fatalf("Txid: %v", err)
	}
	if txid != want {
		t.Fatalf("txid mismatch")
	}

	again, err := MarshalTx(parsed)
	if err != nil {
		t.Fatalf("MarshalTx(parsed): %v", err)
	}
	if !bytes.Equal(again, b) {
		t.Fatalf("re-encoding differs")
	}
}

func TestMarshalTx_RewardRoundtrip(t *testing.T) {
	tx := NewCoinRewardTx(&CoinRewardTx{
		Version: 1,
		TxUID:   NewKeyIDUID(KeyID{0x09}),
		Symbol:  SYMBOL_WICC,
		Coins:   1_000,
		Height:  4,
	})
	b, err := MarshalTx(tx)
	if err != nil {
		t.Fatalf("MarshalTx: %v", err)
	}
	parsed, _, err := DecodeTx(b)
	if err != nil {
		t.Fatalf("DecodeTx: %v", err)
	}
	if !reflect.DeepEqual(parsed, tx) {
		t.Fatalf("roundtrip mismatch: %+v", parsed.CoinReward)
	}
}

func TestTxid_IgnoresSignature(t *testing.T) {
	a := sampleCoinUTXOTx()
	b := sampleCoinUTXOTx()
	b.Signature = []byte{0x30, 0x09}
	ida, _ := NewCoinUTXOTx(a).Txid()
	idb, _ := NewCoinUTXOTx(b).Txid()
	if ida != idb {
		t.Fatalf("signature changed txid")
	}
	p, err := CoinUTXOTxid(testProvider, a)
	if err != nil {
		t.Fatalf("CoinUTXOTxid: %v", err)
	}
	if p != ida {
		t.Fatalf("provider txid differs from internal txid")
	}

	b.Memo = []byte("other")
	idb, _ = NewCoinUTXOTx(b).Txid()
	if ida == idb {
		t.Fatalf("memo did not change txid")
	}
}

func TestMarshalTx_NullOutputIsCompact(t *testing.T) {
	tx := sampleCoinUTXOTx()
	tx.Utxo = NullUTXO()
	b, err := MarshalTx(NewCoinUTXOTx(tx))
	if err != nil {
		t.Fatalf("MarshalTx: %v", err)
	}
	parsed, _, err := DecodeTx(b)
	if err != nil {
		t.Fatalf("DecodeTx: %v", err)
	}
	if !parsed.CoinUTXO.Utxo.IsNull {
		t.Fatalf("null output lost")
	}
}
