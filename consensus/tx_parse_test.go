package consensus

import (
	"testing"
)

func mustMarshal(t *testing.T, tx *Tx) []byte {
	t.Helper()
	b, err := MarshalTx(tx)
	if err != nil {
		t.Fatalf("MarshalTx: %v", err)
	}
	return b
}

func TestParseTx_TruncatedAtEveryOffset(t *testing.T) {
	b := mustMarshal(t, NewCoinUTXOTx(sampleCoinUTXOTx()))
	for i := 0; i < len(b); i++ {
		_, _, _, err := ParseTx(b[:i])
		if err == nil {
			t.Fatalf("prefix %d/%d parsed", i, len(b))
		}
		if got := mustTxErrCode(t, err); got != TX_ERR_PARSE {
			t.Fatalf("prefix %d: code=%s, want %s", i, got, TX_ERR_PARSE)
		}
	}
}

func TestDecodeTx_RejectsTrailingBytes(t *testing.T) {
	b := mustMarshal(t, NewCoinUTXOTx(sampleCoinUTXOTx()))
	b = append(b, 0x00)
	_, _, err := DecodeTx(b)
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := mustTxErrCode(t, err); got != TX_ERR_PARSE {
		t.Fatalf("code=%s, want %s", got, TX_ERR_PARSE)
	}

	_, _, n, err := ParseTx(b)
	if err != nil {
		t.Fatalf("ParseTx: %v", err)
	}
	if n != len(b)-1 {
		t.Fatalf("consumed %d, want %d", n, len(b)-1)
	}
}

func TestParseTx_UnknownKind(t *testing.T) {
	_, _, _, err := ParseTx([]byte{0x7e, 0x00})
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := mustTxErrCode(t, err); got != TX_ERR_UNKNOWN_KIND {
		t.Fatalf("code=%s, want %s", got, TX_ERR_UNKNOWN_KIND)
	}
}

func TestParseTx_RejectsBadFields(t *testing.T) {
	good := mustMarshal(t, NewCoinUTXOTx(sampleCoinUTXOTx()))

	// kind(1) | version(4) | uid kind(1)
	badUID := append([]byte(nil), good...)
	badUID[5] = 0x09
	if _, _, _, err := ParseTx(badUID); err == nil {
		t.Fatalf("unknown uid kind parsed")
	}

	tx := sampleCoinUTXOTx()
	tx.Memo = make([]byte, MAX_WIRE_MEMO_BYTES+1)
	if _, _, _, err := ParseTx(mustMarshal(t, NewCoinUTXOTx(tx))); err == nil {
		t.Fatalf("oversize memo parsed")
	}

	tx = sampleCoinUTXOTx()
	tx.Utxo = NullUTXO()
	b := mustMarshal(t, NewCoinUTXOTx(tx))
	// null flag sits right before the signature: flag(1) | sig len(1) | sig(3)
	b[len(b)-5] = 0x02
	if _, _, _, err := ParseTx(b); err == nil {
		t.Fatalf("bad null flag parsed")
	}
}

func TestParseTx_PolicySizedFieldsReachValidation(t *testing.T) {
	tx := sampleCoinUTXOTx()
	tx.Memo = make([]byte, MAX_MEMO_BYTES+1)
	parsed, _, err := DecodeTx(mustMarshal(t, NewCoinUTXOTx(tx)))
	if err != nil {
		t.Fatalf("DecodeTx: %v", err)
	}
	err = CheckTxBasic(DefaultParams(), parsed.CoinUTXO, TxContext{Height: 77})
	if got := mustTxErrCode(t, err); got != TX_ERR_MEMO_TOO_LARGE {
		t.Fatalf("code=%s, want %s", got, TX_ERR_MEMO_TOO_LARGE)
	}
}
