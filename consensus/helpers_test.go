package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kongsikongsideveloper/WaykiChain/crypto"
)

var testProvider = crypto.StdCryptoProvider{}

func mustTxErrCode(t *testing.T, err error) ErrorCode {
	t.Helper()
	code, ok := CodeOf(err)
	if !ok {
		t.Fatalf("expected *TxError, got %T: %v", err, err)
	}
	return code
}

func requireCode(t *testing.T, err error, want ErrorCode) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want, mustTxErrCode(t, err), "err: %v", err)
}

type testKey struct {
	signer *crypto.Signer
	pub    []byte
	keyID  KeyID
}

func newTestKey(t *testing.T) testKey {
	t.Helper()
	s, err := crypto.GenerateSigner()
	require.NoError(t, err)
	pub := s.PubKey()
	return testKey{signer: s, pub: pub, keyID: Hash160(pub)}
}

func (k testKey) pubUID() UserID { return NewPubKeyUID(k.pub) }

func (k testKey) keyUID() UserID { return NewKeyIDUID(k.keyID) }

// seedAccount stores an account for k holding free balances; a non-empty rid
// registers it and records the owner key.
func seedAccount(t *testing.T, l *MemLedger, k testKey, rid RegID, balances map[string]uint64) *Account {
	t.Helper()
	a := NewAccount(k.keyID)
	if !rid.IsEmpty() {
		a.RegID = rid
		a.HasRegID = true
		a.OwnerPubKey = append([]byte(nil), k.pub...)
	}
	for sym, v := range balances {
		require.NoError(t, a.OperateBalance(sym, ADD_FREE, v))
	}
	l.PutAccount(a)
	return a
}

func mustAccount(t *testing.T, view AccountReader, uid UserID) *Account {
	t.Helper()
	a, ok, err := view.GetAccount(uid)
	require.NoError(t, err)
	require.True(t, ok, "account %s missing", uid)
	return a
}

func signTx(t *testing.T, k testKey, tx *CoinUTXOTx) *CoinUTXOTx {
	t.Helper()
	tx.Signature = nil
	digest, err := CoinUTXOTxid(testProvider, tx)
	require.NoError(t, err)
	tx.Signature = k.signer.Sign(digest)
	return tx
}

func txidOf(t *testing.T, tx *CoinUTXOTx) [32]byte {
	t.Helper()
	id, err := CoinUTXOTxid(testProvider, tx)
	require.NoError(t, err)
	return id
}

const testFee = 10_000

// genesisTx locks amount WICC from the sender to the beneficiary.
func genesisTx(from UserID, to UserID, amount, lock uint64, validHeight uint64) *CoinUTXOTx {
	return &CoinUTXOTx{
		Version:     1,
		TxUID:       from,
		FeeSymbol:   SYMBOL_WICC,
		Fees:        testFee,
		ValidHeight: validHeight,
		Utxo: CoinUTXO{
			CoinSymbol:   SYMBOL_WICC,
			CoinAmount:   amount,
			ToUID:        to,
			LockDuration: lock,
		},
	}
}

func claimTx(from UserID, prior [32]byte, secret []byte, out CoinUTXO, validHeight uint64) *CoinUTXOTx {
	return &CoinUTXOTx{
		Version:         1,
		TxUID:           from,
		FeeSymbol:       SYMBOL_WICC,
		Fees:            testFee,
		ValidHeight:     validHeight,
		PriorUtxoTxid:   prior,
		PriorUtxoSecret: secret,
		Utxo:            out,
	}
}

// validateAndExecute runs the two-phase protocol the way the block processor does.
func validateAndExecute(t *testing.T, l LedgerWriter, tx *CoinUTXOTx, ctx TxContext) (*StateDelta, error) {
	t.Helper()
	if err := Validate(testProvider, DefaultParams(), tx, ctx, l); err != nil {
		return nil, err
	}
	return Execute(testProvider, tx, ctx, l)
}
