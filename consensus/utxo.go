package consensus

import "fmt"

// HTLCCondition adds a hash-lock and a reclaim timeout to an output.
// A zero SecretHash disables the hash-lock.
type HTLCCondition struct {
	SecretHash     [32]byte
	CollectTimeout uint64
}

func (h HTLCCondition) HashLocked() bool { return h.SecretHash != [32]byte{} }

// CoinUTXO is the single output of a CoinUTXOTx. A null output ends the chain.
type CoinUTXO struct {
	IsNull       bool
	CoinSymbol   string
	CoinAmount   uint64
	ToUID        UserID
	LockDuration uint64
	HTLC         HTLCCondition
}

func NullUTXO() CoinUTXO { return CoinUTXO{IsNull: true} }

// UnlockHeight is the first height at which the output may be spent.
func (u *CoinUTXO) UnlockHeight(committedAt uint64) uint64 {
	return satAdd(committedAt, u.LockDuration)
}

// ReclaimHeight is the first height at which the locking party may take the
// output back, and the height from which a hash-locked collect expires.
func (u *CoinUTXO) ReclaimHeight(committedAt uint64) uint64 {
	return satAdd(u.UnlockHeight(committedAt), u.HTLC.CollectTimeout)
}

func (u *CoinUTXO) String() string {
	if u.IsNull {
		return "null"
	}
	return fmt.Sprintf("%d %s to=%s lock=%d hashlock=%t timeout=%d",
		u.CoinAmount, u.CoinSymbol, u.ToUID, u.LockDuration, u.HTLC.HashLocked(), u.HTLC.CollectTimeout)
}

func satAdd(a, b uint64) uint64 {
	if b > ^uint64(0)-a {
		return ^uint64(0)
	}
	return a + b
}
