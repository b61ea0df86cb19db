package consensus

import (
	"errors"
	"fmt"
	"sort"
)

type BalanceCategory uint8

const (
	FREE_VALUE BalanceCategory = iota
	STAKED_VALUE
	FROZEN_VALUE
)

type BalanceOp uint8

const (
	ADD_FREE BalanceOp = iota + 1
	SUB_FREE
	STAKE
	UNSTAKE
	FREEZE
	UNFREEZE
)

func (op BalanceOp) String() string {
	switch op {
	case ADD_FREE:
		return "ADD_FREE"
	case SUB_FREE:
		return "SUB_FREE"
	case STAKE:
		return "STAKE"
	case UNSTAKE:
		return "UNSTAKE"
	case FREEZE:
		return "FREEZE"
	case UNFREEZE:
		return "UNFREEZE"
	default:
		return fmt.Sprintf("BalanceOp(%d)", uint8(op))
	}
}

// Inverse returns the op that undoes op for the same amount.
func (op BalanceOp) Inverse() BalanceOp {
	switch op {
	case ADD_FREE:
		return SUB_FREE
	case SUB_FREE:
		return ADD_FREE
	case STAKE:
		return UNSTAKE
	case UNSTAKE:
		return STAKE
	case FREEZE:
		return UNFREEZE
	case UNFREEZE:
		return FREEZE
	default:
		return 0
	}
}

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBalanceOverflow   = errors.New("balance overflow")
	ErrUnknownBalanceOp  = errors.New("unknown balance op")
)

type TokenBalance struct {
	Free   uint64
	Staked uint64
	Frozen uint64
}

func (t TokenBalance) IsZero() bool { return t == TokenBalance{} }

type Account struct {
	KeyID       KeyID
	RegID       RegID
	HasRegID    bool
	OwnerPubKey []byte
	Tokens      map[string]TokenBalance
}

func NewAccount(keyID KeyID) *Account {
	return &Account{KeyID: keyID, Tokens: make(map[string]TokenBalance)}
}

func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	out := &Account{
		KeyID:       a.KeyID,
		RegID:       a.RegID,
		HasRegID:    a.HasRegID,
		OwnerPubKey: append([]byte(nil), a.OwnerPubKey...),
		Tokens:      make(map[string]TokenBalance, len(a.Tokens)),
	}
	if len(a.OwnerPubKey) == 0 {
		out.OwnerPubKey = nil
	}
	for sym, bal := range a.Tokens {
		out.Tokens[sym] = bal
	}
	return out
}

// UID is the preferred identity of the account: its RegID once registered.
func (a *Account) UID() UserID {
	if a.HasRegID {
		return NewRegIDUID(a.RegID)
	}
	return NewKeyIDUID(a.KeyID)
}

func (a *Account) GetBalance(symbol string, cat BalanceCategory) uint64 {
	bal := a.Tokens[symbol]
	switch cat {
	case FREE_VALUE:
		return bal.Free
	case STAKED_VALUE:
		return bal.Staked
	case FROZEN_VALUE:
		return bal.Frozen
	default:
		return 0
	}
}

// Symbols returns the token symbols held, sorted.
func (a *Account) Symbols() []string {
	out := make([]string, 0, len(a.Tokens))
	for sym := range a.Tokens {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// OperateBalance applies op to the symbol's balances. On error the account is unchanged.
// Entries are never removed, so a debit followed by the inverse credit is exact.
func (a *Account) OperateBalance(symbol string, op BalanceOp, amount uint64) error {
	if a.Tokens == nil {
		a.Tokens = make(map[string]TokenBalance)
	}
	bal := a.Tokens[symbol]
	var err error
	switch op {
	case ADD_FREE:
		bal.Free, err = addBalance(bal.Free, amount)
	case SUB_FREE:
		bal.Free, err = subBalance(bal.Free, amount)
	case STAKE:
		if bal.Free, err = subBalance(bal.Free, amount); err == nil {
			bal.Staked, err = addBalance(bal.Staked, amount)
		}
	case UNSTAKE:
		if bal.Staked, err = subBalance(bal.Staked, amount); err == nil {
			bal.Free, err = addBalance(bal.Free, amount)
		}
	case FREEZE:
		if bal.Free, err = subBalance(bal.Free, amount); err == nil {
			bal.Frozen, err = addBalance(bal.Frozen, amount)
		}
	case UNFREEZE:
		if bal.Frozen, err = subBalance(bal.Frozen, amount); err == nil {
			bal.Free, err = addBalance(bal.Free, amount)
		}
	default:
		return ErrUnknownBalanceOp
	}
	if err != nil {
		return err
	}
	a.Tokens[symbol] = bal
	return nil
}

func addBalance(a, b uint64) (uint64, error) {
	if b > ^uint64(0)-a {
		return 0, ErrBalanceOverflow
	}
	return a + b, nil
}

func subBalance(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrInsufficientFunds
	}
	return a - b, nil
}
