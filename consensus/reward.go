package consensus

import (
	"fmt"

	"github.com/kongsikongsideveloper/WaykiChain/crypto"
)

// ValidateReward checks a block reward. It must sit at index 0 of the block it
// names and credit a positive amount of a known symbol.
func ValidateReward(params *Params, r *CoinRewardTx, ctx TxContext, view LedgerView) error {
	if r == nil {
		return txerr(TX_ERR_PARSE, "nil tx")
	}
	if ctx.Index != 0 {
		return txerr(TX_ERR_BAD_REWARD, fmt.Sprintf("reward at index %d", ctx.Index))
	}
	if r.Height != ctx.Height {
		return txerr(TX_ERR_BAD_REWARD, fmt.Sprintf("reward height %d in block %d", r.Height, ctx.Height))
	}
	if r.Coins == 0 {
		return txerr(TX_ERR_BAD_REWARD, "zero reward")
	}
	if !params.IsCoinSymbol(r.Symbol) {
		return txerr(TX_ERR_BAD_SYMBOL, fmt.Sprintf("reward symbol %q", r.Symbol))
	}
	switch r.TxUID.Kind {
	case UIDPubKey:
		if !crypto.IsFullyValidPubKey(r.TxUID.PubKey) {
			return txerr(TX_ERR_BAD_PUBKEY, "reward pubkey")
		}
		return nil
	case UIDRegID:
		_, ok, err := view.GetAccount(r.TxUID)
		if err != nil {
			return corrupt("load reward account", err)
		}
		if !ok {
			return txerr(TX_ERR_ACCOUNT_MISSING, fmt.Sprintf("reward to %s", r.TxUID))
		}
		return nil
	default:
		return txerr(TX_ERR_BAD_UID, "reward recipient must be a regid or a pubkey")
	}
}

func ExecuteReward(r *CoinRewardTx, ctx TxContext, ledger LedgerWriter) (*StateDelta, error) {
	if r == nil {
		return nil, txerr(TX_ERR_PARSE, "nil tx")
	}
	tx := NewCoinRewardTx(r)
	txid, err := tx.Txid()
	if err != nil {
		return nil, txerr(TX_ERR_PARSE, err.Error())
	}

	if _, applied, err := ledger.GetTxReceipts(txid); err != nil {
		return nil, corrupt("load reward receipts", err)
	} else if applied {
		return nil, txerr(EXEC_ERR_DUPLICATE_TX, fmt.Sprintf("reward %x already applied", txid))
	}

	delta := &StateDelta{Kind: TX_KIND_COIN_REWARD, Txid: txid, Height: ctx.Height}

	stored, ok, err := ledger.GetAccount(r.TxUID)
	if err != nil {
		return nil, corrupt("load reward account", err)
	}
	var acct *Account
	switch {
	case ok:
		acct = stored.Clone()
	case r.TxUID.Kind == UIDPubKey:
		acct = NewAccount(Hash160(r.TxUID.PubKey))
		delta.AccountCreated = true
	default:
		return nil, txerr(EXEC_ERR_ACCOUNT_MISSING, fmt.Sprintf("reward to %s", r.TxUID))
	}
	delta.Sender = acct.KeyID

	if r.TxUID.Kind == UIDPubKey {
		if err := registerSender(acct, r.TxUID.PubKey, ctx, ledger, delta); err != nil {
			return nil, err
		}
	}
	if err := delta.applyBalance(acct, r.Symbol, ADD_FREE, r.Coins, EXEC_ERR_BALANCE_OVERFLOW); err != nil {
		return nil, err
	}
	delta.Receipts = []Receipt{{
		ToUID:  r.TxUID,
		Symbol: r.Symbol,
		Amount: r.Coins,
		Code:   RECEIPT_BLOCK_REWARD,
	}}

	m := &Mutations{
		Accounts:    []*Account{acct},
		PutReceipts: []ReceiptPut{{Txid: txid, Receipts: delta.Receipts}},
	}
	if err := ledger.Apply(m); err != nil {
		return nil, &TxError{Code: EXEC_ERR_PERSIST, Msg: "apply reward", Err: err}
	}
	return delta, nil
}

func UndoReward(r *CoinRewardTx, delta *StateDelta, ledger LedgerWriter) error {
	if r == nil || delta == nil {
		return txerr(EXEC_ERR_UNDO_MISMATCH, "nil tx or delta")
	}
	if delta.Kind != TX_KIND_COIN_REWARD {
		return txerr(EXEC_ERR_UNDO_MISMATCH, fmt.Sprintf("delta kind %s", delta.Kind))
	}
	// Receipts are dropped on undo, so their absence means the reward is not applied.
	if _, ok, err := ledger.GetTxReceipts(delta.Txid); err != nil {
		return corrupt("load reward receipts", err)
	} else if !ok {
		return txerr(EXEC_ERR_UNDO_MISMATCH, fmt.Sprintf("reward %x is not applied", delta.Txid))
	}
	accounts, err := revertBalances(delta, ledger)
	if err != nil {
		return err
	}
	acct, ok := accounts[delta.Sender]
	if !ok {
		return txerr(EXEC_ERR_UNDO_MISMATCH, "reward delta has no credit")
	}

	m := &Mutations{DelReceipts: [][32]byte{delta.Txid}}
	if delta.RegIDAssigned {
		m.DelRegIDs = append(m.DelRegIDs, delta.RegID)
	}
	if delta.AccountCreated {
		for sym, bal := range acct.Tokens {
			if !bal.IsZero() {
				return txerr(EXEC_ERR_UNDO_MISMATCH, fmt.Sprintf("created account still holds %s", sym))
			}
		}
		m.DelAccounts = append(m.DelAccounts, acct.KeyID)
	} else {
		if delta.RegIDAssigned {
			acct.HasRegID = false
			acct.RegID = RegID{}
		}
		if delta.OwnerPubKeySet {
			acct.OwnerPubKey = nil
		}
		m.Accounts = append(m.Accounts, acct)
	}

	if err := ledger.Apply(m); err != nil {
		return &TxError{Code: EXEC_ERR_PERSIST, Msg: "apply reward undo", Err: err}
	}
	return nil
}
