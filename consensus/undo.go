package consensus

import (
	"fmt"
)

// Undo reverts a committed CoinUTXOTx using the delta Execute returned. Callers
// must undo in strict reverse commit order; the result is one Apply.
func Undo(t *CoinUTXOTx, delta *StateDelta, ledger LedgerWriter) error {
	if t == nil || delta == nil {
		return txerr(EXEC_ERR_UNDO_MISMATCH, "nil tx or delta")
	}
	if delta.Kind != TX_KIND_COIN_UTXO {
		return txerr(EXEC_ERR_UNDO_MISMATCH, fmt.Sprintf("delta kind %s", delta.Kind))
	}
	if delta.PriorTxid != t.PriorUtxoTxid {
		return txerr(EXEC_ERR_UNDO_MISMATCH, "delta prior does not match tx")
	}

	m := &Mutations{}
	accounts, err := revertBalances(delta, ledger)
	if err != nil {
		return err
	}

	sender, ok := accounts[delta.Sender]
	if !ok {
		stored, found, err := ledger.GetAccount(NewKeyIDUID(delta.Sender))
		if err != nil {
			return corrupt("load sender account", err)
		}
		if !found {
			return txerr(EXEC_ERR_UNDO_MISMATCH, fmt.Sprintf("sender %s missing", delta.Sender))
		}
		sender = stored.Clone()
		accounts[delta.Sender] = sender
	}
	if delta.RegIDAssigned {
		if !sender.HasRegID || sender.RegID != delta.RegID {
			return txerr(EXEC_ERR_UNDO_MISMATCH, fmt.Sprintf("sender regid is not %s", delta.RegID))
		}
		sender.HasRegID = false
		sender.RegID = RegID{}
		m.DelRegIDs = append(m.DelRegIDs, delta.RegID)
	}
	if delta.OwnerPubKeySet {
		sender.OwnerPubKey = nil
	}
	for _, a := range accounts {
		m.Accounts = append(m.Accounts, a)
	}

	if len(delta.Receipts) > 0 {
		m.DelReceipts = append(m.DelReceipts, delta.Txid)
	}

	if delta.LinkIndexed {
		head, ok, err := ledger.GetUtxoTx(delta.Txid)
		if err != nil {
			return corrupt("load head link", err)
		}
		if !ok {
			return txerr(EXEC_ERR_UNDO_MISMATCH, fmt.Sprintf("link %x not indexed", delta.Txid))
		}
		if head.IsSpent() {
			return txerr(EXEC_ERR_UNDO_MISMATCH, fmt.Sprintf("link %x has a successor; undo it first", delta.Txid))
		}
		m.DelLinks = append(m.DelLinks, delta.Txid)
	}

	if !t.IsGenesis() {
		prior, ok, err := ledger.GetUtxoTx(t.PriorUtxoTxid)
		if err != nil {
			return corrupt("load prior link", err)
		}
		if !ok || prior.SpentBy != delta.Txid {
			return txerr(EXEC_ERR_UNDO_MISMATCH, fmt.Sprintf("prior %x not spent by %x", t.PriorUtxoTxid, delta.Txid))
		}
		restored := prior.Clone()
		restored.SpentBy = [32]byte{}
		m.PutLinks = append(m.PutLinks, LinkPut{Txid: t.PriorUtxoTxid, Link: restored})
	}

	m.Sort()
	if err := ledger.Apply(m); err != nil {
		return &TxError{Code: EXEC_ERR_PERSIST, Msg: "apply undo", Err: err}
	}
	return nil
}

// revertBalances applies the inverse of every recorded change, newest first,
// and drops token entries the forward pass created.
func revertBalances(delta *StateDelta, view AccountReader) (map[KeyID]*Account, error) {
	accounts := make(map[KeyID]*Account)
	for i := len(delta.BalanceChanges) - 1; i >= 0; i-- {
		c := delta.BalanceChanges[i]
		acct, ok := accounts[c.Owner]
		if !ok {
			stored, found, err := view.GetAccount(NewKeyIDUID(c.Owner))
			if err != nil {
				return nil, corrupt("load account", err)
			}
			if !found {
				return nil, txerr(EXEC_ERR_UNDO_MISMATCH, fmt.Sprintf("account %s missing", c.Owner))
			}
			acct = stored.Clone()
			accounts[c.Owner] = acct
		}
		inv := c.Op.Inverse()
		if err := acct.OperateBalance(c.Symbol, inv, c.Amount); err != nil {
			return nil, &TxError{
				Code: EXEC_ERR_UNDO_MISMATCH,
				Msg:  fmt.Sprintf("%s %d %s on %s", inv, c.Amount, c.Symbol, c.Owner),
				Err:  err,
			}
		}
		if c.Created && acct.Tokens[c.Symbol].IsZero() {
			delete(acct.Tokens, c.Symbol)
		}
	}
	return accounts, nil
}
