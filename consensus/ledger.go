package consensus

import (
	"bytes"
	"sort"
)

// UtxoLink is a committed CoinUTXOTx as the chain index stores it.
// SpentBy is the txid of the committed successor, zero while unspent.
type UtxoLink struct {
	Height  uint64
	Tx      *CoinUTXOTx
	SpentBy [32]byte
}

func (l *UtxoLink) IsSpent() bool { return l.SpentBy != [32]byte{} }

func (l *UtxoLink) Clone() *UtxoLink {
	if l == nil {
		return nil
	}
	out := *l
	return &out
}

type AccountReader interface {
	// GetAccount resolves any identity form to its account.
	GetAccount(uid UserID) (*Account, bool, error)
}

type UtxoChainReader interface {
	GetUtxoTx(txid [32]byte) (*UtxoLink, bool, error)
}

type ReceiptReader interface {
	GetTxReceipts(txid [32]byte) ([]Receipt, bool, error)
}

// LedgerView is the read capability handed to validation.
type LedgerView interface {
	AccountReader
	UtxoChainReader
	ReceiptReader
}

// LedgerWriter adds the single atomic write path used by execution and undo.
type LedgerWriter interface {
	LedgerView
	Apply(m *Mutations) error
}

type LinkPut struct {
	Txid [32]byte
	Link *UtxoLink
}

type ReceiptPut struct {
	Txid     [32]byte
	Receipts []Receipt
}

// Mutations is one atomic batch against the ledger. Deletes apply before
// puts. Accounts are written whole and their RegID index entry follows the
// account; DelRegIDs removes entries for RegIDs no account carries any more.
type Mutations struct {
	Accounts    []*Account
	DelAccounts []KeyID
	DelRegIDs   []RegID
	PutLinks    []LinkPut
	DelLinks    [][32]byte
	PutReceipts []ReceiptPut
	DelReceipts [][32]byte
}

func (m *Mutations) IsEmpty() bool {
	return m == nil || (len(m.Accounts) == 0 && len(m.DelAccounts) == 0 && len(m.DelRegIDs) == 0 &&
		len(m.PutLinks) == 0 && len(m.DelLinks) == 0 && len(m.PutReceipts) == 0 && len(m.DelReceipts) == 0)
}

// Sort orders every list by key so stores write in a deterministic order.
func (m *Mutations) Sort() {
	sort.Slice(m.Accounts, func(i, j int) bool {
		return bytes.Compare(m.Accounts[i].KeyID[:], m.Accounts[j].KeyID[:]) < 0
	})
	sort.Slice(m.DelAccounts, func(i, j int) bool {
		return bytes.Compare(m.DelAccounts[i][:], m.DelAccounts[j][:]) < 0
	})
	sort.Slice(m.DelRegIDs, func(i, j int) bool {
		return bytes.Compare(m.DelRegIDs[i].Bytes(), m.DelRegIDs[j].Bytes()) < 0
	})
	sort.Slice(m.PutLinks, func(i, j int) bool {
		return bytes.Compare(m.PutLinks[i].Txid[:], m.PutLinks[j].Txid[:]) < 0
	})
	sort.Slice(m.DelLinks, func(i, j int) bool {
		return bytes.Compare(m.DelLinks[i][:], m.DelLinks[j][:]) < 0
	})
	sort.Slice(m.PutReceipts, func(i, j int) bool {
		return bytes.Compare(m.PutReceipts[i].Txid[:], m.PutReceipts[j].Txid[:]) < 0
	})
	sort.Slice(m.DelReceipts, func(i, j int) bool {
		return bytes.Compare(m.DelReceipts[i][:], m.DelReceipts[j][:]) < 0
	})
}
