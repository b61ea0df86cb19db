package consensus

type emptyLedger struct{}

func (emptyLedger) GetAccount(UserID) (*Account, bool, error)       { return nil, false, nil }
func (emptyLedger) GetUtxoTx([32]byte) (*UtxoLink, bool, error)     { return nil, false, nil }
func (emptyLedger) GetTxReceipts([32]byte) ([]Receipt, bool, error) { return nil, false, nil }

// MemLedger is a self-contained in-memory ledger.
type MemLedger struct {
	*Overlay
}

func NewMemLedger() *MemLedger {
	return &MemLedger{Overlay: NewOverlay(emptyLedger{})}
}

// PutAccount stores a copy of a, replacing any account with the same KeyID.
func (l *MemLedger) PutAccount(a *Account) {
	_ = l.Apply(&Mutations{Accounts: []*Account{a}})
}
