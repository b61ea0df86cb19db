package consensus

type regIDEntry struct {
	key     KeyID
	deleted bool
}

// Overlay buffers writes over a read-only base. Reads see the buffered state
// first. Mutations returns the net batch to flush into the base store.
// An Overlay is not safe for concurrent use.
type Overlay struct {
	base LedgerView

	accounts map[KeyID]*Account // nil value: deleted
	regIDs   map[RegID]regIDEntry
	links    map[[32]byte]*UtxoLink // nil value: deleted
	receipts map[[32]byte][]Receipt // nil value: deleted
}

func NewOverlay(base LedgerView) *Overlay {
	return &Overlay{
		base:     base,
		accounts: make(map[KeyID]*Account),
		regIDs:   make(map[RegID]regIDEntry),
		links:    make(map[[32]byte]*UtxoLink),
		receipts: make(map[[32]byte][]Receipt),
	}
}

func (o *Overlay) GetAccount(uid UserID) (*Account, bool, error) {
	if uid.Kind == UIDRegID {
		if e, ok := o.regIDs[uid.RegID]; ok {
			if e.deleted {
				return nil, false, nil
			}
			return o.accountByKey(e.key)
		}
		acct, ok, err := o.base.GetAccount(uid)
		if err != nil || !ok {
			return nil, false, err
		}
		if local, touched := o.accounts[acct.KeyID]; touched {
			if local == nil || !local.HasRegID || local.RegID != uid.RegID {
				return nil, false, nil
			}
			return local.Clone(), true, nil
		}
		return acct, true, nil
	}
	key, ok := uid.KeyIDHint()
	if !ok {
		return nil, false, nil
	}
	return o.accountByKey(key)
}

func (o *Overlay) accountByKey(key KeyID) (*Account, bool, error) {
	if local, touched := o.accounts[key]; touched {
		if local == nil {
			return nil, false, nil
		}
		return local.Clone(), true, nil
	}
	return o.base.GetAccount(NewKeyIDUID(key))
}

func (o *Overlay) GetUtxoTx(txid [32]byte) (*UtxoLink, bool, error) {
	if l, touched := o.links[txid]; touched {
		if l == nil {
			return nil, false, nil
		}
		return l.Clone(), true, nil
	}
	return o.base.GetUtxoTx(txid)
}

func (o *Overlay) GetTxReceipts(txid [32]byte) ([]Receipt, bool, error) {
	if rs, touched := o.receipts[txid]; touched {
		if rs == nil {
			return nil, false, nil
		}
		return append([]Receipt(nil), rs...), true, nil
	}
	return o.base.GetTxReceipts(txid)
}

func (o *Overlay) Apply(m *Mutations) error {
	if m == nil {
		return nil
	}
	for _, r := range m.DelRegIDs {
		o.regIDs[r] = regIDEntry{deleted: true}
	}
	for _, k := range m.DelAccounts {
		o.accounts[k] = nil
	}
	for _, txid := range m.DelLinks {
		o.links[txid] = nil
	}
	for _, txid := range m.DelReceipts {
		o.receipts[txid] = nil
	}
	for _, a := range m.Accounts {
		c := a.Clone()
		o.accounts[c.KeyID] = c
		if c.HasRegID {
			o.regIDs[c.RegID] = regIDEntry{key: c.KeyID}
		}
	}
	for _, lp := range m.PutLinks {
		o.links[lp.Txid] = lp.Link.Clone()
	}
	for _, rp := range m.PutReceipts {
		o.receipts[rp.Txid] = append(make([]Receipt, 0, len(rp.Receipts)), rp.Receipts...)
	}
	return nil
}

func (o *Overlay) TouchesAccount(key KeyID) bool {
	_, ok := o.accounts[key]
	return ok
}

func (o *Overlay) TouchesRegID(r RegID) bool {
	_, ok := o.regIDs[r]
	return ok
}

func (o *Overlay) TouchesLink(txid [32]byte) bool {
	_, ok := o.links[txid]
	return ok
}

// Mutations returns the net effect of everything applied so far, sorted.
func (o *Overlay) Mutations() *Mutations {
	m := &Mutations{}
	for k, a := range o.accounts {
		if a == nil {
			m.DelAccounts = append(m.DelAccounts, k)
			continue
		}
		m.Accounts = append(m.Accounts, a.Clone())
	}
	for r, e := range o.regIDs {
		if e.deleted {
			m.DelRegIDs = append(m.DelRegIDs, r)
		}
	}
	for txid, l := range o.links {
		if l == nil {
			m.DelLinks = append(m.DelLinks, txid)
			continue
		}
		m.PutLinks = append(m.PutLinks, LinkPut{Txid: txid, Link: l.Clone()})
	}
	for txid, rs := range o.receipts {
		if rs == nil {
			m.DelReceipts = append(m.DelReceipts, txid)
			continue
		}
		m.PutReceipts = append(m.PutReceipts, ReceiptPut{Txid: txid, Receipts: append([]Receipt(nil), rs...)})
	}
	m.Sort()
	return m
}
