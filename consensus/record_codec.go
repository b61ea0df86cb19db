package consensus

import (
	"fmt"
)

// Ledger record encodings. These are storage formats, not wire formats: they
// reuse the tx field codecs but are never hashed or signed.

const (
	maxRecordItems   = 1 << 16
	maxRecordTxBytes = 1 << 20
)

const (
	deltaFlagRegIDAssigned  = 1 << 0
	deltaFlagOwnerPubKeySet = 1 << 1
	deltaFlagAccountCreated = 1 << 2
	deltaFlagLinkIndexed    = 1 << 3
)

func recordErr(what string, err error) error {
	return fmt.Errorf("%s record: %w", what, err)
}

// MarshalAccount layout:
// key_id 20 | has_regid u8 | regid u32le u16le | owner_pubkey varbytes |
// token_count cs | (symbol varbytes | free u64le | staked u64le | frozen u64le)*
// Tokens are written in symbol order.
func MarshalAccount(a *Account) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("account record: nil")
	}
	b := make([]byte, 0, 64+len(a.Tokens)*40)
	b = append(b, a.KeyID[:]...)
	if a.HasRegID {
		b = append(b, 1)
	} else {
		b = append(b, 0)
	}
	b = appendU32le(b, a.RegID.Height)
	b = appendU16le(b, a.RegID.Index)
	b = appendVarBytes(b, a.OwnerPubKey)
	syms := a.Symbols()
	b = appendCompactSize(b, uint64(len(syms)))
	for _, s := range syms {
		bal := a.Tokens[s]
		b = appendVarBytes(b, []byte(s))
		b = appendU64le(b, bal.Free)
		b = appendU64le(b, bal.Staked)
		b = appendU64le(b, bal.Frozen)
	}
	return b, nil
}

func ParseAccount(b []byte) (*Account, error) {
	off := 0
	raw, err := readBytes(b, &off, KEY_ID_BYTES)
	if err != nil {
		return nil, recordErr("account", err)
	}
	var k KeyID
	copy(k[:], raw)
	a := NewAccount(k)

	has, err := readU8(b, &off)
	if err != nil {
		return nil, recordErr("account", err)
	}
	if has > 1 {
		return nil, fmt.Errorf("account record: bad has_regid %d", has)
	}
	a.HasRegID = has == 1
	if a.RegID.Height, err = readU32le(b, &off); err != nil {
		return nil, recordErr("account", err)
	}
	if a.RegID.Index, err = readU16le(b, &off); err != nil {
		return nil, recordErr("account", err)
	}
	if a.OwnerPubKey, err = readVarBytes(b, &off, MAX_WIRE_PUBKEY_BYTES, "owner_pubkey"); err != nil {
		return nil, recordErr("account", err)
	}
	n, err := readCompactSize(b, &off)
	if err != nil {
		return nil, recordErr("account", err)
	}
	if n > maxRecordItems {
		return nil, fmt.Errorf("account record: token count %d", n)
	}
	for i := uint64(0); i < n; i++ {
		sym, err := readSymbol(b, &off, "symbol")
		if err != nil {
			return nil, recordErr("account", err)
		}
		var bal TokenBalance
		if bal.Free, err = readU64le(b, &off); err != nil {
			return nil, recordErr("account", err)
		}
		if bal.Staked, err = readU64le(b, &off); err != nil {
			return nil, recordErr("account", err)
		}
		if bal.Frozen, err = readU64le(b, &off); err != nil {
			return nil, recordErr("account", err)
		}
		a.Tokens[sym] = bal
	}
	if off != len(b) {
		return nil, fmt.Errorf("account record: trailing bytes")
	}
	return a, nil
}

// MarshalUtxoLink layout: height u64le | spent_by 32 | tx varbytes (MarshalTx).
func MarshalUtxoLink(l *UtxoLink) ([]byte, error) {
	if l == nil || l.Tx == nil {
		return nil, fmt.Errorf("link record: nil")
	}
	raw, err := MarshalTx(NewCoinUTXOTx(l.Tx))
	if err != nil {
		return nil, recordErr("link", err)
	}
	b := make([]byte, 0, 8+32+9+len(raw))
	b = appendU64le(b, l.Height)
	b = append(b, l.SpentBy[:]...)
	return appendVarBytes(b, raw), nil
}

func ParseUtxoLink(b []byte) (*UtxoLink, error) {
	off := 0
	l := &UtxoLink{}
	var err error
	if l.Height, err = readU64le(b, &off); err != nil {
		return nil, recordErr("link", err)
	}
	if l.SpentBy, err = readHash32(b, &off); err != nil {
		return nil, recordErr("link", err)
	}
	raw, err := readVarBytes(b, &off, maxRecordTxBytes, "tx")
	if err != nil {
		return nil, recordErr("link", err)
	}
	if off != len(b) {
		return nil, fmt.Errorf("link record: trailing bytes")
	}
	tx, _, err := DecodeTx(raw)
	if err != nil {
		return nil, recordErr("link", err)
	}
	if tx.Kind != TX_KIND_COIN_UTXO {
		return nil, fmt.Errorf("link record: tx kind %s", tx.Kind)
	}
	l.Tx = tx.CoinUTXO
	return l, nil
}

// MarshalReceipts layout: count cs | (from uid | to uid | symbol varbytes |
// amount u64le | code u16le)*
func MarshalReceipts(rs []Receipt) ([]byte, error) {
	return appendReceipts(nil, rs)
}

func appendReceipts(b []byte, rs []Receipt) ([]byte, error) {
	var err error
	b = appendCompactSize(b, uint64(len(rs)))
	for i := range rs {
		r := &rs[i]
		if b, err = appendUserID(b, r.FromUID); err != nil {
			return nil, recordErr("receipt", err)
		}
		if b, err = appendUserID(b, r.ToUID); err != nil {
			return nil, recordErr("receipt", err)
		}
		b = appendVarBytes(b, []byte(r.Symbol))
		b = appendU64le(b, r.Amount)
		b = appendU16le(b, uint16(r.Code))
	}
	return b, nil
}

func ParseReceipts(b []byte) ([]Receipt, error) {
	off := 0
	rs, err := readReceipts(b, &off)
	if err != nil {
		return nil, err
	}
	if off != len(b) {
		return nil, fmt.Errorf("receipt record: trailing bytes")
	}
	return rs, nil
}

func readReceipts(b []byte, off *int) ([]Receipt, error) {
	n, err := readCompactSize(b, off)
	if err != nil {
		return nil, recordErr("receipt", err)
	}
	if n > maxRecordItems {
		return nil, fmt.Errorf("receipt record: count %d", n)
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]Receipt, 0, n)
	for i := uint64(0); i < n; i++ {
		var r Receipt
		if r.FromUID, err = readUserID(b, off); err != nil {
			return nil, recordErr("receipt", err)
		}
		if r.ToUID, err = readUserID(b, off); err != nil {
			return nil, recordErr("receipt", err)
		}
		if r.Symbol, err = readSymbol(b, off, "symbol"); err != nil {
			return nil, recordErr("receipt", err)
		}
		if r.Amount, err = readU64le(b, off); err != nil {
			return nil, recordErr("receipt", err)
		}
		code, err := readU16le(b, off)
		if err != nil {
			return nil, recordErr("receipt", err)
		}
		r.Code = ReceiptCode(code)
		out = append(out, r)
	}
	return out, nil
}

// MarshalStateDelta layout:
// kind u8 | txid 32 | height u64le | sender 20 | change_count cs |
// (owner 20 | symbol varbytes | op u8 | amount u64le | created u8)* |
// flags u8 | regid u32le u16le | receipts | prior_txid 32
func MarshalStateDelta(d *StateDelta) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("delta record: nil")
	}
	b := make([]byte, 0, 128+len(d.BalanceChanges)*48)
	b = append(b, byte(d.Kind))
	b = append(b, d.Txid[:]...)
	b = appendU64le(b, d.Height)
	b = append(b, d.Sender[:]...)
	b = appendCompactSize(b, uint64(len(d.BalanceChanges)))
	for _, c := range d.BalanceChanges {
		b = append(b, c.Owner[:]...)
		b = appendVarBytes(b, []byte(c.Symbol))
		b = append(b, byte(c.Op))
		b = appendU64le(b, c.Amount)
		if c.Created {
			b = append(b, 1)
		} else {
			b = append(b, 0)
		}
	}
	var flags byte
	if d.RegIDAssigned {
		flags |= deltaFlagRegIDAssigned
	}
	if d.OwnerPubKeySet {
		flags |= deltaFlagOwnerPubKeySet
	}
	if d.AccountCreated {
		flags |= deltaFlagAccountCreated
	}
	if d.LinkIndexed {
		flags |= deltaFlagLinkIndexed
	}
	b = append(b, flags)
	b = appendU32le(b, d.RegID.Height)
	b = appendU16le(b, d.RegID.Index)
	b, err := appendReceipts(b, d.Receipts)
	if err != nil {
		return nil, err
	}
	return append(b, d.PriorTxid[:]...), nil
}

func ParseStateDelta(b []byte) (*StateDelta, error) {
	off := 0
	d, err := readStateDelta(b, &off)
	if err != nil {
		return nil, err
	}
	if off != len(b) {
		return nil, fmt.Errorf("delta record: trailing bytes")
	}
	return d, nil
}

func readStateDelta(b []byte, off *int) (*StateDelta, error) {
	d := &StateDelta{}
	kind, err := readU8(b, off)
	if err != nil {
		return nil, recordErr("delta", err)
	}
	d.Kind = TxKind(kind)
	if d.Txid, err = readHash32(b, off); err != nil {
		return nil, recordErr("delta", err)
	}
	if d.Height, err = readU64le(b, off); err != nil {
		return nil, recordErr("delta", err)
	}
	raw, err := readBytes(b, off, KEY_ID_BYTES)
	if err != nil {
		return nil, recordErr("delta", err)
	}
	copy(d.Sender[:], raw)

	n, err := readCompactSize(b, off)
	if err != nil {
		return nil, recordErr("delta", err)
	}
	if n > maxRecordItems {
		return nil, fmt.Errorf("delta record: change count %d", n)
	}
	for i := uint64(0); i < n; i++ {
		var c BalanceChange
		raw, err := readBytes(b, off, KEY_ID_BYTES)
		if err != nil {
			return nil, recordErr("delta", err)
		}
		copy(c.Owner[:], raw)
		if c.Symbol, err = readSymbol(b, off, "symbol"); err != nil {
			return nil, recordErr("delta", err)
		}
		op, err := readU8(b, off)
		if err != nil {
			return nil, recordErr("delta", err)
		}
		c.Op = BalanceOp(op)
		if c.Amount, err = readU64le(b, off); err != nil {
			return nil, recordErr("delta", err)
		}
		created, err := readU8(b, off)
		if err != nil {
			return nil, recordErr("delta", err)
		}
		if created > 1 {
			return nil, fmt.Errorf("delta record: bad created flag %d", created)
		}
		c.Created = created == 1
		d.BalanceChanges = append(d.BalanceChanges, c)
	}

	flags, err := readU8(b, off)
	if err != nil {
		return nil, recordErr("delta", err)
	}
	if flags&^(deltaFlagRegIDAssigned|deltaFlagOwnerPubKeySet|deltaFlagAccountCreated|deltaFlagLinkIndexed) != 0 {
		return nil, fmt.Errorf("delta record: unknown flags %#x", flags)
	}
	d.RegIDAssigned = flags&deltaFlagRegIDAssigned != 0
	d.OwnerPubKeySet = flags&deltaFlagOwnerPubKeySet != 0
	d.AccountCreated = flags&deltaFlagAccountCreated != 0
	d.LinkIndexed = flags&deltaFlagLinkIndexed != 0
	if d.RegID.Height, err = readU32le(b, off); err != nil {
		return nil, recordErr("delta", err)
	}
	if d.RegID.Index, err = readU16le(b, off); err != nil {
		return nil, recordErr("delta", err)
	}
	if d.Receipts, err = readReceipts(b, off); err != nil {
		return nil, err
	}
	if d.PriorTxid, err = readHash32(b, off); err != nil {
		return nil, recordErr("delta", err)
	}
	return d, nil
}

// MarshalStateDeltas encodes a block's deltas in commit order.
func MarshalStateDeltas(ds []*StateDelta) ([]byte, error) {
	b := appendCompactSize(nil, uint64(len(ds)))
	for i, d := range ds {
		raw, err := MarshalStateDelta(d)
		if err != nil {
			return nil, fmt.Errorf("delta %d: %w", i, err)
		}
		b = append(b, raw...)
	}
	return b, nil
}

func ParseStateDeltas(b []byte) ([]*StateDelta, error) {
	off := 0
	n, err := readCompactSize(b, &off)
	if err != nil {
		return nil, recordErr("delta list", err)
	}
	if n > maxRecordItems {
		return nil, fmt.Errorf("delta list record: count %d", n)
	}
	out := make([]*StateDelta, 0, n)
	for i := uint64(0); i < n; i++ {
		d, err := readStateDelta(b, &off)
		if err != nil {
			return nil, fmt.Errorf("delta %d: %w", i, err)
		}
		out = append(out, d)
	}
	if off != len(b) {
		return nil, fmt.Errorf("delta list record: trailing bytes")
	}
	return out, nil
}
