package consensus

import (
	"encoding/hex"
	"fmt"

	"github.com/kongsikongsideveloper/WaykiChain/crypto"
)

// CheckTxBasic runs the context-free checks plus the valid-height window.
// It reads no ledger state.
func CheckTxBasic(params *Params, t *CoinUTXOTx, ctx TxContext) error {
	if t == nil {
		return txerr(TX_ERR_PARSE, "nil tx")
	}
	switch t.TxUID.Kind {
	case UIDRegID:
		if t.TxUID.RegID.IsEmpty() {
			return txerr(TX_ERR_BAD_UID, "empty sender regid")
		}
	case UIDPubKey:
		if !crypto.IsFullyValidPubKey(t.TxUID.PubKey) {
			return txerr(TX_ERR_BAD_PUBKEY, "sender pubkey is not a valid compressed secp256k1 key")
		}
	default:
		return txerr(TX_ERR_BAD_UID, "sender must be a regid or a pubkey")
	}

	if len(t.Memo) > params.MaxMemoBytes {
		return txerr(TX_ERR_MEMO_TOO_LARGE, fmt.Sprintf("memo %d bytes, max %d", len(t.Memo), params.MaxMemoBytes))
	}
	if len(t.PriorUtxoSecret) > params.MaxSecretBytes {
		return txerr(TX_ERR_SECRET_TOO_LARGE, fmt.Sprintf("secret %d bytes, max %d", len(t.PriorUtxoSecret), params.MaxSecretBytes))
	}

	minFee, ok := params.MinFee(t.FeeSymbol)
	if !ok {
		return txerr(TX_ERR_BAD_FEE, fmt.Sprintf("fee symbol %q not accepted", t.FeeSymbol))
	}
	if t.Fees < minFee {
		return txerr(TX_ERR_BAD_FEE, fmt.Sprintf("fee %d below minimum %d", t.Fees, minFee))
	}

	if !t.Utxo.IsNull {
		if !params.IsCoinSymbol(t.Utxo.CoinSymbol) {
			return txerr(TX_ERR_BAD_SYMBOL, fmt.Sprintf("coin symbol %q", t.Utxo.CoinSymbol))
		}
		if err := checkBeneficiary(t.Utxo.ToUID); err != nil {
			return err
		}
	}

	return checkValidHeight(params, t.ValidHeight, ctx.Height)
}

func checkBeneficiary(u UserID) error {
	switch u.Kind {
	case UIDRegID:
		if u.RegID.IsEmpty() {
			return txerr(TX_ERR_BAD_UID, "empty beneficiary regid")
		}
	case UIDKeyID:
		if u.KeyID.IsZero() {
			return txerr(TX_ERR_BAD_UID, "zero beneficiary keyid")
		}
	case UIDPubKey:
		if !crypto.IsFullyValidPubKey(u.PubKey) {
			return txerr(TX_ERR_BAD_PUBKEY, "beneficiary pubkey is not a valid compressed secp256k1 key")
		}
	default:
		return txerr(TX_ERR_BAD_UID, "missing beneficiary")
	}
	return nil
}

func checkValidHeight(params *Params, validHeight, height uint64) error {
	half := params.TxCacheHeight / 2
	if validHeight > satAdd(height, half) {
		return txerr(TX_ERR_BAD_VALID_HEIGHT, fmt.Sprintf("valid height %d too far above %d", validHeight, height))
	}
	if height > half && validHeight < height-half {
		return txerr(TX_ERR_BAD_VALID_HEIGHT, fmt.Sprintf("valid height %d too far below %d", validHeight, height))
	}
	return nil
}

// Validate decides whether t may be committed at ctx against view. It never
// mutates the ledger. Rejections carry TX_ERR_* codes; a ledger that cannot be
// read or holds inconsistent links yields STATE_ERR_CORRUPT.
func Validate(p crypto.CryptoProvider, params *Params, t *CoinUTXOTx, ctx TxContext, view LedgerView) error {
	if err := CheckTxBasic(params, t, ctx); err != nil {
		return err
	}
	txid, err := CoinUTXOTxid(p, t)
	if err != nil {
		return txerr(TX_ERR_PARSE, err.Error())
	}
	if _, committed, err := view.GetUtxoTx(txid); err != nil {
		return corrupt("load own link", err)
	} else if committed {
		return txerr(TX_ERR_DUPLICATE_TX, hex.EncodeToString(txid[:]))
	}

	acct, ok, err := view.GetAccount(t.TxUID)
	if err != nil {
		return corrupt("load sender account", err)
	}
	if !ok {
		return txerr(TX_ERR_ACCOUNT_MISSING, fmt.Sprintf("sender %s", t.TxUID))
	}

	if t.IsGenesis() {
		if err := checkGenesisLink(t, acct); err != nil {
			return err
		}
	} else {
		if err := checkContinuationLink(p, t, ctx, view); err != nil {
			return err
		}
	}

	return checkSignature(p, t, acct)
}

func checkGenesisLink(t *CoinUTXOTx, acct *Account) error {
	if t.Utxo.IsNull {
		return txerr(TX_ERR_UTXO_NULL, "genesis link must create an output")
	}
	if t.Utxo.CoinAmount == 0 {
		return txerr(TX_ERR_ZERO_AMOUNT, "genesis output amount is zero")
	}
	free := acct.GetBalance(t.Utxo.CoinSymbol, FREE_VALUE)
	if free < t.Utxo.CoinAmount {
		return txerr(TX_ERR_INSUFFICIENT_BALANCE,
			fmt.Sprintf("free %d %s < %d", free, t.Utxo.CoinSymbol, t.Utxo.CoinAmount))
	}
	return nil
}

// ResolvePriorLink loads the single prior link of t and checks that the stored
// record is consistent with the key it was found under.
func ResolvePriorLink(p crypto.CryptoProvider, t *CoinUTXOTx, ctx TxContext, view UtxoChainReader) (*UtxoLink, error) {
	link, ok, err := view.GetUtxoTx(t.PriorUtxoTxid)
	if err != nil {
		return nil, corrupt("load prior link", err)
	}
	if !ok {
		return nil, txerr(TX_ERR_MISSING_PRIOR_LINK, hex.EncodeToString(t.PriorUtxoTxid[:]))
	}
	if link == nil || link.Tx == nil {
		return nil, corrupt("prior link has no transaction", nil)
	}
	txid, err := CoinUTXOTxid(p, link.Tx)
	if err != nil {
		return nil, corrupt("encode prior link", err)
	}
	if txid != t.PriorUtxoTxid {
		return nil, corrupt(fmt.Sprintf("prior link stored under %x hashes to %x", t.PriorUtxoTxid, txid), nil)
	}
	if link.Height > ctx.Height {
		return nil, corrupt(fmt.Sprintf("prior link committed at %d above current height %d", link.Height, ctx.Height), nil)
	}
	return link, nil
}

func checkContinuationLink(p crypto.CryptoProvider, t *CoinUTXOTx, ctx TxContext, view LedgerView) error {
	link, err := ResolvePriorLink(p, t, ctx, view)
	if err != nil {
		return err
	}
	if link.IsSpent() {
		return txerr(TX_ERR_PRIOR_LINK_SPENT, fmt.Sprintf("spent by %x", link.SpentBy))
	}
	prior := link.Tx
	out := &prior.Utxo
	if out.IsNull {
		return txerr(TX_ERR_PRIOR_LINK_TERMINAL, "prior link has no output")
	}
	if unlock := out.UnlockHeight(link.Height); ctx.Height < unlock {
		return txerr(TX_ERR_PRIOR_LINK_LOCKED, fmt.Sprintf("height %d < unlock height %d", ctx.Height, unlock))
	}

	isBeneficiary, err := SameOwner(view, t.TxUID, out.ToUID)
	if err != nil {
		return corrupt("resolve beneficiary", err)
	}
	isReclaim := false
	if !isBeneficiary {
		if isReclaim, err = SameOwner(view, t.TxUID, prior.TxUID); err != nil {
			return corrupt("resolve prior sender", err)
		}
	}

	if out.HTLC.HashLocked() && !isReclaim {
		digest := SecretDigest(p, prior.TxUID, t.PriorUtxoSecret, prior.ValidHeight)
		if digest != out.HTLC.SecretHash {
			return txerr(TX_ERR_WRONG_SECRET, "secret does not open the hash lock")
		}
	}

	reclaimAt := out.ReclaimHeight(link.Height)
	switch {
	case isReclaim && ctx.Height < reclaimAt:
		return txerr(TX_ERR_PRIOR_LINK_NOT_RECLAIMABLE,
			fmt.Sprintf("height %d < reclaim height %d", ctx.Height, reclaimAt))
	case isBeneficiary && out.HTLC.HashLocked() && out.HTLC.CollectTimeout > 0 && ctx.Height >= reclaimAt:
		return txerr(TX_ERR_PRIOR_LINK_EXPIRED,
			fmt.Sprintf("height %d >= collect deadline %d", ctx.Height, reclaimAt))
	case !isBeneficiary && !isReclaim:
		return txerr(TX_ERR_WRONG_CLAIMANT, fmt.Sprintf("sender %s is neither beneficiary nor locker", t.TxUID))
	}

	if t.Utxo.IsNull {
		return nil
	}
	if t.Utxo.CoinAmount == 0 {
		return txerr(TX_ERR_ZERO_AMOUNT, "output amount is zero")
	}
	if t.Utxo.CoinAmount > out.CoinAmount {
		return txerr(TX_ERR_INSUFFICIENT_PRIOR_FUNDS,
			fmt.Sprintf("output %d > prior %d", t.Utxo.CoinAmount, out.CoinAmount))
	}
	if t.Utxo.CoinSymbol != out.CoinSymbol {
		return txerr(TX_ERR_SYMBOL_MISMATCH,
			fmt.Sprintf("output symbol %s, prior %s", t.Utxo.CoinSymbol, out.CoinSymbol))
	}
	return nil
}

// SenderPubKey returns the key that must have signed t: the carried pubkey, or
// the owner key recorded on the sender account.
func SenderPubKey(t *CoinUTXOTx, acct *Account) ([]byte, error) {
	if t.TxUID.Kind == UIDPubKey {
		return t.TxUID.PubKey, nil
	}
	if len(acct.OwnerPubKey) == 0 {
		return nil, txerr(TX_ERR_SIG_INVALID, fmt.Sprintf("account %s has no owner pubkey", t.TxUID))
	}
	if Hash160(acct.OwnerPubKey) != acct.KeyID {
		return nil, corrupt(fmt.Sprintf("account %s owner pubkey does not match keyid", acct.KeyID), nil)
	}
	return acct.OwnerPubKey, nil
}

func checkSignature(p crypto.CryptoProvider, t *CoinUTXOTx, acct *Account) error {
	pub, err := SenderPubKey(t, acct)
	if err != nil {
		return err
	}
	digest, err := CoinUTXOTxid(p, t)
	if err != nil {
		return txerr(TX_ERR_PARSE, err.Error())
	}
	if !p.VerifySecp256k1(pub, t.Signature, digest) {
		return txerr(TX_ERR_SIG_INVALID, "signature does not verify")
	}
	return nil
}
