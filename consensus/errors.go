package consensus

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorCode string

const (
	TX_ERR_PARSE                      ErrorCode = "TX_ERR_PARSE"
	TX_ERR_BAD_UID                    ErrorCode = "TX_ERR_BAD_UID"
	TX_ERR_BAD_PUBKEY                 ErrorCode = "TX_ERR_BAD_PUBKEY"
	TX_ERR_MEMO_TOO_LARGE             ErrorCode = "TX_ERR_MEMO_TOO_LARGE"
	TX_ERR_SECRET_TOO_LARGE           ErrorCode = "TX_ERR_SECRET_TOO_LARGE"
	TX_ERR_BAD_FEE                    ErrorCode = "TX_ERR_BAD_FEE"
	TX_ERR_BAD_SYMBOL                 ErrorCode = "TX_ERR_BAD_SYMBOL"
	TX_ERR_BAD_VALID_HEIGHT           ErrorCode = "TX_ERR_BAD_VALID_HEIGHT"
	TX_ERR_ACCOUNT_MISSING            ErrorCode = "TX_ERR_ACCOUNT_MISSING"
	TX_ERR_UTXO_NULL                  ErrorCode = "TX_ERR_UTXO_NULL"
	TX_ERR_ZERO_AMOUNT                ErrorCode = "TX_ERR_ZERO_AMOUNT"
	TX_ERR_INSUFFICIENT_BALANCE       ErrorCode = "TX_ERR_INSUFFICIENT_BALANCE"
	TX_ERR_MISSING_PRIOR_LINK         ErrorCode = "TX_ERR_MISSING_PRIOR_LINK"
	TX_ERR_PRIOR_LINK_SPENT           ErrorCode = "TX_ERR_PRIOR_LINK_SPENT"
	TX_ERR_PRIOR_LINK_TERMINAL        ErrorCode = "TX_ERR_PRIOR_LINK_TERMINAL"
	TX_ERR_PRIOR_LINK_LOCKED          ErrorCode = "TX_ERR_PRIOR_LINK_LOCKED"
	TX_ERR_WRONG_SECRET               ErrorCode = "TX_ERR_WRONG_SECRET"
	TX_ERR_PRIOR_LINK_NOT_RECLAIMABLE ErrorCode = "TX_ERR_PRIOR_LINK_NOT_RECLAIMABLE"
	TX_ERR_PRIOR_LINK_EXPIRED         ErrorCode = "TX_ERR_PRIOR_LINK_EXPIRED"
	TX_ERR_WRONG_CLAIMANT             ErrorCode = "TX_ERR_WRONG_CLAIMANT"
	TX_ERR_INSUFFICIENT_PRIOR_FUNDS   ErrorCode = "TX_ERR_INSUFFICIENT_PRIOR_FUNDS"
	TX_ERR_SYMBOL_MISMATCH            ErrorCode = "TX_ERR_SYMBOL_MISMATCH"
	TX_ERR_SIG_INVALID                ErrorCode = "TX_ERR_SIG_INVALID"
	TX_ERR_BAD_REWARD                 ErrorCode = "TX_ERR_BAD_REWARD"
	TX_ERR_UNKNOWN_KIND               ErrorCode = "TX_ERR_UNKNOWN_KIND"
	TX_ERR_DUPLICATE_TX               ErrorCode = "TX_ERR_DUPLICATE_TX"

	EXEC_ERR_ACCOUNT_MISSING           ErrorCode = "EXEC_ERR_ACCOUNT_MISSING"
	EXEC_ERR_REGID_TAKEN               ErrorCode = "EXEC_ERR_REGID_TAKEN"
	EXEC_ERR_INSUFFICIENT_FEE          ErrorCode = "EXEC_ERR_INSUFFICIENT_FEE"
	EXEC_ERR_INSUFFICIENT_LOCKED_FUNDS ErrorCode = "EXEC_ERR_INSUFFICIENT_LOCKED_FUNDS"
	EXEC_ERR_PRIOR_LINK_DIVERGED       ErrorCode = "EXEC_ERR_PRIOR_LINK_DIVERGED"
	EXEC_ERR_DUPLICATE_TX              ErrorCode = "EXEC_ERR_DUPLICATE_TX"
	EXEC_ERR_BALANCE_OVERFLOW          ErrorCode = "EXEC_ERR_BALANCE_OVERFLOW"
	EXEC_ERR_UNDO_MISMATCH             ErrorCode = "EXEC_ERR_UNDO_MISMATCH"
	EXEC_ERR_PERSIST                   ErrorCode = "EXEC_ERR_PERSIST"

	STATE_ERR_CORRUPT ErrorCode = "STATE_ERR_CORRUPT"
)

// ErrorClass separates validation rejections from execution faults and
// integrity faults of the persisted ledger.
type ErrorClass uint8

const (
	ClassRejection ErrorClass = iota
	ClassExecution
	ClassCorrupt
)

func (c ErrorClass) String() string {
	switch c {
	case ClassRejection:
		return "rejection"
	case ClassExecution:
		return "execution"
	case ClassCorrupt:
		return "corrupt"
	default:
		return fmt.Sprintf("class(%d)", uint8(c))
	}
}

// legacyReasons are the short reject strings peers and explorers already know.
var legacyReasons = map[ErrorCode]string{
	TX_ERR_BAD_PUBKEY:                  "bad-publickey",
	TX_ERR_MEMO_TOO_LARGE:              "memo-size-toolarge",
	TX_ERR_BAD_FEE:                     "bad-tx-fee-toosmall",
	TX_ERR_BAD_VALID_HEIGHT:            "tx-invalid-height",
	TX_ERR_ACCOUNT_MISSING:             "bad-getaccount",
	TX_ERR_UTXO_NULL:                   "utxo-is-null",
	TX_ERR_ZERO_AMOUNT:                 "zero-utxo-coin-amount",
	TX_ERR_INSUFFICIENT_BALANCE:        "insufficient-account-coin-amount",
	TX_ERR_MISSING_PRIOR_LINK:          "load-prior-utxo-err",
	TX_ERR_PRIOR_LINK_TERMINAL:         "prior-utxo-null-err",
	TX_ERR_PRIOR_LINK_LOCKED:           "prior-utxo-locked-err",
	TX_ERR_WRONG_SECRET:                "wrong-secret-to-prior-utxo",
	TX_ERR_PRIOR_LINK_NOT_RECLAIMABLE:  "prior-utxo-not-timeout",
	TX_ERR_WRONG_CLAIMANT:              "priro-utxo-wrong-txUid",
	TX_ERR_INSUFFICIENT_PRIOR_FUNDS:    "prior-utxo-fund-insufficient",
	TX_ERR_SIG_INVALID:                 "bad-tx-signature",
	TX_ERR_DUPLICATE_TX:                "tx-duplicate-confirmed",
	EXEC_ERR_ACCOUNT_MISSING:           "bad-read-accountdb",
	EXEC_ERR_INSUFFICIENT_FEE:          "insufficient-coin_amount",
	EXEC_ERR_INSUFFICIENT_LOCKED_FUNDS: "insufficient-fund-utxo",
}

type TxError struct {
	Code ErrorCode
	Msg  string
	Err  error
}

func (e *TxError) Error() string {
	if e == nil {
		return "<nil>"
	}
	s := string(e.Code)
	if e.Msg != "" {
		s = fmt.Sprintf("%s: %s", e.Code, e.Msg)
	}
	if e.Err != nil {
		s = fmt.Sprintf("%s: %v", s, e.Err)
	}
	return s
}

func (e *TxError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *TxError) Class() ErrorClass {
	switch {
	case e == nil:
		return ClassRejection
	case e.Code == STATE_ERR_CORRUPT:
		return ClassCorrupt
	case strings.HasPrefix(string(e.Code), "EXEC_ERR_"):
		return ClassExecution
	default:
		return ClassRejection
	}
}

// RejectReason returns the short legacy reason string for the code, or the
// lower-cased code when no legacy string exists.
func (e *TxError) RejectReason() string {
	if e == nil {
		return ""
	}
	if r, ok := legacyReasons[e.Code]; ok {
		return r
	}
	return strings.ToLower(strings.ReplaceAll(string(e.Code), "_", "-"))
}

// CodeOf extracts the ErrorCode carried by err, if any.
func CodeOf(err error) (ErrorCode, bool) {
	var te *TxError
	if errors.As(err, &te) {
		return te.Code, true
	}
	return "", false
}

// IsCorrupt reports whether err signals damaged ledger state rather than a bad transaction.
func IsCorrupt(err error) bool {
	var te *TxError
	return errors.As(err, &te) && te.Class() == ClassCorrupt
}

func txerr(code ErrorCode, msg string) error {
	return &TxError{Code: code, Msg: msg}
}

func corrupt(msg string, cause error) error {
	return &TxError{Code: STATE_ERR_CORRUPT, Msg: msg, Err: cause}
}
