package consensus

import "fmt"

type ReceiptCode uint16

const (
	RECEIPT_BLOCK_REWARD        ReceiptCode = 1
	RECEIPT_TRANSFER_UTXO_COINS ReceiptCode = 35
)

func (c ReceiptCode) String() string {
	switch c {
	case RECEIPT_BLOCK_REWARD:
		return "BLOCK_REWARD_TO_MINER"
	case RECEIPT_TRANSFER_UTXO_COINS:
		return "TRANSFER_UTXO_COINS"
	default:
		return fmt.Sprintf("ReceiptCode(%d)", uint16(c))
	}
}

// Receipt records a value movement for explorers and audit. Receipts are
// informational and never read back by validation.
type Receipt struct {
	FromUID UserID
	ToUID   UserID
	Symbol  string
	Amount  uint64
	Code    ReceiptCode
}

func (r Receipt) String() string {
	return fmt.Sprintf("%s %s -> %s %d %s", r.Code, r.FromUID, r.ToUID, r.Amount, r.Symbol)
}
