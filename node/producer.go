package node

import (
	"context"
	"errors"
	"fmt"

	"github.com/kongsikongsideveloper/WaykiChain/consensus"
)

type ProducerConfig struct {
	MaxTxPerBlock int
	// RewardTo receives RewardCoins of RewardSymbol in each produced block.
	// A null RewardTo produces blocks without a reward.
	RewardTo     consensus.UserID
	RewardSymbol string
	RewardCoins  uint64
}

func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		MaxTxPerBlock: 1024,
		RewardSymbol:  consensus.SYMBOL_WICC,
	}
}

type ProducedBlock struct {
	Height  uint64
	Hash    [32]byte
	TxCount int
	Skipped []SkippedTx
}

// SkippedTx is a candidate left out of a produced block.
type SkippedTx struct {
	Txid [32]byte
	Err  error
}

// Producer assembles blocks from candidate txs and connects them through the
// processor. Candidates that do not validate on top of the block built so far
// are skipped, not fatal.
type Producer struct {
	proc *Processor
	cfg  ProducerConfig
}

func NewProducer(proc *Processor, cfg ProducerConfig) (*Producer, error) {
	if proc == nil {
		return nil, errors.New("nil processor")
	}
	if cfg.MaxTxPerBlock <= 0 {
		cfg.MaxTxPerBlock = 1024
	}
	if cfg.MaxTxPerBlock >= maxTxsPerBlock {
		cfg.MaxTxPerBlock = maxTxsPerBlock - 1
	}
	if !cfg.RewardTo.IsNull() && cfg.RewardCoins == 0 {
		return nil, errors.New("reward recipient set without reward coins")
	}
	return &Producer{proc: proc, cfg: cfg}, nil
}

// ProduceOne builds and connects the next block from raw candidate txs.
func (pr *Producer) ProduceOne(ctx context.Context, raws [][]byte) (*ProducedBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	candidates := make([]*consensus.Tx, 0, len(raws))
	for i, raw := range raws {
		tx, _, err := consensus.DecodeTx(raw)
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		candidates = append(candidates, tx)
	}
	b, skipped, err := pr.Assemble(candidates)
	if err != nil {
		return nil, err
	}
	hash, err := pr.proc.ConnectBlock(ctx, b)
	if err != nil {
		return nil, err
	}
	return &ProducedBlock{Height: b.Height, Hash: hash, TxCount: len(b.Txs), Skipped: skipped}, nil
}

// Assemble builds the next block on the committed tip without writing it.
func (pr *Producer) Assemble(candidates []*consensus.Tx) (*Block, []SkippedTx, error) {
	db := pr.proc.db
	tip, ok, err := db.Tip()
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrNotInitialized
	}
	b := &Block{Height: tip.Height + 1, PrevHash: tip.Hash}
	overlay := consensus.NewOverlay(db)

	add := func(tx *consensus.Tx) error {
		tctx := consensus.TxContext{Height: b.Height, Index: uint16(len(b.Txs))} // #nosec G115 -- MaxTxPerBlock < 1<<16.
		if err := consensus.ValidateTx(pr.proc.crypto, pr.proc.params, tx, tctx, overlay); err != nil {
			return err
		}
		if _, err := consensus.ExecuteTx(pr.proc.crypto, tx, tctx, overlay); err != nil {
			return err
		}
		b.Txs = append(b.Txs, tx)
		return nil
	}

	if !pr.cfg.RewardTo.IsNull() {
		reward := consensus.NewCoinRewardTx(&consensus.CoinRewardTx{
			Version: 1,
			TxUID:   pr.cfg.RewardTo,
			Symbol:  pr.cfg.RewardSymbol,
			Coins:   pr.cfg.RewardCoins,
			Height:  b.Height,
		})
		if err := add(reward); err != nil {
			return nil, nil, fmt.Errorf("block reward: %w", err)
		}
	}

	var skipped []SkippedTx
	seen := make(map[[32]byte]bool, len(candidates))
	for _, tx := range candidates {
		id, err := tx.Txid()
		if err != nil {
			skipped = append(skipped, SkippedTx{Err: err})
			continue
		}
		switch {
		case len(b.Txs) >= pr.cfg.MaxTxPerBlock:
			err = errors.New("block full")
		case seen[id]:
			err = errors.New("duplicate candidate")
		case tx.Kind == consensus.TX_KIND_COIN_REWARD:
			err = errors.New("reward candidates are not accepted")
		default:
			if _, committed, rerr := db.GetUtxoTx(id); rerr != nil {
				return nil, nil, rerr
			} else if committed {
				err = errors.New("already committed")
			} else {
				err = add(tx)
			}
		}
		if err != nil {
			if consensus.IsCorrupt(err) {
				return nil, nil, err
			}
			skipped = append(skipped, SkippedTx{Txid: id, Err: err})
			continue
		}
		seen[id] = true
	}
	return b, skipped, nil
}
