package node

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/kongsikongsideveloper/WaykiChain/consensus"
	"github.com/kongsikongsideveloper/WaykiChain/crypto"
	"github.com/kongsikongsideveloper/WaykiChain/node/store"
)

const maxTxsPerBlock = 1 << 16 // tx index is a u16

var (
	ErrNotInitialized = errors.New("ledger not initialized; run init first")
	ErrBadParent      = errors.New("block does not extend the tip")
	ErrBadBlock       = errors.New("malformed block")
)

// BlockError names the tx that made a block fail. Index is -1 for faults of
// the block as a whole.
type BlockError struct {
	Index int
	Txid  [32]byte
	Err   error
}

func (e *BlockError) Error() string {
	if e.Index < 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("tx %d (%x): %v", e.Index, e.Txid, e.Err)
}

func (e *BlockError) Unwrap() error { return e.Err }

type ProcessorOptions struct {
	Params  *consensus.Params
	Crypto  crypto.CryptoProvider
	Logger  *Logger
	Workers int
}

// Stats are lifetime counters of one Processor.
type Stats struct {
	BlocksConnected    uint64
	BlocksDisconnected uint64
	TxExecuted         uint64
	TxRejected         uint64
	TxRevalidated      uint64
	TxUndone           uint64
}

// Processor connects and disconnects blocks against the store. It is the
// single writer: one block operation runs at a time.
type Processor struct {
	mu      sync.Mutex
	db      *store.DB
	params  *consensus.Params
	crypto  crypto.CryptoProvider
	log     *Logger
	workers int

	connected    atomic.Uint64
	disconnected atomic.Uint64
	executed     atomic.Uint64
	rejected     atomic.Uint64
	revalidated  atomic.Uint64
	undone       atomic.Uint64
}

func NewProcessor(db *store.DB, opts ProcessorOptions) *Processor {
	initPrometheusMetrics()
	if opts.Params == nil {
		opts.Params = consensus.DefaultParams()
	}
	if opts.Crypto == nil {
		opts.Crypto = crypto.StdCryptoProvider{}
	}
	if opts.Logger == nil {
		opts.Logger = NopLogger()
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Processor{
		db:      db,
		params:  opts.Params,
		crypto:  opts.Crypto,
		log:     opts.Logger,
		workers: opts.Workers,
	}
}

func (p *Processor) Stats() Stats {
	return Stats{
		BlocksConnected:    p.connected.Load(),
		BlocksDisconnected: p.disconnected.Load(),
		TxExecuted:         p.executed.Load(),
		TxRejected:         p.rejected.Load(),
		TxRevalidated:      p.revalidated.Load(),
		TxUndone:           p.undone.Load(),
	}
}

// txRefs is the ledger state a tx's validation depends on.
type txRefs struct {
	keys     []consensus.KeyID
	regIDs   []consensus.RegID
	prior    [32]byte
	hasPrior bool
}

func (r *txRefs) touchedBy(o *consensus.Overlay) bool {
	if r.hasPrior && o.TouchesLink(r.prior) {
		return true
	}
	for _, k := range r.keys {
		if o.TouchesAccount(k) {
			return true
		}
	}
	for _, rid := range r.regIDs {
		if o.TouchesRegID(rid) {
			return true
		}
	}
	return false
}

type prevalidation struct {
	err  error
	refs txRefs
}

// ConnectBlock validates b on top of the tip, executes it and commits it
// atomically. Validation runs in parallel against the committed state; a tx
// whose inputs an earlier tx of the same block changed is validated again
// against the block's overlay before it executes.
func (p *Processor) ConnectBlock(ctx context.Context, b *Block) ([32]byte, error) {
	start := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()

	hash, err := p.connectBlock(ctx, b)
	if err != nil {
		prometheusBlocks.WithLabelValues("connect", "rejected").Inc()
		return [32]byte{}, err
	}
	p.connected.Inc()
	prometheusBlocks.WithLabelValues("connect", "ok").Inc()
	prometheusBlockConnect.Observe(time.Since(start).Seconds())
	p.log.Info().
		Uint64("height", b.Height).
		Hex("hash", hash[:]).
		Int("txs", len(b.Txs)).
		Dur("took", time.Since(start)).
		Msg("block connected")
	return hash, nil
}

func (p *Processor) connectBlock(ctx context.Context, b *Block) ([32]byte, error) {
	var zero [32]byte
	if b == nil {
		return zero, &BlockError{Index: -1, Err: errors.Wrap(ErrBadBlock, "nil block")}
	}
	tip, ok, err := p.db.Tip()
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, ErrNotInitialized
	}
	if b.Height != tip.Height+1 || b.PrevHash != tip.Hash {
		return zero, &BlockError{Index: -1, Err: errors.Wrapf(ErrBadParent,
			"block %d prev %x, tip %d %x", b.Height, b.PrevHash, tip.Height, tip.Hash)}
	}
	txids, err := p.checkStructure(b)
	if err != nil {
		return zero, err
	}
	hash, err := b.Hash(p.crypto)
	if err != nil {
		return zero, &BlockError{Index: -1, Err: errors.Wrap(ErrBadBlock, err.Error())}
	}

	pre, err := p.prevalidate(ctx, b)
	if err != nil {
		return zero, err
	}

	overlay := consensus.NewOverlay(p.db)
	deltas := make([]*consensus.StateDelta, 0, len(b.Txs))
	for i, tx := range b.Txs {
		tctx := consensus.TxContext{Height: b.Height, Index: uint16(i)} // #nosec G115 -- checkStructure bounds len(b.Txs).
		verr := pre[i].err
		if pre[i].refs.touchedBy(overlay) {
			p.revalidated.Inc()
			prometheusTxRevalidated.Inc()
			verr = consensus.ValidateTx(p.crypto, p.params, tx, tctx, overlay)
		}
		if verr != nil {
			p.reject(i, txids[i], tx, verr)
			return zero, &BlockError{Index: i, Txid: txids[i], Err: verr}
		}
		delta, err := consensus.ExecuteTx(p.crypto, tx, tctx, overlay)
		if err != nil {
			p.reject(i, txids[i], tx, err)
			return zero, &BlockError{Index: i, Txid: txids[i], Err: err}
		}
		deltas = append(deltas, delta)
	}

	raw, err := MarshalBlock(b)
	if err != nil {
		return zero, err
	}
	mutations := overlay.Mutations()
	if err := p.db.CommitBlock(&store.BlockCommit{
		Hash:      hash,
		Height:    b.Height,
		PrevHash:  b.PrevHash,
		Raw:       raw,
		Mutations: mutations,
		Deltas:    deltas,
	}); err != nil {
		return zero, err
	}
	p.executed.Add(uint64(len(deltas)))
	prometheusTxExecuted.Add(float64(len(deltas)))
	return hash, nil
}

// checkStructure enforces the block rules no single tx can see: reward
// placement, unique txids, one spender per prior and no replay of a
// committed link.
func (p *Processor) checkStructure(b *Block) ([][32]byte, error) {
	if len(b.Txs) > maxTxsPerBlock {
		return nil, &BlockError{Index: -1, Err: errors.Wrapf(ErrBadBlock, "%d txs", len(b.Txs))}
	}
	txids := make([][32]byte, len(b.Txs))
	seen := make(map[[32]byte]int, len(b.Txs))
	spends := make(map[[32]byte]int)
	for i, tx := range b.Txs {
		if tx == nil {
			return nil, &BlockError{Index: i, Err: errors.Wrap(ErrBadBlock, "nil tx")}
		}
		id, err := tx.Txid()
		if err != nil {
			return nil, &BlockError{Index: i, Err: errors.Wrap(ErrBadBlock, err.Error())}
		}
		txids[i] = id
		if j, dup := seen[id]; dup {
			return nil, &BlockError{Index: i, Txid: id, Err: errors.Wrapf(ErrBadBlock, "duplicate of tx %d", j)}
		}
		seen[id] = i

		switch tx.Kind {
		case consensus.TX_KIND_COIN_REWARD:
			if i != 0 {
				return nil, &BlockError{Index: i, Txid: id, Err: errors.Wrap(ErrBadBlock, "reward must be the first tx")}
			}
		case consensus.TX_KIND_COIN_UTXO:
			t := tx.CoinUTXO
			if t == nil {
				continue // ValidateTx reports the shape error
			}
			if !t.IsGenesis() {
				if j, dup := spends[t.PriorUtxoTxid]; dup {
					return nil, &BlockError{Index: i, Txid: id, Err: errors.Wrapf(ErrBadBlock,
						"prior %x already spent by tx %d", t.PriorUtxoTxid, j)}
				}
				spends[t.PriorUtxoTxid] = i
			}
			if _, exists, err := p.db.GetUtxoTx(id); err != nil {
				return nil, err
			} else if exists {
				return nil, &BlockError{Index: i, Txid: id, Err: errors.Wrap(ErrBadBlock, "tx already committed")}
			}
		}
	}
	return txids, nil
}

func (p *Processor) prevalidate(ctx context.Context, b *Block) ([]prevalidation, error) {
	out := make([]prevalidation, len(b.Txs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i := range b.Txs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tx := b.Txs[i]
			tctx := consensus.TxContext{Height: b.Height, Index: uint16(i)} // #nosec G115 -- bounded by checkStructure.
			t0 := time.Now()
			out[i].err = consensus.ValidateTx(p.crypto, p.params, tx, tctx, p.db)
			prometheusTxValidate.Observe(time.Since(t0).Seconds())
			if out[i].err == nil {
				prometheusTxValidated.Inc()
			}
			refs, err := collectRefs(p.db, tx)
			if err != nil {
				return errors.Wrapf(err, "tx %d: read ledger", i)
			}
			out[i].refs = refs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// collectRefs lists the identities and link a tx's validation reads.
func collectRefs(view consensus.LedgerView, tx *consensus.Tx) (txRefs, error) {
	var refs txRefs
	var uids []consensus.UserID
	switch {
	case tx.Kind == consensus.TX_KIND_COIN_UTXO && tx.CoinUTXO != nil:
		t := tx.CoinUTXO
		uids = append(uids, t.TxUID)
		if !t.Utxo.IsNull {
			uids = append(uids, t.Utxo.ToUID)
		}
		if !t.IsGenesis() {
			refs.prior, refs.hasPrior = t.PriorUtxoTxid, true
			link, ok, err := view.GetUtxoTx(t.PriorUtxoTxid)
			if err != nil {
				return refs, err
			}
			if ok && link.Tx != nil {
				uids = append(uids, link.Tx.TxUID, link.Tx.Utxo.ToUID)
			}
		}
	case tx.Kind == consensus.TX_KIND_COIN_REWARD && tx.CoinReward != nil:
		uids = append(uids, tx.CoinReward.TxUID)
	}
	for _, u := range uids {
		if u.Kind == consensus.UIDRegID {
			refs.regIDs = append(refs.regIDs, u.RegID)
		}
		k, ok, err := consensus.ResolveKeyID(view, u)
		if err != nil {
			return refs, err
		}
		if ok {
			refs.keys = append(refs.keys, k)
		}
	}
	return refs, nil
}

func (p *Processor) reject(i int, txid [32]byte, tx *consensus.Tx, err error) {
	p.rejected.Inc()
	code := "UNKNOWN"
	if c, ok := consensus.CodeOf(err); ok {
		code = string(c)
	}
	prometheusTxRejected.WithLabelValues(code).Inc()

	ev := p.log.Warn()
	if consensus.IsCorrupt(err) {
		ev = p.log.Error()
	}
	ev.Int("index", i).Hex("txid", txid[:]).Str("code", code).Err(err).Msg("tx rejected")
	if e := p.log.Debug(); e.Enabled() {
		e.Str("tx", spew.Sdump(tx)).Msg("rejected tx dump")
	}
}

// DisconnectTip reverts the tip block, undoing its txs in reverse order, and
// returns the new tip.
func (p *Processor) DisconnectTip(ctx context.Context) (store.Tip, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tip, err := p.disconnectTip(ctx)
	if err != nil {
		prometheusBlocks.WithLabelValues("disconnect", "failed").Inc()
		return store.Tip{}, err
	}
	p.disconnected.Inc()
	prometheusBlocks.WithLabelValues("disconnect", "ok").Inc()
	p.log.Info().Uint64("height", tip.Height).Hex("tip", tip.Hash[:]).Msg("block disconnected")
	return tip, nil
}

func (p *Processor) disconnectTip(ctx context.Context) (store.Tip, error) {
	tip, ok, err := p.db.Tip()
	if err != nil {
		return store.Tip{}, err
	}
	if !ok {
		return store.Tip{}, ErrNotInitialized
	}
	if tip.Height == 0 {
		return store.Tip{}, store.ErrRevertGenesis
	}
	raw, ok, err := p.db.GetBlockBytes(tip.Hash)
	if err != nil {
		return store.Tip{}, err
	}
	if !ok {
		return store.Tip{}, errors.Errorf("tip block %x missing", tip.Hash)
	}
	b, err := ParseBlock(raw)
	if err != nil {
		return store.Tip{}, errors.Wrapf(err, "tip block %x", tip.Hash)
	}
	u, ok, err := p.db.GetUndo(tip.Hash)
	if err != nil {
		return store.Tip{}, err
	}
	if !ok {
		return store.Tip{}, errors.Errorf("undo record for %x missing", tip.Hash)
	}
	if len(u.Deltas) != len(b.Txs) {
		return store.Tip{}, errors.Errorf("undo record has %d deltas for %d txs", len(u.Deltas), len(b.Txs))
	}

	overlay := consensus.NewOverlay(p.db)
	for i := len(b.Txs) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return store.Tip{}, err
		}
		if err := consensus.UndoTx(b.Txs[i], u.Deltas[i], overlay); err != nil {
			return store.Tip{}, errors.Wrapf(err, "undo tx %d", i)
		}
	}
	if err := p.db.RevertBlock(tip.Hash, overlay.Mutations()); err != nil {
		return store.Tip{}, err
	}
	p.undone.Add(uint64(len(b.Txs)))
	prometheusTxUndone.Add(float64(len(b.Txs)))

	newTip, _, err := p.db.Tip()
	return newTip, err
}
