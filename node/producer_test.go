package node

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kongsikongsideveloper/WaykiChain/consensus"
	"github.com/kongsikongsideveloper/WaykiChain/node/store"
)

func rawTx(t *testing.T, tx *consensus.Tx) []byte {
	t.Helper()
	b, err := consensus.MarshalTx(tx)
	require.NoError(t, err)
	return b
}

func TestProducer_SkipsInvalidCandidatesAndPaysReward(t *testing.T) {
	f := newLedgerFixture(t, store.BackendBolt)
	sUID := consensus.NewRegIDUID(f.sRID)
	bUID := consensus.NewRegIDUID(f.bRID)

	cfg := DefaultProducerConfig()
	cfg.RewardTo = bUID
	cfg.RewardCoins = 2 * unit
	pr, err := NewProducer(f.proc, cfg)
	require.NoError(t, err)

	lock := f.sender.sign(t, lockTx(sUID, bUID, 10*unit, 0, 1))
	claim := f.bene.sign(t, claimTx(bUID, txid(t, lock), 1))
	overspend := f.sender.sign(t, lockTx(sUID, bUID, 95*unit, 0, 1))
	orphan := f.bene.sign(t, claimTx(bUID, [32]byte{0x42}, 1))

	got, err := pr.ProduceOne(context.Background(), [][]byte{
		rawTx(t, lock), rawTx(t, claim), rawTx(t, overspend), rawTx(t, orphan), rawTx(t, lock),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.Height)
	assert.Equal(t, 3, got.TxCount, "reward, lock and claim")
	require.Len(t, got.Skipped, 3)
	code, _ := consensus.CodeOf(got.Skipped[0].Err)
	assert.Equal(t, consensus.TX_ERR_INSUFFICIENT_BALANCE, code)
	code, _ = consensus.CodeOf(got.Skipped[1].Err)
	assert.Equal(t, consensus.TX_ERR_MISSING_PRIOR_LINK, code)
	assert.Equal(t, txid(t, lock), got.Skipped[2].Txid)

	assert.Equal(t, got.Hash, f.tip(t).Hash)
	assert.Equal(t, uint64(10*unit-testFee+2*unit), f.balance(t, bUID))
}

func TestProducer_Config(t *testing.T) {
	_, err := NewProducer(nil, DefaultProducerConfig())
	require.Error(t, err)

	f := newLedgerFixture(t, store.BackendBolt)
	cfg := DefaultProducerConfig()
	cfg.RewardTo = consensus.NewRegIDUID(f.sRID)
	_, err = NewProducer(f.proc, cfg)
	require.Error(t, err, "reward recipient without coins")

	_, err = (&Producer{proc: f.proc, cfg: DefaultProducerConfig()}).ProduceOne(context.Background(), [][]byte{{0xff}})
	require.Error(t, err)
}
