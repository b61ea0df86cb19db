package main

import (
	"bufio"
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"

	"github.com/kongsikongsideveloper/WaykiChain/consensus"
	"github.com/kongsikongsideveloper/WaykiChain/crypto"
	"github.com/kongsikongsideveloper/WaykiChain/node"
	"github.com/kongsikongsideveloper/WaykiChain/node/store"
)

type env struct {
	cfg    node.Config
	log    *node.Logger
	stdout io.Writer
}

func (e *env) dispatch(ctx context.Context, subCmd string, opts interface{}) error {
	switch subCmd {
	case initSubCmd:
		return e.initChain(opts.(*initConfig))
	case keygenSubCmd:
		return e.keygen(opts.(*keygenConfig))
	case makeUtxoSubCmd:
		return e.makeUtxo(opts.(*makeUtxoConfig))
	case connectSubCmd:
		return e.connect(ctx, opts.(*connectConfig))
	case produceSubCmd:
		return e.produce(ctx, opts.(*produceConfig))
	case disconnectSubCmd:
		return e.disconnect(ctx)
	case accountSubCmd:
		return e.account(opts.(*accountConfig))
	case accountsSubCmd:
		return e.accounts()
	case utxoSubCmd:
		return e.utxo(opts.(*utxoConfig))
	case receiptsSubCmd:
		return e.receipts(opts.(*receiptsConfig))
	case tipSubCmd:
		return e.tip()
	default:
		return errors.Errorf("unknown sub-command %q", subCmd)
	}
}

func (e *env) openDB() (*store.DB, error) {
	return store.Open(e.cfg.DataDir, store.Options{Network: e.cfg.Network, Backend: e.cfg.DBBackend})
}

func (e *env) withDB(fn func(db *store.DB) error) error {
	db, err := e.openDB()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return fn(db)
}

func (e *env) processor(db *store.DB) *node.Processor {
	return node.NewProcessor(db, node.ProcessorOptions{Logger: e.log, Workers: e.cfg.Workers})
}

func (e *env) printJSON(v interface{}) error {
	enc := json.NewEncoder(e.stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (e *env) initChain(c *initConfig) error {
	raw, err := node.ReadFileByPath(c.Genesis)
	if err != nil {
		return err
	}
	gf, err := node.ParseGenesisFile(raw)
	if err != nil {
		return err
	}
	g, err := node.BuildGenesis(crypto.StdCryptoProvider{}, consensus.DefaultParams(), gf)
	if err != nil {
		return err
	}
	return e.withDB(func(db *store.DB) error {
		if err := db.InitGenesis(g); err != nil {
			return err
		}
		e.log.Info().Str("genesis", hex.EncodeToString(g.Hash[:])).Int("accounts", len(g.Accounts)).Msg("chain initialised")
		return e.printJSON(tipJSON{Height: 0, Hash: hex.EncodeToString(g.Hash[:])})
	})
}

func passphrase(envName string) ([]byte, error) {
	if envName == "" {
		envName = defaultPassphraseEnv
	}
	v := os.Getenv(envName)
	if v == "" {
		return nil, errors.Errorf("passphrase env %s is empty", envName)
	}
	return []byte(v), nil
}

func (e *env) keygen(c *keygenConfig) error {
	pass, err := passphrase(c.PassphraseEnv)
	if err != nil {
		return err
	}
	s, err := crypto.GenerateSigner()
	if err != nil {
		return err
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return errors.Wrap(err, "salt")
	}
	sp := node.DefaultScryptParams
	if c.ScryptN > 0 {
		sp.N = c.ScryptN
	}
	ks, err := node.EncryptKey(s, pass, salt, sp)
	if err != nil {
		return err
	}
	if err := node.WriteKeyStore(c.Out, ks); err != nil {
		return err
	}
	return e.printJSON(struct {
		PubKey  string `json:"pubkey"`
		Address string `json:"address"`
	}{ks.PubkeyHex, ks.Address})
}

func (e *env) makeUtxo(c *makeUtxoConfig) error {
	ks, err := node.ReadKeyStore(c.KeyStore)
	if err != nil {
		return err
	}
	pass, err := passphrase(c.PassphraseEnv)
	if err != nil {
		return err
	}
	s, err := ks.Decrypt(pass)
	if err != nil {
		return err
	}

	from := consensus.NewPubKeyUID(s.PubKey())
	if c.From != "" {
		if from, err = consensus.ParseUserID(c.From); err != nil {
			return errors.Wrap(err, "from")
		}
	}
	tx := &consensus.CoinUTXOTx{
		Version:     1,
		TxUID:       from,
		FeeSymbol:   c.FeeSymbol,
		Fees:        c.Fee,
		ValidHeight: c.ValidHeight,
		Memo:        []byte(c.Memo),
		Utxo:        consensus.NullUTXO(),
	}
	if len(tx.Memo) == 0 {
		tx.Memo = nil
	}
	if c.Prior != "" {
		if tx.PriorUtxoTxid, err = parseTxid(c.Prior); err != nil {
			return errors.Wrap(err, "prior")
		}
	}
	if c.Secret != "" {
		tx.PriorUtxoSecret = []byte(c.Secret)
	}
	if !c.Null {
		to, err := consensus.ParseUserID(c.To)
		if err != nil {
			return errors.Wrap(err, "to")
		}
		tx.Utxo = consensus.CoinUTXO{
			CoinSymbol:   c.Symbol,
			CoinAmount:   c.Amount,
			ToUID:        to,
			LockDuration: c.Lock,
		}
		if c.HashLock != "" {
			tx.Utxo.HTLC = consensus.HTLCCondition{
				SecretHash:     consensus.SecretDigest(crypto.StdCryptoProvider{}, from, []byte(c.HashLock), c.ValidHeight),
				CollectTimeout: c.Timeout,
			}
		}
	}

	digest, err := consensus.CoinUTXOTxid(crypto.StdCryptoProvider{}, tx)
	if err != nil {
		return err
	}
	tx.Signature = s.Sign(digest)
	raw, err := consensus.MarshalTx(consensus.NewCoinUTXOTx(tx))
	if err != nil {
		return err
	}
	e.log.Debug().Str("txid", hex.EncodeToString(digest[:])).Msg(spew.Sdump(tx))
	return e.printJSON(struct {
		Txid string `json:"txid"`
		Hex  string `json:"hex"`
	}{hex.EncodeToString(digest[:]), hex.EncodeToString(raw)})
}

type tipJSON struct {
	Height uint64 `json:"height"`
	Hash   string `json:"hash"`
}

func (e *env) connect(ctx context.Context, c *connectConfig) error {
	data, err := node.ReadFileByPath(c.Block)
	if err != nil {
		return err
	}
	return e.withDB(func(db *store.DB) error {
		tip, ok, err := db.Tip()
		if err != nil {
			return err
		}
		if !ok {
			return node.ErrNotInitialized
		}
		b, err := node.DecodeBlockFile(data, tip.Height, tip.Hash)
		if err != nil {
			return err
		}
		hash, err := e.processor(db).ConnectBlock(ctx, b)
		if err != nil {
			return err
		}
		return e.printJSON(tipJSON{Height: b.Height, Hash: hex.EncodeToString(hash[:])})
	})
}

func readCandidates(path string) ([][]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := node.ReadFileByPath(path)
	if err != nil {
		return nil, err
	}
	var out [][]byte
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for line := 1; sc.Scan(); line++ {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		raw, err := hex.DecodeString(s)
		if err != nil {
			return nil, errors.Wrapf(err, "%s line %d", path, line)
		}
		out = append(out, raw)
	}
	return out, sc.Err()
}

func (e *env) produce(ctx context.Context, c *produceConfig) error {
	raws, err := readCandidates(c.Txs)
	if err != nil {
		return err
	}
	pcfg := node.DefaultProducerConfig()
	pcfg.MaxTxPerBlock = c.MaxTxs
	pcfg.RewardCoins = c.RewardCoins
	if c.RewardTo != "" {
		if pcfg.RewardTo, err = consensus.ParseUserID(c.RewardTo); err != nil {
			return errors.Wrap(err, "reward-to")
		}
	}
	return e.withDB(func(db *store.DB) error {
		pr, err := node.NewProducer(e.processor(db), pcfg)
		if err != nil {
			return err
		}
		got, err := pr.ProduceOne(ctx, raws)
		if err != nil {
			return err
		}
		for _, s := range got.Skipped {
			e.log.Warn().Str("txid", hex.EncodeToString(s.Txid[:])).Err(s.Err).Msg("candidate skipped")
		}
		return e.printJSON(struct {
			tipJSON
			TxCount int `json:"tx_count"`
			Skipped int `json:"skipped"`
		}{tipJSON{got.Height, hex.EncodeToString(got.Hash[:])}, got.TxCount, len(got.Skipped)})
	})
}

func (e *env) disconnect(ctx context.Context) error {
	return e.withDB(func(db *store.DB) error {
		tip, err := e.processor(db).DisconnectTip(ctx)
		if err != nil {
			return err
		}
		return e.printJSON(tipJSON{Height: tip.Height, Hash: hex.EncodeToString(tip.Hash[:])})
	})
}

type balanceJSON struct {
	Free   uint64 `json:"free"`
	Staked uint64 `json:"staked"`
	Frozen uint64 `json:"frozen"`
}

type accountJSON struct {
	Address  string                 `json:"address"`
	RegID    string                 `json:"regid,omitempty"`
	PubKey   string                 `json:"pubkey,omitempty"`
	Balances map[string]balanceJSON `json:"balances"`
}

func toAccountJSON(a *consensus.Account) accountJSON {
	out := accountJSON{
		Address:  a.KeyID.Address(),
		PubKey:   hex.EncodeToString(a.OwnerPubKey),
		Balances: make(map[string]balanceJSON, len(a.Tokens)),
	}
	if a.HasRegID {
		out.RegID = a.RegID.String()
	}
	for sym, b := range a.Tokens {
		out.Balances[sym] = balanceJSON(b)
	}
	return out
}

func (e *env) account(c *accountConfig) error {
	uid, err := consensus.ParseUserID(c.UID)
	if err != nil {
		return err
	}
	return e.withDB(func(db *store.DB) error {
		a, ok, err := db.GetAccount(uid)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Errorf("account %s not found", uid)
		}
		return e.printJSON(toAccountJSON(a))
	})
}

func (e *env) accounts() error {
	return e.withDB(func(db *store.DB) error {
		var out []accountJSON
		err := db.ForEachAccount(func(a *consensus.Account) error {
			out = append(out, toAccountJSON(a))
			return nil
		})
		if err != nil {
			return err
		}
		return e.printJSON(out)
	})
}

func parseTxid(s string) ([32]byte, error) {
	var id [32]byte
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return id, err
	}
	if len(raw) != len(id) {
		return id, errors.Errorf("txid must be 32 bytes, got %d", len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

func (e *env) utxo(c *utxoConfig) error {
	txid, err := parseTxid(c.Txid)
	if err != nil {
		return err
	}
	return e.withDB(func(db *store.DB) error {
		link, ok, err := db.GetUtxoTx(txid)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Errorf("utxo %x not found", txid)
		}
		if c.Dump {
			spew.Fdump(e.stdout, link)
			return nil
		}
		out := struct {
			Height  uint64 `json:"height"`
			Sender  string `json:"sender"`
			Output  string `json:"output"`
			SpentBy string `json:"spent_by,omitempty"`
		}{Height: link.Height, Sender: link.Tx.TxUID.String(), Output: link.Tx.Utxo.String()}
		if link.IsSpent() {
			out.SpentBy = hex.EncodeToString(link.SpentBy[:])
		}
		return e.printJSON(out)
	})
}

func (e *env) receipts(c *receiptsConfig) error {
	txid, err := parseTxid(c.Txid)
	if err != nil {
		return err
	}
	return e.withDB(func(db *store.DB) error {
		rs, ok, err := db.GetTxReceipts(txid)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Errorf("no receipts for %x", txid)
		}
		out := make([]string, 0, len(rs))
		for _, r := range rs {
			out = append(out, r.String())
		}
		return e.printJSON(out)
	})
}

func (e *env) tip() error {
	return e.withDB(func(db *store.DB) error {
		tip, ok, err := db.Tip()
		if err != nil {
			return err
		}
		if !ok {
			return node.ErrNotInitialized
		}
		return e.printJSON(tipJSON{Height: tip.Height, Hash: hex.EncodeToString(tip.Hash[:])})
	})
}
