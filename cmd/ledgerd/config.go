package main

import (
	"io"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/kongsikongsideveloper/WaykiChain/node"
)

const (
	initSubCmd       = "init"
	keygenSubCmd     = "keygen"
	makeUtxoSubCmd   = "make-utxo"
	connectSubCmd    = "connect"
	produceSubCmd    = "produce"
	disconnectSubCmd = "disconnect"
	accountSubCmd    = "account"
	accountsSubCmd   = "accounts"
	utxoSubCmd       = "utxo"
	receiptsSubCmd   = "receipts"
	tipSubCmd        = "tip"
)

const defaultPassphraseEnv = "LEDGERD_PASSPHRASE"

type initConfig struct {
	Genesis string `long:"genesis" short:"g" description:"Genesis allocation JSON file" required:"true"`
}

type keygenConfig struct {
	Out           string `long:"out" short:"o" description:"Keystore file to write" required:"true"`
	PassphraseEnv string `long:"passphrase-env" description:"Environment variable holding the keystore passphrase" default:"LEDGERD_PASSPHRASE"`
	ScryptN       int    `long:"scrypt-n" description:"scrypt cost parameter" default:"32768"`
}

type makeUtxoConfig struct {
	KeyStore      string `long:"keystore" short:"k" description:"Keystore of the signer" required:"true"`
	PassphraseEnv string `long:"passphrase-env" description:"Environment variable holding the keystore passphrase" default:"LEDGERD_PASSPHRASE"`
	From          string `long:"from" description:"Sender uid (regid, address or pubkey hex); defaults to the key's pubkey"`
	To            string `long:"to" description:"Beneficiary uid of the new output"`
	Symbol        string `long:"symbol" description:"Coin symbol of the new output" default:"WICC"`
	Amount        uint64 `long:"amount" description:"Amount locked in the new output"`
	FeeSymbol     string `long:"fee-symbol" description:"Fee symbol" default:"WICC"`
	Fee           uint64 `long:"fee" description:"Fee paid by the sender" default:"10000"`
	ValidHeight   uint64 `long:"valid-height" description:"Height the tx is built for" required:"true"`
	Lock          uint64 `long:"lock" description:"Blocks the new output stays locked after commit"`
	HashLock      string `long:"hash-lock" description:"Secret the beneficiary must reveal to collect"`
	Timeout       uint64 `long:"collect-timeout" description:"Blocks after which the sender may reclaim a hash-locked output"`
	Prior         string `long:"prior" description:"Txid of the link this tx continues (hex)"`
	Secret        string `long:"secret" description:"Secret revealed to open the prior link"`
	Memo          string `long:"memo" description:"Free-form memo"`
	Null          bool   `long:"null" description:"End the chain instead of creating a new output"`
}

type connectConfig struct {
	Block string `long:"block" short:"b" description:"Block JSON file" required:"true"`
}

type produceConfig struct {
	Txs         string `long:"txs" description:"File with one hex encoded candidate tx per line"`
	RewardTo    string `long:"reward-to" description:"Reward recipient uid"`
	RewardCoins uint64 `long:"reward-coins" description:"Reward amount"`
	MaxTxs      int    `long:"max-txs" description:"Maximum txs per produced block" default:"1024"`
}

type disconnectConfig struct{}

type accountConfig struct {
	UID string `long:"uid" short:"u" description:"Account uid (regid, address or pubkey hex)" required:"true"`
}

type accountsConfig struct{}

type utxoConfig struct {
	Txid string `long:"txid" short:"t" description:"Txid of the link (hex)" required:"true"`
	Dump bool   `long:"dump" description:"Print the full decoded tx"`
}

type receiptsConfig struct {
	Txid string `long:"txid" short:"t" description:"Txid (hex)" required:"true"`
}

type tipConfig struct{}

// parseCommandLine reads the global options into cfg and returns the name
// and options of the chosen subcommand.
func parseCommandLine(args []string, cfg *node.Config, stdout io.Writer) (string, interface{}, error) {
	parser := flags.NewParser(cfg, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "ledgerd"

	commands := []struct {
		name, short, long string
		data              interface{}
	}{
		{initSubCmd, "Initialise a chain", "Initialise an empty data dir from a genesis allocation", &initConfig{}},
		{keygenSubCmd, "Create a keystore", "Generate a secp256k1 key and write it to an encrypted keystore", &keygenConfig{}},
		{makeUtxoSubCmd, "Build and sign a UTXO tx", "Build a CoinUTXOTx, sign it with a keystore key and print it as hex", &makeUtxoConfig{}},
		{connectSubCmd, "Connect a block", "Validate, execute and commit a block on top of the tip", &connectConfig{}},
		{produceSubCmd, "Produce a block", "Assemble the next block from candidate txs and connect it", &produceConfig{}},
		{disconnectSubCmd, "Disconnect the tip", "Undo every tx of the tip block", &disconnectConfig{}},
		{accountSubCmd, "Show an account", "Show the balances and identity of one account", &accountConfig{}},
		{accountsSubCmd, "List accounts", "List every account in the ledger", &accountsConfig{}},
		{utxoSubCmd, "Show a UTXO link", "Show an indexed UTXO link and its spent-by txid", &utxoConfig{}},
		{receiptsSubCmd, "Show receipts", "Show the receipts written by a tx", &receiptsConfig{}},
		{tipSubCmd, "Show the tip", "Show the committed tip height and hash", &tipConfig{}},
	}
	byName := make(map[string]interface{}, len(commands))
	for _, c := range commands {
		byName[c.name] = c.data
		if _, err := parser.AddCommand(c.name, c.short, c.long, c.data); err != nil {
			return "", nil, err
		}
	}

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			_, _ = io.WriteString(stdout, flagsErr.Message+"\n")
			return "", nil, errHelp
		}
		return "", nil, err
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if err := node.ValidateConfig(*cfg); err != nil {
		return "", nil, errors.Wrap(err, "invalid config")
	}
	name := parser.Command.Active.Name
	return name, byName[name], nil
}

var errHelp = errors.New("help requested")
