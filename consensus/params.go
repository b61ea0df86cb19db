package consensus

import "sort"

const (
	MAX_MEMO_BYTES      = 100
	MAX_SECRET_BYTES    = 256
	MAX_SYMBOL_BYTES    = 7
	MIN_SYMBOL_BYTES    = 3
	MAX_SIGNATURE_BYTES = 72
	TX_CACHE_HEIGHT     = 500

	SYMBOL_WICC = "WICC"
	SYMBOL_WUSD = "WUSD"
	SYMBOL_WGRT = "WGRT"
)

// Params carries the chain-wide constants the validation rules read.
type Params struct {
	MaxMemoBytes   int
	MaxSecretBytes int
	// TxCacheHeight bounds how far ValidHeight may sit from the current height:
	// at most TxCacheHeight/2 on either side.
	TxCacheHeight uint64
	// MinFees lists the accepted fee symbols and their minimum fee.
	MinFees map[string]uint64
	// CoinSymbols is the set of symbols a UTXO output may carry.
	CoinSymbols map[string]struct{}
}

func DefaultParams() *Params {
	return &Params{
		MaxMemoBytes:   MAX_MEMO_BYTES,
		MaxSecretBytes: MAX_SECRET_BYTES,
		TxCacheHeight:  TX_CACHE_HEIGHT,
		MinFees: map[string]uint64{
			SYMBOL_WICC: 10_000,
			SYMBOL_WUSD: 10_000,
		},
		CoinSymbols: map[string]struct{}{
			SYMBOL_WICC: {},
			SYMBOL_WUSD: {},
			SYMBOL_WGRT: {},
		},
	}
}

func (p *Params) MinFee(symbol string) (uint64, bool) {
	fee, ok := p.MinFees[symbol]
	return fee, ok
}

// IsCoinSymbol accepts registered symbols and any well-formed asset symbol.
func (p *Params) IsCoinSymbol(symbol string) bool {
	if _, ok := p.CoinSymbols[symbol]; ok {
		return true
	}
	return isWellFormedSymbol(symbol)
}

func (p *Params) FeeSymbols() []string {
	out := make([]string, 0, len(p.MinFees))
	for s := range p.MinFees {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func isWellFormedSymbol(s string) bool {
	if len(s) < MIN_SYMBOL_BYTES || len(s) > MAX_SYMBOL_BYTES {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
