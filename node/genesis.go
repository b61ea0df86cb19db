package node

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/kongsikongsideveloper/WaykiChain/consensus"
	"github.com/kongsikongsideveloper/WaykiChain/crypto"
	"github.com/kongsikongsideveloper/WaykiChain/node/store"
)

// GenesisFile is the JSON allocation `ledgerd init` reads. Each entry names
// its owner by pubkey (hex) or address and gets RegID 0-<position+1>.
type GenesisFile struct {
	Accounts []GenesisAlloc `json:"accounts"`
}

type GenesisAlloc struct {
	PubKey   string            `json:"pubkey,omitempty"`
	Address  string            `json:"address,omitempty"`
	Balances map[string]uint64 `json:"balances"`
}

func ParseGenesisFile(data []byte) (*GenesisFile, error) {
	var g GenesisFile
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&g); err != nil {
		return nil, fmt.Errorf("genesis json: %w", err)
	}
	return &g, nil
}

// BuildGenesis turns the allocation into the height-0 store record. The hash
// commits to the empty height-0 block followed by every account record.
func BuildGenesis(p crypto.CryptoProvider, params *consensus.Params, g *GenesisFile) (*store.Genesis, error) {
	if len(g.Accounts) > 0xffff-1 {
		return nil, fmt.Errorf("genesis: too many accounts (%d)", len(g.Accounts))
	}
	raw, err := MarshalBlock(&Block{Height: 0})
	if err != nil {
		return nil, err
	}
	preimage := append([]byte(nil), raw...)

	seen := make(map[consensus.KeyID]bool, len(g.Accounts))
	accounts := make([]*consensus.Account, 0, len(g.Accounts))
	for i, alloc := range g.Accounts {
		a, err := genesisAccount(alloc)
		if err != nil {
			return nil, fmt.Errorf("genesis account %d: %w", i, err)
		}
		if seen[a.KeyID] {
			return nil, fmt.Errorf("genesis account %d: %s listed twice", i, a.KeyID)
		}
		seen[a.KeyID] = true
		a.RegID = consensus.RegID{Height: 0, Index: uint16(i + 1)} // #nosec G115 -- bounded above.
		a.HasRegID = true

		syms := make([]string, 0, len(alloc.Balances))
		for s := range alloc.Balances {
			syms = append(syms, s)
		}
		sort.Strings(syms)
		for _, s := range syms {
			if !params.IsCoinSymbol(s) {
				return nil, fmt.Errorf("genesis account %d: bad symbol %q", i, s)
			}
			if err := a.OperateBalance(s, consensus.ADD_FREE, alloc.Balances[s]); err != nil {
				return nil, fmt.Errorf("genesis account %d: %w", i, err)
			}
		}
		rec, err := consensus.MarshalAccount(a)
		if err != nil {
			return nil, err
		}
		preimage = append(preimage, rec...)
		accounts = append(accounts, a)
	}
	return &store.Genesis{Hash: p.SHA3_256(preimage), Raw: raw, Accounts: accounts}, nil
}

func genesisAccount(alloc GenesisAlloc) (*consensus.Account, error) {
	switch {
	case alloc.PubKey != "" && alloc.Address != "":
		return nil, fmt.Errorf("set pubkey or address, not both")
	case alloc.PubKey != "":
		pub, err := hex.DecodeString(alloc.PubKey)
		if err != nil {
			return nil, fmt.Errorf("pubkey: %w", err)
		}
		if !crypto.IsFullyValidPubKey(pub) {
			return nil, fmt.Errorf("pubkey is not a compressed secp256k1 point")
		}
		a := consensus.NewAccount(consensus.Hash160(pub))
		a.OwnerPubKey = pub
		return a, nil
	case alloc.Address != "":
		k, err := consensus.ParseAddress(alloc.Address)
		if err != nil {
			return nil, err
		}
		return consensus.NewAccount(k), nil
	default:
		return nil, fmt.Errorf("pubkey or address required")
	}
}
