// services/chain.go
package services

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// balanceOf(address) — shared by ERC-20 and ERC-721.
var balanceOfSelector = crypto.Keccak256([]byte("balanceOf(address)"))[:4]

// ChainRegistry maps chain ids to RPC clients, lazily dialed. Configured from
// the CHAIN_RPC_URLS env var as "1=https://...;137=https://...".
type ChainRegistry struct {
	mu      sync.Mutex
	rpcURLs map[int64]string
	clients map[int64]*ethclient.Client
}

func NewChainRegistryFromEnv() (*ChainRegistry, error) {
	raw := os.Getenv("CHAIN_RPC_URLS")
	if raw == "" {
		return nil, fmt.Errorf("CHAIN_RPC_URLS environment variable not set")
	}
	urls := make(map[int64]string)
	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, url, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("malformed CHAIN_RPC_URLS entry %q", pair)
		}
		chainID, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad chain id in CHAIN_RPC_URLS entry %q: %w", pair, err)
		}
		urls[chainID] = strings.TrimSpace(url)
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("CHAIN_RPC_URLS has no entries")
	}
	return &ChainRegistry{rpcURLs: urls, clients: make(map[int64]*ethclient.Client)}, nil
}

// Client returns the dialed client for a chain, dialing on first use.
func (r *ChainRegistry) Client(chainID int64) (*ethclient.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[chainID]; ok {
		return c, nil
	}
	url, ok := r.rpcURLs[chainID]
	if !ok {
		return nil, fmt.Errorf("no RPC endpoint configured for chain %d", chainID)
	}
	c, err := ethclient.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial chain %d: %w", chainID, err)
	}
	r.clients[chainID] = c
	return c, nil
}

// BalanceOf calls balanceOf(owner) on the contract — works for both ERC-20
// token balances and ERC-721 holdings counts.
func (r *ChainRegistry) BalanceOf(ctx context.Context, chainID int64, contract, owner string) (*big.Int, error) {
	if !common.IsHexAddress(contract) {
		return nil, fmt.Errorf("invalid contract address %q", contract)
	}
	if !common.IsHexAddress(owner) {
		return nil, fmt.Errorf("invalid owner address %q", owner)
	}
	client, err := r.Client(chainID)
	if err != nil {
		return nil, err
	}

	contractAddr := common.HexToAddress(contract)
	data := make([]byte, 0, 36)
	data = append(data, balanceOfSelector...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(owner).Bytes(), 32)...)

	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &contractAddr, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("balanceOf call on chain %d: %w", chainID, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("contract %s on chain %d returned no data", contract, chainID)
	}
	return new(big.Int).SetBytes(out), nil
}

// RecoverSigner recovers the address behind an EIP-191 personal-sign
// signature over message.
func RecoverSigner(message, signature string) (common.Address, error) {
	sig := common.FromHex(signature)
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}
	// Wallets report V as 27/28; go-ethereum wants 0/1.
	if sig[64] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[64] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
