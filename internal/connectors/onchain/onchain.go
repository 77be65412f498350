package onchain

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"

	"github.com/safesentinel/sentinel/internal/gatekeeper"
)

// ---------------------------------------------------------------------------
// On-chain address verifier — EOA vs contract via eth_getCode
// ---------------------------------------------------------------------------

const rpcTimeout = 8 * time.Second

// DefaultEndpoints are public RPC endpoints per EVM network label. Deploys
// override these from config.
var DefaultEndpoints = map[string]string{
	"ETH":      "https://eth.llamarpc.com",
	"ERC20":    "https://eth.llamarpc.com",
	"BSC":      "https://binance.llamarpc.com",
	"BEP20":    "https://binance.llamarpc.com",
	"POLYGON":  "https://polygon.llamarpc.com",
	"ARBITRUM": "https://arbitrum.llamarpc.com",
}

const (
	ClassContract = "Smart Contract"
	ClassEOA      = "Personal Wallet (EOA)"
)

// Verifier resolves whether an EVM address holds contract code. Clients are
// dialed lazily and reused per endpoint.
type Verifier struct {
	endpoints map[string]string

	mu      sync.Mutex
	clients map[string]*ethclient.Client
}

// NewVerifier creates a verifier. Passing nil endpoints uses the defaults.
func NewVerifier(endpoints map[string]string) *Verifier {
	if endpoints == nil {
		endpoints = DefaultEndpoints
	}
	return &Verifier{
		endpoints: endpoints,
		clients:   make(map[string]*ethclient.Client),
	}
}

// Covered reports whether the network has a configured RPC endpoint.
func (v *Verifier) Covered(network string) bool {
	_, ok := v.endpoints[strings.ToUpper(network)]
	return ok
}

// Verify checks on chain whether address is a contract or a plain wallet.
// Returns nil without error for networks with no RPC coverage so callers
// fall through to rule evaluation without on-chain context.
func (v *Verifier) Verify(ctx context.Context, address, network string) (*gatekeeper.OnChainInfo, error) {
	endpoint, ok := v.endpoints[strings.ToUpper(network)]
	if !ok {
		log.Debug().Str("network", network).Msg("onchain: no RPC coverage, skipping")
		return nil, nil
	}

	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("onchain: %s is not a hex address", address)
	}

	client, err := v.client(endpoint)
	if err != nil {
		return nil, fmt.Errorf("onchain: dial %s: %w", endpoint, err)
	}

	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	code, err := client.CodeAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, fmt.Errorf("onchain: eth_getCode: %w", err)
	}

	info := &gatekeeper.OnChainInfo{IsContract: len(code) > 0}
	if info.IsContract {
		info.Classification = ClassContract
	} else {
		info.Classification = ClassEOA
	}

	log.Debug().
		Str("address", address).
		Str("network", network).
		Bool("is_contract", info.IsContract).
		Msg("onchain: address verified")

	return info, nil
}

func (v *Verifier) client(endpoint string) (*ethclient.Client, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if c, ok := v.clients[endpoint]; ok {
		return c, nil
	}
	c, err := ethclient.Dial(endpoint)
	if err != nil {
		return nil, err
	}
	v.clients[endpoint] = c
	return c, nil
}

// Close releases all dialed RPC clients.
func (v *Verifier) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, c := range v.clients {
		c.Close()
	}
	v.clients = make(map[string]*ethclient.Client)
}
