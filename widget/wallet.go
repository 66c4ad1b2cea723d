// Package widget is the embeddable quest-widget runtime: the progress and
// rewards reconciliation engine that sits between a connected wallet, the
// host page, and the backend. It owns the only mutable progress state for a
// widget instance — every XP or completion mutation flows through the reward
// dispatcher or the claim flows, never through UI surfaces directly.
package widget

import (
	"context"
	"errors"
)

// Wallet is the connection capability the engine consumes. The actual
// wallet-connection library lives in the host; the engine only ever asks for
// the address, the active chain, a chain switch, and a message signature.
type Wallet interface {
	// Address returns the connected account address, "" when disconnected.
	Address() string
	// ChainID returns the wallet's active chain.
	ChainID() int64
	// SwitchChain asks the wallet to move to the given chain.
	SwitchChain(ctx context.Context, chainID int64) error
	// SignMessage requests an EIP-191 personal signature over message and
	// returns it hex-encoded.
	SignMessage(ctx context.Context, message string) (string, error)
}

// ErrSignatureRejected is returned by wallets when the user declines the
// signature prompt. Non-fatal: the verification flow resets for a retry.
var ErrSignatureRejected = errors.New("signature request rejected")

// ErrChainSwitchUnsupported is returned by wallets that cannot switch chains
// programmatically. Fatal until the user switches networks by hand.
var ErrChainSwitchUnsupported = errors.New("wallet cannot switch chains")
