// Package ethereum executes transaction tracker actions against
// Ethereum-compatible nodes using a JSON-RPC client. Transactions are signed
// by an account managed by the node (eth_sendTransaction) and confirmed by
// polling for their receipts.
package ethereum

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gabapcia/txtracker/internal/action"
	"github.com/gabapcia/txtracker/internal/pkg/resilience/retry"
	"github.com/gabapcia/txtracker/internal/pkg/transport/jsonrpc"
	"github.com/gabapcia/txtracker/internal/pkg/types"
)

// ErrChainMismatch is returned when the node serves a different chain than
// the one the execution configuration was captured for.
var ErrChainMismatch = errors.New("node serves a different chain")

const (
	// averageBlockTime is the first delay between receipt polls.
	averageBlockTime = 12 * time.Second

	// maxReceiptPollDelay caps the backoff between receipt polls.
	maxReceiptPollDelay = time.Minute
)

// SessionProvider opens sessions on a single node for a single signing account.
type SessionProvider struct {
	conn         jsonrpc.Client // Underlying JSON-RPC client used to interact with the node
	account      string         // Node-managed account transactions are sent from
	receiptRetry retry.Retry    // Polling policy used while waiting for receipts
}

// Ensure SessionProvider implements the action.SessionProvider interface at compile time.
var _ action.SessionProvider = (*SessionProvider)(nil)

// Session performs a chain handshake and returns a session bound to the
// configured account. When cfg carries a chain id the node must serve that chain.
func (p *SessionProvider) Session(ctx context.Context, cfg action.ExecutorConfig) (action.Session, error) {
	chainID, err := p.getChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("eth_chainId: %w", err)
	}

	if !cfg.ChainID.IsEmpty() && cfg.ChainID.Uint64() != chainID.Uint64() {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrChainMismatch, cfg.ChainID, chainID)
	}

	return &session{
		conn:         p.conn,
		account:      p.account,
		chainID:      chainID,
		receiptRetry: p.receiptRetry,
	}, nil
}

// getChainID fetches the chain identifier served by the node.
func (p *SessionProvider) getChainID(ctx context.Context) (types.Hex, error) {
	data, err := p.conn.Fetch(ctx, "eth_chainId")
	if err != nil {
		return "", err
	}

	var chainID types.Hex
	return chainID, json.Unmarshal(data, &chainID)
}

type config struct {
	pollDelay    time.Duration
	maxPollDelay time.Duration
}

type Option func(*config)

// WithReceiptPolling sets the initial and maximum delay between receipt polls.
func WithReceiptPolling(delay, maxDelay time.Duration) Option {
	return func(c *config) {
		if delay > 0 {
			c.pollDelay = delay
		}
		if maxDelay > 0 {
			c.maxPollDelay = maxDelay
		}
	}
}

// NewSessionProvider creates a provider sending transactions from account
// through conn.
func NewSessionProvider(conn jsonrpc.Client, account string, opts ...Option) *SessionProvider {
	cfg := config{
		pollDelay:    averageBlockTime,
		maxPollDelay: maxReceiptPollDelay,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &SessionProvider{
		conn:    conn,
		account: account,
		receiptRetry: retry.New(
			retry.WithUnlimitedAttempts(),
			retry.WithDelay(cfg.pollDelay),
			retry.WithMaxDelay(cfg.maxPollDelay),
			retry.WithRetryIf(isRetryableReceiptError),
		),
	}
}
