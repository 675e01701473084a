package action

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/gabapcia/txtracker/internal/pkg/types"
)

// ErrContractNotConfigured is returned when an action needs a contract
// address that the ExecutorConfig does not carry.
var ErrContractNotConfigured = errors.New("contract not configured")

// ExecutorConfig is the serializable half of an execution context: the
// network and contract addresses an action runs against. It is captured at
// submission time, persisted with the transaction record and never mutated.
type ExecutorConfig struct {
	Network   string            `json:"network" validate:"required"`
	ChainID   types.Hex         `json:"chainId,omitempty"`
	Contracts map[string]string `json:"contracts,omitempty" validate:"dive,keys,required,endkeys,eth_addr"`
}

// Contract returns the address registered under name.
func (c ExecutorConfig) Contract(name string) (string, error) {
	addr, ok := c.Contracts[name]
	if !ok || addr == "" {
		return "", fmt.Errorf("%w: %s", ErrContractNotConfigured, name)
	}
	return addr, nil
}

// Clone returns a deep copy so the stored configuration cannot be changed
// through a map shared with the caller.
func (c ExecutorConfig) Clone() ExecutorConfig {
	c.Contracts = maps.Clone(c.Contracts)
	return c
}

// Call is a state-changing contract call.
type Call struct {
	To   string // contract address
	Data []byte // ABI encoded calldata
}

// Receipt is the confirmation outcome of a broadcast transaction.
type Receipt struct {
	TransactionHash string    `json:"transactionHash"`
	BlockHash       string    `json:"blockHash"`
	BlockNumber     types.Hex `json:"blockNumber"`
	GasUsed         types.Hex `json:"gasUsed"`
	Status          types.Hex `json:"status"`
}

// Succeeded reports whether the receipt carries the success status code.
func (r Receipt) Succeeded() bool {
	return r.Status.Uint64() == 1
}

// Session is the live half of an execution context: a connection able to
// sign and broadcast calls and to wait for their receipts. Sessions are
// never persisted.
type Session interface {
	// Account returns the address transactions are signed with.
	Account() string

	// SendTransaction signs and broadcasts call, returning the transaction hash.
	SendTransaction(ctx context.Context, call Call) (string, error)

	// WaitForReceipt blocks until the transaction identified by hash has a
	// receipt or ctx is done.
	WaitForReceipt(ctx context.Context, hash string) (Receipt, error)
}

// SessionProvider hands out live sessions for a configuration. It is asked
// for a fresh session every time an action is executed.
type SessionProvider interface {
	Session(ctx context.Context, cfg ExecutorConfig) (Session, error)
}

// Context pairs the serializable configuration with a live session. Only
// Config may cross a persistence boundary.
type Context struct {
	Config  ExecutorConfig
	Session Session `json:"-"`
}
