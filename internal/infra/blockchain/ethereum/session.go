package ethereum

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gabapcia/txtracker/internal/action"
	"github.com/gabapcia/txtracker/internal/pkg/logger"
	"github.com/gabapcia/txtracker/internal/pkg/resilience/retry"
	"github.com/gabapcia/txtracker/internal/pkg/transport/jsonrpc"
	"github.com/gabapcia/txtracker/internal/pkg/types"
)

// ErrReceiptNotFound is returned while a transaction has not been mined yet.
var ErrReceiptNotFound = errors.New("receipt not found")

// sendTransactionRequest is the eth_sendTransaction parameter object.
type sendTransactionRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Data string `json:"data"`
}

// session is a live connection able to broadcast transactions from a
// node-managed account and wait for their receipts.
type session struct {
	conn         jsonrpc.Client
	account      string
	chainID      types.Hex
	receiptRetry retry.Retry
}

var _ action.Session = (*session)(nil)

func (s *session) Account() string {
	return s.account
}

// SendTransaction broadcasts call through eth_sendTransaction. The request
// is never retried at the transport level so a call is sent at most once.
func (s *session) SendTransaction(ctx context.Context, call action.Call) (string, error) {
	data, err := s.conn.Fetch(ctx, "eth_sendTransaction", sendTransactionRequest{
		From: s.account,
		To:   call.To,
		Data: "0x" + hex.EncodeToString(call.Data),
	})
	if err != nil {
		return "", err
	}

	var hash string
	if err := json.Unmarshal(data, &hash); err != nil {
		return "", fmt.Errorf("decode transaction hash: %w", err)
	}

	return hash, nil
}

// getTransactionReceipt fetches the receipt of hash, returning
// ErrReceiptNotFound while the transaction is not mined.
func (s *session) getTransactionReceipt(ctx context.Context, hash string) (action.Receipt, error) {
	data, err := s.conn.Fetch(ctx, "eth_getTransactionReceipt", hash)
	if err != nil {
		return action.Receipt{}, err
	}

	if len(data) == 0 || string(data) == "null" {
		return action.Receipt{}, ErrReceiptNotFound
	}

	var receipt action.Receipt
	if err := json.Unmarshal(data, &receipt); err != nil {
		return action.Receipt{}, fmt.Errorf("decode receipt: %w", err)
	}

	return receipt, nil
}

// WaitForReceipt polls for the receipt of hash with an exponential backoff
// until it is mined, the node rejects the request or ctx is done. There is
// no attempt limit.
func (s *session) WaitForReceipt(ctx context.Context, hash string) (action.Receipt, error) {
	var receipt action.Receipt

	err := s.receiptRetry.Execute(ctx, func() error {
		r, err := s.getTransactionReceipt(ctx, hash)
		if err != nil {
			if !errors.Is(err, ErrReceiptNotFound) {
				logger.Warn(ctx, "receipt poll failed", "tx.hash", hash, "error", err)
			}
			return err
		}

		receipt = r
		return nil
	})
	if err != nil {
		return action.Receipt{}, err
	}

	return receipt, nil
}

// isRetryableReceiptError keeps polling while the receipt is missing or the
// node could not be reached, and stops on errors returned by the node itself.
func isRetryableReceiptError(err error) bool {
	return !errors.Is(err, jsonrpc.ErrProviderReturnedError)
}
