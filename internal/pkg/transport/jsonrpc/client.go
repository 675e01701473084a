// Package jsonrpc provides a JSON-RPC 2.0 client over retryable HTTP.
// Requests for methods registered as non-idempotent are sent at most once so
// that a transport retry can never broadcast the same write twice.
package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"

	httptransport "github.com/gabapcia/txtracker/internal/pkg/transport/http"
	"github.com/gabapcia/txtracker/internal/pkg/types"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
)

// ErrProviderReturnedError indicates that the remote JSON-RPC server returned an error response.
var ErrProviderReturnedError = errors.New("provider error")

// defaultNonIdempotentMethods lists the methods that submit state changes to
// an Ethereum-compatible node.
var defaultNonIdempotentMethods = []string{
	"eth_sendTransaction",
	"eth_sendRawTransaction",
}

// response represents a standard JSON-RPC 2.0 response.
type response struct {
	JsonRPC string `json:"jsonrpc"`
	Error   *struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data,omitempty"`
	} `json:"error"`
	Result json.RawMessage `json:"result"`
}

// Err returns an error if the response includes a JSON-RPC error object.
// It wraps ErrProviderReturnedError with the error code and message, and
// appends the raw error data when the provider sent any.
func (r response) Err() error {
	if r.Error == nil {
		return nil
	}

	if len(r.Error.Data) > 0 {
		return fmt.Errorf("%w: [%d] - %s (data: %s)", ErrProviderReturnedError, r.Error.Code, r.Error.Message, r.Error.Data)
	}

	return fmt.Errorf("%w: [%d] - %s", ErrProviderReturnedError, r.Error.Code, r.Error.Message)
}

// Client defines the interface for a generic JSON-RPC client.
type Client interface {
	// Fetch sends a JSON-RPC request with the given method name and parameters.
	// It returns the raw JSON result or an error if the request or response fails.
	Fetch(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// client is the default implementation of the Client interface.
type client struct {
	providerEndpoint     string                // URL of the remote JSON-RPC server
	httpClient           *retryablehttp.Client // HTTP client used to perform requests
	nonIdempotentMethods types.Set[string]     // methods that must never be retried
}

// Compile-time assertion that client implements the Client interface.
var _ Client = (*client)(nil)

// Fetch sends a JSON-RPC request to the remote server with the given method and parameters.
// The `id` field in the request is generated as a UUID string.
func (c *client) Fetch(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}

	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      uuid.NewString(),
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return nil, err
	}

	if _, ok := c.nonIdempotentMethods[method]; ok {
		ctx = httptransport.WithoutRetry(ctx)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.providerEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var data response
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		return nil, err
	}

	if err := data.Err(); err != nil {
		return nil, err
	}

	return data.Result, nil
}

// config holds optional configuration parameters for the JSON-RPC client.
type config struct {
	nonIdempotentMethods []string
}

// Option customizes the JSON-RPC client.
type Option func(*config)

// WithNonIdempotentMethods adds methods whose requests are sent at most once.
func WithNonIdempotentMethods(methods ...string) Option {
	return func(c *config) {
		c.nonIdempotentMethods = append(c.nonIdempotentMethods, methods...)
	}
}

// NewClient constructs a Client that sends JSON-RPC requests to
// providerEndpoint using httpClient.
func NewClient(httpClient *retryablehttp.Client, providerEndpoint string, opts ...Option) *client {
	cfg := config{
		nonIdempotentMethods: slices.Clone(defaultNonIdempotentMethods),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &client{
		providerEndpoint:     providerEndpoint,
		httpClient:           httpClient,
		nonIdempotentMethods: types.NewSet(cfg.nonIdempotentMethods...),
	}
}
