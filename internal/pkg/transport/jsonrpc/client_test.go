package jsonrpc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	httptransport "github.com/gabapcia/txtracker/internal/pkg/transport/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string, opts ...Option) *client {
	httpClient := httptransport.NewClient(
		httptransport.WithTimeout(time.Second),
		httptransport.WithRetryWaitMin(time.Millisecond),
		httptransport.WithRetryWaitMax(time.Millisecond),
		httptransport.WithRetryMax(2),
	)
	return NewClient(httpClient, url, opts...)
}

func TestResponse_Err(t *testing.T) {
	t.Run("returns nil when Error field is nil", func(t *testing.T) {
		assert.NoError(t, response{JsonRPC: "2.0"}.Err())
	})

	t.Run("formats code and message", func(t *testing.T) {
		var resp response
		require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","error":{"code":-32000,"message":"insufficient funds for gas * price + value"}}`), &resp))

		err := resp.Err()
		assert.ErrorIs(t, err, ErrProviderReturnedError)
		assert.Contains(t, err.Error(), "[-32000] - insufficient funds for gas * price + value")
	})

	t.Run("includes error data when present", func(t *testing.T) {
		var resp response
		require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","error":{"code":3,"message":"execution reverted: not a member","data":"0x08c379a0"}}`), &resp))

		err := resp.Err()
		assert.ErrorIs(t, err, ErrProviderReturnedError)
		assert.Contains(t, err.Error(), `(data: "0x08c379a0")`)
	})
}

func TestClient_Fetch(t *testing.T) {
	t.Run("successful response with result", func(t *testing.T) {
		var received map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": "1", "result": "0x5"})
		}))
		defer server.Close()

		result, err := newTestClient(server.URL).Fetch(t.Context(), "eth_chainId")
		require.NoError(t, err)

		assert.JSONEq(t, `"0x5"`, string(result))
		assert.Equal(t, "eth_chainId", received["method"])
		assert.Equal(t, []any{}, received["params"])
		assert.NotEmpty(t, received["id"])
	})

	t.Run("response with JSON-RPC error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0",
				"id":      "1",
				"error":   map[string]any{"code": -32601, "message": "method not found"},
			})
		}))
		defer server.Close()

		result, err := newTestClient(server.URL).Fetch(t.Context(), "nonexistent_method")
		assert.ErrorIs(t, err, ErrProviderReturnedError)
		assert.Nil(t, result)
	})

	t.Run("malformed JSON response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("this is not json"))
		}))
		defer server.Close()

		result, err := newTestClient(server.URL).Fetch(t.Context(), "eth_blockNumber")
		assert.ErrorContains(t, err, "invalid character")
		assert.Nil(t, result)
	})

	t.Run("retries idempotent reads", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": "1", "result": nil})
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Fetch(t.Context(), "eth_getTransactionReceipt", "0xabc")
		require.NoError(t, err)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("never retries transaction broadcasts", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":"1","error":{"code":-32000,"message":"upstream unavailable"}}`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Fetch(t.Context(), "eth_sendTransaction", map[string]string{"to": "0x1"})
		assert.ErrorIs(t, err, ErrProviderReturnedError)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("custom non idempotent methods", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		c := newTestClient(server.URL, WithNonIdempotentMethods("personal_sendTransaction"))
		_, err := c.Fetch(t.Context(), "personal_sendTransaction")
		assert.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
		assert.Contains(t, c.nonIdempotentMethods, "eth_sendTransaction")
	})
}
