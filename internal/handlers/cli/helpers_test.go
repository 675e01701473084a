package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/gabapcia/txtracker/internal/action"
	"github.com/gabapcia/txtracker/internal/pkg/logger"
	"github.com/gabapcia/txtracker/internal/pkg/types"
	"github.com/gabapcia/txtracker/internal/txstore"
)

func init() {
	_ = logger.Init("error")
}

var testExecutor = action.ExecutorConfig{
	Network: "kovan",
	ChainID: "0x2a",
	Contracts: map[string]string{
		"juniorOperator": "0x1111111111111111111111111111111111111111",
	},
}

// newTestApp mounts cmd under a root command writing to a buffer.
func newTestApp(cmd *cli.Command) (*cli.Command, *bytes.Buffer) {
	var out bytes.Buffer
	return &cli.Command{
		Name:     "test",
		Writer:   &out,
		Commands: []*cli.Command{cmd},
	}, &out
}

// seed writes a record with the given status into store.
func seed(t *testing.T, store *txstore.Store, id string, status txstore.Status, patch txstore.Patch) txstore.Record {
	t.Helper()

	patch.Description = types.Ptr("Invest 100 DAI")
	patch.ActionName = types.Ptr(action.InvestJunior)
	patch.Status = types.Ptr(status)

	record, err := store.Merge(id, patch, false)
	require.NoError(t, err)
	return record
}

// decodeLines parses every JSON line written to out.
func decodeLines[T any](t *testing.T, out *bytes.Buffer) []T {
	t.Helper()

	var values []T
	scanner := bufio.NewScanner(bytes.NewReader(out.Bytes()))
	for scanner.Scan() {
		var v T
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &v))
		values = append(values, v)
	}
	require.NoError(t, scanner.Err())
	return values
}
