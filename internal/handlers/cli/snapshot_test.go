package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gabapcia/txtracker/internal/pkg/types"
	"github.com/gabapcia/txtracker/internal/txstore"
)

func TestExportSnapshotCommand(t *testing.T) {
	store := txstore.New()
	seed(t, store, testID, txstore.StatusPending, txstore.Patch{Hash: types.Ptr("0xabc")})
	snapshot := store.Snapshot()

	tracker := NewServiceMock(t)
	tracker.On("Start", mock.Anything).Return(nil).Once()
	tracker.On("Snapshot").Return(snapshot).Once()
	tracker.On("Close").Return().Once()

	app, out := newTestApp(exportSnapshotCommand(tracker))
	require.NoError(t, app.Run(t.Context(), []string{"test", "export"}))

	var printed txstore.Snapshot
	require.NoError(t, json.Unmarshal(out.Bytes(), &printed))
	require.Contains(t, printed.Records, testID)
	assert.Equal(t, "0xabc", printed.Records[testID].Hash)
	assert.Equal(t, txstore.StatusPending, printed.Records[testID].Status)
}

func TestImportSnapshotCommand(t *testing.T) {
	t.Run("should hydrate the tracker with the file content", func(t *testing.T) {
		store := txstore.New()
		seed(t, store, testID, txstore.StatusSucceeded, txstore.Patch{})

		data, err := json.Marshal(store.Snapshot())
		require.NoError(t, err)

		path := filepath.Join(t.TempDir(), "state.json")
		require.NoError(t, os.WriteFile(path, data, 0o600))

		tracker := NewServiceMock(t)
		tracker.On("Start", mock.Anything).Return(nil).Once()
		tracker.On("Hydrate", mock.Anything, mock.MatchedBy(func(s txstore.Snapshot) bool {
			r, ok := s.Records[testID]
			return ok && r.Status == txstore.StatusSucceeded
		})).Return(nil).Once()
		tracker.On("Close").Return().Once()

		app, _ := newTestApp(importSnapshotCommand(tracker))
		assert.NoError(t, app.Run(t.Context(), []string{"test", "import", "--file", path}))
	})

	t.Run("should return hydrate errors", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"records":{}}`), 0o600))

		tracker := NewServiceMock(t)
		tracker.On("Start", mock.Anything).Return(nil).Once()
		tracker.On("Hydrate", mock.Anything, mock.Anything).Return(assert.AnError).Once()
		tracker.On("Close").Return().Once()

		app, _ := newTestApp(importSnapshotCommand(tracker))
		assert.ErrorIs(t, app.Run(t.Context(), []string{"test", "import", "--file", path}), assert.AnError)
	})

	t.Run("should fail on a missing file", func(t *testing.T) {
		app, _ := newTestApp(importSnapshotCommand(NewServiceMock(t)))

		err := app.Run(t.Context(), []string{"test", "import", "--file", filepath.Join(t.TempDir(), "missing.json")})
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("should fail on malformed JSON", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json")
		require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

		app, _ := newTestApp(importSnapshotCommand(NewServiceMock(t)))

		err := app.Run(t.Context(), []string{"test", "import", "--file", path})
		assert.ErrorContains(t, err, "decode snapshot")
	})
}
