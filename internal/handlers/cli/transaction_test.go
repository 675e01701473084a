package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/gabapcia/txtracker/internal/action"
	"github.com/gabapcia/txtracker/internal/pkg/types"
	"github.com/gabapcia/txtracker/internal/txstore"
	"github.com/gabapcia/txtracker/internal/txtracker"
)

const testID = "1700000000000-1a2b3c4d5e6f"

func TestSubmitTransactionCommand(t *testing.T) {
	submitArgs := []string{"test", "submit",
		"--action", "investJunior",
		"--description", "Invest 100 DAI",
		"--arg", "100",
	}
	ec := action.Context{Config: testExecutor}

	t.Run("should create command with correct metadata", func(t *testing.T) {
		cmd := submitTransactionCommand(NewServiceMock(t), testExecutor, txtracker.NewVisibilitySwitch())

		assert.Equal(t, "submit", cmd.Name)
		assert.Len(t, cmd.Flags, 4)

		actionFlag := cmd.Flags[0].(*cli.StringFlag)
		assert.Equal(t, "action", actionFlag.Name)
		assert.True(t, actionFlag.Required)

		descriptionFlag := cmd.Flags[1].(*cli.StringFlag)
		assert.Equal(t, "description", descriptionFlag.Name)
		assert.True(t, descriptionFlag.Required)
	})

	t.Run("should wait for the final status", func(t *testing.T) {
		store := txstore.New()
		seed(t, store, testID, txstore.StatusSucceeded, txstore.Patch{Hash: types.Ptr("0xabc")})

		tracker := NewServiceMock(t)
		tracker.On("Start", mock.Anything).Return(nil).Once()
		tracker.On("Submit", mock.Anything, "Invest 100 DAI", action.InvestJunior, ec, []string{"100"}).Return(testID, nil).Once()
		tracker.On("Observe").Return(txtracker.NewObserver(store)).Once()
		tracker.On("Close").Return().Once()

		visibility := txtracker.NewVisibilitySwitch()
		visibility.SetVisible(false)
		app, out := newTestApp(submitTransactionCommand(tracker, testExecutor, visibility))

		require.NoError(t, app.Run(t.Context(), submitArgs))
		assert.True(t, visibility.IsVisible())

		records := decodeLines[txstore.Record](t, out)
		require.Len(t, records, 1)
		assert.Equal(t, testID, records[0].ID)
		assert.Equal(t, txstore.StatusSucceeded, records[0].Status)
		assert.Equal(t, "0xabc", records[0].Hash)
	})

	t.Run("should pass every argument in order", func(t *testing.T) {
		store := txstore.New()
		seed(t, store, testID, txstore.StatusSucceeded, txstore.Patch{})

		tracker := NewServiceMock(t)
		tracker.On("Start", mock.Anything).Return(nil).Once()
		tracker.On("Submit", mock.Anything, "Set ratio", action.SetMinJuniorRatio, ec, []string{"0.2", "extra"}).Return(testID, nil).Once()
		tracker.On("Observe").Return(txtracker.NewObserver(store)).Once()
		tracker.On("Close").Return().Once()

		app, _ := newTestApp(submitTransactionCommand(tracker, testExecutor, txtracker.NewVisibilitySwitch()))

		err := app.Run(t.Context(), []string{"test", "submit",
			"--action", "setMinJuniorRatio",
			"--description", "Set ratio",
			"--arg", "0.2",
			"--arg", "extra",
		})
		assert.NoError(t, err)
	})

	t.Run("should report a failed transaction", func(t *testing.T) {
		store := txstore.New()
		seed(t, store, testID, txstore.StatusFailed, txstore.Patch{FailedReason: types.Ptr("insufficient funds")})

		tracker := NewServiceMock(t)
		tracker.On("Start", mock.Anything).Return(nil).Once()
		tracker.On("Submit", mock.Anything, "Invest 100 DAI", action.InvestJunior, ec, []string{"100"}).Return(testID, nil).Once()
		tracker.On("Observe").Return(txtracker.NewObserver(store)).Once()
		tracker.On("Close").Return().Once()

		app, out := newTestApp(submitTransactionCommand(tracker, testExecutor, txtracker.NewVisibilitySwitch()))

		err := app.Run(t.Context(), submitArgs)
		assert.ErrorIs(t, err, ErrTransactionFailed)
		assert.ErrorContains(t, err, "insufficient funds")

		records := decodeLines[txstore.Record](t, out)
		require.Len(t, records, 1)
		assert.Equal(t, txstore.StatusFailed, records[0].Status)
	})

	t.Run("should use the generic reason for an unknown failure", func(t *testing.T) {
		store := txstore.New()
		seed(t, store, testID, txstore.StatusFailed, txstore.Patch{})

		tracker := NewServiceMock(t)
		tracker.On("Start", mock.Anything).Return(nil).Once()
		tracker.On("Submit", mock.Anything, "Invest 100 DAI", action.InvestJunior, ec, []string{"100"}).Return(testID, nil).Once()
		tracker.On("Observe").Return(txtracker.NewObserver(store)).Once()
		tracker.On("Close").Return().Once()

		app, _ := newTestApp(submitTransactionCommand(tracker, testExecutor, txtracker.NewVisibilitySwitch()))

		err := app.Run(t.Context(), submitArgs)
		assert.ErrorIs(t, err, ErrTransactionFailed)
		assert.ErrorContains(t, err, txtracker.GenericFailureReason)
	})

	t.Run("should return once broadcast when detached", func(t *testing.T) {
		store := txstore.New()
		seed(t, store, testID, txstore.StatusPending, txstore.Patch{Hash: types.Ptr("0xabc")})

		tracker := NewServiceMock(t)
		tracker.On("Start", mock.Anything).Return(nil).Once()
		tracker.On("Submit", mock.Anything, "Invest 100 DAI", action.InvestJunior, ec, []string{"100"}).Return(testID, nil).Once()
		tracker.On("Observe").Return(txtracker.NewObserver(store)).Once()
		tracker.On("Close").Return().Once()

		app, out := newTestApp(submitTransactionCommand(tracker, testExecutor, txtracker.NewVisibilitySwitch()))

		require.NoError(t, app.Run(t.Context(), append(submitArgs, "--detach")))

		records := decodeLines[txstore.Record](t, out)
		require.Len(t, records, 1)
		assert.Equal(t, txstore.StatusPending, records[0].Status)
	})

	t.Run("should wait for the broadcast of an unconfirmed transaction", func(t *testing.T) {
		store := txstore.New()
		seed(t, store, testID, txstore.StatusUnconfirmed, txstore.Patch{})

		tracker := NewServiceMock(t)
		tracker.On("Start", mock.Anything).Return(nil).Once()
		tracker.On("Submit", mock.Anything, "Invest 100 DAI", action.InvestJunior, ec, []string{"100"}).Return(testID, nil).Once()
		tracker.On("Observe").Return(txtracker.NewObserver(store)).Once()
		tracker.On("Close").Return().Once()

		go func() {
			time.Sleep(20 * time.Millisecond)
			_, _ = store.Merge(testID, txstore.Patch{
				Hash:   types.Ptr("0xabc"),
				Status: types.Ptr(txstore.StatusPending),
			}, false)
		}()

		app, out := newTestApp(submitTransactionCommand(tracker, testExecutor, txtracker.NewVisibilitySwitch()))

		require.NoError(t, app.Run(t.Context(), append(submitArgs, "--detach")))

		records := decodeLines[txstore.Record](t, out)
		require.Len(t, records, 1)
		assert.Equal(t, txstore.StatusPending, records[0].Status)
		assert.Equal(t, "0xabc", records[0].Hash)
	})

	t.Run("should return submit errors", func(t *testing.T) {
		tracker := NewServiceMock(t)
		tracker.On("Start", mock.Anything).Return(nil).Once()
		tracker.On("Submit", mock.Anything, "Invest 100 DAI", action.InvestJunior, ec, []string{"100"}).Return("", assert.AnError).Once()
		tracker.On("Close").Return().Once()

		app, out := newTestApp(submitTransactionCommand(tracker, testExecutor, txtracker.NewVisibilitySwitch()))

		err := app.Run(t.Context(), submitArgs)
		assert.ErrorIs(t, err, assert.AnError)
		assert.Empty(t, out.String())
	})

	t.Run("should fail when action flag is missing", func(t *testing.T) {
		app, _ := newTestApp(submitTransactionCommand(NewServiceMock(t), testExecutor, txtracker.NewVisibilitySwitch()))

		err := app.Run(t.Context(), []string{"test", "submit", "--description", "Invest 100 DAI"})
		assert.ErrorContains(t, err, "action")
	})

	t.Run("should fail when description flag is missing", func(t *testing.T) {
		app, _ := newTestApp(submitTransactionCommand(NewServiceMock(t), testExecutor, txtracker.NewVisibilitySwitch()))

		err := app.Run(t.Context(), []string{"test", "submit", "--action", "investJunior"})
		assert.ErrorContains(t, err, "description")
	})
}

func TestListTransactionsCommand(t *testing.T) {
	items := []txtracker.TrayItem{
		{ID: "3", Description: "Redeem", Status: txstore.StatusFailed, ShowIfClosed: true},
		{ID: "2", Description: "Invest", Status: txstore.StatusPending, Hash: "0xabc", ExternalLink: "https://kovan.etherscan.io/tx/0xabc", ShowIfClosed: true},
		{ID: "1", Description: "Old", Status: txstore.StatusSucceeded},
	}

	t.Run("should print every item in order", func(t *testing.T) {
		tracker := NewServiceMock(t)
		tracker.On("Start", mock.Anything).Return(nil).Once()
		tracker.On("List").Return(items).Once()
		tracker.On("Close").Return().Once()

		app, out := newTestApp(listTransactionsCommand(tracker, txtracker.NewVisibilitySwitch()))
		require.NoError(t, app.Run(t.Context(), []string{"test", "list"}))

		printed := decodeLines[txtracker.TrayItem](t, out)
		require.Len(t, printed, 3)
		assert.Equal(t, "3", printed[0].ID)
		assert.Equal(t, txtracker.GenericFailureReason, printed[0].FailedReason)
		assert.Equal(t, "https://kovan.etherscan.io/tx/0xabc", printed[1].ExternalLink)
		assert.Equal(t, "1", printed[2].ID)
	})

	t.Run("should only print items surfaced by a closed tray", func(t *testing.T) {
		tracker := NewServiceMock(t)
		tracker.On("Start", mock.Anything).Return(nil).Once()
		tracker.On("List").Return(items).Once()
		tracker.On("Close").Return().Once()

		app, out := newTestApp(listTransactionsCommand(tracker, txtracker.NewVisibilitySwitch()))
		require.NoError(t, app.Run(t.Context(), []string{"test", "list", "--closed"}))

		printed := decodeLines[txtracker.TrayItem](t, out)
		require.Len(t, printed, 2)
		assert.Equal(t, "3", printed[0].ID)
		assert.Equal(t, "2", printed[1].ID)
	})

	t.Run("should print nothing for an empty tray", func(t *testing.T) {
		tracker := NewServiceMock(t)
		tracker.On("Start", mock.Anything).Return(nil).Once()
		tracker.On("List").Return([]txtracker.TrayItem{}).Once()
		tracker.On("Close").Return().Once()

		app, out := newTestApp(listTransactionsCommand(tracker, txtracker.NewVisibilitySwitch()))
		require.NoError(t, app.Run(t.Context(), []string{"test", "list"}))
		assert.Empty(t, out.String())
	})
}

func TestTransactionStatusCommand(t *testing.T) {
	t.Run("should fail when id flag is missing", func(t *testing.T) {
		app, _ := newTestApp(transactionStatusCommand(NewServiceMock(t), txtracker.NewVisibilitySwitch()))

		err := app.Run(t.Context(), []string{"test", "status"})
		assert.ErrorContains(t, err, "id")
	})

	t.Run("should return not found for an unknown id", func(t *testing.T) {
		tracker := NewServiceMock(t)
		tracker.On("Start", mock.Anything).Return(nil).Once()
		tracker.On("Get", testID).Return(txstore.Record{}, false).Once()
		tracker.On("Close").Return().Once()

		app, _ := newTestApp(transactionStatusCommand(tracker, txtracker.NewVisibilitySwitch()))

		err := app.Run(t.Context(), []string{"test", "status", "--id", testID})
		assert.ErrorIs(t, err, txtracker.ErrRecordNotFound)
	})

	t.Run("should print the current record", func(t *testing.T) {
		record := seed(t, txstore.New(), testID, txstore.StatusPending, txstore.Patch{Hash: types.Ptr("0xabc")})

		tracker := NewServiceMock(t)
		tracker.On("Start", mock.Anything).Return(nil).Once()
		tracker.On("Get", testID).Return(record, true).Once()
		tracker.On("Close").Return().Once()

		app, out := newTestApp(transactionStatusCommand(tracker, txtracker.NewVisibilitySwitch()))
		require.NoError(t, app.Run(t.Context(), []string{"test", "status", "--id", testID}))

		printed := decodeLines[txstore.Record](t, out)
		require.Len(t, printed, 1)
		assert.Equal(t, txstore.StatusPending, printed[0].Status)
	})

	t.Run("should not watch a final record", func(t *testing.T) {
		record := seed(t, txstore.New(), testID, txstore.StatusSucceeded, txstore.Patch{})

		tracker := NewServiceMock(t)
		tracker.On("Start", mock.Anything).Return(nil).Once()
		tracker.On("Get", testID).Return(record, true).Once()
		tracker.On("Close").Return().Once()

		app, out := newTestApp(transactionStatusCommand(tracker, txtracker.NewVisibilitySwitch()))
		require.NoError(t, app.Run(t.Context(), []string{"test", "status", "--id", testID, "--watch"}))

		printed := decodeLines[txstore.Record](t, out)
		require.Len(t, printed, 1)
	})

	t.Run("should watch until the record is final", func(t *testing.T) {
		store := txstore.New()
		record := seed(t, store, testID, txstore.StatusPending, txstore.Patch{Hash: types.Ptr("0xabc")})

		tracker := NewServiceMock(t)
		tracker.On("Start", mock.Anything).Return(nil).Once()
		tracker.On("Get", testID).Return(record, true).Once()
		tracker.On("Observe").Return(txtracker.NewObserver(store)).Once()
		tracker.On("Close").Return().Once()

		go func() {
			time.Sleep(20 * time.Millisecond)
			_, _ = store.Merge(testID, txstore.Patch{
				Status: types.Ptr(txstore.StatusSucceeded),
				Result: []byte(`{"status":"0x1"}`),
			}, false)
		}()

		app, out := newTestApp(transactionStatusCommand(tracker, txtracker.NewVisibilitySwitch()))
		require.NoError(t, app.Run(t.Context(), []string{"test", "status", "--id", testID, "--watch"}))

		printed := decodeLines[txstore.Record](t, out)
		require.NotEmpty(t, printed)
		last := printed[len(printed)-1]
		assert.Equal(t, txstore.StatusSucceeded, last.Status)
		assert.JSONEq(t, `{"status":"0x1"}`, string(last.Result))
	})
}
