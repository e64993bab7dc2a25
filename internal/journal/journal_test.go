package journal

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/anmicius0/unit-batch-station/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	utils.Logger = zap.NewNop()
	os.Exit(m.Run())
}

func openMemory(t *testing.T) *Store {
	t.Helper()
	store, err := Open(DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("oracle", "")
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestStore_RecordAndList(t *testing.T) {
	store := openMemory(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Record(ctx, Entry{
		SessionID: "s1",
		Workflow:  "start-irradiation",
		Operation: "submitBatch",
		Reference: "IRR-001",
		Lines:     []Line{{UnitNumber: "W036825014001", ProductCode: "E0869V00", Status: "AVAILABLE"}},
		Result:    ResultSuccess,
		CreatedAt: base,
	}))
	require.NoError(t, store.Record(ctx, Entry{
		SessionID: "s2",
		Workflow:  "shipment-verification",
		Operation: "completeVerification",
		Reference: "42",
		Result:    ResultRejected,
		Message:   "Second verification not completed",
		CreatedAt: base.Add(time.Minute),
	}))

	all, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "s2", all[0].SessionID)
	assert.Equal(t, ResultRejected, all[0].Result)
	assert.Empty(t, all[0].Lines)

	first := all[1]
	assert.Equal(t, "IRR-001", first.Reference)
	require.Len(t, first.Lines, 1)
	assert.Equal(t, "E0869V00", first.Lines[0].ProductCode)

	filtered, err := store.List(ctx, Filter{SessionID: "s1"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "submitBatch", filtered[0].Operation)

	limited, err := store.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStore_TruncatesMessage(t *testing.T) {
	store := openMemory(t)
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'x'
	}
	require.NoError(t, store.Record(context.Background(), Entry{SessionID: "s", Result: ResultTransportError, Message: string(long)}))

	entries, err := store.List(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].Message, 512)
	assert.False(t, entries[0].CreatedAt.IsZero())
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	assert.NoError(t, r.Record(context.Background(), Entry{}))
}
