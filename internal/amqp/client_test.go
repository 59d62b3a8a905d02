package amqp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashflow/internal/log"
	"cashflow/internal/store/memory"
	"cashflow/internal/store/remote"
)

func newTestServer() (*Server, *memory.Replica) {
	replica := memory.New()
	return &Server{
		state:        replica,
		exchangeName: "test.snapshots",
		rpcQueue:     "test.rpc",
		logger:       log.New(log.Config{Component: log.ComponentDaemon}),
	}, replica
}

func TestApplyWriteThenFetch(t *testing.T) {
	server, _ := newTestServer()
	ctx := context.Background()
	path := remote.TransactionsPath("owner-1", "ledger-1")

	write := server.apply(ctx, NewRequest(OpWrite, path, "tx-1", []byte(`{"amount":"10"}`)))
	require.True(t, write.OK, write.Error)
	assert.Equal(t, "tx-1", write.Key)

	fetch := server.apply(ctx, NewRequest(OpFetch, path, "", nil))
	require.True(t, fetch.OK, fetch.Error)
	require.Len(t, fetch.Records, 1)
	assert.Equal(t, "tx-1", fetch.Records[0].Key)
	assert.JSONEq(t, `{"amount":"10"}`, string(fetch.Records[0].Data))
}

func TestApplyDelete(t *testing.T) {
	server, _ := newTestServer()
	ctx := context.Background()
	path := remote.TransactionsPath("owner-1", "ledger-1")

	require.True(t, server.apply(ctx, NewRequest(OpWrite, path, "tx-1", []byte(`{}`))).OK)
	require.True(t, server.apply(ctx, NewRequest(OpDelete, path, "tx-1", nil)).OK)

	fetch := server.apply(ctx, NewRequest(OpFetch, path, "", nil))
	require.True(t, fetch.OK)
	assert.Empty(t, fetch.Records)
}

func TestApplyNewKey(t *testing.T) {
	server, _ := newTestServer()
	ctx := context.Background()

	first := server.apply(ctx, NewRequest(OpNewKey, "owners/o/ledgers", "", nil))
	second := server.apply(ctx, NewRequest(OpNewKey, "owners/o/ledgers", "", nil))
	require.True(t, first.OK)
	require.True(t, second.OK)
	assert.Len(t, first.Key, 20)
	assert.Less(t, first.Key, second.Key, "keys must sort in mint order")
}

func TestApplyUnknownOperation(t *testing.T) {
	server, _ := newTestServer()

	resp := server.apply(context.Background(), NewRequest("compact", "p", "", nil))
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "unknown operation")
}

func TestApplyReportsStateFailure(t *testing.T) {
	server, replica := newTestServer()
	replica.FailWrites(assert.AnError)

	resp := server.apply(context.Background(), NewRequest(OpWrite, "p", "k", []byte(`{}`)))
	assert.False(t, resp.OK)
	assert.Equal(t, assert.AnError.Error(), resp.Error)
}

func TestTopicKey(t *testing.T) {
	assert.Equal(t,
		"owners.o1.ledgers.l1.transactions",
		topicKey(remote.TransactionsPath("o1", "l1")))
	assert.Equal(t, "owners.o1.ledgers", topicKey(remote.LedgersPath("o1")))
}

func TestRecordConversionRoundTrip(t *testing.T) {
	records := []remote.Record{
		{Key: "a", Data: []byte(`{"x":1}`)},
		{Key: "b", Data: []byte(`{"y":2}`)},
	}
	assert.Equal(t, records, toRecords(toPayloads(records)))
	assert.Empty(t, toRecords(nil))
}
