package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMemoryBackend(t *testing.T) {
	factory := NewFactory(nil)

	result, err := factory.CreateBackend(context.Background(), Config{Type: MemoryBackend})
	require.NoError(t, err)
	assert.False(t, result.Mode.IsGuest())
	assert.Equal(t, "dev", result.Mode.OwnerID())
	assert.NotNil(t, result.Client)
	assert.Nil(t, result.Local)
}

func TestCreateSQLiteBackend(t *testing.T) {
	factory := NewFactory(nil)

	result, err := factory.CreateBackend(context.Background(), Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "cashflow.db"),
	})
	require.NoError(t, err)
	assert.True(t, result.Mode.IsGuest())
	assert.NotNil(t, result.Local)
	assert.Nil(t, result.Client)
	require.NotNil(t, result.Cleanup)
	assert.NoError(t, result.Cleanup())
}

func TestCreateBackendRejectsInvalidConfig(t *testing.T) {
	factory := NewFactory(nil)
	ctx := context.Background()

	_, err := factory.CreateBackend(ctx, Config{Type: "postgres"})
	assert.Error(t, err)

	_, err = factory.CreateBackend(ctx, Config{Type: SQLiteBackend})
	assert.Error(t, err, "sqlite backend needs a path")

	_, err = factory.CreateBackend(ctx, Config{Type: AMQPBackend, AMQPURL: "amqp://localhost/"})
	assert.Error(t, err, "amqp backend needs owner, exchange and queue")
}
