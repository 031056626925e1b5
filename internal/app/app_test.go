package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/dvloznov/monomind/internal/config"
	"github.com/dvloznov/monomind/internal/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMemory(t *testing.T) {
	ctx := context.Background()

	t.Run("none is stateless", func(t *testing.T) {
		cfg := config.Default()
		cfg.Memory.Backend = config.MemoryNone
		a := &App{Config: cfg}

		store, err := a.openMemory(ctx)
		require.NoError(t, err)
		assert.Nil(t, store)
	})

	t.Run("inmemory", func(t *testing.T) {
		a := &App{Config: config.Default()}

		store, err := a.openMemory(ctx)
		require.NoError(t, err)
		assert.IsType(t, &memory.InMemoryStore{}, store)
		assert.Empty(t, a.closers)
	})

	t.Run("sqlite registers a closer", func(t *testing.T) {
		cfg := config.Default()
		cfg.Memory.Backend = config.MemorySQLite
		cfg.Memory.SQLitePath = filepath.Join(t.TempDir(), "sessions.db")
		a := &App{Config: cfg}

		store, err := a.openMemory(ctx)
		require.NoError(t, err)
		assert.IsType(t, &memory.SQLStore{}, store)
		require.Len(t, a.closers, 1)
		assert.NoError(t, a.closeAll())
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := config.Default()
		cfg.Memory.Backend = "redis"
		a := &App{Config: cfg}

		_, err := a.openMemory(ctx)
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})
}

func TestCloseAllRunsInReverse(t *testing.T) {
	var order []int
	boom := errors.New("boom")
	a := &App{closers: []func() error{
		func() error { order = append(order, 1); return nil },
		func() error { order = append(order, 2); return boom },
		func() error { order = append(order, 3); return nil },
	}}

	err := a.closeAll()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{3, 2, 1}, order)
	assert.Nil(t, a.closers)
	assert.NoError(t, a.closeAll())
}

func TestOpenLedgerRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Ledger.Backend = "mysql"

	_, err := OpenLedger(context.Background(), cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestLedgerCloseWithoutBackend(t *testing.T) {
	l := &Ledger{}
	assert.NoError(t, l.Close())
	assert.Nil(t, l.Postgres())
	assert.Nil(t, l.BigQuery())
}
