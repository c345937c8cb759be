package statestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	gormdao "github.com/lumenide/pluginhub/internal/domain/dao/gorm"
	"github.com/lumenide/pluginhub/internal/domain/entity"
	"github.com/lumenide/pluginhub/internal/reconcile"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entity.PluginRecord{}))
	return New(gormdao.NewPluginDAO(db), zap.NewNop())
}

func descriptor(id string, state reconcile.EnableState) *reconcile.Descriptor {
	return &reconcile.Descriptor{
		ID:          id,
		Name:        id,
		Version:     "1.0.0",
		Dynamic:     true,
		State:       state,
		Loaded:      true,
		InstalledAt: time.Now(),
	}
}

func TestSaveInstalledAndLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d := descriptor("com.example.tool", reconcile.StateEnabled)
	d.Dependencies = []reconcile.Dependency{
		{ID: "com.example.base"},
		{ID: "com.example.extra", Optional: true},
	}
	require.NoError(t, s.SaveInstalled(ctx, d))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	got := loaded[0]
	assert.Equal(t, "com.example.tool", got.ID)
	assert.Equal(t, reconcile.StateEnabled, got.State)
	assert.True(t, got.Loaded)
	assert.Equal(t, d.Dependencies, got.Dependencies)
}

func TestSaveInstalledUpsertsByPluginID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveInstalled(ctx, descriptor("com.example.tool", reconcile.StateEnabled)))

	updated := descriptor("com.example.tool", reconcile.StateDisabled)
	updated.Version = "2.0.0"
	require.NoError(t, s.SaveInstalled(ctx, updated))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1, "upsert must not create a second record")
	assert.Equal(t, "2.0.0", loaded[0].Version)
	assert.Equal(t, reconcile.StateDisabled, loaded[0].State)
}

func TestApplyEnablementBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.SaveInstalled(ctx, descriptor(id, reconcile.StateEnabled)))
	}

	require.NoError(t, s.ApplyEnablement(ctx, reconcile.ActionDisable, []string{"a", "c"}))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	states := make(map[string]reconcile.EnableState)
	for _, d := range loaded {
		states[d.ID] = d.State
	}
	assert.Equal(t, reconcile.StateDisabled, states["a"])
	assert.Equal(t, reconcile.StateEnabled, states["b"])
	assert.Equal(t, reconcile.StateDisabled, states["c"])
}

func TestRemoveUninstalledAllowsReinstall(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveInstalled(ctx, descriptor("com.example.tool", reconcile.StateEnabled)))
	require.NoError(t, s.RemoveUninstalled(ctx, "com.example.tool"))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)

	// same id is installable again
	require.NoError(t, s.SaveInstalled(ctx, descriptor("com.example.tool", reconcile.StateEnabled)))
	loaded, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}
