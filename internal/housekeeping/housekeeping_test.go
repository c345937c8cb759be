package housekeeping

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumenide/pluginhub/internal/config"
	"github.com/lumenide/pluginhub/internal/installer"
)

func newTestScheduler(t *testing.T, schedule string) (*Scheduler, string, error) {
	t.Helper()
	root := t.TempDir()
	stagingDir := filepath.Join(root, "staging")
	driver, err := installer.New(filepath.Join(root, "plugins"), stagingDir, zap.NewNop())
	require.NoError(t, err)

	s, err := NewScheduler(&config.HousekeepingConfig{
		Enabled:       true,
		SweepSchedule: schedule,
		StagingTTL:    time.Hour,
	}, driver, nil, zap.NewNop())
	return s, stagingDir, err
}

func TestNewSchedulerRejectsInvalidSchedule(t *testing.T) {
	_, _, err := newTestScheduler(t, "not a cron expression")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid sweep schedule")
}

func TestSweepNowRemovesOnlyStaleArchives(t *testing.T) {
	s, stagingDir, err := newTestScheduler(t, "*/10 * * * *")
	require.NoError(t, err)

	stale := filepath.Join(stagingDir, "stale.zip")
	fresh := filepath.Join(stagingDir, "fresh.zip")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("new"), 0o644))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	removed, err := s.SweepNow()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}

func TestStartAndStopAreIdempotent(t *testing.T) {
	s, _, err := newTestScheduler(t, "*/10 * * * *")
	require.NoError(t, err)

	s.Start()
	s.Start()
	s.Stop()
	s.Stop()
}
