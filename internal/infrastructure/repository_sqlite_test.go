package infrastructure

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/misc-installer-go/internal/domain"
)

func setupTestRepo(t *testing.T) *SQLiteInstallRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	repo, err := NewSQLiteInstallRepository(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestFindByID_NotFound(t *testing.T) {
	repo := setupTestRepo(t)

	found, err := repo.FindByID("missing")
	assert.ErrorIs(t, err, domain.ErrInstallNotFound)
	assert.Nil(t, found)
}

func TestFindActiveByFramework_ReturnsQueuedOrRunning(t *testing.T) {
	repo := setupTestRepo(t)

	failed := domain.NewInstall("drjava")
	failed.MarkFailed(assert.AnError)
	require.NoError(t, repo.Create(failed))

	found, err := repo.FindActiveByFramework("drjava")
	require.NoError(t, err)
	assert.Nil(t, found, "failed job is not active")

	running := domain.NewInstall("drjava")
	running.MarkDownloading()
	require.NoError(t, repo.Create(running))

	found, err = repo.FindActiveByFramework("drjava")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, running.ID, found.ID)

	found, err = repo.FindActiveByFramework("processing")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestFindPending_OrdersByPriority(t *testing.T) {
	repo := setupTestRepo(t)

	low := domain.NewInstall("drjava")
	require.NoError(t, repo.Create(low))

	high := domain.NewInstall("processing")
	high.Priority = 10
	high.CreatedAt = time.Now().Add(time.Second)
	require.NoError(t, repo.Create(high))

	pending, err := repo.FindPending()
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, high.ID, pending[0].ID)
	assert.Equal(t, low.ID, pending[1].ID)
}

func TestFindAll_RejectsUnknownFilter(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.FindAll(map[string]interface{}{"id; DROP TABLE installs": 1})
	assert.Error(t, err)

	require.NoError(t, repo.Create(domain.NewInstall("drjava")))
	all, err := repo.FindAll(map[string]interface{}{"framework": "drjava"})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestResetOrphaned(t *testing.T) {
	repo := setupTestRepo(t)

	stuck := domain.NewInstall("popcorntime")
	stuck.MarkInstalling("http://x/file.tar.gz")
	require.NoError(t, repo.Create(stuck))

	done := domain.NewInstall("drjava")
	done.MarkInstalled("/opt/drjava")
	require.NoError(t, repo.Create(done))

	n, err := repo.ResetOrphaned()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	reloaded, err := repo.FindByID(stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQueued, reloaded.Status)
}

func TestGetStats(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.Create(domain.NewInstall("drjava")))
	failed := domain.NewInstall("processing")
	failed.MarkFailed(assert.AnError)
	require.NoError(t, repo.Create(failed))

	stats, err := repo.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Queued)
	assert.Equal(t, int64(1), stats.Failed)
}

func TestMarkInstalled_Upserts(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.MarkInstalled(&domain.InstalledFramework{
		Name: "processing", Category: "misc", InstallPath: "/opt/processing", Version: "3.0.0",
	}))
	require.NoError(t, repo.MarkInstalled(&domain.InstalledFramework{
		Name: "processing", Category: "misc", InstallPath: "/opt/processing", Version: "3.0.1",
	}))

	found, err := repo.FindInstalled("processing")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "3.0.1", found.Version)

	all, err := repo.ListInstalled()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.Unmark("processing"))
	found, err = repo.FindInstalled("processing")
	require.NoError(t, err)
	assert.Nil(t, found)
}
