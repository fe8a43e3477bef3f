package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewInstall(t *testing.T) {
	install := NewInstall("drjava")

	assert.NotEmpty(t, install.ID)
	assert.Equal(t, "drjava", install.Framework)
	assert.Equal(t, StatusQueued, install.Status)
	assert.Equal(t, 0, install.Priority)
	assert.Equal(t, 0, install.RetryCount)
	assert.True(t, install.IsPending())
}

func TestInstall_Lifecycle(t *testing.T) {
	install := NewInstall("popcorntime")

	install.MarkDownloading()
	assert.Equal(t, StatusDownloading, install.Status)
	assert.NotNil(t, install.StartedAt)
	assert.True(t, install.IsActive())

	install.MarkInstalling("http://x/file.tar.gz")
	assert.Equal(t, StatusInstalling, install.Status)
	assert.Equal(t, "http://x/file.tar.gz", install.URL)
	assert.True(t, install.IsActive())

	install.MarkInstalled("/opt/umake/misc/popcorntime")
	assert.Equal(t, StatusInstalled, install.Status)
	assert.Equal(t, "/opt/umake/misc/popcorntime", install.InstallPath)
	assert.NotNil(t, install.CompletedAt)
	assert.True(t, install.IsTerminal())
	assert.False(t, install.IsActive())
}

func TestInstall_MarkFailed(t *testing.T) {
	install := NewInstall("processing")

	install.MarkFailed(errors.New("markup not found"))

	assert.Equal(t, StatusFailed, install.Status)
	assert.Equal(t, "markup not found", install.ErrorMessage)
	assert.False(t, install.IsTerminal())
}

func TestInstall_CanRetry(t *testing.T) {
	install := NewInstall("drjava")
	install.Status = StatusFailed

	assert.True(t, install.CanRetry(3))

	install.IncrementRetry()
	install.IncrementRetry()
	install.IncrementRetry()
	assert.Equal(t, 3, install.RetryCount)
	assert.False(t, install.CanRetry(3))

	install.RetryCount = 0
	install.Status = StatusInstalled
	assert.False(t, install.CanRetry(3))
}

func TestInstall_IsTerminal(t *testing.T) {
	install := NewInstall("drjava")

	assert.False(t, install.IsTerminal())

	install.Status = StatusInstalled
	assert.True(t, install.IsTerminal())

	install.Status = StatusCancelled
	assert.True(t, install.IsTerminal())

	install.Status = StatusFailed
	assert.False(t, install.IsTerminal())
}
