package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
install:
  base_dir: /tmp/misc-installer
  root: ~/apps
  max_retries: 2
queue:
  check_interval: 500ms
vendors:
  popcorntime:
    mirror_base: http://mirror.test/build/
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/tmp/misc-installer", cfg.Install.BaseDir)
	assert.Equal(t, filepath.Join(home, "apps"), cfg.Install.Root)
	assert.Equal(t, 2, cfg.Install.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Queue.CheckInterval)

	popcorn := cfg.Vendor("popcorntime")
	assert.Equal(t, "http://mirror.test/build/", popcorn.MirrorBase)
	assert.Equal(t, "li.download.dl-lin-64 a", popcorn.LinkSelector, "partial vendor record keeps default selector")
	assert.NotEmpty(t, cfg.Vendor("drjava").DownloadURL)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv("MISCINSTALL_SERVER_PORT", "9191")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"port":        "server:\n  port: 0\n",
		"retries":     "install:\n  max_retries: -1\n",
		"concurrency": "install:\n  concurrent_limit: 0\n",
		"checksum":    "vendors:\n  drjava:\n    checksum: crc32:00\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "server:\n  port: 9292\n"))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, SaveConfig(cfg, out))

	reloaded, err := LoadConfig(out)
	require.NoError(t, err)
	assert.Equal(t, 9292, reloaded.Server.Port)
	assert.Equal(t, cfg.Install.Root, reloaded.Install.Root)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "x"), expandPath("~/x"))
	assert.Equal(t, home+"/y", expandPath("$HOME/y"))
	assert.Equal(t, "/abs", expandPath("/abs"))
}
