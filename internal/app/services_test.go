package app

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
	"github.com/yourusername/misc-installer-go/internal/domain"
	"github.com/yourusername/misc-installer-go/pkg/logger"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *domain.Config {
	t.Helper()
	base := t.TempDir()

	cfg := domain.DefaultConfig()
	cfg.Install.BaseDir = filepath.Join(base, "state")
	cfg.Install.Root = filepath.Join(base, "apps")
	cfg.Install.LauncherDir = filepath.Join(base, "applications")
	cfg.Install.CheckRequirements = false
	cfg.Install.RetryDelay = time.Millisecond
	cfg.Install.LockTimeout = time.Second
	cfg.Queue.DatabasePath = filepath.Join(base, "state", "installs.db")
	cfg.Queue.CheckInterval = 10 * time.Millisecond
	cfg.Notification.Method = "log"
	cfg.Fetch.Attempts = 1
	return cfg
}

var popcornFiles = map[string]string{
	"Popcorn-Time":    "#!/bin/sh\n",
	"popcorntime.png": "png",
}

func popcornTarball(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	writeTarEntries(t, gz, popcornFiles)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func writeTarEntries(t *testing.T, w io.Writer, files map[string]string) {
	t.Helper()
	tw := tar.NewWriter(w)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0755, Size: int64(len(content)), Typeflag: tar.TypeReg}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
}

func popcornTarXz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	require.NoError(t, err)
	writeTarEntries(t, xw, files)
	require.NoError(t, xw.Close())
	return buf.Bytes()
}

// newPopcornServices serves a Popcorn-Time page linking to archive under name
func newPopcornServices(t *testing.T, name string, archive []byte) (*Services, *domain.Config) {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<ul><li class="download dl-lin-64"><a href="%s/build/%s">Linux 64</a></li></ul>`, srv.URL, name)
	})
	mux.HandleFunc("/build/"+name, func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	})

	cfg := testConfig(t)
	popcorn := cfg.Vendor("popcorntime")
	popcorn.PageURL = srv.URL + "/"
	cfg.Vendors["popcorntime"] = popcorn

	services, err := NewServices(cfg, logger.NewSingleLoggerAdapter(zap.NewNop()))
	require.NoError(t, err)
	t.Cleanup(func() { services.Close() })
	services.InstallMgr.arch = "amd64"
	return services, cfg
}

func TestServices_InstallPopcorntimeTarXz(t *testing.T) {
	services, cfg := newPopcornServices(t, "Popcorn-Time-0.3.8-Linux64.tar.xz", popcornTarXz(t, popcornFiles))

	install, err := services.QueueMgr.AddInstall("popcorntime", 0)
	require.NoError(t, err)
	require.NoError(t, services.InstallMgr.ProcessInstall(context.Background(), install))

	current, err := services.QueueMgr.GetInstall(install.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInstalled, current.Status, current.ErrorMessage)

	installPath := cfg.Install.InstallPath("misc", "popcorntime")
	entries, err := os.ReadDir(installPath)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"Popcorn-Time", "popcorntime.png"}, names)

	provider, err := services.Registry.Get("popcorntime")
	require.NoError(t, err)
	assert.True(t, provider.IsInstalled())
}

func TestServices_InstallWithoutBinaryFails(t *testing.T) {
	archive := popcornTarXz(t, map[string]string{"popcorntime.png": "png"})
	services, cfg := newPopcornServices(t, "Popcorn-Time-0.3.8-Linux64.tar.xz", archive)

	install, err := services.QueueMgr.AddInstall("popcorntime", 0)
	require.NoError(t, err)
	err = services.InstallMgr.ProcessInstall(context.Background(), install)
	assert.ErrorIs(t, err, domain.ErrInstallIncomplete)

	current, err := services.QueueMgr.GetInstall(install.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, current.Status)

	provider, err := services.Registry.Get("popcorntime")
	require.NoError(t, err)
	assert.False(t, provider.IsInstalled())
	record, err := services.Repo.FindInstalled("popcorntime")
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.NoFileExists(t, filepath.Join(cfg.Install.InstallPath("misc", "popcorntime"), "Popcorn-Time"))
}

func TestServices_UnsupportedArchiveFails(t *testing.T) {
	services, _ := newPopcornServices(t, "Popcorn-Time-0.3.8.dmg", []byte("dmg"))

	install, err := services.QueueMgr.AddInstall("popcorntime", 0)
	require.NoError(t, err)
	err = services.InstallMgr.ProcessInstall(context.Background(), install)
	assert.ErrorIs(t, err, domain.ErrUnsupportedArchive)

	provider, err := services.Registry.Get("popcorntime")
	require.NoError(t, err)
	assert.False(t, provider.IsInstalled())
}

func TestServices_InstallPopcorntimeEndToEnd(t *testing.T) {
	tarball := popcornTarball(t)
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<ul><li class="download dl-lin-64"><a href="%s/build/Popcorn-Time-0.3.8-Linux64.tar.gz">Linux 64</a></li></ul>`, srv.URL)
	})
	mux.HandleFunc("/build/Popcorn-Time-0.3.8-Linux64.tar.gz", func(w http.ResponseWriter, r *http.Request) {
		w.Write(tarball)
	})

	cfg := testConfig(t)
	popcorn := cfg.Vendor("popcorntime")
	popcorn.PageURL = srv.URL + "/"
	cfg.Vendors["popcorntime"] = popcorn

	multi, err := logger.NewMultiLogger(logger.MultiLoggerConfig{Level: "debug", LogsDir: cfg.Install.LogsDir()})
	require.NoError(t, err)
	defer multi.Close()

	services, err := NewServices(cfg, logger.NewLoggerAdapter(zap.NewNop(), multi))
	require.NoError(t, err)
	defer services.Close()
	services.InstallMgr.arch = "amd64"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, services.QueueMgr.Start(ctx))
	defer services.QueueMgr.Stop()

	install, err := services.QueueMgr.AddInstall("popcorntime", 0)
	require.NoError(t, err)

	var current *domain.Install
	require.Eventually(t, func() bool {
		current, err = services.QueueMgr.GetInstall(install.ID)
		return err == nil && (current.Status == domain.StatusInstalled || current.Status == domain.StatusFailed)
	}, 10*time.Second, 20*time.Millisecond)
	require.Equal(t, domain.StatusInstalled, current.Status, current.ErrorMessage)

	installPath := cfg.Install.InstallPath("misc", "popcorntime")
	assert.Equal(t, installPath, current.InstallPath)
	assert.Equal(t, srv.URL+"/build/Popcorn-Time-0.3.8-Linux64.tar.gz", current.URL)
	assert.FileExists(t, filepath.Join(installPath, "Popcorn-Time"))

	desktop, err := os.ReadFile(filepath.Join(cfg.Install.LauncherDir, "popcorntime.desktop"))
	require.NoError(t, err)
	assert.Contains(t, string(desktop), `Exec="`+filepath.Join(installPath, "Popcorn-Time")+`" %f`)
	assert.Contains(t, string(desktop), "Categories=Video;")

	provider, err := services.Registry.Get("popcorntime")
	require.NoError(t, err)
	assert.True(t, provider.IsInstalled())

	entries, err := os.ReadDir(cfg.Install.IncomingDir())
	require.NoError(t, err)
	assert.Empty(t, entries, "downloads are cleaned up")

	processLog, err := os.ReadFile(filepath.Join(cfg.Install.LogsDir(), "install-"+time.Now().Format("20060102")+".log"))
	require.NoError(t, err)
	assert.Contains(t, string(processLog), "Install popcorntime: "+install.ID)
	assert.Contains(t, string(processLog), "SUCCESS")

	frameworks, err := services.InstallMgr.ListFrameworks()
	require.NoError(t, err)
	require.Len(t, frameworks, 3)
	for _, f := range frameworks {
		assert.Equal(t, f.Name == "popcorntime", f.Installed, f.Name)
	}

	require.NoError(t, services.InstallMgr.RemoveFramework(ctx, "popcorntime"))
	assert.False(t, provider.IsInstalled())
	assert.NoDirExists(t, installPath)
	assert.NoFileExists(t, filepath.Join(cfg.Install.LauncherDir, "popcorntime.desktop"))
}

func TestCreateDirectories(t *testing.T) {
	cfg := testConfig(t)
	cfg.Fetch.CacheDir = filepath.Join(cfg.Install.BaseDir, "cache")

	require.NoError(t, createDirectories(cfg))
	for _, dir := range []string{
		cfg.Install.IncomingDir(),
		cfg.Install.LogsDir(),
		cfg.Install.LocksDir(),
		cfg.Install.Root,
		cfg.Install.LauncherDir,
		cfg.Fetch.CacheDir,
	} {
		assert.DirExists(t, dir)
	}
}
