package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/misc-installer-go/internal/domain"
)

// fakeAPI serves just enough of the installer API for the CLI commands
type fakeAPI struct {
	mu       sync.Mutex
	installs map[string]*domain.Install
	polls    int
}

func newFakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	api := &fakeAPI{installs: make(map[string]*domain.Install)}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/frameworks", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]interface{}{
			{"name": "drjava", "installed": true, "version": "", "install_path": "/opt/misc/drjava",
				"descriptor": map[string]interface{}{"name": "drjava"}},
			{"name": "popcorntime", "installed": false, "install_path": "/opt/misc/popcorntime",
				"descriptor": map[string]interface{}{"name": "popcorntime", "only_on_archs": []string{"i386", "amd64"}}},
		})
	})
	mux.HandleFunc("/api/v1/installs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			api.mu.Lock()
			list := make([]*domain.Install, 0, len(api.installs))
			for _, i := range api.installs {
				list = append(list, i)
			}
			api.mu.Unlock()
			writeJSON(w, http.StatusOK, list)
			return
		}
		var req struct {
			Framework string `json:"framework"`
			Priority  int    `json:"priority"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Framework == "eclipse" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown framework: eclipse"})
			return
		}
		install := domain.NewInstall(req.Framework)
		install.Priority = req.Priority
		api.mu.Lock()
		api.installs[install.ID] = install
		api.mu.Unlock()
		writeJSON(w, http.StatusCreated, install)
	})
	mux.HandleFunc("/api/v1/installs/", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/api/v1/installs/"):]
		api.mu.Lock()
		defer api.mu.Unlock()
		install, ok := api.installs[id]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "install not found"})
			return
		}
		// Each poll moves the job one step forward
		api.polls++
		switch api.polls {
		case 1:
			install.Status = domain.StatusDownloading
		default:
			install.Status = domain.StatusInstalled
			install.InstallPath = "/opt/misc/" + install.Framework
		}
		writeJSON(w, http.StatusOK, install)
	})
	mux.HandleFunc("/api/v1/installs/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.InstallStats{Total: 4, Installed: 3, Failed: 1})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func runCLI(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--server", srv.URL, "--no-auto-start"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCLI_Frameworks(t *testing.T) {
	srv := newFakeAPI(t)

	out, err := runCLI(t, srv, "frameworks")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "drjava")
	assert.Contains(t, out, "i386,amd64")
	assert.Contains(t, out, "all")
}

func TestCLI_InstallAndWait(t *testing.T) {
	srv := newFakeAPI(t)
	pollInterval = time.Millisecond
	defer func() { pollInterval = time.Second }()

	out, err := runCLI(t, srv, "install", "drjava", "--wait")
	require.NoError(t, err)
	assert.Contains(t, out, "Queued drjava")
	assert.Contains(t, out, "drjava: downloading")
	assert.Contains(t, out, "drjava installed in /opt/misc/drjava")
}

func TestCLI_InstallUnknownFramework(t *testing.T) {
	srv := newFakeAPI(t)

	_, err := runCLI(t, srv, "install", "eclipse", "--wait=false")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown framework: eclipse")
}

func TestCLI_GetMissing(t *testing.T) {
	srv := newFakeAPI(t)

	_, err := runCLI(t, srv, "get", "nope")
	require.Error(t, err)
	assert.Equal(t, "install not found", err.Error())
}

func TestCLI_Stats(t *testing.T) {
	srv := newFakeAPI(t)

	out, err := runCLI(t, srv, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Install Statistics:")
	assert.Regexp(t, `Total:\s+4`, out)
	assert.Regexp(t, `Failed:\s+1`, out)
}

func TestTruncateAndFormatFields(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 8))
	assert.Equal(t, "abcdefgh", truncate("abcdefghij", 8))
	assert.Equal(t, "", formatFields(nil))
	assert.Equal(t, " a=1 b=x", formatFields(map[string]interface{}{"b": "x", "a": 1}))
}
