package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yourusername/misc-installer-go/internal/domain"
	"github.com/yourusername/misc-installer-go/internal/infrastructure"
	"go.uber.org/zap"
)

type memoryMarker struct {
	mu      sync.Mutex
	records map[string]*domain.InstalledFramework
	calls   *[]string
}

func newMemoryMarker() *memoryMarker {
	return &memoryMarker{records: make(map[string]*domain.InstalledFramework)}
}

func (m *memoryMarker) MarkInstalled(f *domain.InstalledFramework) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls != nil {
		*m.calls = append(*m.calls, "mark")
	}
	copied := *f
	m.records[f.Name] = &copied
	return nil
}

func (m *memoryMarker) Unmark(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, name)
	return nil
}

func (m *memoryMarker) FindInstalled(name string) (*domain.InstalledFramework, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[name], nil
}

type recordingLaunchers struct {
	created map[string]domain.Launcher
	removed []string
	calls   *[]string
}

func newRecordingLaunchers() *recordingLaunchers {
	return &recordingLaunchers{created: make(map[string]domain.Launcher)}
}

func (l *recordingLaunchers) CreateLauncher(desktopFilename string, launcher domain.Launcher) error {
	if l.calls != nil {
		*l.calls = append(*l.calls, "launcher")
	}
	l.created[desktopFilename] = launcher
	return nil
}

func (l *recordingLaunchers) RemoveLauncher(desktopFilename string) error {
	l.removed = append(l.removed, desktopFilename)
	delete(l.created, desktopFilename)
	return nil
}

type recordingUI struct {
	messages []string
	returns  int
}

func (u *recordingUI) Display(message string)        { u.messages = append(u.messages, message) }
func (u *recordingUI) DelayedDisplay(message string) { u.messages = append(u.messages, "delayed:"+message) }
func (u *recordingUI) ReturnMainScreen()             { u.returns++ }

type testEnv struct {
	deps      Deps
	marker    *memoryMarker
	launchers *recordingLaunchers
	ui        *recordingUI
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	fetcher, err := infrastructure.NewHTTPPageFetcher(domain.FetchConfig{Timeout: time.Second, Attempts: 1}, zap.NewNop())
	require.NoError(t, err)

	env := &testEnv{
		marker:    newMemoryMarker(),
		launchers: newRecordingLaunchers(),
		ui:        &recordingUI{},
	}
	env.deps = Deps{
		Fetcher:   fetcher,
		Launchers: env.launchers,
		Marker:    env.marker,
		UI:        env.ui,
		Logger:    zap.NewNop(),
	}
	return env
}

// servePages serves fixed HTML bodies by path; %s in a body is replaced by the server URL
func servePages(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, body, srv.URL)
	}))
	t.Cleanup(srv.Close)
	return srv
}

type staticFetcher map[string]string

func (f staticFetcher) FetchPage(ctx context.Context, url string) ([]byte, error) {
	page, ok := f[url]
	if !ok {
		return nil, &infrastructure.HTTPError{URL: url, StatusCode: http.StatusNotFound}
	}
	return []byte(page), nil
}
