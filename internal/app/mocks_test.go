package app

import (
	"context"
	"sort"
	"sync"

	"github.com/yourusername/misc-installer-go/internal/domain"
)

// mockRepo implements domain.InstallRepository for testing
type mockRepo struct {
	mu       sync.Mutex
	installs []*domain.Install
}

func newMockRepo() *mockRepo {
	return &mockRepo{installs: make([]*domain.Install, 0)}
}

func (m *mockRepo) Create(install *domain.Install) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.installs = append(m.installs, install)
	return nil
}

func (m *mockRepo) Update(install *domain.Install) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range m.installs {
		if d.ID == install.ID {
			m.installs[i] = install
			return nil
		}
	}
	return nil
}

func (m *mockRepo) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range m.installs {
		if d.ID == id {
			m.installs = append(m.installs[:i], m.installs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockRepo) FindByID(id string) (*domain.Install, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.installs {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, domain.ErrInstallNotFound
}

func (m *mockRepo) FindActiveByFramework(framework string) (*domain.Install, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.installs) - 1; i >= 0; i-- {
		d := m.installs[i]
		if d.Framework == framework && (d.IsPending() || d.IsActive()) {
			return d, nil
		}
	}
	return nil, nil
}

func (m *mockRepo) FindByStatus(status domain.InstallStatus) ([]*domain.Install, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Install
	for _, d := range m.installs {
		if d.Status == status {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockRepo) FindPending() ([]*domain.Install, error) {
	pending, _ := m.FindByStatus(domain.StatusQueued)
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].Priority > pending[j].Priority })
	return pending, nil
}

func (m *mockRepo) FindAll(filters map[string]interface{}) ([]*domain.Install, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Install(nil), m.installs...), nil
}

func (m *mockRepo) ResetOrphaned() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, d := range m.installs {
		if d.IsActive() {
			d.Status = domain.StatusQueued
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) GetStats() (*domain.InstallStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.InstallStats{Total: int64(len(m.installs))}
	for _, d := range m.installs {
		switch d.Status {
		case domain.StatusQueued:
			stats.Queued++
		case domain.StatusInstalled:
			stats.Installed++
		case domain.StatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

func (m *mockRepo) status(id string) domain.InstallStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.installs {
		if d.ID == id {
			return d.Status
		}
	}
	return ""
}

// memoryStore implements InstalledStore for testing
type memoryStore struct {
	mu      sync.Mutex
	records map[string]*domain.InstalledFramework
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]*domain.InstalledFramework)}
}

func (s *memoryStore) MarkInstalled(f *domain.InstalledFramework) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[f.Name] = f
	return nil
}

func (s *memoryStore) Unmark(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, name)
	return nil
}

func (s *memoryStore) FindInstalled(name string) (*domain.InstalledFramework, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[name], nil
}

func (s *memoryStore) ListInstalled() ([]*domain.InstalledFramework, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.InstalledFramework
	for _, r := range s.records {
		out = append(out, r)
	}
	return out, nil
}

// recordingNotifier implements Notifier for testing
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) record(event string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

func (n *recordingNotifier) Screen(framework string) domain.UI { return n }

func (n *recordingNotifier) Display(message string)        { n.record("display:" + message) }
func (n *recordingNotifier) DelayedDisplay(message string) { n.record("delayed:" + message) }
func (n *recordingNotifier) ReturnMainScreen()             { n.record("main") }
func (n *recordingNotifier) NotifyInstallQueued(f string)  { n.record("queued:" + f) }
func (n *recordingNotifier) NotifyInstallStarted(f string) { n.record("started:" + f) }
func (n *recordingNotifier) NotifyInstallCompleted(f, path string) {
	n.record("completed:" + f)
}
func (n *recordingNotifier) NotifyInstallFailed(f string, err error) { n.record("failed:" + f) }
func (n *recordingNotifier) NotifyQueueEmpty()                       { n.record("empty") }

type noopLocker struct{}

func (noopLocker) Lock(ctx context.Context, framework string) (func(), error) {
	return func() {}, nil
}

type requirementsFunc func(packages []string) error

func (f requirementsFunc) Check(packages []string) error { return f(packages) }

// downloaderFunc adapts a function producing one result per request to Downloader
type downloaderFunc func(ctx context.Context, req domain.DownloadRequest) domain.DownloadResult

func (f downloaderFunc) Submit(ctx context.Context, requests []domain.DownloadRequest) <-chan domain.DownloadResult {
	results := make(chan domain.DownloadResult, len(requests))
	go func() {
		defer close(results)
		for _, req := range requests {
			results <- f(ctx, req)
		}
	}()
	return results
}
