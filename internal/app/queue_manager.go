package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/misc-installer-go/internal/domain"
	"github.com/yourusername/misc-installer-go/pkg/logger"
)

// Installer processes a single install job
type Installer interface {
	ProcessInstall(ctx context.Context, install *domain.Install) error
}

// QueueManager manages the install queue
type QueueManager struct {
	repo      domain.InstallRepository
	installer Installer
	known     func(name string) bool
	notifier  Notifier
	config    *domain.QueueConfig
	logs      *logger.LoggerAdapter
	mu        sync.RWMutex
	running   bool
	inFlight  map[string]struct{}
	stopChan  chan struct{}
	doneChan  chan struct{}
	workerWg  sync.WaitGroup
}

// NewQueueManager creates a new queue manager. known reports whether a framework name is registered.
func NewQueueManager(
	repo domain.InstallRepository,
	installer Installer,
	known func(name string) bool,
	notifier Notifier,
	config *domain.QueueConfig,
	logs *logger.LoggerAdapter,
) *QueueManager {
	return &QueueManager{
		repo:      repo,
		installer: installer,
		known:     known,
		notifier:  notifier,
		config:    config,
		logs:      logs,
		inFlight:  make(map[string]struct{}),
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// Start starts the queue processor
func (qm *QueueManager) Start(ctx context.Context) error {
	qm.mu.Lock()
	if qm.running {
		qm.mu.Unlock()
		return fmt.Errorf("queue manager already running")
	}
	qm.running = true
	qm.mu.Unlock()

	if n, err := qm.repo.ResetOrphaned(); err != nil {
		qm.logs.LogError("Failed to reset orphaned installs", zap.Error(err))
	} else if n > 0 {
		qm.logs.LogQueueEvent("orphaned_requeued", zap.Int64("count", n))
	}

	qm.logs.LogQueueEvent("queue_started")

	qm.workerWg.Add(1)
	go qm.processQueue(ctx)

	return nil
}

// Stop stops the queue processor and waits for running installs
func (qm *QueueManager) Stop() error {
	qm.mu.Lock()
	if !qm.running {
		qm.mu.Unlock()
		return fmt.Errorf("queue manager not running")
	}
	qm.running = false
	qm.mu.Unlock()

	qm.logs.LogQueueEvent("queue_stopped")
	close(qm.stopChan)
	qm.workerWg.Wait()

	return nil
}

// Done is closed once the queue processor exits, including on auto-exit
func (qm *QueueManager) Done() <-chan struct{} {
	return qm.doneChan
}

// IsRunning returns whether the queue manager is running
func (qm *QueueManager) IsRunning() bool {
	qm.mu.RLock()
	defer qm.mu.RUnlock()
	return qm.running
}

// AddInstall queues an install of a framework. A queued or running job for the
// same framework is returned instead of creating a second one.
func (qm *QueueManager) AddInstall(framework string, priority int) (*domain.Install, error) {
	if qm.known != nil && !qm.known(framework) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownFramework, framework)
	}

	existing, err := qm.repo.FindActiveByFramework(framework)
	if err != nil {
		return nil, fmt.Errorf("failed to look up active installs: %w", err)
	}
	if existing != nil {
		qm.logs.LogQueueEvent("install_deduplicated",
			zap.String("id", existing.ID),
			zap.String("framework", framework),
			zap.String("status", string(existing.Status)))
		return existing, nil
	}

	install := domain.NewInstall(framework)
	install.Priority = priority

	if err := qm.repo.Create(install); err != nil {
		return nil, fmt.Errorf("failed to create install: %w", err)
	}

	qm.logs.LogQueueEvent("install_added",
		zap.String("id", install.ID),
		zap.String("framework", framework),
		zap.Int("priority", priority))
	if qm.notifier != nil {
		qm.notifier.NotifyInstallQueued(framework)
	}

	return install, nil
}

// GetInstall retrieves an install by ID
func (qm *QueueManager) GetInstall(id string) (*domain.Install, error) {
	return qm.repo.FindByID(id)
}

// ListInstalls lists all installs with optional filters
func (qm *QueueManager) ListInstalls(filters map[string]interface{}) ([]*domain.Install, error) {
	return qm.repo.FindAll(filters)
}

// DeleteInstall removes a finished install record
func (qm *QueueManager) DeleteInstall(id string) error {
	install, err := qm.repo.FindByID(id)
	if err != nil {
		return err
	}
	if install.IsActive() {
		return fmt.Errorf("install %s is still %s", id, install.Status)
	}
	return qm.repo.Delete(id)
}

// GetStats returns queue statistics
func (qm *QueueManager) GetStats() (*domain.InstallStats, error) {
	return qm.repo.GetStats()
}

// claim marks an install as dispatched, returning false if it already is
func (qm *QueueManager) claim(id string) bool {
	qm.mu.Lock()
	defer qm.mu.Unlock()
	if _, ok := qm.inFlight[id]; ok {
		return false
	}
	qm.inFlight[id] = struct{}{}
	return true
}

func (qm *QueueManager) release(id string) {
	qm.mu.Lock()
	delete(qm.inFlight, id)
	qm.mu.Unlock()
}

// processQueue dispatches pending installs on every tick
func (qm *QueueManager) processQueue(ctx context.Context) {
	defer qm.workerWg.Done()
	defer close(qm.doneChan)

	ticker := time.NewTicker(qm.config.CheckInterval)
	defer ticker.Stop()

	emptyStartTime := time.Time{}

	for {
		select {
		case <-ctx.Done():
			qm.logs.LogQueueEvent("queue_processor_stopped", zap.String("reason", "context_cancelled"))
			return
		case <-qm.stopChan:
			qm.logs.LogQueueEvent("queue_processor_stopped", zap.String("reason", "stop_signal"))
			return
		case <-ticker.C:
			pending, err := qm.repo.FindPending()
			if err != nil {
				qm.logs.LogError("Failed to fetch pending installs", zap.Error(err))
				continue
			}

			dispatched := 0
			for _, install := range pending {
				if !qm.claim(install.ID) {
					continue
				}
				dispatched++

				qm.logs.LogQueueEvent("install_started",
					zap.String("id", install.ID),
					zap.String("framework", install.Framework))

				// Concurrency is bounded by the install manager's semaphores
				qm.workerWg.Add(1)
				go func(install *domain.Install) {
					defer qm.workerWg.Done()
					defer qm.release(install.ID)

					if err := qm.installer.ProcessInstall(ctx, install); err != nil {
						qm.logs.LogQueueEvent("install_failed",
							zap.String("id", install.ID),
							zap.Error(err))
						return
					}
					qm.logs.LogQueueEvent("install_finished",
						zap.String("id", install.ID),
						zap.String("status", string(install.Status)),
						zap.String("install_path", install.InstallPath))
				}(install)
			}

			if dispatched > 0 || qm.busy() {
				emptyStartTime = time.Time{}
				continue
			}

			if emptyStartTime.IsZero() {
				emptyStartTime = time.Now()
				qm.logs.LogQueueEvent("queue_empty")
				if qm.notifier != nil {
					qm.notifier.NotifyQueueEmpty()
				}
			} else if qm.config.AutoExitOnEmpty && time.Since(emptyStartTime) > qm.config.EmptyWaitTime {
				qm.logs.LogQueueEvent("queue_auto_exit", zap.String("reason", "empty_timeout"))
				return
			}
		}
	}
}

func (qm *QueueManager) busy() bool {
	qm.mu.RLock()
	defer qm.mu.RUnlock()
	return len(qm.inFlight) > 0
}
