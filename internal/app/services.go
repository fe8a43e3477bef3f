package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/yourusername/misc-installer-go/internal/domain"
	"github.com/yourusername/misc-installer-go/internal/infrastructure"
	"github.com/yourusername/misc-installer-go/internal/providers"
	"github.com/yourusername/misc-installer-go/pkg/logger"
	"go.uber.org/zap"
)

// Services is the wired set of components the server runs
type Services struct {
	Repo       *infrastructure.SQLiteInstallRepository
	Registry   *providers.Registry
	Notifier   *infrastructure.NotificationService
	InstallMgr *InstallManager
	QueueMgr   *QueueManager
}

// NewServices creates the state directories and wires repository, host services,
// providers and managers from the configuration
func NewServices(config *domain.Config, logs *logger.LoggerAdapter) (*Services, error) {
	if err := createDirectories(config); err != nil {
		return nil, err
	}

	log := logs.General()

	repo, err := infrastructure.NewSQLiteInstallRepository(config.Queue.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize repository: %w", err)
	}

	fetcher, err := infrastructure.NewHTTPPageFetcher(config.Fetch, log)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to initialize page fetcher: %w", err)
	}

	notifier := infrastructure.NewNotificationService(&config.Notification, log)

	registry := providers.NewRegistry(config, providers.Deps{
		Fetcher:   fetcher,
		Launchers: infrastructure.NewLauncherWriter(config.Install.LauncherDir, log),
		Marker:    repo,
		UI:        notifier,
		Logger:    log,
	})

	installMgr := NewInstallManager(
		repo,
		registry,
		infrastructure.NewDownloadCenter(config.Install.IncomingDir(), config.Fetch, log),
		repo,
		infrastructure.NewRequirementsChecker(log),
		infrastructure.NewInstallLocker(config.Install.LocksDir(), config.Install.LockTimeout),
		notifier,
		&config.Install,
		logs,
	)

	known := func(name string) bool {
		_, err := registry.Get(name)
		return err == nil
	}
	queueMgr := NewQueueManager(repo, installMgr, known, notifier, &config.Queue, logs)

	log.Debug("Services initialized", zap.Strings("frameworks", registry.Names()))

	return &Services{
		Repo:       repo,
		Registry:   registry,
		Notifier:   notifier,
		InstallMgr: installMgr,
		QueueMgr:   queueMgr,
	}, nil
}

// Close releases the database
func (s *Services) Close() error {
	return s.Repo.Close()
}

func createDirectories(config *domain.Config) error {
	dirs := []string{
		config.Install.BaseDir,
		config.Install.IncomingDir(),
		config.Install.LogsDir(),
		config.Install.LocksDir(),
		config.Install.Root,
		config.Install.LauncherDir,
		filepath.Dir(config.Queue.DatabasePath),
		config.Fetch.CacheDir,
	}

	for _, dir := range dirs {
		// Optional paths may be unset
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
