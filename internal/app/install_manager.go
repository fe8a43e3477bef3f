package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/yourusername/misc-installer-go/internal/domain"
	"github.com/yourusername/misc-installer-go/internal/infrastructure"
	"github.com/yourusername/misc-installer-go/internal/providers"
	"github.com/yourusername/misc-installer-go/pkg/logger"
	"go.uber.org/zap"
)

// Downloader submits download requests and hands results back over a channel
type Downloader interface {
	Submit(ctx context.Context, requests []domain.DownloadRequest) <-chan domain.DownloadResult
}

// InstalledStore is the configuration marker plus listing
type InstalledStore interface {
	domain.ConfigMarker
	ListInstalled() ([]*domain.InstalledFramework, error)
}

// RequirementsChecker verifies system package prerequisites
type RequirementsChecker interface {
	Check(packages []string) error
}

// Locker serializes work on one framework across processes
type Locker interface {
	Lock(ctx context.Context, framework string) (func(), error)
}

// Notifier is the UI layer plus install lifecycle notifications.
// Screen returns the UI of one framework, so delayed messages of concurrent
// installs stay apart.
type Notifier interface {
	Screen(framework string) domain.UI
	NotifyInstallQueued(framework string)
	NotifyInstallStarted(framework string)
	NotifyInstallCompleted(framework, installPath string)
	NotifyInstallFailed(framework string, err error)
	NotifyQueueEmpty()
}

// FrameworkInfo describes a registered framework and its install state
type FrameworkInfo struct {
	Name        string            `json:"name"`
	Descriptor  domain.Descriptor `json:"descriptor"`
	InstallPath string            `json:"install_path"`
	Installed   bool              `json:"installed"`
	Version     string            `json:"version,omitempty"`
	InstalledAt *time.Time        `json:"installed_at,omitempty"`
}

// VersionInfo compares the installed version of a framework with the latest published one
type VersionInfo struct {
	Framework       string `json:"framework"`
	Installed       string `json:"installed,omitempty"`
	Latest          string `json:"latest"`
	UpdateAvailable bool   `json:"update_available"`
}

// InstallManager runs install jobs through resolve, download, unpack and post-install
type InstallManager struct {
	repo         domain.InstallRepository
	registry     *providers.Registry
	downloader   Downloader
	store        InstalledStore
	requirements RequirementsChecker
	locker       Locker
	notifier     Notifier
	config       *domain.InstallConfig
	logs         *logger.LoggerAdapter
	arch         string

	slots      chan struct{}
	semaphores map[string]chan struct{} // per-framework, limit 1
	cancels    map[string]context.CancelFunc
	mu         sync.Mutex
}

// NewInstallManager creates a new install manager
func NewInstallManager(
	repo domain.InstallRepository,
	registry *providers.Registry,
	downloader Downloader,
	store InstalledStore,
	requirements RequirementsChecker,
	locker Locker,
	notifier Notifier,
	config *domain.InstallConfig,
	logs *logger.LoggerAdapter,
) *InstallManager {
	semaphores := make(map[string]chan struct{})
	for _, name := range registry.Names() {
		semaphores[name] = make(chan struct{}, 1)
	}

	limit := config.ConcurrentLimit
	if limit < 1 {
		limit = 1
	}

	return &InstallManager{
		repo:         repo,
		registry:     registry,
		downloader:   downloader,
		store:        store,
		requirements: requirements,
		locker:       locker,
		notifier:     notifier,
		config:       config,
		logs:         logs,
		arch:         infrastructure.DpkgArch(),
		slots:        make(chan struct{}, limit),
		semaphores:   semaphores,
		cancels:      make(map[string]context.CancelFunc),
	}
}

// ProcessInstall runs a single install job to a terminal or failed state
func (im *InstallManager) ProcessInstall(ctx context.Context, install *domain.Install) error {
	log := im.logs.General().With(zap.String("id", install.ID), zap.String("framework", install.Framework))

	provider, err := im.registry.Get(install.Framework)
	if err != nil {
		im.fail(install, nil, err)
		return err
	}

	im.mu.Lock()
	sem := im.semaphores[install.Framework]
	im.mu.Unlock()

	select {
	case sem <- struct{}{}:
		defer func() { <-sem }()
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case im.slots <- struct{}{}:
		defer func() { <-im.slots }()
	case <-ctx.Done():
		return ctx.Err()
	}

	// A cancel may have arrived while waiting for a slot
	if current, err := im.repo.FindByID(install.ID); err == nil && current.Status == domain.StatusCancelled {
		install.Status = domain.StatusCancelled
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	im.mu.Lock()
	im.cancels[install.ID] = cancel
	im.mu.Unlock()
	defer func() {
		im.mu.Lock()
		delete(im.cancels, install.ID)
		im.mu.Unlock()
	}()

	log.Info("Processing install")

	install.MarkDownloading()
	if err := im.repo.Update(install); err != nil {
		return fmt.Errorf("failed to update install status: %w", err)
	}
	im.notifier.NotifyInstallStarted(install.Framework)

	processLog := im.logs.OpenInstallLog(install.ID, install.Framework)

	if err := im.checkPrerequisites(provider, processLog); err != nil {
		im.fail(install, processLog, err)
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= im.config.MaxRetries; attempt++ {
		if attempt > 0 {
			log.Info("Retrying install",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", im.config.MaxRetries))

			select {
			case <-time.After(im.config.RetryDelay):
			case <-ctx.Done():
				lastErr = ctx.Err()
			}
			if ctx.Err() != nil {
				break
			}

			install.IncrementRetry()
			install.Status = domain.StatusDownloading
			im.repo.Update(install)
		}

		err := im.runInstall(ctx, provider, install, processLog)
		if err == nil {
			processLog.Finish(true, fmt.Sprintf("Installed in %s", provider.InstallPath()))
			install.MarkInstalled(provider.InstallPath())
			if err := im.repo.Update(install); err != nil {
				log.Error("Failed to update install status", zap.Error(err))
			}

			log.Info("Install completed", zap.String("install_path", provider.InstallPath()))
			im.notifier.NotifyInstallCompleted(install.Framework, provider.InstallPath())
			return nil
		}

		lastErr = err
		log.Warn("Install attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		processLog.Printf("attempt %d failed: %v", attempt, err)

		if ctx.Err() != nil || !retryable(err) {
			break
		}
	}

	if ctx.Err() != nil && im.isCancelled(install.ID) {
		install.Status = domain.StatusCancelled
		install.UpdatedAt = time.Now()
		im.repo.Update(install)
		processLog.Finish(false, "cancelled")
		im.notifier.Screen(install.Framework).ReturnMainScreen()
		log.Info("Install cancelled")
		return nil
	}

	im.fail(install, processLog, lastErr)
	return lastErr
}

// retryable reports whether another attempt could succeed
func retryable(err error) bool {
	for _, permanent := range []error{
		domain.ErrMarkupNotFound,
		domain.ErrUnsupportedArch,
		domain.ErrUnsupportedArchive,
		domain.ErrInstallIncomplete,
	} {
		if errors.Is(err, permanent) {
			return false
		}
	}
	return true
}

// checkPrerequisites applies the architecture gate and the package requirements check
func (im *InstallManager) checkPrerequisites(provider domain.Provider, processLog *logger.InstallLog) error {
	desc := provider.Descriptor()
	if !desc.SupportsArch(im.arch) {
		return fmt.Errorf("%w: %s is only available on %v, this system is %s",
			domain.ErrUnsupportedArch, desc.Name, desc.OnlyOnArchs, im.arch)
	}

	if im.config.CheckRequirements && len(desc.PackageRequirements) > 0 {
		processLog.Command(infrastructure.ShellEscapeCommand("dpkg-query", append([]string{"-W"}, desc.PackageRequirements...)...))
		if err := im.requirements.Check(desc.PackageRequirements); err != nil {
			return err
		}
	}
	return nil
}

// runInstall performs one attempt: resolve, download, hand off, unpack, post-install, mark
func (im *InstallManager) runInstall(ctx context.Context, provider domain.Provider, install *domain.Install, processLog *logger.InstallLog) error {
	desc := provider.Descriptor()

	unlock, err := im.locker.Lock(ctx, desc.Key())
	if err != nil {
		return err
	}
	defer unlock()

	requests, err := provider.DownloadProviderPage(ctx)
	if err != nil {
		return err
	}
	if len(requests) == 0 {
		return fmt.Errorf("%w: %s resolved no downloads", domain.ErrMarkupNotFound, desc.Name)
	}
	for _, req := range requests {
		processLog.Printf("resolved %s", req.URL)
	}

	// The only asynchronous boundary: results come back over the channel before
	// the install path or the UI is touched
	results, err := infrastructure.Collect(im.downloader.Submit(ctx, requests))
	defer im.cleanupDownloads(results)
	if err != nil {
		return err
	}

	install.MarkInstalling(requests[0].URL)
	if v, ok := provider.(interface{ Version() string }); ok {
		install.Version = v.Version()
	}
	if err := im.repo.Update(install); err != nil {
		return fmt.Errorf("failed to update install status: %w", err)
	}

	if custom, ok := provider.(domain.CustomInstaller); ok {
		for _, result := range results {
			processLog.Printf("installing %s", result.FilePath)
			if err := im.customInstall(ctx, custom, result.FilePath); err != nil {
				return err
			}
		}
		return im.verifyInstalled(provider)
	}

	return im.genericInstall(provider, install, results, processLog)
}

// verifyInstalled fails an install that left the framework unusable and drops its record
func (im *InstallManager) verifyInstalled(provider domain.Provider) error {
	if provider.IsInstalled() {
		return nil
	}
	desc := provider.Descriptor()
	if err := im.store.Unmark(desc.Key()); err != nil {
		im.logs.General().Warn("Failed to unmark framework", zap.String("framework", desc.Key()), zap.Error(err))
	}
	return fmt.Errorf("%w: %s is not in place under %s", domain.ErrInstallIncomplete, desc.Name, provider.InstallPath())
}

func (im *InstallManager) customInstall(ctx context.Context, custom domain.CustomInstaller, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()
	return custom.DecompressAndInstall(ctx, f)
}

func (im *InstallManager) genericInstall(provider domain.Provider, install *domain.Install, results []domain.DownloadResult, processLog *logger.InstallLog) error {
	desc := provider.Descriptor()
	ui := im.notifier.Screen(install.Framework)

	// Pick every extractor before the current install is cleared
	extractors := make([]infrastructure.Extractor, len(results))
	for i, result := range results {
		extractor, err := infrastructure.NewExtractor(infrastructure.DownloadFileName(result.Request.URL))
		if err != nil {
			return err
		}
		extractors[i] = extractor
	}

	ui.Display(fmt.Sprintf("Installing %s", desc.Name))

	root := ""
	if layout, ok := provider.(domain.ArchiveLayout); ok {
		root = layout.ArchiveRoot()
	}

	if err := os.RemoveAll(provider.InstallPath()); err != nil {
		return fmt.Errorf("failed to clear install path: %w", err)
	}
	for i, result := range results {
		processLog.Printf("unpacking %s into %s", result.FilePath, provider.InstallPath())
		if err := extractors[i].Extract(result.FilePath, provider.InstallPath(), root); err != nil {
			return fmt.Errorf("failed to unpack %s: %w", result.Request.URL, err)
		}
	}

	if err := provider.PostInstall(); err != nil {
		return fmt.Errorf("post-install failed: %w", err)
	}

	if err := im.store.MarkInstalled(&domain.InstalledFramework{
		Name:        desc.Key(),
		Category:    desc.Category,
		InstallPath: provider.InstallPath(),
		Version:     install.Version,
		InstalledAt: time.Now(),
	}); err != nil {
		return fmt.Errorf("failed to mark %s as installed: %w", desc.Name, err)
	}

	if err := im.verifyInstalled(provider); err != nil {
		return err
	}

	ui.DelayedDisplay("Installation done")
	ui.ReturnMainScreen()
	return nil
}

func (im *InstallManager) cleanupDownloads(results []domain.DownloadResult) {
	if im.config.KeepDownloads {
		return
	}
	for _, r := range results {
		if r.FilePath != "" {
			os.Remove(r.FilePath)
		}
	}
}

func (im *InstallManager) fail(install *domain.Install, processLog *logger.InstallLog, err error) {
	install.MarkFailed(err)
	if updateErr := im.repo.Update(install); updateErr != nil {
		im.logs.General().Error("Failed to update install status", zap.Error(updateErr))
	}

	im.logs.LogError("Install failed",
		zap.String("id", install.ID),
		zap.String("framework", install.Framework),
		zap.Error(err))
	processLog.Finish(false, err.Error())
	im.notifier.NotifyInstallFailed(install.Framework, err)
	im.notifier.Screen(install.Framework).ReturnMainScreen()
}

func (im *InstallManager) isCancelled(id string) bool {
	current, err := im.repo.FindByID(id)
	return err == nil && current.Status == domain.StatusCancelled
}

// CancelInstall cancels a queued or running install
func (im *InstallManager) CancelInstall(id string) error {
	install, err := im.repo.FindByID(id)
	if err != nil {
		return fmt.Errorf("install not found: %w", err)
	}

	if install.IsTerminal() {
		return fmt.Errorf("install already in terminal state: %s", install.Status)
	}

	install.Status = domain.StatusCancelled
	install.UpdatedAt = time.Now()
	if err := im.repo.Update(install); err != nil {
		return fmt.Errorf("failed to update install: %w", err)
	}

	im.mu.Lock()
	cancel, running := im.cancels[id]
	im.mu.Unlock()
	if running {
		cancel()
	}

	im.logs.General().Info("Install cancelled", zap.String("id", id), zap.Bool("was_running", running))
	return nil
}

// RetryInstall re-queues a failed install
func (im *InstallManager) RetryInstall(id string) error {
	install, err := im.repo.FindByID(id)
	if err != nil {
		return fmt.Errorf("install not found: %w", err)
	}

	if install.Status != domain.StatusFailed {
		return fmt.Errorf("install is not in failed state: %s", install.Status)
	}

	install.Status = domain.StatusQueued
	install.RetryCount = 0
	install.ErrorMessage = ""
	install.UpdatedAt = time.Now()

	if err := im.repo.Update(install); err != nil {
		return fmt.Errorf("failed to update install: %w", err)
	}

	im.logs.General().Info("Install queued for retry", zap.String("id", id))
	return nil
}

// RemoveFramework deletes an installed framework, its launcher and its record
func (im *InstallManager) RemoveFramework(ctx context.Context, name string) error {
	provider, err := im.registry.Get(name)
	if err != nil {
		return err
	}
	remover, ok := provider.(domain.Remover)
	if !ok {
		return fmt.Errorf("%s cannot be removed", name)
	}

	unlock, err := im.locker.Lock(ctx, name)
	if err != nil {
		return err
	}
	defer unlock()

	if err := remover.Remove(); err != nil {
		return err
	}
	im.logs.LogQueueEvent("framework_removed", zap.String("framework", name))
	return nil
}

// ListFrameworks returns every registered framework with its install state
func (im *InstallManager) ListFrameworks() ([]FrameworkInfo, error) {
	records, err := im.store.ListInstalled()
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*domain.InstalledFramework, len(records))
	for _, r := range records {
		byName[r.Name] = r
	}

	var infos []FrameworkInfo
	for _, p := range im.registry.All() {
		desc := p.Descriptor()
		info := FrameworkInfo{
			Name:        desc.Key(),
			Descriptor:  desc,
			InstallPath: p.InstallPath(),
			Installed:   p.IsInstalled(),
		}
		if r, ok := byName[desc.Key()]; ok {
			info.Version = r.Version
			installedAt := r.InstalledAt
			info.InstalledAt = &installedAt
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// CheckVersion compares the installed version with the latest one the vendor advertises
func (im *InstallManager) CheckVersion(ctx context.Context, name string) (*VersionInfo, error) {
	provider, err := im.registry.Get(name)
	if err != nil {
		return nil, err
	}
	reporter, ok := provider.(domain.VersionReporter)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrVersionUnsupported, name)
	}

	latest, err := reporter.LatestVersion(ctx)
	if err != nil {
		return nil, err
	}

	info := &VersionInfo{Framework: name, Latest: latest}
	record, err := im.store.FindInstalled(name)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return info, nil
	}
	info.Installed = record.Version
	info.UpdateAvailable = isNewer(latest, record.Version)
	return info, nil
}

// isNewer reports whether latest is a newer version than installed.
// Unparseable versions are compared for equality only.
func isNewer(latest, installed string) bool {
	if installed == "" {
		return true
	}
	lv, lerr := semver.NewVersion(latest)
	iv, ierr := semver.NewVersion(installed)
	if lerr != nil || ierr != nil {
		return latest != installed
	}
	return lv.GreaterThan(iv)
}
