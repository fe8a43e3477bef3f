// Package providers contains the installable frameworks and the pieces they share.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/yourusername/misc-installer-go/internal/domain"
	"github.com/yourusername/misc-installer-go/internal/infrastructure"
	"go.uber.org/zap"
)

// Category is the category every framework in this package is installed under
const Category = "misc"

// Deps are the host services a provider uses
type Deps struct {
	Fetcher   domain.PageFetcher
	Launchers domain.LauncherCreator
	Marker    domain.ConfigMarker
	UI        domain.UI
	Logger    *zap.Logger
}

// Base carries the state and behaviour shared by all providers
type Base struct {
	descriptor  domain.Descriptor
	installPath string
	vendor      domain.VendorConfig
	deps        Deps
}

func newBase(descriptor domain.Descriptor, installPath string, vendor domain.VendorConfig, deps Deps) Base {
	if len(vendor.Requirements) > 0 {
		descriptor.PackageRequirements = vendor.Requirements
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	deps.Logger = deps.Logger.With(zap.String("framework", descriptor.Key()))
	return Base{
		descriptor:  descriptor,
		installPath: installPath,
		vendor:      vendor,
		deps:        deps,
	}
}

// Descriptor implements domain.Provider
func (b *Base) Descriptor() domain.Descriptor {
	return b.descriptor
}

// InstallPath implements domain.Provider
func (b *Base) InstallPath() string {
	return b.installPath
}

// baseInstalled is the generic check: the framework is recorded as installed
// at this install path and the directory exists
func (b *Base) baseInstalled() bool {
	record, err := b.deps.Marker.FindInstalled(b.descriptor.Key())
	if err != nil {
		b.deps.Logger.Debug("Failed to read installed record", zap.Error(err))
		return false
	}
	if record == nil {
		b.deps.Logger.Debug("Framework isn't marked as installed")
		return false
	}
	if filepath.Clean(record.InstallPath) != filepath.Clean(b.installPath) {
		b.deps.Logger.Debug("Framework is installed elsewhere",
			zap.String("recorded_path", record.InstallPath),
			zap.String("install_path", b.installPath))
		return false
	}
	info, err := os.Stat(b.installPath)
	if err != nil || !info.IsDir() {
		b.deps.Logger.Debug("Install path doesn't exist", zap.String("install_path", b.installPath))
		return false
	}
	return true
}

// installedWithBinary combines the generic check with the presence of a file
// at a path relative to the install path
func (b *Base) installedWithBinary(relPath string) bool {
	if !b.baseInstalled() {
		return false
	}
	info, err := os.Stat(filepath.Join(b.installPath, relPath))
	if err != nil || info.IsDir() {
		b.deps.Logger.Debug(fmt.Sprintf("%s binary isn't installed", b.descriptor.Name),
			zap.String("binary", relPath))
		return false
	}
	return true
}

// markInConfig records the framework as installed
func (b *Base) markInConfig(version string) error {
	return b.deps.Marker.MarkInstalled(&domain.InstalledFramework{
		Name:        b.descriptor.Key(),
		Category:    b.descriptor.Category,
		InstallPath: b.installPath,
		Version:     version,
		InstalledAt: time.Now(),
	})
}

// Remove implements domain.Remover: deletes the install path, the launcher and the record
func (b *Base) Remove() error {
	record, err := b.deps.Marker.FindInstalled(b.descriptor.Key())
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("%w: %s", domain.ErrNotInstalled, b.descriptor.Name)
	}

	if err := os.RemoveAll(b.installPath); err != nil {
		return fmt.Errorf("failed to remove %s: %w", b.installPath, err)
	}
	if err := b.deps.Launchers.RemoveLauncher(b.descriptor.DesktopFilename); err != nil {
		return err
	}
	if err := b.deps.Marker.Unmark(b.descriptor.Key()); err != nil {
		return err
	}

	b.deps.Logger.Info("Framework removed", zap.String("install_path", b.installPath))
	return nil
}

// createLauncher writes the framework's desktop entry
func (b *Base) createLauncher(launcher domain.Launcher) error {
	return b.deps.Launchers.CreateLauncher(b.descriptor.DesktopFilename, launcher)
}

// fetchDocument fetches and parses a vendor page
func (b *Base) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	page, err := b.deps.Fetcher.FetchPage(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	return infrastructure.ParseDocument(page)
}

// request builds a download request carrying the configured checksum
func (b *Base) request(rawURL string) (domain.DownloadRequest, error) {
	checksum, err := domain.ParseChecksum(b.vendor.Checksum)
	if err != nil {
		return domain.DownloadRequest{}, err
	}
	return domain.DownloadRequest{URL: rawURL, Checksum: checksum}, nil
}

// resolveURL resolves a scraped link against the page it was found on
func resolveURL(pageURL, href string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("%w: malformed link %q", domain.ErrMarkupNotFound, href)
	}
	return base.ResolveReference(ref).String(), nil
}

// errMissingVendor is returned when a provider has no usable vendor record
var errMissingVendor = errors.New("vendor configuration is incomplete")
