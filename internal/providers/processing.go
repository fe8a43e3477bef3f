package providers

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/yourusername/misc-installer-go/internal/domain"
	"github.com/yourusername/misc-installer-go/internal/infrastructure"
	"go.uber.org/zap"
)

// Processing installs the Processing creative-coding environment
type Processing struct {
	Base

	machine func() (string, error)

	mu      sync.Mutex
	version string
}

// NewProcessing creates the Processing provider
func NewProcessing(installPath string, vendor domain.VendorConfig, deps Deps) *Processing {
	return &Processing{
		Base: newBase(domain.Descriptor{
			Name:            "Processing",
			Description:     "Processing creative coding environment",
			Category:        Category,
			DesktopFilename: "processing.desktop",
		}, installPath, vendor, deps),
		machine: infrastructure.MachineArch,
	}
}

// DownloadProviderPage follows the download page to the tarball for this machine
func (p *Processing) DownloadProviderPage(ctx context.Context) ([]domain.DownloadRequest, error) {
	if p.vendor.PageURL == "" || p.vendor.LinkSelector == "" || p.vendor.SecondSelector == "" {
		return nil, fmt.Errorf("processing: %w", errMissingVendor)
	}

	machine, err := p.machine()
	if err != nil {
		return nil, err
	}
	tag, err := infrastructure.PlatformTag(machine)
	if err != nil {
		p.deps.Logger.Error("Unsupported machine architecture", zap.String("machine", machine))
		return nil, err
	}

	doc, err := p.fetchDocument(ctx, p.vendor.PageURL)
	if err != nil {
		return nil, err
	}

	if p.vendor.VersionSelector != "" {
		version, err := infrastructure.SelectText(doc, p.vendor.VersionSelector)
		if err != nil {
			return nil, err
		}
		p.setVersion(version)
	}

	selector, err := linkSelector(p.vendor.LinkSelector, tag)
	if err != nil {
		return nil, err
	}
	href, err := infrastructure.SelectAttr(doc, selector, p.linkAttr())
	if err != nil {
		return nil, err
	}
	secondURL, err := resolveURL(p.vendor.PageURL, href)
	if err != nil {
		return nil, err
	}

	second, err := p.fetchDocument(ctx, secondURL)
	if err != nil {
		return nil, err
	}
	href, err = infrastructure.SelectAttr(second, p.vendor.SecondSelector, p.linkAttr())
	if err != nil {
		return nil, err
	}
	fileURL, err := resolveURL(secondURL, href)
	if err != nil {
		return nil, err
	}

	p.deps.Logger.Debug("Resolved download",
		zap.String("url", fileURL),
		zap.String("platform", tag),
		zap.String("version", p.Version()))

	req, err := p.request(fileURL)
	if err != nil {
		return nil, err
	}
	return []domain.DownloadRequest{req}, nil
}

// LatestVersion scrapes the version advertised on the download page
func (p *Processing) LatestVersion(ctx context.Context) (string, error) {
	if p.vendor.PageURL == "" || p.vendor.VersionSelector == "" {
		return "", fmt.Errorf("processing: %w", errMissingVendor)
	}
	doc, err := p.fetchDocument(ctx, p.vendor.PageURL)
	if err != nil {
		return "", err
	}
	return infrastructure.SelectText(doc, p.vendor.VersionSelector)
}

// Version returns the version found by the last resolve
func (p *Processing) Version() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.version
}

func (p *Processing) setVersion(v string) {
	p.mu.Lock()
	p.version = v
	p.mu.Unlock()
}

// ArchiveRoot is the versioned directory the tarball wraps everything in
func (p *Processing) ArchiveRoot() string {
	v := p.Version()
	if v == "" {
		return ""
	}
	return "processing-" + v
}

// PostInstall creates the launcher
func (p *Processing) PostInstall() error {
	return p.createLauncher(domain.Launcher{
		Name:       "Processing",
		IconPath:   filepath.Join(p.installPath, "lib", "icons", "pde-256.png"),
		Exec:       infrastructure.QuoteExecArg(filepath.Join(p.installPath, "processing")) + " %f",
		Comment:    "Processing creative coding environment",
		Categories: "Development;IDE;Graphics;",
	})
}

// IsInstalled checks the install record and the processing launcher script
func (p *Processing) IsInstalled() bool {
	return p.installedWithBinary("processing")
}

func (p *Processing) linkAttr() string {
	if p.vendor.LinkAttr == "" {
		return "href"
	}
	return p.vendor.LinkAttr
}

// linkSelector fills the platform tag into a selector template
func linkSelector(pattern, tag string) (string, error) {
	tmpl, err := template.New("selector").Option("missingkey=error").Parse(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid link selector %q: %w", pattern, err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, struct{ Tag string }{Tag: tag}); err != nil {
		return "", fmt.Errorf("invalid link selector %q: %w", pattern, err)
	}
	return b.String(), nil
}
