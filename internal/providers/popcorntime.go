package providers

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/yourusername/misc-installer-go/internal/domain"
	"github.com/yourusername/misc-installer-go/internal/infrastructure"
	"go.uber.org/zap"
)

// Popcorntime installs the Popcorn-Time torrent video player
type Popcorntime struct {
	Base
}

// NewPopcorntime creates the Popcorn-Time provider
func NewPopcorntime(installPath string, vendor domain.VendorConfig, deps Deps) *Popcorntime {
	return &Popcorntime{Base: newBase(domain.Descriptor{
		Name:            "Popcorntime",
		Description:     "Popcorntime torrent video player",
		Category:        Category,
		OnlyOnArchs:     []string{"amd64"},
		DesktopFilename: "popcorntime.desktop",
	}, installPath, vendor, deps)}
}

// DownloadProviderPage scrapes the homepage for the 64-bit Linux build
func (p *Popcorntime) DownloadProviderPage(ctx context.Context) ([]domain.DownloadRequest, error) {
	if p.vendor.PageURL == "" || p.vendor.LinkSelector == "" {
		return nil, fmt.Errorf("popcorntime: %w", errMissingVendor)
	}

	doc, err := p.fetchDocument(ctx, p.vendor.PageURL)
	if err != nil {
		return nil, err
	}

	attr := p.vendor.LinkAttr
	if attr == "" {
		attr = "href"
	}
	href, err := infrastructure.SelectAttr(doc, p.vendor.LinkSelector, attr)
	if err != nil {
		return nil, err
	}

	fileURL, err := resolveURL(p.vendor.PageURL, href)
	if err != nil {
		return nil, err
	}
	if p.vendor.MirrorBase != "" {
		fileURL = strings.TrimSuffix(p.vendor.MirrorBase, "/") + "/" + path.Base(fileURL)
	}

	p.deps.Logger.Debug("Resolved download", zap.String("url", fileURL))
	req, err := p.request(fileURL)
	if err != nil {
		return nil, err
	}
	return []domain.DownloadRequest{req}, nil
}

// PostInstall creates the launcher
func (p *Popcorntime) PostInstall() error {
	return p.createLauncher(domain.Launcher{
		Name:       "Popcorn-Time",
		IconPath:   filepath.Join(p.installPath, "popcorntime.png"),
		Exec:       infrastructure.QuoteExecArg(filepath.Join(p.installPath, "Popcorn-Time")) + " %f",
		Comment:    "The Popcorn-Time video player",
		Categories: "Video;",
	})
}

// IsInstalled checks the install record and the Popcorn-Time binary
func (p *Popcorntime) IsInstalled() bool {
	return p.installedWithBinary("Popcorn-Time")
}
