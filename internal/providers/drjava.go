package providers

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/yourusername/misc-installer-go/internal/domain"
	"github.com/yourusername/misc-installer-go/internal/infrastructure"
)

const drjavaJar = "drjava.jar"

// Drjava installs the DrJava IDE, shipped as a bare jar
type Drjava struct {
	Base
}

// NewDrjava creates the DrJava provider
func NewDrjava(installPath string, vendor domain.VendorConfig, deps Deps) *Drjava {
	return &Drjava{Base: newBase(domain.Descriptor{
		Name:                "DrJava",
		Description:         "DrJava IDE",
		Category:            Category,
		OnlyOnArchs:         []string{"i386", "amd64"},
		DesktopFilename:     "drjava.desktop",
		PackageRequirements: []string{"openjdk-7-jdk"},
	}, installPath, vendor, deps)}
}

// DownloadProviderPage returns the fixed jar URL
func (d *Drjava) DownloadProviderPage(ctx context.Context) ([]domain.DownloadRequest, error) {
	if d.vendor.DownloadURL == "" {
		return nil, fmt.Errorf("drjava: %w", errMissingVendor)
	}
	req, err := d.request(d.vendor.DownloadURL)
	if err != nil {
		return nil, err
	}
	return []domain.DownloadRequest{req}, nil
}

// DecompressAndInstall copies the downloaded jar into place, writes the
// launcher and records the install
func (d *Drjava) DecompressAndInstall(ctx context.Context, file *os.File) error {
	d.deps.UI.Display(fmt.Sprintf("Installing %s", d.descriptor.Name))

	if err := os.MkdirAll(d.installPath, 0755); err != nil {
		return fmt.Errorf("failed to create install path: %w", err)
	}

	if err := copyFile(file, filepath.Join(d.installPath, drjavaJar)); err != nil {
		return err
	}

	if err := d.PostInstall(); err != nil {
		return err
	}

	if err := d.markInConfig(""); err != nil {
		return fmt.Errorf("failed to mark %s as installed: %w", d.descriptor.Name, err)
	}

	d.deps.UI.DelayedDisplay("Installation done")
	d.deps.UI.ReturnMainScreen()
	return nil
}

// PostInstall creates the launcher
func (d *Drjava) PostInstall() error {
	return d.createLauncher(domain.Launcher{
		Name:       "DrJava",
		IconPath:   d.installPath,
		Exec:       "java -jar " + infrastructure.QuoteExecArg(filepath.Join(d.installPath, drjavaJar)) + " %f",
		Comment:    "DrJava IDE",
		Categories: "Development;IDE;",
	})
}

// IsInstalled checks the install record and the jar
func (d *Drjava) IsInstalled() bool {
	return d.installedWithBinary(drjavaJar)
}

func copyFile(src *os.File, dest string) error {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind %s: %w", src.Name(), err)
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy to %s: %w", dest, err)
	}
	return out.Close()
}
