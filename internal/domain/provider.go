package domain

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Descriptor is the static description of one installable framework
type Descriptor struct {
	Name                string   `json:"name"`
	Description         string   `json:"description"`
	Category            string   `json:"category"`
	OnlyOnArchs         []string `json:"only_on_archs,omitempty"` // dpkg architecture names
	DesktopFilename     string   `json:"desktop_filename"`
	PackageRequirements []string `json:"package_requirements,omitempty"`
}

// Key returns the lowercase name frameworks are registered and addressed by
func (d Descriptor) Key() string {
	return strings.ToLower(d.Name)
}

// SupportsArch reports whether the framework can be installed on the given dpkg architecture
func (d Descriptor) SupportsArch(arch string) bool {
	if len(d.OnlyOnArchs) == 0 {
		return true
	}
	for _, a := range d.OnlyOnArchs {
		if a == arch {
			return true
		}
	}
	return false
}

// ChecksumType names a digest algorithm
type ChecksumType string

const (
	ChecksumMD5    ChecksumType = "md5"
	ChecksumSHA1   ChecksumType = "sha1"
	ChecksumSHA256 ChecksumType = "sha256"
)

// Checksum is the expected digest of a download
type Checksum struct {
	Type  ChecksumType `json:"type"`
	Value string       `json:"value"`
}

// ParseChecksum parses "<type>:<hex>". An empty string yields nil.
func ParseChecksum(s string) (*Checksum, error) {
	if s == "" {
		return nil, nil
	}
	algo, value, ok := strings.Cut(s, ":")
	if !ok || value == "" {
		return nil, fmt.Errorf("malformed checksum %q", s)
	}
	switch ChecksumType(algo) {
	case ChecksumMD5, ChecksumSHA1, ChecksumSHA256:
		return &Checksum{Type: ChecksumType(algo), Value: strings.ToLower(value)}, nil
	default:
		return nil, fmt.Errorf("unsupported checksum type %q", algo)
	}
}

// DownloadRequest is a URL handed to the download center
type DownloadRequest struct {
	URL      string    `json:"url"`
	Checksum *Checksum `json:"checksum,omitempty"`
}

// DownloadResult is delivered by the download center once a request finished
type DownloadResult struct {
	Request  DownloadRequest
	FilePath string
	Err      error
}

// Launcher describes a desktop entry
type Launcher struct {
	Name       string
	IconPath   string
	Exec       string
	Comment    string
	Categories string
}

// Provider is implemented by every installable framework
type Provider interface {
	// Descriptor returns the static metadata of the framework
	Descriptor() Descriptor

	// InstallPath returns the host-assigned install location
	InstallPath() string

	// DownloadProviderPage resolves what has to be downloaded
	DownloadProviderPage(ctx context.Context) ([]DownloadRequest, error)

	// PostInstall runs once the install path is populated, writing the launcher
	PostInstall() error

	// IsInstalled reports whether the framework is fully installed
	IsInstalled() bool
}

// CustomInstaller is implemented by providers whose download is not an archive
type CustomInstaller interface {
	DecompressAndInstall(ctx context.Context, file *os.File) error
}

// ArchiveLayout is implemented by providers that only need a subdirectory of their archive
type ArchiveLayout interface {
	ArchiveRoot() string
}

// VersionReporter is implemented by providers able to tell the latest published version
type VersionReporter interface {
	LatestVersion(ctx context.Context) (string, error)
}

// Remover is implemented by providers that can undo an install
type Remover interface {
	Remove() error
}

// UI is the interaction layer providers report progress through
type UI interface {
	Display(message string)
	DelayedDisplay(message string)
	ReturnMainScreen()
}

// LauncherCreator writes desktop entries
type LauncherCreator interface {
	CreateLauncher(desktopFilename string, launcher Launcher) error
	RemoveLauncher(desktopFilename string) error
}

// ConfigMarker records which frameworks are installed
type ConfigMarker interface {
	MarkInstalled(framework *InstalledFramework) error
	Unmark(name string) error
	FindInstalled(name string) (*InstalledFramework, error)
}

// PageFetcher retrieves vendor HTML pages
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) ([]byte, error)
}
