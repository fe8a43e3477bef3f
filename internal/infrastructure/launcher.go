package infrastructure

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/yourusername/misc-installer-go/internal/domain"
	"go.uber.org/zap"
)

const desktopEntryTemplate = `[Desktop Entry]
Version=1.0
Type=Application
Name={{ .Name | trim }}
Icon={{ .IconPath }}
Exec={{ .Exec }}
Comment={{ .Comment | default .Name | trim }}
Categories={{ .Categories | trimSuffix ";" }};
Terminal=false
`

var desktopEntry = template.Must(template.New("desktop").Funcs(sprig.TxtFuncMap()).Parse(desktopEntryTemplate))

// LauncherWriter writes desktop entries into a launcher directory
type LauncherWriter struct {
	dir    string
	logger *zap.Logger
}

// NewLauncherWriter creates a launcher writer for dir
func NewLauncherWriter(dir string, logger *zap.Logger) *LauncherWriter {
	return &LauncherWriter{dir: dir, logger: logger}
}

// RenderDesktopEntry renders the content of a desktop entry
func RenderDesktopEntry(launcher domain.Launcher) (string, error) {
	for field, value := range map[string]string{
		"name":       launcher.Name,
		"icon":       launcher.IconPath,
		"exec":       launcher.Exec,
		"comment":    launcher.Comment,
		"categories": launcher.Categories,
	} {
		if strings.ContainsAny(value, "\n\r") {
			return "", fmt.Errorf("launcher %s contains a line break", field)
		}
	}

	var buf bytes.Buffer
	if err := desktopEntry.Execute(&buf, launcher); err != nil {
		return "", fmt.Errorf("failed to render desktop entry: %w", err)
	}
	return buf.String(), nil
}

// CreateLauncher writes <dir>/<desktopFilename>, replacing any previous entry
func (w *LauncherWriter) CreateLauncher(desktopFilename string, launcher domain.Launcher) error {
	path, err := w.path(desktopFilename)
	if err != nil {
		return err
	}

	content, err := RenderDesktopEntry(launcher)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create launcher directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write launcher: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write launcher: %w", err)
	}

	w.logger.Info("Launcher created",
		zap.String("name", launcher.Name),
		zap.String("path", path))
	return nil
}

// RemoveLauncher deletes a desktop entry; a missing file is not an error
func (w *LauncherWriter) RemoveLauncher(desktopFilename string) error {
	path, err := w.path(desktopFilename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove launcher: %w", err)
	}
	return nil
}

func (w *LauncherWriter) path(desktopFilename string) (string, error) {
	if desktopFilename == "" || desktopFilename != filepath.Base(desktopFilename) || !strings.HasSuffix(desktopFilename, ".desktop") {
		return "", fmt.Errorf("invalid desktop filename %q", desktopFilename)
	}
	return filepath.Join(w.dir, desktopFilename), nil
}
