package infrastructure

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/yourusername/misc-installer-go/internal/domain"
	"go.uber.org/zap"
)

// RequirementsChecker checks system package prerequisites with dpkg
type RequirementsChecker struct {
	logger *zap.Logger
	query  func(pkg string) (string, error)
}

// NewRequirementsChecker creates a dpkg-backed requirements checker
func NewRequirementsChecker(logger *zap.Logger) *RequirementsChecker {
	return &RequirementsChecker{
		logger: logger,
		query: func(pkg string) (string, error) {
			out, err := exec.Command("dpkg-query", "-W", "-f=${Status}", pkg).Output()
			return string(out), err
		},
	}
}

// Missing returns the packages that are not installed
func (c *RequirementsChecker) Missing(packages []string) []string {
	var missing []string
	for _, pkg := range packages {
		status, err := c.query(pkg)
		if err != nil || !strings.HasSuffix(strings.TrimSpace(status), "install ok installed") {
			c.logger.Debug("Package requirement not met",
				zap.String("package", pkg),
				zap.String("status", strings.TrimSpace(status)),
				zap.Error(err))
			missing = append(missing, pkg)
		}
	}
	return missing
}

// Check returns an error wrapping domain.ErrMissingRequirements naming the
// command that would install the missing packages
func (c *RequirementsChecker) Check(packages []string) error {
	missing := c.Missing(packages)
	if len(missing) == 0 {
		return nil
	}

	args := append([]string{"apt-get", "install", "-y"}, missing...)
	cmdLine := ShellEscapeCommand("sudo", args...)
	c.logger.Warn("Missing package requirements",
		zap.Strings("packages", missing),
		zap.String("fix", cmdLine))
	return fmt.Errorf("%w: %s (run: %s)", domain.ErrMissingRequirements, strings.Join(missing, ", "), cmdLine)
}
