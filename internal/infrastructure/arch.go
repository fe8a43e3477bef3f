package infrastructure

import (
	"fmt"
	"runtime"

	"github.com/yourusername/misc-installer-go/internal/domain"
)

// DpkgArch returns the dpkg architecture name of the running binary
func DpkgArch() string {
	return dpkgArchFromGOARCH(runtime.GOARCH)
}

func dpkgArchFromGOARCH(goarch string) string {
	switch goarch {
	case "386":
		return "i386"
	case "arm":
		return "armhf"
	case "ppc64le":
		return "ppc64el"
	default:
		return goarch
	}
}

// PlatformTag maps a `uname -m` machine name to the vendor's download tag
func PlatformTag(machine string) (string, error) {
	switch machine {
	case "x86_64":
		return "linux64", nil
	case "i686":
		return "linux32", nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedArch, machine)
	}
}
