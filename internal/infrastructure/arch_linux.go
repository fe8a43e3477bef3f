//go:build linux

package infrastructure

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// MachineArch returns the kernel machine hardware name, as `uname -m` prints it
func MachineArch() (string, error) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return "", fmt.Errorf("uname failed: %w", err)
	}
	return unix.ByteSliceToString(u.Machine[:]), nil
}
