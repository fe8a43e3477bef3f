//go:build !linux

package infrastructure

import "runtime"

// MachineArch approximates `uname -m` from the compile target
func MachineArch() (string, error) {
	switch runtime.GOARCH {
	case "amd64":
		return "x86_64", nil
	case "386":
		return "i686", nil
	default:
		return runtime.GOARCH, nil
	}
}
