package domain

import "errors"

var (
	// ErrMarkupNotFound is returned when a vendor page lacks the expected markup
	ErrMarkupNotFound = errors.New("expected markup not found on provider page")

	// ErrUnsupportedArch is returned when the machine architecture has no vendor build
	ErrUnsupportedArch = errors.New("unsupported architecture")

	// ErrUnknownFramework is returned for names no provider is registered under
	ErrUnknownFramework = errors.New("unknown framework")

	// ErrNotInstalled is returned when removing a framework that is not installed
	ErrNotInstalled = errors.New("framework is not installed")

	// ErrMissingRequirements is returned when required system packages are absent
	ErrMissingRequirements = errors.New("missing package requirements")

	// ErrChecksumMismatch is returned when a download does not match its checksum
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrUnsupportedArchive is returned for downloads the host cannot unpack
	ErrUnsupportedArchive = errors.New("unsupported archive format")

	// ErrInstallIncomplete is returned when an install finished but the framework is not in place
	ErrInstallIncomplete = errors.New("install incomplete")

	// ErrVersionUnsupported is returned when a framework does not report versions
	ErrVersionUnsupported = errors.New("framework does not report versions")

	// ErrInstallNotFound is returned when an install job id is unknown
	ErrInstallNotFound = errors.New("install not found")
)
