package release

import (
	"errors"
	"fmt"
)

// Architecture is the CPU architecture token used in release artifact names.
type Architecture string

const (
	// ArchX8664 is the 64-bit x86 architecture.
	ArchX8664 Architecture = "x86_64"
	// ArchAArch64 is the 64-bit ARM architecture.
	ArchAArch64 Architecture = "aarch64"
)

// ErrUnsupportedArchitecture is returned for hosts without a published artifact.
var ErrUnsupportedArchitecture = errors.New("unsupported architecture")

// DetectArchitecture maps a GOARCH value to the artifact architecture token.
func DetectArchitecture(goarch string) (Architecture, error) {
	switch goarch {
	case "amd64":
		return ArchX8664, nil
	case "arm64":
		return ArchAArch64, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedArchitecture, goarch)
	}
}

// Valid reports whether a is one of the known architectures.
func (a Architecture) Valid() bool {
	return a == ArchX8664 || a == ArchAArch64
}

func (a Architecture) String() string {
	return string(a)
}
