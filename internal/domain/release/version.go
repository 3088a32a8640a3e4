package release

import (
	"errors"
	"fmt"
	"strings"
)

// CurrentName is the name of the symlink pointing at the active version.
const CurrentName = "current"

// ErrUnparsableVersion is returned when a version line yields no usable version.
var ErrUnparsableVersion = errors.New("unparsable version output")

// ParseVersionOutput extracts the version from output such as
// "aws-cli/2.12.6 Python/3.11.4 Linux/5.15.49 exe/x86_64.ubuntu.22".
// The first whitespace-separated token must hold "name/version"; the version is
// what follows its last slash.
func ParseVersionOutput(output string) (string, error) {
	fields := strings.Fields(output)
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: empty output", ErrUnparsableVersion)
	}

	token := fields[0]

	idx := strings.LastIndex(token, "/")
	if idx < 0 {
		return "", fmt.Errorf("%w: %q has no name/version token", ErrUnparsableVersion, token)
	}

	version := token[idx+1:]
	if err := ValidateVersionName(version); err != nil {
		return "", err
	}

	return version, nil
}

// ValidateVersionName rejects versions that cannot safely name a directory
// next to the current symlink.
func ValidateVersionName(version string) error {
	switch {
	case version == "":
		return fmt.Errorf("%w: empty version", ErrUnparsableVersion)
	case version == CurrentName:
		return fmt.Errorf("%w: reserved name %q", ErrUnparsableVersion, version)
	case strings.HasPrefix(version, "."):
		return fmt.Errorf("%w: %q would be a hidden directory", ErrUnparsableVersion, version)
	case strings.ContainsAny(version, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrUnparsableVersion, version)
	}

	return nil
}
