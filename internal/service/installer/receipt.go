package installer

import (
	"fmt"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/release-keeper/internal/domain/release"
	"github.com/oshokin/release-keeper/internal/repository/store"
)

// ReceiptFilename is written into every installed version directory.
const ReceiptFilename = "receipt.yaml"

// Receipt records where an installed version came from.
type Receipt struct {
	// Tool is the configured tool name.
	Tool string `yaml:"tool"`
	// Version is the version reported by the installed executable.
	Version string `yaml:"version"`
	// Alias is the requested version alias.
	Alias string `yaml:"alias"`
	// Architecture is the host architecture the artifact was built for.
	Architecture string `yaml:"architecture"`
	// Filename is the cached artifact name.
	Filename string `yaml:"filename"`
	// URL is the artifact source.
	URL string `yaml:"url"`
	// InstalledAt is when the version was installed.
	InstalledAt time.Time `yaml:"installed_at"`
}

func newReceipt(spec release.ArtifactSpec, version string, now time.Time) Receipt {
	return Receipt{
		Tool:         spec.Tool,
		Version:      version,
		Alias:        spec.VersionAlias,
		Architecture: spec.Architecture.String(),
		Filename:     spec.Filename,
		URL:          spec.URL,
		InstalledAt:  now.UTC(),
	}
}

func writeReceipt(st store.Store, installPath string, receipt Receipt) error {
	data, err := yaml.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}

	return st.WriteFile(filepath.Join(installPath, ReceiptFilename), data)
}

// readReceipt returns the receipt of installPath; ok is false when there is none.
func readReceipt(st store.Store, installPath string) (Receipt, bool) {
	var receipt Receipt

	data, err := st.ReadFile(filepath.Join(installPath, ReceiptFilename))
	if err != nil {
		return receipt, false
	}

	if err = yaml.Unmarshal(data, &receipt); err != nil {
		return receipt, false
	}

	return receipt, true
}
