package release

import (
	"errors"
	"fmt"
	"strings"
	"text/template"

	goversion "github.com/hashicorp/go-version"
)

// AliasLatest requests whatever version the vendor currently publishes.
const AliasLatest = "latest"

var (
	// ErrInvalidAlias is returned when a version alias is neither "latest" nor a version.
	ErrInvalidAlias = errors.New("invalid version alias")
	// ErrToolRequired is returned when resolving without a tool name.
	ErrToolRequired = errors.New("tool name is required")
	// errEmptyRender is returned when a template renders to an empty string.
	errEmptyRender = errors.New("template rendered an empty string")
)

// ArtifactSpec identifies the archive a convergence run targets.
type ArtifactSpec struct {
	// Tool is the managed tool name.
	Tool string
	// Architecture is the host architecture the artifact is built for.
	Architecture Architecture
	// VersionAlias is the requested alias, "latest" or a pinned version.
	VersionAlias string
	// Suffix is empty for "latest" and "-<version>" otherwise.
	Suffix string
	// Filename is the cached archive name.
	Filename string
	// URL is the download location.
	URL string
}

// Pinned reports whether the spec requests an exact version.
func (s ArtifactSpec) Pinned() bool {
	return s.Suffix != ""
}

// Templates holds the parsed filename and URL templates.
type Templates struct {
	filename *template.Template
	url      *template.Template
}

// templateData is what filename and URL templates are rendered with.
type templateData struct {
	Tool    string
	Arch    string
	Version string
	Suffix  string
}

// NewTemplates parses the filename and URL templates.
func NewTemplates(filename, url string) (*Templates, error) {
	filenameTemplate, err := template.New("filename").Option("missingkey=error").Parse(filename)
	if err != nil {
		return nil, fmt.Errorf("parse filename template: %w", err)
	}

	urlTemplate, err := template.New("url").Option("missingkey=error").Parse(url)
	if err != nil {
		return nil, fmt.Errorf("parse url template: %w", err)
	}

	return &Templates{
		filename: filenameTemplate,
		url:      urlTemplate,
	}, nil
}

// ValidateAlias accepts "latest" (any case) or a semantic version.
func ValidateAlias(alias string) error {
	if isLatest(alias) {
		return nil
	}

	if _, err := goversion.NewVersion(strings.TrimSpace(alias)); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidAlias, alias, err)
	}

	return nil
}

// Resolve computes the ArtifactSpec for a tool, architecture and alias.
// It has no side effects and returns the same result for the same inputs.
func Resolve(tool string, arch Architecture, alias string, templates *Templates) (ArtifactSpec, error) {
	if strings.TrimSpace(tool) == "" {
		return ArtifactSpec{}, ErrToolRequired
	}

	if !arch.Valid() {
		return ArtifactSpec{}, fmt.Errorf("%w: %q", ErrUnsupportedArchitecture, arch)
	}

	if err := ValidateAlias(alias); err != nil {
		return ArtifactSpec{}, err
	}

	spec := ArtifactSpec{
		Tool:         tool,
		Architecture: arch,
		VersionAlias: AliasLatest,
	}

	if !isLatest(alias) {
		spec.VersionAlias = strings.TrimSpace(alias)
		spec.Suffix = "-" + spec.VersionAlias
	}

	data := templateData{
		Tool:    tool,
		Arch:    arch.String(),
		Version: spec.VersionAlias,
		Suffix:  spec.Suffix,
	}

	var err error

	if spec.Filename, err = render(templates.filename, data); err != nil {
		return ArtifactSpec{}, err
	}

	if strings.ContainsAny(spec.Filename, `/\`) {
		return ArtifactSpec{}, fmt.Errorf("filename %q must not contain path separators", spec.Filename)
	}

	if spec.URL, err = render(templates.url, data); err != nil {
		return ArtifactSpec{}, err
	}

	return spec, nil
}

// render executes a template into a trimmed string.
func render(tmpl *template.Template, data templateData) (string, error) {
	var builder strings.Builder

	if err := tmpl.Execute(&builder, data); err != nil {
		return "", fmt.Errorf("render %s template: %w", tmpl.Name(), err)
	}

	result := strings.TrimSpace(builder.String())
	if result == "" {
		return "", fmt.Errorf("%s: %w", tmpl.Name(), errEmptyRender)
	}

	return result, nil
}

// isLatest reports whether alias selects the latest release.
func isLatest(alias string) bool {
	alias = strings.TrimSpace(alias)

	return alias == "" || strings.EqualFold(alias, AliasLatest)
}
