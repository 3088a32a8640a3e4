// Package config defines the settings of a managed tool and provides helpers
// to load, validate and save them in YAML format.
//
// A Config names the tool, the requested version alias, the retention count,
// where archives are cached and where versions are installed, and the
// templates used to derive archive filenames and download URLs.
package config
