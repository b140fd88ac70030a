package config

import (
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultServiceUser is the user scripts are executed as
const DefaultServiceUser = "jetpack-patch-system"

// SourceConfig describes one patch system: a root directory of scripts
type SourceConfig struct {
	// Name identifies the patch system ("groovy", "ondeploy")
	Name string `yaml:"name"`

	// Root is the directory scanned for patches
	Root string `yaml:"root"`

	// Extensions lists accepted script extensions, e.g. [".groovy"]
	Extensions []string `yaml:"extensions"`

	// ResultRoot prefixes the result path of every patch in this source
	ResultRoot string `yaml:"result_root"`

	// DeriveRunningTime shows the start to end duration for results that
	// carry no runner-reported running time (on-deploy scripts)
	DeriveRunningTime bool `yaml:"derive_running_time"`
}

type sourcesFile struct {
	Sources []SourceConfig `yaml:"sources"`
}

// Validate checks a single source definition
func (s SourceConfig) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("patch source name is required")
	}
	if s.Root == "" {
		return fmt.Errorf("patch source %s: root is required", s.Name)
	}
	if len(s.Extensions) == 0 {
		return fmt.Errorf("patch source %s: at least one extension is required", s.Name)
	}
	for _, ext := range s.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("patch source %s: extension %q must start with a dot", s.Name, ext)
		}
	}
	return nil
}

// LoadSources reads patch sources from a YAML file.
// Without a file a single "groovy" source is built from PATCH_ROOT,
// PATCH_EXTENSIONS and PATCH_RESULT_ROOT.
func LoadSources(file string) ([]SourceConfig, error) {
	if file == "" {
		return []SourceConfig{defaultSource()}, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read patch sources file: %w", err)
	}

	return ParseSources(data)
}

// ParseSources decodes a YAML sources document
func ParseSources(data []byte) ([]SourceConfig, error) {
	var doc sourcesFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse patch sources: %w", err)
	}

	for i := range doc.Sources {
		if doc.Sources[i].ResultRoot == "" {
			doc.Sources[i].ResultRoot = path.Join("/var/patches", doc.Sources[i].Name)
		}
	}

	return doc.Sources, nil
}

func defaultSource() SourceConfig {
	return SourceConfig{
		Name:       getEnv("PATCH_SOURCE_NAME", "groovy"),
		Root:       getEnv("PATCH_ROOT", "/etc/patches"),
		Extensions: getEnvSlice("PATCH_EXTENSIONS", []string{".groovy"}),
		ResultRoot: getEnv("PATCH_RESULT_ROOT", "/var/patches/groovy"),
	}
}
