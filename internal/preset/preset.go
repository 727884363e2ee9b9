// Package preset loads named configuration files from a directory.
//
// A preset is a small YAML record mapping a memorable name to a
// shareable configuration. Loading is fail-fast: a directory with any
// unreadable, unparsable, nameless or duplicate-named file does not
// load at all, so a broken preset never silently vanishes.
package preset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ahearne/cellring/internal/share"
)

// Preset is one named configuration. Zero-valued numeric fields fall
// back to the shared defaults; out-of-range values clamp on use.
type Preset struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Rule        *int   `yaml:"rule"`
	Width       *int   `yaml:"width"`
	Generations *int   `yaml:"generations"`
	Delay       *int   `yaml:"delay"`
	Seeds       []int  `yaml:"seeds"`
}

// Config resolves the preset into a clamped shareable configuration.
// Omitted fields take the defaults; omitted seeds mean unspecified, so
// the simulation seeds randomly.
func (p Preset) Config() share.Config {
	cfg := share.Default()
	if p.Rule != nil {
		cfg.Rule = *p.Rule
	}
	if p.Width != nil {
		cfg.Width = *p.Width
	}
	if p.Generations != nil {
		cfg.Generations = *p.Generations
	}
	if p.Delay != nil {
		cfg.Delay = *p.Delay
	}
	if p.Seeds != nil {
		cfg.Seeds = append([]int(nil), p.Seeds...)
	}
	return cfg.Clamped()
}

// LoadError describes why a preset directory failed to load.
type LoadError struct {
	Path    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("preset %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("presets: %s", e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LoadDir loads every .yaml/.yml file in dir, sorted by name.
func LoadDir(dir string) ([]Preset, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Message: fmt.Sprintf("directory not found: %s", dir), Err: err}
	}
	if err != nil {
		return nil, &LoadError{Message: fmt.Sprintf("accessing %s: %v", dir, err), Err: err}
	}
	if !info.IsDir() {
		return nil, &LoadError{Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &LoadError{Message: fmt.Sprintf("scanning %s: %v", dir, err), Err: err}
	}

	var presets []Preset
	seen := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		blob, err := os.ReadFile(path)
		if err != nil {
			return nil, &LoadError{Path: path, Message: "unreadable", Err: err}
		}

		var p Preset
		if err := yaml.Unmarshal(blob, &p); err != nil {
			return nil, &LoadError{Path: path, Message: fmt.Sprintf("parsing: %v", err), Err: err}
		}
		if p.Name == "" {
			return nil, &LoadError{Path: path, Message: "preset has no name"}
		}
		if prev, ok := seen[p.Name]; ok {
			return nil, &LoadError{Path: path, Message: fmt.Sprintf("duplicate preset name %q (also in %s)", p.Name, prev)}
		}
		seen[p.Name] = path
		presets = append(presets, p)
	}

	sort.Slice(presets, func(i, j int) bool { return presets[i].Name < presets[j].Name })
	return presets, nil
}

// Find returns the preset with the given name.
func Find(presets []Preset, name string) (Preset, bool) {
	for _, p := range presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}
