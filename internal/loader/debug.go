package loader

import (
	"gopkg.in/yaml.v3"
)

// debugModuleEntry is one module's row in the YAML debug manifest spec.md
// §4.2 describes being written ahead of the combined source dump when
// write_debug_output is enabled.
type debugModuleEntry struct {
	Path    string `yaml:"path"`
	Factory string `yaml:"factory,omitempty"`
	Entry   bool   `yaml:"entry"`
}

type debugManifest struct {
	Modules []debugModuleEntry `yaml:"modules"`
}

// buildDebugManifest renders l's discovered module graph (order and
// factory-name assignment) as YAML.
func buildDebugManifest(l *Loader) (string, error) {
	m := debugManifest{Modules: make([]debugModuleEntry, 0, len(l.order))}
	for i, path := range l.order {
		m.Modules = append(m.Modules, debugModuleEntry{
			Path:    path,
			Factory: l.factories[path],
			Entry:   i == 0,
		})
	}
	out, err := yaml.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
