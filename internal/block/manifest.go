package block

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// ManifestName is the index file written alongside the blocks. The
// store skips it when scanning for blocks.
const ManifestName = "manifest.yaml"

// ManifestEntry describes one block in the manifest.
type ManifestEntry struct {
	File    string   `yaml:"file"`
	Name    string   `yaml:"name"`
	Model   string   `yaml:"model"`
	Version string   `yaml:"version"`
	Roles   []string `yaml:"roles,omitempty"`
}

// ManifestStats holds aggregate counts over the block set.
type ManifestStats struct {
	TotalBlocks int            `yaml:"total_blocks"`
	ByType      map[string]int `yaml:"by_type,omitempty"`
	ByRole      map[string]int `yaml:"by_role,omitempty"`
}

// Manifest is the manifest.yaml document.
type Manifest struct {
	GeneratedAt   string          `yaml:"generated_at"`
	SchemaVersion string          `yaml:"schema_version"`
	Blocks        []ManifestEntry `yaml:"blocks"`
	Stats         ManifestStats   `yaml:"stats"`
}

// WriteManifest scans dir and regenerates its manifest.yaml.
func WriteManifest(dir string) error {
	st, err := Load(dir)
	if err != nil {
		return err
	}

	manifest := Manifest{
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		SchemaVersion: SchemaVersion,
		Stats: ManifestStats{
			TotalBlocks: len(st.ByID),
			ByType:      make(map[string]int),
			ByRole:      make(map[string]int),
		},
	}

	for _, art := range st.ByID {
		doc := art.Doc
		entry := ManifestEntry{
			File:    filepath.Base(art.Path),
			Name:    doc.Name,
			Model:   doc.ModelID(),
			Version: doc.Version,
		}
		if len(doc.Models) > 0 {
			m := doc.Models[0]
			entry.Roles = m.Roles
			if m.Type != "" {
				manifest.Stats.ByType[m.Type]++
			}
			for _, role := range m.Roles {
				manifest.Stats.ByRole[role]++
			}
		}
		manifest.Blocks = append(manifest.Blocks, entry)
	}

	sort.Slice(manifest.Blocks, func(i, j int) bool {
		return manifest.Blocks[i].File < manifest.Blocks[j].File
	})

	data, err := yaml.Marshal(&manifest)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}

	header := "# Together model blocks manifest\n# Auto-generated - DO NOT EDIT MANUALLY\n# Run: blocksmith generate to regenerate\n\n"
	output := append([]byte(header), data...)

	return os.WriteFile(filepath.Join(dir, ManifestName), output, 0o644)
}
