package block

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMalformed tags block files that exist but cannot be used as a
// prior version. The generator treats the model as never generated
// and rebuilds its block from scratch.
var ErrMalformed = errors.New("malformed block file")

// Artifact is one block file loaded from disk.
type Artifact struct {
	Path string
	Doc  *Document
}

// MalformedFile records a block that could not be parsed or indexed.
type MalformedFile struct {
	Path string
	Err  error
}

// Store holds the previous run's blocks indexed by model identifier.
type Store struct {
	Dir       string
	ByID      map[string]*Artifact
	Malformed []MalformedFile
}

// Load scans dir for block files. Files that fail to parse land in
// Malformed instead of failing the load; a missing directory yields
// an empty store, which is the state before the very first run.
func Load(dir string) (*Store, error) {
	st := &Store{Dir: dir, ByID: make(map[string]*Artifact)}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading blocks dir: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".yaml") || name == ManifestName {
			continue
		}

		path := filepath.Join(dir, name)
		doc, err := ReadFile(path)
		if err != nil {
			st.Malformed = append(st.Malformed, MalformedFile{Path: path, Err: err})
			continue
		}
		id := doc.ModelID()
		if id == "" {
			st.Malformed = append(st.Malformed, MalformedFile{
				Path: path,
				Err:  fmt.Errorf("%w: no model entry", ErrMalformed),
			})
			continue
		}
		st.ByID[id] = &Artifact{Path: path, Doc: doc}
	}

	return st, nil
}

// ReadFile parses a single block file.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, filepath.Base(path), err)
	}
	return &doc, nil
}

// Get returns the prior artifact for a model identifier, or nil when
// the model has never been generated.
func (s *Store) Get(id string) *Artifact {
	return s.ByID[id]
}

// StaleIDs returns identifiers with a block on disk but no record in
// the current feed, sorted for stable output.
func (s *Store) StaleIDs(seen map[string]bool) []string {
	var stale []string
	for id := range s.ByID {
		if !seen[id] {
			stale = append(stale, id)
		}
	}
	sort.Strings(stale)
	return stale
}
