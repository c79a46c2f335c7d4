package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// FileSource reads records from a local JSON file holding the same
// flat array the listing API returns. Useful for offline runs and for
// replaying an archived snapshot.
type FileSource struct {
	path string
}

// NewFileSource builds a source over a JSON snapshot file.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name implements Source.
func (f *FileSource) Name() string { return "file:" + f.path }

// Fetch implements Source.
func (f *FileSource) Fetch(_ context.Context) ([]Record, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("reading input file: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing input file %s: %w", f.path, err)
	}
	return records, nil
}
