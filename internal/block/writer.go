package block

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Writer persists block documents with a smart merge strategy: keys a
// human added to an existing block survive regeneration, and the
// existing key order is preserved. Only fresh files get the canonical
// struct order.
type Writer struct {
	dir string
}

// NewWriter builds a writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// WriteResult reports what the writer did for one block.
type WriteResult struct {
	Path  string
	IsNew bool
}

// Write serializes doc to its deterministic path under the writer's
// directory. An existing file is merged over; an unreadable one is
// replaced wholesale.
func (w *Writer) Write(doc *Document) (*WriteResult, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating blocks dir: %w", err)
	}

	path := filepath.Join(w.dir, Filename(doc.Name))
	result := &WriteResult{Path: path}

	existing, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		result.IsNew = true
		return result, writeDocument(path, doc)
	} else if err != nil {
		return nil, fmt.Errorf("reading existing block: %w", err)
	}

	var existingDoc yaml.Node
	if err := yaml.Unmarshal(existing, &existingDoc); err != nil {
		result.IsNew = true
		return result, writeDocument(path, doc)
	}

	nextData, err := Marshal(doc)
	if err != nil {
		return nil, err
	}
	var nextDoc yaml.Node
	if err := yaml.Unmarshal(nextData, &nextDoc); err != nil {
		return nil, fmt.Errorf("reparsing block: %w", err)
	}

	merged := mergeNodes(&existingDoc, &nextDoc)

	out, err := encode(merged)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return nil, fmt.Errorf("writing merged block: %w", err)
	}
	return result, nil
}

func writeDocument(path string, doc *Document) error {
	data, err := Marshal(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing block: %w", err)
	}
	return nil
}

// Marshal renders a block document in the published file format:
// a frontmatter marker followed by two-space-indented YAML.
func Marshal(doc *Document) ([]byte, error) {
	return encode(doc)
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("marshaling block: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshaling block: %w", err)
	}
	return buf.Bytes(), nil
}

// mergeNodes overlays src mapping keys onto dst, preserving dst key
// order and any keys present only in dst. Values for keys src knows
// about are replaced wholesale, so nested sequences (models, roles)
// always reflect the new generation.
func mergeNodes(dst, src *yaml.Node) *yaml.Node {
	if dst.Kind == yaml.DocumentNode && len(dst.Content) > 0 {
		dst = dst.Content[0]
	}
	if src.Kind == yaml.DocumentNode && len(src.Content) > 0 {
		src = src.Content[0]
	}

	if dst.Kind != yaml.MappingNode || src.Kind != yaml.MappingNode {
		return src
	}

	srcVals := make(map[string]*yaml.Node)
	for i := 0; i+1 < len(src.Content); i += 2 {
		srcVals[src.Content[i].Value] = src.Content[i+1]
	}

	seen := make(map[string]bool)
	for i := 0; i+1 < len(dst.Content); i += 2 {
		key := dst.Content[i].Value
		if val, ok := srcVals[key]; ok {
			dst.Content[i+1] = val
			seen[key] = true
		}
	}

	for i := 0; i+1 < len(src.Content); i += 2 {
		key := src.Content[i].Value
		if !seen[key] {
			dst.Content = append(dst.Content, src.Content[i], src.Content[i+1])
		}
	}

	return dst
}
