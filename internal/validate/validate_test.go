package validate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/everstacklabs/blocksmith/internal/block"
)

func validDocument() *block.Document {
	return &block.Document{
		Name:    "Test Model",
		Version: "1.2.0",
		Schema:  "v1",
		Models: []block.Model{{
			Name:              "Test Model",
			Provider:          "together",
			Model:             "org/test-model",
			Type:              "chat",
			APIKey:            "${{ inputs.TOGETHER_API_KEY }}",
			CompletionOptions: &block.CompletionOptions{ContextLength: 16000},
			Roles:             []string{"apply", "chat"},
		}},
	}
}

func TestValidDocumentPassesAllChecks(t *testing.T) {
	d := validDocument()
	r := ValidateDocument(d, "test-model.yaml")

	if r.HasErrors() {
		t.Errorf("expected no errors, got: %v", r.Errors())
	}
	if len(r.Warnings()) > 0 {
		t.Errorf("expected no warnings, got: %v", r.Warnings())
	}
}

func TestMissingRequiredFields(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*block.Document)
		errField string
	}{
		{"missing name", func(d *block.Document) { d.Name = "" }, "name"},
		{"missing version", func(d *block.Document) { d.Version = "" }, "version"},
		{"wrong schema", func(d *block.Document) { d.Schema = "v2" }, "schema"},
		{"no models", func(d *block.Document) { d.Models = nil }, "models"},
		{"missing model name", func(d *block.Document) { d.Models[0].Name = "" }, "models[0].name"},
		{"wrong provider", func(d *block.Document) { d.Models[0].Provider = "openai" }, "models[0].provider"},
		{"missing model id", func(d *block.Document) { d.Models[0].Model = "" }, "models[0].model"},
		{"missing apiKey", func(d *block.Document) { d.Models[0].APIKey = "" }, "models[0].apiKey"},
		{"no roles", func(d *block.Document) { d.Models[0].Roles = nil }, "models[0].roles"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDocument()
			tt.mutate(d)
			r := ValidateDocument(d, "test-model.yaml")

			if !r.HasErrors() {
				t.Fatal("expected errors")
			}
			found := false
			for _, e := range r.Errors() {
				if e.Field == tt.errField {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("expected error on field %q, got: %v", tt.errField, r.Errors())
			}
		})
	}
}

func TestVersionMustBeSemver(t *testing.T) {
	tests := []struct {
		version string
		wantErr bool
	}{
		{"1.0.0", false},
		{"2.13.4", false},
		{"not-a-version", true},
		{"1.0.0.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			d := validDocument()
			d.Version = tt.version
			r := ValidateDocument(d, "test-model.yaml")

			hasVersionErr := false
			for _, e := range r.Errors() {
				if e.Field == "version" {
					hasVersionErr = true
				}
			}
			if hasVersionErr != tt.wantErr {
				t.Errorf("version %q: error = %v, want %v", tt.version, hasVersionErr, tt.wantErr)
			}
		})
	}
}

func TestUnknownRoleWarns(t *testing.T) {
	d := validDocument()
	d.Models[0].Roles = []string{"chat", "summarize"}
	r := ValidateDocument(d, "test-model.yaml")

	for _, e := range r.Errors() {
		if e.Field == "models[0].roles" {
			t.Error("unknown role should warn, not error")
		}
	}
	found := false
	for _, w := range r.Warnings() {
		if w.Field == "models[0].roles" {
			found = true
		}
	}
	if !found {
		t.Error("expected warning for unknown role")
	}
}

func TestUnknownTypeWarns(t *testing.T) {
	d := validDocument()
	d.Models[0].Type = "hologram"
	r := ValidateDocument(d, "test-model.yaml")

	found := false
	for _, w := range r.Warnings() {
		if w.Field == "models[0].type" {
			found = true
		}
	}
	if !found {
		t.Error("expected warning for unknown type")
	}
}

func TestChatModelWithoutContextWarns(t *testing.T) {
	d := validDocument()
	d.Models[0].CompletionOptions = nil
	r := ValidateDocument(d, "test-model.yaml")

	if r.HasErrors() {
		t.Errorf("missing context length should not error: %v", r.Errors())
	}
	found := false
	for _, w := range r.Warnings() {
		if w.Field == "models[0].defaultCompletionOptions" {
			found = true
		}
	}
	if !found {
		t.Error("expected warning for chat model without context length")
	}
}

func TestEmbeddingWithoutContextDoesNotWarn(t *testing.T) {
	d := validDocument()
	d.Models[0].Type = "embedding"
	d.Models[0].Roles = []string{"embed"}
	d.Models[0].CompletionOptions = nil
	r := ValidateDocument(d, "test-model.yaml")

	for _, w := range r.Warnings() {
		if w.Field == "models[0].defaultCompletionOptions" {
			t.Error("embedding model should not warn about missing context length")
		}
	}
}

func TestImplausibleContextWarns(t *testing.T) {
	d := validDocument()
	d.Models[0].CompletionOptions = &block.CompletionOptions{ContextLength: 5_000_000}
	r := ValidateDocument(d, "test-model.yaml")

	found := false
	for _, w := range r.Warnings() {
		if w.Field == "models[0].defaultCompletionOptions.contextLength" {
			found = true
		}
	}
	if !found {
		t.Error("expected warning for implausible context length")
	}
}

func TestNameFileMismatch(t *testing.T) {
	d := validDocument()
	r := ValidateDocument(d, "some-other-file.yaml")

	found := false
	for _, e := range r.Errors() {
		if e.Field == "name" {
			found = true
		}
	}
	if !found {
		t.Error("expected name/filename mismatch error")
	}
}

func TestValidateDir(t *testing.T) {
	dir := t.TempDir()

	good, err := block.Marshal(validDocument())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "test-model.yaml"), good, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("models: ["), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := ValidateDir(dir)
	if err != nil {
		t.Fatalf("ValidateDir() error: %v", err)
	}
	if !r.HasErrors() {
		t.Fatal("expected the broken file to produce an error")
	}

	brokenFlagged := false
	for _, e := range r.Errors() {
		if e.Block == "broken.yaml" {
			brokenFlagged = true
		}
		if e.Block == "Test Model" {
			t.Errorf("valid block produced error: %v", e)
		}
	}
	if !brokenFlagged {
		t.Error("broken.yaml not reported")
	}
}

func TestFormatResult(t *testing.T) {
	if s := FormatResult(&Result{}); s != "Validation passed: no issues found." {
		t.Errorf("unexpected format: %s", s)
	}

	r := &Result{Issues: []Issue{
		{SeverityError, "Test Model", "version", "required field is empty"},
		{SeverityWarning, "Test Model", "models[0].type", `unknown type "hologram"`},
	}}
	out := FormatResult(r)
	if !strings.Contains(out, "Errors (1):") || !strings.Contains(out, "Warnings (1):") {
		t.Errorf("unexpected format:\n%s", out)
	}
	if !strings.Contains(out, "[ERROR] Test Model: version") {
		t.Errorf("issue line missing:\n%s", out)
	}
}
