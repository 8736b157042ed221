package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stemsi/qiyas-mock/internal/model"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	templates, err := LoadCatalog("")
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if len(templates) == 0 {
		t.Fatal("default catalog is empty")
	}
	for _, tpl := range templates {
		sum := 0
		for _, s := range tpl.Sections {
			sum += s.QuestionCount
		}
		if sum != tpl.TotalQuestions {
			t.Errorf("%s: sections hold %d questions, total is %d", tpl.ID, sum, tpl.TotalQuestions)
		}
	}
}

func TestParseCatalogRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{
			name: "count mismatch",
			doc: `
templates:
  - id: a
    total_questions: 11
    total_time_minutes: 10
    sections:
      - { number: 1, category: verbal, question_count: 10, time_limit_minutes: 10 }
`,
			wantErr: model.ErrTemplateCountMismatch,
		},
		{
			name: "no sections",
			doc: `
templates:
  - id: a
    total_questions: 0
    total_time_minutes: 10
`,
			wantErr: model.ErrTemplateNoSections,
		},
		{
			name: "duplicate id",
			doc: `
templates:
  - id: a
    total_questions: 1
    total_time_minutes: 1
    sections: [{ number: 1, category: verbal, question_count: 1, time_limit_minutes: 1 }]
  - id: a
    total_questions: 1
    total_time_minutes: 1
    sections: [{ number: 1, category: verbal, question_count: 1, time_limit_minutes: 1 }]
`,
		},
		{
			name: "unknown category",
			doc: `
templates:
  - id: a
    total_questions: 1
    total_time_minutes: 1
    sections: [{ number: 1, category: history, question_count: 1, time_limit_minutes: 1 }]
`,
		},
		{
			name: "section numbers out of order",
			doc: `
templates:
  - id: a
    total_questions: 2
    total_time_minutes: 2
    sections:
      - { number: 2, category: verbal, question_count: 1, time_limit_minutes: 1 }
      - { number: 1, category: verbal, question_count: 1, time_limit_minutes: 1 }
`,
		},
		{name: "empty", doc: `templates: []`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := `
templates:
  - id: custom
    name: Custom
    total_questions: 3
    total_time_minutes: 5
    non_scored_count: 1
    requires_entitlement: true
    sections: [{ number: 1, name: Only, category: mixed, question_count: 3, time_limit_minutes: 5 }]
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	templates, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	tpl := templates[0]
	if tpl.ID != "custom" || tpl.NonScoredCount != 1 || !tpl.RequiresEntitlement {
		t.Errorf("decoded %+v", tpl)
	}
	if tpl.Sections[0].Category != model.CategoryMixed {
		t.Errorf("category = %q", tpl.Sections[0].Category)
	}

	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
