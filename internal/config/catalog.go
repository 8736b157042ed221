package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/stemsi/qiyas-mock/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed catalog/default.yaml
var defaultCatalog []byte

type catalogFile struct {
	Templates []model.ExamTemplate `yaml:"templates"`
}

// LoadCatalog reads the exam catalog from path, or the built-in catalog when
// path is empty.
func LoadCatalog(path string) ([]model.ExamTemplate, error) {
	data := defaultCatalog
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		data = raw
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a catalog document.
func ParseCatalog(data []byte) ([]model.ExamTemplate, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(f.Templates) == 0 {
		return nil, fmt.Errorf("catalog has no templates")
	}

	seen := make(map[string]struct{}, len(f.Templates))
	for _, tpl := range f.Templates {
		if err := tpl.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[tpl.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate template id %q", tpl.ID)
		}
		seen[tpl.ID] = struct{}{}
	}
	return f.Templates, nil
}
