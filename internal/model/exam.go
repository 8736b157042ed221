package model

import (
	"errors"
	"fmt"
)

// Category tags a section or a question. Sections use a domain or Mixed;
// questions may also carry a finer sub-tag that resolves to a domain.
type Category string

const (
	CategoryVerbal       Category = "verbal"
	CategoryQuantitative Category = "quantitative"
	CategoryMixed        Category = "mixed"

	// Verbal sub-tags.
	CategoryAnalogy              Category = "analogy"
	CategorySentenceCompletion   Category = "sentence_completion"
	CategoryReadingComprehension Category = "reading_comprehension"
	CategoryContextualError      Category = "contextual_error"
	CategoryOddWord              Category = "odd_word"

	// Quantitative sub-tags.
	CategoryArithmetic Category = "arithmetic"
	CategoryAlgebra    Category = "algebra"
	CategoryGeometry   Category = "geometry"
	CategoryStatistics Category = "statistics"
	CategoryComparison Category = "comparison"
)

var subTagDomain = map[Category]Category{
	CategoryAnalogy:              CategoryVerbal,
	CategorySentenceCompletion:   CategoryVerbal,
	CategoryReadingComprehension: CategoryVerbal,
	CategoryContextualError:      CategoryVerbal,
	CategoryOddWord:              CategoryVerbal,
	CategoryArithmetic:           CategoryQuantitative,
	CategoryAlgebra:              CategoryQuantitative,
	CategoryGeometry:             CategoryQuantitative,
	CategoryStatistics:           CategoryQuantitative,
	CategoryComparison:           CategoryQuantitative,
}

// Domain resolves a category tag to verbal or quantitative.
// Mixed and unknown tags resolve to the empty category.
func (c Category) Domain() Category {
	switch c {
	case CategoryVerbal, CategoryQuantitative:
		return c
	}
	return subTagDomain[c]
}

// SubTags returns the sub-tags belonging to a domain, including the domain itself.
func (c Category) SubTags() []Category {
	tags := []Category{c}
	for tag, domain := range subTagDomain {
		if domain == c {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	if c == CategoryMixed {
		return true
	}
	return c.Domain() != ""
}

// SectionConfig is one timed block of an exam template.
type SectionConfig struct {
	Number           int      `json:"number" yaml:"number"`
	Name             string   `json:"name" yaml:"name"`
	Category         Category `json:"category" yaml:"category"`
	QuestionCount    int      `json:"question_count" yaml:"question_count"`
	TimeLimitMinutes int      `json:"time_limit_minutes" yaml:"time_limit_minutes"`
}

// TimeLimitSeconds returns the section countdown start value.
func (s SectionConfig) TimeLimitSeconds() int {
	return s.TimeLimitMinutes * 60
}

// ExamTemplate is the immutable configuration of a mock exam.
type ExamTemplate struct {
	ID                        string          `json:"id" yaml:"id"`
	Name                      string          `json:"name" yaml:"name"`
	Sections                  []SectionConfig `json:"sections" yaml:"sections"`
	TotalQuestions            int             `json:"total_questions" yaml:"total_questions"`
	TotalTimeMinutes          int             `json:"total_time_minutes" yaml:"total_time_minutes"`
	NonScoredCount            int             `json:"-" yaml:"non_scored_count"`
	RequiresEntitlement       bool            `json:"requires_entitlement" yaml:"requires_entitlement"`
	HideReviewAfterCompletion bool            `json:"hide_review_after_completion" yaml:"hide_review_after_completion"`
}

var (
	ErrTemplateNoSections    = errors.New("template has no sections")
	ErrTemplateCountMismatch = errors.New("section question counts do not add up to total_questions")
)

// Validate checks the structural invariants of a template.
func (t ExamTemplate) Validate() error {
	if t.ID == "" {
		return errors.New("template id is required")
	}
	if len(t.Sections) == 0 {
		return fmt.Errorf("template %s: %w", t.ID, ErrTemplateNoSections)
	}

	sum := 0
	for i, s := range t.Sections {
		if s.Number != i+1 {
			return fmt.Errorf("template %s: section %d has number %d, want %d", t.ID, i, s.Number, i+1)
		}
		if s.QuestionCount <= 0 {
			return fmt.Errorf("template %s: section %d has no questions", t.ID, s.Number)
		}
		if s.TimeLimitMinutes <= 0 {
			return fmt.Errorf("template %s: section %d has no time limit", t.ID, s.Number)
		}
		if !s.Category.Valid() {
			return fmt.Errorf("template %s: section %d has unknown category %q", t.ID, s.Number, s.Category)
		}
		sum += s.QuestionCount
	}
	if sum != t.TotalQuestions {
		return fmt.Errorf("template %s: %w (%d != %d)", t.ID, ErrTemplateCountMismatch, sum, t.TotalQuestions)
	}
	if t.TotalTimeMinutes <= 0 {
		return fmt.Errorf("template %s: total_time_minutes must be positive", t.ID)
	}
	if t.NonScoredCount < 0 {
		return fmt.Errorf("template %s: non_scored_count must not be negative", t.ID)
	}
	return nil
}

// CatalogEntry is a template as listed to a user.
type CatalogEntry struct {
	ExamTemplate
	Locked bool `json:"locked"`
}
