package engine

import (
	"errors"
	"testing"

	"github.com/stemsi/qiyas-mock/internal/model"
)

func question(id string, section, global int, tag model.Category, nonScored bool) model.ProcessedQuestion {
	return model.ProcessedQuestion{
		RawQuestion: model.RawQuestion{
			ID:            id,
			Options:       []string{"a", "b", "c", "d"},
			CorrectOption: 2,
			Category:      tag,
		},
		Section:     section,
		GlobalIndex: global,
		IsNonScored: nonScored,
	}
}

func TestFinalizeSectionIsIdempotent(t *testing.T) {
	sections := []Section{{
		Config: model.SectionConfig{Number: 1, Category: model.CategoryVerbal},
		Questions: []model.ProcessedQuestion{
			question("q1", 1, 0, model.CategoryVerbal, false),
			question("q2", 1, 1, model.CategoryVerbal, false),
			question("q3", 1, 2, model.CategoryVerbal, true),
		},
	}}
	ledger := NewLedger()
	ledger.Record("q1", 2)
	ledger.Record("q3", 2)

	s := NewScorer(sections, ledger)
	first, err := s.FinalizeSection(1)
	if err != nil {
		t.Fatalf("FinalizeSection: %v", err)
	}
	want := model.SectionScore{Section: 1, CorrectCount: 1, ScoredQuestionCount: 2}
	if first != want {
		t.Fatalf("got %+v, want %+v", first, want)
	}

	ledger.Record("q2", 2)
	second, err := s.FinalizeSection(1)
	if !errors.Is(err, ErrSectionFinalized) {
		t.Fatalf("second finalize error = %v, want ErrSectionFinalized", err)
	}
	if second != first {
		t.Errorf("record changed on re-finalize: %+v", second)
	}
	if rec, _ := s.Record(1); rec != first {
		t.Errorf("stored record changed: %+v", rec)
	}
}

func TestFinalizeUnknownSection(t *testing.T) {
	s := NewScorer(nil, NewLedger())
	if _, err := s.FinalizeSection(3); !errors.Is(err, ErrUnknownSection) {
		t.Fatalf("got %v, want ErrUnknownSection", err)
	}
}

func TestUnansweredCountsAsIncorrect(t *testing.T) {
	var qs []model.ProcessedQuestion
	for i := 0; i < 10; i++ {
		qs = append(qs, question(string(rune('a'+i)), 1, i, model.CategoryQuantitative, false))
	}
	ledger := NewLedger()
	ledger.Record("a", 2)
	ledger.Record("b", 2)
	ledger.Record("c", 0)

	s := NewScorer([]Section{{Config: model.SectionConfig{Number: 1, Category: model.CategoryQuantitative}, Questions: qs}}, ledger)
	rec, err := s.FinalizeSection(1)
	if err != nil {
		t.Fatalf("FinalizeSection: %v", err)
	}
	if rec.CorrectCount != 2 || rec.ScoredQuestionCount != 10 {
		t.Errorf("got %+v, want 2/10", rec)
	}
	if rec.CorrectCount > rec.ScoredQuestionCount {
		t.Error("correct exceeds scored")
	}
}

func TestComputeAggregateSplitsMixedByQuestionTag(t *testing.T) {
	sections := []Section{
		{
			Config: model.SectionConfig{Number: 1, Category: model.CategoryMixed},
			Questions: []model.ProcessedQuestion{
				question("v1", 1, 0, model.CategoryAnalogy, false),
				question("v2", 1, 1, model.CategoryOddWord, false),
				question("q1", 1, 2, model.CategoryAlgebra, false),
				question("p1", 1, 3, model.CategoryGeometry, true),
			},
		},
		{
			Config: model.SectionConfig{Number: 2, Category: model.CategoryQuantitative},
			Questions: []model.ProcessedQuestion{
				question("q2", 2, 4, "", false),
			},
		},
	}
	ledger := NewLedger()
	for _, id := range []string{"v1", "q1", "p1", "q2"} {
		ledger.Record(id, 2)
	}

	s := NewScorer(sections, ledger)
	_, _ = s.FinalizeSection(1)
	_, _ = s.FinalizeSection(2)

	agg := s.ComputeAggregate()
	if agg.Correct != 3 || agg.Scored != 4 {
		t.Errorf("aggregate = %d/%d, want 3/4", agg.Correct, agg.Scored)
	}
	if agg.Verbal != (DomainScore{Correct: 1, Scored: 2}) {
		t.Errorf("verbal = %+v", agg.Verbal)
	}
	// q2 has no tag and falls back to its section's category.
	if agg.Quantitative != (DomainScore{Correct: 2, Scored: 2}) {
		t.Errorf("quantitative = %+v", agg.Quantitative)
	}
	if agg.ByTag[model.CategoryAnalogy] != (DomainScore{Correct: 1, Scored: 1}) {
		t.Errorf("analogy = %+v", agg.ByTag[model.CategoryAnalogy])
	}
	if _, ok := agg.ByTag[model.CategoryGeometry]; ok {
		t.Error("non-scored question leaked into tag scores")
	}
	if agg.Percent != 75 {
		t.Errorf("percent = %v, want 75", agg.Percent)
	}
}

func TestComputeAggregateOnlyFinalizedSections(t *testing.T) {
	sections := []Section{
		{Config: model.SectionConfig{Number: 1, Category: model.CategoryVerbal}, Questions: []model.ProcessedQuestion{question("a", 1, 0, model.CategoryVerbal, false)}},
		{Config: model.SectionConfig{Number: 2, Category: model.CategoryVerbal}, Questions: []model.ProcessedQuestion{question("b", 2, 1, model.CategoryVerbal, false)}},
	}
	s := NewScorer(sections, NewLedger())
	_, _ = s.FinalizeSection(1)

	agg := s.ComputeAggregate()
	if agg.Scored != 1 || len(agg.Sections) != 1 {
		t.Fatalf("aggregate covers unfinalized sections: %+v", agg)
	}
}

func TestRecomputeKeepsSectionWithoutSnapshots(t *testing.T) {
	rec := model.AttemptRecord{
		Answers: map[string]int{"q1": 2, "q2": 0},
		Questions: []model.QuestionSnapshot{
			{ID: "q1", Section: 1, Category: model.CategoryVerbal, SectionCategory: model.CategoryVerbal, CorrectOption: 2},
			{ID: "q2", Section: 1, GlobalIndex: 1, Category: model.CategoryVerbal, SectionCategory: model.CategoryVerbal, CorrectOption: 2},
		},
		SectionScores: map[int]model.SectionScore{
			1: {Section: 1, CorrectCount: 1, ScoredQuestionCount: 2},
			2: {Section: 2, CorrectCount: 3, ScoredQuestionCount: 5},
		},
	}

	agg := Recompute(rec)
	if agg.Correct != 4 || agg.Scored != 7 {
		t.Fatalf("aggregate = %d/%d, want 4/7", agg.Correct, agg.Scored)
	}
	if len(agg.Sections) != 2 || agg.Sections[1] != rec.SectionScores[2] {
		t.Errorf("sections = %+v", agg.Sections)
	}
	if agg.Verbal != (DomainScore{1, 2}) {
		t.Errorf("verbal = %+v, want 1/2 from snapshots", agg.Verbal)
	}
}
