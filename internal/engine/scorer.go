package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/stemsi/qiyas-mock/internal/model"
)

// DomainScore is a correct/scored pair for a subset of questions.
type DomainScore struct {
	Correct int `json:"correct"`
	Scored  int `json:"scored"`
}

// Percent returns the score as a percentage.
func (d DomainScore) Percent() float64 {
	if d.Scored == 0 {
		return 0
	}
	return float64(d.Correct) * 100 / float64(d.Scored)
}

func (d *DomainScore) add(correct bool) {
	d.Scored++
	if correct {
		d.Correct++
	}
}

// Aggregate is the attempt-wide score over all finalized sections.
type Aggregate struct {
	Correct      int                            `json:"correct"`
	Scored       int                            `json:"scored"`
	Percent      float64                        `json:"percent"`
	Verbal       DomainScore                    `json:"verbal"`
	Quantitative DomainScore                    `json:"quantitative"`
	ByTag        map[model.Category]DomainScore `json:"by_tag"`
	Sections     []model.SectionScore           `json:"sections"`
}

// Scorer computes section scores from the ledger, ignoring non-scored questions.
type Scorer struct {
	sections []Section
	ledger   *Ledger
	records  map[int]model.SectionScore
}

// NewScorer creates a Scorer over an attempt's sections.
func NewScorer(sections []Section, ledger *Ledger) *Scorer {
	return &Scorer{
		sections: sections,
		ledger:   ledger,
		records:  make(map[int]model.SectionScore, len(sections)),
	}
}

func (s *Scorer) section(number int) (Section, bool) {
	for _, sec := range s.sections {
		if sec.Config.Number == number {
			return sec, true
		}
	}
	return Section{}, false
}

// FinalizeSection writes the score of a section. A section is finalized once;
// later calls return ErrSectionFinalized and leave the record untouched.
func (s *Scorer) FinalizeSection(number int) (model.SectionScore, error) {
	if rec, done := s.records[number]; done {
		return rec, ErrSectionFinalized
	}
	sec, ok := s.section(number)
	if !ok {
		return model.SectionScore{}, fmt.Errorf("%w: %d", ErrUnknownSection, number)
	}

	rec := model.SectionScore{Section: number}
	for _, q := range sec.Questions {
		if q.IsNonScored {
			continue
		}
		rec.ScoredQuestionCount++
		if s.correct(q) {
			rec.CorrectCount++
		}
	}
	s.records[number] = rec
	return rec, nil
}

// Finalized reports whether a section has been scored.
func (s *Scorer) Finalized(number int) bool {
	_, ok := s.records[number]
	return ok
}

// Record returns the score of a finalized section.
func (s *Scorer) Record(number int) (model.SectionScore, bool) {
	rec, ok := s.records[number]
	return rec, ok
}

// Records returns a copy of all finalized section scores.
func (s *Scorer) Records() map[int]model.SectionScore {
	out := make(map[int]model.SectionScore, len(s.records))
	for n, rec := range s.records {
		out[n] = rec
	}
	return out
}

func (s *Scorer) correct(q model.ProcessedQuestion) bool {
	opt, ok := s.ledger.Choice(q.ID)
	return ok && opt == q.CorrectOption
}

// ComputeAggregate sums the finalized sections. Domain sub-scores resolve
// each question by its own tag, so mixed sections split per question.
func (s *Scorer) ComputeAggregate() Aggregate {
	agg := Aggregate{ByTag: make(map[model.Category]DomainScore)}

	numbers := make([]int, 0, len(s.records))
	for n := range s.records {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	for _, n := range numbers {
		rec := s.records[n]
		agg.Correct += rec.CorrectCount
		agg.Scored += rec.ScoredQuestionCount
		agg.Sections = append(agg.Sections, rec)

		sec, ok := s.section(n)
		if !ok {
			continue
		}
		for _, q := range sec.Questions {
			if q.IsNonScored {
				continue
			}
			correct := s.correct(q)

			switch domainOf(q, sec.Config) {
			case model.CategoryVerbal:
				agg.Verbal.add(correct)
			case model.CategoryQuantitative:
				agg.Quantitative.add(correct)
			}

			tag := agg.ByTag[q.Category]
			tag.add(correct)
			agg.ByTag[q.Category] = tag
		}
	}

	if agg.Scored > 0 {
		agg.Percent = float64(agg.Correct) * 100 / float64(agg.Scored)
	}
	return agg
}

// domainOf falls back to the section's category when the question carries no
// resolvable tag.
func domainOf(q model.ProcessedQuestion, sc model.SectionConfig) model.Category {
	if d := q.Category.Domain(); d != "" {
		return d
	}
	return sc.Category.Domain()
}

// Recompute rebuilds the scores of a persisted attempt from its snapshots and
// answers.
func Recompute(rec model.AttemptRecord) Aggregate {
	bySection := make(map[int][]model.ProcessedQuestion)
	sectionCategory := make(map[int]model.Category)
	for _, snap := range rec.Questions {
		sectionCategory[snap.Section] = snap.SectionCategory
		bySection[snap.Section] = append(bySection[snap.Section], model.ProcessedQuestion{
			RawQuestion: model.RawQuestion{
				ID:            snap.ID,
				Text:          snap.Text,
				Options:       snap.Options,
				CorrectOption: snap.CorrectOption,
				Category:      snap.Category,
				Explanation:   snap.Explanation,
			},
			Section:     snap.Section,
			GlobalIndex: snap.GlobalIndex,
			IsNonScored: snap.IsNonScored,
		})
	}

	numbers := make([]int, 0, len(bySection))
	for n := range bySection {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	sections := make([]Section, 0, len(numbers))
	for _, n := range numbers {
		qs := bySection[n]
		sort.Slice(qs, func(i, j int) bool { return qs[i].GlobalIndex < qs[j].GlobalIndex })
		sections = append(sections, Section{
			Config:    model.SectionConfig{Number: n, Category: sectionCategory[n], QuestionCount: len(qs)},
			Questions: qs,
		})
	}

	ledger := NewLedger()
	for id, opt := range rec.Answers {
		ledger.Record(id, opt)
	}

	scorer := NewScorer(sections, ledger)
	for n, stored := range rec.SectionScores {
		if _, err := scorer.FinalizeSection(n); errors.Is(err, ErrUnknownSection) {
			// No snapshots for this section; keep the score written at the time.
			scorer.records[n] = stored
		}
	}
	return scorer.ComputeAggregate()
}
