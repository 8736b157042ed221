package engine

import (
	"math/rand"
	"strings"

	"github.com/stemsi/qiyas-mock/internal/model"
)

// Section is an assembled, processed section of an attempt.
type Section struct {
	Config    model.SectionConfig
	Questions []model.ProcessedQuestion
}

// Question returns the question at idx, or false when out of range.
func (s Section) Question(idx int) (model.ProcessedQuestion, bool) {
	if idx < 0 || idx >= len(s.Questions) {
		return model.ProcessedQuestion{}, false
	}
	return s.Questions[idx], true
}

// ScoredCount is the number of questions that count toward the score.
func (s Section) ScoredCount() int {
	n := 0
	for _, q := range s.Questions {
		if !q.IsNonScored {
			n++
		}
	}
	return n
}

// DistributeNonScored picks count distinct positions out of 0..total-1,
// uniformly without replacement. count is clamped to [0, total].
func DistributeNonScored(rng *rand.Rand, total, count int) map[int]struct{} {
	if total < 0 {
		total = 0
	}
	if count < 0 {
		count = 0
	}
	if count > total {
		count = total
	}

	idx := make([]int, total)
	for i := range idx {
		idx[i] = i
	}
	// Fisher-Yates.
	for i := total - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		idx[i], idx[j] = idx[j], idx[i]
	}

	picked := make(map[int]struct{}, count)
	for _, i := range idx[:count] {
		picked[i] = struct{}{}
	}
	return picked
}

// Process assigns global indices across the whole attempt and marks the
// non-scored subset. It runs once per attempt, before any question is shown.
func Process(asm *Assembly, rng *rand.Rand) []Section {
	total := 0
	for _, d := range asm.Sections {
		total += len(d.Questions)
	}
	nonScored := DistributeNonScored(rng, total, asm.Template.NonScoredCount)

	sections := make([]Section, len(asm.Sections))
	global := 0
	for i, d := range asm.Sections {
		qs := make([]model.ProcessedQuestion, len(d.Questions))
		for j, raw := range d.Questions {
			_, practice := nonScored[global]
			qs[j] = model.ProcessedQuestion{
				RawQuestion: raw,
				Section:     d.Config.Number,
				GlobalIndex: global,
				IsNonScored: practice,
				Synthetic:   strings.HasPrefix(raw.ID, syntheticPrefix),
			}
			global++
		}
		sections[i] = Section{Config: d.Config, Questions: qs}
	}
	return sections
}
