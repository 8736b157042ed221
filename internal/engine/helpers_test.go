package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/qiyas-mock/internal/model"
)

// fakeSupplier serves questions from an in-memory bank keyed by domain. It
// ignores limit and returns the whole bank in a fixed order.
type fakeSupplier struct {
	mu    sync.Mutex
	bank  map[model.Category][]model.RawQuestion
	errs  map[model.Category]error
	calls map[model.Category]int
}

func newFakeSupplier() *fakeSupplier {
	return &fakeSupplier{
		bank:  make(map[model.Category][]model.RawQuestion),
		errs:  make(map[model.Category]error),
		calls: make(map[model.Category]int),
	}
}

// fill adds n well-formed questions tagged with tag; the correct option is
// always 1.
func (f *fakeSupplier) fill(tag model.Category, n int) *fakeSupplier {
	domain := tag.Domain()
	for i := 0; i < n; i++ {
		f.bank[domain] = append(f.bank[domain], model.RawQuestion{
			ID:            fmt.Sprintf("%s-%d", tag, i),
			Text:          fmt.Sprintf("%s question %d", tag, i),
			Options:       []string{"a", "b", "c", "d"},
			CorrectOption: 1,
			Category:      tag,
		})
	}
	return f
}

func (f *fakeSupplier) Questions(_ context.Context, category model.Category, _ int) ([]model.RawQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[category]++

	if err := f.errs[category]; err != nil {
		return nil, err
	}
	return append([]model.RawQuestion(nil), f.bank[category.Domain()]...), nil
}

func sectionTemplate(id string, sections ...model.SectionConfig) model.ExamTemplate {
	tpl := model.ExamTemplate{ID: id, Name: id}
	for i := range sections {
		sections[i].Number = i + 1
		tpl.TotalQuestions += sections[i].QuestionCount
		tpl.TotalTimeMinutes += sections[i].TimeLimitMinutes
	}
	tpl.Sections = sections
	return tpl
}

func twoSectionTemplate() model.ExamTemplate {
	return sectionTemplate("two-section",
		model.SectionConfig{Name: "Verbal", Category: model.CategoryVerbal, QuestionCount: 10, TimeLimitMinutes: 10},
		model.SectionConfig{Name: "Quantitative", Category: model.CategoryQuantitative, QuestionCount: 10, TimeLimitMinutes: 10},
	)
}

// assembleSections runs assembly and distribution with a fixed seed.
func assembleSections(t *testing.T, tpl model.ExamTemplate, seed int64) []Section {
	t.Helper()
	sup := newFakeSupplier().fill(model.CategoryVerbal, 60).fill(model.CategoryQuantitative, 60)
	rng := NewRand(seed)
	asm, err := NewAssembler(sup, DefaultAssemblyPolicy(), rng, zerolog.Nop()).Assemble(context.Background(), tpl)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	return Process(asm, rng)
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func (c *clock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestMachine(c *clock) *Machine {
	return NewMachine(MachineConfig{
		UserID: 7,
		Now:    c.Now,
		NewID:  func() string { return "attempt-1" },
		Log:    zerolog.Nop(),
	})
}

// startedMachine returns a machine in the first section of tpl.
func startedMachine(t *testing.T, c *clock, tpl model.ExamTemplate) *Machine {
	t.Helper()
	m := newTestMachine(c)
	mustDispatch(t, m, SelectExam{Template: tpl, Entitled: true})
	mustDispatch(t, m, BeginExam{Sections: assembleSections(t, tpl, 42)})
	return m
}

func mustDispatch(t *testing.T, m *Machine, ev Event) {
	t.Helper()
	if err := m.Dispatch(ev); err != nil {
		t.Fatalf("Dispatch(%s): %v", EventName(ev), err)
	}
}

// tick delivers n ticks for whatever countdown is currently armed.
func tick(m *Machine, n int) {
	for i := 0; i < n; i++ {
		kind, tok := m.Armed()
		_ = m.Dispatch(Tick{Timer: kind, Token: tok})
	}
}

// answerSection answers the first `answered` questions of the current
// section, `correct` of them correctly.
func answerSection(t *testing.T, m *Machine, answered, correct int) {
	t.Helper()
	sec := m.Sections()[m.sectionIdx]
	for i := 0; i < answered; i++ {
		q := sec.Questions[i]
		opt := q.CorrectOption
		if i >= correct {
			opt = (q.CorrectOption + 1) % len(q.Options)
		}
		mustDispatch(t, m, Answer{QuestionID: q.ID, Option: opt})
	}
}
