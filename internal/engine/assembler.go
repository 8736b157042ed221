package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/qiyas-mock/internal/model"
	"golang.org/x/sync/errgroup"
)

const syntheticPrefix = "syn-"

// AssemblyPolicy holds the tunables of section assembly.
type AssemblyPolicy struct {
	// MixedVerbalRatio is the verbal share of a mixed section, rounded up.
	MixedVerbalRatio float64
	// Oversample multiplies the requested candidate count.
	Oversample int
	// MaxConcurrentFetches bounds parallel supplier calls.
	MaxConcurrentFetches int
	PlaceholderText      string
	PlaceholderOptions   []string
}

// DefaultAssemblyPolicy returns the production policy.
func DefaultAssemblyPolicy() AssemblyPolicy {
	return AssemblyPolicy{
		MixedVerbalRatio:     0.55,
		Oversample:           3,
		MaxConcurrentFetches: 4,
		PlaceholderText:      "Placeholder question",
		PlaceholderOptions:   []string{"A", "B", "C", "D"},
	}
}

// SectionDraw is the assembled question list of one section.
type SectionDraw struct {
	Config      model.SectionConfig
	Questions   []model.RawQuestion
	Padded      int
	Synthesized int
}

// Degraded reports whether the section needed padding or placeholders.
func (d SectionDraw) Degraded() bool {
	return d.Padded > 0 || d.Synthesized > 0
}

// Assembly is the raw question set of a whole attempt, in section order.
type Assembly struct {
	Template model.ExamTemplate
	Sections []SectionDraw
}

// Assembler selects and shuffles the questions of every section.
type Assembler struct {
	supplier QuestionSupplier
	policy   AssemblyPolicy
	rng      *rand.Rand
	log      zerolog.Logger
}

// NewAssembler creates an Assembler. The random source is used only from the
// calling goroutine.
func NewAssembler(supplier QuestionSupplier, policy AssemblyPolicy, rng *rand.Rand, log zerolog.Logger) *Assembler {
	if policy.Oversample < 1 {
		policy.Oversample = 1
	}
	if policy.MaxConcurrentFetches < 1 {
		policy.MaxConcurrentFetches = 1
	}
	if len(policy.PlaceholderOptions) < 2 {
		policy.PlaceholderOptions = DefaultAssemblyPolicy().PlaceholderOptions
	}
	return &Assembler{
		supplier: supplier,
		policy:   policy,
		rng:      rng,
		log:      log.With().Str("component", "assembler").Logger(),
	}
}

// part is one supplier draw: a whole single-category section, or one half of
// a mixed section.
type part struct {
	category   model.Category
	need       int
	candidates []model.RawQuestion
	err        error
}

// plan splits a section into its supplier draws.
func (a *Assembler) plan(sc model.SectionConfig) []part {
	if sc.Category != model.CategoryMixed {
		return []part{{category: sc.Category, need: sc.QuestionCount}}
	}

	verbal := int(math.Ceil(float64(sc.QuestionCount) * a.policy.MixedVerbalRatio))
	if verbal > sc.QuestionCount {
		verbal = sc.QuestionCount
	}
	return []part{
		{category: model.CategoryVerbal, need: verbal},
		{category: model.CategoryQuantitative, need: sc.QuestionCount - verbal},
	}
}

// Assemble produces exactly QuestionCount questions per section. Supplier
// failures abort the whole assembly with an *AssemblyError; short supply is
// padded instead.
func (a *Assembler) Assemble(ctx context.Context, tpl model.ExamTemplate) (*Assembly, error) {
	plans := make([][]part, len(tpl.Sections))

	var g errgroup.Group
	g.SetLimit(a.policy.MaxConcurrentFetches)

	for i, sc := range tpl.Sections {
		plans[i] = a.plan(sc)
		for j := range plans[i] {
			p := &plans[i][j]
			if p.need == 0 {
				continue
			}
			g.Go(func() error {
				// Errors stay on the part so one section's failure never
				// cancels the others.
				p.candidates, p.err = a.supplier.Questions(ctx, p.category, p.need*a.policy.Oversample)
				return nil
			})
		}
	}
	_ = g.Wait()

	failed := make(map[int]error)
	var succeeded []int
	for i, parts := range plans {
		number := tpl.Sections[i].Number
		var err error
		for _, p := range parts {
			if p.err != nil {
				err = fmt.Errorf("fetch %s questions: %w", p.category, p.err)
				break
			}
		}
		if err != nil {
			failed[number] = err
			a.log.Error().Err(err).Int("section", number).Msg("Question supply failed")
			continue
		}
		succeeded = append(succeeded, number)
	}
	if len(failed) > 0 {
		return nil, &AssemblyError{Failed: failed, Succeeded: succeeded}
	}

	asm := &Assembly{Template: tpl, Sections: make([]SectionDraw, len(tpl.Sections))}
	used := make(map[string]struct{})

	for i, sc := range tpl.Sections {
		draw := SectionDraw{Config: sc}
		for _, p := range plans[i] {
			qs, padded, synthesized := a.draw(p, used)
			draw.Questions = append(draw.Questions, qs...)
			draw.Padded += padded
			draw.Synthesized += synthesized
		}

		// Padding and placeholders land at the tail of each part; mix them in.
		a.rng.Shuffle(len(draw.Questions), func(x, y int) {
			draw.Questions[x], draw.Questions[y] = draw.Questions[y], draw.Questions[x]
		})
		if len(draw.Questions) > sc.QuestionCount {
			draw.Questions = draw.Questions[:sc.QuestionCount]
		}

		if draw.Degraded() {
			a.log.Warn().
				Int("section", sc.Number).
				Int("padded", draw.Padded).
				Int("synthesized", draw.Synthesized).
				Msg("Question supply short, section degraded")
		}
		asm.Sections[i] = draw
	}

	a.log.Debug().
		Str("template_id", tpl.ID).
		Int("sections", len(asm.Sections)).
		Msg("Exam assembled")
	return asm, nil
}

// draw picks p.need questions from the candidates, skipping malformed and
// already used ones, then pads or synthesizes the rest.
func (a *Assembler) draw(p part, used map[string]struct{}) (out []model.RawQuestion, padded, synthesized int) {
	if p.need == 0 {
		return nil, 0, 0
	}

	usable := make([]model.RawQuestion, 0, len(p.candidates))
	var reusable []model.RawQuestion
	for _, q := range p.candidates {
		if !wellFormed(q) {
			continue
		}
		if _, dup := used[q.ID]; dup {
			reusable = append(reusable, q)
			continue
		}
		used[q.ID] = struct{}{}
		usable = append(usable, q)
	}

	a.rng.Shuffle(len(usable), func(i, j int) {
		usable[i], usable[j] = usable[j], usable[i]
	})
	if len(usable) > p.need {
		// Candidates beyond the cut go back to the pool.
		for _, q := range usable[p.need:] {
			delete(used, q.ID)
		}
		usable = usable[:p.need]
	}
	out = usable

	pool := append(append([]model.RawQuestion{}, usable...), reusable...)
	for len(out) < p.need {
		if len(pool) == 0 {
			out = append(out, a.placeholder(p.category))
			synthesized++
			continue
		}
		q := pool[a.rng.Intn(len(pool))]
		q.ID = a.syntheticID()
		out = append(out, q)
		padded++
	}
	return out, padded, synthesized
}

func (a *Assembler) placeholder(category model.Category) model.RawQuestion {
	return model.RawQuestion{
		ID:            a.syntheticID(),
		Text:          a.policy.PlaceholderText,
		Options:       append([]string(nil), a.policy.PlaceholderOptions...),
		CorrectOption: 0,
		Category:      category,
	}
}

// syntheticID derives a fresh id from the injected source so seeded runs stay
// reproducible.
func (a *Assembler) syntheticID() string {
	id, err := uuid.NewRandomFromReader(a.rng)
	if err != nil {
		return uuid.NewString()
	}
	return syntheticPrefix + id.String()
}

func wellFormed(q model.RawQuestion) bool {
	return q.ID != "" && len(q.Options) >= 2 && q.CorrectOption >= 0 && q.CorrectOption < len(q.Options)
}
