package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/qiyas-mock/internal/model"
)

// State enumerates the exam session states.
type State string

const (
	StateSelection           State = "selection"
	StateInstructions        State = "instructions"
	StateSectionInProgress   State = "section_in_progress"
	StateAwaitingFinalReview State = "awaiting_final_review"
	StateResults             State = "results"
)

// TimerKind names the countdown that is currently running.
type TimerKind string

const (
	TimerNone    TimerKind = ""
	TimerSection TimerKind = "section"
	TimerBreak   TimerKind = "prayer_break"
)

// Token identifies one arming of a countdown. It changes whenever a countdown
// is armed or disarmed, so ticks generated for an earlier arming are stale.
type Token uint64

// DefaultPrayerBreak is the length of the one-time prayer break.
const DefaultPrayerBreak = 15 * time.Minute

// capability is consumed by entering the state it guards.
type capability struct{}

// MachineConfig configures a Machine.
type MachineConfig struct {
	UserID      int
	PrayerBreak time.Duration
	Now         func() time.Time
	NewID       func() string
	Log         zerolog.Logger
}

// Machine is the exam session state machine of one attempt. It is not safe
// for concurrent use; Runner serializes access.
type Machine struct {
	cfg MachineConfig
	log zerolog.Logger

	state    State
	template model.ExamTemplate
	sections []Section
	ledger   *Ledger
	scorer   *Scorer

	sectionIdx  int
	questionIdx int
	remaining   int

	onBreak        bool
	breakRemaining int
	breakToken     *capability

	review bool
	// pendingFinal is set when the learner finished the last section and the
	// section is held open until they confirm.
	pendingFinal bool

	armed TimerKind
	token Token

	startedAt time.Time
	result    *Result
}

// NewMachine creates a Machine in the selection state.
func NewMachine(cfg MachineConfig) *Machine {
	if cfg.PrayerBreak <= 0 {
		cfg.PrayerBreak = DefaultPrayerBreak
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &Machine{
		cfg:   cfg,
		log:   cfg.Log.With().Str("component", "exam_machine").Logger(),
		state: StateSelection,
	}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// OnPrayerBreak reports whether the prayer break sub-state is active.
func (m *Machine) OnPrayerBreak() bool { return m.onBreak }

// Template returns the selected template.
func (m *Machine) Template() model.ExamTemplate { return m.template }

// Armed reports the running countdown and the token its ticks must carry.
func (m *Machine) Armed() (TimerKind, Token) { return m.armed, m.token }

// Remaining returns the seconds left on the section countdown.
func (m *Machine) Remaining() int { return m.remaining }

// BreakRemaining returns the seconds left on the prayer break countdown.
func (m *Machine) BreakRemaining() int { return m.breakRemaining }

// Dispatch applies one event. Rejected events leave the machine unchanged.
func (m *Machine) Dispatch(ev Event) error {
	prev := m.state
	var err error

	switch e := ev.(type) {
	case SelectExam:
		err = m.selectExam(e)
	case BeginExam:
		err = m.begin(e)
	case AssemblyFailed:
		err = m.assemblyFailed(e)
	case Tick:
		m.tick(e)
	case Answer:
		err = m.answer(e)
	case Navigate:
		err = m.navigate(e)
	case FinishSection:
		err = m.finishSection()
	case ReviewChoice:
		err = m.reviewChoice(e)
	case StartPrayerBreak:
		err = m.startBreak()
	case ResumeFromBreak:
		err = m.resume(false)
	case Abandon:
		err = m.abandon()
	default:
		err = fmt.Errorf("%w: unknown event %T", ErrInvalidTransition, ev)
	}

	if err == nil && m.state != prev {
		m.log.Debug().
			Str("from", string(prev)).
			Str("to", string(m.state)).
			Str("event", ev.eventName()).
			Msg("State transition")
	}
	return err
}

func (m *Machine) expect(states ...State) error {
	for _, s := range states {
		if m.state == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidTransition, m.state)
}

func (m *Machine) arm(kind TimerKind) {
	m.token++
	m.armed = kind
}

func (m *Machine) disarm() {
	m.token++
	m.armed = TimerNone
}

func (m *Machine) current() Section {
	return m.sections[m.sectionIdx]
}

func (m *Machine) selectExam(e SelectExam) error {
	if err := m.expect(StateSelection); err != nil {
		return err
	}
	if e.Template.RequiresEntitlement && !e.Entitled {
		return ErrEntitlementRequired
	}
	m.template = e.Template
	m.state = StateInstructions
	return nil
}

func (m *Machine) begin(e BeginExam) error {
	if err := m.expect(StateInstructions); err != nil {
		return err
	}
	if len(e.Sections) != len(m.template.Sections) {
		return fmt.Errorf("%w: got %d sections, template has %d",
			ErrInvalidTransition, len(e.Sections), len(m.template.Sections))
	}
	for i, sec := range e.Sections {
		if len(sec.Questions) == 0 {
			return fmt.Errorf("%w: section %d is empty", ErrInvalidTransition, i+1)
		}
	}

	m.sections = e.Sections
	m.ledger = NewLedger()
	m.scorer = NewScorer(m.sections, m.ledger)
	m.breakToken = &capability{}
	m.startedAt = m.cfg.Now()
	m.enterSection(0)
	return nil
}

func (m *Machine) assemblyFailed(e AssemblyFailed) error {
	if err := m.expect(StateInstructions); err != nil {
		return err
	}
	m.log.Warn().Err(e.Err).Str("template_id", m.template.ID).Msg("Exam start aborted")
	m.template = model.ExamTemplate{}
	m.state = StateSelection
	return nil
}

// enterSection starts section idx with a fresh countdown.
func (m *Machine) enterSection(idx int) {
	m.sectionIdx = idx
	m.questionIdx = 0
	m.remaining = m.current().Config.TimeLimitSeconds()
	m.state = StateSectionInProgress
	m.arm(TimerSection)
}

func (m *Machine) tick(e Tick) {
	if m.armed == TimerNone || e.Timer != m.armed || e.Token != m.token {
		// Stale tick from a countdown that has been disarmed or re-armed.
		return
	}

	switch m.armed {
	case TimerSection:
		m.remaining--
		if m.remaining <= 0 {
			m.remaining = 0
			m.log.Info().
				Int("section", m.current().Config.Number).
				Msg("Section time expired")
			m.advance(true)
		}
	case TimerBreak:
		m.breakRemaining--
		if m.breakRemaining <= 0 {
			m.breakRemaining = 0
			_ = m.resume(true)
		}
	}
}

func (m *Machine) inSection() error {
	if err := m.expect(StateSectionInProgress); err != nil {
		return err
	}
	if m.onBreak {
		return fmt.Errorf("%w: on prayer break", ErrInvalidTransition)
	}
	return nil
}

func (m *Machine) answer(e Answer) error {
	if err := m.inSection(); err != nil {
		return err
	}
	if m.review {
		return ErrReadOnlyReview
	}

	for _, q := range m.current().Questions {
		if q.ID != e.QuestionID {
			continue
		}
		if e.Option < 0 || e.Option >= len(q.Options) {
			return ErrInvalidOption
		}
		m.ledger.Record(q.ID, e.Option)
		return nil
	}
	return ErrUnknownQuestion
}

func (m *Machine) navigate(e Navigate) error {
	if err := m.inSection(); err != nil {
		return err
	}

	target := m.questionIdx
	switch e.Direction {
	case DirectionNext:
		target++
	case DirectionPrev:
		target--
	case DirectionJump:
		target = e.Index
	default:
		return fmt.Errorf("%w: direction %q", ErrInvalidTransition, e.Direction)
	}
	if target < 0 || target >= len(m.current().Questions) {
		return ErrOutOfRange
	}
	m.questionIdx = target
	return nil
}

func (m *Machine) finishSection() error {
	if err := m.inSection(); err != nil {
		return err
	}
	if m.review {
		m.toResults()
		return nil
	}
	m.advance(false)
	return nil
}

// advance leaves the current section. A forced advance comes from the
// countdown and finalizes the last section immediately; a learner-initiated
// one holds the last section open until the review choice.
func (m *Machine) advance(forced bool) {
	number := m.current().Config.Number
	last := m.sectionIdx == len(m.sections)-1

	if !last {
		m.finalize(number)
		m.enterSection(m.sectionIdx + 1)
		return
	}

	m.disarm()
	m.state = StateAwaitingFinalReview
	if forced {
		m.finalize(number)
		m.pendingFinal = false
		return
	}
	m.pendingFinal = true
}

func (m *Machine) finalize(number int) {
	rec, err := m.scorer.FinalizeSection(number)
	if err != nil {
		m.log.Debug().Err(err).Int("section", number).Msg("Finalize skipped")
		return
	}
	m.log.Debug().
		Int("section", number).
		Int("correct", rec.CorrectCount).
		Int("scored", rec.ScoredQuestionCount).
		Msg("Section finalized")
}

func (m *Machine) reviewChoice(e ReviewChoice) error {
	if err := m.expect(StateAwaitingFinalReview); err != nil {
		return err
	}
	number := m.current().Config.Number

	switch e.Choice {
	case ChoiceReview:
		m.finalize(number)
		m.pendingFinal = false
		m.review = true
		m.questionIdx = 0
		m.state = StateSectionInProgress
	case ChoiceFinish:
		m.finalize(number)
		m.pendingFinal = false
		m.toResults()
	case ChoiceCancel:
		if !m.pendingFinal {
			// Time already ran out; there is nothing to go back to.
			return nil
		}
		m.pendingFinal = false
		m.state = StateSectionInProgress
		m.arm(TimerSection)
	default:
		return fmt.Errorf("%w: choice %q", ErrInvalidTransition, e.Choice)
	}
	return nil
}

func (m *Machine) startBreak() error {
	if err := m.inSection(); err != nil {
		return err
	}
	if m.review {
		return fmt.Errorf("%w: no countdown during review", ErrInvalidTransition)
	}
	if m.breakToken == nil {
		return ErrPrayerBreakUsed
	}
	m.breakToken = nil

	// Arming the break disarms the section countdown in the same step.
	m.onBreak = true
	m.breakRemaining = int(m.cfg.PrayerBreak / time.Second)
	m.arm(TimerBreak)
	m.log.Info().
		Int("section", m.current().Config.Number).
		Int("section_remaining", m.remaining).
		Msg("Prayer break started")
	return nil
}

func (m *Machine) resume(auto bool) error {
	if !m.onBreak {
		return fmt.Errorf("%w: not on prayer break", ErrInvalidTransition)
	}
	m.onBreak = false
	m.breakRemaining = 0
	m.arm(TimerSection)
	m.log.Info().Bool("auto", auto).Msg("Prayer break ended")
	return nil
}

func (m *Machine) abandon() error {
	if m.state == StateResults {
		return fmt.Errorf("%w: attempt already finished", ErrInvalidTransition)
	}
	m.disarm()
	*m = Machine{
		cfg:   m.cfg,
		log:   m.log,
		state: StateSelection,
		token: m.token,
	}
	return nil
}

func (m *Machine) toResults() {
	m.disarm()
	m.review = false
	m.state = StateResults

	finishedAt := m.cfg.Now()
	taken := int(finishedAt.Sub(m.startedAt) / time.Second)
	if limit := m.template.TotalTimeMinutes * 60; limit > 0 && taken > limit {
		taken = limit
	}
	if taken < 0 {
		taken = 0
	}

	agg := m.scorer.ComputeAggregate()
	var questions []model.QuestionSnapshot
	for _, sec := range m.sections {
		for _, q := range sec.Questions {
			questions = append(questions, q.Snapshot(sec.Config.Category))
		}
	}

	record := model.AttemptRecord{
		ID:               m.cfg.NewID(),
		Timestamp:        finishedAt.UTC(),
		UserID:           m.cfg.UserID,
		TemplateID:       m.template.ID,
		TemplateName:     m.template.Name,
		CorrectCount:     agg.Correct,
		ScoredCount:      agg.Scored,
		TimeTakenSeconds: taken,
		Answers:          m.ledger.Snapshot(),
		SectionScores:    m.scorer.Records(),
		Questions:        questions,
		PrayerBreakUsed:  m.breakToken == nil,
		HideReview:       m.template.HideReviewAfterCompletion,
	}
	m.result = &Result{Aggregate: agg, Record: record}

	m.log.Info().
		Str("template_id", m.template.ID).
		Int("correct", agg.Correct).
		Int("scored", agg.Scored).
		Int("time_taken", taken).
		Msg("Attempt finished")
}

// Result is the outcome of a finished attempt.
type Result struct {
	Aggregate Aggregate           `json:"aggregate"`
	Record    model.AttemptRecord `json:"-"`
}

// Results returns the outcome once the machine reached results.
func (m *Machine) Results() (*Result, error) {
	if m.state != StateResults || m.result == nil {
		return nil, fmt.Errorf("%w: no results in %s", ErrInvalidTransition, m.state)
	}
	return m.result, nil
}

// SectionScore returns the score of a finalized section.
func (m *Machine) SectionScore(number int) (model.SectionScore, bool) {
	if m.scorer == nil {
		return model.SectionScore{}, false
	}
	return m.scorer.Record(number)
}

// Sections exposes the processed sections of the attempt.
func (m *Machine) Sections() []Section { return m.sections }
