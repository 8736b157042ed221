package engine

import "github.com/stemsi/qiyas-mock/internal/model"

// Event is an input to the Machine.
type Event interface {
	eventName() string
}

// SelectExam picks a template from the catalog.
type SelectExam struct {
	Template model.ExamTemplate
	Entitled bool
}

// BeginExam starts the attempt with the processed sections.
type BeginExam struct {
	Sections []Section
}

// AssemblyFailed aborts the start and returns to selection.
type AssemblyFailed struct {
	Err error
}

// Tick is one second of the countdown identified by Timer and Token.
type Tick struct {
	Timer TimerKind
	Token Token
}

// Answer records a choice for a question of the current section.
type Answer struct {
	QuestionID string
	Option     int
}

// Direction of a Navigate event.
type Direction string

const (
	DirectionNext Direction = "next"
	DirectionPrev Direction = "prev"
	DirectionJump Direction = "jump"
)

// Navigate moves within the current section.
type Navigate struct {
	Direction Direction
	Index     int
}

// FinishSection ends the current section on the learner's request.
type FinishSection struct{}

// Choice answers the final review prompt.
type Choice string

const (
	ChoiceReview Choice = "review"
	ChoiceFinish Choice = "finish"
	ChoiceCancel Choice = "cancel"
)

// ReviewChoice resolves awaiting_final_review.
type ReviewChoice struct {
	Choice Choice
}

// StartPrayerBreak enters the one-time prayer break.
type StartPrayerBreak struct{}

// ResumeFromBreak leaves the prayer break early.
type ResumeFromBreak struct{}

// Abandon drops the attempt and returns to selection.
type Abandon struct{}

func (SelectExam) eventName() string       { return "select_exam" }
func (BeginExam) eventName() string        { return "begin_exam" }
func (AssemblyFailed) eventName() string   { return "assembly_failed" }
func (Tick) eventName() string             { return "tick" }
func (Answer) eventName() string           { return "answer" }
func (Navigate) eventName() string         { return "navigate" }
func (FinishSection) eventName() string    { return "finish_section" }
func (ReviewChoice) eventName() string     { return "review_choice" }
func (StartPrayerBreak) eventName() string { return "start_prayer_break" }
func (ResumeFromBreak) eventName() string  { return "resume_from_break" }
func (Abandon) eventName() string          { return "abandon" }

// EventName returns the wire name of an event.
func EventName(ev Event) string { return ev.eventName() }
