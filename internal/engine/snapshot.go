package engine

import "github.com/stemsi/qiyas-mock/internal/model"

// SectionView describes the current section to the learner.
type SectionView struct {
	Number        int            `json:"number"`
	Name          string         `json:"name"`
	Category      model.Category `json:"category"`
	QuestionCount int            `json:"question_count"`
	Of            int            `json:"of"`
}

// QuestionStatus is one row of the in-section overview.
type QuestionStatus struct {
	Index      int    `json:"index"`
	QuestionID string `json:"question_id"`
	Answered   bool   `json:"answered"`
}

// Snapshot is the learner-facing view of a Machine. It never carries answer
// keys or non-scored flags.
type Snapshot struct {
	State        State  `json:"state"`
	TemplateID   string `json:"template_id,omitempty"`
	TemplateName string `json:"template_name,omitempty"`

	Section        *SectionView              `json:"section,omitempty"`
	QuestionIndex  int                       `json:"question_index"`
	Question       *model.QuestionForLearner `json:"question,omitempty"`
	SelectedOption *int                      `json:"selected_option,omitempty"`
	Overview       []QuestionStatus          `json:"overview,omitempty"`

	RemainingSeconds      int  `json:"remaining_seconds"`
	OnPrayerBreak         bool `json:"on_prayer_break"`
	BreakRemainingSeconds int  `json:"break_remaining_seconds,omitempty"`
	PrayerBreakAvailable  bool `json:"prayer_break_available"`

	ReviewMode      bool `json:"review_mode"`
	CanCancelReview bool `json:"can_cancel_review,omitempty"`

	// Scores are shown only once the attempt reached results.
	Scores []model.SectionScore `json:"scores,omitempty"`
}

// Snapshot projects the machine for the learner.
func (m *Machine) Snapshot() Snapshot {
	s := Snapshot{
		State:        m.state,
		TemplateID:   m.template.ID,
		TemplateName: m.template.Name,
	}
	if len(m.sections) == 0 {
		return s
	}

	switch m.state {
	case StateSectionInProgress, StateAwaitingFinalReview:
		sec := m.current()
		s.Section = &SectionView{
			Number:        sec.Config.Number,
			Name:          sec.Config.Name,
			Category:      sec.Config.Category,
			QuestionCount: len(sec.Questions),
			Of:            len(m.sections),
		}
		s.QuestionIndex = m.questionIdx
		s.RemainingSeconds = m.remaining
		s.OnPrayerBreak = m.onBreak
		s.BreakRemainingSeconds = m.breakRemaining
		s.PrayerBreakAvailable = m.breakToken != nil && !m.review
		s.ReviewMode = m.review
		s.CanCancelReview = m.state == StateAwaitingFinalReview && m.pendingFinal

		if q, ok := sec.Question(m.questionIdx); ok && m.state == StateSectionInProgress && !m.onBreak {
			view := q.ForLearner()
			s.Question = &view
			if opt, answered := m.ledger.Choice(q.ID); answered {
				s.SelectedOption = &opt
			}
		}

		s.Overview = make([]QuestionStatus, len(sec.Questions))
		for i, q := range sec.Questions {
			_, answered := m.ledger.Choice(q.ID)
			s.Overview[i] = QuestionStatus{Index: i, QuestionID: q.ID, Answered: answered}
		}
	case StateResults:
		if m.result != nil {
			s.Scores = m.result.Aggregate.Sections
		}
	}
	return s
}
