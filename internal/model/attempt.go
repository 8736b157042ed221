package model

import "time"

// SectionScore is the finalized score of one section.
type SectionScore struct {
	Section             int `json:"section"`
	CorrectCount        int `json:"correct_count"`
	ScoredQuestionCount int `json:"scored_question_count"`
}

// QuestionSnapshot is what an attempt keeps of each presented question.
type QuestionSnapshot struct {
	ID          string   `json:"id"`
	Section     int      `json:"section"`
	GlobalIndex int      `json:"global_index"`
	Category    Category `json:"category"`
	// SectionCategory is the category of the section the question was shown in.
	SectionCategory Category `json:"section_category"`
	CorrectOption   int      `json:"correct_option"`
	IsNonScored     bool     `json:"is_non_scored"`
	Text            string   `json:"text,omitempty"`
	Options         []string `json:"options,omitempty"`
	Explanation     string   `json:"explanation,omitempty"`
}

// Snapshot captures a processed question for the attempt record.
func (q ProcessedQuestion) Snapshot(sectionCategory Category) QuestionSnapshot {
	return QuestionSnapshot{
		ID:              q.ID,
		Section:         q.Section,
		GlobalIndex:     q.GlobalIndex,
		Category:        q.Category,
		SectionCategory: sectionCategory,
		CorrectOption:   q.CorrectOption,
		IsNonScored:     q.IsNonScored,
		Text:            q.Text,
		Options:         q.Options,
		Explanation:     q.Explanation,
	}
}

// AttemptRecord is the persisted, write-once result of one attempt.
type AttemptRecord struct {
	ID               string               `json:"id"`
	Timestamp        time.Time            `json:"timestamp"`
	UserID           int                  `json:"user_id"`
	TemplateID       string               `json:"template_id"`
	TemplateName     string               `json:"template_name"`
	CorrectCount     int                  `json:"correct_count"`
	ScoredCount      int                  `json:"scored_count"`
	TimeTakenSeconds int                  `json:"time_taken_seconds"`
	Answers          map[string]int       `json:"answers"`
	SectionScores    map[int]SectionScore `json:"section_scores"`
	Questions        []QuestionSnapshot   `json:"questions"`
	PrayerBreakUsed  bool                 `json:"prayer_break_used"`
	HideReview       bool                 `json:"hide_review"`
}

// Percent returns the aggregate score as a percentage.
func (a AttemptRecord) Percent() float64 {
	if a.ScoredCount == 0 {
		return 0
	}
	return float64(a.CorrectCount) * 100 / float64(a.ScoredCount)
}

// AttemptSummary is an attempt as listed in history.
type AttemptSummary struct {
	ID               string    `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	TemplateID       string    `json:"template_id"`
	TemplateName     string    `json:"template_name"`
	CorrectCount     int       `json:"correct_count"`
	ScoredCount      int       `json:"scored_count"`
	Percent          float64   `json:"percent"`
	TimeTakenSeconds int       `json:"time_taken_seconds"`
}

// Summary projects the record for history listings.
func (a AttemptRecord) Summary() AttemptSummary {
	return AttemptSummary{
		ID:               a.ID,
		Timestamp:        a.Timestamp,
		TemplateID:       a.TemplateID,
		TemplateName:     a.TemplateName,
		CorrectCount:     a.CorrectCount,
		ScoredCount:      a.ScoredCount,
		Percent:          a.Percent(),
		TimeTakenSeconds: a.TimeTakenSeconds,
	}
}
