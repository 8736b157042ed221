package model

import "time"

// RawQuestion is a question as returned by the question bank.
type RawQuestion struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
	Category      Category `json:"category"`
	Explanation   string   `json:"explanation,omitempty"`
}

// ProcessedQuestion is an assembled question with its position in the attempt.
type ProcessedQuestion struct {
	RawQuestion
	Section     int  `json:"section"`
	GlobalIndex int  `json:"global_index"`
	IsNonScored bool `json:"is_non_scored"`
	// Synthetic marks padded re-draws and placeholders created on shortfall.
	Synthetic bool `json:"synthetic,omitempty"`
}

// QuestionForLearner is a question without the answer key or scoring flags.
type QuestionForLearner struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Options  []string `json:"options"`
	Category Category `json:"category"`
}

// ForLearner strips everything the learner must not see.
func (q ProcessedQuestion) ForLearner() QuestionForLearner {
	return QuestionForLearner{
		ID:       q.ID,
		Text:     q.Text,
		Options:  q.Options,
		Category: q.Category,
	}
}

// BankQuestion is a question bank row.
type BankQuestion struct {
	RawQuestion
	CreatedAt time.Time `json:"created_at"`
}

// AddQuestionRequest is the payload for adding a question to the bank.
type AddQuestionRequest struct {
	Text          string   `json:"text" binding:"required,min=1,max=4000"`
	Options       []string `json:"options" binding:"required,min=2,max=6,dive,required"`
	CorrectOption int      `json:"correct_option" binding:"min=0,max=5"`
	Category      string   `json:"category" binding:"required,category"`
	Explanation   string   `json:"explanation" binding:"max=4000"`
}

// ImportQuestionsRequest is the payload for bulk importing questions.
type ImportQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

// ListQuestionsQuery filters the admin question listing.
type ListQuestionsQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PerPage  int    `form:"per_page" binding:"omitempty,min=1,max=100"`
	Category string `form:"category" binding:"omitempty,category"`
}
