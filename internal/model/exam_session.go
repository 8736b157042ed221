package model

// SelectExamRequest is the payload for picking an exam template.
type SelectExamRequest struct {
	TemplateID string `json:"template_id" binding:"required,max=64"`
}

// AnswerRequest records a choice for a question of the current section.
type AnswerRequest struct {
	QuestionID string `json:"question_id" binding:"required,max=64"`
	Option     *int   `json:"option" binding:"required,min=0"`
}

// NavigateRequest moves within the current section.
type NavigateRequest struct {
	Direction string `json:"direction" binding:"required,oneof=next prev jump"`
	Index     int    `json:"index" binding:"min=0"`
}

// ReviewChoiceRequest answers the final review prompt.
type ReviewChoiceRequest struct {
	Choice string `json:"choice" binding:"required,oneof=review finish cancel"`
}
