package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/stemsi/qiyas-mock/internal/model"
	"github.com/stemsi/qiyas-mock/internal/repository"
	"github.com/stemsi/qiyas-mock/internal/response"
)

var ErrCorrectOptionRange = errors.New("correct_option must index one of the options")

// QuestionService handles question bank administration.
type QuestionService struct {
	questionRepo *repository.QuestionRepository
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questionRepo *repository.QuestionRepository) *QuestionService {
	return &QuestionService{questionRepo: questionRepo}
}

// List retrieves bank questions with pagination and an optional category filter.
func (s *QuestionService) List(ctx context.Context, category *model.Category, page, perPage int) ([]model.BankQuestion, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	limit := perPage
	offset := (page - 1) * perPage

	questions, total, err := s.questionRepo.ListPaginated(ctx, category, limit, offset)
	if err != nil {
		return nil, nil, err
	}
	if questions == nil {
		questions = []model.BankQuestion{}
	}

	return questions, response.NewPagination(page, perPage, total), nil
}

// ToRawQuestion checks a request and converts it to a bank question.
func ToRawQuestion(req model.AddQuestionRequest) (model.RawQuestion, error) {
	if req.CorrectOption < 0 || req.CorrectOption >= len(req.Options) {
		return model.RawQuestion{}, ErrCorrectOptionRange
	}
	return model.RawQuestion{
		Text:          req.Text,
		Options:       req.Options,
		CorrectOption: req.CorrectOption,
		Category:      model.Category(req.Category),
		Explanation:   req.Explanation,
	}, nil
}

// Create adds one question to the bank.
func (s *QuestionService) Create(ctx context.Context, req model.AddQuestionRequest) (*model.BankQuestion, error) {
	raw, err := ToRawQuestion(req)
	if err != nil {
		return nil, err
	}
	q := &model.BankQuestion{RawQuestion: raw}
	if err := s.questionRepo.Create(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Import adds many questions at once. Nothing is written if any is invalid.
func (s *QuestionService) Import(ctx context.Context, reqs []model.AddQuestionRequest) (int64, error) {
	questions := make([]model.RawQuestion, 0, len(reqs))
	for i, req := range reqs {
		raw, err := ToRawQuestion(req)
		if err != nil {
			return 0, fmt.Errorf("question %d: %w", i, err)
		}
		questions = append(questions, raw)
	}
	return s.questionRepo.BulkCreate(ctx, questions)
}

// Delete removes a question from the bank.
func (s *QuestionService) Delete(ctx context.Context, id string) error {
	return s.questionRepo.Delete(ctx, id)
}

// Stats returns the bank size per category tag.
func (s *QuestionService) Stats(ctx context.Context) (map[model.Category]int, error) {
	return s.questionRepo.CountByCategory(ctx)
}
