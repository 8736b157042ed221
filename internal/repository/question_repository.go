package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/qiyas-mock/internal/model"
)

var ErrQuestionNotFound = errors.New("question not found")

// QuestionRepository handles question bank data access. It is the question
// supplier of the exam engine.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

const questionColumns = `id::text, question_text, options, correct_option, category, explanation, created_at`

func scanQuestion(row pgx.Row, q *model.BankQuestion) error {
	var category string
	if err := row.Scan(&q.ID, &q.Text, &q.Options, &q.CorrectOption, &category, &q.Explanation, &q.CreatedAt); err != nil {
		return err
	}
	q.Category = model.Category(category)
	return nil
}

// categoryTags expands a domain to itself plus its sub-tags.
func categoryTags(category model.Category) []string {
	var tags []string
	for _, t := range category.SubTags() {
		tags = append(tags, string(t))
	}
	return tags
}

// Questions returns up to limit random questions whose tag belongs to category.
func (r *QuestionRepository) Questions(ctx context.Context, category model.Category, limit int) ([]model.RawQuestion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+`
		 FROM questions WHERE category = ANY($1)
		 ORDER BY random() LIMIT $2`, categoryTags(category), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.RawQuestion
	for rows.Next() {
		var q model.BankQuestion
		if err := scanQuestion(rows, &q); err != nil {
			return nil, err
		}
		questions = append(questions, q.RawQuestion)
	}
	return questions, rows.Err()
}

// ListPaginated retrieves bank questions with an optional category filter.
func (r *QuestionRepository) ListPaginated(ctx context.Context, category *model.Category, limit, offset int) ([]model.BankQuestion, int, error) {
	// 1. Get total count
	countQuery := `SELECT COUNT(*) FROM questions`
	var countArgs []interface{}
	if category != nil {
		countQuery += ` WHERE category = ANY($1)`
		countArgs = append(countArgs, categoryTags(*category))
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	// 2. Get paginated data
	query := `SELECT ` + questionColumns + ` FROM questions`
	var args []interface{}
	argIdx := 1

	if category != nil {
		query += ` WHERE category = ANY($1)`
		args = append(args, categoryTags(*category))
		argIdx++
	}

	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(argIdx) + ` OFFSET $` + strconv.Itoa(argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var questions []model.BankQuestion
	for rows.Next() {
		var q model.BankQuestion
		if err := scanQuestion(rows, &q); err != nil {
			return nil, 0, err
		}
		questions = append(questions, q)
	}
	return questions, total, rows.Err()
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.BankQuestion) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (question_text, options, correct_option, category, explanation)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id::text, created_at`,
		q.Text, q.Options, q.CorrectOption, string(q.Category), q.Explanation,
	).Scan(&q.ID, &q.CreatedAt)
}

// BulkCreate inserts many questions with a single COPY.
func (r *QuestionRepository) BulkCreate(ctx context.Context, questions []model.RawQuestion) (int64, error) {
	rows := make([][]interface{}, 0, len(questions))
	for _, q := range questions {
		rows = append(rows, []interface{}{q.Text, q.Options, q.CorrectOption, string(q.Category), q.Explanation})
	}

	return r.pool.CopyFrom(ctx,
		pgx.Identifier{"questions"},
		[]string{"question_text", "options", "correct_option", "category", "explanation"},
		pgx.CopyFromRows(rows),
	)
}

// Delete removes a question by ID.
func (r *QuestionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id::text = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrQuestionNotFound
	}
	return nil
}

// CountByCategory returns the bank size per question tag.
func (r *QuestionRepository) CountByCategory(ctx context.Context) (map[model.Category]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT category, COUNT(*) FROM questions GROUP BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.Category]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, err
		}
		counts[model.Category(category)] = n
	}
	return counts, rows.Err()
}
