package engine

import (
	"context"

	"github.com/stemsi/qiyas-mock/internal/model"
)

// QuestionSupplier returns candidate questions for a category. Implementations
// may return fewer or more than limit, in any order.
type QuestionSupplier interface {
	Questions(ctx context.Context, category model.Category, limit int) ([]model.RawQuestion, error)
}
