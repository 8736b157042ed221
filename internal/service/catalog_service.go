package service

import (
	"context"
	"errors"

	"github.com/stemsi/qiyas-mock/internal/model"
)

var ErrTemplateNotFound = errors.New("exam template not found")

// EntitlementChecker reports whether a user unlocked premium templates.
type EntitlementChecker interface {
	Entitled(ctx context.Context, userID int) (bool, error)
}

// CatalogService serves the static exam catalog.
type CatalogService struct {
	templates []model.ExamTemplate
	byID      map[string]model.ExamTemplate
	gate      EntitlementChecker
}

// NewCatalogService creates a CatalogService over validated templates.
func NewCatalogService(templates []model.ExamTemplate, gate EntitlementChecker) *CatalogService {
	byID := make(map[string]model.ExamTemplate, len(templates))
	for _, t := range templates {
		byID[t.ID] = t
	}
	return &CatalogService{templates: templates, byID: byID, gate: gate}
}

// Get returns a template by id.
func (s *CatalogService) Get(id string) (model.ExamTemplate, error) {
	t, ok := s.byID[id]
	if !ok {
		return model.ExamTemplate{}, ErrTemplateNotFound
	}
	return t, nil
}

// List returns the catalog as seen by a user, with premium templates marked
// locked when the user lacks the entitlement.
func (s *CatalogService) List(ctx context.Context, userID int) ([]model.CatalogEntry, error) {
	entitled, err := s.gate.Entitled(ctx, userID)
	if err != nil {
		return nil, err
	}

	entries := make([]model.CatalogEntry, 0, len(s.templates))
	for _, t := range s.templates {
		entries = append(entries, model.CatalogEntry{
			ExamTemplate: t,
			Locked:       t.RequiresEntitlement && !entitled,
		})
	}
	return entries, nil
}
