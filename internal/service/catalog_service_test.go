package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stemsi/qiyas-mock/internal/model"
)

type failingGate struct{ err error }

func (g failingGate) Entitled(context.Context, int) (bool, error) { return false, g.err }

func catalogTemplates() []model.ExamTemplate {
	return []model.ExamTemplate{
		{ID: "free", Name: "Free"},
		{ID: "paid", Name: "Paid", RequiresEntitlement: true},
	}
}

func TestCatalogListMarksLocked(t *testing.T) {
	tests := []struct {
		name       string
		entitled   bool
		wantLocked map[string]bool
	}{
		{"free account", false, map[string]bool{"free": false, "paid": true}},
		{"premium account", true, map[string]bool{"free": false, "paid": false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewCatalogService(catalogTemplates(), fakeGate{entitled: tt.entitled})
			entries, err := svc.List(context.Background(), 1)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(entries) != 2 || entries[0].ID != "free" || entries[1].ID != "paid" {
				t.Fatalf("entries out of catalog order: %+v", entries)
			}
			for _, e := range entries {
				if e.Locked != tt.wantLocked[e.ID] {
					t.Errorf("%s locked = %v, want %v", e.ID, e.Locked, tt.wantLocked[e.ID])
				}
			}
		})
	}
}

func TestCatalogListGateError(t *testing.T) {
	errDown := errors.New("redis down")
	svc := NewCatalogService(catalogTemplates(), failingGate{err: errDown})
	if _, err := svc.List(context.Background(), 1); !errors.Is(err, errDown) {
		t.Fatalf("got %v, want gate error", err)
	}
}

func TestCatalogGet(t *testing.T) {
	svc := NewCatalogService(catalogTemplates(), fakeGate{})
	if tpl, err := svc.Get("paid"); err != nil || tpl.Name != "Paid" {
		t.Fatalf("Get(paid) = %+v, %v", tpl, err)
	}
	if _, err := svc.Get("missing"); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("Get(missing): got %v, want ErrTemplateNotFound", err)
	}
}
