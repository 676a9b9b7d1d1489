package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"expensetracker/internal/core"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "snapshot", "expenses.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSaveAndListSpaces(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	spaces := []core.Space{
		{ID: "s2", Name: "Flat", Admin: "lisa", Collaborators: []string{"alejandro"}},
		{ID: "s1", Name: "Trip", Description: "Paris", Admin: "alejandro"},
	}
	if err := repo.SaveSpaces(ctx, spaces); err != nil {
		t.Fatalf("SaveSpaces() error = %v", err)
	}

	got, err := repo.ListSpaces(ctx)
	if err != nil {
		t.Fatalf("ListSpaces() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "s2" || got[1].ID != "s1" {
		t.Fatalf("ListSpaces() = %+v, want API order", got)
	}
	if len(got[0].Collaborators) != 1 || got[0].Collaborators[0] != "alejandro" {
		t.Errorf("collaborators = %v", got[0].Collaborators)
	}
	if got[1].Collaborators == nil || len(got[1].Collaborators) != 0 {
		t.Errorf("missing collaborators should load as an empty list, got %#v", got[1].Collaborators)
	}
}

func TestGetSpaceNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetSpace(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSpace() error = %v, want ErrNotFound", err)
	}
}

func TestSaveSpaceKeepsPosition(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	repo.SaveSpaces(ctx, []core.Space{{ID: "s1", Name: "Trip"}, {ID: "s2", Name: "Flat"}})
	if err := repo.SaveSpace(ctx, core.Space{ID: "s1", Name: "Trip 2026"}); err != nil {
		t.Fatalf("SaveSpace() error = %v", err)
	}
	if err := repo.SaveSpace(ctx, core.Space{ID: "s3", Name: "Gym"}); err != nil {
		t.Fatalf("SaveSpace() error = %v", err)
	}

	got, _ := repo.ListSpaces(ctx)
	if len(got) != 3 || got[0].Name != "Trip 2026" || got[2].ID != "s3" {
		t.Errorf("ListSpaces() = %+v", got)
	}
}

func TestSpaceContents(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	cat := core.ID("c1")

	repo.SaveSpaces(ctx, []core.Space{{ID: "s1", Name: "Trip"}})
	err := repo.SaveSpaceContents(ctx, "s1",
		[]core.Expense{
			{ID: "e1", Cost: 12.5, Description: "Lunch", Date: "17/10/2026", PaidBy: "alejandro", Category: &cat},
			{ID: "e2", Cost: 3, Description: "Coffee", PaidBy: "lisa"},
		},
		[]core.Category{{ID: "c1", Title: "Food"}},
	)
	if err != nil {
		t.Fatalf("SaveSpaceContents() error = %v", err)
	}

	expenses, err := repo.ListExpenses(ctx, "s1")
	if err != nil {
		t.Fatalf("ListExpenses() error = %v", err)
	}
	if len(expenses) != 2 {
		t.Fatalf("expected 2 expenses, got %d", len(expenses))
	}
	if expenses[0].CategoryID() != "c1" || expenses[0].Space != "s1" || expenses[0].Cost != 12.5 {
		t.Errorf("first expense = %+v", expenses[0])
	}
	if expenses[1].Category != nil {
		t.Errorf("uncategorized expense came back with %v", *expenses[1].Category)
	}

	categories, _ := repo.ListCategories(ctx, "s1")
	if len(categories) != 1 || categories[0].Title != "Food" || categories[0].SpaceID != "s1" {
		t.Errorf("ListCategories() = %+v", categories)
	}

	// a second save replaces, not merges
	repo.SaveSpaceContents(ctx, "s1", []core.Expense{{ID: "e3", Cost: 1, Description: "Gum"}}, nil)
	expenses, _ = repo.ListExpenses(ctx, "s1")
	if len(expenses) != 1 || expenses[0].ID != "e3" {
		t.Errorf("after replace = %+v", expenses)
	}
}

func TestDeleteAndPrune(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	repo.SaveSpaces(ctx, []core.Space{{ID: "s1"}, {ID: "s2"}})
	repo.SaveSpaceContents(ctx, "s1", []core.Expense{{ID: "e1", Cost: 1}}, nil)
	repo.SaveSpaceContents(ctx, "s2", []core.Expense{{ID: "e2", Cost: 2}}, nil)

	if err := repo.DeleteSpace(ctx, "s1"); err != nil {
		t.Fatalf("DeleteSpace() error = %v", err)
	}
	if got, _ := repo.ListExpenses(ctx, "s1"); len(got) != 0 {
		t.Errorf("expenses of a deleted space remain: %+v", got)
	}

	// s2 disappears from the list, so its contents go too
	repo.SaveSpaces(ctx, []core.Space{{ID: "s3"}})
	if got, _ := repo.ListExpenses(ctx, "s2"); len(got) != 0 {
		t.Errorf("expenses of an unlisted space remain: %+v", got)
	}
}

func TestReopenRunsMigrationsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expenses.db")
	first, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	first.SaveSpaces(context.Background(), []core.Space{{ID: "s1", Name: "Trip"}})
	first.Close()

	second, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer second.Close()

	got, _ := second.ListSpaces(context.Background())
	if len(got) != 1 {
		t.Errorf("snapshot lost across reopen: %+v", got)
	}
}
