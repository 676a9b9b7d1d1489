package worker

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/api"
	"expensetracker/internal/api/apitest"
	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

func newTestWorker(t *testing.T) (*SnapshotWorker, *apitest.Server, *storage.SQLiteRepository) {
	t.Helper()

	srv := apitest.NewServer()
	t.Cleanup(srv.Close)

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "snapshot.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	client := api.NewClient(srv.URL, nil)
	w := NewSnapshotWorker(client, repo, core.Credentials{Username: "worker01", Password: "secret"}, 2)
	if err := w.Login(context.Background()); err != nil {
		t.Fatalf("Login: %v", err)
	}
	return w, srv, repo
}

func seedTrip(srv *apitest.Server) {
	cat := core.ID("c1")
	srv.Seed(
		core.Space{ID: "s1", Name: "Trip", Admin: "alejandro", Collaborators: []string{"alejandro"}},
		[]core.Expense{
			{ID: "e1", Cost: 20, Description: "Fuel", PaidBy: "alejandro", Category: &cat},
			{ID: "e2", Cost: 5, Description: "Snacks", PaidBy: "lisa"},
		},
		[]core.Category{{ID: "c1", Title: "Transport"}},
	)
}

func TestHandleChangeRefreshesSpace(t *testing.T) {
	w, srv, repo := newTestWorker(t)
	seedTrip(srv)
	ctx := context.Background()

	msg := amqp.NewChangeMessage(amqp.ActionCreated, amqp.EntityExpense, "s1", "e2", "lisa")
	if err := w.HandleChange(ctx, msg); err != nil {
		t.Fatalf("HandleChange() error = %v", err)
	}

	sp, err := repo.GetSpace(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSpace() error = %v", err)
	}
	if sp.Name != "Trip" {
		t.Errorf("space name = %q", sp.Name)
	}
	expenses, _ := repo.ListExpenses(ctx, "s1")
	if len(expenses) != 2 || expenses[0].CategoryID() != "c1" {
		t.Errorf("expenses = %+v", expenses)
	}
	categories, _ := repo.ListCategories(ctx, "s1")
	if len(categories) != 1 || categories[0].Title != "Transport" {
		t.Errorf("categories = %+v", categories)
	}
}

func TestHandleChangeRemovesDeletedSpace(t *testing.T) {
	w, srv, repo := newTestWorker(t)
	seedTrip(srv)
	ctx := context.Background()

	if err := w.HandleChange(ctx, amqp.NewChangeMessage(amqp.ActionUpdated, amqp.EntitySpace, "s1", "s1", "")); err != nil {
		t.Fatalf("HandleChange() error = %v", err)
	}

	msg := amqp.NewChangeMessage(amqp.ActionDeleted, amqp.EntitySpace, "s1", "s1", "alejandro")
	if err := w.HandleChange(ctx, msg); err != nil {
		t.Fatalf("HandleChange() error = %v", err)
	}

	if _, err := repo.GetSpace(ctx, "s1"); err == nil {
		t.Error("expected space to be removed from the snapshot")
	}
	if expenses, _ := repo.ListExpenses(ctx, "s1"); len(expenses) != 0 {
		t.Errorf("expenses left behind: %+v", expenses)
	}
}

func TestHandleChangeDropsSpaceTheAPINoLongerShows(t *testing.T) {
	w, _, repo := newTestWorker(t)
	ctx := context.Background()

	if err := repo.SaveSpace(ctx, core.Space{ID: "gone", Name: "Old"}); err != nil {
		t.Fatal(err)
	}

	msg := amqp.NewChangeMessage(amqp.ActionCreated, amqp.EntityExpense, "gone", "e1", "")
	if err := w.HandleChange(ctx, msg); err != nil {
		t.Fatalf("HandleChange() error = %v", err)
	}
	if _, err := repo.GetSpace(ctx, "gone"); err == nil {
		t.Error("expected unknown space to be removed")
	}
}

func TestHandleChangeRequeuesOnServerError(t *testing.T) {
	w, srv, _ := newTestWorker(t)
	seedTrip(srv)
	srv.Fail(apitest.RouteGetExpenses, http.StatusInternalServerError, "boom")

	msg := amqp.NewChangeMessage(amqp.ActionUpdated, amqp.EntityExpense, "s1", "e1", "")
	if err := w.HandleChange(context.Background(), msg); err == nil {
		t.Fatal("expected an error so the message is requeued")
	}
}

func TestHandleChangeLogsInAgainOnUnauthorized(t *testing.T) {
	w, srv, repo := newTestWorker(t)
	seedTrip(srv)
	srv.SetToken("rotated-token")

	msg := amqp.NewChangeMessage(amqp.ActionUpdated, amqp.EntityCategory, "s1", "c1", "")
	if err := w.HandleChange(context.Background(), msg); err != nil {
		t.Fatalf("HandleChange() error = %v", err)
	}

	logins := 0
	for _, r := range srv.Requests() {
		if r.Route == apitest.RouteLogin {
			logins++
		}
	}
	if logins != 2 {
		t.Errorf("expected a second login, got %d", logins)
	}
	if _, err := repo.GetSpace(context.Background(), "s1"); err != nil {
		t.Errorf("space not saved after re-login: %v", err)
	}
}

func TestRefreshAll(t *testing.T) {
	w, srv, repo := newTestWorker(t)
	seedTrip(srv)
	srv.Seed(core.Space{ID: "s2", Name: "Flat"}, []core.Expense{{ID: "e9", Cost: 700, Description: "Rent"}}, nil)
	ctx := context.Background()

	if err := repo.SaveSpace(ctx, core.Space{ID: "stale", Name: "Stale"}); err != nil {
		t.Fatal(err)
	}

	if err := w.RefreshAll(ctx); err != nil {
		t.Fatalf("RefreshAll() error = %v", err)
	}

	spaces, err := repo.ListSpaces(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(spaces) != 2 || spaces[0].ID != "s1" || spaces[1].ID != "s2" {
		t.Errorf("spaces = %+v", spaces)
	}
	if expenses, _ := repo.ListExpenses(ctx, "s2"); len(expenses) != 1 {
		t.Errorf("expenses of s2 = %+v", expenses)
	}
}

func TestRefreshAllContinuesPastFailures(t *testing.T) {
	w, srv, repo := newTestWorker(t)
	seedTrip(srv)
	srv.Fail(apitest.RouteGetCategories, http.StatusInternalServerError, "boom")

	if err := w.RefreshAll(context.Background()); err != nil {
		t.Fatalf("RefreshAll() error = %v", err)
	}
	if spaces, _ := repo.ListSpaces(context.Background()); len(spaces) != 1 {
		t.Errorf("space list should still be saved, got %+v", spaces)
	}
}

func TestRunStopsWithContext(t *testing.T) {
	w, _, _ := newTestWorker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := w.Run(ctx, time.Hour); err != context.DeadlineExceeded {
		t.Errorf("Run() = %v, want DeadlineExceeded", err)
	}
}
