package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"expensetracker/internal/api"
	"expensetracker/internal/api/apitest"
	"expensetracker/internal/core"
)

func newClient(t *testing.T) (*api.Client, *apitest.Server) {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	return api.NewClient(srv.URL, api.NewSession()), srv
}

func login(t *testing.T, c *api.Client) {
	t.Helper()
	if _, err := c.Login(context.Background(), core.Credentials{Username: "alejandro", Password: "secret"}); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func TestLoginSendsBearerTokenOnLaterRequests(t *testing.T) {
	c, srv := newClient(t)
	srv.SetToken("abc")

	tok, err := c.Login(context.Background(), core.Credentials{Username: "alejandro", Password: "secret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if tok.Token != "abc" || c.Session().Token() != "abc" {
		t.Fatalf("token not stored: got %q, session %q", tok.Token, c.Session().Token())
	}

	if _, err := c.GetSpaces(context.Background()); err != nil {
		t.Fatalf("get spaces: %v", err)
	}

	req, ok := srv.LastRequest(apitest.RouteGetSpaces)
	if !ok {
		t.Fatalf("get spaces request not recorded")
	}
	if req.Authorization != "Bearer abc" {
		t.Errorf("Authorization = %q, want %q", req.Authorization, "Bearer abc")
	}
}

func TestLoginFailureKeepsSessionEmpty(t *testing.T) {
	c, srv := newClient(t)
	srv.AddUser("alejandro", "secret")

	_, err := c.Login(context.Background(), core.Credentials{Username: "alejandro", Password: "wrong"})
	if err == nil {
		t.Fatalf("expected login error")
	}
	if !api.IsUnauthorized(err) {
		t.Errorf("expected 401, got %v", err)
	}
	if api.AlertMessage(err) != "Wrong credentials" {
		t.Errorf("alert = %q", api.AlertMessage(err))
	}
	if c.Session().Authenticated() {
		t.Errorf("session should stay empty after failed login")
	}
}

func TestRequestsWithoutLoginAreRejected(t *testing.T) {
	c, srv := newClient(t)

	_, err := c.GetSpaces(context.Background())

	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *api.Error, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Payload.Msg != "Unauthorized" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
	req, _ := srv.LastRequest(apitest.RouteGetSpaces)
	if req.Authorization != "" {
		t.Errorf("no Authorization header expected before login, got %q", req.Authorization)
	}
}

func TestSpaceLifecycle(t *testing.T) {
	c, _ := newClient(t)
	login(t, c)
	ctx := context.Background()

	sp, err := c.CreateSpace(ctx, core.SpaceDraft{Name: "Trip", Description: "Paris"})
	if err != nil {
		t.Fatalf("create space: %v", err)
	}
	if sp.ID == "" || sp.Name != "Trip" || sp.Admin != "alejandro" {
		t.Fatalf("unexpected space: %+v", sp)
	}

	sp.Name = "Trip 2026"
	if _, err := c.PatchSpace(ctx, sp); err != nil {
		t.Fatalf("patch space: %v", err)
	}
	got, err := c.GetSpaceByID(ctx, sp.ID)
	if err != nil {
		t.Fatalf("get space: %v", err)
	}
	if got.Name != "Trip 2026" || got.Description != "Paris" {
		t.Errorf("patch not applied: %+v", got)
	}

	if _, err := c.AddCollaborator(ctx, sp.ID, "lisa"); err != nil {
		t.Fatalf("add collaborator: %v", err)
	}
	if _, err := c.RemoveCollaborator(ctx, sp.ID, "lisa"); err != nil {
		t.Fatalf("remove collaborator: %v", err)
	}
	if got, err := c.GetSpaceByID(ctx, sp.ID); err != nil || got.HasCollaborator("lisa") {
		t.Errorf("collaborator not removed: %+v, %v", got, err)
	}

	if _, err := c.DeleteSpace(ctx, sp.ID); err != nil {
		t.Fatalf("delete space: %v", err)
	}
	if _, err := c.GetSpaceByID(ctx, sp.ID); api.StatusCode(err) != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %v", err)
	}
}

func TestExpenseAndCategoryCalls(t *testing.T) {
	c, srv := newClient(t)
	login(t, c)
	ctx := context.Background()
	srv.Seed(core.Space{ID: "s1", Name: "Trip", Admin: "alejandro"}, nil, nil)

	cat, err := c.CreateCategory(ctx, "s1", core.CategoryDraft{Title: "Food"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	e, err := c.CreateExpense(ctx, "s1", core.ExpenseDraft{Description: "Dinner", Cost: 42.5})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}

	patch := core.ExpensePatch{Description: "Dinner out", Cost: 40, Category: &cat.ID}
	if _, err := c.PatchExpense(ctx, "s1", e.ID, patch); err != nil {
		t.Fatalf("patch expense: %v", err)
	}
	req, _ := srv.LastRequest(apitest.RoutePatchExpense)
	if !strings.Contains(req.Body, `"expense_category":"`+cat.ID.String()+`"`) {
		t.Errorf("patch body missing category: %s", req.Body)
	}

	list, err := c.GetExpenses(ctx, "s1")
	if err != nil {
		t.Fatalf("get expenses: %v", err)
	}
	if len(list) != 1 || list[0].Description != "Dinner out" || list[0].CategoryID() != cat.ID {
		t.Fatalf("unexpected expenses: %+v", list)
	}

	if _, err := c.DeleteExpense(ctx, "s1", e.ID); err != nil {
		t.Fatalf("delete expense: %v", err)
	}
	if _, err := c.DeleteCategory(ctx, "s1", cat.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	cats, err := c.GetCategories(ctx, "s1")
	if err != nil {
		t.Fatalf("get categories: %v", err)
	}
	if len(cats) != 0 {
		t.Errorf("expected no categories, got %+v", cats)
	}
}

func TestJoinQuitAndLogout(t *testing.T) {
	c, srv := newClient(t)
	login(t, c)
	ctx := context.Background()
	srv.Seed(core.Space{ID: "s9", Name: "Flat", Admin: "lisa"}, nil, nil)

	col, err := c.JoinSpace(ctx, "s9")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if col.Username != "alejandro" || col.SpaceID != "s9" {
		t.Errorf("unexpected collaborator: %+v", col)
	}
	if _, err := c.QuitSpace(ctx, "s9"); err != nil {
		t.Fatalf("quit: %v", err)
	}

	if _, err := c.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if c.Session().Authenticated() {
		t.Errorf("logout should clear the session")
	}
}

func TestPathParametersAreEscaped(t *testing.T) {
	c, srv := newClient(t)
	login(t, c)

	_, err := c.GetExpenses(context.Background(), "a/b c")
	if err != nil {
		t.Fatalf("get expenses: %v", err)
	}
	req, _ := srv.LastRequest(apitest.RouteGetExpenses)
	if req.Path != "/space/a%2Fb%20c/expense" {
		t.Errorf("path = %q", req.Path)
	}

	if _, err := c.GetSpaceByID(context.Background(), ""); !errors.Is(err, api.ErrMissingParam) {
		t.Errorf("expected ErrMissingParam, got %v", err)
	}
}

func TestTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := api.NewClient(url, nil, api.WithTimeout(time.Second))
	_, err := c.GetSpaces(context.Background())
	if !errors.Is(err, api.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if api.AlertMessage(err) != api.UnknownAlert {
		t.Errorf("alert = %q, want %q", api.AlertMessage(err), api.UnknownAlert)
	}
}

func TestDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	c := api.NewClient(srv.URL, nil)
	if _, err := c.GetSpaces(context.Background()); !errors.Is(err, api.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestRequestIDHeader(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(api.RequestIDHeader)
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	c := api.NewClient(srv.URL, nil)
	if _, err := c.GetSpaces(context.Background()); err != nil {
		t.Fatalf("get spaces: %v", err)
	}
	if len(got) != 36 {
		t.Errorf("expected a uuid request id, got %q", got)
	}
}

func TestMetricsRecordOutcomes(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()

	reg := prometheus.NewRegistry()
	c := api.NewClient(srv.URL, nil, api.WithMetrics(api.NewMetrics(reg)))
	ctx := context.Background()

	_, _ = c.GetSpaces(ctx) // 401
	login(t, c)
	_, _ = c.GetSpaces(ctx)

	n, err := testutil.GatherAndCount(reg, "expenses_api_requests_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	// get_spaces/http_error, login/success, get_spaces/success
	if n != 3 {
		t.Errorf("expected 3 series, got %d", n)
	}
}
