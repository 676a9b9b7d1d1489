package main

import (
	"bytes"
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"expensetracker/internal/api/apitest"
	"expensetracker/internal/config"
	"expensetracker/internal/core"
)

func newServer(t *testing.T) *apitest.Server {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)

	cat := core.ID("c1")
	srv.Seed(
		core.Space{ID: "s1", Name: "Trip", Admin: "alejandro", Collaborators: []string{"alejandro", "lisa"}},
		[]core.Expense{
			{ID: "e1", Cost: 20, Description: "Fuel", PaidBy: "alejandro", Category: &cat},
			{ID: "e2", Cost: 5, Description: "Snacks", PaidBy: "lisa"},
		},
		[]core.Category{{ID: "c1", Title: "Transport"}},
	)
	return srv
}

func testConfig(t *testing.T, url string) *config.Config {
	t.Helper()
	return &config.Config{
		APIURL:         url,
		Username:       "alejandro",
		Password:       "secret",
		RequestTimeout: 5 * time.Second,
		DataBackend:    config.BackendRemote,
		SQLiteDBPath:   filepath.Join(t.TempDir(), "snapshot.db"),
	}
}

func runCmd(t *testing.T, cfg *config.Config, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), cfg, args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestUsage(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")

	code, _, stderr := runCmd(t, cfg)
	if code != 2 || !strings.Contains(stderr, "Commands:") || !strings.Contains(stderr, "expense-categorize") {
		t.Errorf("no args: code=%d stderr=%s", code, stderr)
	}

	code, _, stderr = runCmd(t, cfg, "frobnicate")
	if code != 2 || !strings.Contains(stderr, `unknown command "frobnicate"`) {
		t.Errorf("unknown command: code=%d stderr=%s", code, stderr)
	}

	code, _, _ = runCmd(t, cfg, "help")
	if code != 0 {
		t.Errorf("help: code=%d", code)
	}
}

func TestMissingFlagIsUsageError(t *testing.T) {
	srv := newServer(t)
	code, _, stderr := runCmd(t, testConfig(t, srv.URL), "expenses")
	if code != 2 || !strings.Contains(stderr, "missing -space") {
		t.Errorf("code=%d stderr=%s", code, stderr)
	}
}

func TestSpacesAndLogin(t *testing.T) {
	srv := newServer(t)
	cfg := testConfig(t, srv.URL)

	code, out, stderr := runCmd(t, cfg, "login")
	if code != 0 || !strings.Contains(out, "Logged in as alejandro") {
		t.Fatalf("login: code=%d out=%s stderr=%s", code, out, stderr)
	}

	code, out, _ = runCmd(t, cfg, "spaces")
	if code != 0 || !strings.Contains(out, "Trip") || !strings.Contains(out, "MEMBERS") {
		t.Errorf("spaces: code=%d out=%s", code, out)
	}
}

func TestWrongCredentials(t *testing.T) {
	srv := newServer(t)
	srv.AddUser("alejandro", "another")

	code, _, stderr := runCmd(t, testConfig(t, srv.URL), "spaces")
	if code != 1 || !strings.Contains(stderr, "Wrong credentials (HTTP 401)") {
		t.Errorf("code=%d stderr=%s", code, stderr)
	}
}

func TestMissingCredentials(t *testing.T) {
	srv := newServer(t)
	cfg := testConfig(t, srv.URL)
	cfg.Password = ""

	code, _, stderr := runCmd(t, cfg, "spaces")
	if code != 1 || !strings.Contains(stderr, "EXPENSES_PASSWORD") {
		t.Errorf("code=%d stderr=%s", code, stderr)
	}
}

func TestSpaceLifecycle(t *testing.T) {
	srv := newServer(t)
	cfg := testConfig(t, srv.URL)

	code, out, stderr := runCmd(t, cfg, "space-create", "-name", "Flat", "-description", "Rent and bills")
	if code != 0 || !strings.Contains(out, "Space Flat created") {
		t.Fatalf("space-create: code=%d out=%s stderr=%s", code, out, stderr)
	}
	var created core.Space
	for _, sp := range srv.Spaces() {
		if sp.Name == "Flat" {
			created = sp
		}
	}
	if created.ID == "" {
		t.Fatalf("space not created on the server: %+v", srv.Spaces())
	}

	code, _, stderr = runCmd(t, cfg, "space-edit", "-space", created.ID.String(), "-name", "Home")
	if code != 0 {
		t.Fatalf("space-edit: code=%d stderr=%s", code, stderr)
	}
	for _, sp := range srv.Spaces() {
		if sp.ID == created.ID && (sp.Name != "Home" || sp.Description != "Rent and bills") {
			t.Errorf("space after edit = %+v", sp)
		}
	}

	code, out, _ = runCmd(t, cfg, "space-delete", "-space", created.ID.String())
	if code != 0 || !strings.Contains(out, "deleted") {
		t.Errorf("space-delete: code=%d out=%s", code, out)
	}
	if got := len(srv.Spaces()); got != 1 {
		t.Errorf("spaces left on server = %d, want 1", got)
	}
}

func TestSpaceCreateValidation(t *testing.T) {
	srv := newServer(t)
	code, _, stderr := runCmd(t, testConfig(t, srv.URL), "space-create", "-name", "   ")
	if code != 1 || !strings.Contains(stderr, "invalid input") {
		t.Errorf("code=%d stderr=%s", code, stderr)
	}
	if _, called := srv.LastRequest(apitest.RouteCreateSpace); called {
		t.Error("invalid draft must not reach the API")
	}
}

func TestExpenseCommands(t *testing.T) {
	srv := newServer(t)
	cfg := testConfig(t, srv.URL)

	code, out, stderr := runCmd(t, cfg, "expense-add", "-space", "s1", "-description", "Tolls", "-cost", "7.5")
	if code != 0 || !strings.Contains(out, "Tolls 7.50") {
		t.Fatalf("expense-add: code=%d out=%s stderr=%s", code, out, stderr)
	}

	code, _, stderr = runCmd(t, cfg, "expense-add", "-space", "s1", "-description", "Tolls", "-cost", "abc")
	if code != 1 {
		t.Errorf("expense-add with bad cost: code=%d stderr=%s", code, stderr)
	}

	code, out, _ = runCmd(t, cfg, "expenses", "-space", "s1")
	if code != 0 || !strings.Contains(out, "Fuel") || !strings.Contains(out, "Tolls") || !strings.Contains(out, "Transport") {
		t.Errorf("expenses: code=%d out=%s", code, out)
	}

	code, _, stderr = runCmd(t, cfg, "expense-edit", "-space", "s1", "-expense", "e1", "-cost", "22")
	if code != 0 {
		t.Fatalf("expense-edit: code=%d stderr=%s", code, stderr)
	}
	e1 := srv.Expenses("s1")[0]
	if e1.Cost != 22 || e1.Description != "Fuel" || e1.CategoryID() != "c1" {
		t.Errorf("expense after edit = %+v", e1)
	}

	code, out, _ = runCmd(t, cfg, "expense-categorize", "-space", "s1", "-expense", "e2", "-category", "c1")
	if code != 0 || !strings.Contains(out, "filed under c1") {
		t.Errorf("expense-categorize: code=%d out=%s", code, out)
	}
	if got := srv.Expenses("s1")[1].CategoryID(); got != "c1" {
		t.Errorf("category on server = %q", got)
	}

	code, out, _ = runCmd(t, cfg, "expense-categorize", "-space", "s1", "-expense", "e2")
	if code != 0 || !strings.Contains(out, "uncategorized") {
		t.Errorf("expense-categorize clear: code=%d out=%s", code, out)
	}

	code, _, stderr = runCmd(t, cfg, "expense-edit", "-space", "s1", "-expense", "nope")
	if code != 1 || !strings.Contains(stderr, "expense nope not found") {
		t.Errorf("expense-edit unknown: code=%d stderr=%s", code, stderr)
	}

	code, _, _ = runCmd(t, cfg, "expense-delete", "-space", "s1", "-expense", "e2")
	if code != 0 || len(srv.Expenses("s1")) != 2 {
		t.Errorf("expense-delete: code=%d expenses=%+v", code, srv.Expenses("s1"))
	}
}

func TestCategoryAndCollaboratorCommands(t *testing.T) {
	srv := newServer(t)
	cfg := testConfig(t, srv.URL)

	code, out, _ := runCmd(t, cfg, "category-add", "-space", "s1", "-title", "Food")
	if code != 0 || !strings.Contains(out, "Category Food created") {
		t.Fatalf("category-add: code=%d out=%s", code, out)
	}
	code, out, _ = runCmd(t, cfg, "categories", "-space", "s1")
	if code != 0 || !strings.Contains(out, "Food") || !strings.Contains(out, "Transport") {
		t.Errorf("categories: code=%d out=%s", code, out)
	}
	code, _, _ = runCmd(t, cfg, "category-delete", "-space", "s1", "-category", "c1")
	if code != 0 {
		t.Errorf("category-delete: code=%d", code)
	}

	code, _, _ = runCmd(t, cfg, "collaborator-add", "-space", "s1", "-username", "marco")
	if code != 0 {
		t.Fatalf("collaborator-add: code=%d", code)
	}
	code, out, _ = runCmd(t, cfg, "collaborators", "-space", "s1")
	if code != 0 || !strings.Contains(out, "alejandro (admin)") || !strings.Contains(out, "marco") {
		t.Errorf("collaborators: code=%d out=%s", code, out)
	}
	code, _, _ = runCmd(t, cfg, "collaborator-remove", "-space", "s1", "-username", "lisa")
	if code != 0 {
		t.Fatalf("collaborator-remove: code=%d", code)
	}
	for _, sp := range srv.Spaces() {
		for _, c := range sp.Collaborators {
			if c == "lisa" {
				t.Errorf("lisa still a collaborator: %+v", sp)
			}
		}
	}
}

func TestJoinAndQuit(t *testing.T) {
	srv := newServer(t)
	srv.Seed(core.Space{ID: "s9", Name: "Party", Admin: "marco"}, nil, nil)
	cfg := testConfig(t, srv.URL)

	code, out, _ := runCmd(t, cfg, "join", "-space", "s9")
	if code != 0 || !strings.Contains(out, "Joined Party") {
		t.Errorf("join: code=%d out=%s", code, out)
	}
	code, out, _ = runCmd(t, cfg, "quit", "-space", "s9")
	if code != 0 || !strings.Contains(out, "Left space s9") {
		t.Errorf("quit: code=%d out=%s", code, out)
	}
}

func TestTotalsAndExport(t *testing.T) {
	srv := newServer(t)
	cfg := testConfig(t, srv.URL)

	code, out, _ := runCmd(t, cfg, "totals", "-space", "s1")
	if code != 0 || !strings.Contains(out, "Total: 25.00 over 2 expenses") {
		t.Fatalf("totals: code=%d out=%s", code, out)
	}
	if !strings.Contains(out, "lisa") || !strings.Contains(out, core.UncategorizedTitle) {
		t.Errorf("totals breakdown missing: %s", out)
	}

	code, out, _ = runCmd(t, cfg, "export", "-space", "s1")
	if code != 0 {
		t.Fatalf("export: code=%d", code)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "Space\tDate") || !strings.Contains(lines[1], "Transport") {
		t.Errorf("export preview = %q", out)
	}
}

func TestSignup(t *testing.T) {
	srv := newServer(t)
	cfg := testConfig(t, srv.URL)
	cfg.Username, cfg.Password = "", ""

	args := []string{"signup", "-username", "lisa.rossi", "-first-name", "Lisa", "-last-name", "Rossi",
		"-email", "lisa@example.com", "-password", "pw", "-confirm", "other"}
	code, _, stderr := runCmd(t, cfg, args...)
	if code != 1 || !strings.Contains(stderr, "passwords do not match") {
		t.Errorf("mismatch: code=%d stderr=%s", code, stderr)
	}

	args[len(args)-1] = "pw"
	code, out, stderr := runCmd(t, cfg, args...)
	if code != 0 || !strings.Contains(out, "Account lisa.rossi created") {
		t.Errorf("signup: code=%d out=%s stderr=%s", code, out, stderr)
	}
}

func TestServerErrorShowsAlert(t *testing.T) {
	srv := newServer(t)
	srv.Fail(apitest.RouteGetSpaces, http.StatusInternalServerError, "boom")

	code, _, stderr := runCmd(t, testConfig(t, srv.URL), "spaces")
	if code != 1 || !strings.Contains(stderr, "boom (HTTP 500)") {
		t.Errorf("code=%d stderr=%s", code, stderr)
	}
}

func TestOfflineBackendServesSnapshot(t *testing.T) {
	srv := newServer(t)
	cfg := testConfig(t, srv.URL)

	if code, _, stderr := runCmd(t, cfg, "spaces"); code != 0 {
		t.Fatalf("spaces: stderr=%s", stderr)
	}
	if code, _, stderr := runCmd(t, cfg, "expenses", "-space", "s1"); code != 0 {
		t.Fatalf("expenses: stderr=%s", stderr)
	}
	srv.Close()

	offline := *cfg
	offline.DataBackend = config.BackendOffline

	code, out, stderr := runCmd(t, &offline, "expenses", "-space", "s1")
	if code != 0 || !strings.Contains(out, "Fuel") {
		t.Errorf("offline expenses: code=%d out=%s stderr=%s", code, out, stderr)
	}
	code, out, _ = runCmd(t, &offline, "totals", "-space", "s1")
	if code != 0 || !strings.Contains(out, "Total: 25.00") {
		t.Errorf("offline totals: code=%d out=%s", code, out)
	}

	code, _, stderr = runCmd(t, &offline, "expense-add", "-space", "s1", "-description", "x", "-cost", "1")
	if code != 1 || !strings.Contains(stderr, "read-only") {
		t.Errorf("offline mutation: code=%d stderr=%s", code, stderr)
	}
}
