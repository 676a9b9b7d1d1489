// Package apitest runs an in-memory expenses API for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"expensetracker/internal/core"
)

// Route names accepted by Fail and Hook.
const (
	RouteLogin              = "login"
	RouteLogout             = "logout"
	RouteCreateUser         = "create_user"
	RouteGetSpaces          = "get_spaces"
	RouteGetSpace           = "get_space"
	RouteCreateSpace        = "create_space"
	RoutePatchSpace         = "patch_space"
	RouteDeleteSpace        = "delete_space"
	RouteGetExpenses        = "get_expenses"
	RouteCreateExpense      = "create_expense"
	RoutePatchExpense       = "patch_expense"
	RouteDeleteExpense      = "delete_expense"
	RouteGetCategories      = "get_categories"
	RouteCreateCategory     = "create_category"
	RouteDeleteCategory     = "delete_category"
	RouteAddCollaborator    = "add_collaborator"
	RouteRemoveCollaborator = "remove_collaborator"
	RouteJoinSpace          = "join_space"
	RouteQuitSpace          = "quit_space"
)

// DefaultToken is handed out by login unless SetToken is called.
const DefaultToken = "test-token"

// Request is what the server saw of one call.
type Request struct {
	Route         string
	Method        string
	Path          string
	Authorization string
	Body          string
}

type failure struct {
	status int
	msg    string
}

// Server is a fake of the expenses API backed by maps.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	token      string
	user       string
	passwords  map[string]string
	spaces     []core.Space
	expenses   map[core.ID][]core.Expense
	categories map[core.ID][]core.Category
	failures   map[string]failure
	hooks      map[string]func(*http.Request)
	requests   []Request
	nextID     int
}

// NewServer starts a fake API. Close it when the test ends.
func NewServer() *Server {
	s := &Server{
		token:      DefaultToken,
		passwords:  map[string]string{},
		expenses:   map[core.ID][]core.Expense{},
		categories: map[core.ID][]core.Category{},
		failures:   map[string]failure{},
		hooks:      map[string]func(*http.Request){},
	}

	r := mux.NewRouter().UseEncodedPath()
	s.route(r, RouteLogin, http.MethodPost, "/auth/login", false, s.login)
	s.route(r, RouteLogout, http.MethodPost, "/logout", true, s.logout)
	s.route(r, RouteCreateUser, http.MethodPost, "/user", false, s.createUser)
	s.route(r, RouteGetSpaces, http.MethodGet, "/space", true, s.getSpaces)
	s.route(r, RouteCreateSpace, http.MethodPost, "/space", true, s.createSpace)
	s.route(r, RouteGetSpace, http.MethodGet, "/space/{space_id}", true, s.getSpace)
	s.route(r, RoutePatchSpace, http.MethodPatch, "/space/{space_id}", true, s.patchSpace)
	s.route(r, RouteDeleteSpace, http.MethodDelete, "/space/{space_id}", true, s.deleteSpace)
	s.route(r, RouteGetExpenses, http.MethodGet, "/space/{space_id}/expense", true, s.getExpenses)
	s.route(r, RouteCreateExpense, http.MethodPost, "/space/{space_id}/expense", true, s.createExpense)
	s.route(r, RoutePatchExpense, http.MethodPatch, "/space/{space_id}/expense/{expense_id}", true, s.patchExpense)
	s.route(r, RouteDeleteExpense, http.MethodDelete, "/space/{space_id}/expense/{expense_id}", true, s.deleteExpense)
	s.route(r, RouteGetCategories, http.MethodGet, "/space/{space_id}/category", true, s.getCategories)
	s.route(r, RouteCreateCategory, http.MethodPost, "/space/{space_id}/category", true, s.createCategory)
	s.route(r, RouteDeleteCategory, http.MethodDelete, "/space/{space_id}/category/{category_id}", true, s.deleteCategory)
	s.route(r, RouteAddCollaborator, http.MethodPost, "/space/{space_id}/user", true, s.addCollaborator)
	s.route(r, RouteRemoveCollaborator, http.MethodDelete, "/space/{space_id}/user/{username}", true, s.removeCollaborator)
	s.route(r, RouteJoinSpace, http.MethodPost, "/space/{space_id}/join", true, s.joinSpace)
	s.route(r, RouteQuitSpace, http.MethodPost, "/space/{space_id}/quit", true, s.quitSpace)

	s.Server = httptest.NewServer(r)
	return s
}

func (s *Server) route(r *mux.Router, name, method, path string, auth bool, h http.HandlerFunc) {
	r.HandleFunc(path, func(w http.ResponseWriter, req *http.Request) {
		body := readBody(req)

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Route:         name,
			Method:        req.Method,
			Path:          req.URL.EscapedPath(),
			Authorization: req.Header.Get("Authorization"),
			Body:          body,
		})
		hook := s.hooks[name]
		f, failing := s.failures[name]
		token := s.token
		s.mu.Unlock()

		if hook != nil {
			hook(req)
		}
		if failing {
			writeJSON(w, f.status, core.Message{Msg: f.msg})
			return
		}
		if auth && req.Header.Get("Authorization") != "Bearer "+token {
			writeJSON(w, http.StatusUnauthorized, core.Message{Msg: "Unauthorized"})
			return
		}

		req.Body = io.NopCloser(strings.NewReader(body))
		h(w, req)
	}).Methods(method).Name(name)
}

// SetToken changes the token handed out by login.
func (s *Server) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// AddUser registers credentials accepted by login. With no users registered
// any credentials are accepted.
func (s *Server) AddUser(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passwords[username] = password
}

// Fail makes route answer status with {"msg": msg} until Recover is called.
func (s *Server) Fail(route string, status int, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = failure{status: status, msg: msg}
}

func (s *Server) Recover(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, route)
}

// Hook runs fn before route is handled. fn may block to delay the response.
func (s *Server) Hook(route string, fn func(*http.Request)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[route] = fn
}

// Seed stores a space with its expenses and categories.
func (s *Server) Seed(space core.Space, expenses []core.Expense, categories []core.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spaces = append(s.spaces, space)
	s.expenses[space.ID] = append([]core.Expense(nil), expenses...)
	s.categories[space.ID] = append([]core.Category(nil), categories...)
}

// Requests returns the calls received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// LastRequest returns the most recent call to route.
func (s *Server) LastRequest(route string) (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.requests) - 1; i >= 0; i-- {
		if s.requests[i].Route == route {
			return s.requests[i], true
		}
	}
	return Request{}, false
}

// Expenses returns the stored expenses of a space.
func (s *Server) Expenses(spaceID core.ID) []core.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense(nil), s.expenses[spaceID]...)
}

// Spaces returns the stored spaces.
func (s *Server) Spaces() []core.Space {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Space(nil), s.spaces...)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds core.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, core.Message{Msg: "Invalid body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.passwords) > 0 && s.passwords[creds.Username] != creds.Password {
		writeJSON(w, http.StatusUnauthorized, core.Message{Msg: "Wrong credentials"})
		return
	}
	s.user = creds.Username
	writeJSON(w, http.StatusOK, core.Token{Token: s.token})
}

func (s *Server) logout(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, core.Message{Msg: "Logged out"})
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var u core.User
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeJSON(w, http.StatusBadRequest, core.Message{Msg: "Invalid body"})
		return
	}
	s.mu.Lock()
	s.passwords[u.Username] = u.Password
	s.mu.Unlock()
	u.Password = ""
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) getSpaces(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Spaces())
}

func (s *Server) getSpace(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "space_id")
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.spaceIndex(id)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, core.Message{Msg: "Space not found"})
		return
	}
	writeJSON(w, http.StatusOK, s.spaces[i])
}

func (s *Server) createSpace(w http.ResponseWriter, r *http.Request) {
	var d core.SpaceDraft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeJSON(w, http.StatusBadRequest, core.Message{Msg: "Invalid body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sp := core.Space{
		ID:            s.newID("s"),
		Name:          d.Name,
		Description:   d.Description,
		Admin:         s.user,
		Collaborators: []string{},
	}
	s.spaces = append(s.spaces, sp)
	writeJSON(w, http.StatusCreated, sp)
}

func (s *Server) patchSpace(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "space_id")
	var d core.SpaceDraft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeJSON(w, http.StatusBadRequest, core.Message{Msg: "Invalid body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.spaceIndex(id)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, core.Message{Msg: "Space not found"})
		return
	}
	s.spaces[i].Name = d.Name
	s.spaces[i].Description = d.Description
	writeJSON(w, http.StatusOK, s.spaces[i])
}

func (s *Server) deleteSpace(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "space_id")
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.spaceIndex(id)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, core.Message{Msg: "Space not found"})
		return
	}
	s.spaces = append(s.spaces[:i], s.spaces[i+1:]...)
	delete(s.expenses, id)
	delete(s.categories, id)
	writeJSON(w, http.StatusOK, core.Message{Msg: "Space deleted"})
}

func (s *Server) getExpenses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Expenses(pathVar(r, "space_id")))
}

func (s *Server) createExpense(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "space_id")
	var d core.ExpenseDraft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeJSON(w, http.StatusBadRequest, core.Message{Msg: "Invalid body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := core.Expense{
		ID:          s.newID("e"),
		Cost:        d.Cost,
		Description: d.Description,
		Date:        "17/10/2026",
		Space:       id,
		PaidBy:      s.user,
	}
	s.expenses[id] = append(s.expenses[id], e)
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) patchExpense(w http.ResponseWriter, r *http.Request) {
	spaceID, expenseID := pathVar(r, "space_id"), pathVar(r, "expense_id")
	var p core.ExpensePatch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, core.Message{Msg: "Invalid body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.expenses[spaceID]
	for i := range list {
		if list[i].ID == expenseID {
			list[i].Description = p.Description
			list[i].Cost = p.Cost
			list[i].Category = p.Category
			writeJSON(w, http.StatusOK, map[string]string{"msg": "Expense updated"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, core.Message{Msg: "Expense not found"})
}

func (s *Server) deleteExpense(w http.ResponseWriter, r *http.Request) {
	spaceID, expenseID := pathVar(r, "space_id"), pathVar(r, "expense_id")
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.expenses[spaceID]
	for i := range list {
		if list[i].ID == expenseID {
			e := list[i]
			s.expenses[spaceID] = append(list[:i:i], list[i+1:]...)
			writeJSON(w, http.StatusOK, e)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, core.Message{Msg: "Expense not found"})
}

func (s *Server) getCategories(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "space_id")
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, append([]core.Category{}, s.categories[id]...))
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "space_id")
	var d core.CategoryDraft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeJSON(w, http.StatusBadRequest, core.Message{Msg: "Invalid body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := core.Category{ID: s.newID("c"), Title: d.Title, SpaceID: id}
	s.categories[id] = append(s.categories[id], c)
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	spaceID, categoryID := pathVar(r, "space_id"), pathVar(r, "category_id")
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.categories[spaceID]
	for i := range list {
		if list[i].ID == categoryID {
			c := list[i]
			s.categories[spaceID] = append(list[:i:i], list[i+1:]...)
			writeJSON(w, http.StatusOK, c)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, core.Message{Msg: "Category not found"})
}

func (s *Server) addCollaborator(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "space_id")
	var d core.CollaboratorDraft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeJSON(w, http.StatusBadRequest, core.Message{Msg: "Invalid body"})
		return
	}
	s.addMember(w, id, d.Username)
}

func (s *Server) removeCollaborator(w http.ResponseWriter, r *http.Request) {
	s.removeMember(w, pathVar(r, "space_id"), string(pathVar(r, "username")))
}

func (s *Server) joinSpace(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	user := s.user
	s.mu.Unlock()
	s.addMember(w, pathVar(r, "space_id"), user)
}

func (s *Server) quitSpace(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	user := s.user
	s.mu.Unlock()
	s.removeMember(w, pathVar(r, "space_id"), user)
}

func (s *Server) addMember(w http.ResponseWriter, id core.ID, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.spaceIndex(id)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, core.Message{Msg: "Space not found"})
		return
	}
	s.spaces[i].Collaborators = append(s.spaces[i].Collaborators, username)
	writeJSON(w, http.StatusOK, core.Collaborator{Username: username, SpaceID: id})
}

func (s *Server) removeMember(w http.ResponseWriter, id core.ID, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.spaceIndex(id)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, core.Message{Msg: "Space not found"})
		return
	}
	kept := []string{}
	for _, c := range s.spaces[i].Collaborators {
		if c != username {
			kept = append(kept, c)
		}
	}
	s.spaces[i].Collaborators = kept
	writeJSON(w, http.StatusOK, core.Collaborator{Username: username, SpaceID: id})
}

func (s *Server) spaceIndex(id core.ID) int {
	for i := range s.spaces {
		if s.spaces[i].ID == id {
			return i
		}
	}
	return -1
}

// newID returns the next unused id. Seeded records keep their ids.
func (s *Server) newID(prefix string) core.ID {
	for {
		s.nextID++
		id := core.ID(fmt.Sprintf("%s%d", prefix, s.nextID))
		if !s.idInUse(id) {
			return id
		}
	}
}

func (s *Server) idInUse(id core.ID) bool {
	if s.spaceIndex(id) >= 0 {
		return true
	}
	for _, list := range s.expenses {
		for _, e := range list {
			if e.ID == id {
				return true
			}
		}
	}
	for _, list := range s.categories {
		for _, c := range list {
			if c.ID == id {
				return true
			}
		}
	}
	return false
}

func pathVar(r *http.Request, name string) core.ID {
	v := mux.Vars(r)[name]
	if unescaped, err := url.PathUnescape(v); err == nil {
		v = unescaped
	}
	return core.ID(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readBody(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	data, _ := io.ReadAll(r.Body)
	return string(data)
}
