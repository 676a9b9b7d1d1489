package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type (
	// ID is a server-assigned identifier. The API is not consistent about
	// sending ids as strings, so numbers are accepted too.
	ID string

	Space struct {
		ID            ID       `json:"space_id"`
		Name          string   `json:"space_name"`
		Description   string   `json:"space_description"`
		Admin         string   `json:"space_admin"`
		Collaborators []string `json:"space_collaborators"`
	}

	Expense struct {
		ID          ID      `json:"expense_id"`
		Cost        float64 `json:"expense_cost"`
		Description string  `json:"expense_description"`
		Date        string  `json:"expense_date"`
		Space       ID      `json:"expense_space"`
		PaidBy      string  `json:"expense_paid_by"`
		Category    *ID     `json:"expense_category"`
	}

	Category struct {
		ID      ID     `json:"category_id"`
		Title   string `json:"category_title"`
		SpaceID ID     `json:"space_id"`
	}

	Credentials struct {
		Username string `json:"username" validate:"notblank"`
		Password string `json:"password" validate:"required"`
	}

	User struct {
		Username  string `json:"user_username" validate:"notblank,min=8"`
		FirstName string `json:"user_firstname" validate:"notblank"`
		LastName  string `json:"user_lastname" validate:"notblank"`
		Email     string `json:"user_email" validate:"required,email"`
		Password  string `json:"user_password" validate:"required"`
	}

	Token struct {
		Token string `json:"token"`
	}

	Collaborator struct {
		Username string `json:"username"`
		SpaceID  ID     `json:"space_id"`
	}

	// Message is the error payload the API sends with non-2xx responses.
	Message struct {
		Msg string `json:"msg"`
	}

	// Ack is the loosely shaped body returned by deletes and patches.
	Ack = json.RawMessage
)

// Request payloads.
type (
	SpaceDraft struct {
		Name        string `json:"space_name" validate:"notblank,max=100"`
		Description string `json:"space_description" validate:"max=500"`
	}

	ExpenseDraft struct {
		Description string  `json:"expense_description" validate:"notblank,max=200"`
		Cost        float64 `json:"expense_cost" validate:"gt=0"`
	}

	ExpensePatch struct {
		Description string  `json:"expense_description" validate:"notblank,max=200"`
		Cost        float64 `json:"expense_cost" validate:"gt=0"`
		Category    *ID     `json:"expense_category"`
	}

	CategoryDraft struct {
		Title string `json:"category_title" validate:"notblank,max=100"`
	}

	CollaboratorDraft struct {
		Username string `json:"username" validate:"notblank"`
	}

	// Signup is the account creation form: a user plus the repeated password.
	Signup struct {
		User            User
		PasswordConfirm string
	}
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

func (id ID) String() string { return string(id) }

// IsZero reports whether id is unset. The literal "null" counts as unset
// because older clients stringified missing categories.
func (id ID) IsZero() bool {
	s := strings.TrimSpace(string(id))
	return s == "" || s == "null"
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("decode id %q: %w", n, err)
	}
	*id = ID(n.String())
	return nil
}

// CategoryID returns the expense's category or the zero ID.
func (e Expense) CategoryID() ID {
	if e.Category == nil || e.Category.IsZero() {
		return ""
	}
	return *e.Category
}

// Patch builds the payload that updates e remotely.
func (e Expense) Patch() ExpensePatch {
	p := ExpensePatch{Description: e.Description, Cost: e.Cost}
	if id := e.CategoryID(); id != "" {
		p.Category = &id
	}
	return p
}

// HasCollaborator reports whether username is the admin or a collaborator.
func (s Space) HasCollaborator(username string) bool {
	if s.Admin == username {
		return true
	}
	for _, c := range s.Collaborators {
		if c == username {
			return true
		}
	}
	return false
}

func (c Credentials) Validate() error { return validateStruct(c) }
func (u User) Validate() error { return validateStruct(u) }
func (d SpaceDraft) Validate() error { return validateStruct(d) }
func (d ExpenseDraft) Validate() error { return validateStruct(d) }
func (p ExpensePatch) Validate() error { return validateStruct(p) }
func (d CategoryDraft) Validate() error { return validateStruct(d) }

func (d CollaboratorDraft) Validate() error { return validateStruct(d) }

func (s Signup) Validate() error {
	if err := s.User.Validate(); err != nil {
		return err
	}
	if s.User.Password != s.PasswordConfirm {
		return ErrPasswordMismatch
	}
	return nil
}
