package cache

import (
	"context"
	"sync"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

// Ticket identifies one opening of a space. Results carrying a ticket from
// an older opening are discarded.
type Ticket struct {
	SpaceID    core.ID
	generation uint64
}

// Store is the shared client state. All methods are safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	username   string
	spaces     *Collection[core.Space]
	expenses   *Collection[core.Expense]
	categories *Collection[core.Category]

	spacesStatus     Status
	expensesStatus   Status
	categoriesStatus Status

	openSpace  core.ID
	generation uint64

	logger *log.Logger
}

type StoreOption func(*Store)

func WithLogger(l *log.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		spaces:     NewCollection(func(v core.Space) core.ID { return v.ID }),
		expenses:   NewCollection(func(v core.Expense) core.ID { return v.ID }),
		categories: NewCollection(func(v core.Category) core.ID { return v.ID }),
		logger:     log.FromContext(context.Background()).WithComponent(log.ComponentCache),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

func (s *Store) SetUsername(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = username
}

// Reset forgets everything, as after a logout.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = ""
	s.spaces.Clear()
	s.expenses.Clear()
	s.categories.Clear()
	s.spacesStatus, s.expensesStatus, s.categoriesStatus = NotLoaded, NotLoaded, NotLoaded
	s.openSpace = ""
	s.generation++
}

// Spaces

func (s *Store) Spaces() []core.Space {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spaces.Items()
}

// SetSpaces replaces the space list and marks it loaded.
func (s *Store) SetSpaces(spaces []core.Space) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spaces.Replace(spaces)
	s.spacesStatus = Loaded
}

func (s *Store) SpacesStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spacesStatus
}

func (s *Store) SetSpacesStatus(st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spacesStatus = st
}

// FindSpaceByID returns the cached space or nil. The pointer aliases the
// cached record; use UpdateSpace to change it while other goroutines read.
func (s *Store) FindSpaceByID(id core.ID) *core.Space {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spaces.Find(id)
}

// RemoveSpaceByID drops id and returns the remaining spaces.
func (s *Store) RemoveSpaceByID(id core.ID) []core.Space {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spaces.Delete(id)
	return s.spaces.Items()
}

// EditSpace copies name and description of update onto the cached space
// with the same id. It reports whether a space matched.
func (s *Store) EditSpace(update core.Space) bool {
	return s.UpdateSpace(update.ID, func(sp *core.Space) {
		sp.Name = update.Name
		sp.Description = update.Description
	})
}

func (s *Store) AppendSpace(space core.Space) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spaces.Append(space)
}

// UpdateSpace runs fn on the cached space under the store lock.
func (s *Store) UpdateSpace(id core.ID, fn func(*core.Space)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp := s.spaces.Find(id)
	if sp == nil {
		return false
	}
	fn(sp)
	return true
}

// AddSpaceCollaborator appends username to the collaborators of a cached
// space. Duplicates are kept, as the server keeps them.
func (s *Store) AddSpaceCollaborator(id core.ID, username string) bool {
	return s.UpdateSpace(id, func(sp *core.Space) {
		sp.Collaborators = append(sp.Collaborators, username)
	})
}

func (s *Store) RemoveSpaceCollaborator(id core.ID, username string) bool {
	return s.UpdateSpace(id, func(sp *core.Space) {
		kept := sp.Collaborators[:0:0]
		for _, c := range sp.Collaborators {
			if c != username {
				kept = append(kept, c)
			}
		}
		sp.Collaborators = kept
	})
}

// Expenses

func (s *Store) Expenses() []core.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expenses.Items()
}

func (s *Store) SetExpenses(expenses []core.Expense) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses.Replace(expenses)
	s.expensesStatus = Loaded
}

func (s *Store) ExpensesStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expensesStatus
}

func (s *Store) FindExpenseByID(id core.ID) *core.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expenses.Find(id)
}

func (s *Store) RemoveExpenseByID(id core.ID) []core.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses.Delete(id)
	return s.expenses.Items()
}

// EditExpense copies description and cost of update onto the cached expense
// with the same id.
func (s *Store) EditExpense(update core.Expense) bool {
	return s.UpdateExpense(update.ID, func(e *core.Expense) {
		e.Description = update.Description
		e.Cost = update.Cost
	})
}

// SetExpenseCategory points a cached expense at categoryID. The zero ID
// clears the category.
func (s *Store) SetExpenseCategory(id, categoryID core.ID) bool {
	return s.UpdateExpense(id, func(e *core.Expense) {
		if categoryID.IsZero() {
			e.Category = nil
			return
		}
		c := categoryID
		e.Category = &c
	})
}

func (s *Store) AppendExpense(expense core.Expense) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses.Append(expense)
}

func (s *Store) UpdateExpense(id core.ID, fn func(*core.Expense)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.expenses.Find(id)
	if e == nil {
		return false
	}
	fn(e)
	return true
}

func (s *Store) ClearExpenses() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses.Clear()
	s.expensesStatus = NotLoaded
}

// Categories

func (s *Store) Categories() []core.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.categories.Items()
}

func (s *Store) SetCategories(categories []core.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories.Replace(categories)
	s.categoriesStatus = Loaded
}

func (s *Store) CategoriesStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.categoriesStatus
}

func (s *Store) FindCategoryByID(id core.ID) *core.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.categories.Find(id)
}

func (s *Store) RemoveCategoryByID(id core.ID) []core.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories.Delete(id)
	return s.categories.Items()
}

func (s *Store) AppendCategory(category core.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories.Append(category)
}

// Open space

// BeginOpen makes spaceID the open space: expenses and categories are
// cleared and marked loading, and any ticket from an earlier opening stops
// being current.
func (s *Store) BeginOpen(spaceID core.ID) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.openSpace = spaceID
	s.expenses.Clear()
	s.categories.Clear()
	s.expensesStatus, s.categoriesStatus = Loading, Loading
	return Ticket{SpaceID: spaceID, generation: s.generation}
}

// CompleteExpenses stores the expenses fetched for t. It reports false and
// leaves the cache alone when t is stale.
func (s *Store) CompleteExpenses(t Ticket, expenses []core.Expense) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(t) {
		s.logger.DebugContext(context.Background(), "Discarding stale expenses", log.FieldSpaceID, t.SpaceID.String())
		return false
	}
	s.expenses.Replace(expenses)
	s.expensesStatus = Loaded
	return true
}

func (s *Store) CompleteCategories(t Ticket, categories []core.Category) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(t) {
		s.logger.DebugContext(context.Background(), "Discarding stale categories", log.FieldSpaceID, t.SpaceID.String())
		return false
	}
	s.categories.Replace(categories)
	s.categoriesStatus = Loaded
	return true
}

// FailOpen marks the opening of t as failed.
func (s *Store) FailOpen(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(t) {
		return false
	}
	if s.expensesStatus != Loaded {
		s.expensesStatus = Failed
	}
	if s.categoriesStatus != Loaded {
		s.categoriesStatus = Failed
	}
	return true
}

// Current reports whether t belongs to the latest opening.
func (s *Store) Current(t Ticket) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current(t)
}

func (s *Store) current(t Ticket) bool {
	return t.generation == s.generation && t.SpaceID == s.openSpace
}

// OpenSpaceID returns the open space, or the zero ID.
func (s *Store) OpenSpaceID() core.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.openSpace
}

// OpenStatus folds the expense and category statuses: Loaded only when
// both are, Failed when either failed.
func (s *Store) OpenStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.openSpace == "":
		return NotLoaded
	case s.expensesStatus == Failed || s.categoriesStatus == Failed:
		return Failed
	case s.expensesStatus == Loaded && s.categoriesStatus == Loaded:
		return Loaded
	default:
		return Loading
	}
}

// CloseSpace forgets the open space and its contents.
func (s *Store) CloseSpace() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.openSpace = ""
	s.expenses.Clear()
	s.categories.Clear()
	s.expensesStatus, s.categoriesStatus = NotLoaded, NotLoaded
}

// Expense returns a copy of the cached expense.
func (s *Store) Expense(id core.ID) (core.Expense, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expenses.Get(id)
}

// Space returns a copy of the cached space.
func (s *Store) Space(id core.ID) (core.Space, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spaces.Get(id)
}

// ClearCategory removes categoryID from every cached expense that uses it.
func (s *Store) ClearCategory(categoryID core.ID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range s.expenses.order {
		e := s.expenses.items[id]
		if e.CategoryID() == categoryID {
			e.Category = nil
			n++
		}
	}
	return n
}
