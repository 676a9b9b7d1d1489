package main

import (
	"context"
	"flag"
	"fmt"

	"expensetracker/internal/core"
	"expensetracker/internal/sheets"
	gsheet "expensetracker/internal/sheets/google"
	"expensetracker/internal/sheets/memory"
)

var commands = map[string]command{
	"login":               {summary: "check the configured credentials", remote: true, setup: loginCmd},
	"signup":              {summary: "create an account", remote: true, anonymous: true, setup: signupCmd},
	"logout":              {summary: "end the session on the server", remote: true, setup: logoutCmd},
	"spaces":              {summary: "list your spaces", setup: spacesCmd},
	"space-create":        {summary: "create a space", remote: true, setup: spaceCreateCmd},
	"space-edit":          {summary: "rename a space or change its description", remote: true, setup: spaceEditCmd},
	"space-delete":        {summary: "delete a space", remote: true, setup: spaceDeleteCmd},
	"join":                {summary: "join a space you were invited to", remote: true, setup: joinCmd},
	"quit":                {summary: "leave a space", remote: true, setup: quitCmd},
	"expenses":            {summary: "list the expenses of a space", setup: expensesCmd},
	"expense-add":         {summary: "record an expense", remote: true, setup: expenseAddCmd},
	"expense-edit":        {summary: "change the description or cost of an expense", remote: true, setup: expenseEditCmd},
	"expense-delete":      {summary: "delete an expense", remote: true, setup: expenseDeleteCmd},
	"expense-categorize":  {summary: "set or clear the category of an expense", remote: true, setup: expenseCategorizeCmd},
	"categories":          {summary: "list the categories of a space", setup: categoriesCmd},
	"category-add":        {summary: "create a category", remote: true, setup: categoryAddCmd},
	"category-delete":     {summary: "delete a category", remote: true, setup: categoryDeleteCmd},
	"collaborators":       {summary: "list the members of a space", setup: collaboratorsCmd},
	"collaborator-add":    {summary: "invite a user to a space", remote: true, setup: collaboratorAddCmd},
	"collaborator-remove": {summary: "remove a user from a space", remote: true, setup: collaboratorRemoveCmd},
	"totals":              {summary: "show totals per member and per category", setup: totalsCmd},
	"export":              {summary: "append the expenses of a space to the spreadsheet", setup: exportCmd},
}

// Session

func loginCmd(fs *flag.FlagSet) action {
	return func(ctx context.Context, s *session) error {
		fmt.Fprintf(s.out, "Logged in as %s\n", s.ws.Store().Username())
		return nil
	}
}

func signupCmd(fs *flag.FlagSet) action {
	var form core.Signup
	fs.StringVar(&form.User.Username, "username", "", "username, at least 8 characters")
	fs.StringVar(&form.User.FirstName, "first-name", "", "first name")
	fs.StringVar(&form.User.LastName, "last-name", "", "last name")
	fs.StringVar(&form.User.Email, "email", "", "email address")
	fs.StringVar(&form.User.Password, "password", "", "password")
	fs.StringVar(&form.PasswordConfirm, "confirm", "", "password again")

	return func(ctx context.Context, s *session) error {
		u, err := s.ws.Signup(ctx, form, nil).Result(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Account %s created\n", u.Username)
		return nil
	}
}

func logoutCmd(fs *flag.FlagSet) action {
	return func(ctx context.Context, s *session) error {
		if _, err := s.ws.Logout(ctx, nil).Result(ctx); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Logged out")
		return nil
	}
}

// Spaces

func spacesCmd(fs *flag.FlagSet) action {
	return func(ctx context.Context, s *session) error {
		spaces, err := s.reader.Spaces(ctx)
		if err != nil {
			return err
		}
		printSpaces(s.out, spaces)
		return nil
	}
}

func spaceCreateCmd(fs *flag.FlagSet) action {
	var draft core.SpaceDraft
	fs.StringVar(&draft.Name, "name", "", "space name")
	fs.StringVar(&draft.Description, "description", "", "space description")

	return func(ctx context.Context, s *session) error {
		sp, err := s.ws.CreateSpace(ctx, draft, nil).Result(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Space %s created with id %s\n", sp.Name, sp.ID)
		return nil
	}
}

func spaceEditCmd(fs *flag.FlagSet) action {
	spaceID := fs.String("space", "", "space id")
	name := fs.String("name", "", "new name (unchanged when empty)")
	description := fs.String("description", "", "new description (unchanged when empty)")

	return func(ctx context.Context, s *session) error {
		if err := required("space", *spaceID); err != nil {
			return err
		}
		sp, err := s.reader.Space(ctx, core.ID(*spaceID))
		if err != nil {
			return err
		}
		if *name != "" {
			sp.Name = *name
		}
		if *description != "" {
			sp.Description = *description
		}
		sp, err = s.ws.EditSpace(ctx, sp, nil).Result(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Space %s updated\n", sp.ID)
		return nil
	}
}

func spaceDeleteCmd(fs *flag.FlagSet) action {
	spaceID := fs.String("space", "", "space id")

	return func(ctx context.Context, s *session) error {
		if err := required("space", *spaceID); err != nil {
			return err
		}
		remaining, err := s.ws.DeleteSpace(ctx, core.ID(*spaceID), nil).Result(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Space %s deleted, %d left\n", *spaceID, len(remaining))
		return nil
	}
}

func joinCmd(fs *flag.FlagSet) action {
	spaceID := fs.String("space", "", "space id")

	return func(ctx context.Context, s *session) error {
		if err := required("space", *spaceID); err != nil {
			return err
		}
		sp, err := s.ws.JoinSpace(ctx, core.ID(*spaceID), nil).Result(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Joined %s\n", sp.Name)
		return nil
	}
}

func quitCmd(fs *flag.FlagSet) action {
	spaceID := fs.String("space", "", "space id")

	return func(ctx context.Context, s *session) error {
		if err := required("space", *spaceID); err != nil {
			return err
		}
		if _, err := s.ws.QuitSpace(ctx, core.ID(*spaceID), nil).Result(ctx); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Left space %s\n", *spaceID)
		return nil
	}
}

// Expenses

func expensesCmd(fs *flag.FlagSet) action {
	spaceID := fs.String("space", "", "space id")

	return func(ctx context.Context, s *session) error {
		if err := required("space", *spaceID); err != nil {
			return err
		}
		expenses, err := s.reader.Expenses(ctx, core.ID(*spaceID))
		if err != nil {
			return err
		}
		categories, err := s.reader.Categories(ctx, core.ID(*spaceID))
		if err != nil {
			return err
		}
		printExpenses(s.out, expenses, categories)
		return nil
	}
}

func expenseAddCmd(fs *flag.FlagSet) action {
	spaceID := fs.String("space", "", "space id")
	description := fs.String("description", "", "what was paid for")
	cost := fs.String("cost", "", "amount, e.g. 12.50")

	return func(ctx context.Context, s *session) error {
		if err := required("space", *spaceID, "cost", *cost); err != nil {
			return err
		}
		amount, err := core.ParseCost(*cost)
		if err != nil {
			return err
		}
		e, err := s.ws.CreateExpense(ctx, core.ID(*spaceID), core.ExpenseDraft{Description: *description, Cost: amount}, nil).Result(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Expense %s recorded: %s %s\n", e.ID, e.Description, core.FormatCost(e.Cost))
		return nil
	}
}

func expenseEditCmd(fs *flag.FlagSet) action {
	spaceID := fs.String("space", "", "space id")
	expenseID := fs.String("expense", "", "expense id")
	description := fs.String("description", "", "new description (unchanged when empty)")
	cost := fs.String("cost", "", "new amount (unchanged when empty)")

	return func(ctx context.Context, s *session) error {
		if err := required("space", *spaceID, "expense", *expenseID); err != nil {
			return err
		}
		e, err := findExpense(ctx, s, core.ID(*spaceID), core.ID(*expenseID))
		if err != nil {
			return err
		}
		if *description != "" {
			e.Description = *description
		}
		if *cost != "" {
			if e.Cost, err = core.ParseCost(*cost); err != nil {
				return err
			}
		}
		e, err = s.ws.EditExpense(ctx, core.ID(*spaceID), e, nil).Result(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Expense %s updated: %s %s\n", e.ID, e.Description, core.FormatCost(e.Cost))
		return nil
	}
}

func expenseDeleteCmd(fs *flag.FlagSet) action {
	spaceID := fs.String("space", "", "space id")
	expenseID := fs.String("expense", "", "expense id")

	return func(ctx context.Context, s *session) error {
		if err := required("space", *spaceID, "expense", *expenseID); err != nil {
			return err
		}
		if _, err := s.ws.DeleteExpense(ctx, core.ID(*spaceID), core.ID(*expenseID), nil).Result(ctx); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Expense %s deleted\n", *expenseID)
		return nil
	}
}

func expenseCategorizeCmd(fs *flag.FlagSet) action {
	spaceID := fs.String("space", "", "space id")
	expenseID := fs.String("expense", "", "expense id")
	categoryID := fs.String("category", "", "category id; empty clears the category")

	return func(ctx context.Context, s *session) error {
		if err := required("space", *spaceID, "expense", *expenseID); err != nil {
			return err
		}
		// loads the space so the expense is cached
		if _, err := findExpense(ctx, s, core.ID(*spaceID), core.ID(*expenseID)); err != nil {
			return err
		}
		e, err := s.ws.CategorizeExpense(ctx, core.ID(*spaceID), core.ID(*expenseID), core.ID(*categoryID), nil).Result(ctx)
		if err != nil {
			return err
		}
		if e.CategoryID().IsZero() {
			fmt.Fprintf(s.out, "Expense %s is now uncategorized\n", e.ID)
		} else {
			fmt.Fprintf(s.out, "Expense %s filed under %s\n", e.ID, e.CategoryID())
		}
		return nil
	}
}

func findExpense(ctx context.Context, s *session, spaceID, expenseID core.ID) (core.Expense, error) {
	expenses, err := s.reader.Expenses(ctx, spaceID)
	if err != nil {
		return core.Expense{}, err
	}
	for _, e := range expenses {
		if e.ID == expenseID {
			return e, nil
		}
	}
	return core.Expense{}, fmt.Errorf("expense %s not found in space %s", expenseID, spaceID)
}

// Categories

func categoriesCmd(fs *flag.FlagSet) action {
	spaceID := fs.String("space", "", "space id")

	return func(ctx context.Context, s *session) error {
		if err := required("space", *spaceID); err != nil {
			return err
		}
		categories, err := s.reader.Categories(ctx, core.ID(*spaceID))
		if err != nil {
			return err
		}
		printCategories(s.out, categories)
		return nil
	}
}

func categoryAddCmd(fs *flag.FlagSet) action {
	spaceID := fs.String("space", "", "space id")
	title := fs.String("title", "", "category title")

	return func(ctx context.Context, s *session) error {
		if err := required("space", *spaceID); err != nil {
			return err
		}
		c, err := s.ws.CreateCategory(ctx, core.ID(*spaceID), core.CategoryDraft{Title: *title}, nil).Result(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Category %s created with id %s\n", c.Title, c.ID)
		return nil
	}
}

func categoryDeleteCmd(fs *flag.FlagSet) action {
	spaceID := fs.String("space", "", "space id")
	categoryID := fs.String("category", "", "category id")

	return func(ctx context.Context, s *session) error {
		if err := required("space", *spaceID, "category", *categoryID); err != nil {
			return err
		}
		if _, err := s.ws.DeleteCategory(ctx, core.ID(*spaceID), core.ID(*categoryID), nil).Result(ctx); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Category %s deleted\n", *categoryID)
		return nil
	}
}

// Collaborators

func collaboratorsCmd(fs *flag.FlagSet) action {
	spaceID := fs.String("space", "", "space id")

	return func(ctx context.Context, s *session) error {
		if err := required("space", *spaceID); err != nil {
			return err
		}
		sp, err := s.reader.Space(ctx, core.ID(*spaceID))
		if err != nil {
			return err
		}
		printCollaborators(s.out, sp)
		return nil
	}
}

func collaboratorAddCmd(fs *flag.FlagSet) action {
	spaceID := fs.String("space", "", "space id")
	username := fs.String("username", "", "user to invite")

	return func(ctx context.Context, s *session) error {
		if err := required("space", *spaceID); err != nil {
			return err
		}
		if _, err := s.reader.Spaces(ctx); err != nil {
			return err
		}
		if _, err := s.ws.AddCollaborator(ctx, core.ID(*spaceID), *username, nil).Result(ctx); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%s added to space %s\n", *username, *spaceID)
		return nil
	}
}

func collaboratorRemoveCmd(fs *flag.FlagSet) action {
	spaceID := fs.String("space", "", "space id")
	username := fs.String("username", "", "user to remove")

	return func(ctx context.Context, s *session) error {
		if err := required("space", *spaceID, "username", *username); err != nil {
			return err
		}
		if _, err := s.reader.Spaces(ctx); err != nil {
			return err
		}
		if _, err := s.ws.RemoveCollaborator(ctx, core.ID(*spaceID), *username, nil).Result(ctx); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%s removed from space %s\n", *username, *spaceID)
		return nil
	}
}

// Reports

func totalsCmd(fs *flag.FlagSet) action {
	spaceID := fs.String("space", "", "space id")

	return func(ctx context.Context, s *session) error {
		if err := required("space", *spaceID); err != nil {
			return err
		}
		id := core.ID(*spaceID)
		expenses, err := s.reader.Expenses(ctx, id)
		if err != nil {
			return err
		}
		categories, err := s.reader.Categories(ctx, id)
		if err != nil {
			return err
		}

		var summary core.Summary
		if s.ws != nil {
			if summary, err = s.ws.Totals(id); err != nil {
				return err
			}
		} else {
			summary = core.Summarize(id, expenses, categories)
		}
		printSummary(s.out, summary)
		return nil
	}
}

func exportCmd(fs *flag.FlagSet) action {
	spaceID := fs.String("space", "", "space id")

	return func(ctx context.Context, s *session) error {
		if err := required("space", *spaceID); err != nil {
			return err
		}
		id := core.ID(*spaceID)
		sp, err := s.reader.Space(ctx, id)
		if err != nil {
			return err
		}
		expenses, err := s.reader.Expenses(ctx, id)
		if err != nil {
			return err
		}
		categories, err := s.reader.Categories(ctx, id)
		if err != nil {
			return err
		}

		exporter, preview, err := newExporter(ctx, s)
		if err != nil {
			return err
		}
		ref, err := exporter.ExportExpenses(ctx, sp, expenses, categories)
		if err != nil {
			return err
		}

		if preview != nil {
			printRows(s.out, preview.Rows())
			return nil
		}
		fmt.Fprintf(s.out, "Exported %d expenses to %s\n", len(expenses), ref)
		return nil
	}
}

// newExporter returns the spreadsheet exporter, or an in-memory one whose
// rows are printed when no spreadsheet is configured.
func newExporter(ctx context.Context, s *session) (sheets.ExpenseExporter, *memory.Exporter, error) {
	if s.cfg.GoogleSpreadsheetID == "" {
		m := memory.New()
		return m, m, nil
	}
	c, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   s.cfg.GoogleSpreadsheetID,
		SheetName:       s.cfg.GoogleSheetName,
		CredentialsJSON: s.cfg.GoogleServiceAccountJSON,
		CredentialsFile: s.cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, nil, err
	}
	return c, nil, nil
}
