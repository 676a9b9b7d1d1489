package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"expensetracker/internal/core"
	"expensetracker/internal/sheets"
)

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printSpaces(w io.Writer, spaces []core.Space) {
	if len(spaces) == 0 {
		fmt.Fprintln(w, "No spaces yet")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "ID\tNAME\tADMIN\tMEMBERS\tDESCRIPTION")
	for _, sp := range spaces {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", sp.ID, sp.Name, sp.Admin, len(sp.Collaborators), sp.Description)
	}
	tw.Flush()
}

func printExpenses(w io.Writer, expenses []core.Expense, categories []core.Category) {
	if len(expenses) == 0 {
		fmt.Fprintln(w, "No expenses yet")
		return
	}
	titles := make(map[core.ID]string, len(categories))
	for _, c := range categories {
		titles[c.ID] = c.Title
	}

	tw := table(w)
	fmt.Fprintln(tw, "ID\tDATE\tDESCRIPTION\tCOST\tPAID BY\tCATEGORY")
	for _, e := range expenses {
		category := "-"
		if t, ok := titles[e.CategoryID()]; ok {
			category = t
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", e.ID, e.Date, e.Description, core.FormatCost(e.Cost), e.PaidBy, category)
	}
	tw.Flush()
}

func printCategories(w io.Writer, categories []core.Category) {
	if len(categories) == 0 {
		fmt.Fprintln(w, "No categories yet")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "ID\tTITLE")
	for _, c := range categories {
		fmt.Fprintf(tw, "%s\t%s\n", c.ID, c.Title)
	}
	tw.Flush()
}

func printCollaborators(w io.Writer, sp core.Space) {
	fmt.Fprintf(w, "%s (admin)\n", sp.Admin)
	for _, c := range sp.Collaborators {
		if c != sp.Admin {
			fmt.Fprintln(w, c)
		}
	}
}

func printSummary(w io.Writer, s core.Summary) {
	fmt.Fprintf(w, "Total: %s over %d expenses\n", core.FormatCost(s.Total), s.Count)
	if len(s.ByMember) > 0 {
		fmt.Fprintln(w, "\nBy member:")
		tw := table(w)
		for _, m := range s.ByMember {
			fmt.Fprintf(tw, "  %s\t%s\n", m.Username, core.FormatCost(m.Amount))
		}
		tw.Flush()
	}
	if len(s.ByCategory) > 0 {
		fmt.Fprintln(w, "\nBy category:")
		tw := table(w)
		for _, c := range s.ByCategory {
			fmt.Fprintf(tw, "  %s\t%s\n", c.Title, core.FormatCost(c.Amount))
		}
		tw.Flush()
	}
}

// printRows writes export rows as tab separated values under the header.
func printRows(w io.Writer, rows [][]any) {
	fmt.Fprintln(w, strings.Join(sheets.Header, "\t"))
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprint(v)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
}
