package core

// UncategorizedTitle labels expenses without a category in summaries.
const UncategorizedTitle = "Uncategorized"

// MemberAmount is the amount paid by one member.
type MemberAmount struct {
	Username string
	Amount   float64
}

// CategoryAmount is an amount aggregated by category.
type CategoryAmount struct {
	CategoryID ID
	Title      string
	Amount     float64
}

// Summary holds the totals of a space.
type Summary struct {
	SpaceID    ID
	Count      int
	Total      float64
	ByMember   []MemberAmount
	ByCategory []CategoryAmount
}

// Summarize computes per-space, per-member and per-category totals. Members
// and categories are listed in the order they first appear in expenses.
func Summarize(spaceID ID, expenses []Expense, categories []Category) Summary {
	titles := make(map[ID]string, len(categories))
	for _, c := range categories {
		titles[c.ID] = c.Title
	}

	var total int64
	memberIdx := map[string]int{}
	memberCents := []int64{}
	var members []MemberAmount
	catIdx := map[ID]int{}
	catCents := []int64{}
	var cats []CategoryAmount

	for _, e := range expenses {
		cents := toCents(e.Cost)
		total += cents

		i, ok := memberIdx[e.PaidBy]
		if !ok {
			i = len(members)
			memberIdx[e.PaidBy] = i
			members = append(members, MemberAmount{Username: e.PaidBy})
			memberCents = append(memberCents, 0)
		}
		memberCents[i] += cents

		cid := e.CategoryID()
		j, ok := catIdx[cid]
		if !ok {
			j = len(cats)
			catIdx[cid] = j
			title := UncategorizedTitle
			if cid != "" {
				if t, found := titles[cid]; found {
					title = t
				} else {
					title = cid.String()
				}
			}
			cats = append(cats, CategoryAmount{CategoryID: cid, Title: title})
			catCents = append(catCents, 0)
		}
		catCents[j] += cents
	}

	for i := range members {
		members[i].Amount = float64(memberCents[i]) / 100
	}
	for j := range cats {
		cats[j].Amount = float64(catCents[j]) / 100
	}

	return Summary{
		SpaceID:    spaceID,
		Count:      len(expenses),
		Total:      float64(total) / 100,
		ByMember:   members,
		ByCategory: cats,
	}
}
