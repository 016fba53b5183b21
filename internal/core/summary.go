package core

// CategorySummary is an amount aggregated under one category name.
type CategorySummary struct {
	CategoryName string  `json:"categoryName"`
	Total        Money   `json:"total"`
	Percentage   float64 `json:"percentage"`
}

// Summary is the expense report for one user: the grand total plus the
// per-category breakdown.
type Summary struct {
	Total      Money             `json:"total"`
	ByCategory []CategorySummary `json:"byCategory"`
}

// Summarize aggregates expenses by category name, preserving first-seen
// order. Grouping is by name, not id: two categories with the same name
// collapse into one bucket.
//
// Percentage is groupTotal / grandTotal * 100, or 0 for every group when the
// grand total is zero.
func Summarize(expenses []Expense) Summary {
	s := Summary{ByCategory: []CategorySummary{}}

	index := make(map[string]int)
	for _, e := range expenses {
		s.Total.Cents += e.Amount.Cents

		name := ""
		if e.Category != nil {
			name = e.Category.Name
		}
		i, seen := index[name]
		if !seen {
			index[name] = len(s.ByCategory)
			s.ByCategory = append(s.ByCategory, CategorySummary{CategoryName: name})
			i = index[name]
		}
		s.ByCategory[i].Total.Cents += e.Amount.Cents
	}

	if s.Total.Cents > 0 {
		for i := range s.ByCategory {
			s.ByCategory[i].Percentage = float64(s.ByCategory[i].Total.Cents) / float64(s.Total.Cents) * 100
		}
	}

	return s
}
