package core

// CategoryAmount represents an amount aggregated by category code.
type CategoryAmount struct {
	Category string `json:"category"`
	Amount   Money  `json:"amount"`
}

// PeriodSummary is derived on demand from the transactions in [From, To].
type PeriodSummary struct {
	From             Date             `json:"from"`
	To               Date             `json:"to"`
	TotalIncome      Money            `json:"total_income"`
	TotalExpense     Money            `json:"total_expense"`
	Balance          Money            `json:"balance"`
	TransactionCount int              `json:"transaction_count"`
	TopCategories    []CategoryAmount `json:"top_categories"`
}

// ReportRow is one (period, category, total) line of a monthly export.
type ReportRow struct {
	Period   Period `json:"period"`
	Category string `json:"category"`
	Total    Money  `json:"total"`
}
