package nlq

import (
	"strings"

	"spendtrack/internal/core"
)

// shapePlan describes how one shape renders against the expenses relation.
// The where clause is spliced between head and tail; all filter values are
// bound through placeholders.
type shapePlan struct {
	head           string
	tail           string
	interpretation string
}

const allColumns = "id, date, amount, category, subcategory, note"

var plans = map[Shape]shapePlan{
	ShapeTotalByCategory: {
		head:           "SELECT category, SUM(amount) AS total, COUNT(*) AS expense_count FROM expenses",
		tail:           " GROUP BY category ORDER BY total DESC LIMIT 100",
		interpretation: "Showing total spending grouped by category",
	},
	ShapeTotalOverall: {
		head:           "SELECT SUM(amount) AS total, COUNT(*) AS expense_count FROM expenses",
		tail:           " LIMIT 1",
		interpretation: "Showing total spending amount and number of expenses",
	},
	ShapeListExpenses: {
		head:           "SELECT " + allColumns + " FROM expenses",
		tail:           " ORDER BY date DESC, amount DESC LIMIT 100",
		interpretation: "Showing matching expenses, most recent first",
	},
	ShapeBiggestCategory: {
		head:           "SELECT category, SUM(amount) AS total, COUNT(*) AS expense_count FROM expenses",
		tail:           " GROUP BY category ORDER BY total DESC LIMIT 1",
		interpretation: "Showing the category with the highest total spending",
	},
	ShapeBiggestExpenses: {
		head:           "SELECT " + allColumns + " FROM expenses",
		tail:           " ORDER BY amount DESC LIMIT 10",
		interpretation: "Showing the largest individual expenses",
	},
	ShapeSmallestCategory: {
		head:           "SELECT category, SUM(amount) AS total, COUNT(*) AS expense_count FROM expenses",
		tail:           " GROUP BY category ORDER BY total ASC LIMIT 1",
		interpretation: "Showing the category with the lowest total spending",
	},
	ShapeSmallestExpenses: {
		head:           "SELECT " + allColumns + " FROM expenses",
		tail:           " ORDER BY amount ASC LIMIT 10",
		interpretation: "Showing the smallest individual expenses",
	},
	ShapeAverageByCategory: {
		head:           "SELECT category, AVG(amount) AS average, COUNT(*) AS expense_count FROM expenses",
		tail:           " GROUP BY category ORDER BY average DESC LIMIT 100",
		interpretation: "Showing average expense amount grouped by category",
	},
	ShapeAverageOverall: {
		head:           "SELECT AVG(amount) AS average, COUNT(*) AS expense_count FROM expenses",
		tail:           " LIMIT 1",
		interpretation: "Showing the average expense amount and number of expenses",
	},
	ShapeCountByCategory: {
		head:           "SELECT category, COUNT(*) AS expense_count, SUM(amount) AS total FROM expenses",
		tail:           " GROUP BY category ORDER BY expense_count DESC LIMIT 100",
		interpretation: "Showing the number of expenses grouped by category",
	},
	ShapeCountOverall: {
		head:           "SELECT COUNT(*) AS expense_count, SUM(amount) AS total FROM expenses",
		tail:           " LIMIT 1",
		interpretation: "Showing the number of expenses and total spending",
	},
	ShapeRecentDefault: {
		head:           "SELECT " + allColumns + " FROM expenses",
		tail:           " ORDER BY date DESC LIMIT 50",
		interpretation: "Showing the most recent expenses",
	},
}

// Synthesize renders a parameterized statement for a classified shape,
// composing filter predicates conjunctively in the order date-range,
// category, amount. Absent filters contribute no predicate. Every rendered
// statement is a single read statement carrying a LIMIT clause.
func Synthesize(shape Shape, r core.DateRange, f Filters) Statement {
	plan, ok := plans[shape]
	if !ok {
		plan = plans[ShapeRecentDefault]
		shape = ShapeRecentDefault
	}

	var conds []string
	var args []any
	if !r.Start.IsEmpty() {
		conds = append(conds, "date >= ?")
		args = append(args, r.Start.String())
	}
	if !r.End.IsEmpty() {
		conds = append(conds, "date <= ?")
		args = append(args, r.End.String())
	}
	if f.Category != "" {
		// Case-insensitive partial match, pattern bound as a value.
		conds = append(conds, "LOWER(category) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.Category)+"%")
	}
	if f.MinAmount != nil {
		conds = append(conds, "amount > ?")
		args = append(args, *f.MinAmount)
	}

	sql := plan.head
	if len(conds) > 0 {
		sql += " WHERE " + strings.Join(conds, " AND ")
	}
	sql += plan.tail

	return Statement{
		Shape:          shape,
		SQL:            sql,
		Args:           args,
		Interpretation: plan.interpretation,
	}
}

// Translate classifies a question and synthesizes the matching statement.
// It is the single entry point for the question endpoint: it performs no
// I/O and never fails.
func Translate(question string, r core.DateRange) Statement {
	shape, f := Classify(question)
	return Synthesize(shape, r, f)
}
