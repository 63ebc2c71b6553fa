// Package nlq translates free-text questions about expenses into
// parameterized read statements, and validates caller-supplied SQL against
// an allow-list policy before execution.
package nlq

// Shape is the abstract query pattern selected from a question.
type Shape int

const (
	ShapeTotalByCategory Shape = iota
	ShapeTotalOverall
	ShapeListExpenses
	ShapeBiggestCategory
	ShapeBiggestExpenses
	ShapeSmallestCategory
	ShapeSmallestExpenses
	ShapeAverageByCategory
	ShapeAverageOverall
	ShapeCountByCategory
	ShapeCountOverall
	ShapeRecentDefault
)

// String returns the string representation of the shape.
func (s Shape) String() string {
	switch s {
	case ShapeTotalByCategory:
		return "total_by_category"
	case ShapeTotalOverall:
		return "total_overall"
	case ShapeListExpenses:
		return "list_expenses"
	case ShapeBiggestCategory:
		return "biggest_category"
	case ShapeBiggestExpenses:
		return "biggest_expenses"
	case ShapeSmallestCategory:
		return "smallest_category"
	case ShapeSmallestExpenses:
		return "smallest_expenses"
	case ShapeAverageByCategory:
		return "average_by_category"
	case ShapeAverageOverall:
		return "average_overall"
	case ShapeCountByCategory:
		return "count_by_category"
	case ShapeCountOverall:
		return "count_overall"
	case ShapeRecentDefault:
		return "recent_default"
	default:
		return "unknown"
	}
}

// Filters holds the optional predicates extracted from question text.
type Filters struct {
	// Category is one of the known category names, empty when absent.
	Category string
	// MinAmount is a strict lower bound on the amount, nil when absent.
	MinAmount *int64
}

// Statement is a rendered read statement with its bind values and a
// human-readable interpretation. Filter values are never interpolated into
// the SQL text; they travel through Args.
type Statement struct {
	Shape          Shape
	SQL            string
	Args           []any
	Interpretation string
}
