package nlq

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Categories is the closed vocabulary of category names recognized inside
// question text. Matching is case-insensitive substring; the first mention
// in the text wins.
var Categories = []string{"food", "travel", "shopping", "bills", "other"}

// amountCue matches an "over/above/more than/greater than" cue followed by
// the first integer literal. A cue with no trailing integer means no amount
// filter, not an error.
var amountCue = regexp.MustCompile(`\b(?:over|above|more than|greater than)\s*\$?(\d+)`)

// rule pairs trigger keywords with a shape resolver. Rules are evaluated in
// rank order and the first match wins, so earlier rules shadow later ones on
// overlapping vocabulary ("total" beats "biggest" in the same question).
type rule struct {
	name     string
	keywords []string
	resolve  func(q string) (Shape, Filters)
}

// rules is the ranked classification cascade. Order is load-bearing.
var rules = []rule{
	{
		name:     "total",
		keywords: []string{"total", "how much", "sum", "spent"},
		resolve: func(q string) (Shape, Filters) {
			if mentionsCategoryWord(q) {
				return ShapeTotalByCategory, Filters{}
			}
			return ShapeTotalOverall, Filters{Category: firstCategory(q)}
		},
	},
	{
		name:     "list",
		keywords: []string{"list", "show", "display", "all", "expenses"},
		resolve: func(q string) (Shape, Filters) {
			return ShapeListExpenses, Filters{
				Category:  firstCategory(q),
				MinAmount: amountThreshold(q),
			}
		},
	},
	{
		name:     "biggest",
		keywords: []string{"biggest", "highest", "maximum", "most", "largest"},
		resolve:  byCategoryOr(ShapeBiggestCategory, ShapeBiggestExpenses),
	},
	{
		name:     "smallest",
		keywords: []string{"smallest", "lowest", "minimum", "least"},
		resolve:  byCategoryOr(ShapeSmallestCategory, ShapeSmallestExpenses),
	},
	{
		name:     "average",
		keywords: []string{"average", "avg", "mean"},
		resolve:  byCategoryOr(ShapeAverageByCategory, ShapeAverageOverall),
	},
	{
		name:     "count",
		keywords: []string{"count", "number", "how many"},
		resolve:  byCategoryOr(ShapeCountByCategory, ShapeCountOverall),
	},
}

// Classify selects exactly one query shape for a question and extracts any
// category or amount filter embedded in the text. It never fails: an
// unrecognized or empty question resolves to ShapeRecentDefault.
func Classify(question string) (Shape, Filters) {
	q := normalize(question)
	for _, r := range rules {
		if containsAny(q, r.keywords) {
			return r.resolve(q)
		}
	}
	return ShapeRecentDefault, Filters{}
}

// normalize lower-cases the question and reduces it to space-separated word
// and digit runs, so keyword matching works on whole words ("all" must not
// fire inside "smallest").
func normalize(question string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, question)
	return strings.Join(strings.Fields(mapped), " ")
}

// byCategoryOr resolves to the grouped shape when the question talks about
// categories, and to the per-expense shape otherwise.
func byCategoryOr(grouped, plain Shape) func(string) (Shape, Filters) {
	return func(q string) (Shape, Filters) {
		if mentionsCategoryWord(q) {
			return grouped, Filters{}
		}
		return plain, Filters{}
	}
}

// containsAny matches each keyword as a whole word (or word sequence) in
// normalized question text.
func containsAny(q string, keywords []string) bool {
	padded := " " + q + " "
	for _, kw := range keywords {
		if strings.Contains(padded, " "+kw+" ") {
			return true
		}
	}
	return false
}

// mentionsCategoryWord covers "category", "categories", "by category" and
// "per category".
func mentionsCategoryWord(q string) bool {
	return strings.Contains(q, "categor")
}

// firstCategory returns the known category name mentioned earliest in the
// question, or "" when none is mentioned. Multiple mentions are not
// disambiguated; the first wins.
func firstCategory(q string) string {
	best := ""
	bestIdx := -1
	for _, c := range Categories {
		idx := strings.Index(q, c)
		if idx < 0 {
			continue
		}
		if bestIdx < 0 || idx < bestIdx {
			best = c
			bestIdx = idx
		}
	}
	return best
}

// amountThreshold extracts the first integer literal following an amount
// cue, or nil when the question carries none.
func amountThreshold(q string) *int64 {
	m := amountCue.FindStringSubmatch(q)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return nil
	}
	return &v
}
