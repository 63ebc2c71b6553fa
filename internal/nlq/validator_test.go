package nlq

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		sql    string
		reason Reason // "" means pass
	}{
		{"simple select", "SELECT * FROM expenses LIMIT 10", ""},
		{"lowercase select", "select id, amount from expenses limit 5", ""},
		{"injection attempt", "select 1; DROP TABLE x", ReasonBlockedKeyword},
		{"no limit", "SELECT * FROM expenses", ReasonMissingLimit},
		{"update", "UPDATE expenses SET amount=1", ReasonNotReadStatement},
		{"delete", "DELETE FROM expenses", ReasonNotReadStatement},
		{"empty", "", ReasonNotReadStatement},
		{"whitespace", "   \n\t ", ReasonNotReadStatement},
		{"embedded insert", "SELECT * FROM expenses; INSERT INTO expenses VALUES (1) LIMIT 1", ReasonBlockedKeyword},
		{"two selects", "SELECT 1; SELECT 2", ReasonMultipleStatements},
		{"trailing separator ok", "SELECT * FROM expenses LIMIT 10;", ""},
		{"second statement after separator", "SELECT 1 LIMIT 1; SELECT 2 LIMIT 1", ReasonMultipleStatements},
		{"subquery ok", "SELECT * FROM (SELECT * FROM expenses LIMIT 100) WHERE amount > 5 LIMIT 10", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.sql)
			if tc.reason == "" {
				if err != nil {
					t.Fatalf("Validate(%q) unexpected rejection: %v", tc.sql, err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate(%q) expected ValidationError, got %v", tc.sql, err)
			}
			if verr.Reason != tc.reason {
				t.Fatalf("Validate(%q) reason = %q, want %q", tc.sql, verr.Reason, tc.reason)
			}
		})
	}
}

// Keyword detection is token-aware: identifiers and string literals that
// merely contain a blocked word must not trigger a rejection.
func TestValidateTokenAware(t *testing.T) {
	pass := []string{
		"SELECT created_at FROM expenses LIMIT 10",
		"SELECT * FROM expenses WHERE note = 'please drop this' LIMIT 10",
		"SELECT * FROM expenses WHERE note = 'it''s an update' LIMIT 10",
		`SELECT "updated" FROM expenses LIMIT 10`,
		"SELECT * FROM expenses -- drop table expenses\nLIMIT 10",
		"SELECT * FROM expenses /* delete me */ LIMIT 10",
	}
	for _, sql := range pass {
		if err := Validate(sql); err != nil {
			t.Fatalf("Validate(%q) unexpected rejection: %v", sql, err)
		}
	}

	reject := []string{
		"SELECT * FROM expenses WHERE id IN (SELECT id FROM x) AND 1=1 LIMIT 1; DELETE FROM expenses",
		"SELECT * FROM expenses LIMIT 1; drop table expenses",
	}
	for _, sql := range reject {
		err := Validate(sql)
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Reason != ReasonBlockedKeyword {
			t.Fatalf("Validate(%q) expected blocked-keyword rejection, got %v", sql, err)
		}
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Reason: ReasonMissingLimit}
	if err.Error() != "statement rejected: missing-limit-clause" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}
