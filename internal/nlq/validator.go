package nlq

import (
	"strings"
	"unicode"
)

// Reason identifies why a statement was rejected by Validate.
type Reason string

const (
	ReasonNotReadStatement   Reason = "not-a-read-statement"
	ReasonBlockedKeyword     Reason = "contains-blocked-keyword"
	ReasonMultipleStatements Reason = "multiple-statements"
	ReasonMissingLimit       Reason = "missing-limit-clause"
)

// ValidationError is returned by Validate when a statement fails the
// allow-list policy. All rejections are recoverable by the caller.
type ValidationError struct {
	Reason Reason
}

func (e *ValidationError) Error() string {
	return "statement rejected: " + string(e.Reason)
}

// blockedKeywords are rejected wherever they appear as a keyword token.
// String literals, quoted identifiers and comments are stripped before the
// scan, so a note containing "created" or a created_at column passes.
var blockedKeywords = map[string]bool{
	"DROP":     true,
	"DELETE":   true,
	"INSERT":   true,
	"UPDATE":   true,
	"ALTER":    true,
	"TRUNCATE": true,
	"CREATE":   true,
}

// Validate enforces the read-only allow-list policy on a caller-supplied
// statement: it must start with SELECT, carry no write/DDL keyword, be a
// single statement, and contain an explicit LIMIT clause. A nil return
// means the statement may be handed to the executor.
func Validate(sql string) error {
	tokens := tokenize(sql)
	if len(tokens) == 0 || tokens[0] != "SELECT" {
		return &ValidationError{Reason: ReasonNotReadStatement}
	}
	for _, tok := range tokens {
		if blockedKeywords[tok] {
			return &ValidationError{Reason: ReasonBlockedKeyword}
		}
	}
	for i, tok := range tokens {
		if tok == ";" && hasStatementAfter(tokens[i+1:]) {
			return &ValidationError{Reason: ReasonMultipleStatements}
		}
	}
	for _, tok := range tokens {
		if tok == "LIMIT" {
			return nil
		}
	}
	return &ValidationError{Reason: ReasonMissingLimit}
}

func hasStatementAfter(rest []string) bool {
	for _, tok := range rest {
		if tok != ";" {
			return true
		}
	}
	return false
}

// tokenize splits a statement into upper-cased word and punctuation tokens,
// skipping string literals ('...', with '' escapes), quoted identifiers
// ("..."), line comments (--) and block comments (/* */). The statement
// separator ';' is emitted as its own token; other punctuation is dropped.
func tokenize(sql string) []string {
	var tokens []string
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, strings.ToUpper(word.String()))
			word.Reset()
		}
	}

	runes := []rune(sql)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\'':
			flush()
			i = skipQuoted(runes, i, '\'')
		case r == '"':
			flush()
			i = skipQuoted(runes, i, '"')
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			flush()
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			flush()
			i += 2
			for i+1 < len(runes) && !(runes[i] == '*' && runes[i+1] == '/') {
				i++
			}
			i++ // past the closing slash
		case r == ';':
			flush()
			tokens = append(tokens, ";")
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}

// skipQuoted returns the index of the closing quote, honoring doubled-quote
// escapes. An unterminated literal consumes the rest of the input.
func skipQuoted(runes []rune, start int, quote rune) int {
	i := start + 1
	for i < len(runes) {
		if runes[i] == quote {
			if i+1 < len(runes) && runes[i+1] == quote {
				i += 2
				continue
			}
			return i
		}
		i++
	}
	return i
}
