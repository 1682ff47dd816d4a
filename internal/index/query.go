package index

import (
	"fmt"
	"strings"
	"unicode"
)

// ParseTerms analyzes query text into lower-cased search terms. A term is
// a maximal run of letters and digits. Text with unbalanced double quotes
// or parentheses, or with no terms at all, is rejected with
// ErrQuerySyntax.
func ParseTerms(text string) ([]string, error) {
	if strings.Count(text, `"`)%2 != 0 {
		return nil, fmt.Errorf("%w: unterminated quote in %q", ErrQuerySyntax, text)
	}
	depth := 0
	for _, r := range text {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("%w: unbalanced ')' in %q", ErrQuerySyntax, text)
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("%w: unbalanced '(' in %q", ErrQuerySyntax, text)
	}

	terms := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: no searchable terms in %q", ErrQuerySyntax, text)
	}
	return terms, nil
}
