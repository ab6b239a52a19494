package filter

import "github.com/edgevec/edgevec/internal/apperr"

// newLexError and newParseError both surface as apperr.FilterParseError
// carrying the one-based character offset of the failure and a short
// message.

func newLexError(pos int, msg string) error {
	return apperr.NewParse("filter.Parse", pos, msg)
}

func newParseError(pos int, msg string) error {
	return apperr.NewParse("filter.Parse", pos, msg)
}
