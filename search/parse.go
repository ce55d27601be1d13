package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tonearm/tonearm/index"
)

// Parse turns a user-typed query string into an Expression.
//
// Grammar, one clause per whitespace-separated token:
//
//	word                fuzzy match across all text fields
//	"quoted words"      fuzzy match, spaces preserved
//	field:value         text field contains value
//	field=value         text field equals value / number field equals
//	field>n field>=n    number field comparisons (also < and <=)
//	or                  combines the surrounding clauses with Or
//
// Clauses are otherwise combined with And. Field and operator validity
// is checked here; an invalid combination fails parsing, never
// evaluation.
func Parse(query string) (Expression, error) {
	tokens, err := splitTokens(query)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, ErrEmptyQuery
	}

	var expr Expression
	pendingOr := false

	for _, token := range tokens {
		if strings.EqualFold(token, "or") {
			if expr == nil {
				return nil, fmt.Errorf("%w: leading 'or'", ErrSyntax)
			}
			pendingOr = true
			continue
		}

		clause, err := parseClause(token)
		if err != nil {
			return nil, err
		}

		switch {
		case expr == nil:
			expr = clause
		case pendingOr:
			expr = Or(expr, clause)
			pendingOr = false
		default:
			expr = And(expr, clause)
		}
	}

	if pendingOr {
		return nil, fmt.Errorf("%w: trailing 'or'", ErrSyntax)
	}
	if expr == nil {
		return nil, ErrEmptyQuery
	}

	return expr, nil
}

// splitTokens separates the query on whitespace while keeping quoted
// sections intact, including around the field separator in forms like
// album:"the hunted".
func splitTokens(query string) ([]string, error) {
	var tokens []string
	var current strings.Builder
	inQuote := false

	for _, r := range query {
		switch {
		case r == '"':
			inQuote = !inQuote
		case !inQuote && (r == ' ' || r == '\t' || r == '\n'):
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}

	if inQuote {
		return nil, fmt.Errorf("%w: unterminated quote", ErrSyntax)
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}

	return tokens, nil
}

var comparators = []string{">=", "<=", ">", "<", "=", ":"}

func parseClause(token string) (Expression, error) {
	for _, cmp := range comparators {
		idx := strings.Index(token, cmp)
		if idx <= 0 || idx+len(cmp) >= len(token) {
			continue
		}

		field := token[:idx]
		value := token[idx+len(cmp):]
		return parseComparison(field, cmp, value)
	}

	return Fuzzy(token), nil
}

func parseComparison(field, cmp, value string) (Expression, error) {
	if tf, ok := textFieldByName(field); ok {
		switch cmp {
		case ":":
			return TextCmp(tf, Contains, value)
		case "=":
			return TextCmp(tf, Equals, value)
		default:
			return nil, fmt.Errorf("%w: %s on text field %s", ErrInvalidOperatorForField, cmp, field)
		}
	}

	if nf, ok := numberFieldByName(field); ok {
		var op NumberOp
		switch cmp {
		case "=":
			op = Eq
		case "<":
			op = Lt
		case "<=":
			op = Lte
		case ">":
			op = Gt
		case ">=":
			op = Gte
		default:
			return nil, fmt.Errorf("%w: %s on number field %s", ErrInvalidOperatorForField, cmp, field)
		}

		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrSyntax, value)
		}
		return NumberCmp(nf, op, n)
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
}

func textFieldByName(name string) (index.TextField, bool) {
	switch strings.ToLower(name) {
	case "title":
		return index.FieldTitle, true
	case "artist":
		return index.FieldArtist, true
	case "albumartist":
		return index.FieldAlbumArtist, true
	case "album":
		return index.FieldAlbum, true
	case "path":
		return index.FieldPath, true
	default:
		return 0, false
	}
}

func numberFieldByName(name string) (index.NumberField, bool) {
	switch strings.ToLower(name) {
	case "year":
		return index.FieldYear, true
	case "track", "tracknumber":
		return index.FieldTrackNumber, true
	case "disc", "discnumber":
		return index.FieldDiscNumber, true
	case "duration":
		return index.FieldDuration, true
	default:
		return 0, false
	}
}
