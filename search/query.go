// Package search evaluates boolean query expressions against an index
// snapshot's inverted structures, returning path-ordered song keys.
package search

import (
	"errors"
	"fmt"

	"github.com/tonearm/tonearm/index"
)

// Construction-time query errors. Evaluation never sees an invalid node.
var (
	ErrUnknownField            = errors.New("search: unknown field")
	ErrInvalidOperatorForField = errors.New("search: operator not valid for field")
	ErrEmptyQuery              = errors.New("search: empty query")
	ErrSyntax                  = errors.New("search: malformed query")
)

// TextOp compares a text field against a string value.
type TextOp int

const (
	Equals TextOp = iota
	Contains
)

// NumberOp compares a numeric field against an integer value.
type NumberOp int

const (
	Eq NumberOp = iota
	Lt
	Lte
	Gt
	Gte
)

// Expression is the closed sum of query node shapes. Construct nodes
// through the package constructors so field/operator combinations are
// validated before evaluation.
type Expression interface {
	expression()
}

type fuzzyExpr struct {
	term string
}

type textCmpExpr struct {
	field index.TextField
	op    TextOp
	value string
}

type numberCmpExpr struct {
	field index.NumberField
	op    NumberOp
	value int
}

type andExpr struct {
	left, right Expression
}

type orExpr struct {
	left, right Expression
}

func (fuzzyExpr) expression()     {}
func (textCmpExpr) expression()   {}
func (numberCmpExpr) expression() {}
func (andExpr) expression()       {}
func (orExpr) expression()        {}

// Fuzzy matches songs where any text field contains any lowercase token
// of term as a substring.
func Fuzzy(term string) Expression {
	return fuzzyExpr{term: term}
}

// TextCmp compares one of the text fields (Title, Artist, AlbumArtist,
// Album, Path) against value.
func TextCmp(field index.TextField, op TextOp, value string) (Expression, error) {
	if field < index.FieldTitle || field > index.FieldPath {
		return nil, fmt.Errorf("%w: %d", ErrUnknownField, field)
	}
	if op != Equals && op != Contains {
		return nil, fmt.Errorf("%w: text op %d on %s", ErrInvalidOperatorForField, op, field)
	}
	return textCmpExpr{field: field, op: op, value: value}, nil
}

// NumberCmp compares one of the numeric fields (Year, TrackNumber,
// DiscNumber, Duration) against value.
func NumberCmp(field index.NumberField, op NumberOp, value int) (Expression, error) {
	if field < index.FieldYear || field > index.FieldDuration {
		return nil, fmt.Errorf("%w: %d", ErrUnknownField, field)
	}
	if op < Eq || op > Gte {
		return nil, fmt.Errorf("%w: number op %d on %s", ErrInvalidOperatorForField, op, field)
	}
	return numberCmpExpr{field: field, op: op, value: value}, nil
}

// And matches songs satisfying both subexpressions.
func And(left, right Expression) Expression {
	return andExpr{left: left, right: right}
}

// Or matches songs satisfying either subexpression.
func Or(left, right Expression) Expression {
	return orExpr{left: left, right: right}
}
