package search

import (
	"strings"
	"unicode"

	"github.com/tonearm/tonearm/index"
)

// Evaluate resolves an expression into the songs it matches within the
// given snapshot, sorted by virtual path for deterministic results.
func Evaluate(expr Expression, snap *index.Snapshot) []index.SongKey {
	if expr == nil {
		return nil
	}
	return index.SortKeys(evalSet(expr, snap))
}

// evalSet is a direct recursive walk of the expression tree. And and Or
// always evaluate both sides; the set operations need both operands.
func evalSet(expr Expression, snap *index.Snapshot) index.KeySet {
	switch e := expr.(type) {
	case fuzzyExpr:
		return evalFuzzy(e, snap)
	case textCmpExpr:
		return evalTextCmp(e, snap)
	case numberCmpExpr:
		return evalNumberCmp(e, snap)
	case andExpr:
		return intersect(evalSet(e.left, snap), evalSet(e.right, snap))
	case orExpr:
		return union(evalSet(e.left, snap), evalSet(e.right, snap))
	default:
		return index.KeySet{}
	}
}

func evalFuzzy(e fuzzyExpr, snap *index.Snapshot) index.KeySet {
	tokens := Tokenize(e.term)
	if len(tokens) == 0 {
		return index.KeySet{}
	}

	out := index.KeySet{}
	for _, token := range tokens {
		for k := range snap.FuzzyToken(token) {
			out[k] = struct{}{}
		}
	}
	return out
}

func evalTextCmp(e textCmpExpr, snap *index.Snapshot) index.KeySet {
	switch e.op {
	case Equals:
		return snap.TextEquals(e.field, e.value)
	case Contains:
		return snap.TextContains(e.field, e.value)
	default:
		return index.KeySet{}
	}
}

func evalNumberCmp(e numberCmpExpr, snap *index.Snapshot) index.KeySet {
	switch e.op {
	case Eq:
		return snap.NumberEquals(e.field, e.value)
	case Lt:
		return snap.NumberBelow(e.field, e.value, false)
	case Lte:
		return snap.NumberBelow(e.field, e.value, true)
	case Gt:
		return snap.NumberAbove(e.field, e.value, false)
	case Gte:
		return snap.NumberAbove(e.field, e.value, true)
	default:
		return index.KeySet{}
	}
}

func intersect(a, b index.KeySet) index.KeySet {
	if len(b) < len(a) {
		a, b = b, a
	}
	out := index.KeySet{}
	for k := range a {
		if _, ok := b[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}

func union(a, b index.KeySet) index.KeySet {
	out := make(index.KeySet, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}

// Tokenize splits a term into lowercase word tokens, breaking on
// anything that is not a letter or digit.
func Tokenize(term string) []string {
	return strings.FieldsFunc(strings.ToLower(term), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
