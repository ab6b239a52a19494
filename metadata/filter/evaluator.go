package filter

import (
	"strings"

	"github.com/edgevec/edgevec/metadata"
)

// Evaluator is a compiled filter expression, a stateless closure tree
// ready to be applied to any number of metadata maps.
type Evaluator func(doc metadata.Map) bool

// Compile turns an Expr into a stateless Evaluator closure tree. Compiling
// once and reusing the Evaluator across every candidate in a filtered
// search avoids re-walking the AST per document.
func Compile(expr Expr) Evaluator {
	switch e := expr.(type) {
	case *Or:
		left, right := Compile(e.Left), Compile(e.Right)
		return func(doc metadata.Map) bool { return left(doc) || right(doc) }
	case *And:
		left, right := Compile(e.Left), Compile(e.Right)
		return func(doc metadata.Map) bool { return left(doc) && right(doc) }
	case *Not:
		inner := Compile(e.Inner)
		return func(doc metadata.Map) bool { return !inner(doc) }
	case *Comparison:
		return compileComparison(e)
	default:
		return func(metadata.Map) bool { return false }
	}
}

// Eval parses and compiles src, then evaluates it against doc directly.
// Callers evaluating the same expression against many documents should
// call Parse+Compile once instead.
func Eval(src string, doc metadata.Map) (bool, error) {
	expr, err := Parse(src)
	if err != nil {
		return false, err
	}
	return Compile(expr)(doc), nil
}

func compileComparison(c *Comparison) Evaluator {
	field := c.Field

	if c.Op == OpIsNull {
		return func(doc metadata.Map) bool {
			_, ok := doc[field]
			return !ok
		}
	}
	if c.Op == OpIsNotNull {
		return func(doc metadata.Map) bool {
			_, ok := doc[field]
			return ok
		}
	}

	return func(doc metadata.Map) bool {
		v, ok := doc[field]
		if !ok {
			return false
		}
		switch c.Op {
		case OpEq:
			return valueEqualsLiteral(v, c.Value)
		case OpNe:
			return !valueEqualsLiteral(v, c.Value)
		case OpLt, OpLe, OpGt, OpGe:
			return compareNumeric(v, c.Value, c.Op)
		case OpContains:
			return evalContains(v, c.Value)
		case OpIn:
			return evalIn(v, c.List)
		case OpBetween:
			return compareNumeric(v, c.Value, OpGe) && compareNumeric(v, c.Value2, OpLe)
		default:
			return false
		}
	}
}

func valueEqualsLiteral(v metadata.Value, lit Literal) bool {
	switch v.Kind {
	case metadata.KindString:
		return lit.Kind == LitString && v.Str == lit.Str
	case metadata.KindF64:
		return lit.Kind == LitNumber && v.Num == lit.Num
	case metadata.KindBool:
		return lit.Kind == LitBool && v.Bool == lit.Bool
	default:
		return false
	}
}

func compareNumeric(v metadata.Value, lit Literal, op CompOp) bool {
	if v.Kind != metadata.KindF64 || lit.Kind != LitNumber {
		return false
	}
	switch op {
	case OpLt:
		return v.Num < lit.Num
	case OpLe:
		return v.Num <= lit.Num
	case OpGt:
		return v.Num > lit.Num
	case OpGe:
		return v.Num >= lit.Num
	default:
		return false
	}
}

func evalContains(v metadata.Value, lit Literal) bool {
	switch v.Kind {
	case metadata.KindStringList:
		if lit.Kind != LitString {
			return false
		}
		for _, e := range v.List {
			if e == lit.Str {
				return true
			}
		}
		return false
	case metadata.KindString:
		return lit.Kind == LitString && strings.Contains(v.Str, lit.Str)
	default:
		return false
	}
}

func evalIn(v metadata.Value, list []Literal) bool {
	for _, lit := range list {
		if valueEqualsLiteral(v, lit) {
			return true
		}
	}
	return false
}
