package filter

import (
	"strconv"
	"strings"
)

// Format renders expr as a canonical, fully parenthesized filter string.
// Format is not meant to reproduce the input text a user typed: it
// guarantees that Parse(Format(e)) yields an AST structurally equal to
// e. Every Or and And node, and the operand of every Not, is wrapped in
// parentheses so reparsing cannot reassociate the tree differently than
// it was built.
func Format(expr Expr) string {
	var sb strings.Builder
	writeExpr(&sb, expr)
	return sb.String()
}

func writeExpr(sb *strings.Builder, expr Expr) {
	switch e := expr.(type) {
	case *Or:
		sb.WriteByte('(')
		writeExpr(sb, e.Left)
		sb.WriteString(" OR ")
		writeExpr(sb, e.Right)
		sb.WriteByte(')')
	case *And:
		sb.WriteByte('(')
		writeExpr(sb, e.Left)
		sb.WriteString(" AND ")
		writeExpr(sb, e.Right)
		sb.WriteByte(')')
	case *Not:
		sb.WriteString("NOT (")
		writeExpr(sb, e.Inner)
		sb.WriteByte(')')
	case *Comparison:
		writeComparison(sb, e)
	}
}

func writeComparison(sb *strings.Builder, c *Comparison) {
	sb.WriteString(c.Field)
	sb.WriteByte(' ')
	switch c.Op {
	case OpEq:
		sb.WriteString("== ")
		writeLiteral(sb, c.Value)
	case OpNe:
		sb.WriteString("!= ")
		writeLiteral(sb, c.Value)
	case OpLt:
		sb.WriteString("< ")
		writeLiteral(sb, c.Value)
	case OpLe:
		sb.WriteString("<= ")
		writeLiteral(sb, c.Value)
	case OpGt:
		sb.WriteString("> ")
		writeLiteral(sb, c.Value)
	case OpGe:
		sb.WriteString(">= ")
		writeLiteral(sb, c.Value)
	case OpContains:
		sb.WriteString("CONTAINS ")
		writeLiteral(sb, c.Value)
	case OpIn:
		sb.WriteString("IN [")
		for i, lit := range c.List {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeLiteral(sb, lit)
		}
		sb.WriteByte(']')
	case OpBetween:
		sb.WriteString("BETWEEN ")
		writeLiteral(sb, c.Value)
		sb.WriteString(" AND ")
		writeLiteral(sb, c.Value2)
	case OpIsNull:
		sb.WriteString("IS NULL")
	case OpIsNotNull:
		sb.WriteString("IS NOT NULL")
	}
}

func writeLiteral(sb *strings.Builder, lit Literal) {
	switch lit.Kind {
	case LitString:
		// The lexer reads a backslash as "take the next rune literally",
		// so only the quote and the backslash itself need escaping.
		sb.WriteByte('"')
		for _, r := range lit.Str {
			if r == '"' || r == '\\' {
				sb.WriteByte('\\')
			}
			sb.WriteRune(r)
		}
		sb.WriteByte('"')
	case LitNumber:
		// 'f' never emits an exponent, which the lexer does not accept.
		sb.WriteString(strconv.FormatFloat(lit.Num, 'f', -1, 64))
	case LitBool:
		if lit.Bool {
			sb.WriteString("TRUE")
		} else {
			sb.WriteString("FALSE")
		}
	}
}
