package query

import (
	"fmt"
	"strings"

	"github.com/filecat/filecat"
	"github.com/filecat/filecat/internal/sqlgen"
)

// FixedColumns are the file attributes stored as real table columns.
// Any other attribute name - and any name containing a '.' - refers to a
// top-level key of the metadata jsonb column.
var FixedColumns = map[string]bool{
	"creator":           true,
	"created_timestamp": true,
	"name":              true,
	"namespace":         true,
	"size":              true,
}

func isFixedColumn(a Attr) bool {
	return a.Shape == Scalar && !strings.Contains(a.Name, ".") && FixedColumns[a.Name]
}

// CompileDNF renders a DNF condition as a SQL boolean expression over
// the table aliased as alias. An empty DNF compiles to "" - the caller
// emits no WHERE clause at all.
func CompileDNF(dnf DNF, alias string) (string, error) {
	if len(dnf) == 0 {
		return "", nil
	}
	terms := make([]string, 0, len(dnf))
	for _, and := range dnf {
		t, err := compileAnd(and, alias)
		if err != nil {
			return "", err
		}
		terms = append(terms, t)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return "(" + strings.Join(terms, ") or (") + ")", nil
}

func compileAnd(and AndTerm, alias string) (string, error) {
	if len(and) == 0 {
		return "true", nil
	}
	parts := make([]string, 0, len(and))
	for _, p := range and {
		t, err := compilePredicate(p, alias)
		if err != nil {
			return "", err
		}
		parts = append(parts, "( "+t+" )")
	}
	return strings.Join(parts, " and "), nil
}

// compilePredicate renders one atomic predicate. The negate flag starts
// as the predicate's Neg and is consumed wherever the compiled form can
// absorb it (not between / not in on array length, flipped presence
// constants); whatever remains becomes one outer "not (...)", so double
// negations cancel instead of stacking.
func compilePredicate(p Predicate, alias string) (string, error) {
	negate := p.Neg
	attr := p.Attr
	fixed := isFixedColumn(attr)

	var term string
	var err error

	switch p.Op {
	case OpPresent, OpNotPresent:
		if p.Op == OpNotPresent {
			negate = !negate
		}
		if fixed {
			// Fixed columns always exist.
			term = "true"
		} else {
			term = fmt.Sprintf("%s.metadata ? %s", alias, sqlgen.QuoteString(attr.Name))
		}
		if term == "true" && negate {
			return "false", nil
		}

	case OpCmp:
		term, err = compileCmp(p, alias, fixed)

	case OpInRange, OpNotInRange:
		term, negate, err = compileRange(p, alias, fixed, negate)

	case OpInSet, OpNotInSet:
		term, negate, err = compileSet(p, alias, fixed, negate)

	default:
		return "", &filecat.CompileError{Reason: "unknown operator", Detail: string(p.Op)}
	}
	if err != nil {
		return "", err
	}

	if negate {
		term = "not ( " + term + " )"
	}
	return term, nil
}

// jsonPathHead builds the '$."key"' prefix of a jsonpath expression,
// with the subscript the argument shape calls for.
func jsonPathHead(attr Attr) (string, error) {
	head := "$." + sqlgen.JSONKey(attr.Name)
	switch attr.Shape {
	case Scalar, ArrayLength:
		return head, nil
	case ArrayAny:
		return head + "[*]", nil
	case ArraySubscript:
		idx, err := sqlgen.JSONLiteral(attr.Index)
		if err != nil {
			return "", &filecat.CompileError{Reason: "literal type", Detail: err.Error()}
		}
		return head + "[" + idx + "]", nil
	default:
		return "", &filecat.CompileError{Reason: "unknown argument shape", Detail: string(attr.Shape)}
	}
}

// arrayLengthExpr renders jsonb_array_length over the named top-level
// metadata key.
func arrayLengthExpr(alias, name string) string {
	return fmt.Sprintf("jsonb_array_length(%s.metadata -> %s)", alias, sqlgen.QuoteString(name))
}

var regexOps = map[string]bool{"~": true, "~*": true, "!~": true, "!~*": true}

func compileCmp(p Predicate, alias string, fixed bool) (string, error) {
	op := p.Cmp
	if op == "=" {
		op = "=="
	}

	if regexOps[op] {
		return compileRegex(p, alias, op, fixed)
	}

	switch op {
	case "==", "!=", "<", "<=", ">", ">=":
	default:
		return "", &filecat.CompileError{Reason: "unknown operator", Detail: p.Cmp}
	}

	if fixed || p.Attr.Shape == ArrayLength {
		lit, err := sqlgen.SQLLiteral(p.Value)
		if err != nil {
			return "", &filecat.CompileError{Reason: "literal type", Detail: err.Error()}
		}
		sqlOp := op
		if sqlOp == "==" {
			sqlOp = "="
		}
		lhs := alias + "." + p.Attr.Name
		if p.Attr.Shape == ArrayLength {
			lhs = arrayLengthExpr(alias, p.Attr.Name)
		}
		return fmt.Sprintf("%s %s %s", lhs, sqlOp, lit), nil
	}

	head, err := jsonPathHead(p.Attr)
	if err != nil {
		return "", err
	}
	lit, err := sqlgen.JSONLiteral(p.Value)
	if err != nil {
		return "", &filecat.CompileError{Reason: "literal type", Detail: err.Error()}
	}
	path := fmt.Sprintf("%s %s %s", head, op, lit)
	return fmt.Sprintf("%s.metadata @@ %s", alias, sqlgen.QuoteString(path)), nil
}

// compileRegex renders ~ ~* !~ !~* as a jsonpath like_regex filter.
// Case insensitivity is a single flag "i"; the !-forms negate inside the
// filter so existential semantics over name[*] stay correct.
func compileRegex(p Predicate, alias, op string, fixed bool) (string, error) {
	pattern, ok := p.Value.(string)
	if !ok {
		return "", &filecat.CompileError{
			Reason: "literal type",
			Detail: fmt.Sprintf("regex pattern must be a string, got %T", p.Value),
		}
	}
	if fixed || p.Attr.Shape == ArrayLength {
		return "", &filecat.CompileError{
			Reason: "unknown operator",
			Detail: fmt.Sprintf("regex match on %s", p.Attr.String()),
		}
	}

	lit, err := sqlgen.JSONLiteral(pattern)
	if err != nil {
		return "", &filecat.CompileError{Reason: "literal type", Detail: err.Error()}
	}
	pred := "@ like_regex " + lit
	if strings.HasSuffix(op, "*") {
		pred += ` flag "i"`
	}
	if strings.HasPrefix(op, "!") {
		pred = "!(" + pred + ")"
	}

	head, err := jsonPathHead(p.Attr)
	if err != nil {
		return "", err
	}
	path := fmt.Sprintf("%s ? (%s)", head, pred)
	return fmt.Sprintf("%s.metadata @? %s", alias, sqlgen.QuoteString(path)), nil
}

func compileRange(p Predicate, alias string, fixed, negate bool) (string, bool, error) {
	inverted := p.Op == OpNotInRange

	if fixed || p.Attr.Shape == ArrayLength {
		low, err := sqlgen.SQLLiteral(p.Low)
		if err != nil {
			return "", false, &filecat.CompileError{Reason: "literal type", Detail: err.Error()}
		}
		high, err := sqlgen.SQLLiteral(p.High)
		if err != nil {
			return "", false, &filecat.CompileError{Reason: "literal type", Detail: err.Error()}
		}
		lhs := alias + "." + p.Attr.Name
		if p.Attr.Shape == ArrayLength {
			lhs = arrayLengthExpr(alias, p.Attr.Name)
		}
		// Absorb the negation into [not] between.
		if inverted != negate {
			return fmt.Sprintf("%s not between %s and %s", lhs, low, high), false, nil
		}
		return fmt.Sprintf("%s between %s and %s", lhs, low, high), false, nil
	}

	head, err := jsonPathHead(p.Attr)
	if err != nil {
		return "", false, err
	}
	low, err := sqlgen.JSONLiteral(p.Low)
	if err != nil {
		return "", false, &filecat.CompileError{Reason: "literal type", Detail: err.Error()}
	}
	high, err := sqlgen.JSONLiteral(p.High)
	if err != nil {
		return "", false, &filecat.CompileError{Reason: "literal type", Detail: err.Error()}
	}
	var path string
	if inverted {
		path = fmt.Sprintf("%s ? (@ < %s || @ > %s)", head, low, high)
	} else {
		path = fmt.Sprintf("%s ? (@ >= %s && @ <= %s)", head, low, high)
	}
	return fmt.Sprintf("%s.metadata @? %s", alias, sqlgen.QuoteString(path)), negate, nil
}

func compileSet(p Predicate, alias string, fixed, negate bool) (string, bool, error) {
	if len(p.Set) == 0 {
		return "", false, &filecat.CompileError{Reason: "literal type", Detail: "empty literal set"}
	}
	inverted := p.Op == OpNotInSet

	if fixed || p.Attr.Shape == ArrayLength {
		lits := make([]string, 0, len(p.Set))
		for _, v := range p.Set {
			lit, err := sqlgen.SQLLiteral(v)
			if err != nil {
				return "", false, &filecat.CompileError{Reason: "literal type", Detail: err.Error()}
			}
			lits = append(lits, lit)
		}
		lhs := alias + "." + p.Attr.Name
		if p.Attr.Shape == ArrayLength {
			lhs = arrayLengthExpr(alias, p.Attr.Name)
		}
		if inverted != negate {
			return fmt.Sprintf("%s not in (%s)", lhs, strings.Join(lits, ", ")), false, nil
		}
		return fmt.Sprintf("%s in (%s)", lhs, strings.Join(lits, ", ")), false, nil
	}

	head, err := jsonPathHead(p.Attr)
	if err != nil {
		return "", false, err
	}
	lits := make([]string, 0, len(p.Set))
	for _, v := range p.Set {
		lit, err := sqlgen.JSONLiteral(v)
		if err != nil {
			return "", false, &filecat.CompileError{Reason: "literal type", Detail: err.Error()}
		}
		lits = append(lits, lit)
	}
	var path string
	if inverted {
		parts := make([]string, len(lits))
		for i, lit := range lits {
			parts[i] = "@ != " + lit
		}
		path = fmt.Sprintf("%s ? (%s)", head, strings.Join(parts, " && "))
	} else {
		parts := make([]string, len(lits))
		for i, lit := range lits {
			parts[i] = "@ == " + lit
		}
		path = fmt.Sprintf("%s ? (%s)", head, strings.Join(parts, " || "))
	}
	return fmt.Sprintf("%s.metadata @? %s", alias, sqlgen.QuoteString(path)), negate, nil
}
