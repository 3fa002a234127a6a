// Package query compiles parsed metadata queries into SQL.
//
// The package consumes an already-built expression tree (the metadata
// grammar parser is an external collaborator) in disjunctive normal
// form: an OR of AND-terms of atomic predicates over file or dataset
// attributes. Compilation is purely syntactic - it produces WHERE
// fragments and full SELECT statements against the catalog schema, with
// metadata predicates expressed in PostgreSQL's jsonpath dialect.
package query

import "fmt"

// Op is the operator of an atomic predicate.
type Op string

const (
	OpPresent    Op = "present"
	OpNotPresent Op = "not_present"
	OpCmp        Op = "cmp_op"
	OpInRange    Op = "in_range"
	OpNotInRange Op = "not_in_range"
	OpInSet      Op = "in_set"
	OpNotInSet   Op = "not_in_set"
)

// Shape is the argument shape of a predicate's attribute reference.
type Shape string

const (
	// Scalar is a bare name: a fixed column or a top-level JSON key.
	Scalar Shape = "scalar"
	// ArraySubscript projects one element: name[i], i integer or string.
	ArraySubscript Shape = "array_subscript"
	// ArrayAny quantifies existentially over an array: name[*].
	ArrayAny Shape = "array_any"
	// ArrayLength compares the array's length: length(name).
	ArrayLength Shape = "array_length"
)

// Attr references the attribute a predicate tests.
type Attr struct {
	Shape Shape  `json:"shape"`
	Name  string `json:"name"`
	Index any    `json:"index,omitempty"` // array_subscript only; int or string
}

// ScalarAttr references a bare attribute name.
func ScalarAttr(name string) Attr { return Attr{Shape: Scalar, Name: name} }

// SubscriptAttr references one array element, name[index].
func SubscriptAttr(name string, index any) Attr {
	return Attr{Shape: ArraySubscript, Name: name, Index: index}
}

// AnyAttr references any element of an array, name[*].
func AnyAttr(name string) Attr { return Attr{Shape: ArrayAny, Name: name} }

// LengthAttr references an array's length, length(name).
func LengthAttr(name string) Attr { return Attr{Shape: ArrayLength, Name: name} }

func (a Attr) String() string {
	switch a.Shape {
	case ArraySubscript:
		return fmt.Sprintf("%s[%v]", a.Name, a.Index)
	case ArrayAny:
		return a.Name + "[*]"
	case ArrayLength:
		return "length(" + a.Name + ")"
	default:
		return a.Name
	}
}

// Predicate is one atomic test. The payload fields used depend on Op:
// Cmp+Value for cmp_op, Low/High for ranges, Set for set membership.
// Neg negates the whole predicate; where the compiled form can absorb
// the negation (array-length not between / not in) no outer "not" is
// emitted, and double negations cancel.
type Predicate struct {
	Op   Op   `json:"op"`
	Attr Attr `json:"attr"`
	Neg  bool `json:"neg,omitempty"`

	Cmp   string `json:"cmp,omitempty"`   // cmp_op: < <= > >= = == != ~ ~* !~ !~*
	Value any    `json:"value,omitempty"` // cmp_op literal
	Low   any    `json:"low,omitempty"`   // ranges
	High  any    `json:"high,omitempty"`
	Set   []any  `json:"set,omitempty"` // set membership
}

// Negated returns a copy of the predicate with the negation flag
// flipped.
func (p Predicate) Negated() Predicate {
	p.Neg = !p.Neg
	return p
}

// Present tests that the attribute exists.
func Present(name string) Predicate {
	return Predicate{Op: OpPresent, Attr: ScalarAttr(name)}
}

// NotPresent tests that the attribute does not exist.
func NotPresent(name string) Predicate {
	return Predicate{Op: OpNotPresent, Attr: ScalarAttr(name)}
}

// Cmp compares an attribute against a literal with the given operator.
func Cmp(attr Attr, op string, value any) Predicate {
	return Predicate{Op: OpCmp, Attr: attr, Cmp: op, Value: value}
}

// InRange tests low <= attr <= high.
func InRange(attr Attr, low, high any) Predicate {
	return Predicate{Op: OpInRange, Attr: attr, Low: low, High: high}
}

// NotInRange tests attr < low or attr > high.
func NotInRange(attr Attr, low, high any) Predicate {
	return Predicate{Op: OpNotInRange, Attr: attr, Low: low, High: high}
}

// InSet tests membership in a literal set.
func InSet(attr Attr, values ...any) Predicate {
	return Predicate{Op: OpInSet, Attr: attr, Set: values}
}

// NotInSet tests absence from a literal set.
func NotInSet(attr Attr, values ...any) Predicate {
	return Predicate{Op: OpNotInSet, Attr: attr, Set: values}
}

// AndTerm is a conjunction of atomic predicates.
type AndTerm []Predicate

// DNF is a disjunction of AndTerms. An empty DNF means "no condition":
// it compiles to no WHERE clause at all.
type DNF []AndTerm

// And builds a single-term DNF from predicates.
func And(preds ...Predicate) DNF { return DNF{AndTerm(preds)} }

// Or combines and-terms into a DNF.
func Or(terms ...AndTerm) DNF { return DNF(terms) }
