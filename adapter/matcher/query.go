package matcher

import "regexp"

// Numeric representations of supported logic operators.
const (
	And uint8 = iota
	Or
	Nor
)

// Numeric representations of supported operators.
const (
	Eq uint8 = iota
	Ne
	Exists
	Lt
	Lte
	Gt
	Gte
	In
	Nin
	Regex
)

// Query stores a database query in a typed and easier to iterate struct. The
// root of a query always joins its children with [And].
type Query struct {
	Lo LogicOp
}

// LogicOp stores a logic operator (and, or, nor) and its children, which can be
// either a set of rules or a nested set of LogicOps. Rules and sub operators
// are joined by the operator type.
type LogicOp struct {
	Type  uint8
	Rules []FieldRule
	Sub   []LogicOp
}

// FieldRule stores a set of conditions used to match a given object field. An
// empty Addr targets the matched value itself.
type FieldRule struct {
	Addr  []string
	Conds []Cond
}

// Cond stores a single operation on a document field (such as $gt, $in).
type Cond struct {
	Op   uint8
	Val  any
	List []any
	Rgx  *regexp.Regexp
}
