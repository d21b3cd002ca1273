package litmus

import (
	"fmt"
	"strings"
)

// BranchCondition represents a branch-condition tree: comparison rule leaves
// combined by n-ary logical groups.
type BranchCondition interface {
	cond()
}

func (*CondRule) cond()  {}
func (*CondGroup) cond() {}

// CmpOp represents a comparison operator in a condition rule.
type CmpOp int

const (
	CmpEQ CmpOp = iota
	CmpNE
	CmpLT
	CmpLE
	CmpGT
	CmpGE
)

var cmpOps = [...]string{
	CmpEQ: "==",
	CmpNE: "!=",
	CmpLT: "<",
	CmpLE: "<=",
	CmpGT: ">",
	CmpGE: ">=",
}

// String returns the string representation of the operator.
func (op CmpOp) String() string {
	if op >= 0 && int(op) < len(cmpOps) {
		return cmpOps[op]
	}
	return fmt.Sprintf("CmpOp<%d>", op)
}

// Negate returns the complement operator.
func (op CmpOp) Negate() CmpOp {
	switch op {
	case CmpEQ:
		return CmpNE
	case CmpNE:
		return CmpEQ
	case CmpLT:
		return CmpGE
	case CmpLE:
		return CmpGT
	case CmpGT:
		return CmpLE
	case CmpGE:
		return CmpLT
	default:
		panic("unreachable")
	}
}

// LogicOp represents a logical connective between adjacent group items.
type LogicOp int

const (
	LogicAnd LogicOp = iota
	LogicOr
)

// String returns the string representation of the connective.
func (op LogicOp) String() string {
	if op == LogicAnd {
		return "&&"
	}
	return "||"
}

// Negate returns the dual connective.
func (op LogicOp) Negate() LogicOp {
	if op == LogicAnd {
		return LogicOr
	}
	return LogicAnd
}

// Evaluation overrides how a rule is evaluated by the editor.
type Evaluation int

const (
	EvalNatural Evaluation = iota
	EvalTrue
	EvalFalse
)

// CondRule represents a single comparison between two memory variables.
// Either operand id may be empty when an identifier did not resolve; the
// rule stays structurally valid but is not evaluable.
type CondRule struct {
	LHSID      string
	RHSID      string
	Op         CmpOp
	Evaluation Evaluation
}

// CondGroup represents an ordered list of child conditions with one logical
// connective between each adjacent pair. Invariant: len(Ops) ==
// max(0, len(Items)-1).
type CondGroup struct {
	Items []BranchCondition
	Ops   []LogicOp
}

// validGroup reports whether the group honors the operator-count invariant.
func (g *CondGroup) validGroup() bool {
	want := len(g.Items) - 1
	if want < 0 {
		want = 0
	}
	return len(g.Ops) == want
}

// BuildCondition lowers a parsed condition expression into a BranchCondition
// tree. resolve maps an identifier to a memory-variable id; numeric literals
// are interned through the constant pool.
func BuildCondition(expr CondExpr, resolve func(name string) (string, bool), consts *ConstantPool) BranchCondition {
	switch expr := expr.(type) {
	case *BinaryCondExpr:
		if expr.Logic() {
			return buildGroup(expr, resolve, consts)
		}
		return &CondRule{
			LHSID: operandID(expr.LHS, resolve, consts),
			RHSID: operandID(expr.RHS, resolve, consts),
			Op:    expr.Cmp,
		}
	case *NotCondExpr:
		return NegateCondition(BuildCondition(expr.X, resolve, consts))
	case *IdentExpr:
		// C truthiness: a bare identifier means x != 0.
		return truthRule(operandID(expr, resolve, consts), consts)
	case *NumberExpr:
		return truthRule(consts.Intern(expr.Text), consts)
	default:
		panic("unreachable")
	}
}

func truthRule(lhs string, consts *ConstantPool) *CondRule {
	return &CondRule{LHSID: lhs, RHSID: consts.Intern("0"), Op: CmpNE}
}

// buildGroup flattens a chain of same-connective binary nodes into one n-ary
// group instead of nested binary groups.
func buildGroup(expr *BinaryCondExpr, resolve func(string) (string, bool), consts *ConstantPool) *CondGroup {
	g := &CondGroup{}
	var flatten func(e CondExpr)
	flatten = func(e CondExpr) {
		if b, ok := e.(*BinaryCondExpr); ok && b.Logic() && b.Log == expr.Log {
			flatten(b.LHS)
			g.Ops = append(g.Ops, b.Log)
			flatten(b.RHS)
			return
		}
		g.Items = append(g.Items, BuildCondition(e, resolve, consts))
	}
	flatten(expr)
	assert(g.validGroup(), "group operator count: %d items, %d ops", len(g.Items), len(g.Ops))
	return g
}

// operandID resolves a leaf expression to a memory-variable id. Unresolved
// identifiers yield an empty id.
func operandID(expr CondExpr, resolve func(string) (string, bool), consts *ConstantPool) string {
	switch expr := expr.(type) {
	case *IdentExpr:
		if id, ok := resolve(expr.Name); ok {
			return id
		}
		return ""
	case *NumberExpr:
		return consts.Intern(expr.Text)
	default:
		// Nested comparisons as operands are outside the condition
		// model; treat them as unresolved.
		return ""
	}
}

// NegateCondition returns the logical complement of a condition: rules flip
// their comparison operator, groups apply De Morgan's laws.
func NegateCondition(c BranchCondition) BranchCondition {
	switch c := c.(type) {
	case *CondRule:
		return &CondRule{LHSID: c.LHSID, RHSID: c.RHSID, Op: c.Op.Negate(), Evaluation: c.Evaluation}
	case *CondGroup:
		g := &CondGroup{Ops: make([]LogicOp, len(c.Ops))}
		for _, item := range c.Items {
			g.Items = append(g.Items, NegateCondition(item))
		}
		for i, op := range c.Ops {
			g.Ops[i] = op.Negate()
		}
		return g
	default:
		panic("unreachable")
	}
}

// ConditionOperands returns every memory-variable id referenced by the
// condition tree, in left-to-right order, skipping empty ids.
func ConditionOperands(c BranchCondition) []string {
	var ids []string
	var walk func(BranchCondition)
	walk = func(c BranchCondition) {
		switch c := c.(type) {
		case *CondRule:
			if c.LHSID != "" {
				ids = append(ids, c.LHSID)
			}
			if c.RHSID != "" {
				ids = append(ids, c.RHSID)
			}
		case *CondGroup:
			for _, item := range c.Items {
				walk(item)
			}
		}
	}
	if c != nil {
		walk(c)
	}
	return ids
}

// FormatCondition renders a condition tree as C expression text. names maps a
// memory-variable id to its display text; a nil map falls back to raw ids.
func FormatCondition(c BranchCondition, names func(id string) string) string {
	if names == nil {
		names = func(id string) string { return id }
	}
	switch c := c.(type) {
	case nil:
		return "?"
	case *CondRule:
		lhs, rhs := "?", "?"
		if c.LHSID != "" {
			lhs = names(c.LHSID)
		}
		if c.RHSID != "" {
			rhs = names(c.RHSID)
		}
		return fmt.Sprintf("%s %s %s", lhs, c.Op, rhs)
	case *CondGroup:
		var sb strings.Builder
		for i, item := range c.Items {
			if i > 0 {
				fmt.Fprintf(&sb, " %s ", c.Ops[i-1])
			}
			if _, ok := item.(*CondGroup); ok {
				sb.WriteString("(" + FormatCondition(item, names) + ")")
			} else {
				sb.WriteString(FormatCondition(item, names))
			}
		}
		return sb.String()
	default:
		panic("unreachable")
	}
}
