package litmus

import "fmt"

// Operation represents a single memory operation attached to a trace node.
type Operation interface {
	Kind() OpKind
	op()
}

func (*Load) op()        {}
func (*Store) op()       {}
func (*RMW) op()         {}
func (*Fence) op()       {}
func (*Branch) op()      {}
func (*Retry) op()       {}
func (*ReturnTrue) op()  {}
func (*ReturnFalse) op() {}

// OpKind represents the discriminant of an Operation.
type OpKind int

const (
	OpLoad OpKind = iota
	OpStore
	OpRMW
	OpFence
	OpBranch
	OpRetry
	OpReturnTrue
	OpReturnFalse
)

var opKinds = [...]string{
	OpLoad:        "LOAD",
	OpStore:       "STORE",
	OpRMW:         "RMW",
	OpFence:       "FENCE",
	OpBranch:      "BRANCH",
	OpRetry:       "RETRY",
	OpReturnTrue:  "RETURN_TRUE",
	OpReturnFalse: "RETURN_FALSE",
}

// String returns the string representation of the kind.
func (k OpKind) String() string {
	if k >= 0 && int(k) < len(opKinds) {
		return opKinds[k]
	}
	return fmt.Sprintf("OpKind<%d>", k)
}

// Load represents a read from a memory location into a register.
type Load struct {
	AddressID   string
	IndexID     string
	MemberID    string
	ResultID    string
	MemoryOrder string
}

// Kind returns OpLoad.
func (*Load) Kind() OpKind { return OpLoad }

// String returns the string representation of the operation.
func (o *Load) String() string {
	return fmt.Sprintf("(load %s -> %s)", o.AddressID, o.ResultID)
}

// Store represents a write of a value to a memory location.
type Store struct {
	AddressID   string
	IndexID     string
	MemberID    string
	ValueID     string
	MemoryOrder string
}

// Kind returns OpStore.
func (*Store) Kind() OpKind { return OpStore }

// String returns the string representation of the operation.
func (o *Store) String() string {
	return fmt.Sprintf("(store %s <- %s)", o.AddressID, o.ValueID)
}

// RMW represents a compare-and-swap with expected/desired operands and a
// result register receiving the old value.
type RMW struct {
	AddressID          string
	IndexID            string
	MemberID           string
	ExpectedValueID    string
	DesiredValueID     string
	ResultID           string
	SuccessMemoryOrder string
	FailureMemoryOrder string
}

// Kind returns OpRMW.
func (*RMW) Kind() OpKind { return OpRMW }

// String returns the string representation of the operation.
func (o *RMW) String() string {
	return fmt.Sprintf("(rmw %s %s/%s -> %s)", o.AddressID, o.ExpectedValueID, o.DesiredValueID, o.ResultID)
}

// Fence represents a memory barrier. Raw preserves the source spelling; an
// instruction the parser cannot recognize degrades to a raw-text fence
// instead of failing the parse.
type Fence struct {
	MemoryOrder string
	Raw         string
}

// Kind returns OpFence.
func (*Fence) Kind() OpKind { return OpFence }

// String returns the string representation of the operation.
func (o *Fence) String() string {
	if o.Raw != "" {
		return fmt.Sprintf("(fence %q)", o.Raw)
	}
	return fmt.Sprintf("(fence %s)", o.MemoryOrder)
}

// Branch represents a conditional split of a thread's control flow.
type Branch struct {
	Cond BranchCondition

	// ShowBothFutures marks a branch whose two outcomes are displayed
	// simultaneously; the exported postcondition is then intentionally
	// ambiguous.
	ShowBothFutures bool
}

// Kind returns OpBranch.
func (*Branch) Kind() OpKind { return OpBranch }

// String returns the string representation of the operation.
func (o *Branch) String() string {
	return fmt.Sprintf("(branch %s)", FormatCondition(o.Cond, nil))
}

// Retry represents a spin-retry thread terminator.
type Retry struct{}

// Kind returns OpRetry.
func (*Retry) Kind() OpKind { return OpRetry }

// String returns the string representation of the operation.
func (*Retry) String() string { return "(retry)" }

// ReturnTrue represents a successful thread exit.
type ReturnTrue struct{}

// Kind returns OpReturnTrue.
func (*ReturnTrue) Kind() OpKind { return OpReturnTrue }

// String returns the string representation of the operation.
func (*ReturnTrue) String() string { return "(return true)" }

// ReturnFalse represents a failed thread exit.
type ReturnFalse struct{}

// Kind returns OpReturnFalse.
func (*ReturnFalse) Kind() OpKind { return OpReturnFalse }

// String returns the string representation of the operation.
func (*ReturnFalse) String() string { return "(return false)" }

// IsTerminator returns true for operation kinds that end a thread's control
// flow and must have no successor.
func IsTerminator(op Operation) bool {
	switch op.(type) {
	case *Retry, *ReturnTrue, *ReturnFalse:
		return true
	default:
		return false
	}
}
