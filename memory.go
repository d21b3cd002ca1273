package litmus

import (
	"fmt"
	"strconv"
	"strings"
)

// Scope represents the storage class of a memory variable.
type Scope int

const (
	ScopeConstants Scope = iota
	ScopeLocals
	ScopeShared
)

var scopes = [...]string{
	ScopeConstants: "constants",
	ScopeLocals:    "locals",
	ScopeShared:    "shared",
}

// String returns the string representation of the scope.
func (s Scope) String() string {
	if s >= 0 && int(s) < len(scopes) {
		return scopes[s]
	}
	return fmt.Sprintf("Scope<%d>", s)
}

// VarKind represents the payload kind of a memory variable.
type VarKind int

const (
	VarInt VarKind = iota
	VarArray
	VarPtr
	VarStruct
)

var varKinds = [...]string{
	VarInt:    "int",
	VarArray:  "array",
	VarPtr:    "ptr",
	VarStruct: "struct",
}

// String returns the string representation of the kind.
func (k VarKind) String() string {
	if k >= 0 && int(k) < len(varKinds) {
		return varKinds[k]
	}
	return fmt.Sprintf("VarKind<%d>", k)
}

// MemoryVariable represents one entry in the memory environment: a constant,
// a thread-local register, or a shared location.
type MemoryVariable struct {
	ID    string
	Name  string
	Scope Scope
	Kind  VarKind

	// ParentID links a struct member to its owning struct variable.
	ParentID string

	// Value holds the literal text for int-kind variables, if any.
	Value string

	// Array payload.
	Size         int
	ElemKind     VarKind
	ElemStructID string

	// PointsTo holds the target variable id for ptr-kind variables. The
	// target graph may be cyclic or self-referential.
	PointsTo string
}

// String returns a short description of the variable.
func (v *MemoryVariable) String() string {
	return fmt.Sprintf("(%s %s %s)", v.Scope, v.Kind, v.Name)
}

// Memory represents a flat, read-only memory environment.
type Memory []*MemoryVariable

// ByID returns the variable with the given id, or nil.
func (m Memory) ByID(id string) *MemoryVariable {
	if id == "" {
		return nil
	}
	for _, v := range m {
		if v.ID == id {
			return v
		}
	}
	return nil
}

// ByName returns the first variable with the given name and scope, or nil.
func (m Memory) ByName(name string, scope Scope) *MemoryVariable {
	for _, v := range m {
		if v.Scope == scope && v.Name == name {
			return v
		}
	}
	return nil
}

// Members returns the members of a struct variable in declaration order.
func (m Memory) Members(structID string) []*MemoryVariable {
	var a []*MemoryVariable
	for _, v := range m {
		if v.ParentID == structID {
			a = append(a, v)
		}
	}
	return a
}

// maxPointerDepth bounds pointer-chain resolution. User-drawn pointer graphs
// may legally contain cycles.
const maxPointerDepth = 32

// ResolvePointer follows a chain of ptr variables starting at id and returns
// the last variable reached before a non-pointer, a dangling target, a cycle,
// or the depth cap.
func (m Memory) ResolvePointer(id string) *MemoryVariable {
	v := m.ByID(id)
	if v == nil {
		return nil
	}

	visited := map[string]struct{}{v.ID: {}}
	for depth := 0; depth < maxPointerDepth; depth++ {
		if v.Kind != VarPtr || v.PointsTo == "" {
			return v
		}
		next := m.ByID(v.PointsTo)
		if next == nil {
			return v
		}
		if _, ok := visited[next.ID]; ok {
			return v // cycle; keep last good value
		}
		visited[next.ID] = struct{}{}
		v = next
	}
	return v
}

// ConstantPool deduplicates integer literals into constant memory variables.
// One variable is created per distinct normalized literal value.
type ConstantPool struct {
	vars  []*MemoryVariable
	index map[string]string // normalized literal -> variable id
}

// NewConstantPool returns a pool seeded with the given existing constants.
func NewConstantPool(existing Memory) *ConstantPool {
	p := &ConstantPool{index: make(map[string]string)}
	for _, v := range existing {
		if v.Scope == ScopeConstants && v.Kind == VarInt {
			p.index[normalizeLiteral(v.Value)] = v.ID
		}
	}
	return p
}

// Intern returns the id of the constant variable for the given literal,
// creating it if needed.
func (p *ConstantPool) Intern(literal string) string {
	norm := normalizeLiteral(literal)
	if id, ok := p.index[norm]; ok {
		return id
	}
	v := &MemoryVariable{
		ID:    "const-" + norm,
		Name:  norm,
		Scope: ScopeConstants,
		Kind:  VarInt,
		Value: norm,
	}
	p.vars = append(p.vars, v)
	p.index[norm] = v.ID
	return v.ID
}

// Vars returns the constants created by the pool, in creation order.
func (p *ConstantPool) Vars() []*MemoryVariable {
	return p.vars
}

// normalizeLiteral reduces decimal and hex literal spellings to one decimal
// form so that "0x10" and "16" intern to the same constant.
func normalizeLiteral(s string) string {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 0, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return s
}
