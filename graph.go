package litmus

import (
	"fmt"
	"sort"
)

// Canonical relation-type names. Additional names may be registered through a
// RelationVocabulary supplied by the caller.
const (
	RelPO = "po" // program order
	RelRF = "rf" // reads-from
	RelCO = "co" // coherence order
	RelFR = "fr" // from-read
	RelAD = "ad" // address dependency
	RelCD = "cd" // control dependency
	RelDD = "dd" // data dependency
)

// Branch successor handles on program-order edges.
const (
	HandleThen = "then"
	HandleElse = "else"
)

// RelationVocabulary is the set of legal relation-type names, supplied by the
// memory-model definition. The zero value admits only the canonical names.
type RelationVocabulary []string

// DefaultVocabulary returns the canonical relation names.
func DefaultVocabulary() RelationVocabulary {
	return RelationVocabulary{RelPO, RelRF, RelCO, RelFR, RelAD, RelCD, RelDD}
}

// Contains reports whether name is a legal relation type.
func (v RelationVocabulary) Contains(name string) bool {
	switch name {
	case RelPO, RelRF, RelCO, RelFR, RelAD, RelCD, RelDD:
		return true
	}
	for _, s := range v {
		if s == name {
			return true
		}
	}
	return false
}

// TraceNode represents one timestamped operation in the trace graph.
type TraceNode struct {
	ID       string
	ThreadID int

	// SeqIndex is a dense, thread-local logical clock. It breaks ties and
	// supplies the default ordering when no explicit po edges exist.
	SeqIndex int

	Op Operation

	// BranchID/BranchPath mark which branch body ("then"/"else") the node
	// structurally belongs to, if any.
	BranchID   string
	BranchPath string

	// Hidden nodes are excluded from export.
	Hidden bool
}

// String returns a short description of the node.
func (n *TraceNode) String() string {
	return fmt.Sprintf("(node P%d:%d %s)", n.ThreadID, n.SeqIndex, n.Op.Kind())
}

// RelationEdge represents a typed relation between two trace nodes.
type RelationEdge struct {
	Source string
	Target string
	Type   string

	// SourceHandle distinguishes a branch node's "then" successor from its
	// "else" successor on po edges.
	SourceHandle string

	// Invalid is derived by Validate; invalid edges are kept but flagged.
	Invalid bool
}

// String returns a short description of the edge.
func (e RelationEdge) String() string {
	if e.SourceHandle != "" {
		return fmt.Sprintf("(%s %s -%s-> %s)", e.Type, e.Source, e.SourceHandle, e.Target)
	}
	return fmt.Sprintf("(%s %s -> %s)", e.Type, e.Source, e.Target)
}

// Graph represents a full trace-graph snapshot: the shared contract between
// the parser, the editor, and the exporter.
type Graph struct {
	Arch   string
	Name   string
	Memory Memory
	Nodes  []*TraceNode
	Edges  []RelationEdge
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *TraceNode {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// ThreadIDs returns the distinct thread ids in ascending order.
func (g *Graph) ThreadIDs() []int {
	seen := make(map[int]struct{})
	var ids []int
	for _, n := range g.Nodes {
		if _, ok := seen[n.ThreadID]; !ok {
			seen[n.ThreadID] = struct{}{}
			ids = append(ids, n.ThreadID)
		}
	}
	sort.Ints(ids)
	return ids
}

// ThreadNodes returns the nodes of one thread in SeqIndex order.
func (g *Graph) ThreadNodes(tid int) []*TraceNode {
	var nodes []*TraceNode
	for _, n := range g.Nodes {
		if n.ThreadID == tid {
			nodes = append(nodes, n)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].SeqIndex < nodes[j].SeqIndex })
	return nodes
}

// locationOf returns the shared location ultimately addressed by an access
// operation, following member and pointer indirection. Returns nil for
// non-access operations.
func (g *Graph) locationOf(op Operation) *MemoryVariable {
	var addrID, memberID string
	switch op := op.(type) {
	case *Load:
		addrID, memberID = op.AddressID, op.MemberID
	case *Store:
		addrID, memberID = op.AddressID, op.MemberID
	case *RMW:
		addrID, memberID = op.AddressID, op.MemberID
	default:
		return nil
	}
	if memberID != "" {
		return g.Memory.ByID(memberID)
	}
	return g.Memory.ResolvePointer(addrID)
}

// Validate derives the Invalid flag on every edge: dependency and
// program-order edges must stay within one thread, rf/co/fr must connect
// accesses to the same location, and the relation type must be in the
// vocabulary. It returns the number of invalid edges.
func (g *Graph) Validate(vocab RelationVocabulary) int {
	invalid := 0
	for i := range g.Edges {
		e := &g.Edges[i]
		e.Invalid = !g.edgeValid(*e, vocab)
		if e.Invalid {
			invalid++
		}
	}
	return invalid
}

func (g *Graph) edgeValid(e RelationEdge, vocab RelationVocabulary) bool {
	src, dst := g.Node(e.Source), g.Node(e.Target)
	if src == nil || dst == nil {
		return false
	}
	if !vocab.Contains(e.Type) {
		return false
	}
	switch e.Type {
	case RelPO, RelAD, RelCD, RelDD:
		return src.ThreadID == dst.ThreadID
	case RelRF, RelCO, RelFR:
		a, b := g.locationOf(src.Op), g.locationOf(dst.Op)
		return a != nil && b != nil && a.ID == b.ID
	default:
		return true
	}
}

// poSuccessors returns, for one thread, the outgoing po successors of every
// node split into then/else/unlabeled buckets. If the thread has no po edges
// at all, a linear chain is synthesized from SeqIndex order.
type successorSet struct {
	Then  []string
	Else  []string
	Plain []string
}

func (s successorSet) total() int { return len(s.Then) + len(s.Else) + len(s.Plain) }

// all returns every successor id across the three buckets.
func (s successorSet) all() []string {
	var ids []string
	ids = append(ids, s.Then...)
	ids = append(ids, s.Else...)
	ids = append(ids, s.Plain...)
	return ids
}

func (g *Graph) poSuccessors(tid int) map[string]successorSet {
	nodes := g.ThreadNodes(tid)
	inThread := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		inThread[n.ID] = true
	}

	succ := make(map[string]successorSet)
	found := false
	for _, e := range g.Edges {
		if e.Type != RelPO || !inThread[e.Source] || !inThread[e.Target] {
			continue
		}
		found = true
		s := succ[e.Source]
		switch e.SourceHandle {
		case HandleThen:
			s.Then = append(s.Then, e.Target)
		case HandleElse:
			s.Else = append(s.Else, e.Target)
		default:
			s.Plain = append(s.Plain, e.Target)
		}
		succ[e.Source] = s
	}
	if found {
		return succ
	}

	// No explicit ordering drawn; fall back to the logical clock.
	for i := 0; i+1 < len(nodes); i++ {
		succ[nodes[i].ID] = successorSet{Plain: []string{nodes[i+1].ID}}
	}
	return succ
}
