package litmus

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Dialect selects the exported program style.
type Dialect int

const (
	// DialectMacro emits Linux-kernel macro style (READ_ONCE,
	// smp_store_release, smp_mb).
	DialectMacro Dialect = iota

	// DialectAtomics emits C11 explicit-atomics style
	// (atomic_load_explicit and friends).
	DialectAtomics
)

// String returns the string representation of the dialect.
func (d Dialect) String() string {
	if d == DialectMacro {
		return "macro"
	}
	return "explicit-atomics"
}

// ExportMacro exports the graph as macro-style litmus text.
func ExportMacro(g *Graph) (string, error) { return Export(g, DialectMacro) }

// ExportAtomics exports the graph as explicit-atomics litmus text.
func ExportAtomics(g *Graph) (string, error) { return Export(g, DialectAtomics) }

// Export walks the graph per thread, reconstructs structured branching, and
// emits dialect-specific litmus text. It fails on the first structural
// obstruction; it never emits text that only approximates the graph without
// saying so.
func Export(g *Graph, dialect Dialect) (string, error) {
	ex := &exporter{
		g:        g,
		dialect:  dialect,
		locNames: make(map[string]string),
	}
	return ex.run()
}

type exporter struct {
	g        *Graph
	dialect  Dialect
	locNames map[string]string // location variable id -> emitted identifier
	locOrder []string          // location variable ids in naming order
	comments []string

	// ambiguous is set when a branch exposes both futures; the
	// postcondition is then intentionally trivial.
	ambiguous bool
}

func (ex *exporter) run() (string, error) {
	ex.assignLocationNames()

	type threadText struct {
		tid  int
		body string
		locs []string // location ids referenced by the thread
	}
	var threads []threadText
	for _, tid := range ex.g.ThreadIDs() {
		w := &threadWalker{ex: ex, tid: tid, succ: ex.g.poSuccessors(tid), visited: make(map[string]bool)}
		body, err := w.run()
		if err != nil {
			return "", err
		}
		threads = append(threads, threadText{tid: tid, body: body, locs: w.locIDs})
	}
	if len(threads) == 0 {
		return "", fmt.Errorf("cannot export: graph has no threads")
	}

	conjuncts, inferred := InferPostcondition(ex.g)
	if ex.ambiguous {
		inferred = false
		ex.comments = append(ex.comments, "postcondition omitted: a branch shows both futures")
	} else if !inferred {
		ex.comments = append(ex.comments, "postcondition not inferred from rf/fr edges")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "C %s\n", ex.title())
	for _, c := range ex.comments {
		fmt.Fprintf(&sb, "// %s\n", c)
	}
	sb.WriteString("\n")
	ex.writeInitBlock(&sb)
	for _, t := range threads {
		sb.WriteString("\n")
		ex.writeSignature(&sb, t.tid, t.locs)
		sb.WriteString(t.body)
	}
	sb.WriteString("\n")
	if inferred && len(conjuncts) > 0 {
		fmt.Fprintf(&sb, "exists (%s)\n", strings.Join(conjuncts, ` /\ `))
	} else {
		sb.WriteString("exists (true)\n")
	}
	return sb.String(), nil
}

func (ex *exporter) title() string {
	if ex.g.Name != "" {
		return ex.g.Name
	}
	return "untitled"
}

// assignLocationNames gives every shared location referenced anywhere in the
// graph exactly one collision-free identifier derived from its display name.
func (ex *exporter) assignLocationNames() {
	taken := make(map[string]bool)
	assign := func(v *MemoryVariable) {
		if v == nil || ex.locNames[v.ID] != "" {
			return
		}
		name := sanitizeIdent(v.Name)
		for i := 1; taken[name]; i++ {
			name = fmt.Sprintf("%s_%d", sanitizeIdent(v.Name), i)
		}
		taken[name] = true
		ex.locNames[v.ID] = name
		ex.locOrder = append(ex.locOrder, v.ID)
	}

	for _, tid := range ex.g.ThreadIDs() {
		for _, n := range ex.g.ThreadNodes(tid) {
			assign(ex.g.locationOf(n.Op))
		}
	}
	// Shared variables never referenced by an instruction (for example
	// force-included by a locations declaration) still appear in the
	// initial-state block.
	for _, v := range ex.g.Memory {
		if v.Scope == ScopeShared && v.ParentID == "" {
			assign(v)
		}
	}
}

func sanitizeIdent(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			sb.WriteRune(r)
		case r >= '0' && r <= '9':
			if sb.Len() == 0 {
				sb.WriteByte('l')
			}
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return "loc"
	}
	return sb.String()
}

func (ex *exporter) writeInitBlock(sb *strings.Builder) {
	sb.WriteString("{\n")
	for _, id := range ex.locOrder {
		v := ex.g.Memory.ByID(id)
		if v == nil || v.Scope != ScopeShared {
			continue
		}
		value := v.Value
		if value == "" {
			value = "0"
		}
		if ex.dialect == DialectAtomics {
			fmt.Fprintf(sb, "\t[%s]=%s;\n", ex.locNames[id], value)
		} else {
			fmt.Fprintf(sb, "\t%s=%s;\n", ex.locNames[id], value)
		}
	}
	sb.WriteString("}\n")
}

func (ex *exporter) writeSignature(sb *strings.Builder, tid int, locIDs []string) {
	names := make([]string, 0, len(locIDs))
	for _, id := range locIDs {
		names = append(names, ex.locNames[id])
	}
	sort.Strings(names)
	params := make([]string, 0, len(names))
	for _, name := range names {
		if ex.dialect == DialectAtomics {
			params = append(params, "atomic_int* "+name)
		} else {
			params = append(params, "int *"+name)
		}
	}
	fmt.Fprintf(sb, "P%d(%s)\n", tid, strings.Join(params, ", "))
}

// threadWalker emits one thread body.
type threadWalker struct {
	ex   *exporter
	tid  int
	succ map[string]successorSet

	visited map[string]bool
	lines   []string
	decls   []string // register declarations in first-use order
	declSet map[string]bool
	locIDs  []string // referenced location ids in first-use order
	locSet  map[string]bool
	scratch int
}

func (w *threadWalker) run() (string, error) {
	w.declSet = make(map[string]bool)
	w.locSet = make(map[string]bool)

	nodes := w.ex.g.ThreadNodes(w.tid)
	if len(nodes) == 0 {
		return "{\n}\n", nil
	}
	entry, err := w.entryNode(nodes)
	if err != nil {
		return "", err
	}
	if err := w.walkChain(entry, "", 1); err != nil {
		return "", err
	}

	// Every visible node must have been reached by the traversal;
	// anything else means the edge set and the node set disagree.
	for _, n := range nodes {
		if !n.Hidden && !w.visited[n.ID] {
			return "", fmt.Errorf("cannot export P%d:%d (%s): node not reached by program-order walk", n.ThreadID, n.SeqIndex, n.Op.Kind())
		}
	}

	var sb strings.Builder
	sb.WriteString("{\n")
	for _, d := range w.decls {
		sb.WriteString("\t" + d + "\n")
	}
	if len(w.decls) > 0 && len(w.lines) > 0 {
		sb.WriteString("\n")
	}
	for _, line := range w.lines {
		sb.WriteString(line + "\n")
	}
	sb.WriteString("}\n")
	return sb.String(), nil
}

func (w *threadWalker) entryNode(nodes []*TraceNode) (string, error) {
	incoming := make(map[string]int)
	for _, s := range w.succ {
		for _, t := range s.all() {
			incoming[t]++
		}
	}
	var entries []string
	for _, n := range nodes {
		if incoming[n.ID] == 0 {
			entries = append(entries, n.ID)
		}
	}
	if len(entries) != 1 {
		return "", fmt.Errorf("cannot export P%d: expected exactly one entry node, found %d", w.tid, len(entries))
	}
	return entries[0], nil
}

// walkChain emits the linear chain from start until stop (exclusive) or the
// thread's end. Branches recurse with their join node as the stop.
func (w *threadWalker) walkChain(start, stop string, indent int) error {
	cur := start
	for cur != "" && cur != stop {
		if w.visited[cur] {
			return fmt.Errorf("cannot export P%d: cyclic program order at %s", w.tid, w.coord(cur))
		}
		w.visited[cur] = true

		n := w.ex.g.Node(cur)
		if n == nil {
			return fmt.Errorf("cannot export P%d: po edge targets unknown node %q", w.tid, cur)
		}

		if _, ok := n.Op.(*Branch); ok {
			next, err := w.walkBranch(n, indent)
			if err != nil {
				return err
			}
			cur = next
			continue
		}

		if !n.Hidden {
			if err := w.emitOp(n, indent); err != nil {
				return err
			}
		}

		s := w.succ[cur]
		switch {
		case IsTerminator(n.Op):
			if s.total() > 0 {
				return fmt.Errorf("cannot export P%d:%d (%s): terminator has a successor", n.ThreadID, n.SeqIndex, n.Op.Kind())
			}
			cur = ""
		case s.total() == 0:
			cur = ""
		case s.total() == 1:
			cur = s.all()[0]
		default:
			return fmt.Errorf("cannot export P%d:%d (%s): ambiguous program-order successors (%d)", n.ThreadID, n.SeqIndex, n.Op.Kind(), s.total())
		}
	}
	return nil
}

// walkBranch emits a branch as structured if/else text and returns the node
// at which the surrounding chain continues ("" when both futures run to the
// thread's end).
func (w *threadWalker) walkBranch(n *TraceNode, indent int) (string, error) {
	branch := n.Op.(*Branch)
	if branch.Cond == nil {
		return "", fmt.Errorf("cannot export P%d:%d: branch has no condition", n.ThreadID, n.SeqIndex)
	}
	if branch.ShowBothFutures {
		w.ex.ambiguous = true
	}

	s := w.succ[n.ID]
	if len(s.Then) > 1 || len(s.Else) > 1 || (len(s.Then) > 0 && len(s.Plain) > 0) || len(s.Plain) > 1 {
		return "", fmt.Errorf("cannot export P%d:%d (BRANCH): ambiguous program-order successors", n.ThreadID, n.SeqIndex)
	}
	thenStart, elseStart := "", ""
	if len(s.Then) == 1 {
		thenStart = s.Then[0]
	} else if len(s.Plain) == 1 {
		thenStart = s.Plain[0]
	}
	if len(s.Else) == 1 {
		elseStart = s.Else[0]
	}

	cond, err := w.condText(n, branch.Cond)
	if err != nil {
		return "", err
	}

	switch {
	case thenStart == "" && elseStart == "":
		w.emitLine(indent, fmt.Sprintf("if (%s) {", cond))
		w.emitLine(indent, "}")
		return "", nil

	case elseStart == "":
		// No explicit else path: the then body runs to the thread end.
		w.emitLine(indent, fmt.Sprintf("if (%s) {", cond))
		if err := w.walkChain(thenStart, "", indent+1); err != nil {
			return "", err
		}
		w.emitLine(indent, "}")
		return "", nil

	case thenStart == "":
		negated, err := w.condText(n, NegateCondition(branch.Cond))
		if err != nil {
			return "", err
		}
		w.emitLine(indent, fmt.Sprintf("if (%s) {", negated))
		if err := w.walkChain(elseStart, "", indent+1); err != nil {
			return "", err
		}
		w.emitLine(indent, "}")
		return "", nil
	}

	join := w.findJoin(thenStart, elseStart)

	thenVisible := w.visibleOnPath(thenStart, join)
	elseVisible := w.visibleOnPath(elseStart, join)

	switch {
	case thenVisible && elseVisible:
		w.emitLine(indent, fmt.Sprintf("if (%s) {", cond))
		if err := w.walkChain(thenStart, join, indent+1); err != nil {
			return "", err
		}
		w.emitLine(indent, "} else {")
		if err := w.walkChain(elseStart, join, indent+1); err != nil {
			return "", err
		}
		w.emitLine(indent, "}")
	case thenVisible:
		w.emitLine(indent, fmt.Sprintf("if (%s) {", cond))
		if err := w.walkChain(thenStart, join, indent+1); err != nil {
			return "", err
		}
		w.emitLine(indent, "}")
		w.markSkipped(elseStart, join)
	case elseVisible:
		negated, err := w.condText(n, NegateCondition(branch.Cond))
		if err != nil {
			return "", err
		}
		w.emitLine(indent, fmt.Sprintf("if (%s) {", negated))
		if err := w.walkChain(elseStart, join, indent+1); err != nil {
			return "", err
		}
		w.emitLine(indent, "}")
		w.markSkipped(thenStart, join)
	default:
		w.markSkipped(thenStart, join)
		w.markSkipped(elseStart, join)
	}
	return join, nil
}

// findJoin runs a breadth-first search from each branch arm and picks the
// reconvergence node with the lexicographically smallest key
// (max(d1,d2), d1+d2, SeqIndex, ID): the earliest-balanced join, tie-broken
// by total path length, program position, then id for determinism.
func (w *threadWalker) findJoin(thenStart, elseStart string) string {
	distThen := w.bfs(thenStart)
	distElse := w.bfs(elseStart)

	type key struct {
		maxd, sum, seq int
		id             string
	}
	best, found := key{}, false
	for id, d1 := range distThen {
		d2, ok := distElse[id]
		if !ok {
			continue
		}
		n := w.ex.g.Node(id)
		if n == nil {
			continue
		}
		k := key{maxd: d1, sum: d1 + d2, seq: n.SeqIndex, id: id}
		if d2 > d1 {
			k.maxd = d2
		}
		if !found || less(k.maxd, k.sum, k.seq, k.id, best.maxd, best.sum, best.seq, best.id) {
			best, found = k, true
		}
	}
	if !found {
		return ""
	}
	return best.id
}

func less(a1, a2, a3 int, a4 string, b1, b2, b3 int, b4 string) bool {
	if a1 != b1 {
		return a1 < b1
	}
	if a2 != b2 {
		return a2 < b2
	}
	if a3 != b3 {
		return a3 < b3
	}
	return a4 < b4
}

// bfs returns hop distances from start over po successors. The visited set
// bounds it on graphs the caller accidentally made cyclic.
func (w *threadWalker) bfs(start string) map[string]int {
	dist := map[string]int{start: 0}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range w.succ[cur].all() {
			if _, ok := dist[next]; ok {
				continue
			}
			dist[next] = dist[cur] + 1
			queue = append(queue, next)
		}
	}
	return dist
}

// visibleOnPath reports whether any visible, emittable node lies on the
// chain from start to stop.
func (w *threadWalker) visibleOnPath(start, stop string) bool {
	for cur := start; cur != "" && cur != stop; {
		n := w.ex.g.Node(cur)
		if n == nil {
			return false
		}
		if !n.Hidden {
			return true
		}
		s := w.succ[cur]
		if s.total() != 1 {
			return true // let walkChain surface the precise error
		}
		cur = s.all()[0]
	}
	return false
}

// markSkipped marks an all-hidden branch arm as traversed.
func (w *threadWalker) markSkipped(start, stop string) {
	for cur := start; cur != "" && cur != stop; {
		if w.visited[cur] {
			return
		}
		w.visited[cur] = true
		s := w.succ[cur]
		if s.total() != 1 {
			return
		}
		cur = s.all()[0]
	}
}

func (w *threadWalker) emitLine(indent int, text string) {
	w.lines = append(w.lines, strings.Repeat("\t", indent)+text)
}

func (w *threadWalker) coord(id string) string {
	if n := w.ex.g.Node(id); n != nil {
		return fmt.Sprintf("P%d:%d", n.ThreadID, n.SeqIndex)
	}
	return id
}

// --- operand resolution ---

// resolveAccess resolves an access operation's address operands to a named
// shared location and an optional literal index.
func (w *threadWalker) resolveAccess(n *TraceNode, addrID, indexID, memberID string) (locID, locName, index string, err error) {
	mem := w.ex.g.Memory

	var v *MemoryVariable
	if memberID != "" {
		// Struct-member addressing resolves to the member's own
		// symbolic location name.
		if v = mem.ByID(memberID); v == nil {
			return "", "", "", fmt.Errorf("cannot export P%d:%d (%s): unknown struct member", n.ThreadID, n.SeqIndex, n.Op.Kind())
		}
	} else {
		if v = mem.ByID(addrID); v == nil {
			return "", "", "", fmt.Errorf("cannot export P%d:%d (%s): missing memory target", n.ThreadID, n.SeqIndex, n.Op.Kind())
		}
		if v.Kind == VarPtr {
			v = mem.ResolvePointer(v.ID)
		}
		if v.Scope != ScopeShared {
			return "", "", "", fmt.Errorf("cannot export P%d:%d (%s): memory target resolves to a %s variable, not a shared location", n.ThreadID, n.SeqIndex, n.Op.Kind(), v.Scope)
		}
	}

	name := w.ex.locNames[v.ID]
	if name == "" {
		return "", "", "", fmt.Errorf("cannot export P%d:%d (%s): unnamed memory location", n.ThreadID, n.SeqIndex, n.Op.Kind())
	}

	if indexID != "" {
		iv := mem.ByID(indexID)
		if iv == nil || iv.Value == "" {
			return "", "", "", fmt.Errorf("cannot export P%d:%d (%s): array index must be a literal integer", n.ThreadID, n.SeqIndex, n.Op.Kind())
		}
		if _, perr := strconv.ParseInt(iv.Value, 0, 64); perr != nil {
			return "", "", "", fmt.Errorf("cannot export P%d:%d (%s): array index must be a literal integer", n.ThreadID, n.SeqIndex, n.Op.Kind())
		}
		index = iv.Value
	}

	w.touchLoc(v.ID)
	return v.ID, name, index, nil
}

func (w *threadWalker) touchLoc(id string) {
	if !w.locSet[id] {
		w.locSet[id] = true
		w.locIDs = append(w.locIDs, id)
	}
}

// registerResolved reports whether a thread-local register has a defined
// value in this thread: an initial value or a producing load/RMW result.
func (w *threadWalker) registerResolved(v *MemoryVariable) bool {
	if v.Value != "" {
		return true
	}
	for _, n := range w.ex.g.ThreadNodes(w.tid) {
		switch op := n.Op.(type) {
		case *Load:
			if op.ResultID == v.ID {
				return true
			}
		case *RMW:
			if op.ResultID == v.ID {
				return true
			}
		}
	}
	return false
}

// valueText renders a value operand: a constant's literal or a resolved
// register's name. Anything else aborts the export.
func (w *threadWalker) valueText(n *TraceNode, valueID string) (string, error) {
	v := w.ex.g.Memory.ByID(valueID)
	if v == nil {
		return "", fmt.Errorf("cannot export P%d:%d (%s): unresolved value operand", n.ThreadID, n.SeqIndex, n.Op.Kind())
	}
	switch v.Scope {
	case ScopeConstants:
		if v.Value == "" {
			return "", fmt.Errorf("cannot export P%d:%d (%s): constant without a value", n.ThreadID, n.SeqIndex, n.Op.Kind())
		}
		return v.Value, nil
	case ScopeLocals:
		if !w.registerResolved(v) {
			return "", fmt.Errorf("cannot export P%d:%d (%s): value uses unresolved local register %q", n.ThreadID, n.SeqIndex, n.Op.Kind(), v.Name)
		}
		w.declareRegister(v)
		return v.Name, nil
	default:
		return "", fmt.Errorf("cannot export P%d:%d (%s): value operand must be a constant or register, not a %s variable", n.ThreadID, n.SeqIndex, n.Op.Kind(), v.Scope)
	}
}

func (w *threadWalker) declareRegister(v *MemoryVariable) {
	if w.declSet[v.ID] {
		return
	}
	w.declSet[v.ID] = true
	if v.Value != "" {
		w.decls = append(w.decls, fmt.Sprintf("int %s = %s;", v.Name, v.Value))
	} else {
		w.decls = append(w.decls, fmt.Sprintf("int %s;", v.Name))
	}
}

// resultName resolves a result register operand, declaring it.
func (w *threadWalker) resultName(n *TraceNode, resultID string) (string, error) {
	v := w.ex.g.Memory.ByID(resultID)
	if v == nil || v.Scope != ScopeLocals {
		return "", fmt.Errorf("cannot export P%d:%d (%s): result must be a thread-local register", n.ThreadID, n.SeqIndex, n.Op.Kind())
	}
	w.declareRegister(v)
	return v.Name, nil
}

// condText renders a branch condition, resolving operands to register names,
// location names, and constant literals.
func (w *threadWalker) condText(n *TraceNode, cond BranchCondition) (string, error) {
	var firstErr error
	text := FormatCondition(cond, func(id string) string {
		v := w.ex.g.Memory.ByID(id)
		if v == nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("cannot export P%d:%d (BRANCH): condition references unknown variable", n.ThreadID, n.SeqIndex)
			}
			return "?"
		}
		switch v.Scope {
		case ScopeConstants:
			return v.Value
		case ScopeLocals:
			w.declareRegister(v)
			return v.Name
		default:
			if name := w.ex.locNames[v.ID]; name != "" {
				w.touchLoc(v.ID)
				return name
			}
			return v.Name
		}
	})
	if firstErr != nil {
		return "", firstErr
	}
	if strings.Contains(text, "?") {
		return "", fmt.Errorf("cannot export P%d:%d (BRANCH): condition has an unset operand", n.ThreadID, n.SeqIndex)
	}
	return text, nil
}
