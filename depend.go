package litmus

import "github.com/benbjohnson/immutable"

// InferDependencies classifies address, control, and data dependencies from
// operand reuse within each thread. It returns only new edges: results are
// deduplicated by (type, source, target) and never duplicate an edge already
// present in the graph.
func InferDependencies(g *Graph) []RelationEdge {
	seen := make(map[[3]string]bool)
	for _, e := range g.Edges {
		seen[[3]string{e.Type, e.Source, e.Target}] = true
	}

	var out []RelationEdge
	add := func(typ, src, tgt string) {
		key := [3]string{typ, src, tgt}
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, RelationEdge{Source: src, Target: tgt, Type: typ})
	}

	for _, tid := range g.ThreadIDs() {
		inferThreadDeps(g, tid, add)
	}
	return out
}

// inferThreadDeps scans one thread in sequence-index order, tracking per
// memory-variable id the most recent node that produced it via a load or RMW
// result. The environment is an immutable map so the snapshot taken at a
// branch can be restored unchanged when the scan crosses into the branch's
// else arm.
func inferThreadDeps(g *Graph, tid int, add func(typ, src, tgt string)) {
	env := immutable.NewMap(nil)
	snapshots := make(map[string]*immutable.Map)
	restored := make(map[string]bool)

	producer := func(varID string) (string, bool) {
		if varID == "" {
			return "", false
		}
		v, ok := env.Get(varID)
		if !ok {
			return "", false
		}
		return v.(string), true
	}

	for _, n := range g.ThreadNodes(tid) {
		if n.BranchID != "" && n.BranchPath == HandleElse && !restored[n.BranchID] {
			if snap, ok := snapshots[n.BranchID]; ok {
				env = snap
			}
			restored[n.BranchID] = true
		}

		switch op := n.Op.(type) {
		case *Load:
			if src, ok := producer(op.AddressID); ok {
				add(RelAD, src, n.ID)
			}
			if src, ok := producer(op.IndexID); ok {
				add(RelAD, src, n.ID)
			}
			if op.ResultID != "" {
				env = env.Set(op.ResultID, n.ID)
			}

		case *Store:
			if src, ok := producer(op.AddressID); ok {
				add(RelAD, src, n.ID)
			}
			if src, ok := producer(op.IndexID); ok {
				add(RelAD, src, n.ID)
			}
			if src, ok := producer(op.ValueID); ok {
				add(RelDD, src, n.ID)
			}

		case *RMW:
			if src, ok := producer(op.AddressID); ok {
				add(RelAD, src, n.ID)
			}
			if src, ok := producer(op.IndexID); ok {
				add(RelAD, src, n.ID)
			}
			if src, ok := producer(op.ExpectedValueID); ok {
				add(RelDD, src, n.ID)
			}
			if src, ok := producer(op.DesiredValueID); ok {
				add(RelDD, src, n.ID)
			}
			if op.ResultID != "" {
				env = env.Set(op.ResultID, n.ID)
			}

		case *Branch:
			for _, id := range ConditionOperands(op.Cond) {
				if src, ok := producer(id); ok {
					add(RelCD, src, n.ID)
				}
			}
			snapshots[n.ID] = env
		}
	}
}
