package litmus

import "fmt"

// InferPostcondition derives concrete register outcomes for an exists clause
// from the graph's reads-from and from-read edges. It returns one conjunct
// per resolvable visible load, formatted "<thread>:<register>=<value>".
//
// ok is false when any visible load cannot be resolved: a value sourced from
// a thread-local register, multiple rf edges, or competing writes without an
// fr proof all make the whole inference uninferrable.
func InferPostcondition(g *Graph) (conjuncts []string, ok bool) {
	for _, tid := range g.ThreadIDs() {
		for _, n := range g.ThreadNodes(tid) {
			load, isLoad := n.Op.(*Load)
			if !isLoad || n.Hidden || load.ResultID == "" {
				continue
			}
			value, resolved := inferLoadValue(g, n, load)
			if !resolved {
				return nil, false
			}
			reg := g.Memory.ByID(load.ResultID)
			if reg == nil {
				return nil, false
			}
			conjuncts = append(conjuncts, fmt.Sprintf("%d:%s=%s", n.ThreadID, reg.Name, value))
		}
	}
	return conjuncts, true
}

func inferLoadValue(g *Graph, n *TraceNode, load *Load) (string, bool) {
	var rfSources []string
	for _, e := range g.Edges {
		if e.Type == RelRF && e.Target == n.ID {
			rfSources = append(rfSources, e.Source)
		}
	}

	switch len(rfSources) {
	case 1:
		return writtenValue(g, rfSources[0])
	case 0:
		return initialValue(g, n, load)
	default:
		return "", false
	}
}

// writtenValue returns the textual value written by a store or RMW node.
// Local-register-sourced values are uninferrable.
func writtenValue(g *Graph, nodeID string) (string, bool) {
	src := g.Node(nodeID)
	if src == nil {
		return "", false
	}
	var valueID string
	switch op := src.Op.(type) {
	case *Store:
		valueID = op.ValueID
	case *RMW:
		valueID = op.DesiredValueID
	default:
		return "", false
	}
	v := g.Memory.ByID(valueID)
	if v == nil || v.Scope == ScopeLocals || v.Value == "" {
		return "", false
	}
	return v.Value, true
}

// initialValue resolves a load with no incoming rf edge. With no competing
// write to the location, the load reads the initial value. With exactly one
// write, an fr edge from the load to that write proves the load is ordered
// before it and still reads the initial value. Anything else is ambiguous.
func initialValue(g *Graph, n *TraceNode, load *Load) (string, bool) {
	loc := g.locationOf(load)
	if loc == nil {
		return "", false
	}
	init := loc.Value
	if init == "" {
		init = "0"
	}

	var writes []string
	for _, other := range g.Nodes {
		if other.ID == n.ID {
			continue
		}
		switch other.Op.(type) {
		case *Store, *RMW:
			if w := g.locationOf(other.Op); w != nil && w.ID == loc.ID {
				writes = append(writes, other.ID)
			}
		}
	}
	if len(writes) == 0 {
		return init, true
	}
	if len(writes) == 1 {
		for _, e := range g.Edges {
			if e.Type == RelFR && e.Source == n.ID && e.Target == writes[0] {
				return init, true
			}
		}
	}
	return "", false
}
