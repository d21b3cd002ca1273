package litmus_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	litmus "github.com/sohambagchi/litmusgraph"
)

func TestInferPostcondition(t *testing.T) {
	t.Run("ReadsFrom", func(t *testing.T) {
		// A load with exactly one rf edge observes the written constant.
		g := postcondGraph()
		g.Edges = append(g.Edges, litmus.RelationEdge{Source: "t0-0", Target: "t1-0", Type: litmus.RelRF})

		conjuncts, ok := litmus.InferPostcondition(g)
		if !ok {
			t.Fatal("expected inference to succeed")
		}
		if diff := cmp.Diff(conjuncts, []string{"1:r0=1"}); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("InitialValueNoWrites", func(t *testing.T) {
		g := postcondGraph()
		g.Nodes = g.Nodes[1:] // drop the store; the load reads the initial value
		g.Edges = nil

		conjuncts, ok := litmus.InferPostcondition(g)
		if !ok {
			t.Fatal("expected inference to succeed")
		}
		if diff := cmp.Diff(conjuncts, []string{"1:r0=0"}); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("InitialValueFromRead", func(t *testing.T) {
		// No rf edge, one competing write: an fr edge from the load to that
		// write proves the load still sees the initial value.
		g := postcondGraph()
		g.Edges = append(g.Edges, litmus.RelationEdge{Source: "t1-0", Target: "t0-0", Type: litmus.RelFR})

		conjuncts, ok := litmus.InferPostcondition(g)
		if !ok {
			t.Fatal("expected inference to succeed")
		}
		if diff := cmp.Diff(conjuncts, []string{"1:r0=0"}); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("CompetingWriteWithoutProof", func(t *testing.T) {
		g := postcondGraph()
		if _, ok := litmus.InferPostcondition(g); ok {
			t.Fatal("expected inference to fail without an rf or fr edge")
		}
	})

	t.Run("MultipleReadsFrom", func(t *testing.T) {
		g := postcondGraph()
		g.Nodes = append(g.Nodes, &litmus.TraceNode{
			ID: "t0-1", ThreadID: 0, SeqIndex: 1,
			Op: &litmus.Store{AddressID: "loc-x", ValueID: "const-2"},
		})
		g.Edges = append(g.Edges,
			litmus.RelationEdge{Source: "t0-0", Target: "t1-0", Type: litmus.RelRF},
			litmus.RelationEdge{Source: "t0-1", Target: "t1-0", Type: litmus.RelRF},
		)
		if _, ok := litmus.InferPostcondition(g); ok {
			t.Fatal("expected inference to fail with two rf sources")
		}
	})

	t.Run("RegisterSourcedValue", func(t *testing.T) {
		// A store whose value is a thread-local register has no concrete
		// literal to put in the clause.
		g := postcondGraph()
		g.Nodes[0].Op = &litmus.Store{AddressID: "loc-x", ValueID: "reg-0-r9"}
		g.Edges = append(g.Edges, litmus.RelationEdge{Source: "t0-0", Target: "t1-0", Type: litmus.RelRF})

		if _, ok := litmus.InferPostcondition(g); ok {
			t.Fatal("expected inference to fail on a register-sourced value")
		}
	})

	t.Run("ReadsFromRMW", func(t *testing.T) {
		g := postcondGraph()
		g.Nodes[0].Op = &litmus.RMW{
			AddressID:       "loc-x",
			ExpectedValueID: "const-1",
			DesiredValueID:  "const-2",
			ResultID:        "reg-0-r9",
		}
		g.Edges = append(g.Edges, litmus.RelationEdge{Source: "t0-0", Target: "t1-0", Type: litmus.RelRF})

		conjuncts, ok := litmus.InferPostcondition(g)
		if !ok {
			t.Fatal("expected inference to succeed")
		}
		if diff := cmp.Diff(conjuncts, []string{"1:r0=2"}); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("HiddenLoadSkipped", func(t *testing.T) {
		g := postcondGraph()
		for _, n := range g.Nodes {
			n.Hidden = true
		}
		conjuncts, ok := litmus.InferPostcondition(g)
		if !ok {
			t.Fatal("expected inference to succeed with no visible loads")
		}
		if len(conjuncts) != 0 {
			t.Fatalf("unexpected conjuncts: %v", conjuncts)
		}
	})
}

// postcondGraph builds the smallest interesting shape: P0 stores 1 to x, P1
// loads x into r0.
func postcondGraph() *litmus.Graph {
	return &litmus.Graph{
		Name: "postcond",
		Memory: litmus.Memory{
			{ID: "loc-x", Name: "x", Scope: litmus.ScopeShared, Kind: litmus.VarInt, Value: "0"},
			{ID: "const-1", Name: "1", Scope: litmus.ScopeConstants, Kind: litmus.VarInt, Value: "1"},
			{ID: "const-2", Name: "2", Scope: litmus.ScopeConstants, Kind: litmus.VarInt, Value: "2"},
			{ID: "reg-0-r9", Name: "r9", Scope: litmus.ScopeLocals, Kind: litmus.VarInt},
			{ID: "reg-1-r0", Name: "r0", Scope: litmus.ScopeLocals, Kind: litmus.VarInt},
		},
		Nodes: []*litmus.TraceNode{
			{ID: "t0-0", ThreadID: 0, SeqIndex: 0, Op: &litmus.Store{AddressID: "loc-x", ValueID: "const-1"}},
			{ID: "t1-0", ThreadID: 1, SeqIndex: 0, Op: &litmus.Load{AddressID: "loc-x", ResultID: "reg-1-r0"}},
		},
	}
}
