package litmus_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	litmus "github.com/sohambagchi/litmusgraph"
)

func TestGraph_ThreadNodes(t *testing.T) {
	g := &litmus.Graph{
		Nodes: []*litmus.TraceNode{
			{ID: "t1-0", ThreadID: 1, SeqIndex: 0, Op: &litmus.Fence{MemoryOrder: "sc"}},
			{ID: "t0-1", ThreadID: 0, SeqIndex: 1, Op: &litmus.Fence{MemoryOrder: "sc"}},
			{ID: "t0-0", ThreadID: 0, SeqIndex: 0, Op: &litmus.Fence{MemoryOrder: "sc"}},
		},
	}
	if diff := cmp.Diff(g.ThreadIDs(), []int{0, 1}); diff != "" {
		t.Fatalf("thread ids: %s", diff)
	}
	nodes := g.ThreadNodes(0)
	if got, exp := len(nodes), 2; got != exp {
		t.Fatalf("nodes=%d, expected %d", got, exp)
	}
	if got, exp := nodes[0].ID, "t0-0"; got != exp {
		t.Fatalf("first node=%q, expected %q", got, exp)
	}
}

func TestGraph_Validate(t *testing.T) {
	g := &litmus.Graph{
		Memory: litmus.Memory{
			{ID: "loc-x", Name: "x", Scope: litmus.ScopeShared, Kind: litmus.VarInt, Value: "0"},
			{ID: "loc-y", Name: "y", Scope: litmus.ScopeShared, Kind: litmus.VarInt, Value: "0"},
			{ID: "const-1", Name: "1", Scope: litmus.ScopeConstants, Kind: litmus.VarInt, Value: "1"},
			{ID: "reg-1-r0", Name: "r0", Scope: litmus.ScopeLocals, Kind: litmus.VarInt},
			{ID: "reg-1-r1", Name: "r1", Scope: litmus.ScopeLocals, Kind: litmus.VarInt},
		},
		Nodes: []*litmus.TraceNode{
			{ID: "t0-0", ThreadID: 0, SeqIndex: 0, Op: &litmus.Store{AddressID: "loc-x", ValueID: "const-1"}},
			{ID: "t1-0", ThreadID: 1, SeqIndex: 0, Op: &litmus.Load{AddressID: "loc-x", ResultID: "reg-1-r0"}},
			{ID: "t1-1", ThreadID: 1, SeqIndex: 1, Op: &litmus.Load{AddressID: "loc-y", ResultID: "reg-1-r1"}},
		},
		// In order: valid rf, po crossing threads, rf between different
		// locations, unknown relation name, dangling target.
		Edges: []litmus.RelationEdge{
			{Source: "t0-0", Target: "t1-0", Type: litmus.RelRF},
			{Source: "t0-0", Target: "t1-0", Type: litmus.RelPO},
			{Source: "t0-0", Target: "t1-1", Type: litmus.RelRF},
			{Source: "t1-0", Target: "t1-1", Type: "sync"},
			{Source: "t0-0", Target: "missing", Type: litmus.RelRF},
		},
	}

	if got, exp := g.Validate(nil), 4; got != exp {
		t.Fatalf("invalid=%d, expected %d", got, exp)
	}
	flags := make([]bool, len(g.Edges))
	for i, e := range g.Edges {
		flags[i] = e.Invalid
	}
	if diff := cmp.Diff(flags, []bool{false, true, true, true, true}); diff != "" {
		t.Fatalf("invalid flags: %s", diff)
	}

	t.Run("ExtendedVocabulary", func(t *testing.T) {
		// A memory-model vocabulary can legalize extra relation names; the
		// canonical names stay legal regardless.
		if got, exp := g.Validate(litmus.RelationVocabulary{"sync"}), 3; got != exp {
			t.Fatalf("invalid=%d, expected %d", got, exp)
		}
	})
}

func TestRelationVocabulary_Contains(t *testing.T) {
	var zero litmus.RelationVocabulary
	if !zero.Contains(litmus.RelPO) {
		t.Fatal("canonical name rejected by zero vocabulary")
	}
	if zero.Contains("sync") {
		t.Fatal("unknown name accepted by zero vocabulary")
	}
	if !litmus.DefaultVocabulary().Contains(litmus.RelFR) {
		t.Fatal("canonical name rejected by default vocabulary")
	}
}
