package litmus_test

import (
	"fmt"
	"testing"

	litmus "github.com/sohambagchi/litmusgraph"
)

func TestMemory_Lookup(t *testing.T) {
	mem := litmus.Memory{
		{ID: "loc-x", Name: "x", Scope: litmus.ScopeShared, Kind: litmus.VarInt, Value: "0"},
		{ID: "reg-0-x", Name: "x", Scope: litmus.ScopeLocals, Kind: litmus.VarInt},
		{ID: "struct-s", Name: "s", Scope: litmus.ScopeShared, Kind: litmus.VarStruct},
		{ID: "member-a", Name: "a", Scope: litmus.ScopeShared, Kind: litmus.VarInt, ParentID: "struct-s"},
		{ID: "member-b", Name: "b", Scope: litmus.ScopeShared, Kind: litmus.VarInt, ParentID: "struct-s"},
	}

	if v := mem.ByID("loc-x"); v == nil || v.Name != "x" {
		t.Fatalf("ByID(loc-x)=%v", v)
	}
	if v := mem.ByID(""); v != nil {
		t.Fatalf("ByID of empty id should be nil, got %v", v)
	}
	// Same name, different scopes.
	if v := mem.ByName("x", litmus.ScopeLocals); v == nil || v.ID != "reg-0-x" {
		t.Fatalf("ByName(x, locals)=%v", v)
	}
	if got, exp := len(mem.Members("struct-s")), 2; got != exp {
		t.Fatalf("members=%d, expected %d", got, exp)
	}
}

func TestMemory_ResolvePointer(t *testing.T) {
	t.Run("NonPointer", func(t *testing.T) {
		mem := litmus.Memory{
			{ID: "loc-x", Name: "x", Scope: litmus.ScopeShared, Kind: litmus.VarInt},
		}
		if v := mem.ResolvePointer("loc-x"); v == nil || v.ID != "loc-x" {
			t.Fatalf("got %v", v)
		}
	})

	t.Run("Chain", func(t *testing.T) {
		mem := litmus.Memory{
			{ID: "ptr-p", Name: "p", Scope: litmus.ScopeShared, Kind: litmus.VarPtr, PointsTo: "ptr-q"},
			{ID: "ptr-q", Name: "q", Scope: litmus.ScopeShared, Kind: litmus.VarPtr, PointsTo: "loc-x"},
			{ID: "loc-x", Name: "x", Scope: litmus.ScopeShared, Kind: litmus.VarInt},
		}
		if v := mem.ResolvePointer("ptr-p"); v == nil || v.ID != "loc-x" {
			t.Fatalf("got %v", v)
		}
	})

	t.Run("SelfCycle", func(t *testing.T) {
		mem := litmus.Memory{
			{ID: "ptr-a", Name: "a", Scope: litmus.ScopeShared, Kind: litmus.VarPtr, PointsTo: "ptr-a"},
		}
		if v := mem.ResolvePointer("ptr-a"); v == nil || v.ID != "ptr-a" {
			t.Fatalf("got %v", v)
		}
	})

	t.Run("Cycle", func(t *testing.T) {
		// a -> b -> a stops at the last variable before the revisit.
		mem := litmus.Memory{
			{ID: "ptr-a", Name: "a", Scope: litmus.ScopeShared, Kind: litmus.VarPtr, PointsTo: "ptr-b"},
			{ID: "ptr-b", Name: "b", Scope: litmus.ScopeShared, Kind: litmus.VarPtr, PointsTo: "ptr-a"},
		}
		if v := mem.ResolvePointer("ptr-a"); v == nil || v.ID != "ptr-b" {
			t.Fatalf("got %v", v)
		}
	})

	t.Run("Dangling", func(t *testing.T) {
		mem := litmus.Memory{
			{ID: "ptr-a", Name: "a", Scope: litmus.ScopeShared, Kind: litmus.VarPtr, PointsTo: "missing"},
		}
		if v := mem.ResolvePointer("ptr-a"); v == nil || v.ID != "ptr-a" {
			t.Fatalf("got %v", v)
		}
	})

	t.Run("DepthCap", func(t *testing.T) {
		var mem litmus.Memory
		for i := 0; i < 40; i++ {
			mem = append(mem, &litmus.MemoryVariable{
				ID:       fmt.Sprintf("p%d", i),
				Name:     fmt.Sprintf("p%d", i),
				Scope:    litmus.ScopeShared,
				Kind:     litmus.VarPtr,
				PointsTo: fmt.Sprintf("p%d", i+1),
			})
		}
		mem = append(mem, &litmus.MemoryVariable{ID: "p40", Name: "p40", Scope: litmus.ScopeShared, Kind: litmus.VarInt})

		v := mem.ResolvePointer("p0")
		if v == nil {
			t.Fatal("got nil")
		}
		if got, exp := v.Kind, litmus.VarPtr; got != exp {
			t.Fatalf("resolution ran past the depth cap, ended at %s (%s)", v.ID, got)
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		if v := litmus.Memory(nil).ResolvePointer("nope"); v != nil {
			t.Fatalf("got %v", v)
		}
	})
}
