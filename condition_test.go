package litmus_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	litmus "github.com/sohambagchi/litmusgraph"
)

func TestBuildCondition(t *testing.T) {
	resolve := func(name string) (string, bool) {
		switch name {
		case "a", "b", "c", "r0":
			return "reg-0-" + name, true
		}
		return "", false
	}

	t.Run("Comparison", func(t *testing.T) {
		pool := litmus.NewConstantPool(nil)
		got := litmus.BuildCondition(litmus.ParseCondExpr("r0 != 2"), resolve, pool)
		if diff := cmp.Diff(got, &litmus.CondRule{
			LHSID: "reg-0-r0",
			RHSID: "const-2",
			Op:    litmus.CmpNE,
		}); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("FlattenedChain", func(t *testing.T) {
		// Same-connective chains become one n-ary group, not nested pairs.
		pool := litmus.NewConstantPool(nil)
		got := litmus.BuildCondition(litmus.ParseCondExpr("a == 1 && b == 2 && c == 3"), resolve, pool)
		if diff := cmp.Diff(got, &litmus.CondGroup{
			Items: []litmus.BranchCondition{
				&litmus.CondRule{LHSID: "reg-0-a", RHSID: "const-1", Op: litmus.CmpEQ},
				&litmus.CondRule{LHSID: "reg-0-b", RHSID: "const-2", Op: litmus.CmpEQ},
				&litmus.CondRule{LHSID: "reg-0-c", RHSID: "const-3", Op: litmus.CmpEQ},
			},
			Ops: []litmus.LogicOp{litmus.LogicAnd, litmus.LogicAnd},
		}); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("MixedConnectives", func(t *testing.T) {
		pool := litmus.NewConstantPool(nil)
		got := litmus.BuildCondition(litmus.ParseCondExpr("a == 1 && (b == 2 || c == 3)"), resolve, pool)
		group, ok := got.(*litmus.CondGroup)
		if !ok {
			t.Fatalf("expected group, got %T", got)
		}
		if got, exp := len(group.Items), 2; got != exp {
			t.Fatalf("items=%d, expected %d", got, exp)
		}
		if _, ok := group.Items[1].(*litmus.CondGroup); !ok {
			t.Fatalf("expected nested group, got %T", group.Items[1])
		}
	})

	t.Run("Truthiness", func(t *testing.T) {
		pool := litmus.NewConstantPool(nil)
		got := litmus.BuildCondition(litmus.ParseCondExpr("r0"), resolve, pool)
		if diff := cmp.Diff(got, &litmus.CondRule{
			LHSID: "reg-0-r0",
			RHSID: "const-0",
			Op:    litmus.CmpNE,
		}); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("NegatedTruthiness", func(t *testing.T) {
		pool := litmus.NewConstantPool(nil)
		got := litmus.BuildCondition(litmus.ParseCondExpr("!r0"), resolve, pool)
		if diff := cmp.Diff(got, &litmus.CondRule{
			LHSID: "reg-0-r0",
			RHSID: "const-0",
			Op:    litmus.CmpEQ,
		}); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("UnresolvedIdent", func(t *testing.T) {
		// An unknown identifier keeps the rule structurally valid with an
		// empty operand id.
		pool := litmus.NewConstantPool(nil)
		got := litmus.BuildCondition(litmus.ParseCondExpr("zz == 1"), resolve, pool)
		if diff := cmp.Diff(got, &litmus.CondRule{
			LHSID: "",
			RHSID: "const-1",
			Op:    litmus.CmpEQ,
		}); diff != "" {
			t.Fatal(diff)
		}
	})
}

func TestNegateCondition(t *testing.T) {
	t.Run("Rule", func(t *testing.T) {
		got := litmus.NegateCondition(&litmus.CondRule{LHSID: "a", RHSID: "b", Op: litmus.CmpLT})
		if diff := cmp.Diff(got, &litmus.CondRule{LHSID: "a", RHSID: "b", Op: litmus.CmpGE}); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("DeMorgan", func(t *testing.T) {
		got := litmus.NegateCondition(&litmus.CondGroup{
			Items: []litmus.BranchCondition{
				&litmus.CondRule{LHSID: "a", RHSID: "b", Op: litmus.CmpEQ},
				&litmus.CondRule{LHSID: "c", RHSID: "d", Op: litmus.CmpEQ},
			},
			Ops: []litmus.LogicOp{litmus.LogicAnd},
		})
		if diff := cmp.Diff(got, &litmus.CondGroup{
			Items: []litmus.BranchCondition{
				&litmus.CondRule{LHSID: "a", RHSID: "b", Op: litmus.CmpNE},
				&litmus.CondRule{LHSID: "c", RHSID: "d", Op: litmus.CmpNE},
			},
			Ops: []litmus.LogicOp{litmus.LogicOr},
		}); diff != "" {
			t.Fatal(diff)
		}
	})
}

func TestConditionOperands(t *testing.T) {
	got := litmus.ConditionOperands(&litmus.CondGroup{
		Items: []litmus.BranchCondition{
			&litmus.CondRule{LHSID: "a", RHSID: "b", Op: litmus.CmpEQ},
			&litmus.CondRule{LHSID: "", RHSID: "c", Op: litmus.CmpEQ},
		},
		Ops: []litmus.LogicOp{litmus.LogicOr},
	})
	if diff := cmp.Diff(got, []string{"a", "b", "c"}); diff != "" {
		t.Fatal(diff)
	}
}

func TestFormatCondition(t *testing.T) {
	display := map[string]string{
		"reg-0-a": "a",
		"reg-0-b": "b",
		"const-1": "1",
		"const-2": "2",
	}
	names := func(id string) string { return display[id] }

	cond := &litmus.CondGroup{
		Items: []litmus.BranchCondition{
			&litmus.CondRule{LHSID: "reg-0-a", RHSID: "const-1", Op: litmus.CmpEQ},
			&litmus.CondGroup{
				Items: []litmus.BranchCondition{
					&litmus.CondRule{LHSID: "reg-0-b", RHSID: "const-2", Op: litmus.CmpNE},
					&litmus.CondRule{LHSID: "reg-0-a", RHSID: "reg-0-b", Op: litmus.CmpLE},
				},
				Ops: []litmus.LogicOp{litmus.LogicOr},
			},
		},
		Ops: []litmus.LogicOp{litmus.LogicAnd},
	}
	if got, exp := litmus.FormatCondition(cond, names), "a == 1 && (b != 2 || a <= b)"; got != exp {
		t.Fatalf("got %q, expected %q", got, exp)
	}

	t.Run("UnsetOperand", func(t *testing.T) {
		rule := &litmus.CondRule{LHSID: "", RHSID: "const-1", Op: litmus.CmpEQ}
		if got, exp := litmus.FormatCondition(rule, names), "? == 1"; got != exp {
			t.Fatalf("got %q, expected %q", got, exp)
		}
	})
}

func TestConstantPool(t *testing.T) {
	pool := litmus.NewConstantPool(nil)
	a := pool.Intern("16")
	b := pool.Intern("0x10")
	if a != b {
		t.Fatalf("literal spellings not deduplicated: %q vs %q", a, b)
	}
	if got, exp := len(pool.Vars()), 1; got != exp {
		t.Fatalf("vars=%d, expected %d", got, exp)
	}
	if got, exp := pool.Vars()[0].Value, "16"; got != exp {
		t.Fatalf("value=%q, expected %q", got, exp)
	}

	t.Run("SeededFromMemory", func(t *testing.T) {
		seeded := litmus.NewConstantPool(litmus.Memory{
			{ID: "const-5", Name: "5", Scope: litmus.ScopeConstants, Kind: litmus.VarInt, Value: "5"},
		})
		if got, exp := seeded.Intern("5"), "const-5"; got != exp {
			t.Fatalf("got %q, expected %q", got, exp)
		}
		if got, exp := len(seeded.Vars()), 0; got != exp {
			t.Fatalf("vars=%d, expected %d", got, exp)
		}
	})
}
