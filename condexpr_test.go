package litmus_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	litmus "github.com/sohambagchi/litmusgraph"
)

func TestParseCondExpr(t *testing.T) {
	t.Run("Comparison", func(t *testing.T) {
		if diff := cmp.Diff(litmus.ParseCondExpr("r0 == 1"), &litmus.BinaryCondExpr{
			Cmp: litmus.CmpEQ,
			LHS: &litmus.IdentExpr{Name: "r0"},
			RHS: &litmus.NumberExpr{Text: "1"},
		}); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("Precedence", func(t *testing.T) {
		// '&&' binds tighter than '||'.
		if diff := cmp.Diff(litmus.ParseCondExpr("a == 1 || b == 2 && c == 3"), &litmus.BinaryCondExpr{
			IsLogic: true,
			Log:     litmus.LogicOr,
			LHS: &litmus.BinaryCondExpr{
				Cmp: litmus.CmpEQ,
				LHS: &litmus.IdentExpr{Name: "a"},
				RHS: &litmus.NumberExpr{Text: "1"},
			},
			RHS: &litmus.BinaryCondExpr{
				IsLogic: true,
				Log:     litmus.LogicAnd,
				LHS: &litmus.BinaryCondExpr{
					Cmp: litmus.CmpEQ,
					LHS: &litmus.IdentExpr{Name: "b"},
					RHS: &litmus.NumberExpr{Text: "2"},
				},
				RHS: &litmus.BinaryCondExpr{
					Cmp: litmus.CmpEQ,
					LHS: &litmus.IdentExpr{Name: "c"},
					RHS: &litmus.NumberExpr{Text: "3"},
				},
			},
		}); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("NotAndParens", func(t *testing.T) {
		if diff := cmp.Diff(litmus.ParseCondExpr("!(r0 == 1) && r1"), &litmus.BinaryCondExpr{
			IsLogic: true,
			Log:     litmus.LogicAnd,
			LHS: &litmus.NotCondExpr{X: &litmus.BinaryCondExpr{
				Cmp: litmus.CmpEQ,
				LHS: &litmus.IdentExpr{Name: "r0"},
				RHS: &litmus.NumberExpr{Text: "1"},
			}},
			RHS: &litmus.IdentExpr{Name: "r1"},
		}); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("Literals", func(t *testing.T) {
		if diff := cmp.Diff(litmus.ParseCondExpr("r0 >= -1"), &litmus.BinaryCondExpr{
			Cmp: litmus.CmpGE,
			LHS: &litmus.IdentExpr{Name: "r0"},
			RHS: &litmus.NumberExpr{Text: "-1"},
		}); diff != "" {
			t.Fatal(diff)
		}
		if diff := cmp.Diff(litmus.ParseCondExpr("r0 < 0x10"), &litmus.BinaryCondExpr{
			Cmp: litmus.CmpLT,
			LHS: &litmus.IdentExpr{Name: "r0"},
			RHS: &litmus.NumberExpr{Text: "0x10"},
		}); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("GarbageSkipped", func(t *testing.T) {
		// Unrecognized characters do not derail the parse.
		if diff := cmp.Diff(
			litmus.ParseCondExpr("r0 @ == $ 1"),
			litmus.ParseCondExpr("r0 == 1"),
		); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if diff := cmp.Diff(litmus.ParseCondExpr(""), &litmus.NumberExpr{Text: "0"}); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("MissingOperand", func(t *testing.T) {
		if diff := cmp.Diff(litmus.ParseCondExpr("r0 =="), &litmus.BinaryCondExpr{
			Cmp: litmus.CmpEQ,
			LHS: &litmus.IdentExpr{Name: "r0"},
			RHS: &litmus.NumberExpr{Text: "0"},
		}); diff != "" {
			t.Fatal(diff)
		}
	})
}
