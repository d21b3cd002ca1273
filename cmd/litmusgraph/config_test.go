package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/sohambagchi/litmusgraph"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yml")
	data := "relations:\n  - sync\nmemory_orders:\n  - relaxed\n  - acquire\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if !config.Vocabulary().Contains("sync") {
		t.Fatal("expected vocabulary to contain sync")
	}
	if got, exp := len(config.MemoryOrders), 2; got != exp {
		t.Fatalf("memory orders=%d, expected %d", got, exp)
	}
}

func TestConfig_UnknownOrders(t *testing.T) {
	g := &litmus.Graph{
		Nodes: []*litmus.TraceNode{
			{ID: "t0-0", ThreadID: 0, SeqIndex: 0, Op: &litmus.Store{AddressID: "loc-x", ValueID: "const-1", MemoryOrder: "weird"}},
			{ID: "t1-0", ThreadID: 1, SeqIndex: 0, Op: &litmus.Load{AddressID: "loc-x", ResultID: "reg-1-r0", MemoryOrder: "acquire"}},
		},
	}

	config := &Config{MemoryOrders: []string{"relaxed", "acquire"}}
	if got, exp := config.UnknownOrders(g), []string{"weird"}; !reflect.DeepEqual(got, exp) {
		t.Fatalf("unknown orders=%v, expected %v", got, exp)
	}

	// An empty configured list accepts everything.
	if got := (&Config{}).UnknownOrders(g); got != nil {
		t.Fatalf("unknown orders=%v, expected none", got)
	}
}
