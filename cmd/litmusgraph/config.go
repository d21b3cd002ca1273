package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/sohambagchi/litmusgraph"
)

// Config supplies the externally owned vocabulary: the relation-type names
// extracted from a .cat memory model and the legal memory-order labels.
type Config struct {
	Relations    []string `yaml:"relations"`
	MemoryOrders []string `yaml:"memory_orders"`
}

// LoadConfig reads a YAML config file. An empty path returns defaults.
func LoadConfig(path string) (*Config, error) {
	config := &Config{}
	if path == "" {
		return config, nil
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(buf, config); err != nil {
		return nil, fmt.Errorf("config %s: %w", filepath.Base(path), err)
	}
	return config, nil
}

// Vocabulary returns the configured relation vocabulary.
func (c *Config) Vocabulary() litmus.RelationVocabulary {
	return litmus.RelationVocabulary(c.Relations)
}

// UnknownOrders returns the memory-order labels used in the graph that are
// missing from the configured list, in first-use order. An empty configured
// list accepts everything.
func (c *Config) UnknownOrders(g *litmus.Graph) []string {
	if len(c.MemoryOrders) == 0 {
		return nil
	}
	legal := make(map[string]bool, len(c.MemoryOrders))
	for _, s := range c.MemoryOrders {
		legal[s] = true
	}

	seen := make(map[string]bool)
	var unknown []string
	report := func(order string) {
		if order == "" || legal[order] || seen[order] {
			return
		}
		seen[order] = true
		unknown = append(unknown, order)
	}
	for _, n := range g.Nodes {
		switch op := n.Op.(type) {
		case *litmus.Load:
			report(op.MemoryOrder)
		case *litmus.Store:
			report(op.MemoryOrder)
		case *litmus.RMW:
			report(op.SuccessMemoryOrder)
			report(op.FailureMemoryOrder)
		case *litmus.Fence:
			report(op.MemoryOrder)
		}
	}
	return unknown
}

// parseFile reads and parses one litmus file, using the file name as the
// fallback title.
func parseFile(path string) (*litmus.Graph, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return litmus.Parse(string(buf), litmus.ParseOptions{FallbackTitle: title})
}
