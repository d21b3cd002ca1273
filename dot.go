package litmus

import (
	"fmt"
	"io"
	"strings"
	"text/template"
)

// WriteDOT renders the trace graph as a Graphviz document, one cluster per
// thread with relation edges between operation nodes. This is a debugging
// surface; image rendering is left to the dot tool.
func WriteDOT(w io.Writer, g *Graph) error {
	type dotNode struct {
		ID, Label string
	}
	type dotThread struct {
		TID   int
		Nodes []dotNode
	}
	type dotEdge struct {
		From, To, Label, Attrs string
	}
	data := struct {
		Name    string
		Threads []dotThread
		Edges   []dotEdge
	}{Name: g.Name}

	for _, tid := range g.ThreadIDs() {
		t := dotThread{TID: tid}
		for _, n := range g.ThreadNodes(tid) {
			t.Nodes = append(t.Nodes, dotNode{ID: n.ID, Label: escapeLabel(n.String())})
		}
		data.Threads = append(data.Threads, t)
	}
	for _, e := range g.Edges {
		de := dotEdge{From: e.Source, To: e.Target, Label: e.Type}
		if e.SourceHandle != "" {
			de.Label = fmt.Sprintf("%s[%s]", e.Type, e.SourceHandle)
		}
		switch {
		case e.Invalid:
			de.Attrs = "color=red"
		case e.Type != RelPO:
			de.Attrs = "style=dashed"
		}
		data.Edges = append(data.Edges, de)
	}
	return dotTemplate.Execute(w, data)
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

var dotTemplate = template.Must(template.New("dot").Parse(`digraph "{{.Name}}" {
	rankdir=TB;
	node [shape=box];
{{- range .Threads}}
	subgraph "cluster_P{{.TID}}" {
		label="P{{.TID}}";
{{- range .Nodes}}
		"{{.ID}}" [label="{{.Label}}"];
{{- end}}
	}
{{- end}}
{{- range .Edges}}
	"{{.From}}" -> "{{.To}}" [label="{{.Label}}"{{if .Attrs}}, {{.Attrs}}{{end}}];
{{- end}}
}
`))
