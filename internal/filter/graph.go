// Package filter builds the effect graph handed to the external encoder.
// The graph is pure data: an ordered list of labeled processing stages with
// a single serialization point at the executor boundary. Constructing it has
// no side effects, so identical inputs always produce an identical graph.
package filter

import (
	"fmt"
	"strings"
)

// Param is one ordered filter parameter. A Param with an empty Key is
// serialized positionally. Ordered slices are used instead of maps so the
// serialized form is deterministic.
type Param struct {
	Key   string
	Value string
}

// Node is one processing stage: a filter kind plus its ordered parameters.
type Node struct {
	Kind   string
	Params []Param
}

// String serializes the node to ffmpeg filter syntax, e.g.
// "scale=1920:1080:force_original_aspect_ratio=increase".
func (n Node) String() string {
	if len(n.Params) == 0 {
		return n.Kind
	}
	parts := make([]string, 0, len(n.Params))
	for _, p := range n.Params {
		if p.Key == "" {
			parts = append(parts, p.Value)
		} else {
			parts = append(parts, p.Key+"="+p.Value)
		}
	}
	return n.Kind + "=" + strings.Join(parts, ":")
}

// Stmt is one statement of the graph: a node plus the explicit labels that
// thread its inputs and output. Inputs reference either a stream specifier
// ("0:v") or the output label of an earlier statement.
type Stmt struct {
	Inputs []string
	Node   Node
	Output string
}

// Graph is an ordered list of statements plus the label arena that allocated
// their intermediate names. Labels come from a single monotonic counter, so
// they never collide even when the same stage kind appears twice.
type Graph struct {
	stmts []Stmt
	next  int
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{}
}

// nextLabel allocates the next intermediate label from the arena.
func (g *Graph) nextLabel() string {
	l := fmt.Sprintf("s%d", g.next)
	g.next++
	return l
}

// Add appends a statement consuming the given inputs and returns the label
// allocated for its output.
func (g *Graph) Add(inputs []string, node Node) string {
	out := g.nextLabel()
	g.stmts = append(g.stmts, Stmt{Inputs: inputs, Node: node, Output: out})
	return out
}

// Chain appends a statement consuming a single input.
func (g *Graph) Chain(input string, node Node) string {
	return g.Add([]string{input}, node)
}

// Len returns the number of statements in the graph.
func (g *Graph) Len() int {
	return len(g.stmts)
}

// Stmts returns the statements in order.
func (g *Graph) Stmts() []Stmt {
	return g.stmts
}

// String serializes the whole graph to ffmpeg -filter_complex syntax:
// "[0:v]scale=...[s0];[s0]crop=...[s1];...".
func (g *Graph) String() string {
	var b strings.Builder
	for i, st := range g.stmts {
		if i > 0 {
			b.WriteByte(';')
		}
		for _, in := range st.Inputs {
			b.WriteByte('[')
			b.WriteString(in)
			b.WriteByte(']')
		}
		b.WriteString(st.Node.String())
		b.WriteByte('[')
		b.WriteString(st.Output)
		b.WriteByte(']')
	}
	return b.String()
}
