// internal/decision/compiler.go
package decision

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/awalterschulze/gographviz"

	"github.com/awmpietro/golang-trace-explainability-case/internal/decision/eval"
)

type Compiler struct{}

func NewCompiler() *Compiler { return &Compiler{} }

// Compile parses a decision-point catalog written in DOT:
//
//	digraph catalog {
//	  normalize [variable="normalize_keys", event="keys_normalized", source="ingestion.ingest", when="normalize_keys == true"]
//	  sort      [variable="order", event="records_sorted", when="order == 'sorted'"]
//	  normalize -> sort
//	}
//
// Edges declare expected emission order.
func (c *Compiler) Compile(dot string) (*Catalog, error) {
	ast, err := gographviz.ParseString(dot)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DOT: %w", err)
	}

	b := newCatalogBuilder()
	if err := gographviz.Analyse(ast, b); err != nil {
		return nil, fmt.Errorf("failed to analyze DOT: %w", err)
	}

	points := make([]*Point, 0, len(b.nodes))
	for _, name := range b.names {
		attrs := b.nodes[name]
		p := &Point{
			ID:       name,
			Variable: attrs["variable"],
			Event:    attrs["event"],
			Source:   attrs["source"],
			When:     strings.TrimSpace(attrs["when"]),
		}
		if p.Variable == "" {
			return nil, fmt.Errorf("point %q: missing variable attribute", name)
		}
		if p.Event == "" {
			return nil, fmt.Errorf("point %q: missing event attribute", name)
		}
		cond, err := eval.Compile(p.When)
		if err != nil {
			return nil, fmt.Errorf("invalid when on point %q: %w", name, err)
		}
		p.cond = cond
		points = append(points, p)
	}

	for _, e := range b.edges {
		if e.From == e.To {
			return nil, fmt.Errorf("edge %s->%s orders a point after itself", e.From, e.To)
		}
	}

	return newCatalog(points, b.edges), nil
}

// catalogBuilder receives the analysed graph. gographviz.Graph rejects
// attribute names outside the Graphviz vocabulary, so the catalog keeps its
// own.
type catalogBuilder struct {
	name  string
	nodes map[string]map[string]string
	names []string
	edges []Edge
}

var _ gographviz.Interface = (*catalogBuilder)(nil)

func newCatalogBuilder() *catalogBuilder {
	return &catalogBuilder{nodes: map[string]map[string]string{}}
}

func (b *catalogBuilder) SetStrict(strict bool) error { return nil }

func (b *catalogBuilder) SetDir(directed bool) error {
	if !directed {
		return fmt.Errorf("catalog must be a digraph")
	}
	return nil
}

func (b *catalogBuilder) SetName(name string) error {
	b.name = name
	return nil
}

func (b *catalogBuilder) AddPortEdge(src, srcPort, dst, dstPort string, directed bool, attrs map[string]string) error {
	return b.AddEdge(src, dst, directed, attrs)
}

// AddEdge is called in source order, which is the order edges are checked in.
func (b *catalogBuilder) AddEdge(src, dst string, directed bool, attrs map[string]string) error {
	b.touch(src)
	b.touch(dst)
	b.edges = append(b.edges, Edge{From: src, To: dst})
	return nil
}

// AddNode may be called more than once for a node (a statement plus each
// edge it appears in); attributes accumulate.
func (b *catalogBuilder) AddNode(parentGraph string, name string, attrs map[string]string) error {
	node := b.touch(name)
	for k, v := range attrs {
		node[k] = unquote(v)
	}
	return nil
}

func (b *catalogBuilder) AddAttr(parentGraph string, field, value string) error { return nil }

func (b *catalogBuilder) AddSubGraph(parentGraph string, name string, attrs map[string]string) error {
	return nil
}

func (b *catalogBuilder) String() string {
	var sb strings.Builder
	sb.WriteString("digraph ")
	if b.name != "" {
		sb.WriteString(b.name)
		sb.WriteByte(' ')
	}
	sb.WriteString("{\n")
	for _, name := range b.names {
		attrs := b.nodes[name]
		keys := make([]string, 0, len(attrs))
		for k := range attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", k, strconv.Quote(attrs[k])))
		}
		fmt.Fprintf(&sb, "  %s [%s]\n", name, strings.Join(parts, ", "))
	}
	for _, e := range b.edges {
		fmt.Fprintf(&sb, "  %s -> %s\n", e.From, e.To)
	}
	sb.WriteString("}\n")
	return sb.String()
}

func (b *catalogBuilder) touch(name string) map[string]string {
	node, ok := b.nodes[name]
	if !ok {
		node = map[string]string{}
		b.nodes[name] = node
		b.names = append(b.names, name)
	}
	return node
}

// unquote strips the quotes Graphviz keeps around attribute values.
func unquote(val string) string {
	val = strings.TrimSpace(val)
	if len(val) >= 2 && val[0] == '"' && val[len(val)-1] == '"' {
		if s, err := strconv.Unquote(val); err == nil {
			return s
		}
		return val[1 : len(val)-1]
	}
	return val
}
