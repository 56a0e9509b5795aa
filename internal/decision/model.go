package decision

import (
	"sort"

	"github.com/awmpietro/golang-trace-explainability-case/internal/artifact"
	"github.com/awmpietro/golang-trace-explainability-case/internal/decision/eval"
	"github.com/awmpietro/golang-trace-explainability-case/internal/diff"
)

// Point is a declared decision point: a place in the pipeline where a
// decision variable changes behavior and an event is expected.
type Point struct {
	ID       string `json:"id"`
	Variable string `json:"variable"`
	Event    string `json:"event"`
	Source   string `json:"source,omitempty"`
	When     string `json:"when,omitempty"`

	cond *eval.Compiled
}

// Expected reports whether the point should have emitted its event under cfg.
func (p *Point) Expected(cfg artifact.Config) (bool, error) {
	return p.cond.Eval(cfg.Vars())
}

// Count returns how many events in the trace match the point.
func (p *Point) Count(events []diff.Event) int {
	n := 0
	for _, ev := range events {
		if ev.Is(p.Source, p.Event) {
			n++
		}
	}
	return n
}

func (p *Point) first(events []diff.Event) int {
	for i, ev := range events {
		if ev.Is(p.Source, p.Event) {
			return i
		}
	}
	return -1
}

// Edge declares that From's event is emitted before To's.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type Catalog struct {
	Points []*Point `json:"points"`
	Order  []Edge   `json:"order,omitempty"`

	byID       map[string]*Point
	byVariable map[string][]*Point
}

func newCatalog(points []*Point, order []Edge) *Catalog {
	sort.Slice(points, func(i, j int) bool { return points[i].ID < points[j].ID })
	c := &Catalog{
		Points:     points,
		Order:      order,
		byID:       make(map[string]*Point, len(points)),
		byVariable: make(map[string][]*Point),
	}
	for _, p := range points {
		c.byID[p.ID] = p
		c.byVariable[p.Variable] = append(c.byVariable[p.Variable], p)
	}
	return c
}

func (c *Catalog) Point(id string) *Point {
	if c == nil {
		return nil
	}
	return c.byID[id]
}

func (c *Catalog) ForVariable(name string) []*Point {
	if c == nil {
		return nil
	}
	return c.byVariable[name]
}

func (c *Catalog) Declares(variable string) bool {
	return len(c.ForVariable(variable)) > 0
}

// Variables returns the sorted names of all variables with a declared point.
func (c *Catalog) Variables() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.byVariable))
	for v := range c.byVariable {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
