package decision

import (
	"fmt"

	"github.com/awmpietro/golang-trace-explainability-case/internal/artifact"
	"github.com/awmpietro/golang-trace-explainability-case/internal/diff"
)

// Completeness returns the points whose condition holds under cfg but whose
// event never appears in events.
func (c *Catalog) Completeness(cfg artifact.Config, events []diff.Event) ([]*Point, error) {
	if c == nil {
		return nil, nil
	}
	var gaps []*Point
	for _, p := range c.Points {
		expected, err := p.Expected(cfg)
		if err != nil {
			return nil, fmt.Errorf("point %q: when %q: %w", p.ID, p.When, err)
		}
		if expected && p.Count(events) == 0 {
			gaps = append(gaps, p)
		}
	}
	return gaps, nil
}

type Violation struct {
	Edge      Edge `json:"edge"`
	FromIndex int  `json:"from_index"`
	ToIndex   int  `json:"to_index"`
}

// OrderViolations returns the declared edges whose target event appears
// before the source event. Edges with either event absent are skipped.
func (c *Catalog) OrderViolations(events []diff.Event) []Violation {
	if c == nil {
		return nil
	}
	var out []Violation
	for _, e := range c.Order {
		from, to := c.byID[e.From], c.byID[e.To]
		if from == nil || to == nil {
			continue
		}
		fi, ti := from.first(events), to.first(events)
		if fi < 0 || ti < 0 {
			continue
		}
		if ti < fi {
			out = append(out, Violation{Edge: e, FromIndex: fi, ToIndex: ti})
		}
	}
	return out
}
