package diff

import (
	"sort"

	"github.com/awmpietro/golang-trace-explainability-case/internal/artifact"
)

type ChangeKind string

const (
	// Missing: present in A, absent in B.
	Missing     ChangeKind = "missing"
	Added       ChangeKind = "added"
	TypeChange  ChangeKind = "type_change"
	ValueChange ChangeKind = "value_change"
)

type EntryKind string

const (
	EntryAdded   EntryKind = "added"
	EntryRemoved EntryKind = "removed"
)

// FieldChange is a difference inside an aligned pair of entries.
type FieldChange struct {
	Index int             `json:"index"`
	Field string          `json:"field"`
	Kind  ChangeKind      `json:"kind"`
	A     *artifact.Value `json:"a,omitempty"`
	B     *artifact.Value `json:"b,omitempty"`
	TypeA string          `json:"type_a,omitempty"`
	TypeB string          `json:"type_b,omitempty"`
}

// EntryChange is a whole entry present on one side only.
type EntryChange struct {
	Index int             `json:"index"`
	Kind  EntryKind       `json:"kind"`
	Entry artifact.Record `json:"entry"`
}

// Move is an entry found unchanged at a different position.
type Move struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type Sequence struct {
	Entries []EntryChange `json:"entries,omitempty"`
	Moves   []Move        `json:"moves,omitempty"`
	Fields  []FieldChange `json:"fields,omitempty"`
}

func (s Sequence) Empty() bool {
	return len(s.Entries) == 0 && len(s.Moves) == 0 && len(s.Fields) == 0
}

// OnlyMoves reports whether every difference is positional.
func (s Sequence) OnlyMoves() bool {
	return len(s.Moves) > 0 && len(s.Entries) == 0 && len(s.Fields) == 0
}

type OutputDiff struct {
	Sequence
}

type TraceDiff struct {
	Sequence
}

func Results(a, b []artifact.Record) OutputDiff {
	return OutputDiff{Sequence: compare(a, b)}
}

func Traces(a, b []Event) TraceDiff {
	return TraceDiff{Sequence: compare(shapes(a), shapes(b))}
}

func shapes(events []Event) []artifact.Record {
	out := make([]artifact.Record, len(events))
	for i, ev := range events {
		out[i] = ev.Shape()
	}
	return out
}

func compare(a, b []artifact.Record) Sequence {
	n := min(len(a), len(b))

	var differing []int
	for i := 0; i < n; i++ {
		if !a[i].Equal(b[i]) {
			differing = append(differing, i)
		}
	}

	var s Sequence

	// Pair each differing A entry with the first unused differing B position
	// holding an identical entry.
	candidates := make(map[string][]int)
	for _, j := range differing {
		key := b[j].Canonical()
		candidates[key] = append(candidates[key], j)
	}
	movedFrom := make(map[int]bool)
	movedTo := make(map[int]bool)
	for _, i := range differing {
		key := a[i].Canonical()
		queue := candidates[key]
		if len(queue) == 0 {
			continue
		}
		j := queue[0]
		candidates[key] = queue[1:]
		s.Moves = append(s.Moves, Move{From: i, To: j})
		movedFrom[i] = true
		movedTo[j] = true
	}

	for _, i := range differing {
		switch {
		case movedFrom[i] && movedTo[i]:
		case movedFrom[i]:
			s.Entries = append(s.Entries, EntryChange{Index: i, Kind: EntryAdded, Entry: b[i]})
		case movedTo[i]:
			s.Entries = append(s.Entries, EntryChange{Index: i, Kind: EntryRemoved, Entry: a[i]})
		default:
			s.Fields = append(s.Fields, fieldChanges(i, a[i], b[i])...)
		}
	}

	for i := n; i < len(a); i++ {
		s.Entries = append(s.Entries, EntryChange{Index: i, Kind: EntryRemoved, Entry: a[i]})
	}
	for i := n; i < len(b); i++ {
		s.Entries = append(s.Entries, EntryChange{Index: i, Kind: EntryAdded, Entry: b[i]})
	}

	sort.SliceStable(s.Entries, func(x, y int) bool {
		if s.Entries[x].Index != s.Entries[y].Index {
			return s.Entries[x].Index < s.Entries[y].Index
		}
		return s.Entries[x].Kind < s.Entries[y].Kind
	})
	sort.SliceStable(s.Moves, func(x, y int) bool { return s.Moves[x].From < s.Moves[y].From })
	sort.SliceStable(s.Fields, func(x, y int) bool {
		if s.Fields[x].Index != s.Fields[y].Index {
			return s.Fields[x].Index < s.Fields[y].Index
		}
		return s.Fields[x].Field < s.Fields[y].Field
	})
	return s
}

func fieldChanges(index int, a, b artifact.Record) []FieldChange {
	keys := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		keys[k] = struct{}{}
	}
	for k := range b {
		keys[k] = struct{}{}
	}
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)

	var out []FieldChange
	for _, name := range names {
		av, inA := a[name]
		bv, inB := b[name]
		switch {
		case inA && !inB:
			out = append(out, FieldChange{Index: index, Field: name, Kind: Missing, A: ptr(av), TypeA: av.Kind().String()})
		case !inA && inB:
			out = append(out, FieldChange{Index: index, Field: name, Kind: Added, B: ptr(bv), TypeB: bv.Kind().String()})
		case av.Kind() != bv.Kind():
			out = append(out, FieldChange{Index: index, Field: name, Kind: TypeChange, A: ptr(av), B: ptr(bv), TypeA: av.Kind().String(), TypeB: bv.Kind().String()})
		case !av.Equal(bv):
			out = append(out, FieldChange{Index: index, Field: name, Kind: ValueChange, A: ptr(av), B: ptr(bv), TypeA: av.Kind().String(), TypeB: bv.Kind().String()})
		}
	}
	return out
}

func ptr(v artifact.Value) *artifact.Value { return &v }
