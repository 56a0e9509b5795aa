package diff

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/awmpietro/golang-trace-explainability-case/internal/artifact"
)

var valueCmp = cmp.Comparer(func(a, b artifact.Value) bool { return a.Equal(b) })

func rec(kv ...any) artifact.Record {
	r := artifact.Record{}
	for i := 0; i < len(kv); i += 2 {
		r[kv[i].(string)] = kv[i+1].(artifact.Value)
	}
	return r
}

func val(v artifact.Value) *artifact.Value { return &v }

func TestResults_IdenticalIsEmpty(t *testing.T) {
	a := []artifact.Record{rec("author", artifact.String("Brent"), "count", artifact.Int(1))}
	b := []artifact.Record{rec("count", artifact.Int(1), "author", artifact.String("Brent"))}

	if d := Results(a, b); !d.Empty() {
		t.Fatalf("expected empty diff, got %+v", d)
	}
}

func TestResults_FieldChanges(t *testing.T) {
	a := []artifact.Record{rec(
		"author", artifact.String("Brent"),
		"count", artifact.String("1"),
		"gone", artifact.Bool(true),
	)}
	b := []artifact.Record{rec(
		"author", artifact.String("Alex"),
		"count", artifact.Int(1),
		"new", artifact.Null(),
	)}

	got := Results(a, b)
	want := []FieldChange{
		{Index: 0, Field: "author", Kind: ValueChange, A: val(artifact.String("Brent")), B: val(artifact.String("Alex")), TypeA: "string", TypeB: "string"},
		{Index: 0, Field: "count", Kind: TypeChange, A: val(artifact.String("1")), B: val(artifact.Int(1)), TypeA: "string", TypeB: "integer"},
		{Index: 0, Field: "gone", Kind: Missing, A: val(artifact.Bool(true)), TypeA: "boolean"},
		{Index: 0, Field: "new", Kind: Added, B: val(artifact.Null()), TypeB: "null"},
	}
	if diff := cmp.Diff(want, got.Fields, valueCmp); diff != "" {
		t.Fatalf("field changes mismatch (-want +got):\n%s", diff)
	}
	if len(got.Moves) != 0 || len(got.Entries) != 0 {
		t.Fatalf("expected only field changes, got %+v", got)
	}
}

func TestResults_TrailingEntries(t *testing.T) {
	x := rec("id", artifact.Int(1))
	y := rec("id", artifact.Int(2))
	z := rec("id", artifact.Int(3))

	got := Results([]artifact.Record{x, y}, []artifact.Record{x, y, z})
	want := []EntryChange{{Index: 2, Kind: EntryAdded, Entry: z}}
	if diff := cmp.Diff(want, got.Entries, valueCmp); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}

	got = Results([]artifact.Record{x, y, z}, []artifact.Record{x})
	want = []EntryChange{
		{Index: 1, Kind: EntryRemoved, Entry: y},
		{Index: 2, Kind: EntryRemoved, Entry: z},
	}
	if diff := cmp.Diff(want, got.Entries, valueCmp); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestResults_ReorderIsOnlyPositional(t *testing.T) {
	x := rec("name", artifact.String("Alex"))
	y := rec("name", artifact.String("Brent"))
	z := rec("name", artifact.String("Chen"))

	got := Results([]artifact.Record{x, y, z}, []artifact.Record{z, y, x})
	if !got.OnlyMoves() {
		t.Fatalf("expected only positional changes, got %+v", got)
	}
	want := []Move{{From: 0, To: 2}, {From: 2, To: 0}}
	if diff := cmp.Diff(want, got.Moves); diff != "" {
		t.Fatalf("moves mismatch (-want +got):\n%s", diff)
	}
}

func TestResults_Deterministic(t *testing.T) {
	a := []artifact.Record{
		rec("b", artifact.Int(1), "a", artifact.Int(2), "c", artifact.Int(3)),
		rec("k", artifact.String("x")),
	}
	b := []artifact.Record{
		rec("b", artifact.Int(9), "a", artifact.String("2")),
		rec("k", artifact.String("y"), "z", artifact.Bool(false)),
	}

	first := Results(a, b)
	for i := 0; i < 20; i++ {
		if diff := cmp.Diff(first, Results(a, b), valueCmp); diff != "" {
			t.Fatalf("diff is not deterministic:\n%s", diff)
		}
	}
}

func TestTraces_ComparesShapeOnly(t *testing.T) {
	a := []Event{{Source: "ingestion.ingest", Type: "keys_normalized"}}
	b := []Event{{Source: "ingestion.ingest", Type: "keys_normalized"}}
	if d := Traces(a, b); !d.Empty() {
		t.Fatalf("expected empty trace diff, got %+v", d)
	}

	b = []Event{{Source: "ingestion.ingest", Type: "keys_normalized", Fields: rec("n", artifact.Int(2))}}
	got := Traces(a, b)
	if len(got.Fields) != 1 || got.Fields[0].Field != "fields.n" || got.Fields[0].Kind != Added {
		t.Fatalf("expected namespaced added field, got %+v", got.Fields)
	}
}

func TestTraces_EventOnlyInB(t *testing.T) {
	start := Event{Source: "ingestion.ingest", Type: "ingest_start"}
	sorted := Event{Source: "ingestion.ingest", Type: "records_sorted"}

	got := Traces([]Event{start}, []Event{start, sorted})
	if len(got.Entries) != 1 || got.Entries[0].Kind != EntryAdded || got.Entries[0].Index != 1 {
		t.Fatalf("expected added event at 1, got %+v", got.Entries)
	}
}
