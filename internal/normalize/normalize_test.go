package normalize

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/awmpietro/golang-trace-explainability-case/internal/artifact"
	"github.com/awmpietro/golang-trace-explainability-case/internal/diff"
)

var valueCmp = cmp.Comparer(func(a, b artifact.Value) bool { return a.Equal(b) })

func TestOutput_CoercesAllowListedFields(t *testing.T) {
	records := []artifact.Record{
		{"count": artifact.String(" 12 "), "record_count": artifact.String("-3"), "zip": artifact.String("01234")},
		{"count": artifact.Int(4), "record_count": artifact.Null()},
	}

	res := Output(records, artifact.Config{}, nil)

	want := []artifact.Record{
		{"count": artifact.Int(12), "record_count": artifact.Int(-3), "zip": artifact.String("01234")},
		{"count": artifact.Int(4), "record_count": artifact.Null()},
	}
	if diff := cmp.Diff(want, res.Records, valueCmp); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %+v", res.Warnings)
	}
}

func TestOutput_CoercionFailureKeepsValue(t *testing.T) {
	records := []artifact.Record{
		{"count": artifact.String("12a")},
		{"count": artifact.Float(1.5)},
		{"count": artifact.String("99999999999999999999")},
	}

	res := Output(records, artifact.Config{}, nil)

	if diff := cmp.Diff(records, res.Records, valueCmp); diff != "" {
		t.Fatalf("expected values unchanged (-want +got):\n%s", diff)
	}
	if len(res.Warnings) != 3 {
		t.Fatalf("expected 3 warnings, got %d", len(res.Warnings))
	}
	for i, w := range res.Warnings {
		if w.Kind != CoercionFailed || w.Index != i || w.Field != "count" {
			t.Fatalf("unexpected warning %d: %+v", i, w)
		}
		var ce *CoercionError
		if !errors.As(w.Err, &ce) || ce.Record != i {
			t.Fatalf("expected CoercionError for record %d, got %v", i, w.Err)
		}
	}
}

func TestOutput_ExplicitAllowList(t *testing.T) {
	records := []artifact.Record{{"count": artifact.String("1"), "total": artifact.String("2")}}

	res := Output(records, artifact.Config{}, []string{"total"})

	if !res.Records[0]["count"].Equal(artifact.String("1")) {
		t.Fatalf("count must not be coerced outside the allow-list")
	}
	if !res.Records[0]["total"].Equal(artifact.Int(2)) {
		t.Fatalf("expected total coerced, got %v", res.Records[0]["total"])
	}
}

func TestOutput_NormalizeKeys(t *testing.T) {
	cfg := artifact.Config{artifact.VarNormalizeKeys: artifact.Bool(true)}
	records := []artifact.Record{{"Author": artifact.String("Brent"), "Count": artifact.String("1")}}

	res := Output(records, cfg, nil)

	want := []artifact.Record{{"author": artifact.String("Brent"), "count": artifact.Int(1)}}
	if diff := cmp.Diff(want, res.Records, valueCmp); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestOutput_KeyCollisionKeepsSmallestKey(t *testing.T) {
	cfg := artifact.Config{artifact.VarNormalizeKeys: artifact.String("true")}
	records := []artifact.Record{{"name": artifact.String("b"), "Name": artifact.String("a"), "NAME": artifact.String("c")}}

	res := Output(records, cfg, nil)

	if got := res.Records[0]["name"]; !got.Equal(artifact.String("c")) {
		t.Fatalf("expected value of %q, got %v", "NAME", got)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Kind != KeyCollision {
		t.Fatalf("expected one key collision warning, got %+v", res.Warnings)
	}
}

func TestOutput_DoesNotMutateInput(t *testing.T) {
	records := []artifact.Record{{"Count": artifact.String("1")}}
	cfg := artifact.Config{artifact.VarNormalizeKeys: artifact.Bool(true)}

	_ = Output(records, cfg, nil)

	if _, ok := records[0]["count"]; ok {
		t.Fatalf("input record was modified")
	}
	if !records[0]["Count"].Equal(artifact.String("1")) {
		t.Fatalf("input value was modified")
	}
}

func TestOutput_Idempotent(t *testing.T) {
	cfg := artifact.Config{artifact.VarNormalizeKeys: artifact.Bool(true)}
	records := []artifact.Record{
		{"Author": artifact.String("Brent"), "COUNT": artifact.String("7"), "record_count": artifact.String("x")},
		{"author": artifact.String("Alex"), "count": artifact.Int(2)},
	}

	once := Output(records, cfg, nil)
	twice := Output(once.Records, cfg, nil)

	if diff := cmp.Diff(once.Records, twice.Records, valueCmp); diff != "" {
		t.Fatalf("normalization is not idempotent (-once +twice):\n%s", diff)
	}
}

func TestOutput_CrossFormatEquivalence(t *testing.T) {
	cfg := artifact.Config{artifact.VarNormalizeKeys: artifact.Bool(true)}
	fromJSON := []artifact.Record{{"author": artifact.String("Brent"), "count": artifact.Int(1)}}
	fromCSV := []artifact.Record{{"Author": artifact.String("Brent"), "count": artifact.String("1")}}

	a := Output(fromJSON, cfg, nil)
	b := Output(fromCSV, cfg, nil)

	if d := diff.Results(a.Records, b.Records); !d.Empty() {
		t.Fatalf("expected no output difference across formats, got %+v", d)
	}
}

func TestTrace_StripsTimestampsAndKeepsOrder(t *testing.T) {
	events := []artifact.TraceEvent{
		{Timestamp: "2024-01-01T00:00:00.000001", Source: "ingestion.ingest", Type: "ingest_start"},
		{Timestamp: "2024-01-01T00:00:00.000002", Source: "ingestion.ingest", Type: "keys_normalized", Fields: artifact.Record{"n": artifact.Int(2)}},
	}

	res := Trace(events)

	want := []diff.Event{
		{Source: "ingestion.ingest", Type: "ingest_start"},
		{Source: "ingestion.ingest", Type: "keys_normalized", Fields: artifact.Record{"n": artifact.Int(2)}},
	}
	if d := cmp.Diff(want, res.Events, valueCmp); d != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", d)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %+v", res.Warnings)
	}
}

func TestTrace_IntegrityWarnings(t *testing.T) {
	events := []artifact.TraceEvent{
		{Timestamp: "2024-01-01T00:00:02Z", Source: "s", Type: "a"},
		{Timestamp: "2024-01-01T00:00:01Z", Source: "s", Type: "b"},
		{Timestamp: "2024-01-01T00:00:01Z", Source: "s", Type: "b"},
		{Timestamp: "yesterday", Source: "s", Type: "c"},
		{Source: "s", Type: "d"},
	}

	res := Trace(events)

	if len(res.Events) != len(events) {
		t.Fatalf("events must not be deduplicated: got %d", len(res.Events))
	}

	got := make([]WarningKind, 0, len(res.Warnings))
	for _, w := range res.Warnings {
		got = append(got, w.Kind)
	}
	want := []WarningKind{NonMonotonicTimestamp, DuplicateEvent, UnparseableTimestamp}
	if d := cmp.Diff(want, got); d != "" {
		t.Fatalf("warnings mismatch (-want +got):\n%s", d)
	}
}

func TestTag_SetsRun(t *testing.T) {
	ws := Tag([]Warning{{Kind: DuplicateEvent}}, "A")
	if ws[0].Run != "A" {
		t.Fatalf("expected run tag, got %+v", ws[0])
	}
	if Tag(nil, "A") != nil {
		t.Fatalf("expected nil for no warnings")
	}
}
