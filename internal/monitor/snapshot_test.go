package monitor

import (
	"math"
	"testing"
)

func TestPercentile_NearestRank(t *testing.T) {
	sorted := []float64{10, 20, 30, 40, 50, 100, 200, 300, 400, 500}

	tests := []struct {
		p    float64
		want float64
	}{
		{0.5, 50},   // ceil(10*0.5)-1 = 4
		{0.95, 500}, // ceil(10*0.95)-1 = 9
		{0.99, 500}, // ceil(10*0.99)-1 = 9
		{0.1, 10},   // ceil(10*0.1)-1 = 0
		{0.9, 400},  // ceil(10*0.9)-1 = 8
	}
	for _, tt := range tests {
		if got := percentile(sorted, tt.p); got != tt.want {
			t.Errorf("percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestPercentile_Empty(t *testing.T) {
	if got := percentile(nil, 0.5); got != 0 {
		t.Errorf("expected 0 for empty sample, got %v", got)
	}
}

func TestPercentile_SingleSample(t *testing.T) {
	for _, p := range []float64{0.5, 0.95, 0.99} {
		if got := percentile([]float64{42}, p); got != 42 {
			t.Errorf("percentile(%v) of single sample = %v, want 42", p, got)
		}
	}
}

func TestSnapshot_ReferenceDurations(t *testing.T) {
	e := newTestEngine()

	for _, d := range []float64{10, 20, 30, 40, 50, 100, 200, 300, 400, 500} {
		e.RecordToolCall(ToolCall{ToolName: "bench", Status: StatusSuccess, DurationMs: Millis(d)})
	}

	perf := e.Snapshot().Performance
	if perf.AvgLatencyMs != 165 {
		t.Errorf("expected average 165, got %v", perf.AvgLatencyMs)
	}
	if perf.P50LatencyMs != 50 {
		t.Errorf("expected p50 50, got %v", perf.P50LatencyMs)
	}
	if perf.P95LatencyMs != 500 {
		t.Errorf("expected p95 500, got %v", perf.P95LatencyMs)
	}
	if perf.P99LatencyMs != 500 {
		t.Errorf("expected p99 500, got %v", perf.P99LatencyMs)
	}
}

func TestSnapshot_PercentileMonotonicity(t *testing.T) {
	samples := [][]float64{
		{1},
		{3, 1, 2},
		{5, 5, 5, 5},
		{1000, 1, 999, 2, 500, 500, 3},
	}
	for _, durations := range samples {
		e := newTestEngine()
		for _, d := range durations {
			e.RecordToolCall(ToolCall{ToolName: "m", Status: StatusSuccess, DurationMs: Millis(d)})
		}
		perf := e.Snapshot().Performance
		if perf.P50LatencyMs > perf.P95LatencyMs || perf.P95LatencyMs > perf.P99LatencyMs {
			t.Errorf("percentiles not monotonic for %v: p50=%v p95=%v p99=%v",
				durations, perf.P50LatencyMs, perf.P95LatencyMs, perf.P99LatencyMs)
		}
	}
}

func TestSnapshot_AvgIgnoresMissingDurations(t *testing.T) {
	e := newTestEngine()

	e.RecordToolCall(ToolCall{ToolName: "t", Status: StatusSuccess, DurationMs: Millis(100)})
	e.RecordToolCall(ToolCall{ToolName: "t", Status: StatusSuccess}) // no duration supplied
	e.RecordToolCall(ToolCall{ToolName: "t", Status: StatusSuccess, DurationMs: Millis(300)})

	snap := e.Snapshot()
	agg := snap.Tools[0]
	if agg.CallCount != 3 {
		t.Errorf("expected 3 calls, got %d", agg.CallCount)
	}
	if agg.AvgDurationMs != 200 {
		t.Errorf("expected avg over supplied durations only (200), got %v", agg.AvgDurationMs)
	}
	if snap.Performance.AvgLatencyMs != 200 {
		t.Errorf("expected global avg 200, got %v", snap.Performance.AvgLatencyMs)
	}
}

func TestSnapshot_ResourceAggregates(t *testing.T) {
	e := newTestEngine()

	e.RecordResourceAccess(ResourceAccess{URI: "file:///a", Operation: ResourceOpRead, Status: StatusSuccess, BytesTransferred: 100})
	e.RecordResourceAccess(ResourceAccess{URI: "file:///a", Operation: ResourceOpRead, Status: StatusSuccess, BytesTransferred: 250})
	e.RecordResourceAccess(ResourceAccess{URI: "file:///b", Operation: ResourceOpWrite, Status: StatusError, Error: "denied"})

	snap := e.Snapshot()
	if len(snap.Resources) != 2 {
		t.Fatalf("expected 2 resource aggregates, got %d", len(snap.Resources))
	}
	// Aggregates come back sorted by URI.
	a, b := snap.Resources[0], snap.Resources[1]
	if a.URI != "file:///a" || b.URI != "file:///b" {
		t.Fatalf("unexpected aggregate order: %s, %s", a.URI, b.URI)
	}
	if a.TotalBytes != 350 {
		t.Errorf("expected 350 bytes for file:///a, got %d", a.TotalBytes)
	}
	if a.CallCount != 2 || a.SuccessCount != 2 {
		t.Errorf("unexpected counts for file:///a: %+v", a)
	}
	if b.ErrorCount != 1 || len(b.Errors) != 1 || b.Errors[0] != "denied" {
		t.Errorf("unexpected error aggregate for file:///b: %+v", b)
	}
}

func TestSnapshot_PromptAggregates(t *testing.T) {
	e := newTestEngine()

	e.RecordPromptCall(PromptCall{PromptName: "summarize", Status: StatusSuccess, TokensGenerated: 12})
	e.RecordPromptCall(PromptCall{PromptName: "summarize", Status: StatusSuccess, TokensGenerated: 30})

	snap := e.Snapshot()
	if len(snap.Prompts) != 1 {
		t.Fatalf("expected 1 prompt aggregate, got %d", len(snap.Prompts))
	}
	agg := snap.Prompts[0]
	if agg.TotalTokens != 42 {
		t.Errorf("expected 42 total tokens, got %d", agg.TotalTokens)
	}
}

func TestSnapshot_ToolLastCalledAt(t *testing.T) {
	e := newTestEngine()

	first := e.RecordToolCall(ToolCall{ToolName: "seq", Status: StatusSuccess})
	second := e.RecordToolCall(ToolCall{ToolName: "seq", Status: StatusSuccess})

	agg := e.Snapshot().Tools[0]
	if agg.LastCalledAt.Before(first.Timestamp) {
		t.Error("lastCalledAt predates first call")
	}
	if agg.LastCalledAt != second.Timestamp {
		t.Errorf("expected lastCalledAt %v, got %v", second.Timestamp, agg.LastCalledAt)
	}
}

func TestSnapshot_DoesNotMutateState(t *testing.T) {
	e := newTestEngine()

	e.RecordToolCall(ToolCall{ToolName: "x", Status: StatusSuccess, DurationMs: Millis(7)})

	a := e.Snapshot()
	b := e.Snapshot()

	if a.TotalRequests != b.TotalRequests || len(a.Tools) != len(b.Tools) {
		t.Error("consecutive snapshots over unchanged logs disagree")
	}
	if math.Abs(a.Performance.AvgLatencyMs-b.Performance.AvgLatencyMs) > 1e-9 {
		t.Error("snapshot computation mutated duration state")
	}
}
