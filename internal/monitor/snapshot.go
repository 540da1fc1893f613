package monitor

import (
	"math"
	"sort"
	"time"
)

// errorLogDisplayLimit is how many of the most recent error records a
// snapshot surfaces. Older entries stay in storage until the next sweep.
const errorLogDisplayLimit = 100

// Snapshot is a consistent aggregate view of the engine's logs, computed by
// rescanning them at the instant the snapshot is taken. Nothing in it is
// incrementally maintained, so a snapshot always agrees with the logs it was
// derived from.
type Snapshot struct {
	ServerName         string              `json:"serverName"`
	TakenAt            time.Time           `json:"takenAt"`
	UptimeMs           int64               `json:"uptimeMs"`
	TotalRequests      int                 `json:"totalRequests"`
	SuccessfulRequests int                 `json:"successfulRequests"`
	FailedRequests     int                 `json:"failedRequests"`
	Tools              []ToolAggregate     `json:"tools"`
	Resources          []ResourceAggregate `json:"resources"`
	Prompts            []PromptAggregate   `json:"prompts"`
	RecentErrors       []ErrorRecord       `json:"recentErrors"`
	Performance        Performance         `json:"performance"`
}

// ToolAggregate holds per-tool statistics.
type ToolAggregate struct {
	Name          string    `json:"name"`
	CallCount     int       `json:"callCount"`
	SuccessCount  int       `json:"successCount"`
	ErrorCount    int       `json:"errorCount"`
	Errors        []string  `json:"errors,omitempty"`
	AvgDurationMs float64   `json:"avgDurationMs"`
	LastCalledAt  time.Time `json:"lastCalledAt"`
}

// ResourceAggregate holds per-URI statistics.
type ResourceAggregate struct {
	URI           string   `json:"uri"`
	CallCount     int      `json:"callCount"`
	SuccessCount  int      `json:"successCount"`
	ErrorCount    int      `json:"errorCount"`
	Errors        []string `json:"errors,omitempty"`
	AvgDurationMs float64  `json:"avgDurationMs"`
	TotalBytes    int64    `json:"totalBytes"`
}

// PromptAggregate holds per-prompt statistics.
type PromptAggregate struct {
	Name          string   `json:"name"`
	CallCount     int      `json:"callCount"`
	SuccessCount  int      `json:"successCount"`
	ErrorCount    int      `json:"errorCount"`
	Errors        []string `json:"errors,omitempty"`
	AvgDurationMs float64  `json:"avgDurationMs"`
	TotalTokens   int64    `json:"totalTokens"`
}

// Performance is the global latency and throughput block.
type Performance struct {
	AvgLatencyMs      float64 `json:"avgLatencyMs"`
	P50LatencyMs      float64 `json:"p50LatencyMs"`
	P95LatencyMs      float64 `json:"p95LatencyMs"`
	P99LatencyMs      float64 `json:"p99LatencyMs"`
	RequestsPerSecond int     `json:"requestsPerSecond"`
	RequestsPerMinute int     `json:"requestsPerMinute"`
	SuccessRatePct    float64 `json:"successRatePct"`
	ErrorRatePct      float64 `json:"errorRatePct"`
}

// Snapshot computes the current aggregate view without mutating any stored
// state. The scan runs to completion under the engine mutex, so it cannot
// observe a half-applied ingestion or reset.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	snap := Snapshot{
		ServerName: e.opts.ServerName,
		TakenAt:    now,
		UptimeMs:   now.Sub(e.startTime).Milliseconds(),
	}

	snap.Tools = e.aggregateToolsLocked()
	snap.Resources = e.aggregateResourcesLocked()
	snap.Prompts = e.aggregatePromptsLocked()

	snap.TotalRequests = len(e.toolCalls) + len(e.resourceAccesses) + len(e.promptCalls)
	for _, r := range e.toolCalls {
		snap.SuccessfulRequests += boolToInt(r.Status == StatusSuccess)
		snap.FailedRequests += boolToInt(r.Status == StatusError)
	}
	for _, r := range e.resourceAccesses {
		snap.SuccessfulRequests += boolToInt(r.Status == StatusSuccess)
		snap.FailedRequests += boolToInt(r.Status == StatusError)
	}
	for _, r := range e.promptCalls {
		snap.SuccessfulRequests += boolToInt(r.Status == StatusSuccess)
		snap.FailedRequests += boolToInt(r.Status == StatusError)
	}

	recent := e.errorLog
	if len(recent) > errorLogDisplayLimit {
		recent = recent[len(recent)-errorLogDisplayLimit:]
	}
	snap.RecentErrors = append([]ErrorRecord(nil), recent...)

	snap.Performance = e.performanceLocked(now, snap.TotalRequests)
	return snap
}

func (e *Engine) aggregateToolsLocked() []ToolAggregate {
	byName := make(map[string]*ToolAggregate)
	durSums := make(map[string]float64)
	durCounts := make(map[string]int)

	for _, r := range e.toolCalls {
		agg, ok := byName[r.ToolName]
		if !ok {
			agg = &ToolAggregate{Name: r.ToolName}
			byName[r.ToolName] = agg
		}
		agg.CallCount++
		switch r.Status {
		case StatusSuccess:
			agg.SuccessCount++
		case StatusError:
			agg.ErrorCount++
			agg.Errors = append(agg.Errors, r.Error)
		}
		if r.DurationMs != nil {
			durSums[r.ToolName] += *r.DurationMs
			durCounts[r.ToolName]++
		}
		if r.Timestamp.After(agg.LastCalledAt) {
			agg.LastCalledAt = r.Timestamp
		}
	}

	out := make([]ToolAggregate, 0, len(byName))
	for name, agg := range byName {
		if durCounts[name] > 0 {
			agg.AvgDurationMs = durSums[name] / float64(durCounts[name])
		}
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (e *Engine) aggregateResourcesLocked() []ResourceAggregate {
	byURI := make(map[string]*ResourceAggregate)
	durSums := make(map[string]float64)
	durCounts := make(map[string]int)

	for _, r := range e.resourceAccesses {
		agg, ok := byURI[r.URI]
		if !ok {
			agg = &ResourceAggregate{URI: r.URI}
			byURI[r.URI] = agg
		}
		agg.CallCount++
		switch r.Status {
		case StatusSuccess:
			agg.SuccessCount++
		case StatusError:
			agg.ErrorCount++
			agg.Errors = append(agg.Errors, r.Error)
		}
		agg.TotalBytes += r.BytesTransferred
		if r.DurationMs != nil {
			durSums[r.URI] += *r.DurationMs
			durCounts[r.URI]++
		}
	}

	out := make([]ResourceAggregate, 0, len(byURI))
	for uri, agg := range byURI {
		if durCounts[uri] > 0 {
			agg.AvgDurationMs = durSums[uri] / float64(durCounts[uri])
		}
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out
}

func (e *Engine) aggregatePromptsLocked() []PromptAggregate {
	byName := make(map[string]*PromptAggregate)
	durSums := make(map[string]float64)
	durCounts := make(map[string]int)

	for _, r := range e.promptCalls {
		agg, ok := byName[r.PromptName]
		if !ok {
			agg = &PromptAggregate{Name: r.PromptName}
			byName[r.PromptName] = agg
		}
		agg.CallCount++
		switch r.Status {
		case StatusSuccess:
			agg.SuccessCount++
		case StatusError:
			agg.ErrorCount++
			agg.Errors = append(agg.Errors, r.Error)
		}
		agg.TotalTokens += r.TokensGenerated
		if r.DurationMs != nil {
			durSums[r.PromptName] += *r.DurationMs
			durCounts[r.PromptName]++
		}
	}

	out := make([]PromptAggregate, 0, len(byName))
	for name, agg := range byName {
		if durCounts[name] > 0 {
			agg.AvgDurationMs = durSums[name] / float64(durCounts[name])
		}
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (e *Engine) performanceLocked(now time.Time, totalRequests int) Performance {
	perf := Performance{SuccessRatePct: 100}

	if n := len(e.durations); n > 0 {
		sum := 0.0
		for _, d := range e.durations {
			sum += d
		}
		perf.AvgLatencyMs = sum / float64(n)

		sorted := append([]float64(nil), e.durations...)
		sort.Float64s(sorted)
		perf.P50LatencyMs = percentile(sorted, 0.5)
		perf.P95LatencyMs = percentile(sorted, 0.95)
		perf.P99LatencyMs = percentile(sorted, 0.99)
	}

	// Trailing windows are inclusive: a timestamp exactly at now-1s counts.
	secCutoff := now.Add(-time.Second)
	minCutoff := now.Add(-time.Minute)
	for _, ts := range e.timestamps {
		if !ts.Before(secCutoff) {
			perf.RequestsPerSecond++
		}
		if !ts.Before(minCutoff) {
			perf.RequestsPerMinute++
		}
	}

	if totalRequests > 0 {
		perf.ErrorRatePct = float64(len(e.errorLog)) / float64(totalRequests) * 100
		perf.SuccessRatePct = 100 - perf.ErrorRatePct
	}
	return perf
}

// percentile selects by nearest rank: index = ceil(n*p)-1 on the ascending
// sort, clamped to the valid range. No interpolation between samples.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Ceil(float64(n)*p)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
