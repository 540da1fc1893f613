package monitor

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultRetentionDays = 30
	defaultSweepInterval = time.Hour

	// maxDurationSamples caps the global duration log independently of the
	// time-based retention cutoff.
	maxDurationSamples = 10000
)

// Options configures an Engine.
type Options struct {
	// ServerName is a display label carried into snapshots.
	ServerName string
	// RetentionDays is the maximum age a record may reach before the
	// periodic sweep evicts it.
	RetentionDays int
	// SweepInterval is how often the eviction sweep runs.
	SweepInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.ServerName == "" {
		o.ServerName = "mcp-server"
	}
	if o.RetentionDays <= 0 {
		o.RetentionDays = defaultRetentionDays
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = defaultSweepInterval
	}
	return o
}

// Engine records capability invocations and derives aggregate statistics
// from the raw record stream. It is memory-resident and bounded only by the
// retention sweep and the duration-sample cap; between sweeps memory grows
// with ingestion rate. That is an accepted operating constraint, not a bug.
//
// All state is owned by the Engine instance; independent engines coexist
// freely. Every mutation path and every snapshot scan serializes behind one
// mutex, so interleaved ingestion cannot produce a torn write or a torn read.
type Engine struct {
	mu   sync.Mutex
	opts Options
	now  func() time.Time

	startTime time.Time

	toolCalls        []ToolCallRecord
	resourceAccesses []ResourceAccessRecord
	promptCalls      []PromptCallRecord
	errorLog         []ErrorRecord

	// Raw samples backing the global performance block. Durations are in
	// milliseconds and hold only the values callers actually supplied.
	durations  []float64
	timestamps []time.Time

	broker *broker

	stopCh    chan struct{}
	stoppedCh chan struct{}
	running   bool
}

// NewEngine creates an Engine with its start time set to now. Call Start to
// run the background eviction sweep.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		opts:   opts.withDefaults(),
		now:    time.Now,
		broker: newBroker(),
	}
	e.startTime = e.now()
	return e
}

// ServerName returns the configured display label.
func (e *Engine) ServerName() string {
	return e.opts.ServerName
}

// Start launches the periodic eviction sweep. It is a no-op if the sweep is
// already running.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return
	}
	e.running = true
	e.stopCh = make(chan struct{})
	e.stoppedCh = make(chan struct{})
	go e.sweepLoop(e.stopCh, e.stoppedCh)
}

// Stop signals the sweep goroutine to exit and waits for it.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	stopCh, stoppedCh := e.stopCh, e.stoppedCh
	e.mu.Unlock()

	close(stopCh)
	<-stoppedCh
}

func (e *Engine) sweepLoop(stopCh <-chan struct{}, stoppedCh chan<- struct{}) {
	defer close(stoppedCh)

	ticker := time.NewTicker(e.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.Sweep()
		case <-stopCh:
			return
		}
	}
}

// RecordToolCall appends a tool-call record, assigns its id and timestamp,
// and notifies subscribers. It never fails; validation is the transport
// layer's job, so the record is stored exactly as supplied.
func (e *Engine) RecordToolCall(call ToolCall) ToolCallRecord {
	rec := ToolCallRecord{
		ID:       uuid.NewString(),
		ToolName: call.ToolName,
		Params:   call.Params,
		Result:   call.Result,
		Status:   call.Status,
		Error:    call.Error,
	}
	if call.DurationMs != nil {
		d := *call.DurationMs
		rec.DurationMs = &d
	}

	e.mu.Lock()
	rec.Timestamp = e.now()
	e.toolCalls = append(e.toolCalls, rec)
	errRec := e.ingestLocked(rec.Timestamp, rec.DurationMs, call.Status, ErrorTypeTool, call.ToolName, call.Error)
	e.mu.Unlock()

	e.broker.publishToolCall(rec)
	if errRec != nil {
		e.broker.publishError(*errRec)
	}
	return rec
}

// RecordResourceAccess appends a resource-access record, assigns its id and
// timestamp, and notifies subscribers.
func (e *Engine) RecordResourceAccess(access ResourceAccess) ResourceAccessRecord {
	rec := ResourceAccessRecord{
		ID:               uuid.NewString(),
		URI:              access.URI,
		Operation:        access.Operation,
		BytesTransferred: access.BytesTransferred,
		Status:           access.Status,
		Error:            access.Error,
	}
	if access.DurationMs != nil {
		d := *access.DurationMs
		rec.DurationMs = &d
	}

	e.mu.Lock()
	rec.Timestamp = e.now()
	e.resourceAccesses = append(e.resourceAccesses, rec)
	errRec := e.ingestLocked(rec.Timestamp, rec.DurationMs, access.Status, ErrorTypeResource, access.URI, access.Error)
	e.mu.Unlock()

	e.broker.publishResourceAccess(rec)
	if errRec != nil {
		e.broker.publishError(*errRec)
	}
	return rec
}

// RecordPromptCall appends a prompt-call record, assigns its id and
// timestamp, and notifies subscribers.
func (e *Engine) RecordPromptCall(call PromptCall) PromptCallRecord {
	rec := PromptCallRecord{
		ID:              uuid.NewString(),
		PromptName:      call.PromptName,
		Args:            call.Args,
		TokensGenerated: call.TokensGenerated,
		Status:          call.Status,
		Error:           call.Error,
	}
	if call.DurationMs != nil {
		d := *call.DurationMs
		rec.DurationMs = &d
	}

	e.mu.Lock()
	rec.Timestamp = e.now()
	e.promptCalls = append(e.promptCalls, rec)
	errRec := e.ingestLocked(rec.Timestamp, rec.DurationMs, call.Status, ErrorTypePrompt, call.PromptName, call.Error)
	e.mu.Unlock()

	e.broker.publishPromptCall(rec)
	if errRec != nil {
		e.broker.publishError(*errRec)
	}
	return rec
}

// RecordServerError appends a collaborator-originated error (one with no
// matching tool/resource/prompt record) to the error log and notifies
// subscribers.
func (e *Engine) RecordServerError(name, message, stack string) ErrorRecord {
	rec := ErrorRecord{
		ID:      uuid.NewString(),
		Type:    ErrorTypeServer,
		Name:    name,
		Message: message,
		Stack:   stack,
	}

	e.mu.Lock()
	rec.Timestamp = e.now()
	e.errorLog = append(e.errorLog, rec)
	e.mu.Unlock()

	e.broker.publishError(rec)
	return rec
}

// ingestLocked updates the shared sample logs and derives an error record
// when status is error. Callers must hold e.mu.
func (e *Engine) ingestLocked(ts time.Time, durationMs *float64, status Status, errType ErrorType, name, errMsg string) *ErrorRecord {
	e.timestamps = append(e.timestamps, ts)
	if durationMs != nil {
		e.durations = append(e.durations, *durationMs)
	}

	if status != StatusError {
		return nil
	}
	rec := ErrorRecord{
		ID:        uuid.NewString(),
		Timestamp: ts,
		Type:      errType,
		Name:      name,
		Message:   errMsg,
	}
	e.errorLog = append(e.errorLog, rec)
	return &rec
}

// Sweep evicts records older than the retention cutoff and truncates the
// duration log to its sample cap. It runs periodically once Start has been
// called but may also be invoked directly.
func (e *Engine) Sweep() {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-time.Duration(e.opts.RetentionDays) * 24 * time.Hour)

	tools := make([]ToolCallRecord, 0, len(e.toolCalls))
	for _, r := range e.toolCalls {
		if !r.Timestamp.Before(cutoff) {
			tools = append(tools, r)
		}
	}
	e.toolCalls = tools

	resources := make([]ResourceAccessRecord, 0, len(e.resourceAccesses))
	for _, r := range e.resourceAccesses {
		if !r.Timestamp.Before(cutoff) {
			resources = append(resources, r)
		}
	}
	e.resourceAccesses = resources

	prompts := make([]PromptCallRecord, 0, len(e.promptCalls))
	for _, r := range e.promptCalls {
		if !r.Timestamp.Before(cutoff) {
			prompts = append(prompts, r)
		}
	}
	e.promptCalls = prompts

	errors := make([]ErrorRecord, 0, len(e.errorLog))
	for _, r := range e.errorLog {
		if !r.Timestamp.Before(cutoff) {
			errors = append(errors, r)
		}
	}
	e.errorLog = errors

	if len(e.durations) > maxDurationSamples {
		kept := make([]float64, maxDurationSamples)
		copy(kept, e.durations[len(e.durations)-maxDurationSamples:])
		e.durations = kept
	}

	stamps := make([]time.Time, 0, len(e.timestamps))
	for _, ts := range e.timestamps {
		if !ts.Before(cutoff) {
			stamps = append(stamps, ts)
		}
	}
	e.timestamps = stamps
}

// Reset atomically clears every log and sample list and restarts the uptime
// clock. Used for operator-triggered resets and test isolation.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.toolCalls = nil
	e.resourceAccesses = nil
	e.promptCalls = nil
	e.errorLog = nil
	e.durations = nil
	e.timestamps = nil
	e.startTime = e.now()
}

// SubscribeToolCalls registers an observer for tool-call records. The
// returned cancel func must be called to release the subscription. Delivery
// is best-effort: records published while the subscriber's buffer is full
// are dropped, and records ingested before subscribing are never replayed.
func (e *Engine) SubscribeToolCalls() (<-chan ToolCallRecord, func()) {
	return e.broker.subscribeToolCalls()
}

// SubscribeResourceAccesses registers an observer for resource-access records.
func (e *Engine) SubscribeResourceAccesses() (<-chan ResourceAccessRecord, func()) {
	return e.broker.subscribeResourceAccesses()
}

// SubscribePromptCalls registers an observer for prompt-call records.
func (e *Engine) SubscribePromptCalls() (<-chan PromptCallRecord, func()) {
	return e.broker.subscribePromptCalls()
}

// SubscribeErrors registers an observer for derived and server error records.
func (e *Engine) SubscribeErrors() (<-chan ErrorRecord, func()) {
	return e.broker.subscribeErrors()
}
