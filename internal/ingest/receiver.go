// Package ingest receives capability events over HTTP and feeds them into
// the recording engine. Payload validation happens here, at the transport
// boundary; the engine itself accepts whatever it is handed.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/anthropics/mcp-pulse/internal/monitor"
)

// ReceiverConfig configures the event receiver.
type ReceiverConfig struct {
	Port         int
	BindAddress  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodySize  int64
}

// DefaultReceiverConfig returns default receiver configuration.
func DefaultReceiverConfig() ReceiverConfig {
	return ReceiverConfig{
		Port:         9180,
		BindAddress:  "127.0.0.1",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		MaxBodySize:  1 << 20, // 1MB
	}
}

// Receiver handles incoming capability events via HTTP.
type Receiver struct {
	config   ReceiverConfig
	engine   *monitor.Engine
	server   *http.Server
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewReceiver creates a receiver feeding the given engine.
func NewReceiver(config ReceiverConfig, engine *monitor.Engine) *Receiver {
	if config.Port == 0 {
		config.Port = 9180
	}
	if config.BindAddress == "" {
		config.BindAddress = "127.0.0.1"
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 5 * time.Second
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = 10 * time.Second
	}
	if config.MaxBodySize == 0 {
		config.MaxBodySize = 1 << 20
	}

	return &Receiver{
		config: config,
		engine: engine,
	}
}

// Start begins listening for events.
func (r *Receiver) Start() error {
	addr := fmt.Sprintf("%s:%d", r.config.BindAddress, r.config.Port)
	r.server = &http.Server{
		Addr:         addr,
		Handler:      r.Handler(),
		ReadTimeout:  r.config.ReadTimeout,
		WriteTimeout: r.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("starting receiver: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Stop gracefully shuts down the receiver.
func (r *Receiver) Stop(ctx context.Context) error {
	var err error
	r.stopOnce.Do(func() {
		if r.server != nil {
			err = r.server.Shutdown(ctx)
		}
	})
	r.wg.Wait()
	return err
}

// Address returns the receiver's listening address.
func (r *Receiver) Address() string {
	return fmt.Sprintf("%s:%d", r.config.BindAddress, r.config.Port)
}

// Handler returns the receiver's HTTP handler, for tests and embedding.
func (r *Receiver) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/events/tool", r.handleTool)
	mux.HandleFunc("/events/resource", r.handleResource)
	mux.HandleFunc("/events/prompt", r.handlePrompt)
	mux.HandleFunc("/events/error", r.handleError)
	mux.HandleFunc("/health", r.handleHealth)
	return mux
}

type toolEventPayload struct {
	Name       string   `json:"name"`
	Params     any      `json:"params,omitempty"`
	Result     any      `json:"result,omitempty"`
	Status     string   `json:"status"`
	DurationMs *float64 `json:"durationMs,omitempty"`
	Error      string   `json:"error,omitempty"`
}

type resourceEventPayload struct {
	URI              string   `json:"uri"`
	Operation        string   `json:"operation"`
	BytesTransferred int64    `json:"bytesTransferred,omitempty"`
	Status           string   `json:"status"`
	DurationMs       *float64 `json:"durationMs,omitempty"`
	Error            string   `json:"error,omitempty"`
}

type promptEventPayload struct {
	Name            string   `json:"name"`
	Args            any      `json:"args,omitempty"`
	TokensGenerated int64    `json:"tokensGenerated,omitempty"`
	Status          string   `json:"status"`
	DurationMs      *float64 `json:"durationMs,omitempty"`
	Error           string   `json:"error,omitempty"`
}

type errorEventPayload struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

func (r *Receiver) handleTool(w http.ResponseWriter, req *http.Request) {
	var payload toolEventPayload
	if !r.decode(w, req, &payload) {
		return
	}
	if payload.Name == "" {
		http.Error(w, "missing tool name", http.StatusBadRequest)
		return
	}
	status, ok := parseStatus(payload.Status, true)
	if !ok {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}

	rec := r.engine.RecordToolCall(monitor.ToolCall{
		ToolName:   payload.Name,
		Params:     payload.Params,
		Result:     payload.Result,
		Status:     status,
		DurationMs: payload.DurationMs,
		Error:      payload.Error,
	})
	writeAccepted(w, rec.ID)
}

func (r *Receiver) handleResource(w http.ResponseWriter, req *http.Request) {
	var payload resourceEventPayload
	if !r.decode(w, req, &payload) {
		return
	}
	if payload.URI == "" {
		http.Error(w, "missing resource uri", http.StatusBadRequest)
		return
	}
	status, ok := parseStatus(payload.Status, false)
	if !ok {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}
	op, ok := parseOperation(payload.Operation)
	if !ok {
		http.Error(w, "invalid operation", http.StatusBadRequest)
		return
	}

	rec := r.engine.RecordResourceAccess(monitor.ResourceAccess{
		URI:              payload.URI,
		Operation:        op,
		BytesTransferred: payload.BytesTransferred,
		Status:           status,
		DurationMs:       payload.DurationMs,
		Error:            payload.Error,
	})
	writeAccepted(w, rec.ID)
}

func (r *Receiver) handlePrompt(w http.ResponseWriter, req *http.Request) {
	var payload promptEventPayload
	if !r.decode(w, req, &payload) {
		return
	}
	if payload.Name == "" {
		http.Error(w, "missing prompt name", http.StatusBadRequest)
		return
	}
	status, ok := parseStatus(payload.Status, false)
	if !ok {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}

	rec := r.engine.RecordPromptCall(monitor.PromptCall{
		PromptName:      payload.Name,
		Args:            payload.Args,
		TokensGenerated: payload.TokensGenerated,
		Status:          status,
		DurationMs:      payload.DurationMs,
		Error:           payload.Error,
	})
	writeAccepted(w, rec.ID)
}

func (r *Receiver) handleError(w http.ResponseWriter, req *http.Request) {
	var payload errorEventPayload
	if !r.decode(w, req, &payload) {
		return
	}
	if payload.Name == "" {
		http.Error(w, "missing error source name", http.StatusBadRequest)
		return
	}
	if payload.Message == "" {
		http.Error(w, "missing error message", http.StatusBadRequest)
		return
	}

	rec := r.engine.RecordServerError(payload.Name, payload.Message, payload.Stack)
	writeAccepted(w, rec.ID)
}

func (r *Receiver) handleHealth(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}

func (r *Receiver) decode(w http.ResponseWriter, req *http.Request, v any) bool {
	if req.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}

	req.Body = http.MaxBytesReader(w, req.Body, r.config.MaxBodySize)
	body, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(w, "Error reading body", http.StatusBadRequest)
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		http.Error(w, "Invalid event format", http.StatusBadRequest)
		return false
	}
	return true
}

// parseStatus validates a status string. Only tool events may be pending.
func parseStatus(s string, allowPending bool) (monitor.Status, bool) {
	switch monitor.Status(s) {
	case monitor.StatusSuccess, monitor.StatusError:
		return monitor.Status(s), true
	case monitor.StatusPending:
		if allowPending {
			return monitor.StatusPending, true
		}
	}
	return "", false
}

func parseOperation(s string) (monitor.ResourceOp, bool) {
	switch monitor.ResourceOp(s) {
	case monitor.ResourceOpRead, monitor.ResourceOpWrite, monitor.ResourceOpList:
		return monitor.ResourceOp(s), true
	}
	return "", false
}

func writeAccepted(w http.ResponseWriter, id string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"id": %q}`, id)
}
