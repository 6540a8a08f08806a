package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/athenaml/athena/pkg/bus"
	"github.com/athenaml/athena/pkg/logger"
)

// ErrDisposed is returned by operations on a disposed coordinator.
var ErrDisposed = errors.New("orchestrator: coordinator is disposed")

const (
	// DefaultHost is used when Connect is called with an empty host.
	DefaultHost = "localhost"
)

// DefaultPorts is the discovery order tried when no explicit port is given.
var DefaultPorts = []int{3001, 3002, 3003, 3004, 3005}

// Options configures a Coordinator. Zero values select the production
// defaults (real websocket dialer, wall clock, standard discovery ports).
type Options struct {
	Dial  DialFunc
	Clock Clock
	Ports []int
}

// Coordinator owns one backend connection (or its demo stand-in), fans
// orchestration requests out, and republishes everything on three broadcast
// streams. It serves one orchestration at a time; a new call resets the
// previous call's aggregation state.
type Coordinator struct {
	mu sync.Mutex

	dial  DialFunc
	clock Clock
	ports []int

	connected bool
	disposed  bool
	transport Transport
	attempted []string

	conversationID string
	strategy       string
	responses      []AIResponse
	synthesized    string
	chunkBuffers   map[string]*strings.Builder
	timers         []Timer

	responseStream  *bus.Stream[ResponseList]
	synthesisStream *bus.Stream[SynthesisEvent]
	progressStream  *bus.Stream[OrchestrationProgress]
}

// NewCoordinator builds a disconnected coordinator.
func NewCoordinator(opts Options) *Coordinator {
	if opts.Dial == nil {
		opts.Dial = DialWebSocket
	}
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	if len(opts.Ports) == 0 {
		opts.Ports = DefaultPorts
	}
	return &Coordinator{
		dial:            opts.Dial,
		clock:           opts.Clock,
		ports:           opts.Ports,
		chunkBuffers:    make(map[string]*strings.Builder),
		responseStream:  bus.NewStream[ResponseList](),
		synthesisStream: bus.NewStream[SynthesisEvent](),
		progressStream:  bus.NewStream[OrchestrationProgress](),
	}
}

// Responses is the broadcast stream of per-model response snapshots.
func (c *Coordinator) Responses() *bus.Stream[ResponseList] { return c.responseStream }

// Synthesis is the broadcast stream of combined final answers.
func (c *Coordinator) Synthesis() *bus.Stream[SynthesisEvent] { return c.synthesisStream }

// Progress is the broadcast stream of orchestration progress updates.
func (c *Coordinator) Progress() *bus.Stream[OrchestrationProgress] { return c.progressStream }

// IsConnected reports whether a backend transport is active.
func (c *Coordinator) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// AttemptedEndpoints lists every host:port pair tried by Connect calls.
func (c *Coordinator) AttemptedEndpoints() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.attempted...)
}

// IndividualResponses returns a copy of the current run's response list.
func (c *Coordinator) IndividualResponses() []AIResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]AIResponse(nil), c.responses...)
}

// SynthesizedResponse returns the current run's combined answer, if any.
func (c *Coordinator) SynthesizedResponse() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.synthesized
}

// Connect dials the backend. With port 0 it walks the default port list on
// the given host and stops at the first success; an explicit port is tried
// exactly once. Returns false instead of an error so callers can degrade to
// the demo simulation.
func (c *Coordinator) Connect(ctx context.Context, host string, port int) bool {
	c.mu.Lock()
	if c.disposed || c.connected {
		connected := c.connected && !c.disposed
		c.mu.Unlock()
		return connected
	}
	c.mu.Unlock()

	if host == "" {
		host = DefaultHost
	}
	ports := c.ports
	if port != 0 {
		ports = []int{port}
	}

	for _, p := range ports {
		endpoint := fmt.Sprintf("%s:%d", host, p)

		c.mu.Lock()
		c.attempted = append(c.attempted, endpoint)
		c.mu.Unlock()

		transport, err := c.dial(ctx, "ws://"+endpoint)
		if err != nil {
			logger.DebugCF("orchestrator", "backend not reachable", map[string]interface{}{
				"endpoint": endpoint,
				"error":    err.Error(),
			})
			continue
		}

		c.mu.Lock()
		if c.disposed {
			c.mu.Unlock()
			transport.Close()
			return false
		}
		c.transport = transport
		c.connected = true
		c.mu.Unlock()

		logger.InfoCF("orchestrator", "connected to backend", map[string]interface{}{
			"endpoint": endpoint,
		})
		go c.readLoop(transport)
		return true
	}
	return false
}

// Disconnect closes the transport. Safe to call repeatedly or when never
// connected.
func (c *Coordinator) Disconnect() {
	c.mu.Lock()
	transport := c.transport
	c.transport = nil
	c.connected = false
	c.mu.Unlock()

	if transport != nil {
		transport.Close()
	}
}

// OrchestrateAIRequest starts one orchestration run. Connected, it sends the
// request to the backend and lets the event handlers aggregate the replies;
// disconnected, it schedules the local demo simulation. Either way the
// previous run's responses and synthesis are cleared first.
func (c *Coordinator) OrchestrateAIRequest(ctx context.Context, req Request) error {
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}
	req.Timestamp = time.Now()

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	c.cancelTimersLocked()
	c.conversationID = req.ConversationID
	c.strategy = req.Strategy
	c.responses = nil
	c.synthesized = ""
	c.chunkBuffers = make(map[string]*strings.Builder)
	connected := c.connected
	transport := c.transport
	c.mu.Unlock()

	logger.InfoCF("orchestrator", "orchestration started", map[string]interface{}{
		"conversation_id": req.ConversationID,
		"models":          strings.Join(req.Models, ","),
		"strategy":        req.Strategy,
		"connected":       connected,
	})

	if connected && transport != nil {
		if err := transport.SendJSON(Envelope{Event: eventStartAIStream, Data: mustMarshal(req)}); err != nil {
			return fmt.Errorf("send orchestration request: %w", err)
		}
		return nil
	}

	c.runDemoSimulation(req)
	return nil
}

// StartAIStream is an alias for OrchestrateAIRequest kept for callers using
// the streaming name.
func (c *Coordinator) StartAIStream(ctx context.Context, req Request) error {
	return c.OrchestrateAIRequest(ctx, req)
}

// Dispose closes the three streams, cancels outstanding timers and drops the
// transport. Idempotent.
func (c *Coordinator) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	c.cancelTimersLocked()
	transport := c.transport
	c.transport = nil
	c.connected = false
	c.mu.Unlock()

	if transport != nil {
		transport.Close()
	}
	c.responseStream.Close()
	c.synthesisStream.Close()
	c.progressStream.Close()
}

// readLoop pumps transport messages into the event handlers until the
// transport fails or the coordinator is disposed.
func (c *Coordinator) readLoop(transport Transport) {
	for {
		data, err := transport.ReadMessage()
		if err != nil {
			c.handleTransportLoss(err)
			return
		}
		c.HandleMessage(data)
	}
}

// HandleMessage dispatches one raw transport message. Malformed payloads are
// dropped per-field; nothing here can fail the caller.
func (c *Coordinator) HandleMessage(data []byte) {
	var env Envelope
	if err := unmarshalEnvelope(data, &env); err != nil {
		logger.WarnCF("orchestrator", "unparsable transport message", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	switch env.Event {
	case eventIndividualResponse:
		if resp, ok := decodeAIResponse(env.Data); ok {
			c.recordResponse(resp)
		}
	case eventOrchestrationProgress:
		if progress, ok := decodeProgress(env.Data); ok {
			c.publishProgress(progress)
		}
	case eventSynthesisComplete:
		if synthesis, ok := decodeSynthesis(env.Data); ok {
			c.recordSynthesis(synthesis)
		}
	case eventStreamChunk:
		if chunk, ok := decodeStreamChunk(env.Data); ok {
			c.recordChunk(chunk)
		}
	case eventStreamingCompleted:
		if synthesis, ok := decodeStreamingCompleted(env.Data); ok {
			c.recordSynthesis(synthesis)
		}
	case eventDisconnect:
		c.handleTransportLoss(errors.New("backend requested disconnect"))
	default:
		logger.DebugCF("orchestrator", "ignoring unknown event", map[string]interface{}{
			"event": env.Event,
		})
	}
}

// recordResponse appends or replaces (by model name) one model's response
// and republishes the snapshot.
func (c *Coordinator) recordResponse(resp AIResponse) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	replaced := false
	for i := range c.responses {
		if c.responses[i].ModelName == resp.ModelName {
			c.responses[i] = resp
			replaced = true
			break
		}
	}
	if !replaced {
		c.responses = append(c.responses, resp)
	}
	snapshot := ResponseList{
		ConversationID: c.conversationID,
		Responses:      append([]AIResponse(nil), c.responses...),
	}
	c.mu.Unlock()

	c.responseStream.Publish(snapshot)
}

func (c *Coordinator) publishProgress(progress OrchestrationProgress) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	progress.ConversationID = c.conversationID
	c.mu.Unlock()

	c.progressStream.Publish(progress)
}

func (c *Coordinator) recordSynthesis(synthesis string) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.synthesized = synthesis
	event := SynthesisEvent{
		ConversationID: c.conversationID,
		Content:        synthesis,
	}
	c.mu.Unlock()

	c.synthesisStream.Publish(event)
}

// recordChunk accumulates a per-model buffer; only a chunk marked complete
// materializes into an AIResponse.
func (c *Coordinator) recordChunk(chunk streamChunkPayload) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	buf, ok := c.chunkBuffers[chunk.Model]
	if !ok {
		buf = &strings.Builder{}
		c.chunkBuffers[chunk.Model] = buf
	}
	if chunk.Buffer != "" {
		buf.Reset()
		buf.WriteString(chunk.Buffer)
	} else {
		buf.WriteString(chunk.Chunk)
	}

	if !chunk.IsComplete {
		c.mu.Unlock()
		return
	}
	content := buf.String()
	delete(c.chunkBuffers, chunk.Model)
	c.mu.Unlock()

	c.recordResponse(AIResponse{
		ModelName: chunk.Model,
		Content:   content,
		Timestamp: time.Now(),
	})
}

// handleTransportLoss flips the connected flag and notifies progress
// subscribers. Already-published responses are kept.
func (c *Coordinator) handleTransportLoss(cause error) {
	c.mu.Lock()
	wasConnected := c.connected
	c.connected = false
	transport := c.transport
	c.transport = nil
	disposed := c.disposed
	conversationID := c.conversationID
	total := len(c.responses)
	c.mu.Unlock()

	if transport != nil {
		transport.Close()
	}
	if !wasConnected || disposed {
		return
	}

	logger.WarnCF("orchestrator", "backend connection lost", map[string]interface{}{
		"error": cause.Error(),
	})
	c.progressStream.Publish(OrchestrationProgress{
		ConversationID:  conversationID,
		CompletedModels: total,
		TotalModels:     total,
		CurrentPhase:    "disconnected",
		OverallProgress: 1,
	})
}

func (c *Coordinator) cancelTimersLocked() {
	for _, t := range c.timers {
		t.Stop()
	}
	c.timers = nil
}
