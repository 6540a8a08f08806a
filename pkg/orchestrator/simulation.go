package orchestrator

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Clock schedules deferred work. The production implementation wraps
// time.AfterFunc; tests substitute a virtual clock to fast-forward the demo
// simulation deterministically.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable scheduled callback.
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock returns the wall-clock scheduler.
func RealClock() Clock { return realClock{} }

const (
	demoBaseDelay    = 600 * time.Millisecond
	demoStaggerDelay = 450 * time.Millisecond
)

// runDemoSimulation schedules one staggered fake response per model and a
// final synthesis after the last one, emulating the latency skew of a real
// backend. All timers are tracked so Dispose can cancel them.
func (c *Coordinator) runDemoSimulation(req Request) {
	total := len(req.Models)
	if total == 0 {
		c.recordSynthesis(demoSynthesis(nil, req.Strategy))
		return
	}

	conversationID := req.ConversationID

	for i, model := range req.Models {
		model := model
		completed := i + 1
		delay := demoBaseDelay + time.Duration(i)*demoStaggerDelay

		timer := c.clock.AfterFunc(delay, func() {
			if !c.simulationCurrent(conversationID) {
				return
			}
			c.recordResponse(AIResponse{
				ModelName:    model,
				Content:      demoResponse(model, req.Prompt),
				Confidence:   0.7,
				ResponseTime: delay,
				Timestamp:    time.Now(),
			})
			c.publishProgress(OrchestrationProgress{
				CompletedModels: completed,
				TotalModels:     total,
				CurrentPhase:    fmt.Sprintf("processing (%d/%d)", completed, total),
				OverallProgress: float64(completed) / float64(total),
			})
		})
		c.trackTimer(timer)
	}

	synthesisDelay := demoBaseDelay + time.Duration(total)*demoStaggerDelay
	timer := c.clock.AfterFunc(synthesisDelay, func() {
		if !c.simulationCurrent(conversationID) {
			return
		}
		c.recordSynthesis(demoSynthesis(c.IndividualResponses(), req.Strategy))
		c.publishProgress(OrchestrationProgress{
			CompletedModels: total,
			TotalModels:     total,
			CurrentPhase:    "complete",
			OverallProgress: 1,
		})
	})
	c.trackTimer(timer)
}

// simulationCurrent reports whether a timer callback still belongs to the
// active orchestration run.
func (c *Coordinator) simulationCurrent(conversationID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.disposed && c.conversationID == conversationID
}

func (c *Coordinator) trackTimer(t Timer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		t.Stop()
		return
	}
	c.timers = append(c.timers, t)
}

func demoResponse(model, prompt string) string {
	topic := strings.TrimSpace(prompt)
	if len(topic) > 60 {
		topic = topic[:60] + "..."
	}
	if topic == "" {
		topic = "your request"
	}
	return fmt.Sprintf("[%s demo] Here is my take on %q. This answer was generated locally because no compute backend was reachable.", model, topic)
}

// demoSynthesis combines the simulated responses, quoting each model's first
// sentence and naming the active strategy.
func demoSynthesis(responses []AIResponse, strategy string) string {
	if strategy == "" {
		strategy = "parallel"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Synthesized with the %s strategy from %d model responses.", strategy, len(responses))
	for _, r := range responses {
		fmt.Fprintf(&b, "\n- %s: %s", r.ModelName, firstSentence(r.Content))
	}
	return b.String()
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			return text[:i+1]
		}
	}
	return text
}

func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}

func unmarshalEnvelope(data []byte, env *Envelope) error {
	return json.Unmarshal(data, env)
}
