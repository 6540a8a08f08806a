// Package orchestrator dispatches prompts to multiple model backends over a
// websocket transport, aggregates streamed per-model responses and a final
// synthesis, and falls back to a local demo simulation when no backend is
// reachable.
package orchestrator

import (
	"encoding/json"
	"time"
)

// Wire event names exchanged with the compute backend.
const (
	eventStartAIStream         = "start_ai_stream"
	eventIndividualResponse    = "individual_response"
	eventOrchestrationProgress = "orchestration_progress"
	eventSynthesisComplete     = "synthesis_complete"
	eventStreamChunk           = "stream_chunk"
	eventStreamingCompleted    = "streaming_completed"
	eventDisconnect            = "disconnect"
)

// Envelope is the framing for every transport message: an event name plus an
// opaque payload decoded per event type.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Request describes one orchestration call.
type Request struct {
	Prompt         string             `json:"prompt"`
	Models         []string           `json:"models"`
	Strategy       string             `json:"strategy"`
	Weights        map[string]float64 `json:"weights,omitempty"`
	ConversationID string             `json:"conversation_id,omitempty"`
	Timestamp      time.Time          `json:"timestamp"`
}

// AIResponse is one model's answer within an orchestration run. At most one
// live AIResponse exists per model name; later events replace earlier ones.
type AIResponse struct {
	ModelName    string
	Content      string
	Confidence   float64
	ResponseTime time.Duration
	Timestamp    time.Time
}

// OrchestrationProgress reports how far an orchestration run has advanced.
// CompletedModels never exceeds TotalModels.
type OrchestrationProgress struct {
	ConversationID  string
	CompletedModels int
	TotalModels     int
	CurrentPhase    string
	OverallProgress float64
}

// ResponseList is a snapshot of all per-model responses so far, published on
// the responses stream after every change.
type ResponseList struct {
	ConversationID string
	Responses      []AIResponse
}

// SynthesisEvent carries the combined final answer.
type SynthesisEvent struct {
	ConversationID string
	Content        string
}

// responsePayload tolerates both backend spellings of each field. Absent or
// malformed fields degrade to zero values, never to a handler failure.
type responsePayload struct {
	ModelName      string   `json:"model_name"`
	Model          string   `json:"model"`
	Content        string   `json:"content"`
	Response       string   `json:"response"`
	Confidence     *float64 `json:"confidence"`
	ResponseTimeMS *float64 `json:"response_time_ms"`
	Timestamp      string   `json:"timestamp"`
}

func decodeAIResponse(data json.RawMessage) (AIResponse, bool) {
	var p responsePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return AIResponse{}, false
	}

	model := p.ModelName
	if model == "" {
		model = p.Model
	}
	if model == "" {
		return AIResponse{}, false
	}

	content := p.Content
	if content == "" {
		content = p.Response
	}

	resp := AIResponse{
		ModelName: model,
		Content:   content,
		Timestamp: time.Now(),
	}
	if p.Confidence != nil && *p.Confidence >= 0 && *p.Confidence <= 1 {
		resp.Confidence = *p.Confidence
	}
	if p.ResponseTimeMS != nil && *p.ResponseTimeMS >= 0 {
		resp.ResponseTime = time.Duration(*p.ResponseTimeMS * float64(time.Millisecond))
	}
	if ts, err := time.Parse(time.RFC3339, p.Timestamp); err == nil {
		resp.Timestamp = ts
	}
	return resp, true
}

type progressPayload struct {
	CompletedModels int     `json:"completed_models"`
	TotalModels     int     `json:"total_models"`
	CurrentPhase    string  `json:"current_phase"`
	OverallProgress float64 `json:"overall_progress"`
}

func decodeProgress(data json.RawMessage) (OrchestrationProgress, bool) {
	var p progressPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return OrchestrationProgress{}, false
	}

	progress := OrchestrationProgress{
		CompletedModels: p.CompletedModels,
		TotalModels:     p.TotalModels,
		CurrentPhase:    p.CurrentPhase,
		OverallProgress: p.OverallProgress,
	}
	if progress.CompletedModels < 0 {
		progress.CompletedModels = 0
	}
	if progress.TotalModels < 0 {
		progress.TotalModels = 0
	}
	if progress.CompletedModels > progress.TotalModels {
		progress.CompletedModels = progress.TotalModels
	}
	if progress.OverallProgress < 0 {
		progress.OverallProgress = 0
	}
	if progress.OverallProgress > 1 {
		progress.OverallProgress = 1
	}
	return progress, true
}

type synthesisPayload struct {
	Synthesis     string `json:"synthesis"`
	FinalResponse string `json:"final_response"`
}

// decodeSynthesis returns the first non-empty of the two accepted fields.
func decodeSynthesis(data json.RawMessage) (string, bool) {
	var p synthesisPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return "", false
	}
	if p.Synthesis != "" {
		return p.Synthesis, true
	}
	if p.FinalResponse != "" {
		return p.FinalResponse, true
	}
	return "", false
}

type streamChunkPayload struct {
	Chunk      string `json:"chunk"`
	Buffer     string `json:"buffer"`
	Model      string `json:"model"`
	IsComplete bool   `json:"isComplete"`
}

func decodeStreamChunk(data json.RawMessage) (streamChunkPayload, bool) {
	var p streamChunkPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return streamChunkPayload{}, false
	}
	if p.Model == "" {
		return streamChunkPayload{}, false
	}
	return p, true
}

type streamingCompletedPayload struct {
	FinalResponse string `json:"finalResponse"`
}

func decodeStreamingCompleted(data json.RawMessage) (string, bool) {
	var p streamingCompletedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return "", false
	}
	return p.FinalResponse, p.FinalResponse != ""
}
