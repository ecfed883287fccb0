package voxa

import (
	"sync"
)

// Handlers routes conversation events to per-type callbacks. Any field may
// be nil. Messages with no dedicated callback set fall through to OnMessage;
// stream error items go to OnError.
type Handlers struct {
	OnAgentResponse           func(text string)
	OnAgentResponseCorrection func(original, corrected string)
	OnTentativeAgentResponse  func(text string)
	OnAudio                   func(pcm []byte, eventID int)
	OnUserTranscript          func(text string)
	OnToolCall                func(call *ClientToolCall)
	OnInterruption            func(eventID int)
	OnPing                    func(eventID int)
	OnVADScore                func(score float64)
	OnTurnProbability         func(probability float64)
	OnConversationMetadata    func(meta ConversationInitiationMetadataEvent)
	OnUnknown                 func(msg *UnknownMessage)
	OnMessage                 func(msg ServerMessage)
	OnError                   func(err error)
}

// Handle dispatches one event.
func (h *Handlers) Handle(event Event) {
	if event.Err != nil {
		if h.OnError != nil {
			h.OnError(event.Err)
		}
		return
	}

	switch m := event.Message.(type) {
	case *AgentResponse:
		if h.OnAgentResponse != nil {
			h.OnAgentResponse(m.AgentResponseEvent.AgentResponse)
			return
		}
	case *AgentResponseCorrection:
		if h.OnAgentResponseCorrection != nil {
			h.OnAgentResponseCorrection(
				m.AgentResponseCorrectionEvent.OriginalAgentResponse,
				m.AgentResponseCorrectionEvent.CorrectedAgentResponse,
			)
			return
		}
	case *TentativeAgentResponse:
		if h.OnTentativeAgentResponse != nil {
			h.OnTentativeAgentResponse(m.TentativeAgentResponseInternalEvent.TentativeAgentResponse)
			return
		}
	case *Audio:
		if h.OnAudio != nil {
			pcm, err := m.Bytes()
			if err != nil {
				if h.OnError != nil {
					h.OnError(err)
				}
				return
			}
			h.OnAudio(pcm, m.AudioEvent.EventID)
			return
		}
	case *UserTranscript:
		if h.OnUserTranscript != nil {
			h.OnUserTranscript(m.UserTranscriptionEvent.UserTranscript)
			return
		}
	case *ClientToolCall:
		if h.OnToolCall != nil {
			h.OnToolCall(m)
			return
		}
	case *Interruption:
		if h.OnInterruption != nil {
			h.OnInterruption(m.InterruptionEvent.EventID)
			return
		}
	case *Ping:
		if h.OnPing != nil {
			h.OnPing(m.PingEvent.EventID)
			return
		}
	case *VADScore:
		if h.OnVADScore != nil {
			h.OnVADScore(m.VADScoreInternalEvent.VADScore)
			return
		}
	case *TurnProbability:
		if h.OnTurnProbability != nil {
			h.OnTurnProbability(m.TurnProbabilityInternalEvent.TurnProbability)
			return
		}
	case *ConversationInitiationMetadata:
		if h.OnConversationMetadata != nil {
			h.OnConversationMetadata(m.ConversationInitiationMetadataEvent)
			return
		}
	case *UnknownMessage:
		if h.OnUnknown != nil {
			h.OnUnknown(m)
			return
		}
	}

	if h.OnMessage != nil {
		h.OnMessage(event.Message)
	}
}

// DispatchEvents drains the conversation stream through the given handler
// sets, each event through every set in order. It blocks until the stream
// closes and returns the conversation's terminal error, if any.
func DispatchEvents(conv *Conversation, handlers ...*Handlers) error {
	for event := range conv.Events() {
		for _, h := range handlers {
			if h != nil {
				h.Handle(event)
			}
		}
	}
	return conv.Err()
}

// CreateLoggingHandlers returns handlers that log every event. Useful for
// debugging a session without writing any consumption logic.
func CreateLoggingHandlers(logger *Logger, verbose bool) *Handlers {
	if logger == nil {
		logger = GetGlobalLogger()
	}
	log := logger.WithComponent("events")

	h := &Handlers{
		OnAgentResponse: func(text string) {
			log.WithField("text", text).Info("agent response")
		},
		OnUserTranscript: func(text string) {
			log.WithField("text", text).Info("user transcript")
		},
		OnToolCall: func(call *ClientToolCall) {
			log.WithFields(map[string]interface{}{
				"tool":         call.Name(),
				"tool_call_id": call.ID(),
			}).Info("client tool call")
		},
		OnInterruption: func(eventID int) {
			log.WithField("event_id", eventID).Info("interruption")
		},
		OnError: func(err error) {
			log.WithError(err).Error("stream error")
		},
	}

	if verbose {
		h.OnAgentResponseCorrection = func(original, corrected string) {
			log.WithFields(map[string]interface{}{
				"original":  original,
				"corrected": corrected,
			}).Debug("agent response correction")
		}
		h.OnTentativeAgentResponse = func(text string) {
			log.WithField("text", text).Debug("tentative agent response")
		}
		h.OnAudio = func(pcm []byte, eventID int) {
			log.WithFields(map[string]interface{}{
				"bytes":    len(pcm),
				"event_id": eventID,
			}).Debug("audio chunk")
		}
		h.OnPing = func(eventID int) {
			log.WithField("event_id", eventID).Debug("ping")
		}
		h.OnVADScore = func(score float64) {
			log.WithField("score", score).Debug("vad score")
		}
		h.OnTurnProbability = func(probability float64) {
			log.WithField("probability", probability).Debug("turn probability")
		}
		h.OnConversationMetadata = func(meta ConversationInitiationMetadataEvent) {
			log.WithFields(map[string]interface{}{
				"conversation_id": meta.ConversationID,
				"audio_format":    meta.AgentOutputAudioFormat,
			}).Debug("conversation metadata")
		}
		h.OnUnknown = func(msg *UnknownMessage) {
			log.WithField("type", msg.Type).Debug("unknown message")
		}
	}

	return h
}

// TranscriptLine is one finalized utterance of the conversation.
type TranscriptLine struct {
	Role string // "user" or "agent"
	Text string
}

// CreateTranscriptCollector returns handlers that accumulate the dialogue
// and a snapshot function for reading it. Corrections rewrite the agent line
// they correct.
func CreateTranscriptCollector() (*Handlers, func() []TranscriptLine) {
	var mu sync.Mutex
	var lines []TranscriptLine

	h := &Handlers{
		OnUserTranscript: func(text string) {
			mu.Lock()
			lines = append(lines, TranscriptLine{Role: "user", Text: text})
			mu.Unlock()
		},
		OnAgentResponse: func(text string) {
			mu.Lock()
			lines = append(lines, TranscriptLine{Role: "agent", Text: text})
			mu.Unlock()
		},
		OnAgentResponseCorrection: func(original, corrected string) {
			mu.Lock()
			defer mu.Unlock()
			for i := len(lines) - 1; i >= 0; i-- {
				if lines[i].Role == "agent" && lines[i].Text == original {
					lines[i].Text = corrected
					return
				}
			}
			lines = append(lines, TranscriptLine{Role: "agent", Text: corrected})
		},
	}

	snapshot := func() []TranscriptLine {
		mu.Lock()
		defer mu.Unlock()
		out := make([]TranscriptLine, len(lines))
		copy(out, lines)
		return out
	}

	return h, snapshot
}

// ToolFunc executes one client tool call and returns its result payload. A
// non-nil error is reported to the agent as a failed call.
type ToolFunc func(call *ClientToolCall) (string, error)

// CreateToolRouter returns handlers that execute registered tools and send
// each outcome back on the conversation. Tools run on their own goroutines
// so a slow tool never stalls the event stream. Calls for unregistered
// tools are answered with an error result.
func CreateToolRouter(conv *Conversation, tools map[string]ToolFunc, logger *Logger) *Handlers {
	if logger == nil {
		logger = GetGlobalLogger()
	}
	log := logger.WithComponent("tool_router")

	respond := func(call *ClientToolCall, result *ClientToolResult) {
		if err := conv.SendToolResult(result); err != nil {
			log.WithError(err).WithField("tool_call_id", call.ID()).
				Warn("failed to send tool result")
		}
	}

	return &Handlers{
		OnToolCall: func(call *ClientToolCall) {
			fn, ok := tools[call.Name()]
			if !ok {
				log.WithField("tool", call.Name()).Warn("call for unregistered tool")
				respond(call, NewClientToolResult(call.ID()).
					WithResult("unknown tool: "+call.Name()).
					WithIsError(true))
				return
			}

			go func() {
				payload, err := fn(call)
				result := NewClientToolResult(call.ID())
				if err != nil {
					result.WithResult(err.Error()).WithIsError(true)
				} else {
					result.WithResult(payload)
				}
				respond(call, result)
			}()
		},
	}
}
