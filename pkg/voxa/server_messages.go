package voxa

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// ServerMessage is implemented by every inbound message variant. Callers
// type-switch on the concrete type; frames whose type tag matches no known
// variant arrive as *UnknownMessage.
type ServerMessage interface {
	serverMessageType() string
}

// AgentResponse carries the agent's text reply for the current turn.
type AgentResponse struct {
	Type               string             `json:"type"`
	AgentResponseEvent AgentResponseEvent `json:"agent_response_event"`
}

type AgentResponseEvent struct {
	AgentResponse string `json:"agent_response"`
}

func (m *AgentResponse) serverMessageType() string { return "agent_response" }

// AgentResponseCorrection replaces an earlier agent response, typically
// after an interruption truncated it.
type AgentResponseCorrection struct {
	Type                         string                       `json:"type"`
	AgentResponseCorrectionEvent AgentResponseCorrectionEvent `json:"agent_response_correction_event"`
}

type AgentResponseCorrectionEvent struct {
	OriginalAgentResponse  string `json:"original_agent_response"`
	CorrectedAgentResponse string `json:"corrected_agent_response"`
}

func (m *AgentResponseCorrection) serverMessageType() string { return "agent_response_correction" }

// TentativeAgentResponse is a draft of the agent's reply, subject to change.
type TentativeAgentResponse struct {
	Type                                string                              `json:"type"`
	TentativeAgentResponseInternalEvent TentativeAgentResponseInternalEvent `json:"tentative_agent_response_internal_event"`
}

type TentativeAgentResponseInternalEvent struct {
	TentativeAgentResponse string `json:"tentative_agent_response"`
}

func (m *TentativeAgentResponse) serverMessageType() string { return "tentative_agent_response" }

// Audio carries one base64-encoded chunk of agent speech.
type Audio struct {
	Type       string     `json:"type"`
	AudioEvent AudioEvent `json:"audio_event"`
}

type AudioEvent struct {
	AudioBase64 string `json:"audio_base_64"`
	EventID     int    `json:"event_id"`
}

func (m *Audio) serverMessageType() string { return "audio" }

// Bytes decodes the chunk's base64 payload.
func (m *Audio) Bytes() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(m.AudioEvent.AudioBase64)
	if err != nil {
		return nil, NewError("failed to decode audio event payload", ErrCodeAudioDecodeFailed).
			AddDetail("event_id", m.AudioEvent.EventID)
	}
	return data, nil
}

// ClientToolCall asks the client to execute a tool and report the result.
type ClientToolCall struct {
	Type           string     `json:"type"`
	ClientToolCall ClientTool `json:"client_tool_call"`
}

type ClientTool struct {
	ToolName   string          `json:"tool_name"`
	ToolCallID string          `json:"tool_call_id"`
	Parameters json.RawMessage `json:"parameters"`
}

func (m *ClientToolCall) serverMessageType() string { return "client_tool_call" }

func (m *ClientToolCall) ID() string { return m.ClientToolCall.ToolCallID }

func (m *ClientToolCall) Name() string { return m.ClientToolCall.ToolName }

func (m *ClientToolCall) RawParameters() json.RawMessage { return m.ClientToolCall.Parameters }

// ClientToolResultEcho is the server's acknowledgement of a tool result the
// client submitted earlier.
type ClientToolResultEcho struct {
	Type         string `json:"type"`
	ClientToolID string `json:"client_tool_id"`
	Result       string `json:"result"`
	IsError      bool   `json:"is_error"`
}

func (m *ClientToolResultEcho) serverMessageType() string { return "client_tool_result" }

// ConversationInitiationMetadata is the first message of a conversation and
// carries the server-assigned conversation id.
type ConversationInitiationMetadata struct {
	Type                                string                              `json:"type"`
	ConversationInitiationMetadataEvent ConversationInitiationMetadataEvent `json:"conversation_initiation_metadata_event"`
}

type ConversationInitiationMetadataEvent struct {
	ConversationID         string `json:"conversation_id"`
	AgentOutputAudioFormat string `json:"agent_output_audio_format"`
}

func (m *ConversationInitiationMetadata) serverMessageType() string {
	return "conversation_initiation_metadata"
}

// Interruption signals that the user interrupted the agent mid-utterance.
type Interruption struct {
	Type              string            `json:"type"`
	InterruptionEvent InterruptionEvent `json:"interruption_event"`
}

type InterruptionEvent struct {
	EventID int `json:"event_id"`
}

func (m *Interruption) serverMessageType() string { return "interruption" }

// Ping is an application-level liveness probe. The session answers it with
// a matching Pong automatically before delivering it.
type Ping struct {
	Type      string    `json:"type"`
	PingEvent PingEvent `json:"ping_event"`
}

type PingEvent struct {
	EventID int  `json:"event_id"`
	PingMS  *int `json:"ping_ms,omitempty"`
}

func (m *Ping) serverMessageType() string { return "ping" }

// UserTranscript carries the transcription of the user's speech.
type UserTranscript struct {
	Type                   string                 `json:"type"`
	UserTranscriptionEvent UserTranscriptionEvent `json:"user_transcription_event"`
}

type UserTranscriptionEvent struct {
	UserTranscript string `json:"user_transcript"`
}

func (m *UserTranscript) serverMessageType() string { return "user_transcript" }

// VADScore reports voice activity detection confidence for recent audio.
type VADScore struct {
	Type                  string                `json:"type"`
	VADScoreInternalEvent VADScoreInternalEvent `json:"vad_score_internal_event"`
}

type VADScoreInternalEvent struct {
	VADScore float64 `json:"vad_score"`
}

func (m *VADScore) serverMessageType() string { return "vad_score" }

// TurnProbability estimates how likely the user has finished their turn.
type TurnProbability struct {
	Type                         string                       `json:"type"`
	TurnProbabilityInternalEvent TurnProbabilityInternalEvent `json:"turn_probability_internal_event"`
}

type TurnProbabilityInternalEvent struct {
	TurnProbability float64 `json:"turn_probability"`
}

func (m *TurnProbability) serverMessageType() string { return "turn_probability" }

// UnknownMessage preserves frames whose type tag matches no known variant.
// Raw holds the complete original frame.
type UnknownMessage struct {
	Type string
	Raw  json.RawMessage
}

func (m *UnknownMessage) serverMessageType() string { return "unknown" }

// ParseServerMessage classifies one inbound text frame. Dispatch is driven
// by the explicit "type" tag; unrecognized tags (or frames without one)
// yield *UnknownMessage rather than an error. An error is returned only for
// frames that are not valid JSON or whose payload contradicts its tag.
func ParseServerMessage(data []byte) (ServerMessage, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, NewDeserializeError("frame is not valid JSON", err)
	}

	switch envelope.Type {
	case "agent_response":
		var m AgentResponse
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, decodeError(envelope.Type, err)
		}
		return &m, nil
	case "agent_response_correction":
		var m AgentResponseCorrection
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, decodeError(envelope.Type, err)
		}
		return &m, nil
	case "tentative_agent_response":
		var m TentativeAgentResponse
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, decodeError(envelope.Type, err)
		}
		return &m, nil
	case "audio":
		var m Audio
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, decodeError(envelope.Type, err)
		}
		return &m, nil
	case "client_tool_call":
		var m ClientToolCall
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, decodeError(envelope.Type, err)
		}
		return &m, nil
	case "client_tool_result":
		var m ClientToolResultEcho
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, decodeError(envelope.Type, err)
		}
		return &m, nil
	case "conversation_initiation_metadata":
		var m ConversationInitiationMetadata
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, decodeError(envelope.Type, err)
		}
		return &m, nil
	case "interruption":
		var m Interruption
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, decodeError(envelope.Type, err)
		}
		return &m, nil
	case "ping":
		var m Ping
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, decodeError(envelope.Type, err)
		}
		return &m, nil
	case "user_transcript":
		var m UserTranscript
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, decodeError(envelope.Type, err)
		}
		return &m, nil
	case "vad_score":
		var m VADScore
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, decodeError(envelope.Type, err)
		}
		return &m, nil
	case "turn_probability":
		var m TurnProbability
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, decodeError(envelope.Type, err)
		}
		return &m, nil
	default:
		return &UnknownMessage{
			Type: envelope.Type,
			Raw:  append(json.RawMessage(nil), data...),
		}, nil
	}
}

func decodeError(messageType string, err error) *Error {
	return NewDeserializeError(fmt.Sprintf("failed to decode %s frame", messageType), err).
		AddDetail("type", messageType)
}
