package voxa

// Wire type tags for outbound messages.
const (
	clientTypePong             = "pong"
	clientTypeConversationInit = "conversation_initiation_client_data"
	clientTypeClientToolResult = "client_tool_result"
	clientTypeContextualUpdate = "contextual_update"
)

// UserAudioChunk carries one base64-encoded audio payload upstream. It is
// the only outbound message without a type tag.
type UserAudioChunk struct {
	UserAudioChunk string `json:"user_audio_chunk"`
}

func NewUserAudioChunk(base64Audio string) *UserAudioChunk {
	return &UserAudioChunk{UserAudioChunk: base64Audio}
}

// Pong answers an application-level ping. EventID must mirror the ping's id.
type Pong struct {
	Type    string `json:"type"`
	EventID int    `json:"event_id"`
}

func NewPong(eventID int) *Pong {
	return &Pong{Type: clientTypePong, EventID: eventID}
}

// ConversationInitiationClientData is the optional first message of a
// conversation. It can override agent behavior for this session only.
type ConversationInitiationClientData struct {
	Type                       string                      `json:"type"`
	ConversationConfigOverride *ConversationConfigOverride `json:"conversation_config_override,omitempty"`
	CustomLLMExtraBody         *CustomLLMExtraBody         `json:"custom_llm_extra_body,omitempty"`
	DynamicVariables           map[string]interface{}      `json:"dynamic_variables,omitempty"`
}

func NewConversationInitData() *ConversationInitiationClientData {
	return &ConversationInitiationClientData{Type: clientTypeConversationInit}
}

func (d *ConversationInitiationClientData) WithConfigOverride(override *ConversationConfigOverride) *ConversationInitiationClientData {
	d.ConversationConfigOverride = override
	return d
}

func (d *ConversationInitiationClientData) WithCustomLLMExtraBody(extra *CustomLLMExtraBody) *ConversationInitiationClientData {
	d.CustomLLMExtraBody = extra
	return d
}

func (d *ConversationInitiationClientData) WithDynamicVariables(vars map[string]interface{}) *ConversationInitiationClientData {
	d.DynamicVariables = vars
	return d
}

// ConversationConfigOverride adjusts agent and TTS settings per session.
type ConversationConfigOverride struct {
	Agent *AgentOverride `json:"agent,omitempty"`
	TTS   *TTSOverride   `json:"tts,omitempty"`
}

type AgentOverride struct {
	Prompt       *PromptOverride `json:"prompt,omitempty"`
	FirstMessage string          `json:"first_message,omitempty"`
	Language     string          `json:"language,omitempty"`
}

type PromptOverride struct {
	Prompt string `json:"prompt,omitempty"`
}

type TTSOverride struct {
	VoiceID string `json:"voice_id,omitempty"`
}

type CustomLLMExtraBody struct {
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// ClientToolResult reports the outcome of a tool call the agent requested.
type ClientToolResult struct {
	Type       string `json:"type"`
	ToolCallID string `json:"tool_call_id"`
	Result     string `json:"result"`
	IsError    bool   `json:"is_error"`
}

func NewClientToolResult(toolCallID string) *ClientToolResult {
	return &ClientToolResult{
		Type:       clientTypeClientToolResult,
		ToolCallID: toolCallID,
	}
}

func (r *ClientToolResult) WithResult(result string) *ClientToolResult {
	r.Result = result
	return r
}

func (r *ClientToolResult) WithIsError(isError bool) *ClientToolResult {
	r.IsError = isError
	return r
}

// ContextualUpdate feeds out-of-band context to the agent mid-conversation.
type ContextualUpdate struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func NewContextualUpdate(text string) *ContextualUpdate {
	return &ContextualUpdate{Type: clientTypeContextualUpdate, Text: text}
}
