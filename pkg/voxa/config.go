package voxa

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIBaseURL = "https://api.voxa.ai"
	DefaultWSBaseURL  = "wss://api.voxa.ai"

	// Conversation socket path. The agent id rides in the query string.
	ConversationPath = "/v1/conversational_ai/conversation"
	// Signed URL endpoint path.
	SignedURLPath = "/v1/convai/conversation/get_signed_url"
)

// Config holds every knob the SDK reads. The session engine itself never
// touches the environment; env access happens once, here, at construction.
type Config struct {
	APIKey     string            `json:"api_key,omitempty"`
	AgentID    string            `json:"agent_id,omitempty"`
	APIBaseURL string            `json:"api_base_url"`
	WSBaseURL  string            `json:"ws_base_url"`
	Headers    map[string]string `json:"headers,omitempty"`

	DialTimeout  time.Duration `json:"dial_timeout"`
	CloseTimeout time.Duration `json:"close_timeout"`

	SendQueueSize   int `json:"send_queue_size"`
	EventBufferSize int `json:"event_buffer_size"`

	SignedURLTTL           time.Duration `json:"signed_url_ttl"`
	SignedURLRefreshBuffer time.Duration `json:"signed_url_refresh_buffer"`

	LogLevel string `json:"log_level"`
}

// NewConfig builds a Config with defaults, then overlays environment
// variables (a .env file is loaded best-effort first).
func NewConfig() *Config {
	c := &Config{
		APIBaseURL:             DefaultAPIBaseURL,
		WSBaseURL:              DefaultWSBaseURL,
		Headers:                make(map[string]string),
		DialTimeout:            30 * time.Second,
		CloseTimeout:           5 * time.Second,
		SendQueueSize:          64,
		EventBufferSize:        64,
		SignedURLTTL:           10 * time.Minute,
		SignedURLRefreshBuffer: time.Minute,
		LogLevel:               "info",
	}

	c.loadFromEnv()

	return c
}

func (c *Config) loadFromEnv() {
	// Load .env if exists
	_ = godotenv.Load()

	if apiKey := os.Getenv("VOXA_API_KEY"); apiKey != "" {
		c.APIKey = apiKey
	}

	if agentID := os.Getenv("VOXA_AGENT_ID"); agentID != "" {
		c.AgentID = agentID
	}

	if baseURL := os.Getenv("VOXA_API_BASE_URL"); baseURL != "" {
		c.APIBaseURL = baseURL
	}

	if wsURL := os.Getenv("VOXA_WS_BASE_URL"); wsURL != "" {
		c.WSBaseURL = wsURL
	}

	if timeout := os.Getenv("VOXA_DIAL_TIMEOUT"); timeout != "" {
		if val, err := time.ParseDuration(timeout); err == nil {
			c.DialTimeout = val
		}
	}

	if timeout := os.Getenv("VOXA_CLOSE_TIMEOUT"); timeout != "" {
		if val, err := time.ParseDuration(timeout); err == nil {
			c.CloseTimeout = val
		}
	}

	if size := os.Getenv("VOXA_SEND_QUEUE_SIZE"); size != "" {
		if val, err := strconv.Atoi(size); err == nil && val > 0 {
			c.SendQueueSize = val
		}
	}

	if size := os.Getenv("VOXA_EVENT_BUFFER_SIZE"); size != "" {
		if val, err := strconv.Atoi(size); err == nil && val > 0 {
			c.EventBufferSize = val
		}
	}

	if ttl := os.Getenv("VOXA_SIGNED_URL_TTL"); ttl != "" {
		if val, err := time.ParseDuration(ttl); err == nil {
			c.SignedURLTTL = val
		}
	}

	if buffer := os.Getenv("VOXA_SIGNED_URL_REFRESH_BUFFER"); buffer != "" {
		if val, err := time.ParseDuration(buffer); err == nil {
			c.SignedURLRefreshBuffer = val
		}
	}

	if level := os.Getenv("VOXA_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
}

// Validate returns list of issues
func (c *Config) Validate() []string {
	issues := []string{}

	if c.APIKey != "" && !strings.HasPrefix(c.APIKey, "vx_") {
		issues = append(issues, "Invalid API key format (should start with 'vx_')")
	}

	if !strings.HasPrefix(c.WSBaseURL, "ws") {
		issues = append(issues, "Invalid WebSocket base URL (should start with ws:// or wss://)")
	}

	if !strings.HasPrefix(c.APIBaseURL, "http") {
		issues = append(issues, "Invalid API base URL (should start with http:// or https://)")
	}

	if c.DialTimeout <= 0 {
		issues = append(issues, "Dial timeout must be positive")
	}

	if c.CloseTimeout <= 0 {
		issues = append(issues, "Close timeout must be positive")
	}

	if c.SendQueueSize <= 0 {
		issues = append(issues, "Send queue size must be positive")
	}

	if c.EventBufferSize <= 0 {
		issues = append(issues, "Event buffer size must be positive")
	}

	validLevels := []string{"trace", "debug", "info", "warn", "warning", "error", "fatal", "panic"}
	found := false
	for _, level := range validLevels {
		if strings.EqualFold(level, c.LogLevel) {
			found = true
			break
		}
	}
	if !found {
		issues = append(issues, fmt.Sprintf("Invalid log level: %s", c.LogLevel))
	}

	return issues
}

// maskKey keeps enough of a credential to recognize it in output.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:8] + "..."
}

func (c *Config) PrintConfig() {
	fmt.Println("🎙️ Voxa SDK Configuration")
	fmt.Println("==================================================")

	if c.APIKey != "" {
		fmt.Printf("API Key: %s\n", maskKey(c.APIKey))
	} else {
		fmt.Println("API Key: NOT SET (unauthenticated fallback URL will be used)")
	}

	if c.AgentID != "" {
		fmt.Printf("Agent ID: %s\n", c.AgentID)
	} else {
		fmt.Println("Agent ID: NOT SET")
	}

	fmt.Printf("API Base URL: %s\n", c.APIBaseURL)
	fmt.Printf("WebSocket Base URL: %s\n", c.WSBaseURL)
	fmt.Printf("Dial Timeout: %s\n", c.DialTimeout)
	fmt.Printf("Close Timeout: %s\n", c.CloseTimeout)
	fmt.Printf("Send Queue Size: %d\n", c.SendQueueSize)
	fmt.Printf("Event Buffer Size: %d\n", c.EventBufferSize)
	fmt.Printf("Signed URL TTL: %s\n", c.SignedURLTTL)
	fmt.Printf("Signed URL Refresh Buffer: %s\n", c.SignedURLRefreshBuffer)
	fmt.Printf("Log Level: %s\n", c.LogLevel)
}
