// Package voxa provides a Go SDK for live conversational AI sessions over
// bidirectional WebSocket streaming with the Voxa API.
//
// # Overview
//
// The Voxa SDK Go provides a complete solution for:
//   - Live agent conversations over a single WebSocket connection
//   - Signed-URL resolution for private agents, with token caching
//   - Ordered microphone/audio relay from any chunk source
//   - Typed server events with a catch-all for unknown payloads
//   - Automatic replies to server keepalive pings
//   - Structured logging with Zerolog
//
// # Quick Start
//
// Basic usage example:
//
//	config := voxa.NewConfig()
//	client := voxa.NewAgentClient(config)
//
//	conv, err := client.StartConversation(context.Background(), nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	for msg, err := range conv.All() {
//		if err != nil {
//			log.Printf("stream error: %v", err)
//			continue
//		}
//		if r, ok := msg.(*voxa.AgentResponse); ok {
//			fmt.Println("agent:", r.AgentResponseEvent.AgentResponse)
//		}
//	}
//
// # Configuration
//
// Configuration is explicit: NewConfig reads VOXA_* environment variables
// (and a local .env file if present) once, and every field can be overridden
// in code before the client is built:
//
//	config := voxa.NewConfig()
//	config.AgentID = "agent_1234"
//	config.DialTimeout = 10 * time.Second
//	config.SendQueueSize = 128
//
// When an API key is set the client resolves a signed WebSocket URL before
// dialing; without one it connects to the public agent endpoint directly.
//
// # Sending
//
// Outbound messages are queued and written by a single writer in FIFO order.
// Audio is relayed from a channel source so any producer works:
//
//	source, err := voxa.AudioSourceFromFile(ctx, "input.pcm", 0)
//	if err != nil {
//		log.Fatal(err)
//	}
//	conv, err := client.StartConversation(ctx, source)
//
// Tool results and contextual updates go through the same queue:
//
//	conv.SendToolResult(voxa.NewClientToolResult(call.ID()).WithResult("ok"))
//	conv.SendContextualUpdate("user opened the settings page")
//
// # Event Handling
//
// Events() exposes the raw channel; All() exposes an iterator. For
// callback-style consumption, Handlers routes each message type:
//
//	h := voxa.Handlers{
//		OnAgentResponse: func(text string) { fmt.Println("agent:", text) },
//		OnAudio:         func(pcm []byte, eventID int) { play(pcm) },
//	}
//	voxa.DispatchEvents(conv, &h)
//
// # Error Handling
//
// Every error carries a stable code:
//
//	err := voxa.NewError("connection failed", voxa.ErrCodeTransportFailed)
//	err.AddDetail("endpoint", "wss://api.voxa.ai")
//
//	if voxa.IsCode(err, voxa.ErrCodeTransportFailed) {
//		// reconnect
//	}
//
// A conversation that ends abnormally always yields an error event before
// the event channel closes; Err() returns the terminal error afterwards.
//
// # Lifecycle
//
// A conversation moves forward only: Created, Connecting, Streaming,
// Closing, Closed. Stop() requests shutdown exactly once; later calls
// return ErrCodeConversationStopped. Done() unblocks when teardown is
// complete.
//
// # Dependencies
//
// The SDK depends on:
//   - github.com/gorilla/websocket: WebSocket client
//   - github.com/rs/zerolog: Structured logging
//   - github.com/golang-jwt/jwt/v4: Signed-URL token inspection
//   - github.com/joho/godotenv: Environment variables
//   - github.com/spf13/cobra: CLI framework
//   - github.com/goccy/go-yaml: CLI override files
//   - github.com/gordonklaus/portaudio: Microphone example
package voxa

// Version is the SDK version, reported in the User-Agent of REST calls.
const Version = "0.3.0"
