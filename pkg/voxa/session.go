package voxa

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// SessionState tracks a conversation through its lifecycle. States only
// move forward.
type SessionState int32

const (
	StateCreated SessionState = iota
	StateConnecting
	StateStreaming
	StateClosing
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is one item of the conversation stream. Exactly one of Message and
// Err is set. Errors carrying a terminal code are the stream's final item;
// other error items report a single bad frame and the stream continues.
type Event struct {
	Message ServerMessage
	Err     error
}

type outboundFrame struct {
	messageType int
	data        []byte
}

// AgentClient starts live conversations with one agent. A single client can
// start any number of independent conversations.
type AgentClient struct {
	cfg      *Config
	resolver SignedURLResolver
	initData *ConversationInitiationClientData
	dialer   *websocket.Dialer
	logger   *Logger
}

func NewAgentClient(cfg *Config) *AgentClient {
	if cfg == nil {
		cfg = NewConfig()
	}

	client := &AgentClient{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.DialTimeout,
		},
		logger: GetGlobalLogger().WithComponent("conversation"),
	}

	if cfg.APIKey != "" {
		client.resolver = NewSignedURLManager(
			NewAPIClientFromConfig(cfg),
			cfg.SignedURLTTL,
			cfg.SignedURLRefreshBuffer,
		)
	}

	return client
}

// WithConversationInitData sets the payload sent as the first frame of
// every conversation this client starts.
func (c *AgentClient) WithConversationInitData(data *ConversationInitiationClientData) *AgentClient {
	c.initData = data
	return c
}

// WithResolver replaces the signed-URL resolver. Passing nil restores the
// unauthenticated fallback URL.
func (c *AgentClient) WithResolver(resolver SignedURLResolver) *AgentClient {
	c.resolver = resolver
	return c
}

// SetLogger replaces the client's logger.
func (c *AgentClient) SetLogger(logger *Logger) {
	if logger != nil {
		c.logger = logger.WithComponent("conversation")
	}
}

func (c *AgentClient) connectionURL(ctx context.Context) (string, error) {
	if c.cfg.AgentID == "" {
		return "", NewCredentialsError("agent ID is required to start a conversation")
	}

	if c.resolver != nil {
		signedURL, err := c.resolver.ResolveSignedURL(ctx, c.cfg.AgentID)
		if err != nil {
			var vErr *Error
			if errors.As(err, &vErr) {
				return "", err
			}
			return "", NewSignedURLError("failed to resolve signed URL", err)
		}
		return signedURL, nil
	}

	return ConversationURL(c.cfg.WSBaseURL, c.cfg.AgentID), nil
}

// StartConversation connects to the agent and spawns the session tasks.
// audio supplies base64-encoded chunks to relay upstream; it may be nil for
// a receive-and-control-only session. The returned Conversation delivers
// every inbound message through Events until the session ends.
func (c *AgentClient) StartConversation(ctx context.Context, audio <-chan string) (*Conversation, error) {
	conv := newConversation(c.cfg, c.logger)

	connectionURL, err := c.connectionURL(ctx)
	if err != nil {
		return nil, err
	}

	conv.setState(StateConnecting)
	c.logger.WithField("agent_id", c.cfg.AgentID).Info("connecting to agent")

	header := make(http.Header)
	for k, v := range c.cfg.Headers {
		header.Set(k, v)
	}

	conn, resp, err := c.dialer.DialContext(ctx, connectionURL, header)
	if err != nil {
		dialErr := NewTransportError("failed to dial conversation endpoint", err)
		if resp != nil {
			dialErr.AddDetail("status_code", resp.StatusCode)
		}
		return nil, dialErr
	}
	conv.conn = conn

	// The initiation payload must reach the wire before anything else, so
	// it is written directly before any task can enqueue a frame.
	if c.initData != nil {
		data, err := json.Marshal(c.initData)
		if err != nil {
			conn.Close()
			return nil, NewDeserializeError("failed to encode initiation payload", err)
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			return nil, NewTransportError("failed to send initiation payload", err)
		}
	}

	conv.start(ctx, audio)
	c.logger.WithField("agent_id", c.cfg.AgentID).Info("conversation streaming")

	return conv, nil
}

// Conversation is a live session with an agent. Inbound messages arrive on
// Events; Stop ends the session. The zero value is not usable; sessions are
// created by AgentClient.StartConversation.
type Conversation struct {
	cfg  *Config
	conn *websocket.Conn
	log  *Logger

	outbound chan outboundFrame
	events   chan Event

	stopped atomic.Bool
	stopCh  chan struct{}

	writerDone chan struct{}
	readerDone chan struct{}
	relayDone  chan struct{}
	done       chan struct{}

	state   atomic.Int32
	convID  atomic.Value
	termErr atomic.Pointer[Error]
}

func newConversation(cfg *Config, logger *Logger) *Conversation {
	conv := &Conversation{
		cfg:        cfg,
		log:        logger.WithField("agent_id", cfg.AgentID),
		outbound:   make(chan outboundFrame, cfg.SendQueueSize),
		events:     make(chan Event, cfg.EventBufferSize),
		stopCh:     make(chan struct{}),
		writerDone: make(chan struct{}),
		readerDone: make(chan struct{}),
		relayDone:  make(chan struct{}),
		done:       make(chan struct{}),
	}
	conv.state.Store(int32(StateCreated))
	return conv
}

func (c *Conversation) start(ctx context.Context, audio <-chan string) {
	// Protocol pings are answered through the writer queue so the writer
	// goroutine remains the only frame producer on the socket.
	c.conn.SetPingHandler(func(appData string) error {
		return c.enqueue(outboundFrame{messageType: websocket.PongMessage, data: []byte(appData)})
	})

	go c.writeLoop()
	go c.readLoop()

	if audio != nil {
		go c.relayLoop(audio)
	} else {
		close(c.relayDone)
	}

	go c.supervise(ctx)
	c.setState(StateStreaming)
}

// supervise propagates context cancellation, enforces the shutdown
// deadline, and marks the session closed once every task has exited.
func (c *Conversation) supervise(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
			c.requestStop()
		case <-c.done:
		}
	}()

	go func() {
		select {
		case <-c.stopCh:
			timer := time.NewTimer(c.cfg.CloseTimeout)
			defer timer.Stop()
			select {
			case <-c.readerDone:
			case <-timer.C:
				c.log.Warn("close deadline expired, forcing socket shutdown")
				c.conn.Close()
			}
		case <-c.readerDone:
		}
	}()

	<-c.writerDone
	<-c.readerDone
	<-c.relayDone
	c.setState(StateClosed)
	close(c.done)
	c.log.Info("conversation closed")
}

// writeLoop is the sole consumer of the outbound queue and, once started,
// the only goroutine writing frames to the socket. When both the stop
// signal and a queued frame are ready the choice between them is a race.
func (c *Conversation) writeLoop() {
	defer close(c.writerDone)

	for {
		select {
		case <-c.stopCh:
			c.setState(StateClosing)
			message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "conversation stopped")
			deadline := time.Now().Add(c.cfg.CloseTimeout)
			if err := c.conn.WriteControl(websocket.CloseMessage, message, deadline); err != nil {
				c.log.WithError(err).Debug("failed to send close frame")
			}
			return
		case frame := <-c.outbound:
			var err error
			if frame.messageType == websocket.TextMessage || frame.messageType == websocket.BinaryMessage {
				err = c.conn.WriteMessage(frame.messageType, frame.data)
			} else {
				deadline := time.Now().Add(c.cfg.CloseTimeout)
				err = c.conn.WriteControl(frame.messageType, frame.data, deadline)
			}
			if err != nil {
				c.setErr(NewTransportError("failed to write frame", err))
				c.log.WithError(err).Error("write failed, tearing down session")
				c.conn.Close()
				return
			}
		}
	}
}

// readLoop is the sole reader of the socket. It classifies every inbound
// frame and publishes the outcome; when it returns, the event stream is
// complete and session teardown is underway.
func (c *Conversation) readLoop() {
	defer close(c.readerDone)
	defer c.requestStop()
	defer close(c.events)
	defer c.conn.Close()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			c.publishReadOutcome(err)
			return
		}

		switch messageType {
		case websocket.TextMessage:
			if !c.handleTextFrame(data) {
				return
			}
		default:
			c.publish(Event{Err: NewUnexpectedMessageTypeError(messageType)})
		}
	}
}

// handleTextFrame classifies one text frame. It reports whether the reader
// should keep going.
func (c *Conversation) handleTextFrame(data []byte) bool {
	msg, err := ParseServerMessage(data)
	if err != nil {
		// One malformed frame is one bad item, not the end of the session.
		c.publish(Event{Err: err})
		return true
	}

	switch m := msg.(type) {
	case *Ping:
		// The pong must be enqueued before the ping is published.
		if err := c.enqueueJSON(NewPong(m.PingEvent.EventID)); err != nil {
			c.publish(Event{Err: err})
			return false
		}
	case *ConversationInitiationMetadata:
		c.convID.Store(m.ConversationInitiationMetadataEvent.ConversationID)
		c.log.WithField("conversation_id", m.ConversationInitiationMetadataEvent.ConversationID).
			Info("conversation initiated")
	}

	c.publish(Event{Message: msg})
	return true
}

// publishReadOutcome translates the read error that ended the loop into the
// stream's final item, if the session's contract calls for one.
func (c *Conversation) publishReadOutcome(readErr error) {
	c.setState(StateClosing)

	var closeErr *websocket.CloseError
	if errors.As(readErr, &closeErr) {
		switch closeErr.Code {
		case websocket.CloseNormalClosure:
			c.log.Debug("received normal close frame")
		case websocket.CloseNoStatusReceived, websocket.CloseAbnormalClosure:
			// 1005 and 1006 are never carried by a real close frame; they
			// mean the connection ended without one.
			err := NewClosedWithoutFrameError(readErr)
			c.setErr(err)
			c.publish(Event{Err: err})
		default:
			err := NewNonNormalCloseError(closeErr.Code, closeErr.Text)
			c.setErr(err)
			c.publish(Event{Err: err})
		}
		return
	}

	if c.stopped.Load() {
		// Read errors during our own teardown are expected noise.
		c.log.WithError(readErr).Debug("read ended during teardown")
		return
	}

	if termErr := c.termErr.Load(); termErr != nil {
		// The writer already recorded the failure that broke the socket.
		c.publish(Event{Err: termErr})
		return
	}

	var vErr *Error
	if errors.As(readErr, &vErr) {
		c.setErr(vErr)
		c.publish(Event{Err: vErr})
		return
	}

	err := NewClosedWithoutFrameError(readErr)
	c.setErr(err)
	c.publish(Event{Err: err})
}

// relayLoop pumps the caller's audio sequence into the writer queue,
// preserving order. It ends with the source, the stop signal, or the writer.
func (c *Conversation) relayLoop(audio <-chan string) {
	defer close(c.relayDone)

	for {
		select {
		case <-c.stopCh:
			return
		case chunk, ok := <-audio:
			if !ok {
				c.log.Debug("audio source ended")
				return
			}
			if err := c.enqueueJSON(NewUserAudioChunk(chunk)); err != nil {
				c.log.WithError(err).Warn("audio relay ended: could not enqueue chunk")
				return
			}
		}
	}
}

// enqueue adds a frame to the outbound queue. It fails once the writer is
// gone instead of blocking forever or parking frames nothing will consume.
func (c *Conversation) enqueue(frame outboundFrame) error {
	select {
	case <-c.writerDone:
		return NewSendQueueClosedError("writer is gone, frame not enqueued")
	default:
	}

	select {
	case c.outbound <- frame:
		return nil
	case <-c.writerDone:
		return NewSendQueueClosedError("writer is gone, frame not enqueued")
	}
}

func (c *Conversation) enqueueJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return NewDeserializeError("failed to encode outbound message", err)
	}
	return c.enqueue(outboundFrame{messageType: websocket.TextMessage, data: data})
}

// publish delivers one event to the caller. Delivery blocks while the
// session is live so no message is lost; once stop has fired it degrades to
// best-effort so teardown cannot hang on an abandoned consumer.
func (c *Conversation) publish(event Event) {
	if c.stopped.Load() {
		select {
		case c.events <- event:
		default:
			c.log.Debug("dropping event published after stop")
		}
		return
	}

	select {
	case c.events <- event:
	case <-c.stopCh:
		select {
		case c.events <- event:
		default:
			c.log.Debug("dropping event published after stop")
		}
	}
}

// requestStop fires the one-shot cancellation signal. It reports whether
// this call consumed the signal.
func (c *Conversation) requestStop() bool {
	if !c.stopped.CompareAndSwap(false, true) {
		return false
	}
	c.setState(StateClosing)
	close(c.stopCh)
	c.log.Debug("cancellation signal fired")
	return true
}

// Stop ends the conversation: the writer sends a close frame and every
// task winds down. The signal is one-shot; calling Stop after the session
// has begun stopping (by any path) returns a cancellation error.
func (c *Conversation) Stop() error {
	if !c.requestStop() {
		return NewConversationStoppedError()
	}
	return nil
}

// Events returns the conversation stream. The channel closes when the
// session ends; a terminal error, when there is one, is the final item.
func (c *Conversation) Events() <-chan Event {
	return c.events
}

// All adapts Events to an iterator. Iteration continues across per-frame
// error items and ends when the stream closes.
func (c *Conversation) All() iter.Seq2[ServerMessage, error] {
	return func(yield func(ServerMessage, error) bool) {
		for event := range c.events {
			if !yield(event.Message, event.Err) {
				return
			}
		}
	}
}

// SendToolResult reports a tool call's outcome to the agent.
func (c *Conversation) SendToolResult(result *ClientToolResult) error {
	if result == nil {
		return NewConfigError("tool result cannot be nil")
	}
	return c.enqueueJSON(result)
}

// SendContextualUpdate feeds out-of-band context to the agent.
func (c *Conversation) SendContextualUpdate(text string) error {
	return c.enqueueJSON(NewContextualUpdate(text))
}

// Done closes when every session task has exited.
func (c *Conversation) Done() <-chan struct{} {
	return c.done
}

// Err returns the terminal session error, nil while the session is live or
// after a clean end.
func (c *Conversation) Err() error {
	if err := c.termErr.Load(); err != nil {
		return err
	}
	return nil
}

// ID returns the server-assigned conversation id, empty until the
// initiation metadata arrives.
func (c *Conversation) ID() string {
	if v := c.convID.Load(); v != nil {
		return v.(string)
	}
	return ""
}

// State returns the session's lifecycle state.
func (c *Conversation) State() SessionState {
	return SessionState(c.state.Load())
}

func (c *Conversation) setState(state SessionState) {
	for {
		current := c.state.Load()
		if int32(state) <= current {
			return
		}
		if c.state.CompareAndSwap(current, int32(state)) {
			c.log.Debugf("session state %s -> %s", SessionState(current), state)
			return
		}
	}
}

// setErr records the session's terminal error. The first error wins.
func (c *Conversation) setErr(err *Error) {
	c.termErr.CompareAndSwap(nil, err)
}
