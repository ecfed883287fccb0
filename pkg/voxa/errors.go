package voxa

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes as constants
const (
	ErrCodeDeserializeFailed     = "DESERIALIZE_FAILED"
	ErrCodeCredentialsMissing    = "CREDENTIALS_MISSING"
	ErrCodeTransportFailed       = "TRANSPORT_FAILED"
	ErrCodeNonNormalClose        = "NON_NORMAL_CLOSE"
	ErrCodeClosedWithoutFrame    = "CLOSED_WITHOUT_FRAME"
	ErrCodeUnexpectedMessageType = "UNEXPECTED_MESSAGE_TYPE"
	ErrCodeSendQueueClosed       = "SEND_QUEUE_CLOSED"
	ErrCodeConversationStopped   = "CONVERSATION_STOPPED"
	ErrCodeSignedURLFailed       = "SIGNED_URL_FAILED"
	ErrCodeConfigInvalid         = "CONFIG_INVALID"
	ErrCodeAudioDecodeFailed     = "AUDIO_DECODE_FAILED"
)

// Error is the error type surfaced by every operation in this package.
// Code identifies the failure class, Details carry structured context,
// and Err holds the wrapped cause when one exists.
type Error struct {
	Code    string
	Message string
	Details map[string]interface{}
	Err     error
}

func NewError(message, code string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("voxa: %s (%s)", e.Message, e.Code))
	if len(e.Details) > 0 {
		sb.WriteString(": ")
		first := true
		for k, v := range e.Details {
			if !first {
				sb.WriteString("; ")
			}
			sb.WriteString(fmt.Sprintf("%s=%v", k, v))
			first = false
		}
	}
	if e.Err != nil {
		sb.WriteString(": " + e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AddDetail attaches structured context and returns the error for chaining.
func (e *Error) AddDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// GetDetail returns a detail value by key.
func (e *Error) GetDetail(key string) (interface{}, bool) {
	if e.Details == nil {
		return nil, false
	}
	value, exists := e.Details[key]
	return value, exists
}

// Specific error creators with common codes

func NewDeserializeError(message string, cause error) *Error {
	err := NewError(message, ErrCodeDeserializeFailed)
	err.Err = cause
	return err
}

func NewCredentialsError(message string) *Error {
	return NewError(message, ErrCodeCredentialsMissing)
}

func NewTransportError(message string, cause error) *Error {
	err := NewError(message, ErrCodeTransportFailed)
	err.Err = cause
	return err
}

// NewNonNormalCloseError reports a close frame carrying a code other than
// normal closure. The peer's code and reason are kept as details.
func NewNonNormalCloseError(code int, reason string) *Error {
	message := fmt.Sprintf("connection closed with code %d", code)
	if reason != "" {
		message = fmt.Sprintf("connection closed with code %d: %s", code, reason)
	}
	return NewError(message, ErrCodeNonNormalClose).
		AddDetail("close_code", code).
		AddDetail("reason", reason)
}

func NewClosedWithoutFrameError(cause error) *Error {
	err := NewError("connection closed without a close frame", ErrCodeClosedWithoutFrame)
	err.Err = cause
	return err
}

func NewUnexpectedMessageTypeError(messageType int) *Error {
	return NewError("received unexpected websocket message type", ErrCodeUnexpectedMessageType).
		AddDetail("message_type", messageType)
}

func NewSendQueueClosedError(message string) *Error {
	return NewError(message, ErrCodeSendQueueClosed)
}

func NewConversationStoppedError() *Error {
	return NewError("conversation already stopped", ErrCodeConversationStopped)
}

func NewSignedURLError(message string, cause error) *Error {
	err := NewError(message, ErrCodeSignedURLFailed)
	err.Err = cause
	return err
}

func NewConfigError(message string) *Error {
	return NewError(message, ErrCodeConfigInvalid)
}

// WrapError wraps any error under the given code. Returns nil for nil.
func WrapError(err error, code string) *Error {
	if err == nil {
		return nil
	}
	wrapped := NewError(err.Error(), code)
	wrapped.Err = err
	return wrapped
}

// IsCode reports whether err is (or wraps) a *Error with the given code.
func IsCode(err error, code string) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// ErrorCode extracts the taxonomy code from err, or empty when err is not
// a *Error.
func ErrorCode(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Code
}

// IsTerminalError reports whether the code describes a condition that ends
// the session rather than a single bad item.
func IsTerminalError(err error) bool {
	terminalCodes := []string{
		ErrCodeTransportFailed,
		ErrCodeNonNormalClose,
		ErrCodeClosedWithoutFrame,
		ErrCodeSendQueueClosed,
	}
	code := ErrorCode(err)
	for _, c := range terminalCodes {
		if code == c {
			return true
		}
	}
	return false
}
