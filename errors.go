package eduAuth

import (
	"errors"
	"strings"

	"github.com/MrEthical07/eduAuth/transport"
	"github.com/MrEthical07/eduAuth/validation"
)

var (
	// ErrNotAuthenticated is returned by operations that need a session when none is held.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSubmissionInFlight is returned when a form is submitted again before the previous submission finished.
	ErrSubmissionInFlight = errors.New("submission already in flight")
	// ErrClientClosed is returned by a Client after Close.
	ErrClientClosed = errors.New("client closed")
	// ErrClientNotReady is returned when a Client was not produced by Builder.Build.
	ErrClientNotReady = errors.New("client not initialized")
	// ErrRedisRequired is returned by Build when the redis backend has neither a client nor an address.
	ErrRedisRequired = errors.New("redis storage requires a client or an address")
)

// Re-exported transport sentinels, matched with errors.Is against any error a
// Client returns.
var (
	ErrUnauthorized       = transport.ErrUnauthorized
	ErrForbidden          = transport.ErrForbidden
	ErrTimeout            = transport.ErrTimeout
	ErrNetwork            = transport.ErrNetwork
	ErrCanceled           = transport.ErrCanceled
	ErrInvalidCredentials = transport.ErrInvalidCredentials
	ErrAccountExists      = transport.ErrAccountExists
	ErrUserNotFound       = transport.ErrUserNotFound
	ErrServer             = transport.ErrServer
)

// Fixed user-facing messages in English. A [Client] renders the same texts
// in its configured locale; see [Client.ErrorMessage].
const (
	MessageLoginFailed    = "Login failed"
	MessageRegisterFailed = "Registration failed"
	MessageAccountExists  = "An account with this email already exists."
	MessageProfileFailed  = "Failed to get user data"
	MessageNotSignedIn    = "You are not signed in."
	MessageInFlight       = "Please wait for the current request to finish."
)

// ErrorMessage renders err for display in English. It never returns an
// empty string.
func ErrorMessage(err error) string {
	return renderError(err, MessageNotSignedIn, MessageInFlight, transport.MessageFallback)
}

// ErrorMessage renders err for display in the client's locale. Errors
// returned by c already carry localized messages; host-level sentinels are
// translated here.
func (c *Client) ErrorMessage(err error) string {
	if c == nil || c.validator == nil {
		return ErrorMessage(err)
	}
	v := c.validator
	return renderError(err,
		v.Message(validation.MessageNotSignedIn),
		v.Message(validation.MessageInFlight),
		v.Message(validation.MessageFallback),
	)
}

func renderError(err error, notSignedIn, inFlight, fallback string) string {
	if err == nil {
		return ""
	}
	if te, ok := transport.AsError(err); ok && strings.TrimSpace(te.Message) != "" {
		return te.Message
	}
	var fe validation.FieldErrors
	if errors.As(err, &fe) && len(fe) > 0 {
		return fe[fe.Fields()[0]]
	}
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return notSignedIn
	case errors.Is(err, ErrSubmissionInFlight):
		return inFlight
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return fallback
}

// transportMessages renders the transport's fixed texts in v's locale.
func transportMessages(v *validation.Validator) transport.Messages {
	return transport.Messages{
		Timeout:        v.Message(validation.MessageTimeout),
		Network:        v.Message(validation.MessageNetwork),
		SessionExpired: v.Message(validation.MessageSessionExpired),
		Canceled:       v.Message(validation.MessageCanceled),
		BadResponse:    v.Message(validation.MessageBadResponse),
		Fallback:       v.Message(validation.MessageFallback),
	}
}

// ErrorCode returns the stable code of err, or [transport.CodeUnknown] when
// it carries none.
func ErrorCode(err error) transport.Code {
	if err == nil {
		return ""
	}
	if te, ok := transport.AsError(err); ok && te.Code != "" {
		return te.Code
	}
	var fe validation.FieldErrors
	if errors.As(err, &fe) {
		return transport.CodeValidation
	}
	return transport.CodeUnknown
}
