package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// Code is the stable classification of a failed call. Server codes come from
// the response body; transport codes are assigned by the client.
type Code string

// Server error codes.
const (
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeEmailExists        Code = "EMAIL_ALREADY_EXISTS"
	CodeUserNotFound       Code = "USER_NOT_FOUND"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeInternal           Code = "INTERNAL_ERROR"
)

// Transport error codes.
const (
	CodeTimeout     Code = "ECONNABORTED"
	CodeNetwork     Code = "ERR_NETWORK"
	CodeBadRequest  Code = "ERR_BAD_REQUEST"
	CodeBadResponse Code = "ERR_BAD_RESPONSE"
	CodeCanceled    Code = "ERR_CANCELED"
	CodeUnknown     Code = "UNKNOWN_ERROR"
)

// CodeAuthFailed marks a 2xx answer whose envelope reported failure or
// carried no session.
const CodeAuthFailed Code = "AUTH_FAILED"

// IsServer reports whether c belongs to the closed set of server codes.
func (c Code) IsServer() bool {
	switch c {
	case CodeInvalidCredentials, CodeEmailExists, CodeUserNotFound, CodeUnauthorized,
		CodeForbidden, CodeValidation, CodeInternal:
		return true
	}
	return false
}

// Fixed user-facing messages.
const (
	MessageTimeout        = "The request timed out. Please try again."
	MessageNetwork        = "Unable to reach the server. Please check your internet connection."
	MessageSessionExpired = "Your session has expired. Please log in again."
	MessageCanceled       = "The request was canceled."
	MessageBadResponse    = "The server returned an unreadable response."
	MessageFallback       = "An unexpected error occurred. Please try again."
)

// Messages holds the fixed texts the client assigns to failures it
// classifies itself. Empty fields keep the English defaults.
type Messages struct {
	Timeout        string
	Network        string
	SessionExpired string
	Canceled       string
	BadResponse    string
	Fallback       string
}

// DefaultMessages returns the English texts.
func DefaultMessages() Messages {
	return Messages{
		Timeout:        MessageTimeout,
		Network:        MessageNetwork,
		SessionExpired: MessageSessionExpired,
		Canceled:       MessageCanceled,
		BadResponse:    MessageBadResponse,
		Fallback:       MessageFallback,
	}
}

func (m Messages) withDefaults() Messages {
	d := DefaultMessages()
	m.Timeout = firstNonEmpty(m.Timeout, d.Timeout)
	m.Network = firstNonEmpty(m.Network, d.Network)
	m.SessionExpired = firstNonEmpty(m.SessionExpired, d.SessionExpired)
	m.Canceled = firstNonEmpty(m.Canceled, d.Canceled)
	m.BadResponse = firstNonEmpty(m.BadResponse, d.BadResponse)
	m.Fallback = firstNonEmpty(m.Fallback, d.Fallback)
	return m
}

// Sentinels matched by [Error.Is].
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrTimeout            = errors.New("request timed out")
	ErrNetwork            = errors.New("network unavailable")
	ErrCanceled           = errors.New("request canceled")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountExists      = errors.New("account already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrServer             = errors.New("server error")
)

// Error is the single normalized failure shape returned by [Client]. Message
// is always non-empty.
type Error struct {
	Code      Code
	Message   string
	Status    int
	RequestID string
	// Details holds the raw response body, when there was one.
	Details json.RawMessage

	cause error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return string(e.Code) + " (" + strconv.Itoa(e.Status) + "): " + e.Message
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches the package sentinels. Domain sentinels use the server code
// when one was supplied and fall back to message heuristics otherwise.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Code == CodeUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden || e.Code == CodeForbidden
	case ErrTimeout:
		return e.Code == CodeTimeout
	case ErrNetwork:
		return e.Code == CodeNetwork
	case ErrCanceled:
		return e.Code == CodeCanceled
	case ErrServer:
		return e.Code == CodeInternal || e.Status >= http.StatusInternalServerError
	case ErrInvalidCredentials, ErrAccountExists, ErrUserNotFound:
		return classifyDomain(e) == target
	}
	return false
}

func classifyDomain(e *Error) error {
	switch e.Code {
	case CodeInvalidCredentials:
		return ErrInvalidCredentials
	case CodeEmailExists:
		return ErrAccountExists
	case CodeUserNotFound:
		return ErrUserNotFound
	}
	if e.Code.IsServer() {
		return nil
	}
	if e.Status == http.StatusConflict {
		return ErrAccountExists
	}
	return classifyMessage(e.Message)
}

// classifyMessage is the compatibility path for backends that send no code.
func classifyMessage(msg string) error {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "already exists"):
		return ErrAccountExists
	case strings.Contains(m, "invalid credentials"), strings.Contains(m, "invalid email or password"):
		return ErrInvalidCredentials
	case strings.Contains(m, "user not found"):
		return ErrUserNotFound
	}
	return nil
}

// WithMessage returns a copy of e that shows msg instead.
func (e *Error) WithMessage(msg string) *Error {
	out := *e
	out.Message = firstNonEmpty(msg, e.Message)
	return &out
}

// Rejected builds the error for an envelope that answered with success=false
// or without the expected data.
func Rejected(message, fallback string) *Error {
	return &Error{
		Code:    CodeAuthFailed,
		Message: firstNonEmpty(message, fallback),
	}
}

// Wrap normalizes a failure raised after the call itself succeeded, such as
// storing its result. err stays reachable through errors.Is and errors.As;
// message is what the user sees.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    CodeUnknown,
		Message: firstNonEmpty(message),
		cause:   err,
	}
}

// AsError returns err as an *Error when it is (or wraps) one.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// serverError is the failure body shape: {success:false, message?, error?:{code?, message?}}.
type serverError struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// fromResponse normalizes a non-2xx response. hadToken marks requests that
// carried a bearer credential.
func fromResponse(status int, body []byte, hadToken bool, msgs Messages) *Error {
	var parsed serverError
	_ = json.Unmarshal(body, &parsed)

	e := &Error{Status: status, Details: validRaw(body)}

	var serverCode, serverMsg string
	if parsed.Error != nil {
		serverCode = strings.TrimSpace(parsed.Error.Code)
		serverMsg = strings.TrimSpace(parsed.Error.Message)
	}
	if serverMsg == "" {
		serverMsg = strings.TrimSpace(parsed.Message)
	}

	transportCode := CodeBadRequest
	if status >= http.StatusInternalServerError {
		transportCode = CodeBadResponse
	}
	e.Code = firstCode(Code(serverCode), transportCode)
	e.Message = firstNonEmpty(serverMsg, "Request failed with status code "+strconv.Itoa(status))

	if status == http.StatusUnauthorized && hadToken {
		e.Message = msgs.SessionExpired
		if serverCode == "" {
			e.Code = CodeUnauthorized
		}
	}
	return e
}

// fromTransport normalizes a failure that produced no HTTP response.
func fromTransport(ctx context.Context, err error, msgs Messages) *Error {
	e := &Error{cause: err}
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		e.Code = CodeCanceled
		e.Message = msgs.Canceled
	case isTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		e.Code = CodeTimeout
		e.Message = msgs.Timeout
	default:
		e.Code = CodeNetwork
		e.Message = msgs.Network
	}
	return e
}

// fromDecode normalizes a 2xx response whose body could not be decoded.
func fromDecode(status int, body []byte, err error, msgs Messages) *Error {
	return &Error{
		Code:    CodeBadResponse,
		Message: msgs.BadResponse,
		Status:  status,
		Details: validRaw(body),
		cause:   err,
	}
}

// fromLocal normalizes failures raised before the request left the client.
func fromLocal(err error, msgs Messages) *Error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Code:    CodeUnknown,
		Message: firstNonEmpty(msg, msgs.Fallback),
		cause:   err,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func validRaw(body []byte) json.RawMessage {
	if len(body) > 0 && json.Valid(body) {
		return json.RawMessage(body)
	}
	return nil
}

func firstCode(codes ...Code) Code {
	for _, c := range codes {
		if c != "" {
			return c
		}
	}
	return CodeUnknown
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return MessageFallback
}
