// Package transport is the HTTP client every API call goes through.
//
// Outgoing requests get JSON headers, a request id and, when the
// [TokenSource] reports one, a bearer token. Successful responses are decoded
// straight into the caller's value. Every failure (timeout, no connectivity,
// 4xx, 5xx, malformed body, cancellation) comes back as exactly one *[Error]
// with a stable [Code] and a non-empty Message.
//
// # Message and code precedence
//
// Message: server error.message, then server message, then the fixed timeout
// or no-connection text, then the transport message, then [MessageFallback].
// Code: server error.code, then the transport code, then [CodeUnknown].
// The fixed texts can be replaced through [Options.Messages].
//
// # Unauthorized responses
//
// A 401 publishes an [Unauthorized] signal on the configured [Signals]
// before the call returns. The client itself never touches session storage or
// navigation; the session store subscribes and does both.
package transport
