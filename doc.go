// Package eduAuth is the client-side authentication layer of the educational
// platform: login, registration, a persisted session and the HTTP client every
// API call goes through.
//
// A [Client] is built once through [Builder.Build]; its methods are safe to
// call from multiple goroutines. Build restores the persisted session before
// returning, so the first call already sees the user that was logged in last
// time.
//
// # Architecture boundaries
//
// eduAuth is the public surface. It exposes [Client], [Builder], [Config], the
// form contract ([LoginForm], [RegisterForm]) and value types (User, State,
// MetricsSnapshot). Flow orchestration, audit dispatch and logging setup live
// under internal/. The session, transport and validation packages are usable
// on their own.
//
// # What this package must NOT do
//
//   - Hold global state. Every store, client and validator is owned by one [Client].
//   - Let the transport write session storage. Only the login and register
//     flows persist a session; a 401 reaches the store through a signal.
//   - Send anything that failed validation.
package eduAuth
