// Package flows contains the orchestrators behind every Client operation.
//
// Each flow function (RunLogin, RunRegister, RunMe, RunLogout, RunInvalidate,
// RunRehydrate) accepts a typed dependency struct of plain function fields
// and touches the outside world only through them. Tests drive the flows with
// stub functions; the root client wires the real HTTP client, session store,
// metrics and audit dispatcher.
//
// # Architecture boundaries
//
// Flows decide ordering: acquire the loading flag, call the API, persist the
// session, record the outcome. They never own the transport, the store or the
// dispatcher.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import eduAuth (to avoid import cycles).
//   - Re-wrap transport errors, except to replace the duplicate-account message.
//   - Return raw internal errors. Failures after the call (storing the
//     session) are wrapped with transport.Wrap under the flow's fallback text.
package flows
