// Package authtest is an in-memory stand-in for the platform's authentication
// service, for tests and demos.
//
// It serves POST /api/auth/login, POST /api/auth/register and GET /api/auth/me
// with the same envelopes as the real service, stores argon2id password
// hashes, issues HS256 bearer tokens and seeds the demo account. Failure
// paths are reachable on demand through [Server.ForceStatus],
// [Server.SetDelay] and [Server.RevokeTokens].
//
// # What this package must NOT do
//
//   - Persist anything. State lives and dies with the Server.
//   - Be used as a production backend.
package authtest
