// Package validation gates what the login and registration forms may send to
// the network.
//
// Inputs are plain structs tagged for go-playground/validator. A failed check
// never returns an error value: it yields [FieldErrors], one localized message
// per JSON field name, collected across all fields in a single pass.
//
// Loosely typed input (form values, CLI flags) is turned into the typed
// structs by [DecodeLogin] and [DecodeRegister], which use mapstructure with
// weak typing so "7" decodes into a grade of 7 and "" leaves an optional
// field unset.
//
// # What this package must NOT do
//
//   - Perform I/O or talk to the session store.
//   - Fail fast on the first invalid field.
package validation
