// Package client contains the client-side building blocks for talking to the
// task backend.
//
// # Overview
//
//  1. A transport-agnostic API contract (Client): Login, Signup, TestToken
//     and task CRUD.
//  2. An HTTP implementation (HTTPClient) against the fixed /api/v1 base
//     path. Login uses the OAuth2 password grant; every other call carries the
//     bearer token found in the request context (see WithAccessToken).
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database with embedded goose migrations.
//
// # Error Handling
//
// Failures match one of the sentinel errors with errors.Is: ErrUnavailable,
// ErrUnauthorized, ErrInvalidCredentials, ErrValidation, ErrNotFound,
// ErrServer. HTTP failures are *APIError values carrying the status code and
// the backend's detail message. A 401 on any bearer-authenticated call also
// fires the handler registered with OnUnauthorized.
package client
