// Package cli provides the interactive TaskKeeper command-line client.
//
// It wires configuration, local storage, the backend API client, the session
// store and the route guard into a REPL. Every input line is dispatched
// through a freshly built cobra command tree, so flags never leak between
// lines.
//
// Commands:
//   - signup, login, logout, whoami
//   - list [--status S], show ID, add, edit ID, status ID S, delete ID [--yes]
//   - help, exit
//
// Task commands are protected: they mount the route guard, which validates
// the session first and then re-checks it periodically. When the session
// turns out to be invalid the REPL drops back to logged-out mode and asks
// the user to log in.
package cli
