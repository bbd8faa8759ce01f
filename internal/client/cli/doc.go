// Package cli provides the interactive CivicReport terminal client.
//
// It wires configuration, the session store, the route table and the API
// services, then runs a REPL. Pages are addressed by path ("go /user/raise")
// and every navigation goes through the router, so private and role-limited
// pages are only rendered for a session that may see them. While the stored
// session is still loading, protected pages show a placeholder.
//
// Each page may add its own commands, listed by "help". The REPL is started
// with App.Run, which blocks until the user exits.
package cli
