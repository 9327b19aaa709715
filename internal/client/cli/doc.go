// Package cli provides the interactive workoutlog command-line client.
//
// It wires configuration, the gRPC client, the session manager and the
// workout store, then runs a REPL whose commands depend on the session
// state:
//
//	loading:        every command answers "Carregando..."
//	signed out:     login, cadastro
//	signed in:      novo, historico, sair
//	always:         help, exit | quit
//
// Forms validate input with the shared functions in package workout before
// anything reaches the backend.
package cli
