// Package cli provides the interactive authkeeper command-line client.
//
// It wires configuration, the local session cache and the gRPC client, then
// runs a REPL:
//
//	Not logged in:  register, login, help, exit
//	Logged in:      whoami, update, delete, logout, help, exit
//
// A saved session is restored on start, and a background watcher probes the
// server so the prompt shows whether it is reachable.
package cli
