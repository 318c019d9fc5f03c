// Package client talks to the authkeeper server over gRPC and opens the
// local SQLite database the CLI keeps its session in.
//
// GRPCClient attaches the current access token to every call through a
// unary interceptor and maps gRPC status codes onto the errors below, so
// callers never inspect status codes themselves.
package client
