// Package client contains the transport side of the CivicReport terminal
// client.
//
// # Overview
//
// The package provides:
//  1. The Client interface: the calls the rest of the client makes to the
//     backend (authentication, issues, staff, analytics, photos).
//  2. GRPCClient, a gRPC implementation that speaks the JSON codec from
//     package api. A unary interceptor attaches the access token and, when
//     the server reports "token expired", rotates the refresh token once and
//     retries the call.
//  3. ChatbotClient, a small HTTP client for the assistant endpoint.
//  4. OpenDatabase, which opens the local SQLite file and applies the
//     embedded goose migrations.
//
// # Errors
//
// gRPC status codes are mapped to the sentinel errors in errors.go so that
// callers can use errors.Is without importing grpc.
package client
