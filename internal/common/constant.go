// Package common contains shared constants and sentinel errors used across
// CivicReport components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// SessionStorageKey is the storage key under which the client keeps the
// serialized session.
const SessionStorageKey = "authUser"
