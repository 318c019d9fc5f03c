// Package common contains shared constants and sentinel errors used across
// authkeeper components.
package common

// AccessTokenHeaderName is the gRPC metadata key (and, capitalized, the HTTP
// header) used to carry the access token on inbound requests.
const AccessTokenHeaderName = "authorization"

// BearerScheme is the only authorization scheme accepted by the server.
const BearerScheme = "Bearer"
