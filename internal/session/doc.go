// Package session stores the signed-in credential and exposes the decoded
// session to the rest of the client.
//
// The access and refresh tokens live in a TOML file (mode 0600). Claims are
// read from the access token without verifying its signature; the backend is
// the authority and rejects forged tokens itself. Store decodes a token once
// when it changes, and every consumer reads the resulting Session by value.
//
// Guard is the gate used before protected screens and commands: an expired
// token is refreshed once, and a failed refresh clears the access token and
// returns ErrDenied.
package session
