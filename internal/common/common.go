// Package common holds small helpers shared by TaskKeeper packages.
package common

// WipeByteArray zeroes b in place. Used for passwords read from the terminal.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// AuthorizationHeader is the header that carries the bearer credential.
const AuthorizationHeader = "Authorization"

// RequestIDHeader correlates a client request with backend logs.
const RequestIDHeader = "X-Request-ID"
