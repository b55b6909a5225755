// Package wipe zeroes key material once it is no longer needed. It is shared
// by the client-side codec and the server config.
package wipe

import "runtime"

// Bytes overwrites b with zeros.
func Bytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
