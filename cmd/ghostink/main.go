// Command ghostink seals text locally, uploads only the ciphertext, and opens
// it again from a reference of the form <id>#<hex key>.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		printErr(os.Stderr, err)
		os.Exit(1)
	}
}
