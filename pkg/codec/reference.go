package codec

import (
	"encoding/hex"
	"fmt"
	"strings"

	"ghostink/pkg/wipe"
)

// AccessToken is everything needed to fetch and open a paste.
type AccessToken struct {
	ID  string
	Key Key
}

// FormatReference renders "<id>#<hex key>". The key is lowercase hex.
func FormatReference(id string, key Key) string {
	return id + "#" + hex.EncodeToString(key[:])
}

func ParseReference(s string) (AccessToken, error) {
	parts := strings.Split(s, "#")
	if len(parts) != 2 {
		return AccessToken{}, fmt.Errorf("%w: reference must look like <id>#<key>", ErrFormat)
	}
	if parts[0] == "" {
		return AccessToken{}, fmt.Errorf("%w: empty paste id", ErrFormat)
	}
	raw, err := hex.DecodeString(parts[1])
	if err != nil {
		return AccessToken{}, fmt.Errorf("%w: key is not hex", ErrFormat)
	}
	if len(raw) != KeySize {
		return AccessToken{}, fmt.Errorf("%w: key must be %d bytes, got %d", ErrFormat, KeySize, len(raw))
	}
	var tok AccessToken
	tok.ID = parts[0]
	copy(tok.Key[:], raw)
	wipe.Bytes(raw)
	return tok, nil
}
