package codec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"hello world",
		"ünïcødé ✓ 日本語",
		strings.Repeat("x", 1<<20),
	}
	for _, in := range inputs {
		t.Run(fmt.Sprintf("len=%d", len(in)), func(t *testing.T) {
			blob, key, err := Seal([]byte(in))
			require.NoError(t, err)

			raw, err := base64.StdEncoding.DecodeString(blob)
			require.NoError(t, err)
			assert.Len(t, raw, NonceSize+len(in)+TagSize)

			out, err := Open(blob, key)
			require.NoError(t, err)
			assert.Equal(t, in, string(out))
		})
	}
}

func TestSealUsesFreshNonce(t *testing.T) {
	key, err := NewKey()
	require.NoError(t, err)

	a, err := SealWithKey([]byte("same"), key)
	require.NoError(t, err)
	b, err := SealWithKey([]byte("same"), key)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSealFreshKeys(t *testing.T) {
	_, k1, err := Seal([]byte("a"))
	require.NoError(t, err)
	_, k2, err := Seal([]byte("a"))
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
}

func TestOpenDetectsTampering(t *testing.T) {
	blob, key, err := Seal([]byte("attack at dawn"))
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)

	for i := range raw {
		for bit := 0; bit < 8; bit++ {
			mutated := append([]byte(nil), raw...)
			mutated[i] ^= 1 << bit
			_, err := Open(base64.StdEncoding.EncodeToString(mutated), key)
			require.ErrorIs(t, err, ErrAuthentication, "byte %d bit %d", i, bit)
		}
	}
}

func TestOpenWrongKey(t *testing.T) {
	blob, _, err := Seal([]byte("secret"))
	require.NoError(t, err)
	other, err := NewKey()
	require.NoError(t, err)

	out, err := Open(blob, other)
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.Nil(t, out)
}

func TestOpenErrors(t *testing.T) {
	var key Key
	tests := []struct {
		name string
		blob string
		want error
	}{
		{"not base64", "%%%not-base64%%%", ErrDecode},
		{"empty", "", ErrFormat},
		{"short", base64.StdEncoding.EncodeToString(make([]byte, NonceSize-1)), ErrFormat},
		{"nonce only", base64.StdEncoding.EncodeToString(make([]byte, NonceSize)), ErrAuthentication},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.blob, key)
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func TestOpenRejectsInvalidUTF8(t *testing.T) {
	key, err := NewKey()
	require.NoError(t, err)
	blob, err := SealWithKey([]byte{0xff, 0xfe, 0xfd}, key)
	require.NoError(t, err)

	_, err = Open(blob, key)
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestKeyStringRedacted(t *testing.T) {
	key, err := NewKey()
	require.NoError(t, err)
	assert.Equal(t, "[REDACTED]", key.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", key))

	key.Wipe()
	assert.Equal(t, Key{}, key)
}
