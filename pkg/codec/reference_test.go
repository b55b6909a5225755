package codec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceRoundTrip(t *testing.T) {
	key, err := NewKey()
	require.NoError(t, err)
	id := "3f1c2a9e-6b7d-4e2f-9a1b-0c8d7e6f5a4b"

	ref := FormatReference(id, key)
	assert.Equal(t, id, ref[:len(id)])
	assert.Len(t, ref, len(id)+1+2*KeySize)
	assert.Equal(t, strings.ToLower(ref), ref)

	tok, err := ParseReference(ref)
	require.NoError(t, err)
	assert.Equal(t, id, tok.ID)
	assert.Equal(t, key, tok.Key)
}

func TestParseReferenceAcceptsUppercaseHex(t *testing.T) {
	ref := "abc#" + strings.Repeat("AB", KeySize)
	tok, err := ParseReference(ref)
	require.NoError(t, err)
	assert.Equal(t, byte(0xab), tok.Key[0])
}

func TestParseReferenceErrors(t *testing.T) {
	tests := []struct {
		name string
		ref  string
	}{
		{"no separator", "abc"},
		{"two separators", "a#b#" + strings.Repeat("00", KeySize)},
		{"empty id", "#" + strings.Repeat("00", KeySize)},
		{"bad hex", "abc#" + strings.Repeat("zz", KeySize)},
		{"odd hex", "abc#" + strings.Repeat("0", 2*KeySize-1)},
		{"short key", "abc#" + strings.Repeat("00", KeySize-1)},
		{"long key", "abc#" + strings.Repeat("00", KeySize+1)},
		{"empty key", "abc#"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseReference(tt.ref)
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestReferenceOpensSealedBlob(t *testing.T) {
	blob, key, err := Seal([]byte("hello world"))
	require.NoError(t, err)

	tok, err := ParseReference(FormatReference("id-1", key))
	require.NoError(t, err)
	out, err := Open(blob, tok.Key)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(out))
}
