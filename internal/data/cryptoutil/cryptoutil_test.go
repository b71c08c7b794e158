package cryptoutil

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestAESGCMSealer_SealOpen(t *testing.T) {
	s, err := NewAESGCMSealer(testKey())
	require.NoError(t, err)

	sealed, err := s.Seal([]byte("backend-token"), "token")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, "v1:"))
	assert.NotContains(t, sealed, "backend-token")

	again, err := s.Seal([]byte("backend-token"), "token")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must be random")

	pt, err := s.Open(sealed, "token")
	require.NoError(t, err)
	assert.Equal(t, "backend-token", string(pt))
}

func TestAESGCMSealer_LabelBinding(t *testing.T) {
	s, err := NewAESGCMSealer(testKey())
	require.NoError(t, err)

	sealed, err := s.Seal([]byte("secret"), "token")
	require.NoError(t, err)

	_, err = s.Open(sealed, "user")
	assert.Error(t, err)
}

func TestAESGCMSealer_Rejects(t *testing.T) {
	_, err := NewAESGCMSealer([]byte("short"))
	require.Error(t, err)

	s, err := NewAESGCMSealer(testKey())
	require.NoError(t, err)

	_, err = s.Open("v2:abc", "token")
	assert.Error(t, err)

	_, err = s.Open("v1:"+base64.StdEncoding.EncodeToString([]byte("x")), "token")
	assert.Error(t, err)

	plain, err := PlainSealer{}.Seal([]byte("x"), "token")
	require.NoError(t, err)
	_, err = s.Open(plain, "token")
	assert.ErrorIs(t, err, ErrUnsealed)
}

func TestPlainSealer(t *testing.T) {
	sealed, err := PlainSealer{}.Seal([]byte("hello"), "token")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, "plain:"))

	pt, err := PlainSealer{}.Open(sealed, "token")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(pt))

	_, err = PlainSealer{}.Open("v1:abc", "token")
	assert.Error(t, err)
	_, err = PlainSealer{}.Open("garbage", "token")
	assert.Error(t, err)
}

func TestParseKey(t *testing.T) {
	key := testKey()

	got, err := ParseKey(hex.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, got)

	got, err = ParseKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, got)

	raw := strings.Repeat("k", 32)
	got, err = ParseKey(raw)
	require.NoError(t, err)
	assert.Equal(t, []byte(raw), got)

	a, err := ParseKey("correct horse battery staple")
	require.NoError(t, err)
	b, err := ParseKey("correct horse battery staple")
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.Equal(t, a, b, "derivation must be deterministic")

	_, err = ParseKey("  ")
	assert.Error(t, err)
}

func TestNewSealer(t *testing.T) {
	s, err := NewSealer("")
	require.NoError(t, err)
	assert.IsType(t, PlainSealer{}, s)

	s, err = NewSealer("passphrase")
	require.NoError(t, err)
	assert.IsType(t, &AESGCMSealer{}, s)
}
