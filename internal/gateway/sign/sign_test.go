package sign

import (
	"crypto/sha512"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChainHash(t *testing.T) {
	fields := []string{"key", "TXN1", "100.00", "course", "Asha"}
	want := sha512.Sum512([]byte(strings.Join(fields, "|")))
	require.Equal(t, hex.EncodeToString(want[:]), ChainHash(fields, "|"))

	t.Run("empty fields are kept as empty slots", func(t *testing.T) {
		require.NotEqual(t, ChainHash([]string{"a", "", "b"}, "|"), ChainHash([]string{"a", "b"}, "|"))
	})
}

func TestVerifyMAC(t *testing.T) {
	mac := HMACSHA256("order|100.00|PAID", "secret")

	require.True(t, VerifyMAC(mac, mac))
	require.True(t, VerifyMAC(strings.ToUpper(mac), mac), "case must not matter")
	require.False(t, VerifyMAC(mac, HMACSHA256("order|100.00|FAILED", "secret")))
	require.False(t, VerifyMAC("", mac))
	require.False(t, VerifyMAC("not-hex-at-all", mac))
	require.False(t, VerifyMAC(mac[:10], mac))
}

func TestSealOpen(t *testing.T) {
	key := strings.Repeat("ab", 32) // 64 hex chars, 32 bytes

	t.Run("round trip", func(t *testing.T) {
		sealed, err := Seal([]byte(`{"order_id":"TXN1"}`), key)
		require.NoError(t, err)
		plain, err := Open(sealed, key)
		require.NoError(t, err)
		require.JSONEq(t, `{"order_id":"TXN1"}`, string(plain))
	})

	t.Run("wrong key never yields the plaintext", func(t *testing.T) {
		sealed, err := Seal([]byte("payload"), key)
		require.NoError(t, err)
		plain, err := Open(sealed, strings.Repeat("cd", 32))
		if err == nil {
			require.NotEqual(t, "payload", string(plain))
		}
	})

	t.Run("garbage ciphertext fails closed", func(t *testing.T) {
		_, err := Open("not base64 !!", key)
		require.Error(t, err)
		_, err = Open("aGVsbG8=", key) // valid base64, not block aligned
		require.Error(t, err)
	})

	t.Run("short key rejected", func(t *testing.T) {
		_, err := Seal([]byte("x"), "abcd")
		require.Error(t, err)
	})
}
