package gosnmp

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rfc3414EngineID is the Appendix A.3 sample authoritative engine ID.
var rfc3414EngineID = []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x02}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// RFC 3414 Appendix A.3's "maplesyrup" vectors cover both steps of key
// derivation: passphrase-to-key stretching (A.3.1), then engine-ID
// localization (A.3.1's Kul).
func TestPassphraseToKeyMD5(t *testing.T) {
	key, err := passphraseToKey(HMAC96MD5, "maplesyrup")
	require.NoError(t, err)
	assert.Equal(t, mustHex(t, "9faf3283884e92834ebc9847d8edd963"), key)
}

// RFC 3414 Appendix A.3.2's "maplesyrup" SHA-1 vector.
func TestPassphraseToKeySHA(t *testing.T) {
	key, err := passphraseToKey(HMAC96SHA, "maplesyrup")
	require.NoError(t, err)
	assert.Equal(t, mustHex(t, "9fb5cc0381497b3793528939ff788d5d79145211"), key)
}

// TestLocalizeKeyRFC3414Vectors checks both Appendix A.3 localized-key
// (Kul) vectors against engine ID 000000000000000000000002, including the
// literal 0x526f5eed9fcce26f8964c2930787d82b MD5 localization result.
func TestLocalizeKeyRFC3414Vectors(t *testing.T) {
	md5Key, err := DeriveKey(HMAC96MD5, "maplesyrup", rfc3414EngineID)
	require.NoError(t, err)
	assert.Equal(t, mustHex(t, "526f5eed9fcce26f8964c2930787d82b"), md5Key)

	shaKey, err := DeriveKey(HMAC96SHA, "maplesyrup", rfc3414EngineID)
	require.NoError(t, err)
	assert.Equal(t, mustHex(t, "6695febc9288e36282235fc7151f128497b38f3f"), shaKey)
	require.Len(t, shaKey, 20)
}

func TestDeriveKeyIsDeterministic(t *testing.T) {
	k1, err := DeriveKey(HMAC96MD5, "maplesyrup", rfc3414EngineID)
	require.NoError(t, err)
	k2, err := DeriveKey(HMAC96MD5, "maplesyrup", rfc3414EngineID)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 16)

	other, err := DeriveKey(HMAC96MD5, "maplesyrup", []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x03})
	require.NoError(t, err)
	assert.NotEqual(t, k1, other, "localization must depend on the engine ID")
}

func TestAuthenticateTruncation(t *testing.T) {
	key := []byte("0123456789abcdef")
	msg := []byte("the message body to authenticate")

	for proto, fam := range authFamilies {
		digest, err := authenticate(proto, key, msg)
		require.NoError(t, err)
		assert.Len(t, digest, fam.truncation)
	}
}

func TestIsAuthenticDetectsTamper(t *testing.T) {
	key := []byte("0123456789abcdef")
	msg := []byte("original message")
	digest, err := authenticate(HMAC96SHA, key, msg)
	require.NoError(t, err)

	ok, err := isAuthentic(HMAC96SHA, key, msg, digest)
	require.NoError(t, err)
	assert.True(t, ok)

	tampered := append([]byte(nil), msg...)
	tampered[0] ^= 0xFF
	ok, err = isAuthentic(HMAC96SHA, key, tampered, digest)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDESPrivacyRoundTrip(t *testing.T) {
	privKey := make([]byte, 16)
	for i := range privKey {
		privKey[i] = byte(i + 1)
	}
	plaintext := []byte("a scoped pdu payload of arbitrary length")
	ct, salt, err := encryptDES(privKey, 1, 7, plaintext)
	require.NoError(t, err)
	assert.Len(t, salt, 8)

	got, err := decryptDES(privKey, ct, salt)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

// TestAESIVConstructionLiteralBytes checks the CFB128-AES IV layout — engine
// boots(4) || engine time(4) || salt(8) — against the literal bytes for
// engine_boots=3, engine_time=1000 (0x3E8): IV prefix 00 00 00 03 00 00 03
// e8, followed by the salt. It builds the ciphertext independently with
// crypto/aes/cipher using that literal IV and checks encryptAES produces the
// identical bytes, rather than trusting encryptAES's own IV-assembly code.
func TestAESIVConstructionLiteralBytes(t *testing.T) {
	privKey := mustHex(t, "000102030405060708090a0b0c0d0e0f")
	plaintext := []byte("a scoped pdu payload of arbitrary length")
	var salt uint64 = 1

	iv := append(mustHex(t, "00000003000003e8"), mustHex(t, "0000000000000001")...)
	require.Len(t, iv, 16)

	block, err := aes.NewCipher(privKey)
	require.NoError(t, err)
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	want := make([]byte, len(padded))
	cipher.NewCFBEncrypter(block, iv).XORKeyStream(want, padded)

	got, saltBytes, err := encryptAES(privKey, 3, 1000, salt, plaintext)
	require.NoError(t, err)
	assert.Equal(t, mustHex(t, "0000000000000001"), saltBytes)
	assert.Equal(t, want, got, "ciphertext must match one produced with the literal engine_boots=3/engine_time=1000 IV")

	back, err := decryptAES(privKey, 3, 1000, saltBytes, got)
	require.NoError(t, err)
	assert.Equal(t, plaintext, back)
}

func TestAESPrivacyRoundTrip(t *testing.T) {
	privKey := make([]byte, 16)
	for i := range privKey {
		privKey[i] = byte(16 - i)
	}
	plaintext := []byte("another scoped pdu payload")
	ct, salt, err := encryptAES(privKey, 2, 123456, 99, plaintext)
	require.NoError(t, err)
	assert.Len(t, salt, 8)

	got, err := decryptAES(privKey, 2, 123456, salt, ct)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestSaltStateNeverRepeats(t *testing.T) {
	var s saltState
	seen := make(map[uint64]bool)
	for i := 0; i < 1000; i++ {
		salt := s.nextDESSalt()
		assert.False(t, seen[salt], "salt %d reused", salt)
		seen[salt] = true
	}
}

func TestPKCS7PadUnpad(t *testing.T) {
	for _, n := range []int{0, 1, 7, 8, 15, 16, 100} {
		data := make([]byte, n)
		padded := pkcs7Pad(data, 8)
		assert.Equal(t, 0, len(padded)%8)
		got, err := pkcs7Unpad(padded)
		require.NoError(t, err)
		assert.Equal(t, data, got)
	}
}
