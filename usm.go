package gosnmp

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"hash"
	"sync/atomic"
)

// AuthProtocol identifies a USM authentication algorithm. The two RFC 3414
// originals (MD5, SHA1) and the four RFC 7860 SHA-2 extensions are all
// expressed through the same hash-constructor/block-size/truncation shape.
type AuthProtocol int

// Recognized authentication protocols.
const (
	NoAuth AuthProtocol = iota
	HMAC96MD5
	HMAC96SHA
	HMAC128SHA224
	HMAC192SHA256
	HMAC256SHA384
	HMAC384SHA512
)

type authFamily struct {
	newHash    func() hash.Hash
	blockSize  int
	truncation int
}

var authFamilies = map[AuthProtocol]authFamily{
	HMAC96MD5:     {md5.New, 64, 12},
	HMAC96SHA:     {sha1.New, 64, 12},
	HMAC128SHA224: {sha256.New224, 64, 16},
	HMAC192SHA256: {sha256.New, 64, 24},
	HMAC256SHA384: {sha512.New384, 128, 32},
	HMAC384SHA512: {sha512.New, 128, 48},
}

// PrivProtocol identifies a USM privacy (encryption) algorithm.
type PrivProtocol int

// Recognized privacy protocols.
const (
	NoPriv PrivProtocol = iota
	CBC56DES
	CFB128AES
)

// passphraseToKey implements the RFC 3414 §A.2 key-derivation algorithm:
// the passphrase is repeated to fill exactly 1,048,576 bytes, hashed in
// chunks of the family's block size (64 bytes, or 128 for SHA-384/512 —
// RFC 7860 keeps this the same streaming shape for the SHA-2 families),
// and the raw digest is returned. Localization to an engine ID is done
// separately by localizeKey.
func passphraseToKey(proto AuthProtocol, passphrase string) ([]byte, error) {
	fam, ok := authFamilies[proto]
	if !ok {
		return nil, syntaxErrorf("unsupported auth protocol %d", proto)
	}
	if passphrase == "" {
		return nil, syntaxErrorf("empty passphrase")
	}
	h := fam.newHash()
	pwBytes := []byte(passphrase)
	const total = 1048576
	buf := make([]byte, fam.blockSize)
	written := 0
	pos := 0
	for written < total {
		for i := 0; i < fam.blockSize; i++ {
			buf[i] = pwBytes[pos%len(pwBytes)]
			pos++
		}
		h.Write(buf)
		written += fam.blockSize
	}
	return h.Sum(nil), nil
}

// localizeKey implements RFC 3414 §2.6's key localization:
// Hash(key || engineID || key).
func localizeKey(proto AuthProtocol, key []byte, engineID []byte) ([]byte, error) {
	fam, ok := authFamilies[proto]
	if !ok {
		return nil, syntaxErrorf("unsupported auth protocol %d", proto)
	}
	h := fam.newHash()
	h.Write(key)
	h.Write(engineID)
	h.Write(key)
	return h.Sum(nil), nil
}

// DeriveKey derives and localizes a USM authentication (or, when proto is
// an auth protocol reused for privacy key derivation per RFC 3414 §2.6,
// privacy) key from a passphrase and the authoritative engine ID.
func DeriveKey(proto AuthProtocol, passphrase string, engineID []byte) ([]byte, error) {
	key, err := passphraseToKey(proto, passphrase)
	if err != nil {
		return nil, err
	}
	return localizeKey(proto, key, engineID)
}

// authenticate computes the truncated HMAC digest over msg using key, for
// insertion into the msgAuthenticationParameters field.
func authenticate(proto AuthProtocol, key []byte, msg []byte) ([]byte, error) {
	fam, ok := authFamilies[proto]
	if !ok {
		return nil, syntaxErrorf("unsupported auth protocol %d", proto)
	}
	mac := hmac.New(fam.newHash, key)
	mac.Write(msg)
	sum := mac.Sum(nil)
	return sum[:fam.truncation], nil
}

// authParamPlaceholder returns a zero-filled buffer the size of the digest
// the given protocol produces, for the idempotent placeholder-then-real-
// digest double serialization: the message is first serialized with a
// zero placeholder of the correct length in authParameters, the HMAC is
// computed over that exact byte range, and the placeholder is then
// replaced with the truncated digest and the message serialized again
// (see MarshalV3).
func authParamPlaceholder(proto AuthProtocol) []byte {
	fam, ok := authFamilies[proto]
	if !ok {
		return nil
	}
	return make([]byte, fam.truncation)
}

// isAuthentic recomputes the digest over msg (with authParameters already
// replaced with a placeholder of equal length by the caller) and compares
// it against want in constant time.
func isAuthentic(proto AuthProtocol, key []byte, msg []byte, want []byte) (bool, error) {
	got, err := authenticate(proto, key, msg)
	if err != nil {
		return false, err
	}
	return hmac.Equal(got, want), nil
}

// salt counters for CBC56DES (64-bit) and CFB128AES (64-bit), matching the
// teacher's atomic per-connection salt allocation so concurrent requests on
// the same USM user never reuse a salt.
type saltState struct {
	des uint64
	aes uint64
}

func (s *saltState) nextDESSalt() uint64 {
	return atomic.AddUint64(&s.des, 1)
}

func (s *saltState) nextAESSalt() uint64 {
	return atomic.AddUint64(&s.aes, 1)
}

// encryptDES implements USM_PRIV_CBC56_DES: the privacy key's first 8 bytes
// are the DES key, the last 8 bytes are XORed with the salt to form the IV,
// plaintext is PKCS7-padded to a multiple of 8 bytes and encrypted with
// DES-CBC.
func encryptDES(privKey []byte, engineBoots int32, salt uint64, plaintext []byte) (ciphertext, saltBytes []byte, err error) {
	if len(privKey) < 16 {
		return nil, nil, &DecryptionError{Msg: "des privacy key too short"}
	}
	desKey := privKey[:8]
	preIV := privKey[8:16]
	saltBytes = make([]byte, 8)
	binary.BigEndian.PutUint32(saltBytes[0:4], uint32(engineBoots))
	binary.BigEndian.PutUint32(saltBytes[4:8], uint32(salt))
	iv := make([]byte, 8)
	for i := range iv {
		iv[i] = preIV[i] ^ saltBytes[i]
	}
	block, err := des.NewCipher(desKey)
	if err != nil {
		return nil, nil, err
	}
	padded := pkcs7Pad(plaintext, des.BlockSize)
	ciphertext = make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return ciphertext, saltBytes, nil
}

// decryptDES reverses encryptDES. ciphertext must be a non-zero multiple of
// the DES block size and saltBytes must be exactly 8 bytes.
func decryptDES(privKey []byte, ciphertext, saltBytes []byte) ([]byte, error) {
	if len(privKey) < 16 {
		return nil, &DecryptionError{Msg: "des privacy key too short"}
	}
	if len(saltBytes) != 8 {
		return nil, &DecryptionError{Msg: "des salt must be 8 bytes"}
	}
	if len(ciphertext) == 0 || len(ciphertext)%des.BlockSize != 0 {
		return nil, &DecryptionError{Msg: "des ciphertext is not a multiple of the block size"}
	}
	desKey := privKey[:8]
	preIV := privKey[8:16]
	iv := make([]byte, 8)
	for i := range iv {
		iv[i] = preIV[i] ^ saltBytes[i]
	}
	block, err := des.NewCipher(desKey)
	if err != nil {
		return nil, err
	}
	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)
	return pkcs7Unpad(plain)
}

// encryptAES implements USM_PRIV_CFB128_AES: the IV is
// engineBoots(4) || engineTime(4) || salt(8), the privacy key's first 16
// bytes are the AES key, and the plaintext is encrypted with AES-CFB128
// (padded to a 16-byte boundary, though CFB itself needs no padding, to
// match the teacher's fixed-size segment handling).
func encryptAES(privKey []byte, engineBoots, engineTime int32, salt uint64, plaintext []byte) (ciphertext, saltBytes []byte, err error) {
	if len(privKey) < 16 {
		return nil, nil, &DecryptionError{Msg: "aes privacy key too short"}
	}
	saltBytes = make([]byte, 8)
	binary.BigEndian.PutUint64(saltBytes, salt)
	iv := make([]byte, 16)
	binary.BigEndian.PutUint32(iv[0:4], uint32(engineBoots))
	binary.BigEndian.PutUint32(iv[4:8], uint32(engineTime))
	copy(iv[8:16], saltBytes)
	block, err := aes.NewCipher(privKey[:16])
	if err != nil {
		return nil, nil, err
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext = make([]byte, len(padded))
	cipher.NewCFBEncrypter(block, iv).XORKeyStream(ciphertext, padded)
	return ciphertext, saltBytes, nil
}

// decryptAES reverses encryptAES.
func decryptAES(privKey []byte, engineBoots, engineTime int32, saltBytes, ciphertext []byte) ([]byte, error) {
	if len(privKey) < 16 {
		return nil, &DecryptionError{Msg: "aes privacy key too short"}
	}
	if len(saltBytes) != 8 {
		return nil, &DecryptionError{Msg: "aes salt must be 8 bytes"}
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, &DecryptionError{Msg: "aes ciphertext is not a multiple of the block size"}
	}
	iv := make([]byte, 16)
	binary.BigEndian.PutUint32(iv[0:4], uint32(engineBoots))
	binary.BigEndian.PutUint32(iv[4:8], uint32(engineTime))
	copy(iv[8:16], saltBytes)
	block, err := aes.NewCipher(privKey[:16])
	if err != nil {
		return nil, err
	}
	plain := make([]byte, len(ciphertext))
	cipher.NewCFBDecrypter(block, iv).XORKeyStream(plain, ciphertext)
	return pkcs7Unpad(plain)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	if padLen == 0 {
		padLen = blockSize
	}
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, &DecryptionError{Msg: "cannot unpad empty plaintext"}
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, &DecryptionError{Msg: "invalid pkcs7 padding"}
	}
	return data[:len(data)-padLen], nil
}
