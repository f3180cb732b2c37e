// Package crypto derives the application's signing and encryption keys from
// the single configured secret.
package crypto

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Purposes for DeriveKey. Each yields an independent key.
const (
	PurposeCookieAuth    = "payflow/cookie-auth"
	PurposeCookieEncrypt = "payflow/cookie-encryption"
	PurposeCSRF          = "payflow/csrf"
	PurposeToken         = "payflow/bearer-token"
)

const KeySize = 32

// DeriveKey expands secret into a KeySize key bound to purpose (HKDF-SHA256).
func DeriveKey(secret, purpose string) []byte {
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(purpose))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		// hkdf only fails after 255*32 bytes of output.
		panic(err)
	}
	return key
}

// Keys bundles every key the server needs.
type Keys struct {
	CookieAuth    []byte
	CookieEncrypt []byte
	CSRF          []byte
	Token         []byte
}

func NewKeys(secret string) Keys {
	return Keys{
		CookieAuth:    DeriveKey(secret, PurposeCookieAuth),
		CookieEncrypt: DeriveKey(secret, PurposeCookieEncrypt),
		CSRF:          DeriveKey(secret, PurposeCSRF),
		Token:         DeriveKey(secret, PurposeToken),
	}
}
