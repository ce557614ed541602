// Package crypto provides signature verification and key handling for the
// SofizPay SDK: URL-safe signature decoding, RSA payment-notification
// verification against a PEM public key, and Stellar public-key derivation.
package crypto

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strings"

	"github.com/stellar/go/keypair"
)

// DecodeURLSafeSignature decodes a URL-safe base64 signature into raw bytes.
// It translates '-' to '+' and '_' to '/' and pads the input to a multiple
// of four with '=' before decoding.
func DecodeURLSafeSignature(signature string) ([]byte, error) {
	b64 := strings.NewReplacer("-", "+", "_", "/").Replace(signature)
	for len(b64)%4 != 0 {
		b64 += "="
	}

	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 signature: %w", err)
	}
	return raw, nil
}

// VerifySignature checks a URL-safe base64 signature over message against the
// given PEM-encoded RSA public key. The message is hashed with SHA-256 and
// the signature verified as PKCS#1 v1.5.
//
// The result is boolean-only: any decoding, parsing, or verification fault
// yields false, never an error.
func VerifySignature(publicKeyPEM, message, urlSafeSignature string) bool {
	if message == "" || urlSafeSignature == "" {
		return false
	}

	signature, err := DecodeURLSafeSignature(urlSafeSignature)
	if err != nil {
		return false
	}

	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return false
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return false
	}

	rsaKey, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return false
	}

	digest := HashSHA256([]byte(message))
	return rsa.VerifyPKCS1v15(rsaKey, crypto.SHA256, digest, signature) == nil
}

// HashSHA256 computes the SHA256 hash of the provided data and returns it as a byte slice.
func HashSHA256(data []byte) []byte {
	hash := sha256.Sum256(data)
	return hash[:]
}

// DerivePublicKey derives the Stellar address (G...) from a secret key (S...).
// Derivation is deterministic: the same secret always yields the same address.
func DerivePublicKey(secret string) (string, error) {
	kp, err := keypair.ParseFull(secret)
	if err != nil {
		return "", fmt.Errorf("invalid secret key: %w", err)
	}
	return kp.Address(), nil
}
