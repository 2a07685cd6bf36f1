package session

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// verifierCharset is the unreserved URL character set permitted for PKCE
// code verifiers (RFC 7636 §4.1).
const verifierCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

// verifierLength is within the 43–128 character range the PKCE
// specification mandates.
const verifierLength = 64

// PKCE is a proof-key pair for the authorization code flow.
type PKCE struct {
	Verifier  string
	Challenge string
}

// GeneratePKCE creates a cryptographically random code verifier and its
// S256 challenge. Stateless and safe to call concurrently.
func GeneratePKCE() (PKCE, error) {
	// Bytes at or above the largest multiple of the charset size are
	// rejected; reducing them modulo the size would skew the distribution
	// toward the low end of the charset.
	const limit = 256 - 256%len(verifierCharset)

	verifier := make([]byte, 0, verifierLength)
	buf := make([]byte, verifierLength)
	for len(verifier) < verifierLength {
		if _, err := rand.Read(buf); err != nil {
			return PKCE{}, fmt.Errorf("failed to generate code verifier: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			verifier = append(verifier, verifierCharset[int(b)%len(verifierCharset)])
			if len(verifier) == verifierLength {
				break
			}
		}
	}

	v := string(verifier)
	return PKCE{Verifier: v, Challenge: ComputeChallenge(v)}, nil
}

// ComputeChallenge derives the S256 code challenge for a verifier:
// base64url(sha256(verifier)) without padding.
func ComputeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Verify reports whether the given verifier matches the challenge, as a
// token endpoint would check during the code exchange.
func (p PKCE) Verify(verifier string) bool {
	computed := ComputeChallenge(verifier)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(p.Challenge)) == 1
}
