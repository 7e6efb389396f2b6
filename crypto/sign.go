package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// HashHex returns the hex-encoded SHA-256 digest of v's canonical form.
func HashHex(v interface{}) (string, error) {
	canon, err := Canonical(v)
	if err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	sum := sha256.Sum256([]byte(canon))
	return hex.EncodeToString(sum[:]), nil
}

// SignEvent returns the hex-encoded HMAC-SHA256 of payload's canonical
// form under secret. payload must not include the signature field being
// computed; callers strip it before calling SignEvent.
func SignEvent(secret []byte, payload interface{}) (string, error) {
	canon, err := Canonical(payload)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(canon))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// VerifyEventSig recomputes the HMAC over payload's canonical form and
// compares it against sig using a constant-time comparison.
func VerifyEventSig(secret []byte, payload interface{}, sig string) (bool, error) {
	expected, err := SignEvent(secret, payload)
	if err != nil {
		return false, err
	}
	expectedBytes, err := hex.DecodeString(expected)
	if err != nil {
		return false, fmt.Errorf("verify: %w", err)
	}
	actualBytes, err := hex.DecodeString(sig)
	if err != nil {
		// A malformed signature is never valid, not an error condition.
		return false, nil
	}
	return subtle.ConstantTimeCompare(expectedBytes, actualBytes) == 1, nil
}
