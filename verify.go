package discord

import (
	"crypto/ed25519"
	"encoding/hex"
	"strings"
)

// Signature headers Discord attaches to every interaction webhook call.
const (
	headerSignature = "x-signature-ed25519"
	headerTimestamp = "x-signature-timestamp"
)

// headerValue performs a case-insensitive lookup over envelope header pairs.
func headerValue(headers [][2]string, name string) (string, bool) {
	for _, h := range headers {
		if strings.EqualFold(h[0], name) {
			return h[1], true
		}
	}
	return "", false
}

// VerifySignature verifies a webhook request's detached ed25519 signature
// over timestamp||body, per Discord's interaction security model.
//
// Any missing header, decode failure, or wrong-length key or signature is a
// verification failure; the function never errors. It has no side effects so
// that unverified requests touch no state.
func VerifySignature(publicKeyHex string, headers [][2]string, body []byte) bool {
	signatureHex, ok := headerValue(headers, headerSignature)
	if !ok {
		return false
	}
	timestamp, ok := headerValue(headers, headerTimestamp)
	if !ok {
		return false
	}

	publicKey, err := hex.DecodeString(publicKeyHex)
	if err != nil || len(publicKey) != ed25519.PublicKeySize {
		return false
	}
	signature, err := hex.DecodeString(signatureHex)
	if err != nil || len(signature) != ed25519.SignatureSize {
		return false
	}

	signed := append([]byte(timestamp), body...)
	return ed25519.Verify(ed25519.PublicKey(publicKey), signed, signature)
}
