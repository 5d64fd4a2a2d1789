package discord

import (
	"crypto/ed25519"
	"encoding/hex"
	"testing"
)

func TestVerifySignature(t *testing.T) {
	publicKeyHex, private := newWebhookKeyPair(t)
	body := []byte(`{"type":1}`)
	timestamp := "1700000000"
	signature := hex.EncodeToString(ed25519.Sign(private, append([]byte(timestamp), body...)))

	headers := func(sig, ts string) [][2]string {
		return [][2]string{
			{"X-Signature-Ed25519", sig},
			{"X-Signature-Timestamp", ts},
		}
	}

	t.Run("valid signature", func(t *testing.T) {
		if !VerifySignature(publicKeyHex, headers(signature, timestamp), body) {
			t.Error("Expected verification to succeed")
		}
	})

	t.Run("header lookup is case-insensitive", func(t *testing.T) {
		lower := [][2]string{
			{"x-signature-ed25519", signature},
			{"x-signature-timestamp", timestamp},
		}
		if !VerifySignature(publicKeyHex, lower, body) {
			t.Error("Expected verification to succeed with lowercase headers")
		}
	})

	t.Run("tampered body", func(t *testing.T) {
		if VerifySignature(publicKeyHex, headers(signature, timestamp), []byte(`{"type":2}`)) {
			t.Error("Expected verification to fail")
		}
	})

	t.Run("tampered timestamp", func(t *testing.T) {
		if VerifySignature(publicKeyHex, headers(signature, "1700000001"), body) {
			t.Error("Expected verification to fail")
		}
	})

	t.Run("missing signature header", func(t *testing.T) {
		only := [][2]string{{"X-Signature-Timestamp", timestamp}}
		if VerifySignature(publicKeyHex, only, body) {
			t.Error("Expected verification to fail")
		}
	})

	t.Run("missing timestamp header", func(t *testing.T) {
		only := [][2]string{{"X-Signature-Ed25519", signature}}
		if VerifySignature(publicKeyHex, only, body) {
			t.Error("Expected verification to fail")
		}
	})

	t.Run("malformed public key", func(t *testing.T) {
		if VerifySignature("not hex", headers(signature, timestamp), body) {
			t.Error("Expected verification to fail")
		}
	})

	t.Run("wrong length public key", func(t *testing.T) {
		if VerifySignature("deadbeef", headers(signature, timestamp), body) {
			t.Error("Expected verification to fail")
		}
	})

	t.Run("malformed signature", func(t *testing.T) {
		if VerifySignature(publicKeyHex, headers("zz", timestamp), body) {
			t.Error("Expected verification to fail")
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		otherKeyHex, _ := newWebhookKeyPair(t)
		if VerifySignature(otherKeyHex, headers(signature, timestamp), body) {
			t.Error("Expected verification to fail")
		}
	})
}
