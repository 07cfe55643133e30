package backup

import (
	"bytes"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := []byte("the quick brown fox jumps over the lazy dog")

	encrypted, err := Encrypt(plaintext, "correct horse battery staple")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Contains(encrypted, plaintext) {
		t.Error("ciphertext contains plaintext")
	}

	decrypted, err := Decrypt(encrypted, "correct horse battery staple")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Error("round trip did not preserve plaintext")
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	encrypted, err := Encrypt([]byte("secret"), "right")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := Decrypt(encrypted, "wrong"); err == nil {
		t.Error("expected decryption failure with wrong passphrase")
	}
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	encrypted, err := Encrypt([]byte("secret"), "pass")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	encrypted[len(encrypted)-1] ^= 0xFF
	if _, err := Decrypt(encrypted, "pass"); err == nil {
		t.Error("expected decryption failure on tampered data")
	}
}

func TestDecryptTruncated(t *testing.T) {
	if _, err := Decrypt([]byte("tooshort"), "pass"); err == nil {
		t.Error("expected error for truncated input")
	}
}

func TestEncryptUniqueOutput(t *testing.T) {
	a, _ := Encrypt([]byte("same input"), "pass")
	b, _ := Encrypt([]byte("same input"), "pass")
	if bytes.Equal(a, b) {
		t.Error("two encryptions should differ (random salt and nonce)")
	}
}
