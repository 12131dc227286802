package security

import (
	"errors"
	"strings"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	t.Parallel()

	te := NewTokenEncryptor("test-secret")

	tests := []struct {
		name      string
		plaintext string
	}{
		{name: "refresh token", plaintext: "1//0abcDEFghiJKL-refresh"},
		{name: "access token", plaintext: "ya29.a0AfB_access"},
		{name: "unicode", plaintext: "tökén-ünïcode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sealed, err := te.Encrypt(tt.plaintext)
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if !strings.HasPrefix(sealed, "enc:") {
				t.Errorf("Encrypt() = %q, want enc: prefix", sealed)
			}
			if sealed == tt.plaintext {
				t.Error("Encrypt() returned plaintext unchanged")
			}

			opened, err := te.Decrypt(sealed)
			if err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if opened != tt.plaintext {
				t.Errorf("Decrypt() = %q, want %q", opened, tt.plaintext)
			}
		})
	}
}

func TestEncryptProducesUniqueCiphertexts(t *testing.T) {
	t.Parallel()

	te := NewTokenEncryptor("test-secret")

	first, err := te.Encrypt("same-value")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	second, err := te.Encrypt("same-value")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if first == second {
		t.Error("Encrypt() produced identical ciphertexts for the same plaintext")
	}
}

func TestDecryptLegacyPlaintextPassthrough(t *testing.T) {
	t.Parallel()

	te := NewTokenEncryptor("test-secret")

	got, err := te.Decrypt("legacy-plaintext-token")
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if got != "legacy-plaintext-token" {
		t.Errorf("Decrypt() = %q, want passthrough", got)
	}
}

func TestDisabledEncryptorPassesThrough(t *testing.T) {
	t.Parallel()

	te := NewTokenEncryptor("")

	if te.Enabled() {
		t.Error("Enabled() = true for empty secret")
	}

	sealed, err := te.Encrypt("raw-token")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if sealed != "raw-token" {
		t.Errorf("Encrypt() = %q, want passthrough", sealed)
	}

	if _, err := te.Decrypt("enc:AAAA"); !errors.Is(err, ErrEncryptionDisabled) {
		t.Errorf("Decrypt() error = %v, want ErrEncryptionDisabled", err)
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	t.Parallel()

	te := NewTokenEncryptor("test-secret")

	sealed, err := te.Encrypt("sensitive")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	tampered := sealed[:len(sealed)-2] + "xx"
	if _, err := te.Decrypt(tampered); err == nil {
		t.Error("Decrypt() accepted tampered ciphertext")
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	t.Parallel()

	sealed, err := NewTokenEncryptor("key-one").Encrypt("sensitive")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	if _, err := NewTokenEncryptor("key-two").Decrypt(sealed); err == nil {
		t.Error("Decrypt() succeeded with the wrong key")
	}
}

func TestDecryptRejectsMalformedValues(t *testing.T) {
	t.Parallel()

	te := NewTokenEncryptor("test-secret")

	tests := []struct {
		name  string
		value string
	}{
		{name: "invalid base64", value: "enc:!!!not-base64!!!"},
		{name: "too short", value: "enc:AAAA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := te.Decrypt(tt.value); err == nil {
				t.Error("Decrypt() accepted malformed value")
			}
		})
	}
}
