package crypto

import "testing"

func TestSealOpenRoundTrip(t *testing.T) {
	sealed, err := SealString("key", "session-secret")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if sealed == "session-secret" {
		t.Fatalf("expected ciphertext to differ from plaintext")
	}
	plain, err := OpenString("key", sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if plain != "session-secret" {
		t.Fatalf("unexpected plaintext %q", plain)
	}
}

func TestOpenWithWrongKeyFails(t *testing.T) {
	sealed, err := SealString("key", "session-secret")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := OpenString("other", sealed); err == nil {
		t.Fatalf("expected authentication failure")
	}
}

func TestDecryptShortPayload(t *testing.T) {
	if _, err := DecryptToString("key", []byte{1, 2}); err == nil {
		t.Fatalf("expected error for truncated payload")
	}
}
