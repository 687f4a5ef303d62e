package auth

import "testing"

func TestHashPasswordVerifies(t *testing.T) {
	hash, err := HashPassword("pw1")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if hash == "pw1" {
		t.Fatal("hash must not equal the plaintext password")
	}
	if !VerifyPassword(hash, "pw1") {
		t.Fatal("correct password did not verify")
	}
	if VerifyPassword(hash, "wrong") {
		t.Fatal("wrong password verified")
	}
}

func TestHashPasswordSalted(t *testing.T) {
	first, err := HashPassword("same-input")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	second, err := HashPassword("same-input")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if first == second {
		t.Fatal("two hashes of the same password must differ (salt)")
	}
	if !VerifyPassword(first, "same-input") || !VerifyPassword(second, "same-input") {
		t.Fatal("both hashes must verify the original password")
	}
}
