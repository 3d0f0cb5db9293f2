package validator

import "testing"

func TestValidator(t *testing.T) {
	v := New()
	if !v.Ok() {
		t.Fatal("fresh validator must be ok")
	}

	v.Check(false, "name", "must be provided")
	v.Check(true, "other", "must not appear")
	if v.Ok() {
		t.Fatal("failed check must mark the validator not ok")
	}
	if _, ok := v["other"]; ok {
		t.Fatal("passing check must not add an error")
	}

	// The first error per key wins.
	v.AddError("name", "second message")
	if v["name"] != "must be provided" {
		t.Fatalf("first error must win, got %q", v["name"])
	}
}

func TestIsPathSegment(t *testing.T) {
	for _, value := range []string{"summer", "beach.jpg", "two words"} {
		if !IsPathSegment(value) {
			t.Errorf("%q must be accepted", value)
		}
	}
	for _, value := range []string{"", ".", "..", ".hidden", "a/b", `a\b`} {
		if IsPathSegment(value) {
			t.Errorf("%q must be rejected", value)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	v := New()
	ValidateEmail(v, "alice@example.com")
	if !v.Ok() {
		t.Fatalf("valid email rejected: %v", v)
	}

	v = New()
	ValidateEmail(v, "not-an-email")
	if v.Ok() {
		t.Fatal("invalid email accepted")
	}
}
