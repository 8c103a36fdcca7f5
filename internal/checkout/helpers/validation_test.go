package helpers

import "testing"

func TestIsValidPhone(t *testing.T) {
	t.Parallel()

	valid := []string{"01712345678", "+8801712345678", "0131 234-5678", "01999999999"}
	for _, phone := range valid {
		if !IsValidPhone(phone) {
			t.Fatalf("expected %q to be valid", phone)
		}
	}

	invalid := []string{"12345", "", "01212345678", "0171234567", "017123456789", "+8701712345678", "01712abc678"}
	for _, phone := range invalid {
		if IsValidPhone(phone) {
			t.Fatalf("expected %q to be rejected", phone)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	if got := NormalizePhone(" +88 017-1234 5678 "); got != "+8801712345678" {
		t.Fatalf("unexpected normalized phone %q", got)
	}
}

func TestIsValidEmail(t *testing.T) {
	t.Parallel()

	if !IsValidEmail("student@du.ac.bd") {
		t.Fatal("expected valid email")
	}
	if IsValidEmail("not-an-email") || IsValidEmail("") {
		t.Fatal("expected invalid email")
	}
}

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	if got := NormalizeText("  Rafi   Ahmed "); got != "Rafi Ahmed" {
		t.Fatalf("unexpected %q", got)
	}
}
