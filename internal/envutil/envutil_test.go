package envutil

import "testing"

func TestParseBool(t *testing.T) {
	truthy := []string{"1", "true", "TRUE", " yes ", "Y", "on", "t"}
	for _, value := range truthy {
		if !ParseBool(value) {
			t.Fatalf("expected %q to parse as true", value)
		}
	}
	falsy := []string{"", "0", "false", "no", "off", "garbage"}
	for _, value := range falsy {
		if ParseBool(value) {
			t.Fatalf("expected %q to parse as false", value)
		}
	}
}

func TestBoolReadsEnv(t *testing.T) {
	t.Setenv("PPTAGENT_TEST_FLAG", "yes")
	if !Bool("PPTAGENT_TEST_FLAG") {
		t.Fatalf("expected flag true")
	}
	t.Setenv("PPTAGENT_TEST_FLAG", "0")
	if Bool("PPTAGENT_TEST_FLAG") {
		t.Fatalf("expected flag false")
	}
}

func TestInt(t *testing.T) {
	t.Setenv("PPTAGENT_TEST_INT", "12")
	if got := Int("PPTAGENT_TEST_INT", 5); got != 12 {
		t.Fatalf("expected 12, got %d", got)
	}
	t.Setenv("PPTAGENT_TEST_INT", "not-a-number")
	if got := Int("PPTAGENT_TEST_INT", 5); got != 5 {
		t.Fatalf("expected fallback 5, got %d", got)
	}
	t.Setenv("PPTAGENT_TEST_INT", "")
	if got := Int("PPTAGENT_TEST_INT", 7); got != 7 {
		t.Fatalf("expected fallback 7, got %d", got)
	}
}
