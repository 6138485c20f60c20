package utils

import "testing"

func TestT_Fallback(t *testing.T) {
	if got := T("fr", "health.ok"); got != "ok" {
		t.Fatalf("fallback to en failed: %s", got)
	}
	if got := T("es", "missing.key"); got != "missing.key" {
		t.Fatalf("unknown key should echo, got %s", got)
	}
}

func TestT_LocalesCoverSameKeys(t *testing.T) {
	for key := range translations["en"] {
		if _, ok := translations["es"][key]; !ok {
			t.Fatalf("es missing %q", key)
		}
	}
	if got := T("es", "login.wrong_password"); got != "Contraseña incorrecta." {
		t.Fatalf("es message = %q", got)
	}
}
