package utils

import "testing"

func TestDetermineLocale_QueryParamWins(t *testing.T) {
	got := DetermineLocale("es-EC", "en-US,en;q=0.9,es;q=0.8", []string{"en", "es"}, "en")
	if got != "es" {
		t.Fatalf("want es, got %s", got)
	}
}

func TestDetermineLocale_AcceptLanguageOrder(t *testing.T) {
	got := DetermineLocale("", "en-US,en;q=0.9,es;q=0.8", []string{"en", "es"}, "en")
	if got != "en" {
		t.Fatalf("want en, got %s", got)
	}
}

func TestDetermineLocale_AcceptLanguagePrefersHigherQ(t *testing.T) {
	got := DetermineLocale("", "en;q=0.7,es-419;q=0.9", []string{"en", "es"}, "en")
	if got != "es" {
		t.Fatalf("want es, got %s", got)
	}
}

func TestDetermineLocale_ZeroQIsRejected(t *testing.T) {
	got := DetermineLocale("", "es;q=0", []string{"en", "es"}, "en")
	if got != "en" {
		t.Fatalf("want en, got %s", got)
	}
}

func TestDetermineLocale_DefaultFallback(t *testing.T) {
	got := DetermineLocale("", "fr-FR,de;q=0.9", []string{"en", "es"}, "es")
	if got != "es" {
		t.Fatalf("want es fallback, got %s", got)
	}
}
