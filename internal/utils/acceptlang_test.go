package utils

import "testing"

func TestDetermineLocale_QueryParamWins(t *testing.T) {
	got := DetermineLocale("en-GB", "nl-NL,nl;q=0.9,en;q=0.8", []string{"nl", "en"}, "nl")
	if got != "en" {
		t.Fatalf("want en, got %s", got)
	}
}

func TestDetermineLocale_AcceptLanguageOrder(t *testing.T) {
	got := DetermineLocale("", "nl-BE,nl;q=0.9,en;q=0.8", []string{"nl", "en"}, "en")
	if got != "nl" {
		t.Fatalf("want nl, got %s", got)
	}
}

func TestDetermineLocale_AcceptLanguagePrefersHigherQ(t *testing.T) {
	got := DetermineLocale("", "nl;q=0.4,en;q=0.8", []string{"nl", "en"}, "nl")
	if got != "en" {
		t.Fatalf("want en, got %s", got)
	}
}

func TestDetermineLocale_ZeroQualityIsExcluded(t *testing.T) {
	got := DetermineLocale("", "en;q=0,fr", []string{"nl", "en"}, "nl")
	if got != "nl" {
		t.Fatalf("want nl, got %s", got)
	}
}

func TestDetermineLocale_DefaultFallback(t *testing.T) {
	got := DetermineLocale("", "fr-FR,es;q=0.9", []string{"nl", "en"}, "nl")
	if got != "nl" {
		t.Fatalf("want nl fallback, got %s", got)
	}
}
