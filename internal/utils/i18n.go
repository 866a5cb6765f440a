package utils

// Server-side messages only. Question texts and the wizard UI live in the kiosk frontend.

var translations = map[string]map[string]string{
	"nl": {
		"health.ok":          "in orde",
		"error.internal":     "er ging iets mis",
		"error.not_found":    "niet gevonden",
		"error.invalid_code": "ongeldige toegangscode",
		"error.unauthorized": "niet geautoriseerd",
		"checkout.conflict":  "deze naam is al gebruikt, voeg een cijfer toe aan je naam",
	},
	"en": {
		"health.ok":          "ok",
		"error.internal":     "something went wrong",
		"error.not_found":    "not found",
		"error.invalid_code": "invalid access code",
		"error.unauthorized": "unauthorized",
		"checkout.conflict":  "this name is already taken, add a number to your name",
	},
}

// SupportedLocales lists locales with server-side messages; the first is the default.
var SupportedLocales = []string{"nl", "en"}

// T returns the translated string for key in locale; falls back to Dutch, then the key itself.
func T(locale, key string) string {
	if m, ok := translations[locale]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if v, ok := translations["nl"][key]; ok {
		return v
	}
	return key
}
