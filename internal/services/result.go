package services

// Result maps the visitor's action choice and most important topic to the
// label shown on the results screen. Unknown or empty choices fall back to
// the TOEKOMSTMAKER bucket.
func Result(actionChoice, topic string) string {
	return "Jij bent een " + persona(actionChoice) + " voor " + topic
}

func persona(actionChoice string) string {
	switch actionChoice {
	case "uitvinden":
		return "UITVINDER"
	case "onderzoeken":
		return "ONDERZOEKER"
	case "vertellen":
		return "VERTELLER"
	default:
		return "TOEKOMSTMAKER"
	}
}
