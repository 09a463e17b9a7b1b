package logging

import "encoding/json"

// Command batches and replacement text can be large; log lines keep a
// bounded prefix so the debug log stays readable.

const maxLoggedChars = 400

// Trim bounds a string for logging.
func Trim(value string) string {
	if len(value) <= maxLoggedChars {
		return value
	}
	return value[:maxLoggedChars] + "…(truncated)"
}

// TrimJSON bounds a raw JSON payload for logging, keeping it printable.
func TrimJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	return Trim(string(raw))
}
