package respond

import (
	"regexp"
)

var (
	// apiKey=... in query strings, as sent to NewsAPI
	queryKeyPattern = regexp.MustCompile(`(?i)(api_?key=)[^&\s"']+`)

	// X-Api-Key: ... header dumps
	headerKeyPattern = regexp.MustCompile(`(?i)(x-api-key:\s*)\S+`)

	// user:password@ inside DSNs
	dbPasswordPattern = regexp.MustCompile(`://([^:/@\s]+):([^@\s]+)@`)
)

// SanitizeError returns the error message with credentials masked.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	msg = queryKeyPattern.ReplaceAllString(msg, "${1}****")
	msg = headerKeyPattern.ReplaceAllString(msg, "${1}****")
	msg = dbPasswordPattern.ReplaceAllString(msg, "://$1:****@")
	return msg
}
