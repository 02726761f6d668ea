package logging

import (
	"net/url"
	"strings"
)

const redactedValue = "***"

var sensitiveQueryKeys = map[string]struct{}{
	"access_token":  {},
	"client_secret": {},
	"code":          {},
	"refresh_token": {},
	"token":         {},
}

// RedactURL masks credential-bearing query parameters so request URLs can be logged.
func RedactURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.RawQuery == "" {
		return rawURL
	}

	query := parsed.Query()
	for key, values := range query {
		if _, ok := sensitiveQueryKeys[strings.ToLower(key)]; !ok {
			continue
		}
		for i := range values {
			values[i] = redactedValue
		}
	}

	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// MaskToken keeps the first and last four characters of a token for display.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return redactedValue
	}
	return token[:4] + strings.Repeat("*", 8) + token[len(token)-4:]
}
