package observability

import (
	"strings"
	"unicode"
)

const defaultStringLimit = 256

// sanitizeString trims unwanted characters and limits string length to avoid log injection.
func sanitizeString(value string, limit int) string {
	if limit <= 0 {
		limit = defaultStringLimit
	}

	cleaned := make([]rune, 0, len(value))
	for _, r := range value {
		if unicode.IsControl(r) && r != '\t' {
			continue
		}
		cleaned = append(cleaned, r)
	}
	if len(cleaned) > limit {
		cleaned = cleaned[:limit]
	}
	return string(cleaned)
}

// SanitizeRoute removes control characters and enforces length constraints on routes.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return sanitizeString(route, 180)
}

// SanitizeMethod removes control characters in HTTP methods.
func SanitizeMethod(method string) string {
	return sanitizeString(method, 10)
}

// SanitizeVisitorID limits session identifiers written to logs.
func SanitizeVisitorID(id string) string {
	if id == "" {
		return ""
	}
	return sanitizeString(id, 64)
}

// MaskEmail keeps the first character of the local part and the domain.
func MaskEmail(email string) string {
	email = sanitizeString(strings.TrimSpace(email), 128)
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return "***"
	}
	return local[:1] + "***@" + domain
}

// MaskToken hides all but the last four characters of a credential.
func MaskToken(token string) string {
	token = strings.TrimSpace(token)
	if len(token) <= 4 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}
