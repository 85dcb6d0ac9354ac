// Package redact scrubs credentials and raw ECG samples from log lines.
package redact

import (
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"
)

var (
	authHeaderRe = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*bearer\s+)([A-Za-z0-9._\-+/=]+)`)
	bearerRe     = regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9._\-+/=]+)`)
	apiKeyListRe = regexp.MustCompile(`(?i)(api[_-]?keys?\s*[:=]\s*\[)([^\]]+)(\])`)
	apiKeyRe     = regexp.MustCompile(`(?i)(api[_-]?keys?\s*[:=]\s*)([A-Za-z0-9._\-+/=]+)`)
	passwordRe   = regexp.MustCompile(`(?i)((?:mqtt_)?password\s*[:=]\s*)(\S+)`)
	tokenRe      = regexp.MustCompile(`(?i)((?:secret|token)\s*[:=]\s*)([A-Za-z0-9._\-+/=]{6,})`)
	urlRe        = regexp.MustCompile(`(?:https?|tcp|ssl|mqtts?|wss?)://[^\s"'<>]+`)
	samplesRe    = regexp.MustCompile(`(?i)("?(?:signal|samples)"?\s*[:=]\s*\[)([^\]]*)(\])`)
)

// String redacts known secret patterns and sample arrays from free-form strings.
func String(s string) string {
	if s == "" {
		return s
	}

	out := s
	out = samplesRe.ReplaceAllStringFunc(out, func(m string) string {
		parts := samplesRe.FindStringSubmatch(m)
		return parts[1] + fmt.Sprintf("%d samples", countValues(parts[2])) + parts[3]
	})
	out = authHeaderRe.ReplaceAllString(out, "${1}[REDACTED]")
	out = bearerRe.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyListRe.ReplaceAllString(out, "${1}REDACTED${3}")
	out = apiKeyRe.ReplaceAllString(out, "${1}[REDACTED]")
	out = passwordRe.ReplaceAllString(out, "${1}[REDACTED]")
	out = tokenRe.ReplaceAllStringFunc(out, func(m string) string {
		if strings.Contains(m, "[REDACTED]") {
			return m
		}
		parts := tokenRe.FindStringSubmatch(m)
		return parts[1] + "[REDACTED]"
	})
	out = urlRe.ReplaceAllStringFunc(out, redactURL)
	for strings.Contains(out, "[REDACTED][REDACTED]") {
		out = strings.ReplaceAll(out, "[REDACTED][REDACTED]", "[REDACTED]")
	}
	return out
}

// Sprintf formats like fmt.Sprintf and redacts the result.
func Sprintf(format string, args ...interface{}) string {
	return String(fmt.Sprintf(format, args...))
}

// Logf prints a redacted log line.
func Logf(format string, args ...interface{}) {
	log.Print(Sprintf(format, args...))
}

// Fatalf prints a redacted fatal log line.
func Fatalf(format string, args ...interface{}) {
	log.Fatal(Sprintf(format, args...))
}

func countValues(list string) int {
	n := 0
	for _, f := range strings.FieldsFunc(list, func(r rune) bool { return r == ',' || r == ' ' }) {
		if strings.TrimSpace(f) != "" {
			n++
		}
	}
	return n
}

// redactURL drops userinfo and query strings; broker and webhook hosts stay visible.
func redactURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "[REDACTED_URL]"
	}
	out := u.Scheme + "://"
	if u.User != nil {
		out += "[REDACTED]@"
	}
	out += u.Host + u.Path
	if u.RawQuery != "" {
		out += "?[REDACTED]"
	}
	return out
}
