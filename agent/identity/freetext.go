package identity

import (
	"regexp"
	"strings"
)

var (
	freeTextPhoneRe = regexp.MustCompile(`\d{10}`)
	freeTextNameRe  = regexp.MustCompile(`(?i)name is ([A-Za-z\s]+)`)
)

// ExtractFromText pulls a ten-digit phone number and a "name is <words>"
// name out of a free-text message, e.g. a welcome data packet sent by the
// client before the caller speaks.
func ExtractFromText(message string) (Evidence, bool) {
	if !strings.Contains(strings.ToLower(message), "phone number") {
		return Evidence{}, false
	}
	ev := Evidence{Source: "free_text"}
	if m := freeTextPhoneRe.FindString(message); m != "" {
		ev.Phone = m
	}
	if m := freeTextNameRe.FindStringSubmatch(message); m != nil {
		ev.Name = strings.TrimSpace(m[1])
	}
	return ev, ev.Phone != "" || ev.Name != ""
}
