// Package links extracts and sanitizes http(s) URLs embedded in transformed
// tool output. Extraction is a single deterministic pass; malformed
// candidates are dropped silently, never surfaced as errors.
package links

import (
	"net/url"
	"strings"
	"unicode"
)

// PromoInvite is the project's own invite slug. Output headers advertise it,
// so extraction suppresses it to avoid echoing the header back as a find.
const PromoInvite = "discord.gg/Y3yt5XMCGj"

// trailingJunk are characters that cannot legitimately end a URL and are
// stripped from candidate tails until none remain.
const trailingJunk = ".,;:)]}!?\"'>\\|`~@#$%^&*+="

// Extract returns every structurally valid http(s) URL in text, sanitized,
// deduplicated, in first-seen order.
func Extract(text string) []string {
	var out []string
	seen := make(map[string]bool)

	for i := 0; i < len(text); {
		offset, schemeLen := nextMarker(text[i:])
		if offset < 0 {
			break
		}
		start := i + offset

		end := start + schemeLen
		for end < len(text) && !isTerminator(text[end]) {
			end++
		}
		candidate := text[start:end]
		i = end

		// Two scheme markers glued together with no separator: keep only
		// the first URL, cut before the second marker.
		if j, _ := nextMarker(candidate[schemeLen:]); j >= 0 {
			candidate = candidate[:schemeLen+j]
		}

		cleaned, ok := sanitize(candidate)
		if !ok || seen[cleaned] {
			continue
		}
		seen[cleaned] = true
		out = append(out, cleaned)
	}
	return out
}

func sanitize(candidate string) (string, bool) {
	cleaned := strings.TrimRight(candidate, trailingJunk)
	if cleaned == "" {
		return "", false
	}

	decoded, err := url.PathUnescape(cleaned)
	if err != nil {
		return "", false
	}
	decoded = strings.Map(func(r rune) rune {
		if !unicode.IsPrint(r) {
			return -1
		}
		return r
	}, decoded)

	parsed, err := url.Parse(decoded)
	if err != nil {
		return "", false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", false
	}
	if !strings.Contains(parsed.Host, ".") {
		return "", false
	}
	if strings.Contains(decoded, PromoInvite) {
		return "", false
	}
	return decoded, true
}

func nextMarker(s string) (int, int) {
	from := 0
	for {
		idx := strings.Index(s[from:], "http")
		if idx < 0 {
			return -1, 0
		}
		idx += from
		rest := s[idx:]
		switch {
		case strings.HasPrefix(rest, "https://"):
			return idx, len("https://")
		case strings.HasPrefix(rest, "http://"):
			return idx, len("http://")
		}
		from = idx + len("http")
	}
}

func isTerminator(c byte) bool {
	if c <= ' ' {
		return true
	}
	switch c {
	case '<', '>', '"', '{', '}', '|', '\\', '^', '`', '[', ']':
		return true
	}
	return false
}
