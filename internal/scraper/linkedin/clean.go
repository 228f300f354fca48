package linkedin

import (
	"net/url"
	"regexp"
	"strings"
)

var withVerification = regexp.MustCompile(`(?i)\s+with verification\b`)

// normalizeTitle cleans the screen-reader duplication LinkedIn cards carry:
// a repeated leading phrase ("Data Scientist Data Scientist"), repeated
// words, and the "with verification" badge text.
func normalizeTitle(title string) string {
	tokens := strings.Fields(title)
	if len(tokens) == 0 {
		return ""
	}

	for changed := true; changed && len(tokens) >= 2; {
		changed = false
		for k := len(tokens) / 2; k > 0; k-- {
			if equalTokens(tokens[:k], tokens[k:2*k]) {
				tokens = append(tokens[:k:k], tokens[2*k:]...)
				changed = true
				break
			}
		}
	}

	dedup := tokens[:0:0]
	for _, w := range tokens {
		if len(dedup) == 0 || !strings.EqualFold(dedup[len(dedup)-1], w) {
			dedup = append(dedup, w)
		}
	}

	t := strings.Join(dedup, " ")
	return strings.TrimSpace(withVerification.ReplaceAllString(t, ""))
}

func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// canonicalURL makes href absolute against base and drops the query string
// and fragment, which carry tracking ids that change between visits.
// Links that do not point at LinkedIn are rejected.
func canonicalURL(base, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	u := baseURL.ResolveReference(ref)

	host := strings.ToLower(u.Hostname())
	if !isLinkedInHost(host) && host != strings.ToLower(baseURL.Hostname()) {
		return "", false
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return "", false
	}

	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	if u.Path == "" {
		return "", false
	}
	return u.String(), true
}

func isLinkedInHost(host string) bool {
	return host == "linkedin.com" || strings.HasSuffix(host, ".linkedin.com")
}
