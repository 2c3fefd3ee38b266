package benchmark

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	handlePattern  = regexp.MustCompile(`youtube\.com/@([^/?]+)`)
	channelPattern = regexp.MustCompile(`youtube\.com/channel/([^/?]+)`)
	cPattern       = regexp.MustCompile(`youtube\.com/c/([^/?]+)`)
)

// NormalizeChannelURL maps a channel URL or bare handle to one of the
// canonical forms: "@handle" (lowercased), "channel/UC...", "c/name"
// (lowercased), or a lowercased bare handle. It is idempotent:
// NormalizeChannelURL(NormalizeChannelURL(u)) == NormalizeChannelURL(u).
func NormalizeChannelURL(raw string) string {
	u := strings.TrimSpace(raw)
	u = strings.TrimSuffix(u, "/")
	if decoded, err := url.QueryUnescape(u); err == nil {
		u = decoded
	}

	if m := handlePattern.FindStringSubmatch(u); m != nil {
		return "@" + strings.ToLower(m[1])
	}
	if m := channelPattern.FindStringSubmatch(u); m != nil {
		return "channel/" + m[1]
	}
	if m := cPattern.FindStringSubmatch(u); m != nil {
		return "c/" + strings.ToLower(m[1])
	}
	// Already-canonical forms pass through unchanged so a second
	// normalization pass never reclassifies them as bare handles.
	if strings.HasPrefix(u, "@") {
		return "@" + strings.ToLower(strings.TrimPrefix(u, "@"))
	}
	if strings.HasPrefix(u, "channel/") {
		return u
	}
	if strings.HasPrefix(u, "c/") {
		return "c/" + strings.ToLower(strings.TrimPrefix(u, "c/"))
	}
	if !strings.HasPrefix(u, "http") {
		return "@" + strings.ToLower(strings.ReplaceAll(u, " ", ""))
	}
	return u
}
