package agent

import (
	"regexp"
	"strconv"
	"strings"
)

// SkipTokens recognize a "skip this stage" intent.
var SkipTokens = []string{"스킵", "skip", "없어", "패스", "pass", "넘어가", "건너뛰"}

// ConfirmTokens recognize "accept current proposal and finish the stage".
var ConfirmTokens = []string{"확정", "확인", "좋아", "네", "다음", "ok"}

var koreanOrdinals = map[string]int{
	"첫": 1, "두": 2, "세": 3, "네": 4, "다섯": 5,
	"여섯": 6, "일곱": 7, "여덟": 8, "아홉": 9, "열": 10,
}

var ordinalSuffixPattern = regexp.MustCompile(`^(\d+)번$`)

// IsSkip reports whether text matches the skip-intent tokens.
func IsSkip(text string) bool {
	return containsAnyToken(text, SkipTokens)
}

// IsConfirm reports whether text matches the confirm-intent tokens.
// Note: "네" doubles as both a confirm token and the Korean ordinal for
// 4 ("네번째"); callers should check a bare/"N번" selection first when
// both intents are plausible for a given agent phase.
func IsConfirm(text string) bool {
	return containsAnyToken(text, ConfirmTokens)
}

func containsAnyToken(text string, tokens []string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, tok := range tokens {
		if strings.Contains(lower, strings.ToLower(tok)) {
			return true
		}
	}
	return false
}

// ParseSelection extracts a 1-based selection index from a bare integer,
// "N번", or a Korean ordinal word. Returns (0, false) if text
// does not express a selection.
func ParseSelection(text string) (int, bool) {
	trimmed := strings.TrimSpace(text)

	if n, err := strconv.Atoi(trimmed); err == nil && n > 0 {
		return n, true
	}
	if m := ordinalSuffixPattern.FindStringSubmatch(trimmed); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n > 0 {
			return n, true
		}
	}
	for word, n := range koreanOrdinals {
		if trimmed == word || trimmed == word+"번째" || trimmed == word+" 번째" {
			return n, true
		}
	}
	return 0, false
}
