package engine

import (
	"regexp"
	"strconv"
	"strings"
)

// Normalisation passes applied to every textual column, in order. The
// whitespace passes run before the deletions so that exotic spaces collapse
// into the final single-space runs.
var (
	// HTML NBSP entities, literal backslash escapes, the BOM, and the
	// non-breaking space all become a plain space.
	reEscapeTokens = regexp.MustCompile(`&nbsp;|\\n|\\t|\\r|\x{00A0}|\x{FEFF}`)
	// Real control whitespace becomes a plain space.
	reCtrlSpace = regexp.MustCompile("[\n\r\t]")
	// Remaining exotic Unicode spaces become a plain space.
	reUnicodeSpace = regexp.MustCompile(`[\x{202F}\x{2007}\x{1680}\x{180E}\x{205F}]`)
	// Invisible formatters are deleted outright.
	reInvisible = regexp.MustCompile(`[\x{200B}\x{200C}\x{200D}\x{2060}\x{00AD}\x{200E}\x{200F}\x{061C}]`)
	// ASCII control characters are deleted outright.
	reControl = regexp.MustCompile(`[\x{0000}-\x{001F}\x{007F}]`)
	// Whitespace runs collapse to one space.
	reSpaceRun = regexp.MustCompile(`\s{2,}`)
)

// emptyTokens are stripped values canonicalised to null after cleaning.
// The normalisation pass lower-cases before it gets here, so only lowercase
// forms are listed.
var emptyTokens = map[string]struct{}{
	"":     {},
	" ":    {},
	"nan":  {},
	"none": {},
	"null": {},
	"0":    {},
}

// cleanText normalises whitespace and strips invisible characters. The
// function is idempotent: applying it twice yields the same result.
func cleanText(s string) string {
	s = reEscapeTokens.ReplaceAllString(s, " ")
	s = reCtrlSpace.ReplaceAllString(s, " ")
	s = reUnicodeSpace.ReplaceAllString(s, " ")
	s = reInvisible.ReplaceAllString(s, "")
	s = reControl.ReplaceAllString(s, "")
	s = reSpaceRun.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

// canonicalNull maps cleaned values onto null when the stripped form is an
// empty token.
func canonicalNull(s string) any {
	if _, empty := emptyTokens[strings.TrimSpace(s)]; empty {
		return nil
	}

	return s
}

// castText coerces a scalar value to its textual form. Null becomes the
// empty string.
func castText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// keepMatches reduces s to the concatenation of all non-overlapping matches
// of re in source order.
func keepMatches(re *regexp.Regexp, s string) string {
	return strings.Join(re.FindAllString(s, -1), "")
}
