// Package pattern is the registry of named Unicode character classes used
// by workflow regex rules.
package pattern

import "strings"

// sources maps pattern keys to regex sources. Each entry is a single Unicode
// character class or an escaped literal, suitable for alternation.
var sources = map[string]string{
	// Cyrillic.
	"kazakh_cyrillic":    `[\x{04D8}\x{04D9}\x{0406}\x{0456}\x{04B0}\x{04B1}]`,
	"uzbek_cyrillic":     `[\x{040E}\x{045E}\x{04B2}\x{04B3}]`,
	"cyrillic_common":    `[\x{0410}-\x{044F}\x{0401}\x{0451}]`,
	"cyrillic_extended":  `[\x{04E8}\x{04E9}\x{04AE}\x{04AF}\x{04B1}\x{04A2}\x{04A3}\x{049A}\x{049B}\x{0492}\x{0493}]`,

	// Latin.
	"latyn_kazakh":   `[\x{00E4}\x{00C4}\x{011F}\x{011E}\x{0131}\x{0130}\x{00F1}\x{00D1}\x{015F}\x{015E}]`,
	"latyn_uzbek":    `[\x{02BB}\x{02BC}]`,
	"latin_basic":    `[A-Za-z]`,
	"latin_extended": `[\x{00F6}\x{00D6}\x{00FC}\x{00DC}]`,

	// Digits.
	"digits": `[0-9]`,

	// Whitespace and control characters.
	"space":                   `\x{0020}`,
	"newline":                 `\x{000A}`,
	"literal_escaped_space":   `\\u0020`,
	"literal_escaped_newline": `\\u000A`,

	// Punctuation.
	"colon":      `:`,
	"semicolon":  `;`,
	"hyphen":     `-`,
	"underscore": `_`,
	"period":     `\.`,
	"comma":      `,`,

	// Separators.
	"backslash":    `\\`,
	"forward_slash": `/`,
	"vertical_bar": `\|`,

	// Specials.
	"double_quote": `"`,
	"single_quote": `'`,
	"dollar":       `\$`,
	"at":           `@`,
	"hash":         `#`,
	"asterisk":     `\*`,
}

// labels maps pattern keys to human-readable descriptions.
var labels = map[string]string{
	"kazakh_cyrillic":   "Kazakh Cyrillic (Әә, Іі, Ұұ)",
	"uzbek_cyrillic":    "Uzbek Cyrillic (Ўў, Ҳҳ)",
	"cyrillic_common":   "Cyrillic (А-Я, а-я, Ёё)",
	"cyrillic_extended": "Cyrillic (Өө, Үү, Ңң, Ққ, Ғғ)",

	"latyn_kazakh":   "Kazakh Latin (äÄ, ğĞ, ıİ, ñÑ, şŞ)",
	"latyn_uzbek":    "Uzbek Latin (ʼ)",
	"latin_basic":    "Latin (A-Z, a-z)",
	"latin_extended": "Latin (öÖ, üÜ)",

	"digits": "Digits (0-9)",

	"space":                   "Space",
	"newline":                 "Newline",
	"literal_escaped_space":   "Escaped space (\\u0020)",
	"literal_escaped_newline": "Escaped newline (\\u000A)",

	"colon":      ":",
	"semicolon":  ";",
	"hyphen":     "-",
	"underscore": "_",
	"period":     ".",
	"comma":      ",",

	"backslash":    `\`,
	"forward_slash": "/",
	"vertical_bar": "|",

	"double_quote": `"`,
	"single_quote": "'",
	"dollar":       "$",
	"at":           "@",
	"hash":         "#",
	"asterisk":     "*",
}

// Lookup returns the regex source for key. The second result is false when
// the key is not registered.
func Lookup(key string) (string, bool) {
	src, ok := sources[key]

	return src, ok
}

// Label returns the human-readable description for key, or the empty string
// when the key is not registered.
func Label(key string) string {
	return labels[key]
}

// Combine joins the regex sources of the given keys into an alternation,
// preserving input order. Unknown keys are skipped. Returns the empty string
// when no key matches.
func Combine(keys []string) string {
	parts := make([]string, 0, len(keys))

	for _, key := range keys {
		if src, ok := sources[key]; ok {
			parts = append(parts, src)
		}
	}

	return strings.Join(parts, "|")
}

// Keys returns all registered pattern keys in unspecified order.
func Keys() []string {
	keys := make([]string, 0, len(sources))
	for k := range sources {
		keys = append(keys, k)
	}

	return keys
}
