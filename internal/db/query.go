package db

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TagFilter renders an exact-match TAG clause, e.g. @owner:{alice}.
func TagFilter(field, value string) string {
	return "@" + field + ":{" + tagEscaper.Replace(value) + "}"
}

// MinInfixLen is the shortest token the server accepts in an infix query.
const MinInfixLen = 2

// ContainsFilter renders a case-insensitive infix match over a TEXT field.
// Every alphanumeric token of term must appear inside some indexed word.
// Tokens shorter than MinInfixLen are skipped, which widens the match.
// Returns "" when no token qualifies.
func ContainsFilter(field, term string) string {
	var parts []string
	for _, t := range Tokenize(term) {
		if utf8.RuneCountInString(t) < MinInfixLen {
			continue
		}
		parts = append(parts, "@"+field+":(*"+t+"*)")
	}
	return strings.Join(parts, " ")
}

// Tokenize lower-cases s and splits it on anything that is not a letter or digit.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// And joins non-empty clauses into one FT query (intersection). Empty input yields "*".
func And(clauses ...string) string {
	out := make([]string, 0, len(clauses))
	for _, c := range clauses {
		if c != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return "*"
	}
	return strings.Join(out, " ")
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"[", "\\[",
	"]", "\\]",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	"/", "\\/",
	"?", "\\?",
	" ", "\\ ",
)
