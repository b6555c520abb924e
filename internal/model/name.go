package model

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// NormalizeName splits on whitespace, capitalizes each token and rejoins
// with single spaces. "  jANE   doe " becomes "Jane Doe".
func NormalizeName(name string) string {
	fields := strings.Fields(name)
	for i, f := range fields {
		fields[i] = capitalize(f)
	}
	return strings.Join(fields, " ")
}

func capitalize(token string) string {
	r, size := utf8.DecodeRuneInString(token)
	if r == utf8.RuneError {
		return token
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(token[size:])
}
